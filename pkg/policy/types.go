package policy

// DecisionRequest asks whether a subject may act on one resource instance. The
// subject is either carried inline or loaded by SubjectID.
type DecisionRequest struct {
	SubjectID    string   `json:"subject_id,omitempty"`
	Subject      *Subject `json:"subject,omitempty" validate:"omitempty"`
	ResourceType string   `json:"resource_type" validate:"required"`
	Action       string   `json:"action" validate:"required"`
	Instance     any      `json:"instance,omitempty"`
}

// DecisionResponse carries the outcome of a DecisionRequest.
type DecisionResponse struct {
	Allowed bool `json:"allowed"`
}

// FilterRequest asks which of several instances a subject may act on.
type FilterRequest struct {
	SubjectID    string   `json:"subject_id,omitempty"`
	Subject      *Subject `json:"subject,omitempty" validate:"omitempty"`
	ResourceType string   `json:"resource_type" validate:"required"`
	Action       string   `json:"action" validate:"required"`
	Instances    []any    `json:"instances" validate:"max=1000"`
}

// FilterResponse lists the positions of the allowed instances in the request.
type FilterResponse struct {
	AllowedIndexes []int `json:"allowed_indexes"`
}

// PoliciesResponse lists the registered policy names.
type PoliciesResponse struct {
	Policies []Name `json:"policies"`
}

// HealthCheckResponse holds the response values for the health endpoint.
type HealthCheckResponse struct {
	Healthy bool `json:"healthy"`
}

// ErrorResponse is the body of every non-2xx response. Reason is a stable,
// generic code; it never names the policy that denied access.
type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}
