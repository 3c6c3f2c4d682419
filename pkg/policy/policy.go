package policy

// Name identifies a policy in a Registry. Grants refer to policies by Name so
// that role data can be stored and transmitted as plain data.
type Name string

// Baseline policy names. These are part of the compatibility surface shared with
// persisted role data and must not be renamed.
const (
	AlwaysAllow         Name = "ALWAYS_ALLOW"
	IsOwner             Name = "IS_OWNER"
	IsCollaborator      Name = "IS_COLLABORATOR"
	OwnerOrCollaborator Name = "OWNER_OR_COLLABORATOR"
	OnlyIfCompleted     Name = "ONLY_IF_COMPLETED"
	DeleteOwnCompleted  Name = "DELETE_OWN_COMPLETED"
)

// Subject is an authenticated identity together with the roles attached to it
// by the identity provider. A nil *Subject means the request is unauthenticated.
type Subject struct {
	ID    string `json:"id" yaml:"id" validate:"required"`
	Roles []Role `json:"roles" yaml:"roles" validate:"dive"`
}

// Role is a named bundle of grants. Role names need not be unique within a subject.
type Role struct {
	Name   string  `json:"name" yaml:"name"`
	Grants []Grant `json:"permissions" yaml:"permissions" validate:"dive"`
}

// Grant confers permission to perform Action on Resource, subject to Policy.
// Resource and Action are compared by exact, case-sensitive equality.
type Grant struct {
	Resource string `json:"resource" yaml:"resource" validate:"required"`
	Action   string `json:"action" yaml:"action" validate:"required"`
	Policy   Name   `json:"policy" yaml:"policy" validate:"required"`
}

// Matches reports whether the grant applies to resourceType and action.
func (g Grant) Matches(resourceType, action string) bool {
	return g.Resource == resourceType && g.Action == action
}

// Policy decides, for a subject and a resource instance, whether access is allowed.
// Implementations must not mutate either argument and must return false rather
// than fail when the instance lacks the fields they inspect.
type Policy interface {
	Evaluate(subject *Subject, instance any) bool
}

// PolicyFunc adapts an ordinary function to the Policy interface.
type PolicyFunc func(subject *Subject, instance any) bool

// Evaluate calls f(subject, instance).
func (f PolicyFunc) Evaluate(subject *Subject, instance any) bool {
	return f(subject, instance)
}
