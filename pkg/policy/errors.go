package policy

import (
	"errors"
	"fmt"
)

var (
	// ErrForbidden is returned by Engine.Authorize when access is denied. It
	// carries no detail about which policy failed.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidPolicy indicates a registration with an empty name or nil policy,
	// or an expression that does not compile.
	ErrInvalidPolicy = errors.New("invalid policy")

	// ErrDuplicatePolicy indicates a name is already registered.
	ErrDuplicatePolicy = errors.New("policy already registered")

	// ErrUnknownPolicy indicates a grant refers to a name absent from the registry.
	ErrUnknownPolicy = errors.New("unknown policy")

	// ErrSubjectNotFound is returned by a SubjectSource that has no record of the
	// requested subject. Callers treat it as an unauthenticated request.
	ErrSubjectNotFound = errors.New("subject not found")
)

// UnknownPolicyError describes a grant whose policy is not registered.
type UnknownPolicyError struct {
	Role  string
	Grant Grant
}

func (e *UnknownPolicyError) Error() string {
	return fmt.Sprintf("role %q grants %s:%s with unknown policy %q",
		e.Role, e.Grant.Resource, e.Grant.Action, e.Grant.Policy)
}

func (e *UnknownPolicyError) Unwrap() error {
	return ErrUnknownPolicy
}
