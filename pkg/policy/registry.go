package policy

import (
	"errors"
	"fmt"
	"slices"
)

// Registry maps policy names to policies. It is populated during startup and
// treated as read-only afterwards: Register must not be called concurrently with
// Lookup or with any Engine using the registry. The zero Registry is empty and
// ready to use.
type Registry struct {
	policies map[Name]Policy
}

// NewRegistry returns a registry holding the baseline policies.
func NewRegistry() *Registry {
	r := NewEmptyRegistry()
	for _, b := range baseline() {
		r.policies[b.name] = b.policy
	}
	return r
}

// NewEmptyRegistry returns a registry with no policies registered.
func NewEmptyRegistry() *Registry {
	return &Registry{policies: make(map[Name]Policy)}
}

// Register adds p under name.
func (r *Registry) Register(name Name, p Policy) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidPolicy)
	}
	if p == nil {
		return fmt.Errorf("%w: %s has no implementation", ErrInvalidPolicy, name)
	}
	if _, exists := r.policies[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicatePolicy, name)
	}
	if r.policies == nil {
		r.policies = make(map[Name]Policy)
	}
	r.policies[name] = p
	return nil
}

// MustRegister is like Register but panics on error. Use it only from
// initialization code.
func (r *Registry) MustRegister(name Name, p Policy) {
	if err := r.Register(name, p); err != nil {
		panic(err)
	}
}

// Lookup returns the policy registered under name. The boolean is false when
// no such policy exists; a nil registry has no policies.
func (r *Registry) Lookup(name Name) (Policy, bool) {
	if r == nil {
		return nil, false
	}
	p, ok := r.policies[name]
	return p, ok
}

// Names returns the registered policy names in lexical order.
func (r *Registry) Names() []Name {
	if r == nil {
		return nil
	}
	names := make([]Name, 0, len(r.policies))
	for n := range r.policies {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Validate checks that every grant of roles refers to a registered policy.
// The returned error joins one *UnknownPolicyError per dangling reference.
func (r *Registry) Validate(roles ...Role) error {
	var errs []error
	for _, role := range roles {
		for _, g := range role.Grants {
			if _, ok := r.Lookup(g.Policy); !ok {
				errs = append(errs, &UnknownPolicyError{Role: role.Name, Grant: g})
			}
		}
	}
	return errors.Join(errs...)
}
