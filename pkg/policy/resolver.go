package policy

import "iter"

// Resolver finds the grants a subject holds for a resource type and action.
type Resolver struct{}

// Policies yields the policy name of every grant across the subject's roles that
// matches resourceType and action exactly, in role order and then grant order.
// A nil subject yields nothing.
func (Resolver) Policies(subject *Subject, resourceType, action string) iter.Seq[Name] {
	return func(yield func(Name) bool) {
		if subject == nil {
			return
		}
		for _, role := range subject.Roles {
			for _, g := range role.Grants {
				if !g.Matches(resourceType, action) {
					continue
				}
				if !yield(g.Policy) {
					return
				}
			}
		}
	}
}
