package policy

// Atomic baseline policies.
var (
	alwaysAllowPolicy = PolicyFunc(func(*Subject, any) bool { return true })

	isOwnerPolicy = PolicyFunc(func(subject *Subject, instance any) bool {
		if subject == nil || subject.ID == "" {
			return false
		}
		owner, author := ownerIDs(instance)
		return owner == subject.ID || author == subject.ID
	})

	isCollaboratorPolicy = PolicyFunc(func(subject *Subject, instance any) bool {
		if subject == nil || subject.ID == "" {
			return false
		}
		return hasCollaborator(instance, subject.ID)
	})

	onlyIfCompletedPolicy = PolicyFunc(func(_ *Subject, instance any) bool {
		return isCompleted(instance)
	})
)

// AnyOf returns a policy that allows when at least one of policies allows.
// An empty AnyOf denies.
func AnyOf(policies ...Policy) Policy {
	ps := append([]Policy(nil), policies...)
	return PolicyFunc(func(subject *Subject, instance any) bool {
		for _, p := range ps {
			if p != nil && p.Evaluate(subject, instance) {
				return true
			}
		}
		return false
	})
}

// AllOf returns a policy that allows only when every one of policies allows.
// An empty AllOf denies, as does a nil member.
func AllOf(policies ...Policy) Policy {
	ps := append([]Policy(nil), policies...)
	return PolicyFunc(func(subject *Subject, instance any) bool {
		if len(ps) == 0 {
			return false
		}
		for _, p := range ps {
			if p == nil || !p.Evaluate(subject, instance) {
				return false
			}
		}
		return true
	})
}

// baseline returns the fixed policy catalogue in registration order.
func baseline() []struct {
	name   Name
	policy Policy
} {
	return []struct {
		name   Name
		policy Policy
	}{
		{AlwaysAllow, alwaysAllowPolicy},
		{IsOwner, isOwnerPolicy},
		{IsCollaborator, isCollaboratorPolicy},
		{OwnerOrCollaborator, AnyOf(isOwnerPolicy, isCollaboratorPolicy)},
		{OnlyIfCompleted, onlyIfCompletedPolicy},
		{DeleteOwnCompleted, AllOf(isOwnerPolicy, onlyIfCompletedPolicy)},
	}
}
