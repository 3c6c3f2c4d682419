package policy

import (
	"slices"
	"testing"
)

func TestResolverEncounterOrder(t *testing.T) {
	u := &Subject{ID: "u1", Roles: []Role{
		{Name: "A", Grants: []Grant{
			{Resource: "todos", Action: "view", Policy: IsOwner},
			{Resource: "todos", Action: "delete", Policy: DeleteOwnCompleted},
			{Resource: "todos", Action: "view", Policy: IsCollaborator},
		}},
		{Name: "B", Grants: []Grant{
			{Resource: "comments", Action: "view", Policy: AlwaysAllow},
			{Resource: "todos", Action: "view", Policy: AlwaysAllow},
		}},
		{Name: "A", Grants: []Grant{
			{Resource: "todos", Action: "view", Policy: IsOwner},
		}},
	}}

	got := slices.Collect(Resolver{}.Policies(u, "todos", "view"))
	want := []Name{IsOwner, IsCollaborator, AlwaysAllow, IsOwner}
	if !slices.Equal(got, want) {
		t.Fatalf("Policies() = %v, want %v", got, want)
	}
}

func TestResolverNoMatch(t *testing.T) {
	u := subjectWith("u1", Grant{Resource: "todos", Action: "view", Policy: IsOwner})
	if got := slices.Collect(Resolver{}.Policies(u, "todos", "delete")); len(got) != 0 {
		t.Fatalf("expected no policies, got %v", got)
	}
	if got := slices.Collect(Resolver{}.Policies(nil, "todos", "view")); len(got) != 0 {
		t.Fatalf("nil subject must yield nothing, got %v", got)
	}
}

func TestResolverIsLazy(t *testing.T) {
	u := subjectWith("u1",
		Grant{Resource: "todos", Action: "view", Policy: "FIRST"},
		Grant{Resource: "todos", Action: "view", Policy: "SECOND"},
		Grant{Resource: "todos", Action: "view", Policy: "THIRD"},
	)
	var seen []Name
	for name := range (Resolver{}).Policies(u, "todos", "view") {
		seen = append(seen, name)
		if name == "SECOND" {
			break
		}
	}
	if !slices.Equal(seen, []Name{"FIRST", "SECOND"}) {
		t.Fatalf("iteration did not stop early: %v", seen)
	}
}
