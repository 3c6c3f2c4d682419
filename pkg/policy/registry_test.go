package policy

import (
	"errors"
	"slices"
	"testing"
)

func TestNewRegistryHasBaseline(t *testing.T) {
	want := []Name{AlwaysAllow, DeleteOwnCompleted, IsCollaborator, IsOwner, OnlyIfCompleted, OwnerOrCollaborator}
	if got := NewRegistry().Names(); !slices.Equal(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
}

func TestRegistryLookupMissing(t *testing.T) {
	if p, ok := NewRegistry().Lookup("NO_SUCH_POLICY"); ok || p != nil {
		t.Fatalf("expected absent lookup, got %v %v", p, ok)
	}
	var nilRegistry *Registry
	if _, ok := nilRegistry.Lookup(IsOwner); ok {
		t.Fatal("nil registry must have no policies")
	}
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	custom := PolicyFunc(func(*Subject, any) bool { return true })

	if err := r.Register("IS_ADMIN", custom); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := r.Lookup("IS_ADMIN"); !ok {
		t.Fatal("registered policy not found")
	}
	if err := r.Register("IS_ADMIN", custom); !errors.Is(err, ErrDuplicatePolicy) {
		t.Fatalf("expected ErrDuplicatePolicy, got %v", err)
	}
	if err := r.Register(IsOwner, custom); !errors.Is(err, ErrDuplicatePolicy) {
		t.Fatalf("baseline policies must not be replaceable, got %v", err)
	}
	if err := r.Register("", custom); !errors.Is(err, ErrInvalidPolicy) {
		t.Fatalf("expected ErrInvalidPolicy for empty name, got %v", err)
	}
	if err := r.Register("NIL", nil); !errors.Is(err, ErrInvalidPolicy) {
		t.Fatalf("expected ErrInvalidPolicy for nil policy, got %v", err)
	}
}

func TestRegistryMustRegisterPanicsOnDuplicate(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	NewRegistry().MustRegister(AlwaysAllow, PolicyFunc(func(*Subject, any) bool { return false }))
}

func TestEmptyRegistry(t *testing.T) {
	r := NewEmptyRegistry()
	if len(r.Names()) != 0 {
		t.Fatalf("expected no policies, got %v", r.Names())
	}
	e := NewEngine(WithRegistry(r))
	u := subjectWith("u1", Grant{Resource: "todos", Action: "view", Policy: AlwaysAllow})
	if e.Decide(u, "todos", "view", nil) {
		t.Fatal("policy missing from the engine's registry must deny")
	}
}

func TestZeroRegistry(t *testing.T) {
	var r Registry
	if _, ok := r.Lookup(IsOwner); ok {
		t.Fatal("zero registry should be empty")
	}
	if err := r.Register("CUSTOM", PolicyFunc(func(*Subject, any) bool { return true })); err != nil {
		t.Fatalf("Register on zero registry: %v", err)
	}
	if _, ok := r.Lookup("CUSTOM"); !ok {
		t.Fatal("registered policy not found")
	}
	if names := r.Names(); len(names) != 1 || names[0] != "CUSTOM" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestRegistryValidate(t *testing.T) {
	r := NewRegistry()
	good := Role{Name: "User", Grants: []Grant{{Resource: "todos", Action: "view", Policy: IsOwner}}}
	if err := r.Validate(good); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := Role{Name: "Legacy", Grants: []Grant{
		{Resource: "todos", Action: "view", Policy: "GONE"},
		{Resource: "todos", Action: "edit", Policy: IsOwner},
		{Resource: "todos", Action: "delete", Policy: "ALSO_GONE"},
	}}
	err := r.Validate(good, bad)
	if !errors.Is(err, ErrUnknownPolicy) {
		t.Fatalf("expected ErrUnknownPolicy, got %v", err)
	}
	var upe *UnknownPolicyError
	if !errors.As(err, &upe) || upe.Role != "Legacy" || upe.Grant.Policy != "GONE" {
		t.Fatalf("expected first UnknownPolicyError for GONE, got %#v", upe)
	}
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok || len(joined.Unwrap()) != 2 {
		t.Fatalf("expected two joined errors, got %v", err)
	}
}
