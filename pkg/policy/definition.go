package policy

import "fmt"

// Definition declares an additional named policy in configuration. Exactly one
// of Expression, AnyOf or AllOf must be set. AnyOf and AllOf refer to policies
// registered before this definition.
type Definition struct {
	Name       Name   `yaml:"name" json:"name" validate:"required"`
	Expression string `yaml:"expression,omitempty" json:"expression,omitempty"`
	AnyOf      []Name `yaml:"any_of,omitempty" json:"any_of,omitempty"`
	AllOf      []Name `yaml:"all_of,omitempty" json:"all_of,omitempty"`
}

// RegisterDefinitions builds and registers defs in order, stopping at the first
// error. Composite definitions hold the component policies found at
// registration time, so an unknown component is a configuration error rather
// than a runtime denial.
func (r *Registry) RegisterDefinitions(defs ...Definition) error {
	for _, d := range defs {
		p, err := r.build(d)
		if err != nil {
			return fmt.Errorf("policy %s: %w", d.Name, err)
		}
		if err := r.Register(d.Name, p); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) build(d Definition) (Policy, error) {
	set := 0
	if d.Expression != "" {
		set++
	}
	if len(d.AnyOf) > 0 {
		set++
	}
	if len(d.AllOf) > 0 {
		set++
	}
	if set != 1 {
		return nil, fmt.Errorf("%w: exactly one of expression, any_of, all_of is required", ErrInvalidPolicy)
	}

	switch {
	case d.Expression != "":
		return NewExpression(d.Expression)
	case len(d.AnyOf) > 0:
		ps, err := r.resolve(d.AnyOf)
		if err != nil {
			return nil, err
		}
		return AnyOf(ps...), nil
	default:
		ps, err := r.resolve(d.AllOf)
		if err != nil {
			return nil, err
		}
		return AllOf(ps...), nil
	}
}

func (r *Registry) resolve(names []Name) ([]Policy, error) {
	ps := make([]Policy, 0, len(names))
	for _, n := range names {
		p, ok := r.Lookup(n)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPolicy, n)
		}
		ps = append(ps, p)
	}
	return ps, nil
}
