package policy

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-bexpr"
)

// Expression is a policy defined by a go-bexpr boolean expression. The
// expression is evaluated against a datum of the form
//
//	{"subject": {"id": ..., "roles": [...]}, "resource": <instance>}
//
// so that, for example, `"editor" in subject.roles and resource.status == "draft"`
// is a valid policy. Struct instances are addressed by their json field names.
type Expression struct {
	source    string
	evaluator *bexpr.Evaluator
}

// NewExpression compiles src. Compilation errors wrap ErrInvalidPolicy.
func NewExpression(src string) (*Expression, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrInvalidPolicy)
	}
	eval, err := bexpr.CreateEvaluator(src, bexpr.WithTagName("json"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	return &Expression{source: src, evaluator: eval}, nil
}

// String returns the expression source.
func (x *Expression) String() string {
	return x.source
}

// Evaluate implements Policy. Any evaluation error, such as a selector missing
// from the instance, denies.
func (x *Expression) Evaluate(subject *Subject, instance any) bool {
	if subject == nil {
		return false
	}
	roles := make([]string, 0, len(subject.Roles))
	for _, r := range subject.Roles {
		roles = append(roles, r.Name)
	}
	datum := map[string]any{
		"subject": map[string]any{
			"id":    subject.ID,
			"roles": roles,
		},
		"resource": instance,
	}
	ok, err := x.evaluator.Evaluate(datum)
	if err != nil {
		return false
	}
	return ok
}
