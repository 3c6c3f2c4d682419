package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/dhawalhost/permitkit/pkg/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// SubjectSource loads a subject together with its roles and grants. It is the
// boundary to the identity and role data store; the engine itself never fetches.
type SubjectSource interface {
	GetSubject(ctx context.Context, id string) (*Subject, error)
}

// Pinger is implemented by subject sources that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Service defines the interface for the policy decision service.
type Service interface {
	HealthCheck(ctx context.Context) (bool, error)
	ListPolicies(ctx context.Context) []Name
	Decide(ctx context.Context, req DecisionRequest) (bool, error)
	FilterIndexes(ctx context.Context, req FilterRequest) ([]int, error)
	SubjectGrants(ctx context.Context, subjectID string) (*Subject, error)
}

type policyService struct {
	engine  *Engine
	subject SubjectSource
}

// NewService creates a new policy service. source may be nil, in which case
// only requests carrying an inline subject can be allowed.
func NewService(engine *Engine, source SubjectSource) Service {
	return &policyService{engine: engine, subject: source}
}

func (s *policyService) HealthCheck(ctx context.Context) (bool, error) {
	if p, ok := s.subject.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (s *policyService) ListPolicies(ctx context.Context) []Name {
	return s.engine.Registry().Names()
}

func (s *policyService) Decide(ctx context.Context, req DecisionRequest) (bool, error) {
	ctx, span := observability.Tracer("permitkit/policy").Start(ctx, "policy.Decide")
	defer span.End()
	span.SetAttributes(
		attribute.String("authz.resource", req.ResourceType),
		attribute.String("authz.action", req.Action),
	)

	subject, err := s.resolveSubject(ctx, req.Subject, req.SubjectID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "subject lookup failed")
		return false, err
	}

	allowed := s.engine.Decide(subject, req.ResourceType, req.Action, req.Instance)
	span.SetAttributes(attribute.Bool("authz.allowed", allowed))
	return allowed, nil
}

func (s *policyService) FilterIndexes(ctx context.Context, req FilterRequest) ([]int, error) {
	ctx, span := observability.Tracer("permitkit/policy").Start(ctx, "policy.Filter")
	defer span.End()
	span.SetAttributes(
		attribute.String("authz.resource", req.ResourceType),
		attribute.String("authz.action", req.Action),
		attribute.Int("authz.instances", len(req.Instances)),
	)

	subject, err := s.resolveSubject(ctx, req.Subject, req.SubjectID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "subject lookup failed")
		return nil, err
	}

	indexes := make([]int, 0, len(req.Instances))
	for i, instance := range req.Instances {
		if s.engine.Decide(subject, req.ResourceType, req.Action, instance) {
			indexes = append(indexes, i)
		}
	}
	return indexes, nil
}

func (s *policyService) SubjectGrants(ctx context.Context, subjectID string) (*Subject, error) {
	if s.subject == nil {
		return nil, ErrSubjectNotFound
	}
	return s.subject.GetSubject(ctx, subjectID)
}

// resolveSubject returns the inline subject if present, otherwise loads id from
// the subject source. An empty id or an unknown subject yields a nil subject, which
// the engine denies.
func (s *policyService) resolveSubject(ctx context.Context, inline *Subject, id string) (*Subject, error) {
	if inline != nil {
		return inline, nil
	}
	if id == "" || s.subject == nil {
		return nil, nil
	}
	subject, err := s.subject.GetSubject(ctx, id)
	if errors.Is(err, ErrSubjectNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load subject %s: %w", id, err)
	}
	return subject, nil
}
