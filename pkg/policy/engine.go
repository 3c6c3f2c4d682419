package policy

import (
	"time"

	"github.com/dhawalhost/permitkit/pkg/observability"
	"go.uber.org/zap"
)

// Engine decides whether a subject may perform an action on a resource instance.
// It holds no per-call state and is safe for concurrent use once its registry is
// no longer being modified. The zero Engine has no policies and denies every
// request; use NewEngine for the baseline registry.
type Engine struct {
	registry *Registry
	resolver Resolver
	logger   *zap.Logger
	metrics  *observability.DecisionMetrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithRegistry sets the registry consulted for policy names.
func WithRegistry(r *Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithLogger sets the logger used for dangling policy warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the decision metrics.
func WithMetrics(m *observability.DecisionMetrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine returns an engine using the baseline registry unless WithRegistry
// is given.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = NewRegistry()
	}
	return e
}

func (e *Engine) log() *zap.Logger {
	if e.logger == nil {
		return zap.NewNop()
	}
	return e.logger
}

// Registry returns the registry the engine evaluates against.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Decide reports whether subject may perform action on the given instance of
// resourceType. Access is allowed when any grant matching (resourceType, action)
// on any of the subject's roles names a registered policy that allows.
// A nil subject, the absence of a matching grant, and grants naming unregistered
// policies all deny.
func (e *Engine) Decide(subject *Subject, resourceType, action string, instance any) bool {
	if subject == nil {
		return false
	}
	start := time.Now()
	allowed := e.decide(subject, resourceType, action, instance)
	e.metrics.ObserveDecision(resourceType, action, allowed, time.Since(start))
	return allowed
}

func (e *Engine) decide(subject *Subject, resourceType, action string, instance any) bool {
	for name := range e.resolver.Policies(subject, resourceType, action) {
		p, ok := e.registry.Lookup(name)
		if !ok {
			e.log().Warn("unnamed policy referenced",
				zap.String("policy", string(name)),
				zap.String("resource", resourceType),
				zap.String("action", action),
				zap.String("subject", subject.ID),
			)
			e.metrics.ObserveDangling(string(name))
			continue
		}
		if e.evaluate(name, p, subject, instance) {
			return true
		}
	}
	return false
}

// evaluate runs p, treating a panic inside the predicate as a denial.
func (e *Engine) evaluate(name Name, p Policy, subject *Subject, instance any) (allowed bool) {
	defer func() {
		if r := recover(); r != nil {
			e.log().Error("policy evaluation panicked",
				zap.String("policy", string(name)),
				zap.Any("panic", r),
			)
			allowed = false
		}
	}()
	return p.Evaluate(subject, instance)
}

// Authorize is Decide in error form: it returns ErrForbidden when access is denied.
func (e *Engine) Authorize(subject *Subject, resourceType, action string, instance any) error {
	if !e.Decide(subject, resourceType, action, instance) {
		return ErrForbidden
	}
	return nil
}

// Filter returns the elements of items that subject may perform action on, in
// their original order. The result never aliases items.
func Filter[T any](e *Engine, subject *Subject, resourceType, action string, items []T) []T {
	out := make([]T, 0, len(items))
	if subject == nil {
		return out
	}
	for _, item := range items {
		if e.Decide(subject, resourceType, action, item) {
			out = append(out, item)
		}
	}
	return out
}
