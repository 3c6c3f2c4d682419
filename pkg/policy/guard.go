package policy

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DefaultSubjectHeader carries the authenticated subject id set by the upstream
// identity provider. Authentication happens before requests reach this service.
const DefaultSubjectHeader = "X-Subject-ID"

// ReasonPolicyDenied is the only reason reported to clients for a denial.
const ReasonPolicyDenied = "policy_denied"

// subjectKey is the gin context key under which the resolved subject is stored.
const subjectKey = "permitkit.subject"

// IdentityConfig configures the Identity middleware.
type IdentityConfig struct {
	// HeaderName is the header holding the subject id. Defaults to
	// DefaultSubjectHeader.
	HeaderName string
	Source     SubjectSource
	Logger     *zap.Logger
}

// Identity returns a Gin middleware that loads the subject named by the
// configured header and stores it on the context. Requests without the header,
// or naming an unknown subject, continue without a subject so that downstream
// guards deny them. Source failures abort with 503.
func Identity(cfg IdentityConfig) gin.HandlerFunc {
	header := cfg.HeaderName
	if header == "" {
		header = DefaultSubjectHeader
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		id := c.GetHeader(header)
		if id == "" || cfg.Source == nil {
			c.Next()
			return
		}

		subject, err := cfg.Source.GetSubject(c.Request.Context(), id)
		switch {
		case errors.Is(err, ErrSubjectNotFound):
			logger.Debug("Unknown subject", zap.String("subject", id))
		case err != nil:
			logger.Error("Failed to load subject", zap.String("subject", id), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{Error: "identity unavailable"})
			return
		default:
			c.Set(subjectKey, subject)
		}
		c.Next()
	}
}

// SubjectFromGinContext returns the subject stored by Identity, or nil.
func SubjectFromGinContext(c *gin.Context) *Subject {
	if v, ok := c.Get(subjectKey); ok {
		if s, ok := v.(*Subject); ok {
			return s
		}
	}
	return nil
}

// InstanceFunc extracts the resource instance a guarded route acts on. Returning
// found=false answers 404; returning an error answers 500. Both happen before any
// policy is evaluated.
type InstanceFunc func(c *gin.Context) (instance any, found bool, err error)

// Guard returns a Gin middleware enforcing that the request's subject may
// perform action on resourceType. instanceFn may be nil for checks that do not
// depend on a particular instance. Unauthenticated requests get 401 and denied
// ones 403 with ReasonPolicyDenied.
func (e *Engine) Guard(resourceType, action string, instanceFn InstanceFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := SubjectFromGinContext(c)
		if subject == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthenticated"})
			return
		}

		var instance any
		if instanceFn != nil {
			v, found, err := instanceFn(c)
			if err != nil {
				e.log().Error("Failed to load guarded instance",
					zap.String("resource", resourceType), zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
				return
			}
			if !found {
				c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
				return
			}
			instance = v
		}

		if err := e.Authorize(subject, resourceType, action, instance); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "forbidden", Reason: ReasonPolicyDenied})
			return
		}
		c.Next()
	}
}
