package policy

import (
	"errors"
	"net/http"

	"github.com/dhawalhost/permitkit/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// HTTPHandler represents the HTTP API handlers for the policy service.
type HTTPHandler struct {
	svc      Service
	logger   *zap.Logger
	validate *validator.Validate
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(svc Service, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, logger: logger, validate: validator.New()}
}

// RegisterRoutes registers the public decision routes.
func (h *HTTPHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/health", h.healthCheck)

	v1 := router.Group("/v1")
	{
		v1.GET("/policies", h.listPolicies)
		v1.POST("/decisions", h.decide)
		v1.POST("/decisions/filter", h.filter)
	}
}

// RegisterAdminRoutes registers routes that expose stored role data. Mount them
// only on the admin listener.
func (h *HTTPHandler) RegisterAdminRoutes(router gin.IRouter) {
	router.GET("/health", h.healthCheck)
	router.GET("/v1/subjects/:id/grants", h.subjectGrants)
}

func (h *HTTPHandler) healthCheck(c *gin.Context) {
	ok, err := h.svc.HealthCheck(c.Request.Context())
	if err != nil {
		h.logger.Error("Health check failed", requestIDField(c), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, HealthCheckResponse{Healthy: false})
		return
	}
	c.JSON(http.StatusOK, HealthCheckResponse{Healthy: ok})
}

func (h *HTTPHandler) listPolicies(c *gin.Context) {
	c.JSON(http.StatusOK, PoliciesResponse{Policies: h.svc.ListPolicies(c.Request.Context())})
}

func (h *HTTPHandler) decide(c *gin.Context) {
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	allowed, err := h.svc.Decide(c.Request.Context(), req)
	if err != nil {
		h.logger.Error("Decision failed", requestIDField(c), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "decision unavailable"})
		return
	}
	c.JSON(http.StatusOK, DecisionResponse{Allowed: allowed})
}

func (h *HTTPHandler) filter(c *gin.Context) {
	var req FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	indexes, err := h.svc.FilterIndexes(c.Request.Context(), req)
	if err != nil {
		h.logger.Error("Filter failed", requestIDField(c), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "decision unavailable"})
		return
	}
	c.JSON(http.StatusOK, FilterResponse{AllowedIndexes: indexes})
}

func (h *HTTPHandler) subjectGrants(c *gin.Context) {
	subject, err := h.svc.SubjectGrants(c.Request.Context(), c.Param("id"))
	if errors.Is(err, ErrSubjectNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "subject not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to load subject grants",
			requestIDField(c),
			zap.String("subject_id", c.Param("id")),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "subject lookup unavailable"})
		return
	}
	c.JSON(http.StatusOK, subject)
}

func requestIDField(c *gin.Context) zap.Field {
	return zap.String("request_id", middleware.RequestIDFromGinContext(c))
}
