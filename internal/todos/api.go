package todos

import (
	"net/http"

	"github.com/dhawalhost/permitkit/pkg/policy"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HTTPHandler serves the example todo routes.
type HTTPHandler struct {
	store  *Store
	engine *policy.Engine
	logger *zap.Logger
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(store *Store, engine *policy.Engine, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{store: store, engine: engine, logger: logger}
}

// RegisterRoutes registers the todo routes. The group is expected to run the
// policy.Identity middleware first.
func (h *HTTPHandler) RegisterRoutes(rg gin.IRouter) {
	todos := rg.Group("/todos")
	{
		todos.GET("", h.list)
		todos.GET("/:id", h.engine.Guard(ResourceType, ActionView, h.instance), h.get)
		todos.DELETE("/:id", h.engine.Guard(ResourceType, ActionDelete, h.instance), h.delete)
	}
}

func (h *HTTPHandler) instance(c *gin.Context) (any, bool, error) {
	t, ok := h.store.Get(c.Param("id"))
	return t, ok, nil
}

// list returns only the todos the subject may view.
func (h *HTTPHandler) list(c *gin.Context) {
	subject := policy.SubjectFromGinContext(c)
	if subject == nil {
		c.JSON(http.StatusUnauthorized, policy.ErrorResponse{Error: "unauthenticated"})
		return
	}
	all := h.store.List()
	visible := policy.Filter(h.engine, subject, ResourceType, ActionView, all)
	c.JSON(http.StatusOK, gin.H{
		"data": visible,
		"meta": gin.H{"total": len(all), "visible": len(visible)},
	})
}

func (h *HTTPHandler) get(c *gin.Context) {
	t, ok := h.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, policy.ErrorResponse{Error: "not found"})
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *HTTPHandler) delete(c *gin.Context) {
	id := c.Param("id")
	if !h.store.Delete(id) {
		c.JSON(http.StatusNotFound, policy.ErrorResponse{Error: "not found"})
		return
	}
	h.logger.Info("Todo deleted", zap.String("id", id))
	c.Status(http.StatusNoContent)
}
