package gdpr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"applyforge-backend/internal/shared/server/middleware"
	"applyforge-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches GDPR routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/gdpr/delete", h.summary)
	rg.POST("/gdpr/delete", h.delete)
	rg.GET("/gdpr/export", h.export)
}

func (h *Handler) summary(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	counts, err := h.Svc.Summary(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to gather data summary", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"success": true, "counts": counts, "total": counts.Total()})
}

func (h *Handler) delete(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var opts DeleteOptions
	if err := c.ShouldBindJSON(&opts); err != nil {
		respond.Message(c, http.StatusBadRequest, "invalid request body")
		return
	}

	deleted, err := h.Svc.Delete(c.Request.Context(), userID, opts)
	if err != nil {
		if errors.Is(err, ErrNothingSelected) {
			respond.Message(c, http.StatusBadRequest, "select at least one data category to delete")
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "deletion failed, no data was removed", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"success": true, "deleted": deleted, "total": deleted.Total()})
}

func (h *Handler) export(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	bundle, err := h.Svc.Export(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to build export", nil)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="applyforge-export.json"`)
	respond.JSON(c, http.StatusOK, bundle)
}
