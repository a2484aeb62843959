package users

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

// RegisterRoutes attaches profile routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/users/me", h.me)
	rg.POST("/gdpr/consent", h.consent)
}

func (h *Handler) me(c *gin.Context) {
	if middleware.IsGuest(c) {
		respond.JSON(c, http.StatusOK, gin.H{
			"id":      middleware.UserIDFromContext(c),
			"isGuest": true,
		})
		return
	}

	user, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "user not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch user", nil)
		}
		return
	}
	respond.JSON(c, http.StatusOK, user)
}

func (h *Handler) consent(c *gin.Context) {
	if middleware.IsGuest(c) {
		respond.Error(c, http.StatusUnauthorized, "login_required", "Login required to record consent", nil)
		return
	}

	givenAt, err := h.Svc.GiveConsent(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "user not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to record consent", nil)
		}
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"consentGivenAt": givenAt})
}
