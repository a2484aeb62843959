package generation

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"applyforge-backend/internal/llm"
	"applyforge-backend/internal/shared/metrics"
	"applyforge-backend/internal/shared/server/middleware"
	"applyforge-backend/internal/shared/server/respond"
	"applyforge-backend/internal/shared/telemetry"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches generation routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyze-cv", h.analyzeCV)
	rg.POST("/generate-email", h.streamHandler(KindEmail))
	rg.POST("/generate-letter", h.streamHandler(KindLetter))
	rg.POST("/generate-mail", h.mail)
	rg.GET("/generated", h.list)
	rg.GET("/generated/:id", h.get)
}

type analyzeCVRequest struct {
	CVData   map[string]any `json:"cvData"`
	JobOffer string         `json:"jobOffer"`
	Language llm.Language   `json:"language"`
}

func (h *Handler) analyzeCV(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req analyzeCVRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Message(c, http.StatusBadRequest, "invalid request body")
		return
	}

	start := time.Now()
	result, err := h.Svc.AnalyzeCV(c.Request.Context(), userID, AnalyzeCVInput{
		CVData:   req.CVData,
		JobOffer: req.JobOffer,
		Language: req.Language,
	}, c.GetString("requestId"))
	if err != nil {
		switch {
		case errors.Is(err, llm.ErrUpstreamUnavailable):
			respond.Error(c, http.StatusServiceUnavailable, "upstream_unavailable", "LLM provider unavailable", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Message(c, http.StatusBadRequest, err.Error())
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to analyze CV", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{
		"success":        true,
		"result":         result,
		"processingTime": time.Since(start).Milliseconds(),
	})
}

type streamRequest struct {
	CVID     string         `json:"cvId"`
	JobID    string         `json:"jobId"`
	CVData   map[string]any `json:"cvData"`
	JobOffer string         `json:"jobOffer"`
	Language llm.Language   `json:"language"`
	Type     string         `json:"type"`
}

// streamHandler serves generate-email and generate-letter. Validation errors
// are plain JSON; once the SSE stream is open failures become error frames.
func (h *Handler) streamHandler(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserIDFromContext(c)

		var req streamRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Message(c, http.StatusBadRequest, "invalid request body")
			return
		}
		if len(req.CVData) == 0 {
			respond.Message(c, http.StatusBadRequest, "cvData is required")
			return
		}
		if strings.TrimSpace(req.JobOffer) == "" {
			respond.Message(c, http.StatusBadRequest, "jobOffer is required")
			return
		}

		relay, err := NewRelay(c.Writer)
		if err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "streaming unsupported", nil)
			return
		}

		artifact, err := h.Svc.Stream(c.Request.Context(), userID, kind, StreamInput{
			CVID:     req.CVID,
			JobID:    req.JobID,
			CVData:   req.CVData,
			JobOffer: req.JobOffer,
			Language: req.Language,
			Type:     req.Type,
		}, relay.Delta)
		defer func() {
			c.Set("streamChunks", relay.Chunks())
			metrics.AddStreamChunks(relay.Chunks())
		}()
		if err != nil {
			telemetry.Error("generation.stream.failed", map[string]any{
				"kind":  kind,
				"error": err.Error(),
			})
			if errors.Is(err, llm.ErrUpstreamUnavailable) {
				_ = relay.Error("LLM provider unavailable")
			} else {
				_ = relay.Error("generation failed")
			}
			return
		}

		c.Set("generationId", artifact.ID)
		_ = relay.Done()
	}
}

type mailRequest struct {
	CVID        string         `json:"cvId"`
	JobID       string         `json:"jobId"`
	CVData      map[string]any `json:"cvData"`
	JobAnalysis map[string]any `json:"jobAnalysis"`
	Language    llm.Language   `json:"language"`
	Type        string         `json:"type"`
}

func (h *Handler) mail(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req mailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Message(c, http.StatusBadRequest, "invalid request body")
		return
	}

	artifact, err := h.Svc.Mail(c.Request.Context(), userID, MailInput{
		CVID:        req.CVID,
		JobID:       req.JobID,
		CVData:      req.CVData,
		JobAnalysis: req.JobAnalysis,
		Language:    req.Language,
		Type:        req.Type,
	}, c.GetString("requestId"))
	if err != nil {
		switch {
		case errors.Is(err, llm.ErrUpstreamUnavailable):
			respond.Error(c, http.StatusServiceUnavailable, "upstream_unavailable", "LLM provider unavailable", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Message(c, http.StatusBadRequest, err.Error())
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to generate mail", nil)
		}
		return
	}

	c.Set("generationId", artifact.ID)
	respond.JSON(c, http.StatusOK, gin.H{
		"success": true,
		"id":      artifact.ID,
		"subject": artifact.Subject,
		"content": artifact.Content,
		"usage":   artifact.Usage,
	})
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	limit := queryInt(c, "limit", 20)
	offset := queryInt(c, "offset", 0)

	artifacts, err := h.Svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "request failed", nil)
		return
	}
	if artifacts == nil {
		artifacts = []Artifact{}
	}
	respond.JSON(c, http.StatusOK, gin.H{"success": true, "generated": artifacts, "count": len(artifacts)})
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	artifact, err := h.Svc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "generated content not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Message(c, http.StatusBadRequest, err.Error())
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "request failed", nil)
		}
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"success": true, "generated": artifact})
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
