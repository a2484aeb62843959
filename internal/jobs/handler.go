package jobs

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"applyforge-backend/internal/llm"
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

// RegisterRoutes attaches job routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyze-job", h.analyze)
	rg.GET("/job-data", h.get)
	rg.POST("/job-data/reanalyze", h.reanalyze)
	rg.PUT("/job-data/archive", h.archive)
}

type analyzeRequest struct {
	JobContent string `json:"jobContent"`
	SessionID  string `json:"sessionId"`
}

func (h *Handler) analyze(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Message(c, http.StatusBadRequest, "invalid request body")
		return
	}

	start := time.Now()
	result, err := h.Svc.Analyze(c.Request.Context(), userID, req.JobContent, c.GetString("requestId"))
	if err != nil {
		switch {
		case errors.Is(err, ErrContentTooShort):
			respond.Message(c, http.StatusBadRequest, "Job content must be at least 100 characters long")
		case errors.Is(err, llm.ErrUpstreamUnavailable):
			respond.Error(c, http.StatusServiceUnavailable, "upstream_unavailable", "LLM provider unavailable", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Message(c, http.StatusBadRequest, err.Error())
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to analyze job", nil)
		}
		return
	}

	c.Set("jobId", result.Job.ID)
	body := gin.H{
		"success":        true,
		"jobId":          result.Job.ID,
		"analysis":       result.Analysis,
		"processingTime": time.Since(start).Milliseconds(),
		"contentLength":  len(strings.TrimSpace(req.JobContent)),
	}
	if result.Degraded {
		body["degraded"] = true
	}
	respond.JSON(c, http.StatusOK, body)
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	if id := strings.TrimSpace(c.Query("id")); id != "" {
		job, err := h.Svc.Get(c.Request.Context(), userID, id)
		if err != nil {
			h.respondError(c, err)
			return
		}
		respond.JSON(c, http.StatusOK, gin.H{"success": true, "jobData": job})
		return
	}

	includeArchived := c.Query("includeArchived") == "true"
	limit := queryInt(c, "limit", 20)
	offset := queryInt(c, "offset", 0)

	jobList, err := h.Svc.List(c.Request.Context(), userID, includeArchived, limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if jobList == nil {
		jobList = []Job{}
	}
	respond.JSON(c, http.StatusOK, gin.H{"success": true, "jobData": jobList, "count": len(jobList)})
}

type reanalyzeRequest struct {
	JobID string `json:"jobId"`
}

func (h *Handler) reanalyze(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req reanalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Message(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.JobID) == "" {
		respond.Message(c, http.StatusBadRequest, "jobId is required")
		return
	}

	c.Set("jobId", req.JobID)
	result, err := h.Svc.Reanalyze(c.Request.Context(), userID, req.JobID, c.GetString("requestId"))
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyAnalyzed):
			respond.Error(c, http.StatusConflict, "already_analyzed", "job already has an analysis", nil)
		case errors.Is(err, llm.ErrUpstreamUnavailable):
			respond.Error(c, http.StatusServiceUnavailable, "upstream_unavailable", "LLM provider unavailable", nil)
		default:
			h.respondError(c, err)
		}
		return
	}

	body := gin.H{"success": true, "jobId": result.Job.ID, "analysis": result.Analysis}
	if result.Degraded {
		body["degraded"] = true
	}
	respond.JSON(c, http.StatusOK, body)
}

type archiveRequest struct {
	ID       string `json:"id"`
	Archived *bool  `json:"archived"`
}

func (h *Handler) archive(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req archiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Message(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		respond.Message(c, http.StatusBadRequest, "id is required")
		return
	}
	archived := true
	if req.Archived != nil {
		archived = *req.Archived
	}

	if err := h.Svc.SetArchived(c.Request.Context(), userID, req.ID, archived); err != nil {
		h.respondError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"success": true, "archived": archived})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "job record not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Message(c, http.StatusBadRequest, err.Error())
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "request failed", nil)
	}
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
