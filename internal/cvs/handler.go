package cvs

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

const maxUploadSize = 10 << 20 // 10MB

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches CV routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/upload-cv", h.upload)
	rg.POST("/extract-cv-content", h.extractContent)
	rg.GET("/cv-data", h.get)
	rg.POST("/cv-data", h.create)
	rg.PUT("/cv-data", h.update)
	rg.DELETE("/cv-data", h.delete)
	rg.POST("/cv-data/llm-process", h.llmProcess)
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	if c.Request.ContentLength > maxUploadSize {
		respond.Message(c, http.StatusBadRequest, "File size exceeds 10MB limit")
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.Message(c, http.StatusBadRequest, "File size exceeds 10MB limit")
			return
		}
		respond.Message(c, http.StatusBadRequest, "file is required")
		return
	}
	if fileHeader.Size > maxUploadSize {
		respond.Message(c, http.StatusBadRequest, "File size exceeds 10MB limit")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Message(c, http.StatusBadRequest, "unable to read file")
		return
	}
	defer file.Close()

	start := time.Now()
	rec, err := h.Svc.Upload(c.Request.Context(), userID, fileHeader.Filename, c.GetString("requestId"), file)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnsupportedType):
			respond.Message(c, http.StatusBadRequest, "Unsupported file type. Please upload a PDF, DOC or DOCX file")
		case errors.Is(err, ErrInvalidInput):
			respond.Message(c, http.StatusBadRequest, err.Error())
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to process upload", nil)
		}
		return
	}

	c.Set("cvId", rec.ID)
	respond.JSON(c, http.StatusOK, gin.H{
		"success":         true,
		"cvData":          rec,
		"processingTime":  time.Since(start).Milliseconds(),
		"extractedSkills": rec.ExtractedSkills(),
	})
}

type extractContentRequest struct {
	CVContent string `json:"cvContent"`
	Filename  string `json:"filename"`
}

func (h *Handler) extractContent(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req extractContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Message(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.CVContent) == "" {
		respond.Message(c, http.StatusBadRequest, "cvContent is required")
		return
	}

	rec, err := h.Svc.ExtractContent(c.Request.Context(), userID, req.CVContent, req.Filename, c.GetString("requestId"))
	if err != nil {
		switch {
		case errors.Is(err, llm.ErrUpstreamUnavailable):
			respond.Error(c, http.StatusServiceUnavailable, "upstream_unavailable", "LLM provider unavailable", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Message(c, http.StatusBadRequest, err.Error())
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to extract CV content", nil)
		}
		return
	}

	c.Set("cvId", rec.ID)
	respond.JSON(c, http.StatusOK, gin.H{
		"success":       true,
		"cvData":        rec,
		"extractedData": rec.Extracted,
	})
}

func (h *Handler) get(c *gin.Context) {
	userID := h.effectiveUserID(c)

	if id := strings.TrimSpace(c.Query("id")); id != "" {
		rec, err := h.Svc.Get(c.Request.Context(), userID, id)
		if err != nil {
			h.respondError(c, err)
			return
		}
		respond.JSON(c, http.StatusOK, gin.H{"success": true, "cvData": rec})
		return
	}

	includeArchived := c.Query("includeArchived") == "true"
	limit := queryInt(c, "limit", 20)
	offset := queryInt(c, "offset", 0)

	recs, err := h.Svc.List(c.Request.Context(), userID, includeArchived, limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if recs == nil {
		recs = []Record{}
	}
	respond.JSON(c, http.StatusOK, gin.H{"success": true, "cvData": recs, "count": len(recs)})
}

type createRequest struct {
	CVContent string `json:"cvContent"`
	Filename  string `json:"filename"`
}

// create persists a CV record from pre-extracted content, the non-multipart
// counterpart to upload-cv.
func (h *Handler) create(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Message(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.CVContent) == "" {
		respond.Message(c, http.StatusBadRequest, "cvContent is required")
		return
	}

	rec, err := h.Svc.ExtractContent(c.Request.Context(), userID, req.CVContent, req.Filename, c.GetString("requestId"))
	if err != nil {
		if errors.Is(err, llm.ErrUpstreamUnavailable) {
			respond.Error(c, http.StatusServiceUnavailable, "upstream_unavailable", "LLM provider unavailable", nil)
			return
		}
		h.respondError(c, err)
		return
	}
	c.Set("cvId", rec.ID)
	respond.JSON(c, http.StatusCreated, gin.H{"success": true, "cvData": rec})
}

type updateRequest struct {
	ID       string `json:"id"`
	FileName string `json:"fileName"`
}

func (h *Handler) update(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Message(c, http.StatusBadRequest, "invalid request body")
		return
	}
	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = strings.TrimSpace(c.Query("id"))
	}
	if id == "" {
		respond.Message(c, http.StatusBadRequest, "id is required")
		return
	}

	rec, err := h.Svc.Rename(c.Request.Context(), userID, id, req.FileName)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"success": true, "cvData": rec})
}

func (h *Handler) delete(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		respond.Message(c, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.Svc.Delete(c.Request.Context(), userID, id); err != nil {
		h.respondError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"success": true})
}

type llmProcessRequest struct {
	CVID           string `json:"cvId"`
	ForceReprocess bool   `json:"forceReprocess"`
	SessionID      string `json:"sessionId"`
}

func (h *Handler) llmProcess(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req llmProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Message(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.CVID) == "" {
		respond.Message(c, http.StatusBadRequest, "cvId is required")
		return
	}

	c.Set("cvId", req.CVID)
	start := time.Now()
	rec, err := h.Svc.Process(c.Request.Context(), userID, req.CVID, req.ForceReprocess, c.GetString("requestId"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "CV record not found", nil)
		case errors.Is(err, ErrAlreadyProcessing):
			c.Set("statusTransition", "PROCESSING->PROCESSING rejected")
			respond.Error(c, http.StatusConflict, "already_processing", "CV record is already being processed", nil)
		case errors.Is(err, ErrInvalidTransition):
			respond.Error(c, http.StatusConflict, "invalid_state", "CV record is already processed; pass forceReprocess to run again", nil)
		case errors.Is(err, llm.ErrUpstreamUnavailable):
			respond.Error(c, http.StatusServiceUnavailable, "upstream_unavailable", "LLM provider unavailable", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Message(c, http.StatusBadRequest, err.Error())
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to process CV", nil)
		}
		return
	}

	c.Set("statusTransition", "PROCESSING->"+string(rec.ProcessingStatus))
	respond.JSON(c, http.StatusOK, gin.H{
		"success":        true,
		"cvData":         rec,
		"processingTime": time.Since(start).Milliseconds(),
	})
}

// effectiveUserID honors an explicit userId query parameter only when it
// matches the authenticated identity; callers cannot read other users' data.
func (h *Handler) effectiveUserID(c *gin.Context) string {
	authed := middleware.UserIDFromContext(c)
	if requested := strings.TrimSpace(c.Query("userId")); requested != "" && requested == authed {
		return requested
	}
	return authed
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "CV record not found", nil)
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
