package jobs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"applyforge-backend/internal/llm"
	"applyforge-backend/internal/llm/parse"
	"applyforge-backend/internal/shared/metrics"
	"applyforge-backend/internal/shared/telemetry"
)

const minContentLength = 100

// fallbackAnalysis is served when the model's output cannot be parsed. It is
// returned to the caller but never persisted, so a later retry can still
// attach a real analysis.
func fallbackAnalysis() map[string]any {
	return map[string]any{
		"title":           "Unknown role",
		"company":         "",
		"skills":          []any{},
		"experienceLevel": "unspecified",
		"requirements":    []any{},
		"keywords":        []any{},
	}
}

// AnalyzeResult carries the stored job together with the analysis that was
// produced for it, which may be a fallback.
type AnalyzeResult struct {
	Job      Job
	Analysis map[string]any
	Degraded bool
	Reason   string
}

// Service contains business logic for job postings and their LLM analysis.
type Service struct {
	Repo Repo
	LLM  llm.CompletionClient
}

// Analyze stores a job posting and runs the LLM analysis on it. Content under
// 100 characters after trimming is rejected. A malformed model response
// degrades to a static fallback analysis instead of failing the request.
func (s *Service) Analyze(ctx context.Context, userID, content, requestID string) (AnalyzeResult, error) {
	trimmed := strings.TrimSpace(content)
	if len(trimmed) < minContentLength {
		return AnalyzeResult{}, ErrContentTooShort
	}

	hash := sha256.Sum256([]byte(trimmed))
	now := time.Now().UTC()
	job := Job{
		ID:          uuid.NewString(),
		UserID:      userID,
		Content:     trimmed,
		ContentHash: hex.EncodeToString(hash[:]),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Repo.Create(ctx, job); err != nil {
		return AnalyzeResult{}, err
	}

	start := time.Now()
	res, err := s.LLM.Complete(ctx, llm.Request{
		Messages: llm.BuildJobAnalysisPrompt(trimmed),
		JSONMode: true,
	})
	if err != nil {
		return AnalyzeResult{}, err
	}

	analysis, reason := s.parseAnalysis(res.Content)
	if reason != "" {
		metrics.IncGenerationDegraded()
		telemetry.Warn("job.analyze.degraded", map[string]any{
			"job_id": job.ID,
			"model":  res.Model,
			"reason": reason,
		})
		return AnalyzeResult{
			Job:      job,
			Analysis: fallbackAnalysis(),
			Degraded: true,
			Reason:   reason,
		}, nil
	}

	title, _ := analysis["title"].(string)
	company, _ := analysis["company"].(string)
	if err := s.Repo.AttachAnalysis(ctx, userID, job.ID, title, company, analysis); err != nil {
		return AnalyzeResult{}, err
	}
	job.Title = title
	job.Company = company
	job.Analysis = analysis
	job.UpdatedAt = time.Now().UTC()

	telemetry.Info("job.analyze.completed", map[string]any{
		"job_id":      job.ID,
		"model":       res.Model,
		"duration_ms": time.Since(start).Milliseconds(),
		"tokens":      res.Usage.TotalTokens,
	})
	return AnalyzeResult{Job: job, Analysis: analysis}, nil
}

// parseAnalysis decodes the model output into an analysis object. A non-empty
// reason means the output was unusable and the caller should degrade.
func (s *Service) parseAnalysis(content string) (map[string]any, string) {
	obj, err := parse.ExtractObject(content)
	if err != nil {
		return nil, err.Error()
	}
	if err := parse.RequireKeys(obj, "title", "skills"); err != nil {
		return nil, err.Error()
	}
	var analysis map[string]any
	if err := json.Unmarshal(obj, &analysis); err != nil {
		return nil, err.Error()
	}
	return analysis, ""
}

// Reanalyze runs the analysis again for a stored job whose first attempt
// degraded. A job that already has an analysis attached is left unchanged.
func (s *Service) Reanalyze(ctx context.Context, userID, jobID, requestID string) (AnalyzeResult, error) {
	if strings.TrimSpace(jobID) == "" {
		return AnalyzeResult{}, fmt.Errorf("%w: jobId required", ErrInvalidInput)
	}
	job, err := s.Repo.GetByID(ctx, userID, jobID)
	if err != nil {
		return AnalyzeResult{}, err
	}
	if job.Analysis != nil {
		return AnalyzeResult{}, ErrAlreadyAnalyzed
	}

	res, err := s.LLM.Complete(ctx, llm.Request{
		Messages: llm.BuildJobAnalysisPrompt(job.Content),
		JSONMode: true,
	})
	if err != nil {
		return AnalyzeResult{}, err
	}

	analysis, reason := s.parseAnalysis(res.Content)
	if reason != "" {
		metrics.IncGenerationDegraded()
		return AnalyzeResult{
			Job:      job,
			Analysis: fallbackAnalysis(),
			Degraded: true,
			Reason:   reason,
		}, nil
	}

	title, _ := analysis["title"].(string)
	company, _ := analysis["company"].(string)
	if err := s.Repo.AttachAnalysis(ctx, userID, job.ID, title, company, analysis); err != nil {
		return AnalyzeResult{}, err
	}
	job.Title = title
	job.Company = company
	job.Analysis = analysis
	return AnalyzeResult{Job: job, Analysis: analysis}, nil
}

// Get returns one job record.
func (s *Service) Get(ctx context.Context, userID, id string) (Job, error) {
	if strings.TrimSpace(id) == "" {
		return Job{}, fmt.Errorf("%w: id required", ErrInvalidInput)
	}
	return s.Repo.GetByID(ctx, userID, id)
}

// List returns the user's jobs, newest first.
func (s *Service) List(ctx context.Context, userID string, includeArchived bool, limit, offset int) ([]Job, error) {
	return s.Repo.List(ctx, userID, includeArchived, limit, offset)
}

// SetArchived toggles the archived flag on a job.
func (s *Service) SetArchived(ctx context.Context, userID, id string, archived bool) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: id required", ErrInvalidInput)
	}
	return s.Repo.SetArchived(ctx, userID, id, archived)
}
