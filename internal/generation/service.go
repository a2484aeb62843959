package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"applyforge-backend/internal/llm"
	"applyforge-backend/internal/llm/parse"
	"applyforge-backend/internal/shared/metrics"
	"applyforge-backend/internal/shared/telemetry"
)

// Service contains business logic for content generation and CV-vs-job
// analysis.
type Service struct {
	Repo Repo
	LLM  llm.CompletionClient
}

// AnalyzeCVInput carries the request payload for a CV-vs-job analysis.
type AnalyzeCVInput struct {
	CVData   map[string]any
	JobOffer string
	Language llm.Language
}

// AnalyzeCVResult holds the scored analysis and job match.
type AnalyzeCVResult struct {
	Analysis map[string]any `json:"analysis"`
	JobMatch map[string]any `json:"jobMatch"`
}

// AnalyzeCV scores the extracted CV data against a job offer.
func (s *Service) AnalyzeCV(ctx context.Context, userID string, in AnalyzeCVInput, requestID string) (AnalyzeCVResult, error) {
	if len(in.CVData) == 0 {
		return AnalyzeCVResult{}, fmt.Errorf("%w: cvData required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.JobOffer) == "" {
		return AnalyzeCVResult{}, fmt.Errorf("%w: jobOffer required", ErrInvalidInput)
	}

	res, err := s.LLM.Complete(ctx, llm.Request{
		Messages: llm.BuildCVAnalysisPrompt(llm.GenerateInput{
			CVData:   in.CVData,
			JobOffer: in.JobOffer,
			Language: in.Language,
		}),
		JSONMode: true,
	})
	if err != nil {
		return AnalyzeCVResult{}, err
	}

	obj, err := parse.ExtractObject(res.Content)
	if err != nil {
		return AnalyzeCVResult{}, fmt.Errorf("parse analysis output: %w", err)
	}
	if err := parse.RequireKeys(obj, "analysis", "jobMatch"); err != nil {
		return AnalyzeCVResult{}, fmt.Errorf("parse analysis output: %w", err)
	}
	var result AnalyzeCVResult
	if err := parse.ExtractInto(string(obj), &result); err != nil {
		return AnalyzeCVResult{}, fmt.Errorf("decode analysis output: %w", err)
	}

	telemetry.Info("generation.analyze_cv.completed", map[string]any{
		"model":  res.Model,
		"tokens": res.Usage.TotalTokens,
	})
	return result, nil
}

// StreamInput carries the request payload for streamed email or letter
// generation.
type StreamInput struct {
	CVID     string
	JobID    string
	CVData   map[string]any
	JobOffer string
	Language llm.Language
	Type     string
}

// Stream generates an email or cover letter, forwarding every delta to
// onDelta as it arrives. The full text is persisted once the stream ends.
func (s *Service) Stream(ctx context.Context, userID, kind string, in StreamInput, onDelta func(delta string) error) (Artifact, error) {
	if len(in.CVData) == 0 {
		return Artifact{}, fmt.Errorf("%w: cvData required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.JobOffer) == "" {
		return Artifact{}, fmt.Errorf("%w: jobOffer required", ErrInvalidInput)
	}

	prompt := llm.GenerateInput{
		CVData:   in.CVData,
		JobOffer: in.JobOffer,
		Language: in.Language,
		Type:     in.Type,
	}
	var messages []llm.Message
	switch kind {
	case KindLetter:
		messages = llm.BuildLetterPrompt(prompt)
	case KindEmail:
		messages = llm.BuildEmailPrompt(prompt)
	default:
		return Artifact{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, kind)
	}

	metrics.IncGenerationStarted()
	start := time.Now()

	var content strings.Builder
	usage, err := s.LLM.CompleteStream(ctx, llm.Request{Messages: messages}, func(delta string) error {
		content.WriteString(delta)
		return onDelta(delta)
	})
	duration := time.Since(start)
	if err != nil {
		metrics.IncGenerationFailed()
		return Artifact{}, err
	}

	contentType := in.Type
	if contentType == "" {
		contentType = llm.ContentTypeApplication
	}
	artifact := Artifact{
		ID:          uuid.NewString(),
		UserID:      userID,
		CVID:        in.CVID,
		JobID:       in.JobID,
		ContentType: contentType,
		Kind:        kind,
		Language:    in.Language.OrDefault().Code,
		Content:     content.String(),
		Usage:       usage,
		DurationMs:  duration.Milliseconds(),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, artifact); err != nil {
		telemetry.Error("generation.store_failed", map[string]any{
			"generation_id": artifact.ID,
			"error":         err.Error(),
		})
		// The client already has the content; storage failure is not fatal.
	}

	metrics.IncGenerationCompleted()
	metrics.ObserveGenerationDurationMs(float64(duration.Milliseconds()))
	telemetry.Info("generation.stream.completed", map[string]any{
		"generation_id": artifact.ID,
		"kind":          kind,
		"duration_ms":   duration.Milliseconds(),
		"tokens":        usage.TotalTokens,
	})
	return artifact, nil
}

// MailInput carries the request payload for single-shot mail generation from
// a prior job analysis.
type MailInput struct {
	CVID        string
	JobID       string
	CVData      map[string]any
	JobAnalysis map[string]any
	Language    llm.Language
	Type        string
}

// Mail generates a subject and body in one blocking call, used when the
// caller has a job analysis instead of the raw posting.
func (s *Service) Mail(ctx context.Context, userID string, in MailInput, requestID string) (Artifact, error) {
	if len(in.CVData) == 0 {
		return Artifact{}, fmt.Errorf("%w: cvData required", ErrInvalidInput)
	}
	if len(in.JobAnalysis) == 0 {
		return Artifact{}, fmt.Errorf("%w: jobAnalysis required", ErrInvalidInput)
	}

	metrics.IncGenerationStarted()
	start := time.Now()
	res, err := s.LLM.Complete(ctx, llm.Request{
		Messages: llm.BuildMailPrompt(llm.GenerateInput{
			CVData:      in.CVData,
			JobAnalysis: in.JobAnalysis,
			Language:    in.Language,
			Type:        in.Type,
		}),
		JSONMode: true,
	})
	duration := time.Since(start)
	if err != nil {
		metrics.IncGenerationFailed()
		return Artifact{}, err
	}

	var mail struct {
		Subject string `json:"subject"`
		Content string `json:"content"`
	}
	if err := parse.ExtractInto(res.Content, &mail); err != nil {
		metrics.IncGenerationFailed()
		return Artifact{}, fmt.Errorf("parse mail output: %w", err)
	}
	if strings.TrimSpace(mail.Content) == "" {
		metrics.IncGenerationFailed()
		return Artifact{}, fmt.Errorf("parse mail output: empty content")
	}

	contentType := in.Type
	if contentType == "" {
		contentType = llm.ContentTypeApplication
	}
	artifact := Artifact{
		ID:          uuid.NewString(),
		UserID:      userID,
		CVID:        in.CVID,
		JobID:       in.JobID,
		ContentType: contentType,
		Kind:        KindEmail,
		Language:    in.Language.OrDefault().Code,
		Subject:     mail.Subject,
		Content:     mail.Content,
		Model:       res.Model,
		Usage:       res.Usage,
		DurationMs:  duration.Milliseconds(),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, artifact); err != nil {
		return Artifact{}, err
	}

	metrics.IncGenerationCompleted()
	metrics.ObserveGenerationDurationMs(float64(duration.Milliseconds()))
	telemetry.Info("generation.mail.completed", map[string]any{
		"generation_id": artifact.ID,
		"model":         res.Model,
		"duration_ms":   duration.Milliseconds(),
		"tokens":        res.Usage.TotalTokens,
	})
	return artifact, nil
}

// Get returns one stored artifact.
func (s *Service) Get(ctx context.Context, userID, id string) (Artifact, error) {
	if strings.TrimSpace(id) == "" {
		return Artifact{}, fmt.Errorf("%w: id required", ErrInvalidInput)
	}
	return s.Repo.GetByID(ctx, userID, id)
}

// List returns the user's stored artifacts, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Artifact, error) {
	return s.Repo.List(ctx, userID, limit, offset)
}
