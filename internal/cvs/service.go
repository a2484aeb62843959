package cvs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"applyforge-backend/internal/extract"
	"applyforge-backend/internal/llm"
	"applyforge-backend/internal/llm/parse"
	"applyforge-backend/internal/shared/metrics"
	"applyforge-backend/internal/shared/storage/object"
	"applyforge-backend/internal/shared/telemetry"
)

// Service contains business logic for CV records and the LLM extraction
// pipeline.
type Service struct {
	Repo  Repo
	Store object.ObjectStore
	LLM   llm.CompletionClient
}

// Upload stores the file, extracts its text and creates a CV record, then
// runs the LLM extraction inline. An extraction failure does not fail the
// upload; the record is returned with its processing status set accordingly.
func (s *Service) Upload(ctx context.Context, userID, fileName, requestID string, r io.Reader) (Record, error) {
	if strings.TrimSpace(fileName) == "" {
		return Record{}, fmt.Errorf("%w: file name required", ErrInvalidInput)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return Record{}, fmt.Errorf("read upload: %w", err)
	}

	storageKey, size, mimeType, err := s.Store.Save(ctx, userID, fileName, bytes.NewReader(data))
	if err != nil {
		return Record{}, err
	}

	if !extract.IsSupported(mimeType, fileName, data) {
		if delErr := s.Store.Delete(ctx, storageKey); delErr != nil {
			telemetry.Warn("cv.upload.cleanup_failed", map[string]any{
				"storage_key": storageKey,
				"error":       delErr.Error(),
			})
		}
		return Record{}, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}

	rawText, err := extract.TextFromBytes(ctx, data, mimeType, fileName)
	if err != nil {
		return Record{}, fmt.Errorf("extract text: %w", err)
	}

	now := time.Now().UTC()
	rec := Record{
		ID:               uuid.NewString(),
		UserID:           userID,
		FileName:         fileName,
		ContentType:      extract.NormalizeMimeType(mimeType, fileName, data),
		FileSize:         size,
		StorageKey:       storageKey,
		RawText:          rawText,
		ProcessingStatus: StatusUploaded,
		Metadata:         map[string]any{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.Repo.Create(ctx, rec); err != nil {
		return Record{}, err
	}

	processed, err := s.Process(ctx, userID, rec.ID, false, requestID)
	if err != nil {
		telemetry.Warn("cv.upload.extraction_failed", map[string]any{
			"cv_id": rec.ID,
			"error": err.Error(),
		})
		// The upload itself succeeded; report the record as it stands.
		stored, getErr := s.Repo.GetByID(ctx, userID, rec.ID)
		if getErr != nil {
			return rec, nil
		}
		return stored, nil
	}
	return processed, nil
}

// ExtractContent creates a CV record from already-extracted text and runs the
// LLM extraction on it.
func (s *Service) ExtractContent(ctx context.Context, userID, cvContent, filename, requestID string) (Record, error) {
	if strings.TrimSpace(cvContent) == "" {
		return Record{}, fmt.Errorf("%w: cvContent required", ErrInvalidInput)
	}
	if strings.TrimSpace(filename) == "" {
		filename = "pasted-cv.txt"
	}

	now := time.Now().UTC()
	rec := Record{
		ID:               uuid.NewString(),
		UserID:           userID,
		FileName:         filename,
		ContentType:      "text/plain",
		FileSize:         int64(len(cvContent)),
		RawText:          cvContent,
		ProcessingStatus: StatusUploaded,
		Metadata:         map[string]any{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.Repo.Create(ctx, rec); err != nil {
		return Record{}, err
	}
	return s.Process(ctx, userID, rec.ID, false, requestID)
}

// Process runs the LLM extraction pipeline on a stored record, moving its
// status UPLOADED/FAILED -> PROCESSING -> COMPLETED|FAILED. With force, a
// COMPLETED record is reprocessed.
func (s *Service) Process(ctx context.Context, userID, cvID string, force bool, requestID string) (Record, error) {
	if strings.TrimSpace(cvID) == "" {
		return Record{}, fmt.Errorf("%w: cvId required", ErrInvalidInput)
	}

	rec, err := s.Repo.BeginProcessing(ctx, userID, cvID, force)
	if err != nil {
		return Record{}, err
	}
	if strings.TrimSpace(rec.RawText) == "" {
		s.finishFailed(ctx, rec, requestID, "", 0, "no extracted text to process")
		return Record{}, fmt.Errorf("%w: record has no extracted text", ErrInvalidInput)
	}

	start := time.Now()
	res, err := s.LLM.Complete(ctx, llm.Request{
		Messages: llm.BuildCVExtractionPrompt(rec.RawText, rec.FileName),
		JSONMode: true,
	})
	duration := time.Since(start)
	if err != nil {
		s.finishFailed(ctx, rec, requestID, res.Model, duration, err.Error())
		return Record{}, err
	}

	var extracted map[string]any
	parseStatus := parse.StatusOk
	obj, parseErr := parse.ExtractObject(res.Content)
	if parseErr != nil {
		s.finishFailed(ctx, rec, requestID, res.Model, duration, parseErr.Error())
		return Record{}, fmt.Errorf("parse extraction output: %w", parseErr)
	}
	if err := parse.ExtractInto(string(obj), &extracted); err != nil {
		s.finishFailed(ctx, rec, requestID, res.Model, duration, err.Error())
		return Record{}, fmt.Errorf("decode extraction output: %w", err)
	}

	rec.Extracted = extracted
	rec.ProcessingStatus = StatusCompleted
	if rec.Metadata == nil {
		rec.Metadata = map[string]any{}
	}
	rec.Metadata["llmProcessing"] = auditBlock(requestID, res.Model, duration, string(parseStatus), "")

	if err := s.Repo.FinishProcessing(ctx, rec); err != nil {
		return Record{}, err
	}
	metrics.ObserveCVProcessDurationMs(float64(duration.Milliseconds()))
	telemetry.Info("cv.process.completed", map[string]any{
		"cv_id":       rec.ID,
		"model":       res.Model,
		"duration_ms": duration.Milliseconds(),
		"tokens":      res.Usage.TotalTokens,
	})
	return rec, nil
}

func (s *Service) finishFailed(ctx context.Context, rec Record, requestID, model string, duration time.Duration, reason string) {
	rec.ProcessingStatus = StatusFailed
	if rec.Metadata == nil {
		rec.Metadata = map[string]any{}
	}
	rec.Metadata["llmProcessing"] = auditBlock(requestID, model, duration, string(parse.StatusFailed), reason)
	if err := s.Repo.FinishProcessing(ctx, rec); err != nil {
		telemetry.Error("cv.process.finish_failed", map[string]any{
			"cv_id": rec.ID,
			"error": err.Error(),
		})
	}
}

func auditBlock(requestID, model string, duration time.Duration, outcome, reason string) map[string]any {
	block := map[string]any{
		"requestId":  requestID,
		"model":      model,
		"durationMs": duration.Milliseconds(),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"outcome":    outcome,
	}
	if reason != "" {
		block["error"] = reason
	}
	return block
}

// Get returns one CV record.
func (s *Service) Get(ctx context.Context, userID, id string) (Record, error) {
	if strings.TrimSpace(id) == "" {
		return Record{}, fmt.Errorf("%w: id required", ErrInvalidInput)
	}
	return s.Repo.GetByID(ctx, userID, id)
}

// List returns the user's CV records, newest first.
func (s *Service) List(ctx context.Context, userID string, includeDeleted bool, limit, offset int) ([]Record, error) {
	return s.Repo.List(ctx, userID, includeDeleted, limit, offset)
}

// Rename updates the display file name of a record.
func (s *Service) Rename(ctx context.Context, userID, id, fileName string) (Record, error) {
	if strings.TrimSpace(fileName) == "" {
		return Record{}, fmt.Errorf("%w: fileName required", ErrInvalidInput)
	}
	rec, err := s.Repo.GetByID(ctx, userID, id)
	if err != nil {
		return Record{}, err
	}
	if rec.IsDeleted {
		return Record{}, ErrNotFound
	}
	rec.FileName = strings.TrimSpace(fileName)
	if err := s.Repo.Update(ctx, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Delete soft-deletes a record. The stored object is kept until a GDPR
// deletion removes it for good.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: id required", ErrInvalidInput)
	}
	return s.Repo.SoftDelete(ctx, userID, id)
}
