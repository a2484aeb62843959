package generation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"applyforge-backend/internal/llm"
)

type fakeLLM struct {
	content   string
	chunks    []string
	usage     llm.Usage
	err       error
	streamErr error
}

func (f *fakeLLM) Complete(ctx context.Context, req llm.Request) (llm.Result, error) {
	if f.err != nil {
		return llm.Result{}, f.err
	}
	return llm.Result{Content: f.content, Model: "fake-model", Usage: f.usage}, nil
}

func (f *fakeLLM) CompleteStream(ctx context.Context, req llm.Request, onDelta func(string) error) (llm.Usage, error) {
	if f.streamErr != nil {
		return llm.Usage{}, f.streamErr
	}
	for _, chunk := range f.chunks {
		if err := onDelta(chunk); err != nil {
			return llm.Usage{}, err
		}
	}
	return f.usage, nil
}

var testCVData = map[string]any{
	"personalInfo": map[string]any{"name": "Jane Doe"},
	"skills":       []any{"Go", "PostgreSQL"},
}

func TestStreamPersistsFullContent(t *testing.T) {
	client := &fakeLLM{
		chunks: []string{"Dear ", "hiring ", "team,"},
		usage:  llm.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
	repo := NewMemoryRepo()
	svc := &Service{Repo: repo, LLM: client}

	var seen []string
	artifact, err := svc.Stream(context.Background(), "guest:tester", KindEmail, StreamInput{
		CVData:   testCVData,
		JobOffer: "We are hiring a backend engineer.",
	}, func(delta string) error {
		seen = append(seen, delta)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if len(seen) != 3 {
		t.Fatalf("expected 3 deltas, got %d", len(seen))
	}
	if artifact.Content != "Dear hiring team," {
		t.Fatalf("unexpected content %q", artifact.Content)
	}
	if artifact.Kind != KindEmail || artifact.ContentType != llm.ContentTypeApplication {
		t.Fatalf("unexpected kind/contentType: %+v", artifact)
	}
	if artifact.Usage.TotalTokens != 15 {
		t.Fatalf("unexpected usage: %+v", artifact.Usage)
	}

	stored, err := repo.GetByID(context.Background(), "guest:tester", artifact.ID)
	if err != nil {
		t.Fatalf("reload artifact: %v", err)
	}
	if stored.Content != artifact.Content {
		t.Fatalf("stored content mismatch: %q", stored.Content)
	}
}

func TestStreamUpstreamFailureIsNotPersisted(t *testing.T) {
	client := &fakeLLM{streamErr: llm.ErrUpstreamUnavailable}
	repo := NewMemoryRepo()
	svc := &Service{Repo: repo, LLM: client}

	_, err := svc.Stream(context.Background(), "guest:tester", KindLetter, StreamInput{
		CVData:   testCVData,
		JobOffer: "We are hiring.",
	}, func(string) error { return nil })
	if !errors.Is(err, llm.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}

	count, err := repo.CountByUser(context.Background(), "guest:tester")
	if err != nil {
		t.Fatalf("CountByUser: %v", err)
	}
	if count != 0 {
		t.Fatalf("failed stream must not persist content, found %d rows", count)
	}
}

func TestStreamRejectsUnknownKind(t *testing.T) {
	svc := &Service{Repo: NewMemoryRepo(), LLM: &fakeLLM{}}
	_, err := svc.Stream(context.Background(), "guest:tester", "poem", StreamInput{
		CVData:   testCVData,
		JobOffer: "We are hiring.",
	}, func(string) error { return nil })
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestStreamCallbackErrorAborts(t *testing.T) {
	client := &fakeLLM{chunks: []string{"one", "two", "three"}}
	svc := &Service{Repo: NewMemoryRepo(), LLM: client}

	abort := errors.New("client went away")
	_, err := svc.Stream(context.Background(), "guest:tester", KindEmail, StreamInput{
		CVData:   testCVData,
		JobOffer: "We are hiring.",
	}, func(string) error { return abort })
	if !errors.Is(err, abort) {
		t.Fatalf("expected callback error, got %v", err)
	}
}

func TestAnalyzeCVReturnsAnalysisAndJobMatch(t *testing.T) {
	client := &fakeLLM{content: `{
  "analysis": {"strengths": ["Go"], "weaknesses": [], "suggestions": [], "overallScore": 82},
  "jobMatch": {"matchScore": 75, "matchingSkills": ["Go"], "missingSkills": ["Kubernetes"], "recommendation": "Apply"}
}`}
	svc := &Service{Repo: NewMemoryRepo(), LLM: client}

	result, err := svc.AnalyzeCV(context.Background(), "guest:tester", AnalyzeCVInput{
		CVData:   testCVData,
		JobOffer: "We are hiring a backend engineer.",
	}, "req-1")
	if err != nil {
		t.Fatalf("AnalyzeCV: %v", err)
	}
	if result.Analysis["overallScore"] != float64(82) {
		t.Fatalf("unexpected analysis: %#v", result.Analysis)
	}
	if result.JobMatch["matchScore"] != float64(75) {
		t.Fatalf("unexpected jobMatch: %#v", result.JobMatch)
	}
}

func TestAnalyzeCVRejectsOutputMissingKeys(t *testing.T) {
	client := &fakeLLM{content: `{"analysis": {"overallScore": 50}}`}
	svc := &Service{Repo: NewMemoryRepo(), LLM: client}

	_, err := svc.AnalyzeCV(context.Background(), "guest:tester", AnalyzeCVInput{
		CVData:   testCVData,
		JobOffer: "We are hiring.",
	}, "req-1")
	if err == nil {
		t.Fatalf("expected error for output missing jobMatch")
	}
}

func TestAnalyzeCVValidatesInput(t *testing.T) {
	svc := &Service{Repo: NewMemoryRepo(), LLM: &fakeLLM{}}

	_, err := svc.AnalyzeCV(context.Background(), "guest:tester", AnalyzeCVInput{JobOffer: "x"}, "req-1")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing cvData, got %v", err)
	}
	_, err = svc.AnalyzeCV(context.Background(), "guest:tester", AnalyzeCVInput{CVData: testCVData}, "req-1")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing jobOffer, got %v", err)
	}
}

func TestMailParsesSubjectAndContent(t *testing.T) {
	client := &fakeLLM{
		content: `{"subject": "Application for Backend Engineer", "content": "Dear team, I would like to apply."}`,
		usage:   llm.Usage{TotalTokens: 42},
	}
	repo := NewMemoryRepo()
	svc := &Service{Repo: repo, LLM: client}

	artifact, err := svc.Mail(context.Background(), "guest:tester", MailInput{
		CVData:      testCVData,
		JobAnalysis: map[string]any{"title": "Backend Engineer"},
		Type:        llm.ContentTypeFollowUp,
	}, "req-1")
	if err != nil {
		t.Fatalf("Mail: %v", err)
	}
	if artifact.Subject != "Application for Backend Engineer" {
		t.Fatalf("unexpected subject %q", artifact.Subject)
	}
	if !strings.HasPrefix(artifact.Content, "Dear team") {
		t.Fatalf("unexpected content %q", artifact.Content)
	}
	if artifact.ContentType != llm.ContentTypeFollowUp || artifact.Kind != KindEmail {
		t.Fatalf("unexpected artifact: %+v", artifact)
	}

	if _, err := repo.GetByID(context.Background(), "guest:tester", artifact.ID); err != nil {
		t.Fatalf("mail artifact not persisted: %v", err)
	}
}

func TestMailRejectsEmptyModelContent(t *testing.T) {
	client := &fakeLLM{content: `{"subject": "s", "content": "  "}`}
	svc := &Service{Repo: NewMemoryRepo(), LLM: client}

	_, err := svc.Mail(context.Background(), "guest:tester", MailInput{
		CVData:      testCVData,
		JobAnalysis: map[string]any{"title": "Backend Engineer"},
	}, "req-1")
	if err == nil {
		t.Fatalf("expected error for empty mail content")
	}
}
