package bootstrap

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"applyforge-backend/internal/shared/config"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	app, err := Build(config.Config{
		Env:             "dev",
		ObjectStoreType: "local",
		LocalStoreDir:   t.TempDir(),
		OpenAIModel:     "gpt-4o-mini",
		OpenAIBaseURL:   config.DefaultOpenAIBaseURL,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return app
}

func TestBuildFallsBackToMemoryRepos(t *testing.T) {
	app := newTestApp(t)
	if app.DB != nil {
		t.Fatalf("expected nil DB without DATABASE_URL")
	}
	if app.Router == nil {
		t.Fatalf("expected router to be built")
	}
	if app.CVService == nil || app.JobService == nil || app.GenerationService == nil ||
		app.GDPRService == nil || app.AccountService == nil {
		t.Fatalf("expected all services wired")
	}
}

func TestHealthEndpoint(t *testing.T) {
	app := newTestApp(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	app.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("status field = %v, want ok", body["status"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	app.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestMissingIdentityRejected(t *testing.T) {
	app := newTestApp(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/cv-data", nil)
	app.Router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestGuestListsEmptyCVData(t *testing.T) {
	app := newTestApp(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/cv-data", nil)
	req.Header.Set("X-Guest-Id", "11111111-1111-4111-8111-111111111111")
	app.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var body struct {
		Success bool  `json:"success"`
		Count   int   `json:"count"`
		CVData  []any `json:"cvData"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !body.Success || body.Count != 0 || body.CVData == nil {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestUploadRejectsOversizedBody(t *testing.T) {
	app := newTestApp(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/upload-cv", strings.NewReader("stub"))
	req.Header.Set("X-Guest-Id", "22222222-2222-4222-8222-222222222222")
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	req.ContentLength = 11 << 20
	app.Router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["error"] != "File size exceeds 10MB limit" {
		t.Fatalf("error = %q", body["error"])
	}
}

func TestAnalyzeJobRejectsShortContent(t *testing.T) {
	app := newTestApp(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze-job",
		strings.NewReader(`{"jobContent":"too short"}`))
	req.Header.Set("X-Guest-Id", "33333333-3333-4333-8333-333333333333")
	req.Header.Set("Content-Type", "application/json")
	app.Router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["error"] != "Job content must be at least 100 characters long" {
		t.Fatalf("error = %q", body["error"])
	}
}

func TestLLMRouteRateLimited(t *testing.T) {
	app := newTestApp(t)

	var last *httptest.ResponseRecorder
	for i := 0; i < 6; i++ {
		last = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/analyze-job",
			strings.NewReader(`{"jobContent":"x"}`))
		req.Header.Set("X-Guest-Id", "44444444-4444-4444-8444-444444444444")
		req.Header.Set("Content-Type", "application/json")
		app.Router.ServeHTTP(last, req)
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("status after burst = %d, want 429", last.Code)
	}
	if last.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}
