package jobs

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"applyforge-backend/internal/llm"
)

func newTestRouter(client *fakeLLM) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userId", "guest:tester")
	})
	h := NewHandler(&Service{Repo: NewMemoryRepo(), LLM: client})
	h.RegisterRoutes(r.Group("/api"))
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAnalyzeJobRejectsShortContentWithExactMessage(t *testing.T) {
	r := newTestRouter(&fakeLLM{})

	w := postJSON(t, r, "/api/analyze-job", gin.H{"jobContent": strings.Repeat("x", 99)})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "Job content must be at least 100 characters long" {
		t.Fatalf("unexpected error body: %s", w.Body.String())
	}
}

func TestAnalyzeJobReturnsAnalysis(t *testing.T) {
	client := &fakeLLM{content: `{"title": "Backend Engineer", "company": "Acme", "skills": ["Go"]}`}
	r := newTestRouter(client)

	w := postJSON(t, r, "/api/analyze-job", gin.H{"jobContent": validJobContent})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["success"] != true {
		t.Fatalf("expected success, got %s", w.Body.String())
	}
	analysis, ok := body["analysis"].(map[string]any)
	if !ok || analysis["title"] != "Backend Engineer" {
		t.Fatalf("unexpected analysis: %s", w.Body.String())
	}
	if _, ok := body["processingTime"]; !ok {
		t.Fatalf("expected processingTime in response")
	}
	if _, ok := body["degraded"]; ok {
		t.Fatalf("did not expect degraded flag: %s", w.Body.String())
	}
}

func TestAnalyzeJobFlagsDegradedResult(t *testing.T) {
	client := &fakeLLM{content: "plain prose, no object"}
	r := newTestRouter(client)

	w := postJSON(t, r, "/api/analyze-job", gin.H{"jobContent": validJobContent})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["degraded"] != true {
		t.Fatalf("expected degraded flag: %s", w.Body.String())
	}
	analysis, _ := body["analysis"].(map[string]any)
	if analysis["title"] != "Unknown role" {
		t.Fatalf("expected fallback analysis: %s", w.Body.String())
	}
}

func TestAnalyzeJobUpstreamFailureIs503(t *testing.T) {
	client := &fakeLLM{err: llm.ErrUpstreamUnavailable}
	r := newTestRouter(client)

	w := postJSON(t, r, "/api/analyze-job", gin.H{"jobContent": validJobContent})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", w.Code, w.Body.String())
	}
}
