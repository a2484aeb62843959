package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRateLimitLLMGroupTighterThanDefault(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })

	groupFor := func(c *gin.Context) string {
		if c.FullPath() == "/api/generate-email" {
			return "LLM"
		}
		return "DEFAULT"
	}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userId", "guest:test-guest")
		c.Next()
	})
	r.Use(RateLimit(RateLimitConfig{
		DefaultGroup: "DEFAULT",
		GroupFor:     groupFor,
		Limiter:      limiter,
		Rules: map[string]RateLimitRule{
			"DEFAULT": {Rate: 10, Burst: 10},
			"LLM":     {Rate: 0.5, Burst: 2},
		},
	}))
	r.POST("/api/generate-email", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/cv-data", func(c *gin.Context) { c.Status(http.StatusOK) })

	// Burst of 2 on the LLM group, third request limited.
	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/generate-email", nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, resp.Code)
		}
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/generate-email", nil))
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.Code)
	}
	if got := resp.Header().Get("Retry-After"); got == "" {
		t.Fatalf("expected Retry-After header")
	}
	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "rate_limited" {
		t.Fatalf("unexpected error body: %v", body)
	}

	// DEFAULT group still has budget.
	respGet := httptest.NewRecorder()
	r.ServeHTTP(respGet, httptest.NewRequest(http.MethodGet, "/api/cv-data", nil))
	if respGet.Code != http.StatusOK {
		t.Fatalf("expected 200 on default group, got %d", respGet.Code)
	}
}

func TestRateLimiterRefillsOverTime(t *testing.T) {
	current := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return current })
	rule := RateLimitRule{Rate: 1, Burst: 1}

	if ok, _ := limiter.Allow("k", rule); !ok {
		t.Fatalf("expected first request allowed")
	}
	if ok, retry := limiter.Allow("k", rule); ok || retry <= 0 {
		t.Fatalf("expected second request limited with retry hint, got ok=%v retry=%v", ok, retry)
	}

	current = current.Add(2 * time.Second)
	if ok, _ := limiter.Allow("k", rule); !ok {
		t.Fatalf("expected request allowed after refill")
	}
}
