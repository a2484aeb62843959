package account

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"applyforge-backend/internal/cvs"
	"applyforge-backend/internal/generation"
	"applyforge-backend/internal/jobs"
)

func newClaimRouter(cvRepo *cvs.MemoryRepo, jobRepo *jobs.MemoryRepo, genRepo *generation.MemoryRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userId", "google:user-1")
		c.Set("isGuest", false)
		c.Next()
	})
	handler := NewHandler(NewService(cvRepo, jobRepo, genRepo))
	handler.RegisterRoutes(router.Group("/api"))
	return router
}

func TestClaimGuestMigratesData(t *testing.T) {
	cvRepo := cvs.NewMemoryRepo()
	jobRepo := jobs.NewMemoryRepo()
	genRepo := generation.NewMemoryRepo()
	router := newClaimRouter(cvRepo, jobRepo, genRepo)

	guestID := "11111111-1111-1111-1111-111111111111"
	guestUserID := "guest:" + guestID
	now := time.Now().UTC()

	if err := cvRepo.Create(context.Background(), cvs.Record{
		ID: "cv-1", UserID: guestUserID, FileName: "cv.pdf",
		ProcessingStatus: cvs.StatusCompleted, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("create cv: %v", err)
	}
	if err := jobRepo.Create(context.Background(), jobs.Job{
		ID: "job-1", UserID: guestUserID, Content: "posting", CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("create job: %v", err)
	}
	if err := genRepo.Create(context.Background(), generation.Artifact{
		ID: "gen-1", UserID: guestUserID, ContentType: "application", Kind: "email",
		Content: "hi", CreatedAt: now,
	}); err != nil {
		t.Fatalf("create artifact: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/account/claim-guest", nil)
	req.Header.Set("X-Guest-Id", guestID)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	if _, err := cvRepo.GetByID(context.Background(), "google:user-1", "cv-1"); err != nil {
		t.Fatalf("cv not migrated: %v", err)
	}
	if _, err := jobRepo.GetByID(context.Background(), "google:user-1", "job-1"); err != nil {
		t.Fatalf("job not migrated: %v", err)
	}
	if _, err := genRepo.GetByID(context.Background(), "google:user-1", "gen-1"); err != nil {
		t.Fatalf("artifact not migrated: %v", err)
	}
}

func TestClaimGuestIdempotent(t *testing.T) {
	cvRepo := cvs.NewMemoryRepo()
	jobRepo := jobs.NewMemoryRepo()
	genRepo := generation.NewMemoryRepo()
	router := newClaimRouter(cvRepo, jobRepo, genRepo)

	guestID := "22222222-2222-2222-2222-222222222222"
	now := time.Now().UTC()
	if err := cvRepo.Create(context.Background(), cvs.Record{
		ID: "cv-2", UserID: "guest:" + guestID, FileName: "cv.pdf",
		ProcessingStatus: cvs.StatusUploaded, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("create cv: %v", err)
	}

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/account/claim-guest", nil)
		req.Header.Set("X-Guest-Id", guestID)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected status 200, got %d", i+1, resp.Code)
		}
	}

	if _, err := cvRepo.GetByID(context.Background(), "google:user-1", "cv-2"); err != nil {
		t.Fatalf("cv not migrated: %v", err)
	}
}

func TestClaimGuestRejectsGuestCaller(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userId", "guest:abc")
		c.Set("isGuest", true)
		c.Next()
	})
	handler := NewHandler(NewService(cvs.NewMemoryRepo(), jobs.NewMemoryRepo(), generation.NewMemoryRepo()))
	handler.RegisterRoutes(router.Group("/api"))

	req := httptest.NewRequest(http.MethodPost, "/api/account/claim-guest", nil)
	req.Header.Set("X-Guest-Id", "11111111-1111-1111-1111-111111111111")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for guest caller, got %d", resp.Code)
	}
}

func TestClaimGuestValidatesHeader(t *testing.T) {
	router := newClaimRouter(cvs.NewMemoryRepo(), jobs.NewMemoryRepo(), generation.NewMemoryRepo())

	req := httptest.NewRequest(http.MethodPost, "/api/account/claim-guest", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing header, got %d", resp.Code)
	}

	req2 := httptest.NewRequest(http.MethodPost, "/api/account/claim-guest", nil)
	req2.Header.Set("X-Guest-Id", "not-a-uuid")
	resp2 := httptest.NewRecorder()
	router.ServeHTTP(resp2, req2)
	if resp2.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid guest id, got %d", resp2.Code)
	}
}
