package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"applyforge-backend/internal/account"
	googleauth "applyforge-backend/internal/auth"
	"applyforge-backend/internal/cvs"
	"applyforge-backend/internal/gdpr"
	"applyforge-backend/internal/generation"
	"applyforge-backend/internal/jobs"
	"applyforge-backend/internal/shared/config"
	"applyforge-backend/internal/shared/metrics"
	"applyforge-backend/internal/shared/server/middleware"
	"applyforge-backend/internal/users"
)

// RouterDeps carries the handlers the router mounts.
type RouterDeps struct {
	Config            config.Config
	CVHandler         *cvs.Handler
	JobHandler        *jobs.Handler
	GenerationHandler *generation.Handler
	GDPRHandler       *gdpr.Handler
	AccountHandler    *account.Handler
	UsersHandler      *users.Handler
	GoogleAuth        *googleauth.GoogleService
}

// llmPaths lists the routes that hold an upstream completion call open and
// therefore get the tight rate-limit bucket.
var llmPaths = map[string]struct{}{
	"/api/analyze-cv":          {},
	"/api/analyze-job":         {},
	"/api/upload-cv":           {},
	"/api/extract-cv-content":  {},
	"/api/cv-data/llm-process": {},
	"/api/generate-email":      {},
	"/api/generate-letter":     {},
	"/api/generate-mail":       {},
}

// NewRouter builds the gin engine with the full middleware chain and mounts
// every handler under /api.
func NewRouter(deps RouterDeps) *gin.Engine {
	if strings.EqualFold(deps.Config.Env, "production") {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(deps.Config.CORSAllowOrigin))

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "env": deps.Config.Env})
	})

	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}

	authed := api.Group("")
	authed.Use(middleware.Auth(deps.Config.Env))
	authed.Use(middleware.LLMRateLimit(llmPaths))

	if deps.CVHandler != nil {
		deps.CVHandler.RegisterRoutes(authed)
	}
	if deps.JobHandler != nil {
		deps.JobHandler.RegisterRoutes(authed)
	}
	if deps.GenerationHandler != nil {
		deps.GenerationHandler.RegisterRoutes(authed)
	}
	if deps.GDPRHandler != nil {
		deps.GDPRHandler.RegisterRoutes(authed)
	}
	if deps.AccountHandler != nil {
		deps.AccountHandler.RegisterRoutes(authed)
	}
	if deps.UsersHandler != nil {
		deps.UsersHandler.RegisterRoutes(authed)
	}

	return r
}

// Addr normalizes a port value into a listen address.
func Addr(port string) string {
	port = strings.TrimSpace(port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}
