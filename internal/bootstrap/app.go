package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"applyforge-backend/internal/account"
	"applyforge-backend/internal/activity"
	googleauth "applyforge-backend/internal/auth"
	"applyforge-backend/internal/cvs"
	"applyforge-backend/internal/gdpr"
	"applyforge-backend/internal/generation"
	"applyforge-backend/internal/jobs"
	"applyforge-backend/internal/llm"
	"applyforge-backend/internal/llm/openai"
	"applyforge-backend/internal/shared/config"
	"applyforge-backend/internal/shared/server"
	"applyforge-backend/internal/shared/storage/db"
	"applyforge-backend/internal/shared/storage/object"
	localstore "applyforge-backend/internal/shared/storage/object/local"
	s3store "applyforge-backend/internal/shared/storage/object/s3"
	"applyforge-backend/internal/shared/telemetry"
	"applyforge-backend/internal/users"
)

// App holds the wired application: repositories, services, handlers and the
// HTTP router.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	LLM    llm.CompletionClient

	UsersRepo    users.UsersRepo
	SessionsRepo users.SessionsRepo
	CVRepo       cvs.Repo
	JobRepo      jobs.Repo
	GenRepo      generation.Repo
	ActivityRepo activity.Repo

	UsersService      *users.Service
	CVService         *cvs.Service
	JobService        *jobs.Service
	GenerationService *generation.Service
	GDPRService       *gdpr.Service
	AccountService    *account.Service
	GoogleAuth        *googleauth.GoogleService
}

// Build wires every dependency from config and returns the ready app.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		LLM:    client,
	}
	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:            cfg,
		CVHandler:         cvs.NewHandler(app.CVService),
		JobHandler:        jobs.NewHandler(app.JobService),
		GenerationHandler: generation.NewHandler(app.GenerationService),
		GDPRHandler:       gdpr.NewHandler(app.GDPRService),
		AccountHandler:    account.NewHandler(app.AccountService),
		UsersHandler:      users.NewHandler(app.UsersService),
		GoogleAuth:        app.GoogleAuth,
	})
	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Info("bootstrap.memory_repos", map[string]any{
				"reason": "DATABASE_URL empty",
			})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{
				"reason": "database connect failed",
				"error":  err.Error(),
			})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.AWSRegion) == "" || strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires AWS_REGION and S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.S3KMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildLLM(cfg config.Config) (llm.CompletionClient, error) {
	client, err := openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	if err != nil {
		return nil, err
	}
	policy := llm.DefaultRetryPolicy()
	if cfg.OpenAITimeoutSeconds > 0 {
		policy.AttemptTimeout = time.Duration(cfg.OpenAITimeoutSeconds) * time.Second
	}
	return llm.WithRetry(client, policy), nil
}

func buildServices(app *App) {
	if app.DB != nil {
		app.UsersRepo = &users.PGRepo{DB: app.DB}
		app.SessionsRepo = &users.PGSessionsRepo{DB: app.DB}
		app.CVRepo = &cvs.PGRepo{DB: app.DB}
		app.JobRepo = &jobs.PGRepo{DB: app.DB}
		app.GenRepo = &generation.PGRepo{DB: app.DB}
		app.ActivityRepo = &activity.PGRepo{DB: app.DB}
	} else {
		app.UsersRepo = users.NewMemoryRepo()
		app.SessionsRepo = users.NewMemorySessionsRepo()
		app.CVRepo = cvs.NewMemoryRepo()
		app.JobRepo = jobs.NewMemoryRepo()
		app.GenRepo = generation.NewMemoryRepo()
		app.ActivityRepo = activity.NewMemoryRepo()
	}

	app.UsersService = &users.Service{Repo: app.UsersRepo, Sessions: app.SessionsRepo}
	app.CVService = &cvs.Service{Repo: app.CVRepo, Store: app.Store, LLM: app.LLM}
	app.JobService = &jobs.Service{Repo: app.JobRepo, LLM: app.LLM}
	app.GenerationService = &generation.Service{Repo: app.GenRepo, LLM: app.LLM}
	app.GDPRService = &gdpr.Service{
		Users:     app.UsersRepo,
		Sessions:  app.SessionsRepo,
		CVs:       app.CVRepo,
		Jobs:      app.JobRepo,
		Generated: app.GenRepo,
		Activity:  app.ActivityRepo,
		Deleter:   buildDeleter(app),
		Objects:   app.Store,
	}
	app.AccountService = account.NewService(app.CVRepo, app.JobRepo, app.GenRepo)
	app.GoogleAuth = googleauth.NewGoogleService(
		app.Config.GoogleClientID,
		app.Config.GoogleClientSecret,
		app.Config.GoogleRedirectURL,
		app.Config.UIRedirectURL,
		app.UsersService,
	)
}

func buildDeleter(app *App) gdpr.Deleter {
	if app.DB != nil {
		return &gdpr.PGDeleter{DB: app.DB}
	}
	return &gdpr.MemoryDeleter{
		Users:     app.UsersRepo.(*users.MemoryRepo),
		Sessions:  app.SessionsRepo.(*users.MemorySessionsRepo),
		CVs:       app.CVRepo.(*cvs.MemoryRepo),
		Jobs:      app.JobRepo.(*jobs.MemoryRepo),
		Generated: app.GenRepo.(*generation.MemoryRepo),
		Activity:  app.ActivityRepo.(*activity.MemoryRepo),
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
