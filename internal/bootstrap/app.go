package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"cvcoach-backend/internal/documents"
	"cvcoach-backend/internal/llm"
	"cvcoach-backend/internal/llm/gemini"
	"cvcoach-backend/internal/llm/openai"
	"cvcoach-backend/internal/reports"
	"cvcoach-backend/internal/services/health"
	"cvcoach-backend/internal/shared/auth"
	"cvcoach-backend/internal/shared/config"
	"cvcoach-backend/internal/shared/server"
	"cvcoach-backend/internal/shared/server/middleware"
	"cvcoach-backend/internal/shared/storage/db"
	"cvcoach-backend/internal/shared/storage/object"
	localstore "cvcoach-backend/internal/shared/storage/object/local"
	s3store "cvcoach-backend/internal/shared/storage/object/s3"
	"cvcoach-backend/internal/shared/telemetry"
	"cvcoach-backend/internal/wizard"
)

// App holds shared dependencies.
type App struct {
	Config    config.Config
	Router    *gin.Engine
	DB        *sql.DB
	Store     object.ObjectStore
	Gateway   *llm.Gateway
	Documents *documents.Service
	Reports   *reports.Service
	Wizard    *wizard.Service
	Health    *health.Service
}

// Build prepares every dependency and the HTTP router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	app, err := BuildCore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app.Health = health.NewService(app.DB, cfg.LLMProvider, cfg.ObjectStoreType)
	app.Router = server.NewRouter(server.RouterDeps{
		Config:   app.Config,
		Verifier: auth.NewVerifier(cfg.JWTSecret, cfg.Env),
		Health:   app.Health,
		Wizard:   wizard.NewHandler(app.Wizard, app.Documents),
		Limiter:  middleware.NewRateLimiter(nil),
	})
	return app, nil
}

// BuildCore wires storage, the model gateway and the wizard without any HTTP
// surface. The command line tool uses it directly.
func BuildCore(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	gateway, err := buildGateway(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var repo reports.Repo = reports.NewMemoryRepo()
	if sqlDB != nil {
		repo = &reports.PGRepo{DB: sqlDB}
	}
	reportSvc := &reports.Service{Repo: repo, Store: store}

	return &App{
		Config:    cfg,
		DB:        sqlDB,
		Store:     store,
		Gateway:   gateway,
		Documents: documents.NewService(cfg.MaxUploadBytes),
		Reports:   reportSvc,
		Wizard:    wizard.NewService(wizard.NewStore(), gateway, reportSvc),
	}, nil
}

// Close cancels in-flight analyses and releases the database.
func (a *App) Close(ctx context.Context) error {
	if a.Wizard != nil {
		if err := a.Wizard.Shutdown(ctx); err != nil {
			telemetry.Warn("bootstrap.runs_abandoned", map[string]any{"error": err})
		}
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		telemetry.Info("bootstrap.database", map[string]any{"mode": "memory"})
		return nil, nil
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.database_fallback", map[string]any{"error": err})
			return nil, nil
		}
		return nil, err
	}

	if isDevLike(cfg.Env) {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			telemetry.Warn("bootstrap.migrations_failed", map[string]any{"error": err})
			_ = sqlDB.Close()
			return nil, nil
		}
	}
	telemetry.Info("bootstrap.database", map[string]any{"mode": "postgres"})
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildGateway(ctx context.Context, cfg config.Config) (*llm.Gateway, error) {
	var (
		provider llm.Provider
		err      error
	)
	switch cfg.LLMProvider {
	case "gemini":
		provider, err = gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.LLMModel)
	default:
		provider, err = openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel,
			openai.WithBaseURL(cfg.OpenAIBaseURL),
			openai.WithoutTemperature(cfg.OpenAINoTemperature...),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("llm provider %s: %w", cfg.LLMProvider, err)
	}

	return llm.NewGateway(llm.NewRetryingProvider(provider), cfg.LLMModel, llm.Timeouts{
		Validate:  cfg.ValidateTimeout,
		Analyze:   cfg.AnalyzeTimeout,
		Structure: cfg.StructureTimeout,
		Chat:      cfg.ChatTimeout,
	}), nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
