package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"cvcoach-backend/internal/services/health"
	"cvcoach-backend/internal/shared/auth"
	"cvcoach-backend/internal/shared/config"
	"cvcoach-backend/internal/shared/metrics"
	"cvcoach-backend/internal/shared/server/middleware"
	"cvcoach-backend/internal/shared/server/respond"
	"cvcoach-backend/internal/shared/tracing"
	"cvcoach-backend/internal/wizard"
)

const (
	rateGroupDefault = "DEFAULT"
	rateGroupLLM     = "LLM"
)

// RouterDeps carries everything the HTTP surface needs.
type RouterDeps struct {
	Config   config.Config
	Verifier *auth.Verifier
	Health   *health.Service
	Wizard   *wizard.Handler
	Limiter  *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	if cfg.Env == "production" || cfg.Env == "staging" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		otelgin.Middleware(tracing.ServiceName),
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
	)

	healthHandler := func(c *gin.Context) {
		report := deps.Health.Status(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	}
	r.GET("/health", healthHandler)
	r.GET("/api/v1/health", healthHandler)
	r.GET("/metrics", metrics.Handler())

	limiter := deps.Limiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(nil)
	}
	api := r.Group("/api/v1",
		middleware.Auth(deps.Verifier),
		middleware.RateLimit(middleware.RateLimitConfig{
			Limiter:      limiter,
			DefaultGroup: rateGroupDefault,
			Rules: map[string]middleware.RateLimitRule{
				rateGroupDefault: {Rate: cfg.RateLimitRate, Burst: cfg.RateLimitBurst},
			},
		}),
	)
	modelBacked := middleware.RateLimit(middleware.RateLimitConfig{
		Limiter:      limiter,
		DefaultGroup: rateGroupLLM,
		Rules: map[string]middleware.RateLimitRule{
			rateGroupLLM: {Rate: cfg.LLMRateLimitRate, Burst: cfg.LLMRateLimitBurst},
		},
	})

	registerMeRoutes(api, cfg)
	deps.Wizard.RegisterRoutes(api, modelBacked)

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
