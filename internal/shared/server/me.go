package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cvcoach-backend/internal/shared/config"
	"cvcoach-backend/internal/shared/server/middleware"
	"cvcoach-backend/internal/shared/server/respond"
)

type meResponse struct {
	UserID string   `json:"userId"`
	Guest  bool     `json:"guest"`
	Name   string   `json:"name,omitempty"`
	Limits meLimits `json:"limits"`
}

// meLimits lets the client check uploads and pace requests before sending them.
type meLimits struct {
	MaxUploadBytes    int64   `json:"maxUploadBytes"`
	RequestsPerSecond float64 `json:"requestsPerSecond"`
	AnalysesPerSecond float64 `json:"analysesPerSecond"`
	AnalysisBurst     int     `json:"analysisBurst"`
}

func registerMeRoutes(rg *gin.RouterGroup, cfg config.Config) {
	limits := meLimits{
		MaxUploadBytes:    cfg.MaxUploadBytes,
		RequestsPerSecond: cfg.RateLimitRate,
		AnalysesPerSecond: cfg.LLMRateLimitRate,
		AnalysisBurst:     cfg.LLMRateLimitBurst,
	}
	rg.GET("/me", func(c *gin.Context) {
		userID := middleware.UserIDFromContext(c)
		if userID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing identity", nil)
			return
		}
		respond.OK(c, meResponse{
			UserID: userID,
			Guest:  c.GetBool("isGuest"),
			Name:   middleware.UserNameFromContext(c),
			Limits: limits,
		})
	})
}
