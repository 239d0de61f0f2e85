package health

import (
	"context"
	"database/sql"
	"time"

	"cvcoach-backend/internal/shared/telemetry"
)

const pingTimeout = 2 * time.Second

// Service reports whether the process and its dependencies are usable.
type Service struct {
	DB          *sql.DB
	LLMProvider string
	ObjectStore string
}

// NewService constructs a new health service. db may be nil when exports are
// kept in memory.
func NewService(db *sql.DB, llmProvider, objectStore string) *Service {
	return &Service{DB: db, LLMProvider: llmProvider, ObjectStore: objectStore}
}

type Report struct {
	OK          bool   `json:"ok"`
	Database    string `json:"database"`
	LLMProvider string `json:"llmProvider"`
	ObjectStore string `json:"objectStore"`
}

// Status pings the database, if any. The LLM provider is not called.
func (s *Service) Status(ctx context.Context) Report {
	r := Report{OK: true, Database: "memory", LLMProvider: s.LLMProvider, ObjectStore: s.ObjectStore}
	if s.DB == nil {
		return r
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.DB.PingContext(ctx); err != nil {
		telemetry.Warn("health.db_unavailable", map[string]any{"error": err})
		r.OK = false
		r.Database = "unavailable"
		return r
	}
	r.Database = "ok"
	return r
}
