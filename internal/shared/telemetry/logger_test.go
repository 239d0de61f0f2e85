package telemetry

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })
	return logs
}

func TestWriteLevelsAndFields(t *testing.T) {
	logs := observe(t)

	Info("analysis.start", map[string]any{"workspace_id": "ws-1"})
	Warn("coach.parse_warning", map[string]any{"error": errors.New("bad json")})
	Error("llm.schema_error", nil)

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel || entries[0].ContextMap()["workspace_id"] != "ws-1" {
		t.Fatalf("unexpected info entry: %+v", entries[0])
	}
	if entries[1].Level != zapcore.WarnLevel || entries[1].ContextMap()["error"] != "bad json" {
		t.Fatalf("unexpected warn entry: %+v", entries[1].ContextMap())
	}
	if entries[2].Level != zapcore.ErrorLevel {
		t.Fatalf("expected error level, got %v", entries[2].Level)
	}
}

func TestRedactsSecretsAndHashesOwners(t *testing.T) {
	logs := observe(t)

	Info("request.complete", map[string]any{
		"authorization": "Bearer abc",
		"api_key":       "sk-123",
		"owner":         "guest:42",
		"status":        200,
	})

	fields := logs.All()[0].ContextMap()
	if fields["authorization"] != "[REDACTED]" || fields["api_key"] != "[REDACTED]" {
		t.Fatalf("secrets not redacted: %+v", fields)
	}
	owner, _ := fields["owner"].(string)
	if owner == "guest:42" || len(owner) != len("hash:")+12 {
		t.Fatalf("owner not hashed: %q", owner)
	}
	if fields["status"] != int64(200) {
		t.Fatalf("status changed: %#v", fields["status"])
	}
}
