package health

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestStatusWithoutDatabase(t *testing.T) {
	r := NewService(nil, "openai", "local").Status(context.Background())
	if !r.OK || r.Database != "memory" || r.LLMProvider != "openai" {
		t.Fatalf("unexpected report %+v", r)
	}
}

func TestStatusPingsDatabase(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	svc := NewService(db, "gemini", "s3")
	if r := svc.Status(context.Background()); !r.OK || r.Database != "ok" {
		t.Fatalf("expected healthy, got %+v", r)
	}
	if r := svc.Status(context.Background()); r.OK || r.Database != "unavailable" {
		t.Fatalf("expected unhealthy, got %+v", r)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
