package reports

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var exportCols = []string{"id", "owner", "workspace_id", "storage_key", "size_bytes", "sessions", "improvements", "latest_score", "created_at"}

func newMock(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGRepoCreate(t *testing.T) {
	repo, mock := newMock(t)
	score := 81
	e := Export{
		ID:           "exp-1",
		Owner:        "guest:1",
		WorkspaceID:  "ws-1",
		StorageKey:   "exports/abc/exp-1.txt",
		SizeBytes:    120,
		Sessions:     2,
		Improvements: 3,
		LatestScore:  &score,
		CreatedAt:    time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO improvement_exports").
		WithArgs(e.ID, e.Owner, e.WorkspaceID, e.StorageKey, e.SizeBytes, e.Sessions, e.Improvements, 81, e.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), e); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoCreateNullScore(t *testing.T) {
	repo, mock := newMock(t)
	e := Export{ID: "exp-2", Owner: "o", WorkspaceID: "ws", StorageKey: "k", CreatedAt: time.Now().UTC()}

	mock.ExpectExec("INSERT INTO improvement_exports").
		WithArgs(e.ID, e.Owner, e.WorkspaceID, e.StorageKey, int64(0), 0, 0, nil, e.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), e); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByID(t *testing.T) {
	repo, mock := newMock(t)
	created := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM improvement_exports").
		WithArgs("exp-1", "owner-1").
		WillReturnRows(sqlmock.NewRows(exportCols).
			AddRow("exp-1", "owner-1", "ws-1", "exports/x/exp-1.txt", 42, 1, 2, nil, created))

	e, err := repo.GetByID(context.Background(), "owner-1", "exp-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if e.WorkspaceID != "ws-1" || e.SizeBytes != 42 || e.Improvements != 2 || e.LatestScore != nil || !e.CreatedAt.Equal(created) {
		t.Fatalf("unexpected export %+v", e)
	}

	mock.ExpectQuery("SELECT (.+) FROM improvement_exports").
		WithArgs("missing", "owner-1").
		WillReturnError(sql.ErrNoRows)
	if _, err := repo.GetByID(context.Background(), "owner-1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoListByWorkspace(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM improvement_exports").
		WithArgs("owner-1", "ws-1", 100).
		WillReturnRows(sqlmock.NewRows(exportCols).
			AddRow("b", "owner-1", "ws-1", "k2", 10, 2, 3, 77, now).
			AddRow("a", "owner-1", "ws-1", "k1", 5, 1, 1, 60, now.Add(-time.Hour)))

	out, err := repo.ListByWorkspace(context.Background(), "owner-1", "ws-1", 500)
	if err != nil {
		t.Fatalf("ListByWorkspace: %v", err)
	}
	if len(out) != 2 || out[0].ID != "b" || out[0].LatestScore == nil || *out[0].LatestScore != 77 {
		t.Fatalf("unexpected list %+v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
