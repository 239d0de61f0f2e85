package reports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"cvcoach-backend/internal/sessions"
	"cvcoach-backend/internal/shared/storage/object"
	"cvcoach-backend/internal/shared/telemetry"
	"cvcoach-backend/internal/shared/util"
)

// Service archives rendered improvement logs.
type Service struct {
	Repo  Repo
	Store object.ObjectStore
	Now   func() time.Time
}

// Archive stores body in the object store and records it.
func (s *Service) Archive(ctx context.Context, owner, workspaceID string, ledger sessions.Ledger, body []byte) (Export, error) {
	if owner == "" || workspaceID == "" || len(body) == 0 {
		return Export{}, ErrInvalidInput
	}
	if s.Repo == nil || s.Store == nil {
		return Export{}, errors.New("missing dependencies")
	}

	id := uuid.NewString()
	key := fmt.Sprintf("exports/%s/%s.txt", util.OwnerKey(owner), id)
	size, err := s.Store.Put(ctx, key, sessions.ExportContentType, bytes.NewReader(body))
	if err != nil {
		return Export{}, fmt.Errorf("store export: %w", err)
	}

	e := Export{
		ID:           id,
		Owner:        owner,
		WorkspaceID:  workspaceID,
		StorageKey:   key,
		SizeBytes:    size,
		Sessions:     ledger.Len(),
		Improvements: len(ledger.Flatten()),
		CreatedAt:    s.now().UTC(),
	}
	if cur, ok := ledger.Current(); ok {
		score := cur.ScoreAfter
		e.LatestScore = &score
	}
	if err := s.Repo.Create(ctx, e); err != nil {
		return Export{}, fmt.Errorf("record export: %w", err)
	}

	telemetry.Info("reports.archived", map[string]any{
		"request_id":   telemetry.RequestIDFromContext(ctx),
		"owner":        owner,
		"workspace_id": workspaceID,
		"export_id":    id,
		"size_bytes":   size,
	})
	return e, nil
}

// List returns a workspace's archived exports, newest first.
func (s *Service) List(ctx context.Context, owner, workspaceID string, limit int) ([]Export, error) {
	if owner == "" || workspaceID == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByWorkspace(ctx, owner, workspaceID, limit)
}

// Open returns the stored body of an export.
func (s *Service) Open(ctx context.Context, owner, exportID string) ([]byte, Export, error) {
	e, err := s.Repo.GetByID(ctx, owner, exportID)
	if err != nil {
		return nil, Export{}, err
	}
	rc, err := s.Store.Open(ctx, e.StorageKey)
	if errors.Is(err, object.ErrNotFound) {
		return nil, Export{}, ErrNotFound
	}
	if err != nil {
		return nil, Export{}, err
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, Export{}, err
	}
	return body, e, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
