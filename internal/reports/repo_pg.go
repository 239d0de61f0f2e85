package reports

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const exportColumns = `id, owner, workspace_id, storage_key, size_bytes, sessions, improvements, latest_score, created_at`

// Create inserts an export record.
func (r *PGRepo) Create(ctx context.Context, e Export) error {
	const query = `
INSERT INTO improvement_exports (` + exportColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	var score any
	if e.LatestScore != nil {
		score = *e.LatestScore
	}
	_, err := r.DB.ExecContext(ctx, query,
		e.ID,
		e.Owner,
		e.WorkspaceID,
		e.StorageKey,
		e.SizeBytes,
		e.Sessions,
		e.Improvements,
		score,
		e.CreatedAt,
	)
	return err
}

// GetByID returns an export owned by owner.
func (r *PGRepo) GetByID(ctx context.Context, owner, exportID string) (Export, error) {
	const query = `
SELECT ` + exportColumns + `
FROM improvement_exports
WHERE id = $1 AND owner = $2
LIMIT 1`
	e, err := scanExport(r.DB.QueryRowContext(ctx, query, exportID, owner))
	if errors.Is(err, sql.ErrNoRows) {
		return Export{}, ErrNotFound
	}
	return e, err
}

// ListByWorkspace lists a workspace's exports newest first.
func (r *PGRepo) ListByWorkspace(ctx context.Context, owner, workspaceID string, limit int) ([]Export, error) {
	const query = `
SELECT ` + exportColumns + `
FROM improvement_exports
WHERE owner = $1 AND workspace_id = $2
ORDER BY created_at DESC
LIMIT $3`
	rows, err := r.DB.QueryContext(ctx, query, owner, workspaceID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Export{}
	for rows.Next() {
		e, err := scanExport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExport(row scanner) (Export, error) {
	var (
		e     Export
		score sql.NullInt64
	)
	if err := row.Scan(
		&e.ID,
		&e.Owner,
		&e.WorkspaceID,
		&e.StorageKey,
		&e.SizeBytes,
		&e.Sessions,
		&e.Improvements,
		&score,
		&e.CreatedAt,
	); err != nil {
		return Export{}, err
	}
	if score.Valid {
		v := int(score.Int64)
		e.LatestScore = &v
	}
	return e, nil
}

var _ Repo = (*PGRepo)(nil)
