package reports

import "context"

// Repo defines persistence operations for archived exports.
type Repo interface {
	Create(ctx context.Context, export Export) error
	GetByID(ctx context.Context, owner, exportID string) (Export, error)
	ListByWorkspace(ctx context.Context, owner, workspaceID string, limit int) ([]Export, error)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}
