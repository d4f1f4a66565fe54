// Package metadata stores per-workspace pull bookkeeping.
package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/teamspace/internal/client/models"
	"github.com/dmitrijs2005/teamspace/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, workspaceID string) (*models.SyncMetadata, error) {
	var at int64
	err := r.db.QueryRowContext(ctx,
		`SELECT last_pull_at FROM sync_metadata WHERE workspace_id = ?`, workspaceID).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata[%s]: %w", workspaceID, err)
	}
	return &models.SyncMetadata{WorkspaceID: workspaceID, LastPullAt: dbx.FromUnixNano(at)}, nil
}

func (r *SQLiteRepository) SetLastPull(ctx context.Context, workspaceID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_metadata (workspace_id, last_pull_at) VALUES (?, ?)
		ON CONFLICT(workspace_id) DO UPDATE SET last_pull_at = excluded.last_pull_at
	`, workspaceID, dbx.UnixNano(at))
	if err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", workspaceID, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, workspaceID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sync_metadata WHERE workspace_id = ?`, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to delete metadata[%s]: %w", workspaceID, err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.SyncMetadata, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT workspace_id, last_pull_at FROM sync_metadata ORDER BY workspace_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}
	defer rows.Close()

	var result []*models.SyncMetadata
	for rows.Next() {
		var (
			id string
			at int64
		)
		if err := rows.Scan(&id, &at); err != nil {
			return nil, fmt.Errorf("failed to scan metadata row: %w", err)
		}
		result = append(result, &models.SyncMetadata{WorkspaceID: id, LastPullAt: dbx.FromUnixNano(at)})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate metadata rows: %w", err)
	}

	return result, nil
}
