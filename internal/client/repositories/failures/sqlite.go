// Package failures persists sync failures surfaced to the user.
package failures

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/teamspace/internal/client/models"
	"github.com/dmitrijs2005/teamspace/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Add(ctx context.Context, f *models.SyncFailure) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_failures (kind, target_id, attempts, error, failed_at)
		VALUES (?, ?, ?, ?, ?)
	`, string(f.Kind), f.TargetID, f.Attempts, f.Error, dbx.UnixNano(f.FailedAt))
	if err != nil {
		return fmt.Errorf("failed to record failure of %s: %w", f.Kind, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read failure id: %w", err)
	}
	f.ID = id
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.SyncFailure, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, target_id, attempts, error, failed_at FROM sync_failures ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list failures: %w", err)
	}
	defer rows.Close()

	var result []*models.SyncFailure
	for rows.Next() {
		var (
			f    models.SyncFailure
			kind string
			at   int64
		)
		if err := rows.Scan(&f.ID, &kind, &f.TargetID, &f.Attempts, &f.Error, &at); err != nil {
			return nil, fmt.Errorf("failed to scan failure row: %w", err)
		}
		f.Kind = models.Kind(kind)
		f.FailedAt = dbx.FromUnixNano(at)
		result = append(result, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate failure rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_failures`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count failures: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Dismiss(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sync_failures WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to dismiss failure %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) DismissAll(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sync_failures`)
	if err != nil {
		return 0, fmt.Errorf("failed to dismiss failures: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return int(n), nil
}
