// Package queue persists pending operations in the pending_operations table.
package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/teamspace/internal/client/models"
	"github.com/dmitrijs2005/teamspace/internal/common"
	"github.com/dmitrijs2005/teamspace/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectOps = `SELECT seq, kind, target_id, payload, enqueued_at, retry_count, last_error FROM pending_operations`

func scanOp(row interface{ Scan(...any) error }) (*models.PendingOperation, error) {
	var (
		op       models.PendingOperation
		kind     string
		payload  string
		enqueued int64
	)
	if err := row.Scan(&op.Seq, &kind, &op.TargetID, &payload, &enqueued, &op.RetryCount, &op.LastError); err != nil {
		return nil, err
	}
	op.Kind = models.Kind(kind)
	op.EnqueuedAt = dbx.FromUnixNano(enqueued)

	p, err := models.DecodePayload(op.Kind, []byte(payload))
	if err != nil {
		return nil, fmt.Errorf("operation %d: %w", op.Seq, err)
	}
	op.Payload = p
	return &op, nil
}

func (r *SQLiteRepository) Enqueue(ctx context.Context, op *models.PendingOperation) error {
	data, err := models.EncodePayload(op.Payload)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO pending_operations (kind, target_id, payload, enqueued_at, retry_count, last_error)
		VALUES (?, ?, ?, ?, ?, ?)
	`, string(op.Kind), op.TargetID, string(data), dbx.UnixNano(op.EnqueuedAt), op.RetryCount, op.LastError)
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", op.Kind, err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read queue seq: %w", err)
	}
	op.Seq = seq
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, seq int64) (*models.PendingOperation, error) {
	op, err := scanOp(r.db.QueryRowContext(ctx, selectOps+` WHERE seq = ?`, seq))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get operation %d: %w", seq, err)
	}
	return op, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.PendingOperation, error) {
	rows, err := r.db.QueryContext(ctx, selectOps+` ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	defer rows.Close()

	var result []*models.PendingOperation
	for rows.Next() {
		op, err := scanOp(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation row: %w", err)
		}
		result = append(result, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate operation rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Seqs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT seq FROM pending_operations ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue: %w", err)
	}
	defer rows.Close()

	var seqs []int64
	for rows.Next() {
		var s int64
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		seqs = append(seqs, s)
	}
	return seqs, rows.Err()
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_operations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count queue: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) CountByTarget(ctx context.Context, targetID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_operations WHERE target_id = ?`, targetID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count operations for %s: %w", targetID, err)
	}
	return n, nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, seq int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM pending_operations WHERE seq = ?`, seq); err != nil {
		return fmt.Errorf("failed to remove operation %d: %w", seq, err)
	}
	return nil
}

func (r *SQLiteRepository) RemoveByTargets(ctx context.Context, targetIDs []string) (int, error) {
	if len(targetIDs) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(targetIDs)), ",")
	args := make([]any, len(targetIDs))
	for i, id := range targetIDs {
		args[i] = id
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM pending_operations WHERE target_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to drop operations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return int(n), nil
}

func (r *SQLiteRepository) SetRetry(ctx context.Context, seq int64, retryCount int, lastError string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE pending_operations SET retry_count = ?, last_error = ? WHERE seq = ?`,
		retryCount, lastError, seq)
	if err != nil {
		return fmt.Errorf("failed to update operation %d: %w", seq, err)
	}
	return nil
}

func (r *SQLiteRepository) Remap(ctx context.Context, oldID, newID string) (int, error) {
	ops, err := r.List(ctx)
	if err != nil {
		return 0, err
	}

	touched := 0
	for _, op := range ops {
		changed := op.Payload.Remap(oldID, newID)
		target := op.TargetID
		if target == oldID {
			target = newID
			changed = true
		}
		if !changed {
			continue
		}
		data, err := models.EncodePayload(op.Payload)
		if err != nil {
			return touched, err
		}
		_, err = r.db.ExecContext(ctx,
			`UPDATE pending_operations SET target_id = ?, payload = ? WHERE seq = ?`,
			target, string(data), op.Seq)
		if err != nil {
			return touched, fmt.Errorf("failed to remap operation %d: %w", op.Seq, err)
		}
		touched++
	}
	return touched, nil
}
