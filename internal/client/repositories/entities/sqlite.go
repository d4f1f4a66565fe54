// Package entities stores the six entity families in per-family SQLite
// tables. Domain fields live as JSON in the data column; ids, foreign keys and
// sync bookkeeping are real columns so remaps and cascades stay in SQL.
package entities

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

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

func table(f models.Family) (string, error) {
	t := f.Table()
	if t == "" {
		return "", fmt.Errorf("unknown family %q", f)
	}
	return t, nil
}

// parentColumn returns the family's foreign key column, or "" for workspaces.
func parentColumn(f models.Family) string {
	if rel, ok := models.ParentOf(f); ok {
		return rel.Column
	}
	return ""
}

func selectColumns(f models.Family) string {
	parent := "''"
	if col := parentColumn(f); col != "" {
		parent = col
	}
	return "id, " + parent + ", data, is_dirty, updated_at, synced_at"
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntity(f models.Family, row scanner) (models.Entity, error) {
	var (
		id, parent, data string
		dirty            bool
		updated          int64
		synced           sql.NullInt64
	)
	if err := row.Scan(&id, &parent, &data, &dirty, &updated, &synced); err != nil {
		return nil, err
	}

	e := models.NewEntity(f)
	if err := json.Unmarshal([]byte(data), e.Fields()); err != nil {
		return nil, fmt.Errorf("failed to decode %s[%s]: %w", f, id, err)
	}
	e.SetID(id)
	e.SetParentID(parent)

	st := e.State()
	st.IsDirty = dirty
	st.UpdatedAt = dbx.FromUnixNano(updated)
	st.SyncedAt = dbx.TimePtr(synced)
	return e, nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, e models.Entity) error {
	f := e.Family()
	t, err := table(f)
	if err != nil {
		return err
	}

	data, err := json.Marshal(e.Fields())
	if err != nil {
		return fmt.Errorf("failed to encode %s[%s]: %w", f, e.GetID(), err)
	}
	st := e.State()

	var query string
	args := []any{e.GetID()}
	if col := parentColumn(f); col != "" {
		query = fmt.Sprintf(`
			INSERT INTO %[1]s (id, %[2]s, data, is_dirty, updated_at, synced_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				%[2]s = excluded.%[2]s,
				data = excluded.data,
				is_dirty = excluded.is_dirty,
				updated_at = excluded.updated_at,
				synced_at = excluded.synced_at
		`, t, col)
		args = append(args, e.ParentID())
	} else {
		query = fmt.Sprintf(`
			INSERT INTO %s (id, data, is_dirty, updated_at, synced_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				data = excluded.data,
				is_dirty = excluded.is_dirty,
				updated_at = excluded.updated_at,
				synced_at = excluded.synced_at
		`, t)
	}
	args = append(args, string(data), st.IsDirty, dbx.UnixNano(st.UpdatedAt), dbx.NullUnixNano(st.SyncedAt))

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert %s[%s]: %w", f, e.GetID(), err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, f models.Family, id string) (models.Entity, error) {
	t, err := table(f)
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, selectColumns(f), t), id)

	e, err := scanEntity(f, row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s[%s]: %w", f, id, err)
	}
	return e, nil
}

func (r *SQLiteRepository) Exists(ctx context.Context, f models.Family, id string) (bool, error) {
	t, err := table(f)
	if err != nil {
		return false, err
	}
	var n int
	err = r.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE id = ?`, t), id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check %s[%s]: %w", f, id, err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) query(ctx context.Context, f models.Family, where string, args ...any) ([]models.Entity, error) {
	t, err := table(f)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`SELECT %s FROM %s %s ORDER BY updated_at, id`, selectColumns(f), t, where)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", t, err)
	}
	defer rows.Close()

	var result []models.Entity
	for rows.Next() {
		e, err := scanEntity(f, rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", f, err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s rows: %w", t, err)
	}
	return result, nil
}

func (r *SQLiteRepository) List(ctx context.Context, f models.Family) ([]models.Entity, error) {
	return r.query(ctx, f, "")
}

func (r *SQLiteRepository) ListByParent(ctx context.Context, f models.Family, parentID string) ([]models.Entity, error) {
	col := parentColumn(f)
	if col == "" {
		return nil, fmt.Errorf("%s has no parent", f)
	}
	return r.query(ctx, f, "WHERE "+col+" = ?", parentID)
}

func (r *SQLiteRepository) Delete(ctx context.Context, f models.Family, id string) (bool, error) {
	t, err := table(f)
	if err != nil {
		return false, err
	}
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, t), id)
	if err != nil {
		return false, fmt.Errorf("failed to delete %s[%s]: %w", f, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) childIDs(ctx context.Context, rel models.Relation, parentID string) ([]string, error) {
	t, err := table(rel.Child)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`SELECT id FROM %s WHERE %s = ?`, t, rel.Column), parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list children of %s: %w", parentID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SQLiteRepository) CascadeDelete(ctx context.Context, f models.Family, id string) ([]Ref, error) {
	var removed []Ref

	for _, rel := range models.ChildrenOf(f) {
		ids, err := r.childIDs(ctx, rel, id)
		if err != nil {
			return nil, err
		}
		for _, childID := range ids {
			sub, err := r.CascadeDelete(ctx, rel.Child, childID)
			if err != nil {
				return nil, err
			}
			removed = append(removed, sub...)
		}
	}

	ok, err := r.Delete(ctx, f, id)
	if err != nil {
		return nil, err
	}
	if ok {
		removed = append(removed, Ref{Family: f, ID: id})
	}
	return removed, nil
}

func (r *SQLiteRepository) RemapID(ctx context.Context, f models.Family, oldID, newID string) error {
	t, err := table(f)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET id = ? WHERE id = ?`, t), newID, oldID); err != nil {
		return fmt.Errorf("failed to remap %s[%s]: %w", f, oldID, err)
	}
	for _, rel := range models.ChildrenOf(f) {
		ct, err := table(rel.Child)
		if err != nil {
			return err
		}
		q := fmt.Sprintf(`UPDATE %[1]s SET %[2]s = ? WHERE %[2]s = ?`, ct, rel.Column)
		if _, err := r.db.ExecContext(ctx, q, newID, oldID); err != nil {
			return fmt.Errorf("failed to remap %s.%s: %w", ct, rel.Column, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) MarkClean(ctx context.Context, f models.Family, id string, syncedAt time.Time) error {
	t, err := table(f)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET is_dirty = 0, synced_at = ? WHERE id = ?`, t),
		dbx.UnixNano(syncedAt), id)
	if err != nil {
		return fmt.Errorf("failed to mark %s[%s] clean: %w", f, id, err)
	}
	return nil
}

// scopeQuery returns a query selecting the ids of family f that belong to the
// workspace bound to its single placeholder.
func scopeQuery(f models.Family) string {
	t := f.Table()
	rel, ok := models.ParentOf(f)
	if !ok {
		return "SELECT id FROM " + t + " WHERE id = ?"
	}
	if rel.Parent == models.FamilyWorkspace {
		return fmt.Sprintf("SELECT id FROM %s WHERE %s = ?", t, rel.Column)
	}
	return fmt.Sprintf("SELECT id FROM %s WHERE %s IN (%s)", t, rel.Column, scopeQuery(rel.Parent))
}

func (r *SQLiteRepository) WorkspaceRefs(ctx context.Context, workspaceID string) ([]Ref, error) {
	var refs []Ref
	for _, f := range models.Families {
		rows, err := r.db.QueryContext(ctx, scopeQuery(f), workspaceID)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s of workspace %s: %w", f, workspaceID, err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, err
			}
			refs = append(refs, Ref{Family: f, ID: id})
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return refs, nil
}
