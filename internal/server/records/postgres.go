package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/teamspace/internal/client/models"
	"github.com/dmitrijs2005/teamspace/internal/common"
	"github.com/dmitrijs2005/teamspace/internal/dbx"
	"github.com/dmitrijs2005/teamspace/internal/server/migrations"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// OpenPostgres connects to dsn through the pgx driver and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", common.ErrorAlreadyExists, pgErr.Message)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", common.ErrorNotFound, pgErr.Message)
		}
	}
	return fmt.Errorf("db error: %w", err)
}

func (r *PostgresRepository) Insert(ctx context.Context, rec *Record) error {
	query := `
		INSERT INTO records (id, family, parent_id, workspace_id, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, string(rec.Family), nullable(rec.ParentID), rec.WorkspaceID, string(rec.Data), rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, rec *Record) error {
	query := `UPDATE records SET data = $1, updated_at = $2 WHERE id = $3 AND family = $4`
	res, err := r.db.ExecContext(ctx, query, string(rec.Data), rec.UpdatedAt, rec.ID, string(rec.Family))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, f models.Family, id string) error {
	// Descendants go with it through ON DELETE CASCADE.
	res, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE id = $1 AND family = $2`, id, string(f))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

const selectRecord = `SELECT id, family, parent_id, workspace_id, data, created_at, updated_at FROM records`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*Record, error) {
	var (
		rec    Record
		family string
		parent sql.NullString
	)
	if err := s.Scan(&rec.ID, &family, &parent, &rec.WorkspaceID, &rec.Data, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Family = models.Family(family)
	rec.ParentID = parent.String
	return &rec, nil
}

func (r *PostgresRepository) Get(ctx context.Context, f models.Family, id string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, selectRecord+` WHERE id = $1 AND family = $2`, id, string(f))
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) ListWorkspace(ctx context.Context, workspaceID string) ([]*Record, error) {
	rows, err := r.db.QueryContext(ctx, selectRecord+` WHERE workspace_id = $1 ORDER BY created_at, id`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}
