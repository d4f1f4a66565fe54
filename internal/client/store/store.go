// Package store opens the local SQLite database, applies migrations and hands
// out repositories bound either to the database or to a transaction.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/teamspace/internal/client/migrations"
	"github.com/dmitrijs2005/teamspace/internal/client/repositories/entities"
	"github.com/dmitrijs2005/teamspace/internal/client/repositories/failures"
	"github.com/dmitrijs2005/teamspace/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/teamspace/internal/client/repositories/queue"
	"github.com/dmitrijs2005/teamspace/internal/dbx"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

type Repositories struct {
	Entities entities.Repository
	Queue    queue.Repository
	Metadata metadata.Repository
	Failures failures.Repository
}

func newRepositories(db dbx.DBTX) Repositories {
	return Repositories{
		Entities: entities.NewSQLiteRepository(db),
		Queue:    queue.NewSQLiteRepository(db),
		Metadata: metadata.NewSQLiteRepository(db),
		Failures: failures.NewSQLiteRepository(db),
	}
}

// Store is the durable local store. Its embedded repositories run outside
// any transaction.
type Store struct {
	Repositories
	db *sql.DB
}

// RunMigrations brings the schema up to date.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	p, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.Migrations)
	if err != nil {
		return fmt.Errorf("migrations init error: %w", err)
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}
	return nil
}

// Open opens (creating if needed) the database at dsn and migrates it.
//
// The pool is capped at one connection: every statement and transaction is
// serialized, which is what keeps read-modify-write sequences and id remaps
// atomic with respect to each other.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{Repositories: newRepositories(db), db: db}, nil
}

// WithTx runs fn against repositories bound to a single transaction. fn must
// not use the Store's own repositories: the only connection is held by the
// transaction until it finishes.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, newRepositories(tx))
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}
