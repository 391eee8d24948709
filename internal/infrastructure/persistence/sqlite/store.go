// Package sqlite provides a task store on an embedded SQLite database
// (modernc.org/sqlite, no cgo).
//
// Writers are serialised by opening every transaction with BEGIN IMMEDIATE, which
// closes the duplicate-creation race for single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/rezkam/taskguard/internal/application/activity"
	"github.com/rezkam/taskguard/internal/application/dedup"
	"github.com/rezkam/taskguard/internal/application/worker"
	"github.com/rezkam/taskguard/internal/domain"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// DefaultBusyTimeout is how long a connection waits for a competing writer.
const DefaultBusyTimeout = 5 * time.Second

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the SQLite implementation of the task store.
//
// This store implements:
// - application/dedup.Repository and dedup.ConditionalInserter
// - application/activity.Sink (activity_log table)
// - application/worker.Coordinator (scan_leases table)
type Store struct {
	db *sql.DB
	q  querier
}

var (
	_ dedup.Repository          = (*Store)(nil)
	_ dedup.ConditionalInserter = (*Store)(nil)
	_ activity.Sink             = (*Store)(nil)
	_ worker.Coordinator        = (*Store)(nil)
)

// Open opens (creating if needed) the database at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and makes SQLite's
	// single-writer model explicit.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db, q: db}, nil
}

func dsn(path string) string {
	params := url.Values{}
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", DefaultBusyTimeout.Milliseconds()))
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "journal_mode(WAL)")
	params.Set("_txlock", "immediate")

	if path == "" || path == ":memory:" {
		return "file::memory:?" + params.Encode()
	}
	if strings.HasPrefix(path, "file:") {
		return path
	}
	return "file:" + path + "?" + params.Encode()
}

func migrate(ctx context.Context, db *sql.DB) error {
	migrations, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	for _, r := range results {
		slog.DebugContext(ctx, "Applied migration", "source", r.Source.Path, "duration", r.Duration)
	}
	return nil
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database file is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return domain.StoreError("ping", err)
	}
	return nil
}

// inTx runs fn against a store bound to an immediate transaction.
func (s *Store) inTx(ctx context.Context, fn func(tx *Store) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.ErrorContext(ctx, "rollback failed", "original_error", err, "rollback_error", rbErr)
			}
			return
		}
		err = tx.Commit()
	}()

	return fn(&Store{db: s.db, q: tx})
}
