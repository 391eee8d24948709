package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rezkam/taskguard/internal/application/activity"
	"github.com/rezkam/taskguard/internal/application/dedup"
	"github.com/rezkam/taskguard/internal/application/worker"
	"github.com/rezkam/taskguard/internal/domain"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides the PostgreSQL implementation of the task store.
//
// This store implements:
// - application/dedup.Repository and dedup.ConditionalInserter
// - application/activity.Sink (activity_log table)
// - application/worker.Coordinator (scan_leases table)
type Store struct {
	pool *pgxpool.Pool
	db   querier
}

// Compile-time verification that Store implements all interfaces.
var (
	_ dedup.Repository          = (*Store)(nil)
	_ dedup.ConditionalInserter = (*Store)(nil)
	_ activity.Sink             = (*Store)(nil)
	_ worker.Coordinator        = (*Store)(nil)
)

// NewStore creates a store over an existing pool. Migrations are not run.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, db: pool}
}

// Pool returns the underlying connection pool.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return domain.StoreError("ping", err)
	}
	return nil
}

// finalizeTx rolls back on error and commits on success.
// Panics are handled separately in executeInTransaction before finalizeTx is called.
func finalizeTx(ctx context.Context, tx pgx.Tx, err *error) {
	if *err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			slog.ErrorContext(ctx, "rollback failed",
				"original_error", *err,
				"rollback_error", rbErr)
			*err = fmt.Errorf("transaction failed: %w (rollback error: %v)", *err, rbErr)
		}
		return
	}

	*err = tx.Commit(ctx)
	if *err != nil {
		slog.ErrorContext(ctx, "transaction commit failed", "error", *err)
	}
}

// executeInTransaction runs fn against a store bound to a new transaction.
func (s *Store) executeInTransaction(ctx context.Context, operationName string, fn func(txStore *Store) error) (err error) {
	start := time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			slog.ErrorContext(ctx, "transaction panic, rolling back",
				"operation", operationName,
				"panic", p)
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				slog.ErrorContext(ctx, "rollback after panic failed",
					"operation", operationName,
					"rollback_error", rbErr)
			}
			panic(p)
		}

		finalizeTx(ctx, tx, &err)
		if err == nil {
			slog.DebugContext(ctx, "transaction completed",
				"operation", operationName,
				"duration_ms", time.Since(start).Milliseconds())
		}
	}()

	err = fn(&Store{pool: s.pool, db: tx})
	return
}
