// Package backend opens the configured task store together with the
// capabilities the binaries need from it.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rezkam/taskguard/internal/application/activity"
	"github.com/rezkam/taskguard/internal/application/dedup"
	"github.com/rezkam/taskguard/internal/application/worker"
	"github.com/rezkam/taskguard/internal/config"
	"github.com/rezkam/taskguard/internal/domain"
	"github.com/rezkam/taskguard/internal/infrastructure/persistence/gcs"
	"github.com/rezkam/taskguard/internal/infrastructure/persistence/memory"
	"github.com/rezkam/taskguard/internal/infrastructure/persistence/postgres"
	"github.com/rezkam/taskguard/internal/infrastructure/persistence/sqlite"
)

// Backend is an opened task store.
type Backend struct {
	Repository dedup.Repository

	// Coordinator is the store's lease table, or an in-process coordinator for
	// stores without one.
	Coordinator worker.Coordinator

	// Sink persists activity events. Nil when the store has no activity table.
	Sink activity.Sink

	close func() error
	ping  func(context.Context) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Open opens the store selected by cfg.
func Open(ctx context.Context, cfg config.StorageConfig) (*Backend, error) {
	switch cfg.Type {
	case config.StorageMemory:
		return from(memory.NewStore(), func() error { return nil }), nil

	case config.StorageSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return from(store, store.Close), nil

	case config.StoragePostgres:
		store, err := postgres.Open(ctx, postgres.DBConfig{
			DSN:             cfg.DSN,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		})
		if err != nil {
			return nil, err
		}
		return from(store, store.Close), nil

	case config.StorageGCS:
		store, err := gcs.NewStore(ctx, cfg.GCSBucket)
		if err != nil {
			return nil, err
		}
		return from(store, store.Close), nil

	default:
		return nil, fmt.Errorf("%w: unknown storage type %q", domain.ErrValidation, cfg.Type)
	}
}

func from(repo dedup.Repository, closeFn func() error) *Backend {
	b := &Backend{Repository: repo, close: closeFn}

	if p, ok := repo.(pinger); ok {
		b.ping = p.Ping
	}

	if c, ok := repo.(worker.Coordinator); ok {
		b.Coordinator = c
	} else {
		b.Coordinator = worker.NewLocalCoordinator(nil)
	}
	if s, ok := repo.(activity.Sink); ok {
		b.Sink = s
	}
	if _, ok := repo.(dedup.ConditionalInserter); !ok {
		slog.Debug("Store has no conditional insert, creates rely on the duplicate scan")
	}
	return b
}

// Sinks returns the activity sinks for this backend: the store's own sink when it
// has one, plus the given fallbacks.
func (b *Backend) Sinks(extra ...activity.Sink) []activity.Sink {
	sinks := append([]activity.Sink(nil), extra...)
	if b.Sink != nil {
		sinks = append(sinks, b.Sink)
	}
	return sinks
}

// Ping reports whether the store is reachable. Stores without a health check
// (memory) are always reachable.
func (b *Backend) Ping(ctx context.Context) error {
	if b.ping == nil {
		return nil
	}
	return b.ping(ctx)
}

// Close closes the store.
func (b *Backend) Close() error {
	return b.close()
}
