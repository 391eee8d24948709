package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezkam/taskguard/internal/application/activity"
	"github.com/rezkam/taskguard/internal/application/dedup"
	"github.com/rezkam/taskguard/internal/application/lifecycle"
	"github.com/rezkam/taskguard/internal/config"
	"github.com/rezkam/taskguard/internal/domain"
	"github.com/rezkam/taskguard/internal/env"
	"github.com/rezkam/taskguard/internal/infrastructure/observability"
	"github.com/rezkam/taskguard/internal/infrastructure/persistence/backend"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	envFile    string
	storage    string
	dsn        string
	sqlitePath string
	gcsBucket  string
	output     string
	verbose    bool
}

// app holds the services one command invocation works with.
type app struct {
	store    *backend.Backend
	activity *activity.Logger
	resolver *dedup.Resolver
	scanner  *dedup.Scanner
	reporter *dedup.Reporter
	engine   *lifecycle.Engine
	out      *printer
}

func openApp(ctx context.Context, flags *globalFlags, stdout, stderr io.Writer) (*app, error) {
	out, err := newPrinter(flags.output, stdout)
	if err != nil {
		return nil, err
	}

	if err := env.LoadDotEnv(flags.envFile); err != nil {
		return nil, err
	}
	cfg, err := config.LoadCLIConfig()
	if err != nil {
		return nil, err
	}
	applyOverrides(&cfg.Storage, flags)
	if err := cfg.Storage.Validate(); err != nil {
		return nil, err
	}

	level := "warn"
	if flags.verbose {
		level = "debug"
	}
	_, logger, err := observability.InitLogger(ctx, observability.Config{LogLevel: level}, stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	store, err := backend.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	activityLogger := activity.NewLogger(context.Background(), activity.Config{
		OperationTimeout: cfg.Activity.OperationTimeout,
		QueueSize:        cfg.Activity.QueueSize,
	}, store.Sinks(activity.NewSlogSink(logger))...)

	dedupCfg := dedup.Config{
		DeleteConcurrency: cfg.Reconcile.DeleteConcurrency,
		PageSize:          cfg.Reconcile.PageSize,
	}
	clock := domain.SystemClock{}
	resolver := dedup.NewResolver(store.Repository, activityLogger, clock, dedupCfg)

	return &app{
		store:    store,
		activity: activityLogger,
		resolver: resolver,
		scanner:  dedup.NewScanner(store.Repository, activityLogger, clock, dedupCfg),
		reporter: dedup.NewReporter(store.Repository, dedupCfg),
		engine:   lifecycle.NewEngine(store.Repository, resolver, activityLogger, clock),
		out:      out,
	}, nil
}

// applyOverrides lets flags win over the environment.
func applyOverrides(cfg *config.StorageConfig, flags *globalFlags) {
	if flags.storage != "" {
		cfg.Type = flags.storage
	}
	if flags.dsn != "" {
		cfg.DSN = flags.dsn
	}
	if flags.sqlitePath != "" {
		cfg.SQLitePath = flags.sqlitePath
	}
	if flags.gcsBucket != "" {
		cfg.GCSBucket = flags.gcsBucket
	}
}

// Close drains queued activity events, then closes the store.
func (a *app) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return errors.Join(a.activity.Shutdown(ctx), a.store.Close())
}

// withApp opens the app for the duration of fn.
func withApp(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, a *app) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := openApp(ctx, flags, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.Close())
	}()

	return fn(ctx, a)
}
