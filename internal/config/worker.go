package config

import (
	"fmt"

	"github.com/rezkam/taskguard/internal/env"
)

// WorkerConfig holds all configuration for the reconciliation worker binary.
type WorkerConfig struct {
	Storage       StorageConfig
	Reconcile     ReconcileConfig
	Activity      ActivityConfig
	Observability ObservabilityConfig
	WorkerID      string `env:"TASKGUARD_WORKER_ID"` // empty = hostname-pid-uuid
}

// LoadWorkerConfig loads and validates worker configuration from environment.
func LoadWorkerConfig() (*WorkerConfig, error) {
	cfg := &WorkerConfig{}

	if err := env.Load(cfg); err != nil {
		return nil, fmt.Errorf("failed to load worker config: %w", err)
	}

	return cfg, nil
}

// CLIConfig holds configuration for the operator CLI.
// Flags override the storage type and DSN after loading.
type CLIConfig struct {
	Storage   StorageConfig
	Reconcile ReconcileConfig
	Activity  ActivityConfig
}

// LoadCLIConfig loads and validates CLI configuration from environment.
func LoadCLIConfig() (*CLIConfig, error) {
	cfg := &CLIConfig{}

	if err := env.Load(cfg); err != nil {
		return nil, fmt.Errorf("failed to load cli config: %w", err)
	}

	return cfg, nil
}
