package config

import (
	"fmt"
	"time"

	"github.com/rezkam/taskguard/internal/env"
)

// ServerConfig holds all configuration for the admin server binary.
type ServerConfig struct {
	Storage         StorageConfig
	HTTP            HTTPConfig
	Reconcile       ReconcileConfig
	Activity        ActivityConfig
	Observability   ObservabilityConfig
	ShutdownTimeout time.Duration `env:"TASKGUARD_SHUTDOWN_TIMEOUT" default:"10s"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Host              string        `env:"TASKGUARD_HTTP_HOST"`
	Port              string        `env:"TASKGUARD_HTTP_PORT" default:"8081"`
	ReadTimeout       time.Duration `env:"TASKGUARD_HTTP_READ_TIMEOUT" default:"5s"`
	WriteTimeout      time.Duration `env:"TASKGUARD_HTTP_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout       time.Duration `env:"TASKGUARD_HTTP_IDLE_TIMEOUT" default:"120s"`
	ReadHeaderTimeout time.Duration `env:"TASKGUARD_HTTP_READ_HEADER_TIMEOUT" default:"5s"`
	MaxHeaderBytes    int           `env:"TASKGUARD_HTTP_MAX_HEADER_BYTES" default:"1048576" validate:"gte=0"`
}

// LoadServerConfig loads and validates server configuration from environment.
func LoadServerConfig() (*ServerConfig, error) {
	cfg := &ServerConfig{}

	if err := env.Load(cfg); err != nil {
		return nil, fmt.Errorf("failed to load server config: %w", err)
	}

	return cfg, nil
}
