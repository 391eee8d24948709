package config

// ObservabilityConfig holds observability configuration.
type ObservabilityConfig struct {
	OTelEnabled bool   `env:"TASKGUARD_OTEL_ENABLED"`
	ServiceName string `env:"OTEL_SERVICE_NAME" default:"taskguard"`
	LogLevel    string `env:"TASKGUARD_LOG_LEVEL" default:"info"`
}
