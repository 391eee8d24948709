package config

import "time"

// ReconcileConfig tunes duplicate resolution and the scheduled scan.
// Zero PageSize and DeleteConcurrency fall back to the application defaults.
type ReconcileConfig struct {
	Interval          time.Duration `env:"TASKGUARD_RECONCILE_INTERVAL" default:"15m" validate:"gt=0"`
	MaxStartupJitter  time.Duration `env:"TASKGUARD_RECONCILE_STARTUP_JITTER" default:"30s" validate:"gte=0"`
	LeaseDuration     time.Duration `env:"TASKGUARD_RECONCILE_LEASE" default:"10m" validate:"gt=0"`
	RetryDelay        time.Duration `env:"TASKGUARD_RECONCILE_RETRY_DELAY" default:"1m" validate:"gte=0"`
	PageSize          int           `env:"TASKGUARD_SCAN_PAGE_SIZE" validate:"gte=0,lte=10000"`
	DeleteConcurrency int           `env:"TASKGUARD_DELETE_CONCURRENCY" validate:"gte=0,lte=64"`
}

// ActivityConfig configures the asynchronous activity logger.
type ActivityConfig struct {
	QueueSize        int           `env:"TASKGUARD_ACTIVITY_QUEUE_SIZE" default:"1000" validate:"gte=0"`
	OperationTimeout time.Duration `env:"TASKGUARD_ACTIVITY_TIMEOUT" default:"5s" validate:"gte=0"`
}
