package kubepool

import "time"

// ConfigSnapshot holds a copy of managerConfig fields for test assertions.
// Exported only via export_test.go so that the _test package can verify
// option closures actually mutate the config without accessing internals.
type ConfigSnapshot struct {
	MaxConnections         int
	MaxIdleConnections     int
	ConnectionTimeout      time.Duration
	IdleTimeout            time.Duration
	HealthCheckInterval    time.Duration
	MaxRetries             int
	RetryBackoff           time.Duration
	ProbeTimeout           time.Duration
	MaxProbeConcurrency    int64
	MaxConsecutiveFailures int
	HasFactory             bool
	WatchKubeconfig        bool
}

// ApplyOptionsForTesting creates a default managerConfig, applies the given
// options, and returns a ConfigSnapshot of the result. This tests the option
// closures directly without constructing a manager.
func ApplyOptionsForTesting(opts ...Option) ConfigSnapshot {
	cfg := defaultManagerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return ConfigSnapshot{
		MaxConnections:         cfg.MaxConnections,
		MaxIdleConnections:     cfg.MaxIdleConnections,
		ConnectionTimeout:      cfg.ConnectionTimeout,
		IdleTimeout:            cfg.IdleTimeout,
		HealthCheckInterval:    cfg.HealthCheckInterval,
		MaxRetries:             cfg.MaxRetries,
		RetryBackoff:           cfg.RetryBackoff,
		ProbeTimeout:           cfg.ProbeTimeout,
		MaxProbeConcurrency:    cfg.MaxProbeConcurrency,
		MaxConsecutiveFailures: cfg.MaxConsecutiveFailures,
		HasFactory:             cfg.factory != nil,
		WatchKubeconfig:        cfg.watchKubeconfig,
	}
}
