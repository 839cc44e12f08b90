package kubepool

import (
	"k8s.io/utils/clock"

	"github.com/giantswarm/kubepool/internal/core"
)

// managerConfig holds configuration for a ClusterManager. The pool tunables
// embed core.PoolConfig so the public options can set them field-by-field
// without duplicating the struct; the remaining fields are façade-level.
type managerConfig struct {
	core.PoolConfig

	// factory overrides the kubeconfig-backed client factory when set.
	factory ClientFactory

	// watchKubeconfig enables the fsnotify watcher that re-runs context
	// discovery when the kubeconfig file changes.
	watchKubeconfig bool
}

// defaultManagerConfig returns a managerConfig populated with all default
// values. Factory and Clock are filled in by New (kubeconfig factory,
// real clock) unless options override them.
func defaultManagerConfig() managerConfig {
	return managerConfig{
		PoolConfig: core.PoolConfig{
			MaxConnections:         DefaultMaxConnections,
			MaxIdleConnections:     DefaultMaxIdleConnections,
			ConnectionTimeout:      DefaultConnectionTimeout,
			IdleTimeout:            DefaultIdleTimeout,
			HealthCheckInterval:    DefaultHealthCheckInterval,
			MaxRetries:             DefaultMaxRetries,
			RetryBackoff:           DefaultRetryBackoff,
			ProbeTimeout:           DefaultProbeTimeout,
			MaxProbeConcurrency:    DefaultMaxProbeConcurrency,
			MaxConsecutiveFailures: DefaultMaxConsecutiveFailures,
			Clock:                  clock.RealClock{},
		},
	}
}

// toPoolConfig returns the embedded core.PoolConfig.
func (c managerConfig) toPoolConfig() core.PoolConfig {
	return c.PoolConfig
}
