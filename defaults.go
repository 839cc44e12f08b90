package kubepool

import "time"

// Default configuration values for New. These constants are exported so
// callers can build custom configurations relative to them (e.g.,
// 2 * DefaultIdleTimeout).
const (
	// DefaultMaxConnections caps the number of pooled connections.
	DefaultMaxConnections = 100

	// DefaultMaxIdleConnections is the number of idle connections the
	// sweeper lets linger; beyond it, oldest-idle entries are evicted.
	DefaultMaxIdleConnections = 10

	// DefaultConnectionTimeout bounds a single creation attempt (client
	// construction plus validation probe) and becomes the client-side
	// request timeout of sessions built from the kubeconfig.
	DefaultConnectionTimeout = 30 * time.Second

	// DefaultIdleTimeout is how long a connection may go unused before
	// the sweeper removes it. The sweeper ticks at half this interval.
	DefaultIdleTimeout = 5 * time.Minute

	// DefaultHealthCheckInterval is the cadence of the health-check
	// dispatcher.
	DefaultHealthCheckInterval = 30 * time.Second

	// DefaultMaxRetries is the number of creation attempts before
	// GetConnection fails with ErrConnectionFailed.
	DefaultMaxRetries = 3

	// DefaultRetryBackoff is the pause between failed creation attempts
	// and the delay before an asynchronous reconnection probe.
	DefaultRetryBackoff = 5 * time.Second

	// DefaultProbeTimeout bounds a single health probe.
	DefaultProbeTimeout = 5 * time.Second

	// DefaultMaxProbeConcurrency bounds the number of in-flight health
	// probes across the whole pool.
	DefaultMaxProbeConcurrency = 10

	// DefaultMaxConsecutiveFailures is the number of consecutive failed
	// probes after which an unhealthy connection is evicted outright.
	// Configure 0 via WithMaxConsecutiveFailures to disable forced
	// eviction.
	DefaultMaxConsecutiveFailures = 5
)
