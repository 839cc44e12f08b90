package kubepool

import (
	"fmt"
	"time"
)

// requirePositive panics if v <= 0 with a descriptive message.
func requirePositive[T int | int64 | time.Duration](name string, v T) {
	if v <= 0 {
		panic(fmt.Sprintf("kubepool: %s must be greater than 0, got %v", name, v))
	}
}

// Option configures a ClusterManager during construction via New.
// Each With* function returns an Option that sets a specific field.
//
// Several With* functions panic on invalid input (non-positive sizes or
// durations, nil factories). These panics are intentional: option values
// are typically compile-time constants, so an invalid value indicates a
// programmer error rather than a runtime condition. The pattern mirrors
// [regexp.MustCompile]: fail fast during initialization instead of
// returning errors that would be universally fatal anyway.
type Option func(*managerConfig)

// WithMaxConnections caps the number of pooled connections. At capacity,
// GetConnection for a new cluster evicts the oldest idle connection or
// fails with ErrPoolExhausted when none is idle.
//
// Default: 100.
//
// Panics if n <= 0.
func WithMaxConnections(n int) Option {
	requirePositive("max connections", n)
	return func(c *managerConfig) {
		c.MaxConnections = n
	}
}

// WithMaxIdleConnections sets how many idle connections the sweeper allows
// to linger. Beyond the cap, oldest-idle entries are evicted on the next
// sweep even before their idle timeout expires. A value of 0 means idle
// connections survive only until the idle timeout.
//
// Default: 10.
//
// Panics if n < 0.
func WithMaxIdleConnections(n int) Option {
	if n < 0 {
		panic(fmt.Sprintf("kubepool: max idle connections must not be negative, got %d", n))
	}
	return func(c *managerConfig) {
		c.MaxIdleConnections = n
	}
}

// WithConnectionTimeout bounds a single creation attempt (client
// construction plus validation probe) and becomes the client-side request
// timeout of sessions built from the kubeconfig.
//
// Default: 30 seconds.
//
// Panics if d <= 0.
func WithConnectionTimeout(d time.Duration) Option {
	requirePositive("connection timeout", d)
	return func(c *managerConfig) {
		c.ConnectionTimeout = d
	}
}

// WithIdleTimeout sets how long a connection may go unused before the
// sweeper removes it. The sweeper ticks at half this interval, and a
// connection counts as idle once unused for over half of it.
//
// Default: 5 minutes.
//
// Panics if d <= 0.
func WithIdleTimeout(d time.Duration) Option {
	requirePositive("idle timeout", d)
	return func(c *managerConfig) {
		c.IdleTimeout = d
	}
}

// WithHealthCheckInterval sets the cadence of the background health-check
// dispatcher.
//
// Default: 30 seconds.
//
// Panics if d <= 0.
func WithHealthCheckInterval(d time.Duration) Option {
	requirePositive("health check interval", d)
	return func(c *managerConfig) {
		c.HealthCheckInterval = d
	}
}

// WithMaxRetries sets the number of creation attempts before GetConnection
// fails with ErrConnectionFailed.
//
// Default: 3.
//
// Panics if n <= 0.
func WithMaxRetries(n int) Option {
	requirePositive("max retries", n)
	return func(c *managerConfig) {
		c.MaxRetries = n
	}
}

// WithRetryBackoff sets the pause between failed creation attempts and the
// delay before an asynchronous reconnection probe.
//
// Default: 5 seconds.
//
// Panics if d <= 0.
func WithRetryBackoff(d time.Duration) Option {
	requirePositive("retry backoff", d)
	return func(c *managerConfig) {
		c.RetryBackoff = d
	}
}

// WithProbeTimeout bounds a single health probe.
//
// Default: 5 seconds.
//
// Panics if d <= 0.
func WithProbeTimeout(d time.Duration) Option {
	requirePositive("probe timeout", d)
	return func(c *managerConfig) {
		c.ProbeTimeout = d
	}
}

// WithMaxProbeConcurrency bounds the number of in-flight health probes so
// a sweep over a large registry cannot pile up goroutines.
//
// Default: 10.
//
// Panics if n <= 0.
func WithMaxProbeConcurrency(n int64) Option {
	requirePositive("max probe concurrency", n)
	return func(c *managerConfig) {
		c.MaxProbeConcurrency = n
	}
}

// WithMaxConsecutiveFailures sets the number of consecutive failed probes
// after which an unhealthy connection is evicted outright, forcing the
// next GetConnection to rebuild it from scratch. 0 disables forced
// eviction: a permanently unreachable cluster then stays registered as
// Unhealthy and is re-probed on every health-check pass.
//
// Default: 5.
//
// Panics if n < 0.
func WithMaxConsecutiveFailures(n int) Option {
	if n < 0 {
		panic(fmt.Sprintf("kubepool: max consecutive failures must not be negative, got %d", n))
	}
	return func(c *managerConfig) {
		c.MaxConsecutiveFailures = n
	}
}

// WithClientFactory replaces the kubeconfig-backed client factory. The
// pool still wraps the factory with its retry loop and validation probe.
// Useful for custom transports (e.g., wrapping rest.Config with metrics
// round-trippers) and for tests injecting fake clientsets.
//
// Panics if f is nil.
func WithClientFactory(f ClientFactory) Option {
	if f == nil {
		panic("kubepool: client factory must not be nil")
	}
	return func(c *managerConfig) {
		c.factory = f
	}
}

// WithWatchKubeconfig enables hot-reload of cluster discovery: the manager
// watches the kubeconfig file and re-enumerates its contexts when the file
// changes, so newly added contexts become poolable without a restart.
// Contexts removed from the file stop resolving; their pooled sessions age
// out through the idle sweeper.
func WithWatchKubeconfig() Option {
	return func(c *managerConfig) {
		c.watchKubeconfig = true
	}
}
