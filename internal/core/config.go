package core

import (
	"errors"
	"fmt"
	"time"

	"k8s.io/utils/clock"
)

// PoolConfig holds configuration for a Pool.
//
// Concurrency contract: all fields are immutable after construction via
// NewPool. The background workers and the creation path read the tunables
// without synchronization, relying on this guarantee.
type PoolConfig struct {
	// MaxConnections caps the registry size. When the pool is at capacity
	// and no entry is idle, GetConnection fails with ErrPoolExhausted.
	// Default: 100.
	MaxConnections int

	// MaxIdleConnections is the number of idle connections the sweeper
	// allows to linger. After removing idle-timeout victims, the sweeper
	// evicts oldest-idle entries until at most this many remain idle.
	// Default: 10.
	MaxIdleConnections int

	// ConnectionTimeout bounds a single creation attempt: building the
	// client and validating it with a probe. Default: 30 seconds.
	ConnectionTimeout time.Duration

	// IdleTimeout is how long a connection may go unused before the
	// sweeper removes it. The sweeper ticks at half this interval.
	// Default: 5 minutes.
	IdleTimeout time.Duration

	// HealthCheckInterval is the cadence of the health-check dispatcher.
	// Default: 30 seconds.
	HealthCheckInterval time.Duration

	// MaxRetries is the number of creation attempts before GetConnection
	// gives up with a *ConnectError. Default: 3.
	MaxRetries int

	// RetryBackoff is the pause between failed creation attempts and the
	// delay before an asynchronous reconnection probe. Default: 5 seconds.
	RetryBackoff time.Duration

	// ProbeTimeout bounds a single health probe. Default: 5 seconds.
	ProbeTimeout time.Duration

	// MaxProbeConcurrency bounds the number of in-flight health probes so
	// a burst of slow clusters cannot pile up goroutines. Default: 10.
	MaxProbeConcurrency int64

	// MaxConsecutiveFailures is the number of consecutive failed probes
	// after which an unhealthy connection is evicted outright instead of
	// being re-probed forever. 0 disables forced eviction. Default: 5.
	MaxConsecutiveFailures int

	// Factory builds an authenticated client for a cluster identity. The
	// pool wraps it with the retry loop and probe validation.
	Factory ClientFactory

	// Clock supplies all timestamps, timers, and tickers. Inject a fake
	// from k8s.io/utils/clock/testing to drive sweeps in tests.
	Clock clock.WithTicker
}

// Validate checks all PoolConfig invariants and returns an error describing
// every violation found. It uses errors.Join to report multiple issues at
// once, allowing callers to fix all problems in a single pass.
//
// Validate is called by NewPool, which panics on error: invalid
// configuration is a programmer error that should be caught at construction
// time, similar to regexp.MustCompile.
func (c PoolConfig) Validate() error {
	var errs []error

	if c.MaxConnections <= 0 {
		errs = append(errs, fmt.Errorf("max connections must be greater than 0, got %d", c.MaxConnections))
	}
	if c.MaxIdleConnections < 0 {
		errs = append(errs, fmt.Errorf("max idle connections must not be negative, got %d", c.MaxIdleConnections))
	}
	if c.ConnectionTimeout <= 0 {
		errs = append(errs, fmt.Errorf("connection timeout must be greater than 0, got %s", c.ConnectionTimeout))
	}
	if c.IdleTimeout <= 0 {
		errs = append(errs, fmt.Errorf("idle timeout must be greater than 0, got %s", c.IdleTimeout))
	}
	if c.HealthCheckInterval <= 0 {
		errs = append(errs, fmt.Errorf("health check interval must be greater than 0, got %s", c.HealthCheckInterval))
	}
	if c.MaxRetries <= 0 {
		errs = append(errs, fmt.Errorf("max retries must be greater than 0, got %d", c.MaxRetries))
	}
	if c.RetryBackoff <= 0 {
		errs = append(errs, fmt.Errorf("retry backoff must be greater than 0, got %s", c.RetryBackoff))
	}
	if c.ProbeTimeout <= 0 {
		errs = append(errs, fmt.Errorf("probe timeout must be greater than 0, got %s", c.ProbeTimeout))
	}
	if c.MaxProbeConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("max probe concurrency must be greater than 0, got %d", c.MaxProbeConcurrency))
	}
	if c.MaxConsecutiveFailures < 0 {
		errs = append(errs, fmt.Errorf("max consecutive failures must not be negative, got %d", c.MaxConsecutiveFailures))
	}
	if c.Factory == nil {
		errs = append(errs, errors.New("client factory must not be nil"))
	}
	if c.Clock == nil {
		errs = append(errs, errors.New("clock must not be nil"))
	}

	return errors.Join(errs...)
}
