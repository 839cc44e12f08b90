package core

import (
	"fmt"

	"github.com/giantswarm/kubepool/internal/sentinel"
)

// ErrPoolClosed is returned when GetConnection is called on a closed pool
// (e.g., during shutdown).
const ErrPoolClosed = sentinel.Error("pool is closed")

// ErrPoolExhausted is returned when the pool is at capacity and no idle
// connection can be evicted to make room. Active connections are never
// force-evicted, so callers should back off and retry rather than retrying
// immediately.
const ErrPoolExhausted = sentinel.Error("pool exhausted: no idle connection to evict")

// ErrConnectionFailed is the sentinel matched by *ConnectError via
// errors.Is. It marks a session that could not be established and validated
// within the configured number of retries.
const ErrConnectionFailed = sentinel.Error("connection failed")

// ConnectError reports that establishing and validating a session for a
// cluster exhausted all retries. It matches ErrConnectionFailed via
// errors.Is and unwraps to the last attempt's error, so callers can inspect
// both the taxonomy and the underlying cause.
type ConnectError struct {
	// Cluster is the cluster identity the connection was being built for.
	Cluster string
	// Attempts is the number of creation attempts made.
	Attempts int
	// Err is the error from the final attempt.
	Err error
}

// Error implements the error interface.
func (e *ConnectError) Error() string {
	return fmt.Sprintf("connecting to cluster %q failed after %d attempts: %v", e.Cluster, e.Attempts, e.Err)
}

// Unwrap returns the last attempt's error.
func (e *ConnectError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrConnectionFailed, letting callers use
// errors.Is(err, ErrConnectionFailed) without knowing the concrete type.
func (e *ConnectError) Is(target error) bool {
	return target == ErrConnectionFailed
}
