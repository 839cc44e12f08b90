package kubepool

import (
	"github.com/giantswarm/kubepool/internal/core"
	"github.com/giantswarm/kubepool/internal/kubeclient"
)

// ConnState is the health/usage state of a pooled connection.
//
// ConnState is a type alias (not a named type) so that the underlying
// [core.ConnState] methods are part of the public API:
//
//   - IsValid reports whether the value is a recognized state.
//   - String returns the state name (implements [fmt.Stringer]).
//
// New methods added to core.ConnState automatically become part of the
// public API through this alias.
type ConnState = core.ConnState

const (
	// StateActive marks a connection used recently.
	StateActive = core.StateActive

	// StateIdle marks a connection unused for over half the idle timeout;
	// idle connections are the only candidates for eviction.
	StateIdle = core.StateIdle

	// StateUnhealthy marks a connection whose last probe failed.
	StateUnhealthy = core.StateUnhealthy

	// StateEvicted marks a connection removed from the registry.
	StateEvicted = core.StateEvicted
)

// MetricsSnapshot is an immutable view of the pool's counters, derived
// rates, and mean timings. See [core.MetricsSnapshot] for field semantics.
type MetricsSnapshot = core.MetricsSnapshot

// ConnectionStats summarizes the registry at one instant:
// Total == Active + Idle + Unhealthy, Healthy == Active + Idle.
type ConnectionStats = core.ConnectionStats

// ConnectionInfo is an immutable per-connection snapshot exposed through
// GetConnectionDetails.
type ConnectionInfo = core.ConnectionInfo

// ClusterInfo describes one discovered kubeconfig context: the context
// name (used as the cluster identity), its API endpoint, and its default
// namespace.
type ClusterInfo = kubeclient.ClusterInfo

// ConnectError reports that establishing and validating a session
// exhausted all retries. It matches ErrConnectionFailed via errors.Is and
// unwraps to the last attempt's error.
type ConnectError = core.ConnectError
