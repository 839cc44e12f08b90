package kubepool

import (
	"context"
	"time"

	"k8s.io/client-go/kubernetes"
)

// ClientFactory builds an authenticated client for a cluster identity. The
// pool wraps it with retry, backoff, and probe validation. The context
// carries the per-attempt connection timeout.
type ClientFactory func(ctx context.Context, cluster string) (kubernetes.Interface, error)

// Manager is the pooling façade over a set of discovered clusters.
//
// Callers construct one with New, share it across goroutines, and Close it
// when done. All methods are safe for concurrent use.
type Manager interface {
	// GetConnection returns a pooled client session for the named cluster,
	// creating one on demand with retry and backoff. The context bounds
	// the whole creation loop.
	//
	// Returns ErrUnknownCluster for identities not present in the
	// discovered context set, ErrConnectionFailed when retries are
	// exhausted, ErrPoolExhausted at capacity with no idle victim, and
	// ErrPoolClosed after Close.
	GetConnection(ctx context.Context, cluster string) (kubernetes.Interface, error)

	// GetConnectionWithTimeout is GetConnection with a caller-supplied
	// hard bound instead of a context.
	GetConnectionWithTimeout(cluster string, timeout time.Duration) (kubernetes.Interface, error)

	// PrewarmConnections establishes sessions for the given clusters
	// concurrently, aggregating any per-cluster failures into one combined
	// error. A nil or empty slice prewarms every discovered cluster.
	PrewarmConnections(ctx context.Context, clusters []string) error

	// Clusters returns the names of the currently discovered kubeconfig
	// contexts, in no particular order.
	Clusters() []string

	// HealthCheck reports, per discovered cluster, whether the pool holds
	// a usable (Active or Idle) session for it. Clusters without a pooled
	// session report false.
	HealthCheck() map[string]bool

	// GetMetrics returns an immutable snapshot of the pool's metrics.
	GetMetrics() MetricsSnapshot

	// GetConnectionStats returns the aggregate connection counts, derived
	// from the registry at one instant.
	GetConnectionStats() ConnectionStats

	// GetConnectionDetails returns a per-connection snapshot for
	// dashboards and debugging.
	GetConnectionDetails() []ConnectionInfo

	// RecordRequestDuration feeds the request-latency window consumed by
	// GetMetrics().AvgRequestTime. Callers time their own API requests
	// and report them here.
	RecordRequestDuration(d time.Duration)

	// Close stops the kubeconfig watcher and the pool's background
	// workers, waits for in-flight probes to drain, and drops all pooled
	// sessions. Safe to call multiple times.
	Close() error
}
