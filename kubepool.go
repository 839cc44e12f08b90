package kubepool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"k8s.io/client-go/kubernetes"

	"github.com/giantswarm/kubepool/internal/core"
	"github.com/giantswarm/kubepool/internal/kubeclient"
)

// Compile-time interface satisfaction check.
var _ Manager = (*ClusterManager)(nil)

// ClusterManager bridges kubeconfig context discovery with the connection
// pool. It is an explicitly constructed, dependency-injected value with no
// package-level state; create as many independent managers as needed.
//
// Synchronization strategy:
//   - pool is set once by New and internally synchronized.
//   - mu guards the discovered cluster map, which the fsnotify reload path
//     swaps while readers resolve identities.
//   - Close is idempotent via closeOnce; the watcher goroutine is joined
//     through watchDone.
type ClusterManager struct {
	kubeconfigPath string
	pool           *core.Pool

	mu       sync.RWMutex
	clusters map[string]ClusterInfo

	// watcher is nil unless WithWatchKubeconfig was given.
	watcher   *fsnotify.Watcher
	watchDone chan struct{}

	closeOnce sync.Once
}

// New discovers the named contexts of the kubeconfig at kubeconfigPath and
// returns a ClusterManager pooling sessions for them. The pool's
// background workers start immediately; call Close to stop them.
//
// A kubeconfig that cannot be read or parsed, or that defines no contexts,
// fails with ErrInvalidKubeconfig.
//
// Panics if any option receives an invalid value. See individual With*
// functions for constraints.
func New(kubeconfigPath string, opts ...Option) (*ClusterManager, error) {
	if kubeconfigPath == "" {
		return nil, fmt.Errorf("kubeconfig path must not be empty: %w", ErrInvalidKubeconfig)
	}

	cfg := defaultManagerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	clusters, err := kubeclient.Contexts(kubeconfigPath)
	if err != nil {
		return nil, fmt.Errorf("discover clusters: %w", err)
	}

	factory := cfg.factory
	if factory == nil {
		factory = kubeclient.NewFactory(kubeconfigPath, cfg.ConnectionTimeout)
	}
	cfg.Factory = core.ClientFactory(factory)

	m := &ClusterManager{
		kubeconfigPath: kubeconfigPath,
		pool:           core.NewPool(cfg.toPoolConfig()),
		clusters:       clusters,
	}

	if cfg.watchKubeconfig {
		if err := m.startWatcher(); err != nil {
			m.pool.Close()
			return nil, err
		}
	}

	core.Logger().Info("cluster manager ready",
		"kubeconfig", kubeconfigPath, "clusters", len(clusters), "watch", cfg.watchKubeconfig)
	return m, nil
}

// GetConnection returns a pooled client session for the named cluster,
// creating one on demand. See Manager.GetConnection for error semantics.
func (m *ClusterManager) GetConnection(ctx context.Context, cluster string) (kubernetes.Interface, error) {
	if _, ok := m.lookupCluster(cluster); !ok {
		return nil, fmt.Errorf("cluster %q: %w", cluster, ErrUnknownCluster)
	}
	return m.pool.GetConnection(ctx, cluster)
}

// GetConnectionWithTimeout is GetConnection bounded by timeout instead of
// a caller context.
func (m *ClusterManager) GetConnectionWithTimeout(cluster string, timeout time.Duration) (kubernetes.Interface, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return m.GetConnection(ctx, cluster)
}

// PrewarmConnections establishes sessions for the given clusters
// concurrently. A nil or empty slice prewarms every discovered cluster.
// Per-cluster failures do not stop the others; they are aggregated into a
// single combined error.
func (m *ClusterManager) PrewarmConnections(ctx context.Context, clusters []string) error {
	if len(clusters) == 0 {
		clusters = m.Clusters()
	}

	// One goroutine per cluster, each writing its own slot; errors.Join
	// collapses the slice afterwards.
	errs := make([]error, len(clusters))
	var wg sync.WaitGroup
	for idx, cluster := range clusters {
		wg.Add(1)
		go func(pos int, name string) {
			defer wg.Done()
			if _, err := m.GetConnection(ctx, name); err != nil {
				errs[pos] = fmt.Errorf("prewarm cluster %q: %w", name, err)
			}
		}(idx, cluster)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("prewarm connections: %w", err)
	}
	return nil
}

// Clusters returns the names of the currently discovered contexts.
func (m *ClusterManager) Clusters() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.clusters))
	for name := range m.clusters {
		names = append(names, name)
	}
	return names
}

// ClusterInfo returns the discovery record for the named cluster.
func (m *ClusterManager) ClusterInfo(cluster string) (ClusterInfo, bool) {
	return m.lookupCluster(cluster)
}

// HealthCheck reports, per discovered cluster, whether the pool holds a
// usable session for it. The map is keyed by cluster identity: each entry
// reflects that cluster's own connection state, never a pool-wide
// aggregate. Clusters that have no pooled session yet report false.
func (m *ClusterManager) HealthCheck() map[string]bool {
	m.mu.RLock()
	names := make([]string, 0, len(m.clusters))
	for name := range m.clusters {
		names = append(names, name)
	}
	m.mu.RUnlock()

	health := make(map[string]bool, len(names))
	for _, name := range names {
		health[name] = m.pool.ConnectionHealthy(name)
	}
	return health
}

// GetMetrics returns an immutable snapshot of the pool's metrics.
func (m *ClusterManager) GetMetrics() MetricsSnapshot {
	return m.pool.Metrics().Snapshot()
}

// GetConnectionStats returns aggregate connection counts derived from the
// registry at one instant.
func (m *ClusterManager) GetConnectionStats() ConnectionStats {
	return m.pool.Stats()
}

// GetConnectionDetails returns a per-connection snapshot for dashboards.
func (m *ClusterManager) GetConnectionDetails() []ConnectionInfo {
	return m.pool.ConnectionDetails()
}

// RecordRequestDuration feeds the request-latency window consumed by
// GetMetrics().AvgRequestTime.
func (m *ClusterManager) RecordRequestDuration(d time.Duration) {
	m.pool.Metrics().RecordRequestDuration(d)
}

// ResetMetrics zeroes all pool metrics. Operator surface; the manager
// never calls it internally.
func (m *ClusterManager) ResetMetrics() {
	m.pool.Metrics().Reset()
}

// Close stops the kubeconfig watcher (if any) and the pool, blocking until
// both background workers and all in-flight probes have exited and every
// pooled session has been dropped. Safe to call multiple times
// (idempotent); always returns nil today, the error return is for
// interface stability.
func (m *ClusterManager) Close() error {
	m.closeOnce.Do(func() {
		if m.watcher != nil {
			if err := m.watcher.Close(); err != nil {
				core.Logger().Warn("failed to close kubeconfig watcher", "error", err)
			}
			<-m.watchDone
		}
		m.pool.Close()
	})
	return nil
}

// lookupCluster resolves a cluster identity against the discovered set.
func (m *ClusterManager) lookupCluster(cluster string) (ClusterInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.clusters[cluster]
	return info, ok
}

// startWatcher begins watching the kubeconfig file for changes.
func (m *ClusterManager) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create kubeconfig watcher: %w", err)
	}
	if err := watcher.Add(m.kubeconfigPath); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch kubeconfig %q: %w", m.kubeconfigPath, err)
	}

	m.watcher = watcher
	m.watchDone = make(chan struct{})
	go m.watchLoop()
	return nil
}

// watchLoop consumes fsnotify events until the watcher is closed. Write,
// Create, and Rename events re-run context discovery; kubectl and most
// editors replace the kubeconfig atomically, which arrives as Create or
// Rename rather than Write.
func (m *ClusterManager) watchLoop() {
	defer close(m.watchDone)

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				m.reloadClusters()
				// Re-add the path in case the file was replaced; a failure
				// here means the file is momentarily gone and the next
				// event-triggering rewrite will re-establish the watch.
				_ = m.watcher.Add(m.kubeconfigPath)
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			core.Logger().Warn("kubeconfig watcher error", "error", err)
		}
	}
}

// reloadClusters re-runs context discovery, keeping the previous cluster
// set when the new file is unreadable so a half-written kubeconfig cannot
// wipe discovery.
func (m *ClusterManager) reloadClusters() {
	clusters, err := kubeclient.Contexts(m.kubeconfigPath)
	if err != nil {
		core.Logger().Warn("kubeconfig reload failed; keeping previous clusters", "error", err)
		return
	}

	m.mu.Lock()
	m.clusters = clusters
	m.mu.Unlock()

	core.Logger().Info("kubeconfig reloaded", "clusters", len(clusters))
}
