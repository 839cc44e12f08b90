package kubepool_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/giantswarm/kubepool"
)

// kubeconfigWithContexts renders a minimal kubeconfig defining one context
// per name, each pointing at its own cluster entry.
func kubeconfigWithContexts(names ...string) string {
	var b strings.Builder
	b.WriteString("apiVersion: v1\nkind: Config\n")
	b.WriteString("current-context: " + names[0] + "\n")
	b.WriteString("clusters:\n")
	for _, name := range names {
		b.WriteString("- name: " + name + "-cluster\n")
		b.WriteString("  cluster:\n")
		b.WriteString("    server: https://" + name + ".example.com:6443\n")
	}
	b.WriteString("contexts:\n")
	for _, name := range names {
		b.WriteString("- name: " + name + "\n")
		b.WriteString("  context:\n")
		b.WriteString("    cluster: " + name + "-cluster\n")
		b.WriteString("    user: " + name + "-user\n")
	}
	b.WriteString("users:\n")
	for _, name := range names {
		b.WriteString("- name: " + name + "-user\n")
		b.WriteString("  user:\n")
		b.WriteString("    token: " + name + "-token\n")
	}
	return b.String()
}

// writeKubeconfig writes contents to a temp file and returns its path.
func writeKubeconfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kubeconfig")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing kubeconfig fixture: %v", err)
	}
	return path
}

// fakeFactory returns a factory producing fake clientsets for every
// cluster, so manager tests never touch a real control plane.
func fakeFactory() kubepool.ClientFactory {
	return func(_ context.Context, _ string) (kubernetes.Interface, error) {
		return fake.NewSimpleClientset(), nil
	}
}

// factoryFailingFor returns a factory that fails for the named cluster and
// serves fakes for everything else.
func factoryFailingFor(down string) kubepool.ClientFactory {
	return func(_ context.Context, cluster string) (kubernetes.Interface, error) {
		if cluster == down {
			return nil, errors.New("dial tcp: connection refused")
		}
		return fake.NewSimpleClientset(), nil
	}
}

// waitFor polls cond until it holds or the timeout expires.
func waitFor(t *testing.T, timeout time.Duration, msg string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s: %s", timeout, msg)
}

// TestNewRejectsBadKubeconfigs verifies construction fails fast with
// ErrInvalidKubeconfig for unusable inputs.
func TestNewRejectsBadKubeconfigs(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		path func(t *testing.T) string
	}{
		"empty path": {
			path: func(t *testing.T) string {
				t.Helper()
				return ""
			},
		},
		"missing file": {
			path: func(t *testing.T) string {
				t.Helper()
				return filepath.Join(t.TempDir(), "nope")
			},
		},
		"no contexts": {
			path: func(t *testing.T) string {
				t.Helper()
				return writeKubeconfig(t, "apiVersion: v1\nkind: Config\n")
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := kubepool.New(tc.path(t))
			if !errors.Is(err, kubepool.ErrInvalidKubeconfig) {
				t.Errorf("New error = %v, want ErrInvalidKubeconfig", err)
			}
		})
	}
}

// TestManagerClusterDiscovery verifies context enumeration and per-cluster
// discovery records.
func TestManagerClusterDiscovery(t *testing.T) {
	t.Parallel()

	path := writeKubeconfig(t, kubeconfigWithContexts("prod", "staging"))
	m, err := kubepool.New(path, kubepool.WithClientFactory(fakeFactory()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer m.Close()

	clusters := m.Clusters()
	sort.Strings(clusters)
	if want := []string{"prod", "staging"}; !equalStrings(clusters, want) {
		t.Errorf("Clusters() = %v, want %v", clusters, want)
	}

	info, ok := m.ClusterInfo("prod")
	if !ok {
		t.Fatal("ClusterInfo(prod) not found")
	}
	if info.Server != "https://prod.example.com:6443" {
		t.Errorf("prod Server = %q, want the prod endpoint", info.Server)
	}
	if info.Namespace != "default" {
		t.Errorf("prod Namespace = %q, want %q", info.Namespace, "default")
	}
	if _, ok := m.ClusterInfo("absent"); ok {
		t.Error("ClusterInfo(absent) should not be found")
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// TestManagerGetConnection verifies the façade's get path: known clusters
// pool sessions, unknown identities fail without touching the pool.
func TestManagerGetConnection(t *testing.T) {
	t.Parallel()

	path := writeKubeconfig(t, kubeconfigWithContexts("prod"))
	m, err := kubepool.New(path, kubepool.WithClientFactory(fakeFactory()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer m.Close()

	first, err := m.GetConnection(t.Context(), "prod")
	if err != nil {
		t.Fatalf("GetConnection(prod) failed: %v", err)
	}
	second, err := m.GetConnection(t.Context(), "prod")
	if err != nil {
		t.Fatalf("second GetConnection(prod) failed: %v", err)
	}
	if first != second {
		t.Error("repeated gets for one cluster should share a session")
	}

	_, err = m.GetConnection(t.Context(), "absent")
	if !errors.Is(err, kubepool.ErrUnknownCluster) {
		t.Errorf("GetConnection(absent) error = %v, want ErrUnknownCluster", err)
	}

	snap := m.GetMetrics()
	if snap.Misses != 1 || snap.Hits != 1 {
		t.Errorf("hits/misses = %d/%d, want 1/1 (unknown cluster bypasses the pool)", snap.Hits, snap.Misses)
	}
	if stats := m.GetConnectionStats(); stats.Total != 1 {
		t.Errorf("stats.Total = %d, want 1", stats.Total)
	}
	if details := m.GetConnectionDetails(); len(details) != 1 || details[0].Cluster != "prod" {
		t.Errorf("details = %+v, want one entry for prod", details)
	}
}

// TestManagerPrewarmConnections verifies prewarm fans out over all
// discovered clusters, aggregates per-cluster failures, and leaves the
// reachable sessions pooled.
func TestManagerPrewarmConnections(t *testing.T) {
	t.Parallel()

	path := writeKubeconfig(t, kubeconfigWithContexts("prod", "staging", "dev"))
	m, err := kubepool.New(path,
		kubepool.WithClientFactory(factoryFailingFor("staging")),
		kubepool.WithMaxRetries(1),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer m.Close()

	err = m.PrewarmConnections(t.Context(), nil)
	if err == nil {
		t.Fatal("prewarm with one unreachable cluster should fail")
	}
	if !errors.Is(err, kubepool.ErrConnectionFailed) {
		t.Errorf("error = %v, want to match ErrConnectionFailed", err)
	}
	if !strings.Contains(err.Error(), `"staging"`) {
		t.Errorf("error %q should name the failing cluster", err)
	}

	if stats := m.GetConnectionStats(); stats.Total != 2 {
		t.Errorf("stats.Total = %d, want 2 (reachable clusters pooled)", stats.Total)
	}

	health := m.HealthCheck()
	want := map[string]bool{"prod": true, "dev": true, "staging": false}
	if len(health) != len(want) {
		t.Fatalf("HealthCheck() = %v, want %v", health, want)
	}
	for cluster, healthy := range want {
		if health[cluster] != healthy {
			t.Errorf("HealthCheck()[%q] = %v, want %v", cluster, health[cluster], healthy)
		}
	}
}

// TestManagerPrewarmSubset verifies an explicit cluster list prewarms only
// those clusters.
func TestManagerPrewarmSubset(t *testing.T) {
	t.Parallel()

	path := writeKubeconfig(t, kubeconfigWithContexts("prod", "staging"))
	m, err := kubepool.New(path, kubepool.WithClientFactory(fakeFactory()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer m.Close()

	if err := m.PrewarmConnections(t.Context(), []string{"prod"}); err != nil {
		t.Fatalf("prewarm failed: %v", err)
	}
	if stats := m.GetConnectionStats(); stats.Total != 1 {
		t.Errorf("stats.Total = %d, want 1", stats.Total)
	}

	err = m.PrewarmConnections(t.Context(), []string{"absent"})
	if !errors.Is(err, kubepool.ErrUnknownCluster) {
		t.Errorf("prewarm(absent) error = %v, want ErrUnknownCluster", err)
	}
}

// TestManagerMetricsSurface verifies request-latency recording and the
// metrics reset.
func TestManagerMetricsSurface(t *testing.T) {
	t.Parallel()

	path := writeKubeconfig(t, kubeconfigWithContexts("prod"))
	m, err := kubepool.New(path, kubepool.WithClientFactory(fakeFactory()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer m.Close()

	m.RecordRequestDuration(10 * time.Millisecond)
	m.RecordRequestDuration(20 * time.Millisecond)
	if got := m.GetMetrics().AvgRequestTime; got != 15*time.Millisecond {
		t.Errorf("AvgRequestTime = %v, want 15ms", got)
	}

	m.ResetMetrics()
	snap := m.GetMetrics()
	if snap.AvgRequestTime != 0 || snap.Hits != 0 || snap.Misses != 0 {
		t.Errorf("snapshot after reset = %+v, want zeroed", snap)
	}
}

// TestManagerCloseIdempotent verifies Close can be called repeatedly and
// leaves the manager rejecting new work.
func TestManagerCloseIdempotent(t *testing.T) {
	t.Parallel()

	path := writeKubeconfig(t, kubeconfigWithContexts("prod"))
	m, err := kubepool.New(path, kubepool.WithClientFactory(fakeFactory()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := m.GetConnection(t.Context(), "prod"); err != nil {
		t.Fatalf("GetConnection failed: %v", err)
	}

	if err := m.Close(); err != nil {
		t.Errorf("first Close = %v, want nil", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}

	if stats := m.GetConnectionStats(); stats.Total != 0 {
		t.Errorf("stats.Total = %d, want 0 after Close", stats.Total)
	}
	if _, err := m.GetConnection(t.Context(), "prod"); !errors.Is(err, kubepool.ErrPoolClosed) {
		t.Errorf("GetConnection after Close = %v, want ErrPoolClosed", err)
	}
}

// TestManagerWatchKubeconfigReload verifies hot-reload: rewriting the
// kubeconfig makes newly added contexts resolvable without a restart, and
// a broken rewrite keeps the previous set.
func TestManagerWatchKubeconfigReload(t *testing.T) {
	t.Parallel()

	path := writeKubeconfig(t, kubeconfigWithContexts("prod"))
	m, err := kubepool.New(path,
		kubepool.WithClientFactory(fakeFactory()),
		kubepool.WithWatchKubeconfig(),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer m.Close()

	if _, err := m.GetConnection(t.Context(), "staging"); !errors.Is(err, kubepool.ErrUnknownCluster) {
		t.Fatalf("staging before reload: error = %v, want ErrUnknownCluster", err)
	}

	if err := os.WriteFile(path, []byte(kubeconfigWithContexts("prod", "staging")), 0o600); err != nil {
		t.Fatalf("rewriting kubeconfig: %v", err)
	}
	waitFor(t, 3*time.Second, "staging context discovered after rewrite", func() bool {
		return len(m.Clusters()) == 2
	})
	if _, err := m.GetConnection(t.Context(), "staging"); err != nil {
		t.Errorf("staging after reload: %v", err)
	}

	// A half-written kubeconfig must not wipe discovery.
	if err := os.WriteFile(path, []byte("{{{ not yaml"), 0o600); err != nil {
		t.Fatalf("corrupting kubeconfig: %v", err)
	}
	time.Sleep(100 * time.Millisecond) // give the watcher a chance to react
	if got := len(m.Clusters()); got != 2 {
		t.Errorf("clusters after broken rewrite = %d, want 2 (previous set kept)", got)
	}
}
