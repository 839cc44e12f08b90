// Package kubepool provides a connection pool for authenticated Kubernetes
// API-client sessions across multiple clusters.
//
// kubepool discovers the named contexts of a kubeconfig file and hands out
// shared client sessions keyed by context name. Sessions are created on
// demand with retry and backoff, validated with a cheap probe, reused
// across concurrent callers, and continuously health-checked and
// idle-swept by two background workers.
//
// # Basic Usage
//
//	import "github.com/giantswarm/kubepool"
//
//	ctx := context.Background()
//
//	mgr, err := kubepool.New("/home/me/.kube/config")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer mgr.Close()
//
//	client, err := mgr.GetConnection(ctx, "prod-eu-west")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	pods, err := client.CoreV1().Pods("default").List(ctx, metav1.ListOptions{})
//	// ...
//
// # Warming and Health
//
// Dashboards that know their cluster set up front can prewarm it and poll
// per-cluster health:
//
//	if err := mgr.PrewarmConnections(ctx, nil); err != nil {
//	    log.Printf("prewarm: %v", err) // aggregated, partial failures included
//	}
//	for cluster, healthy := range mgr.HealthCheck() {
//	    log.Printf("%s healthy=%v", cluster, healthy)
//	}
//
// # Failure Semantics
//
// A failing GetConnection distinguishes "never reachable" from
// "temporarily out of capacity": ErrConnectionFailed means retries were
// exhausted establishing a session (the wrapped last error says why),
// while ErrPoolExhausted means the pool is at capacity with no idle
// connection to evict and the caller should back off. Background probe
// failures are never surfaced as errors; they show up in connection state
// and metrics only.
package kubepool
