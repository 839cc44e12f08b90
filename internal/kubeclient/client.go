package kubeclient

import (
	"context"
	"fmt"
	"time"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/giantswarm/kubepool/internal/sentinel"
)

// ErrInvalidKubeconfig is returned when the kubeconfig file cannot be read
// or parsed, or when it defines no contexts. Configuration errors are
// surfaced immediately and never retried.
const ErrInvalidKubeconfig = sentinel.Error("invalid kubeconfig")

// ClusterInfo describes one named context from the kubeconfig: the context
// name used as the cluster identity, the API endpoint it points at, and its
// default namespace.
type ClusterInfo struct {
	Name      string
	Server    string
	Namespace string
}

// Contexts parses the kubeconfig at path and returns its named contexts
// keyed by name. A context without an explicit namespace defaults to
// "default". Fails with ErrInvalidKubeconfig when the file cannot be
// loaded or defines no contexts.
func Contexts(path string) (map[string]ClusterInfo, error) {
	cfg, err := clientcmd.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load kubeconfig %q: %w: %w", path, ErrInvalidKubeconfig, err)
	}

	if len(cfg.Contexts) == 0 {
		return nil, fmt.Errorf("kubeconfig %q defines no contexts: %w", path, ErrInvalidKubeconfig)
	}

	clusters := make(map[string]ClusterInfo, len(cfg.Contexts))
	for name, kctx := range cfg.Contexts {
		if kctx == nil {
			continue
		}
		info := ClusterInfo{
			Name:      name,
			Namespace: kctx.Namespace,
		}
		if info.Namespace == "" {
			info.Namespace = "default"
		}
		if cluster, ok := cfg.Clusters[kctx.Cluster]; ok && cluster != nil {
			info.Server = cluster.Server
		}
		clusters[name] = info
	}
	return clusters, nil
}

// RESTConfig builds a rest.Config for the named context of the kubeconfig
// at path, with the client-side request timeout applied. An empty
// contextName selects the kubeconfig's current context.
func RESTConfig(path, contextName string, timeout time.Duration) (*rest.Config, error) {
	loader := &clientcmd.ClientConfigLoadingRules{ExplicitPath: path}
	overrides := &clientcmd.ConfigOverrides{CurrentContext: contextName}

	cfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loader, overrides).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("client config for context %q: %w: %w", contextName, ErrInvalidKubeconfig, err)
	}

	cfg.Timeout = timeout
	return cfg, nil
}

// NewFactory returns a factory that builds an authenticated clientset for
// a cluster identity by resolving it as a context name in the kubeconfig
// at path. The returned function matches the pool's client factory shape;
// timeout becomes the clientset's request timeout.
//
// Client construction is local (no network I/O); the ctx parameter exists
// for factory implementations that do dial eagerly.
func NewFactory(path string, timeout time.Duration) func(ctx context.Context, cluster string) (kubernetes.Interface, error) {
	return func(_ context.Context, cluster string) (kubernetes.Interface, error) {
		restCfg, err := RESTConfig(path, cluster, timeout)
		if err != nil {
			return nil, err
		}
		client, err := kubernetes.NewForConfig(restCfg)
		if err != nil {
			return nil, fmt.Errorf("build clientset for context %q: %w", cluster, err)
		}
		return client, nil
	}
}
