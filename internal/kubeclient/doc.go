// Package kubeclient loads cluster credentials from a kubeconfig file:
// it enumerates the named contexts for discovery and builds authenticated
// clientsets scoped to a context for the pool's client factory.
package kubeclient
