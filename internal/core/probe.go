package core

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// probeClient issues the cheap bounded read used to test reachability: a
// namespace list capped at one item. The result is discarded; only the
// round trip matters. The same probe validates freshly built clients and
// drives the health checker, so both paths agree on what "reachable" means.
func probeClient(ctx context.Context, client kubernetes.Interface) error {
	if _, err := client.CoreV1().Namespaces().List(ctx, metav1.ListOptions{Limit: 1}); err != nil {
		return fmt.Errorf("probe namespace list: %w", err)
	}
	return nil
}
