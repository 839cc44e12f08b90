package kubepool

import (
	"github.com/giantswarm/kubepool/internal/core"
	"github.com/giantswarm/kubepool/internal/kubeclient"
	"github.com/giantswarm/kubepool/internal/sentinel"
)

// Sentinel errors for error inspection with errors.Is.
// These are immutable constants safe for use in wrapped error chain comparison.
const (
	// ErrPoolClosed is returned by GetConnection after Close.
	ErrPoolClosed = core.ErrPoolClosed

	// ErrPoolExhausted is returned when the pool is at capacity and no
	// idle connection can be evicted to make room. The condition is
	// temporary; callers should back off and retry.
	ErrPoolExhausted = core.ErrPoolExhausted

	// ErrConnectionFailed marks a session that could not be established
	// and validated within the configured retries. Matched by
	// *ConnectError, which wraps the final attempt's error.
	ErrConnectionFailed = core.ErrConnectionFailed

	// ErrInvalidKubeconfig is returned by New (and kubeconfig reloads)
	// when the kubeconfig cannot be read or parsed or defines no
	// contexts. Never retried.
	ErrInvalidKubeconfig = kubeclient.ErrInvalidKubeconfig
)

// ErrUnknownCluster is returned by GetConnection and PrewarmConnections
// when the requested cluster identity matches no discovered kubeconfig
// context.
const ErrUnknownCluster = sentinel.Error("unknown cluster context")
