package core

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"k8s.io/utils/clock"
)

// ConnectionEvictor removes a connection from its registry after the health
// checker has given up on it. It breaks the dependency from HealthChecker
// back to Pool, allowing the checker to request eviction without knowing
// the concrete registry type.
//
// Implementations must be safe for concurrent use: evictions race with the
// request path and with other probe tasks on the same entry.
type ConnectionEvictor interface {
	// EvictUnhealthy removes c from the registry if it is still the
	// registered entry for its cluster. Stale pointers (the cluster was
	// already rebuilt or removed) are ignored.
	EvictUnhealthy(c *ClientConnection)
}

// HealthChecker probes pooled connections and drives their health-state
// transitions. A weighted semaphore bounds the number of concurrent probes
// so one sweep over a large registry cannot pile up goroutines, and a slow
// or unreachable cluster delays only its own probe task.
//
// Probe outcomes are never fatal to the pool: a failure degrades a single
// entry's availability and is visible only through connection state and
// metrics.
type HealthChecker struct {
	sem     *semaphore.Weighted
	cfg     PoolConfig
	clock   clock.WithTicker
	metrics *Metrics
	evictor ConnectionEvictor

	// checks and failures count probes issued by this checker, independent
	// of the pool-wide metrics.
	checks   atomic.Uint64
	failures atomic.Uint64

	// wg tracks asynchronous reconnection attempts so Wait can join them
	// during pool shutdown.
	wg sync.WaitGroup
}

// newHealthChecker creates a HealthChecker with cfg's probe tunables. The
// evictor is consulted when a connection reaches the consecutive-failure
// threshold.
func newHealthChecker(cfg PoolConfig, metrics *Metrics, evictor ConnectionEvictor) *HealthChecker {
	return &HealthChecker{
		sem:     semaphore.NewWeighted(cfg.MaxProbeConcurrency),
		cfg:     cfg,
		clock:   cfg.Clock,
		metrics: metrics,
		evictor: evictor,
	}
}

// Checks returns the total number of probes this checker has issued.
func (h *HealthChecker) Checks() uint64 { return h.checks.Load() }

// Failures returns the total number of failed probes.
func (h *HealthChecker) Failures() uint64 { return h.failures.Load() }

// CheckConnection probes c under the probe timeout, holding one of the
// checker's concurrency slots for the duration.
//
// On failure the connection becomes Unhealthy and either an asynchronous
// reconnection attempt is scheduled or, once the consecutive-failure
// threshold is reached, the connection is evicted so the next
// GetConnection rebuilds it from scratch.
//
// On success the connection is reclassified between Active and Idle based
// on how long it has gone unused.
//
// Returns without probing if ctx is canceled while waiting for a slot,
// which is how in-flight probe tasks drain during shutdown.
func (h *HealthChecker) CheckConnection(ctx context.Context, c *ClientConnection) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return
	}
	defer h.sem.Release(1)

	h.checks.Add(1)

	probeCtx, cancel := context.WithTimeout(ctx, h.cfg.ProbeTimeout)
	err := probeClient(probeCtx, c.Client())
	cancel()

	now := h.clock.Now()
	if err != nil {
		h.failures.Add(1)
		h.metrics.RecordHealthFailure()

		consecutive := c.markProbeFailure(now)
		if consecutive < 0 {
			// Already evicted; nothing to recover.
			return
		}
		c.log.Warn("health check failed", "error", err, "consecutive_failures", consecutive)

		if h.cfg.MaxConsecutiveFailures > 0 && consecutive >= h.cfg.MaxConsecutiveFailures {
			c.log.Warn("evicting connection after repeated probe failures",
				"max_consecutive_failures", h.cfg.MaxConsecutiveFailures)
			h.evictor.EvictUnhealthy(c)
			return
		}

		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.attemptReconnection(ctx, c)
		}()
		return
	}

	h.metrics.RecordHealthSuccess()
	if c.markReconnected(now) {
		// The connection was Unhealthy but its endpoint answers again; a
		// scheduled probe recovers it just like a reconnection attempt.
		h.metrics.RecordReconnection()
		c.log.Info("connection recovered")
		return
	}
	c.markProbeSuccess(now, h.cfg.IdleTimeout/2)
}

// attemptReconnection waits one retry-backoff interval and re-probes the
// existing handle; no new client is built. A successful probe returns the
// connection to Active and clears its failure count. A failed probe leaves
// it Unhealthy until the next scheduled health-check pass.
func (h *HealthChecker) attemptReconnection(ctx context.Context, c *ClientConnection) {
	timer := h.clock.NewTimer(h.cfg.RetryBackoff)
	defer timer.Stop()
	select {
	case <-timer.C():
	case <-ctx.Done():
		return
	}

	probeCtx, cancel := context.WithTimeout(ctx, h.cfg.ProbeTimeout)
	err := probeClient(probeCtx, c.Client())
	cancel()

	if err != nil {
		c.log.Debug("reconnection attempt failed", "error", err)
		return
	}

	if c.markReconnected(h.clock.Now()) {
		h.metrics.RecordReconnection()
		c.log.Info("connection recovered")
	}
}

// Wait blocks until all in-flight asynchronous reconnection attempts have
// returned. Called by Pool.Close after canceling the worker context.
func (h *HealthChecker) Wait() {
	h.wg.Wait()
}
