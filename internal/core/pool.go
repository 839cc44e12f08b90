package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"k8s.io/client-go/kubernetes"
	"k8s.io/utils/clock"
)

// ClientFactory builds an authenticated client for the given cluster
// identity. The factory encapsulates credential resolution (kubeconfig
// context lookup, transport construction); the pool wraps it with the
// retry loop and probe validation. The context carries the per-attempt
// connection timeout.
type ClientFactory func(ctx context.Context, cluster string) (kubernetes.Interface, error)

// ConnectionStats summarizes the registry at one instant. All counts are
// derived by scanning the registry under its lock, so the fields are
// mutually consistent: Total == Active + Idle + Unhealthy and
// Healthy == Active + Idle.
type ConnectionStats struct {
	Total     int
	Active    int
	Idle      int
	Healthy   int
	Unhealthy int
}

// Pool is a registry of client connections keyed by cluster identity. It
// owns creation (with retry and backoff), retrieval, eviction, and the two
// background workers: a health-check dispatcher and an idle sweeper.
//
// It is safe for concurrent use by multiple goroutines.
//
// Synchronization strategy:
//   - mu guards conns and closed. Lookups take the read lock; mutations
//     take the write lock.
//   - Each ClientConnection carries its own lock over its mutable fields,
//     so the request path and the health checker race safely on one entry.
//   - creating deduplicates concurrent first access per cluster: at most
//     one connection is ever built per identity, and all waiters share the
//     result. This closes the load-then-create window a plain map check
//     would leave open.
//   - Aggregate counts are derived by scanning under mu rather than kept
//     as free-standing atomics, so they cannot drift from the registry.
type Pool struct {
	cfg     PoolConfig
	clock   clock.WithTicker
	metrics *Metrics
	health  *HealthChecker

	mu     sync.RWMutex
	conns  map[string]*ClientConnection
	closed bool

	creating singleflight.Group

	// workerCtx is canceled by Close to stop the workers and drain
	// in-flight probe tasks.
	workerCtx context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Compile-time check that Pool satisfies the health checker's eviction
// callback.
var _ ConnectionEvictor = (*Pool)(nil)

// NewPool creates a Pool with the provided configuration and starts its
// two background workers. Call Close to stop them and drop all entries.
//
// Panics if cfg.Validate() reports any errors. Invalid configuration is a
// programmer error that should be caught at construction time, similar to
// regexp.MustCompile.
func NewPool(cfg PoolConfig) *Pool {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("kubepool: invalid pool config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		cfg:       cfg,
		clock:     cfg.Clock,
		metrics:   NewMetrics(),
		conns:     make(map[string]*ClientConnection),
		workerCtx: ctx,
		cancel:    cancel,
	}
	p.health = newHealthChecker(cfg, p.metrics, p)

	p.wg.Add(2)
	go p.healthCheckLoop()
	go p.idleSweepLoop()

	return p
}

// Metrics returns the pool's metrics accumulator. Callers may record
// request durations on it and take snapshots concurrently with everything
// else.
func (p *Pool) Metrics() *Metrics {
	return p.metrics
}

// GetConnection returns a usable client for the given cluster identity,
// creating one on demand.
//
// A registered connection in Active or Idle state is returned directly (a
// hit). Otherwise the call is a miss and enters creation: at capacity the
// oldest idle entry is evicted to make room or the call fails with
// ErrPoolExhausted; creation itself builds a client via the factory,
// validates it with a probe, and retries up to MaxRetries times with
// RetryBackoff between attempts, failing with a *ConnectError wrapping the
// last error once retries are exhausted.
//
// Concurrent callers racing on the same absent identity share a single
// creation. The caller's context bounds the whole retry loop; creation can
// otherwise block for up to MaxRetries attempts plus backoffs.
//
// Returns ErrPoolClosed after Close.
func (p *Pool) GetConnection(ctx context.Context, cluster string) (kubernetes.Interface, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get connection for cluster %q: %w", cluster, err)
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return nil, ErrPoolClosed
	}
	c := p.conns[cluster]
	p.mu.RUnlock()

	if c != nil && c.tryUse(p.clock.Now()) {
		p.metrics.RecordHit()
		return c.Client(), nil
	}

	p.metrics.RecordMiss()

	// Deduplicate concurrent creations per identity. The winning call runs
	// createConnection; everyone racing on the same key shares its result.
	v, err, _ := p.creating.Do(cluster, func() (any, error) {
		return p.createConnection(ctx, cluster)
	})
	if err != nil {
		return nil, err
	}
	conn, ok := v.(*ClientConnection)
	if !ok {
		return nil, fmt.Errorf("get connection for cluster %q: unexpected singleflight result %T", cluster, v)
	}
	return conn.Client(), nil
}

// GetConnectionWithTimeout is GetConnection with a caller-supplied hard
// bound instead of a context.
func (p *Pool) GetConnectionWithTimeout(cluster string, timeout time.Duration) (kubernetes.Interface, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return p.GetConnection(ctx, cluster)
}

// createConnection is the slow path of GetConnection, executed inside a
// singleflight flight. It re-checks the registry (a previous flight or a
// recovered probe may have satisfied the request), makes room if the pool
// is at capacity, and runs the retry loop.
func (p *Pool) createConnection(ctx context.Context, cluster string) (*ClientConnection, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if c := p.conns[cluster]; c != nil {
		if c.tryUse(p.clock.Now()) {
			p.mu.Unlock()
			return c, nil
		}
		// The registered entry is unhealthy. Drop it and rebuild rather
		// than hand out a handle whose last probe failed.
		delete(p.conns, cluster)
		c.markEvicted()
		p.metrics.RecordEviction()
		c.log.Info("evicted unhealthy connection before rebuild")
	}
	if err := p.makeRoomLocked(cluster); err != nil {
		p.mu.Unlock()
		return nil, err
	}
	p.mu.Unlock()

	started := p.clock.Now()
	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("connecting to cluster %q canceled on attempt %d: %w", cluster, attempt, err)
		}

		client, err := p.dial(ctx, cluster)
		if err == nil {
			return p.register(cluster, client, p.clock.Since(started))
		}

		lastErr = err
		p.metrics.RecordError()
		Logger().Warn("connection attempt failed",
			"cluster", cluster, "attempt", attempt, "max_retries", p.cfg.MaxRetries, "error", err)

		if attempt < p.cfg.MaxRetries {
			if err := p.sleep(ctx, p.cfg.RetryBackoff); err != nil {
				return nil, fmt.Errorf("connecting to cluster %q canceled during backoff: %w", cluster, err)
			}
		}
	}

	return nil, &ConnectError{Cluster: cluster, Attempts: p.cfg.MaxRetries, Err: lastErr}
}

// dial performs one creation attempt under the connection timeout: build a
// client through the factory, then validate it with the probe.
func (p *Pool) dial(ctx context.Context, cluster string) (kubernetes.Interface, error) {
	dialCtx, cancel := context.WithTimeout(ctx, p.cfg.ConnectionTimeout)
	defer cancel()

	client, err := p.cfg.Factory(dialCtx, cluster)
	if err != nil {
		return nil, fmt.Errorf("build client: %w", err)
	}
	if err := probeClient(dialCtx, client); err != nil {
		return nil, fmt.Errorf("validate new connection: %w", err)
	}
	return client, nil
}

// register stores a freshly validated connection. Capacity is re-checked at
// store time: concurrent flights for different clusters may have filled the
// pool while this one was dialing, and the registry must never exceed
// MaxConnections on the success path.
func (p *Pool) register(cluster string, client kubernetes.Interface, elapsed time.Duration) (*ClientConnection, error) {
	c := newClientConnection(cluster, client, p.clock.Now())

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if err := p.makeRoomLocked(cluster); err != nil {
		p.mu.Unlock()
		return nil, err
	}
	p.conns[cluster] = c
	p.mu.Unlock()

	p.metrics.RecordCreation()
	p.metrics.RecordConnectionDuration(elapsed)
	c.log.Info("connection established", "elapsed", elapsed)
	return c, nil
}

// makeRoomLocked ensures one registry slot is available for cluster. At
// capacity it evicts the idle entry with the oldest last-used time; if no
// entry is idle, it fails with ErrPoolExhausted. Active connections are
// never force-evicted, protecting in-flight users. Caller must hold mu.
func (p *Pool) makeRoomLocked(cluster string) error {
	if len(p.conns) < p.cfg.MaxConnections {
		return nil
	}

	var victim *ClientConnection
	var victimUsed time.Time
	for _, c := range p.conns {
		lastUsed, idle := c.idleVictim()
		if !idle {
			continue
		}
		if victim == nil || lastUsed.Before(victimUsed) {
			victim = c
			victimUsed = lastUsed
		}
	}
	if victim == nil {
		return fmt.Errorf("cluster %q: %w", cluster, ErrPoolExhausted)
	}

	delete(p.conns, victim.Cluster())
	victim.markEvicted()
	p.metrics.RecordEviction()
	victim.log.Info("evicted idle connection for space", "replacement", cluster)
	return nil
}

// EvictUnhealthy removes c from the registry if it is still the registered
// entry for its cluster. Called by the health checker once a connection
// crosses the consecutive-failure threshold.
//
// Implements ConnectionEvictor.
func (p *Pool) EvictUnhealthy(c *ClientConnection) {
	p.mu.Lock()
	current := p.conns[c.Cluster()]
	if current != c {
		// The cluster was already rebuilt or removed; the stale pointer
		// carries no registry state to clean up.
		p.mu.Unlock()
		return
	}
	delete(p.conns, c.Cluster())
	p.mu.Unlock()

	c.markEvicted()
	p.metrics.RecordEviction()
}

// sleep blocks for d on the pool's clock, returning early with the context
// error if ctx is done first.
func (p *Pool) sleep(ctx context.Context, d time.Duration) error {
	timer := p.clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// healthCheckLoop is the health-check dispatcher worker. Every
// HealthCheckInterval it fans out one independent probe task per registered
// connection, so one unreachable cluster cannot stall the rest. Probe
// concurrency is bounded by the checker's semaphore.
func (p *Pool) healthCheckLoop() {
	defer p.wg.Done()

	ticker := p.clock.NewTicker(p.cfg.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.workerCtx.Done():
			return
		case <-ticker.C():
			p.dispatchHealthChecks()
		}
	}
}

// dispatchHealthChecks snapshots the registry and launches one probe task
// per entry. Tasks are tracked on the pool's WaitGroup so Close can join
// them.
func (p *Pool) dispatchHealthChecks() {
	p.mu.RLock()
	snapshot := make([]*ClientConnection, 0, len(p.conns))
	for _, c := range p.conns {
		snapshot = append(snapshot, c)
	}
	p.mu.RUnlock()

	for _, c := range snapshot {
		p.wg.Add(1)
		go func(conn *ClientConnection) {
			defer p.wg.Done()
			p.health.CheckConnection(p.workerCtx, conn)
		}(c)
	}
}

// idleSweepLoop is the idle-eviction worker. It ticks at half the idle
// timeout, removes every idle entry unused for longer than the full idle
// timeout, and then enforces MaxIdleConnections by evicting oldest-idle
// entries down to the cap.
func (p *Pool) idleSweepLoop() {
	defer p.wg.Done()

	ticker := p.clock.NewTicker(p.cfg.IdleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-p.workerCtx.Done():
			return
		case <-ticker.C():
			p.sweepIdle()
		}
	}
}

// sweepIdle performs one pass of the idle sweeper.
func (p *Pool) sweepIdle() {
	now := p.clock.Now()

	p.mu.Lock()
	var victims []*ClientConnection
	for cluster, c := range p.conns {
		if c.idleExpired(now, p.cfg.IdleTimeout) {
			delete(p.conns, cluster)
			victims = append(victims, c)
		}
	}

	// Idle entries that survived the timeout check still count against
	// MaxIdleConnections; evict the oldest beyond the cap.
	type idleEntry struct {
		conn     *ClientConnection
		lastUsed time.Time
	}
	var idle []idleEntry
	for _, c := range p.conns {
		if lastUsed, ok := c.idleVictim(); ok {
			idle = append(idle, idleEntry{conn: c, lastUsed: lastUsed})
		}
	}
	if excess := len(idle) - p.cfg.MaxIdleConnections; excess > 0 {
		sort.Slice(idle, func(i, j int) bool { return idle[i].lastUsed.Before(idle[j].lastUsed) })
		for _, entry := range idle[:excess] {
			delete(p.conns, entry.conn.Cluster())
			victims = append(victims, entry.conn)
		}
	}
	p.mu.Unlock()

	for _, c := range victims {
		c.markEvicted()
		p.metrics.RecordEviction()
		c.log.Info("evicted idle connection")
	}
}

// Stats derives the aggregate connection counts by scanning the registry.
// The scan holds the read lock, so the returned counts are mutually
// consistent with the registry contents at one instant.
func (p *Pool) Stats() ConnectionStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var s ConnectionStats
	s.Total = len(p.conns)
	for _, c := range p.conns {
		switch c.State() {
		case StateActive:
			s.Active++
		case StateIdle:
			s.Idle++
		case StateUnhealthy:
			s.Unhealthy++
		case StateEvicted:
			// Unreachable for registered entries; eviction always removes
			// the entry in the same critical section.
		}
	}
	s.Healthy = s.Active + s.Idle
	return s
}

// ConnectionHealthy reports whether the registered connection for cluster
// exists and is in a usable state (Active or Idle).
func (p *Pool) ConnectionHealthy(cluster string) bool {
	p.mu.RLock()
	c := p.conns[cluster]
	p.mu.RUnlock()

	if c == nil {
		return false
	}
	switch c.State() {
	case StateActive, StateIdle:
		return true
	case StateUnhealthy, StateEvicted:
		return false
	default:
		return false
	}
}

// ConnectionDetails returns a snapshot of every registered connection,
// for dashboards and debugging.
func (p *Pool) ConnectionDetails() []ConnectionInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()

	infos := make([]ConnectionInfo, 0, len(p.conns))
	for _, c := range p.conns {
		infos = append(infos, c.Info())
	}
	return infos
}

// Close stops both background workers, waits for them and all in-flight
// probe and reconnection tasks to finish, then drops every registry entry.
// Individual session teardown beyond the reference drop is not performed;
// in-flight users of a dropped handle keep working against their own copy.
//
// After Close returns, GetConnection fails with ErrPoolClosed, Stats
// reports zero connections, and no further metric mutations occur. Safe to
// call multiple times (idempotent).
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()

		p.cancel()
		p.wg.Wait()
		p.health.Wait()

		p.mu.Lock()
		n := len(p.conns)
		for cluster, c := range p.conns {
			c.markEvicted()
			delete(p.conns, cluster)
		}
		p.mu.Unlock()

		Logger().Info("pool closed", "dropped_connections", n)
	})
}
