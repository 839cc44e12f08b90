package core

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"k8s.io/client-go/kubernetes"
)

// ConnState is the health/usage state of a pooled connection.
type ConnState int

const (
	// StateActive marks a connection that has been used recently.
	StateActive ConnState = iota

	// StateIdle marks a connection unused for over half the idle timeout.
	// Idle connections are the only eviction victims for space pressure
	// and are removed by the sweeper once their idle time exceeds the full
	// idle timeout.
	StateIdle

	// StateUnhealthy marks a connection whose last probe failed. It is not
	// handed out by GetConnection; an asynchronous reconnection probe may
	// return it to StateActive.
	StateUnhealthy

	// StateEvicted marks a connection that has been removed from the
	// registry. Terminal: in-flight users of the handle keep working, but
	// the pool no longer tracks it.
	StateEvicted
)

// IsValid reports whether s is a recognized ConnState value.
func (s ConnState) IsValid() bool {
	switch s {
	case StateActive, StateIdle, StateUnhealthy, StateEvicted:
		return true
	default:
		return false
	}
}

// String returns the name of the state.
func (s ConnState) String() string {
	switch s {
	case StateActive:
		return "Active"
	case StateIdle:
		return "Idle"
	case StateUnhealthy:
		return "Unhealthy"
	case StateEvicted:
		return "Evicted"
	default:
		return fmt.Sprintf("ConnState(%d)", int(s))
	}
}

// ConnectionInfo is an immutable snapshot of a single connection's state,
// safe to pass across concurrency boundaries. Consumed by dashboards via
// Pool.ConnectionDetails.
type ConnectionInfo struct {
	Cluster         string
	ID              string
	State           ConnState
	CreatedAt       time.Time
	LastUsed        time.Time
	LastHealthCheck time.Time
	UseCount        uint64
	ErrorCount      int
}

// ClientConnection wraps one authenticated client session to a cluster
// control plane, together with its health and usage state.
//
// The identity, id, and client fields are immutable after construction.
// Everything else is mutated under mu by both the request path and the
// health checker, which race safely on the same entry.
type ClientConnection struct {
	cluster string
	id      string
	client  kubernetes.Interface

	mu              sync.Mutex
	state           ConnState
	createdAt       time.Time
	lastUsed        time.Time
	lastHealthCheck time.Time
	useCount        uint64
	errorCount      int

	// log is the connection-scoped logger.
	log *slog.Logger
}

// newClientConnection creates a ClientConnection in StateActive with its
// usage clock starting at now.
func newClientConnection(cluster string, client kubernetes.Interface, now time.Time) *ClientConnection {
	id := uuid.NewString()
	return &ClientConnection{
		cluster:   cluster,
		id:        id,
		client:    client,
		state:     StateActive,
		createdAt: now,
		lastUsed:  now,
		log:       Logger().With("cluster", cluster, "conn", id),
	}
}

// Cluster returns the cluster identity this connection is keyed under.
func (c *ClientConnection) Cluster() string {
	return c.cluster
}

// ID returns the connection's unique identifier.
func (c *ClientConnection) ID() string {
	return c.id
}

// Client returns the underlying client handle.
func (c *ClientConnection) Client() kubernetes.Interface {
	return c.client
}

// State returns the connection's current state.
func (c *ClientConnection) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// tryUse atomically checks that the connection is usable (Active or Idle)
// and, if so, records the use: bumps the use counter, refreshes lastUsed,
// and promotes Idle back to Active. Returns false for Unhealthy or Evicted
// connections, which the request path treats as a miss.
func (c *ClientConnection) tryUse(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateActive, StateIdle:
		c.state = StateActive
		c.lastUsed = now
		c.useCount++
		return true
	case StateUnhealthy, StateEvicted:
		return false
	default:
		return false
	}
}

// markEvicted transitions the connection to its terminal state.
func (c *ClientConnection) markEvicted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateEvicted
}

// markProbeFailure records a failed health probe: the connection becomes
// Unhealthy and its consecutive-failure counter is incremented. Returns the
// new counter value so the health checker can apply the forced-eviction
// threshold. Evicted connections are left untouched and report -1.
func (c *ClientConnection) markProbeFailure(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateEvicted {
		return -1
	}
	c.state = StateUnhealthy
	c.errorCount++
	c.lastHealthCheck = now
	return c.errorCount
}

// markProbeSuccess records a successful health probe and reclassifies the
// connection between Active and Idle based on whether it has gone unused
// for longer than idleThreshold (half the idle timeout). Unhealthy and
// Evicted connections are not reclassified here; recovery goes through
// markReconnected.
func (c *ClientConnection) markProbeSuccess(now time.Time, idleThreshold time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastHealthCheck = now
	switch c.state {
	case StateActive, StateIdle:
		if now.Sub(c.lastUsed) > idleThreshold {
			c.state = StateIdle
		} else {
			c.state = StateActive
		}
	case StateUnhealthy, StateEvicted:
	}
}

// markReconnected records a successful reconnection probe: the connection
// returns to Active and its consecutive-failure counter resets. Returns
// false if the connection is no longer Unhealthy (e.g., it was evicted
// while the reconnection attempt was sleeping).
func (c *ClientConnection) markReconnected(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateUnhealthy {
		return false
	}
	c.state = StateActive
	c.errorCount = 0
	c.lastHealthCheck = now
	return true
}

// idleVictim reports whether the connection is Idle and, if so, its
// lastUsed timestamp. Used by eviction-for-space and the sweeper to pick
// the oldest idle entry without exposing the lock.
func (c *ClientConnection) idleVictim() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return time.Time{}, false
	}
	return c.lastUsed, true
}

// idleExpired reports whether the connection is Idle and has gone unused
// for longer than idleTimeout.
func (c *ClientConnection) idleExpired(now time.Time, idleTimeout time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateIdle && now.Sub(c.lastUsed) > idleTimeout
}

// Info returns an immutable snapshot of the connection's state.
func (c *ClientConnection) Info() ConnectionInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	return ConnectionInfo{
		Cluster:         c.cluster,
		ID:              c.id,
		State:           c.state,
		CreatedAt:       c.createdAt,
		LastUsed:        c.lastUsed,
		LastHealthCheck: c.lastHealthCheck,
		UseCount:        c.useCount,
		ErrorCount:      c.errorCount,
	}
}
