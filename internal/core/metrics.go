package core

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	// connSampleCap bounds the rolling window of connection-establishment
	// durations used to compute AvgConnectionTime.
	connSampleCap = 100

	// requestSampleCap bounds the rolling window of request durations used
	// to compute AvgRequestTime.
	requestSampleCap = 1000
)

// Metrics accumulates pool lifecycle counters and two bounded rolling
// duration samples. All counters are wait-free atomics; the sample rings
// share a single mutex taken only for append, trim, snapshot, and reset.
//
// It is safe for concurrent use by multiple goroutines.
type Metrics struct {
	created       atomic.Uint64
	evicted       atomic.Uint64
	errors        atomic.Uint64
	reconnections atomic.Uint64
	hits          atomic.Uint64
	misses        atomic.Uint64
	healthOK      atomic.Uint64
	healthFailed  atomic.Uint64

	// mu guards the sample rings only; counters never take it.
	mu            sync.Mutex
	connDurations []time.Duration
	reqDurations  []time.Duration
}

// NewMetrics creates an empty Metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		connDurations: make([]time.Duration, 0, connSampleCap),
		reqDurations:  make([]time.Duration, 0, requestSampleCap),
	}
}

// RecordCreation counts a successfully established connection.
func (m *Metrics) RecordCreation() { m.created.Add(1) }

// RecordEviction counts a connection removed from the registry, whether by
// idle sweep, space pressure, or forced unhealthy eviction.
func (m *Metrics) RecordEviction() { m.evicted.Add(1) }

// RecordError counts a failed connection-establishment attempt.
func (m *Metrics) RecordError() { m.errors.Add(1) }

// RecordReconnection counts an unhealthy connection recovered by a
// successful reconnection probe.
func (m *Metrics) RecordReconnection() { m.reconnections.Add(1) }

// RecordHit counts a GetConnection call served from the registry.
func (m *Metrics) RecordHit() { m.hits.Add(1) }

// RecordMiss counts a GetConnection call that entered the creation path.
func (m *Metrics) RecordMiss() { m.misses.Add(1) }

// RecordHealthSuccess counts a successful health probe.
func (m *Metrics) RecordHealthSuccess() { m.healthOK.Add(1) }

// RecordHealthFailure counts a failed health probe.
func (m *Metrics) RecordHealthFailure() { m.healthFailed.Add(1) }

// RecordConnectionDuration adds a connection-establishment duration to the
// rolling window, dropping the oldest sample once the window holds
// connSampleCap entries.
func (m *Metrics) RecordConnectionDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connDurations = appendBounded(m.connDurations, d, connSampleCap)
}

// RecordRequestDuration adds a request duration to the rolling window,
// dropping the oldest sample once the window holds requestSampleCap
// entries. Intended for pool consumers timing their own API calls.
func (m *Metrics) RecordRequestDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reqDurations = appendBounded(m.reqDurations, d, requestSampleCap)
}

// appendBounded appends d and trims the slice to the most recent limit
// samples. Trimming copies in place so the backing array does not grow
// without bound.
func appendBounded(samples []time.Duration, d time.Duration, limit int) []time.Duration {
	samples = append(samples, d)
	if excess := len(samples) - limit; excess > 0 {
		n := copy(samples, samples[excess:])
		samples = samples[:n]
	}
	return samples
}

// MetricsSnapshot is an immutable view of the pool's metrics, combining raw
// counters with derived rates and mean timings. Safe to pass across
// concurrency boundaries.
//
// The counters are read individually without a global lock, so a snapshot
// taken concurrently with pool activity may mix values from slightly
// different instants. Each individual value is still a consistent atomic
// read.
type MetricsSnapshot struct {
	ConnectionsCreated uint64
	ConnectionsEvicted uint64
	ConnectionErrors   uint64
	Reconnections      uint64
	Hits               uint64
	Misses             uint64
	HealthSuccesses    uint64
	HealthFailures     uint64

	// HitRate is hits/(hits+misses) as a percentage; 0 when no
	// GetConnection call has completed.
	HitRate float64

	// HealthSuccessRate is the health-probe success percentage; 100 when
	// no probe has run yet, since no evidence of ill health exists.
	HealthSuccessRate float64

	// AvgConnectionTime is the arithmetic mean over at most the last
	// connSampleCap establishment durations; 0 with no samples.
	AvgConnectionTime time.Duration

	// AvgRequestTime is the arithmetic mean over at most the last
	// requestSampleCap request durations; 0 with no samples.
	AvgRequestTime time.Duration
}

// Snapshot computes an immutable snapshot of all counters, rates, and mean
// timings. Safe to call concurrently with every Record method.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		ConnectionsCreated: m.created.Load(),
		ConnectionsEvicted: m.evicted.Load(),
		ConnectionErrors:   m.errors.Load(),
		Reconnections:      m.reconnections.Load(),
		Hits:               m.hits.Load(),
		Misses:             m.misses.Load(),
		HealthSuccesses:    m.healthOK.Load(),
		HealthFailures:     m.healthFailed.Load(),
	}

	if lookups := s.Hits + s.Misses; lookups > 0 {
		s.HitRate = float64(s.Hits) / float64(lookups) * 100
	}

	if checks := s.HealthSuccesses + s.HealthFailures; checks > 0 {
		s.HealthSuccessRate = float64(s.HealthSuccesses) / float64(checks) * 100
	} else {
		s.HealthSuccessRate = 100
	}

	m.mu.Lock()
	s.AvgConnectionTime = meanDuration(m.connDurations)
	s.AvgRequestTime = meanDuration(m.reqDurations)
	m.mu.Unlock()

	return s
}

// Reset zeroes all counters and drops all samples. Intended for operator
// use; the pool never calls it internally.
func (m *Metrics) Reset() {
	m.created.Store(0)
	m.evicted.Store(0)
	m.errors.Store(0)
	m.reconnections.Store(0)
	m.hits.Store(0)
	m.misses.Store(0)
	m.healthOK.Store(0)
	m.healthFailed.Store(0)

	m.mu.Lock()
	m.connDurations = m.connDurations[:0]
	m.reqDurations = m.reqDurations[:0]
	m.mu.Unlock()
}

// meanDuration returns the arithmetic mean of samples, or 0 when empty.
func meanDuration(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range samples {
		total += d
	}
	return total / time.Duration(len(samples))
}
