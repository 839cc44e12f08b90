package core

import (
	"testing"
	"time"
)

// TestMetricsSnapshotCounters verifies each Record method feeds exactly one
// snapshot counter.
func TestMetricsSnapshotCounters(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.RecordCreation()
	m.RecordCreation()
	m.RecordEviction()
	m.RecordError()
	m.RecordError()
	m.RecordError()
	m.RecordReconnection()
	m.RecordHit()
	m.RecordMiss()
	m.RecordHealthSuccess()
	m.RecordHealthFailure()

	snap := m.Snapshot()
	if snap.ConnectionsCreated != 2 {
		t.Errorf("ConnectionsCreated = %d, want 2", snap.ConnectionsCreated)
	}
	if snap.ConnectionsEvicted != 1 {
		t.Errorf("ConnectionsEvicted = %d, want 1", snap.ConnectionsEvicted)
	}
	if snap.ConnectionErrors != 3 {
		t.Errorf("ConnectionErrors = %d, want 3", snap.ConnectionErrors)
	}
	if snap.Reconnections != 1 {
		t.Errorf("Reconnections = %d, want 1", snap.Reconnections)
	}
	if snap.Hits != 1 || snap.Misses != 1 {
		t.Errorf("hits/misses = %d/%d, want 1/1", snap.Hits, snap.Misses)
	}
	if snap.HealthSuccesses != 1 || snap.HealthFailures != 1 {
		t.Errorf("health ok/failed = %d/%d, want 1/1", snap.HealthSuccesses, snap.HealthFailures)
	}
}

// TestMetricsHitRate verifies the hit-rate percentage, including the
// zero-lookup edge case.
func TestMetricsHitRate(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		hits   int
		misses int
		want   float64
	}{
		"no lookups":      {hits: 0, misses: 0, want: 0},
		"all hits":        {hits: 4, misses: 0, want: 100},
		"all misses":      {hits: 0, misses: 4, want: 0},
		"three quarters":  {hits: 3, misses: 1, want: 75},
		"single of eight": {hits: 1, misses: 7, want: 12.5},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			m := NewMetrics()
			for range tc.hits {
				m.RecordHit()
			}
			for range tc.misses {
				m.RecordMiss()
			}
			if got := m.Snapshot().HitRate; got != tc.want {
				t.Errorf("HitRate = %v, want %v", got, tc.want)
			}
		})
	}
}

// TestMetricsHealthSuccessRate verifies the probe success percentage
// reports 100 before any probe has run.
func TestMetricsHealthSuccessRate(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		ok     int
		failed int
		want   float64
	}{
		"no probes yet": {ok: 0, failed: 0, want: 100},
		"all healthy":   {ok: 5, failed: 0, want: 100},
		"all failing":   {ok: 0, failed: 5, want: 0},
		"half and half": {ok: 2, failed: 2, want: 50},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			m := NewMetrics()
			for range tc.ok {
				m.RecordHealthSuccess()
			}
			for range tc.failed {
				m.RecordHealthFailure()
			}
			if got := m.Snapshot().HealthSuccessRate; got != tc.want {
				t.Errorf("HealthSuccessRate = %v, want %v", got, tc.want)
			}
		})
	}
}

// TestMetricsConnectionDurationWindow verifies the establishment-duration
// window averages only the most recent samples once the cap is exceeded.
func TestMetricsConnectionDurationWindow(t *testing.T) {
	t.Parallel()

	m := NewMetrics()

	// Overfill the window; the first 50 samples must fall out.
	for i := 1; i <= connSampleCap+50; i++ {
		m.RecordConnectionDuration(time.Duration(i) * time.Millisecond)
	}

	// Mean of 51ms..150ms.
	want := time.Duration(51+connSampleCap+50) * time.Millisecond / 2
	if got := m.Snapshot().AvgConnectionTime; got != want {
		t.Errorf("AvgConnectionTime = %v, want %v", got, want)
	}
}

// TestMetricsRequestDurationAverage verifies the request-duration mean and
// its empty-window zero value.
func TestMetricsRequestDurationAverage(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	if got := m.Snapshot().AvgRequestTime; got != 0 {
		t.Errorf("AvgRequestTime with no samples = %v, want 0", got)
	}

	m.RecordRequestDuration(10 * time.Millisecond)
	m.RecordRequestDuration(30 * time.Millisecond)
	if got := m.Snapshot().AvgRequestTime; got != 20*time.Millisecond {
		t.Errorf("AvgRequestTime = %v, want 20ms", got)
	}
}

// TestMetricsReset verifies Reset returns the accumulator to its initial
// snapshot.
func TestMetricsReset(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.RecordCreation()
	m.RecordHit()
	m.RecordMiss()
	m.RecordHealthFailure()
	m.RecordConnectionDuration(5 * time.Millisecond)
	m.RecordRequestDuration(5 * time.Millisecond)

	m.Reset()

	if got, want := m.Snapshot(), NewMetrics().Snapshot(); got != want {
		t.Errorf("snapshot after Reset = %+v, want %+v", got, want)
	}
}
