package goSession

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricSessionMinted)

	if got := m.Value(MetricSessionMinted); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricSessionMinted)
	m.Observe(MetricGetStoreLatency, time.Millisecond)

	if m.Enabled() || m.LatencyEnabled() || m.Value(MetricSessionMinted) != 0 {
		t.Fatal("nil metrics must report nothing")
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricSessionResolved)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricSessionResolved); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		time.Millisecond,
		2500 * time.Microsecond,
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		2 * time.Second,
	}
	for _, d := range observations {
		m.Observe(MetricGetStoreLatency, d)
	}
	// Counters are not histograms.
	m.Observe(MetricSessionMinted, time.Millisecond)

	buckets := m.Snapshot().Histograms[MetricGetStoreLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}
	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
}

func TestMetricsSnapshotConsistency(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricSessionMinted)
	m.Inc(MetricTokenForged)
	m.Inc(MetricTokenForged)
	m.Observe(MetricGetStoreLatency, time.Millisecond)

	snap := m.Snapshot()
	if snap.Counters[MetricSessionMinted] != 1 {
		t.Fatalf("expected MetricSessionMinted=1 got %d", snap.Counters[MetricSessionMinted])
	}
	if snap.Counters[MetricTokenForged] != 2 {
		t.Fatalf("expected MetricTokenForged=2 got %d", snap.Counters[MetricTokenForged])
	}
	if _, ok := snap.Histograms[MetricGetStoreLatency]; ok {
		t.Fatal("histogram must be absent when latency is disabled")
	}
}
