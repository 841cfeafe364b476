package goSession

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one in-process counter or histogram.
type MetricID uint16

const (
	// MetricSessionMinted counts identities minted for requests without a usable token.
	MetricSessionMinted MetricID = iota
	// MetricSessionResolved counts tokens that decoded and verified.
	MetricSessionResolved
	// MetricSessionCacheMiss counts verified tokens whose cache entry was absent.
	MetricSessionCacheMiss
	// MetricTokenMalformed counts tokens that failed framing or decoding.
	MetricTokenMalformed
	// MetricTokenForged counts tokens that failed AEAD authentication.
	MetricTokenForged
	// MetricTokenAddressMismatch counts tokens presented from another client address.
	MetricTokenAddressMismatch
	// MetricCacheReadError counts failed or timed-out session loads.
	MetricCacheReadError
	// MetricCacheWriteError counts failed or timed-out persists and destroys.
	MetricCacheWriteError
	// MetricSessionPersisted counts successful SetStore calls.
	MetricSessionPersisted
	// MetricSessionDestroyed counts successful DestroyStore calls.
	MetricSessionDestroyed
	// MetricNonceIssued counts CreateNonce calls.
	MetricNonceIssued
	// MetricOAuthLoginSuccess counts completed OAuth logins.
	MetricOAuthLoginSuccess
	// MetricOAuthStateMismatch counts OAuth callbacks whose state did not match.
	MetricOAuthStateMismatch
	// MetricOAuthExchangeFailure counts OAuth code exchanges that failed.
	MetricOAuthExchangeFailure
	// MetricUserResolved counts successful ResolveUser calls.
	MetricUserResolved
	// MetricUserMissing counts ResolveUser calls that found no user.
	MetricUserMissing
	// MetricGetStoreLatency is the GetStore latency histogram.
	MetricGetStoreLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed set of lock-free counters. A nil or disabled Metrics
// accepts every call and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters and histograms.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns Metrics configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram id. Only MetricGetStoreLatency is a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricGetStoreLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter, and the histogram when enabled.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricGetStoreLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricGetStoreLatency].buckets[i])
		}
		s.Histograms[MetricGetStoreLatency] = buckets
	}

	return s
}

// bucketIndex maps d onto the upper bounds 1ms, 2.5ms, 5ms, 10ms, 25ms, 50ms,
// 100ms and +Inf. A healthy GetStore is one cache round-trip.
func bucketIndex(d time.Duration) int {
	us := d.Microseconds()

	switch {
	case us <= 1000:
		return 0
	case us <= 2500:
		return 1
	case us <= 5000:
		return 2
	case us <= 10000:
		return 3
	case us <= 25000:
		return 4
	case us <= 50000:
		return 5
	case us <= 100000:
		return 6
	default:
		return 7
	}
}
