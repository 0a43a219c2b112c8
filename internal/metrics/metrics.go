package metrics

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a counter, and for latency metrics also a histogram.
type MetricID uint16

const (
	MetricRequestDispatched MetricID = iota
	MetricRequestSucceeded
	MetricRequestRetried
	MetricTransportError
	MetricAuthExpired
	MetricBadCredentials
	MetricRetryExhausted
	MetricRefreshEndpointExpired
	MetricRefreshStarted
	MetricRefreshQueued
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricCredentialsCleared
	MetricCredentialsClearFailed
	MetricLogout
	MetricDispatchLatency
	MetricRefreshLatency
	MetricIDCount
)

// BucketCount is the number of latency histogram buckets.
const BucketCount = 8

const cacheLineSize = 64

type histogram struct {
	buckets  [BucketCount]uint64
	sumNanos uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Config toggles collection.
type Config struct {
	Enabled       bool
	EnableLatency bool
}

// Metrics holds atomic counters and optional latency histograms. A nil
// *Metrics is a valid no-op.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [MetricIDCount]paddedCounter
	histograms    [MetricIDCount]histogram
}

// Snapshot is a point-in-time copy of all metrics. LatencySums holds the
// total observed duration per histogram.
type Snapshot struct {
	Counters    map[MetricID]uint64
	Histograms  map[MetricID][]uint64
	LatencySums map[MetricID]time.Duration
}

// New creates a Metrics instance.
func New(cfg Config) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatency,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= MetricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram for id. Only latency IDs keep
// histograms.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || !IsLatency(id) {
		return
	}
	if d < 0 {
		d = 0
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
	atomic.AddUint64(&m.histograms[id].sumNanos, uint64(d))
}

// Value returns the current counter value.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= MetricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and, when enabled, every latency histogram.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil || !m.enabled {
		return Snapshot{
			Counters:    map[MetricID]uint64{},
			Histograms:  map[MetricID][]uint64{},
			LatencySums: map[MetricID]time.Duration{},
		}
	}

	s := Snapshot{
		Counters:    make(map[MetricID]uint64, int(MetricIDCount)),
		Histograms:  make(map[MetricID][]uint64, 2),
		LatencySums: make(map[MetricID]time.Duration, 2),
	}
	for id := MetricID(0); id < MetricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		for _, id := range []MetricID{MetricDispatchLatency, MetricRefreshLatency} {
			buckets := make([]uint64, BucketCount)
			for i := 0; i < BucketCount; i++ {
				buckets[i] = atomic.LoadUint64(&m.histograms[id].buckets[i])
			}
			s.Histograms[id] = buckets
			s.LatencySums[id] = time.Duration(atomic.LoadUint64(&m.histograms[id].sumNanos))
		}
	}
	return s
}

// IsLatency reports whether id carries a histogram.
func IsLatency(id MetricID) bool {
	return id == MetricDispatchLatency || id == MetricRefreshLatency
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
