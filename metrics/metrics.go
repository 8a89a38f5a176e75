package metrics

import (
	"sync/atomic"
	"time"
)

// ID identifies a counter or histogram.
type ID uint16

const (
	LoginSuccess ID = iota
	LoginFailure
	LoginUnconfirmed
	RefreshSuccess
	RefreshFailure
	RefreshReuseDetected
	AuthenticateFailure
	Logout
	AccountCreationSuccess
	AccountCreationDuplicate
	EmailConfirmationRequest
	EmailConfirmationSuccess
	EmailConfirmationFailure
	PasswordRehash
	AvatarUpdated
	RateLimitAllowed
	RateLimitDenied
	RateLimitStoreFailure
	ContactCreated
	ContactDeleted
	AuthenticateLatency
	RateLimitLatency
	idCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type histogram struct {
	buckets  [histBucketCount]uint64
	sumNanos uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Config toggles collection. Disabled metrics make every call a no-op.
type Config struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// Metrics is safe for concurrent use. A nil *Metrics is valid and discards everything.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [idCount]paddedCounter
	histograms    [idCount]histogram
	auditDropped  atomic.Pointer[func() uint64]
}

// HistogramSnapshot carries non-cumulative bucket counts and the observed sum.
type HistogramSnapshot struct {
	Buckets []uint64
	Sum     time.Duration
}

// Snapshot is a point-in-time copy of every metric.
type Snapshot struct {
	Counters   map[ID]uint64
	Histograms map[ID]HistogramSnapshot
}

func New(cfg Config) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) Inc(id ID) {
	if m == nil || !m.enabled || id >= idCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d into the histogram for id. Only latency IDs accept observations.
func (m *Metrics) Observe(id ID, d time.Duration) {
	if m == nil || !m.enableLatency || !isHistogram(id) {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
	if d > 0 {
		atomic.AddUint64(&m.histograms[id].sumNanos, uint64(d))
	}
}

func (m *Metrics) Value(id ID) uint64 {
	if m == nil || id >= idCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// TrackAuditDropped wires the audit dispatcher's drop counter into exports.
func (m *Metrics) TrackAuditDropped(fn func() uint64) {
	if m == nil || fn == nil {
		return
	}
	m.auditDropped.Store(&fn)
}

// AuditDropped reports audit events dropped under backpressure.
func (m *Metrics) AuditDropped() uint64 {
	if m == nil {
		return 0
	}
	fn := m.auditDropped.Load()
	if fn == nil {
		return 0
	}
	return (*fn)()
}

// MetricsSnapshot returns a copy of all counters, or empty maps when disabled.
func (m *Metrics) MetricsSnapshot() Snapshot {
	if m == nil || !m.enabled {
		return Snapshot{
			Counters:   map[ID]uint64{},
			Histograms: map[ID]HistogramSnapshot{},
		}
	}

	s := Snapshot{
		Counters:   make(map[ID]uint64, int(idCount)),
		Histograms: make(map[ID]HistogramSnapshot, 2),
	}

	for id := ID(0); id < idCount; id++ {
		if isHistogram(id) {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		for _, id := range []ID{AuthenticateLatency, RateLimitLatency} {
			buckets := make([]uint64, histBucketCount)
			for i := 0; i < histBucketCount; i++ {
				buckets[i] = atomic.LoadUint64(&m.histograms[id].buckets[i])
			}
			s.Histograms[id] = HistogramSnapshot{
				Buckets: buckets,
				Sum:     time.Duration(atomic.LoadUint64(&m.histograms[id].sumNanos)),
			}
		}
	}

	return s
}

func isHistogram(id ID) bool {
	return id == AuthenticateLatency || id == RateLimitLatency
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
