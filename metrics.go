package authcore

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter.
type MetricID uint16

const (
	MetricRegisterSuccess MetricID = iota
	MetricRegisterRejected
	MetricRegisterDuplicate
	MetricLoginSuccess
	MetricLoginFailure
	// MetricLoginLocked counts login attempts refused by an active lock.
	MetricLoginLocked
	MetricMFARequired
	MetricMFASuccess
	MetricMFAFailure
	MetricBackupCodeUsed
	MetricBackupCodesRegenerated
	MetricMFAEnabled
	MetricMFADisabled
	// MetricPasswordHashMigrated counts legacy or under-cost hashes replaced
	// after login.
	MetricPasswordHashMigrated
	MetricPasswordResetRequest
	MetricPasswordResetLocked
	MetricPasswordResetSuccess
	MetricPasswordResetFailure
	MetricSessionCreated
	MetricSessionRevoked
	MetricSessionExpired
	MetricSessionTokenIssued
	MetricSessionTokenRejected
	// MetricLoginLatency is the only histogram.
	MetricLoginLatency
	metricIDCount
)

var metricNames = [metricIDCount]string{
	MetricRegisterSuccess:        "register_success",
	MetricRegisterRejected:       "register_rejected",
	MetricRegisterDuplicate:      "register_duplicate",
	MetricLoginSuccess:           "login_success",
	MetricLoginFailure:           "login_failure",
	MetricLoginLocked:            "login_locked",
	MetricMFARequired:            "mfa_required",
	MetricMFASuccess:             "mfa_success",
	MetricMFAFailure:             "mfa_failure",
	MetricBackupCodeUsed:         "backup_code_used",
	MetricBackupCodesRegenerated: "backup_codes_regenerated",
	MetricMFAEnabled:             "mfa_enabled",
	MetricMFADisabled:            "mfa_disabled",
	MetricPasswordHashMigrated:   "password_hash_migrated",
	MetricPasswordResetRequest:   "password_reset_request",
	MetricPasswordResetLocked:    "password_reset_locked",
	MetricPasswordResetSuccess:   "password_reset_success",
	MetricPasswordResetFailure:   "password_reset_failure",
	MetricSessionCreated:         "session_created",
	MetricSessionRevoked:         "session_revoked",
	MetricSessionExpired:         "session_expired",
	MetricSessionTokenIssued:     "session_token_issued",
	MetricSessionTokenRejected:   "session_token_rejected",
	MetricLoginLatency:           "login_latency",
}

// String returns the snake_case metric name used by exporters.
func (id MetricID) String() string {
	if id >= metricIDCount {
		return "unknown"
	}
	return metricNames[id]
}

// MetricIDs lists every defined metric in declaration order.
func MetricIDs() []MetricID {
	out := make([]MetricID, 0, int(metricIDCount))
	for id := MetricID(0); id < metricIDCount; id++ {
		out = append(out, id)
	}
	return out
}

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

// HistogramBounds are the upper bounds, in milliseconds, of the first seven
// latency buckets. The last bucket is unbounded.
var HistogramBounds = [histBucketCount - 1]int64{50, 100, 250, 500, 750, 1000, 2000}

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Add increments id by n.
func (m *Metrics) Add(id MetricID, n uint64) {
	if m == nil || !m.enabled || id >= metricIDCount || n == 0 {
		return
	}
	atomic.AddUint64(&m.counters[id].value, n)
}

// Observe records d in the histogram for id. Only MetricLoginLatency has a
// histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricLoginLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

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
		if id == MetricLoginLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricLoginLatency].buckets[i])
		}
		s.Histograms[MetricLoginLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()
	for i, bound := range HistogramBounds {
		if ms <= bound {
			return i
		}
	}
	return histBucketCount - 1
}
