package authgate

import "sync/atomic"

// MetricID identifies one gate counter.
type MetricID uint16

const (
	// MetricAuthSuccess counts successful gate runs.
	MetricAuthSuccess MetricID = iota
	// MetricAuthFailure counts failed gate runs, all reasons.
	MetricAuthFailure
	// MetricBadCaptcha counts captcha rejections.
	MetricBadCaptcha
	// MetricBadCredentials counts password mismatches below the threshold.
	MetricBadCredentials
	// MetricTooManyAttempts counts threshold-crossing mismatches.
	MetricTooManyAttempts
	// MetricLocked counts rejections of still-locked accounts.
	MetricLocked
	// MetricAutoUnlockBypass counts runs that traversed the lock bypass.
	MetricAutoUnlockBypass
	// MetricThrottled counts pre-gate throttle rejections.
	MetricThrottled
	// MetricCaptchaIssued counts generated challenges.
	MetricCaptchaIssued
	// MetricMutationApplied counts applied profile mutations.
	MetricMutationApplied
	// MetricTicketMinted counts minted success tickets.
	MetricTicketMinted

	metricCount
)

var metricNames = [metricCount]string{
	MetricAuthSuccess:      "auth_success",
	MetricAuthFailure:      "auth_failure",
	MetricBadCaptcha:       "bad_captcha",
	MetricBadCredentials:   "bad_credentials",
	MetricTooManyAttempts:  "too_many_attempts",
	MetricLocked:           "locked",
	MetricAutoUnlockBypass: "auto_unlock_bypass",
	MetricThrottled:        "throttled",
	MetricCaptchaIssued:    "captcha_issued",
	MetricMutationApplied:  "mutation_applied",
	MetricTicketMinted:     "ticket_minted",
}

func (id MetricID) String() string {
	if id < metricCount {
		return metricNames[id]
	}
	return "unknown"
}

// Metrics is an in-process atomic counter registry. All methods are safe for
// concurrent use.
type Metrics struct {
	counters [metricCount]atomic.Uint64
}

func newMetrics(cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return nil
	}
	return &Metrics{}
}

// Inc increments the counter. Nil receivers are no-ops so call sites need no
// enabled check.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || id >= metricCount {
		return
	}
	m.counters[id].Add(1)
}

// Get returns the current value of one counter.
func (m *Metrics) Get(id MetricID) uint64 {
	if m == nil || id >= metricCount {
		return 0
	}
	return m.counters[id].Load()
}

// Snapshot returns a point-in-time copy of all counters.
func (m *Metrics) Snapshot() map[MetricID]uint64 {
	out := make(map[MetricID]uint64, metricCount)
	if m == nil {
		return out
	}
	for id := MetricID(0); id < metricCount; id++ {
		out[id] = m.counters[id].Load()
	}
	return out
}
