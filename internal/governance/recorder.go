package governance

import (
	"sort"
	"sync"
	"time"
)

// Sample is one observation of a completed request. Samples are immutable
// once recorded.
type Sample struct {
	Endpoint   string    `json:"endpoint"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs float64   `json:"duration_ms"`
	StatusCode int       `json:"status_code"`
	Slow       bool      `json:"is_slow"`
}

// EndpointStats is the per-endpoint sub-aggregate inside Stats.
type EndpointStats struct {
	Count           int64   `json:"count"`
	AvgResponseTime float64 `json:"avg_response_time_ms"`
	MaxResponseTime float64 `json:"max_response_time_ms"`
	SlowCount       int64   `json:"slow_count"`
}

// Stats is the rolling aggregate over the recorded history.
type Stats struct {
	TotalRequests   int64                    `json:"total_requests"`
	MinResponseTime float64                  `json:"min_response_time_ms"`
	MaxResponseTime float64                  `json:"max_response_time_ms"`
	AvgResponseTime float64                  `json:"avg_response_time_ms"`
	P95ResponseTime float64                  `json:"p95_response_time_ms"`
	SlowRequestPct  float64                  `json:"slow_request_percentage"`
	RejectedTotal   int64                    `json:"rejected_total"`
	PerEndpoint     map[string]EndpointStats `json:"per_endpoint"`
}

// Recorder keeps a bounded in-memory history of request samples and derives
// aggregate statistics from it. Eviction is oldest-first. State is owned by
// the process and cleared on restart or explicit Reset.
type Recorder struct {
	mu       sync.RWMutex
	samples  []Sample
	start    int // ring head
	count    int
	capacity int
	rejected int64

	slowThreshold time.Duration
}

const (
	DefaultSlowThreshold   = 200 * time.Millisecond
	DefaultHistoryCapacity = 1000

	// MaxSlowRequestLimit bounds the slow-requests query.
	MaxSlowRequestLimit = 1000
)

func NewRecorder(capacity int, slowThreshold time.Duration) *Recorder {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	if slowThreshold <= 0 {
		slowThreshold = DefaultSlowThreshold
	}

	return &Recorder{
		samples:       make([]Sample, capacity),
		capacity:      capacity,
		slowThreshold: slowThreshold,
	}
}

// SlowThreshold returns the configured slow-request cutoff.
func (r *Recorder) SlowThreshold() time.Duration {
	return r.slowThreshold
}

// Record appends a sample, evicting the oldest one when the buffer is full.
// The Slow flag is derived here, and only here, so callers cannot disagree
// on the threshold; the stored sample is returned for forwarding.
func (r *Recorder) Record(s Sample) Sample {
	s.Slow = s.DurationMs > float64(r.slowThreshold.Milliseconds())

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count < r.capacity {
		r.samples[(r.start+r.count)%r.capacity] = s
		r.count++
		return s
	}

	// Buffer full: overwrite the oldest slot.
	r.samples[r.start] = s
	r.start = (r.start + 1) % r.capacity
	return s
}

// RecordRejected counts a request rejected by the rate limiter. Rejected
// calls never reach a handler, so they get no latency sample.
func (r *Recorder) RecordRejected() {
	r.mu.Lock()
	r.rejected++
	r.mu.Unlock()
}

// Summary computes aggregate statistics over the history. The second return
// is false when no samples have been recorded since the last reset, which
// callers must treat as "no data" rather than an all-zero summary.
func (r *Recorder) Summary() (*Stats, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.count == 0 {
		return nil, false
	}

	durations := make([]float64, 0, r.count)
	perEndpoint := make(map[string]EndpointStats)

	var total, slowCount int64
	var sum, min, max float64

	for i := 0; i < r.count; i++ {
		s := r.samples[(r.start+i)%r.capacity]

		total++
		sum += s.DurationMs
		durations = append(durations, s.DurationMs)

		if total == 1 || s.DurationMs < min {
			min = s.DurationMs
		}
		if s.DurationMs > max {
			max = s.DurationMs
		}
		if s.Slow {
			slowCount++
		}

		ep := perEndpoint[s.Endpoint]
		ep.Count++
		ep.AvgResponseTime += s.DurationMs // running sum, divided below
		if s.DurationMs > ep.MaxResponseTime {
			ep.MaxResponseTime = s.DurationMs
		}
		if s.Slow {
			ep.SlowCount++
		}
		perEndpoint[s.Endpoint] = ep
	}

	for name, ep := range perEndpoint {
		ep.AvgResponseTime = ep.AvgResponseTime / float64(ep.Count)
		perEndpoint[name] = ep
	}

	sort.Float64s(durations)

	return &Stats{
		TotalRequests:   total,
		MinResponseTime: min,
		MaxResponseTime: max,
		AvgResponseTime: sum / float64(total),
		P95ResponseTime: percentile(durations, 0.95),
		SlowRequestPct:  float64(slowCount) / float64(total) * 100,
		RejectedTotal:   r.rejected,
		PerEndpoint:     perEndpoint,
	}, true
}

// SlowRequests returns up to limit slow samples, most recent first. The
// limit is clamped to [1, MaxSlowRequestLimit].
func (r *Recorder) SlowRequests(limit int) []Sample {
	if limit < 1 {
		limit = 1
	}
	if limit > MaxSlowRequestLimit {
		limit = MaxSlowRequestLimit
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Sample, 0, limit)
	for i := r.count - 1; i >= 0 && len(out) < limit; i-- {
		s := r.samples[(r.start+i)%r.capacity]
		if s.Slow {
			out = append(out, s)
		}
	}

	return out
}

// Reset atomically clears the history and derived counters. It does not
// touch rate-limiter state, which has an independent lifecycle.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.start = 0
	r.count = 0
	r.rejected = 0
}

// percentile interpolates over a sorted slice using the nearest-rank method.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}

	rank := int(float64(len(sorted))*p+0.5) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}

	return sorted[rank]
}
