package governance

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleWithDuration(endpoint string, ms float64) Sample {
	return Sample{
		Endpoint:   endpoint,
		StartedAt:  time.Now(),
		DurationMs: ms,
		StatusCode: 200,
	}
}

func TestRecorder_AggregateCorrectness(t *testing.T) {
	r := NewRecorder(100, 200*time.Millisecond)

	for _, ms := range []float64{50, 100, 250, 300} {
		r.Record(sampleWithDuration("GET /deployments", ms))
	}

	stats, ok := r.Summary()
	require.True(t, ok)

	assert.Equal(t, int64(4), stats.TotalRequests)
	assert.Equal(t, 175.0, stats.AvgResponseTime)
	assert.Equal(t, 50.0, stats.SlowRequestPct)
	assert.Equal(t, 50.0, stats.MinResponseTime)
	assert.Equal(t, 300.0, stats.MaxResponseTime)

	ep, found := stats.PerEndpoint["GET /deployments"]
	require.True(t, found)
	assert.Equal(t, int64(4), ep.Count)
	assert.Equal(t, int64(2), ep.SlowCount)
	assert.Equal(t, 300.0, ep.MaxResponseTime)
}

func TestRecorder_SlowFlagDerivedAtThreshold(t *testing.T) {
	r := NewRecorder(10, 200*time.Millisecond)

	// Exactly at the threshold is not slow; strictly above is
	r.Record(sampleWithDuration("GET /a", 200))
	r.Record(sampleWithDuration("GET /a", 201))

	stats, ok := r.Summary()
	require.True(t, ok)
	assert.Equal(t, 50.0, stats.SlowRequestPct)
}

func TestRecorder_RecordReturnsDerivedSample(t *testing.T) {
	r := NewRecorder(10, 200*time.Millisecond)

	// Callers forward the returned copy, so it must carry the derived flag
	// even when the input's flag is stale.
	out := r.Record(Sample{Endpoint: "GET /a", DurationMs: 350, Slow: false})
	assert.True(t, out.Slow)

	out = r.Record(Sample{Endpoint: "GET /a", DurationMs: 10, Slow: true})
	assert.False(t, out.Slow)
}

func TestRecorder_EmptySummaryDistinguishable(t *testing.T) {
	r := NewRecorder(10, 0)

	stats, ok := r.Summary()
	assert.False(t, ok)
	assert.Nil(t, stats)

	// After activity and a reset, it is empty again rather than all-zero
	r.Record(sampleWithDuration("GET /a", 10))
	_, ok = r.Summary()
	require.True(t, ok)

	r.Reset()
	stats, ok = r.Summary()
	assert.False(t, ok)
	assert.Nil(t, stats)
}

func TestRecorder_CapacityEvictsOldestFirst(t *testing.T) {
	r := NewRecorder(3, 0)

	for i := 1; i <= 5; i++ {
		r.Record(sampleWithDuration("GET /a", float64(i)))
	}

	stats, ok := r.Summary()
	require.True(t, ok)

	// Only the newest three samples (3, 4, 5) survive
	assert.Equal(t, int64(3), stats.TotalRequests)
	assert.Equal(t, 3.0, stats.MinResponseTime)
	assert.Equal(t, 5.0, stats.MaxResponseTime)
	assert.Equal(t, 4.0, stats.AvgResponseTime)
}

func TestRecorder_SlowRequestsMostRecentFirst(t *testing.T) {
	r := NewRecorder(100, 200*time.Millisecond)

	for i := 0; i < 5; i++ {
		r.Record(sampleWithDuration(fmt.Sprintf("GET /slow/%d", i), 500))
		r.Record(sampleWithDuration("GET /fast", 10))
	}

	slow := r.SlowRequests(3)
	require.Len(t, slow, 3)
	assert.Equal(t, "GET /slow/4", slow[0].Endpoint)
	assert.Equal(t, "GET /slow/3", slow[1].Endpoint)
	assert.Equal(t, "GET /slow/2", slow[2].Endpoint)

	// Fast samples never appear no matter the limit
	all := r.SlowRequests(1000)
	assert.Len(t, all, 5)
}

func TestRecorder_SlowRequestsLimitClamped(t *testing.T) {
	r := NewRecorder(10, 100*time.Millisecond)
	r.Record(sampleWithDuration("GET /a", 500))

	assert.Len(t, r.SlowRequests(0), 1)
	assert.Len(t, r.SlowRequests(-5), 1)
	assert.Len(t, r.SlowRequests(10_000), 1)
}

func TestRecorder_RejectedCountedNotSampled(t *testing.T) {
	r := NewRecorder(10, 0)

	r.RecordRejected()
	r.RecordRejected()

	// Rejections alone are not samples; summary still reports no data
	_, ok := r.Summary()
	assert.False(t, ok)

	r.Record(sampleWithDuration("GET /a", 10))
	stats, ok := r.Summary()
	require.True(t, ok)
	assert.Equal(t, int64(1), stats.TotalRequests)
	assert.Equal(t, int64(2), stats.RejectedTotal)
}

func TestRecorder_P95(t *testing.T) {
	r := NewRecorder(200, 0)

	for i := 1; i <= 100; i++ {
		r.Record(sampleWithDuration("GET /a", float64(i)))
	}

	stats, ok := r.Summary()
	require.True(t, ok)
	assert.InDelta(t, 95.0, stats.P95ResponseTime, 1.0)
}
