package governance

import (
	"strings"
	"time"
)

// Endpoint classes. Routes grouped under one class share a single budget.
const (
	ClassDefault = "default"
	ClassMetrics = "metrics"
	ClassStats   = "stats"
	ClassAuth    = "auth"
)

// ClassifyRoute maps a route template onto an endpoint class. Grouping is
// by route shape: all per-container stats routes share one budget, the
// metrics surface another, unauthenticated auth routes a third, and
// everything else falls into the default API budget.
func ClassifyRoute(route string) string {
	switch {
	case strings.HasPrefix(route, "/metrics"):
		return ClassMetrics
	case strings.HasSuffix(route, "/stats"):
		return ClassStats
	case strings.HasPrefix(route, "/auth"), route == "/health":
		return ClassAuth
	default:
		return ClassDefault
	}
}

// ClassLimit is one row of the endpoint-class limit table.
type ClassLimit struct {
	Name              string
	RequestsPerMinute int
}

// Config carries the tunables for a Governor instance.
type Config struct {
	SlowThreshold   time.Duration
	HistoryCapacity int
	Window          time.Duration
	Classes         []ClassLimit
}

// Governor owns all request-governance state for one service instance: the
// sliding-window limiter, the latency recorder and the endpoint-class limit
// table. It is constructed once at startup and injected where needed; there
// is no package-level instance.
type Governor struct {
	limiter  *Limiter
	recorder *Recorder
	window   time.Duration
	limits   map[string]int
	sink     chan<- Sample
}

const defaultClassLimit = 120

func NewGovernor(cfg Config) *Governor {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}

	limits := make(map[string]int)
	for _, cl := range cfg.Classes {
		if cl.RequestsPerMinute > 0 {
			limits[cl.Name] = cl.RequestsPerMinute
		}
	}
	if _, ok := limits[ClassDefault]; !ok {
		limits[ClassDefault] = defaultClassLimit
	}

	return &Governor{
		limiter:  NewLimiter(),
		recorder: NewRecorder(cfg.HistoryCapacity, cfg.SlowThreshold),
		window:   cfg.Window,
		limits:   limits,
	}
}

// SetSink attaches a channel that receives a copy of every recorded sample,
// typically consumed by the metrics archiver. Sends never block: when the
// channel is full the copy is dropped and only the in-memory history keeps
// the sample.
func (g *Governor) SetSink(sink chan<- Sample) {
	g.sink = sink
}

// Check runs the admission decision for one request.
func (g *Governor) Check(identity, class string) Decision {
	limit, ok := g.limits[class]
	if !ok {
		class = ClassDefault
		limit = g.limits[ClassDefault]
	}

	return g.limiter.Check(Key{Identity: identity, Class: class}, limit, g.window)
}

// Observe records a completed request and forwards a copy to the sink.
func (g *Governor) Observe(s Sample) {
	s = g.recorder.Record(s)

	if g.sink != nil {
		select {
		case g.sink <- s:
		default:
		}
	}
}

// ObserveRejected counts a 429 without creating a latency sample.
func (g *Governor) ObserveRejected() {
	g.recorder.RecordRejected()
}

func (g *Governor) Summary() (*Stats, bool) {
	return g.recorder.Summary()
}

func (g *Governor) SlowRequests(limit int) []Sample {
	return g.recorder.SlowRequests(limit)
}

// Health assesses the current summary.
func (g *Governor) Health() Report {
	stats, ok := g.recorder.Summary()
	if !ok {
		return AssessHealth(nil)
	}
	return AssessHealth(stats)
}

// ResetMetrics clears the recorder. Limiter windows are untouched; quota
// accounting and telemetry have independent lifecycles.
func (g *Governor) ResetMetrics() {
	g.recorder.Reset()
}
