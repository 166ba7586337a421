package governance

// Health status values, ordered from best to worst.
const (
	StatusNoData   = "no_data"
	StatusHealthy  = "healthy"
	StatusWarning  = "warning"
	StatusCritical = "critical"
)

// Thresholds for the health assessment, in milliseconds / percent.
const (
	avgWarningMs  = 200.0
	avgCriticalMs = 500.0

	slowPctWarning  = 5.0
	slowPctCritical = 20.0
)

// Report is the outcome of a health assessment.
type Report struct {
	Status          string   `json:"status"`
	AvgResponseTime float64  `json:"avg_response_time_ms"`
	SlowRequestPct  float64  `json:"slow_request_percentage"`
	TotalRequests   int64    `json:"total_requests"`
	Warnings        []string `json:"warnings"`
	Recommendations []string `json:"recommendations"`
}

// AssessHealth classifies aggregate stats into healthy/warning/critical.
// Two independent signals are evaluated (average response time and slow
// request percentage) and the final status is the worst of the two. A nil
// stats value degrades to no_data with guidance instead of an error.
//
// This is a pure function: no state, no transitions between calls.
func AssessHealth(stats *Stats) Report {
	if stats == nil || stats.TotalRequests == 0 {
		return Report{
			Status:          StatusNoData,
			Warnings:        []string{},
			Recommendations: []string{"No requests recorded yet; health cannot be assessed"},
		}
	}

	report := Report{
		Status:          StatusHealthy,
		AvgResponseTime: stats.AvgResponseTime,
		SlowRequestPct:  stats.SlowRequestPct,
		TotalRequests:   stats.TotalRequests,
		Warnings:        []string{},
		Recommendations: []string{},
	}

	switch {
	case stats.AvgResponseTime > avgCriticalMs:
		report.Status = StatusCritical
		report.Warnings = append(report.Warnings,
			"Average response time exceeds 500ms")
		report.Recommendations = append(report.Recommendations,
			"Investigate slow database queries and external calls on the hottest endpoints")
	case stats.AvgResponseTime > avgWarningMs:
		report.Status = StatusWarning
		report.Warnings = append(report.Warnings,
			"Average response time exceeds 200ms")
		report.Recommendations = append(report.Recommendations,
			"Profile the slowest endpoints and consider caching frequent reads")
	}

	switch {
	case stats.SlowRequestPct > slowPctCritical:
		report.Status = StatusCritical
		report.Warnings = append(report.Warnings,
			"More than 20% of requests are slow")
		report.Recommendations = append(report.Recommendations,
			"A large share of traffic is degraded; check resource saturation on the host")
	case stats.SlowRequestPct > slowPctWarning:
		if report.Status != StatusCritical {
			report.Status = StatusWarning
		}
		report.Warnings = append(report.Warnings,
			"More than 5% of requests are slow")
		report.Recommendations = append(report.Recommendations,
			"Review the slow-request list for endpoints needing optimization")
	}

	if report.Status == StatusHealthy {
		report.Recommendations = append(report.Recommendations,
			"Performance is within normal thresholds; no action needed")
	}

	return report
}
