package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dockhand-io/dockhand/internal/governance"
	"github.com/gin-gonic/gin"
)

// Governance is the single interception point for every governed endpoint:
// it runs the rate-limit check, short-circuits with 429 when the budget is
// exhausted, and otherwise times the downstream handler and records a
// latency sample. The three X-RateLimit headers are attached to every
// response, admitted or rejected.
func Governance(gov *governance.Governor) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := c.GetString("user_id")
		if identity == "" {
			// Anonymous routes are keyed by client address
			identity = c.ClientIP()
		}

		// FullPath is the route template, so /deployments/:id/stats is one
		// bucket regardless of the id.
		route := routeTemplate(c)
		endpoint := c.Request.Method + " " + route
		class := governance.ClassifyRoute(route)

		decision := gov.Check(identity, class)

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", decision.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", decision.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", decision.ResetAt.Unix()))

		if !decision.Allowed {
			gov.ObserveRejected()

			retryAfter := int(decision.RetryAfter.Seconds())
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"limit":       decision.Limit,
				"retry_after": retryAfter,
			})
			c.Abort()
			return
		}

		start := time.Now()

		// Recorded regardless of handler outcome: errors, panics and
		// cancelled requests all still produce a sample.
		defer func() {
			duration := time.Since(start)

			status := c.Writer.Status()
			if c.Request.Context().Err() != nil && status < http.StatusInternalServerError {
				status = http.StatusServiceUnavailable
			}

			p := recover()
			if p != nil {
				status = http.StatusInternalServerError
			}

			gov.Observe(governance.Sample{
				Endpoint:   endpoint,
				StartedAt:  start,
				DurationMs: float64(duration.Microseconds()) / 1000.0,
				StatusCode: status,
			})

			if p != nil {
				// The recovery middleware owns the 500 response
				panic(p)
			}
		}()

		c.Next()
	}
}

func routeTemplate(c *gin.Context) string {
	if fp := c.FullPath(); fp != "" {
		return fp
	}
	// No matched route (404s); bucket them together rather than one entry
	// per raw path.
	return "unmatched"
}
