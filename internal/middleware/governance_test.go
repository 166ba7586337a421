package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/dockhand-io/dockhand/internal/governance"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGovernor(classes ...governance.ClassLimit) *governance.Governor {
	return governance.NewGovernor(governance.Config{
		SlowThreshold:   200 * time.Millisecond,
		HistoryCapacity: 100,
		Window:          time.Minute,
		Classes:         classes,
	})
}

func newGovernedRouter(gov *governance.Governor, pre ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(pre...)
	r.Use(Governance(gov))

	r.GET("/deployments/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})
	r.GET("/deployments/:id/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/metrics/summary", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/boom", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
	})

	return r
}

func doGet(r *gin.Engine, path, addr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = addr
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func requireRateLimitHeaders(t *testing.T, w *httptest.ResponseRecorder) (limit, remaining, reset int) {
	t.Helper()

	var err error
	limit, err = strconv.Atoi(w.Header().Get("X-RateLimit-Limit"))
	require.NoError(t, err, "X-RateLimit-Limit must be a well-formed integer")
	remaining, err = strconv.Atoi(w.Header().Get("X-RateLimit-Remaining"))
	require.NoError(t, err, "X-RateLimit-Remaining must be a well-formed integer")
	reset, err = strconv.Atoi(w.Header().Get("X-RateLimit-Reset"))
	require.NoError(t, err, "X-RateLimit-Reset must be a well-formed integer")

	return limit, remaining, reset
}

func TestGovernance_HeadersOnEveryResponse(t *testing.T) {
	gov := newTestGovernor(governance.ClassLimit{Name: governance.ClassDefault, RequestsPerMinute: 2})
	r := newGovernedRouter(gov)

	// Admitted responses carry the three headers
	w := doGet(r, "/deployments/abc", "10.0.0.1:1234")
	require.Equal(t, http.StatusOK, w.Code)
	limit, remaining, reset := requireRateLimitHeaders(t, w)
	assert.Equal(t, 2, limit)
	assert.Equal(t, 1, remaining)
	assert.Greater(t, reset, 0)
	assert.Empty(t, w.Header().Get("Retry-After"))

	doGet(r, "/deployments/abc", "10.0.0.1:1234")

	// Rejected responses carry them too, plus Retry-After
	w = doGet(r, "/deployments/abc", "10.0.0.1:1234")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	_, remaining, _ = requireRateLimitHeaders(t, w)
	assert.Equal(t, 0, remaining)

	retryAfter, err := strconv.Atoi(w.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.Greater(t, retryAfter, 0)
}

func TestGovernance_HeadersPresentOnHandlerErrors(t *testing.T) {
	gov := newTestGovernor()
	r := newGovernedRouter(gov)

	w := doGet(r, "/boom", "10.0.0.1:1234")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	requireRateLimitHeaders(t, w)

	// Failed handlers still produce a latency sample
	stats, ok := gov.Summary()
	require.True(t, ok)
	assert.Equal(t, int64(1), stats.TotalRequests)
}

func TestGovernance_PanickingHandlerStillSampled(t *testing.T) {
	gov := newTestGovernor()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery())
	r.Use(Governance(gov))
	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := doGet(r, "/panic", "10.0.0.1:1234")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	requireRateLimitHeaders(t, w)

	stats, ok := gov.Summary()
	require.True(t, ok, "panicking handlers are not dropped from telemetry")
	assert.Equal(t, int64(1), stats.TotalRequests)
}

func TestGovernance_RejectedCallsNotSampled(t *testing.T) {
	gov := newTestGovernor(governance.ClassLimit{Name: governance.ClassDefault, RequestsPerMinute: 1})
	r := newGovernedRouter(gov)

	doGet(r, "/deployments/abc", "10.0.0.1:1234")
	w := doGet(r, "/deployments/abc", "10.0.0.1:1234")
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	stats, ok := gov.Summary()
	require.True(t, ok)
	assert.Equal(t, int64(1), stats.TotalRequests, "only the admitted call is sampled")
	assert.Equal(t, int64(1), stats.RejectedTotal)
}

func TestGovernance_PathParamsCollapseToOneBucket(t *testing.T) {
	gov := newTestGovernor()
	r := newGovernedRouter(gov)

	doGet(r, "/deployments/aaa", "10.0.0.1:1234")
	doGet(r, "/deployments/bbb", "10.0.0.1:1234")
	doGet(r, "/deployments/ccc", "10.0.0.1:1234")

	stats, ok := gov.Summary()
	require.True(t, ok)
	require.Len(t, stats.PerEndpoint, 1)

	ep, found := stats.PerEndpoint["GET /deployments/:id"]
	require.True(t, found)
	assert.Equal(t, int64(3), ep.Count)
}

func TestGovernance_ClassesHaveIndependentBudgets(t *testing.T) {
	gov := newTestGovernor(
		governance.ClassLimit{Name: governance.ClassDefault, RequestsPerMinute: 1},
		governance.ClassLimit{Name: governance.ClassStats, RequestsPerMinute: 1},
		governance.ClassLimit{Name: governance.ClassMetrics, RequestsPerMinute: 5},
	)
	r := newGovernedRouter(gov)

	// Exhaust the default class
	doGet(r, "/deployments/abc", "10.0.0.1:1234")
	w := doGet(r, "/deployments/abc", "10.0.0.1:1234")
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	// Stats and metrics classes for the same caller are untouched
	w = doGet(r, "/deployments/abc/stats", "10.0.0.1:1234")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doGet(r, "/metrics/summary", "10.0.0.1:1234")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGovernance_IdentityFromContextOverridesAddress(t *testing.T) {
	gov := newTestGovernor(governance.ClassLimit{Name: governance.ClassDefault, RequestsPerMinute: 1})

	asUser := func(id string) gin.HandlerFunc {
		return func(c *gin.Context) {
			c.Set("user_id", id)
			c.Next()
		}
	}

	r := newGovernedRouter(gov, asUser("user-1"))

	// Same source address, but the identity key is the user ID
	doGet(r, "/deployments/abc", "10.0.0.1:1234")
	w := doGet(r, "/deployments/abc", "10.0.0.2:9999")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestGovernance_AnonymousCallersKeyedByAddress(t *testing.T) {
	gov := newTestGovernor(governance.ClassLimit{Name: governance.ClassDefault, RequestsPerMinute: 1})
	r := newGovernedRouter(gov)

	doGet(r, "/deployments/abc", "10.0.0.1:1234")
	w := doGet(r, "/deployments/abc", "10.0.0.1:5678")
	require.Equal(t, http.StatusTooManyRequests, w.Code, "same address shares one budget")

	w = doGet(r, "/deployments/abc", "10.0.0.2:1234")
	assert.Equal(t, http.StatusOK, w.Code, "different address gets its own budget")
}
