package healthwatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dockhand-io/dockhand/internal/governance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu    sync.Mutex
	sends []string
}

func (f *fakeProvider) Send(_ context.Context, _ []string, subject, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, subject)
	return nil
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

func newCriticalGovernor(t *testing.T) *governance.Governor {
	t.Helper()

	gov := governance.NewGovernor(governance.Config{
		SlowThreshold:   200 * time.Millisecond,
		HistoryCapacity: 100,
		Window:          time.Minute,
	})
	for i := 0; i < 10; i++ {
		gov.Observe(governance.Sample{Endpoint: "GET /x", DurationMs: 900, StatusCode: 200})
	}

	report := gov.Health()
	require.Equal(t, governance.StatusCritical, report.Status)

	return gov
}

func TestWatcher_AlertsOnCriticalTransition(t *testing.T) {
	gov := newCriticalGovernor(t)
	provider := &fakeProvider{}

	w := New(gov, provider, Config{Recipients: []string{"ops@example.com"}})

	w.assess()
	assert.Equal(t, 1, provider.count())
}

func TestWatcher_CooldownSuppressesRepeats(t *testing.T) {
	gov := newCriticalGovernor(t)
	provider := &fakeProvider{}

	w := New(gov, provider, Config{
		Recipients: []string{"ops@example.com"},
		Cooldown:   time.Hour,
	})

	w.assess()
	w.assess()
	w.assess()

	assert.Equal(t, 1, provider.count(), "sustained critical must not re-alert within the cooldown")
}

func TestWatcher_ReAlertsAfterRecoveryAndRelapse(t *testing.T) {
	gov := newCriticalGovernor(t)
	provider := &fakeProvider{}

	w := New(gov, provider, Config{
		Recipients: []string{"ops@example.com"},
		Cooldown:   time.Hour,
	})

	w.assess()
	require.Equal(t, 1, provider.count())

	// Recovery clears the critical state
	gov.ResetMetrics()
	w.assess()
	require.Equal(t, 1, provider.count())

	// Relapse into critical alerts again despite the cooldown
	for i := 0; i < 10; i++ {
		gov.Observe(governance.Sample{Endpoint: "GET /x", DurationMs: 900, StatusCode: 200})
	}
	w.assess()
	assert.Equal(t, 2, provider.count())
}

func TestWatcher_NoRecipientsNoSend(t *testing.T) {
	gov := newCriticalGovernor(t)
	provider := &fakeProvider{}

	w := New(gov, provider, Config{})
	w.assess()

	assert.Equal(t, 0, provider.count())
}

func TestWatcher_HealthyNeverAlerts(t *testing.T) {
	gov := governance.NewGovernor(governance.Config{Window: time.Minute})
	gov.Observe(governance.Sample{Endpoint: "GET /x", DurationMs: 20, StatusCode: 200})

	provider := &fakeProvider{}
	w := New(gov, provider, Config{Recipients: []string{"ops@example.com"}})

	w.assess()
	assert.Equal(t, 0, provider.count())
}

func TestWatcher_StartStopIdempotent(t *testing.T) {
	gov := governance.NewGovernor(governance.Config{Window: time.Minute})
	w := New(gov, &fakeProvider{}, Config{Interval: 10 * time.Millisecond})

	w.Start()
	w.Start()
	w.Stop()
	w.Stop()
}
