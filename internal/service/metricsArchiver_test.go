package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dockhand-io/dockhand/internal/governance"
	"github.com/dockhand-io/dockhand/internal/models"
)

type fakeSnapshotStore struct {
	mu    sync.Mutex
	total int
}

func (f *fakeSnapshotStore) CreateBatch(_ context.Context, snapshots []models.MetricSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.total += len(snapshots)
	return nil
}

func (f *fakeSnapshotStore) archived() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total
}

func TestMetricsArchiver_ObserveAfterStopIsSafe(t *testing.T) {
	gov := governance.NewGovernor(governance.Config{
		SlowThreshold:   200 * time.Millisecond,
		HistoryCapacity: 10,
	})

	a := NewMetricsArchiver(&fakeSnapshotStore{}, 4)
	gov.SetSink(a.Sink())
	a.Start()
	a.Stop()

	// In-flight requests can outlive the archiver during shutdown; their
	// samples must be dropped, not crash the process.
	require.NotPanics(t, func() {
		gov.Observe(governance.Sample{
			Endpoint:   "GET /deployments",
			StartedAt:  time.Now(),
			DurationMs: 12.5,
			StatusCode: 200,
		})
	})
}

func TestMetricsArchiver_StopFlushesPendingBatch(t *testing.T) {
	store := &fakeSnapshotStore{}
	a := NewMetricsArchiver(store, 16)
	a.Start()

	for i := 0; i < 3; i++ {
		a.Sink() <- governance.Sample{
			Endpoint:   "GET /deployments",
			StartedAt:  time.Now(),
			DurationMs: 5,
			StatusCode: 200,
		}
	}
	a.Stop()

	assert.Equal(t, 3, store.archived())
}
