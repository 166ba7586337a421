package service

import (
	"context"
	"log"
	"time"

	"github.com/dockhand-io/dockhand/internal/governance"
	"github.com/dockhand-io/dockhand/internal/models"
)

// snapshotStore is the slice of the metrics repository the archiver needs.
type snapshotStore interface {
	CreateBatch(ctx context.Context, snapshots []models.MetricSnapshot) error
}

// MetricsArchiver drains the governor's sample sink and batch-inserts
// snapshots into postgres, off the request path. The in-memory recorder
// stays authoritative for the live metrics endpoints; archived rows are
// long-term history only.
type MetricsArchiver struct {
	repo      snapshotStore
	samples   chan governance.Sample
	batchSize int
	flushEach time.Duration
	stop      chan struct{}
	done      chan struct{}
}

func NewMetricsArchiver(repo snapshotStore, bufferSize int) *MetricsArchiver {
	if bufferSize <= 0 {
		bufferSize = 1024
	}

	return &MetricsArchiver{
		repo:      repo,
		samples:   make(chan governance.Sample, bufferSize),
		batchSize: 100,
		flushEach: 5 * time.Second,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Sink returns the channel to hand to Governor.SetSink. The channel is
// never closed; the governor may keep sending after Stop and those
// samples are simply dropped once the buffer fills.
func (a *MetricsArchiver) Sink() chan<- governance.Sample {
	return a.samples
}

// Start launches the background worker. Call Stop to flush and exit.
func (a *MetricsArchiver) Start() {
	go a.run()
}

func (a *MetricsArchiver) run() {
	batch := make([]models.MetricSnapshot, 0, a.batchSize)
	ticker := time.NewTicker(a.flushEach)
	defer ticker.Stop()

	for {
		select {
		case s := <-a.samples:
			batch = a.collect(batch, s)
		case <-ticker.C:
			if len(batch) > 0 {
				a.insert(batch)
				batch = batch[:0]
			}
		case <-a.stop:
			// Drain whatever is already buffered, then flush and exit.
			for {
				select {
				case s := <-a.samples:
					batch = a.collect(batch, s)
				default:
					a.insert(batch)
					close(a.done)
					return
				}
			}
		}
	}
}

func (a *MetricsArchiver) collect(batch []models.MetricSnapshot, s governance.Sample) []models.MetricSnapshot {
	batch = append(batch, models.MetricSnapshot{
		Timestamp:      s.StartedAt,
		Endpoint:       s.Endpoint,
		StatusCode:     s.StatusCode,
		ResponseTimeMs: s.DurationMs,
		IsSlow:         s.Slow,
	})

	if len(batch) >= a.batchSize {
		a.insert(batch)
		batch = batch[:0]
	}
	return batch
}

func (a *MetricsArchiver) insert(batch []models.MetricSnapshot) {
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.repo.CreateBatch(ctx, batch); err != nil {
		// Archived history is best effort; never block or fail requests
		log.Printf("Failed to archive %d metric snapshots: %v", len(batch), err)
	}
}

// Stop drains buffered samples, flushes the pending batch and waits for
// the worker to exit.
func (a *MetricsArchiver) Stop() {
	close(a.stop)
	<-a.done
}
