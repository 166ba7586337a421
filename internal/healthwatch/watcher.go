package healthwatch

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dockhand-io/dockhand/internal/governance"
	"github.com/dockhand-io/dockhand/internal/notify"
)

// Watcher periodically assesses governance health and alerts when the
// service degrades to critical. Alerts are rate-limited by a cooldown so a
// sustained incident produces one notification, not one per tick.
type Watcher struct {
	mu         sync.Mutex
	governor   *governance.Governor
	provider   notify.Provider
	recipients []string
	interval   time.Duration
	cooldown   time.Duration
	lastAlert  time.Time
	lastStatus string
	stopChan   chan struct{}
	running    bool
}

type Config struct {
	Recipients []string
	Interval   time.Duration // How often to assess (default: 30s)
	Cooldown   time.Duration // Minimum gap between alerts (default: 15m)
}

func New(governor *governance.Governor, provider notify.Provider, cfg Config) *Watcher {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 15 * time.Minute
	}

	return &Watcher{
		governor:   governor,
		provider:   provider,
		recipients: cfg.Recipients,
		interval:   cfg.Interval,
		cooldown:   cfg.Cooldown,
		lastStatus: governance.StatusNoData,
		stopChan:   make(chan struct{}),
	}
}

// Start begins periodic health assessment
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	log.Printf("Starting health watcher (interval: %v)", w.interval)

	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				w.assess()
			case <-w.stopChan:
				return
			}
		}
	}()
}

// Stop halts the watcher
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		close(w.stopChan)
		w.running = false
		log.Printf("Health watcher stopped")
	}
}

func (w *Watcher) assess() {
	report := w.governor.Health()

	w.mu.Lock()
	transitioned := report.Status == governance.StatusCritical &&
		w.lastStatus != governance.StatusCritical
	cooledDown := time.Since(w.lastAlert) >= w.cooldown
	shouldAlert := report.Status == governance.StatusCritical && (transitioned || cooledDown)
	if shouldAlert {
		w.lastAlert = time.Now()
	}
	w.lastStatus = report.Status
	w.mu.Unlock()

	if !shouldAlert || len(w.recipients) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	subject := "dockhand: service health is critical"
	body := fmt.Sprintf(
		"Health assessment degraded to critical.\n\n"+
			"Average response time: %.1fms\n"+
			"Slow request percentage: %.1f%%\n"+
			"Total requests in window: %d\n"+
			"Warnings: %v\n",
		report.AvgResponseTime, report.SlowRequestPct, report.TotalRequests, report.Warnings,
	)

	if err := w.provider.Send(ctx, w.recipients, subject, body); err != nil {
		// Alert delivery failures never propagate beyond the log
		log.Printf("Failed to send health alert via %s: %v", w.provider.Name(), err)
	}
}
