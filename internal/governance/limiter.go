package governance

import (
	"math"
	"sync"
	"time"
)

// Key identifies one rate-limit budget: a caller identity (user ID or
// client IP) combined with an endpoint class.
type Key struct {
	Identity string
	Class    string
}

// Decision is the outcome of a rate-limit check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Limiter counts requests per key over a sliding time window. All state is
// in-memory and dies with the process; it is never persisted.
type Limiter struct {
	mu      sync.Mutex
	windows map[Key][]time.Time
	idleTTL time.Duration

	lastSweep time.Time
	now       func() time.Time
}

const (
	defaultIdleTTL = 15 * time.Minute
	sweepEvery     = time.Minute
)

func NewLimiter() *Limiter {
	return &Limiter{
		windows: make(map[Key][]time.Time),
		idleTTL: defaultIdleTTL,
		now:     time.Now,
	}
}

// Check decides whether a request for key is admitted under the given limit
// and window. The purge, count and append happen atomically under the
// limiter mutex so concurrent callers for the same key are serialized.
//
// Entries are purged lazily on access; no background sweep runs for window
// state. ResetAt is now+window truncated to the second. RetryAfter is the
// time until the oldest retained timestamp leaves the window, rounded up to
// at least one second.
func (l *Limiter) Check(key Key, limit int, window time.Duration) Decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.maybeSweep(now)

	cutoff := now.Add(-window)
	stamps := l.windows[key]

	// Drop entries that have slid out of the window.
	kept := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	resetAt := now.Add(window).Truncate(time.Second)

	if len(kept) >= limit {
		l.windows[key] = kept

		retry := time.Duration(math.Ceil(kept[0].Add(window).Sub(now).Seconds())) * time.Second
		if retry < time.Second {
			retry = time.Second
		}

		return Decision{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retry,
		}
	}

	kept = append(kept, now)
	l.windows[key] = kept

	return Decision{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(kept),
		ResetAt:   resetAt,
	}
}

// Reset drops all window state. Used by tests and isolated instances; the
// metrics reset endpoint intentionally does not call this.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.windows = make(map[Key][]time.Time)
}

// Keys returns the number of tracked keys.
func (l *Limiter) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// maybeSweep evicts keys idle past idleTTL. Piggybacked on Check so no
// janitor goroutine is needed; runs at most once per sweepEvery. Caller
// holds the mutex.
func (l *Limiter) maybeSweep(now time.Time) {
	if now.Sub(l.lastSweep) < sweepEvery {
		return
	}
	l.lastSweep = now

	cutoff := now.Add(-l.idleTTL)
	for key, stamps := range l.windows {
		if len(stamps) == 0 || stamps[len(stamps)-1].Before(cutoff) {
			delete(l.windows, key)
		}
	}
}
