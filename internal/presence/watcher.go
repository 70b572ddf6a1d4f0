package presence

import (
	"context"
	"sync"
	"time"

	"geofriends-service/internal/observability"
)

// Watcher records each user's last successful sample time and answers
// freshness queries for the roster's conservative trust policy: a client
// that cannot confirm its own freshness does not get the roster snapshot.
type Watcher struct {
	mu   sync.RWMutex
	last map[string]time.Time
	now  func() time.Time
}

// NewWatcher creates an empty watcher.
func NewWatcher() *Watcher {
	return &Watcher{
		last: make(map[string]time.Time),
		now:  time.Now,
	}
}

// Observe records a successful sample for the user.
func (w *Watcher) Observe(userID string) {
	w.mu.Lock()
	w.last[userID] = w.now()
	w.mu.Unlock()
}

// Forget drops the user's sample record, e.g. when their session ends.
func (w *Watcher) Forget(userID string) {
	w.mu.Lock()
	delete(w.last, userID)
	w.mu.Unlock()
}

// Fresh reports whether the user produced a sample within the inactivity
// window.
func (w *Watcher) Fresh(userID string, inactive time.Duration) bool {
	w.mu.RLock()
	at, ok := w.last[userID]
	w.mu.RUnlock()
	if !ok {
		return false
	}
	return w.now().Sub(at) <= inactive
}

// Sweep counts fresh sessions against the inactivity window and publishes
// the gauge.
func (w *Watcher) Sweep(inactive time.Duration) {
	now := w.now()
	fresh := 0
	w.mu.RLock()
	total := len(w.last)
	for _, at := range w.last {
		if now.Sub(at) <= inactive {
			fresh++
		}
	}
	w.mu.RUnlock()
	observability.SetPresenceSessions(total, fresh)
}

// Run sweeps on its own timer, independent of the trackers' sampling
// interval, until the context ends. The window is resolved on every sweep
// so an admin timing change takes effect without a restart.
func (w *Watcher) Run(ctx context.Context, interval time.Duration, window func() time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Sweep(window())
		}
	}
}
