package presence

import (
	"context"
	"errors"
	"sync"
	"time"

	"geofriends-service/internal/logger"
	"geofriends-service/internal/models"
)

// State of a tracker session.
type State int

const (
	Idle State = iota
	Sampling
	Active
	Denied
	Errored
)

// SampleInterval is the fixed re-sampling cadence, independent of the
// configured per-query timeout.
const SampleInterval = 15 * time.Second

// ErrPermissionDenied classifies a sample failure as a permanent permission
// refusal; anything else is treated as transient.
var ErrPermissionDenied = errors.New("geolocation permission denied")

// Sampler is the geolocation collaborator: it yields the device position or
// an error.
type Sampler interface {
	Sample(ctx context.Context) (models.Location, error)
}

// Store persists a user's presence.
type Store interface {
	SetPresence(ctx context.Context, userID string, online bool, location *models.Location) error
}

// Tracker drives one presence session: it samples the collaborator on a
// fixed interval and mirrors the result onto the user record. Permission
// denial ends the session; transient errors keep the previous fix and retry
// on the next tick.
type Tracker struct {
	userID       string
	sampler      Sampler
	store        Store
	watcher      *Watcher
	queryTimeout time.Duration

	mu    sync.Mutex
	state State
}

// NewTracker builds a tracker for one user session. watcher may be nil.
func NewTracker(userID string, sampler Sampler, store Store, watcher *Watcher, queryTimeout time.Duration) *Tracker {
	if queryTimeout <= 0 {
		queryTimeout = 10 * time.Second
	}
	return &Tracker{
		userID:       userID,
		sampler:      sampler,
		store:        store,
		watcher:      watcher,
		queryTimeout: queryTimeout,
		state:        Idle,
	}
}

// State returns the tracker's current state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Tracker) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// Run samples immediately, then on the fixed interval, until the context
// ends or permission is denied. On the way out it always performs the
// best-effort offline write.
func (t *Tracker) Run(ctx context.Context) {
	defer t.goOffline()

	t.setState(Sampling)
	if done := t.SampleOnce(ctx); done {
		return
	}

	ticker := time.NewTicker(SampleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if done := t.SampleOnce(ctx); done {
				return
			}
		}
	}
}

// SampleOnce performs a single bounded sample and reports whether the
// session is over.
func (t *Tracker) SampleOnce(ctx context.Context) bool {
	sctx, cancel := context.WithTimeout(ctx, t.queryTimeout)
	defer cancel()

	loc, err := t.sampler.Sample(sctx)
	if ctx.Err() != nil {
		// The session was torn down while a sample was in flight; discard
		// whatever came back.
		return true
	}
	if errors.Is(err, ErrPermissionDenied) {
		t.setState(Denied)
		return true
	}
	if err != nil {
		// Transient: keep the previous fix, retry on the next tick.
		t.setState(Errored)
		logger.Warnf("presence sample failed user=%s: %v", t.userID, err)
		return false
	}

	if err := t.store.SetPresence(ctx, t.userID, true, &loc); err != nil {
		t.setState(Errored)
		logger.Errorf("presence write failed user=%s: %v", t.userID, err)
		return false
	}
	if t.watcher != nil {
		t.watcher.Observe(t.userID)
	}
	t.setState(Active)
	return false
}

// goOffline clears the user's presence; the write is best-effort because the
// session may already be closing down.
func (t *Tracker) goOffline() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := t.store.SetPresence(ctx, t.userID, false, nil); err != nil {
		logger.Warnf("presence offline write failed user=%s: %v", t.userID, err)
	}
	if t.watcher != nil {
		t.watcher.Forget(t.userID)
	}
}
