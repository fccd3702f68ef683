package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"assistance-portal/internal/form/locale"
	"assistance-portal/internal/form/session"
)

// ErrSessionNotFound is returned for ids that are neither live nor stored.
var ErrSessionNotFound = errors.New("SESSION_NOT_FOUND")

type entry struct {
	mu       sync.Mutex
	ctrl     *Controller
	lastUsed time.Time
	evicted  bool
}

// Registry keeps the live controllers, one per browsing session, and
// serializes access to each. Idle controllers are evicted and later rebuilt
// from the store.
type Registry struct {
	cfg  Config
	idle time.Duration

	mu      sync.Mutex
	entries map[string]*entry
}

// NewRegistry returns an empty registry. idle <= 0 disables eviction.
func NewRegistry(cfg Config, idle time.Duration) *Registry {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Registry{cfg: cfg, idle: idle, entries: make(map[string]*entry)}
}

// Create starts a new session and returns its controller's id.
func (r *Registry) Create(prefs locale.Preferences) string {
	id := uuid.NewString()
	e := &entry{ctrl: New(id, prefs, r.cfg), lastUsed: r.cfg.Now()}

	r.mu.Lock()
	r.entries[id] = e
	r.mu.Unlock()
	return id
}

// With runs fn with exclusive access to the session's controller, resuming
// it from the store if it is not live.
func (r *Registry) With(ctx context.Context, id string, prefs locale.Preferences, fn func(*Controller) error) error {
	for {
		e, err := r.get(ctx, id, prefs)
		if err != nil {
			return err
		}

		e.mu.Lock()
		if e.evicted {
			e.mu.Unlock()
			continue
		}
		e.lastUsed = r.cfg.Now()
		err = fn(e.ctrl)
		e.mu.Unlock()
		return err
	}
}

func (r *Registry) get(ctx context.Context, id string, prefs locale.Preferences) (*entry, error) {
	r.mu.Lock()
	e, ok := r.entries[id]
	r.mu.Unlock()
	if ok {
		return e, nil
	}

	if r.cfg.Store == nil {
		return nil, ErrSessionNotFound
	}
	stored, err := r.cfg.Store.Load(ctx, id)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) && r.cfg.Logger != nil {
			r.cfg.Logger.Warn("session resume skipped", map[string]interface{}{
				"sessionId": id,
				"error":     err.Error(),
			})
		}
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	fresh := &entry{ctrl: Resume(stored, prefs, r.cfg), lastUsed: r.cfg.Now()}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.entries[id]; ok {
		return existing, nil
	}
	r.entries[id] = fresh
	return fresh, nil
}

// Remove evicts a session from memory. Stored state is untouched.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	e, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()

	if ok {
		e.mu.Lock()
		e.evicted = true
		e.mu.Unlock()
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep evicts sessions idle since before now-idle and returns how many.
// Sessions currently in use are skipped.
func (r *Registry) Sweep(now time.Time) int {
	if r.idle <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, e := range r.entries {
		if !e.mu.TryLock() {
			continue
		}
		if now.Sub(e.lastUsed) >= r.idle {
			e.evicted = true
			delete(r.entries, id)
			evicted++
		}
		e.mu.Unlock()
	}
	return evicted
}
