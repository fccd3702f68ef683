package session

import (
	"context"
	"sync"
	"time"

	"assistance-portal/internal/common/logger"
	"assistance-portal/internal/models"
)

// DefaultAutosaveDelay is the debounce interval for field edits.
const DefaultAutosaveDelay = 1500 * time.Millisecond

// FailureRecorder is notified of failed background writes.
type FailureRecorder interface {
	RecordStoreError(operation string)
}

type pendingSave struct {
	session models.WizardSession
	gen     uint64
	timer   *time.Timer
}

// durable is the newest snapshot known to be in the store.
type durable struct {
	gen     uint64
	session *models.WizardSession
}

// Autosaver debounces writes to an underlying Store. Schedule coalesces
// bursts of edits into one write; Save writes at once. Load returns a pending
// snapshot before consulting the store, so readers always see the newest state.
// Writes are ordered: a snapshot never overwrites a newer one. Persisted
// reports what the store holds, pending snapshots excluded.
type Autosaver struct {
	store    Store
	delay    time.Duration
	logger   logger.Logger
	failures FailureRecorder

	mu      sync.Mutex
	seq     uint64
	pending map[string]*pendingSave
	written map[string]durable

	writeMu sync.Mutex
}

// NewAutosaver wraps store. delay <= 0 selects DefaultAutosaveDelay.
func NewAutosaver(store Store, delay time.Duration, log logger.Logger) *Autosaver {
	if delay <= 0 {
		delay = DefaultAutosaveDelay
	}
	return &Autosaver{
		store:   store,
		delay:   delay,
		logger:  log.WithFields(map[string]interface{}{"component": "autosave"}),
		pending: make(map[string]*pendingSave),
		written: make(map[string]durable),
	}
}

// WithFailureRecorder attaches a metrics sink for background write failures.
func (a *Autosaver) WithFailureRecorder(r FailureRecorder) *Autosaver {
	a.failures = r
	return a
}

// Schedule queues a debounced write of a snapshot of s.
func (a *Autosaver) Schedule(s *models.WizardSession) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.seq++
	if p, ok := a.pending[s.ID]; ok {
		p.timer.Stop()
	}
	p := &pendingSave{session: *s, gen: a.seq}
	id := s.ID
	p.timer = time.AfterFunc(a.delay, func() { a.fire(id, p.gen) })
	a.pending[id] = p
}

func (a *Autosaver) fire(id string, gen uint64) {
	a.mu.Lock()
	p, ok := a.pending[id]
	if !ok || p.gen != gen {
		a.mu.Unlock()
		return
	}
	delete(a.pending, id)
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.write(ctx, &p.session, gen); err != nil {
		a.logger.Warn("autosave failed", map[string]interface{}{
			"sessionId": id,
			"error":     err.Error(),
		})
		if a.failures != nil {
			a.failures.RecordStoreError("autosave")
		}
	}
}

func (a *Autosaver) write(ctx context.Context, s *models.WizardSession, gen uint64) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	a.mu.Lock()
	stale := gen < a.written[s.ID].gen
	a.mu.Unlock()
	if stale {
		return nil
	}

	if err := a.store.Save(ctx, s); err != nil {
		return err
	}

	snapshot := *s
	a.mu.Lock()
	a.written[s.ID] = durable{gen: gen, session: &snapshot}
	a.mu.Unlock()
	return nil
}

// Save cancels any pending write for the session and writes s immediately.
func (a *Autosaver) Save(ctx context.Context, s *models.WizardSession) error {
	a.mu.Lock()
	a.seq++
	gen := a.seq
	if p, ok := a.pending[s.ID]; ok {
		p.timer.Stop()
		delete(a.pending, s.ID)
	}
	a.mu.Unlock()

	return a.write(ctx, s, gen)
}

// Load returns the pending snapshot if one exists, else the stored session.
func (a *Autosaver) Load(ctx context.Context, id string) (*models.WizardSession, error) {
	a.mu.Lock()
	if p, ok := a.pending[id]; ok {
		s := p.session
		a.mu.Unlock()
		return &s, nil
	}
	before := a.written[id].gen
	a.mu.Unlock()

	s, err := a.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	snapshot := *s
	a.mu.Lock()
	// A write or clear that finished meanwhile wins over what was read.
	if d := a.written[id]; d.session == nil && d.gen == before {
		a.written[id] = durable{gen: before, session: &snapshot}
	}
	a.mu.Unlock()
	return s, nil
}

// Persisted returns a copy of the newest snapshot this Autosaver wrote to or
// loaded from the store for id. It is false when nothing is known to be
// stored, including after Clear.
func (a *Autosaver) Persisted(id string) (*models.WizardSession, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	d := a.written[id]
	if d.session == nil {
		return nil, false
	}
	s := *d.session
	return &s, true
}

// Clear drops any pending write and removes the stored session.
func (a *Autosaver) Clear(ctx context.Context, id string) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	a.mu.Lock()
	a.seq++
	if p, ok := a.pending[id]; ok {
		p.timer.Stop()
		delete(a.pending, id)
	}
	// In-flight snapshots older than this point are discarded.
	a.written[id] = durable{gen: a.seq}
	a.mu.Unlock()

	return a.store.Clear(ctx, id)
}

// Pending reports whether a debounced write is queued for id.
func (a *Autosaver) Pending(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.pending[id]
	return ok
}

// Flush writes every pending snapshot now. It is called on shutdown.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	batch := make([]*pendingSave, 0, len(a.pending))
	for id, p := range a.pending {
		p.timer.Stop()
		batch = append(batch, p)
		delete(a.pending, id)
	}
	a.mu.Unlock()

	var firstErr error
	for _, p := range batch {
		if err := a.write(ctx, &p.session, p.gen); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
