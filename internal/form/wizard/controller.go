// Package wizard drives one application through its steps: field edits,
// step transitions, review, cancellation and hand-off to submission.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"assistance-portal/internal/common/logger"
	"assistance-portal/internal/form/locale"
	"assistance-portal/internal/form/session"
	"assistance-portal/internal/form/validators"
	"assistance-portal/internal/models"
)

// StepSubmitted is the terminal state after a successful submission.
const StepSubmitted = validators.LastStep + 1

var (
	ErrAlreadySubmitted = errors.New("ALREADY_SUBMITTED")
	ErrUnknownField     = errors.New("UNKNOWN_FIELD")
	ErrInvalidStep      = errors.New("INVALID_STEP")
	ErrInvalidChoice    = errors.New("INVALID_CHOICE")
)

// Submitter accepts a fully validated document.
type Submitter interface {
	Submit(ctx context.Context, sessionID string, doc *models.ApplicationDocument, prefs locale.Preferences) (*models.SubmissionReceipt, error)
}

// Scheduler is implemented by stores that can defer writes.
type Scheduler interface {
	Schedule(s *models.WizardSession)
}

// Tracker is implemented by stores that know which snapshot of a session is
// actually in durable storage, as opposed to queued for a later write.
type Tracker interface {
	Persisted(id string) (*models.WizardSession, bool)
}

// Observer receives step transition events.
type Observer interface {
	RecordTransition(from, to int, outcome string)
}

// Transition outcomes reported to the Observer.
const (
	OutcomeAdvanced  = "advanced"
	OutcomeBlocked   = "blocked"
	OutcomeBack      = "back"
	OutcomeJump      = "jump"
	OutcomeSubmitted = "submitted"
	OutcomeFailed    = "submit_failed"
)

// Config holds the collaborators of a Controller.
type Config struct {
	Validator *validators.Validator
	Store     session.Store
	Submitter Submitter
	Observer  Observer
	Logger    logger.Logger
	Now       func() time.Time
}

// Controller owns the working document of one session. It is not safe for
// concurrent use; callers serialize access per session.
type Controller struct {
	validator *validators.Validator
	store     session.Store
	submitter Submitter
	observer  Observer
	logger    logger.Logger
	now       func() time.Time

	prefs locale.Preferences
	sess  models.WizardSession

	// last persisted snapshot when the store is not a Tracker
	saved     *models.WizardSession
	submitted bool
	receipt   *models.SubmissionReceipt

	fieldErrors map[string]validators.ValidationError

	seq        uint64
	editSeq    map[string]uint64
	autoFilled map[string]bool
}

// New starts an empty application for id.
func New(id string, prefs locale.Preferences, cfg Config) *Controller {
	c := &Controller{
		validator:   cfg.Validator,
		store:       cfg.Store,
		submitter:   cfg.Submitter,
		observer:    cfg.Observer,
		logger:      cfg.Logger,
		now:         cfg.Now,
		prefs:       prefs.Normalize(),
		fieldErrors: make(map[string]validators.ValidationError),
		editSeq:     make(map[string]uint64),
		autoFilled:  make(map[string]bool),
	}
	if c.validator == nil {
		c.validator = validators.New(nil)
	}
	if c.logger == nil {
		c.logger = logger.NewNoOpLogger()
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.logger = c.logger.WithFields(map[string]interface{}{"sessionId": id})
	c.sess = models.WizardSession{ID: id, CurrentStep: validators.FirstStep, LastModified: c.now()}
	return c
}

// Resume rebuilds a controller from a stored session. The step pointer is
// moved back to the first incomplete earlier step.
func Resume(stored *models.WizardSession, prefs locale.Preferences, cfg Config) *Controller {
	c := New(stored.ID, prefs, cfg)
	c.sess.Document = stored.Document
	c.sess.CurrentStep = ResumeStep(c.validator, stored.CurrentStep, &stored.Document)
	c.sess.LastModified = stored.LastModified
	// A Tracker may have handed back a snapshot that is still queued.
	if _, ok := cfg.Store.(Tracker); !ok {
		snapshot := *stored
		c.saved = &snapshot
	}
	return c
}

// ResumeStep returns the first incomplete step among 1..saved-1, or saved
// itself when every earlier step is complete.
func ResumeStep(v *validators.Validator, saved int, doc *models.ApplicationDocument) int {
	if saved < validators.FirstStep {
		saved = validators.FirstStep
	}
	if saved > validators.LastStep {
		saved = validators.LastStep
	}
	for step := validators.FirstStep; step < saved; step++ {
		if !v.StepComplete(step, doc) {
			return step
		}
	}
	return saved
}

// ID returns the session id.
func (c *Controller) ID() string { return c.sess.ID }

// CurrentStep returns the active step, or StepSubmitted.
func (c *Controller) CurrentStep() int {
	if c.submitted {
		return StepSubmitted
	}
	return c.sess.CurrentStep
}

// Document returns a copy of the working document.
func (c *Controller) Document() models.ApplicationDocument { return c.sess.Document }

// Preferences returns the display preferences.
func (c *Controller) Preferences() locale.Preferences { return c.prefs }

// SetPreferences changes the display preferences. The document is untouched.
func (c *Controller) SetPreferences(p locale.Preferences) { c.prefs = p.Normalize() }

// Receipt returns the submission receipt once submitted.
func (c *Controller) Receipt() *models.SubmissionReceipt { return c.receipt }

// Submitted reports whether the application reached the terminal state.
func (c *Controller) Submitted() bool { return c.submitted }

// FieldErrors returns the errors from the last blocked transition, in step
// field order.
func (c *Controller) FieldErrors() []validators.ValidationError {
	var out []validators.ValidationError
	for _, s := range validators.Steps {
		for _, f := range s.Fields {
			if e, ok := c.fieldErrors[f.Name]; ok {
				out = append(out, e)
			}
		}
	}
	return out
}

// HasUnsavedChanges reports whether the working document differs from the last
// persisted snapshot. With nothing persisted any entered value counts.
func (c *Controller) HasUnsavedChanges() bool {
	if c.submitted {
		return false
	}
	base := c.persisted()
	if base == nil {
		return !c.sess.Document.IsEmpty()
	}
	return base.Document != c.sess.Document
}

// persisted returns the snapshot a discard reverts to, or nil.
func (c *Controller) persisted() *models.WizardSession {
	if t, ok := c.store.(Tracker); ok {
		s, found := t.Persisted(c.sess.ID)
		if !found {
			return nil
		}
		return s
	}
	return c.saved
}

// HasMeaningfulData reports whether any field holds a value.
func (c *Controller) HasMeaningfulData() bool { return !c.sess.Document.IsEmpty() }

// SetField normalizes and stores a value, clears the field's pending error
// and schedules an autosave. The returned ValidationError is inline feedback
// only; it never blocks the edit.
func (c *Controller) SetField(field, value string) (*validators.ValidationError, error) {
	if c.submitted {
		return nil, ErrAlreadySubmitted
	}
	if !validators.IsKnownField(field) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}

	doc := &c.sess.Document
	countryCode := doc.Country
	if field == models.FieldCountry {
		countryCode = value
	}
	normalized := c.validator.Normalize(field, value, countryCode)
	previous := doc.Value(field)

	c.assign(field, normalized)
	c.autoFilled[field] = false

	if field == models.FieldCountry && normalized != previous {
		c.applyCountryChange()
	}

	c.touch()
	c.scheduleSave()

	return c.validator.ValidateField(field, normalized, doc.Country), nil
}

func (c *Controller) assign(field, value string) {
	c.sess.Document.Set(field, value)
	c.seq++
	c.editSeq[field] = c.seq
	delete(c.fieldErrors, field)
}

// applyCountryChange drops a region the new country does not have and
// re-masks ID and phone digits for the new formats.
func (c *Controller) applyCountryChange() {
	doc := &c.sess.Document
	ctry := c.validator.Countries().Get(doc.Country)

	if doc.Region != "" && (ctry == nil || !ctry.HasRegion(doc.Region)) {
		c.assign(models.FieldRegion, "")
	}
	for _, f := range []string{models.FieldNationalID, models.FieldPhone} {
		if v := doc.Value(f); v != "" {
			if remasked := c.validator.Normalize(f, v, doc.Country); remasked != v {
				c.assign(f, remasked)
			}
		}
	}
}

func (c *Controller) touch() {
	c.sess.Touch(c.now())
}

// TransitionResult describes the outcome of Next.
type TransitionResult struct {
	Advanced bool
	Step     int
	Errors   []validators.ValidationError
	Receipt  *models.SubmissionReceipt
}

// FirstError returns the error surfaced to the user, if any.
func (r TransitionResult) FirstError() *validators.ValidationError {
	return validators.FirstError(r.Errors)
}

// Next validates the current step and advances. On the review step it runs
// the submission. A failed submission leaves the controller on the review
// step with the document and persisted state untouched.
func (c *Controller) Next(ctx context.Context) (TransitionResult, error) {
	if c.submitted {
		return TransitionResult{}, ErrAlreadySubmitted
	}
	from := c.sess.CurrentStep

	if from == validators.StepReview {
		return c.submit(ctx)
	}

	errs := c.validator.ValidateStep(from, &c.sess.Document)
	if len(errs) > 0 {
		c.recordErrors(errs)
		c.observe(from, from, OutcomeBlocked)
		return TransitionResult{Step: from, Errors: errs}, nil
	}

	c.sess.CurrentStep = from + 1
	c.sess.Touch(c.now())
	c.persist(ctx)
	c.observe(from, c.sess.CurrentStep, OutcomeAdvanced)
	return TransitionResult{Advanced: true, Step: c.sess.CurrentStep}, nil
}

func (c *Controller) submit(ctx context.Context) (TransitionResult, error) {
	step := validators.StepReview
	if c.submitter == nil {
		return TransitionResult{Step: step}, fmt.Errorf("no submitter configured")
	}

	receipt, err := c.submitter.Submit(ctx, c.sess.ID, &c.sess.Document, c.prefs)
	if err != nil {
		var docErr *validators.DocumentError
		if errors.As(err, &docErr) {
			c.recordErrors(docErr.Errors)
			c.observe(step, step, OutcomeBlocked)
			return TransitionResult{Step: step, Errors: docErr.Errors}, nil
		}
		c.observe(step, step, OutcomeFailed)
		c.logger.Error("submission failed", map[string]interface{}{"error": err.Error()})
		return TransitionResult{Step: step}, err
	}

	c.submitted = true
	c.receipt = receipt
	c.saved = nil
	c.observe(step, StepSubmitted, OutcomeSubmitted)
	c.logger.Info("application submitted", map[string]interface{}{"reference": receipt.Reference})
	return TransitionResult{Advanced: true, Step: StepSubmitted, Receipt: receipt}, nil
}

func (c *Controller) recordErrors(errs []validators.ValidationError) {
	for _, e := range errs {
		c.fieldErrors[e.Field] = e
	}
}

// Previous moves one step back without validation. Step 1 is a floor.
func (c *Controller) Previous(ctx context.Context) (int, error) {
	if c.submitted {
		return StepSubmitted, ErrAlreadySubmitted
	}
	from := c.sess.CurrentStep
	if from > validators.FirstStep {
		c.sess.CurrentStep--
		c.sess.Touch(c.now())
		c.persist(ctx)
		c.observe(from, c.sess.CurrentStep, OutcomeBack)
	}
	return c.sess.CurrentStep, nil
}

// EditFromReview jumps to any step already reached, without validation.
func (c *Controller) EditFromReview(ctx context.Context, step int) error {
	if c.submitted {
		return ErrAlreadySubmitted
	}
	if step < validators.FirstStep || step > c.sess.CurrentStep {
		return fmt.Errorf("%w: %d (current %d)", ErrInvalidStep, step, c.sess.CurrentStep)
	}
	from := c.sess.CurrentStep
	if step != from {
		c.sess.CurrentStep = step
		c.sess.Touch(c.now())
		c.persist(ctx)
		c.observe(from, step, OutcomeJump)
	}
	return nil
}

// Save persists the working state immediately.
func (c *Controller) Save(ctx context.Context) error {
	if c.submitted {
		return ErrAlreadySubmitted
	}
	if c.store == nil {
		return nil
	}
	if err := c.store.Save(ctx, &c.sess); err != nil {
		return err
	}
	c.markSaved()
	return nil
}

// persist writes through on transitions. Failures are logged and ignored.
func (c *Controller) persist(ctx context.Context) {
	if err := c.Save(ctx); err != nil {
		c.logger.Warn("session persist failed", map[string]interface{}{"error": err.Error()})
	}
}

func (c *Controller) markSaved() {
	snapshot := c.sess
	c.saved = &snapshot
}

func (c *Controller) scheduleSave() {
	if c.store == nil {
		return
	}
	if s, ok := c.store.(Scheduler); ok {
		s.Schedule(&c.sess)
		return
	}
	if err := c.store.Save(context.Background(), &c.sess); err != nil {
		c.logger.Warn("autosave failed", map[string]interface{}{"error": err.Error()})
		return
	}
	c.markSaved()
}

// Reset discards everything and starts a new application under the same id.
func (c *Controller) Reset(ctx context.Context) error {
	c.sess = models.WizardSession{ID: c.sess.ID, CurrentStep: validators.FirstStep, LastModified: c.now()}
	c.saved = nil
	c.submitted = false
	c.receipt = nil
	c.fieldErrors = make(map[string]validators.ValidationError)
	c.editSeq = make(map[string]uint64)
	c.autoFilled = make(map[string]bool)
	if c.store == nil {
		return nil
	}
	return c.store.Clear(ctx, c.sess.ID)
}

func (c *Controller) observe(from, to int, outcome string) {
	if c.observer != nil {
		c.observer.RecordTransition(from, to, outcome)
	}
}
