// Package submission turns a completed wizard document into a submitted
// application and hands it to the back office.
package submission

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/ksuid"

	stderrors "assistance-portal/internal/common/errors"
	"assistance-portal/internal/common/logger"
	"assistance-portal/internal/form/locale"
	"assistance-portal/internal/form/session"
	"assistance-portal/internal/form/validators"
	"assistance-portal/internal/models"
)

// ReferencePrefix starts every application reference.
const ReferencePrefix = "FA-"

// Backend delivers a submitted application to the back office.
type Backend interface {
	Deliver(ctx context.Context, app *models.Application) error
}

// Recorder receives submission outcomes.
type Recorder interface {
	RecordSubmission(outcome string)
}

// Submission outcomes reported to the Recorder.
const (
	OutcomeAccepted = "accepted"
	OutcomeInvalid  = "invalid"
	OutcomeFailed   = "failed"
)

// Pipeline validates, references and delivers applications. It performs no
// retries; a failed delivery is reported to the applicant, who may submit
// again.
type Pipeline struct {
	validator *validators.Validator
	backend   Backend
	store     session.Store
	recorder  Recorder
	logger    logger.Logger
	now       func() time.Time
	newRef    func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRecorder reports outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithClock overrides the submission timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithReferenceGenerator overrides reference minting.
func WithReferenceGenerator(gen func() string) Option {
	return func(p *Pipeline) { p.newRef = gen }
}

// NewPipeline returns a pipeline delivering to backend. store may be nil.
func NewPipeline(v *validators.Validator, backend Backend, store session.Store, log logger.Logger, opts ...Option) *Pipeline {
	if v == nil {
		v = validators.New(nil)
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	p := &Pipeline{
		validator: v,
		backend:   backend,
		store:     store,
		logger:    log.WithFields(map[string]interface{}{"component": "submission"}),
		now:       time.Now,
		newRef:    NewReference,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewReference mints a time-ordered application reference.
func NewReference() string {
	return ReferencePrefix + ksuid.New().String()
}

// Submit re-validates doc, delivers it and clears the stored session. An
// invalid document yields *validators.DocumentError; a delivery failure
// yields a retryable StandardError and leaves the stored session intact.
func (p *Pipeline) Submit(ctx context.Context, sessionID string, doc *models.ApplicationDocument, prefs locale.Preferences) (*models.SubmissionReceipt, error) {
	if errs := p.validator.ValidateDocument(doc); len(errs) > 0 {
		p.record(OutcomeInvalid)
		return nil, &validators.DocumentError{Errors: errs}
	}

	app := &models.Application{
		Reference:   p.newRef(),
		Document:    *doc,
		Language:    prefs.Normalize().Language,
		Status:      models.ApplicationStatusSubmitted,
		SubmittedAt: p.now().UTC(),
	}
	log := p.logger.WithFields(map[string]interface{}{
		"sessionId": sessionID,
		"reference": app.Reference,
	})

	if err := p.backend.Deliver(ctx, app); err != nil {
		p.record(OutcomeFailed)
		log.Error("application delivery failed", map[string]interface{}{"error": err.Error()})
		var stdErr *stderrors.StandardError
		if errors.As(err, &stdErr) {
			return nil, stdErr
		}
		return nil, stderrors.NewSubmissionFailedError(err)
	}

	if p.store != nil {
		if err := p.store.Clear(ctx, sessionID); err != nil {
			log.Warn("session clear after submit failed", map[string]interface{}{"error": err.Error()})
		}
	}

	p.record(OutcomeAccepted)
	log.Info("application submitted", map[string]interface{}{"country": doc.Country})
	return &models.SubmissionReceipt{Reference: app.Reference, SubmittedAt: app.SubmittedAt}, nil
}

func (p *Pipeline) record(outcome string) {
	if p.recorder != nil {
		p.recorder.RecordSubmission(outcome)
	}
}
