package submission

import (
	"context"
	"errors"
	"fmt"
	"time"

	stderrors "assistance-portal/internal/common/errors"
	"assistance-portal/internal/common/logger"
	"assistance-portal/internal/models"
	"assistance-portal/internal/repository"
)

// DefaultProcessID is the BPMN process started for each application.
const DefaultProcessID = "financial-assistance-review"

// ProcessStarter starts a BPMN process instance.
type ProcessStarter interface {
	StartProcess(ctx context.Context, processID string, variables interface{}) (int64, error)
}

// ProcessVariables are the variables handed to the review process.
type ProcessVariables struct {
	Reference   string                     `json:"reference"`
	Language    string                     `json:"language"`
	Country     string                     `json:"country"`
	SubmittedAt string                     `json:"submittedAt"` // RFC 3339
	Application models.ApplicationDocument `json:"application"`
}

// ProcessBackend starts the review process; its workers record the
// application and confirm receipt.
type ProcessBackend struct {
	starter   ProcessStarter
	processID string
}

func NewProcessBackend(starter ProcessStarter, processID string) *ProcessBackend {
	if processID == "" {
		processID = DefaultProcessID
	}
	return &ProcessBackend{starter: starter, processID: processID}
}

func (b *ProcessBackend) Deliver(ctx context.Context, app *models.Application) error {
	_, err := b.starter.StartProcess(ctx, b.processID, ProcessVariables{
		Reference:   app.Reference,
		Language:    app.Language,
		Country:     app.Document.Country,
		SubmittedAt: app.SubmittedAt.Format(time.RFC3339),
		Application: app.Document,
	})
	if err != nil {
		var stdErr *stderrors.StandardError
		if errors.As(err, &stdErr) {
			return stdErr
		}
		return stderrors.NewProcessStartFailedError(b.processID, err)
	}
	return nil
}

// ApplicationWriter stores a submitted application.
type ApplicationWriter interface {
	Insert(ctx context.Context, app *models.Application) error
}

// RecordBackend writes the application straight to the database. It is
// used when the process engine is disabled.
type RecordBackend struct {
	writer ApplicationWriter
}

func NewRecordBackend(w ApplicationWriter) *RecordBackend {
	return &RecordBackend{writer: w}
}

func (b *RecordBackend) Deliver(ctx context.Context, app *models.Application) error {
	err := b.writer.Insert(ctx, app)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrDuplicateApplication):
		return stderrors.NewDuplicateApplicationError(app.Reference)
	default:
		return stderrors.NewSubmissionFailedError(fmt.Errorf("record application: %w", err))
	}
}

// LogBackend accepts every application and only logs it. It stands in for
// the back office in local runs where neither the process engine nor the
// database is configured.
type LogBackend struct {
	logger logger.Logger
}

func NewLogBackend(log logger.Logger) *LogBackend {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &LogBackend{logger: log}
}

func (b *LogBackend) Deliver(_ context.Context, app *models.Application) error {
	b.logger.Warn("application accepted without a back office", map[string]interface{}{
		"reference": app.Reference,
		"country":   app.Document.Country,
		"language":  app.Language,
	})
	return nil
}
