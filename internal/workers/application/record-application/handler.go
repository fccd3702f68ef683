package recordapplication

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	stderrors "assistance-portal/internal/common/errors"
	"assistance-portal/internal/common/logger"
	"assistance-portal/internal/models"
	"assistance-portal/internal/repository"
)

const (
	TaskType = "record-application"
)

var ErrInvalidInput = errors.New("INVALID_INPUT")

// Store persists submitted applications.
type Store interface {
	Insert(ctx context.Context, app *models.Application) error
}

// Recorder observes job outcomes.
type Recorder interface {
	RecordJob(taskType, errorCode string, elapsed time.Duration)
}

type Handler struct {
	config   *Config
	store    Store
	errors   *stderrors.ErrorHandler
	recorder Recorder
	logger   logger.Logger
	now      func() time.Time
}

func NewHandler(config *Config, store Store, rec Recorder, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		store:    store,
		errors:   stderrors.NewErrorHandler(log),
		recorder: rec,
		logger:   log,
		now:      time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, start, stderrors.NewValidationError(stderrors.ErrCodeInvalidRequest,
			"Job variables could not be parsed", err.Error()))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, start, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	h.record("", start)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Reference == "" {
		return nil, stderrors.NewValidationError(stderrors.ErrCodeInvalidRequest,
			"Reference is required", ErrInvalidInput.Error())
	}

	submittedAt, err := time.Parse(time.RFC3339, input.SubmittedAt)
	if err != nil {
		submittedAt = h.now().UTC()
	}

	app := &models.Application{
		Reference:   input.Reference,
		Document:    input.Application,
		Language:    input.Language,
		Status:      models.ApplicationStatusSubmitted,
		SubmittedAt: submittedAt,
	}
	if app.Document.Country == "" {
		app.Document.Country = input.Country
	}

	output := &Output{
		Reference:         input.Reference,
		ApplicationStatus: models.ApplicationStatusSubmitted,
		RecordedAt:        h.now().UTC().Format(time.RFC3339),
	}

	err = h.store.Insert(ctx, app)
	switch {
	case errors.Is(err, repository.ErrDuplicateApplication):
		// A redelivered job for a reference already on file.
		h.logger.Info("application already recorded", map[string]interface{}{"reference": input.Reference})
		output.AlreadyRecorded = true
		return output, nil
	case err != nil:
		return nil, stderrors.NewDatabaseInsertFailedError(err)
	}

	h.logger.Info("application record created", map[string]interface{}{
		"reference": input.Reference,
		"country":   app.Document.Country,
		"language":  input.Language,
	})
	return output, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	h.logger.Info("job completed successfully", map[string]interface{}{
		"jobKey": job.Key,
	})
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, start time.Time, err error) {
	h.errors.HandleJobError(ctx, client, job, err)
	h.record(string(stderrors.Normalize(err).Code), start)
}

func (h *Handler) record(code string, start time.Time) {
	if h.recorder != nil {
		h.recorder.RecordJob(TaskType, code, time.Since(start))
	}
}

// Execute runs the job logic without a job client.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
