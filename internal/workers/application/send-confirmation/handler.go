package sendconfirmation

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	stderrors "assistance-portal/internal/common/errors"
	"assistance-portal/internal/common/logger"
	"assistance-portal/internal/form/country"
	"assistance-portal/internal/form/format"
)

const (
	TaskType = "send-confirmation"
)

// EmailSender delivers the confirmation email.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) (string, error)
}

// SMSSender delivers the confirmation SMS.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) (string, error)
}

// Recorder observes job outcomes.
type Recorder interface {
	RecordJob(taskType, errorCode string, elapsed time.Duration)
}

type Handler struct {
	config    *Config
	countries *country.Table
	mailer    EmailSender
	texter    SMSSender
	errors    *stderrors.ErrorHandler
	recorder  Recorder
	logger    logger.Logger
	now       func() time.Time
}

// NewHandler builds the worker. A nil mailer or texter disables that channel.
func NewHandler(config *Config, countries *country.Table, mailer EmailSender, texter SMSSender, rec Recorder, log logger.Logger) *Handler {
	if countries == nil {
		countries = country.Default()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		countries: countries,
		mailer:    mailer,
		texter:    texter,
		errors:    stderrors.NewErrorHandler(log),
		recorder:  rec,
		logger:    log,
		now:       time.Now,
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
	if h.recorder != nil {
		h.recorder.RecordJob(TaskType, "", time.Since(start))
	}
}

// execute sends the email, then the SMS. An email failure fails the job so
// it is retried; an SMS failure is reported in the output only.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Reference == "" {
		return nil, stderrors.NewValidationError(stderrors.ErrCodeInvalidRequest,
			"Reference is required", "reference")
	}

	tmpl, ok := templates[input.Language]
	if !ok {
		tmpl = templates["en"]
	}
	data := map[string]interface{}{
		"reference": input.Reference,
		"name":      recipientName(input),
	}

	output := &Output{
		NotificationID: uuid.New().String(),
		EmailStatus:    StatusDisabled,
		SMSStatus:      StatusDisabled,
		SentAt:         h.now().UTC().Format(time.RFC3339),
	}

	if email := input.Application.Email; h.config.EmailEnabled && h.mailer != nil && email != "" {
		id, err := h.mailer.SendEmail(ctx, email, tmpl.Subject, renderTemplate(tmpl.Email, data))
		if err != nil {
			return nil, stderrors.NewNotificationSendFailedError("email", err)
		}
		output.EmailStatus = StatusSent
		h.logger.Info("confirmation email sent", map[string]interface{}{
			"reference": input.Reference,
			"messageId": id,
		})
	}

	if phone := h.internationalPhone(input); h.config.SMSEnabled && h.texter != nil && phone != "" {
		if _, err := h.texter.SendSMS(ctx, phone, renderTemplate(tmpl.SMS, data)); err != nil {
			output.SMSStatus = StatusFailed
			h.logger.Warn("confirmation SMS failed", map[string]interface{}{
				"reference": input.Reference,
				"error":     err,
			})
		} else {
			output.SMSStatus = StatusSent
		}
	}

	return output, nil
}

func recipientName(input *Input) string {
	doc := input.Application
	if input.Language == "ar" && doc.FullNameAr != "" {
		return doc.FullNameAr
	}
	if doc.FullNameEn != "" {
		return doc.FullNameEn
	}
	return doc.FullNameAr
}

// internationalPhone joins the country dial code and the local digits.
func (h *Handler) internationalPhone(input *Input) string {
	digits := format.Digits(format.ToLatinDigits(input.Application.Phone))
	if digits == "" {
		return ""
	}
	code := input.Application.Country
	if code == "" {
		code = input.Country
	}
	c := h.countries.Get(code)
	if c == nil || c.Phone.DialCode == "" {
		return ""
	}
	return c.Phone.DialCode + digits
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
	}
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, start time.Time, err error) {
	h.errors.HandleJobError(ctx, client, job, err)
	if h.recorder != nil {
		h.recorder.RecordJob(TaskType, string(stderrors.Normalize(err).Code), time.Since(start))
	}
}

// renderTemplate replaces {{key}} placeholders and drops unknown ones.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl
	for k, v := range data {
		value, _ := v.(string)
		result = strings.ReplaceAll(result, "{{"+k+"}}", value)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		result = result[:start] + result[start+end+2:]
	}
	return result
}

// Execute runs the job logic without a job client.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
