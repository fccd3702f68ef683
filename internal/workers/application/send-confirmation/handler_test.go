package sendconfirmation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assistance-portal/internal/common/config"
	stderrors "assistance-portal/internal/common/errors"
	"assistance-portal/internal/common/logger"
	"assistance-portal/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

type sent struct {
	to, subject, body string
}

type fakeMailer struct {
	err  error
	sent []sent
}

func (m *fakeMailer) SendEmail(_ context.Context, to, subject, body string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, sent{to, subject, body})
	return "msg-1", nil
}

type fakeTexter struct {
	err  error
	sent []sent
}

func (f *fakeTexter) SendSMS(_ context.Context, phone, message string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, sent{to: phone, body: message})
	return "sms-1", nil
}

func createTestInput(lang string) *Input {
	return &Input{
		Reference: "FA-2aYHzvT0aG1tIeB3QIn8sM0wVd4",
		Language:  lang,
		Country:   "UAE",
		Application: models.ApplicationDocument{
			FullNameEn: "Fatima Al Mansoori",
			FullNameAr: "فاطمة المنصوري",
			Country:    "UAE",
			Phone:      "50 123 4567",
			Email:      "fatima@example.ae",
		},
	}
}

func newTestHandler(t *testing.T, cfg *Config, mailer EmailSender, texter SMSSender) *Handler {
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}
	h := NewHandler(cfg, nil, mailer, texter, nil, logger.NewTestLogger(t))
	h.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return h
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_EmailAndSMS(t *testing.T) {
	mailer, texter := &fakeMailer{}, &fakeTexter{}
	h := newTestHandler(t, &Config{EmailEnabled: true, SMSEnabled: true}, mailer, texter)

	output, err := h.Execute(context.Background(), createTestInput("en"))

	require.NoError(t, err)
	assert.Equal(t, StatusSent, output.EmailStatus)
	assert.Equal(t, StatusSent, output.SMSStatus)
	assert.NotEmpty(t, output.NotificationID)
	assert.Equal(t, "2026-03-01T09:00:00Z", output.SentAt)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "fatima@example.ae", mailer.sent[0].to)
	assert.Equal(t, "Your application has been received", mailer.sent[0].subject)
	assert.Contains(t, mailer.sent[0].body, "Dear Fatima Al Mansoori")
	assert.Contains(t, mailer.sent[0].body, "FA-2aYHzvT0aG1tIeB3QIn8sM0wVd4")

	require.Len(t, texter.sent, 1)
	assert.Equal(t, "+971501234567", texter.sent[0].to)
}

func TestHandler_Execute_ArabicTemplates(t *testing.T) {
	mailer := &fakeMailer{}
	h := newTestHandler(t, &Config{EmailEnabled: true}, mailer, nil)

	output, err := h.Execute(context.Background(), createTestInput("ar"))

	require.NoError(t, err)
	assert.Equal(t, StatusDisabled, output.SMSStatus)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "تم استلام طلبك", mailer.sent[0].subject)
	assert.True(t, strings.HasPrefix(mailer.sent[0].body, "فاطمة المنصوري"))
	assert.NotContains(t, mailer.sent[0].body, "{{")
}

func TestHandler_Execute_ChannelsDisabled(t *testing.T) {
	tests := []struct {
		name   string
		cfg    *Config
		mutate func(*Input)
	}{
		{"both disabled", &Config{}, func(*Input) {}},
		{"no email address", &Config{EmailEnabled: true}, func(in *Input) { in.Application.Email = "" }},
		{"no phone", &Config{SMSEnabled: true}, func(in *Input) { in.Application.Phone = "" }},
		{"unknown country", &Config{SMSEnabled: true}, func(in *Input) {
			in.Application.Country = ""
			in.Country = "XXX"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mailer, texter := &fakeMailer{}, &fakeTexter{}
			h := newTestHandler(t, tt.cfg, mailer, texter)
			input := createTestInput("en")
			tt.mutate(input)

			output, err := h.Execute(context.Background(), input)

			require.NoError(t, err)
			assert.Equal(t, StatusDisabled, output.EmailStatus)
			assert.Equal(t, StatusDisabled, output.SMSStatus)
			assert.Empty(t, mailer.sent)
			assert.Empty(t, texter.sent)
		})
	}
}

func TestHandler_Execute_EmailFailureIsRetryable(t *testing.T) {
	h := newTestHandler(t, &Config{EmailEnabled: true}, &fakeMailer{err: errors.New("throttled")}, nil)

	output, err := h.Execute(context.Background(), createTestInput("en"))

	assert.Nil(t, output)
	var stdErr *stderrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, stderrors.ErrCodeNotificationSendFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

func TestHandler_Execute_SMSFailureIsReported(t *testing.T) {
	h := newTestHandler(t, &Config{EmailEnabled: true, SMSEnabled: true},
		&fakeMailer{}, &fakeTexter{err: errors.New("opted out")})

	output, err := h.Execute(context.Background(), createTestInput("en"))

	require.NoError(t, err)
	assert.Equal(t, StatusSent, output.EmailStatus)
	assert.Equal(t, StatusFailed, output.SMSStatus)
}

func TestHandler_Execute_MissingReference(t *testing.T) {
	h := newTestHandler(t, &Config{EmailEnabled: true}, &fakeMailer{}, nil)
	input := createTestInput("en")
	input.Reference = ""

	_, err := h.Execute(context.Background(), input)

	var stdErr *stderrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.False(t, stdErr.Retryable)
}

// ==========================
// Helpers
// ==========================

func TestRenderTemplate(t *testing.T) {
	got := renderTemplate("Ref {{reference}} for {{name}}{{missing}}.", map[string]interface{}{
		"reference": "FA-1",
		"name":      "Ali",
	})
	assert.Equal(t, "Ref FA-1 for Ali.", got)
}

func TestRecipientName(t *testing.T) {
	in := createTestInput("ar")
	assert.Equal(t, "فاطمة المنصوري", recipientName(in))

	in.Language = "en"
	assert.Equal(t, "Fatima Al Mansoori", recipientName(in))

	in.Application.FullNameEn = ""
	assert.Equal(t, "فاطمة المنصوري", recipientName(in))
}

func TestLoadConfig(t *testing.T) {
	var nc config.NotificationConfig
	nc.Email.Enabled = true

	cfg := LoadConfig(nc, config.WorkerConfig{})

	assert.True(t, cfg.EmailEnabled)
	assert.False(t, cfg.SMSEnabled)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
}
