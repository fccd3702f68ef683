package ai

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	stderrors "assistance-portal/internal/common/errors"
	"assistance-portal/internal/common/logger"
)

// Request limits, in characters.
const (
	DefaultMaxRephraseLength  = 2000
	DefaultMaxTranslateLength = 200
	DefaultTimeout            = 30 * time.Second
)

// Translation directions.
const (
	DirectionToArabic  = "toArabic"
	DirectionToEnglish = "toEnglish"
)

// Tracer starts spans around provider calls.
type Tracer interface {
	StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)
}

// Recorder receives per-call outcomes.
type Recorder interface {
	RecordAIRequest(operation, outcome string, elapsed time.Duration)
}

// Config holds the service limits.
type Config struct {
	MaxRephraseLength  int
	MaxTranslateLength int
	Timeout            time.Duration
}

// Service validates helper requests and forwards them to the provider. A
// nil provider means the helper is not configured; every call then fails
// with AI_NOT_CONFIGURED.
type Service struct {
	provider Provider
	cfg      Config
	tracer   Tracer
	recorder Recorder
	logger   logger.Logger
}

func NewService(p Provider, cfg Config, tracer Tracer, rec Recorder, log logger.Logger) *Service {
	if cfg.MaxRephraseLength <= 0 {
		cfg.MaxRephraseLength = DefaultMaxRephraseLength
	}
	if cfg.MaxTranslateLength <= 0 {
		cfg.MaxTranslateLength = DefaultMaxTranslateLength
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Service{
		provider: p,
		cfg:      cfg,
		tracer:   tracer,
		recorder: rec,
		logger:   log.WithFields(map[string]interface{}{"component": "ai"}),
	}
}

// Configured reports whether a provider is available.
func (s *Service) Configured() bool { return s.provider != nil }

// Limits returns the effective request limits.
func (s *Service) Limits() Config { return s.cfg }

// Rephrase rewrites text in a clear, formal register in the same language.
func (s *Service) Rephrase(ctx context.Context, text, language string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", stderrors.NewValidationError(stderrors.ErrCodeTextRequired, "Text is required", "text")
	}
	if n := utf8.RuneCountInString(text); n > s.cfg.MaxRephraseLength {
		return "", stderrors.NewValidationError(stderrors.ErrCodeRephraseTooLong,
			fmt.Sprintf("Text must be at most %d characters", s.cfg.MaxRephraseLength),
			fmt.Sprintf("text: %d characters", n))
	}
	if language != "en" && language != "ar" {
		return "", stderrors.NewValidationError(stderrors.ErrCodeInvalidLanguage,
			"Language must be en or ar", fmt.Sprintf("language: %q", language))
	}
	return s.call(ctx, "rephrase", rephrasePrompt(language), text,
		attribute.String("language", language))
}

// Translate translates a personal name between English and Arabic script.
func (s *Service) Translate(ctx context.Context, text, direction string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", stderrors.NewValidationError(stderrors.ErrCodeTextRequired, "Text is required", "text")
	}
	if n := utf8.RuneCountInString(text); n > s.cfg.MaxTranslateLength {
		return "", stderrors.NewValidationError(stderrors.ErrCodeTranslateTooLong,
			fmt.Sprintf("Text must be at most %d characters", s.cfg.MaxTranslateLength),
			fmt.Sprintf("text: %d characters", n))
	}
	if direction != DirectionToArabic && direction != DirectionToEnglish {
		return "", stderrors.NewValidationError(stderrors.ErrCodeInvalidDirection,
			"Direction must be toArabic or toEnglish", fmt.Sprintf("direction: %q", direction))
	}
	return s.call(ctx, "translate", translatePrompt(direction), strings.TrimSpace(text),
		attribute.String("direction", direction))
}

func (s *Service) call(ctx context.Context, op, system, user string, attrs ...attribute.KeyValue) (string, error) {
	if s.provider == nil {
		s.record(op, string(stderrors.ErrCodeAINotConfigured), 0)
		return "", stderrors.NewAINotConfiguredError()
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.StartSpan(ctx, "ai."+op, append(attrs, attribute.Int("input.length", utf8.RuneCountInString(user)))...)
		defer span.End()
	}

	start := time.Now()
	out, err := s.provider.Complete(ctx, system, user)
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		stdErr := Classify(err)
		if span != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(stdErr.Code))
		}
		s.record(op, string(stdErr.Code), elapsed)
		s.logger.Warn("ai request failed", map[string]interface{}{
			"operation":  op,
			"code":       string(stdErr.Code),
			"durationMs": elapsed.Milliseconds(),
			"error":      err.Error(),
		})
		return "", stdErr
	}

	s.record(op, "ok", elapsed)
	s.logger.Info("ai request completed", map[string]interface{}{
		"operation":    op,
		"durationMs":   elapsed.Milliseconds(),
		"outputLength": utf8.RuneCountInString(out),
	})
	return out, nil
}

func (s *Service) record(op, outcome string, elapsed time.Duration) {
	if s.recorder != nil {
		s.recorder.RecordAIRequest(op, outcome, elapsed)
	}
}

func rephrasePrompt(language string) string {
	if language == "ar" {
		return "You help applicants write a financial assistance application. " +
			"Rewrite the user's text in clear, respectful, formal Modern Standard Arabic. " +
			"Keep every fact, do not add new information, and reply with the rewritten text only."
	}
	return "You help applicants write a financial assistance application. " +
		"Rewrite the user's text in clear, respectful, formal English. " +
		"Keep every fact, do not add new information, and reply with the rewritten text only."
}

func translatePrompt(direction string) string {
	if direction == DirectionToArabic {
		return "Transliterate the personal name from English into Arabic script as it would be written on an official document. " +
			"Reply with the name only."
	}
	return "Transliterate the personal name from Arabic into Latin script as it would be written on an official document. " +
		"Reply with the name only."
}
