// Package errors provides standardized error handling shared by the HTTP API
// and the Camunda workers.
package errors

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Request validation
const (
	ErrCodeTextRequired      ErrorCode = "TEXT_REQUIRED"
	ErrCodeRephraseTooLong   ErrorCode = "REPHRASE_TOO_LONG"
	ErrCodeTranslateTooLong  ErrorCode = "TRANSLATE_TOO_LONG"
	ErrCodeInvalidLanguage   ErrorCode = "INVALID_LANGUAGE"
	ErrCodeInvalidDirection  ErrorCode = "INVALID_DIRECTION"
	ErrCodeInvalidRequest    ErrorCode = "INVALID_REQUEST"
	ErrCodeValidationFailed  ErrorCode = "APPLICATION_VALIDATION_FAILED"
	ErrCodeSessionNotFound   ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
)

// AI provider
const (
	ErrCodeAIServiceUnavailable ErrorCode = "AI_SERVICE_UNAVAILABLE"
	ErrCodeAIRateLimited        ErrorCode = "AI_RATE_LIMITED"
	ErrCodeAIAuthFailed         ErrorCode = "AI_AUTH_FAILED"
	ErrCodeAITimeout            ErrorCode = "AI_TIMEOUT"
	ErrCodeAINotConfigured      ErrorCode = "AI_NOT_CONFIGURED"
)

// Submission and back-office
const (
	ErrCodeSubmissionFailed       ErrorCode = "SUBMISSION_FAILED"
	ErrCodeProcessStartFailed     ErrorCode = "PROCESS_START_FAILED"
	ErrCodeDatabaseInsertFailed   ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeDuplicateApplication   ErrorCode = "DUPLICATE_APPLICATION"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeSessionStoreFailed     ErrorCode = "SESSION_STORE_FAILED"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Retryable  bool                   `json:"retryable"`
	HTTPStatus int                    `json:"-"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Status returns the HTTP status for the error, defaulting to 500.
func (e *StandardError) Status() int {
	if e.HTTPStatus == 0 {
		return http.StatusInternalServerError
	}
	return e.HTTPStatus
}

func newError(code ErrorCode, status int, retryable bool, message, details string) *StandardError {
	return &StandardError{
		Code:       code,
		Message:    message,
		Details:    details,
		Retryable:  retryable,
		HTTPStatus: status,
		Timestamp:  time.Now().UTC(),
	}
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewValidationError creates a 400 request validation error.
func NewValidationError(code ErrorCode, message, details string) *StandardError {
	return newError(code, http.StatusBadRequest, false, message, details)
}

// NewSessionNotFoundError creates a 404 for an absent or expired wizard session.
func NewSessionNotFoundError(sessionID string) *StandardError {
	return newError(ErrCodeSessionNotFound, http.StatusNotFound, false,
		"Wizard session not found or expired", fmt.Sprintf("sessionId: %s", sessionID))
}

// NewInvalidTransitionError creates a 409 for a step move the wizard refuses.
func NewInvalidTransitionError(details string) *StandardError {
	return newError(ErrCodeInvalidTransition, http.StatusConflict, false,
		"Step transition not allowed", details)
}

// NewApplicationValidationFailedError creates a 422 document validation error.
func NewApplicationValidationFailedError(details string) *StandardError {
	return newError(ErrCodeValidationFailed, http.StatusUnprocessableEntity, false,
		"Application data validation failed", details)
}

// NewAIServiceUnavailableError is returned for provider 5xx and network failures.
func NewAIServiceUnavailableError(err error) *StandardError {
	return newError(ErrCodeAIServiceUnavailable, http.StatusServiceUnavailable, true,
		"AI service is temporarily unavailable. Please try again.", errDetails(err))
}

// NewAIRateLimitedError is returned when the provider throttles us.
func NewAIRateLimitedError(err error) *StandardError {
	return newError(ErrCodeAIRateLimited, http.StatusTooManyRequests, true,
		"AI service is busy. Please wait a moment and try again.", errDetails(err))
}

// NewAIAuthFailedError is returned when the provider rejects the API key.
func NewAIAuthFailedError(err error) *StandardError {
	return newError(ErrCodeAIAuthFailed, http.StatusInternalServerError, false,
		"AI service configuration error.", errDetails(err))
}

// NewAITimeoutError is returned when the provider call exceeds its deadline.
func NewAITimeoutError(err error) *StandardError {
	return newError(ErrCodeAITimeout, http.StatusGatewayTimeout, true,
		"AI service took too long to respond. Please try again.", errDetails(err))
}

// NewAINotConfiguredError is returned when no API key is configured.
func NewAINotConfiguredError() *StandardError {
	return newError(ErrCodeAINotConfigured, http.StatusServiceUnavailable, false,
		"AI assistance is not available.", "")
}

// NewSubmissionFailedError creates a retryable 502 for a submitter failure.
func NewSubmissionFailedError(err error) *StandardError {
	return newError(ErrCodeSubmissionFailed, http.StatusBadGateway, true,
		"Application could not be submitted. Your answers are kept.", errDetails(err))
}

// NewProcessStartFailedError creates a retryable process start error.
func NewProcessStartFailedError(processID string, err error) *StandardError {
	return newError(ErrCodeProcessStartFailed, http.StatusBadGateway, true,
		"Review process could not be started",
		fmt.Sprintf("processId: %s, error: %s", processID, errDetails(err)))
}

// NewDatabaseInsertFailedError creates a retryable database insert error.
func NewDatabaseInsertFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseInsertFailed, http.StatusInternalServerError, true,
		"Database insert operation failed", errDetails(err))
}

// NewDuplicateApplicationError creates a non-retryable duplicate application error.
func NewDuplicateApplicationError(reference string) *StandardError {
	return newError(ErrCodeDuplicateApplication, http.StatusConflict, false,
		"Application already exists", fmt.Sprintf("reference: %s", reference))
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, http.StatusBadGateway, true,
		"Notification delivery failed",
		fmt.Sprintf("type: %s, error: %s", notificationType, errDetails(err)))
}

// NewSessionStoreFailedError wraps a persistence backend failure.
func NewSessionStoreFailedError(err error) *StandardError {
	return newError(ErrCodeSessionStoreFailed, http.StatusServiceUnavailable, true,
		"Session storage unavailable", errDetails(err))
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, http.StatusInternalServerError, false,
		"Unexpected error", errDetails(err))
}

func errDetails(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseInsertFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeSessionStoreFailed:
		return 3

	case ErrCodeAITimeout, ErrCodeAIServiceUnavailable, ErrCodeProcessStartFailed:
		return 2

	case ErrCodeAIRateLimited:
		return 1

	default:
		return 0 // Business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "AI_"):
		return "AI"
	case strings.Contains(codeStr, "SESSION"):
		return "SESSION"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "DUPLICATE"):
		return "DATABASE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "SUBMISSION") || strings.Contains(codeStr, "PROCESS"):
		return "SUBMISSION"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION") ||
		strings.Contains(codeStr, "REQUIRED") || strings.Contains(codeStr, "TOO_LONG"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
