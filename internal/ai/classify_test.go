package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	stderrors "assistance-portal/internal/common/errors"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      stderrors.ErrorCode
		status    int
		retryable bool
	}{
		{"rate limited", &ProviderError{StatusCode: 429, Err: errors.New("slow down")}, stderrors.ErrCodeAIRateLimited, 429, true},
		{"unauthorized", &ProviderError{StatusCode: 401, Err: errors.New("bad key")}, stderrors.ErrCodeAIAuthFailed, 500, false},
		{"forbidden", &ProviderError{StatusCode: 403, Err: errors.New("no access")}, stderrors.ErrCodeAIAuthFailed, 500, false},
		{"provider 5xx", &ProviderError{StatusCode: 502, Err: errors.New("bad gateway")}, stderrors.ErrCodeAIServiceUnavailable, 503, true},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), stderrors.ErrCodeAITimeout, 504, true},
		{"network timeout", timeoutErr{}, stderrors.ErrCodeAITimeout, 504, true},
		{"network", errors.New("dial tcp: connection refused"), stderrors.ErrCodeAIServiceUnavailable, 503, true},
		{"not configured", ErrNotConfigured, stderrors.ErrCodeAINotConfigured, 503, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, tt.status, got.Status())
			assert.Equal(t, tt.retryable, got.Retryable)
		})
	}
}

func TestClassify_PassesStandardErrors(t *testing.T) {
	in := stderrors.NewValidationError(stderrors.ErrCodeTextRequired, "Text is required", "")
	assert.Same(t, in, Classify(in))
	assert.Equal(t, http.StatusBadRequest, Classify(in).Status())
}
