package ai

import (
	"context"
	"errors"
	"net"
	"net/http"

	stderrors "assistance-portal/internal/common/errors"
)

// Classify maps a provider failure to the error returned to clients.
func Classify(err error) *stderrors.StandardError {
	var stdErr *stderrors.StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}

	if errors.Is(err, ErrNotConfigured) {
		return stderrors.NewAINotConfiguredError()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return stderrors.NewAITimeoutError(err)
	}

	var provErr *ProviderError
	if errors.As(err, &provErr) {
		switch {
		case provErr.StatusCode == http.StatusTooManyRequests:
			return stderrors.NewAIRateLimitedError(err)
		case provErr.StatusCode == http.StatusUnauthorized, provErr.StatusCode == http.StatusForbidden:
			return stderrors.NewAIAuthFailedError(err)
		case provErr.StatusCode == http.StatusRequestTimeout, provErr.StatusCode == http.StatusGatewayTimeout:
			return stderrors.NewAITimeoutError(err)
		}
		return stderrors.NewAIServiceUnavailableError(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return stderrors.NewAITimeoutError(err)
	}
	return stderrors.NewAIServiceUnavailableError(err)
}
