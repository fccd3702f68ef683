// internal/common/http/client.go
package http

import (
	"net/http"
	"time"

	"assistance-portal/internal/common/logger"
)

// NewClient returns an *http.Client for outbound provider calls. Every
// request is logged at debug level with its status and latency.
func NewClient(timeout time.Duration, log logger.Logger) *http.Client {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: &loggingTransport{next: http.DefaultTransport, logger: log},
	}
}

type loggingTransport struct {
	next   http.RoundTripper
	logger logger.Logger
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)

	fields := map[string]interface{}{
		"method":     req.Method,
		"host":       req.URL.Host,
		"path":       req.URL.Path,
		"durationMs": time.Since(start).Milliseconds(),
	}
	if err != nil {
		fields["error"] = err.Error()
		t.logger.Warn("outbound request failed", fields)
		return nil, err
	}
	fields["status"] = resp.StatusCode
	t.logger.Debug("outbound request", fields)
	return resp, nil
}
