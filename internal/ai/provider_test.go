package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatCompletion(content string) string {
	body, _ := json.Marshal(map[string]interface{}{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o-mini",
		"choices": []map[string]interface{}{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]interface{}{"role": "assistant", "content": content},
		}},
	})
	return string(body)
}

func newOpenAITestServer(t *testing.T, status int, body string, seen *map[string]interface{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		if seen != nil {
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewOpenAIProvider_RequiresKey(t *testing.T) {
	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "  "})
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestOpenAIProvider_Complete(t *testing.T) {
	var seen map[string]interface{}
	srv := newOpenAITestServer(t, http.StatusOK, chatCompletion("  Dear committee,  "), &seen)

	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/", Temperature: 0.3})
	require.NoError(t, err)

	out, err := p.Complete(context.Background(), "system prompt", "help me")
	require.NoError(t, err)
	assert.Equal(t, "Dear committee,", out)

	assert.Equal(t, "gpt-4o-mini", seen["model"])
	messages, ok := seen["messages"].([]interface{})
	require.True(t, ok)
	assert.Len(t, messages, 2)
}

func TestOpenAIProvider_StatusErrors(t *testing.T) {
	tests := []struct {
		status int
	}{
		{http.StatusTooManyRequests},
		{http.StatusUnauthorized},
		{http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := newOpenAITestServer(t, tt.status, `{"error":{"message":"nope","type":"test"}}`, nil)
			p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/"})
			require.NoError(t, err)

			_, err = p.Complete(context.Background(), "s", "u")
			var provErr *ProviderError
			require.True(t, errors.As(err, &provErr), "got %v", err)
			assert.Equal(t, tt.status, provErr.StatusCode)
		})
	}
}

func TestOpenAIProvider_EmptyChoice(t *testing.T) {
	srv := newOpenAITestServer(t, http.StatusOK, chatCompletion(""), nil)
	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), "s", "u")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
