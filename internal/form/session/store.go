// Package session persists in-progress wizard sessions so an applicant can
// resume after a reload. Storage is best-effort: callers log failures and
// carry on with the in-memory state.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"assistance-portal/internal/form/validators"
	"assistance-portal/internal/models"
)

// DefaultTTL is how long an untouched session stays resumable.
const DefaultTTL = 24 * time.Hour

var (
	// ErrNotFound is returned for absent, expired and unreadable sessions.
	ErrNotFound = errors.New("SESSION_NOT_FOUND")

	errMalformed = errors.New("malformed session payload")
	errExpired   = errors.New("session expired")
)

// Store saves, loads and clears one session per id.
type Store interface {
	Save(ctx context.Context, s *models.WizardSession) error
	Load(ctx context.Context, id string) (*models.WizardSession, error)
	Clear(ctx context.Context, id string) error
}

// envelope is the stored layout. Timestamps are epoch milliseconds.
type envelope struct {
	FormData     models.ApplicationDocument `json:"formData"`
	CurrentStep  int                        `json:"currentStep"`
	LastModified int64                      `json:"lastModified,omitempty"`
	ExpiresAt    int64                      `json:"expiresAt,omitempty"`
}

// Encode serializes s with an expiry of now+ttl.
func Encode(s *models.WizardSession, now time.Time, ttl time.Duration) ([]byte, error) {
	lastModified := s.LastModified
	if lastModified.IsZero() {
		lastModified = now
	}
	return json.Marshal(envelope{
		FormData:     s.Document,
		CurrentStep:  clampStep(s.CurrentStep),
		LastModified: lastModified.UnixMilli(),
		ExpiresAt:    now.Add(ttl).UnixMilli(),
	})
}

// Decode parses a stored payload. It accepts the current envelope, an
// envelope without timestamps, and a bare document (which resumes at step 1).
func Decode(id string, data []byte, now time.Time, ttl time.Duration) (*models.WizardSession, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil || probe == nil {
		return nil, errMalformed
	}

	s := &models.WizardSession{ID: id, CurrentStep: validators.FirstStep}

	if _, ok := probe["formData"]; !ok {
		if err := json.Unmarshal(data, &s.Document); err != nil {
			return nil, fmt.Errorf("%w: %v", errMalformed, err)
		}
		return s, nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}

	if env.ExpiresAt > 0 && now.UnixMilli() >= env.ExpiresAt {
		return nil, errExpired
	}
	if env.ExpiresAt == 0 && env.LastModified > 0 && now.Sub(time.UnixMilli(env.LastModified)) >= ttl {
		return nil, errExpired
	}

	s.Document = env.FormData
	s.CurrentStep = clampStep(env.CurrentStep)
	if env.LastModified > 0 {
		s.LastModified = time.UnixMilli(env.LastModified).UTC()
	}
	return s, nil
}

func clampStep(step int) int {
	if step < validators.FirstStep {
		return validators.FirstStep
	}
	if step > validators.LastStep {
		return validators.LastStep
	}
	return step
}
