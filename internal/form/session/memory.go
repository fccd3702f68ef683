package session

import (
	"context"
	"sync"
	"time"

	"assistance-portal/internal/models"
)

// MemoryStore is the in-process store used when Redis is unavailable.
// Sessions do not survive a restart.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
	ttl  time.Duration
	now  func() time.Time
}

// NewMemoryStore returns an empty store. ttl <= 0 selects DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{data: make(map[string][]byte), ttl: ttl, now: time.Now}
}

func (m *MemoryStore) Save(_ context.Context, s *models.WizardSession) error {
	data, err := Encode(s, m.now(), m.ttl)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[s.ID] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Load(_ context.Context, id string) (*models.WizardSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	s, err := Decode(id, data, m.now(), m.ttl)
	if err != nil {
		delete(m.data, id)
		return nil, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) Clear(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.data, id)
	m.mu.Unlock()
	return nil
}
