package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"assistance-portal/internal/common/logger"
	"assistance-portal/internal/models"
)

// RedisStore keeps one key per session under a prefix, expiring with the session.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	now    func() time.Time
	logger logger.Logger
}

// NewRedisStore returns a Redis-backed store. ttl <= 0 selects DefaultTTL.
func NewRedisStore(client redis.Cmdable, prefix string, ttl time.Duration, log logger.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		now:    time.Now,
		logger: log.WithFields(map[string]interface{}{"component": "session-store", "backend": "redis"}),
	}
}

func (r *RedisStore) key(id string) string {
	return r.prefix + id
}

func (r *RedisStore) Save(ctx context.Context, s *models.WizardSession) error {
	data, err := Encode(s, r.now(), r.ttl)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, r.key(s.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", s.ID, err)
	}
	return nil
}

func (r *RedisStore) Load(ctx context.Context, id string) (*models.WizardSession, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	s, err := Decode(id, data, r.now(), r.ttl)
	if err != nil {
		r.logger.Warn("discarding stored session", map[string]interface{}{
			"sessionId": id,
			"reason":    err.Error(),
		})
		if delErr := r.client.Del(ctx, r.key(id)).Err(); delErr != nil {
			r.logger.Warn("failed to purge session", map[string]interface{}{
				"sessionId": id,
				"error":     delErr.Error(),
			})
		}
		return nil, ErrNotFound
	}
	return s, nil
}

func (r *RedisStore) Clear(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("clear session %s: %w", id, err)
	}
	return nil
}
