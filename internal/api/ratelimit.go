package api

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
	"github.com/redis/go-redis/v9"

	stderrors "assistance-portal/internal/common/errors"
	"assistance-portal/internal/common/logger"
)

// Rate limit backends reported to the RateRecorder.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// RateRecorder counts rejected requests.
type RateRecorder interface {
	RecordRateLimited(backend string)
}

// RedisLimiter is a fixed-window counter shared by every server instance.
type RedisLimiter struct {
	client redis.Cmdable
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRedisLimiter(client redis.Cmdable, prefix string, limit int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "ratelimit:ai:"
	}
	return &RedisLimiter{client: client, prefix: prefix, limit: limit, window: window, now: time.Now}
}

// Allow counts one request for key and reports whether it is within the
// limit, and how long until the current window ends.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	now := l.now()
	windowMs := l.window.Milliseconds()
	slot := now.UnixMilli() / windowMs
	redisKey := fmt.Sprintf("%s%s:%d", l.prefix, key, slot)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.PExpire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("rate limit counter: %w", err)
	}

	resetIn := time.Duration((slot+1)*windowMs-now.UnixMilli()) * time.Millisecond
	return incr.Val() <= int64(l.limit), resetIn, nil
}

// RateLimit limits requests per client address. With a Redis limiter the
// counter is shared across instances; when Redis fails, or no limiter is
// given, an in-process httprate limiter applies.
func RateLimit(primary *RedisLimiter, requests int, window time.Duration, log logger.Logger, rec RateRecorder) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	reject := func(w http.ResponseWriter, backend string, retryAfter time.Duration) {
		if rec != nil {
			rec.RecordRateLimited(backend)
		}
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
		stderrors.WriteJSON(w, http.StatusTooManyRequests, stderrors.Response{
			Error:   "Too Many Requests",
			Message: "Too many AI requests from this client. Please wait a minute and try again.",
		})
	}

	fallback := httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			reject(w, BackendMemory, window)
		}),
	)
	if primary == nil {
		return fallback
	}

	return func(next http.Handler) http.Handler {
		degraded := fallback(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, err := httprate.KeyByIP(r)
			if err != nil {
				degraded.ServeHTTP(w, r)
				return
			}
			ok, resetIn, err := primary.Allow(r.Context(), key)
			if err != nil {
				log.Warn("redis rate limiter unavailable, using in-memory limiter", map[string]interface{}{
					"error": err.Error(),
				})
				degraded.ServeHTTP(w, r)
				return
			}
			if !ok {
				reject(w, BackendRedis, resetIn)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
