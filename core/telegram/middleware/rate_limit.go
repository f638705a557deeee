package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/shopbot/core/logger"
)

// Limiter decides whether a user may be served right now.
type Limiter interface {
	Allow(ctx context.Context, userID int64) (bool, error)
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LocalLimiter keeps one token bucket per user in process memory. Idle
// buckets are evicted opportunistically.
type LocalLimiter struct {
	rps   rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[int64]*bucket
	idle    time.Duration
	lookups int
	now     func() time.Time
}

// NewLocalLimiter refills perSecond tokens with the given burst.
func NewLocalLimiter(perSecond float64, burst int) *LocalLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &LocalLimiter{
		rps:     rate.Limit(perSecond),
		burst:   burst,
		buckets: make(map[int64]*bucket),
		idle:    10 * time.Minute,
		now:     time.Now,
	}
}

func (l *LocalLimiter) Allow(_ context.Context, userID int64) (bool, error) {
	now := l.now()

	l.mu.Lock()
	l.lookups++
	if l.lookups >= 5000 {
		for id, b := range l.buckets {
			if now.Sub(b.lastSeen) >= l.idle {
				delete(l.buckets, id)
			}
		}
		l.lookups = 0
	}
	b, ok := l.buckets[userID]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.buckets[userID] = b
	}
	b.lastSeen = now
	lim := b.limiter
	l.mu.Unlock()

	return lim.AllowN(now, 1), nil
}

// RedisLimiter is a fixed window counter shared by all replicas.
type RedisLimiter struct {
	client redis.Cmdable
	prefix string
	limit  int64
	window time.Duration
}

// NewRedisLimiter allows limit updates per user per window.
func NewRedisLimiter(client redis.Cmdable, prefix string, limit int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "shopbot:rate:"
	}
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &RedisLimiter{client: client, prefix: prefix, limit: int64(limit), window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, userID int64) (bool, error) {
	key := fmt.Sprintf("%s%d", l.prefix, userID)
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return false, err
		}
	}
	return count <= l.limit, nil
}

// RateLimitOptions configures RateLimit.
type RateLimitOptions struct {
	Limiter Limiter
	// Exclude lists update kinds (see UpdateKind) that bypass limiting.
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
}

// RateLimit drops updates from users that exceed their budget. Limiter
// failures let the update through.
func RateLimit(opts RateLimitOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		if opts.Limiter == nil {
			return next
		}
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil {
				return next(c)
			}
			kind := UpdateKind(c.Update())
			if _, skip := opts.Exclude[kind]; skip {
				return next(c)
			}

			ctx := Context(c)
			ok, err := opts.Limiter.Allow(ctx, user.ID)
			if err != nil {
				logger.TG.LogAttrs(ctx, slog.LevelWarn, "rate_limit.failed",
					slog.String("status", "fail"),
					slog.String("err", err.Error()),
				)
				return next(c)
			}
			if ok {
				return next(c)
			}

			logger.TG.LogAttrs(ctx, slog.LevelWarn, "rate_limit.hit",
				slog.String("status", "skip"),
				slog.String("kind", kind),
			)
			if opts.OnLimited != nil {
				return opts.OnLimited(c)
			}
			return nil
		}
	}
}
