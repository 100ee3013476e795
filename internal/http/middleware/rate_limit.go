package middleware

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/ShortcutURL/internal/infra/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitConfig describes one limited scope, e.g. link creation.
type RateLimitConfig struct {
	Scope       string
	MaxRequests int
	Window      time.Duration
	KeyPrefix   string
}

func (c RateLimitConfig) withDefaults() RateLimitConfig {
	if c.MaxRequests <= 0 {
		c.MaxRequests = 100
	}
	if c.Window <= 0 {
		c.Window = time.Minute
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "ratelimit"
	}
	if c.Scope == "" {
		c.Scope = "default"
	}
	return c
}

// RateLimit limits requests per client IP. With Redis the window is shared
// across instances; without it, or while Redis is failing, a per-process
// token bucket applies the same budget.
func RateLimit(redisClient *redis.Client, config RateLimitConfig, logger *zap.Logger) fiber.Handler {
	config = config.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	local := newLocalLimiter(config.MaxRequests, config.Window)

	return func(c *fiber.Ctx) error {
		ip := c.IP()
		c.Set("X-RateLimit-Limit", strconv.Itoa(config.MaxRequests))

		var allowed bool
		if redisClient != nil {
			count, err := incrWindow(c.UserContext(), redisClient, config.KeyPrefix+":"+config.Scope+":"+ip, config.Window)
			if err != nil {
				logger.Warn("rate limit redis error, using local limiter", zap.String("scope", config.Scope), zap.Error(err))
				allowed = local.allow(ip)
			} else {
				c.Set("X-RateLimit-Remaining", strconv.Itoa(max(0, config.MaxRequests-int(count))))
				c.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(config.Window).Unix(), 10))
				allowed = count <= int64(config.MaxRequests)
			}
		} else {
			allowed = local.allow(ip)
		}

		if !allowed {
			prometheus.RateLimitedTotal.WithLabelValues(config.Scope).Inc()
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(config.Window.Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded, try again later",
			})
		}

		return c.Next()
	}
}

// incrWindow bumps a fixed-window counter and starts its TTL on first use.
func incrWindow(ctx context.Context, client *redis.Client, key string, window time.Duration) (int64, error) {
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := client.Expire(ctx, key, window).Err(); err != nil {
			return 0, err
		}
	}
	return count, nil
}

const localSweepSize = 10000

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type localLimiter struct {
	mu      sync.Mutex
	entries map[string]*localEntry
	limit   rate.Limit
	burst   int
	idle    time.Duration
	now     func() time.Time
}

func newLocalLimiter(n int, window time.Duration) *localLimiter {
	return &localLimiter{
		entries: make(map[string]*localEntry),
		limit:   rate.Every(window / time.Duration(n)),
		burst:   n,
		idle:    window,
		now:     time.Now,
	}
}

func (l *localLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.entries) >= localSweepSize {
		for k, e := range l.entries {
			if now.Sub(e.lastSeen) > l.idle {
				delete(l.entries, k)
			}
		}
	}

	e, ok := l.entries[key]
	if !ok {
		e = &localEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}
