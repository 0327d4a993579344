package api

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Rate limit windows.
const (
	WindowMinute = "minute"
	WindowHour   = "hour"
)

// Limiter decides whether a client may make another request. When it may
// not, it reports the exhausted window and how long to wait.
type Limiter interface {
	Allow(ctx context.Context, client string) (ok bool, window string, retryAfter time.Duration)
}

// RateObserver records rejected requests. *metrics.Metrics satisfies it.
type RateObserver interface {
	ObserveRateLimited(window string)
}

// RedisLimiter counts requests in fixed per-minute and per-hour windows
// shared by every replica. When redis is unreachable it fails open to an
// in-process limiter.
type RedisLimiter struct {
	redis     *redis.Client
	perMinute int
	perHour   int
	fallback  *MemoryLimiter
	logger    *slog.Logger
}

func NewRedisLimiter(client *redis.Client, perMinute, perHour int, logger *slog.Logger) *RedisLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLimiter{
		redis:     client,
		perMinute: perMinute,
		perHour:   perHour,
		fallback:  NewMemoryLimiter(perMinute, perHour),
		logger:    logger,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, client string) (bool, string, time.Duration) {
	windows := []struct {
		name   string
		limit  int
		length time.Duration
	}{
		{WindowMinute, l.perMinute, time.Minute},
		{WindowHour, l.perHour, time.Hour},
	}
	for _, w := range windows {
		key := fmt.Sprintf("blocksafe:ratelimit:%s:%s", w.name, client)
		count, ttl, err := l.increment(ctx, key, w.length)
		if err != nil {
			l.logger.Warn("rate limit store unavailable, using local limiter", "error", err)
			return l.fallback.Allow(ctx, client)
		}
		if count > w.limit {
			return false, w.name, ttl
		}
	}
	return true, "", 0
}

// increment bumps the window counter and sets its expiry in one
// transaction. EXPIRE NX only applies to a key without a TTL, so a counter
// can never outlive its window.
func (l *RedisLimiter) increment(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, window)
		ttl = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	remaining := ttl.Val()
	if remaining <= 0 {
		remaining = window
	}
	return int(incr.Val()), remaining, nil
}

// MemoryLimiter is a per-process token bucket limiter with one bucket per
// window and client.
type MemoryLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientLimiter
	perMinute int
	perHour   int
	calls     int
	now       func() time.Time
}

type clientLimiter struct {
	minute   *rate.Limiter
	hour     *rate.Limiter
	lastSeen time.Time
}

const sweepEvery = 1000

func NewMemoryLimiter(perMinute, perHour int) *MemoryLimiter {
	return &MemoryLimiter{
		clients:   make(map[string]*clientLimiter),
		perMinute: max(perMinute, 1),
		perHour:   max(perHour, 1),
		now:       time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, client string) (bool, string, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.calls++
	if l.calls%sweepEvery == 0 {
		l.sweep(now)
	}

	c, ok := l.clients[client]
	if !ok {
		c = &clientLimiter{
			minute: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.perMinute),
			hour:   rate.NewLimiter(rate.Every(time.Hour/time.Duration(l.perHour)), l.perHour),
		}
		l.clients[client] = c
	}
	c.lastSeen = now

	m := c.minute.ReserveN(now, 1)
	if d := m.DelayFrom(now); d > 0 {
		m.CancelAt(now)
		return false, WindowMinute, d
	}
	h := c.hour.ReserveN(now, 1)
	if d := h.DelayFrom(now); d > 0 {
		h.CancelAt(now)
		m.CancelAt(now)
		return false, WindowHour, d
	}
	return true, "", 0
}

func (l *MemoryLimiter) sweep(now time.Time) {
	for k, c := range l.clients {
		if now.Sub(c.lastSeen) > time.Hour {
			delete(l.clients, k)
		}
	}
}

// RateLimitMiddleware rejects requests over the limit with 429 and a
// Retry-After header. Clients are keyed by API key, falling back to the
// remote address.
func RateLimitMiddleware(limiter Limiter, observer RateObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}
			client := r.Header.Get(apiKeyHeader)
			if client == "" {
				client = r.RemoteAddr
			}
			ok, window, retryAfter := limiter.Allow(r.Context(), client)
			if !ok {
				if observer != nil {
					observer.ObserveRateLimited(window)
				}
				secs := int(math.Ceil(retryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
				writeError(w, http.StatusTooManyRequests, "RATE_LIMITED",
					fmt.Sprintf("Rate limit exceeded. Try again in %d seconds.", max(secs, 1)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
