// Package session keeps the most recent inbound messages of each
// conversation so repeated scammer messages can be detected across requests.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	keyPrefix = "blocksafe:session:"
	// DefaultDepth matches the honeypot repetition window.
	DefaultDepth = 3
	// DefaultTTL is how long an idle session is remembered.
	DefaultTTL = 30 * time.Minute
)

// Log stores recent inbound messages per session.
type Log interface {
	// Recent returns up to the configured depth of messages, oldest first.
	Recent(ctx context.Context, sessionID string) ([]string, error)
	Append(ctx context.Context, sessionID, msg string) error
}

// RedisLog is a Log backed by a capped redis list per session.
type RedisLog struct {
	redis  *redis.Client
	tracer trace.Tracer
	depth  int64
	ttl    time.Duration
}

func NewRedisLog(client *redis.Client, depth int, ttl time.Duration) *RedisLog {
	if depth < 1 {
		depth = DefaultDepth
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisLog{
		redis:  client,
		tracer: otel.Tracer("blocksafe.internal.session"),
		depth:  int64(depth),
		ttl:    ttl,
	}
}

func (l *RedisLog) Append(ctx context.Context, sessionID, msg string) error {
	if sessionID == "" {
		return errors.New("session: sessionID required")
	}
	ctx, span := l.tracer.Start(ctx, "session.append")
	defer span.End()

	key := keyPrefix + sessionID
	pipe := l.redis.TxPipeline()
	pipe.RPush(ctx, key, msg)
	pipe.LTrim(ctx, key, -l.depth, -1)
	pipe.Expire(ctx, key, l.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: append: %w", err)
	}
	return nil
}

func (l *RedisLog) Recent(ctx context.Context, sessionID string) ([]string, error) {
	if sessionID == "" {
		return nil, nil
	}
	ctx, span := l.tracer.Start(ctx, "session.recent")
	defer span.End()

	msgs, err := l.redis.LRange(ctx, keyPrefix+sessionID, -l.depth, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("session: recent: %w", err)
	}
	return msgs, nil
}

// MemoryLog is an in-process Log used when redis is not configured.
type MemoryLog struct {
	mu       sync.Mutex
	depth    int
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*memorySession
}

type memorySession struct {
	msgs    []string
	touched time.Time
}

func NewMemoryLog(depth int, ttl time.Duration) *MemoryLog {
	if depth < 1 {
		depth = DefaultDepth
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryLog{
		depth:    depth,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*memorySession),
	}
}

func (l *MemoryLog) Append(_ context.Context, sessionID, msg string) error {
	if sessionID == "" {
		return errors.New("session: sessionID required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)
	s, ok := l.sessions[sessionID]
	if !ok {
		s = &memorySession{}
		l.sessions[sessionID] = s
	}
	s.msgs = append(s.msgs, msg)
	if len(s.msgs) > l.depth {
		s.msgs = append([]string(nil), s.msgs[len(s.msgs)-l.depth:]...)
	}
	s.touched = now
	return nil
}

func (l *MemoryLog) Recent(_ context.Context, sessionID string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.sessions[sessionID]
	if !ok || l.now().Sub(s.touched) >= l.ttl {
		return []string{}, nil
	}
	out := make([]string, len(s.msgs))
	copy(out, s.msgs)
	return out, nil
}

func (l *MemoryLog) sweep(now time.Time) {
	for id, s := range l.sessions {
		if now.Sub(s.touched) >= l.ttl {
			delete(l.sessions, id)
		}
	}
}
