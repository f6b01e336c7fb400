package game

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const defaultLockTTL = 30 * time.Second

// RedisLocker serializes answer submissions per session with a distributed
// lock. Two concurrent submissions against the same session must not both
// draw a next question from the same exclusion set.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

var _ Locker = (*RedisLocker)(nil)

// NewRedisLocker builds a locker; ttl bounds how long a crashed holder can
// block the session.
func NewRedisLocker(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "session_lock").Logger(),
	}
}

// LockSession acquires the session's lock and returns the unlock function.
// A held lock yields ErrSessionLocked.
func (l *RedisLocker) LockSession(ctx context.Context, id uuid.UUID) (func() error, error) {
	key := fmt.Sprintf("session:lock:%s", id.String())
	lockValue := uuid.New().String()

	acquired, err := l.client.SetNX(ctx, key, lockValue, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !acquired {
		return nil, ErrSessionLocked
	}

	unlock := func() error {
		// Lua script ensures we only delete our own lock
		script := `
			if redis.call("get", KEYS[1]) == ARGV[1] then
				return redis.call("del", KEYS[1])
			else
				return 0
			end
		`
		return l.client.Eval(ctx, script, []string{key}, lockValue).Err()
	}

	return unlock, nil
}
