// Package lock provides a best-effort cross-process lock around closing a
// business day. Correctness never depends on it; the snapshot's unique
// business day does.
package lock

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/shiftledger/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	keyCloseDay    = "shiftclose:"
	DefaultLockTTL = 2 * time.Minute
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

type Locker struct {
	client *redis.Client
	script *redis.Script
	ttl    time.Duration
}

// New returns nil when no redis address is configured.
func New(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *Locker {
	addr := strings.TrimSpace(cfg.Redis.Addr)
	if addr == "" {
		log.Named("shiftclose.lock").Info("redis not configured, close lock disabled")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return NewWithClient(client, DefaultLockTTL)
}

func NewWithClient(client *redis.Client, ttl time.Duration) *Locker {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &Locker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
		ttl:    ttl,
	}
}

func (l *Locker) Enabled() bool {
	return l != nil && l.client != nil
}

// Key is the lock key of a business day.
func Key(day string) string {
	return keyCloseDay + day
}

// TryLock acquires the day's lock. The token must be passed to Release.
func (l *Locker) TryLock(ctx context.Context, day string) (string, bool, error) {
	if !l.Enabled() {
		return "", false, errors.New("lock client not configured")
	}
	if day == "" {
		return "", false, errors.New("lock key is empty")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, Key(day), token, l.ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Release deletes the lock only while it still holds token.
func (l *Locker) Release(ctx context.Context, day, token string) error {
	if !l.Enabled() {
		return nil
	}
	if day == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{Key(day)}, token).Err()
}
