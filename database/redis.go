package database

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"SmartHealth/config"
)

// NewRedisClient creates a Redis client from the application config and pings it.
func NewRedisClient(ctx context.Context, cfg *config.AppConfig) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisAddress)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse Redis URL")
	}

	opt.PoolSize = cfg.RedisPoolSize
	opt.MinIdleConns = cfg.RedisMinIdleConns
	opt.DialTimeout = cfg.RedisDialTimeout
	opt.ReadTimeout = cfg.RedisReadTimeout
	opt.MaxRetries = cfg.RedisMaxRetries

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to ping Redis server")
	}

	log.Info().
		Int("pool_size", opt.PoolSize).
		Int("min_idle_conns", opt.MinIdleConns).
		Dur("dial_timeout", opt.DialTimeout).
		Int("max_retries", opt.MaxRetries).
		Msg("redis client initialized")
	return client, nil
}

// ErrLockNotAcquired is returned when every retry found the key held.
var ErrLockNotAcquired = errors.New("failed to acquire lock")

// Locker serialises check-then-write sequences across processes.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// RedisLocker implements Locker with SETNX and an owner-checked release.
type RedisLocker struct {
	client     *redis.Client
	retries    int
	retryDelay time.Duration
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client, retries: 3, retryDelay: 2 * time.Second}
}

const releaseLockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

var releaseScript = redis.NewScript(releaseLockScript)

func (l *RedisLocker) Lock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if l.client == nil {
		return nil, errors.New("Redis client is not initialized")
	}
	value := uuid.NewString()

	for i := 0; i < l.retries; i++ {
		ok, err := l.client.SetNX(ctx, key, value, ttl).Result()
		if err != nil {
			return nil, errors.Wrap(err, "failed to set lock")
		}
		if ok {
			return func() {
				// The request context may already be cancelled.
				releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := l.release(releaseCtx, key, value); err != nil {
					log.Warn().Err(err).Str("key", key).Msg("lock release failed")
				}
			}, nil
		}
		if i < l.retries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(l.retryDelay):
			}
		}
	}
	return nil, errors.Wrap(ErrLockNotAcquired, key)
}

func (l *RedisLocker) release(ctx context.Context, key, value string) error {
	result, err := releaseScript.Run(ctx, l.client, []string{key}, value).Int64()
	if err != nil {
		return errors.Wrap(err, "failed to release lock")
	}
	if result == 0 {
		return errors.New("lock release failed: not the lock owner")
	}
	return nil
}

// MonitorRedisPool logs the connection pool statistics for monitoring
func MonitorRedisPool(client *redis.Client) {
	stats := client.PoolStats()
	log.Debug().
		Uint32("total", stats.TotalConns).
		Uint32("idle", stats.IdleConns).
		Uint32("stale", stats.StaleConns).
		Msg("redis pool stats")
}
