package infra

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to the cache backend. It returns nil (not an error)
// when caching is disabled or the backend is unreachable, so callers can treat
// a missing cache as a no-op rather than a fatal condition.
func NewRedisClient(ctx context.Context, cfg *Config, logger Logger) *redis.Client {
	if cfg == nil || cfg.RedisDisabled {
		return nil
	}

	var client *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis: invalid REDIS_URL, cache disabled")
			return nil
		}
		client = redis.NewClient(opts)
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:        cfg.RedisAddr(),
			DB:          cfg.RedisDB,
			DialTimeout: cfg.RedisDialWait,
		})
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.RedisDialWait)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis: connection failed, cache disabled")
		_ = client.Close()
		return nil
	}

	return client
}
