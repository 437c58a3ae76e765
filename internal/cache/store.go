// Package cache holds fetched market quotes so repeated outcome passes
// over the same window do not refetch the provider.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/config"
)

// Store is a byte cache with per-key TTL. A miss is (nil, false, nil);
// errors are reserved for backend failures.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// New builds the configured backend. Unknown or misconfigured backends
// fall back to the in-process store so the engine keeps running without
// redis.
func New(cfg config.CacheConfig, logger *zap.Logger) Store {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore()
	case "redis":
		if cfg.RedisAddr == "" {
			if logger != nil {
				logger.Warn("cache backend is redis but redis_addr is empty, using memory store")
			}
			return NewMemoryStore()
		}
		return NewRedisStore(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	default:
		if logger != nil {
			logger.Warn("unknown cache backend, using memory store", zap.String("backend", cfg.Backend))
		}
		return NewMemoryStore()
	}
}
