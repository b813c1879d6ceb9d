package cache

import (
	"context"
	"time"

	appaccounting "github.com/erp/posting/internal/application/accounting"
	"github.com/erp/posting/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SettingsCacheBundle is the settings cache plus what the caller must run and close
type SettingsCacheBundle struct {
	Cache appaccounting.SettingsCache
	// Tiered is set when Redis is in use; its invalidation subscription must be started
	Tiered *TieredSettingsCache
	// Redis is the shared client, nil when the cache is process-local
	Redis   *redis.Client
	closers []func() error
}

// Close releases the cache's resources
func (b *SettingsCacheBundle) Close() error {
	var first error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewSettingsCache builds the settings cache for cfg. Without a Redis host, or when Redis
// cannot be reached, the cache is process-local.
func NewSettingsCache(ctx context.Context, cfg config.RedisConfig, ttl time.Duration, logger *zap.Logger) *SettingsCacheBundle {
	if logger == nil {
		logger = zap.NewNop()
	}

	l1TTL := defaultL1TTL
	if ttl > 0 && ttl < l1TTL {
		l1TTL = ttl
	}
	l1 := NewInMemorySettingsCache(WithInMemoryTTL(l1TTL), WithInMemoryLogger(logger))
	bundle := &SettingsCacheBundle{Cache: l1, closers: []func() error{l1.Close}}

	if cfg.Host == "" {
		logger.Info("Redis not configured, using in-memory settings cache")
		return bundle
	}

	client, err := NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Warn("Redis unavailable, using in-memory settings cache. "+
			"Settings changes reach other instances only after the local TTL.",
			zap.String("addr", cfg.Addr()),
			zap.Error(err),
		)
		return bundle
	}

	l2 := NewRedisSettingsCacheWithClient(client, WithRedisTTL(ttl), WithRedisLogger(logger))
	invalidator := NewSettingsInvalidator(client, WithInvalidatorLogger(logger))
	tiered := NewTieredSettingsCache(l1, l2, invalidator, logger)

	bundle.Cache = tiered
	bundle.Tiered = tiered
	bundle.Redis = client
	bundle.closers = append(bundle.closers, invalidator.Close, client.Close)

	logger.Info("Using Redis settings cache", zap.String("addr", cfg.Addr()), zap.Duration("ttl", ttl))
	return bundle
}
