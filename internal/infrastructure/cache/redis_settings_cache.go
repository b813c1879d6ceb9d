package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	appaccounting "github.com/erp/posting/internal/application/accounting"
	"github.com/erp/posting/internal/domain/accounting"
	"github.com/erp/posting/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultSettingsTTL = 5 * time.Minute
	settingsKeyPrefix  = "gl:settings:"
)

// RedisSettingsCache stores tenant settings as JSON in Redis. Redis failures are logged
// and read as misses; settings always fall back to the database.
type RedisSettingsCache struct {
	client     *redis.Client
	ownsClient bool
	ttl        time.Duration
	logger     *zap.Logger
}

// RedisOption configures a RedisSettingsCache
type RedisOption func(*RedisSettingsCache)

// WithRedisTTL sets the entry TTL
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(c *RedisSettingsCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithRedisLogger sets the logger
func WithRedisLogger(logger *zap.Logger) RedisOption {
	return func(c *RedisSettingsCache) {
		c.logger = logger
	}
}

// NewRedisClient connects to Redis and pings it
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisSettingsCache creates a cache that owns its client
func NewRedisSettingsCache(ctx context.Context, cfg config.RedisConfig, opts ...RedisOption) (*RedisSettingsCache, error) {
	client, err := NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c := NewRedisSettingsCacheWithClient(client, opts...)
	c.ownsClient = true
	return c, nil
}

// NewRedisSettingsCacheWithClient creates a cache over a shared client. The caller keeps
// ownership of client.
func NewRedisSettingsCacheWithClient(client *redis.Client, opts ...RedisOption) *RedisSettingsCache {
	c := &RedisSettingsCache{
		client: client,
		ttl:    defaultSettingsTTL,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func settingsKey(tenantID uuid.UUID) string {
	return settingsKeyPrefix + tenantID.String()
}

// Get reads the tenant's settings
func (c *RedisSettingsCache) Get(ctx context.Context, tenantID uuid.UUID) (*accounting.AccountingSettings, bool) {
	key := settingsKey(tenantID)

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("Failed to read settings from Redis",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		return nil, false
	}

	settings, err := decodeSettings(data)
	if err != nil {
		c.logger.Error("Dropping corrupt cached settings",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		_ = c.client.Del(ctx, key)
		return nil, false
	}
	return settings, true
}

// Set writes settings with the configured TTL
func (c *RedisSettingsCache) Set(ctx context.Context, settings *accounting.AccountingSettings) {
	if settings == nil {
		return
	}
	data, err := encodeSettings(settings)
	if err != nil {
		c.logger.Error("Failed to encode settings", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, settingsKey(settings.TenantID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to write settings to Redis",
			zap.String("tenant_id", settings.TenantID.String()),
			zap.Error(err))
	}
}

// Invalidate deletes the tenant's entry
func (c *RedisSettingsCache) Invalidate(ctx context.Context, tenantID uuid.UUID) {
	if err := c.client.Del(ctx, settingsKey(tenantID)).Err(); err != nil {
		c.logger.Warn("Failed to delete cached settings",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
	}
}

// Close closes the client when the cache owns it
func (c *RedisSettingsCache) Close() error {
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}

// Client returns the underlying client
func (c *RedisSettingsCache) Client() *redis.Client {
	return c.client
}

// cachedSettings is the JSON shape stored in Redis
type cachedSettings struct {
	ID                     uuid.UUID                  `json:"id"`
	CreatedAt              time.Time                  `json:"created_at"`
	UpdatedAt              time.Time                  `json:"updated_at"`
	TenantID               uuid.UUID                  `json:"tenant_id"`
	BaseCurrency           string                     `json:"base_currency"`
	SupportedCurrencies    []string                   `json:"supported_currencies"`
	AutoPostMode           accounting.AutoPostMode    `json:"auto_post_mode"`
	LockPeriodThrough      string                     `json:"lock_period_through,omitempty"`
	RoundingToleranceMinor int                        `json:"rounding_tolerance_minor"`
	RoundingAccountID      *uuid.UUID                 `json:"rounding_account_id,omitempty"`
	MaxEventRetries        int                        `json:"max_event_retries"`
	Defaults               accounting.DefaultAccounts `json:"defaults"`
	Version                int                        `json:"version"`
}

func encodeSettings(s *accounting.AccountingSettings) ([]byte, error) {
	return json.Marshal(cachedSettings{
		ID:                     s.ID,
		CreatedAt:              s.CreatedAt,
		UpdatedAt:              s.UpdatedAt,
		TenantID:               s.TenantID,
		BaseCurrency:           s.BaseCurrency,
		SupportedCurrencies:    s.SupportedCurrencies,
		AutoPostMode:           s.AutoPostMode,
		LockPeriodThrough:      s.LockPeriodThrough,
		RoundingToleranceMinor: s.RoundingToleranceMinor,
		RoundingAccountID:      s.RoundingAccountID,
		MaxEventRetries:        s.MaxEventRetries,
		Defaults:               s.Defaults,
		Version:                s.Version,
	})
}

func decodeSettings(data []byte) (*accounting.AccountingSettings, error) {
	var c cachedSettings
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if c.TenantID == uuid.Nil {
		return nil, errors.New("cached settings have no tenant")
	}
	s := &accounting.AccountingSettings{
		TenantID:               c.TenantID,
		BaseCurrency:           c.BaseCurrency,
		SupportedCurrencies:    c.SupportedCurrencies,
		AutoPostMode:           c.AutoPostMode,
		LockPeriodThrough:      c.LockPeriodThrough,
		RoundingToleranceMinor: c.RoundingToleranceMinor,
		RoundingAccountID:      c.RoundingAccountID,
		MaxEventRetries:        c.MaxEventRetries,
		Defaults:               c.Defaults,
		Version:                c.Version,
	}
	s.ID = c.ID
	s.CreatedAt = c.CreatedAt
	s.UpdatedAt = c.UpdatedAt
	if s.Defaults == nil {
		s.Defaults = accounting.DefaultAccounts{}
	}
	return s, nil
}

var _ appaccounting.SettingsCache = (*RedisSettingsCache)(nil)
