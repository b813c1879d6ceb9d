package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	appaccounting "github.com/erp/posting/internal/application/accounting"
	"github.com/erp/posting/internal/domain/accounting"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultL1TTL           = 30 * time.Second
	defaultCleanupInterval = 30 * time.Second
)

// InMemorySettingsCache is a process-local settings cache. It is the L1 tier of
// TieredSettingsCache and the whole cache when Redis is not configured.
type InMemorySettingsCache struct {
	entries  sync.Map // map[uuid.UUID]*cacheEntry
	ttl      time.Duration
	logger   *zap.Logger
	stopCh   chan struct{}
	stopOnce sync.Once

	hits   int64
	misses int64
}

type cacheEntry struct {
	value     *accounting.AccountingSettings
	expiresAt time.Time
}

func (e *cacheEntry) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// InMemoryOption configures an InMemorySettingsCache
type InMemoryOption func(*InMemorySettingsCache)

// WithInMemoryTTL sets how long entries live
func WithInMemoryTTL(ttl time.Duration) InMemoryOption {
	return func(c *InMemorySettingsCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithInMemoryLogger sets the logger
func WithInMemoryLogger(logger *zap.Logger) InMemoryOption {
	return func(c *InMemorySettingsCache) {
		c.logger = logger
	}
}

// NewInMemorySettingsCache creates the cache and starts its expiry sweep. Call Close to
// stop the sweep.
func NewInMemorySettingsCache(opts ...InMemoryOption) *InMemorySettingsCache {
	c := &InMemorySettingsCache{
		ttl:    defaultL1TTL,
		logger: zap.NewNop(),
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.cleanupExpired()
	return c
}

// Get returns a copy of the cached settings
func (c *InMemorySettingsCache) Get(_ context.Context, tenantID uuid.UUID) (*accounting.AccountingSettings, bool) {
	if value, ok := c.entries.Load(tenantID); ok {
		entry := value.(*cacheEntry)
		if !entry.isExpired() {
			atomic.AddInt64(&c.hits, 1)
			return cloneSettings(entry.value), true
		}
		c.entries.Delete(tenantID)
	}
	atomic.AddInt64(&c.misses, 1)
	return nil, false
}

// Set stores a copy of settings
func (c *InMemorySettingsCache) Set(_ context.Context, settings *accounting.AccountingSettings) {
	c.store(settings, c.ttl)
}

func (c *InMemorySettingsCache) store(settings *accounting.AccountingSettings, ttl time.Duration) {
	if settings == nil {
		return
	}
	c.entries.Store(settings.TenantID, &cacheEntry{
		value:     cloneSettings(settings),
		expiresAt: time.Now().Add(ttl),
	})
}

// Invalidate drops the tenant's entry
func (c *InMemorySettingsCache) Invalidate(_ context.Context, tenantID uuid.UUID) {
	c.entries.Delete(tenantID)
	c.logger.Debug("Dropped cached settings", zap.String("tenant_id", tenantID.String()))
}

// InvalidateAll drops every entry
func (c *InMemorySettingsCache) InvalidateAll() {
	c.entries.Range(func(key, _ any) bool {
		c.entries.Delete(key)
		return true
	})
}

// Stats returns hit and miss counts
func (c *InMemorySettingsCache) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// Close stops the expiry sweep. Safe to call more than once.
func (c *InMemorySettingsCache) Close() error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	return nil
}

func (c *InMemorySettingsCache) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *InMemorySettingsCache) sweep() {
	removed := 0
	c.entries.Range(func(key, value any) bool {
		if value.(*cacheEntry).isExpired() {
			c.entries.Delete(key)
			removed++
		}
		return true
	})
	if removed > 0 {
		c.logger.Debug("Expired cached settings removed", zap.Int("count", removed))
	}
}

// cloneSettings copies the mutable parts of settings so callers cannot alter cached state
func cloneSettings(s *accounting.AccountingSettings) *accounting.AccountingSettings {
	out := *s
	out.SupportedCurrencies = append([]string(nil), s.SupportedCurrencies...)
	out.Defaults = make(accounting.DefaultAccounts, len(s.Defaults))
	for slot, id := range s.Defaults {
		out.Defaults[slot] = id
	}
	if s.RoundingAccountID != nil {
		id := *s.RoundingAccountID
		out.RoundingAccountID = &id
	}
	return &out
}

var _ appaccounting.SettingsCache = (*InMemorySettingsCache)(nil)
