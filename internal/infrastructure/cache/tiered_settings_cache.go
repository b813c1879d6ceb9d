package cache

import (
	"context"
	"sync/atomic"

	appaccounting "github.com/erp/posting/internal/application/accounting"
	"github.com/erp/posting/internal/domain/accounting"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TieredSettingsCache reads L1 (process memory) then L2 (Redis), populating L1 on an L2
// hit. Invalidation clears both tiers and tells other instances to drop their L1 entry.
type TieredSettingsCache struct {
	l1          *InMemorySettingsCache
	l2          appaccounting.SettingsCache
	invalidator *SettingsInvalidator
	logger      *zap.Logger

	l1Hits int64
	l2Hits int64
	misses int64
}

// NewTieredSettingsCache combines the tiers. invalidator may be nil for a single instance.
func NewTieredSettingsCache(l1 *InMemorySettingsCache, l2 appaccounting.SettingsCache, invalidator *SettingsInvalidator, logger *zap.Logger) *TieredSettingsCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TieredSettingsCache{l1: l1, l2: l2, invalidator: invalidator, logger: logger}
}

// Get implements SettingsCache
func (c *TieredSettingsCache) Get(ctx context.Context, tenantID uuid.UUID) (*accounting.AccountingSettings, bool) {
	if s, ok := c.l1.Get(ctx, tenantID); ok {
		atomic.AddInt64(&c.l1Hits, 1)
		return s, true
	}
	if s, ok := c.l2.Get(ctx, tenantID); ok {
		atomic.AddInt64(&c.l2Hits, 1)
		c.l1.Set(ctx, s)
		return s, true
	}
	atomic.AddInt64(&c.misses, 1)
	return nil, false
}

// Set implements SettingsCache
func (c *TieredSettingsCache) Set(ctx context.Context, settings *accounting.AccountingSettings) {
	c.l2.Set(ctx, settings)
	c.l1.Set(ctx, settings)
}

// Invalidate implements SettingsCache
func (c *TieredSettingsCache) Invalidate(ctx context.Context, tenantID uuid.UUID) {
	c.l2.Invalidate(ctx, tenantID)
	c.l1.Invalidate(ctx, tenantID)
	if c.invalidator == nil {
		return
	}
	if err := c.invalidator.Publish(ctx, tenantID); err != nil {
		c.logger.Warn("Failed to publish settings invalidation",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
	}
}

// HandleInvalidation applies an invalidation received from another instance
func (c *TieredSettingsCache) HandleInvalidation(msg InvalidationMessage) {
	if msg.TenantID == uuid.Nil {
		c.l1.InvalidateAll()
		return
	}
	c.l1.Invalidate(context.Background(), msg.TenantID)
}

// StartInvalidationSubscription listens for remote invalidations until ctx ends. It
// blocks; run it in a goroutine.
func (c *TieredSettingsCache) StartInvalidationSubscription(ctx context.Context) error {
	if c.invalidator == nil {
		return nil
	}
	return c.invalidator.Subscribe(ctx, c.HandleInvalidation)
}

// Stats returns L1 hits, L2 hits and misses
func (c *TieredSettingsCache) Stats() (l1Hits, l2Hits, misses int64) {
	return atomic.LoadInt64(&c.l1Hits), atomic.LoadInt64(&c.l2Hits), atomic.LoadInt64(&c.misses)
}

var _ appaccounting.SettingsCache = (*TieredSettingsCache)(nil)
