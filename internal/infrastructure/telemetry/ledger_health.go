package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/erp/posting/internal/domain/accounting"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LedgerHealth is a point-in-time view of one tenant's delivery and remediation queues
type LedgerHealth struct {
	OutboxBacklog    int64
	OpenDeadLetters  int64
	CriticalUnmapped int64
}

// LedgerHealthProvider reads ledger health without the telemetry layer depending on
// the repositories.
type LedgerHealthProvider interface {
	ActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
	LedgerHealth(ctx context.Context, tenantID uuid.UUID, since time.Time) (LedgerHealth, error)
}

// GormLedgerHealthProvider implements LedgerHealthProvider with aggregate queries
type GormLedgerHealthProvider struct {
	db *gorm.DB
}

// NewGormLedgerHealthProvider creates a provider over db
func NewGormLedgerHealthProvider(db *gorm.DB) *GormLedgerHealthProvider {
	return &GormLedgerHealthProvider{db: db}
}

// ActiveTenantIDs returns every tenant with accounting settings
func (p *GormLedgerHealthProvider) ActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := p.db.WithContext(ctx).
		Table("accounting_settings").
		Distinct("tenant_id").
		Pluck("tenant_id", &ids).Error
	return ids, err
}

// LedgerHealth counts undelivered outbox rows, open dead letters and critical
// unmapped rows created since the given time.
func (p *GormLedgerHealthProvider) LedgerHealth(ctx context.Context, tenantID uuid.UUID, since time.Time) (LedgerHealth, error) {
	var h LedgerHealth
	db := p.db.WithContext(ctx)

	if err := db.Table("outbox_events").
		Where("tenant_id = ? AND status IN ?", tenantID, []shared.OutboxStatus{
			shared.OutboxStatusPending, shared.OutboxStatusProcessing, shared.OutboxStatusFailed,
		}).
		Count(&h.OutboxBacklog).Error; err != nil {
		return h, err
	}

	if err := db.Table("dead_letters").
		Where("tenant_id = ? AND status = ?", tenantID, shared.DeadLetterOpen).
		Count(&h.OpenDeadLetters).Error; err != nil {
		return h, err
	}

	if err := db.Table("gl_unmapped_events").
		Where("tenant_id = ? AND severity = ? AND created_at >= ?", tenantID, accounting.SeverityCritical, since).
		Count(&h.CriticalUnmapped).Error; err != nil {
		return h, err
	}

	return h, nil
}

// HealthCollector periodically publishes LedgerHealth gauges for all tenants
type HealthCollector struct {
	metrics  *PostingMetrics
	provider LedgerHealthProvider
	logger   *zap.Logger
	window   time.Duration

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once
	done        chan struct{}
}

// NewHealthCollector creates a collector. window bounds the critical unmapped count.
func NewHealthCollector(metrics *PostingMetrics, provider LedgerHealthProvider, window time.Duration, logger *zap.Logger) *HealthCollector {
	if window <= 0 {
		window = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthCollector{
		metrics:  metrics,
		provider: provider,
		logger:   logger,
		window:   window,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins collection every interval (default 1 minute). It does not block.
func (c *HealthCollector) Start(ctx context.Context, interval time.Duration) {
	c.collectOnce.Do(func() {
		if interval <= 0 {
			interval = time.Minute
		}
		go c.run(ctx, interval)
	})
}

func (c *HealthCollector) run(ctx context.Context, interval time.Duration) {
	defer close(c.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.Collect(ctx)

	for {
		select {
		case <-c.stopChan:
			c.logger.Info("Stopping ledger health collection")
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Collect(ctx)
		}
	}
}

// Collect publishes one snapshot per tenant
func (c *HealthCollector) Collect(ctx context.Context) {
	tenantIDs, err := c.provider.ActiveTenantIDs(ctx)
	if err != nil {
		c.logger.Error("Failed to list tenants for ledger health", zap.Error(err))
		return
	}

	since := time.Now().Add(-c.window)
	for _, tenantID := range tenantIDs {
		h, err := c.provider.LedgerHealth(ctx, tenantID, since)
		if err != nil {
			c.logger.Warn("Failed to read ledger health",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
			continue
		}
		c.metrics.RecordHealth(ctx, tenantID, h)
	}
}

// Stop ends collection and waits for the loop to exit when it was started
func (c *HealthCollector) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
	started := true
	c.collectOnce.Do(func() { started = false })
	if started {
		<-c.done
	}
}
