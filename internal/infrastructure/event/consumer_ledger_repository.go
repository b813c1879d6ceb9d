package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/erp/posting/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormConsumerLedger implements ConsumerLedger and DeadLetterRepository using GORM
type GormConsumerLedger struct {
	db *gorm.DB
}

// NewGormConsumerLedger creates a new GORM-based consumer ledger
func NewGormConsumerLedger(db *gorm.DB) *GormConsumerLedger {
	return &GormConsumerLedger{db: db}
}

// Claim inserts the ledger row unless (event_id, consumer_name) already exists
func (l *GormConsumerLedger) Claim(ctx context.Context, entry *shared.ProcessedEvent) (*shared.ProcessedEvent, bool, error) {
	row := models.ProcessedEventModelFromDomain(entry)
	result := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}, {Name: "consumer_name"}},
			DoNothing: true,
		}).
		Create(row)
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected == 1 {
		return entry, true, nil
	}

	var existing models.ProcessedEventModel
	if err := l.db.WithContext(ctx).
		Where("event_id = ? AND consumer_name = ?", entry.EventID, entry.ConsumerName).
		First(&existing).Error; err != nil {
		return nil, false, fmt.Errorf("load ledger row: %w", err)
	}
	return existing.ToDomain(), false, nil
}

// BeginRetry takes over a failed or stale row. The attempts column acts as the
// compare-and-set guard against a concurrent takeover.
func (l *GormConsumerLedger) BeginRetry(ctx context.Context, entry *shared.ProcessedEvent) error {
	now := time.Now()
	result := l.db.WithContext(ctx).
		Model(&models.ProcessedEventModel{}).
		Where("id = ? AND attempts = ? AND status IN ?", entry.ID, entry.Attempts,
			[]shared.ConsumptionStatus{shared.ConsumptionFailed, shared.ConsumptionProcessing}).
		Updates(map[string]interface{}{
			"status":     shared.ConsumptionProcessing,
			"attempts":   gorm.Expr("attempts + 1"),
			"updated_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	entry.Status = shared.ConsumptionProcessing
	entry.Attempts++
	entry.UpdatedAt = now
	return nil
}

// MarkProcessed records a successful delivery
func (l *GormConsumerLedger) MarkProcessed(ctx context.Context, entry *shared.ProcessedEvent) error {
	now := time.Now()
	entry.Status = shared.ConsumptionProcessed
	entry.ProcessedAt = &now
	entry.UpdatedAt = now
	return l.db.WithContext(ctx).
		Model(&models.ProcessedEventModel{}).
		Where("id = ?", entry.ID).
		Updates(map[string]interface{}{
			"status":       entry.Status,
			"processed_at": now,
			"updated_at":   now,
		}).Error
}

// MarkFailed records a failed attempt with its error history
func (l *GormConsumerLedger) MarkFailed(ctx context.Context, entry *shared.ProcessedEvent, errMsg string) error {
	entry.Status = shared.ConsumptionFailed
	entry.LastError = errMsg
	entry.UpdatedAt = time.Now()
	return l.updateFailure(l.db.WithContext(ctx), entry)
}

// DeadLetter stores the letter and closes the ledger row in one transaction
func (l *GormConsumerLedger) DeadLetter(ctx context.Context, entry *shared.ProcessedEvent, letter *shared.DeadLetter) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(models.DeadLetterModelFromDomain(letter)).Error; err != nil {
			return fmt.Errorf("insert dead letter: %w", err)
		}
		entry.Status = shared.ConsumptionDeadLettered
		entry.LastError = letter.ErrorMessage
		entry.UpdatedAt = time.Now()
		return l.updateFailure(tx, entry)
	})
}

func (l *GormConsumerLedger) updateFailure(db *gorm.DB, entry *shared.ProcessedEvent) error {
	history, err := json.Marshal(entry.History)
	if err != nil {
		return fmt.Errorf("encode attempt history: %w", err)
	}
	return db.Model(&models.ProcessedEventModel{}).
		Where("id = ?", entry.ID).
		Updates(map[string]interface{}{
			"status":     entry.Status,
			"last_error": entry.LastError,
			"history":    string(history),
			"updated_at": entry.UpdatedAt,
		}).Error
}

// Reset deletes the ledger row so the event can be claimed again
func (l *GormConsumerLedger) Reset(ctx context.Context, eventID uuid.UUID, consumer string) error {
	return l.db.WithContext(ctx).
		Where("event_id = ? AND consumer_name = ?", eventID, consumer).
		Delete(&models.ProcessedEventModel{}).Error
}

// FindByID returns a tenant's dead letter
func (l *GormConsumerLedger) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*shared.DeadLetter, error) {
	var row models.DeadLetterModel
	err := l.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.ToDomain(), nil
}

// List returns a page of dead letters, newest first
func (l *GormConsumerLedger) List(ctx context.Context, filter shared.DeadLetterFilter) ([]*shared.DeadLetter, int64, error) {
	query := l.db.WithContext(ctx).Model(&models.DeadLetterModel{}).Where("tenant_id = ?", filter.TenantID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ConsumerName != "" {
		query = query.Where("consumer_name = ?", filter.ConsumerName)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.DeadLetterModel
	if err := query.
		Order("created_at DESC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	letters := make([]*shared.DeadLetter, len(rows))
	for i := range rows {
		letters[i] = rows[i].ToDomain()
	}
	return letters, total, nil
}

// Update saves the dead letter's resolution state
func (l *GormConsumerLedger) Update(ctx context.Context, letter *shared.DeadLetter) error {
	letter.UpdatedAt = time.Now()
	return l.db.WithContext(ctx).
		Model(&models.DeadLetterModel{}).
		Where("tenant_id = ? AND id = ?", letter.TenantID, letter.ID).
		Updates(map[string]interface{}{
			"status":          letter.Status,
			"resolved_by":     letter.ResolvedBy,
			"resolution_note": letter.ResolutionNote,
			"resolved_at":     letter.ResolvedAt,
			"updated_at":      letter.UpdatedAt,
		}).Error
}

var (
	_ shared.ConsumerLedger       = (*GormConsumerLedger)(nil)
	_ shared.DeadLetterRepository = (*GormConsumerLedger)(nil)
)
