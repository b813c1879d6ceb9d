package persistence

import (
	"context"
	"errors"

	"github.com/erp/posting/internal/domain/accounting"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/erp/posting/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormJournalRepository implements JournalRepository using GORM
type GormJournalRepository struct {
	db *gorm.DB
}

// NewGormJournalRepository creates a new GormJournalRepository
func NewGormJournalRepository(db *gorm.DB) *GormJournalRepository {
	return &GormJournalRepository{db: db}
}

func orderedLines(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC")
}

// FindByID finds a journal entry with its lines
func (r *GormJournalRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*accounting.JournalEntry, error) {
	var model models.JournalEntryModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActiveBySource returns the non-voided entry holding the idempotency key
func (r *GormJournalRepository) FindActiveBySource(ctx context.Context, tenantID uuid.UUID, source accounting.SourceModule, referenceID string) (*accounting.JournalEntry, error) {
	var model models.JournalEntryModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		Where("tenant_id = ? AND source_module = ? AND source_reference_id = ? AND status <> ?",
			tenantID, source, referenceID, accounting.JournalStatusVoided).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySourceIncludingVoided returns every entry ever posted under the key, oldest first
func (r *GormJournalRepository) FindBySourceIncludingVoided(ctx context.Context, tenantID uuid.UUID, source accounting.SourceModule, referenceID string) ([]*accounting.JournalEntry, error) {
	var rows []models.JournalEntryModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		Where("tenant_id = ? AND source_module = ? AND source_reference_id = ?", tenantID, source, referenceID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return entriesToDomain(rows), nil
}

// FindPostedByCorrelation returns the posted entries of one business entity across sources
func (r *GormJournalRepository) FindPostedByCorrelation(ctx context.Context, tenantID uuid.UUID, sources []accounting.SourceModule, correlationID string) ([]*accounting.JournalEntry, error) {
	return r.findByCorrelation(ctx, tenantID, sources, correlationID, accounting.JournalStatusPosted)
}

// FindDraftsByCorrelation returns the draft entries of one business entity across sources
func (r *GormJournalRepository) FindDraftsByCorrelation(ctx context.Context, tenantID uuid.UUID, sources []accounting.SourceModule, correlationID string) ([]*accounting.JournalEntry, error) {
	return r.findByCorrelation(ctx, tenantID, sources, correlationID, accounting.JournalStatusDraft)
}

func (r *GormJournalRepository) findByCorrelation(ctx context.Context, tenantID uuid.UUID, sources []accounting.SourceModule, correlationID string, status accounting.JournalStatus) ([]*accounting.JournalEntry, error) {
	if len(sources) == 0 || correlationID == "" {
		return []*accounting.JournalEntry{}, nil
	}
	var rows []models.JournalEntryModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		Where("tenant_id = ? AND correlation_id = ? AND source_module IN ? AND status = ?",
			tenantID, correlationID, sources, status).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return entriesToDomain(rows), nil
}

// List returns a page of entries and the total matching the filter
func (r *GormJournalRepository) List(ctx context.Context, tenantID uuid.UUID, filter accounting.JournalFilter) ([]*accounting.JournalEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.JournalEntryModel{}).Where("tenant_id = ?", tenantID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.SourceModule != "" {
		query = query.Where("source_module = ?", filter.SourceModule)
	}
	if filter.Period != "" {
		query = query.Where("posting_period = ?", filter.Period)
	}
	if filter.From != nil {
		query = query.Where("business_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("business_date <= ?", *filter.To)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order(JournalEntrySort.Clause(filter.OrderBy, filter.OrderDir)).
		Order("created_at " + SortDirection(filter.OrderDir))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.JournalEntryModel
	if err := query.Preload("Lines", orderedLines).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return entriesToDomain(rows), total, nil
}

// Create inserts the header and its lines
func (r *GormJournalRepository) Create(ctx context.Context, entry *accounting.JournalEntry) error {
	model := models.JournalEntryModelFromDomain(entry)
	lines := model.Lines
	model.Lines = nil

	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return accounting.ErrDuplicatePosting
		}
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	return db.Create(&lines).Error
}

// Update persists the mutable header columns
func (r *GormJournalRepository) Update(ctx context.Context, entry *accounting.JournalEntry) error {
	model := models.JournalEntryModelFromDomain(entry)
	model.Lines = nil
	result := r.db.WithContext(ctx).Model(&models.JournalEntryModel{}).
		Where("tenant_id = ? AND id = ?", entry.TenantID, entry.ID).
		Select("status", "posted_at", "voided_at", "void_reason", "reversal_of_id", "reversed_by_id", "memo", "version", "updated_at").
		Updates(model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return accounting.ErrDuplicatePosting
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountPostedLines counts lines on posted entries that hit the account
func (r *GormJournalRepository) CountPostedLines(ctx context.Context, tenantID, accountID uuid.UUID) (int64, error) {
	return r.countLines(ctx, tenantID, accountID, "journal_entries.status = ?", accounting.JournalStatusPosted)
}

// CountActiveLines counts lines on draft or posted entries that hit the account
func (r *GormJournalRepository) CountActiveLines(ctx context.Context, tenantID, accountID uuid.UUID) (int64, error) {
	return r.countLines(ctx, tenantID, accountID, "journal_entries.status <> ?", accounting.JournalStatusVoided)
}

func (r *GormJournalRepository) countLines(ctx context.Context, tenantID, accountID uuid.UUID, statusCond string, status accounting.JournalStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.JournalLineModel{}).
		Joins("JOIN journal_entries ON journal_entries.id = journal_lines.journal_entry_id").
		Where("journal_lines.tenant_id = ? AND journal_lines.account_id = ?", tenantID, accountID).
		Where(statusCond, status).
		Count(&count).Error
	return count, err
}

// ReassignLines moves every line of fromAccountID onto toAccountID
func (r *GormJournalRepository) ReassignLines(ctx context.Context, tenantID, fromAccountID, toAccountID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.JournalLineModel{}).
		Where("tenant_id = ? AND account_id = ?", tenantID, fromAccountID).
		Update("account_id", toAccountID)
	return result.RowsAffected, result.Error
}

func entriesToDomain(rows []models.JournalEntryModel) []*accounting.JournalEntry {
	out := make([]*accounting.JournalEntry, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

// Ensure GormJournalRepository implements JournalRepository
var _ accounting.JournalRepository = (*GormJournalRepository)(nil)
