package accounting

import (
	"context"
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
)

// AccountRepository persists the chart of accounts
type AccountRepository interface {
	AccountLookup
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Account, error)
	FindByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*Account, error)
	// FindAllForTenant returns every account of the tenant, the input of AccountSnapshot
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]*Account, error)
	ExistsByNumber(ctx context.Context, tenantID uuid.UUID, number string) (bool, error)
	Save(ctx context.Context, account *Account) error
	SaveBatch(ctx context.Context, accounts []*Account) error
}

// JournalFilter narrows journal entry listings
type JournalFilter struct {
	shared.Filter
	Status       JournalStatus
	SourceModule SourceModule
	Period       string
	From         *time.Time
	To           *time.Time
}

// JournalRepository persists journal entries together with their lines
type JournalRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*JournalEntry, error)
	// FindActiveBySource returns the non-voided entry for the idempotency key,
	// or shared.ErrNotFound
	FindActiveBySource(ctx context.Context, tenantID uuid.UUID, source SourceModule, referenceID string) (*JournalEntry, error)
	// FindBySourceIncludingVoided reports whether the key was ever used
	FindBySourceIncludingVoided(ctx context.Context, tenantID uuid.UUID, source SourceModule, referenceID string) ([]*JournalEntry, error)
	// FindPostedByCorrelation returns posted entries produced from one business entity
	FindPostedByCorrelation(ctx context.Context, tenantID uuid.UUID, sources []SourceModule, correlationID string) ([]*JournalEntry, error)
	// FindDraftsByCorrelation returns draft entries produced from one business entity
	FindDraftsByCorrelation(ctx context.Context, tenantID uuid.UUID, sources []SourceModule, correlationID string) ([]*JournalEntry, error)
	List(ctx context.Context, tenantID uuid.UUID, filter JournalFilter) ([]*JournalEntry, int64, error)
	// Create inserts the entry and its lines. It returns ErrDuplicatePosting when the
	// (tenant, source, reference) key is already held by a non-voided entry.
	Create(ctx context.Context, entry *JournalEntry) error
	// Update persists header changes (status, void and reversal links)
	Update(ctx context.Context, entry *JournalEntry) error
	CountPostedLines(ctx context.Context, tenantID, accountID uuid.UUID) (int64, error)
	CountActiveLines(ctx context.Context, tenantID, accountID uuid.UUID) (int64, error)
	ReassignLines(ctx context.Context, tenantID, fromAccountID, toAccountID uuid.UUID) (int64, error)
}

// SettingsRepository persists per-tenant accounting settings
type SettingsRepository interface {
	SettingsLookup
	Save(ctx context.Context, settings *AccountingSettings) error
}

// MappingRepository reads and writes GL mappings
type MappingRepository interface {
	FindSubDepartment(ctx context.Context, tenantID, subDepartmentID uuid.UUID) (*SubDepartmentMapping, error)
	FindSubDepartments(ctx context.Context, tenantID uuid.UUID, subDepartmentIDs []uuid.UUID) ([]*SubDepartmentMapping, error)
	FindPaymentType(ctx context.Context, tenantID uuid.UUID, paymentType string) (*PaymentTypeMapping, error)
	FindTaxGroup(ctx context.Context, tenantID, taxGroupID uuid.UUID) (*TaxGroupMapping, error)
	FindTaxGroups(ctx context.Context, tenantID uuid.UUID, taxGroupIDs []uuid.UUID) ([]*TaxGroupMapping, error)
	FindDiscount(ctx context.Context, tenantID uuid.UUID, classification string) (*DiscountMapping, error)
	SaveSubDepartment(ctx context.Context, m *SubDepartmentMapping) error
	SavePaymentType(ctx context.Context, m *PaymentTypeMapping) error
	SaveTaxGroup(ctx context.Context, m *TaxGroupMapping) error
	SaveDiscount(ctx context.Context, m *DiscountMapping) error
	// RepointAccount moves every mapping that references from onto to
	RepointAccount(ctx context.Context, tenantID, from, to uuid.UUID) (int64, error)
}

// UnmappedFilter narrows unmapped event listings
type UnmappedFilter struct {
	shared.Filter
	EntityType   UnmappedEntityType
	SourceModule SourceModule
	Severity     UnmappedSeverity
	// ReferenceID matches source_reference_id exactly
	ReferenceID string
}

// UnmappedEventRepository is the append-only remediation log
type UnmappedEventRepository interface {
	Append(ctx context.Context, events ...*UnmappedEvent) error
	List(ctx context.Context, tenantID uuid.UUID, filter UnmappedFilter) ([]*UnmappedEvent, int64, error)
	CountByEntityType(ctx context.Context, tenantID uuid.UUID) (map[UnmappedEntityType]int64, error)
}

// AccountChangeLogRepository is the append-only account history
type AccountChangeLogRepository interface {
	Append(ctx context.Context, logs ...*AccountChangeLog) error
	ListForAccount(ctx context.Context, tenantID, accountID uuid.UUID) ([]*AccountChangeLog, error)
}

// AuditLogRepository records journal actions
type AuditLogRepository interface {
	Append(ctx context.Context, logs ...*AuditLog) error
}
