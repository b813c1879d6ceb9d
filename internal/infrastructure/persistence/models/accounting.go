package models

import (
	"time"

	"github.com/erp/posting/internal/domain/accounting"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountModel is the persistence model for the chart of accounts
type AccountModel struct {
	AggregateModel
	TenantID           uuid.UUID                     `gorm:"type:uuid;not null;uniqueIndex:idx_account_tenant_number,priority:1"`
	CreatedBy          *uuid.UUID                    `gorm:"type:uuid"`
	AccountNumber      string                        `gorm:"type:varchar(50);not null;uniqueIndex:idx_account_tenant_number,priority:2"`
	Name               string                        `gorm:"type:varchar(200);not null"`
	Description        string                        `gorm:"type:text"`
	AccountType        accounting.AccountType        `gorm:"type:varchar(20);not null"`
	NormalBalance      accounting.NormalBalance      `gorm:"type:varchar(10);not null"`
	IsControlAccount   bool                          `gorm:"not null"`
	ControlAccountType accounting.ControlAccountType `gorm:"type:varchar(30)"`
	IsActive           bool                          `gorm:"not null"`
	IsSystem           bool                          `gorm:"not null"`
	ParentAccountID    *uuid.UUID                    `gorm:"type:uuid;index"`
	Depth              int                           `gorm:"not null"`
	Path               string                        `gorm:"type:varchar(500);not null"`
	Status             accounting.AccountStatus      `gorm:"type:varchar(20);not null"`
	MergedIntoID       *uuid.UUID                    `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "gl_accounts"
}

// ToDomain converts the model to a domain Account
func (m *AccountModel) ToDomain() *accounting.Account {
	a := &accounting.Account{
		AccountNumber:      m.AccountNumber,
		Name:               m.Name,
		Description:        m.Description,
		AccountType:        m.AccountType,
		NormalBalance:      m.NormalBalance,
		IsControlAccount:   m.IsControlAccount,
		ControlAccountType: m.ControlAccountType,
		IsActive:           m.IsActive,
		IsSystem:           m.IsSystem,
		ParentAccountID:    m.ParentAccountID,
		Depth:              m.Depth,
		Path:               m.Path,
		Status:             m.Status,
		MergedIntoID:       m.MergedIntoID,
	}
	m.PopulateTenantAggregateRoot(&a.TenantAggregateRoot, m.TenantID, m.CreatedBy)
	return a
}

// AccountModelFromDomain creates a model from a domain Account
func AccountModelFromDomain(a *accounting.Account) *AccountModel {
	m := &AccountModel{
		TenantID:           a.TenantID,
		CreatedBy:          a.CreatedBy,
		AccountNumber:      a.AccountNumber,
		Name:               a.Name,
		Description:        a.Description,
		AccountType:        a.AccountType,
		NormalBalance:      a.NormalBalance,
		IsControlAccount:   a.IsControlAccount,
		ControlAccountType: a.ControlAccountType,
		IsActive:           a.IsActive,
		IsSystem:           a.IsSystem,
		ParentAccountID:    a.ParentAccountID,
		Depth:              a.Depth,
		Path:               a.Path,
		Status:             a.Status,
		MergedIntoID:       a.MergedIntoID,
	}
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	return m
}

// JournalEntryModel is the persistence model for journal entry headers.
// The partial unique index makes (tenant, source, reference) the posting idempotency key
// while letting a voided entry's key be reused.
type JournalEntryModel struct {
	AggregateModel
	TenantID          uuid.UUID                `gorm:"type:uuid;not null;uniqueIndex:idx_journal_active_source,priority:1,where:status <> 'voided';index:idx_journal_tenant_period,priority:1"`
	CreatedBy         *uuid.UUID               `gorm:"type:uuid"`
	EntryNumber       string                   `gorm:"type:varchar(50);not null;index"`
	BusinessDate      time.Time                `gorm:"type:date;not null"`
	PostingPeriod     string                   `gorm:"type:varchar(7);not null;index:idx_journal_tenant_period,priority:2"`
	SourceModule      accounting.SourceModule  `gorm:"type:varchar(20);not null;uniqueIndex:idx_journal_active_source,priority:2,where:status <> 'voided'"`
	SourceReferenceID string                   `gorm:"type:varchar(255);not null;uniqueIndex:idx_journal_active_source,priority:3,where:status <> 'voided'"`
	CorrelationID     string                   `gorm:"type:varchar(255);index"`
	Status            accounting.JournalStatus `gorm:"type:varchar(10);not null"`
	Currency          string                   `gorm:"type:varchar(3);not null"`
	ExchangeRate      decimal.Decimal          `gorm:"type:decimal(18,8);not null"`
	Memo              string                   `gorm:"type:text"`
	ReversalOfID      *uuid.UUID               `gorm:"type:uuid"`
	ReversedByID      *uuid.UUID               `gorm:"type:uuid"`
	PostedAt          *time.Time
	VoidedAt          *time.Time
	VoidReason        string             `gorm:"type:text"`
	Lines             []JournalLineModel `gorm:"foreignKey:JournalEntryID"`
}

// TableName returns the table name for GORM
func (JournalEntryModel) TableName() string {
	return "journal_entries"
}

// ToDomain converts the model, with any preloaded lines, to a domain JournalEntry
func (m *JournalEntryModel) ToDomain() *accounting.JournalEntry {
	e := &accounting.JournalEntry{
		EntryNumber:       m.EntryNumber,
		BusinessDate:      m.BusinessDate,
		PostingPeriod:     m.PostingPeriod,
		SourceModule:      m.SourceModule,
		SourceReferenceID: m.SourceReferenceID,
		CorrelationID:     m.CorrelationID,
		Status:            m.Status,
		Currency:          m.Currency,
		ExchangeRate:      m.ExchangeRate,
		Memo:              m.Memo,
		ReversalOfID:      m.ReversalOfID,
		ReversedByID:      m.ReversedByID,
		PostedAt:          m.PostedAt,
		VoidedAt:          m.VoidedAt,
		VoidReason:        m.VoidReason,
		Lines:             make([]accounting.JournalLine, 0, len(m.Lines)),
	}
	m.PopulateTenantAggregateRoot(&e.TenantAggregateRoot, m.TenantID, m.CreatedBy)
	for i := range m.Lines {
		e.Lines = append(e.Lines, m.Lines[i].ToDomain())
	}
	return e
}

// JournalEntryModelFromDomain creates a header model with its line models
func JournalEntryModelFromDomain(e *accounting.JournalEntry) *JournalEntryModel {
	m := &JournalEntryModel{
		TenantID:          e.TenantID,
		CreatedBy:         e.CreatedBy,
		EntryNumber:       e.EntryNumber,
		BusinessDate:      e.BusinessDate,
		PostingPeriod:     e.PostingPeriod,
		SourceModule:      e.SourceModule,
		SourceReferenceID: e.SourceReferenceID,
		CorrelationID:     e.CorrelationID,
		Status:            e.Status,
		Currency:          e.Currency,
		ExchangeRate:      e.ExchangeRate,
		Memo:              e.Memo,
		ReversalOfID:      e.ReversalOfID,
		ReversedByID:      e.ReversedByID,
		PostedAt:          e.PostedAt,
		VoidedAt:          e.VoidedAt,
		VoidReason:        e.VoidReason,
		Lines:             make([]JournalLineModel, 0, len(e.Lines)),
	}
	m.FromDomainAggregateRoot(e.BaseAggregateRoot)
	for _, l := range e.Lines {
		m.Lines = append(m.Lines, *JournalLineModelFromDomain(l))
	}
	return m
}

// JournalLineModel is the persistence model for journal lines with their reporting dimensions
type JournalLineModel struct {
	ID                     uuid.UUID       `gorm:"type:uuid;primaryKey"`
	JournalEntryID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	TenantID               uuid.UUID       `gorm:"type:uuid;not null;index:idx_journal_line_account,priority:1"`
	AccountID              uuid.UUID       `gorm:"type:uuid;not null;index:idx_journal_line_account,priority:2"`
	Debit                  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Credit                 decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Memo                   string          `gorm:"type:text"`
	SortOrder              int             `gorm:"not null"`
	IsRounding             bool            `gorm:"not null"`
	LocationID             *uuid.UUID      `gorm:"type:uuid;index"`
	DepartmentID           *uuid.UUID      `gorm:"type:uuid"`
	CustomerID             *uuid.UUID      `gorm:"type:uuid"`
	VendorID               *uuid.UUID      `gorm:"type:uuid"`
	SubDepartmentID        *uuid.UUID      `gorm:"type:uuid"`
	TerminalID             string          `gorm:"type:varchar(100)"`
	Channel                string          `gorm:"type:varchar(50)"`
	DiscountClassification string          `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (JournalLineModel) TableName() string {
	return "journal_lines"
}

// ToDomain converts the model to a domain JournalLine
func (m *JournalLineModel) ToDomain() accounting.JournalLine {
	return accounting.JournalLine{
		ID:             m.ID,
		JournalEntryID: m.JournalEntryID,
		TenantID:       m.TenantID,
		AccountID:      m.AccountID,
		Debit:          m.Debit,
		Credit:         m.Credit,
		Memo:           m.Memo,
		SortOrder:      m.SortOrder,
		IsRounding:     m.IsRounding,
		Dimensions: accounting.LineDimensions{
			LocationID:             m.LocationID,
			DepartmentID:           m.DepartmentID,
			CustomerID:             m.CustomerID,
			VendorID:               m.VendorID,
			SubDepartmentID:        m.SubDepartmentID,
			TerminalID:             m.TerminalID,
			Channel:                m.Channel,
			DiscountClassification: m.DiscountClassification,
		},
	}
}

// JournalLineModelFromDomain creates a model from a domain JournalLine
func JournalLineModelFromDomain(l accounting.JournalLine) *JournalLineModel {
	return &JournalLineModel{
		ID:                     l.ID,
		JournalEntryID:         l.JournalEntryID,
		TenantID:               l.TenantID,
		AccountID:              l.AccountID,
		Debit:                  l.Debit,
		Credit:                 l.Credit,
		Memo:                   l.Memo,
		SortOrder:              l.SortOrder,
		IsRounding:             l.IsRounding,
		LocationID:             l.Dimensions.LocationID,
		DepartmentID:           l.Dimensions.DepartmentID,
		CustomerID:             l.Dimensions.CustomerID,
		VendorID:               l.Dimensions.VendorID,
		SubDepartmentID:        l.Dimensions.SubDepartmentID,
		TerminalID:             l.Dimensions.TerminalID,
		Channel:                l.Dimensions.Channel,
		DiscountClassification: l.Dimensions.DiscountClassification,
	}
}

// AccountingSettingsModel is the persistence model for per-tenant posting settings
type AccountingSettingsModel struct {
	BaseModel
	TenantID               uuid.UUID                  `gorm:"type:uuid;not null;uniqueIndex"`
	BaseCurrency           string                     `gorm:"type:varchar(3);not null"`
	SupportedCurrencies    []string                   `gorm:"type:jsonb;serializer:json"`
	AutoPostMode           accounting.AutoPostMode    `gorm:"type:varchar(20);not null"`
	LockPeriodThrough      string                     `gorm:"type:varchar(7)"`
	RoundingToleranceMinor int                        `gorm:"not null"`
	RoundingAccountID      *uuid.UUID                 `gorm:"type:uuid"`
	MaxEventRetries        int                        `gorm:"not null"`
	Defaults               accounting.DefaultAccounts `gorm:"type:jsonb;serializer:json"`
	Version                int                        `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AccountingSettingsModel) TableName() string {
	return "accounting_settings"
}

// ToDomain converts the model to domain AccountingSettings
func (m *AccountingSettingsModel) ToDomain() *accounting.AccountingSettings {
	defaults := m.Defaults
	if defaults == nil {
		defaults = accounting.DefaultAccounts{}
	}
	return &accounting.AccountingSettings{
		BaseEntity:             m.BaseModel.ToDomain(),
		TenantID:               m.TenantID,
		BaseCurrency:           m.BaseCurrency,
		SupportedCurrencies:    m.SupportedCurrencies,
		AutoPostMode:           m.AutoPostMode,
		LockPeriodThrough:      m.LockPeriodThrough,
		RoundingToleranceMinor: m.RoundingToleranceMinor,
		RoundingAccountID:      m.RoundingAccountID,
		MaxEventRetries:        m.MaxEventRetries,
		Defaults:               defaults,
		Version:                m.Version,
	}
}

// AccountingSettingsModelFromDomain creates a model from domain AccountingSettings
func AccountingSettingsModelFromDomain(s *accounting.AccountingSettings) *AccountingSettingsModel {
	m := &AccountingSettingsModel{
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
	}
	m.FromDomainBaseEntity(s.BaseEntity)
	return m
}

// SubDepartmentMappingModel maps a sub-department to its revenue, COGS and returns accounts
type SubDepartmentMappingModel struct {
	BaseModel
	TenantID             uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_subdept_mapping,priority:1"`
	SubDepartmentID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_subdept_mapping,priority:2"`
	RevenueAccountID     uuid.UUID  `gorm:"type:uuid;not null"`
	CostOfGoodsAccountID *uuid.UUID `gorm:"type:uuid"`
	InventoryAccountID   *uuid.UUID `gorm:"type:uuid"`
	ReturnsAccountID     *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (SubDepartmentMappingModel) TableName() string {
	return "gl_sub_department_mappings"
}

// ToDomain converts the model to a domain mapping
func (m *SubDepartmentMappingModel) ToDomain() *accounting.SubDepartmentMapping {
	return &accounting.SubDepartmentMapping{
		BaseEntity:           m.BaseModel.ToDomain(),
		TenantID:             m.TenantID,
		SubDepartmentID:      m.SubDepartmentID,
		RevenueAccountID:     m.RevenueAccountID,
		CostOfGoodsAccountID: m.CostOfGoodsAccountID,
		InventoryAccountID:   m.InventoryAccountID,
		ReturnsAccountID:     m.ReturnsAccountID,
	}
}

// SubDepartmentMappingModelFromDomain creates a model from a domain mapping
func SubDepartmentMappingModelFromDomain(d *accounting.SubDepartmentMapping) *SubDepartmentMappingModel {
	m := &SubDepartmentMappingModel{
		TenantID:             d.TenantID,
		SubDepartmentID:      d.SubDepartmentID,
		RevenueAccountID:     d.RevenueAccountID,
		CostOfGoodsAccountID: d.CostOfGoodsAccountID,
		InventoryAccountID:   d.InventoryAccountID,
		ReturnsAccountID:     d.ReturnsAccountID,
	}
	m.FromDomainBaseEntity(d.BaseEntity)
	return m
}

// PaymentTypeMappingModel maps a tender type to its clearing account
type PaymentTypeMappingModel struct {
	BaseModel
	TenantID          uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_payment_type_mapping,priority:1"`
	PaymentType       string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_payment_type_mapping,priority:2"`
	ClearingAccountID uuid.UUID `gorm:"type:uuid;not null"`
}

// TableName returns the table name for GORM
func (PaymentTypeMappingModel) TableName() string {
	return "gl_payment_type_mappings"
}

// ToDomain converts the model to a domain mapping
func (m *PaymentTypeMappingModel) ToDomain() *accounting.PaymentTypeMapping {
	return &accounting.PaymentTypeMapping{
		BaseEntity:        m.BaseModel.ToDomain(),
		TenantID:          m.TenantID,
		PaymentType:       m.PaymentType,
		ClearingAccountID: m.ClearingAccountID,
	}
}

// PaymentTypeMappingModelFromDomain creates a model from a domain mapping
func PaymentTypeMappingModelFromDomain(d *accounting.PaymentTypeMapping) *PaymentTypeMappingModel {
	m := &PaymentTypeMappingModel{
		TenantID:          d.TenantID,
		PaymentType:       d.PaymentType,
		ClearingAccountID: d.ClearingAccountID,
	}
	m.FromDomainBaseEntity(d.BaseEntity)
	return m
}

// TaxGroupMappingModel maps a tax group to its payable account
type TaxGroupMappingModel struct {
	BaseModel
	TenantID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_tax_group_mapping,priority:1"`
	TaxGroupID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_tax_group_mapping,priority:2"`
	PayableAccountID uuid.UUID `gorm:"type:uuid;not null"`
}

// TableName returns the table name for GORM
func (TaxGroupMappingModel) TableName() string {
	return "gl_tax_group_mappings"
}

// ToDomain converts the model to a domain mapping
func (m *TaxGroupMappingModel) ToDomain() *accounting.TaxGroupMapping {
	return &accounting.TaxGroupMapping{
		BaseEntity:       m.BaseModel.ToDomain(),
		TenantID:         m.TenantID,
		TaxGroupID:       m.TaxGroupID,
		PayableAccountID: m.PayableAccountID,
	}
}

// TaxGroupMappingModelFromDomain creates a model from a domain mapping
func TaxGroupMappingModelFromDomain(d *accounting.TaxGroupMapping) *TaxGroupMappingModel {
	m := &TaxGroupMappingModel{
		TenantID:         d.TenantID,
		TaxGroupID:       d.TaxGroupID,
		PayableAccountID: d.PayableAccountID,
	}
	m.FromDomainBaseEntity(d.BaseEntity)
	return m
}

// DiscountMappingModel maps a discount classification to its contra-revenue account
type DiscountMappingModel struct {
	BaseModel
	TenantID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_discount_mapping,priority:1"`
	Classification  string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_discount_mapping,priority:2"`
	ContraAccountID uuid.UUID `gorm:"type:uuid;not null"`
}

// TableName returns the table name for GORM
func (DiscountMappingModel) TableName() string {
	return "gl_discount_mappings"
}

// ToDomain converts the model to a domain mapping
func (m *DiscountMappingModel) ToDomain() *accounting.DiscountMapping {
	return &accounting.DiscountMapping{
		BaseEntity:      m.BaseModel.ToDomain(),
		TenantID:        m.TenantID,
		Classification:  m.Classification,
		ContraAccountID: m.ContraAccountID,
	}
}

// DiscountMappingModelFromDomain creates a model from a domain mapping
func DiscountMappingModelFromDomain(d *accounting.DiscountMapping) *DiscountMappingModel {
	m := &DiscountMappingModel{
		TenantID:        d.TenantID,
		Classification:  d.Classification,
		ContraAccountID: d.ContraAccountID,
	}
	m.FromDomainBaseEntity(d.BaseEntity)
	return m
}

// UnmappedEventModel is a row of the append-only remediation log
type UnmappedEventModel struct {
	ID                uuid.UUID                     `gorm:"type:uuid;primaryKey"`
	TenantID          uuid.UUID                     `gorm:"type:uuid;not null;index:idx_unmapped_tenant_created,priority:1"`
	EventID           *uuid.UUID                    `gorm:"type:uuid;index"`
	EventType         string                        `gorm:"type:varchar(255)"`
	SourceModule      accounting.SourceModule       `gorm:"type:varchar(20)"`
	SourceReferenceID string                        `gorm:"type:varchar(255);index"`
	EntityType        accounting.UnmappedEntityType `gorm:"type:varchar(40);not null;index"`
	EntityID          string                        `gorm:"type:varchar(255)"`
	FallbackAccountID *uuid.UUID                    `gorm:"type:uuid"`
	Reason            string                        `gorm:"type:text;not null"`
	Severity          accounting.UnmappedSeverity   `gorm:"type:varchar(10);not null"`
	CreatedAt         time.Time                     `gorm:"not null;index:idx_unmapped_tenant_created,priority:2"`
}

// TableName returns the table name for GORM
func (UnmappedEventModel) TableName() string {
	return "gl_unmapped_events"
}

// ToDomain converts the model to a domain UnmappedEvent
func (m *UnmappedEventModel) ToDomain() *accounting.UnmappedEvent {
	return &accounting.UnmappedEvent{
		ID:                m.ID,
		TenantID:          m.TenantID,
		EventID:           m.EventID,
		EventType:         m.EventType,
		SourceModule:      m.SourceModule,
		SourceReferenceID: m.SourceReferenceID,
		EntityType:        m.EntityType,
		EntityID:          m.EntityID,
		FallbackAccountID: m.FallbackAccountID,
		Reason:            m.Reason,
		Severity:          m.Severity,
		CreatedAt:         m.CreatedAt,
	}
}

// UnmappedEventModelFromDomain creates a model from a domain UnmappedEvent
func UnmappedEventModelFromDomain(u *accounting.UnmappedEvent) *UnmappedEventModel {
	return &UnmappedEventModel{
		ID:                u.ID,
		TenantID:          u.TenantID,
		EventID:           u.EventID,
		EventType:         u.EventType,
		SourceModule:      u.SourceModule,
		SourceReferenceID: u.SourceReferenceID,
		EntityType:        u.EntityType,
		EntityID:          u.EntityID,
		FallbackAccountID: u.FallbackAccountID,
		Reason:            u.Reason,
		Severity:          u.Severity,
		CreatedAt:         u.CreatedAt,
	}
}

// AccountChangeLogModel is a row of the account history
type AccountChangeLogModel struct {
	ID        uuid.UUID                      `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID                      `gorm:"type:uuid;not null;index:idx_account_change_account,priority:1"`
	AccountID uuid.UUID                      `gorm:"type:uuid;not null;index:idx_account_change_account,priority:2"`
	Action    accounting.AccountChangeAction `gorm:"type:varchar(20);not null"`
	Field     string                         `gorm:"type:varchar(50)"`
	OldValue  string                         `gorm:"type:text"`
	NewValue  string                         `gorm:"type:text"`
	ChangedBy *uuid.UUID                     `gorm:"type:uuid"`
	CreatedAt time.Time                      `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AccountChangeLogModel) TableName() string {
	return "gl_account_change_logs"
}

// ToDomain converts the model to a domain AccountChangeLog
func (m *AccountChangeLogModel) ToDomain() *accounting.AccountChangeLog {
	return &accounting.AccountChangeLog{
		ID:        m.ID,
		TenantID:  m.TenantID,
		AccountID: m.AccountID,
		Action:    m.Action,
		Field:     m.Field,
		OldValue:  m.OldValue,
		NewValue:  m.NewValue,
		ChangedBy: m.ChangedBy,
		CreatedAt: m.CreatedAt,
	}
}

// AccountChangeLogModelFromDomain creates a model from a domain AccountChangeLog
func AccountChangeLogModelFromDomain(l *accounting.AccountChangeLog) *AccountChangeLogModel {
	return &AccountChangeLogModel{
		ID:        l.ID,
		TenantID:  l.TenantID,
		AccountID: l.AccountID,
		Action:    l.Action,
		Field:     l.Field,
		OldValue:  l.OldValue,
		NewValue:  l.NewValue,
		ChangedBy: l.ChangedBy,
		CreatedAt: l.CreatedAt,
	}
}

// AuditLogModel records journal actions
type AuditLogModel struct {
	ID           uuid.UUID               `gorm:"type:uuid;primaryKey"`
	TenantID     uuid.UUID               `gorm:"type:uuid;not null;index:idx_gl_audit_entity,priority:1"`
	Action       accounting.AuditAction  `gorm:"type:varchar(40);not null"`
	EntityType   string                  `gorm:"type:varchar(40);not null"`
	EntityID     uuid.UUID               `gorm:"type:uuid;not null;index:idx_gl_audit_entity,priority:2"`
	ActorID      *uuid.UUID              `gorm:"type:uuid"`
	SourceModule accounting.SourceModule `gorm:"type:varchar(20)"`
	Detail       string                  `gorm:"type:text"`
	CreatedAt    time.Time               `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AuditLogModel) TableName() string {
	return "gl_audit_logs"
}

// ToDomain converts the model to a domain AuditLog
func (m *AuditLogModel) ToDomain() *accounting.AuditLog {
	return &accounting.AuditLog{
		ID:           m.ID,
		TenantID:     m.TenantID,
		Action:       m.Action,
		EntityType:   m.EntityType,
		EntityID:     m.EntityID,
		ActorID:      m.ActorID,
		SourceModule: m.SourceModule,
		Detail:       m.Detail,
		CreatedAt:    m.CreatedAt,
	}
}

// AuditLogModelFromDomain creates a model from a domain AuditLog
func AuditLogModelFromDomain(l *accounting.AuditLog) *AuditLogModel {
	return &AuditLogModel{
		ID:           l.ID,
		TenantID:     l.TenantID,
		Action:       l.Action,
		EntityType:   l.EntityType,
		EntityID:     l.EntityID,
		ActorID:      l.ActorID,
		SourceModule: l.SourceModule,
		Detail:       l.Detail,
		CreatedAt:    l.CreatedAt,
	}
}

// AccountingModels lists every model of the ledger schema, in creation order
func AccountingModels() []any {
	return []any{
		&AccountModel{},
		&JournalEntryModel{},
		&JournalLineModel{},
		&AccountingSettingsModel{},
		&SubDepartmentMappingModel{},
		&PaymentTypeMappingModel{},
		&TaxGroupMappingModel{},
		&DiscountMappingModel{},
		&UnmappedEventModel{},
		&AccountChangeLogModel{},
		&AuditLogModel{},
		&OutboxEntryModel{},
		&ProcessedEventModel{},
		&DeadLetterModel{},
	}
}
