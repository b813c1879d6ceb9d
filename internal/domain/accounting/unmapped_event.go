package accounting

import (
	"time"

	"github.com/google/uuid"
)

// UnmappedEntityType names what lacked a mapping
type UnmappedEntityType string

const (
	EntitySubDepartment          UnmappedEntityType = "sub_department"
	EntityPaymentType            UnmappedEntityType = "payment_type"
	EntityTaxGroup               UnmappedEntityType = "tax_group"
	EntityDiscountClassification UnmappedEntityType = "discount_classification"
	EntityCOGS                   UnmappedEntityType = "cogs"
	EntityJournal                UnmappedEntityType = "journal"
	EntityConfiguration          UnmappedEntityType = "configuration"
)

// UnmappedSeverity ranks remediation urgency
type UnmappedSeverity string

const (
	SeverityWarning  UnmappedSeverity = "warning"
	SeverityCritical UnmappedSeverity = "critical"
)

// UnmappedEvent is an append-only remediation record. A warning means a fallback account
// absorbed the amount; a critical row means nothing was posted.
type UnmappedEvent struct {
	ID                uuid.UUID
	TenantID          uuid.UUID
	EventID           *uuid.UUID
	EventType         string
	SourceModule      SourceModule
	SourceReferenceID string
	EntityType        UnmappedEntityType
	EntityID          string
	FallbackAccountID *uuid.UUID
	Reason            string
	Severity          UnmappedSeverity
	CreatedAt         time.Time
}

// UnmappedContext is the event-level part shared by every unmapped row of one posting
type UnmappedContext struct {
	TenantID          uuid.UUID
	EventID           *uuid.UUID
	EventType         string
	SourceModule      SourceModule
	SourceReferenceID string
}

// NewUnmappedEvent creates a warning row for a fallback that absorbed an amount
func NewUnmappedEvent(ctx UnmappedContext, entityType UnmappedEntityType, entityID string, fallback *uuid.UUID, reason string) *UnmappedEvent {
	return &UnmappedEvent{
		ID:                uuid.New(),
		TenantID:          ctx.TenantID,
		EventID:           ctx.EventID,
		EventType:         ctx.EventType,
		SourceModule:      ctx.SourceModule,
		SourceReferenceID: ctx.SourceReferenceID,
		EntityType:        entityType,
		EntityID:          entityID,
		FallbackAccountID: fallback,
		Reason:            reason,
		Severity:          SeverityWarning,
		CreatedAt:         time.Now(),
	}
}

// NewCriticalUnmappedEvent creates a row for a posting that could not be made at all
func NewCriticalUnmappedEvent(ctx UnmappedContext, entityType UnmappedEntityType, entityID, reason string) *UnmappedEvent {
	e := NewUnmappedEvent(ctx, entityType, entityID, nil, reason)
	e.Severity = SeverityCritical
	return e
}
