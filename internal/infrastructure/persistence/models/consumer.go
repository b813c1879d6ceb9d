package models

import (
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
)

// ProcessedEventModel is a consumer ledger row
type ProcessedEventModel struct {
	ID           uuid.UUID                  `gorm:"type:uuid;primaryKey"`
	EventID      uuid.UUID                  `gorm:"type:uuid;not null;uniqueIndex:idx_processed_event_consumer,priority:1"`
	ConsumerName string                     `gorm:"type:varchar(100);not null;uniqueIndex:idx_processed_event_consumer,priority:2"`
	TenantID     uuid.UUID                  `gorm:"type:uuid;not null;index"`
	EventType    string                     `gorm:"type:varchar(255);not null"`
	Status       shared.ConsumptionStatus   `gorm:"type:varchar(20);not null;index"`
	Attempts     int                        `gorm:"not null"`
	LastError    string                     `gorm:"type:text"`
	History      []shared.DeadLetterAttempt `gorm:"type:jsonb;serializer:json"`
	ProcessedAt  *time.Time
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProcessedEventModel) TableName() string {
	return "processed_events"
}

// ToDomain converts the model to a domain ProcessedEvent
func (m *ProcessedEventModel) ToDomain() *shared.ProcessedEvent {
	return &shared.ProcessedEvent{
		ID:           m.ID,
		EventID:      m.EventID,
		ConsumerName: m.ConsumerName,
		TenantID:     m.TenantID,
		EventType:    m.EventType,
		Status:       m.Status,
		Attempts:     m.Attempts,
		LastError:    m.LastError,
		History:      m.History,
		ProcessedAt:  m.ProcessedAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// ProcessedEventModelFromDomain creates a model from a domain ProcessedEvent
func ProcessedEventModelFromDomain(p *shared.ProcessedEvent) *ProcessedEventModel {
	return &ProcessedEventModel{
		ID:           p.ID,
		EventID:      p.EventID,
		ConsumerName: p.ConsumerName,
		TenantID:     p.TenantID,
		EventType:    p.EventType,
		Status:       p.Status,
		Attempts:     p.Attempts,
		LastError:    p.LastError,
		History:      p.History,
		ProcessedAt:  p.ProcessedAt,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

// DeadLetterModel is a quarantined event
type DeadLetterModel struct {
	ID             uuid.UUID                  `gorm:"type:uuid;primaryKey"`
	EventID        uuid.UUID                  `gorm:"type:uuid;not null;index"`
	ConsumerName   string                     `gorm:"type:varchar(100);not null;index"`
	TenantID       uuid.UUID                  `gorm:"type:uuid;not null;index:idx_dead_letter_tenant_status,priority:1"`
	EventType      string                     `gorm:"type:varchar(255);not null"`
	Payload        []byte                     `gorm:"type:jsonb"`
	ErrorMessage   string                     `gorm:"type:text;not null"`
	ErrorStack     string                     `gorm:"type:text"`
	Attempts       int                        `gorm:"not null"`
	AttemptHistory []shared.DeadLetterAttempt `gorm:"type:jsonb;serializer:json"`
	Status         shared.DeadLetterStatus    `gorm:"type:varchar(20);not null;index:idx_dead_letter_tenant_status,priority:2"`
	ResolvedBy     *uuid.UUID                 `gorm:"type:uuid"`
	ResolutionNote string                     `gorm:"type:text"`
	ResolvedAt     *time.Time
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DeadLetterModel) TableName() string {
	return "dead_letters"
}

// ToDomain converts the model to a domain DeadLetter
func (m *DeadLetterModel) ToDomain() *shared.DeadLetter {
	return &shared.DeadLetter{
		ID:             m.ID,
		EventID:        m.EventID,
		ConsumerName:   m.ConsumerName,
		TenantID:       m.TenantID,
		EventType:      m.EventType,
		Payload:        m.Payload,
		ErrorMessage:   m.ErrorMessage,
		ErrorStack:     m.ErrorStack,
		Attempts:       m.Attempts,
		History:        m.AttemptHistory,
		Status:         m.Status,
		ResolvedBy:     m.ResolvedBy,
		ResolutionNote: m.ResolutionNote,
		ResolvedAt:     m.ResolvedAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// DeadLetterModelFromDomain creates a model from a domain DeadLetter
func DeadLetterModelFromDomain(d *shared.DeadLetter) *DeadLetterModel {
	return &DeadLetterModel{
		ID:             d.ID,
		EventID:        d.EventID,
		ConsumerName:   d.ConsumerName,
		TenantID:       d.TenantID,
		EventType:      d.EventType,
		Payload:        d.Payload,
		ErrorMessage:   d.ErrorMessage,
		ErrorStack:     d.ErrorStack,
		Attempts:       d.Attempts,
		AttemptHistory: d.History,
		Status:         d.Status,
		ResolvedBy:     d.ResolvedBy,
		ResolutionNote: d.ResolutionNote,
		ResolvedAt:     d.ResolvedAt,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}
