package logger

import (
	"github.com/erp/posting/internal/domain/shared"
	"go.uber.org/zap"
)

// Field names shared by every posting log line
const (
	FieldTenantID     = "tenant_id"
	FieldEventID      = "event_id"
	FieldEventType    = "event_type"
	FieldConsumer     = "consumer"
	FieldSourceModule = "source_module"
	FieldReference    = "source_reference_id"
	FieldEntryID      = "entry_id"
)

// EventFields identifies a delivered event in log output
func EventFields(event shared.DomainEvent) []zap.Field {
	return []zap.Field{
		zap.String(FieldEventID, event.EventID().String()),
		zap.String(FieldEventType, event.EventType()),
		zap.String(FieldTenantID, event.TenantID().String()),
	}
}
