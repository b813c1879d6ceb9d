package logger

import (
	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
)

func newTestEvent() shared.DomainEvent {
	e := shared.NewBaseDomainEvent("tender.recorded.v1", "Order", uuid.New(), uuid.New())
	return &e
}
