package pos

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTenderRecordedEvent_Validate(t *testing.T) {
	valid := func() *TenderRecordedEvent {
		e := NewTenderRecordedEvent(uuid.New(), uuid.New(), uuid.New())
		e.BusinessDate = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
		e.AmountMinor = 3334
		e.PriorTenderedMinor = 6666
		e.Order = OrderSnapshot{TotalMinor: 10000}
		return e
	}
	assert.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*TenderRecordedEvent)
		want   string
	}{
		{"overpays the order", func(e *TenderRecordedEvent) { e.PriorTenderedMinor = 6667 }, "tender exceeds order total"},
		{"negative prior", func(e *TenderRecordedEvent) { e.PriorTenderedMinor = -1 }, "prior tendered amount cannot be negative"},
		{"zero amount", func(e *TenderRecordedEvent) { e.AmountMinor = 0 }, "tender amount must be positive"},
		{"negative tip", func(e *TenderRecordedEvent) { e.TipMinor = -5 }, "tip and surcharge cannot be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid()
			tt.mutate(e)
			err := e.Validate()
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.want)
			}
		})
	}
}
