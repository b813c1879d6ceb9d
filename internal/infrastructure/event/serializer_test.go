package event

import (
	"testing"
	"time"

	"github.com/erp/posting/internal/domain/pos"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventSerializer_Register(t *testing.T) {
	serializer := NewEventSerializer()
	serializer.Register("TestEvent", &testEvent{})

	assert.True(t, serializer.IsRegistered("TestEvent"))
	assert.False(t, serializer.IsRegistered("UnknownEvent"))
}

func TestRegisterAllEvents_CoversInboundTypes(t *testing.T) {
	serializer := NewEventSerializer()
	RegisterAllEvents(serializer)

	for _, eventType := range InboundEventTypes() {
		assert.True(t, serializer.IsRegistered(eventType), eventType)
	}
	assert.True(t, serializer.IsRegistered("accounting.journal.posted.v1"))
	assert.Len(t, serializer.RegisteredTypes(), 11)
}

func TestEventSerializer_RoundTrip_TenderRecorded(t *testing.T) {
	serializer := newTestSerializer()
	tenant := uuid.New()
	sub := uuid.New()
	original := pos.NewTenderRecordedEvent(tenant, uuid.New(), uuid.New())
	original.BusinessDate = time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	original.PaymentType = "card"
	original.AmountMinor = 10000
	original.Order = pos.OrderSnapshot{
		TotalMinor: 10000,
		Lines: []pos.OrderLine{
			{LineID: "1", SubDepartmentID: &sub, RegularPriceMinor: 8000, TaxMinor: 800},
		},
		ServiceChargeMinor: 1200,
	}

	data, err := serializer.Serialize(original)
	require.NoError(t, err)

	decoded, err := serializer.Deserialize(pos.EventTypeTenderRecorded, data)
	require.NoError(t, err)
	tender, ok := decoded.(*pos.TenderRecordedEvent)
	require.True(t, ok)
	assert.Equal(t, original.EventID(), tender.EventID())
	assert.Equal(t, tenant, tender.TenantID())
	assert.Equal(t, int64(10000), tender.AmountMinor)
	assert.Equal(t, sub, *tender.Order.Lines[0].SubDepartmentID)
	assert.True(t, original.BusinessDate.Equal(tender.BusinessDate))
}

func TestEventSerializer_DeserializeEnvelope(t *testing.T) {
	serializer := newTestSerializer()
	original := newTestEvent("TestEvent", uuid.New())
	data, err := serializer.Serialize(original)
	require.NoError(t, err)

	decoded, err := serializer.DeserializeEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, original.EventID(), decoded.EventID())
	assert.Equal(t, "test data", decoded.(*testEvent).Data)

	_, err = serializer.DeserializeEnvelope([]byte(`{"id":"x"}`))
	assert.ErrorContains(t, err, "no type")

	_, err = serializer.DeserializeEnvelope([]byte(`{"type":"payroll.run.v1"}`))
	assert.ErrorContains(t, err, "unknown event type")
}

func TestEventSerializer_Deserialize_InvalidJSON(t *testing.T) {
	serializer := newTestSerializer()

	_, err := serializer.Deserialize("TestEvent", []byte("{not json"))
	assert.Error(t, err)
}
