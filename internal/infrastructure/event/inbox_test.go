package event

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/erp/posting/internal/domain/pos"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/erp/posting/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func voidPayload(t *testing.T, tenantID uuid.UUID) (*pos.OrderVoidedEvent, []byte) {
	t.Helper()
	evt := pos.NewOrderVoidedEvent(tenantID, uuid.New())
	evt.Reason = "wrong table"
	data, err := json.Marshal(evt)
	require.NoError(t, err)
	return evt, data
}

func TestInbox_Accept(t *testing.T) {
	db := newTestDB(t)
	serializer := newTestSerializer()
	inbox := NewInbox(db, NewOutboxPublisher(serializer), serializer, nil)
	ctx := context.Background()
	tenant := uuid.New()

	evt, payload := voidPayload(t, tenant)

	res, err := inbox.Accept(ctx, tenant, payload)
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, evt.EventID(), res.Event.EventID())

	again, err := inbox.Accept(ctx, tenant, payload)
	require.NoError(t, err)
	assert.True(t, again.Duplicate)

	var rows []models.OutboxEntryModel
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, pos.EventTypeOrderVoided, rows[0].EventType)
	assert.Equal(t, shared.OutboxStatusPending, rows[0].Status)
}

func TestInbox_Rejects(t *testing.T) {
	db := newTestDB(t)
	serializer := newTestSerializer()
	inbox := NewInbox(db, NewOutboxPublisher(serializer), serializer, nil)
	ctx := context.Background()
	tenant := uuid.New()

	_, foreign := voidPayload(t, uuid.New())
	outbound, err := json.Marshal(newTestEvent("TestEvent", tenant))
	require.NoError(t, err)
	noID, err := json.Marshal(map[string]any{"type": pos.EventTypeOrderVoided, "tenant_id": tenant})
	require.NoError(t, err)

	tests := []struct {
		name    string
		payload []byte
		code    string
	}{
		{"not json", []byte("{"), CodeInvalidEvent},
		{"no type", []byte(`{"id":"x"}`), CodeInvalidEvent},
		{"not an inbound type", outbound, CodeUnknownEventType},
		{"missing event id", noID, CodeInvalidEvent},
		{"other tenant", foreign, CodeTenantMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := inbox.Accept(ctx, tenant, tt.payload)
			require.Error(t, err)
			assert.Equal(t, tt.code, shared.ErrorCode(err))
		})
	}

	var count int64
	require.NoError(t, db.Model(&models.OutboxEntryModel{}).Count(&count).Error)
	assert.Zero(t, count)
}
