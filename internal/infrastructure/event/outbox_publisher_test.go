package event

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/erp/posting/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestOutboxPublisher_PublishWithTx(t *testing.T) {
	db := newTestDB(t)
	publisher := NewOutboxPublisher(newTestSerializer())
	ctx := context.Background()
	tenant := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		return publisher.PublishWithTx(ctx, tx, newTestEvent("TestEvent", tenant), newTestEvent("TestEvent", tenant))
	})
	require.NoError(t, err)

	var rows []models.OutboxEntryModel
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, tenant, row.TenantID)
		assert.Equal(t, shared.OutboxStatusPending, row.Status)
		assert.Equal(t, shared.DefaultMaxRetries, row.MaxRetries)
		assert.Contains(t, string(row.Payload), `"data":"test data"`)
	}
}

func TestOutboxPublisher_EmptyEvents(t *testing.T) {
	publisher := NewOutboxPublisher(newTestSerializer())
	assert.NoError(t, publisher.PublishWithTx(context.Background(), nil))
}

func TestOutboxPublisher_RollbackDiscardsEntries(t *testing.T) {
	db := newTestDB(t)
	publisher := NewOutboxPublisher(newTestSerializer())
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := publisher.Bind(tx).Append(ctx, newTestEvent("TestEvent", uuid.New())); err != nil {
			return err
		}
		return errors.New("journal insert failed")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.OutboxEntryModel{}).Count(&count).Error)
	assert.Zero(t, count)
}
