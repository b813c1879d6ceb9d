package persistence

import (
	"context"
	"testing"

	"github.com/erp/posting/internal/domain/accounting"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormUnmappedEventRepository(t *testing.T) {
	db := newLedgerDB(t)
	repo := NewGormUnmappedEventRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()
	eventID := uuid.New()
	fallback := uuid.New()

	uc := accounting.UnmappedContext{
		TenantID:          tenantID,
		EventID:           &eventID,
		EventType:         "pos.tender.recorded.v1",
		SourceModule:      accounting.SourcePOS,
		SourceReferenceID: "tender:t-1",
	}
	require.NoError(t, repo.Append(ctx,
		accounting.NewUnmappedEvent(uc, accounting.EntitySubDepartment, uuid.NewString(), &fallback, "no revenue mapping"),
		accounting.NewUnmappedEvent(uc, accounting.EntityTaxGroup, uuid.NewString(), &fallback, "no tax mapping"),
		accounting.NewUnmappedEvent(uc, accounting.EntitySubDepartment, uuid.NewString(), &fallback, "no revenue mapping"),
		accounting.NewCriticalUnmappedEvent(uc, accounting.EntityJournal, "tender:t-1", "posting failed"),
	))
	require.NoError(t, repo.Append(ctx,
		accounting.NewUnmappedEvent(accounting.UnmappedContext{TenantID: uuid.New()}, accounting.EntityTaxGroup, "x", nil, "other tenant"),
	))
	require.NoError(t, repo.Append(ctx))

	rows, total, err := repo.List(ctx, tenantID, accounting.UnmappedFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, rows, 4)

	subDepartments, total, err := repo.List(ctx, tenantID, accounting.UnmappedFilter{EntityType: accounting.EntitySubDepartment})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, row := range subDepartments {
		require.NotNil(t, row.FallbackAccountID)
		assert.Equal(t, fallback, *row.FallbackAccountID)
		require.NotNil(t, row.EventID)
		assert.Equal(t, eventID, *row.EventID)
	}

	critical, total, err := repo.List(ctx, tenantID, accounting.UnmappedFilter{Severity: accounting.SeverityCritical, ReferenceID: "tender:t-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, critical, 1)
	assert.Nil(t, critical[0].FallbackAccountID)

	paged := accounting.UnmappedFilter{}
	paged.Page, paged.PageSize = 2, 3
	second, total, err := repo.List(ctx, tenantID, paged)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, second, 1)

	counts, err := repo.CountByEntityType(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, map[accounting.UnmappedEntityType]int64{
		accounting.EntitySubDepartment: 2,
		accounting.EntityTaxGroup:      1,
		accounting.EntityJournal:       1,
	}, counts)
}
