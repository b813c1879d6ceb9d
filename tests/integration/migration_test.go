package integration

import (
	"context"
	"testing"

	"github.com/erp/posting/internal/infrastructure/migration"
	"github.com/erp/posting/internal/infrastructure/persistence"
	"github.com/erp/posting/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ledgerTables = []string{
	"gl_accounts",
	"gl_account_change_logs",
	"journal_entries",
	"journal_lines",
	"accounting_settings",
	"gl_sub_department_mappings",
	"gl_payment_type_mappings",
	"gl_tax_group_mappings",
	"gl_discount_mappings",
	"gl_unmapped_events",
	"gl_audit_logs",
	"outbox_events",
	"processed_events",
	"dead_letters",
}

func TestMigrations_ApplyAndRollBack(t *testing.T) {
	tdb := NewTestDB(t)

	for _, table := range ledgerTables {
		assert.True(t, tdb.TableExists(table), "table %s after up", table)
	}
	assert.True(t, tdb.TableExists(migration.MigrationsTable))
	ledger := &persistence.Database{DB: tdb.DB}
	require.NoError(t, ledger.RequireGuardIndexes(context.Background()))
	assert.False(t, tdb.TableExists("schema_migrations"), "history lives in the ledger's own table")

	names, err := migration.ListMigrationsFS(migrations.FS)
	require.NoError(t, err)

	m := tdb.Migrator()
	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.NotZero(t, version)
	assert.NotEmpty(t, names)

	require.NoError(t, m.Down())
	for _, table := range ledgerTables {
		assert.False(t, tdb.TableExists(table), "table %s after down", table)
	}
	assert.Error(t, ledger.RequireGuardIndexes(context.Background()))

	require.NoError(t, m.Up())
	for _, table := range ledgerTables {
		assert.True(t, tdb.TableExists(table), "table %s after second up", table)
	}

	// Up on a current schema is a no-op
	require.NoError(t, m.Up())
}

func TestMigrations_VoidedSourceKeyCanBeReused(t *testing.T) {
	tdb := NewTestDB(t)

	var indexDef string
	require.NoError(t, tdb.DB.Raw(`
		SELECT indexdef FROM pg_indexes
		WHERE tablename = 'journal_entries' AND indexdef ILIKE '%source_reference_id%' AND indexdef ILIKE '%UNIQUE%'
		LIMIT 1
	`).Scan(&indexDef).Error)
	assert.Contains(t, indexDef, "WHERE", "source key uniqueness is partial so voided entries free the key")
}
