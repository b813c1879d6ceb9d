package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortDirection(t *testing.T) {
	for in, want := range map[string]string{
		"":        "DESC",
		"asc":     "ASC",
		" ASC ":   "ASC",
		"desc":    "DESC",
		"upward":  "DESC",
		"ASC;--":  "DESC",
		"asc, id": "DESC",
	} {
		assert.Equal(t, want, SortDirection(in), "input %q", in)
	}
}

func TestSortColumns(t *testing.T) {
	cols := NewSortColumns("business_date", "entry_number", "status")

	assert.Equal(t, "entry_number", cols.Column("entry_number"))
	assert.Equal(t, "status", cols.Column("  status "))
	assert.Equal(t, "business_date", cols.Column(""))
	assert.Equal(t, "business_date", cols.Column("Status"), "names are case sensitive")
	assert.True(t, cols.Allows("business_date"), "the fallback is always allowed")
	assert.False(t, cols.Allows("tenant_id"))

	assert.Equal(t, "entry_number ASC", cols.Clause("entry_number", "asc"))
	assert.Equal(t, "business_date DESC", cols.Clause("debit", ""))
}

func TestLedgerSorts(t *testing.T) {
	assert.Equal(t, "business_date", JournalEntrySort.Column(""))
	assert.True(t, JournalEntrySort.Allows("posting_period"))
	assert.True(t, JournalEntrySort.Allows("source_reference_id"))

	assert.Equal(t, "created_at", UnmappedEventSort.Column(""))
	assert.True(t, UnmappedEventSort.Allows("severity"))
	assert.False(t, UnmappedEventSort.Allows("reason"), "free text is not sortable")
}

func TestSortColumns_RejectsInjection(t *testing.T) {
	payloads := []string{
		"business_date; DROP TABLE journal_entries;--",
		"status' OR '1'='1",
		"entry_number UNION SELECT * FROM gl_accounts",
		"posted_at, (SELECT account_number FROM gl_accounts)",
		"CASE WHEN 1=1 THEN status ELSE memo END",
		"status/**/;DELETE FROM journal_lines",
		"status\n; TRUNCATE outbox_events",
	}
	for _, p := range payloads {
		assert.Equal(t, "business_date DESC", JournalEntrySort.Clause(p, p), "payload %q", p)
	}
}
