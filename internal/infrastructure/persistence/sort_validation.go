package persistence

import (
	"strings"
)

// SortDirection normalizes a requested direction. Anything but asc sorts newest first.
func SortDirection(dir string) string {
	if strings.EqualFold(strings.TrimSpace(dir), "asc") {
		return "ASC"
	}
	return "DESC"
}

// SortColumns whitelists the columns a ledger listing may be ordered by. Requested
// names are interpolated into ORDER BY, so only whitelisted names ever reach SQL.
type SortColumns struct {
	allowed  map[string]bool
	fallback string
}

// NewSortColumns whitelists columns; fallback is used for empty or unknown requests
func NewSortColumns(fallback string, columns ...string) SortColumns {
	allowed := make(map[string]bool, len(columns)+1)
	allowed[fallback] = true
	for _, c := range columns {
		allowed[c] = true
	}
	return SortColumns{allowed: allowed, fallback: fallback}
}

// Column returns the requested column when whitelisted, the fallback otherwise
func (s SortColumns) Column(requested string) string {
	if c := strings.TrimSpace(requested); s.allowed[c] {
		return c
	}
	return s.fallback
}

// Allows reports whether column is whitelisted
func (s SortColumns) Allows(column string) bool { return s.allowed[column] }

// Clause renders an ORDER BY term for gorm's Order
func (s SortColumns) Clause(requested, dir string) string {
	return s.Column(requested) + " " + SortDirection(dir)
}

// JournalEntrySort orders journal listings; business date is what accountants scan by
var JournalEntrySort = NewSortColumns("business_date",
	"created_at", "entry_number", "posting_period", "source_module",
	"source_reference_id", "status", "posted_at",
)

// UnmappedEventSort orders the unmapped event log
var UnmappedEventSort = NewSortColumns("created_at",
	"entity_type", "severity", "source_module", "source_reference_id", "event_type",
)
