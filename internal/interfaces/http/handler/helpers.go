package handler

import (
	"time"

	"github.com/erp/posting/internal/domain/accounting"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// dateLayout is the wire format of business dates
const dateLayout = "2006-01-02"

// formatAmount renders a money amount at minor-unit scale
func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(accounting.MinorUnitScale)
}

// parseDate parses a YYYY-MM-DD business date, returning the zero time for ""
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}

// parseOptionalDate is parseDate for optional filters
func parseOptionalDate(s string) (*time.Time, error) {
	t, err := parseDate(s)
	if err != nil || t.IsZero() {
		return nil, err
	}
	return &t, nil
}

// formatDate renders a business date, "" for the zero time
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// formatTime renders an optional timestamp
func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

// toDecimalPtr parses an optional decimal string
func toDecimalPtr(s *string) (*decimal.Decimal, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// parseOptionalUUID parses an optional UUID string
func parseOptionalUUID(s *string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// uuidString renders an optional UUID
func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
