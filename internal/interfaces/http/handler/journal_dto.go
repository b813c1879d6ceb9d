package handler

import (
	"fmt"

	"github.com/erp/posting/internal/domain/accounting"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineDimensionsRequest tags a journal line for reporting
type LineDimensionsRequest struct {
	LocationID             *string `json:"location_id,omitempty" binding:"omitempty,uuid"`
	DepartmentID           *string `json:"department_id,omitempty" binding:"omitempty,uuid"`
	CustomerID             *string `json:"customer_id,omitempty" binding:"omitempty,uuid"`
	VendorID               *string `json:"vendor_id,omitempty" binding:"omitempty,uuid"`
	SubDepartmentID        *string `json:"sub_department_id,omitempty" binding:"omitempty,uuid"`
	TerminalID             string  `json:"terminal_id,omitempty" binding:"max=64"`
	Channel                string  `json:"channel,omitempty" binding:"max=32"`
	DiscountClassification string  `json:"discount_classification,omitempty" binding:"max=64"`
}

// JournalLineRequest is one proposed line. Exactly one of debit and credit is non-zero.
type JournalLineRequest struct {
	AccountID  string                `json:"account_id" binding:"required,uuid"`
	Debit      string                `json:"debit,omitempty" binding:"omitempty,amount" example:"100.00"`
	Credit     string                `json:"credit,omitempty" binding:"omitempty,amount" example:"0.00"`
	Memo       string                `json:"memo,omitempty" binding:"max=255"`
	Dimensions LineDimensionsRequest `json:"dimensions,omitempty"`
}

// PostJournalEntryRequest is the body of a manual or module posting
// @Description Journal entry to validate and post
type PostJournalEntryRequest struct {
	BusinessDate      string               `json:"business_date" binding:"required,datetime=2006-01-02" example:"2026-03-31"`
	SourceModule      string               `json:"source_module" binding:"required,oneof=manual pos pos_return fnb ar ap pms ach membership" example:"manual"`
	SourceReferenceID string               `json:"source_reference_id" binding:"required,max=128" example:"ADJ-2026-0042"`
	CorrelationID     string               `json:"correlation_id,omitempty" binding:"max=128"`
	Currency          string               `json:"currency,omitempty" binding:"omitempty,currency" example:"USD"`
	ExchangeRate      *string              `json:"exchange_rate,omitempty" binding:"omitempty,amount"`
	Memo              string               `json:"memo,omitempty" binding:"max=500"`
	Lines             []JournalLineRequest `json:"lines" binding:"required,min=2,dive"`
	ForcePost         bool                 `json:"force_post,omitempty"`
}

// VoidJournalEntryRequest is the body of a void
type VoidJournalEntryRequest struct {
	Reason   string `json:"reason" binding:"required,max=500" example:"Duplicate entry"`
	VoidDate string `json:"void_date,omitempty" binding:"omitempty,datetime=2006-01-02"`
}

// JournalListQuery is the query string of the journal listing
type JournalListQuery struct {
	Page         int    `form:"page" binding:"omitempty,min=1"`
	PageSize     int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Status       string `form:"status" binding:"omitempty,oneof=draft posted voided"`
	SourceModule string `form:"source_module"`
	Period       string `form:"period" binding:"omitempty,datetime=2006-01"`
	From         string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To           string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

// LineDimensionsResponse mirrors LineDimensionsRequest
type LineDimensionsResponse struct {
	LocationID             *string `json:"location_id,omitempty"`
	DepartmentID           *string `json:"department_id,omitempty"`
	CustomerID             *string `json:"customer_id,omitempty"`
	VendorID               *string `json:"vendor_id,omitempty"`
	SubDepartmentID        *string `json:"sub_department_id,omitempty"`
	TerminalID             string  `json:"terminal_id,omitempty"`
	Channel                string  `json:"channel,omitempty"`
	DiscountClassification string  `json:"discount_classification,omitempty"`
}

// JournalLineResponse is a persisted line
type JournalLineResponse struct {
	ID         string                 `json:"id"`
	AccountID  string                 `json:"account_id"`
	Debit      string                 `json:"debit" example:"100.00"`
	Credit     string                 `json:"credit" example:"0.00"`
	Memo       string                 `json:"memo,omitempty"`
	SortOrder  int                    `json:"sort_order"`
	IsRounding bool                   `json:"is_rounding"`
	Dimensions LineDimensionsResponse `json:"dimensions"`
}

// JournalEntryResponse is a journal entry with its lines
// @Description Journal entry
type JournalEntryResponse struct {
	ID                string                `json:"id"`
	EntryNumber       string                `json:"entry_number" example:"JE-202603-000042"`
	BusinessDate      string                `json:"business_date" example:"2026-03-31"`
	PostingPeriod     string                `json:"posting_period" example:"2026-03"`
	SourceModule      string                `json:"source_module"`
	SourceReferenceID string                `json:"source_reference_id"`
	CorrelationID     string                `json:"correlation_id,omitempty"`
	Status            string                `json:"status" example:"posted"`
	Currency          string                `json:"currency" example:"USD"`
	ExchangeRate      string                `json:"exchange_rate" example:"1"`
	Memo              string                `json:"memo,omitempty"`
	TotalDebits       string                `json:"total_debits"`
	TotalCredits      string                `json:"total_credits"`
	ReversalOfID      *string               `json:"reversal_of_id,omitempty"`
	ReversedByID      *string               `json:"reversed_by_id,omitempty"`
	PostedAt          *string               `json:"posted_at,omitempty"`
	VoidedAt          *string               `json:"voided_at,omitempty"`
	VoidReason        string                `json:"void_reason,omitempty"`
	Lines             []JournalLineResponse `json:"lines"`
	Version           int                   `json:"version"`
}

// PostJournalEntryResponse adds posting outcome flags to the entry
type PostJournalEntryResponse struct {
	Entry         JournalEntryResponse `json:"entry"`
	AlreadyPosted bool                 `json:"already_posted"`
	Warnings      []string             `json:"warnings,omitempty"`
}

func (r JournalLineRequest) toProposed() (accounting.ProposedLine, error) {
	accountID, err := uuid.Parse(r.AccountID)
	if err != nil {
		return accounting.ProposedLine{}, fmt.Errorf("invalid account_id: %w", err)
	}
	dims, err := r.Dimensions.toDomain()
	if err != nil {
		return accounting.ProposedLine{}, err
	}
	return accounting.ProposedLine{
		AccountID:  accountID,
		Debit:      r.Debit,
		Credit:     r.Credit,
		Memo:       r.Memo,
		Dimensions: dims,
	}, nil
}

func (r LineDimensionsRequest) toDomain() (accounting.LineDimensions, error) {
	dims := accounting.LineDimensions{
		TerminalID:             r.TerminalID,
		Channel:                r.Channel,
		DiscountClassification: r.DiscountClassification,
	}
	targets := []struct {
		name string
		src  *string
		dst  **uuid.UUID
	}{
		{"location_id", r.LocationID, &dims.LocationID},
		{"department_id", r.DepartmentID, &dims.DepartmentID},
		{"customer_id", r.CustomerID, &dims.CustomerID},
		{"vendor_id", r.VendorID, &dims.VendorID},
		{"sub_department_id", r.SubDepartmentID, &dims.SubDepartmentID},
	}
	for _, t := range targets {
		id, err := parseOptionalUUID(t.src)
		if err != nil {
			return dims, fmt.Errorf("invalid %s: %w", t.name, err)
		}
		*t.dst = id
	}
	return dims, nil
}

func toJournalEntryResponse(e *accounting.JournalEntry) JournalEntryResponse {
	resp := JournalEntryResponse{
		ID:                e.ID.String(),
		EntryNumber:       e.EntryNumber,
		BusinessDate:      formatDate(e.BusinessDate),
		PostingPeriod:     e.PostingPeriod,
		SourceModule:      string(e.SourceModule),
		SourceReferenceID: e.SourceReferenceID,
		CorrelationID:     e.CorrelationID,
		Status:            string(e.Status),
		Currency:          e.Currency,
		ExchangeRate:      e.ExchangeRate.String(),
		Memo:              e.Memo,
		ReversalOfID:      uuidString(e.ReversalOfID),
		ReversedByID:      uuidString(e.ReversedByID),
		PostedAt:          formatTime(e.PostedAt),
		VoidedAt:          formatTime(e.VoidedAt),
		VoidReason:        e.VoidReason,
		Lines:             make([]JournalLineResponse, 0, len(e.Lines)),
		Version:           e.Version,
	}

	debits, credits := decimal.Zero, decimal.Zero
	for _, l := range e.Lines {
		debits = debits.Add(l.Debit)
		credits = credits.Add(l.Credit)
		resp.Lines = append(resp.Lines, JournalLineResponse{
			ID:         l.ID.String(),
			AccountID:  l.AccountID.String(),
			Debit:      formatAmount(l.Debit),
			Credit:     formatAmount(l.Credit),
			Memo:       l.Memo,
			SortOrder:  l.SortOrder,
			IsRounding: l.IsRounding,
			Dimensions: LineDimensionsResponse{
				LocationID:             uuidString(l.Dimensions.LocationID),
				DepartmentID:           uuidString(l.Dimensions.DepartmentID),
				CustomerID:             uuidString(l.Dimensions.CustomerID),
				VendorID:               uuidString(l.Dimensions.VendorID),
				SubDepartmentID:        uuidString(l.Dimensions.SubDepartmentID),
				TerminalID:             l.Dimensions.TerminalID,
				Channel:                l.Dimensions.Channel,
				DiscountClassification: l.Dimensions.DiscountClassification,
			},
		})
	}
	resp.TotalDebits = formatAmount(debits)
	resp.TotalCredits = formatAmount(credits)
	return resp
}

func toJournalEntryResponses(entries []*accounting.JournalEntry) []JournalEntryResponse {
	out := make([]JournalEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toJournalEntryResponse(e))
	}
	return out
}
