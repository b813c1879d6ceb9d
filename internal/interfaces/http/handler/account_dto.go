package handler

import (
	"time"

	appaccounting "github.com/erp/posting/internal/application/accounting"
	"github.com/erp/posting/internal/domain/accounting"
)

// CreateAccountRequest adds an account to the chart
// @Description Account to create
type CreateAccountRequest struct {
	AccountNumber   string  `json:"account_number" binding:"required,max=32" example:"1010"`
	Name            string  `json:"name" binding:"required,max=200" example:"Operating Cash"`
	Description     string  `json:"description,omitempty" binding:"max=500"`
	AccountType     string  `json:"account_type" binding:"required,oneof=asset liability equity revenue expense" example:"asset"`
	ControlType     string  `json:"control_account_type,omitempty" binding:"omitempty,oneof=ap ar sales_tax undeposited_funds bank guest_ledger"`
	ParentAccountID *string `json:"parent_account_id,omitempty" binding:"omitempty,uuid"`
}

// UpdateAccountRequest changes an account. Omitted fields are left as they are.
type UpdateAccountRequest struct {
	Name            *string `json:"name,omitempty" binding:"omitempty,min=1,max=200"`
	Description     *string `json:"description,omitempty" binding:"omitempty,max=500"`
	AccountType     *string `json:"account_type,omitempty" binding:"omitempty,oneof=asset liability equity revenue expense"`
	ControlType     *string `json:"control_account_type,omitempty" binding:"omitempty,oneof='' ap ar sales_tax undeposited_funds bank guest_ledger"`
	ParentAccountID *string `json:"parent_account_id,omitempty" binding:"omitempty,uuid"`
	ClearParent     bool    `json:"clear_parent,omitempty"`
}

// MergeAccountRequest names the surviving account of a merge
type MergeAccountRequest struct {
	TargetAccountID string `json:"target_account_id" binding:"required,uuid"`
}

// DeactivateAccountRequest controls the balance check of a deactivation
type DeactivateAccountRequest struct {
	// Override deactivates an account that still carries a balance
	Override bool `json:"override,omitempty"`
}

// AccountResponse is one account of the chart
// @Description Chart of accounts node
type AccountResponse struct {
	ID                 string  `json:"id"`
	AccountNumber      string  `json:"account_number" example:"1010"`
	Name               string  `json:"name" example:"Operating Cash"`
	Description        string  `json:"description,omitempty"`
	AccountType        string  `json:"account_type" example:"asset"`
	NormalBalance      string  `json:"normal_balance" example:"debit"`
	IsControlAccount   bool    `json:"is_control_account"`
	ControlAccountType string  `json:"control_account_type,omitempty"`
	IsActive           bool    `json:"is_active"`
	IsSystem           bool    `json:"is_system"`
	ParentAccountID    *string `json:"parent_account_id,omitempty"`
	Depth              int     `json:"depth"`
	Path               string  `json:"path" example:"1000/1010"`
	Status             string  `json:"status" example:"active"`
	MergedIntoID       *string `json:"merged_into_id,omitempty"`
	Version            int     `json:"version"`
}

// AccountTreeResponse is an account with its children
type AccountTreeResponse struct {
	AccountResponse
	Children []AccountTreeResponse `json:"children"`
}

// MergeAccountResponse reports what a merge touched
type MergeAccountResponse struct {
	Source             AccountResponse `json:"source"`
	Target             AccountResponse `json:"target"`
	ReparentedChildren int             `json:"reparented_children"`
	LinesReassigned    int64           `json:"lines_reassigned"`
	MappingsRepointed  int64           `json:"mappings_repointed"`
	FallbacksRepointed []string        `json:"fallbacks_repointed"`
}

// AccountChangeResponse is one audit row of an account
type AccountChangeResponse struct {
	ID        string  `json:"id"`
	Action    string  `json:"action"`
	Field     string  `json:"field,omitempty"`
	OldValue  string  `json:"old_value,omitempty"`
	NewValue  string  `json:"new_value,omitempty"`
	ChangedBy *string `json:"changed_by,omitempty"`
	CreatedAt string  `json:"created_at"`
}

func toAccountResponse(a *accounting.Account) AccountResponse {
	return AccountResponse{
		ID:                 a.ID.String(),
		AccountNumber:      a.AccountNumber,
		Name:               a.Name,
		Description:        a.Description,
		AccountType:        string(a.AccountType),
		NormalBalance:      string(a.NormalBalance),
		IsControlAccount:   a.IsControlAccount,
		ControlAccountType: string(a.ControlAccountType),
		IsActive:           a.IsActive,
		IsSystem:           a.IsSystem,
		ParentAccountID:    uuidString(a.ParentAccountID),
		Depth:              a.Depth,
		Path:               a.Path,
		Status:             string(a.Status),
		MergedIntoID:       uuidString(a.MergedIntoID),
		Version:            a.Version,
	}
}

func toAccountTree(nodes []*accounting.AccountTreeNode) []AccountTreeResponse {
	out := make([]AccountTreeResponse, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, AccountTreeResponse{
			AccountResponse: toAccountResponse(n.Account),
			Children:        toAccountTree(n.Children),
		})
	}
	return out
}

func toMergeAccountResponse(r *appaccounting.MergeResult) MergeAccountResponse {
	return MergeAccountResponse{
		Source:             toAccountResponse(r.Source),
		Target:             toAccountResponse(r.Target),
		ReparentedChildren: r.ReparentedChildren,
		LinesReassigned:    r.LinesReassigned,
		MappingsRepointed:  r.MappingsRepointed,
		FallbacksRepointed: fallbackSlotNames(r.FallbacksRepointed),
	}
}

func fallbackSlotNames(slots []accounting.FallbackSlot) []string {
	out := make([]string, 0, len(slots))
	for _, slot := range slots {
		out = append(out, string(slot))
	}
	return out
}

func toAccountChangeResponses(logs []*accounting.AccountChangeLog) []AccountChangeResponse {
	out := make([]AccountChangeResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, AccountChangeResponse{
			ID:        l.ID.String(),
			Action:    string(l.Action),
			Field:     l.Field,
			OldValue:  l.OldValue,
			NewValue:  l.NewValue,
			ChangedBy: uuidString(l.ChangedBy),
			CreatedAt: l.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}
