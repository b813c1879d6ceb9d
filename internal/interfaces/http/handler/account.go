package handler

import (
	"context"

	appaccounting "github.com/erp/posting/internal/application/accounting"
	"github.com/erp/posting/internal/domain/accounting"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AccountService is the chart of accounts API the account handler drives
type AccountService interface {
	CreateAccount(ctx context.Context, cmd appaccounting.CreateAccountCommand) (*accounting.Account, error)
	UpdateAccount(ctx context.Context, cmd appaccounting.UpdateAccountCommand) (*accounting.Account, error)
	MergeAccounts(ctx context.Context, cmd appaccounting.MergeAccountsCommand) (*appaccounting.MergeResult, error)
	DeactivateAccount(ctx context.Context, tenantID, accountID uuid.UUID, override bool, actorID uuid.UUID) (*accounting.Account, error)
	GetAccount(ctx context.Context, tenantID, accountID uuid.UUID) (*accounting.Account, error)
	GetAccountTree(ctx context.Context, tenantID uuid.UUID) ([]*accounting.AccountTreeNode, error)
	ListAccountChanges(ctx context.Context, tenantID, accountID uuid.UUID) ([]*accounting.AccountChangeLog, error)
}

// AccountHandler handles chart of accounts HTTP requests
type AccountHandler struct {
	BaseHandler
	accounts AccountService
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accounts AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// Create godoc
// @ID           createAccount
// @Summary      Create an account
// @Description  Add an account to the tenant's chart, optionally under a parent
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        request body CreateAccountRequest true "Account"
// @Success      201 {object} APIResponse[AccountResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /accounts [post]
func (h *AccountHandler) Create(c *gin.Context) {
	tenantID, actorID, ok := h.identity(c)
	if !ok {
		return
	}

	var req CreateAccountRequest
	if !h.BindJSON(c, &req) {
		return
	}
	parentID, err := parseOptionalUUID(req.ParentAccountID)
	if err != nil {
		h.BadRequest(c, "Invalid parent_account_id")
		return
	}

	account, err := h.accounts.CreateAccount(c.Request.Context(), appaccounting.CreateAccountCommand{
		TenantID:        tenantID,
		AccountNumber:   req.AccountNumber,
		Name:            req.Name,
		Description:     req.Description,
		AccountType:     accounting.AccountType(req.AccountType),
		ControlType:     accounting.ControlAccountType(req.ControlType),
		ParentAccountID: parentID,
		ActorID:         actorID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toAccountResponse(account))
}

// Update godoc
// @ID           updateAccount
// @Summary      Update an account
// @Description  Rename, retype, reclassify or move an account. The type is locked once lines are posted.
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        id path string true "Account ID" format(uuid)
// @Param        request body UpdateAccountRequest true "Changes"
// @Success      200 {object} APIResponse[AccountResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /accounts/{id} [patch]
func (h *AccountHandler) Update(c *gin.Context) {
	tenantID, actorID, ok := h.identity(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id", "account ID")
	if !ok {
		return
	}

	var req UpdateAccountRequest
	if !h.BindJSON(c, &req) {
		return
	}
	parentID, err := parseOptionalUUID(req.ParentAccountID)
	if err != nil {
		h.BadRequest(c, "Invalid parent_account_id")
		return
	}
	if parentID != nil && req.ClearParent {
		h.BadRequest(c, "parent_account_id and clear_parent are exclusive")
		return
	}

	cmd := appaccounting.UpdateAccountCommand{
		TenantID:        tenantID,
		AccountID:       id,
		Name:            req.Name,
		Description:     req.Description,
		ParentAccountID: parentID,
		ClearParent:     req.ClearParent,
		ActorID:         actorID,
	}
	if req.AccountType != nil {
		t := accounting.AccountType(*req.AccountType)
		cmd.AccountType = &t
	}
	if req.ControlType != nil {
		ct := accounting.ControlAccountType(*req.ControlType)
		cmd.ControlType = &ct
	}

	account, err := h.accounts.UpdateAccount(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toAccountResponse(account))
}

// Get godoc
// @ID           getAccount
// @Summary      Get an account
// @Tags         accounts
// @Produce      json
// @Param        id path string true "Account ID" format(uuid)
// @Success      200 {object} APIResponse[AccountResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /accounts/{id} [get]
func (h *AccountHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant not resolved")
		return
	}
	id, ok := h.pathUUID(c, "id", "account ID")
	if !ok {
		return
	}

	account, err := h.accounts.GetAccount(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toAccountResponse(account))
}

// Tree godoc
// @ID           getAccountTree
// @Summary      Get the chart of accounts
// @Description  The tenant's accounts as a forest ordered by account number
// @Tags         accounts
// @Produce      json
// @Success      200 {object} APIResponse[[]AccountTreeResponse]
// @Failure      401 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /accounts/tree [get]
func (h *AccountHandler) Tree(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant not resolved")
		return
	}

	tree, err := h.accounts.GetAccountTree(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toAccountTree(tree))
}

// Changes godoc
// @ID           listAccountChanges
// @Summary      List an account's change history
// @Tags         accounts
// @Produce      json
// @Param        id path string true "Account ID" format(uuid)
// @Success      200 {object} APIResponse[[]AccountChangeResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /accounts/{id}/changes [get]
func (h *AccountHandler) Changes(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant not resolved")
		return
	}
	id, ok := h.pathUUID(c, "id", "account ID")
	if !ok {
		return
	}

	logs, err := h.accounts.ListAccountChanges(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toAccountChangeResponses(logs))
}

// Merge godoc
// @ID           mergeAccount
// @Summary      Merge an account into another
// @Description  Move every line and child of the source account to the target and retire the source
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        id path string true "Source Account ID" format(uuid)
// @Param        request body MergeAccountRequest true "Merge target"
// @Success      200 {object} APIResponse[MergeAccountResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /accounts/{id}/merge [post]
func (h *AccountHandler) Merge(c *gin.Context) {
	tenantID, actorID, ok := h.identity(c)
	if !ok {
		return
	}
	sourceID, ok := h.pathUUID(c, "id", "account ID")
	if !ok {
		return
	}

	var req MergeAccountRequest
	if !h.BindJSON(c, &req) {
		return
	}
	targetID, err := uuid.Parse(req.TargetAccountID)
	if err != nil {
		h.BadRequest(c, "Invalid target_account_id")
		return
	}

	result, err := h.accounts.MergeAccounts(c.Request.Context(), appaccounting.MergeAccountsCommand{
		TenantID: tenantID,
		SourceID: sourceID,
		TargetID: targetID,
		ActorID:  actorID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toMergeAccountResponse(result))
}

// Deactivate godoc
// @ID           deactivateAccount
// @Summary      Deactivate an account
// @Description  Stop new postings to an account. An account with a balance needs override.
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        id path string true "Account ID" format(uuid)
// @Param        request body DeactivateAccountRequest false "Options"
// @Success      200 {object} APIResponse[AccountResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /accounts/{id}/deactivate [post]
func (h *AccountHandler) Deactivate(c *gin.Context) {
	tenantID, actorID, ok := h.identity(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id", "account ID")
	if !ok {
		return
	}

	var req DeactivateAccountRequest
	if c.Request.ContentLength > 0 && !h.BindJSON(c, &req) {
		return
	}

	account, err := h.accounts.DeactivateAccount(c.Request.Context(), tenantID, id, req.Override, actorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toAccountResponse(account))
}
