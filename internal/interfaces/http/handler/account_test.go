package handler

import (
	"net/http"
	"testing"
	"time"

	appaccounting "github.com/erp/posting/internal/application/accounting"
	"github.com/erp/posting/internal/domain/accounting"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupAccountTestRouter() (*gin.Engine, *MockAccountService) {
	accounts := new(MockAccountService)
	h := NewAccountHandler(accounts)

	router := gin.New()
	router.Use(withIdentity())
	router.POST("/accounts", h.Create)
	router.GET("/accounts/tree", h.Tree)
	router.GET("/accounts/:id", h.Get)
	router.PATCH("/accounts/:id", h.Update)
	router.GET("/accounts/:id/changes", h.Changes)
	router.POST("/accounts/:id/merge", h.Merge)
	router.POST("/accounts/:id/deactivate", h.Deactivate)
	return router, accounts
}

func createTestAccount(number, name string, accountType accounting.AccountType) *accounting.Account {
	a := &accounting.Account{
		AccountNumber: number,
		Name:          name,
		AccountType:   accountType,
		NormalBalance: accountType.NormalBalance(),
		IsActive:      true,
		Path:          number,
		Status:        accounting.AccountStatusActive,
	}
	a.ID = uuid.New()
	a.TenantID = testTenantID
	a.Version = 1
	return a
}

func TestAccountHandler_Create(t *testing.T) {
	t.Run("should create an account", func(t *testing.T) {
		router, accounts := setupAccountTestRouter()
		parentID := uuid.New()
		created := createTestAccount("1010", "Operating Cash", accounting.AccountTypeAsset)
		created.ParentAccountID = &parentID
		created.IsControlAccount = true
		created.ControlAccountType = accounting.ControlAccountBank

		accounts.On("CreateAccount", mock.Anything, mock.MatchedBy(func(cmd appaccounting.CreateAccountCommand) bool {
			return cmd.TenantID == testTenantID &&
				cmd.ActorID == testUserID &&
				cmd.AccountNumber == "1010" &&
				cmd.AccountType == accounting.AccountTypeAsset &&
				cmd.ControlType == accounting.ControlAccountBank &&
				cmd.ParentAccountID != nil && *cmd.ParentAccountID == parentID
		})).Return(created, nil)

		parent := parentID.String()
		w := performRequest(router, http.MethodPost, "/accounts", CreateAccountRequest{
			AccountNumber:   "1010",
			Name:            "Operating Cash",
			AccountType:     "asset",
			ControlType:     "bank",
			ParentAccountID: &parent,
		})

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var resp AccountResponse
		decodeData(t, w, &resp)
		assert.Equal(t, "1010", resp.AccountNumber)
		assert.Equal(t, "debit", resp.NormalBalance)
		assert.True(t, resp.IsControlAccount)
		assert.Equal(t, "bank", resp.ControlAccountType)
		accounts.AssertExpectations(t)
	})

	t.Run("should answer 409 for a duplicate number", func(t *testing.T) {
		router, accounts := setupAccountTestRouter()
		accounts.On("CreateAccount", mock.Anything, mock.Anything).
			Return(nil, shared.NewDomainError(accounting.CodeAccountNumberExists, "Account number 1010 already exists"))

		w := performRequest(router, http.MethodPost, "/accounts", CreateAccountRequest{
			AccountNumber: "1010", Name: "Cash", AccountType: "asset",
		})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, accounting.CodeAccountNumberExists, decodeResponse(t, w).Error.Code)
	})

	t.Run("should reject an unknown account type", func(t *testing.T) {
		router, accounts := setupAccountTestRouter()

		w := performRequest(router, http.MethodPost, "/accounts", map[string]string{
			"account_number": "9000", "name": "Suspense", "account_type": "contra",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		accounts.AssertNotCalled(t, "CreateAccount", mock.Anything, mock.Anything)
	})
}

func TestAccountHandler_Update(t *testing.T) {
	t.Run("should apply only provided fields", func(t *testing.T) {
		router, accounts := setupAccountTestRouter()
		account := createTestAccount("4000", "Merchandise Sales", accounting.AccountTypeRevenue)

		accounts.On("UpdateAccount", mock.Anything, mock.MatchedBy(func(cmd appaccounting.UpdateAccountCommand) bool {
			return cmd.AccountID == account.ID &&
				cmd.Name != nil && *cmd.Name == "Merchandise Sales" &&
				cmd.Description == nil &&
				cmd.AccountType == nil &&
				cmd.ControlType == nil &&
				cmd.ClearParent
		})).Return(account, nil)

		w := performRequest(router, http.MethodPatch, "/accounts/"+account.ID.String(),
			map[string]any{"name": "Merchandise Sales", "clear_parent": true})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		accounts.AssertExpectations(t)
	})

	t.Run("should clear the control type with an empty string", func(t *testing.T) {
		router, accounts := setupAccountTestRouter()
		account := createTestAccount("2100", "Sales Tax", accounting.AccountTypeLiability)

		accounts.On("UpdateAccount", mock.Anything, mock.MatchedBy(func(cmd appaccounting.UpdateAccountCommand) bool {
			return cmd.ControlType != nil && *cmd.ControlType == accounting.ControlAccountNone
		})).Return(account, nil)

		w := performRequest(router, http.MethodPatch, "/accounts/"+account.ID.String(),
			map[string]any{"control_account_type": ""})

		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
		accounts.AssertExpectations(t)
	})

	t.Run("should reject parent together with clear_parent", func(t *testing.T) {
		router, accounts := setupAccountTestRouter()

		w := performRequest(router, http.MethodPatch, "/accounts/"+uuid.New().String(),
			map[string]any{"parent_account_id": uuid.New().String(), "clear_parent": true})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		accounts.AssertNotCalled(t, "UpdateAccount", mock.Anything, mock.Anything)
	})

	t.Run("should surface a cycle", func(t *testing.T) {
		router, accounts := setupAccountTestRouter()
		accounts.On("UpdateAccount", mock.Anything, mock.Anything).
			Return(nil, shared.NewDomainError(accounting.CodeCircularHierarchy, "Parent would create a cycle"))

		w := performRequest(router, http.MethodPatch, "/accounts/"+uuid.New().String(),
			map[string]any{"parent_account_id": uuid.New().String()})

		assert.Equal(t, accounting.CodeCircularHierarchy, decodeResponse(t, w).Error.Code)
	})
}

func TestAccountHandler_Get(t *testing.T) {
	router, accounts := setupAccountTestRouter()
	account := createTestAccount("1010", "Operating Cash", accounting.AccountTypeAsset)
	accounts.On("GetAccount", mock.Anything, testTenantID, account.ID).Return(account, nil)
	missing := uuid.New()
	accounts.On("GetAccount", mock.Anything, testTenantID, missing).Return(nil, shared.ErrNotFound)

	w := performRequest(router, http.MethodGet, "/accounts/"+account.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp AccountResponse
	decodeData(t, w, &resp)
	assert.Equal(t, account.ID.String(), resp.ID)

	w = performRequest(router, http.MethodGet, "/accounts/"+missing.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAccountHandler_Tree(t *testing.T) {
	router, accounts := setupAccountTestRouter()
	root := createTestAccount("1000", "Cash", accounting.AccountTypeAsset)
	child := createTestAccount("1010", "Operating Cash", accounting.AccountTypeAsset)
	child.ParentAccountID = &root.ID
	child.Depth = 1
	child.Path = "1000/1010"

	accounts.On("GetAccountTree", mock.Anything, testTenantID).Return([]*accounting.AccountTreeNode{
		{Account: root, Children: []*accounting.AccountTreeNode{{Account: child}}},
	}, nil)

	w := performRequest(router, http.MethodGet, "/accounts/tree", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var tree []AccountTreeResponse
	decodeData(t, w, &tree)
	require.Len(t, tree, 1)
	assert.Equal(t, "1000", tree[0].AccountNumber)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, "1000/1010", tree[0].Children[0].Path)
	assert.Empty(t, tree[0].Children[0].Children)
}

func TestAccountHandler_Changes(t *testing.T) {
	router, accounts := setupAccountTestRouter()
	accountID := uuid.New()
	by := testUserID
	accounts.On("ListAccountChanges", mock.Anything, testTenantID, accountID).Return([]*accounting.AccountChangeLog{
		{
			ID:        uuid.New(),
			AccountID: accountID,
			Action:    accounting.ChangeTypeChanged,
			Field:     "account_type",
			OldValue:  "expense",
			NewValue:  "asset",
			ChangedBy: &by,
			CreatedAt: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		},
	}, nil)

	w := performRequest(router, http.MethodGet, "/accounts/"+accountID.String()+"/changes", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var changes []AccountChangeResponse
	decodeData(t, w, &changes)
	require.Len(t, changes, 1)
	assert.Equal(t, "type_changed", changes[0].Action)
	assert.Equal(t, "2026-03-02T10:00:00Z", changes[0].CreatedAt)
	require.NotNil(t, changes[0].ChangedBy)
	assert.Equal(t, testUserID.String(), *changes[0].ChangedBy)
}

func TestAccountHandler_Merge(t *testing.T) {
	t.Run("should merge into the target", func(t *testing.T) {
		router, accounts := setupAccountTestRouter()
		source := createTestAccount("6100", "Office Supplies", accounting.AccountTypeExpense)
		source.Status = accounting.AccountStatusMerged
		target := createTestAccount("6000", "Office Expense", accounting.AccountTypeExpense)
		source.MergedIntoID = &target.ID

		accounts.On("MergeAccounts", mock.Anything, appaccounting.MergeAccountsCommand{
			TenantID: testTenantID,
			SourceID: source.ID,
			TargetID: target.ID,
			ActorID:  testUserID,
		}).Return(&appaccounting.MergeResult{
			Source: source, Target: target, ReparentedChildren: 2, LinesReassigned: 57,
			MappingsRepointed: 3, FallbacksRepointed: []accounting.FallbackSlot{accounting.SlotUncategorizedRevenue},
		}, nil)

		w := performRequest(router, http.MethodPost, "/accounts/"+source.ID.String()+"/merge",
			MergeAccountRequest{TargetAccountID: target.ID.String()})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp MergeAccountResponse
		decodeData(t, w, &resp)
		assert.Equal(t, "merged", resp.Source.Status)
		assert.Equal(t, 2, resp.ReparentedChildren)
		assert.Equal(t, int64(57), resp.LinesReassigned)
		assert.Equal(t, int64(3), resp.MappingsRepointed)
		assert.Equal(t, []string{"uncategorized_revenue"}, resp.FallbacksRepointed)
	})

	t.Run("should reject an invalid merge", func(t *testing.T) {
		router, accounts := setupAccountTestRouter()
		accounts.On("MergeAccounts", mock.Anything, mock.Anything).
			Return(nil, shared.NewDomainError(accounting.CodeInvalidMerge, "Account types differ"))

		w := performRequest(router, http.MethodPost, "/accounts/"+uuid.New().String()+"/merge",
			MergeAccountRequest{TargetAccountID: uuid.New().String()})

		assert.Equal(t, accounting.CodeInvalidMerge, decodeResponse(t, w).Error.Code)
	})
}

func TestAccountHandler_Deactivate(t *testing.T) {
	t.Run("should deactivate without a body", func(t *testing.T) {
		router, accounts := setupAccountTestRouter()
		account := createTestAccount("6100", "Office Supplies", accounting.AccountTypeExpense)
		account.IsActive = false
		account.Status = accounting.AccountStatusInactive
		accounts.On("DeactivateAccount", mock.Anything, testTenantID, account.ID, false, testUserID).Return(account, nil)

		w := performRequest(router, http.MethodPost, "/accounts/"+account.ID.String()+"/deactivate", nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp AccountResponse
		decodeData(t, w, &resp)
		assert.False(t, resp.IsActive)
		accounts.AssertExpectations(t)
	})

	t.Run("should pass the balance override", func(t *testing.T) {
		router, accounts := setupAccountTestRouter()
		account := createTestAccount("6100", "Office Supplies", accounting.AccountTypeExpense)
		accounts.On("DeactivateAccount", mock.Anything, testTenantID, account.ID, true, testUserID).Return(account, nil)

		w := performRequest(router, http.MethodPost, "/accounts/"+account.ID.String()+"/deactivate",
			DeactivateAccountRequest{Override: true})

		assert.Equal(t, http.StatusOK, w.Code)
		accounts.AssertExpectations(t)
	})

	t.Run("should refuse an account in use", func(t *testing.T) {
		router, accounts := setupAccountTestRouter()
		accounts.On("DeactivateAccount", mock.Anything, mock.Anything, mock.Anything, false, mock.Anything).
			Return(nil, shared.NewDomainError(accounting.CodeAccountInUse, "Account is a fallback account"))

		w := performRequest(router, http.MethodPost, "/accounts/"+uuid.New().String()+"/deactivate", nil)

		assert.Equal(t, accounting.CodeAccountInUse, decodeResponse(t, w).Error.Code)
	})
}
