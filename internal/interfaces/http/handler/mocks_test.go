package handler

import (
	"context"

	appaccounting "github.com/erp/posting/internal/application/accounting"
	appevent "github.com/erp/posting/internal/application/event"
	"github.com/erp/posting/internal/domain/accounting"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/erp/posting/internal/infrastructure/auth"
	"github.com/erp/posting/internal/infrastructure/event"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockJournalService is a mock implementation of JournalService
type MockJournalService struct {
	mock.Mock
}

func (m *MockJournalService) PostEntry(ctx context.Context, cmd appaccounting.PostEntryCommand) (*appaccounting.PostEntryResult, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appaccounting.PostEntryResult), args.Error(1)
}

func (m *MockJournalService) PostDraftEntry(ctx context.Context, tenantID, entryID, actorID uuid.UUID, hasControlPermission bool) (*accounting.JournalEntry, error) {
	args := m.Called(ctx, tenantID, entryID, actorID, hasControlPermission)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounting.JournalEntry), args.Error(1)
}

func (m *MockJournalService) VoidJournalEntry(ctx context.Context, cmd appaccounting.VoidEntryCommand) (*accounting.JournalEntry, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounting.JournalEntry), args.Error(1)
}

func (m *MockJournalService) GetJournalEntry(ctx context.Context, tenantID, entryID uuid.UUID) (*accounting.JournalEntry, error) {
	args := m.Called(ctx, tenantID, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounting.JournalEntry), args.Error(1)
}

func (m *MockJournalService) ListJournalEntries(ctx context.Context, tenantID uuid.UUID, filter accounting.JournalFilter) (*shared.Paginated[*accounting.JournalEntry], error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[*accounting.JournalEntry]), args.Error(1)
}

// MockControlAccountAuthorizer is a mock implementation of ControlAccountAuthorizer
type MockControlAccountAuthorizer struct {
	mock.Mock
}

func (m *MockControlAccountAuthorizer) CanPostControlAccounts(claims *auth.Claims) bool {
	args := m.Called(claims)
	return args.Bool(0)
}

// MockAccountService is a mock implementation of AccountService
type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) CreateAccount(ctx context.Context, cmd appaccounting.CreateAccountCommand) (*accounting.Account, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounting.Account), args.Error(1)
}

func (m *MockAccountService) UpdateAccount(ctx context.Context, cmd appaccounting.UpdateAccountCommand) (*accounting.Account, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounting.Account), args.Error(1)
}

func (m *MockAccountService) MergeAccounts(ctx context.Context, cmd appaccounting.MergeAccountsCommand) (*appaccounting.MergeResult, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appaccounting.MergeResult), args.Error(1)
}

func (m *MockAccountService) DeactivateAccount(ctx context.Context, tenantID, accountID uuid.UUID, override bool, actorID uuid.UUID) (*accounting.Account, error) {
	args := m.Called(ctx, tenantID, accountID, override, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounting.Account), args.Error(1)
}

func (m *MockAccountService) GetAccount(ctx context.Context, tenantID, accountID uuid.UUID) (*accounting.Account, error) {
	args := m.Called(ctx, tenantID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounting.Account), args.Error(1)
}

func (m *MockAccountService) GetAccountTree(ctx context.Context, tenantID uuid.UUID) ([]*accounting.AccountTreeNode, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*accounting.AccountTreeNode), args.Error(1)
}

func (m *MockAccountService) ListAccountChanges(ctx context.Context, tenantID, accountID uuid.UUID) ([]*accounting.AccountChangeLog, error) {
	args := m.Called(ctx, tenantID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*accounting.AccountChangeLog), args.Error(1)
}

// MockSettingsService is a mock implementation of SettingsService
type MockSettingsService struct {
	mock.Mock
}

func (m *MockSettingsService) GetSettings(ctx context.Context, tenantID uuid.UUID) (*accounting.AccountingSettings, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounting.AccountingSettings), args.Error(1)
}

func (m *MockSettingsService) UpdateSettings(ctx context.Context, cmd appaccounting.UpdateSettingsCommand) (*accounting.AccountingSettings, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounting.AccountingSettings), args.Error(1)
}

// MockMappingService is a mock implementation of MappingService
type MockMappingService struct {
	mock.Mock
}

func (m *MockMappingService) SaveSubDepartmentMapping(ctx context.Context, cmd appaccounting.SubDepartmentMappingCommand) (*accounting.SubDepartmentMapping, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounting.SubDepartmentMapping), args.Error(1)
}

func (m *MockMappingService) SavePaymentTypeMapping(ctx context.Context, tenantID uuid.UUID, paymentType string, clearingAccountID uuid.UUID) (*accounting.PaymentTypeMapping, error) {
	args := m.Called(ctx, tenantID, paymentType, clearingAccountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounting.PaymentTypeMapping), args.Error(1)
}

func (m *MockMappingService) SaveTaxGroupMapping(ctx context.Context, tenantID, taxGroupID, payableAccountID uuid.UUID) (*accounting.TaxGroupMapping, error) {
	args := m.Called(ctx, tenantID, taxGroupID, payableAccountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounting.TaxGroupMapping), args.Error(1)
}

func (m *MockMappingService) SaveDiscountMapping(ctx context.Context, tenantID uuid.UUID, classification string, contraAccountID uuid.UUID) (*accounting.DiscountMapping, error) {
	args := m.Called(ctx, tenantID, classification, contraAccountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounting.DiscountMapping), args.Error(1)
}

func (m *MockMappingService) ListUnmappedEvents(ctx context.Context, tenantID uuid.UUID, filter accounting.UnmappedFilter) (*shared.Paginated[*accounting.UnmappedEvent], error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[*accounting.UnmappedEvent]), args.Error(1)
}

func (m *MockMappingService) CountUnmappedByEntityType(ctx context.Context, tenantID uuid.UUID) (map[accounting.UnmappedEntityType]int64, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[accounting.UnmappedEntityType]int64), args.Error(1)
}

// MockEventInbox is a mock implementation of EventInbox
type MockEventInbox struct {
	mock.Mock
}

func (m *MockEventInbox) Accept(ctx context.Context, tenantID uuid.UUID, payload []byte) (*event.AcceptResult, error) {
	args := m.Called(ctx, tenantID, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.AcceptResult), args.Error(1)
}

// MockEventReplayer is a mock implementation of EventReplayer
type MockEventReplayer struct {
	mock.Mock
}

func (m *MockEventReplayer) Replay(ctx context.Context, cmd appaccounting.ReplayCommand) (*appaccounting.ReplayReport, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appaccounting.ReplayReport), args.Error(1)
}

// MockDeadLetterService is a mock implementation of DeadLetterService
type MockDeadLetterService struct {
	mock.Mock
}

func (m *MockDeadLetterService) ListDeadLetters(ctx context.Context, filter shared.DeadLetterFilter) (*shared.Paginated[*shared.DeadLetter], error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[*shared.DeadLetter]), args.Error(1)
}

func (m *MockDeadLetterService) GetDeadLetter(ctx context.Context, tenantID, id uuid.UUID) (*shared.DeadLetter, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.DeadLetter), args.Error(1)
}

func (m *MockDeadLetterService) ReplayDeadLetter(ctx context.Context, tenantID, id, actorID uuid.UUID) (*shared.DeadLetter, error) {
	args := m.Called(ctx, tenantID, id, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.DeadLetter), args.Error(1)
}

func (m *MockDeadLetterService) ResolveDeadLetter(ctx context.Context, tenantID, id, actorID uuid.UUID, note string) (*shared.DeadLetter, error) {
	args := m.Called(ctx, tenantID, id, actorID, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.DeadLetter), args.Error(1)
}

// MockOutboxService is a mock implementation of OutboxService
type MockOutboxService struct {
	mock.Mock
}

func (m *MockOutboxService) ListDeadEntries(ctx context.Context, page, pageSize int) (*shared.Paginated[*shared.OutboxEntry], error) {
	args := m.Called(ctx, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[*shared.OutboxEntry]), args.Error(1)
}

func (m *MockOutboxService) GetEntry(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.OutboxEntry), args.Error(1)
}

func (m *MockOutboxService) RetryDeadEntry(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.OutboxEntry), args.Error(1)
}

func (m *MockOutboxService) RetryAllDeadEntries(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOutboxService) GetStats(ctx context.Context) (*appevent.OutboxStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appevent.OutboxStats), args.Error(1)
}

// MockPinger is a mock implementation of Pinger
type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) PingContext(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
