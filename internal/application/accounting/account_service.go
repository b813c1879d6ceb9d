package accounting

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/erp/posting/internal/domain/accounting"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AccountService manages the chart of accounts. Structural changes recompute the
// hierarchy of the affected subtree in the same transaction as the change.
type AccountService struct {
	tx        TransactionScope
	accounts  accounting.AccountRepository
	changeLog accounting.AccountChangeLogRepository
	settings  SettingsCache
	logger    *zap.Logger
}

// NewAccountService creates an AccountService. The repositories are used for reads
// outside a transaction. settings is the cache a merge invalidates when it repoints a
// fallback; nil disables it.
func NewAccountService(
	tx TransactionScope,
	accounts accounting.AccountRepository,
	changeLog accounting.AccountChangeLogRepository,
	settings SettingsCache,
	logger *zap.Logger,
) *AccountService {
	if settings == nil {
		settings = noCache{}
	}
	return &AccountService{tx: tx, accounts: accounts, changeLog: changeLog, settings: settings, logger: logger}
}

// CreateAccountCommand describes a new account
type CreateAccountCommand struct {
	TenantID        uuid.UUID
	AccountNumber   string
	Name            string
	Description     string
	AccountType     accounting.AccountType
	ControlType     accounting.ControlAccountType
	ParentAccountID *uuid.UUID
	ActorID         uuid.UUID
}

// CreateAccount adds an account to the chart
func (s *AccountService) CreateAccount(ctx context.Context, cmd CreateAccountCommand) (*accounting.Account, error) {
	acct, err := accounting.NewAccount(cmd.TenantID, cmd.AccountNumber, cmd.Name, cmd.AccountType)
	if err != nil {
		return nil, err
	}
	acct.Description = strings.TrimSpace(cmd.Description)
	if err := acct.SetControlType(cmd.ControlType); err != nil {
		return nil, err
	}
	acct.SetCreatedBy(cmd.ActorID)

	err = s.tx.Execute(ctx, func(repos TransactionalRepositories) error {
		exists, err := repos.Accounts().ExistsByNumber(ctx, cmd.TenantID, acct.AccountNumber)
		if err != nil {
			return err
		}
		if exists {
			return accounting.ErrAccountNumberExists
		}

		if cmd.ParentAccountID != nil {
			all, err := repos.Accounts().FindAllForTenant(ctx, cmd.TenantID)
			if err != nil {
				return err
			}
			snapshot := accounting.NewAccountSnapshot(all)
			if !snapshot.Contains(*cmd.ParentAccountID) {
				return shared.NewDomainError(accounting.CodeAccountNotFound, "parent account not found")
			}
			parentID := *cmd.ParentAccountID
			acct.ParentAccountID = &parentID
			positions, err := accounting.RecomputeSubtree(snapshot.WithAccount(acct), acct.ID)
			if err != nil {
				return err
			}
			accounting.ApplyHierarchy([]*accounting.Account{acct}, positions)
		}

		if err := repos.Accounts().Save(ctx, acct); err != nil {
			return err
		}
		if err := repos.ChangeLog().Append(ctx, accounting.NewAccountChangeLog(acct, accounting.ChangeCreated, "", "", acct.AccountNumber, cmd.ActorID)); err != nil {
			return err
		}
		return repos.Outbox().Append(ctx, accounting.NewAccountCreatedEvent(acct))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("account created",
		zap.String("tenant_id", cmd.TenantID.String()),
		zap.String("account_id", acct.ID.String()),
		zap.String("account_number", acct.AccountNumber),
		zap.String("path", acct.Path),
	)
	return acct, nil
}

// UpdateAccountCommand changes an account. Nil fields are left as they are.
type UpdateAccountCommand struct {
	TenantID    uuid.UUID
	AccountID   uuid.UUID
	Name        *string
	Description *string
	AccountType *accounting.AccountType
	ControlType *accounting.ControlAccountType
	// ParentAccountID moves the account under a new parent; ClearParent makes it a root
	ParentAccountID *uuid.UUID
	ClearParent     bool
	ActorID         uuid.UUID
}

// UpdateAccount applies cmd. A type change is refused once the account has posted lines,
// and a new parent is checked for cycles before anything is written.
func (s *AccountService) UpdateAccount(ctx context.Context, cmd UpdateAccountCommand) (*accounting.Account, error) {
	var acct *accounting.Account
	err := s.tx.Execute(ctx, func(repos TransactionalRepositories) error {
		all, err := repos.Accounts().FindAllForTenant(ctx, cmd.TenantID)
		if err != nil {
			return err
		}
		acct = findAccount(all, cmd.AccountID)
		if acct == nil {
			return shared.NewDomainError(accounting.CodeAccountNotFound, "account not found")
		}

		var logs []*accounting.AccountChangeLog
		change := func(action accounting.AccountChangeAction, field, oldValue, newValue string) {
			if oldValue != newValue {
				logs = append(logs, accounting.NewAccountChangeLog(acct, action, field, oldValue, newValue, cmd.ActorID))
			}
		}

		if cmd.Name != nil {
			old := acct.Name
			if err := acct.Rename(*cmd.Name); err != nil {
				return err
			}
			change(accounting.ChangeUpdated, "name", old, acct.Name)
		}
		if cmd.Description != nil {
			change(accounting.ChangeUpdated, "description", acct.Description, strings.TrimSpace(*cmd.Description))
			acct.Description = strings.TrimSpace(*cmd.Description)
		}
		if cmd.AccountType != nil && *cmd.AccountType != acct.AccountType {
			posted, err := repos.Journals().CountPostedLines(ctx, cmd.TenantID, acct.ID)
			if err != nil {
				return err
			}
			old := acct.AccountType
			if err := acct.ChangeType(*cmd.AccountType, posted > 0); err != nil {
				return err
			}
			change(accounting.ChangeTypeChanged, "account_type", string(old), string(acct.AccountType))
		}
		if cmd.ControlType != nil {
			old := acct.ControlAccountType
			if err := acct.SetControlType(*cmd.ControlType); err != nil {
				return err
			}
			change(accounting.ChangeUpdated, "control_account_type", string(old), string(acct.ControlAccountType))
		}

		toSave := []*accounting.Account{acct}
		if cmd.ParentAccountID != nil || cmd.ClearParent {
			moved, err := reparent(all, acct, cmd.ParentAccountID)
			if err != nil {
				return err
			}
			change(accounting.ChangeReparented, "parent_account_id", idString(moved.oldParent), idString(acct.ParentAccountID))
			toSave = appendUnique(toSave, moved.changed...)
		}

		if err := repos.Accounts().SaveBatch(ctx, toSave); err != nil {
			return err
		}
		if len(logs) == 0 {
			return nil
		}
		return repos.ChangeLog().Append(ctx, logs...)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("account updated",
		zap.String("tenant_id", cmd.TenantID.String()),
		zap.String("account_id", acct.ID.String()),
	)
	return acct, nil
}

type reparentResult struct {
	oldParent *uuid.UUID
	changed   []*accounting.Account
}

// reparent points acct at newParent after a cycle check and recomputes its subtree
func reparent(all []*accounting.Account, acct *accounting.Account, newParent *uuid.UUID) (*reparentResult, error) {
	snapshot := accounting.NewAccountSnapshot(all)
	if err := accounting.DetectCycle(snapshot, acct.ID, newParent); err != nil {
		return nil, err
	}

	result := &reparentResult{oldParent: acct.ParentAccountID}
	if newParent != nil {
		id := *newParent
		acct.ParentAccountID = &id
	} else {
		acct.ParentAccountID = nil
	}
	acct.IncrementVersion()

	positions, err := accounting.RecomputeSubtree(snapshot.WithParent(acct.ID, acct.ParentAccountID), acct.ID)
	if err != nil {
		return nil, err
	}
	result.changed = accounting.ApplyHierarchy(all, positions)
	return result, nil
}

// MergeAccountsCommand retires Source into Target
type MergeAccountsCommand struct {
	TenantID uuid.UUID
	SourceID uuid.UUID
	TargetID uuid.UUID
	ActorID  uuid.UUID
}

// MergeResult reports what a merge touched
type MergeResult struct {
	Source             *accounting.Account
	Target             *accounting.Account
	ReparentedChildren int
	LinesReassigned    int64
	MappingsRepointed  int64
	// FallbacksRepointed lists the settings slots that pointed at the source
	FallbacksRepointed []accounting.FallbackSlot
}

// MergeAccounts reparents the source's children onto the target, moves every source line
// and every mapping or fallback that references the source to the target, retires the
// source and recomputes the target's subtree, in one transaction.
func (s *AccountService) MergeAccounts(ctx context.Context, cmd MergeAccountsCommand) (*MergeResult, error) {
	result := &MergeResult{}
	err := s.tx.Execute(ctx, func(repos TransactionalRepositories) error {
		all, err := repos.Accounts().FindAllForTenant(ctx, cmd.TenantID)
		if err != nil {
			return err
		}
		source, target := findAccount(all, cmd.SourceID), findAccount(all, cmd.TargetID)
		if source == nil || target == nil {
			return shared.NewDomainError(accounting.CodeAccountNotFound, "merge account not found")
		}
		if err := accounting.ValidateMerge(source, target); err != nil {
			return err
		}
		snapshot := accounting.NewAccountSnapshot(all)
		if accounting.IsDescendant(snapshot, source.ID, target.ID) {
			return shared.NewDomainError(accounting.CodeInvalidMerge, "target account is inside the source subtree")
		}

		if err := source.BeginMerge(target); err != nil {
			return err
		}

		var logs []*accounting.AccountChangeLog
		toSave := []*accounting.Account{source, target}
		targetID := target.ID
		for _, child := range all {
			if child.ParentAccountID == nil || *child.ParentAccountID != source.ID {
				continue
			}
			if err := accounting.DetectCycle(snapshot, child.ID, &targetID); err != nil {
				return err
			}
			snapshot = snapshot.WithParent(child.ID, &targetID)
			child.ParentAccountID = &targetID
			child.IncrementVersion()
			logs = append(logs, accounting.NewAccountChangeLog(child, accounting.ChangeReparented, "parent_account_id", source.ID.String(), targetID.String(), cmd.ActorID))
			toSave = appendUnique(toSave, child)
			result.ReparentedChildren++
		}

		moved, err := repos.Journals().ReassignLines(ctx, cmd.TenantID, source.ID, target.ID)
		if err != nil {
			return err
		}
		result.LinesReassigned = moved

		if result.MappingsRepointed, err = repos.Mappings().RepointAccount(ctx, cmd.TenantID, source.ID, target.ID); err != nil {
			return err
		}
		settings, err := repos.Settings().FindByTenant(ctx, cmd.TenantID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if settings != nil {
			if result.FallbacksRepointed = settings.RepointAccount(source.ID, target.ID); len(result.FallbacksRepointed) > 0 {
				if err := repos.Settings().Save(ctx, settings); err != nil {
					return err
				}
			}
		}

		source.CompleteMerge(target.ID)
		positions, err := accounting.RecomputeSubtree(snapshot, target.ID)
		if err != nil {
			return err
		}
		toSave = appendUnique(toSave, accounting.ApplyHierarchy(all, positions)...)

		if err := repos.Accounts().SaveBatch(ctx, toSave); err != nil {
			return err
		}
		logs = append(logs, accounting.NewAccountChangeLog(source, accounting.ChangeMerged, "merged_into_id", "", target.ID.String(), cmd.ActorID))
		if err := repos.ChangeLog().Append(ctx, logs...); err != nil {
			return err
		}
		if err := repos.Outbox().Append(ctx, source.PullDomainEvents()...); err != nil {
			return err
		}

		result.Source, result.Target = source, target
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(result.FallbacksRepointed) > 0 {
		s.settings.Invalidate(ctx, cmd.TenantID)
	}

	s.logger.Info("accounts merged",
		zap.String("tenant_id", cmd.TenantID.String()),
		zap.String("source_id", cmd.SourceID.String()),
		zap.String("target_id", cmd.TargetID.String()),
		zap.Int("reparented_children", result.ReparentedChildren),
		zap.Int64("lines_reassigned", result.LinesReassigned),
		zap.Int64("mappings_repointed", result.MappingsRepointed),
		zap.Any("fallbacks_repointed", result.FallbacksRepointed),
	)
	return result, nil
}

// DeactivateAccount retires an account. Accounts with non-voided lines need override;
// fallback and rounding accounts can never be deactivated.
func (s *AccountService) DeactivateAccount(ctx context.Context, tenantID, accountID uuid.UUID, override bool, actorID uuid.UUID) (*accounting.Account, error) {
	var acct *accounting.Account
	err := s.tx.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		acct, err = repos.Accounts().FindByID(ctx, tenantID, accountID)
		if err != nil {
			return err
		}

		settings, err := repos.Settings().FindByTenant(ctx, tenantID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if settings != nil {
			rounding := settings.EffectiveRoundingAccount()
			if settings.IsFallbackAccount(acct.ID) || (rounding != nil && *rounding == acct.ID) {
				return accounting.ErrFallbackAccountRequired
			}
		}

		if !override {
			active, err := repos.Journals().CountActiveLines(ctx, tenantID, acct.ID)
			if err != nil {
				return err
			}
			if active > 0 {
				return shared.NewDomainError(accounting.CodeAccountInUse,
					fmt.Sprintf("account %s has %d non-voided journal lines", acct.AccountNumber, active))
			}
		}

		if err := acct.Deactivate(); err != nil {
			return err
		}
		if err := repos.Accounts().Save(ctx, acct); err != nil {
			return err
		}
		return repos.ChangeLog().Append(ctx, accounting.NewAccountChangeLog(acct, accounting.ChangeDeactivated, "is_active", "true", "false", actorID))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("account deactivated",
		zap.String("tenant_id", tenantID.String()),
		zap.String("account_id", accountID.String()),
		zap.Bool("override", override),
	)
	return acct, nil
}

// GetAccount returns one account
func (s *AccountService) GetAccount(ctx context.Context, tenantID, accountID uuid.UUID) (*accounting.Account, error) {
	return s.accounts.FindByID(ctx, tenantID, accountID)
}

// GetAccountTree returns the tenant's chart as a tree
func (s *AccountService) GetAccountTree(ctx context.Context, tenantID uuid.UUID) ([]*accounting.AccountTreeNode, error) {
	all, err := s.accounts.FindAllForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return accounting.BuildTree(all), nil
}

// ListAccountChanges returns the change history of an account, oldest first
func (s *AccountService) ListAccountChanges(ctx context.Context, tenantID, accountID uuid.UUID) ([]*accounting.AccountChangeLog, error) {
	return s.changeLog.ListForAccount(ctx, tenantID, accountID)
}

func findAccount(all []*accounting.Account, id uuid.UUID) *accounting.Account {
	for _, a := range all {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func appendUnique(list []*accounting.Account, more ...*accounting.Account) []*accounting.Account {
	for _, m := range more {
		dup := false
		for _, a := range list {
			if a.ID == m.ID {
				dup = true
				break
			}
		}
		if !dup {
			list = append(list, m)
		}
	}
	return list
}

func idString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
