package accounting

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/posting/internal/domain/accounting"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SettingsDefaults seeds settings rows created on first use
type SettingsDefaults struct {
	BaseCurrency           string
	RoundingToleranceMinor int
	MaxEventRetries        int
}

// SettingsService bootstraps and maintains per-tenant accounting settings
type SettingsService struct {
	tx       TransactionScope
	cache    SettingsCache
	defaults SettingsDefaults
	logger   *zap.Logger
}

// NewSettingsService creates a SettingsService. A nil cache disables caching.
func NewSettingsService(tx TransactionScope, cache SettingsCache, defaults SettingsDefaults, logger *zap.Logger) *SettingsService {
	if cache == nil {
		cache = noCache{}
	}
	return &SettingsService{tx: tx, cache: cache, defaults: defaults, logger: logger}
}

// EnsureSettings returns the tenant's settings, creating them and the system chart of
// fallback accounts when absent, and healing any fallback slot left empty.
func (s *SettingsService) EnsureSettings(ctx context.Context, tenantID uuid.UUID) (*accounting.AccountingSettings, error) {
	if cached, ok := s.cache.Get(ctx, tenantID); ok && len(cached.Defaults.Missing()) == 0 {
		return cached, nil
	}

	var settings *accounting.AccountingSettings
	run := func() error {
		return s.tx.Execute(ctx, func(repos TransactionalRepositories) error {
			var err error
			settings, err = s.ensureInTx(ctx, repos, tenantID)
			return err
		})
	}

	err := run()
	if isConflict(err) {
		// Another delivery bootstrapped the same tenant concurrently; its rows are visible now.
		s.logger.Debug("settings bootstrap raced, retrying",
			zap.String("tenant_id", tenantID.String()),
		)
		err = run()
	}
	if err != nil {
		return nil, fmt.Errorf("ensure accounting settings: %w", err)
	}

	s.cache.Set(ctx, settings)
	return settings, nil
}

// GetSettings returns the tenant's settings, bootstrapping them if needed
func (s *SettingsService) GetSettings(ctx context.Context, tenantID uuid.UUID) (*accounting.AccountingSettings, error) {
	return s.EnsureSettings(ctx, tenantID)
}

// RetryBudget returns how many deliveries a consumer may attempt for the tenant's events.
// Lookup failures fall back to the default budget.
func (s *SettingsService) RetryBudget(ctx context.Context, tenantID uuid.UUID) int {
	settings, err := s.EnsureSettings(ctx, tenantID)
	if err != nil {
		s.logger.Warn("retry budget lookup failed, using default",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
		return shared.DefaultConsumerMaxRetries
	}
	return settings.RetryBudget()
}

// UpdateSettingsCommand changes tenant settings. Nil fields are left as they are.
type UpdateSettingsCommand struct {
	TenantID               uuid.UUID
	ExpectedVersion        int
	LockPeriodThrough      *string
	RoundingToleranceMinor *int
	RoundingAccountID      *uuid.UUID
	AutoPostMode           *accounting.AutoPostMode
	SupportedCurrencies    []string
	MaxEventRetries        *int
	Fallbacks              map[accounting.FallbackSlot]uuid.UUID
}

// UpdateSettings applies cmd and invalidates the cached copy
func (s *SettingsService) UpdateSettings(ctx context.Context, cmd UpdateSettingsCommand) (*accounting.AccountingSettings, error) {
	var settings *accounting.AccountingSettings
	err := s.tx.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		settings, err = s.ensureInTx(ctx, repos, cmd.TenantID)
		if err != nil {
			return err
		}
		if cmd.ExpectedVersion != 0 && cmd.ExpectedVersion != settings.Version {
			return shared.ErrConcurrencyConflict
		}
		if err := s.apply(ctx, repos, settings, cmd); err != nil {
			return err
		}
		return repos.Settings().Save(ctx, settings)
	})
	s.cache.Invalidate(ctx, cmd.TenantID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("accounting settings updated",
		zap.String("tenant_id", cmd.TenantID.String()),
		zap.Int("version", settings.Version),
		zap.String("lock_period_through", settings.LockPeriodThrough),
	)
	return settings, nil
}

func (s *SettingsService) apply(ctx context.Context, repos TransactionalRepositories, settings *accounting.AccountingSettings, cmd UpdateSettingsCommand) error {
	if cmd.LockPeriodThrough != nil {
		if err := settings.SetLockPeriod(*cmd.LockPeriodThrough); err != nil {
			return err
		}
	}
	if cmd.RoundingToleranceMinor != nil {
		if err := settings.SetRoundingTolerance(*cmd.RoundingToleranceMinor); err != nil {
			return err
		}
	}
	if cmd.AutoPostMode != nil {
		if err := settings.SetAutoPostMode(*cmd.AutoPostMode); err != nil {
			return err
		}
	}
	if cmd.SupportedCurrencies != nil {
		settings.SetSupportedCurrencies(cmd.SupportedCurrencies)
	}
	if cmd.MaxEventRetries != nil {
		if *cmd.MaxEventRetries < 1 {
			return shared.NewDomainError("INVALID_INPUT", "max event retries must be at least 1")
		}
		settings.MaxEventRetries = *cmd.MaxEventRetries
	}

	var referenced []uuid.UUID
	if cmd.RoundingAccountID != nil {
		referenced = append(referenced, *cmd.RoundingAccountID)
	}
	for _, id := range cmd.Fallbacks {
		referenced = append(referenced, id)
	}
	if err := requirePostable(ctx, repos.Accounts(), cmd.TenantID, referenced); err != nil {
		return err
	}

	if cmd.RoundingAccountID != nil {
		id := *cmd.RoundingAccountID
		settings.RoundingAccountID = &id
	}
	for slot, id := range cmd.Fallbacks {
		settings.SetFallback(slot, id)
	}
	return nil
}

func (s *SettingsService) ensureInTx(ctx context.Context, repos TransactionalRepositories, tenantID uuid.UUID) (*accounting.AccountingSettings, error) {
	settings, err := repos.Settings().FindByTenant(ctx, tenantID)
	fresh := false
	switch {
	case errors.Is(err, shared.ErrNotFound):
		settings = s.newDefaults(tenantID)
		fresh = true
	case err != nil:
		return nil, err
	}

	missing := settings.Defaults.Missing()
	if !fresh && len(missing) == 0 {
		return settings, nil
	}
	if err := s.bootstrapChart(ctx, repos, settings, missing); err != nil {
		return nil, err
	}
	if err := repos.Settings().Save(ctx, settings); err != nil {
		return nil, err
	}

	s.logger.Info("accounting settings bootstrapped",
		zap.String("tenant_id", tenantID.String()),
		zap.Bool("created", fresh),
		zap.Int("healed_slots", len(missing)),
	)
	return settings, nil
}

func (s *SettingsService) newDefaults(tenantID uuid.UUID) *accounting.AccountingSettings {
	settings := accounting.DefaultSettings(tenantID)
	if s.defaults.BaseCurrency != "" {
		settings.BaseCurrency = accounting.NormalizeCurrency(s.defaults.BaseCurrency)
		settings.SupportedCurrencies = []string{settings.BaseCurrency}
	}
	if s.defaults.RoundingToleranceMinor > 0 {
		settings.RoundingToleranceMinor = s.defaults.RoundingToleranceMinor
	}
	if s.defaults.MaxEventRetries > 0 {
		settings.MaxEventRetries = s.defaults.MaxEventRetries
	}
	return settings
}

// bootstrapChart fills the given fallback slots from the system chart, reusing an
// existing postable account with the template number when there is one.
func (s *SettingsService) bootstrapChart(ctx context.Context, repos TransactionalRepositories, settings *accounting.AccountingSettings, slots []accounting.FallbackSlot) error {
	wanted := make(map[accounting.FallbackSlot]bool, len(slots))
	for _, slot := range slots {
		wanted[slot] = true
	}

	for _, tpl := range accounting.DefaultChart {
		if !wanted[tpl.Slot] {
			continue
		}

		existing, err := repos.Accounts().FindByNumber(ctx, settings.TenantID, tpl.Number)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if existing != nil && existing.CanPost() && existing.AccountType == tpl.Type {
			settings.SetFallback(tpl.Slot, existing.ID)
			continue
		}

		number := tpl.Number
		for i := 1; existing != nil; i++ {
			number = fmt.Sprintf("%s-%d", tpl.Number, i)
			taken, err := repos.Accounts().ExistsByNumber(ctx, settings.TenantID, number)
			if err != nil {
				return err
			}
			if !taken {
				break
			}
		}

		acct, err := accounting.NewAccount(settings.TenantID, number, tpl.Name, tpl.Type)
		if err != nil {
			return err
		}
		if err := acct.SetControlType(tpl.ControlType); err != nil {
			return err
		}
		acct.IsSystem = true

		if err := repos.Accounts().Save(ctx, acct); err != nil {
			return err
		}
		if err := repos.ChangeLog().Append(ctx, accounting.NewAccountChangeLog(acct, accounting.ChangeCreated, "", "", acct.AccountNumber, uuid.Nil)); err != nil {
			return err
		}
		if err := repos.Outbox().Append(ctx, accounting.NewAccountCreatedEvent(acct)); err != nil {
			return err
		}
		settings.SetFallback(tpl.Slot, acct.ID)
	}
	return nil
}

// requirePostable checks that every id names a postable account of the tenant
func requirePostable(ctx context.Context, accounts accounting.AccountLookup, tenantID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := accounts.FindByIDs(ctx, tenantID, ids)
	if err != nil {
		return err
	}
	byID := make(map[uuid.UUID]*accounting.Account, len(found))
	for _, a := range found {
		byID[a.ID] = a
	}
	for _, id := range ids {
		a, ok := byID[id]
		if !ok {
			return shared.NewDomainError(accounting.CodeAccountNotFound, "account not found: "+id.String())
		}
		if !a.CanPost() {
			return shared.NewDomainError(accounting.CodeInactiveAccount, "account is not active: "+a.AccountNumber)
		}
	}
	return nil
}

func isConflict(err error) bool {
	return errors.Is(err, shared.ErrAlreadyExists) || errors.Is(err, accounting.ErrAccountNumberExists)
}
