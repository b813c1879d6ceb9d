package commands

import (
	"context"
	"errors"
	"fmt"

	appaccounting "github.com/erp/posting/internal/application/accounting"
	appevent "github.com/erp/posting/internal/application/event"
	"github.com/erp/posting/internal/domain/accounting"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/erp/posting/internal/infrastructure/cache"
	"github.com/erp/posting/internal/infrastructure/config"
	"github.com/erp/posting/internal/infrastructure/event"
	"github.com/erp/posting/internal/infrastructure/logger"
	"github.com/erp/posting/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Replayer re-runs the posting adapters over a tenant's business records.
type Replayer interface {
	Replay(ctx context.Context, cmd appaccounting.ReplayCommand) (*appaccounting.ReplayReport, error)
}

// DeadLetterAdmin lists and settles quarantined events.
type DeadLetterAdmin interface {
	ListDeadLetters(ctx context.Context, filter shared.DeadLetterFilter) (*shared.Paginated[*shared.DeadLetter], error)
	ReplayDeadLetter(ctx context.Context, tenantID, id, actorID uuid.UUID) (*shared.DeadLetter, error)
	ResolveDeadLetter(ctx context.Context, tenantID, id, actorID uuid.UUID, note string) (*shared.DeadLetter, error)
}

// SettingsBootstrapper creates a tenant's settings and fallback accounts when missing.
type SettingsBootstrapper interface {
	EnsureSettings(ctx context.Context, tenantID uuid.UUID) (*accounting.AccountingSettings, error)
}

// Backend is the set of services the subcommands drive.
type Backend struct {
	// Replays builds a replayer reading from source. Empty source means the configured one.
	Replays     func(source string) (Replayer, error)
	DeadLetters DeadLetterAdmin
	Settings    SettingsBootstrapper
	Close       func() error
}

// BackendFactory opens a Backend for one command invocation.
type BackendFactory func(ctx context.Context, opts *RootOptions) (*Backend, error)

// OpenBackend connects to the configured database and wires the posting services the
// same way the server does, without the HTTP surface or background processors.
func OpenBackend(ctx context.Context, opts *RootOptions) (*Backend, error) {
	cfg, err := config.LoadFrom(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(&logger.Config{
		Level:   cfg.Log.Level,
		Format:  "console",
		Output:  "stderr",
		Service: "postingctl",
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := persistence.Open(&cfg.Database,
		logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level)))
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	txScope := persistence.NewGormTransactionScope(db.DB, event.NewOutboxPublisher(serializer))
	consumerLedger := event.NewGormConsumerLedger(db.DB)
	policy := accounting.DefaultControlAccountPolicy()
	recorder := appaccounting.NopRecorder()

	settings := appaccounting.NewSettingsService(txScope, cache.NewInMemorySettingsCache(cache.WithInMemoryLogger(log)),
		appaccounting.SettingsDefaults{
			BaseCurrency:           cfg.Posting.DefaultCurrency,
			RoundingToleranceMinor: cfg.Posting.RoundingToleranceMinor,
			MaxEventRetries:        cfg.Event.ConsumerMaxRetries,
		}, log)
	reversal := appaccounting.NewReversalService(txScope, policy, recorder, log)

	deps := appaccounting.AdapterDeps{
		TX:               txScope,
		Settings:         settings,
		Reversal:         reversal,
		Policy:           policy,
		Recorder:         recorder,
		Logger:           log,
		RoundingCapMinor: int64(cfg.Posting.AdapterRoundingCapMinor),
	}
	adapters := []shared.NamedEventHandler{
		appaccounting.NewTenderAdapter(deps),
		appaccounting.NewReturnAdapter(deps),
		appaccounting.NewVoidAdapter(deps),
		appaccounting.NewMembershipAdapter(deps),
		appaccounting.NewACHAdapter(deps),
	}

	consumers := make([]*event.ConsumerLedgerHandler, 0, len(adapters))
	targets := make([]shared.EventHandler, 0, len(adapters))
	for _, adapter := range adapters {
		consumers = append(consumers, event.NewConsumerLedgerHandler(adapter, consumerLedger, serializer, log,
			event.WithRetryBudget(settings),
			event.WithStaleClaimAfter(cfg.Event.ClaimTimeout),
		))
		targets = append(targets, adapter)
	}

	return &Backend{
		Replays: func(source string) (Replayer, error) {
			if source == "" {
				source = cfg.Event.ReplaySource
			}
			if source == "" {
				return nil, errors.New("no replay source: pass --source or set event.replay_source")
			}
			return appaccounting.NewReplayService(event.NewFileRecordSource(source, serializer), log, targets...), nil
		},
		DeadLetters: appevent.NewDeadLetterService(consumerLedger, event.NewDeadLetterReplayer(serializer, consumers...), log),
		Settings:    settings,
		Close: func() error {
			err := db.Close()
			_ = logger.Sync(log)
			return err
		},
	}, nil
}

func withBackend(ctx context.Context, opts *RootOptions, open BackendFactory, fn func(*Backend) error) error {
	backend, err := open(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if backend.Close != nil {
			if cerr := backend.Close(); cerr != nil {
				zap.L().Warn("close backend", zap.Error(cerr))
			}
		}
	}()
	return fn(backend)
}
