package accounting

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/erp/posting/internal/domain/accounting"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// DefaultAdapterRoundingCapMinor is the largest allocation gap an adapter closes silently
const DefaultAdapterRoundingCapMinor = 100

// PostingOutcome reports what an adapter did with one event
type PostingOutcome struct {
	Status   string
	Entries  []*accounting.JournalEntry
	Unmapped int
	Detail   string
}

// AdapterDeps are the collaborators shared by every posting adapter
type AdapterDeps struct {
	TX       TransactionScope
	Settings *SettingsService
	Reversal *ReversalService
	Policy   *accounting.ControlAccountPolicy
	Recorder PostingRecorder
	Logger   *zap.Logger
	// RoundingCapMinor bounds the adapter rounding line before it is flagged for review
	RoundingCapMinor int64
}

// adapterBase holds the boundary and posting plumbing used by the concrete adapters
type adapterBase struct {
	name     string
	tx       TransactionScope
	settings *SettingsService
	poster   *journalPoster
	recorder PostingRecorder
	logger   *zap.Logger
	roundCap decimal.Decimal
}

func newAdapterBase(name string, deps AdapterDeps) adapterBase {
	recorder := deps.Recorder
	if recorder == nil {
		recorder = NopRecorder()
	}
	roundCap := deps.RoundingCapMinor
	if roundCap <= 0 {
		roundCap = DefaultAdapterRoundingCapMinor
	}
	return adapterBase{
		name:     name,
		tx:       deps.TX,
		settings: deps.Settings,
		poster:   newJournalPoster(deps.Policy, recorder, deps.Logger),
		recorder: recorder,
		logger:   deps.Logger.With(zap.String("consumer", name)),
		roundCap: accounting.FromMinor(roundCap),
	}
}

// ConsumerName keys the consumer ledger
func (b *adapterBase) ConsumerName() string { return b.name }

// insufficientLinesError is raised when fallbacks left too little to post
type insufficientLinesError struct {
	count int
}

func (e *insufficientLinesError) Error() string {
	return fmt.Sprintf("posting produced %d journal lines, at least 2 are required", e.count)
}

// boundary runs inner and turns any error or panic into a critical unmapped row.
// It returns an error only when that row cannot be written.
func (b *adapterBase) boundary(
	ctx context.Context,
	event shared.DomainEvent,
	source accounting.SourceModule,
	reference string,
	inner func(context.Context) (PostingOutcome, error),
) error {
	ctx, span := tracer.Start(ctx, "accounting.adapter."+b.name)
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant_id", event.TenantID().String()),
		attribute.String("event_id", event.EventID().String()),
		attribute.String("event_type", event.EventType()),
	)

	log := b.logger.With(
		zap.String("tenant_id", event.TenantID().String()),
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.String("source_module", string(source)),
		zap.String("source_reference_id", reference),
	)

	start := time.Now()
	outcome, err := b.safely(ctx, inner)
	if err == nil {
		b.recorder.RecordPosting(ctx, event.TenantID(), source, outcome.Status, time.Since(start))
		log.Info("event processed",
			zap.String("outcome", outcome.Status),
			zap.Int("entries", len(outcome.Entries)),
			zap.Int("unmapped", outcome.Unmapped),
		)
		return nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	b.recorder.RecordPosting(ctx, event.TenantID(), source, OutcomeFailed, time.Since(start))
	log.Error("posting failed, event recorded as unmapped", zap.Error(err))

	entityType, entityID := classifyFailure(err, reference)
	row := accounting.NewCriticalUnmappedEvent(unmappedContext(event, source, reference), entityType, entityID, err.Error())
	if werr := b.tx.Execute(ctx, func(repos TransactionalRepositories) error {
		return repos.Unmapped().Append(ctx, row)
	}); werr != nil {
		log.Error("failed to record unmapped event", zap.Error(werr))
		return fmt.Errorf("record unmapped event %s: %w", event.EventID(), werr)
	}
	b.recorder.RecordUnmapped(ctx, event.TenantID(), entityType, accounting.SeverityCritical)
	return nil
}

func (b *adapterBase) safely(ctx context.Context, inner func(context.Context) (PostingOutcome, error)) (outcome PostingOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("posting adapter panicked", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("%s adapter panic: %v", b.name, r)
		}
	}()
	return inner(ctx)
}

func classifyFailure(err error, reference string) (accounting.UnmappedEntityType, string) {
	var missing *accounting.MissingMappingError
	if errors.As(err, &missing) {
		return missing.EntityType, missing.EntityID
	}
	var short *insufficientLinesError
	if errors.As(err, &short) {
		return accounting.EntityConfiguration, reference
	}
	return accounting.EntityJournal, reference
}

func unmappedContext(event shared.DomainEvent, source accounting.SourceModule, reference string) accounting.UnmappedContext {
	id := event.EventID()
	return accounting.UnmappedContext{
		TenantID:          event.TenantID(),
		EventID:           &id,
		EventType:         event.EventType(),
		SourceModule:      source,
		SourceReferenceID: reference,
	}
}

// postingPlan is the header of the entry an adapter is about to build
type postingPlan struct {
	Source       accounting.SourceModule
	Reference    string
	Correlation  string
	BusinessDate time.Time
	Currency     string
	Memo         string
	Dimensions   accounting.LineDimensions
}

// postingScope is the per-transaction state of one adapter invocation: the resolver
// bound to the transaction, the fallback warnings raised so far and the lines built.
type postingScope struct {
	repos    TransactionalRepositories
	resolver *MappingResolver
	settings *accounting.AccountingSettings
	unmapped accounting.UnmappedContext
	lines    *lineBuilder
	warnings []*accounting.UnmappedEvent
	seen     map[string]struct{}
}

func newPostingScope(repos TransactionalRepositories, settings *accounting.AccountingSettings, uctx accounting.UnmappedContext, dims accounting.LineDimensions) *postingScope {
	return &postingScope{
		repos:    repos,
		resolver: NewMappingResolver(repos.Mappings(), repos.Unmapped()),
		settings: settings,
		unmapped: uctx,
		lines:    newLineBuilder(dims),
		seen:     map[string]struct{}{},
	}
}

// fallback returns the tenant's account for slot. An unset slot is a configuration gap
// nothing can absorb.
func (s *postingScope) fallback(slot accounting.FallbackSlot) (uuid.UUID, error) {
	id := s.settings.Fallback(slot)
	if id == nil {
		return uuid.Nil, accounting.NewMissingMappingError(accounting.EntityConfiguration, string(slot))
	}
	return *id, nil
}

// orFallback returns mapped when set, otherwise the slot account, recording one warning
// per entity for the event.
func (s *postingScope) orFallback(mapped *uuid.UUID, entityType accounting.UnmappedEntityType, entityID string, slot accounting.FallbackSlot) (uuid.UUID, error) {
	if mapped != nil {
		return *mapped, nil
	}
	id, err := s.fallback(slot)
	if err != nil {
		return uuid.Nil, err
	}
	s.warn(entityType, entityID, id, fmt.Sprintf("no %s mapping, posted to %s fallback", entityType, slot))
	return id, nil
}

func (s *postingScope) warn(entityType accounting.UnmappedEntityType, entityID string, fallback uuid.UUID, reason string) {
	key := string(entityType) + "/" + entityID
	if _, dup := s.seen[key]; dup {
		return
	}
	s.seen[key] = struct{}{}
	fb := fallback
	s.warnings = append(s.warnings, accounting.NewUnmappedEvent(s.unmapped, entityType, entityID, &fb, reason))
}

// reconcile closes the allocation gap against the rounding account, or uncategorized
// revenue when none is configured. Gaps above roundCap are flagged for review.
func (s *postingScope) reconcile(roundCap decimal.Decimal) (decimal.Decimal, error) {
	if s.lines.debits.Equal(s.lines.credits) {
		return decimal.Zero, nil
	}
	account := s.settings.EffectiveRoundingAccount()
	if account == nil {
		id, err := s.fallback(accounting.SlotUncategorizedRevenue)
		if err != nil {
			return decimal.Zero, err
		}
		account = &id
	}
	gap := s.lines.reconcile(*account)
	if gap.GreaterThan(roundCap) {
		s.warn(accounting.EntityConfiguration, "rounding", *account,
			fmt.Sprintf("allocation gap %s exceeds the rounding cap %s", gap.StringFixed(2), roundCap.StringFixed(2)))
	}
	return gap, nil
}

// post resolves settings, builds the lines with build and commits them in one
// transaction together with the fallback warnings. A source reference that already
// holds an entry is reported as a duplicate without building anything.
func (b *adapterBase) post(
	ctx context.Context,
	event shared.DomainEvent,
	plan postingPlan,
	build func(ctx context.Context, scope *postingScope) error,
) (PostingOutcome, error) {
	settings, err := b.settings.EnsureSettings(ctx, event.TenantID())
	if err != nil {
		return PostingOutcome{}, fmt.Errorf("load settings: %w", err)
	}

	var (
		outcome  PostingOutcome
		warnings []*accounting.UnmappedEvent
		rounded  decimal.Decimal
	)
	err = b.tx.Execute(ctx, func(repos TransactionalRepositories) error {
		existing, err := repos.Journals().FindActiveBySource(ctx, event.TenantID(), plan.Source, plan.Reference)
		if err == nil {
			outcome = PostingOutcome{Status: OutcomeDuplicate, Entries: []*accounting.JournalEntry{existing}}
			return nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		// Adapters never re-post a voided source key; manual entries may
		voided, err := repos.Journals().FindBySourceIncludingVoided(ctx, event.TenantID(), plan.Source, plan.Reference)
		if err != nil {
			return err
		}
		if len(voided) > 0 {
			outcome = PostingOutcome{Status: OutcomeSkipped, Entries: voided, Detail: "source reference was voided"}
			return nil
		}

		scope := newPostingScope(repos, settings, unmappedContext(event, plan.Source, plan.Reference), plan.Dimensions)
		if err := build(ctx, scope); err != nil {
			return err
		}
		if rounded, err = scope.reconcile(b.roundCap); err != nil {
			return err
		}
		lines := scope.lines.proposed()
		if len(lines) < 2 {
			return &insufficientLinesError{count: len(lines)}
		}

		result, err := b.poster.post(ctx, repos, PostEntryCommand{
			TenantID:          event.TenantID(),
			BusinessDate:      plan.BusinessDate,
			SourceModule:      plan.Source,
			SourceReferenceID: plan.Reference,
			CorrelationID:     plan.Correlation,
			Currency:          plan.Currency,
			Memo:              plan.Memo,
			Lines:             lines,
		})
		if err != nil {
			return err
		}
		if err := scope.resolver.RecordUnmapped(ctx, scope.warnings...); err != nil {
			return err
		}
		warnings = scope.warnings
		outcome = PostingOutcome{
			Status:   outcomeOf(result),
			Entries:  []*accounting.JournalEntry{result.Entry},
			Unmapped: len(scope.warnings),
		}
		return nil
	})
	if errors.Is(err, accounting.ErrDuplicatePosting) {
		return PostingOutcome{Status: OutcomeDuplicate, Detail: "source reference taken concurrently"}, nil
	}
	if err != nil {
		return PostingOutcome{}, err
	}

	for _, w := range warnings {
		b.recorder.RecordUnmapped(ctx, event.TenantID(), w.EntityType, w.Severity)
		b.logger.Warn("fallback account used",
			zap.String("tenant_id", event.TenantID().String()),
			zap.String("source_reference_id", plan.Reference),
			zap.String("entity_type", string(w.EntityType)),
			zap.String("entity_id", w.EntityID),
		)
	}
	if !rounded.IsZero() {
		b.recorder.RecordRoundingLine(ctx, event.TenantID(), plan.Source, RoundingStageAdapter)
		if rounded.GreaterThan(b.roundCap) {
			b.logger.Warn("allocation rounding exceeded cap",
				zap.String("tenant_id", event.TenantID().String()),
				zap.String("source_reference_id", plan.Reference),
				zap.String("gap", rounded.StringFixed(2)),
				zap.String("cap", b.roundCap.StringFixed(2)),
			)
		}
	}
	return outcome, nil
}
