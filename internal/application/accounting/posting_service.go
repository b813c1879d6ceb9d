package accounting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/posting/internal/domain/accounting"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/erp/posting/internal/application/accounting")

// PostEntryCommand is the input to the posting API
type PostEntryCommand struct {
	TenantID          uuid.UUID
	BusinessDate      time.Time
	SourceModule      accounting.SourceModule
	SourceReferenceID string
	CorrelationID     string
	Currency          string
	ExchangeRate      *decimal.Decimal
	Memo              string
	Lines             []accounting.ProposedLine
	// ForcePost posts even when the tenant is in draft-only mode
	ForcePost                   bool
	ActorID                     uuid.UUID
	HasControlAccountPermission bool
}

// PostEntryResult is the committed entry. AlreadyPosted is true when the source
// reference was already held and the existing entry is returned instead.
type PostEntryResult struct {
	Entry         *accounting.JournalEntry
	AlreadyPosted bool
	Warnings      []string
}

// journalPoster validates and commits journal entries inside a caller's transaction.
// The posting service, the reversal service and every adapter share it.
type journalPoster struct {
	policy   *accounting.ControlAccountPolicy
	recorder PostingRecorder
	logger   *zap.Logger
}

func newJournalPoster(policy *accounting.ControlAccountPolicy, recorder PostingRecorder, logger *zap.Logger) *journalPoster {
	if recorder == nil {
		recorder = NopRecorder()
	}
	return &journalPoster{policy: policy, recorder: recorder, logger: logger}
}

func (p *journalPoster) validator(repos TransactionalRepositories) *accounting.JournalValidator {
	return accounting.NewJournalValidator(repos.Accounts(), repos.Settings(), p.policy)
}

// post runs the validator and writes entry, lines, audit row and outbox events using repos
func (p *journalPoster) post(ctx context.Context, repos TransactionalRepositories, cmd PostEntryCommand) (*PostEntryResult, error) {
	existing, err := repos.Journals().FindActiveBySource(ctx, cmd.TenantID, cmd.SourceModule, cmd.SourceReferenceID)
	if err == nil {
		return &PostEntryResult{Entry: existing, AlreadyPosted: true}, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	validated, err := p.validator(repos).Validate(ctx, accounting.ValidationRequest{
		TenantID:                    cmd.TenantID,
		BusinessDate:                cmd.BusinessDate,
		SourceModule:                cmd.SourceModule,
		Currency:                    cmd.Currency,
		ExchangeRate:                cmd.ExchangeRate,
		Lines:                       cmd.Lines,
		HasControlAccountPermission: cmd.HasControlAccountPermission,
	})
	if err != nil {
		return nil, err
	}
	for _, w := range validated.Warnings {
		p.logger.Warn("journal validation warning",
			zap.String("tenant_id", cmd.TenantID.String()),
			zap.String("source_module", string(cmd.SourceModule)),
			zap.String("warning", w),
		)
	}
	if validated.RoundingLine != nil {
		p.recorder.RecordRoundingLine(ctx, cmd.TenantID, cmd.SourceModule, RoundingStageValidator)
	}

	entry, err := accounting.NewJournalEntry(accounting.JournalDraft{
		TenantID:          cmd.TenantID,
		BusinessDate:      cmd.BusinessDate,
		SourceModule:      cmd.SourceModule,
		SourceReferenceID: cmd.SourceReferenceID,
		CorrelationID:     cmd.CorrelationID,
		Memo:              cmd.Memo,
		CreatedBy:         cmd.ActorID,
	}, validated)
	if err != nil {
		return nil, err
	}

	action := accounting.AuditJournalDraftCreated
	if cmd.ForcePost || validated.Settings.AutoPostMode == accounting.AutoPostModeAutoPost {
		if err := entry.Post(time.Now()); err != nil {
			return nil, err
		}
		action = accounting.AuditJournalPosted
	}

	if err := p.commit(ctx, repos, entry, action, cmd.ActorID, ""); err != nil {
		return nil, err
	}
	return &PostEntryResult{Entry: entry, Warnings: validated.Warnings}, nil
}

// commit inserts a new entry with its audit row and pending events
func (p *journalPoster) commit(ctx context.Context, repos TransactionalRepositories, entry *accounting.JournalEntry, action accounting.AuditAction, actor uuid.UUID, detail string) error {
	if err := repos.Journals().Create(ctx, entry); err != nil {
		return err
	}
	return p.record(ctx, repos, entry, action, actor, detail)
}

// record writes the audit row and flushes pending domain events to the outbox
func (p *journalPoster) record(ctx context.Context, repos TransactionalRepositories, entry *accounting.JournalEntry, action accounting.AuditAction, actor uuid.UUID, detail string) error {
	if err := repos.Audit().Append(ctx, accounting.NewJournalAudit(entry, action, actor, detail)); err != nil {
		return err
	}
	if events := entry.PullDomainEvents(); len(events) > 0 {
		return repos.Outbox().Append(ctx, events...)
	}
	return nil
}

// PostingService is the synchronous posting API used by manual entry and other modules
type PostingService struct {
	tx       TransactionScope
	journals accounting.JournalRepository
	poster   *journalPoster
	reversal *ReversalService
	logger   *zap.Logger
}

// NewPostingService creates a PostingService. journals is used for reads outside a transaction.
func NewPostingService(
	tx TransactionScope,
	journals accounting.JournalRepository,
	reversal *ReversalService,
	policy *accounting.ControlAccountPolicy,
	recorder PostingRecorder,
	logger *zap.Logger,
) *PostingService {
	return &PostingService{
		tx:       tx,
		journals: journals,
		poster:   newJournalPoster(policy, recorder, logger),
		reversal: reversal,
		logger:   logger,
	}
}

// PostEntry validates and commits a journal entry. Validation failures are returned as
// typed accounting errors. Posting a source reference that already holds a non-voided
// entry returns that entry with AlreadyPosted set.
func (s *PostingService) PostEntry(ctx context.Context, cmd PostEntryCommand) (*PostEntryResult, error) {
	ctx, span := tracer.Start(ctx, "accounting.PostEntry")
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant_id", cmd.TenantID.String()),
		attribute.String("source_module", string(cmd.SourceModule)),
		attribute.String("source_reference_id", cmd.SourceReferenceID),
	)

	start := time.Now()
	var result *PostEntryResult
	err := s.tx.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		result, err = s.poster.post(ctx, repos, cmd)
		return err
	})
	if errors.Is(err, accounting.ErrDuplicatePosting) {
		// Lost an insert race on the source reference index
		existing, findErr := s.journals.FindActiveBySource(ctx, cmd.TenantID, cmd.SourceModule, cmd.SourceReferenceID)
		if findErr == nil {
			result, err = &PostEntryResult{Entry: existing, AlreadyPosted: true}, nil
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.poster.recorder.RecordPosting(ctx, cmd.TenantID, cmd.SourceModule, OutcomeFailed, time.Since(start))
		return nil, err
	}

	outcome := outcomeOf(result)
	s.poster.recorder.RecordPosting(ctx, cmd.TenantID, cmd.SourceModule, outcome, time.Since(start))
	s.logger.Info("journal entry committed",
		zap.String("tenant_id", cmd.TenantID.String()),
		zap.String("entry_id", result.Entry.ID.String()),
		zap.String("entry_number", result.Entry.EntryNumber),
		zap.String("source_module", string(cmd.SourceModule)),
		zap.String("source_reference_id", cmd.SourceReferenceID),
		zap.String("outcome", outcome),
	)
	return result, nil
}

// PostDraftEntry re-validates a draft against current settings and posts it
func (s *PostingService) PostDraftEntry(ctx context.Context, tenantID, entryID, actorID uuid.UUID, hasControlPermission bool) (*accounting.JournalEntry, error) {
	var entry *accounting.JournalEntry
	err := s.tx.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		entry, err = repos.Journals().FindByID(ctx, tenantID, entryID)
		if err != nil {
			return err
		}
		if entry.Status != accounting.JournalStatusDraft {
			return shared.NewDomainError("INVALID_STATE", "only draft entries can be posted")
		}

		lines := make([]accounting.ProposedLine, 0, len(entry.Lines))
		for _, l := range entry.Lines {
			lines = append(lines, accounting.ProposedLine{
				AccountID:  l.AccountID,
				Debit:      l.Debit.StringFixed(accounting.MinorUnitScale),
				Credit:     l.Credit.StringFixed(accounting.MinorUnitScale),
				Memo:       l.Memo,
				IsRounding: l.IsRounding,
				Dimensions: l.Dimensions,
			})
		}
		rate := entry.ExchangeRate
		if _, err := s.poster.validator(repos).Validate(ctx, accounting.ValidationRequest{
			TenantID:                    tenantID,
			BusinessDate:                entry.BusinessDate,
			SourceModule:                entry.SourceModule,
			Currency:                    entry.Currency,
			ExchangeRate:                &rate,
			Lines:                       lines,
			HasControlAccountPermission: hasControlPermission,
		}); err != nil {
			return err
		}

		if err := entry.Post(time.Now()); err != nil {
			return err
		}
		if err := repos.Journals().Update(ctx, entry); err != nil {
			return err
		}
		return s.poster.record(ctx, repos, entry, accounting.AuditJournalPosted, actorID, "draft posted")
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("draft journal entry posted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("entry_id", entryID.String()),
	)
	return entry, nil
}

// VoidEntryCommand voids a posted entry by posting its reversal
type VoidEntryCommand struct {
	TenantID uuid.UUID
	EntryID  uuid.UUID
	Reason   string
	ActorID  uuid.UUID
	// VoidDate is the business date of the reversal, today when zero
	VoidDate time.Time
}

// VoidJournalEntry posts the reversal of a posted entry and marks the original voided
func (s *PostingService) VoidJournalEntry(ctx context.Context, cmd VoidEntryCommand) (*accounting.JournalEntry, error) {
	return s.reversal.ReverseEntry(ctx, cmd)
}

// GetJournalEntry returns one entry with its lines
func (s *PostingService) GetJournalEntry(ctx context.Context, tenantID, entryID uuid.UUID) (*accounting.JournalEntry, error) {
	return s.journals.FindByID(ctx, tenantID, entryID)
}

// ListJournalEntries returns a page of entries
func (s *PostingService) ListJournalEntries(ctx context.Context, tenantID uuid.UUID, filter accounting.JournalFilter) (*shared.Paginated[*accounting.JournalEntry], error) {
	filter.Clamp()
	entries, total, err := s.journals.List(ctx, tenantID, filter)
	if err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	page := shared.NewPaginated(entries, total, filter.Page, filter.PageSize)
	return &page, nil
}

func outcomeOf(r *PostEntryResult) string {
	switch {
	case r.AlreadyPosted:
		return OutcomeDuplicate
	case r.Entry.Status == accounting.JournalStatusDraft:
		return OutcomeDrafted
	default:
		return OutcomePosted
	}
}
