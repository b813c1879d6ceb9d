package accounting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/erp/posting/internal/domain/accounting"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReversalService voids posted entries by posting mirror-image reversal entries
type ReversalService struct {
	tx     TransactionScope
	poster *journalPoster
	logger *zap.Logger
}

// NewReversalService creates a ReversalService
func NewReversalService(tx TransactionScope, policy *accounting.ControlAccountPolicy, recorder PostingRecorder, logger *zap.Logger) *ReversalService {
	return &ReversalService{
		tx:     tx,
		poster: newJournalPoster(policy, recorder, logger),
		logger: logger,
	}
}

// ReverseEntry voids one posted entry in its own transaction
func (s *ReversalService) ReverseEntry(ctx context.Context, cmd VoidEntryCommand) (*accounting.JournalEntry, error) {
	if strings.TrimSpace(cmd.Reason) == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "a void reason is required")
	}

	var reversal *accounting.JournalEntry
	err := s.tx.Execute(ctx, func(repos TransactionalRepositories) error {
		original, err := repos.Journals().FindByID(ctx, cmd.TenantID, cmd.EntryID)
		if err != nil {
			return err
		}
		reversal, err = s.reverseInTx(ctx, repos, original, cmd)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("journal entry voided",
		zap.String("tenant_id", cmd.TenantID.String()),
		zap.String("entry_id", cmd.EntryID.String()),
		zap.String("reversal_id", reversal.ID.String()),
		zap.String("reason", cmd.Reason),
	)
	return reversal, nil
}

// reverseInTx builds, validates and commits the reversal of original and marks it voided.
// The reversal is dated on the void date and carries the original's currency and rate.
func (s *ReversalService) reverseInTx(ctx context.Context, repos TransactionalRepositories, original *accounting.JournalEntry, cmd VoidEntryCommand) (*accounting.JournalEntry, error) {
	if original.Status != accounting.JournalStatusPosted {
		return nil, accounting.ErrEntryNotPosted
	}

	voidDate := cmd.VoidDate
	if voidDate.IsZero() {
		voidDate = time.Now()
	}
	rate := original.ExchangeRate

	validated, err := s.poster.validator(repos).Validate(ctx, accounting.ValidationRequest{
		TenantID:     original.TenantID,
		BusinessDate: voidDate,
		SourceModule: accounting.SourceReversal,
		Currency:     original.Currency,
		ExchangeRate: &rate,
		Lines:        original.ReversalLines(),
	})
	if err != nil {
		return nil, err
	}

	reversal, err := accounting.NewJournalEntry(accounting.JournalDraft{
		TenantID:          original.TenantID,
		BusinessDate:      voidDate,
		SourceModule:      accounting.SourceReversal,
		SourceReferenceID: original.ID.String(),
		CorrelationID:     original.CorrelationID,
		Memo:              fmt.Sprintf("Reversal of %s: %s", original.EntryNumber, cmd.Reason),
		CreatedBy:         cmd.ActorID,
	}, validated)
	if err != nil {
		return nil, err
	}
	originalID := original.ID
	reversal.ReversalOfID = &originalID

	now := time.Now()
	if err := reversal.Post(now); err != nil {
		return nil, err
	}
	if err := original.MarkVoided(reversal, cmd.Reason, now); err != nil {
		return nil, err
	}

	if err := s.poster.commit(ctx, repos, reversal, accounting.AuditJournalPosted, cmd.ActorID, "reversal of "+original.EntryNumber); err != nil {
		return nil, err
	}
	if err := repos.Journals().Update(ctx, original); err != nil {
		return nil, err
	}
	if err := s.poster.record(ctx, repos, original, accounting.AuditJournalVoided, cmd.ActorID, cmd.Reason); err != nil {
		return nil, err
	}
	return reversal, nil
}

// CorrelationVoidResult summarizes a multi-entry void
type CorrelationVoidResult struct {
	Reversed  []*accounting.JournalEntry
	Discarded []*accounting.JournalEntry
	Failed    map[uuid.UUID]error
}

// VoidEntriesForCorrelation reverses every posted entry of the given sources carrying
// correlationID and discards every draft. Each entry is handled in its own transaction
// and a failure on one does not stop the others. No matching entries is a no-op.
func (s *ReversalService) VoidEntriesForCorrelation(
	ctx context.Context,
	tenantID uuid.UUID,
	sources []accounting.SourceModule,
	correlationID string,
	reason string,
	actorID uuid.UUID,
	voidDate time.Time,
) (*CorrelationVoidResult, error) {
	var entries, drafts []*accounting.JournalEntry
	err := s.tx.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		if entries, err = repos.Journals().FindPostedByCorrelation(ctx, tenantID, sources, correlationID); err != nil {
			return err
		}
		drafts, err = repos.Journals().FindDraftsByCorrelation(ctx, tenantID, sources, correlationID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("find entries for %s: %w", correlationID, err)
	}

	result := &CorrelationVoidResult{Failed: map[uuid.UUID]error{}}
	for _, candidate := range drafts {
		draft, err := s.discard(ctx, candidate, reason, actorID)
		if err != nil {
			s.logger.Error("failed to discard draft journal entry",
				zap.String("tenant_id", tenantID.String()),
				zap.String("entry_id", candidate.ID.String()),
				zap.String("correlation_id", correlationID),
				zap.Error(err),
			)
			result.Failed[candidate.ID] = err
			continue
		}
		result.Discarded = append(result.Discarded, draft)
	}
	for _, entry := range entries {
		reversal, err := s.ReverseEntry(ctx, VoidEntryCommand{
			TenantID: tenantID,
			EntryID:  entry.ID,
			Reason:   reason,
			ActorID:  actorID,
			VoidDate: voidDate,
		})
		if err != nil {
			s.logger.Error("failed to reverse journal entry",
				zap.String("tenant_id", tenantID.String()),
				zap.String("entry_id", entry.ID.String()),
				zap.String("correlation_id", correlationID),
				zap.Error(err),
			)
			result.Failed[entry.ID] = err
			continue
		}
		result.Reversed = append(result.Reversed, reversal)
	}
	return result, nil
}

func (s *ReversalService) discard(ctx context.Context, candidate *accounting.JournalEntry, reason string, actorID uuid.UUID) (*accounting.JournalEntry, error) {
	var draft *accounting.JournalEntry
	err := s.tx.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		if draft, err = repos.Journals().FindByID(ctx, candidate.TenantID, candidate.ID); err != nil {
			return err
		}
		if err := draft.Discard(reason, time.Now()); err != nil {
			return err
		}
		if err := repos.Journals().Update(ctx, draft); err != nil {
			return err
		}
		return s.poster.record(ctx, repos, draft, accounting.AuditJournalVoided, actorID, "draft discarded: "+reason)
	})
	return draft, err
}
