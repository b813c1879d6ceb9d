package event

import (
	"context"
	"fmt"
	"strings"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventReplayer re-dispatches a quarantined event to the consumer that gave up on it,
// with a fresh retry budget
type EventReplayer interface {
	Replay(ctx context.Context, letter *shared.DeadLetter) error
}

// DeadLetterService manages events the consumer ledger quarantined
type DeadLetterService struct {
	repo     shared.DeadLetterRepository
	replayer EventReplayer
	logger   *zap.Logger
}

// NewDeadLetterService creates a DeadLetterService
func NewDeadLetterService(repo shared.DeadLetterRepository, replayer EventReplayer, logger *zap.Logger) *DeadLetterService {
	return &DeadLetterService{repo: repo, replayer: replayer, logger: logger}
}

// ListDeadLetters returns a page of dead letters
func (s *DeadLetterService) ListDeadLetters(ctx context.Context, filter shared.DeadLetterFilter) (*shared.Paginated[*shared.DeadLetter], error) {
	filter.Page, filter.PageSize = shared.ClampPage(filter.Page, filter.PageSize)
	letters, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	page := shared.NewPaginated(letters, total, filter.Page, filter.PageSize)
	return &page, nil
}

// GetDeadLetter returns one dead letter
func (s *DeadLetterService) GetDeadLetter(ctx context.Context, tenantID, id uuid.UUID) (*shared.DeadLetter, error) {
	return s.repo.FindByID(ctx, tenantID, id)
}

// ReplayDeadLetter dispatches the stored payload again. The letter is marked replayed
// only once the consumer accepted it.
func (s *DeadLetterService) ReplayDeadLetter(ctx context.Context, tenantID, id, actorID uuid.UUID) (*shared.DeadLetter, error) {
	letter, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if letter.Status != shared.DeadLetterOpen {
		return nil, shared.NewDomainError("INVALID_STATE", "only open dead letters can be replayed")
	}

	if err := s.replayer.Replay(ctx, letter); err != nil {
		s.logger.Error("dead letter replay failed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("dead_letter_id", id.String()),
			zap.String("event_id", letter.EventID.String()),
			zap.String("consumer", letter.ConsumerName),
			zap.Error(err),
		)
		return nil, fmt.Errorf("replay event %s: %w", letter.EventID, err)
	}

	if err := letter.MarkReplayed(actorID); err != nil {
		return nil, shared.NewDomainError("INVALID_STATE", err.Error())
	}
	if err := s.repo.Update(ctx, letter); err != nil {
		return nil, fmt.Errorf("update dead letter: %w", err)
	}

	s.logger.Info("dead letter replayed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("dead_letter_id", id.String()),
		zap.String("event_type", letter.EventType),
		zap.String("consumer", letter.ConsumerName),
	)
	return letter, nil
}

// ResolveDeadLetter closes a dead letter without replaying it
func (s *DeadLetterService) ResolveDeadLetter(ctx context.Context, tenantID, id, actorID uuid.UUID, note string) (*shared.DeadLetter, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "a resolution note is required")
	}
	letter, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		if isNotFound(err) {
			return nil, shared.NewDomainError("NOT_FOUND", "dead letter not found")
		}
		return nil, err
	}
	if err := letter.Resolve(actorID, note); err != nil {
		return nil, shared.NewDomainError("INVALID_STATE", err.Error())
	}
	if err := s.repo.Update(ctx, letter); err != nil {
		return nil, fmt.Errorf("update dead letter: %w", err)
	}

	s.logger.Info("dead letter resolved",
		zap.String("tenant_id", tenantID.String()),
		zap.String("dead_letter_id", id.String()),
	)
	return letter, nil
}
