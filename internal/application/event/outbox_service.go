package event

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OutboxService is the operator view of the outbound event outbox
type OutboxService struct {
	repo   shared.OutboxRepository
	logger *zap.Logger
}

// NewOutboxService creates an OutboxService
func NewOutboxService(repo shared.OutboxRepository, logger *zap.Logger) *OutboxService {
	return &OutboxService{repo: repo, logger: logger}
}

// OutboxStats counts outbox entries per status
type OutboxStats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
}

// ListDeadEntries returns a page of entries that exhausted their dispatch retries
func (s *OutboxService) ListDeadEntries(ctx context.Context, page, pageSize int) (*shared.Paginated[*shared.OutboxEntry], error) {
	page, pageSize = shared.ClampPage(page, pageSize)
	entries, total, err := s.repo.FindDead(ctx, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("find dead outbox entries: %w", err)
	}
	result := shared.NewPaginated(entries, total, page, pageSize)
	return &result, nil
}

// GetEntry returns one outbox entry
func (s *OutboxService) GetEntry(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, shared.ErrNotFound
	}
	return entry, nil
}

// RetryDeadEntry puts a dead entry back in the dispatch queue
func (s *OutboxService) RetryDeadEntry(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	entry, err := s.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := entry.ResetForRetry(); err != nil {
		return nil, shared.NewDomainError("INVALID_STATE", err.Error())
	}
	if err := s.repo.Update(ctx, entry); err != nil {
		return nil, fmt.Errorf("update outbox entry: %w", err)
	}

	s.logger.Info("dead outbox entry requeued",
		zap.String("id", id.String()),
		zap.String("event_type", entry.EventType),
	)
	return entry, nil
}

// RetryAllDeadEntries requeues every dead entry and returns how many were requeued
func (s *OutboxService) RetryAllDeadEntries(ctx context.Context) (int64, error) {
	const batch = 100
	var requeued int64
	for {
		// Requeued entries leave the dead set, so the first page always holds the next batch
		entries, _, err := s.repo.FindDead(ctx, 1, batch)
		if err != nil {
			return requeued, fmt.Errorf("find dead outbox entries: %w", err)
		}
		progressed := false
		for _, entry := range entries {
			if err := entry.ResetForRetry(); err != nil {
				continue
			}
			if err := s.repo.Update(ctx, entry); err != nil {
				s.logger.Error("failed to requeue outbox entry", zap.String("id", entry.ID.String()), zap.Error(err))
				continue
			}
			requeued++
			progressed = true
		}
		if len(entries) < batch || !progressed {
			break
		}
	}

	s.logger.Info("dead outbox entries requeued", zap.Int64("count", requeued))
	return requeued, nil
}

// GetStats counts entries per status
func (s *OutboxService) GetStats(ctx context.Context) (*OutboxStats, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count outbox entries: %w", err)
	}
	stats := &OutboxStats{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Sent:       counts[shared.OutboxStatusSent],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
	}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}
