package accounting

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BusinessRecordSource yields the business events of a tenant for a date range, rebuilt
// from the records the operational modules keep
type BusinessRecordSource interface {
	Events(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]shared.DomainEvent, error)
}

// ReplayCommand selects what to replay
type ReplayCommand struct {
	TenantID uuid.UUID
	From     time.Time
	To       time.Time
	// DryRun counts the events without dispatching them
	DryRun bool
}

// ReplayReport summarizes a replay run
type ReplayReport struct {
	Events     int
	Dispatched int
	Unhandled  int
	Failed     int
	ByType     map[string]int
}

// ReplayService re-runs the posting adapters over historical business events. Entries
// that already exist are skipped by the source reference index, so a replay only fills gaps.
type ReplayService struct {
	source   BusinessRecordSource
	handlers map[string][]shared.EventHandler
	logger   *zap.Logger
}

// NewReplayService creates a ReplayService dispatching to handlers by event type
func NewReplayService(source BusinessRecordSource, logger *zap.Logger, handlers ...shared.EventHandler) *ReplayService {
	byType := make(map[string][]shared.EventHandler)
	for _, h := range handlers {
		for _, t := range h.EventTypes() {
			byType[t] = append(byType[t], h)
		}
	}
	return &ReplayService{source: source, handlers: byType, logger: logger}
}

// Replay loads the tenant's events for the range and hands each to its adapters
func (s *ReplayService) Replay(ctx context.Context, cmd ReplayCommand) (*ReplayReport, error) {
	if cmd.TenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "tenant id is required")
	}
	if cmd.To.Before(cmd.From) {
		return nil, shared.NewDomainError("INVALID_INPUT", "replay range ends before it starts")
	}

	events, err := s.source.Events(ctx, cmd.TenantID, cmd.From, cmd.To)
	if err != nil {
		return nil, fmt.Errorf("load business events: %w", err)
	}

	report := &ReplayReport{Events: len(events), ByType: map[string]int{}}
	for _, event := range events {
		report.ByType[event.EventType()]++
		handlers := s.handlers[event.EventType()]
		if len(handlers) == 0 {
			report.Unhandled++
			continue
		}
		if cmd.DryRun {
			continue
		}
		for _, h := range handlers {
			if err := h.Handle(ctx, event); err != nil {
				report.Failed++
				s.logger.Error("replay dispatch failed",
					zap.String("tenant_id", cmd.TenantID.String()),
					zap.String("event_id", event.EventID().String()),
					zap.String("event_type", event.EventType()),
					zap.Error(err),
				)
				continue
			}
			report.Dispatched++
		}
	}

	s.logger.Info("replay finished",
		zap.String("tenant_id", cmd.TenantID.String()),
		zap.Time("from", cmd.From),
		zap.Time("to", cmd.To),
		zap.Bool("dry_run", cmd.DryRun),
		zap.Int("events", report.Events),
		zap.Int("dispatched", report.Dispatched),
		zap.Int("unhandled", report.Unhandled),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}
