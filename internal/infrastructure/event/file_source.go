package event

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
)

const maxRecordLine = 4 << 20

// FileRecordSource reads business events from a JSON Lines export, one event envelope
// per line. Blank lines are ignored.
type FileRecordSource struct {
	path       string
	serializer *EventSerializer
}

// NewFileRecordSource creates a source over the file at path
func NewFileRecordSource(path string, serializer *EventSerializer) *FileRecordSource {
	return &FileRecordSource{path: path, serializer: serializer}
}

// Events returns the tenant's events that occurred in [from, to], oldest first
func (s *FileRecordSource) Events(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]shared.DomainEvent, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open record file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordLine)

	var events []shared.DomainEvent
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data := scanner.Bytes()
		if len(bytes.TrimSpace(data)) == 0 {
			continue
		}
		event, err := s.serializer.DeserializeEnvelope(data)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", s.path, line, err)
		}
		if event.TenantID() != tenantID {
			continue
		}
		at := event.OccurredAt()
		if at.Before(from) || at.After(to) {
			continue
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read record file: %w", err)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].OccurredAt().Before(events[j].OccurredAt())
	})
	return events, nil
}
