package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
)

// RecordingConsumer is a bus consumer that keeps every event it receives. Integration
// suites subscribe it next to the posting adapters to watch what the ledger emits.
type RecordingConsumer struct {
	mu         sync.Mutex
	name       string
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
}

// NewRecordingConsumer creates a consumer named name subscribed to eventTypes
func NewRecordingConsumer(name string, eventTypes ...string) *RecordingConsumer {
	return &RecordingConsumer{name: name, eventTypes: eventTypes}
}

// ConsumerName identifies the consumer in the consumer ledger
func (c *RecordingConsumer) ConsumerName() string { return c.name }

// EventTypes returns the subscribed event types
func (c *RecordingConsumer) EventTypes() []string { return c.eventTypes }

// Handle records event and returns the configured error
func (c *RecordingConsumer) Handle(_ context.Context, event shared.DomainEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handled = append(c.handled, event)
	return c.err
}

// FailWith makes later deliveries fail with err. Nil restores success.
func (c *RecordingConsumer) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Handled returns a copy of the received events
func (c *RecordingConsumer) Handled() []shared.DomainEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]shared.DomainEvent, len(c.handled))
	copy(out, c.handled)
	return out
}

// Count reports how many events of eventType were received
func (c *RecordingConsumer) Count(eventType string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.handled {
		if e.EventType() == eventType {
			n++
		}
	}
	return n
}

// ProbeEvent is a minimal event for exercising plumbing without a business payload
type ProbeEvent struct {
	shared.BaseDomainEvent
	Note string `json:"note"`
}

// NewProbeEvent creates a ProbeEvent of eventType for tenantID
func NewProbeEvent(eventType string, tenantID uuid.UUID) *ProbeEvent {
	return &ProbeEvent{
		BaseDomainEvent: shared.BaseDomainEvent{
			ID:            uuid.New(),
			Type:          eventType,
			TenantIDValue: tenantID,
			Timestamp:     time.Now(),
			AggID:         uuid.New(),
			AggType:       "Probe",
		},
		Note: "probe",
	}
}
