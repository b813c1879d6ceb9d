package event

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/erp/posting/internal/domain/shared"
	"go.uber.org/zap"
)

// DispatchWrapper runs one handler invocation. The server installs one that attaches
// profiling labels for the consumer and event type.
type DispatchWrapper func(ctx context.Context, consumer, eventType string, fn func(context.Context))

func directDispatch(ctx context.Context, _, _ string, fn func(context.Context)) { fn(ctx) }

// BusOption configures an InMemoryEventBus
type BusOption func(*InMemoryEventBus)

// WithDispatchWrapper routes every handler call through wrap
func WithDispatchWrapper(wrap DispatchWrapper) BusOption {
	return func(b *InMemoryEventBus) {
		if wrap != nil {
			b.wrap = wrap
		}
	}
}

// InMemoryEventBus delivers events synchronously to the handlers registered for their
// type. A handler error or panic does not stop delivery to the others; Publish joins
// the failures so the outbox entry is redelivered, and ledger-guarded consumers that
// already applied the event skip it on the second pass.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	wrap     DispatchWrapper
	running  atomic.Bool
}

// NewInMemoryEventBus creates an empty bus
func NewInMemoryEventBus(logger *zap.Logger, opts ...BusOption) *InMemoryEventBus {
	b := &InMemoryEventBus{registry: NewHandlerRegistry(), logger: logger, wrap: directDispatch}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish delivers events in order
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	var errs []error
	for _, evt := range events {
		for _, h := range b.registry.GetHandlers(evt.EventType()) {
			name := consumerName(h)
			err := b.deliver(ctx, name, h, evt)
			if err == nil {
				continue
			}
			b.logger.Error("consumer rejected event",
				zap.String("consumer", name),
				zap.String("event_type", evt.EventType()),
				zap.String("event_id", evt.EventID().String()),
				zap.String("tenant_id", evt.TenantID().String()),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (b *InMemoryEventBus) deliver(ctx context.Context, name string, h shared.EventHandler, evt shared.DomainEvent) (err error) {
	b.wrap(ctx, name, evt.EventType(), func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("consumer panicked",
					zap.String("consumer", name),
					zap.String("event_type", evt.EventType()),
					zap.Any("panic", r),
				)
				err = fmt.Errorf("handler panicked: %v", r)
			}
		}()
		err = h.Handle(ctx, evt)
	})
	return err
}

// Subscribe registers handler for eventTypes, or for the handler's own EventTypes when
// none are given
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("consumer subscribed",
		zap.String("consumer", consumerName(handler)),
		zap.Strings("event_types", eventTypes),
	)
}

// Unsubscribe removes handler from every event type
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
	b.logger.Debug("consumer unsubscribed", zap.String("consumer", consumerName(handler)))
}

// Consumer looks up a subscribed handler by consumer name
func (b *InMemoryEventBus) Consumer(name string) (shared.NamedEventHandler, bool) {
	return b.registry.FindConsumer(name)
}

func (b *InMemoryEventBus) Start(context.Context) error {
	b.running.Store(true)
	b.logger.Info("event bus started", zap.Strings("consumers", b.registry.ConsumerNames()))
	return nil
}

func (b *InMemoryEventBus) Stop(context.Context) error {
	b.running.Store(false)
	b.logger.Info("event bus stopped")
	return nil
}

// IsRunning reports whether Start was called without a matching Stop
func (b *InMemoryEventBus) IsRunning() bool {
	return b.running.Load()
}

func consumerName(handler shared.EventHandler) string {
	if named, ok := handler.(shared.NamedEventHandler); ok {
		return named.ConsumerName()
	}
	return fmt.Sprintf("%T", handler)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
