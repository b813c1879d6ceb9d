package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// DefaultInvalidationChannel carries settings changes between instances
	DefaultInvalidationChannel = "gl:settings:invalidate"
	defaultCloseTimeout        = 5 * time.Second
)

// InvalidationMessage announces that a tenant's settings changed. A nil TenantID means
// every tenant.
type InvalidationMessage struct {
	TenantID  uuid.UUID `json:"tenant_id"`
	Origin    string    `json:"origin"`
	Timestamp int64     `json:"timestamp"`
}

// SettingsInvalidator publishes and receives settings invalidations over Redis Pub/Sub
type SettingsInvalidator struct {
	client   *redis.Client
	channel  string
	origin   string
	logger   *zap.Logger
	cancelFn context.CancelFunc
	doneCh   chan struct{}
	doneOnce sync.Once
	mu       sync.Mutex
	running  bool
}

// InvalidatorOption configures a SettingsInvalidator
type InvalidatorOption func(*SettingsInvalidator)

// WithInvalidationChannel sets the Pub/Sub channel
func WithInvalidationChannel(channel string) InvalidatorOption {
	return func(i *SettingsInvalidator) {
		i.channel = channel
	}
}

// WithInvalidatorLogger sets the logger
func WithInvalidatorLogger(logger *zap.Logger) InvalidatorOption {
	return func(i *SettingsInvalidator) {
		i.logger = logger
	}
}

// NewSettingsInvalidator creates an invalidator over a shared client. Messages this
// instance publishes carry a random origin and are ignored on receipt.
func NewSettingsInvalidator(client *redis.Client, opts ...InvalidatorOption) *SettingsInvalidator {
	i := &SettingsInvalidator{
		client:  client,
		channel: DefaultInvalidationChannel,
		origin:  uuid.NewString(),
		logger:  zap.NewNop(),
		doneCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Publish announces a settings change for tenantID
func (i *SettingsInvalidator) Publish(ctx context.Context, tenantID uuid.UUID) error {
	data, err := json.Marshal(InvalidationMessage{
		TenantID:  tenantID,
		Origin:    i.origin,
		Timestamp: time.Now().UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal invalidation: %w", err)
	}
	if err := i.client.Publish(ctx, i.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish invalidation: %w", err)
	}
	return nil
}

// Subscribe blocks, calling fn for every invalidation published by other instances,
// until ctx is cancelled or Close is called.
func (i *SettingsInvalidator) Subscribe(ctx context.Context, fn func(InvalidationMessage)) error {
	i.mu.Lock()
	if i.running {
		i.mu.Unlock()
		return fmt.Errorf("subscription already running")
	}
	i.running = true
	subCtx, cancel := context.WithCancel(ctx)
	i.cancelFn = cancel
	i.mu.Unlock()

	defer func() {
		i.mu.Lock()
		i.running = false
		i.mu.Unlock()
		i.markDone()
	}()

	pubsub := i.client.Subscribe(subCtx, i.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(subCtx); err != nil {
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}
	i.logger.Info("Subscribed to settings invalidation channel", zap.String("channel", i.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-subCtx.Done():
			i.logger.Info("Settings invalidation subscription stopped")
			return subCtx.Err()
		case msg, ok := <-ch:
			if !ok {
				i.logger.Warn("Settings invalidation channel closed")
				return nil
			}
			i.dispatch(msg.Payload, fn)
		}
	}
}

func (i *SettingsInvalidator) dispatch(payload string, fn func(InvalidationMessage)) {
	var m InvalidationMessage
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		i.logger.Error("Failed to unmarshal invalidation", zap.String("payload", payload), zap.Error(err))
		return
	}
	if m.Origin == i.origin {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("Panic in invalidation callback", zap.Any("panic", r))
		}
	}()
	fn(m)
}

func (i *SettingsInvalidator) markDone() {
	i.doneOnce.Do(func() { close(i.doneCh) })
}

// Close stops a running subscription. The client is not closed.
func (i *SettingsInvalidator) Close() error {
	i.mu.Lock()
	cancelFn := i.cancelFn
	i.mu.Unlock()

	if cancelFn == nil {
		return nil
	}
	cancelFn()
	select {
	case <-i.doneCh:
	case <-time.After(defaultCloseTimeout):
		i.logger.Warn("Timeout waiting for invalidation subscription to stop")
	}
	return nil
}
