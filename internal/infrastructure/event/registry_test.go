package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerRegistry_Register_SpecificTypes(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newTestHandler("tender.recorded.v1", "order.voided.v1")

	registry.Register(handler, handler.EventTypes()...)

	handlers := registry.GetHandlers("tender.recorded.v1")
	require.Len(t, handlers, 1)
	assert.Equal(t, handler, handlers[0])
	assert.Len(t, registry.GetHandlers("order.voided.v1"), 1)
	assert.Empty(t, registry.GetHandlers("order.returned.v1"))
}

func TestHandlerRegistry_Register_Wildcard(t *testing.T) {
	registry := NewHandlerRegistry()
	specific := newTestHandler("tender.recorded.v1")
	wildcard := newTestHandler()

	registry.Register(specific, "tender.recorded.v1")
	registry.Register(wildcard)

	assert.Len(t, registry.GetHandlers("tender.recorded.v1"), 2)
	assert.Equal(t, wildcard, registry.GetHandlers("order.voided.v1")[0])
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	registry := NewHandlerRegistry()
	h1 := newTestHandler("tender.recorded.v1")
	h2 := newTestHandler("tender.recorded.v1")
	registry.Register(h1, "tender.recorded.v1")
	registry.Register(h2, "tender.recorded.v1")

	registry.Unregister(h1)

	handlers := registry.GetHandlers("tender.recorded.v1")
	require.Len(t, handlers, 1)
	assert.Equal(t, h2, handlers[0])
	_, ok := registry.FindConsumer(h1.ConsumerName())
	assert.False(t, ok)
}

func TestHandlerRegistry_ConsumerIndex(t *testing.T) {
	registry := NewHandlerRegistry()
	h := newTestHandler("tender.recorded.v1")
	registry.Register(h, "tender.recorded.v1")

	found, ok := registry.FindConsumer(h.ConsumerName())
	require.True(t, ok)
	assert.Equal(t, h, found)
	assert.Equal(t, []string{h.ConsumerName()}, registry.ConsumerNames())
}
