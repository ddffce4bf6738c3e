package event

import (
	"testing"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/trade"
	"github.com/stretchr/testify/assert"
)

func TestHandlerRegistry_Register(t *testing.T) {
	t.Run("specific types", func(t *testing.T) {
		registry := NewHandlerRegistry()
		handler := newRecordingHandler()
		registry.Register(handler, trade.EventTypeOrderStatusChanged, trade.EventTypeOrderSplit)

		assert.Len(t, registry.GetHandlers(trade.EventTypeOrderStatusChanged), 1)
		assert.Len(t, registry.GetHandlers(trade.EventTypeOrderSplit), 1)
		assert.Empty(t, registry.GetHandlers(trade.EventTypePurchaseArrived))
	})

	t.Run("wildcard", func(t *testing.T) {
		registry := NewHandlerRegistry()
		handler := newRecordingHandler()
		registry.Register(handler)

		assert.Len(t, registry.GetHandlers(inventory.EventTypeStockPosted), 1)
		assert.Len(t, registry.GetHandlers("Anything"), 1)
	})

	t.Run("duplicate registration ignored", func(t *testing.T) {
		registry := NewHandlerRegistry()
		handler := newRecordingHandler()
		registry.Register(handler, inventory.EventTypeStockPosted)
		registry.Register(handler, inventory.EventTypeStockPosted)
		registry.Register(handler)
		registry.Register(handler)

		assert.Len(t, registry.GetHandlers(inventory.EventTypeStockPosted), 1)
		assert.Len(t, registry.GetHandlers(inventory.EventTypeStockBelowThreshold), 1)
		assert.Len(t, registry.GetAllHandlers(), 1)
	})
}

func TestHandlerRegistry_GetHandlers_TypedBeforeWildcard(t *testing.T) {
	registry := NewHandlerRegistry()
	wildcard := newRecordingHandler()
	typed := newRecordingHandler()
	registry.Register(wildcard)
	registry.Register(typed, inventory.EventTypeStockPosted)

	handlers := registry.GetHandlers(inventory.EventTypeStockPosted)
	assert.Len(t, handlers, 2)
	assert.Same(t, typed, handlers[0])
	assert.Same(t, wildcard, handlers[1])
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	registry := NewHandlerRegistry()
	a := newRecordingHandler()
	b := newRecordingHandler()
	registry.Register(a, inventory.EventTypeStockPosted)
	registry.Register(b, inventory.EventTypeStockPosted)
	registry.Register(a)

	registry.Unregister(a)

	handlers := registry.GetHandlers(inventory.EventTypeStockPosted)
	assert.Len(t, handlers, 1)
	assert.Same(t, b, handlers[0])
	assert.Empty(t, registry.GetHandlers("Other"))

	registry.Unregister(b)
	assert.Empty(t, registry.GetAllHandlers())
}
