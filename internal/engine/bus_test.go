package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_SubscribeAndPublish(t *testing.T) {
	bus := NewBus()

	var got []string
	bus.Subscribe(EventStepStarted, func(ev Event) { got = append(got, "specific") })
	bus.SubscribeAll(func(ev Event) { got = append(got, "all") })
	bus.Subscribe(EventSessionEnded, func(ev Event) { got = append(got, "other") })

	bus.Publish(Event{Type: EventStepStarted})
	assert.Equal(t, []string{"specific", "all"}, got, "specific handlers first")
	assert.Equal(t, 3, bus.SubscriptionCount())
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()

	calls := 0
	id := bus.Subscribe(EventHalfwayReached, func(ev Event) { calls++ })
	assert.True(t, bus.Unsubscribe(id))
	assert.False(t, bus.Unsubscribe(id))

	bus.Publish(Event{Type: EventHalfwayReached})
	assert.Zero(t, calls)
	assert.Zero(t, bus.SubscriptionCount())
}

func TestBus_PanicIsolation(t *testing.T) {
	bus := NewBus()

	delivered := false
	bus.Subscribe(EventPhaseChanged, func(ev Event) { panic("boom") })
	bus.Subscribe(EventPhaseChanged, func(ev Event) { delivered = true })

	assert.NotPanics(t, func() { bus.Publish(Event{Type: EventPhaseChanged}) })
	assert.True(t, delivered)
}
