package event

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInMemoryBus(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	events, unsubscribe := bus.Subscribe()

	bus.Publish(Event{Type: TypeImageProgress, SessionID: "sid", Payload: map[string]string{"file": "a.png"}})

	got := <-events
	require.Equal(t, TypeImageProgress, got.Type)
	require.Equal(t, "sid", got.SessionID)
	require.NotEmpty(t, got.ID)
	require.NotEmpty(t, got.Timestamp)

	unsubscribe()
	unsubscribe()

	_, open := <-events
	require.False(t, open)

	// publishing with no subscribers must not panic
	bus.Publish(Event{Type: TypeListingCreated})
}

func TestInMemoryBusDropsWhenFull(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	for i := 0; i < 150; i++ {
		bus.Publish(Event{Type: TypeImageProgress})
	}

	require.Len(t, events, 100)
}
