package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEventBus_PublishDelivers(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ch := make(chan Event, 2)
	bus.Subscribe("ui", ch)

	bus.Publish(Event{Kind: EventFrameProduced, SourceID: "cam-1", Seq: 1})

	ev := <-ch
	require.Equal(t, EventFrameProduced, ev.Kind)
	require.Equal(t, "cam-1", ev.SourceID)
	require.False(t, ev.Timestamp.IsZero())
}

func TestEventBus_SlowSubscriberDropsNotBlocks(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	// Канал на одно событие и никто его не читает.
	ch := make(chan Event, 1)
	bus.Subscribe("slow", ch)

	for i := 0; i < 5; i++ {
		bus.Publish(Event{Kind: EventVerdict})
	}

	stats := bus.Stats()
	require.Equal(t, uint64(5), stats.Published)
	require.Equal(t, uint64(1), stats.Subscribers["slow"].Sent)
	require.Equal(t, uint64(4), stats.Subscribers["slow"].Dropped)
}

func TestEventBus_PublishAfterCloseIsNoop(t *testing.T) {
	bus := NewEventBus()
	ch := make(chan Event, 1)
	bus.Subscribe("ui", ch)
	bus.Close()

	bus.Publish(Event{Kind: EventVerdict})
	require.Empty(t, ch)
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ch := make(chan Event, 1)
	bus.Subscribe("ui", ch)
	bus.Unsubscribe("ui")

	bus.Publish(Event{Kind: EventVerdict})
	require.Empty(t, ch)
}
