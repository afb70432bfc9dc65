package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishDelivers(t *testing.T) {
	bus := NewBus()
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	bus.clock = func() time.Time { return fixed }

	a := bus.Subscribe(4)
	b := bus.Subscribe(4)

	published := bus.Publish(Event{Type: DataChanged})
	assert.Equal(t, int64(1), published.ID)
	assert.Equal(t, fixed, published.Timestamp)

	for _, sub := range []*Subscription{a, b} {
		select {
		case ev := <-sub.C:
			assert.Equal(t, published, ev)
		default:
			t.Fatal("expected an event")
		}
	}
}

func TestBus_IDsIncrease(t *testing.T) {
	bus := NewBus()
	first := bus.Publish(Event{Type: AnalysisCompleted})
	second := bus.Publish(Event{Type: AnalysisCompleted})
	assert.Less(t, first.ID, second.ID)
}

func TestBus_SlowSubscriberDoesNotBlock(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(1)

	bus.Publish(Event{Type: DataChanged})
	bus.Publish(Event{Type: RuleFailed})

	ev := <-sub.C
	assert.Equal(t, DataChanged, ev.Type)
	select {
	case ev := <-sub.C:
		t.Fatalf("unexpected event %v", ev.Type)
	default:
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(1)
	require.Equal(t, 1, bus.SubscriberCount())

	bus.Unsubscribe(sub)
	assert.Equal(t, 0, bus.SubscriberCount())

	_, open := <-sub.C
	assert.False(t, open)

	// Unsubscribing twice is harmless
	bus.Unsubscribe(sub)
	bus.Unsubscribe(nil)
	bus.Publish(Event{Type: DataChanged})
}
