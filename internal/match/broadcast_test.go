package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_FanOut(t *testing.T) {
	b := NewBroadcaster(4)
	c1, cancel1 := b.Subscribe()
	c2, cancel2 := b.Subscribe()
	defer cancel2()
	assert.Equal(t, 2, b.Subscribers())

	b.OnEvent(Event{Kind: EventTick})
	assert.Equal(t, EventTick, (<-c1).Kind)
	assert.Equal(t, EventTick, (<-c2).Kind)

	cancel1()
	cancel1()
	_, open := <-c1
	assert.False(t, open)
	assert.Equal(t, 1, b.Subscribers())
}

func TestBroadcaster_DropsWhenFull(t *testing.T) {
	b := NewBroadcaster(1)
	ch, cancel := b.Subscribe()
	defer cancel()

	b.OnEvent(Event{Kind: EventCardFlipped})
	b.OnEvent(Event{Kind: EventTick}) // buffer full, dropped

	require.Len(t, ch, 1)
	assert.Equal(t, EventCardFlipped, (<-ch).Kind)
}

func TestBroadcaster_WithController(t *testing.T) {
	c, _, _ := newTestController(t, 0)
	b := NewBroadcaster(8)
	c.Subscribe(b)
	ch, cancel := b.Subscribe()
	defer cancel()

	c.StartRound(deckOf("A", "A"), 1)
	ev := <-ch
	assert.Equal(t, EventRoundStarted, ev.Kind)
	assert.Len(t, ev.Snapshot.Cards, 2)
}

func TestBroadcaster_Close(t *testing.T) {
	b := NewBroadcaster(4)
	ch, cancel := b.Subscribe()

	b.OnEvent(Event{Kind: EventRoundAbandoned})
	b.Close()
	b.Close()
	assert.Equal(t, 0, b.Subscribers())

	ev, open := <-ch
	require.True(t, open, "buffered events survive Close")
	assert.Equal(t, EventRoundAbandoned, ev.Kind)
	_, open = <-ch
	assert.False(t, open)
	cancel() // after Close, unsubscribing is harmless

	late, _ := b.Subscribe()
	_, open = <-late
	assert.False(t, open, "subscriptions after Close start closed")
	b.OnEvent(Event{Kind: EventTick})
}
