package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuePushAndDrain(t *testing.T) {
	q := NewQueue(4)
	q.Push(Event{Kind: Connected, Venue: "x"})
	q.Push(Event{Kind: Trade, Venue: "x"})

	e1 := <-q.Events()
	e2 := <-q.Events()
	assert.Equal(t, Connected, e1.Kind)
	assert.Equal(t, Trade, e2.Kind)
}

func TestQueueDropsOrderBookUpdateWhenFull(t *testing.T) {
	q := NewQueue(1)
	q.Push(Event{Kind: OrderBookUpdate})
	// The queue is now full; a second OrderBookUpdate must be dropped
	// rather than block, per the overflow policy.
	q.Push(Event{Kind: OrderBookUpdate})
	assert.Equal(t, uint64(1), q.Dropped())

	// Draining the one retained event empties the channel again.
	<-q.Events()
	assert.Equal(t, uint64(1), q.Dropped())
}

func TestQueueNeverDropsNonBookEvents(t *testing.T) {
	q := NewQueue(1)
	q.Push(Event{Kind: Trade})

	done := make(chan struct{})
	go func() {
		q.Push(Event{Kind: Trade}) // blocks until the first is drained
		close(done)
	}()

	first := <-q.Events()
	require.Equal(t, Trade, first.Kind)
	<-done // Push must unblock now that there's room
	assert.Equal(t, uint64(0), q.Dropped())
}

func TestNewQueueDefaultsCapacity(t *testing.T) {
	q := NewQueue(0)
	assert.NotNil(t, q.Events())
}
