package feed

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollerFiresRegisteredSource(t *testing.T) {
	q := NewQueue(8)
	p := NewPoller(q, nil)

	var calls int32
	p.Add("book", 10*time.Millisecond, func(ctx context.Context) ([]Event, error) {
		atomic.AddInt32(&calls, 1)
		return []Event{{Kind: OrderBookUpdate, Venue: "book"}}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	defer func() {
		cancel()
		p.Stop()
	}()

	select {
	case e := <-q.Events():
		assert.Equal(t, OrderBookUpdate, e.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for polled event")
	}
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1))
}

func TestPollerRoundRobinsMultipleSources(t *testing.T) {
	q := NewQueue(16)
	p := NewPoller(q, nil)

	seen := make(chan string, 16)
	p.Add("a", 10*time.Millisecond, func(ctx context.Context) ([]Event, error) {
		seen <- "a"
		return nil, nil
	})
	p.Add("b", 10*time.Millisecond, func(ctx context.Context) ([]Event, error) {
		seen <- "b"
		return nil, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	defer func() {
		cancel()
		p.Stop()
	}()

	names := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case n := <-seen:
			names[n] = true
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for both sources to poll")
		}
	}
	assert.True(t, names["a"])
	assert.True(t, names["b"])
}

func TestPollerSurvivesSourceError(t *testing.T) {
	q := NewQueue(8)
	p := NewPoller(q, nil)

	var calls int32
	p.Add("broken", 10*time.Millisecond, func(ctx context.Context) ([]Event, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("boom")
	})

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) >= 2
	}, 2*time.Second, 10*time.Millisecond, "poller must keep polling after a source error")

	cancel()
	p.Stop()
}

func TestPollerAddDefaultsZeroInterval(t *testing.T) {
	p := NewPoller(NewQueue(1), nil)
	p.Add("x", 0, func(ctx context.Context) ([]Event, error) { return nil, nil })
	require.Len(t, p.sources, 1)
	assert.Equal(t, DefaultPollInterval, p.sources[0].interval)
}
