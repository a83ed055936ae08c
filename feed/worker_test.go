package feed

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelmd/marketfeed/venue"
)

// fakeSource is a LiveSource double that emits one Connected event then
// blocks until ctx is canceled, returning ctx.Err() — standing in for a
// long-lived websocket connection in Worker tests.
type fakeSource struct {
	runs int32
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Run(ctx context.Context, out chan<- Event) error {
	atomic.AddInt32(&f.runs, 1)
	out <- Event{Kind: Connected, Venue: "fake"}
	<-ctx.Done()
	return ctx.Err()
}

func TestWorkerRelaysEventsFromSource(t *testing.T) {
	q := NewQueue(8)
	src := &fakeSource{}
	w := NewWorker(src, q, nil)

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	select {
	case e := <-q.Events():
		assert.Equal(t, Connected, e.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for relayed event")
	}

	cancel()
	w.Stop()
}

// failThenBlockSource fails its first Run immediately (simulating a
// dropped connection) then succeeds, used to exercise the Disconnected
// event a failed Run produces without waiting out the real MinBackoff
// before the reconnect.
type failThenBlockSource struct {
	failed int32
}

func (f *failThenBlockSource) Name() string { return "flaky" }

func (f *failThenBlockSource) Run(ctx context.Context, out chan<- Event) error {
	if atomic.CompareAndSwapInt32(&f.failed, 0, 1) {
		return errors.New("boom")
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestWorkerEmitsDisconnectedOnSourceError(t *testing.T) {
	q := NewQueue(8)
	src := &failThenBlockSource{}
	w := NewWorker(src, q, nil)

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	defer func() {
		cancel()
		w.Stop()
	}()

	select {
	case e := <-q.Events():
		require.Equal(t, Disconnected, e.Kind)
		assert.Error(t, e.Err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Disconnected event")
	}
}

// fatalSource always fails with a venue.Fatal-classified error, used to
// verify the loop stops reconnecting instead of retrying forever.
type fatalSource struct {
	runs int32
}

func (f *fatalSource) Name() string { return "fatal" }

func (f *fatalSource) Run(ctx context.Context, out chan<- Event) error {
	atomic.AddInt32(&f.runs, 1)
	return venue.ErrAuth
}

// TestWorkerStopsOnFatalError covers §7: a Fatal-classified source error
// (bad credentials) ends the reconnect loop rather than retrying forever.
func TestWorkerStopsOnFatalError(t *testing.T) {
	q := NewQueue(8)
	src := &fatalSource{}
	w := NewWorker(src, q, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	select {
	case e := <-q.Events():
		require.Equal(t, Disconnected, e.Kind)
		assert.ErrorIs(t, e.Err, venue.ErrAuth)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Disconnected event")
	}

	select {
	case <-w.done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker loop did not exit after a fatal error")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&src.runs), "a fatal error must not trigger a reconnect attempt")
}

func TestWorkerStopIsIdempotentBeforeStart(t *testing.T) {
	w := NewWorker(&fakeSource{}, NewQueue(1), nil)
	w.Stop() // must not panic when Start was never called
}
