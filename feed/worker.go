package feed

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kestrelmd/marketfeed/internal/telemetry"
	"github.com/kestrelmd/marketfeed/venue"
)

// MinBackoff is the minimum delay a Worker waits between a disconnect and
// its next reconnect attempt (spec.md §4.4: "reconnection with a backoff of
// at least 5 seconds").
const MinBackoff = 5 * time.Second

// LiveSource is implemented by a venue's websocket client. Run blocks,
// emitting Events onto out, until the underlying connection closes or ctx
// is canceled; it returns the reason for an abnormal close (nil on a clean
// ctx-canceled shutdown). The source owns its own synchronizer instance
// internally (grounded on the teacher's wsclient.py, where WebSocketClient
// holds its own StreamSynchronizer across the init handshake and every
// subsequent message) — the Worker only owns the reconnect loop.
type LiveSource interface {
	Name() string
	Run(ctx context.Context, out chan<- Event) error
}

// Worker drives one LiveSource on a background goroutine, restarting it
// with a backoff after any disconnect, and relays its Events onto a Queue.
type Worker struct {
	Source  LiveSource
	Queue   *Queue
	Backoff time.Duration
	log     *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewWorker constructs a Worker. A nil logger falls back to a no-op one.
func NewWorker(source LiveSource, queue *Queue, log *zap.Logger) *Worker {
	return &Worker{
		Source:  source,
		Queue:   queue,
		Backoff: MinBackoff,
		log:     telemetry.OrDefault(log),
	}
}

// Start launches the reconnect loop on a background goroutine. Start must
// be called at most once per Worker.
func (w *Worker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.loop(ctx)
}

// Stop cancels the worker and blocks until its goroutine has exited.
func (w *Worker) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
}

func (w *Worker) loop(ctx context.Context) {
	defer close(w.done)
	relay := make(chan Event, 64)
	go func() {
		for e := range relay {
			w.Queue.Push(e)
		}
	}()
	defer close(relay)

	backoff := w.Backoff
	if backoff < MinBackoff {
		backoff = MinBackoff
	}

	for {
		if ctx.Err() != nil {
			return
		}
		err := w.Source.Run(ctx, relay)
		if ctx.Err() != nil {
			return
		}
		relay <- Event{Kind: Disconnected, Venue: w.Source.Name(), Err: err}

		// spec.md §7: a source error is classified before deciding how to
		// react. A Fatal auth failure (bad credentials) stops the worker
		// rather than hammering the venue with reconnects that will only
		// fail the same way. A protocol violation, though also Fatal, leaves
		// the book corrupt, so the worker disconnects and re-initializes
		// after the usual backoff, as it does for Retryable and
		// unclassified (Surface) errors.
		if venue.Classify(err) == venue.Fatal && venue.Kind(err) != venue.KindProtocolViolation {
			w.log.Error("feed source disconnected, not reconnecting (fatal error)",
				zap.String("venue", w.Source.Name()),
				zap.Error(err),
			)
			return
		}

		w.log.Warn("feed source disconnected, reconnecting",
			zap.String("venue", w.Source.Name()),
			zap.Error(err),
			zap.Duration("backoff", backoff),
		)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}
