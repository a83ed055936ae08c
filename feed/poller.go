package feed

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kestrelmd/marketfeed/internal/telemetry"
)

// DefaultPollInterval is the per-feed polling period used when a Poller
// isn't configured with an explicit one (grounded on BookPoller's
// poll_frequency=1 default in the retrieved kraken netclients.py).
const DefaultPollInterval = 1 * time.Second

// PollFunc fetches one round of data and returns the Events it produced.
// An empty slice means nothing changed this round.
type PollFunc func(ctx context.Context) ([]Event, error)

// pollSource pairs one PollFunc with its own interval so a Poller can
// round-robin feeds that poll at different cadences (spec.md §4.4's
// {book_snapshot, open_orders} rotation for poll-only venues).
type pollSource struct {
	name     string
	fn       PollFunc
	interval time.Duration
	next     time.Time
}

// Poller round-robins a set of PollFuncs (book snapshot, open orders, ...)
// on a single goroutine and relays their Events onto a Queue. Grounded on
// netclients.py's BookPoller, generalized from one fixed poll target to an
// arbitrary set registered via Add.
type Poller struct {
	Queue *Queue
	log   *zap.Logger

	sources []*pollSource
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewPoller constructs a Poller. A nil logger falls back to a no-op one.
func NewPoller(queue *Queue, log *zap.Logger) *Poller {
	return &Poller{Queue: queue, log: telemetry.OrDefault(log)}
}

// Add registers a poll target under name, polled every interval (or
// DefaultPollInterval if interval <= 0).
func (p *Poller) Add(name string, interval time.Duration, fn PollFunc) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	p.sources = append(p.sources, &pollSource{name: name, fn: fn, interval: interval})
}

// Start launches the round-robin loop on a background goroutine.
func (p *Poller) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(ctx)
}

// Stop cancels the poller and blocks until its goroutine exits.
func (p *Poller) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, src := range p.sources {
				if now.Before(src.next) {
					continue
				}
				src.next = now.Add(src.interval)
				events, err := src.fn(ctx)
				if err != nil {
					p.log.Warn("poll failed", zap.String("source", src.name), zap.Error(err))
					continue
				}
				for _, e := range events {
					p.Queue.Push(e)
				}
			}
		}
	}
}
