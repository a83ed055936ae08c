// Package syncstream implements the snapshot/stream synchronization
// protocol from spec.md §4.2: reconciling a late-arriving, out-of-band REST
// snapshot with a concurrently-arriving incremental websocket stream so
// that a consumer's book ends up eventually consistent with the venue.
//
// This is a direct generalization of
// original_source/pyalgotrade/binance/streamsync.py's StreamSynchronizer:
// the same four injected functions, the same FIFO-then-switch-the-handler
// state machine, reproduced as a Go type instead of a Python closure-holder
// so the handler swap (design note "Exceptions for control flow → explicit
// result types") is a field assignment guarded by a mutex rather than a
// rebound bound method.
package syncstream

import (
	"errors"
	"sync"
)

// ErrGapDetected is returned by SubmitStream when the adapter requires
// dense sequencing and a delta arrives whose syncpoint leaves a gap ahead
// of the last contiguous chain applied.
var ErrGapDetected = errors.New("gap detected in stream sequence")

// Synchronizer reconciles a buffered incremental stream with an out-of-band
// snapshot. T is the unit of stream/sync data (this module always
// instantiates it with marketdata.Batch, but the type stays generic so it
// carries no marketdata import and remains provably venue-agnostic).
type Synchronizer[T any] struct {
	// SyncpointFromUpdate extracts the syncpoint from a stream update.
	SyncpointFromUpdate func(T) uint64
	// UpdateNewerThan reports whether update postdates syncpoint sp —
	// i.e. it is not already reflected by the snapshot that set sp.
	UpdateNewerThan func(sp uint64, update T) bool
	// ApplyUpdate applies a single stream update to the book.
	ApplyUpdate func(T) error
	// ApplySnapshot applies a snapshot to the book (resetting it) and
	// returns the syncpoint it established.
	ApplySnapshot func(T) (uint64, error)

	// RequireDenseSequencing, when true, makes SubmitStream fail with
	// ErrGapDetected if an applied update's syncpoint is not exactly one
	// more than the last applied update's syncpoint (Binance-class gap
	// detection, spec.md §4.2 edge cases).
	RequireDenseSequencing bool

	mu        sync.Mutex
	buffering bool
	syncpoint uint64
	haveSync  bool
	lastDense uint64
	fifo      []T
}

// New constructs a Synchronizer starting in the "buffering" state: every
// stream update is queued until the first snapshot arrives.
func New[T any](
	syncpointFromUpdate func(T) uint64,
	updateNewerThan func(sp uint64, update T) bool,
	applyUpdate func(T) error,
	applySnapshot func(T) (uint64, error),
) *Synchronizer[T] {
	return &Synchronizer[T]{
		SyncpointFromUpdate: syncpointFromUpdate,
		UpdateNewerThan:     updateNewerThan,
		ApplyUpdate:         applyUpdate,
		ApplySnapshot:       applySnapshot,
		buffering:           true,
	}
}

// SubmitStream feeds one stream update into the synchronizer. Before the
// first snapshot arrives it is buffered in FIFO order; once a syncpoint is
// known, buffered (and subsequent) updates are replayed, dropping anything
// at or before the syncpoint, and applied in arrival order.
func (s *Synchronizer[T]) SubmitStream(update T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.haveSync {
		s.fifo = append(s.fifo, update)
		return nil
	}
	return s.drainLocked(update)
}

// SubmitSnapshot applies a snapshot to the book, recording its syncpoint
// and replaying any FIFO-buffered stream updates that postdate it. The
// most recent snapshot always wins: calling this again after the stream has
// already switched to steady state resets the synchronizer back through
// the same replay logic (spec.md §4.2 "multiple snapshots" edge case).
func (s *Synchronizer[T]) SubmitSnapshot(snapshot T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sp, err := s.ApplySnapshot(snapshot)
	if err != nil {
		return err
	}
	s.syncpoint = sp
	s.haveSync = true
	s.lastDense = sp
	s.buffering = true

	pending := s.fifo
	s.fifo = nil
	for _, u := range pending {
		if !s.UpdateNewerThan(s.syncpoint, u) {
			continue
		}
		if err := s.applyLocked(u); err != nil {
			return err
		}
	}
	return nil
}

// drainLocked is called once a syncpoint is already known: apply u
// directly if it postdates the syncpoint, otherwise drop it.
func (s *Synchronizer[T]) drainLocked(u T) error {
	if !s.UpdateNewerThan(s.syncpoint, u) {
		return nil
	}
	return s.applyLocked(u)
}

func (s *Synchronizer[T]) applyLocked(u T) error {
	if s.RequireDenseSequencing {
		sp := s.SyncpointFromUpdate(u)
		if sp != s.lastDense+1 {
			return ErrGapDetected
		}
		s.lastDense = sp
	}
	s.buffering = false
	if err := s.ApplyUpdate(u); err != nil {
		return err
	}
	if sp := s.SyncpointFromUpdate(u); sp > s.syncpoint {
		s.syncpoint = sp
	}
	return nil
}

// Syncpoint returns the synchronizer's current syncpoint.
func (s *Synchronizer[T]) Syncpoint() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncpoint
}

// IsBuffering reports whether the synchronizer has not yet applied its
// first post-sync update (i.e. is still in the pre-sync buffering state).
func (s *Synchronizer[T]) IsBuffering() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffering
}
