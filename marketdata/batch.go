package marketdata

import (
	"time"

	"github.com/kestrelmd/marketfeed/currency"
)

// BatchKind distinguishes a MarketUpdate from a MarketSnapshot. The two
// share the same shape (spec.md §3): an ordered sequence of Deltas, a
// timestamp, a venue and symbol. Only the semantics at apply time differ —
// a snapshot means "the book equals exactly the Assigns contained here at
// this rts; discard prior state".
type BatchKind uint8

// Recognised batch kinds.
const (
	UnknownBatch BatchKind = iota
	Update
	Snapshot
)

// Batch is a MarketUpdate or MarketSnapshot: a totally ordered sequence of
// Deltas, applied to an orderbook.Book in the order given.
type Batch struct {
	Kind   BatchKind
	TS     time.Time
	Venue  string
	Symbol currency.Pair
	Deltas []Delta
}

// MaxRTS returns the maximum RTS across every delta in the batch, or 0 for
// an empty batch. This becomes the book's new syncpoint after apply.
func (b Batch) MaxRTS() uint64 {
	var max uint64
	for _, d := range b.Deltas {
		if d.RTS > max {
			max = d.RTS
		}
	}
	return max
}

// MinRTS returns the minimum RTS across every delta in the batch, or 0 for
// an empty batch. Used by the synchronizer to decide whether a whole
// buffered batch predates a snapshot.
func (b Batch) MinRTS() uint64 {
	if len(b.Deltas) == 0 {
		return 0
	}
	min := b.Deltas[0].RTS
	for _, d := range b.Deltas[1:] {
		if d.RTS < min {
			min = d.RTS
		}
	}
	return min
}

// IsEmpty reports whether the batch carries no deltas at all.
func (b Batch) IsEmpty() bool {
	return len(b.Deltas) == 0
}
