// Package orderbook implements the generic per-venue/per-symbol price-level
// book from spec.md §4.1: apply Assign/Increase/Decrease/Trade deltas from a
// MarketUpdate or MarketSnapshot, query top-N depth, best price, and the two
// "cost to sweep a side" queries, and re-derive a full MarketSnapshot of
// current book state.
package orderbook

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kestrelmd/marketfeed/currency"
	"github.com/kestrelmd/marketfeed/marketdata"
)

const defaultTradeRingSize = 100

// Book is a single venue/symbol order book. It is exclusively owned by the
// feed worker while applying deltas (spec.md §3 Ownership); readers either
// take a brief read lock via the exported query methods or clone a
// MarketSnapshot for lock-free use elsewhere.
type Book struct {
	mu sync.RWMutex

	Venue  string
	Symbol currency.Pair

	bids *side
	asks *side
	trds *marketdata.TradeRing

	last      *marketdata.Batch
	syncpoint uint64
}

// New constructs an empty book for venue/symbol.
func New(venue string, symbol currency.Pair) *Book {
	return &Book{
		Venue:  venue,
		Symbol: symbol,
		bids:   newSide(true),
		asks:   newSide(false),
		trds:   marketdata.NewTradeRing(defaultTradeRingSize),
	}
}

// Syncpoint returns the book's current syncpoint (the maximum RTS observed
// across every batch applied so far).
func (b *Book) Syncpoint() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.syncpoint
}

// Last returns the last applied batch, or nil if nothing has been applied
// yet.
func (b *Book) Last() *marketdata.Batch {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last
}

// Apply applies a MarketUpdate or MarketSnapshot to the book.
//
// A MarketSnapshot resets both sides and the trade ring, then applies every
// contained delta in order by its own Kind; snapshots built by the bundled
// adapters and by MarketSnapshot carry only Assigns (per spec.md §3, a
// snapshot's data is semantically "the book equals exactly the Assigns
// contained here").
// A MarketUpdate applies each delta in order against existing state.
//
// After a successful apply, the batch is recorded as Last and Syncpoint
// advances to the maximum RTS observed in the batch — monotonically: if the
// batch's max RTS is behind the current syncpoint, the syncpoint does not
// move backwards.
func (b *Book) Apply(batch marketdata.Batch) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if batch.Kind == marketdata.Snapshot {
		b.bids.reset()
		b.asks.reset()
		b.trds.Reset()
	}

	for _, d := range batch.Deltas {
		if err := b.applyDelta(d); err != nil {
			return err
		}
	}

	b.last = &batch
	if mr := batch.MaxRTS(); mr > b.syncpoint {
		b.syncpoint = mr
	}
	return nil
}

func (b *Book) applyDelta(d marketdata.Delta) error {
	if d.Kind == marketdata.TradeKind {
		b.trds.Push(marketdata.Trade{
			Venue:  d.Venue,
			Symbol: b.Symbol.String(),
			Price:  marketdata.PriceLevel{Price: d.Price, Size: d.Size},
			Side:   d.Side,
			Time:   time.Now(),
		})
		return nil
	}

	var s *side
	switch d.Side {
	case marketdata.Bid:
		s = b.bids
	case marketdata.Ask:
		s = b.asks
	default:
		return ErrInvalidSide
	}

	switch d.Kind {
	case marketdata.AssignKind:
		s.set(d.Price, d.Size)
	case marketdata.IncreaseKind:
		s.set(d.Price, s.size(d.Price).Add(d.Size))
	case marketdata.DecreaseKind:
		next := s.size(d.Price).Sub(d.Size)
		if next.IsNegative() {
			next = decimal.Zero
		}
		s.set(d.Price, next)
	default:
		return ErrUnknownDelta
	}
	return nil
}

// InsideBid returns the best (highest) bid level, or ErrEmptyBook if the
// bid side is empty.
func (b *Book) InsideBid() (PriceLevelRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	lvl, ok := b.bids.best()
	if !ok {
		return PriceLevelRecord{}, ErrEmptyBook
	}
	return lvl, nil
}

// InsideAsk returns the best (lowest) ask level, or ErrEmptyBook if the ask
// side is empty.
func (b *Book) InsideAsk() (PriceLevelRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	lvl, ok := b.asks.best()
	if !ok {
		return PriceLevelRecord{}, ErrEmptyBook
	}
	return lvl, nil
}

// IsCrossed reports whether the best bid is >= the best ask. The book never
// auto-corrects this (spec.md §3: "Violations from the wire are surfaced
// but not silently corrected") — callers decide what to do.
func (b *Book) IsCrossed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	bid, bidOK := b.bids.best()
	ask, askOK := b.asks.best()
	if !bidOK || !askOK {
		return false
	}
	return bid.Price.GreaterThanOrEqual(ask.Price)
}

// Depth returns up to n PriceLevelRecords per side in price-priority order
// (bids descending, asks ascending). n <= 0 returns every level.
func (b *Book) Depth(n int) (bids, asks []PriceLevelRecord) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bids.depth(n), b.asks.depth(n)
}

// PriceForSize walks the book side named by side — not the opposing
// liquidity; spec.md §4.1/§9 resolves this explicitly in favor of the
// implementation the system was distilled from (original_source's
// bitfinex/book.py indexes {Bid: bids, Ask: asks}[side] directly) — and
// returns the cumulative price paid to sweep size units from it, short
// filling (returning the sum over all levels) if liquidity runs out before
// size is exhausted.
func (b *Book) PriceForSize(sd marketdata.Side, size decimal.Decimal) (decimal.Decimal, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, err := b.sideFor(sd)
	if err != nil {
		return decimal.Zero, err
	}
	remaining := size
	total := decimal.Zero
	for _, p := range s.keys {
		lvl := s.levels[p.String()]
		fill := decimal.Min(remaining, lvl)
		total = total.Add(fill.Mul(p))
		remaining = remaining.Sub(fill)
		if remaining.Sign() <= 0 {
			break
		}
	}
	return total, nil
}

// SizeForPrice is the dual of PriceForSize: how much size is obtainable
// from side sd by spending at most price.
func (b *Book) SizeForPrice(sd marketdata.Side, price decimal.Decimal) (decimal.Decimal, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, err := b.sideFor(sd)
	if err != nil {
		return decimal.Zero, err
	}
	remaining := price
	total := decimal.Zero
	for _, p := range s.keys {
		lvl := s.levels[p.String()]
		cost := p.Mul(lvl)
		if cost.LessThanOrEqual(remaining) {
			total = total.Add(lvl)
			remaining = remaining.Sub(cost)
			continue
		}
		// partial fill at this level
		total = total.Add(remaining.Div(p))
		remaining = decimal.Zero
		break
	}
	return total, nil
}

func (b *Book) sideFor(sd marketdata.Side) (*side, error) {
	switch sd {
	case marketdata.Bid:
		return b.bids, nil
	case marketdata.Ask:
		return b.asks, nil
	default:
		return nil, ErrInvalidSide
	}
}

// MarketSnapshot returns a MarketSnapshot batch containing an Assign for
// every currently stored level on both sides, stamped with the current
// wall-clock time and the book's own syncpoint as RTS. Applying the
// returned snapshot to a fresh book reproduces this one (spec.md §8
// round-trip property).
func (b *Book) MarketSnapshot() marketdata.Batch {
	b.mu.RLock()
	defer b.mu.RUnlock()

	sp := b.syncpoint
	deltas := make([]marketdata.Delta, 0, b.bids.len()+b.asks.len())
	for _, p := range b.bids.keys {
		deltas = append(deltas, marketdata.Assign(sp, b.Venue, b.Symbol, marketdata.Bid, p, b.bids.levels[p.String()]))
	}
	for _, p := range b.asks.keys {
		deltas = append(deltas, marketdata.Assign(sp, b.Venue, b.Symbol, marketdata.Ask, p, b.asks.levels[p.String()]))
	}
	return marketdata.Batch{
		Kind:   marketdata.Snapshot,
		TS:     time.Now(),
		Venue:  b.Venue,
		Symbol: b.Symbol,
		Deltas: deltas,
	}
}

// RecentTrades returns up to n of the most recently applied trades, newest
// first.
func (b *Book) RecentTrades(n int) []marketdata.Trade {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.trds.Recent(n)
}

// IsEmpty reports whether the book has never had a batch applied.
func (b *Book) IsEmpty() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last == nil
}
