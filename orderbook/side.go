package orderbook

import (
	"sort"

	"github.com/shopspring/decimal"
)

// side is a sorted price -> size index for one side of a book. It keeps a
// slice of keys in priority order alongside a map for O(1) size lookup.
//
// The retrieval pack carries no Go sorted-map/tree library (no
// google/btree, no emirpasic/gods — the teacher's Python original leans on
// sortedcontainers.SortedDict, which has no equivalent among the examples),
// so this is built directly on sort.Search over a decimal-keyed slice
// rather than reaching for a balanced tree. Book depth in practice is a few
// hundred levels at most, so an O(n) insert is an acceptable trade for
// O(log n) best-price access and in-order iteration without per-node
// allocation. See DESIGN.md for the full justification.
type side struct {
	descending bool // true for bids (best = highest price first)
	keys       []decimal.Decimal
	levels     map[string]decimal.Decimal // price.String() -> size
}

func newSide(descending bool) *side {
	return &side{
		descending: descending,
		levels:     make(map[string]decimal.Decimal),
	}
}

func (s *side) reset() {
	s.keys = s.keys[:0]
	for k := range s.levels {
		delete(s.levels, k)
	}
}

func (s *side) less(a, b decimal.Decimal) bool {
	if s.descending {
		return a.GreaterThan(b)
	}
	return a.LessThan(b)
}

// search returns the index at which price is, or should be inserted to keep
// keys in priority order, and whether it was found exactly.
func (s *side) search(price decimal.Decimal) (idx int, found bool) {
	idx = sort.Search(len(s.keys), func(i int) bool {
		return !s.less(s.keys[i], price)
	})
	if idx < len(s.keys) && s.keys[idx].Equal(price) {
		return idx, true
	}
	return idx, false
}

// size returns the current size at price, or zero if absent.
func (s *side) size(price decimal.Decimal) decimal.Decimal {
	if v, ok := s.levels[price.String()]; ok {
		return v
	}
	return decimal.Zero
}

// set installs size at price, zero erasing the level, per the Assign apply
// rule shared by Increase/Decrease after their arithmetic.
func (s *side) set(price, size decimal.Decimal) {
	idx, found := s.search(price)
	if size.Sign() <= 0 {
		if found {
			s.keys = append(s.keys[:idx], s.keys[idx+1:]...)
			delete(s.levels, price.String())
		}
		return
	}
	if !found {
		s.keys = append(s.keys, decimal.Zero)
		copy(s.keys[idx+1:], s.keys[idx:])
		s.keys[idx] = price
	}
	s.levels[price.String()] = size
}

// best returns the top-priority level, or ok=false if the side is empty.
func (s *side) best() (PriceLevelRecord, bool) {
	if len(s.keys) == 0 {
		return PriceLevelRecord{}, false
	}
	p := s.keys[0]
	return PriceLevelRecord{Price: p, Size: s.levels[p.String()]}, true
}

// depth returns up to n levels in priority order. n <= 0 returns every
// level.
func (s *side) depth(n int) []PriceLevelRecord {
	if n <= 0 || n > len(s.keys) {
		n = len(s.keys)
	}
	out := make([]PriceLevelRecord, n)
	for i := 0; i < n; i++ {
		p := s.keys[i]
		out[i] = PriceLevelRecord{Price: p, Size: s.levels[p.String()]}
	}
	return out
}

func (s *side) len() int {
	return len(s.keys)
}
