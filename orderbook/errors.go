package orderbook

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/kestrelmd/marketfeed/marketdata"
)

// Error taxonomy for the book, per spec.md §4.6. ErrInvalidSide and
// ErrUnknownDelta are the marketdata sentinels of the same name.
var (
	ErrInvalidSide  = marketdata.ErrInvalidSide
	ErrUnknownDelta = marketdata.ErrUnknownDelta
	ErrEmptyBook    = errors.New("book side is empty")
	ErrCrossedBook  = errors.New("book is crossed: best bid >= best ask")
)

// PriceLevelRecord is the public (price, size) pair returned by queries.
type PriceLevelRecord struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}
