package venue

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/kestrelmd/marketfeed/currency"
	"github.com/kestrelmd/marketfeed/marketdata"
)

// TimeInForce is the closed set of flags an adapter may recognise for a
// limit order, per spec.md §4.3.
type TimeInForce uint8

// Recognised time-in-force flags.
const (
	GTC TimeInForce = iota // good till canceled
	IOC                    // immediate or cancel
	FOK                    // fill or kill
	PostOnly
	GTT // good till time; CancelAfter names the expiry
)

// OrderFlags bundles the time-in-force selection and its parameters.
type OrderFlags struct {
	TIF         TimeInForce
	CancelAfter int64 // unix seconds, meaningful only when TIF == GTT
}

// OrderSide mirrors marketdata.Side at the venue boundary: adapters place
// orders as Buy/Sell, not Bid/Ask — spec.md §3 names the order action
// separately from the book side it will rest on.
type OrderSide uint8

// Recognised order actions.
const (
	Buy OrderSide = iota
	Sell
)

// VenueOrder is what open_orders/closed_orders return: a venue's own view
// of one order, decoded into the normalized shape the broker consumes to
// reconcile its registry (spec.md §4.5's polling-driven Submitted→Accepted
// auto-advance and S5's "refresh open orders via REST on every
// initialize").
type VenueOrder struct {
	VenueOrderID string
	Symbol       currency.Pair
	Side         OrderSide
	Price        decimal.Decimal // zero for a market order
	Size         decimal.Decimal
	FilledSize   decimal.Decimal
	Status       string // venue's own wire status string, mapped by the broker
	SubmitTime   int64  // unix nanos
}

// Adapter is the capability interface every venue implementation exposes
// (spec.md §4.3). It covers the REST surface only; live feeds are driven
// separately by feed.Worker (a feed.LiveSource) and feed.Poller (a set of
// feed.PollFunc values).
type Adapter interface {
	// Name is the venue's identifier, e.g. "coinbase".
	Name() string

	// BookSnapshot fetches a full order-book snapshot for symbol.
	BookSnapshot(ctx context.Context, symbol currency.Pair) (marketdata.Batch, error)

	// Balances returns free balance per currency code.
	Balances(ctx context.Context) (map[currency.Code]decimal.Decimal, error)

	// LimitOrder places a limit order, returning the venue's order id.
	LimitOrder(ctx context.Context, side OrderSide, price, size decimal.Decimal, symbol currency.Pair, flags OrderFlags) (string, error)

	// MarketOrder places a market order, returning the venue's order id.
	MarketOrder(ctx context.Context, side OrderSide, size decimal.Decimal, symbol currency.Pair) (string, error)

	// Cancel cancels venueOrderID. Idempotent at the venue: a repeated
	// cancel of a terminal order returns ErrNotActive, which is
	// recoverable.
	Cancel(ctx context.Context, venueOrderID string) error

	// OpenOrders returns currently-open orders, optionally filtered to
	// one symbol (the zero Pair means "all symbols").
	OpenOrders(ctx context.Context, symbol currency.Pair) ([]VenueOrder, error)

	// ClosedOrders returns orders closed at or after since (unix nanos),
	// optionally filtered to the given symbols.
	ClosedOrders(ctx context.Context, since int64, symbols []currency.Pair) ([]VenueOrder, error)

	// InstrumentTraits returns the FloatTraits for every symbol the venue
	// trades.
	InstrumentTraits(ctx context.Context) (map[currency.Pair]FloatTraits, error)

	// FeeRate returns the taker fee rate applied to market orders and
	// aggressing limit fills (spec.md §4.5).
	FeeRate() decimal.Decimal
}
