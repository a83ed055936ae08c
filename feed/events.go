// Package feed drives one venue adapter's live source on a background
// goroutine and emits normalized events onto a bounded queue (spec.md §4.4).
package feed

import (
	"time"

	"github.com/kestrelmd/marketfeed/marketdata"
)

// EventKind is the closed set of event variants a worker can emit. Modeled
// as a tagged union (Kind + one populated payload field) rather than an
// interface hierarchy, matching marketdata.Delta's dispatch shape — the
// consumer is a hot-path switch, not a type assertion.
type EventKind uint8

// Recognised event kinds.
const (
	Connected EventKind = iota
	Disconnected
	Trade
	Match
	OrderBookUpdate
	OrderChange
)

// String renders the event kind for logging.
func (k EventKind) String() string {
	switch k {
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	case Trade:
		return "trade"
	case Match:
		return "match"
	case OrderBookUpdate:
		return "order_book_update"
	case OrderChange:
		return "order_change"
	default:
		return "unknown"
	}
}

// OrderChangeInfo carries a venue order-state transition observed on the
// live feed, grounded on the teacher's wsclient.py OrderStateChange: a
// venue-native status plus the fields needed to build an
// OrderExecutionInfo when the change represents a fill.
type OrderChangeInfo struct {
	VenueOrderID   string
	Status         string // venue-native status string, e.g. "received", "done"
	Reason         string // venue-native reason, e.g. "filled", "canceled"
	Price          marketdata.PriceLevel
	RemainingSize  marketdata.PriceLevel // Size populated, Price zero
	Time           time.Time
}

// Event is one emission from a feed Worker or Poller.
type Event struct {
	Kind      EventKind
	Venue     string
	Time      time.Time
	Trade     marketdata.Trade
	Batch     marketdata.Batch // populated on OrderBookUpdate
	Change    OrderChangeInfo
	Err       error // populated on Disconnected when the disconnect was an error

	// MakerOrderID/TakerOrderID are populated on Match only, never on the
	// paired Trade event for the same fill (spec.md §4.4: Match carries
	// the correlation ids, Trade is the aggregated bar-construction
	// record) — so broker.Broker's findOrderForTrade only ever matches a
	// Match event, and a single fill never applies twice. Populated when
	// the venue's wire match carries both sides' order ids (Coinbase's
	// "match" message). broker.Broker checks both against its active
	// registry the way wsclient.py's match.involves(activeOrderIds) does,
	// since a public trade feed has no notion of "which side is ours".
	MakerOrderID string
	TakerOrderID string
}
