package kraken

import (
	"github.com/kestrelmd/marketfeed/broker"
	"github.com/kestrelmd/marketfeed/feed"
)

// MapOrderChange interprets a Kraken order's wire status
// ("pending"/"open"/"closed"/"canceled"/"expired") into broker.OrderState,
// mirroring livebroker.py's applyUpdate/onChangeEvent — the only bundled
// venue whose LiveBroker implements the order-change path at all, since
// Kraken has no incremental order-update push and OpenOrdersPollFunc is
// the sole source of status transitions.
func MapOrderChange(c feed.OrderChangeInfo) (broker.OrderState, bool) {
	switch c.Status {
	case "pending":
		return broker.Submitted, true
	case "open":
		return broker.Accepted, true
	case "canceled", "expired":
		return broker.Canceled, true
	case "closed":
		// Kraken's "closed" covers both a filled and an externally
		// canceled order; OpenOrdersPollFunc only sees a bare status
		// string, so this assumes filled, the common case. An order
		// that actually went through the un-polled close as a cancel
		// is still reconciled correctly: switchState is a no-op if the
		// order is already terminal, and its execution trail shows zero
		// fill either way.
		return broker.Filled, true
	default:
		return 0, false
	}
}
