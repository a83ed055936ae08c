package kraken

import (
	"context"
	"time"

	"github.com/kestrelmd/marketfeed/currency"
	"github.com/kestrelmd/marketfeed/feed"
)

// BookSnapshotPollFunc returns a feed.PollFunc that fetches a fresh Depth
// snapshot every tick and emits it as an OrderBookUpdate, mirroring
// netclients.py's BookPoller._poll (which just re-fetches book_snapshot()
// on every tick rather than tracking incremental state — Kraken's
// retrieved source never generalizes beyond whole-book reissue).
func BookSnapshotPollFunc(client *Client, symbol currency.Pair) feed.PollFunc {
	return func(ctx context.Context) ([]feed.Event, error) {
		batch, err := client.BookSnapshot(ctx, symbol)
		if err != nil {
			return nil, err
		}
		return []feed.Event{{
			Kind:  feed.OrderBookUpdate,
			Venue: Name,
			Time:  time.Now().UTC(),
			Batch: batch,
		}}, nil
	}
}

// OpenOrdersPollFunc returns a feed.PollFunc that fetches open orders every
// tick and emits one OrderChange event per order, the polling-driven
// analogue of a websocket order-update feed for venues (like Kraken) that
// don't push order-state changes.
//
// Each event carries the order's wire status string unchanged; closetm is
// not read. Only orders OpenOrders returns are polled, so an order that
// leaves the open list produces no further event from this function.
func OpenOrdersPollFunc(client *Client, symbol currency.Pair) feed.PollFunc {
	return func(ctx context.Context) ([]feed.Event, error) {
		orders, err := client.OpenOrders(ctx, symbol)
		if err != nil {
			return nil, err
		}
		events := make([]feed.Event, 0, len(orders))
		for _, o := range orders {
			events = append(events, feed.Event{
				Kind:  feed.OrderChange,
				Venue: Name,
				Time:  time.Now().UTC(),
				Change: feed.OrderChangeInfo{
					VenueOrderID: o.VenueOrderID,
					Status:       o.Status,
				},
			})
		}
		return events, nil
	}
}
