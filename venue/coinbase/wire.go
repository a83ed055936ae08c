package coinbase

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kestrelmd/marketfeed/currency"
	"github.com/kestrelmd/marketfeed/feed"
	"github.com/kestrelmd/marketfeed/marketdata"
)

// message is the shared envelope across every Coinbase websocket message
// type; fields unused by a given type are left zero.
type message struct {
	Type         string `json:"type"`
	ProductID    string `json:"product_id"`
	Sequence     int64  `json:"sequence"`
	Time         string `json:"time"`
	Side         string `json:"side"`
	OrderID      string `json:"order_id"`
	OrderType    string `json:"order_type"`
	Reason       string `json:"reason"`
	Price        string `json:"price"`
	Size         string `json:"size"`
	RemainingSize string `json:"remaining_size"`
	OldSize      string `json:"old_size"`
	NewSize      string `json:"new_size"`
	MakerOrderID string `json:"maker_order_id"`
	TakerOrderID string `json:"taker_order_id"`
}

const coinbaseTimeLayout = "2006-01-02T15:04:05.000000Z"

func parseTime(s string) time.Time {
	t, err := time.Parse(coinbaseTimeLayout, s)
	if err != nil {
		return time.Now().UTC()
	}
	return t
}

func sideFromWire(s string) (marketdata.Side, error) {
	switch s {
	case "buy":
		return marketdata.Bid, nil
	case "sell":
		return marketdata.Ask, nil
	default:
		return marketdata.UnknownSide, fmt.Errorf("coinbase: unknown side %q", s)
	}
}

// toBookDeltas converts one decoded Coinbase message into zero or more
// normalized Deltas, mirroring netclients.py's toBookMessages: "received" and
// a "done" for a market order carry no book change; "done" is a Decrease by
// the order's remaining_size; "open" is an Increase; "match" is a Decrease by the
// traded size (the resting side loses size); "change" is a Decrease by
// old_size-new_size.
func toBookDeltas(m message, symbol currency.Pair) ([]marketdata.Delta, error) {
	if m.Type == "received" {
		return nil, nil
	}
	if m.Type == "done" && m.OrderType == "market" {
		return nil, nil
	}
	side, err := sideFromWire(m.Side)
	if err != nil {
		return nil, err
	}

	var kind func(rts uint64, venue string, symbol currency.Pair, side marketdata.Side, price, size decimal.Decimal) marketdata.Delta
	var sizeStr string

	switch m.Type {
	case "done":
		kind, sizeStr = marketdata.Decrease, m.RemainingSize
	case "open":
		kind, sizeStr = marketdata.Increase, m.RemainingSize
	case "match":
		kind, sizeStr = marketdata.Decrease, m.Size
	case "change":
		if m.Price == "" {
			return nil, nil
		}
		kind = marketdata.Decrease
		old, err := decimal.NewFromString(m.OldSize)
		if err != nil {
			return nil, err
		}
		cur, err := decimal.NewFromString(m.NewSize)
		if err != nil {
			return nil, err
		}
		sizeStr = old.Sub(cur).String()
	default:
		return nil, fmt.Errorf("coinbase: unknown message type %q", m.Type)
	}

	price, err := decimal.NewFromString(m.Price)
	if err != nil {
		return nil, err
	}
	size, err := decimal.NewFromString(sizeStr)
	if err != nil {
		return nil, err
	}

	return []marketdata.Delta{kind(uint64(m.Sequence), Name, symbol, side, price, size)}, nil
}

// toMatchEvents builds the base event for a "match" message (wsclient.py
// emits both ON_MATCH and ON_TRADE for every match); the caller sends it
// once as Trade with the correlation ids stripped and once as Match with
// them intact, so a fill is never applied twice.
func toMatchEvents(m message, symbol currency.Pair) (feed.Event, error) {
	side, err := sideFromWire(m.Side)
	if err != nil {
		return feed.Event{}, err
	}
	price, err := decimal.NewFromString(m.Price)
	if err != nil {
		return feed.Event{}, err
	}
	size, err := decimal.NewFromString(m.Size)
	if err != nil {
		return feed.Event{}, err
	}
	t := parseTime(m.Time)
	return feed.Event{
		Kind:  feed.Trade,
		Venue: Name,
		Time:  t,
		Trade: marketdata.Trade{
			Venue:  Name,
			Symbol: symbol.String(),
			Price:  marketdata.PriceLevel{Price: price, Size: size},
			Side:   side,
			Time:   t,
		},
		MakerOrderID: m.MakerOrderID,
		TakerOrderID: m.TakerOrderID,
	}, nil
}

// toOrderChange converts a "received"/"done" message into an OrderChange
// event, mirroring wsclient.py's OrderStateChange.
func toOrderChange(m message) feed.Event {
	t := parseTime(m.Time)
	var price, remaining decimal.Decimal
	if m.Price != "" {
		price, _ = decimal.NewFromString(m.Price)
	}
	if m.RemainingSize != "" {
		remaining, _ = decimal.NewFromString(m.RemainingSize)
	}
	return feed.Event{
		Kind:  feed.OrderChange,
		Venue: Name,
		Time:  t,
		Change: feed.OrderChangeInfo{
			VenueOrderID:  m.OrderID,
			Status:        m.Type,
			Reason:        m.Reason,
			Price:         marketdata.PriceLevel{Price: price},
			RemainingSize: marketdata.PriceLevel{Size: remaining},
			Time:          t,
		},
	}
}

func decodeMessage(raw []byte) (message, error) {
	var m message
	if err := json.Unmarshal(raw, &m); err != nil {
		return message{}, err
	}
	return m, nil
}
