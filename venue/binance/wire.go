package binance

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kestrelmd/marketfeed/currency"
	"github.com/kestrelmd/marketfeed/feed"
	"github.com/kestrelmd/marketfeed/marketdata"
)

// depthUpdate is Binance's combined-stream depthUpdate payload.
type depthUpdate struct {
	EventType     string     `json:"e"`
	FinalUpdateID int64      `json:"u"`
	Asks          [][]string `json:"a"`
	Bids          [][]string `json:"b"`
}

// tradeMessage is Binance's combined-stream trade payload.
type tradeMessage struct {
	EventType string `json:"e"`
	EventTime int64  `json:"E"`
	Price     string `json:"p"`
	Quantity  string `json:"q"`
	// IsBuyerMaker mirrors BinanceMatch.TradeBar's dir_ = DOWN if m else UP:
	// a true buyer-maker means the trade was a sell aggressor.
	IsBuyerMaker bool `json:"m"`
}

// toBookDeltas converts one depthUpdate into Assign deltas for every
// price level it carries, mirroring netclients.py's toBookMessages: rts is
// the update's own "u" (falling back to "lastUpdateId" for a REST
// snapshot decoded through the same path) — Binance gives no other
// syncpoint, so the update id itself becomes the book's clock.
func toBookDeltas(d depthUpdate, rts uint64, symbol currency.Pair) ([]marketdata.Delta, error) {
	deltas := make([]marketdata.Delta, 0, len(d.Asks)+len(d.Bids))
	mk := func(levels [][]string, side marketdata.Side) error {
		for _, lv := range levels {
			if len(lv) < 2 {
				return fmt.Errorf("binance: malformed depth level %v", lv)
			}
			price, err := decimal.NewFromString(lv[0])
			if err != nil {
				return err
			}
			size, err := decimal.NewFromString(lv[1])
			if err != nil {
				return err
			}
			deltas = append(deltas, marketdata.Assign(rts, Name, symbol, side, price, size))
		}
		return nil
	}
	if err := mk(d.Asks, marketdata.Ask); err != nil {
		return nil, err
	}
	if err := mk(d.Bids, marketdata.Bid); err != nil {
		return nil, err
	}
	return deltas, nil
}

func toTradeEvents(t tradeMessage, symbol currency.Pair) (feed.Event, error) {
	price, err := decimal.NewFromString(t.Price)
	if err != nil {
		return feed.Event{}, err
	}
	size, err := decimal.NewFromString(t.Quantity)
	if err != nil {
		return feed.Event{}, err
	}
	side := marketdata.Bid
	if t.IsBuyerMaker {
		side = marketdata.Ask
	}
	ts := time.UnixMilli(t.EventTime).UTC()
	return feed.Event{
		Kind:  feed.Trade,
		Venue: Name,
		Time:  ts,
		Trade: marketdata.Trade{
			Venue:  Name,
			Symbol: symbol.String(),
			Price:  marketdata.PriceLevel{Price: price, Size: size},
			Side:   side,
			Time:   ts,
		},
	}, nil
}

func decodeEnvelope(raw []byte) (string, error) {
	var env struct {
		EventType string `json:"e"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", err
	}
	return env.EventType, nil
}
