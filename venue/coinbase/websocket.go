package coinbase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kestrelmd/marketfeed/currency"
	"github.com/kestrelmd/marketfeed/feed"
	"github.com/kestrelmd/marketfeed/internal/telemetry"
	"github.com/kestrelmd/marketfeed/marketdata"
	"github.com/kestrelmd/marketfeed/orderbook"
	"github.com/kestrelmd/marketfeed/syncstream"
	"github.com/kestrelmd/marketfeed/venue"
)

// WebSocketSource is the live book/trade/order-change feed, implementing
// feed.LiveSource. Grounded directly on wsclient.py's WebSocketClient: the
// same onOpened subscribe-then-snapshot handshake, the same per-connection
// book kept only to re-derive a snapshot on every update, the same
// dense-sequencing-free synchronizer wiring (Coinbase's sequence numbers
// may skip, so RequireDenseSequencing is false — see streamsync usage in
// wsclient.py, which passes no gap detector).
type WebSocketSource struct {
	rest   *Client
	symbol currency.Pair
	log    *zap.Logger
}

// NewWebSocketSource constructs a WebSocketSource for symbol, using rest
// for the initial book snapshot handshake.
func NewWebSocketSource(rest *Client, symbol currency.Pair, log *zap.Logger) *WebSocketSource {
	return &WebSocketSource{rest: rest, symbol: symbol, log: telemetry.OrDefault(log)}
}

func (s *WebSocketSource) Name() string { return Name }

// Run dials the feed, performs the subscribe/snapshot handshake, and
// streams normalized Events until the connection closes or ctx is
// canceled.
func (s *WebSocketSource) Run(ctx context.Context, out chan<- feed.Event) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("coinbase: dial: %w", err)
	}
	defer conn.Close()

	venueSymbol, err := ToVenueSymbol(s.symbol)
	if err != nil {
		return err
	}
	sub := map[string]interface{}{
		"type":        "subscribe",
		"product_ids": []string{venueSymbol},
		"channels":    []string{"full", "matches"},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("coinbase: subscribe: %w", err)
	}

	out <- feed.Event{Kind: feed.Connected, Venue: Name, Time: time.Now().UTC()}

	book := orderbook.New(Name, s.symbol)
	sync := syncstream.New(
		func(b marketdata.Batch) uint64 { return b.MaxRTS() },
		func(sp uint64, b marketdata.Batch) bool { return !b.IsEmpty() && b.MinRTS() > sp },
		func(b marketdata.Batch) error { return book.Apply(b) },
		func(b marketdata.Batch) (uint64, error) {
			if err := book.Apply(b); err != nil {
				return 0, err
			}
			return book.Syncpoint(), nil
		},
	)

	snapshot, err := s.rest.BookSnapshot(ctx, s.symbol)
	if err != nil {
		return fmt.Errorf("coinbase: initial snapshot: %w", err)
	}
	if err := sync.SubmitSnapshot(snapshot); err != nil {
		return fmt.Errorf("coinbase: applying initial snapshot: %w", err)
	}
	out <- feed.Event{Kind: feed.OrderBookUpdate, Venue: Name, Time: time.Now().UTC(), Batch: book.MarketSnapshot()}

	for {
		if ctx.Err() != nil {
			return nil
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("coinbase: read: %w", err)
		}

		var envelope struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			s.log.Warn("coinbase: malformed message", zap.Error(err))
			continue
		}
		switch envelope.Type {
		case "heartbeat":
			continue
		case "error":
			s.log.Error("coinbase ws error", zap.ByteString("raw", raw))
			continue
		}
		if envelope.Type != "received" && envelope.Type != "open" && envelope.Type != "done" &&
			envelope.Type != "match" && envelope.Type != "change" {
			continue
		}

		m, err := decodeMessage(raw)
		if err != nil {
			s.log.Warn("coinbase: decode error", zap.Error(err))
			continue
		}

		if m.Type == "match" {
			evt, err := toMatchEvents(m, s.symbol)
			if err == nil {
				trade := evt
				trade.MakerOrderID, trade.TakerOrderID = "", ""
				out <- trade
				evt.Kind = feed.Match
				out <- evt
			}
		}
		if m.Type == "received" || m.Type == "done" {
			out <- toOrderChange(m)
		}

		deltas, err := toBookDeltas(m, s.symbol)
		if err != nil {
			s.log.Warn("coinbase: book decode error", zap.Error(err))
			continue
		}
		if len(deltas) == 0 {
			continue
		}
		update := marketdata.Batch{
			Kind:   marketdata.Update,
			TS:     time.Now().UTC(),
			Venue:  Name,
			Symbol: s.symbol,
			Deltas: deltas,
		}
		if err := sync.SubmitStream(update); err != nil {
			return fmt.Errorf("%w: %v", venue.ErrProtocolViolation, err)
		}
		if !sync.IsBuffering() {
			out <- feed.Event{Kind: feed.OrderBookUpdate, Venue: Name, Time: time.Now().UTC(), Batch: book.MarketSnapshot()}
		}
	}
}
