package binance

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

// WebSocketSource is the combined depth+trade feed, implementing
// feed.LiveSource. Grounded on wsclient.py's WebSocketClient: a single
// combined-stream connection covering both the depth and trade channels,
// with RequireDenseSequencing enabled — Binance's depthUpdate "u" field is
// a dense per-symbol counter (spec.md §4.2's S6 gap scenario is modeled on
// exactly this venue), unlike Coinbase's sequence numbers which may skip.
type WebSocketSource struct {
	rest   *Client
	symbol currency.Pair
	log    *zap.Logger
}

// NewWebSocketSource constructs a WebSocketSource for symbol.
func NewWebSocketSource(rest *Client, symbol currency.Pair, log *zap.Logger) *WebSocketSource {
	return &WebSocketSource{rest: rest, symbol: symbol, log: telemetry.OrDefault(log)}
}

func (s *WebSocketSource) Name() string { return Name }

// Run dials the combined stream, performs the snapshot handshake, and
// streams normalized Events until the connection closes or ctx is
// canceled.
func (s *WebSocketSource) Run(ctx context.Context, out chan<- feed.Event) error {
	venueSymbol, err := ToVenueSymbol(s.symbol)
	if err != nil {
		return err
	}
	url := wsBaseURL + streamName(venueSymbol, "depth") + "/" + streamName(venueSymbol, "trade")
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("binance: dial: %w", err)
	}
	defer conn.Close()

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
	sync.RequireDenseSequencing = true

	snapshot, err := s.rest.BookSnapshot(ctx, s.symbol)
	if err != nil {
		return fmt.Errorf("binance: initial snapshot: %w", err)
	}
	if err := sync.SubmitSnapshot(snapshot); err != nil {
		return fmt.Errorf("binance: applying initial snapshot: %w", err)
	}
	out <- feed.Event{Kind: feed.OrderBookUpdate, Venue: Name, Time: time.Now().UTC(), Batch: book.MarketSnapshot()}

	for {
		if ctx.Err() != nil {
			return nil
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("binance: read: %w", err)
		}

		eventType, err := decodeEnvelope(raw)
		if err != nil {
			s.log.Warn("binance: malformed message", zap.Error(err))
			continue
		}

		switch eventType {
		case "depthUpdate":
			var d depthUpdate
			if err := json.Unmarshal(raw, &d); err != nil {
				s.log.Warn("binance: depth decode error", zap.Error(err))
				continue
			}
			deltas, err := toBookDeltas(d, uint64(d.FinalUpdateID), s.symbol)
			if err != nil {
				s.log.Warn("binance: book decode error", zap.Error(err))
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
		case "trade":
			var t tradeMessage
			if err := json.Unmarshal(raw, &t); err != nil {
				s.log.Warn("binance: trade decode error", zap.Error(err))
				continue
			}
			evt, err := toTradeEvents(t, s.symbol)
			if err == nil {
				out <- evt
				evt.Kind = feed.Match
				out <- evt
			}
		default:
			s.log.Warn("binance: unknown stream event type", zap.String("type", eventType))
		}
	}
}
