package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kestrelmd/marketfeed/currency"
	"github.com/kestrelmd/marketfeed/feed"
	"github.com/kestrelmd/marketfeed/internal/telemetry"
	"github.com/kestrelmd/marketfeed/venue"
)

// QueueTimeout bounds how long Dispatch waits for the next feed.Event
// before returning with no work done, mirroring every bundled
// livebroker.py's LiveBroker.QUEUE_TIMEOUT = 0.01 (a 10ms
// Queue.get(True, QUEUE_TIMEOUT) call).
const QueueTimeout = 10 * time.Millisecond

// StatusMapper interprets one venue's wire order-change status/reason
// pair into the closed OrderState vocabulary. Every bundled livebroker.py
// spells this differently (Coinbase: received/open/done+reason, Kraken:
// open/closed/canceled/expired) while the registry/dispatch skeleton
// around it is identical — so the mapping is injected per venue rather
// than hardcoded into Broker. ok is false when the status carries no
// state change the broker should act on.
type StatusMapper func(feed.OrderChangeInfo) (state OrderState, ok bool)

// Broker owns one venue's active-order registry and balances, advancing
// orders as feed.Events arrive off a single feed.Queue. Single-writer:
// only Dispatch (and the synchronous Submit/Cancel/Refresh* calls made
// from the same goroutine) mutate state, per spec.md §5's "one dispatch
// goroutine per venue" rule — Broker itself takes no lock, trusting that
// contract the way livebroker.py does.
type Broker struct {
	adapter   venue.Adapter
	queue     *feed.Queue
	mapStatus StatusMapper
	log       *zap.Logger

	activeOrders map[string]*Order // keyed by VenueOrderID
	balances     map[currency.Code]decimal.Decimal
	traits       map[currency.Pair]venue.FloatTraits
	levels       map[currency.Pair]*venue.MinMaxLevel

	handlers []OrderEventHandler
}

// NewBroker constructs a Broker around adapter, consuming events from
// queue. mapStatus may be nil: OrderChange events are then ignored,
// matching the Coinbase/Bitfinex livebroker.py style which never
// implements onChangeEvent at all, relying solely on user-trade matches
// for fill notification.
func NewBroker(adapter venue.Adapter, queue *feed.Queue, mapStatus StatusMapper, log *zap.Logger) *Broker {
	return &Broker{
		adapter:      adapter,
		queue:        queue,
		mapStatus:    mapStatus,
		log:          telemetry.OrDefault(log),
		activeOrders: make(map[string]*Order),
		balances:     make(map[currency.Code]decimal.Decimal),
		traits:       make(map[currency.Pair]venue.FloatTraits),
		levels:       make(map[currency.Pair]*venue.MinMaxLevel),
	}
}

// SetMinMaxLevel installs the minimum/maximum/step envelope Submit
// validates orders against for symbol (spec.md §4.5: "validate against
// minimum trade size"). venue.Adapter exposes no method for discovering
// this data on its own — callers populate it the same way they populate
// anything else the venue only communicates out of band (a config file,
// the exchange's public instruments endpoint). A symbol with no level
// installed passes Validate unconditionally (MinMaxLevel.Validate's
// nil-receiver contract).
func (b *Broker) SetMinMaxLevel(symbol currency.Pair, level *venue.MinMaxLevel) {
	b.levels[symbol] = level
}

// Subscribe registers h to receive every OrderEvent Dispatch produces.
// Not safe to call concurrently with Dispatch.
func (b *Broker) Subscribe(h OrderEventHandler) {
	b.handlers = append(b.handlers, h)
}

func (b *Broker) notify(evt OrderEvent) {
	for _, h := range b.handlers {
		h(evt)
	}
}

// Initialize refreshes balances, instrument traits, and open orders from
// the venue, mirroring LiveBroker.start()'s
// refreshAccountBalance/refreshOpenOrders sequence (S5: a reconnecting
// worker re-initializes its Broker the same way on every (re)start).
func (b *Broker) Initialize(ctx context.Context) error {
	if err := b.RefreshBalances(ctx); err != nil {
		return err
	}
	traits, err := b.adapter.InstrumentTraits(ctx)
	if err == nil {
		b.traits = traits
	}
	return b.refreshOpenOrders(ctx)
}

// RefreshBalances replaces the local balance snapshot from the venue.
func (b *Broker) RefreshBalances(ctx context.Context) error {
	balances, err := b.adapter.Balances(ctx)
	if err != nil {
		return err
	}
	b.balances = balances
	return nil
}

// refreshOpenOrders reconstructs the active-order registry from the
// venue's own view, mirroring build_order_from_open_order: any order the
// venue still reports open/pending is registered in whatever state its
// fill progress implies.
func (b *Broker) refreshOpenOrders(ctx context.Context) error {
	orders, err := b.adapter.OpenOrders(ctx, currency.EMPTYPAIR)
	if err != nil {
		return err
	}
	for _, vo := range orders {
		if _, exists := b.activeOrders[vo.VenueOrderID]; exists {
			continue
		}
		b.activeOrders[vo.VenueOrderID] = orderFromVenueOrder(vo)
	}
	return nil
}

// orderFromVenueOrder reconstructs an Order from a venue's own view of an
// open order, mirroring build_order_from_open_order across every
// livebroker.py.
func orderFromVenueOrder(vo venue.VenueOrder) *Order {
	kind := Limit
	if vo.Price.IsZero() {
		kind = Market
	}
	o := newOrder(kind, vo.Side, vo.Symbol, vo.Price, vo.Size, venue.OrderFlags{})
	o.setSubmitted(vo.VenueOrderID, time.Unix(0, vo.SubmitTime).UTC())
	o.state = Submitted
	if !vo.FilledSize.IsZero() {
		o.executions = append(o.executions, OrderExecutionInfo{Size: vo.FilledSize, Price: vo.Price})
		o.filledSize = vo.FilledSize
	}
	if o.RemainingSize().IsZero() && !vo.Size.IsZero() {
		o.state = Filled
	} else if !vo.FilledSize.IsZero() {
		o.state = PartiallyFilled
	} else {
		o.state = Accepted
	}
	return o
}

// Balance returns the free balance of code, zero if unknown.
func (b *Broker) Balance(code currency.Code) decimal.Decimal {
	if v, ok := b.balances[code]; ok {
		return v
	}
	return decimal.Zero
}

// ActiveOrders returns the current registry contents. The returned slice
// is a snapshot; mutating Order fields through it is still visible to the
// Broker (Order is always handled by pointer, matching
// getActiveOrders().values() in every livebroker.py).
func (b *Broker) ActiveOrders() []*Order {
	out := make([]*Order, 0, len(b.activeOrders))
	for _, o := range b.activeOrders {
		out = append(out, o)
	}
	return out
}

func (b *Broker) registerOrder(o *Order) {
	b.activeOrders[o.VenueOrderID] = o
}

func (b *Broker) unregisterOrder(o *Order) {
	delete(b.activeOrders, o.VenueOrderID)
}

// roundQuantity floors quantity to the venue's step increment for symbol,
// if known, mirroring BTCTraits.roundQuantity in every livebroker.py.
func (b *Broker) roundQuantity(symbol currency.Pair, quantity decimal.Decimal) decimal.Decimal {
	traits, ok := b.traits[symbol]
	if !ok {
		return quantity
	}
	return traits.RoundSize(quantity)
}

// roundPrice floors price to the venue's quote precision for symbol, if
// known, mirroring roundQuantity's use of BTCTraits but for the price
// side of FloatTraits.
func (b *Broker) roundPrice(symbol currency.Pair, price decimal.Decimal) decimal.Decimal {
	traits, ok := b.traits[symbol]
	if !ok {
		return price
	}
	return traits.RoundPrice(price)
}

// CreateLimitOrder builds an Initial-state limit Order, rounding price and
// quantity to the venue's instrument traits (§4.3), mirroring
// _createOrder across every livebroker.py.
func (b *Broker) CreateLimitOrder(symbol currency.Pair, side venue.OrderSide, price, quantity decimal.Decimal, flags venue.OrderFlags) *Order {
	return newOrder(Limit, side, symbol, b.roundPrice(symbol, price), b.roundQuantity(symbol, quantity), flags)
}

// CreateMarketOrder builds an Initial-state market Order.
func (b *Broker) CreateMarketOrder(symbol currency.Pair, side venue.OrderSide, quantity decimal.Decimal) *Order {
	return newOrder(Market, side, symbol, decimal.Zero, b.roundQuantity(symbol, quantity), venue.OrderFlags{})
}

// venueOrderKind maps this package's OrderKind onto venue.OrderKind for
// MinMaxLevel.Validate, which is shared infrastructure across every venue
// adapter and so speaks the venue package's own enum rather than broker's.
func venueOrderKind(k OrderKind) venue.OrderKind {
	if k == Market {
		return venue.Market
	}
	return venue.Limit
}

// Submit places order at the venue and registers it, mirroring
// submitOrder across every livebroker.py: INITIAL -> SUBMITTED, no event
// emitted for that first transition (the Position/order-book mapping
// isn't established yet at the moment of the call, same rationale as the
// Python original's comment on the same line).
//
// Before placing the order, it is checked against the venue's MinMaxLevel
// envelope for its symbol (§4.5): a violation is surfaced synchronously as
// venue.ErrBelowMinimumTrade, the same way a venue's own synchronous
// rejection would be, rather than being sent to the venue only to bounce.
func (b *Broker) Submit(ctx context.Context, order *Order) error {
	if !order.IsInitial() {
		return ErrOrderAlreadyProcessed
	}

	if err := b.levels[order.Symbol].Validate(order.Price, order.Quantity, venueOrderKind(order.Kind)); err != nil {
		return fmt.Errorf("%w: %v", venue.ErrBelowMinimumTrade, err)
	}

	var venueOrderID string
	var err error
	switch order.Kind {
	case Limit:
		venueOrderID, err = b.adapter.LimitOrder(ctx, order.Side, order.Price, order.Quantity, order.Symbol, order.Flags)
	case Market:
		venueOrderID, err = b.adapter.MarketOrder(ctx, order.Side, order.Quantity, order.Symbol)
	default:
		return ErrUnsupportedOrderKind
	}
	if err != nil {
		// spec.md §7's Fatal/Retryable/Surface taxonomy applies to submit
		// rejections the same way it applies to feed disconnects: a Fatal
		// rejection (bad credentials, a request the venue's protocol
		// itself refuses) gets logged as an error rather than the routine
		// "order was rejected" the caller sees for an ordinary one, since
		// it likely means every subsequent Submit on this Broker will fail
		// the same way.
		if venue.Classify(err) == venue.Fatal {
			b.log.Error("broker: order submission failed fatally", zap.Error(err),
				zap.Stringer("symbol", order.Symbol), zap.Uint8("side", uint8(order.Side)))
		}
		return err
	}

	order.setSubmitted(venueOrderID, time.Now().UTC())
	b.registerOrder(order)
	return order.switchState(Submitted)
}

// Cancel requests cancellation of order at the venue. A venue.ErrNotActive
// response means the order was already terminal there — that is treated
// as success (S4: cancel is idempotent), not an error, since the local
// registry is simply stale.
func (b *Broker) Cancel(ctx context.Context, order *Order) error {
	active, ok := b.activeOrders[order.VenueOrderID]
	if !ok || active != order {
		return ErrOrderNotActive
	}
	if order.IsFilled() {
		return ErrOrderNotActive
	}

	err := b.adapter.Cancel(ctx, order.VenueOrderID)
	if err != nil && !errors.Is(err, venue.ErrNotActive) {
		return err
	}

	b.unregisterOrder(order)
	if switchErr := order.switchState(Canceled); switchErr != nil {
		return switchErr
	}
	b.notify(OrderEvent{Order: order, Type: EventCanceled, Reason: "requested"})
	return b.RefreshBalances(ctx)
}

// fee computes the commission owed on size at price, mirroring
// netclients.py's fees(): limit orders are commission-free in this
// internal model (the venue's own maker/taker schedule is opaque to us),
// market orders pay the adapter's FeeRate.
func (b *Broker) fee(order *Order, price, size decimal.Decimal) decimal.Decimal {
	if order.Kind == Limit {
		return decimal.Zero
	}
	return b.adapter.FeeRate().Mul(price).Mul(size)
}

// findOrderForTrade returns the active order a fill belongs to, mirroring
// match.involves(self.__activeOrders.keys()): a public trade identifies
// its own resting order via maker/taker ids, and the broker simply checks
// both against its registry.
func (b *Broker) findOrderForTrade(makerID, takerID string) *Order {
	if o, ok := b.activeOrders[makerID]; ok {
		return o
	}
	if o, ok := b.activeOrders[takerID]; ok {
		return o
	}
	return nil
}

// handleFill applies one execution to order, refreshes balances (mirrors
// every livebroker.py refreshing account balance on every user trade
// rather than computing the delta locally), and notifies subscribers.
func (b *Broker) handleFill(ctx context.Context, order *Order, price, size decimal.Decimal, at time.Time) error {
	fee := b.fee(order, price, size)
	oei := OrderExecutionInfo{Price: price, Size: size, Fee: fee, Time: at}
	wasFilled := order.IsFilled()
	if err := order.addExecutionInfo(oei); err != nil {
		return err
	}
	if err := b.RefreshBalances(ctx); err != nil {
		b.log.Warn("broker: balance refresh failed after fill", zap.Error(err))
	}
	if !order.IsActive() {
		b.unregisterOrder(order)
	}
	eventType := EventPartiallyFilled
	if order.IsFilled() && !wasFilled {
		eventType = EventFilled
	}
	b.notify(OrderEvent{Order: order, Type: eventType, Execution: &oei})
	return nil
}

// handleOrderChange interprets one venue OrderChange event via mapStatus
// and applies the resulting transition, mirroring kraken's
// onChangeEvent/applyUpdate (the venues that push order-state updates out
// of band from the match stream).
func (b *Broker) handleOrderChange(ctx context.Context, c feed.OrderChangeInfo) error {
	order, ok := b.activeOrders[c.VenueOrderID]
	if !ok || b.mapStatus == nil {
		return nil
	}
	state, ok := b.mapStatus(c)
	if !ok {
		return nil
	}
	if state == order.State() {
		return nil
	}
	if err := order.switchState(state); err != nil {
		b.log.Warn("broker: ignoring stale order-change status",
			zap.String("venue_order_id", c.VenueOrderID),
			zap.Stringer("from", order.State()),
			zap.Stringer("to", state))
		return nil
	}
	var eventType OrderEventType
	switch state {
	case Accepted:
		eventType = EventAccepted
	case Canceled:
		eventType = EventCanceled
	case Rejected:
		eventType = EventRejected
	case Filled:
		eventType = EventFilled
	case PartiallyFilled:
		eventType = EventPartiallyFilled
	default:
		return nil
	}
	if !order.IsActive() {
		b.unregisterOrder(order)
		if err := b.RefreshBalances(ctx); err != nil {
			b.log.Warn("broker: balance refresh failed after order change", zap.Error(err))
		}
	}
	b.notify(OrderEvent{Order: order, Type: eventType, Reason: c.Reason})
	return nil
}

// autoAcceptSubmitted advances every Submitted order to Accepted,
// mirroring livebroker.py's dispatch() loop ("Switch orders from
// SUBMITTED to ACCEPTED") for venues whose websocket/poll feed carries no
// explicit open/resting acknowledgement of its own.
func (b *Broker) autoAcceptSubmitted() bool {
	evented := false
	for _, order := range b.activeOrders {
		if order.State() != Submitted {
			continue
		}
		if err := order.switchState(Accepted); err != nil {
			continue
		}
		evented = true
		b.notify(OrderEvent{Order: order, Type: EventAccepted})
	}
	return evented
}

// Dispatch processes one tick: it first auto-advances any Submitted
// order to Accepted, then waits up to QueueTimeout for the next
// feed.Event and applies it. It returns true if an order was
// auto-accepted or an event was taken off the queue (whether or not that
// event touched any order), mirroring livebroker.py's dispatch() return
// value (used by the embedding run loop to decide whether to yield).
func (b *Broker) Dispatch(ctx context.Context) (bool, error) {
	evented := b.autoAcceptSubmitted()

	timer := time.NewTimer(QueueTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return evented, ctx.Err()
	case <-timer.C:
		return evented, nil
	case evt, ok := <-b.queue.Events():
		if !ok {
			return evented, fmt.Errorf("broker: queue closed")
		}
		return true, b.applyEvent(ctx, evt)
	}
}

func (b *Broker) applyEvent(ctx context.Context, evt feed.Event) error {
	switch evt.Kind {
	case feed.Trade, feed.Match:
		order := b.findOrderForTrade(evt.MakerOrderID, evt.TakerOrderID)
		if order == nil {
			return nil
		}
		return b.handleFill(ctx, order, evt.Trade.Price.Price, evt.Trade.Price.Size, evt.Time)
	case feed.OrderChange:
		return b.handleOrderChange(ctx, evt.Change)
	case feed.Disconnected:
		b.log.Warn("broker: underlying feed disconnected", zap.String("venue", evt.Venue), zap.Error(evt.Err))
		return nil
	default:
		return nil
	}
}
