package broker

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/kestrelmd/marketfeed/currency"
	"github.com/kestrelmd/marketfeed/venue"
)

// OrderState is the closed lifecycle enum every bundled venue's
// livebroker.py collapses its own wire statuses into: Initial (never
// submitted), Submitted (sent, awaiting venue ack), Accepted (resting),
// PartiallyFilled/Filled (execution progress), Canceled/Rejected/Expired
// (terminal).
type OrderState uint8

// Recognised order states.
const (
	Initial OrderState = iota
	Submitted
	Accepted
	PartiallyFilled
	Filled
	Canceled
	Rejected
	Expired
)

// String implements fmt.Stringer.
func (s OrderState) String() string {
	switch s {
	case Initial:
		return "initial"
	case Submitted:
		return "submitted"
	case Accepted:
		return "accepted"
	case PartiallyFilled:
		return "partially_filled"
	case Filled:
		return "filled"
	case Canceled:
		return "canceled"
	case Rejected:
		return "rejected"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// isTerminal reports whether s is a state no further transition leaves.
func (s OrderState) isTerminal() bool {
	switch s {
	case Filled, Canceled, Rejected, Expired:
		return true
	default:
		return false
	}
}

// validNextStates enumerates the legal direct transitions out of each
// state, mirroring the state changes livebroker.py's dispatch/applyUpdate/
// onChangeEvent actually perform (Submitted->Accepted in dispatch,
// Accepted->PartiallyFilled/Filled via addExecutionInfo,
// {Submitted,Accepted,PartiallyFilled}->Canceled via cancelOrder).
var validNextStates = map[OrderState]map[OrderState]bool{
	Initial:         {Submitted: true},
	Submitted:       {Accepted: true, Rejected: true, Canceled: true},
	Accepted:        {PartiallyFilled: true, Filled: true, Canceled: true, Expired: true},
	PartiallyFilled: {PartiallyFilled: true, Filled: true, Canceled: true, Expired: true},
}

// OrderKind distinguishes limit from market orders.
type OrderKind uint8

// Recognised order kinds.
const (
	Limit OrderKind = iota
	Market
)

// OrderExecutionInfo records one fill against an Order, grounded on
// livebroker.py's broker.OrderExecutionInfo(price, size, fee, time).
type OrderExecutionInfo struct {
	Price decimal.Decimal
	Size  decimal.Decimal
	Fee   decimal.Decimal
	Time  time.Time
}

// Order is this repo's normalized order record, built by Broker.Create*
// and advanced by Broker.Submit/Dispatch/Cancel. Unlike the Python
// original's class-per-action-pair design (BUY/SELL/BUY_TO_COVER/
// SELL_SHORT), Order only ever holds venue.Buy/venue.Sell: Broker.Create*
// take a venue.OrderSide directly, and there are no BUY_TO_COVER/SELL_SHORT
// actions to remap.
type Order struct {
	LocalID      uuid.UUID
	VenueOrderID string
	Kind         OrderKind
	Side         venue.OrderSide
	Symbol       currency.Pair
	Price        decimal.Decimal // zero for Market
	Quantity     decimal.Decimal
	Flags        venue.OrderFlags

	state      OrderState
	submitTime time.Time
	executions []OrderExecutionInfo
	filledSize decimal.Decimal
}

// newOrder constructs an Order in Initial state with a freshly minted
// local id.
func newOrder(kind OrderKind, side venue.OrderSide, symbol currency.Pair, price, quantity decimal.Decimal, flags venue.OrderFlags) *Order {
	id, err := uuid.NewV4()
	if err != nil {
		id = uuid.Nil
	}
	return &Order{
		LocalID:    id,
		Kind:       kind,
		Side:       side,
		Symbol:     symbol,
		Price:      price,
		Quantity:   quantity,
		Flags:      flags,
		state:      Initial,
		filledSize: decimal.Zero,
	}
}

// State returns the order's current lifecycle state.
func (o *Order) State() OrderState { return o.state }

// IsInitial reports whether the order has never been submitted.
func (o *Order) IsInitial() bool { return o.state == Initial }

// IsActive reports whether the order still has a live presence at the
// venue (Submitted, Accepted, or PartiallyFilled).
func (o *Order) IsActive() bool {
	switch o.state {
	case Submitted, Accepted, PartiallyFilled:
		return true
	default:
		return false
	}
}

// IsFilled reports whether the order reached the terminal Filled state.
func (o *Order) IsFilled() bool { return o.state == Filled }

// FilledSize returns the cumulative executed quantity.
func (o *Order) FilledSize() decimal.Decimal { return o.filledSize }

// RemainingSize returns Quantity minus FilledSize, floored at zero.
func (o *Order) RemainingSize() decimal.Decimal {
	r := o.Quantity.Sub(o.filledSize)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// Executions returns the fills recorded against this order, oldest first.
func (o *Order) Executions() []OrderExecutionInfo {
	return o.executions
}

// setSubmitted records the venue order id and submit time, mirroring
// Order.setSubmitted in every livebroker.py.
func (o *Order) setSubmitted(venueOrderID string, at time.Time) {
	o.VenueOrderID = venueOrderID
	o.submitTime = at
}

// switchState validates and applies a state transition, returning
// ErrInvalidStateTransition if the move is not legal from the current
// state. A no-op transition (s == o.state) is always allowed so that
// idempotent re-application of a venue status update (S4: repeated
// cancel confirmation) does not error.
func (o *Order) switchState(s OrderState) error {
	if s == o.state {
		return nil
	}
	if o.state.isTerminal() {
		return ErrInvalidStateTransition
	}
	if !validNextStates[o.state][s] {
		return ErrInvalidStateTransition
	}
	o.state = s
	return nil
}

// addExecutionInfo appends a fill and advances state to PartiallyFilled
// or Filled depending on whether RemainingSize reaches zero, mirroring
// every livebroker.py's addExecutionInfo-then-isFilled check.
func (o *Order) addExecutionInfo(oei OrderExecutionInfo) error {
	o.executions = append(o.executions, oei)
	o.filledSize = o.filledSize.Add(oei.Size)
	if o.RemainingSize().IsZero() {
		return o.switchState(Filled)
	}
	return o.switchState(PartiallyFilled)
}
