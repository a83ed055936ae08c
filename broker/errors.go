package broker

import "errors"

// ErrOrderNotActive is returned by Cancel when the order id does not
// name a currently-active order in the registry — either it was never
// submitted through this Broker or it already reached a terminal state.
var ErrOrderNotActive = errors.New("broker: order is not active")

// ErrOrderAlreadyProcessed is returned by Submit when called twice on the
// same *Order (mirrors livebroker.py's submitOrder: "order was already
// processed" once it has left OrderInitial).
var ErrOrderAlreadyProcessed = errors.New("broker: order was already processed")

// ErrInvalidStateTransition is returned by Order.switchState when asked to
// move to a state the current one cannot reach directly.
var ErrInvalidStateTransition = errors.New("broker: invalid order state transition")

// ErrUnsupportedOrderKind is returned when a Broker is asked to build an
// order kind its adapter does not implement (this repo only wires Limit
// and Market, matching every bundled venue's livebroker.py).
var ErrUnsupportedOrderKind = errors.New("broker: unsupported order kind")
