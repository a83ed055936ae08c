package broker

// OrderEventType is the closed set of notifications Broker.Dispatch emits
// as an Order moves through its lifecycle, grounded on
// broker.OrderEvent.Type across every livebroker.py (ACCEPTED,
// PARTIALLY_FILLED, FILLED, CANCELED). There is no Submitted variant: the
// Initial->Submitted transition itself never emits an event, mirroring
// coinbase/livebroker.py's submitOrder, which carries the same "no event on
// this edge" comment (the position/order-book mapping isn't established
// yet at the moment of the call) — see Broker.Submit.
type OrderEventType uint8

// Recognised order event types.
const (
	EventAccepted OrderEventType = iota
	EventPartiallyFilled
	EventFilled
	EventCanceled
	EventRejected
)

// String implements fmt.Stringer.
func (t OrderEventType) String() string {
	switch t {
	case EventAccepted:
		return "accepted"
	case EventPartiallyFilled:
		return "partially_filled"
	case EventFilled:
		return "filled"
	case EventCanceled:
		return "canceled"
	case EventRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// OrderEvent is one notification fanned out by Broker.Dispatch to every
// subscriber registered via Broker.Subscribe.
type OrderEvent struct {
	Order     *Order
	Type      OrderEventType
	Execution *OrderExecutionInfo // non-nil on fills applied from a Match/Trade event; nil on events from an OrderChange, which synthesize no execution
	Reason    string              // populated on EventCanceled/EventRejected
}

// OrderEventHandler receives OrderEvents as Broker.Dispatch produces them.
type OrderEventHandler func(OrderEvent)
