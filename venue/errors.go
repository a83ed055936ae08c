// Package venue defines the capability interface every exchange adapter
// implements (spec.md §4.3), the shared error taxonomy (spec.md §4.6), the
// FloatTraits rounding helper, a rolling-window rate limiter, and the HMAC
// request-signing helper shared by the bundled adapters.
package venue

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure for retry/fatal/surface handling by
// feed.Worker and broker.Broker, per spec.md §4.6/§7.
type ErrorKind uint8

// Recognised error kinds.
const (
	KindUnknown ErrorKind = iota
	KindUnsupportedFlag
	KindNotActive
	KindInsufficientFunds
	KindBelowMinimumTrade
	KindTransport
	KindAuth
	KindRateLimited
	KindVenueRejected
	KindProtocolViolation
)

// Disposition is how a worker/broker should react to a classified error.
type Disposition uint8

// Recognised dispositions.
const (
	Surface Disposition = iota
	Retryable
	Fatal
)

var (
	// ErrUnsupportedFlag is returned when an adapter is asked to place an
	// order with a time-in-force flag it does not implement.
	ErrUnsupportedFlag = errors.New("unsupported order flag")
	// ErrNotActive is returned by Cancel on an order that is already
	// terminal at the venue. It is recoverable: the caller's local view
	// is simply stale.
	ErrNotActive = errors.New("order is not active")
	// ErrInsufficientFunds is a venue business rejection.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrBelowMinimumTrade is a venue business rejection.
	ErrBelowMinimumTrade = errors.New("order size below venue minimum")
	// ErrTransport wraps a retryable network/HTTP failure.
	ErrTransport = errors.New("transport error")
	// ErrAuth is a fatal authentication failure.
	ErrAuth = errors.New("authentication failed")
	// ErrRateLimited indicates the venue rejected a request for rate
	// limiting; retry after backoff.
	ErrRateLimited = errors.New("rate limited")
	// ErrProtocolViolation is fatal for the affected worker: the book is
	// considered corrupt and the worker must disconnect and re-initialize.
	ErrProtocolViolation = errors.New("protocol violation")
)

// RejectionError surfaces a venue's own rejection code and text unchanged
// (spec.md's VenueRejected(code, text)).
type RejectionError struct {
	Code string
	Text string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("venue rejected order [%s]: %s", e.Code, e.Text)
}

// Kind classifies err against the recognised sentinel errors, per
// spec.md §4.6. A wrapped sentinel (e.g. fmt.Errorf("%w: ...", ErrAuth))
// still classifies correctly since Kind tests with errors.Is.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrUnsupportedFlag):
		return KindUnsupportedFlag
	case errors.Is(err, ErrNotActive):
		return KindNotActive
	case errors.Is(err, ErrInsufficientFunds):
		return KindInsufficientFunds
	case errors.Is(err, ErrBelowMinimumTrade):
		return KindBelowMinimumTrade
	case errors.Is(err, ErrTransport):
		return KindTransport
	case errors.Is(err, ErrAuth):
		return KindAuth
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrProtocolViolation):
		return KindProtocolViolation
	default:
		var re *RejectionError
		if errors.As(err, &re) {
			return KindVenueRejected
		}
		return KindUnknown
	}
}

// Classify maps an error produced by an adapter call to a Disposition via
// its ErrorKind: KindTransport and KindRateLimited are Retryable;
// KindAuth and KindProtocolViolation are Fatal; everything else is Surface.
// feed.Worker emits Disconnected for every source error, then stops after
// a Fatal auth failure and otherwise reconnects after its backoff.
func Classify(err error) Disposition {
	switch Kind(err) {
	case KindTransport, KindRateLimited:
		return Retryable
	case KindAuth, KindProtocolViolation:
		return Fatal
	default:
		return Surface
	}
}
