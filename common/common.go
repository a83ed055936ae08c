// Package common holds small helpers that don't belong to any single domain
// package: a handful of general-purpose sentinel errors and an atomic
// counter for minting unique-per-run values. No other package or test in
// this module imports it.
package common

import (
	"errors"
	"sync/atomic"
)

// General-purpose sentinel errors. Package-specific sentinels live next to
// the type they describe.
var (
	ErrNilPointer         = errors.New("nil pointer")
	ErrExchangeNameNotSet = errors.New("exchange name not set")
	ErrDateUnset          = errors.New("date unset")
)

// Counter is a simple atomic monotonic counter. Exported so tests can mint
// unique identifiers (symbol suffixes, client order ids) without a shared
// package-level var triggering the serial-test trap.
type Counter struct {
	n int64
}

// IncrementAndGet increments the counter and returns the new value.
func (c *Counter) IncrementAndGet() int64 {
	return atomic.AddInt64(&c.n, 1)
}
