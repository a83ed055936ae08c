package binance

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kestrelmd/marketfeed/venue"
)

func TestMapOrderErrorRecognisesInsufficientFunds(t *testing.T) {
	err := mapOrderError(&venue.RejectionError{Code: "-2010", Text: "Account has insufficient balance"})
	assert.ErrorIs(t, err, venue.ErrInsufficientFunds)
}

func TestMapOrderErrorPassesThroughOtherRejections(t *testing.T) {
	orig := &venue.RejectionError{Code: "-1013", Text: "Filter failure"}
	assert.Same(t, orig, mapOrderError(orig))
}

func TestMapOrderErrorPassesThroughNonRejectionErrors(t *testing.T) {
	orig := errors.New("transport failed")
	assert.Same(t, orig, mapOrderError(orig))
}
