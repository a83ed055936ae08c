package kraken

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kestrelmd/marketfeed/venue"
)

func TestMapOrderErrorRecognisesInsufficientFunds(t *testing.T) {
	err := mapOrderError(&venue.RejectionError{Code: "kraken_error", Text: "EOrder:Insufficient funds"})
	assert.ErrorIs(t, err, venue.ErrInsufficientFunds)
}

func TestMapOrderErrorPassesThroughOtherRejections(t *testing.T) {
	orig := &venue.RejectionError{Code: "kraken_error", Text: "EOrder:Invalid price"}
	err := mapOrderError(orig)
	assert.Same(t, orig, err)
}

func TestMapOrderErrorPassesThroughNonRejectionErrors(t *testing.T) {
	orig := errors.New("transport failed")
	assert.Same(t, orig, mapOrderError(orig))
}
