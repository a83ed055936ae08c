package broker

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelmd/marketfeed/currency"
	"github.com/kestrelmd/marketfeed/venue"
)

func testPair() currency.Pair {
	return currency.NewPair(currency.BTC, currency.USD)
}

func TestNewOrderStartsInitial(t *testing.T) {
	o := newOrder(Limit, venue.Buy, testPair(), decimal.RequireFromString("100"), decimal.RequireFromString("1"), venue.OrderFlags{})
	assert.True(t, o.IsInitial())
	assert.False(t, o.IsActive())
	assert.NotEqual(t, [16]byte{}, o.LocalID)
}

func TestSwitchStateRejectsSkippingSubmitted(t *testing.T) {
	o := newOrder(Limit, venue.Buy, testPair(), decimal.Zero, decimal.RequireFromString("1"), venue.OrderFlags{})
	err := o.switchState(Accepted)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestSwitchStateIsNoOpWhenAlreadyInTargetState(t *testing.T) {
	o := newOrder(Limit, venue.Buy, testPair(), decimal.Zero, decimal.RequireFromString("1"), venue.OrderFlags{})
	require.NoError(t, o.switchState(Submitted))
	assert.NoError(t, o.switchState(Submitted))
	assert.Equal(t, Submitted, o.State())
}

func TestSwitchStateRejectsLeavingTerminalState(t *testing.T) {
	o := newOrder(Limit, venue.Buy, testPair(), decimal.Zero, decimal.RequireFromString("1"), venue.OrderFlags{})
	require.NoError(t, o.switchState(Submitted))
	require.NoError(t, o.switchState(Canceled))
	assert.ErrorIs(t, o.switchState(Accepted), ErrInvalidStateTransition)
}

func TestAddExecutionInfoPartialThenFull(t *testing.T) {
	o := newOrder(Limit, venue.Buy, testPair(), decimal.RequireFromString("100"), decimal.RequireFromString("2"), venue.OrderFlags{})
	require.NoError(t, o.switchState(Submitted))
	require.NoError(t, o.switchState(Accepted))

	require.NoError(t, o.addExecutionInfo(OrderExecutionInfo{Price: decimal.RequireFromString("100"), Size: decimal.RequireFromString("1"), Time: time.Now()}))
	assert.Equal(t, PartiallyFilled, o.State())
	assert.True(t, o.RemainingSize().Equal(decimal.RequireFromString("1")))

	require.NoError(t, o.addExecutionInfo(OrderExecutionInfo{Price: decimal.RequireFromString("100"), Size: decimal.RequireFromString("1"), Time: time.Now()}))
	assert.Equal(t, Filled, o.State())
	assert.True(t, o.IsFilled())
	assert.True(t, o.RemainingSize().IsZero())
	assert.Len(t, o.Executions(), 2)
}

func TestOrderStateString(t *testing.T) {
	assert.Equal(t, "accepted", Accepted.String())
	assert.Equal(t, "unknown", OrderState(255).String())
}
