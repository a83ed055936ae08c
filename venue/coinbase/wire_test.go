package coinbase

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelmd/marketfeed/currency"
	"github.com/kestrelmd/marketfeed/marketdata"
)

func testSymbol(t *testing.T) currency.Pair {
	t.Helper()
	return currency.NewPair(currency.BTC, currency.USD)
}

func TestToBookDeltasReceivedIsIgnored(t *testing.T) {
	m := message{Type: "received", Side: "buy", Price: "100", Size: "1"}
	deltas, err := toBookDeltas(m, testSymbol(t))
	require.NoError(t, err)
	assert.Empty(t, deltas)
}

func TestToBookDeltasDoneMarketOrderIsIgnored(t *testing.T) {
	m := message{Type: "done", OrderType: "market", Side: "buy"}
	deltas, err := toBookDeltas(m, testSymbol(t))
	require.NoError(t, err)
	assert.Empty(t, deltas)
}

func TestToBookDeltasOpenIsIncrease(t *testing.T) {
	m := message{Type: "open", Side: "buy", Price: "100.00", RemainingSize: "2.5", Sequence: 42}
	deltas, err := toBookDeltas(m, testSymbol(t))
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, marketdata.IncreaseKind, deltas[0].Kind)
	assert.Equal(t, marketdata.Bid, deltas[0].Side)
	assert.True(t, deltas[0].Size.Equal(decimal.RequireFromString("2.5")))
	assert.Equal(t, uint64(42), deltas[0].RTS)
}

func TestToBookDeltasDoneLimitIsDecreaseByRemaining(t *testing.T) {
	m := message{Type: "done", Side: "sell", Price: "101.00", RemainingSize: "0", Sequence: 43}
	deltas, err := toBookDeltas(m, testSymbol(t))
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, marketdata.DecreaseKind, deltas[0].Kind)
	assert.Equal(t, marketdata.Ask, deltas[0].Side)
	assert.True(t, deltas[0].Size.IsZero())
}

func TestToBookDeltasMatchIsDecreaseBySize(t *testing.T) {
	m := message{Type: "match", Side: "buy", Price: "100", Size: "0.5", Sequence: 44}
	deltas, err := toBookDeltas(m, testSymbol(t))
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, marketdata.DecreaseKind, deltas[0].Kind)
	assert.True(t, deltas[0].Size.Equal(decimal.RequireFromString("0.5")))
}

func TestToBookDeltasChangeIsDecreaseByDelta(t *testing.T) {
	m := message{Type: "change", Side: "buy", Price: "100", OldSize: "3", NewSize: "1", Sequence: 45}
	deltas, err := toBookDeltas(m, testSymbol(t))
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.True(t, deltas[0].Size.Equal(decimal.RequireFromString("2")))
}

func TestToBookDeltasChangeWithNullPriceIsIgnored(t *testing.T) {
	m := message{Type: "change", Side: "buy", Price: "", OldSize: "3", NewSize: "1"}
	deltas, err := toBookDeltas(m, testSymbol(t))
	require.NoError(t, err)
	assert.Empty(t, deltas)
}

func TestToBookDeltasUnknownSideErrors(t *testing.T) {
	m := message{Type: "open", Side: "bogus", Price: "100", RemainingSize: "1"}
	_, err := toBookDeltas(m, testSymbol(t))
	assert.Error(t, err)
}

func TestSymbolBijection(t *testing.T) {
	pair := testSymbol(t)
	v, err := ToVenueSymbol(pair)
	require.NoError(t, err)
	assert.Equal(t, "BTC-USD", v)

	back, err := FromVenueSymbol(v)
	require.NoError(t, err)
	assert.True(t, back.Equal(pair))
}

func TestFromVenueSymbolUnsupportedErrors(t *testing.T) {
	_, err := FromVenueSymbol("DOGE-USD")
	assert.Error(t, err)
}
