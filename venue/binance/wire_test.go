package binance

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelmd/marketfeed/currency"
	"github.com/kestrelmd/marketfeed/marketdata"
)

func testSymbol() currency.Pair {
	return currency.NewPair(currency.BTC, currency.USDT)
}

func TestSymbolBijection(t *testing.T) {
	pair := testSymbol()
	v, err := ToVenueSymbol(pair)
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", v)

	back, err := FromVenueSymbol(v)
	require.NoError(t, err)
	assert.True(t, back.Equal(pair))
}

func TestStreamNameIsLowercase(t *testing.T) {
	assert.Equal(t, "btcusdt@depth", streamName("BTCUSDT", "depth"))
}

func TestToBookDeltasProducesAssignsForBothSides(t *testing.T) {
	d := depthUpdate{
		FinalUpdateID: 100,
		Bids:          [][]string{{"99.5", "2"}},
		Asks:          [][]string{{"100.5", "3"}},
	}
	deltas, err := toBookDeltas(d, 100, testSymbol())
	require.NoError(t, err)
	require.Len(t, deltas, 2)
	for _, delta := range deltas {
		assert.Equal(t, marketdata.AssignKind, delta.Kind)
		assert.Equal(t, uint64(100), delta.RTS)
	}
}

func TestToBookDeltasMalformedLevelErrors(t *testing.T) {
	d := depthUpdate{Bids: [][]string{{"onlyone"}}}
	_, err := toBookDeltas(d, 1, testSymbol())
	assert.Error(t, err)
}

func TestToTradeEventsMapsBuyerMakerToAskSide(t *testing.T) {
	tm := tradeMessage{Price: "100", Quantity: "1", IsBuyerMaker: true, EventTime: 1000}
	evt, err := toTradeEvents(tm, testSymbol())
	require.NoError(t, err)
	assert.Equal(t, marketdata.Ask, evt.Trade.Side)
	assert.True(t, evt.Trade.Price.Price.Equal(decimal.RequireFromString("100")))
}

func TestMapStatus(t *testing.T) {
	assert.Equal(t, "ACCEPTED", mapStatus("NEW"))
	assert.Equal(t, "ACCEPTED", mapStatus("PARTIALLY_FILLED"))
	assert.Equal(t, "ACCEPTED", mapStatus("FILLED"))
	assert.Equal(t, "CANCELED", mapStatus("CANCELED"))
	assert.Equal(t, "CANCELED", mapStatus("EXPIRED"))
	assert.Equal(t, "CANCELED", mapStatus("REJECTED"))
}
