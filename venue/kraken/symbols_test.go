package kraken

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelmd/marketfeed/currency"
)

func TestSymbolBijection(t *testing.T) {
	pair := currency.NewPair(currency.BTC, currency.USD)
	v, err := ToVenueSymbol(pair)
	require.NoError(t, err)
	assert.Equal(t, "XXBTZUSD", v)

	back, err := FromVenueSymbol(v)
	require.NoError(t, err)
	assert.True(t, back.Equal(pair))
}

func TestFromVenueSymbolUnsupportedErrors(t *testing.T) {
	_, err := FromVenueSymbol("XDOGEZUSD")
	assert.Error(t, err)
}

func TestKrakenAssetToLocal(t *testing.T) {
	assert.Equal(t, "USD", krakenAssetToLocal("ZUSD"))
	assert.Equal(t, "BTC", krakenAssetToLocal("XXBT"))
	assert.Equal(t, "WEIRD", krakenAssetToLocal("WEIRD"))
}
