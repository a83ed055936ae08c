// Package coinbase implements the Coinbase Exchange (formerly GDAX) venue
// adapter: REST trading/account client, the public websocket feed, and the
// wire decoder that turns Coinbase's own message shapes into normalized
// marketdata.Delta/Trade values. Grounded throughout on
// original_source/pyalgotrade/coinbase/{netclients,wsclient}.py.
package coinbase

import (
	"fmt"

	"github.com/kestrelmd/marketfeed/currency"
)

// Name identifies this venue in logs and normalized events.
const Name = "coinbase"

// baseURL is the Coinbase Exchange REST root (netclients.py's URL).
const baseURL = "https://api.exchange.coinbase.com/"

// wsURL is the public market-data websocket feed (wsclient.py's url).
const wsURL = "wss://ws-feed.exchange.coinbase.com"

var localToVenue = map[string]string{}
var venueToLocal = map[string]currency.Pair{}

func register(base, quote currency.Code, venueSymbol string) {
	pair := currency.NewPair(base, quote)
	localToVenue[pair.String()] = venueSymbol
	venueToLocal[venueSymbol] = pair
}

func init() {
	register(currency.BTC, currency.USD, "BTC-USD")
	register(currency.BTC, currency.EUR, "BTC-EUR")
	register(currency.ETH, currency.USD, "ETH-USD")
	register(currency.LTC, currency.USD, "LTC-USD")
}

// ToVenueSymbol maps a currency.Pair to Coinbase's product_id, e.g.
// "BTC-USD".
func ToVenueSymbol(pair currency.Pair) (string, error) {
	v, ok := localToVenue[pair.String()]
	if !ok {
		return "", fmt.Errorf("coinbase: unsupported symbol %s", pair)
	}
	return v, nil
}

// FromVenueSymbol maps a Coinbase product_id back to a currency.Pair.
func FromVenueSymbol(productID string) (currency.Pair, error) {
	p, ok := venueToLocal[productID]
	if !ok {
		return currency.EMPTYPAIR, fmt.Errorf("coinbase: unrecognised product_id %q", productID)
	}
	return p, nil
}
