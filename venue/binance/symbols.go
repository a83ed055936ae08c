// Package binance implements the Binance venue adapter: combined-stream
// websocket feed (depth + trade), REST trading/account client, HMAC-SHA256
// query-string signing, and the lastUpdateId-based sync model. Grounded on
// original_source/pyalgotrade/binance/{netclients,wsclient}.py.
package binance

import (
	"fmt"
	"strings"

	"github.com/kestrelmd/marketfeed/currency"
)

// Name identifies this venue in logs and normalized events.
const Name = "binance"

// baseURL is Binance's REST root (netclients.py's URL).
const baseURL = "https://api.binance.com/api/"

// wsBaseURL is Binance's raw websocket stream root (wsclient.py's url
// prefix, before the per-stream path suffix).
const wsBaseURL = "wss://stream.binance.com:9443/ws/"

var localToVenue = map[string]string{}
var venueToLocal = map[string]currency.Pair{}

func register(base, quote currency.Code, venueSymbol string) {
	pair := currency.NewPair(base, quote)
	localToVenue[pair.String()] = venueSymbol
	venueToLocal[venueSymbol] = pair
}

func init() {
	register(currency.BTC, currency.USDT, "BTCUSDT")
	register(currency.ETH, currency.USDT, "ETHUSDT")
	register(currency.LTC, currency.USDT, "LTCUSDT")
}

// ToVenueSymbol maps a currency.Pair to Binance's symbol, e.g. "BTCUSDT".
func ToVenueSymbol(pair currency.Pair) (string, error) {
	v, ok := localToVenue[pair.String()]
	if !ok {
		return "", fmt.Errorf("binance: unsupported symbol %s", pair)
	}
	return v, nil
}

// FromVenueSymbol maps a Binance symbol back to a currency.Pair.
func FromVenueSymbol(venueSymbol string) (currency.Pair, error) {
	p, ok := venueToLocal[strings.ToUpper(venueSymbol)]
	if !ok {
		return currency.EMPTYPAIR, fmt.Errorf("binance: unrecognised symbol %q", venueSymbol)
	}
	return p, nil
}

// streamName returns the lowercase depth-stream channel name for symbol,
// e.g. "btcusdt@depth" (wsclient.py's self._depth_stream).
func streamName(venueSymbol, channel string) string {
	return strings.ToLower(venueSymbol) + "@" + channel
}
