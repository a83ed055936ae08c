// Package kraken implements the Kraken venue adapter. Unlike coinbase,
// Kraken exposes no incremental book-change websocket in the retrieved
// original source (netclients.py's BookPoller re-fetches a full snapshot
// on a timer instead), so this adapter is poll-only: feed.Poller drives
// BookSnapshot and OpenOrders on a rotation, per spec.md §4.4's
// Kraken-class {book_snapshot, open_orders} round robin.
package kraken

import (
	"fmt"

	"github.com/kestrelmd/marketfeed/currency"
)

// Name identifies this venue in logs and normalized events.
const Name = "kraken"

// baseURL is Kraken's REST root (netclients.py's URL).
const baseURL = "https://api.kraken.com/0/"

var localToVenue = map[string]string{}
var venueToLocal = map[string]currency.Pair{}

func register(base, quote currency.Code, venueSymbol string) {
	pair := currency.NewPair(base, quote)
	localToVenue[pair.String()] = venueSymbol
	venueToLocal[venueSymbol] = pair
}

func init() {
	// LOCAL_SYMBOL in netclients.py: BTCUSD -> XXBTZUSD, BTCEUR -> XXBTZEUR.
	register(currency.BTC, currency.USD, "XXBTZUSD")
	register(currency.BTC, currency.EUR, "XXBTZEUR")
}

// ToVenueSymbol maps a currency.Pair to Kraken's asset-pair code, e.g.
// "XXBTZUSD".
func ToVenueSymbol(pair currency.Pair) (string, error) {
	v, ok := localToVenue[pair.String()]
	if !ok {
		return "", fmt.Errorf("kraken: unsupported symbol %s", pair)
	}
	return v, nil
}

// FromVenueSymbol maps a Kraken asset-pair code back to a currency.Pair.
func FromVenueSymbol(venueSymbol string) (currency.Pair, error) {
	p, ok := venueToLocal[venueSymbol]
	if !ok {
		return currency.EMPTYPAIR, fmt.Errorf("kraken: unrecognised asset pair %q", venueSymbol)
	}
	return p, nil
}
