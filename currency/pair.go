package currency

import (
	"errors"
	"strings"
)

// ErrCurrencyPairEmpty is returned when an operation is given EMPTYPAIR.
var ErrCurrencyPairEmpty = errors.New("currency pair is empty")

// Pair is the ordered-pair notation CCY1_CCY2 from spec.md §6: Base is the
// traded asset, Quote is the asset it is priced in. String form is
// "CCY1/CCY2".
type Pair struct {
	Base  Code
	Quote Code
}

// EMPTYPAIR is the zero Pair, returned by lookups that found nothing and
// checked against explicitly by callers (see orderbook/buffer-style tests).
var EMPTYPAIR = Pair{}

// IsEmpty reports whether p is the zero Pair.
func (p Pair) IsEmpty() bool {
	return p.Base.IsEmpty() && p.Quote.IsEmpty()
}

// String implements fmt.Stringer, rendering "Base/Quote".
func (p Pair) String() string {
	if p.IsEmpty() {
		return ""
	}
	return p.Base.String() + "/" + p.Quote.String()
}

// Delimited renders the pair with an arbitrary delimiter, e.g. "_" for the
// CCY1_CCY2 wire notation some venues expect.
func (p Pair) Delimited(delim string) string {
	if p.IsEmpty() {
		return ""
	}
	return p.Base.String() + delim + p.Quote.String()
}

// Equal reports whether two pairs name the same base and quote.
func (p Pair) Equal(other Pair) bool {
	return p.Base == other.Base && p.Quote == other.Quote
}

// NewPair constructs a Pair from two Codes.
func NewPair(base, quote Code) Pair {
	return Pair{Base: base, Quote: quote}
}

// NewPairFromStrings constructs a Pair from two raw strings, normalising
// case via NewCode.
func NewPairFromStrings(base, quote string) (Pair, error) {
	if strings.TrimSpace(base) == "" || strings.TrimSpace(quote) == "" {
		return EMPTYPAIR, ErrCurrencyPairEmpty
	}
	return NewPair(NewCode(base), NewCode(quote)), nil
}

// NewPairFromDelimited splits "BASE<delim>QUOTE" (e.g. "BTC_USD" or
// "BTC-USD") into a Pair.
func NewPairFromDelimited(s, delim string) (Pair, error) {
	parts := strings.SplitN(s, delim, 2)
	if len(parts) != 2 {
		return EMPTYPAIR, ErrCurrencyPairEmpty
	}
	return NewPairFromStrings(parts[0], parts[1])
}
