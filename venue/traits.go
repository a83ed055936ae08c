package venue

import "github.com/shopspring/decimal"

// FloatTraits carries the venue-legal rounding increments for one symbol:
// base_precision (amount decimal places) and quote_precision (price decimal
// places). Orders are rounded to these before submission.
//
// Grounded on exchange/order/limits' MinMaxLevel.FloorAmountToStepIncrement
// family from the teacher's retrieved test suite
// (exchange/order/limits/levels_test.go): floor-to-step, never round up —
// overshooting a venue's increment risks a rejected order, undershooting
// just leaves a little size unplaced.
type FloatTraits struct {
	BasePrecision  int32 // amount decimal places
	QuotePrecision int32 // price decimal places
}

// RoundSize floors size to BasePrecision decimal places.
func (t FloatTraits) RoundSize(size decimal.Decimal) decimal.Decimal {
	return size.Truncate(t.BasePrecision)
}

// RoundPrice floors price to QuotePrecision decimal places.
func (t FloatTraits) RoundPrice(price decimal.Decimal) decimal.Decimal {
	return price.Truncate(t.QuotePrecision)
}

// MinMaxLevel is the per-symbol order-validation envelope broker.Broker
// checks orders against (installed via Broker.SetMinMaxLevel): minimum notional value, min/max base amount, and step increments
// for price and amount, separately for limit and market orders. This
// mirrors exchange/order/limits.MinMaxLevel from the teacher's retrieved
// test suite (the only shape confirmed by levels_test.go / store_test.go).
type MinMaxLevel struct {
	MinNotional             decimal.Decimal
	MinimumBaseAmount       decimal.Decimal
	MaximumBaseAmount       decimal.Decimal
	PriceStepIncrementSize  decimal.Decimal
	AmountStepIncrementSize decimal.Decimal
	MarketMinQty            decimal.Decimal
	MarketMaxQty            decimal.Decimal
	MarketStepIncrementSize decimal.Decimal
}

// OrderKind distinguishes a limit order from a market order for the
// purposes of which min/max/step fields apply.
type OrderKind uint8

// Recognised order kinds.
const (
	Limit OrderKind = iota
	Market
)

// ErrNotionalValue is returned when price*amount is below MinNotional.
// ErrPriceExceedsStep / ErrAmountExceedsStep are returned when price/amount
// is not a multiple of the configured step increment.
// ErrAmountBelowMin / ErrAmountExceedsMax bound a limit order's base amount.
// ErrMarketAmountBelowMin / ErrMarketAmountExceedsMax / ErrMarketAmountExceedsStep
// bound a market order's base amount.
var (
	ErrNotionalValue          = mkErr("notional value below minimum")
	ErrPriceExceedsStep       = mkErr("price is not a multiple of the step increment")
	ErrAmountExceedsStep      = mkErr("amount is not a multiple of the step increment")
	ErrAmountBelowMin         = mkErr("amount below minimum")
	ErrAmountExceedsMax       = mkErr("amount exceeds maximum")
	ErrMarketAmountBelowMin   = mkErr("market order amount below minimum")
	ErrMarketAmountExceedsMax = mkErr("market order amount exceeds maximum")
	ErrMarketAmountExceedsStep = mkErr("market order amount is not a multiple of the step increment")
)

func mkErr(s string) error { return &levelError{s} }

type levelError struct{ s string }

func (e *levelError) Error() string { return e.s }

// Validate checks price/amount against the level's envelope for the given
// order kind. A nil receiver always passes (an absent MinMaxLevel imposes
// no constraints), matching TestConforms's `tt = nil; tt.Validate(...)`
// case.
func (m *MinMaxLevel) Validate(price, amount decimal.Decimal, kind OrderKind) error {
	if m == nil {
		return nil
	}
	if !m.MinNotional.IsZero() && price.Mul(amount).LessThan(m.MinNotional) {
		return ErrNotionalValue
	}
	if !m.PriceStepIncrementSize.IsZero() && !isStepAligned(price, m.PriceStepIncrementSize) {
		return ErrPriceExceedsStep
	}

	switch kind {
	case Market:
		if !m.MarketMinQty.IsZero() && amount.LessThan(m.MarketMinQty) {
			return ErrMarketAmountBelowMin
		}
		if !m.MarketMaxQty.IsZero() && amount.GreaterThan(m.MarketMaxQty) {
			return ErrMarketAmountExceedsMax
		}
		if !m.MarketStepIncrementSize.IsZero() && !isStepAligned(amount, m.MarketStepIncrementSize) {
			return ErrMarketAmountExceedsStep
		}
		if !m.MinimumBaseAmount.IsZero() && amount.LessThan(m.MinimumBaseAmount) {
			return ErrAmountBelowMin
		}
		if !m.MaximumBaseAmount.IsZero() && amount.GreaterThan(m.MaximumBaseAmount) {
			return ErrAmountExceedsMax
		}
	default: // Limit
		if !m.AmountStepIncrementSize.IsZero() && !isStepAligned(amount, m.AmountStepIncrementSize) {
			return ErrAmountExceedsStep
		}
		if !m.MinimumBaseAmount.IsZero() && amount.LessThan(m.MinimumBaseAmount) {
			return ErrAmountBelowMin
		}
		if !m.MaximumBaseAmount.IsZero() && amount.GreaterThan(m.MaximumBaseAmount) {
			return ErrAmountExceedsMax
		}
	}
	return nil
}

func isStepAligned(v, step decimal.Decimal) bool {
	if step.IsZero() {
		return true
	}
	rem := v.Mod(step)
	return rem.IsZero()
}

// FloorAmountToStepIncrement floors amount down to the nearest multiple of
// AmountStepIncrementSize. A nil receiver or zero step returns amount
// unchanged.
func (m *MinMaxLevel) FloorAmountToStepIncrement(amount float64) float64 {
	return m.FloorAmountToStepIncrementDecimal(decimal.NewFromFloat(amount)).InexactFloat64()
}

// FloorAmountToStepIncrementDecimal is the decimal-precision form of
// FloorAmountToStepIncrement.
func (m *MinMaxLevel) FloorAmountToStepIncrementDecimal(amount decimal.Decimal) decimal.Decimal {
	if m == nil || m.AmountStepIncrementSize.IsZero() {
		return amount
	}
	step := m.AmountStepIncrementSize
	quotient := amount.Div(step).Floor()
	return quotient.Mul(step)
}

// FloorPriceToStepIncrement floors price down to the nearest multiple of
// PriceStepIncrementSize. A nil receiver or zero step returns price
// unchanged.
func (m *MinMaxLevel) FloorPriceToStepIncrement(price float64) float64 {
	if m == nil || m.PriceStepIncrementSize.IsZero() {
		return price
	}
	step := m.PriceStepIncrementSize
	p := decimal.NewFromFloat(price)
	quotient := p.Div(step).Floor()
	return quotient.Mul(step).InexactFloat64()
}
