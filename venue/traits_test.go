package venue

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestMinMaxLevelValidateNilReceiverAlwaysPasses(t *testing.T) {
	var m *MinMaxLevel
	assert.NoError(t, m.Validate(dec("1"), dec("1"), Limit))
	assert.NoError(t, m.Validate(dec("1"), dec("1"), Market))
}

func TestMinMaxLevelValidateNotionalBelowMinimum(t *testing.T) {
	m := &MinMaxLevel{MinNotional: dec("10")}
	err := m.Validate(dec("1"), dec("1"), Limit)
	assert.ErrorIs(t, err, ErrNotionalValue)
}

func TestMinMaxLevelValidatePriceStepMisaligned(t *testing.T) {
	m := &MinMaxLevel{PriceStepIncrementSize: dec("0.01")}
	err := m.Validate(dec("100.001"), dec("1"), Limit)
	assert.ErrorIs(t, err, ErrPriceExceedsStep)
}

func TestMinMaxLevelValidateAmountBounds(t *testing.T) {
	m := &MinMaxLevel{MinimumBaseAmount: dec("0.01"), MaximumBaseAmount: dec("10")}
	assert.ErrorIs(t, m.Validate(dec("1"), dec("0.001"), Limit), ErrAmountBelowMin)
	assert.ErrorIs(t, m.Validate(dec("1"), dec("20"), Limit), ErrAmountExceedsMax)
	assert.NoError(t, m.Validate(dec("1"), dec("1"), Limit))
}

func TestMinMaxLevelValidateMarketAmountBounds(t *testing.T) {
	m := &MinMaxLevel{MarketMinQty: dec("0.01"), MarketMaxQty: dec("5")}
	assert.ErrorIs(t, m.Validate(dec("0"), dec("0.001"), Market), ErrMarketAmountBelowMin)
	assert.ErrorIs(t, m.Validate(dec("0"), dec("10"), Market), ErrMarketAmountExceedsMax)
}

func TestFloorAmountToStepIncrementDecimal(t *testing.T) {
	m := &MinMaxLevel{AmountStepIncrementSize: dec("0.01")}
	got := m.FloorAmountToStepIncrementDecimal(dec("1.2399"))
	want := dec("1.23")
	require.True(t, got.Equal(want), "got %s want %s", got, want)
}

func TestFloorAmountToStepIncrementDecimalNilReceiverIsNoOp(t *testing.T) {
	var m *MinMaxLevel
	got := m.FloorAmountToStepIncrementDecimal(dec("1.2399"))
	assert.True(t, got.Equal(dec("1.2399")))
}

func TestFloorAmountToStepIncrementDecimalZeroStepIsNoOp(t *testing.T) {
	m := &MinMaxLevel{}
	got := m.FloorAmountToStepIncrementDecimal(dec("1.2399"))
	assert.True(t, got.Equal(dec("1.2399")))
}

func TestFloorPriceToStepIncrement(t *testing.T) {
	m := &MinMaxLevel{PriceStepIncrementSize: dec("0.5")}
	got := m.FloorPriceToStepIncrement(100.7)
	assert.InDelta(t, 100.5, got, 1e-9)
}

func TestFloatTraitsRounding(t *testing.T) {
	tr := FloatTraits{BasePrecision: 4, QuotePrecision: 2}
	assert.True(t, tr.RoundSize(dec("1.123456")).Equal(dec("1.1234")))
	assert.True(t, tr.RoundPrice(dec("100.9999")).Equal(dec("100.99")))
}
