package broker

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/kestrelmd/marketfeed/currency"
	"github.com/kestrelmd/marketfeed/marketdata"
	"github.com/kestrelmd/marketfeed/venue"
)

// fakeAdapter is a minimal venue.Adapter double used across broker tests.
// Each call records its arguments and returns whatever the test pre-loads,
// standing in for a real REST round trip the way the retrieved teacher
// tests stub out their exchange wrapper.
type fakeAdapter struct {
	name string

	nextOrderID string
	nextErr     error

	limitCalls  int
	marketCalls int
	cancelCalls int
	cancelErr   error

	balances map[currency.Code]decimal.Decimal
	open     []venue.VenueOrder

	feeRate decimal.Decimal
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		name:     "fake",
		balances: map[currency.Code]decimal.Decimal{},
		feeRate:  decimal.RequireFromString("0.0025"),
	}
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) BookSnapshot(ctx context.Context, symbol currency.Pair) (marketdata.Batch, error) {
	return marketdata.Batch{}, nil
}

func (f *fakeAdapter) Balances(ctx context.Context) (map[currency.Code]decimal.Decimal, error) {
	return f.balances, nil
}

func (f *fakeAdapter) LimitOrder(ctx context.Context, side venue.OrderSide, price, size decimal.Decimal, symbol currency.Pair, flags venue.OrderFlags) (string, error) {
	f.limitCalls++
	if f.nextErr != nil {
		return "", f.nextErr
	}
	return f.nextOrderID, nil
}

func (f *fakeAdapter) MarketOrder(ctx context.Context, side venue.OrderSide, size decimal.Decimal, symbol currency.Pair) (string, error) {
	f.marketCalls++
	if f.nextErr != nil {
		return "", f.nextErr
	}
	return f.nextOrderID, nil
}

func (f *fakeAdapter) Cancel(ctx context.Context, venueOrderID string) error {
	f.cancelCalls++
	return f.cancelErr
}

func (f *fakeAdapter) OpenOrders(ctx context.Context, symbol currency.Pair) ([]venue.VenueOrder, error) {
	return f.open, nil
}

func (f *fakeAdapter) ClosedOrders(ctx context.Context, since int64, symbols []currency.Pair) ([]venue.VenueOrder, error) {
	return nil, nil
}

func (f *fakeAdapter) InstrumentTraits(ctx context.Context) (map[currency.Pair]venue.FloatTraits, error) {
	return nil, nil
}

func (f *fakeAdapter) FeeRate() decimal.Decimal { return f.feeRate }

var _ venue.Adapter = (*fakeAdapter)(nil)
