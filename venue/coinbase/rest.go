package coinbase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kestrelmd/marketfeed/currency"
	"github.com/kestrelmd/marketfeed/marketdata"
	"github.com/kestrelmd/marketfeed/venue"
)

// feeRate is Coinbase's flat taker fee, grounded on netclients.py's
// fees(txnsize) = txnsize * Decimal('0.0025').
var feeRate = decimal.NewFromFloat(0.0025)

// Client is the Coinbase Exchange REST adapter, implementing venue.Adapter.
// Grounded on netclients.py's CoinbaseRest: same endpoint shapes
// (products/{id}/book, accounts, orders, fills), same auth header scheme.
type Client struct {
	httpClient *http.Client
	signer     *venue.Signer
	limiter    *venue.RateLimiter
	apiKey     string
	passphrase string
}

// NewClient constructs a Coinbase REST client. key/secret/passphrase are
// the CB-ACCESS-* credentials; secret is base64-encoded, matching
// CoinbaseAuth's base64.b64decode(self.secret_key).
func NewClient(key, secret, passphrase string) (*Client, error) {
	signer, err := venue.NewSignerFromBase64(venue.HMACSHA256, secret)
	if err != nil {
		return nil, fmt.Errorf("coinbase: decoding secret: %w", err)
	}
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		signer:     signer,
		// CoinbaseRest.ratelimiter = RateLimiter(5, 1): 5 calls/sec.
		limiter:    venue.NewRateLimiter(5, 1),
		apiKey:     key,
		passphrase: passphrase,
	}, nil
}

func (c *Client) Name() string { return Name }

func (c *Client) FeeRate() decimal.Decimal { return feeRate }

func (c *Client) do(ctx context.Context, method, path string, body []byte, authed bool) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", venue.ErrRateLimited, err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	if authed {
		ts := strconv.FormatInt(time.Now().Unix(), 10)
		msg := ts + method + "/" + path + string(body)
		sig := c.signer.Sign(msg)
		req.Header.Set("CB-ACCESS-SIGN", sig)
		req.Header.Set("CB-ACCESS-TIMESTAMP", ts)
		req.Header.Set("CB-ACCESS-KEY", c.apiKey)
		req.Header.Set("CB-ACCESS-PASSPHRASE", c.passphrase)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", venue.ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", venue.ErrTransport, err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return respBody, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, venue.ErrAuth
	case http.StatusTooManyRequests:
		return nil, venue.ErrRateLimited
	case http.StatusBadRequest, http.StatusNotFound:
		var rejection struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(respBody, &rejection)
		return nil, &venue.RejectionError{Code: strconv.Itoa(resp.StatusCode), Text: rejection.Message}
	default:
		return nil, fmt.Errorf("%w: status %d", venue.ErrTransport, resp.StatusCode)
	}
}

type bookLevel [3]string // [price, size, num_orders]

type bookResponse struct {
	Sequence int64       `json:"sequence"`
	Bids     []bookLevel `json:"bids"`
	Asks     []bookLevel `json:"asks"`
}

// BookSnapshot fetches a level-2 order book snapshot, mirroring
// netclients.py's book_snapshot.
func (c *Client) BookSnapshot(ctx context.Context, symbol currency.Pair) (marketdata.Batch, error) {
	venueSymbol, err := ToVenueSymbol(symbol)
	if err != nil {
		return marketdata.Batch{}, err
	}
	raw, err := c.do(ctx, http.MethodGet, fmt.Sprintf("products/%s/book?level=2", venueSymbol), nil, false)
	if err != nil {
		return marketdata.Batch{}, err
	}
	var book bookResponse
	if err := json.Unmarshal(raw, &book); err != nil {
		return marketdata.Batch{}, err
	}

	deltas := make([]marketdata.Delta, 0, len(book.Bids)+len(book.Asks))
	mk := func(levels []bookLevel, side marketdata.Side) error {
		for _, lv := range levels {
			price, err := decimal.NewFromString(lv[0])
			if err != nil {
				return err
			}
			size, err := decimal.NewFromString(lv[1])
			if err != nil {
				return err
			}
			deltas = append(deltas, marketdata.Assign(uint64(book.Sequence), Name, symbol, side, price, size))
		}
		return nil
	}
	if err := mk(book.Bids, marketdata.Bid); err != nil {
		return marketdata.Batch{}, err
	}
	if err := mk(book.Asks, marketdata.Ask); err != nil {
		return marketdata.Batch{}, err
	}

	return marketdata.Batch{
		Kind:   marketdata.Snapshot,
		TS:     time.Now().UTC(),
		Venue:  Name,
		Symbol: symbol,
		Deltas: deltas,
	}, nil
}

type accountEntry struct {
	Currency string `json:"currency"`
	Balance  string `json:"balance"`
}

// Balances fetches every account and returns free balance per currency.
func (c *Client) Balances(ctx context.Context) (map[currency.Code]decimal.Decimal, error) {
	raw, err := c.do(ctx, http.MethodGet, "accounts", nil, true)
	if err != nil {
		return nil, err
	}
	var accounts []accountEntry
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return nil, err
	}
	out := make(map[currency.Code]decimal.Decimal, len(accounts))
	for _, a := range accounts {
		bal, err := decimal.NewFromString(a.Balance)
		if err != nil {
			continue
		}
		out[currency.NewCode(a.Currency)] = bal
	}
	return out, nil
}

func sideToWire(side venue.OrderSide) string {
	if side == venue.Sell {
		return "sell"
	}
	return "buy"
}

func tifToWire(flags venue.OrderFlags) (string, int64, error) {
	switch flags.TIF {
	case venue.GTC, venue.PostOnly:
		return "GTC", 0, nil
	case venue.IOC:
		return "IOC", 0, nil
	case venue.FOK:
		return "FOK", 0, nil
	case venue.GTT:
		return "GTT", flags.CancelAfter, nil
	default:
		return "", 0, venue.ErrUnsupportedFlag
	}
}

type orderResponse struct {
	ID string `json:"id"`
}

// LimitOrder places a limit order, mirroring netclients.py's limitorder,
// generalized to accept the full OrderFlags envelope.
func (c *Client) LimitOrder(ctx context.Context, side venue.OrderSide, price, size decimal.Decimal, symbol currency.Pair, flags venue.OrderFlags) (string, error) {
	venueSymbol, err := ToVenueSymbol(symbol)
	if err != nil {
		return "", err
	}
	tif, cancelAfter, err := tifToWire(flags)
	if err != nil {
		return "", err
	}
	params := map[string]interface{}{
		"type":          "limit",
		"side":          sideToWire(side),
		"product_id":    venueSymbol,
		"price":         price.String(),
		"size":          size.String(),
		"time_in_force": tif,
	}
	if flags.TIF == venue.PostOnly {
		params["post_only"] = true
	}
	if flags.TIF == venue.GTT {
		params["cancel_after"] = cancelAfter
	}
	body, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	raw, err := c.do(ctx, http.MethodPost, "orders", body, true)
	if err != nil {
		return "", mapOrderError(err)
	}
	var resp orderResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// mapOrderError recognizes Coinbase's "Insufficient funds" rejection
// message and reports it as venue.ErrInsufficientFunds, the same pattern
// Cancel already uses to recognize a 404 as venue.ErrNotActive.
func mapOrderError(err error) error {
	if re, ok := err.(*venue.RejectionError); ok && strings.Contains(re.Text, "Insufficient funds") {
		return venue.ErrInsufficientFunds
	}
	return err
}

// MarketOrder places a market order, mirroring netclients.py's marketorder.
func (c *Client) MarketOrder(ctx context.Context, side venue.OrderSide, size decimal.Decimal, symbol currency.Pair) (string, error) {
	venueSymbol, err := ToVenueSymbol(symbol)
	if err != nil {
		return "", err
	}
	params := map[string]interface{}{
		"type":       "market",
		"side":       sideToWire(side),
		"product_id": venueSymbol,
		"size":       size.String(),
	}
	body, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	raw, err := c.do(ctx, http.MethodPost, "orders", body, true)
	if err != nil {
		return "", mapOrderError(err)
	}
	var resp orderResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// Cancel cancels venueOrderID, mirroring netclients.py's cancel.
func (c *Client) Cancel(ctx context.Context, venueOrderID string) error {
	_, err := c.do(ctx, http.MethodDelete, "orders/"+venueOrderID, nil, true)
	if err != nil {
		if re, ok := err.(*venue.RejectionError); ok && re.Code == "404" {
			return venue.ErrNotActive
		}
	}
	return err
}

type wireOrder struct {
	ID            string `json:"id"`
	ProductID     string `json:"product_id"`
	Side          string `json:"side"`
	Price         string `json:"price"`
	Size          string `json:"size"`
	FilledSize    string `json:"filled_size"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
}

func (w wireOrder) toVenueOrder() (VenueOrderResult, error) {
	symbol, err := FromVenueSymbol(w.ProductID)
	if err != nil {
		return VenueOrderResult{}, err
	}
	side := venue.Buy
	if w.Side == "sell" {
		side = venue.Sell
	}
	price, _ := decimal.NewFromString(w.Price)
	size, _ := decimal.NewFromString(w.Size)
	filled, _ := decimal.NewFromString(w.FilledSize)
	return VenueOrderResult{
		VenueOrderID: w.ID,
		Symbol:       symbol,
		Side:         side,
		Price:        price,
		Size:         size,
		FilledSize:   filled,
		Status:       w.Status,
		SubmitTime:   parseTime(w.CreatedAt).UnixNano(),
	}, nil
}

// VenueOrderResult is a local alias for venue.VenueOrder, used as
// toVenueOrder's result type.
type VenueOrderResult = venue.VenueOrder

// OpenOrders fetches open orders, optionally filtered to symbol, mirroring
// netclients.py's orders(status='all').
func (c *Client) OpenOrders(ctx context.Context, symbol currency.Pair) ([]venue.VenueOrder, error) {
	raw, err := c.do(ctx, http.MethodGet, "orders?status=open", nil, true)
	if err != nil {
		return nil, err
	}
	var wireOrders []wireOrder
	if err := json.Unmarshal(raw, &wireOrders); err != nil {
		return nil, err
	}
	out := make([]venue.VenueOrder, 0, len(wireOrders))
	for _, w := range wireOrders {
		vo, err := w.toVenueOrder()
		if err != nil {
			continue
		}
		if !symbol.IsEmpty() && !vo.Symbol.Equal(symbol) {
			continue
		}
		out = append(out, vo)
	}
	return out, nil
}

// ClosedOrders fetches done orders submitted at or after since, optionally
// filtered to symbols. The wire order's close time is not read; since is
// compared against its created_at.
func (c *Client) ClosedOrders(ctx context.Context, since int64, symbols []currency.Pair) ([]venue.VenueOrder, error) {
	raw, err := c.do(ctx, http.MethodGet, "orders?status=done", nil, true)
	if err != nil {
		return nil, err
	}
	var wireOrders []wireOrder
	if err := json.Unmarshal(raw, &wireOrders); err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		want[s.String()] = true
	}
	out := make([]venue.VenueOrder, 0, len(wireOrders))
	for _, w := range wireOrders {
		vo, err := w.toVenueOrder()
		if err != nil {
			continue
		}
		if vo.SubmitTime < since {
			continue
		}
		if len(symbols) > 0 && !want[vo.Symbol.String()] {
			continue
		}
		out = append(out, vo)
	}
	return out, nil
}

// InstrumentTraits returns hardcoded FloatTraits per supported symbol.
// Coinbase publishes these via GET /products; the fixed table here mirrors
// the precisions documented for the BTC/ETH/LTC USD pairs at the time
// netclients.py was written.
func (c *Client) InstrumentTraits(ctx context.Context) (map[currency.Pair]venue.FloatTraits, error) {
	return map[currency.Pair]venue.FloatTraits{
		currency.NewPair(currency.BTC, currency.USD): {BasePrecision: 8, QuotePrecision: 2},
		currency.NewPair(currency.ETH, currency.USD): {BasePrecision: 8, QuotePrecision: 2},
		currency.NewPair(currency.LTC, currency.USD): {BasePrecision: 8, QuotePrecision: 2},
	}, nil
}
