package kraken

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kestrelmd/marketfeed/currency"
	"github.com/kestrelmd/marketfeed/marketdata"
	"github.com/kestrelmd/marketfeed/venue"
)

// feeRate mirrors netclients.py's fees(txnsize) = txnsize * 0.0025.
var feeRate = decimal.NewFromFloat(0.0025)

// Client is the Kraken REST adapter, implementing venue.Adapter. Grounded
// on netclients.py's KrakenRest: same public/private path split, same
// Depth/OpenOrders/ClosedOrders/AddOrder/CancelOrder endpoint shapes.
type Client struct {
	httpClient *http.Client
	auth       *auth
	limiter    *venue.RateLimiter
}

// NewClient constructs a Kraken REST client.
func NewClient(apiKey, secret string) (*Client, error) {
	a, err := newAuth(apiKey, secret)
	if err != nil {
		return nil, err
	}
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		auth:       a,
		// Kraken's documented private-endpoint tier limit; the original
		// source has no explicit rate limiter, so this is carried forward
		// from spec.md §4.3's "every adapter enforces its own window".
		limiter: venue.NewRateLimiter(1, 3),
	}, nil
}

func (c *Client) Name() string { return Name }

func (c *Client) FeeRate() decimal.Decimal { return feeRate }

type krakenResponse struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", venue.ErrRateLimited, err)
	}
	u := baseURL + "public/" + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	return c.doRequest(req)
}

func (c *Client) post(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", venue.ErrRateLimited, err)
	}
	fullPath := "0/private/" + path
	params.Set("nonce", c.auth.nonceString())
	body := params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"private/"+path, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("API-Key", c.auth.apiKey)
	req.Header.Set("API-Sign", c.auth.sign("/"+fullPath, params))
	return c.doRequest(req)
}

func (c *Client) doRequest(req *http.Request) (json.RawMessage, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", venue.ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", venue.ErrTransport, err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, venue.ErrRateLimited
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, venue.ErrAuth
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", venue.ErrTransport, resp.StatusCode)
	}

	var kr krakenResponse
	if err := json.Unmarshal(raw, &kr); err != nil {
		return nil, err
	}
	if len(kr.Error) > 0 {
		return nil, &venue.RejectionError{Code: "kraken_error", Text: strings.Join(kr.Error, "; ")}
	}
	return kr.Result, nil
}

type depthLevel [3]json.Number // [price, size, timestamp]

// BookSnapshot fetches a full Depth snapshot for symbol, mirroring
// netclients.py's book_snapshot. Kraken's Depth response carries no single
// sequence number, so each level's own timestamp is used as its rts — the
// book's syncpoint then advances to the freshest level's timestamp, the
// same "derive a syncpoint from data, not a dedicated counter" shape as the
// rest of this adapter's polling model.
func (c *Client) BookSnapshot(ctx context.Context, symbol currency.Pair) (marketdata.Batch, error) {
	venueSymbol, err := ToVenueSymbol(symbol)
	if err != nil {
		return marketdata.Batch{}, err
	}
	raw, err := c.get(ctx, "Depth", url.Values{"pair": {venueSymbol}})
	if err != nil {
		return marketdata.Batch{}, err
	}
	var byPair map[string]struct {
		Bids []depthLevel `json:"bids"`
		Asks []depthLevel `json:"asks"`
	}
	if err := json.Unmarshal(raw, &byPair); err != nil {
		return marketdata.Batch{}, err
	}
	book, ok := byPair[venueSymbol]
	if !ok {
		return marketdata.Batch{}, fmt.Errorf("kraken: no depth for %s", venueSymbol)
	}

	deltas := make([]marketdata.Delta, 0, len(book.Bids)+len(book.Asks))
	mk := func(levels []depthLevel, side marketdata.Side) error {
		for _, lv := range levels {
			price, err := decimal.NewFromString(string(lv[0]))
			if err != nil {
				return err
			}
			size, err := decimal.NewFromString(string(lv[1]))
			if err != nil {
				return err
			}
			ts, _ := strconv.ParseInt(string(lv[2]), 10, 64)
			deltas = append(deltas, marketdata.Assign(uint64(ts), Name, symbol, side, price, size))
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

// Balances fetches free balance per asset, mirroring netclients.py's
// accounts()/balances().
func (c *Client) Balances(ctx context.Context) (map[currency.Code]decimal.Decimal, error) {
	raw, err := c.post(ctx, "Balance", url.Values{})
	if err != nil {
		return nil, err
	}
	var result map[string]string
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	out := make(map[currency.Code]decimal.Decimal, len(result))
	for asset, amtStr := range result {
		amt, err := decimal.NewFromString(amtStr)
		if err != nil {
			continue
		}
		out[currency.NewCode(krakenAssetToLocal(asset))] = amt
	}
	return out, nil
}

// krakenAssetToLocal strips Kraken's asset-code padding (e.g. "ZUSD" ->
// "USD", "XXBT" -> "BTC").
func krakenAssetToLocal(asset string) string {
	switch asset {
	case "ZUSD":
		return "USD"
	case "ZEUR":
		return "EUR"
	case "XXBT":
		return "BTC"
	case "XETH":
		return "ETH"
	case "XLTC":
		return "LTC"
	default:
		return asset
	}
}

func sideToWire(side venue.OrderSide) string {
	if side == venue.Sell {
		return "sell"
	}
	return "buy"
}

func orderFlagsToWire(flags venue.OrderFlags) (string, error) {
	switch flags.TIF {
	case venue.GTC:
		return "", nil
	case venue.PostOnly:
		return "post", nil
	default:
		// Kraken's AddOrder has no IOC/FOK/GTT flag in the retrieved
		// source (place_order only ever sends 'post' via oflags).
		return "", venue.ErrUnsupportedFlag
	}
}

// LimitOrder places a limit order, mirroring netclients.py's limitorder ->
// place_order(..., 'limit', ...).
func (c *Client) LimitOrder(ctx context.Context, side venue.OrderSide, price, size decimal.Decimal, symbol currency.Pair, flags venue.OrderFlags) (string, error) {
	venueSymbol, err := ToVenueSymbol(symbol)
	if err != nil {
		return "", err
	}
	oflag, err := orderFlagsToWire(flags)
	if err != nil {
		return "", err
	}
	params := url.Values{
		"pair":      {venueSymbol},
		"type":      {sideToWire(side)},
		"ordertype": {"limit"},
		"volume":    {size.String()},
		"price":     {price.String()},
	}
	if oflag != "" {
		params.Set("oflags", oflag)
	}
	raw, err := c.post(ctx, "AddOrder", params)
	if err != nil {
		return "", mapOrderError(err)
	}
	return firstTxID(raw)
}

// mapOrderError recognizes Kraken's EOrder:Insufficient funds rejection
// text and reports it as venue.ErrInsufficientFunds, the same pattern
// Cancel already uses to recognize "Unknown order" as venue.ErrNotActive.
func mapOrderError(err error) error {
	if re, ok := err.(*venue.RejectionError); ok && strings.Contains(re.Text, "Insufficient funds") {
		return venue.ErrInsufficientFunds
	}
	return err
}

// MarketOrder places a market order, mirroring netclients.py's
// marketorder -> place_order(..., 'market', ...).
func (c *Client) MarketOrder(ctx context.Context, side venue.OrderSide, size decimal.Decimal, symbol currency.Pair) (string, error) {
	venueSymbol, err := ToVenueSymbol(symbol)
	if err != nil {
		return "", err
	}
	params := url.Values{
		"pair":      {venueSymbol},
		"type":      {sideToWire(side)},
		"ordertype": {"market"},
		"volume":    {size.String()},
	}
	raw, err := c.post(ctx, "AddOrder", params)
	if err != nil {
		return "", mapOrderError(err)
	}
	return firstTxID(raw)
}

func firstTxID(raw json.RawMessage) (string, error) {
	var resp struct {
		TxID []string `json:"txid"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	if len(resp.TxID) == 0 {
		return "", fmt.Errorf("kraken: AddOrder returned no txid")
	}
	return resp.TxID[0], nil
}

// Cancel cancels venueOrderID, mirroring netclients.py's cancel.
func (c *Client) Cancel(ctx context.Context, venueOrderID string) error {
	_, err := c.post(ctx, "CancelOrder", url.Values{"txid": {venueOrderID}})
	if err != nil {
		if re, ok := err.(*venue.RejectionError); ok && strings.Contains(re.Text, "Unknown order") {
			return venue.ErrNotActive
		}
	}
	return err
}

type wireOrderInfo struct {
	Descr struct {
		Pair  string `json:"pair"`
		Type  string `json:"type"`
		Price string `json:"price"`
	} `json:"descr"`
	Vol       string  `json:"vol"`
	VolExec   string  `json:"vol_exec"`
	Status    string  `json:"status"`
	OpenTM    float64 `json:"opentm"`
}

func (w wireOrderInfo) toVenueOrder(txid string) (venue.VenueOrder, error) {
	symbol, err := FromVenueSymbol(w.Descr.Pair)
	if err != nil {
		return venue.VenueOrder{}, err
	}
	side := venue.Buy
	if w.Descr.Type == "sell" {
		side = venue.Sell
	}
	price, _ := decimal.NewFromString(w.Descr.Price)
	size, _ := decimal.NewFromString(w.Vol)
	filled, _ := decimal.NewFromString(w.VolExec)
	return venue.VenueOrder{
		VenueOrderID: txid,
		Symbol:       symbol,
		Side:         side,
		Price:        price,
		Size:         size,
		FilledSize:   filled,
		Status:       w.Status,
		SubmitTime:   int64(w.OpenTM * float64(time.Second)),
	}, nil
}

// OpenOrders fetches open orders, mirroring netclients.py's
// open_orders()['result']['open'].
func (c *Client) OpenOrders(ctx context.Context, symbol currency.Pair) ([]venue.VenueOrder, error) {
	raw, err := c.post(ctx, "OpenOrders", url.Values{})
	if err != nil {
		return nil, err
	}
	var resp struct {
		Open map[string]wireOrderInfo `json:"open"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	out := make([]venue.VenueOrder, 0, len(resp.Open))
	for txid, info := range resp.Open {
		vo, err := info.toVenueOrder(txid)
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

// ClosedOrders fetches closed orders, mirroring netclients.py's
// closed_orders. Kraken paginates by offset; this fetches only the first
// page, sufficient for the polling cadence spec.md §4.4 describes.
func (c *Client) ClosedOrders(ctx context.Context, since int64, symbols []currency.Pair) ([]venue.VenueOrder, error) {
	params := url.Values{"ofs": {"0"}}
	if since > 0 {
		params.Set("start", strconv.FormatFloat(float64(since)/float64(time.Second), 'f', -1, 64))
	}
	raw, err := c.post(ctx, "ClosedOrders", params)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Closed map[string]wireOrderInfo `json:"closed"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		want[s.String()] = true
	}
	out := make([]venue.VenueOrder, 0, len(resp.Closed))
	for txid, info := range resp.Closed {
		vo, err := info.toVenueOrder(txid)
		if err != nil {
			continue
		}
		if len(symbols) > 0 && !want[vo.Symbol.String()] {
			continue
		}
		out = append(out, vo)
	}
	return out, nil
}

// InstrumentTraits returns hardcoded FloatTraits for the supported pairs.
func (c *Client) InstrumentTraits(ctx context.Context) (map[currency.Pair]venue.FloatTraits, error) {
	return map[currency.Pair]venue.FloatTraits{
		currency.NewPair(currency.BTC, currency.USD): {BasePrecision: 8, QuotePrecision: 1},
		currency.NewPair(currency.BTC, currency.EUR): {BasePrecision: 8, QuotePrecision: 1},
	}, nil
}
