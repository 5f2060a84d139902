package tradingclient

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
)

// Client is a thin, single-venue REST surface for order placement and
// cancellation, grounded on
// _examples/yanun0323-go-hft/internal/order/delegator/btcc/delegator.go's
// sign-then-POST shape but signed the Binance way (HmacSHA256Sign /
// BuildSignedQuery) per
// original_source/crates/k4-td/src/binance/auth.rs. It is intentionally
// outside the market data engine's pipeline; nothing in internal/pipeline
// imports it.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	secret     string
}

// New builds a Client against baseURL (e.g. "https://api.binance.com")
// using apiKey/secret for request signing.
func New(httpClient *http.Client, baseURL, apiKey, secret string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{httpClient: httpClient, baseURL: baseURL, apiKey: apiKey, secret: secret}
}

// OrderRequest is the minimal set of fields needed to place a limit
// order on the venue.
type OrderRequest struct {
	Symbol        string
	Side          string // "BUY" or "SELL"
	Price         string
	Quantity      string
	ClientOrderID string
}

// OrderResponse mirrors Binance's order-ack payload closely enough for
// callers to confirm acceptance and correlate by order id.
type OrderResponse struct {
	Symbol        string `json:"symbol"`
	OrderID       int64  `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Status        string `json:"status"`
}

// PlaceOrder signs and submits a limit order.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (OrderResponse, error) {
	params := []Param{
		{Key: "symbol", Value: req.Symbol},
		{Key: "side", Value: req.Side},
		{Key: "type", Value: "LIMIT"},
		{Key: "timeInForce", Value: "GTC"},
		{Key: "quantity", Value: req.Quantity},
		{Key: "price", Value: req.Price},
		{Key: "newClientOrderId", Value: req.ClientOrderID},
		{Key: "timestamp", Value: strconv.FormatInt(time.Now().UnixMilli(), 10)},
	}
	var out OrderResponse
	if err := c.do(ctx, http.MethodPost, "/api/v3/order", params, &out); err != nil {
		return OrderResponse{}, err
	}
	return out, nil
}

// CancelOrder cancels a resting order by clientOrderId.
func (c *Client) CancelOrder(ctx context.Context, symbol, clientOrderID string) (OrderResponse, error) {
	params := []Param{
		{Key: "symbol", Value: symbol},
		{Key: "origClientOrderId", Value: clientOrderID},
		{Key: "timestamp", Value: strconv.FormatInt(time.Now().UnixMilli(), 10)},
	}
	var out OrderResponse
	if err := c.do(ctx, http.MethodDelete, "/api/v3/order", params, &out); err != nil {
		return OrderResponse{}, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, params []Param, out *OrderResponse) error {
	query := BuildSignedQuery(params, c.secret)
	url := fmt.Sprintf("%s%s?%s", c.baseURL, path, query)

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	r, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return errors.Wrap(err, "tradingclient: build request")
	}
	r.Header.Set("X-MBX-APIKEY", c.apiKey)

	resp, err := c.httpClient.Do(r)
	if err != nil {
		return errors.Wrap(err, "tradingclient: request failed").With("path", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return errors.Errorf("tradingclient: venue returned status %d", resp.StatusCode).With("path", path)
	}
	if err := sonic.ConfigFastest.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "tradingclient: decode response")
	}
	return nil
}
