// Package alpaca provides client functionality for interacting with the Alpaca API.
package alpaca

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/joshwigginton/composer-signals-alpaca/internal/domain"
)

// Client for the Alpaca Trading and Market Data REST APIs
type Client struct {
	baseURL   string // Trading API (paper or live)
	dataURL   string // Market data API
	apiKey    string
	apiSecret string
	client    *http.Client
	log       zerolog.Logger
}

// Compile-time interface check
var _ domain.BrokerClient = (*Client)(nil)

// Config holds Alpaca client configuration
type Config struct {
	BaseURL   string
	DataURL   string
	APIKey    string
	APISecret string
	Timeout   time.Duration
}

// NewClient creates a new Alpaca client
func NewClient(cfg Config, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		dataURL:   cfg.DataURL,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		client:    &http.Client{Timeout: timeout},
		log:       log.With().Str("client", "alpaca").Logger(),
	}
}

// SetCredentials sets the API credentials for the client
func (c *Client) SetCredentials(apiKey, apiSecret string) {
	c.apiKey = apiKey
	c.apiSecret = apiSecret
}

// do performs an authenticated request and decodes the JSON response into out
func (c *Client) do(method, fullURL string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, fullURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("APCA-API-KEY-ID", c.apiKey)
	req.Header.Set("APCA-API-SECRET-KEY", c.apiSecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.apiErrorFor(resp.StatusCode, data)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// httpError carries the status code so callers can reclassify API refusals
type httpError struct {
	status  int
	message string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("alpaca API error (HTTP %d): %s", e.status, e.message)
}

// apiErrorFor maps an Alpaca error response onto the domain error taxonomy
func (c *Client) apiErrorFor(status int, body []byte) error {
	var apiErr apiError
	msg := string(body)
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		msg = apiErr.Message
	}

	if status == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", domain.ErrAuth, msg)
	}
	return &httpError{status: status, message: msg}
}

// GetAccount returns the current account state
func (c *Client) GetAccount() (*domain.AccountSnapshot, error) {
	var resp accountResponse
	if err := c.do(http.MethodGet, c.baseURL+"/v2/account", nil, &resp); err != nil {
		return nil, err
	}

	equity, err := strconv.ParseFloat(resp.Equity, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse account equity %q: %w", resp.Equity, err)
	}
	buyingPower, _ := strconv.ParseFloat(resp.BuyingPower, 64)
	cash, _ := strconv.ParseFloat(resp.Cash, 64)

	return &domain.AccountSnapshot{
		Equity:      equity,
		BuyingPower: buyingPower,
		Cash:        cash,
		Currency:    resp.Currency,
	}, nil
}

// GetPositions returns all open positions
func (c *Client) GetPositions() ([]domain.Position, error) {
	var resp []positionResponse
	if err := c.do(http.MethodGet, c.baseURL+"/v2/positions", nil, &resp); err != nil {
		return nil, err
	}

	positions := make([]domain.Position, 0, len(resp))
	for _, p := range resp {
		qty, err := strconv.ParseFloat(p.Qty, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse position qty for %s: %w", p.Symbol, err)
		}
		marketValue, _ := strconv.ParseFloat(p.MarketValue, 64)
		price, _ := strconv.ParseFloat(p.CurrentPrice, 64)
		positions = append(positions, domain.Position{
			Symbol:       p.Symbol,
			Quantity:     qty,
			MarketValue:  marketValue,
			CurrentPrice: price,
		})
	}
	return positions, nil
}

// GetClock returns the market calendar state
func (c *Client) GetClock() (*domain.MarketClock, error) {
	var resp clockResponse
	if err := c.do(http.MethodGet, c.baseURL+"/v2/clock", nil, &resp); err != nil {
		return nil, err
	}

	clock := &domain.MarketClock{IsOpen: resp.IsOpen}
	if t, err := time.Parse(time.RFC3339, resp.NextOpen); err == nil {
		clock.NextOpen = t
	}
	if t, err := time.Parse(time.RFC3339, resp.NextClose); err == nil {
		clock.NextClose = t
	}
	return clock, nil
}

// GetAsset returns tradability details for a symbol
func (c *Client) GetAsset(symbol string) (*domain.AssetInfo, error) {
	var resp assetResponse
	if err := c.do(http.MethodGet, c.baseURL+"/v2/assets/"+url.PathEscape(symbol), nil, &resp); err != nil {
		return nil, err
	}
	return &domain.AssetInfo{
		Symbol:       resp.Symbol,
		Tradable:     resp.Tradable,
		Fractionable: resp.Fractionable,
	}, nil
}

// GetLatestPrice returns the most recent trade price for a symbol.
// Returns domain.ErrPriceUnavailable when the data API has no quote.
func (c *Client) GetLatestPrice(symbol string) (float64, error) {
	var resp latestTradeResponse
	endpoint := fmt.Sprintf("%s/v2/stocks/%s/trades/latest", c.dataURL, url.PathEscape(symbol))
	if err := c.do(http.MethodGet, endpoint, nil, &resp); err != nil {
		if errors.Is(err, domain.ErrAuth) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %s: %v", domain.ErrPriceUnavailable, symbol, err)
	}
	if resp.Trade.Price <= 0 {
		return 0, fmt.Errorf("%w: %s", domain.ErrPriceUnavailable, symbol)
	}
	return resp.Trade.Price, nil
}

// SubmitOrder places a market order. Rejections come back as domain.ErrOrderRejected.
func (c *Client) SubmitOrder(req domain.OrderRequest) (*domain.OrderResult, error) {
	tif := req.TimeInForce
	if tif == "" {
		tif = "day"
	}

	c.log.Debug().
		Str("symbol", req.Symbol).
		Str("side", string(req.Side)).
		Str("qty", req.Quantity.String()).
		Msg("Submitting order")

	body := orderRequest{
		Symbol:        req.Symbol,
		Qty:           req.Quantity.String(),
		Side:          string(req.Side),
		Type:          "market",
		TimeInForce:   tif,
		ClientOrderID: req.ClientOrderID,
	}

	var resp orderResponse
	if err := c.do(http.MethodPost, c.baseURL+"/v2/orders", body, &resp); err != nil {
		return nil, c.orderError(err)
	}

	return &domain.OrderResult{
		OrderID:       resp.ID,
		ClientOrderID: resp.ClientOrderID,
		Status:        resp.Status,
	}, nil
}

// orderError reclassifies submission failures: auth and timeout errors pass
// through, everything the API refused becomes a rejection. Alpaca reports
// insufficient buying power as 403 and unprocessable orders as 422.
func (c *Client) orderError(err error) error {
	var httpErr *httpError
	if errors.As(err, &httpErr) {
		return fmt.Errorf("%w: %s", domain.ErrOrderRejected, httpErr.message)
	}
	return err
}

// GetOrderByClientOrderID looks up an order by its client order ID
func (c *Client) GetOrderByClientOrderID(clientOrderID string) (*domain.OrderStatus, error) {
	endpoint := fmt.Sprintf("%s/v2/orders:by_client_order_id?client_order_id=%s",
		c.baseURL, url.QueryEscape(clientOrderID))

	var resp orderResponse
	if err := c.do(http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	filled := decimal.Zero
	if resp.FilledQty != "" {
		if d, err := decimal.NewFromString(resp.FilledQty); err == nil {
			filled = d
		}
	}

	return &domain.OrderStatus{
		OrderID:       resp.ID,
		ClientOrderID: resp.ClientOrderID,
		Status:        resp.Status,
		FilledQty:     filled,
	}, nil
}
