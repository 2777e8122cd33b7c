package exchange

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

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andreashuber69/smart-trade-sub000/internal/config"
	"github.com/andreashuber69/smart-trade-sub000/internal/httputil"
	"github.com/andreashuber69/smart-trade-sub000/internal/models"
)

const txTimeLayout = "2006-01-02 15:04:05"

// RESTClient talks to a Bitstamp-style HTTP API for a single currency pair.
// Read calls are retried; order placement is sent exactly once with a client
// order id, so a timed-out placement can never double-execute server-side.
type RESTClient struct {
	baseURL string
	apiKey  string
	pair    config.PairSpec
	http    *http.Client
	retry   httputil.RetryConfig
}

func NewRESTClient(baseURL, apiKey string, pair config.PairSpec) *RESTClient {
	return &RESTClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		pair:    pair,
		http:    &http.Client{Timeout: 100 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
			MaxDelay:    10 * time.Second,
		},
	}
}

func (c *RESTClient) Name() string {
	return c.pair.Symbol
}

func (c *RESTClient) Balance(ctx context.Context) (models.Balance, error) {
	var raw map[string]json.Number
	path := fmt.Sprintf("/api/v2/balance/%s/", c.pair.Symbol)
	if err := c.get(ctx, path, nil, &raw); err != nil {
		return models.Balance{}, err
	}

	first, err := numField(raw, strings.ToLower(c.pair.FirstCurrency)+"_available")
	if err != nil {
		return models.Balance{}, err
	}
	second, err := numField(raw, strings.ToLower(c.pair.SecondCurrency)+"_available")
	if err != nil {
		return models.Balance{}, err
	}
	fee, err := numField(raw, "fee")
	if err != nil {
		return models.Balance{}, err
	}
	return models.Balance{FirstAvailable: first, SecondAvailable: second, FeePercent: fee}, nil
}

func (c *RESTClient) Transactions(ctx context.Context, offset, limit int) ([]models.Transaction, error) {
	var rows []map[string]json.RawMessage
	path := fmt.Sprintf("/api/v2/user_transactions/%s/", c.pair.Symbol)
	params := url.Values{
		"offset": {strconv.Itoa(offset)},
		"limit":  {strconv.Itoa(limit)},
		"sort":   {"desc"},
	}
	if err := c.get(ctx, path, params, &rows); err != nil {
		return nil, err
	}

	out := make([]models.Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := c.parseTransaction(row)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

func (c *RESTClient) OrderBook(ctx context.Context) (models.OrderBook, error) {
	var raw struct {
		Bids [][2]string `json:"bids"`
		Asks [][2]string `json:"asks"`
	}
	path := fmt.Sprintf("/api/v2/order_book/%s/", c.pair.Symbol)
	if err := c.get(ctx, path, nil, &raw); err != nil {
		return models.OrderBook{}, err
	}

	book := models.OrderBook{}
	var err error
	if book.Bids, err = parseLevels(raw.Bids); err != nil {
		return models.OrderBook{}, err
	}
	if book.Asks, err = parseLevels(raw.Asks); err != nil {
		return models.OrderBook{}, err
	}
	return book, nil
}

func (c *RESTClient) CreateBuyOrder(ctx context.Context, amount decimal.Decimal) (models.Order, error) {
	return c.placeOrder(ctx, "buy", amount)
}

func (c *RESTClient) CreateSellOrder(ctx context.Context, amount decimal.Decimal) (models.Order, error) {
	return c.placeOrder(ctx, "sell", amount)
}

func (c *RESTClient) TransferToMain(ctx context.Context, currency string, amount decimal.Decimal) error {
	form := url.Values{
		"currency": {strings.ToLower(currency)},
		"amount":   {amount.String()},
	}
	var raw map[string]json.RawMessage
	return c.post(ctx, "/api/v2/transfer-to-main/", form, &raw)
}

func (c *RESTClient) placeOrder(ctx context.Context, side string, amount decimal.Decimal) (models.Order, error) {
	clientOrderID := uuid.New().String()
	form := url.Values{
		"amount":          {amount.String()},
		"client_order_id": {clientOrderID},
	}

	var raw struct {
		ID       json.Number `json:"id"`
		Datetime string      `json:"datetime"`
		Amount   json.Number `json:"amount"`
		Price    json.Number `json:"price"`
	}
	path := fmt.Sprintf("/api/v2/%s/market/%s/", side, c.pair.Symbol)
	if err := c.post(ctx, path, form, &raw); err != nil {
		return models.Order{}, err
	}

	id, _ := raw.ID.Int64()
	executed, err := decimal.NewFromString(raw.Amount.String())
	if err != nil {
		return models.Order{}, fmt.Errorf("order amount %q: %w", raw.Amount, err)
	}
	price, err := decimal.NewFromString(raw.Price.String())
	if err != nil {
		return models.Order{}, fmt.Errorf("order price %q: %w", raw.Price, err)
	}
	ts, err := time.ParseInLocation(txTimeLayout, raw.Datetime, time.UTC)
	if err != nil {
		ts = time.Now().UTC()
	}
	return models.Order{ID: id, ClientOrderID: clientOrderID, Timestamp: ts, Amount: executed, Price: price}, nil
}

// get issues an idempotent read with retry.
func (c *RESTClient) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	resp, err := httputil.Do(ctx, c.http, c.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		c.authorize(req)
		return req, nil
	})
	if err != nil {
		return &NetworkError{Err: err}
	}
	return decodeResponse(resp, out)
}

// post is used for order placement and transfers and is never retried.
func (c *RESTClient) post(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	return decodeResponse(resp, out)
}

func (c *RESTClient) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("X-Auth", c.apiKey)
	}
}

func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &Error{Reason: apiReason(resp.StatusCode, body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Reason: fmt.Sprintf("malformed response: %v", err)}
	}
	return nil
}

// apiReason pulls the error text out of a Bitstamp-style failure body.
func apiReason(status int, body []byte) string {
	var parsed struct {
		Reason json.RawMessage `json:"reason"`
		Error  string          `json:"error"`
		Status string          `json:"status"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if len(parsed.Reason) > 0 {
			var s string
			if json.Unmarshal(parsed.Reason, &s) == nil {
				return s
			}
			return string(parsed.Reason)
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	return fmt.Sprintf("HTTP %d: %s", status, strings.TrimSpace(string(body)))
}

func (c *RESTClient) parseTransaction(row map[string]json.RawMessage) (models.Transaction, error) {
	var tx models.Transaction

	id, err := rawNumber(row, "id")
	if err != nil {
		return tx, err
	}
	tx.ID, _ = id.Int64()

	var datetime, typ string
	if err := unmarshalField(row, "datetime", &datetime); err != nil {
		return tx, err
	}
	if tx.Timestamp, err = time.ParseInLocation(txTimeLayout, datetime, time.UTC); err != nil {
		return tx, fmt.Errorf("transaction %d datetime %q: %w", tx.ID, datetime, err)
	}
	if err := unmarshalField(row, "type", &typ); err != nil {
		return tx, err
	}
	code, err := strconv.Atoi(typ)
	if err != nil {
		return tx, fmt.Errorf("transaction %d type %q: %w", tx.ID, typ, err)
	}
	tx.Type = models.TransactionType(code)

	firstKey := strings.ToLower(c.pair.FirstCurrency)
	secondKey := strings.ToLower(c.pair.SecondCurrency)
	if tx.FirstAmount, err = rawDecimal(row, firstKey); err != nil {
		return tx, err
	}
	if tx.SecondAmount, err = rawDecimal(row, secondKey); err != nil {
		return tx, err
	}
	if tx.Price, err = rawDecimal(row, firstKey+"_"+secondKey); err != nil {
		return tx, err
	}
	if tx.Fee, err = rawDecimal(row, "fee"); err != nil {
		return tx, err
	}
	if raw, ok := row["order_id"]; ok {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			tx.OrderID = n.String()
		}
	}
	return tx, nil
}

// --- field helpers ---

func numField(m map[string]json.Number, key string) (decimal.Decimal, error) {
	n, ok := m[key]
	if !ok {
		return decimal.Zero, &Error{Reason: fmt.Sprintf("missing field %q", key)}
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero, &Error{Reason: fmt.Sprintf("field %q: %v", key, err)}
	}
	return d, nil
}

func rawNumber(row map[string]json.RawMessage, key string) (json.Number, error) {
	raw, ok := row[key]
	if !ok {
		return "", &Error{Reason: fmt.Sprintf("missing field %q", key)}
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", &Error{Reason: fmt.Sprintf("field %q: %v", key, err)}
	}
	return n, nil
}

// rawDecimal parses an optional currency-keyed amount; absent keys are zero.
func rawDecimal(row map[string]json.RawMessage, key string) (decimal.Decimal, error) {
	raw, ok := row[key]
	if !ok || string(raw) == "null" {
		return decimal.Zero, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return decimal.Zero, &Error{Reason: fmt.Sprintf("field %q: %v", key, err)}
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero, &Error{Reason: fmt.Sprintf("field %q: %v", key, err)}
	}
	return d, nil
}

func unmarshalField(row map[string]json.RawMessage, key string, out any) error {
	raw, ok := row[key]
	if !ok {
		return &Error{Reason: fmt.Sprintf("missing field %q", key)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Reason: fmt.Sprintf("field %q: %v", key, err)}
	}
	return nil
}

func parseLevels(raw [][2]string) ([]models.OrderBookEntry, error) {
	out := make([]models.OrderBookEntry, 0, len(raw))
	for _, lvl := range raw {
		price, err := decimal.NewFromString(lvl[0])
		if err != nil {
			return nil, &Error{Reason: fmt.Sprintf("order book price %q: %v", lvl[0], err)}
		}
		amount, err := decimal.NewFromString(lvl[1])
		if err != nil {
			return nil, &Error{Reason: fmt.Sprintf("order book amount %q: %v", lvl[1], err)}
		}
		out = append(out, models.OrderBookEntry{Price: price, Amount: amount})
	}
	return out, nil
}
