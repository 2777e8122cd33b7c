package exchange

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/andreashuber69/smart-trade-sub000/internal/config"
	"github.com/andreashuber69/smart-trade-sub000/internal/models"
)

func btceur(t *testing.T) config.PairSpec {
	t.Helper()
	spec, ok := config.LookupPair("btceur")
	if !ok {
		t.Fatal("btceur pair spec missing")
	}
	return spec
}

func TestRESTClient_Balance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/balance/btceur/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"btc_available": "0.51234567", "eur_available": "1250.42", "fee": "0.25"}`))
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL, "key", btceur(t))
	bal, err := c.Balance(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !bal.FirstAvailable.Equal(decimal.RequireFromString("0.51234567")) {
		t.Fatalf("first available: %s", bal.FirstAvailable)
	}
	if !bal.SecondAvailable.Equal(decimal.RequireFromString("1250.42")) {
		t.Fatalf("second available: %s", bal.SecondAvailable)
	}
	if !bal.FeePercent.Equal(decimal.RequireFromString("0.25")) {
		t.Fatalf("fee percent: %s", bal.FeePercent)
	}
}

func TestRESTClient_OrderBook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"bids": [["64000.10", "0.4"], ["63999.00", "1.2"]], "asks": [["64010.50", "0.8"]]}`))
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL, "", btceur(t))
	book, err := c.OrderBook(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	bid, ok := book.BestBid()
	if !ok || !bid.Price.Equal(decimal.RequireFromString("64000.10")) {
		t.Fatalf("best bid: %+v ok=%v", bid, ok)
	}
	ask, ok := book.BestAsk()
	if !ok || !ask.Amount.Equal(decimal.RequireFromString("0.8")) {
		t.Fatalf("best ask: %+v ok=%v", ask, ok)
	}
}

func TestRESTClient_Transactions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "10" {
			t.Errorf("limit = %s", got)
		}
		w.Write([]byte(`[
			{"id": 3, "datetime": "2024-03-02 09:30:00", "type": "2", "btc": "0.00015", "eur": "-9.60", "btc_eur": "64000.00", "fee": "0.03", "order_id": 901},
			{"id": 2, "datetime": "2024-03-01 12:00:00", "type": "0", "eur": "300.00", "fee": "0.00"},
			{"id": 1, "datetime": "2024-02-28 08:00:00", "type": "14", "eur": "-50.00", "fee": "0.00"}
		]`))
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL, "key", btceur(t))
	txs, err := c.Transactions(context.Background(), 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(txs))
	}

	trade := txs[0]
	if trade.Type != models.TxMarketTrade {
		t.Fatalf("type = %d", trade.Type)
	}
	if !trade.SecondAmount.Equal(decimal.RequireFromString("-9.60")) {
		t.Fatalf("second amount: %s", trade.SecondAmount)
	}
	if trade.OrderID != "901" {
		t.Fatalf("order id: %s", trade.OrderID)
	}

	deposit := txs[1]
	if deposit.Type != models.TxDeposit || !deposit.Type.IsTransfer() {
		t.Fatalf("expected deposit transfer, got type %d", deposit.Type)
	}
	if !deposit.SecondAmount.Equal(decimal.RequireFromString("300.00")) {
		t.Fatalf("deposit amount: %s", deposit.SecondAmount)
	}
	if !deposit.FirstAmount.IsZero() {
		t.Fatalf("deposit first amount should be zero: %s", deposit.FirstAmount)
	}
}

func TestRESTClient_BuyOrderSendsClientOrderID(t *testing.T) {
	var gotClientOrderID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/api/v2/buy/market/btceur/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Error(err)
		}
		gotClientOrderID = r.PostForm.Get("client_order_id")
		w.Write([]byte(`{"id": 42, "datetime": "2024-03-02 09:30:00", "amount": "0.00015600", "price": "64010.50"}`))
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL, "key", btceur(t))
	order, err := c.CreateBuyOrder(context.Background(), decimal.RequireFromString("0.000156"))
	if err != nil {
		t.Fatal(err)
	}
	if order.ID != 42 {
		t.Fatalf("order id: %d", order.ID)
	}
	if gotClientOrderID == "" {
		t.Fatal("expected a client order id on the placement request")
	}
	if order.ClientOrderID != gotClientOrderID {
		t.Fatalf("client order id mismatch: %s != %s", order.ClientOrderID, gotClientOrderID)
	}
}

func TestRESTClient_APIErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"reason": "API key not permitted", "status": "error"}`))
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL, "key", btceur(t))
	_, err := c.CreateSellOrder(context.Background(), decimal.NewFromInt(1))
	if err == nil {
		t.Fatal("expected an error")
	}
	var ee *Error
	if !errors.As(err, &ee) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if ee.Reason != "API key not permitted" {
		t.Fatalf("reason: %s", ee.Reason)
	}
	if !IsTransient(err) {
		t.Fatal("exchange errors are transient")
	}
}

func TestRESTClient_NetworkErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := NewRESTClient(srv.URL, "key", btceur(t))
	_, err := c.CreateBuyOrder(context.Background(), decimal.NewFromInt(1))
	if err == nil {
		t.Fatal("expected an error")
	}
	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected *NetworkError, got %T: %v", err, err)
	}
	if !IsTransient(err) {
		t.Fatal("network errors are transient")
	}
}
