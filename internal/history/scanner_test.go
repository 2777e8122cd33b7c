package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreashuber69/smart-trade-sub000/internal/models"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeSource serves a fixed newest-first history and records page requests.
type fakeSource struct {
	txs      []models.Transaction
	requests [][2]int
	err      error
}

func (f *fakeSource) Transactions(_ context.Context, offset, limit int) ([]models.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.requests = append(f.requests, [2]int{offset, limit})
	if offset >= len(f.txs) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.txs) {
		end = len(f.txs)
	}
	return f.txs[offset:end], nil
}

// nTxs builds n market trades, newest first, one minute apart ending at base.
func nTxs(n int) []models.Transaction {
	out := make([]models.Transaction, n)
	for i := range out {
		out[i] = models.Transaction{
			ID:        int64(n - i),
			Timestamp: base.Add(-time.Duration(i) * time.Minute),
			Type:      models.TxMarketTrade,
		}
	}
	return out
}

func TestScan_ShortHistorySingleRequest(t *testing.T) {
	src := &fakeSource{txs: nTxs(4)}

	res, err := Scan(context.Background(), src, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Transactions) != 4 {
		t.Fatalf("expected 4 transactions, got %d", len(res.Transactions))
	}
	if len(src.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(src.requests))
	}
	if src.requests[0] != [2]int{0, 10} {
		t.Fatalf("expected first page [0, 10), got %v", src.requests[0])
	}
	if !res.NewestTimestamp.Equal(base) {
		t.Fatalf("expected high-water mark %s, got %s", base, res.NewestTimestamp)
	}
}

func TestScan_StopsAtHighWaterMark(t *testing.T) {
	txs := nTxs(40)
	// Mark sits inside the first page: one request suffices.
	lastSeen := txs[5].Timestamp

	src := &fakeSource{txs: txs}
	res, err := Scan(context.Background(), src, lastSeen)
	if err != nil {
		t.Fatal(err)
	}
	if len(src.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(src.requests))
	}
	if len(res.Transactions) != 10 {
		t.Fatalf("expected the full first page, got %d rows", len(res.Transactions))
	}
	if !res.NewestTimestamp.Equal(base) {
		t.Fatalf("expected mark to advance to %s, got %s", base, res.NewestTimestamp)
	}
}

func TestScan_GeometricPageGrowth(t *testing.T) {
	src := &fakeSource{txs: nTxs(200)}

	res, err := Scan(context.Background(), src, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	want := [][2]int{{0, 10}, {10, 100}, {110, 890}}
	if len(src.requests) != len(want) {
		t.Fatalf("expected %d requests, got %d: %v", len(want), len(src.requests), src.requests)
	}
	for i, w := range want {
		if src.requests[i] != w {
			t.Fatalf("request %d: expected %v, got %v", i, w, src.requests[i])
		}
	}
	if len(res.Transactions) != 200 {
		t.Fatalf("expected all 200 transactions, got %d", len(res.Transactions))
	}
}

func TestScan_BoundedAtThreeRequests(t *testing.T) {
	// A history deeper than the row cap never triggers a fourth request and
	// never scans past 1000 rows; the final page is clamped accordingly.
	src := &fakeSource{txs: nTxs(1500)}

	res, err := Scan(context.Background(), src, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(src.requests) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(src.requests))
	}
	if last := src.requests[2]; last != [2]int{110, 890} {
		t.Fatalf("expected the last page clamped to [110, 1000), got %v", last)
	}
	if len(res.Transactions) != 1000 {
		t.Fatalf("expected 1000 scanned rows, got %d", len(res.Transactions))
	}
}

func TestScan_EmptyHistory(t *testing.T) {
	src := &fakeSource{}
	mark := base.Add(-time.Hour)

	res, err := Scan(context.Background(), src, mark)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Transactions) != 0 {
		t.Fatalf("expected no transactions, got %d", len(res.Transactions))
	}
	if !res.NewestTimestamp.Equal(mark) {
		t.Fatalf("mark must not move on an empty scan: %s", res.NewestTimestamp)
	}
}

func TestScan_SourceError(t *testing.T) {
	boom := errors.New("rate limited")
	src := &fakeSource{err: boom}

	_, err := Scan(context.Background(), src, time.Time{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped source error, got %v", err)
	}
}

func TestLatestTransfer(t *testing.T) {
	txs := []models.Transaction{
		{Timestamp: base, Type: models.TxMarketTrade},
		{Timestamp: base.Add(-time.Minute), Type: models.TxDeposit, SecondAmount: decimal.NewFromInt(100)},
		{Timestamp: base.Add(-2 * time.Minute), Type: models.TxDeposit, FirstAmount: decimal.NewFromFloat(0.5)},
		{Timestamp: base.Add(-3 * time.Minute), Type: models.TxSubaccountTransfer, SecondAmount: decimal.NewFromInt(50)},
	}

	// Buy mode wants incoming second currency.
	tx, ok := LatestTransfer(txs, true)
	if !ok {
		t.Fatal("expected a qualifying transfer")
	}
	if !tx.Timestamp.Equal(base.Add(-time.Minute)) {
		t.Fatalf("expected the newest second-currency deposit, got %s", tx.Timestamp)
	}

	// Sell mode wants incoming first currency.
	tx, ok = LatestTransfer(txs, false)
	if !ok {
		t.Fatal("expected a qualifying transfer")
	}
	if !tx.Timestamp.Equal(base.Add(-2 * time.Minute)) {
		t.Fatalf("expected the first-currency deposit, got %s", tx.Timestamp)
	}

	// Market trades never qualify.
	if _, ok := LatestTransfer(txs[:1], true); ok {
		t.Fatal("a market trade must not qualify as a transfer")
	}
}

func TestLatestMarketTrade(t *testing.T) {
	txs := []models.Transaction{
		{Timestamp: base, Type: models.TxDeposit, SecondAmount: decimal.NewFromInt(100)},
		{Timestamp: base.Add(-time.Minute), Type: models.TxMarketTrade},
		{Timestamp: base.Add(-2 * time.Minute), Type: models.TxMarketTrade},
	}

	ts, ok := LatestMarketTrade(txs)
	if !ok {
		t.Fatal("expected a market trade")
	}
	if !ts.Equal(base.Add(-time.Minute)) {
		t.Fatalf("expected the newest market trade, got %s", ts)
	}

	if _, ok := LatestMarketTrade(txs[:1]); ok {
		t.Fatal("expected no market trade")
	}
}
