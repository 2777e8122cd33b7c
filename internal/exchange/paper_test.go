package exchange

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/andreashuber69/smart-trade-sub000/internal/config"
	"github.com/andreashuber69/smart-trade-sub000/internal/models"
)

func newPaper(t *testing.T, first, second string) *PaperExchange {
	t.Helper()
	spec, ok := config.LookupPair("btceur")
	if !ok {
		t.Fatal("btceur pair spec missing")
	}
	return NewPaperExchange(spec,
		decimal.RequireFromString(first),
		decimal.RequireFromString(second),
		decimal.RequireFromString("0.25"),
		decimal.NewFromInt(64000))
}

func TestPaperExchange_BuyMovesBalances(t *testing.T) {
	p := newPaper(t, "0", "1000")
	ctx := context.Background()

	// 0.005 BTC at 64000 costs 320.00 plus 0.80 fee.
	order, err := p.CreateBuyOrder(ctx, decimal.RequireFromString("0.005"))
	if err != nil {
		t.Fatal(err)
	}
	if order.ClientOrderID == "" {
		t.Fatal("expected a client order id")
	}

	bal, err := p.Balance(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !bal.FirstAvailable.Equal(decimal.RequireFromString("0.005")) {
		t.Fatalf("first: %s", bal.FirstAvailable)
	}
	if !bal.SecondAvailable.Equal(decimal.RequireFromString("679.20")) {
		t.Fatalf("second: %s", bal.SecondAvailable)
	}

	txs, err := p.Transactions(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 1 || txs[0].Type != models.TxMarketTrade {
		t.Fatalf("expected one market trade, got %+v", txs)
	}
	if !txs[0].SecondAmount.Equal(decimal.RequireFromString("-320")) {
		t.Fatalf("trade second amount: %s", txs[0].SecondAmount)
	}
}

func TestPaperExchange_InsufficientFunds(t *testing.T) {
	p := newPaper(t, "0", "10")
	_, err := p.CreateBuyOrder(context.Background(), decimal.NewFromInt(1))
	if err == nil {
		t.Fatal("expected insufficient funds error")
	}
	if !IsTransient(err) {
		t.Fatal("paper rejections mimic exchange errors")
	}
}

func TestPaperExchange_SellAndTransfer(t *testing.T) {
	p := newPaper(t, "0.01", "0")
	ctx := context.Background()

	// 0.01 BTC brings 640.00 minus 1.60 fee.
	if _, err := p.CreateSellOrder(ctx, decimal.RequireFromString("0.01")); err != nil {
		t.Fatal(err)
	}
	bal, _ := p.Balance(ctx)
	if !bal.SecondAvailable.Equal(decimal.RequireFromString("638.40")) {
		t.Fatalf("second after sell: %s", bal.SecondAvailable)
	}

	if err := p.TransferToMain(ctx, "EUR", decimal.RequireFromString("638.40")); err != nil {
		t.Fatal(err)
	}
	bal, _ = p.Balance(ctx)
	if !bal.SecondAvailable.IsZero() {
		t.Fatalf("second after transfer: %s", bal.SecondAvailable)
	}

	txs, _ := p.Transactions(ctx, 0, 10)
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
	if txs[0].Type != models.TxSubaccountTransfer || !txs[0].SecondAmount.IsNegative() {
		t.Fatalf("newest transaction should be the outgoing transfer: %+v", txs[0])
	}
}

func TestPaperExchange_DepositIsScannable(t *testing.T) {
	p := newPaper(t, "0", "0")
	ctx := context.Background()

	if err := p.Deposit("EUR", decimal.NewFromInt(300)); err != nil {
		t.Fatal(err)
	}
	txs, err := p.Transactions(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 1 || txs[0].Type != models.TxDeposit {
		t.Fatalf("expected one deposit, got %+v", txs)
	}
	if !txs[0].SecondAmount.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("deposit amount: %s", txs[0].SecondAmount)
	}

	book, err := p.OrderBook(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := book.BestAsk(); !ok {
		t.Fatal("expected liquidity on the ask side")
	}
}
