package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andreashuber69/smart-trade-sub000/internal/config"
	"github.com/andreashuber69/smart-trade-sub000/internal/models"
)

// PaperExchange is an in-memory Client for dry runs. Fills happen instantly
// at a fixed synthetic price and every balance movement is recorded as a
// transaction so the history scanner sees the same shape as the live API.
type PaperExchange struct {
	mu         sync.Mutex
	pair       config.PairSpec
	first      decimal.Decimal
	second     decimal.Decimal
	feePercent decimal.Decimal
	price      decimal.Decimal
	txs        []models.Transaction // newest first
	nextID     int64
	now        func() time.Time
}

func NewPaperExchange(pair config.PairSpec, first, second, feePercent, price decimal.Decimal) *PaperExchange {
	p := &PaperExchange{
		pair:       pair,
		first:      first,
		second:     second,
		feePercent: feePercent,
		price:      price,
		nextID:     1,
		now:        time.Now,
	}
	fmt.Printf("[PAPER] %s wallet: %s %s, %s %s\n",
		pair.Symbol, first, pair.FirstCurrency, second, pair.SecondCurrency)
	return p
}

func (p *PaperExchange) Name() string {
	return p.pair.Symbol
}

func (p *PaperExchange) Balance(_ context.Context) (models.Balance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return models.Balance{
		FirstAvailable:  p.first,
		SecondAvailable: p.second,
		FeePercent:      p.feePercent,
	}, nil
}

func (p *PaperExchange) Transactions(_ context.Context, offset, limit int) ([]models.Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if offset >= len(p.txs) {
		return nil, nil
	}
	end := offset + limit
	if end > len(p.txs) {
		end = len(p.txs)
	}
	out := make([]models.Transaction, end-offset)
	copy(out, p.txs[offset:end])
	return out, nil
}

func (p *PaperExchange) OrderBook(_ context.Context) (models.OrderBook, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	spread := p.price.Mul(decimal.New(1, -3)) // 0.1%
	depth := decimal.NewFromInt(1000)
	return models.OrderBook{
		Bids: []models.OrderBookEntry{
			{Price: p.price.Sub(spread), Amount: depth},
			{Price: p.price.Sub(spread.Mul(decimal.NewFromInt(2))), Amount: depth},
		},
		Asks: []models.OrderBookEntry{
			{Price: p.price.Add(spread), Amount: depth},
			{Price: p.price.Add(spread.Mul(decimal.NewFromInt(2))), Amount: depth},
		},
	}, nil
}

func (p *PaperExchange) CreateBuyOrder(_ context.Context, amount decimal.Decimal) (models.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cost := amount.Mul(p.price).Round(p.pair.SecondDecimals)
	fee := p.fee(cost)
	if p.second.LessThan(cost.Add(fee)) {
		return models.Order{}, &Error{Reason: fmt.Sprintf(
			"insufficient %s: have %s, need %s", p.pair.SecondCurrency, p.second, cost.Add(fee))}
	}
	p.second = p.second.Sub(cost).Sub(fee)
	p.first = p.first.Add(amount)

	order := p.record(amount, cost.Neg(), fee)
	fmt.Printf("[PAPER] %s buy %s %s @ %s (fee %s)\n",
		p.pair.Symbol, amount, p.pair.FirstCurrency, p.price, fee)
	return order, nil
}

func (p *PaperExchange) CreateSellOrder(_ context.Context, amount decimal.Decimal) (models.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.first.LessThan(amount) {
		return models.Order{}, &Error{Reason: fmt.Sprintf(
			"insufficient %s: have %s, need %s", p.pair.FirstCurrency, p.first, amount)}
	}
	proceeds := amount.Mul(p.price).Round(p.pair.SecondDecimals)
	fee := p.fee(proceeds)
	p.first = p.first.Sub(amount)
	p.second = p.second.Add(proceeds).Sub(fee)

	order := p.record(amount.Neg(), proceeds, fee)
	fmt.Printf("[PAPER] %s sell %s %s @ %s (fee %s)\n",
		p.pair.Symbol, amount, p.pair.FirstCurrency, p.price, fee)
	return order, nil
}

func (p *PaperExchange) TransferToMain(_ context.Context, currency string, amount decimal.Decimal) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	tx := models.Transaction{
		ID:        p.nextID,
		Timestamp: p.now().UTC(),
		Type:      models.TxSubaccountTransfer,
	}
	switch currency {
	case p.pair.FirstCurrency:
		if p.first.LessThan(amount) {
			return &Error{Reason: fmt.Sprintf("insufficient %s for transfer", currency)}
		}
		p.first = p.first.Sub(amount)
		tx.FirstAmount = amount.Neg()
	case p.pair.SecondCurrency:
		if p.second.LessThan(amount) {
			return &Error{Reason: fmt.Sprintf("insufficient %s for transfer", currency)}
		}
		p.second = p.second.Sub(amount)
		tx.SecondAmount = amount.Neg()
	default:
		return &Error{Reason: fmt.Sprintf("unknown currency %q", currency)}
	}
	p.nextID++
	p.prepend(tx)
	fmt.Printf("[PAPER] %s transfer %s %s to main account\n", p.pair.Symbol, amount, currency)
	return nil
}

// Deposit credits the trading wallet and records the deposit transaction,
// simulating an incoming transfer from the main account.
func (p *PaperExchange) Deposit(currency string, amount decimal.Decimal) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	tx := models.Transaction{
		ID:        p.nextID,
		Timestamp: p.now().UTC(),
		Type:      models.TxDeposit,
	}
	switch currency {
	case p.pair.FirstCurrency:
		p.first = p.first.Add(amount)
		tx.FirstAmount = amount
	case p.pair.SecondCurrency:
		p.second = p.second.Add(amount)
		tx.SecondAmount = amount
	default:
		return &Error{Reason: fmt.Sprintf("unknown currency %q", currency)}
	}
	p.nextID++
	p.prepend(tx)
	fmt.Printf("[PAPER] %s deposit %s %s\n", p.pair.Symbol, amount, currency)
	return nil
}

func (p *PaperExchange) fee(secondAmount decimal.Decimal) decimal.Decimal {
	if p.feePercent.IsZero() {
		return decimal.Zero
	}
	steps := secondAmount.Mul(p.feePercent).Div(decimal.NewFromInt(100)).Div(p.pair.FeeStep).Ceil()
	return steps.Mul(p.pair.FeeStep)
}

func (p *PaperExchange) record(firstAmount, secondAmount, fee decimal.Decimal) models.Order {
	order := models.Order{
		ID:            p.nextID,
		ClientOrderID: uuid.New().String(),
		Timestamp:     p.now().UTC(),
		Amount:        firstAmount.Abs(),
		Price:         p.price,
	}
	p.prepend(models.Transaction{
		ID:           p.nextID,
		Timestamp:    order.Timestamp,
		Type:         models.TxMarketTrade,
		FirstAmount:  firstAmount,
		SecondAmount: secondAmount,
		Price:        p.price,
		Fee:          fee,
		OrderID:      order.ClientOrderID,
	})
	p.nextID++
	return order
}

func (p *PaperExchange) prepend(tx models.Transaction) {
	p.txs = append([]models.Transaction{tx}, p.txs...)
}
