package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance is the account snapshot for one currency pair.
type Balance struct {
	FirstAvailable  decimal.Decimal `json:"firstAvailable"`
	SecondAvailable decimal.Decimal `json:"secondAvailable"`
	FeePercent      decimal.Decimal `json:"feePercent"`
}

// OrderBookEntry is one price level.
type OrderBookEntry struct {
	Price  decimal.Decimal `json:"price"`
	Amount decimal.Decimal `json:"amount"`
}

// OrderBook holds bids ordered descending and asks ordered ascending by price,
// so index 0 is always top of book.
type OrderBook struct {
	Bids []OrderBookEntry `json:"bids"`
	Asks []OrderBookEntry `json:"asks"`
}

// BestBid returns the top bid, or false on an empty side.
func (b *OrderBook) BestBid() (OrderBookEntry, bool) {
	if len(b.Bids) == 0 {
		return OrderBookEntry{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the top ask, or false on an empty side.
func (b *OrderBook) BestAsk() (OrderBookEntry, bool) {
	if len(b.Asks) == 0 {
		return OrderBookEntry{}, false
	}
	return b.Asks[0], true
}

// Order is the normalized result of a placed market order.
type Order struct {
	ID            int64           `json:"id"`
	ClientOrderID string          `json:"clientOrderId"`
	Timestamp     time.Time       `json:"timestamp"`
	Amount        decimal.Decimal `json:"amount"`
	Price         decimal.Decimal `json:"price"`
}
