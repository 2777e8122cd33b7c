package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is one executed market order as recorded in the trade log.
type Trade struct {
	ID         int64           `json:"id"`
	Timestamp  time.Time       `json:"timestamp"`
	TradingDay time.Time       `json:"tradingDay"`
	Pair       string          `json:"pair"`
	Side       string          `json:"side"` // "buy" or "sell"
	Amount     decimal.Decimal `json:"amount"`
	Price      decimal.Decimal `json:"price"`
	Fee        decimal.Decimal `json:"fee"`
	OrderID    string          `json:"orderId"`
	IsPaper    bool            `json:"isPaper"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// TradeStats aggregates the trade log over a span of trading days.
type TradeStats struct {
	Pair        string          `json:"pair"`
	TradeCount  int64           `json:"tradeCount"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	TotalFees   decimal.Decimal `json:"totalFees"`
}
