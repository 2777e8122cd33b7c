package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType mirrors the exchange's numeric transaction type codes.
type TransactionType int

const (
	TxDeposit            TransactionType = 0
	TxWithdrawal         TransactionType = 1
	TxMarketTrade        TransactionType = 2
	TxSubaccountTransfer TransactionType = 14
)

// IsTransfer reports whether the transaction moves funds in or out of the
// trading account (as opposed to a trade within it).
func (t TransactionType) IsTransfer() bool {
	return t == TxDeposit || t == TxWithdrawal || t == TxSubaccountTransfer
}

// Transaction is a single row of exchange account history, newest first as
// returned by the exchange. Amounts are signed: deposits are positive,
// withdrawals negative.
type Transaction struct {
	ID           int64           `json:"id"`
	Timestamp    time.Time       `json:"timestamp"`
	Type         TransactionType `json:"type"`
	FirstAmount  decimal.Decimal `json:"firstAmount"`
	SecondAmount decimal.Decimal `json:"secondAmount"`
	Price        decimal.Decimal `json:"price"`
	Fee          decimal.Decimal `json:"fee"`
	OrderID      string          `json:"orderId,omitempty"`
}
