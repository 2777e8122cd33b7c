package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradingPeriod is the span over which a balance is spent (or acquired)
// uniformly. SectionStart moves forward whenever a new qualifying deposit is
// seen or the pair is re-enabled mid-period; PeriodEnd is the moment the
// balance should reach zero.
type TradingPeriod struct {
	SectionStart time.Time `json:"sectionStart"`
	PeriodEnd    time.Time `json:"periodEnd"`
}

// IsSet reports whether a qualifying deposit has ever established a period.
func (p TradingPeriod) IsSet() bool {
	return !p.PeriodEnd.IsZero()
}

// TradeState is the persisted per-pair state. It survives restarts and is
// mutated only by the trade cycle (and the enable/disable control).
type TradeState struct {
	Pair                    string          `json:"pair"`
	NextTradeTime           time.Time       `json:"nextTradeTime"` // zero = disabled
	LastTradeTime           time.Time       `json:"lastTradeTime"`
	LastTransactionTS       time.Time       `json:"lastTransactionTs"` // history high-water mark
	TradeCountSinceTransfer int             `json:"tradeCountSinceTransfer"`
	RetryIntervalMs         int64           `json:"retryIntervalMs"`
	Period                  TradingPeriod   `json:"period"`
	LastStatus              string          `json:"lastStatus"`
	LastBalanceFirst        decimal.Decimal `json:"lastBalanceFirst"`
	LastBalanceSecond       decimal.Decimal `json:"lastBalanceSecond"`
	UpdatedAt               time.Time       `json:"updatedAt"`
}

// Enabled is derived: a pair is enabled exactly while a next trade time is set.
func (s *TradeState) Enabled() bool {
	return !s.NextTradeTime.IsZero()
}

// ClearSection resets the period sub-fields when a trade period finishes.
// All other fields are preserved for the next period.
func (s *TradeState) ClearSection() {
	s.Period = TradingPeriod{}
	s.TradeCountSinceTransfer = 0
}
