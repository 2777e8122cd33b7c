package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

var (
	cyclesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "smarttrade_cycles_total",
		Help: "Trade cycles run, by pair and outcome.",
	}, []string{"pair", "outcome"})

	tradesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "smarttrade_trades_total",
		Help: "Market orders placed, by pair and side.",
	}, []string{"pair", "side"})

	tradedAmount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "smarttrade_traded_amount_total",
		Help: "Cumulative traded amount in the second currency, by pair.",
	}, []string{"pair"})

	transfersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "smarttrade_transfers_total",
		Help: "Transfers of proceeds to the main account, by pair.",
	}, []string{"pair"})

	retryInterval = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "smarttrade_retry_interval_seconds",
		Help: "Current backoff interval, by pair.",
	}, []string{"pair"})

	balance = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "smarttrade_balance",
		Help: "Last observed available balance, by pair and currency.",
	}, []string{"pair", "currency"})
)

func init() {
	prometheus.MustRegister(cyclesTotal, tradesTotal, tradedAmount, transfersTotal, retryInterval, balance)
}

// Cycle outcomes.
const (
	OutcomeTraded    = "traded"
	OutcomeIdle      = "idle"
	OutcomeTransient = "transient_error"
	OutcomeFatal     = "fatal_error"
)

func RecordCycle(pair, outcome string) {
	cyclesTotal.WithLabelValues(pair, outcome).Inc()
}

func RecordTrade(pair, side string, secondAmount decimal.Decimal) {
	tradesTotal.WithLabelValues(pair, side).Inc()
	tradedAmount.WithLabelValues(pair).Add(secondAmount.InexactFloat64())
}

func RecordTransfer(pair string) {
	transfersTotal.WithLabelValues(pair).Inc()
}

func SetRetryInterval(pair string, seconds float64) {
	retryInterval.WithLabelValues(pair).Set(seconds)
}

func SetBalance(pair, currency string, amount decimal.Decimal) {
	balance.WithLabelValues(pair, currency).Set(amount.InexactFloat64())
}
