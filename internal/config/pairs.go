package config

import "github.com/shopspring/decimal"

// PairSpec describes the exchange's trading rules for one currency pair.
// MinTradeAmount and FeeStep are quoted in the second (counter) currency.
type PairSpec struct {
	Symbol         string
	FirstCurrency  string
	SecondCurrency string
	FirstDecimals  int32
	SecondDecimals int32
	MinTradeAmount decimal.Decimal
	FeeStep        decimal.Decimal
}

var (
	minTradeUSD = decimal.NewFromInt(5)
	minTradeEUR = decimal.NewFromInt(5)
	centStep    = decimal.New(1, -2) // 0.01
)

// pairSpecs holds the supported pairs keyed by their lowercase symbol.
var pairSpecs = map[string]PairSpec{
	"btcusd": {Symbol: "btcusd", FirstCurrency: "BTC", SecondCurrency: "USD", FirstDecimals: 8, SecondDecimals: 2, MinTradeAmount: minTradeUSD, FeeStep: centStep},
	"btceur": {Symbol: "btceur", FirstCurrency: "BTC", SecondCurrency: "EUR", FirstDecimals: 8, SecondDecimals: 2, MinTradeAmount: minTradeEUR, FeeStep: centStep},
	"ethusd": {Symbol: "ethusd", FirstCurrency: "ETH", SecondCurrency: "USD", FirstDecimals: 8, SecondDecimals: 2, MinTradeAmount: minTradeUSD, FeeStep: centStep},
	"etheur": {Symbol: "etheur", FirstCurrency: "ETH", SecondCurrency: "EUR", FirstDecimals: 8, SecondDecimals: 2, MinTradeAmount: minTradeEUR, FeeStep: centStep},
	"ltcusd": {Symbol: "ltcusd", FirstCurrency: "LTC", SecondCurrency: "USD", FirstDecimals: 8, SecondDecimals: 2, MinTradeAmount: minTradeUSD, FeeStep: centStep},
	"ltceur": {Symbol: "ltceur", FirstCurrency: "LTC", SecondCurrency: "EUR", FirstDecimals: 8, SecondDecimals: 2, MinTradeAmount: minTradeEUR, FeeStep: centStep},
}

// LookupPair returns the spec for a lowercase pair symbol.
func LookupPair(symbol string) (PairSpec, bool) {
	spec, ok := pairSpecs[symbol]
	return spec, ok
}

// SupportedPairs lists every known pair symbol.
func SupportedPairs() []string {
	out := make([]string, 0, len(pairSpecs))
	for sym := range pairSpecs {
		out = append(out, sym)
	}
	return out
}
