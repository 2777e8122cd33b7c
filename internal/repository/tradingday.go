package repository

import "time"

// TradingDay returns the trading day (YYYY-MM-DD) for a given timestamp.
// Days roll over at UTC midnight, matching the exchange's statement days.
func TradingDay(ts time.Time) string {
	return ts.UTC().Format("2006-01-02")
}

// TradingDayNow returns the trading day for the current moment.
func TradingDayNow() string {
	return TradingDay(time.Now())
}
