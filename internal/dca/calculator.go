package dca

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidConfig is returned by NewCalculator for constraint violations.
var ErrInvalidConfig = errors.New("invalid calculator configuration")

var hundred = decimal.NewFromInt(100)

// Calculator computes trade amounts and timing for uniform balance depletion.
// All arithmetic is exact decimal; no binary floating point enters the math.
type Calculator struct {
	periodEnd      time.Time
	minTradeAmount decimal.Decimal
	feeStep        decimal.Decimal

	// feePercent/100/feeStep; zero when the fee percent is zero, in which
	// case fee-step alignment degenerates to a no-op.
	stepsPerUnit decimal.Decimal

	minOptimal decimal.Decimal
}

// NewCalculator validates the fee schedule and period end.
func NewCalculator(periodEnd time.Time, minTradeAmount, feePercent, feeStep decimal.Decimal) (*Calculator, error) {
	if periodEnd.IsZero() {
		return nil, fmt.Errorf("%w: period end is not set", ErrInvalidConfig)
	}
	if minTradeAmount.IsNegative() {
		return nil, fmt.Errorf("%w: min trade amount %s is negative", ErrInvalidConfig, minTradeAmount)
	}
	if feePercent.IsNegative() {
		return nil, fmt.Errorf("%w: fee percent %s is negative", ErrInvalidConfig, feePercent)
	}
	if !feeStep.IsPositive() {
		return nil, fmt.Errorf("%w: fee step %s must be positive", ErrInvalidConfig, feeStep)
	}

	c := &Calculator{
		periodEnd:      periodEnd,
		minTradeAmount: minTradeAmount,
		feeStep:        feeStep,
		stepsPerUnit:   feePercent.Div(hundred).Div(feeStep),
	}

	if c.stepsPerUnit.IsZero() {
		c.minOptimal = minTradeAmount
	} else {
		c.minOptimal = minTradeAmount.Mul(c.stepsPerUnit).Ceil().Div(c.stepsPerUnit)
	}
	return c, nil
}

// MinOptimalTradeAmount is the smallest amount at or above the exchange
// minimum whose fee is a whole number of fee steps.
func (c *Calculator) MinOptimalTradeAmount() decimal.Decimal {
	return c.minOptimal
}

// TradeAmount returns how much to trade at instant now so the balance stays
// on the uniform depletion curve from startTime to the period end. The result
// is 0 when only a dust amount is due, and the entire startBalance when the
// remainder after an on-curve trade would no longer be tradeable.
func (c *Calculator) TradeAmount(now, startTime time.Time, startBalance, maxTradeAmount decimal.Decimal) (decimal.Decimal, error) {
	if startTime.After(now) {
		return decimal.Zero, fmt.Errorf("start time %s is in the future", startTime.Format(time.RFC3339))
	}

	targetAmount := c.dueAmount(now, startTime, startBalance)
	if cap := decimal.Min(maxTradeAmount, startBalance); targetAmount.GreaterThan(cap) {
		targetAmount = cap
	}

	tradeAmount := c.floorToSteps(targetAmount)

	// Liquidate rather than leave an untradeable remainder. The dust check
	// runs after this so a liquidation below the minimum still yields zero.
	if startBalance.Sub(tradeAmount).LessThan(c.minOptimal) {
		tradeAmount = startBalance
	}
	if tradeAmount.LessThan(c.minOptimal) {
		return decimal.Zero, nil
	}
	return tradeAmount, nil
}

// Fee is the exchange fee for a trade of the given amount, rounded up to a
// whole number of fee steps.
func (c *Calculator) Fee(tradeAmount decimal.Decimal) decimal.Decimal {
	if c.stepsPerUnit.IsZero() {
		return decimal.Zero
	}
	return tradeAmount.Mul(c.stepsPerUnit).Ceil().Mul(c.feeStep)
}

// NextTradeTime returns the instant at which the depletion curve next calls
// for at least the minimal optimal amount, given the current balance. The
// second result is false when no further trade is due: the balance is below
// the minimal optimal amount or the period is already over.
func (c *Calculator) NextTradeTime(lastTradeTime time.Time, currentBalance decimal.Decimal) (time.Time, bool) {
	if currentBalance.LessThan(c.minOptimal) || currentBalance.IsZero() {
		return time.Time{}, false
	}
	if !c.periodEnd.After(lastTradeTime) {
		return time.Time{}, false
	}

	// Inverse of the depletion curve: the curve reaches
	// currentBalance - minOptimal after minOptimal/currentBalance of the
	// remaining span.
	remaining := decimal.NewFromInt(c.periodEnd.Sub(lastTradeTime).Milliseconds())
	offset := remaining.Mul(c.minOptimal).Div(currentBalance)
	return lastTradeTime.Add(time.Duration(offset.IntPart()) * time.Millisecond), true
}

// dueAmount is how far below startBalance the uniform curve sits at instant
// now: startBalance * elapsed / total. The balance is multiplied in before
// dividing so on-curve amounts come out exact. The elapsed fraction is
// clamped to [0, 1]; past the period end the whole balance is due.
func (c *Calculator) dueAmount(now, startTime time.Time, startBalance decimal.Decimal) decimal.Decimal {
	total := c.periodEnd.Sub(startTime).Milliseconds()
	if total <= 0 {
		return startBalance
	}
	elapsed := now.Sub(startTime).Milliseconds()
	if elapsed <= 0 {
		return decimal.Zero
	}
	if elapsed >= total {
		return startBalance
	}
	return startBalance.Mul(decimal.NewFromInt(elapsed)).Div(decimal.NewFromInt(total))
}

func (c *Calculator) floorToSteps(amount decimal.Decimal) decimal.Decimal {
	if c.stepsPerUnit.IsZero() {
		return amount
	}
	return amount.Mul(c.stepsPerUnit).Floor().Div(c.stepsPerUnit)
}
