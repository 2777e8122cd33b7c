package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreashuber69/smart-trade-sub000/internal/config"
	"github.com/andreashuber69/smart-trade-sub000/internal/dca"
	"github.com/andreashuber69/smart-trade-sub000/internal/exchange"
	"github.com/andreashuber69/smart-trade-sub000/internal/history"
	"github.com/andreashuber69/smart-trade-sub000/internal/metrics"
	"github.com/andreashuber69/smart-trade-sub000/internal/models"
)

// Timestamps earlier than this year mean the system clock has not been set
// yet (e.g. right after boot); cycles abort rather than trade on a bogus
// depletion curve.
const clockFloorYear = 2017

// StateStore persists per-pair trade state.
type StateStore interface {
	Get(ctx context.Context, pair string) (*models.TradeState, error)
	Save(ctx context.Context, state *models.TradeState) error
	List(ctx context.Context) ([]*models.TradeState, error)
}

// Armer requests future cycle invocations, at most one outstanding per pair.
type Armer interface {
	ArmAt(pair string, at time.Time)
	Cancel(pair string)
}

// Notifier reports user-visible status.
type Notifier interface {
	Send(msg string)
}

// Recorder appends executed trades to the trade log.
type Recorder interface {
	Record(ctx context.Context, trade *models.Trade) error
}

// TransferPolicy controls when proceeds move to the main account.
type TransferPolicy string

const (
	TransferNever      TransferPolicy = "never"
	TransferPeriodEnd  TransferPolicy = "period_end"
	TransferEveryNth   TransferPolicy = "every_nth"
	TransferEveryTrade TransferPolicy = "every_trade"
)

func ParseTransferPolicy(s string) (TransferPolicy, error) {
	switch p := TransferPolicy(s); p {
	case TransferNever, TransferPeriodEnd, TransferEveryNth, TransferEveryTrade:
		return p, nil
	default:
		return "", fmt.Errorf("unknown transfer policy %q", s)
	}
}

// TransferConfig groups the transfer policy with its tuning.
type TransferConfig struct {
	Policy      TransferPolicy
	EveryN      int
	SettleDelay time.Duration
}

// Config is the per-pair engine configuration.
type Config struct {
	Pair        config.PairSpec
	BuyMode     bool
	TradePeriod time.Duration
	MinRetry    time.Duration
	MaxRetry    time.Duration
	Transfers   TransferConfig
	Paper       bool
}

// Engine runs trade cycles for one currency pair. All amounts flowing
// through the calculator are second-currency values; in sell mode the first
// currency balance is valued at the best bid before the curve math runs.
type Engine struct {
	cfg      Config
	client   exchange.Client
	store    StateStore
	armer    Armer
	notify   Notifier
	recorder Recorder

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu sync.Mutex // one cycle at a time per pair
}

func New(cfg Config, client exchange.Client, store StateStore, armer Armer, notify Notifier, recorder Recorder) *Engine {
	return &Engine{
		cfg:      cfg,
		client:   client,
		store:    store,
		armer:    armer,
		notify:   notify,
		recorder: recorder,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

func (e *Engine) Pair() string {
	return e.cfg.Pair.Symbol
}

// RunCycle executes one "maybe trade now" pass. Transient exchange failures
// double the backoff and keep the pair enabled; anything unexpected disables
// the pair and propagates so a supervising layer sees it.
func (e *Engine) RunCycle(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	pair := e.cfg.Pair.Symbol
	now := e.now()

	// Defensive pre-arm before any work, the state load included: if the
	// store is unreachable or the process dies mid-cycle the pair wakes up
	// again instead of stalling forever. A normal completion re-arms with a
	// more precise instant; the disabled branch cancels it.
	fallback := now.Add(e.cfg.MaxRetry)
	e.armer.ArmAt(pair, fallback)

	state, err := e.store.Get(ctx, pair)
	if err != nil {
		return fmt.Errorf("load state for %s: %w", pair, err)
	}
	if state == nil || !state.Enabled() {
		e.armer.Cancel(pair)
		fmt.Printf("[CYCLE] %s is disabled, skipping\n", pair)
		return nil
	}
	state.NextTradeTime = fallback

	if now.Year() < clockFloorYear {
		fmt.Printf("[CYCLE] %s system clock unreliable (%s), aborting\n", pair, now.Format(time.RFC3339))
		return nil
	}

	outcome, err := e.cycle(ctx, state, now)
	switch {
	case err == nil:
	case exchange.IsTransient(err):
		outcome = metrics.OutcomeTransient
		e.doubleBackoff(state)
		next := now.Add(time.Duration(state.RetryIntervalMs) * time.Millisecond)
		state.NextTradeTime = next
		e.armer.ArmAt(pair, next)
		state.LastStatus = err.Error()
		fmt.Printf("[CYCLE] %s transient failure: %v (retry in %s)\n",
			pair, err, time.Duration(state.RetryIntervalMs)*time.Millisecond)
		err = nil
	default:
		outcome = metrics.OutcomeFatal
		state.RetryIntervalMs = e.cfg.MaxRetry.Milliseconds()
		state.NextTradeTime = time.Time{}
		state.LastStatus = fmt.Sprintf("disabled after unexpected error: %v", err)
		e.armer.Cancel(pair)
		e.notify.Send(fmt.Sprintf("%s disabled after unexpected error: %v", pair, err))
		err = fmt.Errorf("%s cycle: %w", pair, err)
	}

	state.UpdatedAt = e.now()
	if saveErr := e.store.Save(ctx, state); saveErr != nil {
		fmt.Printf("[CYCLE] %s failed to persist state: %v\n", pair, saveErr)
		if err == nil {
			err = fmt.Errorf("persist state for %s: %w", pair, saveErr)
		}
	}
	metrics.RecordCycle(pair, outcome)
	metrics.SetRetryInterval(pair, float64(state.RetryIntervalMs)/1000)
	return err
}

func (e *Engine) cycle(ctx context.Context, state *models.TradeState, now time.Time) (string, error) {
	pair := e.cfg.Pair

	bal, err := e.client.Balance(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch balance: %w", err)
	}
	state.LastBalanceFirst = bal.FirstAvailable
	state.LastBalanceSecond = bal.SecondAvailable
	metrics.SetBalance(pair.Symbol, pair.FirstCurrency, bal.FirstAvailable)
	metrics.SetBalance(pair.Symbol, pair.SecondCurrency, bal.SecondAvailable)

	scan, err := history.Scan(ctx, e.client, state.LastTransactionTS)
	if err != nil {
		return "", err
	}
	state.LastTransactionTS = scan.NewestTimestamp

	if tx, ok := history.LatestTransfer(scan.Transactions, e.cfg.BuyMode); ok && tx.Timestamp.After(state.Period.SectionStart) {
		if state.Period.IsSet() && state.Period.PeriodEnd.After(tx.Timestamp) {
			fmt.Printf("[CYCLE] %s new deposit closes the previous period early\n", pair.Symbol)
			e.notify.Send(fmt.Sprintf("%s: new deposit closes the previous period", pair.Symbol))
		}
		state.Period.SectionStart = tx.Timestamp
		state.Period.PeriodEnd = tx.Timestamp.Add(e.cfg.TradePeriod)
		state.TradeCountSinceTransfer = 0
		fmt.Printf("[CYCLE] %s deposit at %s starts a new section, period ends %s\n",
			pair.Symbol, tx.Timestamp.Format(time.RFC3339), state.Period.PeriodEnd.Format(time.RFC3339))
	}

	if !state.Period.IsSet() {
		return e.finishIdle(state, "no deposit found yet"), nil
	}

	book, err := e.client.OrderBook(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch order book: %w", err)
	}
	level, ok := e.bestLevel(book)
	if !ok {
		return "", &exchange.Error{Reason: "order book is empty"}
	}

	calc, err := dca.NewCalculator(state.Period.PeriodEnd, pair.MinTradeAmount, bal.FeePercent, pair.FeeStep)
	if err != nil {
		return "", err
	}

	// Anchor the curve at the latest of section start, newest market trade
	// seen this scan and the persisted last trade time. The exchange
	// occasionally omits the very latest transaction from history, so the
	// persisted time must participate in the max.
	anchor := state.Period.SectionStart
	if ts, ok := history.LatestMarketTrade(scan.Transactions); ok && ts.After(anchor) {
		anchor = ts
	}
	if state.LastTradeTime.After(anchor) {
		anchor = state.LastTradeTime
	}

	depleted := bal.SecondAvailable
	if !e.cfg.BuyMode {
		depleted = bal.FirstAvailable.Mul(level.Price)
	}
	maxTradeable := level.Price.Mul(level.Amount)

	amount, err := calc.TradeAmount(now, anchor, depleted, maxTradeable)
	if err != nil {
		// The exchange's clock runs ahead of ours; retry once it settles.
		return "", &exchange.Error{Reason: err.Error()}
	}

	if amount.IsZero() {
		if depleted.LessThan(calc.MinOptimalTradeAmount()) {
			return e.finishIdle(state, fmt.Sprintf(
				"insufficient balance: %s %s", depleted.StringFixed(pair.SecondDecimals), pair.SecondCurrency)), nil
		}
		// Woken before anything was due; ride the curve to the next instant.
		return e.finishOnCurve(state, calc, anchor, depleted, "nothing due yet"), nil
	}

	isLast := amount.Equal(depleted)
	placed := amount
	if isLast {
		// The exchange deducts the fee from the given amount on execution,
		// so the final trade must hand over the balance minus its fee or
		// the order would exceed available funds.
		placed = amount.Sub(calc.Fee(amount))
	}
	fee := calc.Fee(placed)

	instrument := placed.Div(level.Price).RoundDown(pair.FirstDecimals)
	if !instrument.IsPositive() {
		return e.finishOnCurve(state, calc, anchor, depleted, "due amount below display precision"), nil
	}

	side := "sell"
	var order models.Order
	if e.cfg.BuyMode {
		side = "buy"
		order, err = e.client.CreateBuyOrder(ctx, instrument)
	} else {
		order, err = e.client.CreateSellOrder(ctx, instrument)
	}
	if err != nil {
		return "", fmt.Errorf("place %s order: %w", side, err)
	}

	tradedAt := order.Timestamp
	if now.After(tradedAt) {
		tradedAt = now
	}
	state.LastTradeTime = tradedAt
	state.TradeCountSinceTransfer++

	if e.cfg.BuyMode {
		state.LastBalanceSecond = state.LastBalanceSecond.Sub(placed).Sub(fee)
		state.LastBalanceFirst = state.LastBalanceFirst.Add(order.Amount)
	} else {
		state.LastBalanceFirst = state.LastBalanceFirst.Sub(order.Amount)
		state.LastBalanceSecond = state.LastBalanceSecond.Add(placed).Sub(fee)
	}

	metrics.RecordTrade(pair.Symbol, side, placed)
	e.recordTrade(ctx, side, order, fee, tradedAt)
	e.notify.Send(fmt.Sprintf("%s: %s %s %s for %s %s (fee %s)",
		pair.Symbol, side, instrument, pair.FirstCurrency,
		placed.StringFixed(pair.SecondDecimals), pair.SecondCurrency, fee))

	if err := e.maybeTransfer(ctx, state, isLast); err != nil {
		return "", err
	}

	state.RetryIntervalMs = e.cfg.MinRetry.Milliseconds()

	remaining := depleted.Sub(amount)
	next, ok := calc.NextTradeTime(tradedAt, remaining)
	if !ok {
		state.ClearSection()
		state.RetryIntervalMs = e.cfg.MaxRetry.Milliseconds()
		state.LastStatus = "period complete"
		e.notify.Send(fmt.Sprintf("%s: trade period complete", pair.Symbol))
		return metrics.OutcomeTraded, nil
	}
	state.NextTradeTime = next
	e.armer.ArmAt(pair.Symbol, next)
	state.LastStatus = fmt.Sprintf("%s %s %s, next trade at %s",
		side, instrument, pair.FirstCurrency, next.UTC().Format(time.RFC3339))
	return metrics.OutcomeTraded, nil
}

// finishIdle ends a cycle that has nothing to do: max backoff, informational
// status, the defensive pre-arm stays as the next wake-up.
func (e *Engine) finishIdle(state *models.TradeState, status string) string {
	state.RetryIntervalMs = e.cfg.MaxRetry.Milliseconds()
	state.LastStatus = status
	fmt.Printf("[CYCLE] %s idle: %s\n", e.cfg.Pair.Symbol, status)
	return metrics.OutcomeIdle
}

// finishOnCurve ends a cycle without a trade but with a precise wake-up from
// the depletion curve.
func (e *Engine) finishOnCurve(state *models.TradeState, calc *dca.Calculator, anchor time.Time, balance decimal.Decimal, status string) string {
	state.RetryIntervalMs = e.cfg.MinRetry.Milliseconds()
	next, ok := calc.NextTradeTime(anchor, balance)
	if !ok {
		return e.finishIdle(state, status)
	}
	state.NextTradeTime = next
	e.armer.ArmAt(e.cfg.Pair.Symbol, next)
	state.LastStatus = fmt.Sprintf("%s, next trade at %s", status, next.UTC().Format(time.RFC3339))
	return metrics.OutcomeIdle
}

func (e *Engine) recordTrade(ctx context.Context, side string, order models.Order, fee decimal.Decimal, tradedAt time.Time) {
	if e.recorder == nil {
		return
	}
	err := e.recorder.Record(ctx, &models.Trade{
		Timestamp:  tradedAt,
		TradingDay: tradedAt.UTC().Truncate(24 * time.Hour),
		Pair:       e.cfg.Pair.Symbol,
		Side:       side,
		Amount:     order.Amount,
		Price:      order.Price,
		Fee:        fee,
		OrderID:    order.ClientOrderID,
		IsPaper:    e.cfg.Paper,
	})
	if err != nil {
		fmt.Printf("[CYCLE] %s failed to record trade: %v\n", e.cfg.Pair.Symbol, err)
	}
}

func (e *Engine) maybeTransfer(ctx context.Context, state *models.TradeState, isLast bool) error {
	t := e.cfg.Transfers
	due := false
	switch t.Policy {
	case TransferEveryTrade:
		due = true
	case TransferEveryNth:
		due = t.EveryN > 0 && state.TradeCountSinceTransfer >= t.EveryN
	case TransferPeriodEnd:
		due = isLast
	}
	if !due {
		return nil
	}

	// The exchange does not credit proceeds instantly.
	if err := e.sleep(ctx, t.SettleDelay); err != nil {
		return &exchange.NetworkError{Err: err}
	}
	bal, err := e.client.Balance(ctx)
	if err != nil {
		return fmt.Errorf("post-trade balance: %w", err)
	}

	currency, amount := e.cfg.Pair.FirstCurrency, bal.FirstAvailable
	if !e.cfg.BuyMode {
		currency, amount = e.cfg.Pair.SecondCurrency, bal.SecondAvailable
	}
	if !amount.IsPositive() {
		return nil
	}
	if err := e.client.TransferToMain(ctx, currency, amount); err != nil {
		return fmt.Errorf("transfer to main account: %w", err)
	}
	state.TradeCountSinceTransfer = 0
	metrics.RecordTransfer(e.cfg.Pair.Symbol)
	e.notify.Send(fmt.Sprintf("%s: transferred %s %s to main account", e.cfg.Pair.Symbol, amount, currency))
	return nil
}

func (e *Engine) bestLevel(book models.OrderBook) (models.OrderBookEntry, bool) {
	if e.cfg.BuyMode {
		return book.BestAsk()
	}
	return book.BestBid()
}

func (e *Engine) doubleBackoff(state *models.TradeState) {
	minMs := e.cfg.MinRetry.Milliseconds()
	maxMs := e.cfg.MaxRetry.Milliseconds()
	ms := state.RetryIntervalMs * 2
	if state.RetryIntervalMs <= 0 {
		ms = minMs
	}
	if ms < minMs {
		ms = minMs
	}
	if ms > maxMs {
		ms = maxMs
	}
	state.RetryIntervalMs = ms
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
