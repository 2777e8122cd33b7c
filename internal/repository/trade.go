package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/andreashuber69/smart-trade-sub000/internal/models"
)

type TradeRepo struct {
	pool *pgxpool.Pool
}

func NewTradeRepo(pool *pgxpool.Pool) *TradeRepo {
	return &TradeRepo{pool: pool}
}

func (r *TradeRepo) Record(ctx context.Context, t *models.Trade) (*models.Trade, error) {
	ts := t.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	td := TradingDay(ts)

	row := r.pool.QueryRow(ctx,
		`INSERT INTO trade_history
		 (timestamp, trading_day, pair, side, amount, price, fee,
		  order_id, is_paper_trade)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 RETURNING *`,
		ts, td, t.Pair, t.Side,
		t.Amount.String(), t.Price.String(), t.Fee.String(),
		t.OrderID, t.IsPaper,
	)
	return scanTrade(row)
}

// GetByDay returns trades for one trading day, oldest first.
// Pair and paper filters apply when non-empty / non-nil.
func (r *TradeRepo) GetByDay(ctx context.Context, tradingDay string, pair string, paperMode *bool) ([]models.Trade, error) {
	query, args := buildFilteredQuery(
		`SELECT * FROM trade_history WHERE trading_day = $1`,
		[]any{tradingDay},
		pair, paperMode,
	)
	query += " ORDER BY timestamp ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTrades(rows)
}

// GetAll returns the most recent trades.
// Pair and paper filters apply when non-empty / non-nil.
func (r *TradeRepo) GetAll(ctx context.Context, limit int, pair string, paperMode *bool) ([]models.Trade, error) {
	query, args := buildFilteredQuery(
		`SELECT * FROM trade_history WHERE 1=1`,
		nil,
		pair, paperMode,
	)
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY timestamp DESC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTrades(rows)
}

// GetStats aggregates the trade log. Amounts are summed as numerics and
// returned as text so the decimals survive the round trip.
func (r *TradeRepo) GetStats(ctx context.Context, pair string, paperMode *bool) (*models.TradeStats, error) {
	query, args := buildFilteredQuery(
		`SELECT
			COUNT(*),
			COALESCE(SUM(amount::numeric), 0)::text,
			COALESCE(SUM(fee::numeric), 0)::text
		 FROM trade_history WHERE 1=1`,
		nil,
		pair, paperMode,
	)

	var s models.TradeStats
	var totalAmount, totalFees string
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&s.TradeCount, &totalAmount, &totalFees,
	)
	if err != nil {
		return nil, err
	}
	s.Pair = pair
	if s.TotalAmount, err = decimal.NewFromString(totalAmount); err != nil {
		return nil, err
	}
	if s.TotalFees, err = decimal.NewFromString(totalFees); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *TradeRepo) CountToday(ctx context.Context, pair string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM trade_history WHERE trading_day = $1 AND pair = $2`,
		TradingDayNow(), pair,
	).Scan(&count)
	return count, err
}

// buildFilteredQuery appends pair and is_paper_trade clauses when set.
func buildFilteredQuery(baseQuery string, baseArgs []any, pair string, paperMode *bool) (string, []any) {
	args := baseArgs
	if pair != "" {
		args = append(args, pair)
		baseQuery += fmt.Sprintf(" AND pair = $%d", len(args))
	}
	if paperMode != nil {
		args = append(args, *paperMode)
		baseQuery += fmt.Sprintf(" AND is_paper_trade = $%d", len(args))
	}
	return baseQuery, args
}

// --- scan helpers ---

func scanTrade(row scannable) (*models.Trade, error) {
	var t models.Trade
	var amount, price, fee string
	err := row.Scan(
		&t.ID, &t.Timestamp, &t.TradingDay, &t.Pair, &t.Side,
		&amount, &price, &fee, &t.OrderID, &t.IsPaper, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, err
	}
	if t.Price, err = decimal.NewFromString(price); err != nil {
		return nil, err
	}
	if t.Fee, err = decimal.NewFromString(fee); err != nil {
		return nil, err
	}
	return &t, nil
}

func collectTrades(rows rowsIter) ([]models.Trade, error) {
	var out []models.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}
