package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/andreashuber69/smart-trade-sub000/internal/models"
)

type TradeStateRepo struct {
	pool *pgxpool.Pool
}

func NewTradeStateRepo(pool *pgxpool.Pool) *TradeStateRepo {
	return &TradeStateRepo{pool: pool}
}

// Get returns the persisted state for a pair, nil when the pair has never
// been enabled.
func (r *TradeStateRepo) Get(ctx context.Context, pair string) (*models.TradeState, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT * FROM trade_state WHERE pair = $1`,
		pair,
	)
	s, err := scanTradeState(row)
	if err != nil {
		if err.Error() == "no rows in result set" {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// Save upserts the state keyed by pair. Balances are stored as text so the
// decimal representation round-trips without binary float drift.
func (r *TradeStateRepo) Save(ctx context.Context, s *models.TradeState) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO trade_state
		 (pair, next_trade_time, last_trade_time, last_transaction_ts,
		  trade_count_since_transfer, retry_interval_ms,
		  section_start, period_end, last_status,
		  last_balance_first, last_balance_second, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		 ON CONFLICT (pair) DO UPDATE SET
		  next_trade_time = EXCLUDED.next_trade_time,
		  last_trade_time = EXCLUDED.last_trade_time,
		  last_transaction_ts = EXCLUDED.last_transaction_ts,
		  trade_count_since_transfer = EXCLUDED.trade_count_since_transfer,
		  retry_interval_ms = EXCLUDED.retry_interval_ms,
		  section_start = EXCLUDED.section_start,
		  period_end = EXCLUDED.period_end,
		  last_status = EXCLUDED.last_status,
		  last_balance_first = EXCLUDED.last_balance_first,
		  last_balance_second = EXCLUDED.last_balance_second,
		  updated_at = EXCLUDED.updated_at`,
		s.Pair,
		nullableTime(s.NextTradeTime),
		nullableTime(s.LastTradeTime),
		nullableTime(s.LastTransactionTS),
		s.TradeCountSinceTransfer,
		s.RetryIntervalMs,
		nullableTime(s.Period.SectionStart),
		nullableTime(s.Period.PeriodEnd),
		s.LastStatus,
		s.LastBalanceFirst.String(),
		s.LastBalanceSecond.String(),
		s.UpdatedAt,
	)
	return err
}

// List returns the state of every pair ever persisted.
func (r *TradeStateRepo) List(ctx context.Context) ([]*models.TradeState, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT * FROM trade_state ORDER BY pair ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.TradeState
	for rows.Next() {
		s, err := scanTradeState(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// --- scan helpers ---

type scannable interface {
	Scan(dest ...any) error
}

type rowsIter interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanTradeState(row scannable) (*models.TradeState, error) {
	var s models.TradeState
	var next, lastTrade, lastTx, sectionStart, periodEnd *time.Time
	var first, second string
	err := row.Scan(
		&s.Pair, &next, &lastTrade, &lastTx,
		&s.TradeCountSinceTransfer, &s.RetryIntervalMs,
		&sectionStart, &periodEnd, &s.LastStatus,
		&first, &second, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.NextTradeTime = timeOrZero(next)
	s.LastTradeTime = timeOrZero(lastTrade)
	s.LastTransactionTS = timeOrZero(lastTx)
	s.Period.SectionStart = timeOrZero(sectionStart)
	s.Period.PeriodEnd = timeOrZero(periodEnd)
	if s.LastBalanceFirst, err = decimal.NewFromString(first); err != nil {
		return nil, err
	}
	if s.LastBalanceSecond, err = decimal.NewFromString(second); err != nil {
		return nil, err
	}
	return &s, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
