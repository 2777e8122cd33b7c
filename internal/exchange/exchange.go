package exchange

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/andreashuber69/smart-trade-sub000/internal/models"
)

// Client is the exchange capability the trade engine runs against. Order
// amounts are quoted in the first (base) currency; the engine converts from
// the depleted currency using top-of-book prices before placing.
type Client interface {
	Name() string
	Balance(ctx context.Context) (models.Balance, error)
	Transactions(ctx context.Context, offset, limit int) ([]models.Transaction, error)
	OrderBook(ctx context.Context) (models.OrderBook, error)
	CreateBuyOrder(ctx context.Context, amount decimal.Decimal) (models.Order, error)
	CreateSellOrder(ctx context.Context, amount decimal.Decimal) (models.Order, error)
	TransferToMain(ctx context.Context, currency string, amount decimal.Decimal) error
}

// Error is a business error reported by the exchange itself (rate limit,
// auth, rejected order). Treated as transient by the engine.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("exchange error: %s", e.Reason)
}

// NetworkError wraps a transport-level failure reaching the exchange.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a failure the engine should retry with
// backoff rather than treat as a bug.
func IsTransient(err error) bool {
	var ee *Error
	var ne *NetworkError
	return errors.As(err, &ee) || errors.As(err, &ne)
}
