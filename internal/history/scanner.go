package history

import (
	"context"
	"fmt"
	"time"

	"github.com/andreashuber69/smart-trade-sub000/internal/models"
)

// Source provides pages of account history, newest first.
type Source interface {
	Transactions(ctx context.Context, offset, limit int) ([]models.Transaction, error)
}

const (
	initialPageSize = 10
	pageGrowth      = 10
	maxScanRows     = 1000
)

// Result is the outcome of one incremental scan.
type Result struct {
	// Transactions fetched this scan, newest first. A superset sufficient
	// to locate the most recent qualifying transfer and market trade.
	Transactions []models.Transaction

	// NewestTimestamp is the high-water mark after this scan: the newest
	// transaction's timestamp, or the previous mark if nothing newer came
	// back.
	NewestTimestamp time.Time
}

// Scan fetches history pages until a page reaches lastSeen, the source runs
// out of rows, or 1000 rows have been scanned. Page sizes grow geometrically
// so short histories cost a single small request while the worst case stays
// bounded at three requests and the row cap.
func Scan(ctx context.Context, src Source, lastSeen time.Time) (*Result, error) {
	res := &Result{NewestTimestamp: lastSeen}
	offset := 0
	limit := initialPageSize

	for offset < maxScanRows {
		if limit > maxScanRows-offset {
			limit = maxScanRows - offset
		}
		page, err := src.Transactions(ctx, offset, limit)
		if err != nil {
			return nil, fmt.Errorf("fetch transactions [%d, %d): %w", offset, offset+limit, err)
		}
		if len(page) == 0 {
			break
		}
		res.Transactions = append(res.Transactions, page...)

		oldest := page[len(page)-1].Timestamp
		if !oldest.After(lastSeen) {
			break
		}
		if len(page) < limit {
			break
		}
		offset += len(page)
		limit *= pageGrowth
	}

	if len(res.Transactions) > 0 && res.Transactions[0].Timestamp.After(lastSeen) {
		res.NewestTimestamp = res.Transactions[0].Timestamp
	}
	return res, nil
}

// LatestTransfer returns the most recent deposit, withdrawal or subaccount
// transfer whose direction matches the trade mode: in buy mode funds arrive
// in the second currency, in sell mode in the first.
func LatestTransfer(txs []models.Transaction, buyMode bool) (models.Transaction, bool) {
	for _, tx := range txs {
		if !tx.Type.IsTransfer() {
			continue
		}
		if buyMode && tx.SecondAmount.IsPositive() {
			return tx, true
		}
		if !buyMode && tx.FirstAmount.IsPositive() {
			return tx, true
		}
	}
	return models.Transaction{}, false
}

// LatestMarketTrade returns the timestamp of the most recent market trade.
func LatestMarketTrade(txs []models.Transaction) (time.Time, bool) {
	for _, tx := range txs {
		if tx.Type == models.TxMarketTrade {
			return tx.Timestamp, true
		}
	}
	return time.Time{}, false
}
