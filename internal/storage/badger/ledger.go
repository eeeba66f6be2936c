package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"news-trader/internal/interfaces"
	"news-trader/internal/types"
)

// Ledger implements the RunLedger interface over badgerhold. Badger
// transactions serialize concurrent writers, so the ledger is safe for use
// by many symbol-jobs at once.
type Ledger struct {
	db *DB
}

// NewLedger creates a new Ledger instance
func NewLedger(db *DB) interfaces.RunLedger {
	return &Ledger{db: db}
}

func (l *Ledger) SaveRun(ctx context.Context, run types.Run) error {
	if run.RunID == "" {
		return fmt.Errorf("run ID is required")
	}
	if err := l.db.Store().Insert(run.RunID, &run); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// InsertScrapes appends one record per stored article. Records are
// append-only; there is no uniqueness constraint on URL.
func (l *Ledger) InsertScrapes(ctx context.Context, scrapes []types.ScrapeRecord) error {
	for i := range scrapes {
		if err := l.db.Store().Insert(badgerhold.NextSequence(), &scrapes[i]); err != nil {
			return fmt.Errorf("failed to insert scrape record: %w", err)
		}
	}
	return nil
}

func statusKey(runID, symbol string) string {
	return runID + "/" + symbol
}

// UpsertStockStatus writes the status row for (symbol, run), creating it on
// first write and updating the success flag afterwards. CreatedAt is
// preserved across updates.
func (l *Ledger) UpsertStockStatus(ctx context.Context, status types.StockStatus) error {
	now := time.Now().UTC()
	status.CreatedAt = now
	status.UpdatedAt = now

	var existing types.StockStatus
	err := l.db.Store().Get(statusKey(status.RunID, status.Symbol), &existing)
	if err == nil {
		status.CreatedAt = existing.CreatedAt
	} else if err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to read stock status: %w", err)
	}

	if err := l.db.Store().Upsert(statusKey(status.RunID, status.Symbol), &status); err != nil {
		return fmt.Errorf("failed to upsert stock status: %w", err)
	}
	return nil
}

func (l *Ledger) ScrapesSince(ctx context.Context, runID string, publishedAfter time.Time) ([]types.ScrapeRecord, error) {
	var scrapes []types.ScrapeRecord
	query := badgerhold.Where("RunID").Eq(runID).Index("RunID").
		And("PublishedAt").Ge(publishedAfter)
	if err := l.db.Store().Find(&scrapes, query); err != nil {
		return nil, fmt.Errorf("failed to query scrapes: %w", err)
	}
	return scrapes, nil
}

func (l *Ledger) FailedSymbols(ctx context.Context, runID string) ([]string, error) {
	var statuses []types.StockStatus
	query := badgerhold.Where("RunID").Eq(runID).Index("RunID").
		And("Success").Eq(false)
	if err := l.db.Store().Find(&statuses, query); err != nil {
		return nil, fmt.Errorf("failed to query stock statuses: %w", err)
	}

	symbols := make([]string, 0, len(statuses))
	for _, s := range statuses {
		symbols = append(symbols, s.Symbol)
	}
	return symbols, nil
}

func (l *Ledger) SavePrediction(ctx context.Context, pred types.Prediction) error {
	if err := l.db.Store().Insert(badgerhold.NextSequence(), &pred); err != nil {
		return fmt.Errorf("failed to save prediction record: %w", err)
	}
	return nil
}
