package interfaces

import (
	"context"
	"errors"
	"time"

	"news-trader/internal/types"
)

// ErrNotFound is returned by ArticleStore.Get for a missing key.
var ErrNotFound = errors.New("not found")

// RunLedger is the document store recording runs, scrape records, per-symbol
// statuses and aggregation metadata. Implementations must be safe for
// concurrent use by multiple symbol-jobs.
type RunLedger interface {
	SaveRun(ctx context.Context, run types.Run) error
	InsertScrapes(ctx context.Context, scrapes []types.ScrapeRecord) error
	UpsertStockStatus(ctx context.Context, status types.StockStatus) error
	// ScrapesSince returns all scrape records for the run whose publish time
	// is at or after the cutoff.
	ScrapesSince(ctx context.Context, runID string, publishedAfter time.Time) ([]types.ScrapeRecord, error)
	// FailedSymbols returns the symbols whose last status for the run was a
	// failure, for retry-run construction.
	FailedSymbols(ctx context.Context, runID string) ([]string, error)
	SavePrediction(ctx context.Context, pred types.Prediction) error
}

// ArticleStore persists raw article bytes under hierarchical string keys.
// Implementations must be safe for concurrent use.
type ArticleStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}
