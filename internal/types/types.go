package types

import "time"

// Run identifies one end-to-end scrape-and-aggregate cycle.
type Run struct {
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Article is the scraped payload stored per article. The JSON shape is the
// blob format used by the article store.
type Article struct {
	Content     string `json:"content"`
	Title       string `json:"title"`
	Link        string `json:"link"`
	PublishedAt string `json:"published_at,omitempty"`
}

// ScrapeRecord is one row in the scrapes collection, appended per stored
// article. Never mutated after insert.
type ScrapeRecord struct {
	Symbol      string    `json:"stock" badgerhold:"index"`
	ScrapedAt   time.Time `json:"scraped_at"`
	StorageKey  string    `json:"storage_key"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	RunID       string    `json:"run_id" badgerhold:"index"`
	PublishedAt time.Time `json:"published_at,omitempty"`
}

// StockStatus records the outcome of one symbol-job. One logical row per
// (symbol, run_id), upserted.
type StockStatus struct {
	Symbol    string    `json:"symbol"`
	RunID     string    `json:"run_id" badgerhold:"index"`
	Success   bool      `json:"success"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SymbolTally holds the per-symbol classification vote counts. Derived per
// aggregation pass, never persisted directly.
type SymbolTally struct {
	Symbol string `json:"symbol"`
	Yes    int    `json:"yes"`
	No     int    `json:"no"`
	NA     int    `json:"na"`
}

// Votes returns the total number of classified articles behind the tally.
func (t SymbolTally) Votes() int {
	return t.Yes + t.No + t.NA
}

// Prediction is the metadata record written per aggregation run.
type Prediction struct {
	StorageKey  string    `json:"storage_key"`
	RunID       string    `json:"run_id"`
	Lookback    int       `json:"lookback"`
	PredictedAt time.Time `json:"predicted_at"`
}

// Order is a sized market order ready for brokerage submission.
type Order struct {
	Symbol      string `json:"symbol"`
	Side        string `json:"side"`
	TimeInForce string `json:"time_in_force"`
	Notional    string `json:"notional"`
}

const (
	SideBuy  = "buy"
	SideSell = "sell"
	TIFDay   = "day"
)

// Account is the brokerage account snapshot the sizing step needs.
type Account struct {
	Cash string `json:"cash"`
}

// Vote values returned by the classifier after normalization.
const (
	VoteYes = "YES"
	VoteNo  = "NO"
	VoteNA  = "NA"
)
