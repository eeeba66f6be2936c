package predict

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"news-trader/internal/interfaces"
	"news-trader/internal/logger"
	"news-trader/internal/trace"
	"news-trader/internal/types"
)

// Options tunes aggregation thresholds. The defaults are the observed
// production values.
type Options struct {
	MinArticleBytes int    // stored articles shorter than this are skipped
	MinYesVotes     int    // minimum YES count for top-symbol eligibility
	TopCounts       int    // number of distinct YES counts kept in the top set
	Recipient       string // notification address, empty disables mail
}

// DefaultOptions returns the observed production thresholds.
func DefaultOptions() Options {
	return Options{
		MinArticleBytes: 100,
		MinYesVotes:     4,
		TopCounts:       4,
	}
}

// Result is the ranked output of one aggregation pass.
type Result struct {
	RunID      string             `json:"run_id"`
	Lookback   int                `json:"lookback"`
	Table      []types.SymbolTally `json:"table"`
	Filtered   []types.SymbolTally `json:"filtered"`
	TopSymbols []string           `json:"top_symbols"`
}

// Engine pulls a run's scrape records, deduplicates them, classifies every
// surviving article and ranks the symbols by YES votes.
type Engine struct {
	ledger     interfaces.RunLedger
	articles   interfaces.ArticleStore
	classifier interfaces.Classifier
	notifier   interfaces.Notifier
	opts       Options
}

// NewEngine creates an aggregation engine with explicit collaborators.
// notifier may be nil to disable notifications.
func NewEngine(l interfaces.RunLedger, a interfaces.ArticleStore, c interfaces.Classifier, n interfaces.Notifier, opts Options) *Engine {
	def := DefaultOptions()
	if opts.MinArticleBytes <= 0 {
		opts.MinArticleBytes = def.MinArticleBytes
	}
	if opts.MinYesVotes <= 0 {
		opts.MinYesVotes = def.MinYesVotes
	}
	if opts.TopCounts <= 0 {
		opts.TopCounts = def.TopCounts
	}
	return &Engine{ledger: l, articles: a, classifier: c, notifier: n, opts: opts}
}

// Aggregate runs the full pass for one run id and lookback window and
// persists the report artifacts before returning the ranked result.
func (e *Engine) Aggregate(ctx context.Context, runID string, lookbackHours int) (*Result, error) {
	if runID == "" {
		return nil, fmt.Errorf("run id required")
	}
	if lookbackHours <= 0 {
		return nil, fmt.Errorf("lookback must be positive, got %d", lookbackHours)
	}

	ctx, span := trace.StartSpan(ctx, "aggregate-run")
	defer span.End()

	cutoff := time.Now().UTC().Add(-time.Duration(lookbackHours) * time.Hour)
	logger.Info(ctx, "Starting aggregation", "run_id", runID, "lookback_hours", lookbackHours, "cutoff", cutoff)

	scrapes, err := e.ledger.ScrapesSince(ctx, runID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to load scrape records: %w", err)
	}

	symbols, grouped := groupBySymbol(ctx, scrapes)
	if len(symbols) == 0 {
		logger.Info(ctx, "No scrape records eligible for aggregation", "run_id", runID)
		return &Result{RunID: runID, Lookback: lookbackHours}, nil
	}

	table := make([]types.SymbolTally, 0, len(symbols))
	for _, symbol := range symbols {
		tally := e.tallySymbol(ctx, symbol, grouped[symbol])
		if tally.Votes() == 0 {
			continue
		}
		table = append(table, tally)
	}
	sort.SliceStable(table, func(i, j int) bool { return table[i].Yes > table[j].Yes })

	result := &Result{
		RunID:      runID,
		Lookback:   lookbackHours,
		Table:      table,
		Filtered:   filterAndOrder(table),
		TopSymbols: e.topSymbols(table),
	}

	if err := e.saveReports(ctx, result); err != nil {
		return nil, err
	}
	e.notify(ctx, result)

	logger.Info(ctx, "Aggregation completed", "run_id", runID, "symbols", len(table), "top", result.TopSymbols)
	return result, nil
}

// groupBySymbol deduplicates records by URL (first occurrence wins) and
// groups the survivors by symbol, preserving first-seen symbol order.
func groupBySymbol(ctx context.Context, scrapes []types.ScrapeRecord) ([]string, map[string][]types.ScrapeRecord) {
	seen := map[string]bool{}
	grouped := map[string][]types.ScrapeRecord{}
	order := []string{}
	dups := 0

	for _, scrape := range scrapes {
		if scrape.URL == "" {
			continue
		}
		if seen[scrape.URL] {
			dups++
			continue
		}
		seen[scrape.URL] = true

		symbol := strings.ToLower(scrape.Symbol)
		if _, ok := grouped[symbol]; !ok {
			order = append(order, symbol)
		}
		grouped[symbol] = append(grouped[symbol], scrape)
	}

	if dups > 0 {
		logger.Info(ctx, "Dropped duplicate articles", "count", dups)
	}
	return order, grouped
}

// tallySymbol loads every stored article for a symbol and collects one
// normalized vote per classifiable article. Unreadable or short articles and
// failed classifier calls drop silently.
func (e *Engine) tallySymbol(ctx context.Context, symbol string, scrapes []types.ScrapeRecord) types.SymbolTally {
	tally := types.SymbolTally{Symbol: symbol}

	for _, scrape := range scrapes {
		data, err := e.articles.Get(ctx, scrape.StorageKey)
		if err != nil {
			logger.Warn(ctx, "Could not read stored article", "key", scrape.StorageKey, "error", err)
			continue
		}
		if len(data) < e.opts.MinArticleBytes {
			logger.Debug(ctx, "Article too short, skipping", "key", scrape.StorageKey, "bytes", len(data))
			continue
		}

		var article types.Article
		if err := json.Unmarshal(data, &article); err != nil || article.Content == "" {
			continue
		}

		resp, err := e.classifier.Classify(ctx, symbol, article.Content)
		if err != nil {
			// One failed call omits one vote; the symbol proceeds.
			logger.ErrorWithErr(ctx, "Classifier call failed", err, "symbol", symbol)
			continue
		}

		vote := normalizeVote(resp)
		logger.Vote(ctx, symbol, vote, "title", article.Title)
		switch vote {
		case types.VoteYes:
			tally.Yes++
		case types.VoteNo:
			tally.No++
		default:
			tally.NA++
		}
	}

	return tally
}

// normalizeVote applies the substring rule: "yes" wins over "no", anything
// else is NA. Kept deliberately loose for compatibility with the free-text
// classifier responses.
func normalizeVote(resp string) string {
	formatted := strings.ToLower(resp)
	if strings.Contains(formatted, "yes") {
		return types.VoteYes
	}
	if strings.Contains(formatted, "no") {
		return types.VoteNo
	}
	return types.VoteNA
}

// filterAndOrder keeps rows with YES > 1 and YES > NO, ordered by the
// YES-NO margin descending.
func filterAndOrder(table []types.SymbolTally) []types.SymbolTally {
	filtered := []types.SymbolTally{}
	for _, row := range table {
		if row.Yes > 1 && row.Yes > row.No {
			filtered = append(filtered, row)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Yes-filtered[i].No > filtered[j].Yes-filtered[j].No
	})
	return filtered
}

// topSymbols selects every symbol whose YES count is among the highest
// distinct counts at or above the minimum. Ties at a kept count all survive,
// so the result may hold more symbols than TopCounts.
func (e *Engine) topSymbols(table []types.SymbolTally) []string {
	distinct := map[int]bool{}
	for _, row := range table {
		if row.Yes >= e.opts.MinYesVotes {
			distinct[row.Yes] = true
		}
	}

	counts := make([]int, 0, len(distinct))
	for c := range distinct {
		counts = append(counts, c)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(counts)))
	if len(counts) > e.opts.TopCounts {
		counts = counts[:e.opts.TopCounts]
	}

	kept := map[int]bool{}
	for _, c := range counts {
		kept[c] = true
	}

	symbols := []string{}
	for _, row := range table {
		if kept[row.Yes] {
			symbols = append(symbols, row.Symbol)
		}
	}
	return symbols
}

// saveReports persists the full and filtered CSV tables to the article
// store and appends the prediction metadata record.
func (e *Engine) saveReports(ctx context.Context, result *Result) error {
	key := fmt.Sprintf("predictions/%s/%d_predictions.csv", result.RunID, result.Lookback)
	if err := e.articles.Put(ctx, key, tallyCSV(result.Table)); err != nil {
		return fmt.Errorf("failed to save predictions report: %w", err)
	}

	keyFiltered := fmt.Sprintf("predictions/%s/%d_predictions_filtered.csv", result.RunID, result.Lookback)
	if err := e.articles.Put(ctx, keyFiltered, tallyCSV(result.Filtered)); err != nil {
		return fmt.Errorf("failed to save filtered predictions report: %w", err)
	}

	pred := types.Prediction{
		StorageKey:  key,
		RunID:       result.RunID,
		Lookback:    result.Lookback,
		PredictedAt: time.Now().UTC(),
	}
	if err := e.ledger.SavePrediction(ctx, pred); err != nil {
		return fmt.Errorf("failed to save prediction record: %w", err)
	}

	logger.Info(ctx, "Saved prediction reports", "key", key)
	return nil
}

func tallyCSV(rows []types.SymbolTally) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"Symbol", "YES", "NO", "NA"})
	for _, row := range rows {
		_ = w.Write([]string{
			row.Symbol,
			strconv.Itoa(row.Yes),
			strconv.Itoa(row.No),
			strconv.Itoa(row.NA),
		})
	}
	w.Flush()
	return buf.Bytes()
}

// notify sends the operator summary. Failures are logged, never raised.
func (e *Engine) notify(ctx context.Context, result *Result) {
	if e.notifier == nil || e.opts.Recipient == "" {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Aggregation for run %s (lookback %dh)\n\n", result.RunID, result.Lookback)
	if len(result.TopSymbols) == 0 {
		b.WriteString("No symbols cleared the top-selection threshold.\n")
	} else {
		fmt.Fprintf(&b, "Top symbols: %s\n\n", strings.Join(result.TopSymbols, ", "))
		for _, row := range result.Filtered {
			fmt.Fprintf(&b, "%s: YES=%d NO=%d NA=%d\n", row.Symbol, row.Yes, row.No, row.NA)
		}
	}

	if err := e.notifier.Send(ctx, b.String(), e.opts.Recipient); err != nil {
		logger.ErrorWithErr(ctx, "Failed to send aggregation notification", err, "recipient", e.opts.Recipient)
	}
}
