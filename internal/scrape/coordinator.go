package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"news-trader/internal/fetcher"
	"news-trader/internal/interfaces"
	"news-trader/internal/logger"
	"news-trader/internal/trace"
	"news-trader/internal/types"
)

// Options tunes the fan-out. The stagger and backoff values are rate limits
// toward the news site, not correctness requirements.
type Options struct {
	Workers     int           // concurrent symbol-jobs
	Stagger     time.Duration // delay between starting consecutive jobs
	LinkRetries int           // attempts per article link
	BackoffMin  time.Duration
	BackoffMax  time.Duration
	Source      string // source tag written into scrape records
}

// DefaultOptions returns the observed production values.
func DefaultOptions() Options {
	return Options{
		Workers:     4,
		Stagger:     5 * time.Second,
		LinkRetries: 3,
		BackoffMin:  25 * time.Second,
		BackoffMax:  35 * time.Second,
		Source:      "yahoo",
	}
}

// Coordinator fans per-symbol scrape jobs out under a bounded worker limit
// and records the outcome of every job in the run ledger.
type Coordinator struct {
	fetcher  interfaces.Fetcher
	ledger   interfaces.RunLedger
	articles interfaces.ArticleStore
	opts     Options
}

// NewCoordinator creates a coordinator with explicit collaborators.
func NewCoordinator(f interfaces.Fetcher, l interfaces.RunLedger, a interfaces.ArticleStore, opts Options) *Coordinator {
	if opts.Workers <= 0 {
		opts.Workers = DefaultOptions().Workers
	}
	if opts.LinkRetries <= 0 {
		opts.LinkRetries = DefaultOptions().LinkRetries
	}
	if opts.Source == "" {
		opts.Source = DefaultOptions().Source
	}
	return &Coordinator{fetcher: f, ledger: l, articles: a, opts: opts}
}

// Run scrapes every symbol under the worker bound and returns the run id
// once every job has finished, successfully or not. A single job's failure
// never aborts its siblings; it is recorded as a failed stock status.
func (c *Coordinator) Run(ctx context.Context, symbols []string) (string, error) {
	if len(symbols) == 0 {
		return "", fmt.Errorf("symbols list required")
	}

	ctx, span := trace.StartSpan(ctx, "scrape-run")
	defer span.End()

	runID := uuid.NewString()
	startedAt := time.Now().UTC()
	if err := c.ledger.SaveRun(ctx, types.Run{RunID: runID, CreatedAt: startedAt}); err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}

	logger.Info(ctx, "Starting scrape run", "run_id", runID, "symbols", len(symbols), "workers", c.opts.Workers)

	sema := make(chan struct{}, c.opts.Workers)
	var wg sync.WaitGroup
	for i, symbol := range symbols {
		if i > 0 && c.opts.Stagger > 0 {
			select {
			case <-time.After(c.opts.Stagger):
			case <-ctx.Done():
			}
		}
		wg.Add(1)
		go c.runJob(ctx, symbol, runID, startedAt, sema, &wg)
	}
	wg.Wait()

	logger.Info(ctx, "Scrape run completed", "run_id", runID)
	return runID, nil
}

// runJob executes one symbol-job. The permit is released on every path so a
// failing job never depletes the worker pool.
func (c *Coordinator) runJob(ctx context.Context, symbol, runID string, startedAt time.Time, sema chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	select {
	case sema <- struct{}{}:
	case <-ctx.Done():
		return
	}
	defer func() { <-sema }()

	var stored int
	var jobErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				jobErr = fmt.Errorf("panic in symbol job: %v", r)
			}
		}()
		stored, jobErr = c.scrapeSymbol(ctx, symbol, runID, startedAt)
	}()

	if jobErr != nil {
		logger.ErrorWithErr(ctx, "Symbol job failed", jobErr, "symbol", symbol, "run_id", runID)
	}

	status := types.StockStatus{
		Symbol:  strings.ToLower(symbol),
		RunID:   runID,
		Success: jobErr == nil && stored > 0,
	}
	if err := c.ledger.UpsertStockStatus(ctx, status); err != nil {
		logger.ErrorWithErr(ctx, "Failed to record stock status", err, "symbol", symbol, "run_id", runID)
	}
}

// scrapeSymbol is the sequential body of one job: list links, fetch each
// with bounded retry, store the articles, append the scrape records.
func (c *Coordinator) scrapeSymbol(ctx context.Context, symbol, runID string, startedAt time.Time) (int, error) {
	links, err := c.fetcher.ListLinks(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("failed to list article links: %w", err)
	}
	if len(links) == 0 {
		logger.Info(ctx, "No articles found for symbol", "symbol", symbol, "run_id", runID)
		return 0, nil
	}

	articles := make([]*types.Article, 0, len(links))
	for _, link := range links {
		var article *types.Article
		err := withRetry(ctx, c.opts.LinkRetries, c.opts.BackoffMin, c.opts.BackoffMax, func() error {
			var ferr error
			article, ferr = c.fetcher.FetchArticle(ctx, link)
			return ferr
		})
		if err != nil {
			// Individual link failures are non-fatal to the job.
			logger.ErrorWithErr(ctx, "Giving up on article link", err, "link", link, "symbol", symbol)
			continue
		}
		if article == nil {
			continue
		}
		articles = append(articles, article)
	}

	if len(articles) == 0 {
		logger.Info(ctx, "No stories scraped for symbol", "symbol", symbol, "run_id", runID)
		return 0, nil
	}

	return c.storeArticles(ctx, symbol, runID, startedAt, articles)
}

func (c *Coordinator) storeArticles(ctx context.Context, symbol, runID string, startedAt time.Time, articles []*types.Article) (int, error) {
	sym := strings.ToLower(symbol)
	directory := fmt.Sprintf("scrapes/%s/%s/%s", runID, sym, c.opts.Source)

	scrapes := make([]types.ScrapeRecord, 0, len(articles))
	for _, article := range articles {
		key := fmt.Sprintf("%s/%s.txt", directory, sanitizeTitle(article.Title))

		data, err := json.Marshal(article)
		if err != nil {
			logger.ErrorWithErr(ctx, "Failed to encode article", err, "title", article.Title)
			continue
		}
		if err := c.articles.Put(ctx, key, data); err != nil {
			logger.ErrorWithErr(ctx, "Failed to save article to store", err, "key", key)
			continue
		}

		record := types.ScrapeRecord{
			Symbol:     sym,
			ScrapedAt:  startedAt,
			StorageKey: key,
			Source:     c.opts.Source,
			URL:        article.Link,
			RunID:      runID,
		}
		if article.PublishedAt != "" {
			if t, err := fetcher.ParsePublishedAt(article.PublishedAt); err == nil {
				record.PublishedAt = t
			} else {
				logger.Warn(ctx, "Unparseable publish time", "value", article.PublishedAt, "title", article.Title)
			}
		}
		scrapes = append(scrapes, record)
	}

	if len(scrapes) == 0 {
		return 0, nil
	}
	if err := c.ledger.InsertScrapes(ctx, scrapes); err != nil {
		return 0, fmt.Errorf("failed to insert scrape records: %w", err)
	}

	logger.Info(ctx, "Stored articles for symbol", "symbol", sym, "run_id", runID, "count", len(scrapes))
	return len(scrapes), nil
}

var titleStripper = regexp.MustCompile(`[^a-z0-9 ]+`)

// sanitizeTitle derives a storage-safe id from an article title.
func sanitizeTitle(title string) string {
	s := titleStripper.ReplaceAllString(strings.ToLower(title), "")
	s = strings.Join(strings.Fields(s), "_")
	if s == "" {
		return "untitled"
	}
	return s
}
