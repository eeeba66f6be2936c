package scrape

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"news-trader/internal/logger"
	"news-trader/internal/types"
)

func TestMain(m *testing.M) {
	_ = logger.InitWithConfig(logger.LogConfig{Level: "ERROR", Format: "text"})
	os.Exit(m.Run())
}

type fakeFetcher struct {
	listFn  func(symbol string) ([]string, error)
	fetchFn func(link string) (*types.Article, error)

	active    int64
	maxActive int64
}

func (f *fakeFetcher) ListLinks(ctx context.Context, symbol string) ([]string, error) {
	cur := atomic.AddInt64(&f.active, 1)
	for {
		max := atomic.LoadInt64(&f.maxActive)
		if cur <= max || atomic.CompareAndSwapInt64(&f.maxActive, max, cur) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	defer atomic.AddInt64(&f.active, -1)

	if f.listFn == nil {
		return nil, nil
	}
	return f.listFn(symbol)
}

func (f *fakeFetcher) FetchArticle(ctx context.Context, link string) (*types.Article, error) {
	if f.fetchFn == nil {
		return nil, nil
	}
	return f.fetchFn(link)
}

type memLedger struct {
	mu       sync.Mutex
	runs     []types.Run
	scrapes  []types.ScrapeRecord
	statuses map[string]types.StockStatus

	insertErr error
}

func newMemLedger() *memLedger {
	return &memLedger{statuses: make(map[string]types.StockStatus)}
}

func (l *memLedger) SaveRun(ctx context.Context, run types.Run) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs = append(l.runs, run)
	return nil
}

func (l *memLedger) InsertScrapes(ctx context.Context, scrapes []types.ScrapeRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.insertErr != nil {
		return l.insertErr
	}
	l.scrapes = append(l.scrapes, scrapes...)
	return nil
}

func (l *memLedger) UpsertStockStatus(ctx context.Context, status types.StockStatus) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statuses[status.RunID+"/"+status.Symbol] = status
	return nil
}

func (l *memLedger) ScrapesSince(ctx context.Context, runID string, publishedAfter time.Time) ([]types.ScrapeRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []types.ScrapeRecord{}
	for _, s := range l.scrapes {
		if s.RunID == runID && !s.PublishedAt.Before(publishedAfter) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (l *memLedger) FailedSymbols(ctx context.Context, runID string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []string{}
	for _, s := range l.statuses {
		if s.RunID == runID && !s.Success {
			out = append(out, s.Symbol)
		}
	}
	return out, nil
}

func (l *memLedger) SavePrediction(ctx context.Context, pred types.Prediction) error {
	return nil
}

func (l *memLedger) status(runID, symbol string) (types.StockStatus, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.statuses[runID+"/"+symbol]
	return s, ok
}

type memStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	putErr error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (s *memStore) Put(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.data[key] = data
	return nil
}

func (s *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.data[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return d, nil
}

func testOptions(workers int) Options {
	return Options{
		Workers:     workers,
		Stagger:     0,
		LinkRetries: 2,
		BackoffMin:  time.Millisecond,
		BackoffMax:  2 * time.Millisecond,
		Source:      "yahoo",
	}
}

func goodArticle(link string) *types.Article {
	return &types.Article{
		Title:       "Shares Rally On Earnings",
		Content:     strings.Repeat("solid quarter ", 20),
		Link:        link,
		PublishedAt: "2026-01-05T10:00:00.000Z",
	}
}

func TestRunJobIsolation(t *testing.T) {
	fetcher := &fakeFetcher{
		listFn: func(symbol string) ([]string, error) {
			if symbol == "BAD" {
				return nil, errors.New("fetch exploded")
			}
			return []string{"https://example.com/" + strings.ToLower(symbol)}, nil
		},
		fetchFn: func(link string) (*types.Article, error) {
			return goodArticle(link), nil
		},
	}
	ledger := newMemLedger()
	coord := NewCoordinator(fetcher, ledger, newMemStore(), testOptions(2))

	runID, err := coord.Run(context.Background(), []string{"BAD", "GOOD"})
	if err != nil {
		t.Fatalf("expected run to survive a failing job, got %v", err)
	}
	if runID == "" {
		t.Fatal("expected a run id")
	}

	bad, ok := ledger.status(runID, "bad")
	if !ok || bad.Success {
		t.Errorf("expected BAD status recorded as failure, got %+v (found=%v)", bad, ok)
	}
	good, ok := ledger.status(runID, "good")
	if !ok || !good.Success {
		t.Errorf("expected GOOD status recorded as success, got %+v (found=%v)", good, ok)
	}

	failed, err := ledger.FailedSymbols(context.Background(), runID)
	if err != nil {
		t.Fatal(err)
	}
	if len(failed) != 1 || failed[0] != "bad" {
		t.Errorf("expected failed symbols [bad], got %v", failed)
	}
}

func TestPermitConservation(t *testing.T) {
	fetcher := &fakeFetcher{
		listFn: func(symbol string) ([]string, error) {
			return nil, nil
		},
	}
	ledger := newMemLedger()
	coord := NewCoordinator(fetcher, ledger, newMemStore(), testOptions(2))

	symbols := make([]string, 8)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("SYM%d", i)
	}
	if _, err := coord.Run(context.Background(), symbols); err != nil {
		t.Fatal(err)
	}

	if max := atomic.LoadInt64(&fetcher.maxActive); max > 2 {
		t.Errorf("expected at most 2 concurrent jobs, observed %d", max)
	}
}

func TestPermitReleasedAfterJobFailure(t *testing.T) {
	fetcher := &fakeFetcher{
		listFn: func(symbol string) ([]string, error) {
			if symbol == "PANIC" {
				panic("selector blew up")
			}
			return []string{"https://example.com/" + strings.ToLower(symbol)}, nil
		},
		fetchFn: func(link string) (*types.Article, error) {
			return goodArticle(link), nil
		},
	}
	ledger := newMemLedger()
	// One worker: if the failing job leaked its permit, the second job
	// could never acquire it and the run would not return.
	coord := NewCoordinator(fetcher, ledger, newMemStore(), testOptions(1))

	done := make(chan string, 1)
	go func() {
		runID, _ := coord.Run(context.Background(), []string{"PANIC", "OK"})
		done <- runID
	}()

	select {
	case runID := <-done:
		if s, ok := ledger.status(runID, "panic"); !ok || s.Success {
			t.Errorf("expected panicking job marked failed, got %+v (found=%v)", s, ok)
		}
		if s, ok := ledger.status(runID, "ok"); !ok || !s.Success {
			t.Errorf("expected surviving job marked success, got %+v (found=%v)", s, ok)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not complete; semaphore permit leaked")
	}
}

func TestStorageFailureMarksJobFailed(t *testing.T) {
	fetcher := &fakeFetcher{
		listFn: func(symbol string) ([]string, error) {
			return []string{"https://example.com/a"}, nil
		},
		fetchFn: func(link string) (*types.Article, error) {
			return goodArticle(link), nil
		},
	}
	ledger := newMemLedger()
	ledger.insertErr = errors.New("ledger unavailable")
	coord := NewCoordinator(fetcher, ledger, newMemStore(), testOptions(1))

	runID, err := coord.Run(context.Background(), []string{"AMZN"})
	if err != nil {
		t.Fatalf("storage failure must stay inside the job, got %v", err)
	}
	if s, ok := ledger.status(runID, "amzn"); !ok || s.Success {
		t.Errorf("expected failed status after storage error, got %+v (found=%v)", s, ok)
	}
}

func TestNoArticlesIsNotASuccess(t *testing.T) {
	fetcher := &fakeFetcher{
		listFn: func(symbol string) ([]string, error) {
			return nil, nil
		},
	}
	ledger := newMemLedger()
	coord := NewCoordinator(fetcher, ledger, newMemStore(), testOptions(1))

	runID, err := coord.Run(context.Background(), []string{"WMT"})
	if err != nil {
		t.Fatal(err)
	}
	if s, ok := ledger.status(runID, "wmt"); !ok || s.Success {
		t.Errorf("expected no-result job recorded as not successful, got %+v (found=%v)", s, ok)
	}
}

func TestEmptySymbolsRejected(t *testing.T) {
	coord := NewCoordinator(&fakeFetcher{}, newMemLedger(), newMemStore(), testOptions(1))
	if _, err := coord.Run(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty symbols list")
	}
}

func TestLinkRetryGivesUpWithoutFailingJob(t *testing.T) {
	var attempts int64
	fetcher := &fakeFetcher{
		listFn: func(symbol string) ([]string, error) {
			return []string{"https://example.com/flaky", "https://example.com/solid"}, nil
		},
		fetchFn: func(link string) (*types.Article, error) {
			if strings.Contains(link, "flaky") {
				atomic.AddInt64(&attempts, 1)
				return nil, errors.New("connection reset")
			}
			return goodArticle(link), nil
		},
	}
	ledger := newMemLedger()
	coord := NewCoordinator(fetcher, ledger, newMemStore(), testOptions(1))

	runID, err := coord.Run(context.Background(), []string{"MSFT"})
	if err != nil {
		t.Fatal(err)
	}

	if got := atomic.LoadInt64(&attempts); got != 2 {
		t.Errorf("expected 2 attempts on the flaky link, got %d", got)
	}
	if s, ok := ledger.status(runID, "msft"); !ok || !s.Success {
		t.Errorf("expected job success from the surviving link, got %+v (found=%v)", s, ok)
	}

	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	if len(ledger.scrapes) != 1 {
		t.Errorf("expected 1 scrape record, got %d", len(ledger.scrapes))
	}
}

func TestSanitizeTitle(t *testing.T) {
	cases := map[string]string{
		"Shares Rally: On Earnings!": "shares_rally_on_earnings",
		"  Mixed   CASE  Title ":     "mixed_case_title",
		"!!!":                        "untitled",
	}
	for in, want := range cases {
		if got := sanitizeTitle(in); got != want {
			t.Errorf("sanitizeTitle(%q) = %q, want %q", in, got, want)
		}
	}
}
