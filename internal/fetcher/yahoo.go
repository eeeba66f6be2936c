package fetcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"news-trader/internal/logger"
	"news-trader/internal/types"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Yahoo scrapes article links and bodies from Yahoo Finance quote pages.
type Yahoo struct {
	baseURL string
	timeout time.Duration
}

// NewYahoo creates a Yahoo Finance fetcher
func NewYahoo(timeout time.Duration) *Yahoo {
	return &Yahoo{
		baseURL: "https://finance.yahoo.com",
		timeout: timeout,
	}
}

func (y *Yahoo) newCollector() *colly.Collector {
	c := colly.NewCollector(colly.MaxDepth(1))
	c.SetRequestTimeout(y.timeout)
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", userAgent)
	})
	return c
}

// ListLinks returns the distinct story links on the symbol's quote page.
// An empty result with a nil error means no stories were found.
func (y *Yahoo) ListLinks(ctx context.Context, symbol string) ([]string, error) {
	c := y.newCollector()

	seen := map[string]bool{}
	links := []string{}
	c.OnHTML("div[class*='filtered-stories'] a[class*='subtle-link']", func(e *colly.HTMLElement) {
		link := e.Attr("href")
		if link == "" {
			return
		}
		if !strings.HasPrefix(link, "http") {
			link = y.baseURL + link
		}
		if seen[link] {
			return
		}
		seen[link] = true
		links = append(links, link)
	})

	var fetchErr error
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = err
	})

	url := fmt.Sprintf("%s/quote/%s", y.baseURL, strings.ToUpper(symbol))
	if err := c.Visit(url); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", url, err)
	}
	c.Wait()

	if fetchErr != nil {
		return nil, fmt.Errorf("failed to list links for %s: %w", symbol, fetchErr)
	}

	if len(links) == 0 {
		logger.Info(ctx, "No stories found on quote page", "symbol", symbol, "url", url)
	}
	return links, nil
}

// FetchArticle fetches one article page and extracts its body and publish
// time. Returns (nil, nil) when the page has no recognizable article body.
func (y *Yahoo) FetchArticle(ctx context.Context, link string) (*types.Article, error) {
	c := y.newCollector()

	article := &types.Article{Link: link}
	c.OnHTML("title", func(e *colly.HTMLElement) {
		if article.Title == "" {
			article.Title = strings.TrimSpace(e.Text)
		}
	})
	c.OnHTML("body", func(e *colly.HTMLElement) {
		article.Content = extractBody(e.DOM)
		article.PublishedAt = extractPublishedAt(e.DOM)
	})

	var fetchErr error
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = err
	})

	if err := c.Visit(link); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", link, err)
	}
	c.Wait()

	if fetchErr != nil {
		return nil, fmt.Errorf("failed to fetch article %s: %w", link, fetchErr)
	}

	if article.Content == "" {
		logger.Info(ctx, "Skipping article with no body", "link", link)
		return nil, nil
	}
	if article.PublishedAt == "" {
		logger.Info(ctx, "No publish time found for article", "title", article.Title)
	}

	return article, nil
}

// extractBody joins the paragraph text of the article body container.
func extractBody(doc *goquery.Selection) string {
	body := doc.Find("div.caas-body").First()
	if body.Length() == 0 {
		body = doc.Find("div[class^='body yf-']").First()
	}
	if body.Length() == 0 {
		return ""
	}

	paragraphs := []string{}
	body.Find("p").Each(func(_ int, p *goquery.Selection) {
		if text := strings.TrimSpace(p.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	return strings.Join(paragraphs, "\n")
}

// extractPublishedAt pulls the datetime attribute from the byline time tag,
// falling back to the legacy attribution wrapper.
func extractPublishedAt(doc *goquery.Selection) string {
	if v, ok := doc.Find("time.byline-attr-meta-time").First().Attr("datetime"); ok {
		return v
	}
	if v, ok := doc.Find("div.caas-attr-time-style time").First().Attr("datetime"); ok {
		return v
	}
	return ""
}

// ParsePublishedAt parses the datetime attribute formats Yahoo emits.
func ParsePublishedAt(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty publish time")
	}
	for _, layout := range []string{"2006-01-02T15:04:05.000Z", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized publish time format %q", value)
}
