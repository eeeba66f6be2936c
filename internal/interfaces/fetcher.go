package interfaces

import (
	"context"

	"news-trader/internal/types"
)

// Fetcher retrieves article links and article bodies for a symbol. A nil
// article with a nil error means the page had no usable content and the
// caller should skip it.
type Fetcher interface {
	ListLinks(ctx context.Context, symbol string) ([]string, error)
	FetchArticle(ctx context.Context, link string) (*types.Article, error)
}
