package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"news-trader/internal/interfaces"
)

// blob is the stored record behind the article store. Keys are hierarchical
// strings like scrapes/{run_id}/{symbol}/{source}/{derived_id}.
type blob struct {
	Key      string
	Data     []byte
	StoredAt time.Time
}

// Articles implements the ArticleStore interface over badgerhold.
type Articles struct {
	db *DB
}

// NewArticles creates a new Articles store instance
func NewArticles(db *DB) interfaces.ArticleStore {
	return &Articles{db: db}
}

func (a *Articles) Put(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return fmt.Errorf("article key is required")
	}
	b := blob{
		Key:      key,
		Data:     data,
		StoredAt: time.Now().UTC(),
	}
	if err := a.db.Store().Upsert(key, &b); err != nil {
		return fmt.Errorf("failed to store article: %w", err)
	}
	return nil
}

func (a *Articles) Get(ctx context.Context, key string) ([]byte, error) {
	var b blob
	err := a.db.Store().Get(key, &b)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read article: %w", err)
	}
	return b.Data, nil
}
