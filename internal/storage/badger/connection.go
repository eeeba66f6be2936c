package badger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/timshannon/badgerhold/v4"

	"news-trader/internal/logger"
)

// DB manages the Badger database connection shared by the ledger and the
// article store.
type DB struct {
	store *badgerhold.Store
	path  string
}

// Open opens (creating if needed) the Badger database at path.
func Open(ctx context.Context, path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Info(ctx, "Badger database opened", "path", path)

	return &DB{store: store, path: path}, nil
}

// Store returns the underlying badgerhold store
func (d *DB) Store() *badgerhold.Store {
	return d.store
}

// Close closes the database connection
func (d *DB) Close() error {
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}
