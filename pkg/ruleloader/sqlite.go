package ruleloader

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteCache wraps an upstream Loader (S3, GCS, Postgres, ...) with a
// local on-disk cache so an analyzer process can start from its last
// known-good rule file if the upstream is unreachable, instead of
// falling straight back to an empty rule file. Grounded on
// core/pkg/store/receipt_store_sqlite.go's migrate-then-query shape,
// repurposed from receipt storage to a single-row last-good-copy
// cache.
type SQLiteCache struct {
	db       *sql.DB
	upstream Loader
	catalog  string
}

const sqliteCacheSchema = `
CREATE TABLE IF NOT EXISTS rule_file_cache (
	catalog TEXT PRIMARY KEY,
	content BLOB NOT NULL,
	cached_at DATETIME NOT NULL
);
`

// NewSQLiteCache opens (migrating if needed) a local cache backed by
// db, wrapping upstream.
func NewSQLiteCache(db *sql.DB, catalog string, upstream Loader) (*SQLiteCache, error) {
	c := &SQLiteCache{db: db, upstream: upstream, catalog: catalog}
	if _, err := db.Exec(sqliteCacheSchema); err != nil {
		return nil, fmt.Errorf("ruleloader: migrating sqlite cache: %w", err)
	}
	return c, nil
}

// Load fetches from upstream and refreshes the cache on success; on
// upstream failure it falls back to the last cached copy, only
// returning an error if neither is available.
func (c *SQLiteCache) Load(ctx context.Context) ([]byte, error) {
	content, upstreamErr := c.upstream.Load(ctx)
	if upstreamErr == nil {
		if err := c.store(ctx, content); err != nil {
			logger.WarnContext(ctx, "failed to refresh sqlite rule-file cache", "error", err)
		}
		return content, nil
	}

	cached, err := c.loadCached(ctx)
	if err != nil {
		return nil, fmt.Errorf("ruleloader: upstream load failed (%v) and no cached copy available: %w", upstreamErr, err)
	}
	logger.WarnContext(ctx, "upstream rule-file load failed, serving cached copy", "error", upstreamErr)
	return cached, nil
}

func (c *SQLiteCache) store(ctx context.Context, content []byte) error {
	const query = `
		INSERT INTO rule_file_cache (catalog, content, cached_at)
		VALUES (?, ?, ?)
		ON CONFLICT (catalog) DO UPDATE SET content = excluded.content, cached_at = excluded.cached_at
	`
	_, err := c.db.ExecContext(ctx, query, c.catalog, content, time.Now().UTC())
	return err
}

func (c *SQLiteCache) loadCached(ctx context.Context) ([]byte, error) {
	var content []byte
	err := c.db.QueryRowContext(ctx, "SELECT content FROM rule_file_cache WHERE catalog = ?", c.catalog).Scan(&content)
	if err != nil {
		return nil, err
	}
	return content, nil
}
