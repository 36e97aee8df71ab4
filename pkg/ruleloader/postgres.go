package ruleloader

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Masterminds/semver/v3"
	_ "github.com/lib/pq"
)

// ErrCatalogNotFound is returned when a requested catalog name has no
// published version in the registry.
var ErrCatalogNotFound = errors.New("ruleloader: catalog not found")

// PostgresRegistry persists published rule-file versions keyed by
// catalog name, and serves the latest (by semver) on Load. Grounded
// on core/pkg/registry/postgres_registry.go's bundle-versioning
// table, with the canary-rollout machinery dropped: a rule catalog
// has no per-user targeting, only a single published latest version.
type PostgresRegistry struct {
	db   *sql.DB
	name string
}

const pgRuleFileSchema = `
CREATE TABLE IF NOT EXISTS rule_file_versions (
	catalog TEXT NOT NULL,
	version TEXT NOT NULL,
	content BYTEA NOT NULL,
	content_hash TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	PRIMARY KEY (catalog, version)
);
`

// NewPostgresRegistry wraps an existing *sql.DB; catalog names one
// rule-file lineage within it (an operator might keep several
// catalogs, e.g. "endpoint" and "cloud-config", in one database).
func NewPostgresRegistry(db *sql.DB, catalog string) *PostgresRegistry {
	return &PostgresRegistry{db: db, name: catalog}
}

// Init creates the backing table if it does not already exist.
func (r *PostgresRegistry) Init(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, pgRuleFileSchema)
	return err
}

// Publish stores a new version of the catalog's rule file.
func (r *PostgresRegistry) Publish(ctx context.Context, version string, content []byte) error {
	if _, err := semver.NewVersion(version); err != nil {
		return fmt.Errorf("ruleloader: publish version %q: %w", version, err)
	}
	hash, err := ContentHash(content)
	if err != nil {
		return fmt.Errorf("ruleloader: publish: %w", err)
	}
	const query = `
		INSERT INTO rule_file_versions (catalog, version, content, content_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (catalog, version) DO UPDATE
		SET content = $3, content_hash = $4, created_at = $5
	`
	_, err = r.db.ExecContext(ctx, query, r.name, version, content, hash, time.Now().UTC())
	return err
}

// Load implements Loader by returning the highest-semver published
// version's content.
func (r *PostgresRegistry) Load(ctx context.Context) ([]byte, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT version, content FROM rule_file_versions WHERE catalog = $1", r.name)
	if err != nil {
		return nil, fmt.Errorf("ruleloader: query catalog %q: %w", r.name, err)
	}
	defer func() { _ = rows.Close() }()

	type versioned struct {
		v       *semver.Version
		content []byte
	}
	var versions []versioned
	for rows.Next() {
		var verStr string
		var content []byte
		if err := rows.Scan(&verStr, &content); err != nil {
			continue
		}
		v, err := semver.NewVersion(verStr)
		if err != nil {
			continue
		}
		versions = append(versions, versioned{v, content})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, ErrCatalogNotFound
	}

	sort.Slice(versions, func(i, j int) bool { return versions[i].v.GreaterThan(versions[j].v) })
	return versions[0].content, nil
}
