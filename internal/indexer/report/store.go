// Package report records finished index builds: a row per build in
// PostgreSQL and an IndexBuilt event on Kafka.
package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/hunt/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/hunt/pkg/postgres"
)

// Build is one persisted build record.
type Build struct {
	ID        int64
	Path      string
	Bytes     int64
	Report    indexer.Report
	CreatedAt time.Time
}

// Store persists build reports in PostgreSQL.
//
// It requires the tables:
//
//	CREATE TABLE index_builds (
//	    id          BIGSERIAL PRIMARY KEY,
//	    path        TEXT NOT NULL,
//	    mode        TEXT NOT NULL,
//	    documents   INT NOT NULL,
//	    indexed     INT NOT NULL,
//	    bytes       BIGINT NOT NULL,
//	    report      JSONB NOT NULL,
//	    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//
//	CREATE TABLE index_build_failures (
//	    build_id    BIGINT NOT NULL REFERENCES index_builds(id) ON DELETE CASCADE,
//	    filename    TEXT NOT NULL,
//	    error       TEXT NOT NULL
//	);
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "build-store"),
	}
}

// SaveBuild records a finished build and its skipped documents in one
// transaction and returns the build id.
func (s *Store) SaveBuild(ctx context.Context, path string, bytes int64, r *indexer.Report) (int64, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return 0, fmt.Errorf("marshaling build report: %w", err)
	}

	var id int64
	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO index_builds (path, mode, documents, indexed, bytes, report, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			path, string(r.Mode), r.Documents, r.Indexed, bytes, data, time.Now().UTC(),
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("inserting build: %w", err)
		}
		for _, f := range r.Skipped {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO index_build_failures (build_id, filename, error) VALUES ($1, $2, $3)`,
				id, f.Filename, f.Error,
			); err != nil {
				return fmt.Errorf("inserting build failure %q: %w", f.Filename, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("build report saved",
		"build_id", id,
		"path", path,
		"indexed", r.Indexed,
		"skipped", len(r.Skipped),
	)
	return id, nil
}

// LatestBuild loads the most recent build of path. It returns nil, nil when
// path has never been built.
func (s *Store) LatestBuild(ctx context.Context, path string) (*Build, error) {
	var (
		b    Build
		data []byte
	)
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT id, path, bytes, report, created_at FROM index_builds
		 WHERE path = $1 ORDER BY created_at DESC LIMIT 1`,
		path,
	).Scan(&b.ID, &b.Path, &b.Bytes, &data, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest build: %w", err)
	}
	if err := json.Unmarshal(data, &b.Report); err != nil {
		return nil, fmt.Errorf("unmarshaling build report: %w", err)
	}
	return &b, nil
}
