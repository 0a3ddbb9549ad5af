package storage

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/rotisserie/eris"
)

// PostgresSearchLog records one row per search in PostgreSQL. It is an
// audit trail only; results are never read back to answer a search.
type PostgresSearchLog struct {
	db *sql.DB
}

// NewPostgresSearchLog opens a connection to PostgreSQL, runs schema
// migrations, and returns a ready-to-use PostgresSearchLog.
func NewPostgresSearchLog(ctx context.Context, dsn string) (*PostgresSearchLog, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: open")
	}

	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, eris.Wrap(ctx.Err(), "postgres: ping cancelled")
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "postgres: ping failed after retries")
	}

	sl := &PostgresSearchLog{db: db}
	if err := sl.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "postgres: migrate")
	}

	return sl, nil
}

func (sl *PostgresSearchLog) migrate(ctx context.Context) error {
	_, err := sl.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS search_log (
			id             SERIAL PRIMARY KEY,
			request_id     UUID         UNIQUE NOT NULL,
			query          TEXT         NOT NULL,
			rewritten      TEXT         NOT NULL DEFAULT '',
			region         VARCHAR(20)  NOT NULL,
			sort           VARCHAR(20)  NOT NULL,
			page           INTEGER      NOT NULL,
			page_limit     INTEGER      NOT NULL,
			total_results  INTEGER      NOT NULL DEFAULT 0,
			sites_ok       INTEGER      NOT NULL DEFAULT 0,
			sites_queried  INTEGER      NOT NULL DEFAULT 0,
			elapsed_ms     BIGINT       NOT NULL DEFAULT 0,
			error          TEXT         NOT NULL DEFAULT '',
			created_at     TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_search_log_created ON search_log(created_at);
		CREATE INDEX IF NOT EXISTS idx_search_log_region  ON search_log(region);
	`)
	return err
}

const insertSearchLog = `
	INSERT INTO search_log (request_id, query, rewritten, region, sort, page, page_limit,
		total_results, sites_ok, sites_queried, elapsed_ms, error)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	ON CONFLICT (request_id) DO NOTHING
`

func searchLogArgs(e SearchLogEntry) []interface{} {
	return []interface{}{
		e.RequestID, e.Query, e.Rewritten, e.Region, e.Sort, e.Page, e.Limit,
		e.TotalResults, e.SitesOK, e.SitesQueried, e.ElapsedMs, e.Error,
	}
}

// Record inserts one entry.
func (sl *PostgresSearchLog) Record(ctx context.Context, entry SearchLogEntry) error {
	if _, err := sl.db.ExecContext(ctx, insertSearchLog, searchLogArgs(entry)...); err != nil {
		return eris.Wrap(err, "postgres: record search")
	}
	return nil
}

// Recent returns the latest entries, newest first.
func (sl *PostgresSearchLog) Recent(ctx context.Context, limit int) ([]SearchLogEntry, error) {
	rows, err := sl.db.QueryContext(ctx, `
		SELECT request_id, query, rewritten, region, sort, page, page_limit,
			total_results, sites_ok, sites_queried, elapsed_ms, error, created_at
		FROM search_log
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: fetch recent")
	}
	defer rows.Close()

	var entries []SearchLogEntry
	for rows.Next() {
		var e SearchLogEntry
		if err := rows.Scan(
			&e.RequestID, &e.Query, &e.Rewritten, &e.Region, &e.Sort, &e.Page, &e.Limit,
			&e.TotalResults, &e.SitesOK, &e.SitesQueried, &e.ElapsedMs, &e.Error, &e.CreatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan row")
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the connection pool.
func (sl *PostgresSearchLog) Close() error {
	return sl.db.Close()
}
