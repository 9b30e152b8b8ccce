package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hangulab/scriptlive/internal/align"
)

// Compile-time assertion that PostgresStore satisfies the Store interface.
var _ Store = (*PostgresStore)(nil)

const ddlReports = `
CREATE TABLE IF NOT EXISTS caption_reports (
    id             TEXT             PRIMARY KEY,
    reference      TEXT             NOT NULL,
    hypothesis     TEXT             NOT NULL,
    hit_tokens     INTEGER          NOT NULL DEFAULT 0,
    sub_tokens     INTEGER          NOT NULL DEFAULT 0,
    del_tokens     INTEGER          NOT NULL DEFAULT 0,
    pending_tokens INTEGER          NOT NULL DEFAULT 0,
    wer            DOUBLE PRECISION NOT NULL DEFAULT 0,
    cer            DOUBLE PRECISION NOT NULL DEFAULT 0,
    hits           INTEGER          NOT NULL DEFAULT 0,
    substitutions  INTEGER          NOT NULL DEFAULT 0,
    deletions      INTEGER          NOT NULL DEFAULT 0,
    ref_processed  INTEGER          NOT NULL DEFAULT 0,
    chars_processed INTEGER         NOT NULL DEFAULT 0,
    similarity     DOUBLE PRECISION NOT NULL DEFAULT 0,
    completed      BOOLEAN          NOT NULL DEFAULT FALSE,
    started_at     TIMESTAMPTZ      NOT NULL,
    finished_at    TIMESTAMPTZ      NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_caption_reports_finished_at
    ON caption_reports (finished_at);
`

// PostgresStore is a PostgreSQL-backed implementation of [Store]. It holds a
// single [pgxpool.Pool] and is safe for concurrent use.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore establishes a connection pool to the database at dsn and
// ensures the caption_reports table exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("report store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("report store: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, ddlReports); err != nil {
		pool.Close()
		return nil, fmt.Errorf("report store: migrate: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close releases all connections held by the underlying connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Save implements [Store.Save].
func (s *PostgresStore) Save(ctx context.Context, r Report) (Report, error) {
	if r.ID == "" {
		id, err := generateID()
		if err != nil {
			return Report{}, fmt.Errorf("report: generate id: %w", err)
		}
		r.ID = id
	}

	const q = `
		INSERT INTO caption_reports
		    (id, reference, hypothesis,
		     hit_tokens, sub_tokens, del_tokens, pending_tokens,
		     wer, cer, hits, substitutions, deletions, ref_processed,
		     chars_processed, similarity, completed, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err := s.pool.Exec(ctx, q,
		r.ID,
		r.Reference,
		r.Hypothesis,
		r.TokenCounts[align.AlignHit],
		r.TokenCounts[align.AlignSub],
		r.TokenCounts[align.AlignDel],
		r.TokenCounts[align.AlignPending],
		r.Metrics.WER,
		r.Metrics.CER,
		r.Metrics.Hits,
		r.Metrics.Substitutions,
		r.Metrics.Deletions,
		r.Metrics.RefProcessed,
		r.Metrics.CharsProcessed,
		r.Similarity,
		r.Completed,
		r.StartedAt,
		r.FinishedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Report{}, ErrDuplicateID
		}
		return Report{}, fmt.Errorf("report store: save: %w", err)
	}
	return r, nil
}

// Get implements [Store.Get].
func (s *PostgresStore) Get(ctx context.Context, id string) (Report, error) {
	const q = selectReports + ` WHERE id = $1`

	rows, err := s.pool.Query(ctx, q, id)
	if err != nil {
		return Report{}, fmt.Errorf("report store: get: %w", err)
	}

	r, err := pgx.CollectExactlyOneRow(rows, scanReport)
	if errors.Is(err, pgx.ErrNoRows) {
		return Report{}, ErrNotFound
	}
	if err != nil {
		return Report{}, fmt.Errorf("report store: get: %w", err)
	}
	return r, nil
}

// List implements [Store.List].
func (s *PostgresStore) List(ctx context.Context) ([]Report, error) {
	const q = selectReports + ` ORDER BY finished_at`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("report store: list: %w", err)
	}

	reports, err := pgx.CollectRows(rows, scanReport)
	if err != nil {
		return nil, fmt.Errorf("report store: list: %w", err)
	}
	return reports, nil
}

const selectReports = `
	SELECT id, reference, hypothesis,
	       hit_tokens, sub_tokens, del_tokens, pending_tokens,
	       wer, cer, hits, substitutions, deletions, ref_processed,
	       chars_processed, similarity, completed, started_at, finished_at
	FROM   caption_reports`

// scanReport scans one caption_reports row into a Report.
func scanReport(row pgx.CollectableRow) (Report, error) {
	var (
		r                   Report
		hit, sub, del, pend int
	)
	if err := row.Scan(
		&r.ID,
		&r.Reference,
		&r.Hypothesis,
		&hit,
		&sub,
		&del,
		&pend,
		&r.Metrics.WER,
		&r.Metrics.CER,
		&r.Metrics.Hits,
		&r.Metrics.Substitutions,
		&r.Metrics.Deletions,
		&r.Metrics.RefProcessed,
		&r.Metrics.CharsProcessed,
		&r.Similarity,
		&r.Completed,
		&r.StartedAt,
		&r.FinishedAt,
	); err != nil {
		return Report{}, err
	}
	r.TokenCounts = map[align.AlignType]int{}
	if hit > 0 {
		r.TokenCounts[align.AlignHit] = hit
	}
	if sub > 0 {
		r.TokenCounts[align.AlignSub] = sub
	}
	if del > 0 {
		r.TokenCounts[align.AlignDel] = del
	}
	if pend > 0 {
		r.TokenCounts[align.AlignPending] = pend
	}
	return r, nil
}
