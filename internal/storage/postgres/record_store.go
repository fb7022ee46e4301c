// Package postgres provides Postgres-backed persistence for crawl runs
// and per-task outcomes.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"houzz-pro-scraper/internal/scraper"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool and table names.
type Config struct {
	DSN             string
	RunsTable       string
	ResultsTable    string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// RecordStore writes crawl runs and task outcomes into Postgres.
type RecordStore struct {
	pool         execCloser
	runsTable    string
	resultsTable string
}

// NewRecordStore creates a Postgres-backed RecordStore from the config.
func NewRecordStore(ctx context.Context, cfg Config) (*RecordStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return newStore(pool, cfg.RunsTable, cfg.ResultsTable)
}

// NewRecordStoreWithPool constructs a store from an existing pool,
// primarily for testing.
func NewRecordStoreWithPool(pool execCloser, runsTable, resultsTable string) (*RecordStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return newStore(pool, runsTable, resultsTable)
}

func newStore(pool execCloser, runsTable, resultsTable string) (*RecordStore, error) {
	if runsTable == "" {
		runsTable = "crawl_runs"
	}
	if resultsTable == "" {
		resultsTable = "crawl_results"
	}
	for _, table := range []string{runsTable, resultsTable} {
		if !validTableName.MatchString(table) {
			return nil, fmt.Errorf("invalid table name %q", table)
		}
	}
	return &RecordStore{
		pool:         pool,
		runsTable:    runsTable,
		resultsTable: resultsTable,
	}, nil
}

// Close releases the underlying pool resources.
func (s *RecordStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// CreateRun inserts one crawl-run row.
func (s *RecordStore) CreateRun(ctx context.Context, run scraper.CrawlRun) error {
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (id, start_url, pages, started_at)
VALUES ($1, $2, $3, $4)`, s.runsTable)
	if _, err := s.pool.Exec(ctx, query, run.ID, run.StartURL, run.Pages, run.StartedAt); err != nil {
		return fmt.Errorf("insert crawl run: %w", err)
	}
	return nil
}

// RecordOutcome inserts one task-outcome row.
func (s *RecordStore) RecordOutcome(ctx context.Context, outcome scraper.TaskOutcome) error {
	if outcome.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (run_id, url, status, error_text, duration_ms, finished_at)
VALUES ($1, $2, $3, $4, $5, $6)`, s.resultsTable)
	args := []any{
		outcome.RunID,
		outcome.URL,
		string(outcome.Status),
		outcome.ErrorText,
		outcome.DurationMs,
		outcome.FinishedAt,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert task outcome: %w", err)
	}
	return nil
}
