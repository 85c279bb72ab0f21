package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/occr-cli/internal/model"
	"github.com/sells-group/occr-cli/internal/resilience"
)

// Pool is the subset of *pgxpool.Pool used by PostgresStore.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
	retry   resilience.RetryConfig
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns       int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns       int32 `yaml:"min_conns" mapstructure:"min_conns"`
	RetryAttempts  int   `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBackoffMs int   `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	retry := resilience.DefaultRetryConfig()
	if poolCfg != nil {
		retry = resilience.FromRetryConfig(poolCfg.RetryAttempts, poolCfg.RetryBackoffMs)
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}

	s := &PostgresStore{pool: pool, closeFn: pool.Close, retry: retry}
	if err := resilience.Do(ctx, s.retryFor("ping"), pool.Ping); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return s, nil
}

func (s *PostgresStore) retryFor(op string) resilience.RetryConfig {
	cfg := s.retry
	cfg.OnRetry = resilience.RetryLogger("postgres", op)
	return cfg
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS score_runs (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	as_of         DATE NOT NULL,
	grouping_mode TEXT NOT NULL DEFAULT 'none',
	companies     INTEGER NOT NULL DEFAULT 0,
	failed        INTEGER NOT NULL DEFAULT 0,
	results       JSONB NOT NULL,
	partitions    JSONB,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_score_runs_created_at ON score_runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_score_runs_grouping ON score_runs(grouping_mode);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, run *model.ScoreRun) error {
	resultsJSON, partitionsJSON, err := marshalRun(run)
	if err != nil {
		return eris.Wrap(err, "postgres: save run")
	}

	err = resilience.Do(ctx, s.retryFor("save_run"), func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO score_runs (id, as_of, grouping_mode, companies, failed, results, partitions, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			run.ID, run.AsOf, string(run.Grouping), run.Companies, run.Failed,
			resultsJSON, partitionsJSON, run.CreatedAt,
		)
		return err
	})
	if err != nil {
		return eris.Wrapf(err, "postgres: insert run %s", run.ID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.ScoreRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, as_of, grouping_mode, companies, failed, results, partitions, created_at FROM score_runs WHERE id = $1`,
		runID,
	)

	var r model.ScoreRun
	var grouping string
	var resultsJSON, partitionsJSON []byte
	err := row.Scan(&r.ID, &r.AsOf, &grouping, &r.Companies, &r.Failed, &resultsJSON, &partitionsJSON, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	r.Grouping = model.Grouping(grouping)

	if err := unmarshalRun(&r, resultsJSON, partitionsJSON); err != nil {
		return nil, eris.Wrap(err, "postgres: get run")
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.ScoreRun, error) {
	query := `SELECT id, as_of, grouping_mode, companies, failed, created_at FROM score_runs`
	var args []any
	if filter.Grouping != "" {
		args = append(args, string(filter.Grouping))
		query += fmt.Sprintf(` WHERE grouping_mode = $%d`, len(args))
	}
	query += ` ORDER BY created_at DESC, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.ScoreRun
	for rows.Next() {
		var r model.ScoreRun
		var grouping string
		if err := rows.Scan(&r.ID, &r.AsOf, &grouping, &r.Companies, &r.Failed, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Grouping = model.Grouping(grouping)
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs")
}

func (s *PostgresStore) DeleteRun(ctx context.Context, runID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM score_runs WHERE id = $1`, runID)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: delete run %s", runID)
	}
	return nil
}
