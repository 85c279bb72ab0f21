package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/occr-cli/internal/model"
	"github.com/sells-group/occr-cli/internal/resilience"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db    *sql.DB
	retry resilience.RetryConfig
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, retry: resilience.DefaultRetryConfig()}, nil
}

// SetRetry replaces the retry policy applied to writes.
func (s *SQLiteStore) SetRetry(cfg resilience.RetryConfig) {
	s.retry = cfg
}

func (s *SQLiteStore) retryFor(op string) resilience.RetryConfig {
	cfg := s.retry
	cfg.OnRetry = resilience.RetryLogger("sqlite", op)
	return cfg
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS score_runs (
	id            TEXT PRIMARY KEY,
	as_of         DATETIME NOT NULL,
	grouping_mode TEXT NOT NULL DEFAULT 'none',
	companies     INTEGER NOT NULL DEFAULT 0,
	failed        INTEGER NOT NULL DEFAULT 0,
	results       TEXT NOT NULL,
	partitions    TEXT,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_score_runs_created_at ON score_runs(created_at);
CREATE INDEX IF NOT EXISTS idx_score_runs_grouping ON score_runs(grouping_mode);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	err := resilience.Do(ctx, s.retryFor("migrate"), func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, sqliteMigration)
		return err
	})
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *model.ScoreRun) error {
	resultsJSON, partitionsJSON, err := marshalRun(run)
	if err != nil {
		return eris.Wrap(err, "sqlite: save run")
	}

	err = resilience.Do(ctx, s.retryFor("save_run"), func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO score_runs (id, as_of, grouping_mode, companies, failed, results, partitions, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, run.AsOf.UTC(), string(run.Grouping), run.Companies, run.Failed,
			string(resultsJSON), string(partitionsJSON), run.CreatedAt.UTC(),
		)
		return err
	})
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.ScoreRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, as_of, grouping_mode, companies, failed, results, partitions, created_at FROM score_runs WHERE id = ?`,
		runID,
	)

	var r model.ScoreRun
	var grouping, resultsJSON string
	var partitionsJSON sql.NullString
	err := row.Scan(&r.ID, &r.AsOf, &grouping, &r.Companies, &r.Failed, &resultsJSON, &partitionsJSON, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	r.Grouping = model.Grouping(grouping)

	if err := unmarshalRun(&r, []byte(resultsJSON), []byte(partitionsJSON.String)); err != nil {
		return nil, eris.Wrap(err, "sqlite: get run")
	}
	return &r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.ScoreRun, error) {
	query := `SELECT id, as_of, grouping_mode, companies, failed, created_at FROM score_runs`
	var args []any
	if filter.Grouping != "" {
		query += ` WHERE grouping_mode = ?`
		args = append(args, string(filter.Grouping))
	}
	query += ` ORDER BY created_at DESC, id`

	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.ScoreRun
	for rows.Next() {
		var r model.ScoreRun
		var grouping string
		if err := rows.Scan(&r.ID, &r.AsOf, &grouping, &r.Companies, &r.Failed, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		r.Grouping = model.Grouping(grouping)
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs")
}

func (s *SQLiteStore) DeleteRun(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM score_runs WHERE id = ?`, runID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete run %s", runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: delete run %s", runID)
	}
	return nil
}

func marshalRun(run *model.ScoreRun) (results, partitions []byte, err error) {
	results, err = json.Marshal(run.Results)
	if err != nil {
		return nil, nil, eris.Wrap(err, "marshal results")
	}
	partitions, err = json.Marshal(run.Partitions)
	if err != nil {
		return nil, nil, eris.Wrap(err, "marshal partitions")
	}
	return results, partitions, nil
}

func unmarshalRun(r *model.ScoreRun, results, partitions []byte) error {
	if len(results) > 0 {
		if err := json.Unmarshal(results, &r.Results); err != nil {
			return eris.Wrap(err, "unmarshal results")
		}
	}
	if len(partitions) > 0 {
		if err := json.Unmarshal(partitions, &r.Partitions); err != nil {
			return eris.Wrap(err, "unmarshal partitions")
		}
	}
	return nil
}
