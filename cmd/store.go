package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/occr-cli/internal/resilience"
	"github.com/sells-group/occr-cli/internal/store"
)

// initStore opens the configured run store and applies migrations.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "occr.db"
		}
		var sq *store.SQLiteStore
		if sq, err = store.NewSQLite(dsn); err == nil {
			sq.SetRetry(resilience.FromRetryConfig(cfg.Store.RetryAttempts, cfg.Store.RetryBackoffMs))
			st = sq
		}
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns:       cfg.Store.MaxConns,
			MinConns:       cfg.Store.MinConns,
			RetryAttempts:  cfg.Store.RetryAttempts,
			RetryBackoffMs: cfg.Store.RetryBackoffMs,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}
