// Package store persists scoring runs to SQLite or Postgres.
package store

import (
	"context"
	"errors"

	"github.com/sells-group/occr-cli/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Grouping model.Grouping `json:"grouping,omitempty"`
	Limit    int            `json:"limit,omitempty"` // 0 = no limit
	Offset   int            `json:"offset,omitempty"`
}

// Store defines the persistence interface for scoring runs.
type Store interface {
	SaveRun(ctx context.Context, run *model.ScoreRun) error
	GetRun(ctx context.Context, runID string) (*model.ScoreRun, error)
	// ListRuns returns runs newest first without Results and Partitions.
	ListRuns(ctx context.Context, filter RunFilter) ([]model.ScoreRun, error)
	DeleteRun(ctx context.Context, runID string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
