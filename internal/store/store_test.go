package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/occr-cli/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func ptrFloat64(v float64) *float64 { return &v }

func sampleRun(id string, created time.Time, grouping model.Grouping) *model.ScoreRun {
	return &model.ScoreRun{
		ID:        id,
		AsOf:      time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC),
		Grouping:  grouping,
		Companies: 2,
		Failed:    1,
		Results: []model.CompanyResult{
			{
				Ticker:          "ACME",
				Name:            "Acme Corp",
				Sector:          "Industrials",
				EnterpriseValue: 2.4e9,
				Scores:          model.ScoreVector{Historical: 0.0975, StressedSolvency: 0.12, Utilization: 0.5897, Transaction: 0.4},
				RawScore:        0.21,
				NormalizedScore: ptrFloat64(1),
				Group:           "all",
			},
			{Ticker: "BUST", Error: "invalid ebitda: must be positive, got 0"},
		},
		Partitions: []model.PartitionStats{{Key: "all", Count: 1, Min: 0.21, Max: 0.21}},
		CreatedAt:  created,
	}
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("SaveAndGetRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run := sampleRun("run-1", time.Now().UTC().Truncate(time.Second), model.GroupingNone)
		require.NoError(t, s.SaveRun(ctx, run))

		got, err := s.GetRun(ctx, "run-1")
		require.NoError(t, err)
		assert.Equal(t, run.ID, got.ID)
		assert.True(t, run.AsOf.Equal(got.AsOf))
		assert.True(t, run.CreatedAt.Equal(got.CreatedAt))
		assert.Equal(t, model.GroupingNone, got.Grouping)
		assert.Equal(t, 2, got.Companies)
		assert.Equal(t, 1, got.Failed)
		require.Len(t, got.Results, 2)
		assert.Equal(t, run.Results[0].Scores, got.Results[0].Scores)
		require.NotNil(t, got.Results[0].NormalizedScore)
		assert.Equal(t, 1.0, *got.Results[0].NormalizedScore)
		assert.Nil(t, got.Results[1].NormalizedScore)
		assert.True(t, got.Results[1].Failed())
		assert.Equal(t, run.Partitions, got.Partitions)
	})

	t.Run("GetRun_NotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetRun(context.Background(), "missing")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("SaveRun_DuplicateID", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		run := sampleRun("dup", time.Now().UTC(), model.GroupingNone)
		require.NoError(t, s.SaveRun(ctx, run))
		assert.Error(t, s.SaveRun(ctx, run))
	})

	t.Run("ListRuns", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		base := time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)

		for i, g := range []model.Grouping{model.GroupingNone, model.GroupingSector, model.GroupingSize, model.GroupingSector} {
			run := sampleRun(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Hour), g)
			require.NoError(t, s.SaveRun(ctx, run))
		}

		all, err := s.ListRuns(ctx, RunFilter{})
		require.NoError(t, err)
		require.Len(t, all, 4)
		assert.Equal(t, "run-3", all[0].ID)
		assert.Equal(t, "run-0", all[3].ID)
		assert.Empty(t, all[0].Results)
		assert.Equal(t, 2, all[0].Companies)

		sector, err := s.ListRuns(ctx, RunFilter{Grouping: model.GroupingSector})
		require.NoError(t, err)
		require.Len(t, sector, 2)
		assert.Equal(t, "run-3", sector[0].ID)
		assert.Equal(t, "run-1", sector[1].ID)

		page, err := s.ListRuns(ctx, RunFilter{Limit: 2, Offset: 1})
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "run-2", page[0].ID)
		assert.Equal(t, "run-1", page[1].ID)
	})

	t.Run("ListRuns_Empty", func(t *testing.T) {
		s := newStore(t)
		runs, err := s.ListRuns(context.Background(), RunFilter{Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, runs)
	})

	t.Run("DeleteRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.SaveRun(ctx, sampleRun("gone", time.Now().UTC(), model.GroupingNone)))

		require.NoError(t, s.DeleteRun(ctx, "gone"))
		_, err := s.GetRun(ctx, "gone")
		assert.True(t, errors.Is(err, ErrNotFound))

		err = s.DeleteRun(ctx, "gone")
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}
