package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *SQLiteDB {
	t.Helper()

	db, err := NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate())
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Migrate())
}

func TestSaveAndGetRun(t *testing.T) {
	db := newTestDB(t)

	run := &Run{
		Model:         "soneira-peebles",
		Seed:          3,
		ParamsJSON:    `{"levels":5}`,
		PointCount:    3906,
		OutputPath:    "Plots/soneirapeebles_levels_5_eta_5_lambda_2_seed_3_eta_random_0.png",
		RandKind:      "hmac",
		EngineVersion: "go-1.0.0",
		DurationMs:    42,
	}
	require.NoError(t, db.SaveRun(run))
	require.NotEmpty(t, run.ID)
	require.False(t, run.CreatedAt.IsZero())

	got, err := db.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Model, got.Model)
	assert.Equal(t, run.Seed, got.Seed)
	assert.Equal(t, run.ParamsJSON, got.ParamsJSON)
	assert.Equal(t, run.PointCount, got.PointCount)
	assert.False(t, got.Truncated)
	assert.Equal(t, run.OutputPath, got.OutputPath)
	assert.Equal(t, run.DurationMs, got.DurationMs)
	assert.WithinDuration(t, run.CreatedAt, got.CreatedAt, time.Second)
}

func TestSaveRunDefaults(t *testing.T) {
	db := newTestDB(t)

	run := &Run{Model: "cascade", OutputPath: "a.png", RandKind: "pcg", EngineVersion: "go-1.0.0", Truncated: true}
	require.NoError(t, db.SaveRun(run))

	got, err := db.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, "{}", got.ParamsJSON)
	assert.True(t, got.Truncated)
}

func TestGetRunNotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetRun("missing")
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestListRuns(t *testing.T) {
	db := newTestDB(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		model := "cascade"
		if i%2 == 1 {
			model = "rayleigh-levy"
		}
		require.NoError(t, db.SaveRun(&Run{
			ID:            fmt.Sprintf("run%d", i),
			Model:         model,
			Seed:          uint64(i),
			OutputPath:    fmt.Sprintf("out%d.png", i),
			RandKind:      "hmac",
			EngineVersion: "go-1.0.0",
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}))
	}

	tests := []struct {
		name        string
		query       RunsQuery
		wantIDs     []string
		wantTotal   int
		wantPages   int
		wantPerPage int
	}{
		{"all runs newest first", RunsQuery{}, []string{"run4", "run3", "run2", "run1", "run0"}, 5, 1, defaultPerPage},
		{"filtered by model", RunsQuery{Model: "rayleigh-levy"}, []string{"run3", "run1"}, 2, 1, defaultPerPage},
		{"second page", RunsQuery{Page: 2, PerPage: 2}, []string{"run2", "run1"}, 5, 3, 2},
		{"past the end", RunsQuery{Page: 9, PerPage: 2}, nil, 5, 3, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := db.ListRuns(tt.query)
			require.NoError(t, err)

			ids := make([]string, 0, len(list.Runs))
			for _, r := range list.Runs {
				ids = append(ids, r.ID)
			}
			if tt.wantIDs == nil {
				assert.Empty(t, ids)
			} else {
				assert.Equal(t, tt.wantIDs, ids)
			}
			assert.Equal(t, tt.wantTotal, list.TotalCount)
			assert.Equal(t, tt.wantPages, list.TotalPages)
			assert.Equal(t, tt.wantPerPage, list.PerPage)
		})
	}
}

func TestFileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	db, err := NewSQLiteDB(path)
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	require.NoError(t, db.SaveRun(&Run{ID: "x", Model: "cascade", OutputPath: "x.png", RandKind: "hmac", EngineVersion: "go-1.0.0"}))
	require.NoError(t, db.Close())

	db, err = NewSQLiteDB(path)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Migrate())

	got, err := db.GetRun("x")
	require.NoError(t, err)
	assert.Equal(t, "cascade", got.Model)
}
