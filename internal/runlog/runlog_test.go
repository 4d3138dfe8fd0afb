package runlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndListRuns(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	started := time.Date(2026, 8, 29, 6, 0, 0, 0, time.UTC)

	require.NoError(t, store.RecordRun(ctx, Run{
		Date:             "2026-08-28",
		StartedAt:        started,
		FinishedAt:       started.Add(10 * time.Minute),
		RecordsChecked:   42,
		RecordsCorrected: 5,
		RecordsApplied:   3,
		EmailSent:        true,
		Status:           StatusOK,
	}))
	require.NoError(t, store.RecordRun(ctx, Run{
		Date:       "2026-08-29",
		StartedAt:  started.AddDate(0, 0, 1),
		FinishedAt: started.AddDate(0, 0, 1).Add(time.Minute),
		Errors:     2,
		Status:     StatusFailed,
	}))

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// Newest first.
	assert.Equal(t, "2026-08-29", runs[0].Date)
	assert.Equal(t, StatusFailed, runs[0].Status)
	assert.Equal(t, 2, runs[0].Errors)
	assert.False(t, runs[0].EmailSent)

	assert.Equal(t, "2026-08-28", runs[1].Date)
	assert.Equal(t, 42, runs[1].RecordsChecked)
	assert.True(t, runs[1].EmailSent)
	assert.Equal(t, started, runs[1].StartedAt)
}

func TestListRunsLimit(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.RecordRun(ctx, Run{
			Date: "2026-08-28", Status: StatusOK,
			StartedAt: time.Now(), FinishedAt: time.Now(),
		}))
	}

	runs, err := store.ListRuns(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestNewStoreCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "runs.db")
	store, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	assert.FileExists(t, path)
}
