package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStore(t *testing.T) (*SQLiteStore, func()) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "nested", "history.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate store: %v", err)
	}

	return store, func() {
		_ = store.Close()
	}
}

func testRun(id string, started time.Time, status Status) *Run {
	return &Run{
		ID:            id,
		StartedAt:     started,
		FinishedAt:    started.Add(1500 * time.Millisecond),
		Status:        status,
		PropertyID:    "123",
		SpreadsheetID: "sheet",
		Worksheet:     "GA4",
		StartDate:     "today",
		EndDate:       "today",
		Fetched:       5,
		Existing:      6,
		Superseded:    2,
		Written:       9,
	}
}

func TestNewSQLiteStore_EmptyPath(t *testing.T) {
	_, err := NewSQLiteStore("  ")
	require.ErrorIs(t, err, ErrEmptyString)
}

func TestMigrate_Idempotent(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.Migrate(ctx))

	var version int
	require.NoError(t, store.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, ExpectedSchemaVersion, version)

	var count int
	err := store.db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='index' AND name='idx_sync_runs_started_at'
	`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRecordRun_RoundTrip(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()
	ctx := context.Background()

	started := time.Date(2024, 3, 15, 9, 30, 0, 123000000, time.UTC)
	run := testRun("run-1", started, StatusFailed)
	run.Error = "failed to write batch"
	run.DuplicateDates = []string{"2024-03-15", "2024-03-14"}

	require.NoError(t, store.RecordRun(ctx, run))

	got, err := store.LastRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, run.ID, got.ID)
	assert.True(t, run.StartedAt.Equal(got.StartedAt))
	assert.Equal(t, 1500*time.Millisecond, got.Duration())
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "GA4", got.Worksheet)
	assert.Equal(t, "failed to write batch", got.Error)
	assert.Equal(t, []string{"2024-03-15", "2024-03-14"}, got.DuplicateDates)
	assert.Equal(t, 5, got.Fetched)
	assert.Equal(t, 6, got.Existing)
	assert.Equal(t, 2, got.Superseded)
	assert.Equal(t, 9, got.Written)
}

func TestRecordRun_ReplacesSameID(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()
	ctx := context.Background()

	started := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.RecordRun(ctx, testRun("same", started, StatusFailed)))
	require.NoError(t, store.RecordRun(ctx, testRun("same", started, StatusSucceeded)))

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, StatusSucceeded, runs[0].Status)
}

func TestRecordRun_Validation(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()
	ctx := context.Background()

	started := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		run     *Run
		wantErr error
	}{
		{name: "nil run", run: nil, wantErr: ErrNilParameter},
		{name: "missing id", run: testRun("", started, StatusSucceeded), wantErr: ErrInvalidRun},
		{name: "unknown status", run: testRun("x", started, "done"), wantErr: ErrInvalidStatus},
		{
			name: "finished before start",
			run: func() *Run {
				r := testRun("x", started, StatusSucceeded)
				r.FinishedAt = started.Add(-time.Second)
				return r
			}(),
			wantErr: ErrInvalidRun,
		},
		{
			name: "negative count",
			run: func() *Run {
				r := testRun("x", started, StatusSucceeded)
				r.Written = -1
				return r
			}(),
			wantErr: ErrInvalidRun,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.RecordRun(ctx, tt.run)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestListRuns_NewestFirstWithLimit(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	// Sub-second offsets must still order correctly.
	offsets := []time.Duration{0, 2 * time.Hour, 500 * time.Millisecond, time.Hour}
	for i, off := range offsets {
		require.NoError(t, store.RecordRun(ctx, testRun(string(rune('a'+i)), base.Add(off), StatusSucceeded)))
	}

	all, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	ids := make([]string, len(all))
	for i, r := range all {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"b", "d", "c", "a"}, ids)

	limited, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "b", limited[0].ID)
	assert.Equal(t, "d", limited[1].ID)
}

func TestLastRun_Empty(t *testing.T) {
	store, cleanup := createTestStore(t)
	defer cleanup()

	run, err := store.LastRun(context.Background())
	require.NoError(t, err)
	assert.Nil(t, run)

	runs, err := store.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestStatus_IsValid(t *testing.T) {
	assert.True(t, StatusSucceeded.IsValid())
	assert.True(t, StatusFailed.IsValid())
	assert.True(t, StatusSkipped.IsValid())
	assert.False(t, Status("").IsValid())
	assert.False(t, Status("running").IsValid())
}
