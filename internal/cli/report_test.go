package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/ga4sync/internal/history"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func TestFormatRelativeTime(t *testing.T) {
	tests := []struct {
		name string
		ago  time.Duration
		want string
	}{
		{name: "seconds", ago: 10 * time.Second, want: "just now"},
		{name: "minutes", ago: 5 * time.Minute, want: "5m ago"},
		{name: "hours", ago: 3 * time.Hour, want: "3h ago"},
		{name: "days", ago: 50 * time.Hour, want: "2d ago"},
		{name: "old", ago: 30 * 24 * time.Hour, want: "2024-02-14 12:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatRelativeTime(testNow.Add(-tt.ago), testNow))
		})
	}
}

func TestRenderHistory(t *testing.T) {
	runs := []history.Run{
		{
			ID: "b", StartedAt: testNow.Add(-2 * time.Minute), Status: history.StatusFailed,
			StartDate: "today", EndDate: "today", Fetched: 3,
			Error: strings.Repeat("x", 100),
		},
		{
			ID: "a", StartedAt: testNow.Add(-3 * time.Hour), Status: history.StatusSucceeded,
			StartDate: "7daysAgo", EndDate: "today", Fetched: 120, Superseded: 14, Written: 300,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderHistory(&buf, runs, testNow))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], TableHeaderStyle.Render("STARTED"))
	assert.Contains(t, lines[0], TableHeaderStyle.Render("WRITTEN"))
	assert.Contains(t, lines[1], "2m ago")
	assert.Contains(t, lines[1], "failed")
	assert.Contains(t, lines[1], "…")
	assert.NotContains(t, lines[1], strings.Repeat("x", 61))
	assert.Contains(t, lines[2], "7daysAgo..today")
	assert.Contains(t, lines[2], "300")
}

func TestRenderHistory_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderHistory(&buf, nil, testNow))
	assert.Contains(t, buf.String(), "No sync runs recorded yet")
}

func TestRenderRunSummary(t *testing.T) {
	run := history.Run{
		ID:             "run-1",
		StartedAt:      testNow,
		FinishedAt:     testNow.Add(2 * time.Second),
		Status:         history.StatusSucceeded,
		Worksheet:      "GA4",
		StartDate:      "today",
		EndDate:        "today",
		Fetched:        5,
		Existing:       6,
		Superseded:     2,
		Written:        9,
		DuplicateDates: []string{"2024-03-15"},
	}

	out := RenderRunSummary(run)
	assert.Contains(t, out, "Sync complete")
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "9 rows")
	assert.Contains(t, out, "2024-03-15")
	assert.Contains(t, out, "2s")

	run.Status = history.StatusSkipped
	run.DuplicateDates = nil
	out = RenderRunSummary(run)
	assert.Contains(t, out, "No new data")
	assert.Contains(t, out, WarningIcon)
	assert.NotContains(t, out, "Written")
}

func TestRowProgress(t *testing.T) {
	assert.Nil(t, RowProgress(nil))

	var buf bytes.Buffer
	bar := NewProgressBar(&buf, 10, "Writing rows")
	fn := RowProgress(bar)
	require.NotNil(t, fn)

	fn(4)
	fn(6)
	assert.True(t, bar.IsFinished())
}
