package sheets

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const testSpreadsheetID = "sheet-123"

type valuesUpdate struct {
	Range            string
	ValueInputOption string
	Values           [][]any
}

// fakeSheets is a minimal in-process stand-in for the Sheets REST API.
type fakeSheets struct {
	spreadsheet  *sheets.Spreadsheet
	values       [][]any
	batchUpdates []*sheets.BatchUpdateSpreadsheetRequest
	updates      []valuesUpdate
	cleared      []string
	readRanges   []string
	renderOption string
	dateOption   string
	failUpdates  int
	updateStatus int
	batchStatus  int
	mu           sync.Mutex
}

func newFakeSheets(titles ...string) *fakeSheets {
	ss := &sheets.Spreadsheet{
		SpreadsheetId: testSpreadsheetID,
		Properties:    &sheets.SpreadsheetProperties{Title: "Traffic"},
	}
	for i, title := range titles {
		ss.Sheets = append(ss.Sheets, &sheets.Sheet{
			Properties: &sheets.SheetProperties{
				SheetId: int64(i),
				Title:   title,
				GridProperties: &sheets.GridProperties{
					RowCount:    10,
					ColumnCount: 5,
				},
			},
		})
	}
	return &fakeSheets{spreadsheet: ss}
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	base := "/v4/spreadsheets/" + testSpreadsheetID
	path := r.URL.Path

	switch {
	case path == base && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, f.spreadsheet)

	case path == base+":batchUpdate" && r.Method == http.MethodPost:
		if f.batchStatus != 0 {
			writeJSON(w, f.batchStatus, map[string]any{"error": map[string]any{"code": f.batchStatus, "message": "batch failed"}})
			return
		}
		var req sheets.BatchUpdateSpreadsheetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.batchUpdates = append(f.batchUpdates, &req)

		resp := &sheets.BatchUpdateSpreadsheetResponse{SpreadsheetId: testSpreadsheetID}
		for _, sub := range req.Requests {
			reply := &sheets.Response{}
			if sub.AddSheet != nil {
				props := *sub.AddSheet.Properties
				props.SheetId = 99
				reply.AddSheet = &sheets.AddSheetResponse{Properties: &props}
			}
			resp.Replies = append(resp.Replies, reply)
		}
		writeJSON(w, http.StatusOK, resp)

	case strings.HasPrefix(path, base+"/values/") && strings.HasSuffix(path, ":clear"):
		rng := strings.TrimSuffix(strings.TrimPrefix(path, base+"/values/"), ":clear")
		f.cleared = append(f.cleared, rng)
		f.values = nil
		writeJSON(w, http.StatusOK, &sheets.ClearValuesResponse{ClearedRange: rng})

	case strings.HasPrefix(path, base+"/values/") && r.Method == http.MethodGet:
		rng := strings.TrimPrefix(path, base+"/values/")
		f.readRanges = append(f.readRanges, rng)
		f.renderOption = r.URL.Query().Get("valueRenderOption")
		f.dateOption = r.URL.Query().Get("dateTimeRenderOption")
		writeJSON(w, http.StatusOK, &sheets.ValueRange{Range: rng, Values: f.values})

	case strings.HasPrefix(path, base+"/values/") && r.Method == http.MethodPut:
		if f.failUpdates > 0 {
			f.failUpdates--
			writeJSON(w, f.updateStatus, map[string]any{"error": map[string]any{"code": f.updateStatus, "message": "update failed"}})
			return
		}
		body, _ := io.ReadAll(r.Body)
		var vr sheets.ValueRange
		if err := json.Unmarshal(body, &vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.updates = append(f.updates, valuesUpdate{
			Range:            strings.TrimPrefix(path, base+"/values/"),
			ValueInputOption: r.URL.Query().Get("valueInputOption"),
			Values:           vr.Values,
		})
		writeJSON(w, http.StatusOK, &sheets.UpdateValuesResponse{UpdatedRows: int64(len(vr.Values))})

	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, fake *fakeSheets, modify func(*Config)) *Client {
	t.Helper()

	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	config := DefaultConfig()
	config.RetryDelay = time.Millisecond
	if modify != nil {
		modify(&config)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := NewClient(context.Background(), config, srv.Client(), logger, option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return client
}

func TestNewClient_InvalidConfig(t *testing.T) {
	config := DefaultConfig()
	config.BatchSize = 0

	_, err := NewClient(context.Background(), config, http.DefaultClient, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestOpenWorksheet(t *testing.T) {
	tests := []struct {
		name        string
		request     string
		wantTitle   string
		wantCreated bool
	}{
		{name: "existing worksheet", request: "GA4", wantTitle: "GA4"},
		{name: "empty name selects first", request: "", wantTitle: "Sheet1"},
		{name: "missing worksheet is created", request: "Traffic Data", wantTitle: "Traffic Data", wantCreated: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeSheets("Sheet1", "GA4")
			client := newTestClient(t, fake, nil)

			ws, err := client.OpenWorksheet(context.Background(), testSpreadsheetID, tt.request)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTitle, ws.Title())

			if tt.wantCreated {
				require.Len(t, fake.batchUpdates, 1)
				add := fake.batchUpdates[0].Requests[0].AddSheet
				require.NotNil(t, add)
				assert.Equal(t, tt.request, add.Properties.Title)
				assert.Equal(t, int64(1000), add.Properties.GridProperties.RowCount)
				assert.Equal(t, int64(20), add.Properties.GridProperties.ColumnCount)
			} else {
				assert.Empty(t, fake.batchUpdates)
			}
		})
	}
}

func TestOpenWorksheet_Errors(t *testing.T) {
	t.Run("no worksheets", func(t *testing.T) {
		client := newTestClient(t, newFakeSheets(), nil)
		_, err := client.OpenWorksheet(context.Background(), testSpreadsheetID, "")
		require.ErrorIs(t, err, ErrNoWorksheets)
	})

	t.Run("unknown spreadsheet", func(t *testing.T) {
		client := newTestClient(t, newFakeSheets("Sheet1"), nil)
		_, err := client.OpenWorksheet(context.Background(), "missing", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unable to access spreadsheet missing")
	})
}

func TestWorksheet_ReadTable(t *testing.T) {
	fake := newFakeSheets("It's Data")
	fake.values = [][]any{
		{"date", "sessions", "bounceRate"},
		{"2024-01-02", 1234, 0.5432},
		{"2024-01-01"},
	}
	client := newTestClient(t, fake, nil)

	ws, err := client.OpenWorksheet(context.Background(), testSpreadsheetID, "")
	require.NoError(t, err)

	table, err := ws.ReadTable(context.Background())
	require.NoError(t, err)

	assert.Equal(t, [][]any{
		{"date", "sessions", "bounceRate"},
		{"2024-01-02", float64(1234), 0.5432},
		{"2024-01-01"},
	}, table)
	assert.Equal(t, []string{"'It''s Data'"}, fake.readRanges)
	// Unformatted numbers do not depend on the sheet locale or number format.
	assert.Equal(t, "UNFORMATTED_VALUE", fake.renderOption)
	assert.Equal(t, "FORMATTED_STRING", fake.dateOption)
}

func TestWorksheet_ClearAndWrite(t *testing.T) {
	fake := newFakeSheets("GA4")
	fake.values = [][]any{{"old"}}
	client := newTestClient(t, fake, func(c *Config) {
		c.BatchSize = 2
	})

	ws, err := client.OpenWorksheet(context.Background(), testSpreadsheetID, "GA4")
	require.NoError(t, err)
	require.NoError(t, ws.Clear(context.Background()))
	assert.Equal(t, []string{"'GA4'"}, fake.cleared)

	table := [][]any{
		{"date", "country", "sessions", "bounceRate", "extra1", "extra2"},
		{"2024-01-03", "US", int64(10), 0.5, "", ""},
		{"2024-01-02", "DE", int64(4), 0.25, "", ""},
	}

	var progress []int
	err = ws.WriteTable(context.Background(), table, func(rows int) {
		progress = append(progress, rows)
	})
	require.NoError(t, err)

	// Grid grows to six columns before values are written.
	require.Len(t, fake.batchUpdates, 1)
	resize := fake.batchUpdates[0].Requests[0].UpdateSheetProperties
	require.NotNil(t, resize)
	assert.Equal(t, "gridProperties(rowCount,columnCount)", resize.Fields)
	assert.Equal(t, int64(10), resize.Properties.GridProperties.RowCount)
	assert.Equal(t, int64(6), resize.Properties.GridProperties.ColumnCount)

	require.Len(t, fake.updates, 2)
	assert.Equal(t, "'GA4'!A1", fake.updates[0].Range)
	assert.Equal(t, "'GA4'!A3", fake.updates[1].Range)
	assert.Equal(t, InputRaw, fake.updates[0].ValueInputOption)
	assert.Len(t, fake.updates[0].Values, 2)
	assert.Len(t, fake.updates[1].Values, 1)
	assert.Equal(t, "2024-01-02", fake.updates[1].Values[0][0])
	assert.Equal(t, []int{2, 1}, progress)
}

func TestWorksheet_WriteRetriesServerErrors(t *testing.T) {
	fake := newFakeSheets("GA4")
	fake.failUpdates = 2
	fake.updateStatus = http.StatusServiceUnavailable
	client := newTestClient(t, fake, nil)

	ws, err := client.OpenWorksheet(context.Background(), testSpreadsheetID, "GA4")
	require.NoError(t, err)

	err = ws.WriteTable(context.Background(), [][]any{{"date"}, {"2024-01-01"}}, nil)
	require.NoError(t, err)
	require.Len(t, fake.updates, 1)
	assert.Empty(t, fake.batchUpdates, "grid already large enough")
}

func TestWorksheet_WriteFailsFastOnClientErrors(t *testing.T) {
	fake := newFakeSheets("GA4")
	fake.failUpdates = 5
	fake.updateStatus = http.StatusForbidden
	client := newTestClient(t, fake, nil)

	ws, err := client.OpenWorksheet(context.Background(), testSpreadsheetID, "GA4")
	require.NoError(t, err)

	err = ws.WriteTable(context.Background(), [][]any{{"date"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write batch starting at row 1")
	assert.Equal(t, 4, fake.failUpdates, "403 must not be retried")
}

func TestWorksheet_FormatHeader(t *testing.T) {
	fake := newFakeSheets("GA4")
	client := newTestClient(t, fake, nil)

	ws, err := client.OpenWorksheet(context.Background(), testSpreadsheetID, "GA4")
	require.NoError(t, err)
	require.NoError(t, ws.FormatHeader(context.Background(), 3))

	require.Len(t, fake.batchUpdates, 1)
	reqs := fake.batchUpdates[0].Requests
	require.Len(t, reqs, 3)

	repeat := reqs[0].RepeatCell
	require.NotNil(t, repeat)
	assert.Equal(t, int64(1), repeat.Range.EndRowIndex)
	assert.Equal(t, int64(3), repeat.Range.EndColumnIndex)
	assert.True(t, repeat.Cell.UserEnteredFormat.TextFormat.Bold)
	assert.Equal(t, "CENTER", repeat.Cell.UserEnteredFormat.HorizontalAlignment)
	assert.InDelta(t, 0.6, repeat.Cell.UserEnteredFormat.BackgroundColor.Green, 1e-9)

	frozen := reqs[1].UpdateSheetProperties
	require.NotNil(t, frozen)
	assert.Equal(t, int64(1), frozen.Properties.GridProperties.FrozenRowCount)

	resize := reqs[2].AutoResizeDimensions
	require.NotNil(t, resize)
	assert.Equal(t, "COLUMNS", resize.Dimensions.Dimension)
	// Resizes the whole grid, which is wider than the header.
	assert.Equal(t, int64(5), resize.Dimensions.EndIndex)
}

func TestWorksheet_FormatHeaderDisabled(t *testing.T) {
	fake := newFakeSheets("GA4")
	client := newTestClient(t, fake, func(c *Config) {
		c.EnableFormatting = false
	})

	ws, err := client.OpenWorksheet(context.Background(), testSpreadsheetID, "GA4")
	require.NoError(t, err)
	require.NoError(t, ws.FormatHeader(context.Background(), 3))
	assert.Empty(t, fake.batchUpdates)
}

func TestWorksheet_FormatHeaderError(t *testing.T) {
	fake := newFakeSheets("GA4")
	client := newTestClient(t, fake, func(c *Config) {
		c.RetryAttempts = 0
	})

	ws, err := client.OpenWorksheet(context.Background(), testSpreadsheetID, "GA4")
	require.NoError(t, err)

	fake.mu.Lock()
	fake.batchStatus = http.StatusBadRequest
	fake.mu.Unlock()

	require.Error(t, ws.FormatHeader(context.Background(), 3))
}
