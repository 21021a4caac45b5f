package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Veraticus/ga4sync/internal/common"
)

// Scope is the OAuth2 scope needed to read and write spreadsheets.
const Scope = sheets.SpreadsheetsScope

// ErrNoWorksheets is returned when a spreadsheet has no worksheet to default to.
var ErrNoWorksheets = errors.New("spreadsheet has no worksheets")

// Header styling applied by FormatHeader.
var (
	headerBackground = &sheets.Color{Red: 0.2, Green: 0.6, Blue: 1.0}
	headerForeground = &sheets.Color{Red: 1.0, Green: 1.0, Blue: 1.0}
)

// Worksheet is one tab of a spreadsheet used as the sync destination.
type Worksheet interface {
	Title() string
	// ReadTable returns every cell unformatted, header row first. Numbers are
	// float64 and text is string, whatever the sheet's locale or number format.
	ReadTable(ctx context.Context) ([][]any, error)
	// Clear removes all cell values.
	Clear(ctx context.Context) error
	// WriteTable writes rows starting at A1. progress, when set, receives the
	// number of rows written by each batch.
	WriteTable(ctx context.Context, table [][]any, progress func(rows int)) error
	// FormatHeader styles the header row and auto-sizes the columns.
	FormatHeader(ctx context.Context, columns int) error
}

// Client opens worksheets through the Google Sheets API.
type Client struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewClient creates a new Google Sheets client using an authorized HTTP client.
func NewClient(ctx context.Context, config Config, httpClient *http.Client, logger *slog.Logger, opts ...option.ClientOption) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return &Client{
		config:  config,
		service: srv,
		logger:  logger,
	}, nil
}

// OpenWorksheet opens the spreadsheet and selects the named worksheet, creating
// it when it does not exist. An empty name selects the first worksheet.
func (c *Client) OpenWorksheet(ctx context.Context, spreadsheetID, name string) (Worksheet, error) {
	spreadsheet, err := c.service.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to access spreadsheet %s: %w", spreadsheetID, err)
	}

	var props *sheets.SheetProperties
	switch {
	case name == "":
		if len(spreadsheet.Sheets) == 0 || spreadsheet.Sheets[0].Properties == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoWorksheets, spreadsheetID)
		}
		props = spreadsheet.Sheets[0].Properties
	default:
		for _, s := range spreadsheet.Sheets {
			if s.Properties != nil && s.Properties.Title == name {
				props = s.Properties
				break
			}
		}
		if props == nil {
			c.logger.Info("creating worksheet", "title", name)
			props, err = c.addSheet(ctx, spreadsheetID, name)
			if err != nil {
				return nil, fmt.Errorf("failed to create worksheet %q: %w", name, err)
			}
		}
	}

	title := ""
	if spreadsheet.Properties != nil {
		title = spreadsheet.Properties.Title
	}
	c.logger.Info("opened spreadsheet", "spreadsheet", title, "worksheet", props.Title)

	return &worksheet{
		client:        c,
		spreadsheetID: spreadsheetID,
		props:         props,
	}, nil
}

func (c *Client) addSheet(ctx context.Context, spreadsheetID, name string) (*sheets.SheetProperties, error) {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{
						Title: name,
						GridProperties: &sheets.GridProperties{
							RowCount:    c.config.DefaultRows,
							ColumnCount: c.config.DefaultColumns,
						},
					},
				},
			},
		},
	}

	resp, err := c.service.Spreadsheets.BatchUpdate(spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return nil, fmt.Errorf("empty add sheet reply")
	}

	return resp.Replies[0].AddSheet.Properties, nil
}

func (c *Client) retryOptions() common.RetryOptions {
	return common.RetryOptions{
		MaxAttempts:  c.config.RetryAttempts + 1,
		InitialDelay: c.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// worksheet implements Worksheet against the Sheets API.
type worksheet struct {
	client        *Client
	props         *sheets.SheetProperties
	spreadsheetID string
}

func (w *worksheet) Title() string {
	return w.props.Title
}

// a1 returns an A1 range for the worksheet, quoting the title.
func (w *worksheet) a1(cell string) string {
	quoted := "'" + strings.ReplaceAll(w.props.Title, "'", "''") + "'"
	if cell == "" {
		return quoted
	}
	return quoted + "!" + cell
}

func (w *worksheet) ReadTable(ctx context.Context) ([][]any, error) {
	resp, err := w.client.service.Spreadsheets.Values.Get(w.spreadsheetID, w.a1("")).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read worksheet %q: %w", w.props.Title, err)
	}

	w.client.logger.Debug("read worksheet", "worksheet", w.props.Title, "rows", len(resp.Values))
	return resp.Values, nil
}

func (w *worksheet) Clear(ctx context.Context) error {
	_, err := w.client.service.Spreadsheets.Values.Clear(w.spreadsheetID, w.a1(""), &sheets.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to clear worksheet %q: %w", w.props.Title, err)
	}
	return nil
}

func (w *worksheet) WriteTable(ctx context.Context, table [][]any, progress func(rows int)) error {
	if len(table) == 0 {
		return nil
	}

	columns := 0
	for _, row := range table {
		if len(row) > columns {
			columns = len(row)
		}
	}

	if err := w.ensureGrid(ctx, int64(len(table)), int64(columns)); err != nil {
		return fmt.Errorf("failed to resize worksheet %q: %w", w.props.Title, err)
	}

	batchSize := w.client.config.BatchSize
	for i := 0; i < len(table); i += batchSize {
		end := i + batchSize
		if end > len(table) {
			end = len(table)
		}

		batch := table[i:end]
		rangeStr := w.a1(fmt.Sprintf("A%d", i+1))

		err := common.WithRetry(ctx, func() error {
			_, err := w.client.service.Spreadsheets.Values.Update(w.spreadsheetID, rangeStr, &sheets.ValueRange{Values: batch}).
				ValueInputOption(w.client.config.ValueInputOption).
				Context(ctx).
				Do()
			return common.ClassifyAPIError(err)
		}, w.client.retryOptions())
		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}

		w.client.logger.Debug("wrote batch", "start_row", i+1, "rows", len(batch))
		if progress != nil {
			progress(len(batch))
		}
	}

	return nil
}

// ensureGrid grows the worksheet so that rows x columns cells fit. It never shrinks.
func (w *worksheet) ensureGrid(ctx context.Context, rows, columns int64) error {
	grid := w.props.GridProperties
	if grid == nil {
		grid = &sheets.GridProperties{}
	}
	if rows <= grid.RowCount && columns <= grid.ColumnCount {
		return nil
	}

	want := &sheets.GridProperties{
		RowCount:    max(rows, grid.RowCount),
		ColumnCount: max(columns, grid.ColumnCount),
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
					Properties: &sheets.SheetProperties{
						SheetId:        w.props.SheetId,
						GridProperties: want,
					},
					Fields: "gridProperties(rowCount,columnCount)",
				},
			},
		},
	}

	if _, err := w.client.service.Spreadsheets.BatchUpdate(w.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return err
	}

	w.client.logger.Debug("resized worksheet", "rows", want.RowCount, "columns", want.ColumnCount)
	w.props.GridProperties = want
	return nil
}

func (w *worksheet) FormatHeader(ctx context.Context, columns int) error {
	if !w.client.config.EnableFormatting || columns <= 0 {
		return nil
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: headerRequests(w.props, int64(columns)),
	}

	return common.WithRetry(ctx, func() error {
		_, err := w.client.service.Spreadsheets.BatchUpdate(w.spreadsheetID, req).Context(ctx).Do()
		return common.ClassifyAPIError(err)
	}, w.client.retryOptions())
}

// headerRequests styles row 1, freezes it and auto-sizes every column of the grid.
func headerRequests(props *sheets.SheetProperties, columns int64) []*sheets.Request {
	resize := columns
	if props.GridProperties != nil && props.GridProperties.ColumnCount > resize {
		resize = props.GridProperties.ColumnCount
	}

	return []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          props.SheetId,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   columns,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						BackgroundColor: headerBackground,
						TextFormat: &sheets.TextFormat{
							Bold:            true,
							ForegroundColor: headerForeground,
						},
						HorizontalAlignment: "CENTER",
					},
				},
				Fields: "userEnteredFormat(backgroundColor,textFormat,horizontalAlignment)",
			},
		},
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId: props.SheetId,
					GridProperties: &sheets.GridProperties{
						FrozenRowCount: 1,
					},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    props.SheetId,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   resize,
				},
			},
		},
	}
}
