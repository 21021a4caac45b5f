package sheets

import (
	"context"
	"sync"
)

// MockOpener is a mock worksheet opener for testing.
type MockOpener struct {
	OpenFunc  func(ctx context.Context, spreadsheetID, name string) (Worksheet, error)
	Worksheet *MockWorksheet
	OpenCalls []OpenCall
	mu        sync.Mutex
}

// OpenCall represents a single call to OpenWorksheet.
type OpenCall struct {
	SpreadsheetID string
	Name          string
}

// NewMockOpener creates a mock opener that hands out the given worksheet.
func NewMockOpener(ws *MockWorksheet) *MockOpener {
	return &MockOpener{Worksheet: ws}
}

// OpenWorksheet records the call and returns the configured worksheet.
func (m *MockOpener) OpenWorksheet(ctx context.Context, spreadsheetID, name string) (Worksheet, error) {
	m.mu.Lock()
	m.OpenCalls = append(m.OpenCalls, OpenCall{SpreadsheetID: spreadsheetID, Name: name})
	fn := m.OpenFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, spreadsheetID, name)
	}
	return m.Worksheet, nil
}

// OpenCallCount returns how many times OpenWorksheet was called.
func (m *MockOpener) OpenCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.OpenCalls)
}

// MockWorksheet is an in-memory Worksheet for testing.
type MockWorksheet struct {
	ReadErr   error
	ClearErr  error
	WriteErr  error
	FormatErr error
	Name      string
	// Cells holds the current sheet contents as ReadTable returns them.
	Cells         [][]any
	Written       [][]any
	Progress      []int
	FormatColumns []int
	ClearCount    int
	WriteCount    int
	mu            sync.Mutex
}

// NewMockWorksheet creates a mock worksheet seeded with cells.
func NewMockWorksheet(name string, cells [][]any) *MockWorksheet {
	return &MockWorksheet{Name: name, Cells: cells}
}

// Title implements Worksheet.
func (m *MockWorksheet) Title() string {
	return m.Name
}

// ReadTable implements Worksheet.
func (m *MockWorksheet) ReadTable(_ context.Context) ([][]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ReadErr != nil {
		return nil, m.ReadErr
	}

	out := make([][]any, len(m.Cells))
	for i, row := range m.Cells {
		out[i] = append([]any(nil), row...)
	}
	return out, nil
}

// Clear implements Worksheet.
func (m *MockWorksheet) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ClearCount++
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.Cells = nil
	return nil
}

// WriteTable implements Worksheet. Values are stored the way the API reads
// them back unformatted.
func (m *MockWorksheet) WriteTable(_ context.Context, table [][]any, progress func(rows int)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteCount++
	if m.WriteErr != nil {
		return m.WriteErr
	}

	m.Written = table
	m.Cells = make([][]any, len(table))
	for i, row := range table {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = unformatted(v)
		}
		m.Cells[i] = cells
	}

	m.Progress = append(m.Progress, len(table))
	if progress != nil {
		progress(len(table))
	}
	return nil
}

// FormatHeader implements Worksheet.
func (m *MockWorksheet) FormatHeader(_ context.Context, columns int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FormatColumns = append(m.FormatColumns, columns)
	return m.FormatErr
}

func unformatted(v any) any {
	switch val := v.(type) {
	case nil:
		return ""
	case int:
		return float64(val)
	case int64:
		return float64(val)
	default:
		return val
	}
}
