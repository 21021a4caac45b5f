// Package export writes reconciled report data to local files.
package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/ga4sync/internal/model"
)

// SheetName is the worksheet name used in exported workbooks.
const SheetName = "ga4"

// headerStyle matches the spreadsheet header: blue fill, bold white text, centered.
var headerStyle = &excelize.Style{
	Font: &excelize.Font{
		Bold:  true,
		Color: "FFFFFF",
	},
	Fill: excelize.Fill{
		Type:    "pattern",
		Pattern: 1,
		Color:   []string{"3399FF"},
	},
	Alignment: &excelize.Alignment{
		Horizontal: "center",
	},
}

// WriteXLSX writes the record set to a new workbook at path, replacing any
// existing file. The header row is styled and frozen.
func WriteXLSX(path string, set *model.RecordSet) (err error) {
	if set == nil {
		return fmt.Errorf("nothing to export")
	}

	if dir := filepath.Dir(path); dir != "" {
		if mkErr := os.MkdirAll(dir, 0750); mkErr != nil {
			return fmt.Errorf("failed to create export directory: %w", mkErr)
		}
	}

	f := excelize.NewFile()
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close workbook: %w", closeErr)
		}
	}()

	if err = f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name worksheet: %w", err)
	}

	table := set.Table()
	for i, row := range table {
		cell, cellErr := excelize.CoordinatesToCellName(1, i+1)
		if cellErr != nil {
			return fmt.Errorf("invalid row %d: %w", i+1, cellErr)
		}
		if err = f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if columns := set.Schema.Len(); columns > 0 {
		if err = styleHeader(f, columns); err != nil {
			return err
		}
	}

	if err = f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}

	return nil
}

func styleHeader(f *excelize.File, columns int) error {
	style, err := f.NewStyle(headerStyle)
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	last, err := excelize.CoordinatesToCellName(columns, 1)
	if err != nil {
		return fmt.Errorf("invalid header width %d: %w", columns, err)
	}

	if err := f.SetCellStyle(SheetName, "A1", last, style); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	lastCol, err := excelize.ColumnNumberToName(columns)
	if err != nil {
		return fmt.Errorf("invalid header width %d: %w", columns, err)
	}
	if err := f.SetColWidth(SheetName, "A", lastCol, 18); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}

	return f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}
