// Package reconcile merges freshly fetched report rows into the rows already
// stored in the destination worksheet.
package reconcile

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/ga4sync/internal/model"
)

// FromTable builds a record set from unformatted worksheet cells, the first
// row being the header. Entirely empty rows and then entirely empty columns
// are discarded. Columns named in reference take its kind and are coerced;
// numeric cells of every other column stay numeric and text stays text.
func FromTable(table [][]any, reference model.Schema) *model.RecordSet {
	if len(table) == 0 {
		return model.NewRecordSet(model.Schema{})
	}

	header := table[0]
	width := len(header)
	for _, row := range table[1:] {
		if len(row) > width {
			width = len(row)
		}
	}

	// Blank rows go first, then columns blank in every remaining row.
	var rows [][]any
	for _, raw := range table[1:] {
		row := make([]any, width)
		copy(row, raw)
		if !allBlank(row) {
			rows = append(rows, row)
		}
	}

	var keep []int
	for col := 0; col < width; col++ {
		for _, row := range rows {
			if !isBlank(row[col]) {
				keep = append(keep, col)
				break
			}
		}
	}

	columns := make([]model.Column, 0, len(keep))
	for _, col := range keep {
		name := ""
		if col < len(header) && header[col] != nil {
			name = strings.TrimSpace(fmt.Sprint(header[col]))
		}
		if name == "" {
			name = fmt.Sprintf("column_%d", col+1)
		}

		kind := model.KindDimension
		if c, ok := reference.Column(name); ok {
			kind = c.Kind
		}
		columns = append(columns, model.Column{Name: name, Kind: kind})
	}

	set := model.NewRecordSet(model.Schema{Columns: columns})
	for _, raw := range rows {
		row := make(model.Row, len(keep))
		for i, col := range keep {
			row[i] = parseCell(columns[i].Kind, raw[col])
		}
		set.Append(row)
	}

	return set
}

// parseCell converts an unformatted cell into a typed value. Text in count
// and ratio columns is parsed only when it is a plain number and is otherwise
// kept verbatim.
func parseCell(kind model.ColumnKind, v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil
		}
		switch kind {
		case model.KindCount:
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return n
			}
		case model.KindRatio:
			if d, err := decimal.NewFromString(s); err == nil {
				f, _ := d.Float64()
				return f
			}
		}
		return s
	case float64:
		if kind == model.KindCount && val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return int64(val)
		}
		return val
	case int64:
		if kind == model.KindRatio {
			return float64(val)
		}
		return val
	case int:
		return parseCell(kind, int64(val))
	default:
		return val
	}
}

func isBlank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	default:
		return false
	}
}

func allBlank(row []any) bool {
	for _, v := range row {
		if !isBlank(v) {
			return false
		}
	}
	return true
}
