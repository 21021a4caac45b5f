package reconcile

import (
	"sort"

	"github.com/Veraticus/ga4sync/internal/model"
)

// Result is the outcome of a merge.
type Result struct {
	Set *model.RecordSet
	// DuplicateDates lists the dates present in both inputs, in fetch order.
	DuplicateDates []string
	// Superseded counts existing rows dropped because fresh rows cover their date.
	Superseded int
	// Kept counts existing rows carried into the result.
	Kept int
}

// Merge combines freshly fetched rows with the existing dataset. When both
// carry a date column, existing rows for any fetched date are dropped; fresh
// rows always win, with no field-level merge. Fresh rows come first, then the
// surviving existing rows, and the result is stably sorted by date descending
// with undated rows last.
//
// Columns are the fresh schema followed by columns only the existing data has.
func Merge(fresh, existing *model.RecordSet) Result {
	if fresh == nil {
		fresh = model.NewRecordSet(model.Schema{})
	}
	if existing == nil {
		existing = model.NewRecordSet(model.Schema{})
	}

	schema := unionSchema(fresh.Schema, existing.Schema)
	merged := model.NewRecordSet(schema)

	for _, row := range fresh.Rows {
		merged.Append(project(row, fresh.Schema, schema))
	}

	result := Result{Set: merged}

	dedup := fresh.Schema.HasDate() && existing.Schema.HasDate()
	freshDates := make(map[string]bool)
	if dedup {
		for _, d := range fresh.Dates() {
			freshDates[d] = true
		}
	}

	duplicates := make(map[string]bool)
	for i, row := range existing.Rows {
		if dedup {
			if d := existing.Date(i); d != "" && freshDates[d] {
				duplicates[d] = true
				result.Superseded++
				continue
			}
		}
		merged.Append(project(row, existing.Schema, schema))
		result.Kept++
	}

	for _, d := range fresh.Dates() {
		if duplicates[d] {
			result.DuplicateDates = append(result.DuplicateDates, d)
		}
	}

	if schema.HasDate() {
		SortByDateDesc(merged)
	}

	return result
}

// SortByDateDesc stably sorts rows by their date string, newest first. Rows
// without a date keep their relative order at the end.
func SortByDateDesc(set *model.RecordSet) {
	ix := set.Schema.Index(model.ColumnDate)
	if ix < 0 {
		return
	}

	date := func(row model.Row) string {
		if ix < len(row) {
			if s, ok := row[ix].(string); ok {
				return s
			}
		}
		return ""
	}

	sort.SliceStable(set.Rows, func(i, j int) bool {
		di, dj := date(set.Rows[i]), date(set.Rows[j])
		switch {
		case di == "":
			return false
		case dj == "":
			return true
		default:
			return di > dj
		}
	})
}

func unionSchema(first, second model.Schema) model.Schema {
	columns := make([]model.Column, 0, first.Len()+second.Len())
	seen := make(map[string]bool, first.Len()+second.Len())

	for _, c := range append(append([]model.Column{}, first.Columns...), second.Columns...) {
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		columns = append(columns, c)
	}

	return model.Schema{Columns: columns}
}

// project rearranges a row from one schema into another by column name.
func project(row model.Row, from, to model.Schema) model.Row {
	out := make(model.Row, to.Len())
	for i, c := range from.Columns {
		if i >= len(row) {
			break
		}
		if ix := to.Index(c.Name); ix >= 0 && out[ix] == nil {
			out[ix] = row[i]
		}
	}
	return out
}
