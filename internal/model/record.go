package model

// Row holds the values of one record, positionally aligned with a Schema.
// A value is nil (absent), string, int64 or float64.
type Row []any

// RecordSet is an ordered sequence of rows sharing a schema.
type RecordSet struct {
	Schema Schema
	Rows   []Row
}

// NewRecordSet creates an empty record set for the schema.
func NewRecordSet(schema Schema) *RecordSet {
	return &RecordSet{
		Schema: schema,
		Rows:   make([]Row, 0),
	}
}

// Len returns the number of rows.
func (r *RecordSet) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// Empty reports whether the record set has no rows.
func (r *RecordSet) Empty() bool {
	return r.Len() == 0
}

// Append adds a row. The row is padded or truncated to the schema width.
func (r *RecordSet) Append(row Row) {
	width := r.Schema.Len()
	if len(row) != width {
		fixed := make(Row, width)
		copy(fixed, row)
		row = fixed
	}
	r.Rows = append(r.Rows, row)
}

// Value returns the value of the named column in row i, or nil.
func (r *RecordSet) Value(i int, column string) any {
	ix := r.Schema.Index(column)
	if ix < 0 || i < 0 || i >= len(r.Rows) || ix >= len(r.Rows[i]) {
		return nil
	}
	return r.Rows[i][ix]
}

// Date returns the date of row i as a string, or "" when the set has no date
// column or the value is absent.
func (r *RecordSet) Date(i int) string {
	if s, ok := r.Value(i, ColumnDate).(string); ok {
		return s
	}
	return ""
}

// Dates returns the distinct non-empty dates in first-seen order.
func (r *RecordSet) Dates() []string {
	if !r.Schema.HasDate() {
		return nil
	}

	seen := make(map[string]bool)
	var dates []string
	for i := range r.Rows {
		d := r.Date(i)
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		dates = append(dates, d)
	}
	return dates
}

// Table renders the record set as a header row followed by data rows, the shape
// written to a worksheet. Absent values become empty strings.
func (r *RecordSet) Table() [][]any {
	table := make([][]any, 0, len(r.Rows)+1)

	header := make([]any, r.Schema.Len())
	for i, c := range r.Schema.Columns {
		header[i] = c.Name
	}
	table = append(table, header)

	for _, row := range r.Rows {
		out := make([]any, r.Schema.Len())
		for i := range out {
			if i < len(row) && row[i] != nil {
				out[i] = row[i]
			} else {
				out[i] = ""
			}
		}
		table = append(table, out)
	}

	return table
}
