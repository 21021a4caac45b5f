// Package model defines the tabular report data shared by the fetcher, the
// reconciler and the writers.
package model

// ColumnKind describes how values in a column are typed.
type ColumnKind string

const (
	// KindMeta marks metadata columns added by the sync (timestamp, freshness).
	KindMeta ColumnKind = "meta"
	// KindDimension marks string-valued categorical fields.
	KindDimension ColumnKind = "dimension"
	// KindCount marks integer metrics.
	KindCount ColumnKind = "count"
	// KindRatio marks ratio/duration metrics kept as rounded floats.
	KindRatio ColumnKind = "ratio"
)

// Well-known column names.
const (
	ColumnLastUpdated = "last_updated"
	ColumnFreshness   = "data_freshness"
	ColumnDate        = "date"
)

// FreshnessLive is the data_freshness value for rows fetched by a sync run.
const FreshnessLive = "live"

// Layouts used for the metadata timestamp and normalized dates.
const (
	TimestampLayout = "2006-01-02 15:04:05"
	DateLayout      = "2006-01-02"
)

// DefaultRatioMetrics are the metrics reported as fractions or durations.
var DefaultRatioMetrics = []string{
	"bounceRate",
	"averageSessionDuration",
	"engagementRate",
	"totalRevenue",
}

// Column is a named, typed column of a record set.
type Column struct {
	Name string
	Kind ColumnKind
}

// IsMetric reports whether the column holds a numeric metric.
func (c Column) IsMetric() bool {
	return c.Kind == KindCount || c.Kind == KindRatio
}

// Schema is the ordered column layout shared by the fetch, reconcile and write stages.
type Schema struct {
	Columns []Column
}

// NewSchema builds the layout of a freshly fetched record set: the two metadata
// columns, then the requested dimensions, then the requested metrics.
func NewSchema(dimensions, metrics, ratioMetrics []string) Schema {
	ratio := make(map[string]bool, len(ratioMetrics))
	for _, m := range ratioMetrics {
		ratio[m] = true
	}

	columns := make([]Column, 0, len(dimensions)+len(metrics)+2)
	columns = append(columns,
		Column{Name: ColumnLastUpdated, Kind: KindMeta},
		Column{Name: ColumnFreshness, Kind: KindMeta},
	)

	for _, d := range dimensions {
		columns = append(columns, Column{Name: d, Kind: KindDimension})
	}

	for _, m := range metrics {
		kind := KindCount
		if ratio[m] {
			kind = KindRatio
		}
		columns = append(columns, Column{Name: m, Kind: kind})
	}

	return Schema{Columns: columns}
}

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Index returns the position of the named column, or -1.
func (s Schema) Index(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Has reports whether the schema contains the named column.
func (s Schema) Has(name string) bool {
	return s.Index(name) >= 0
}

// Column returns the named column.
func (s Schema) Column(name string) (Column, bool) {
	if ix := s.Index(name); ix >= 0 {
		return s.Columns[ix], true
	}
	return Column{}, false
}

// HasDate reports whether the schema has a date column.
func (s Schema) HasDate() bool {
	return s.Has(ColumnDate)
}

// Len returns the number of columns.
func (s Schema) Len() int {
	return len(s.Columns)
}
