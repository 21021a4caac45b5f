// Package analytics fetches report rows from the Google Analytics Data API and
// turns them into typed record sets.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	analyticsdata "google.golang.org/api/analyticsdata/v1beta"

	"github.com/Veraticus/ga4sync/internal/model"
)

// ErrMissingProperty is returned when no analytics property is configured.
var ErrMissingProperty = errors.New("missing analytics property id")

// Config holds the configuration for the report fetcher.
type Config struct {
	PropertyID string
	// RowLimit caps the rows returned by one request; 0 keeps the API default.
	RowLimit int64
}

// Property returns the resource name of the configured property.
func (c Config) Property() string {
	id := strings.TrimSpace(c.PropertyID)
	if strings.HasPrefix(id, "properties/") {
		return id
	}
	return "properties/" + id
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	id := strings.TrimPrefix(strings.TrimSpace(c.PropertyID), "properties/")
	if id == "" {
		return ErrMissingProperty
	}
	if c.RowLimit < 0 {
		return fmt.Errorf("row limit cannot be negative")
	}
	return nil
}

// ReportRunner executes a single report request against a property.
type ReportRunner interface {
	RunReport(ctx context.Context, property string, req *analyticsdata.RunReportRequest) (*analyticsdata.RunReportResponse, error)
}

// Fetcher issues report queries and coerces the response into record sets.
type Fetcher struct {
	runner ReportRunner
	logger *slog.Logger
	now    func() time.Time
	config Config
}

// NewFetcher creates a report fetcher.
func NewFetcher(config Config, runner ReportRunner, logger *slog.Logger) (*Fetcher, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Fetcher{
		config: config,
		runner: runner,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Fetch runs one report for the query. A report with no rows yields an empty
// record set, not an error. API errors are returned unchanged in meaning and are
// not retried here.
func (f *Fetcher) Fetch(ctx context.Context, query model.Query) (*model.RecordSet, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	f.logger.Info("fetching report",
		"property", f.config.Property(),
		"date_range", query.DateRange.String(),
		"dimensions", len(query.Dimensions),
		"metrics", len(query.Metrics))

	resp, err := f.runner.RunReport(ctx, f.config.Property(), f.buildRequest(query))
	if err != nil {
		return nil, fmt.Errorf("failed to run report: %w", err)
	}

	f.logQuota(resp)

	set := model.NewRecordSet(query.Schema())
	if resp == nil || len(resp.Rows) == 0 {
		f.logger.Warn("report returned no rows", "date_range", query.DateRange.String())
		return set, nil
	}

	if resp.RowCount > int64(len(resp.Rows)) {
		f.logger.Warn("report truncated",
			"returned", len(resp.Rows),
			"total", resp.RowCount)
	}

	timestamp := f.now().Format(model.TimestampLayout)
	for _, row := range resp.Rows {
		set.Append(f.convertRow(set.Schema, query, row, timestamp))
	}

	f.logger.Info("fetched report rows", "rows", set.Len())
	return set, nil
}

func (f *Fetcher) buildRequest(query model.Query) *analyticsdata.RunReportRequest {
	dimensions := make([]*analyticsdata.Dimension, 0, len(query.Dimensions))
	for _, d := range query.Dimensions {
		dimensions = append(dimensions, &analyticsdata.Dimension{Name: d})
	}

	metrics := make([]*analyticsdata.Metric, 0, len(query.Metrics))
	for _, m := range query.Metrics {
		metrics = append(metrics, &analyticsdata.Metric{Name: m})
	}

	return &analyticsdata.RunReportRequest{
		DateRanges: []*analyticsdata.DateRange{
			{
				StartDate: query.DateRange.Start,
				EndDate:   query.DateRange.End,
			},
		},
		Dimensions:          dimensions,
		Metrics:             metrics,
		KeepEmptyRows:       false,
		ReturnPropertyQuota: true,
		Limit:               f.config.RowLimit,
	}
}

// convertRow maps the parallel dimension/metric value lists of a report row onto
// the schema: metadata first, then dimensions, then metrics.
func (f *Fetcher) convertRow(schema model.Schema, query model.Query, row *analyticsdata.Row, timestamp string) model.Row {
	out := make(model.Row, schema.Len())
	out[0] = timestamp
	out[1] = model.FreshnessLive

	offset := 2
	for i, name := range query.Dimensions {
		if i >= len(row.DimensionValues) || row.DimensionValues[i] == nil {
			continue
		}

		raw := row.DimensionValues[i].Value
		if name == model.ColumnDate {
			out[offset+i] = NormalizeDate(raw)
		} else {
			out[offset+i] = raw
		}
	}

	offset += len(query.Dimensions)
	for j := range query.Metrics {
		raw := ""
		if j < len(row.MetricValues) && row.MetricValues[j] != nil {
			raw = row.MetricValues[j].Value
		}
		out[offset+j] = CoerceValue(schema.Columns[offset+j].Kind, raw)
	}

	return out
}

func (f *Fetcher) logQuota(resp *analyticsdata.RunReportResponse) {
	if resp == nil || resp.PropertyQuota == nil || resp.PropertyQuota.TokensPerDay == nil {
		return
	}

	f.logger.Debug("property quota",
		"tokens_per_day_consumed", resp.PropertyQuota.TokensPerDay.Consumed,
		"tokens_per_day_remaining", resp.PropertyQuota.TokensPerDay.Remaining)
}
