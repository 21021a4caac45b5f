package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/ga4sync/internal/common"
	"github.com/Veraticus/ga4sync/internal/model"
)

// Default report fields.
var (
	DefaultDimensions = []string{"date", "country", "deviceCategory", "sessionSource", "sessionMedium"}
	DefaultMetrics    = []string{
		"sessions", "totalUsers", "newUsers", "bounceRate",
		"averageSessionDuration", "screenPageViews", "conversions", "totalRevenue",
	}
	DefaultCredentialPaths = []string{
		"credentials.json",
		"service_account.json",
		DefaultConfigDir + "/credentials.json",
	}
)

// DefaultCredentialsEnv is the environment variable holding the service
// account key JSON. It is checked before any credential file.
const DefaultCredentialsEnv = "GOOGLE_CREDENTIALS_JSON"

// envBindings maps config keys to the environment variables read for them,
// first set wins.
var envBindings = map[string][]string{
	"analytics.property_id":   {"GA4_PROPERTY_ID", "GA4SYNC_ANALYTICS_PROPERTY_ID"},
	"sheets.spreadsheet_id":   {"GOOGLE_SHEET_ID", "GA4SYNC_SHEETS_SPREADSHEET_ID"},
	"sheets.worksheet":        {"GOOGLE_WORKSHEET_NAME", "GA4SYNC_SHEETS_WORKSHEET"},
	"sync.start_date":         {"GA4_START_DATE", "GA4SYNC_SYNC_START_DATE"},
	"sync.end_date":           {"GA4_END_DATE", "GA4SYNC_SYNC_END_DATE"},
	"analytics.dimensions":    {"GA4_DIMENSIONS", "GA4SYNC_ANALYTICS_DIMENSIONS"},
	"analytics.metrics":       {"GA4_METRICS", "GA4SYNC_ANALYTICS_METRICS"},
	"analytics.ratio_metrics": {"GA4_RATIO_METRICS", "GA4SYNC_ANALYTICS_RATIO_METRICS"},
	"analytics.row_limit":     {"GA4SYNC_ANALYTICS_ROW_LIMIT"},
	"sync.interval":           {"GA4SYNC_SYNC_INTERVAL"},
	"history.path":            {"GA4SYNC_HISTORY_PATH"},
	"history.enabled":         {"GA4SYNC_HISTORY_ENABLED"},
	"export.xlsx":             {"GA4SYNC_EXPORT_XLSX"},
	"status.listen":           {"GA4SYNC_STATUS_LISTEN"},
}

// SyncConfig is the resolved configuration for a sync run.
type SyncConfig struct {
	PropertyID       string
	SpreadsheetID    string
	Worksheet        string
	StartDate        string
	EndDate          string
	CredentialsEnv   string
	HistoryPath      string
	ExportXLSX       string
	StatusListen     string
	Dimensions       []string
	Metrics          []string
	RatioMetrics     []string
	CredentialsPaths []string
	RowLimit         int64
	Interval         time.Duration
	HistoryEnabled   bool
}

// SetDefaults registers default values for every sync key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("sheets.worksheet", "")
	v.SetDefault("sync.start_date", "today")
	v.SetDefault("sync.end_date", "today")
	v.SetDefault("sync.interval", "60m")
	v.SetDefault("analytics.dimensions", DefaultDimensions)
	v.SetDefault("analytics.metrics", DefaultMetrics)
	v.SetDefault("analytics.ratio_metrics", model.DefaultRatioMetrics)
	v.SetDefault("analytics.row_limit", 0)
	v.SetDefault("credentials.env", DefaultCredentialsEnv)
	v.SetDefault("credentials.paths", DefaultCredentialPaths)
	v.SetDefault("history.path", DefaultHistoryPath)
	v.SetDefault("history.enabled", true)
	v.SetDefault("export.xlsx", "")
	v.SetDefault("status.listen", "")
}

// BindEnv binds the documented environment variables to their config keys.
func BindEnv(v *viper.Viper) error {
	for key, names := range envBindings {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("failed to bind environment for %s: %w", key, err)
		}
	}
	return nil
}

// LoadSyncConfig resolves and validates the sync configuration.
func LoadSyncConfig(v *viper.Viper) (*SyncConfig, error) {
	cfg := &SyncConfig{
		PropertyID:       strings.TrimSpace(v.GetString("analytics.property_id")),
		SpreadsheetID:    strings.TrimSpace(v.GetString("sheets.spreadsheet_id")),
		Worksheet:        v.GetString("sheets.worksheet"),
		StartDate:        strings.TrimSpace(v.GetString("sync.start_date")),
		EndDate:          strings.TrimSpace(v.GetString("sync.end_date")),
		Dimensions:       stringList(v, "analytics.dimensions"),
		Metrics:          stringList(v, "analytics.metrics"),
		RatioMetrics:     stringList(v, "analytics.ratio_metrics"),
		RowLimit:         v.GetInt64("analytics.row_limit"),
		Interval:         v.GetDuration("sync.interval"),
		CredentialsEnv:   v.GetString("credentials.env"),
		CredentialsPaths: stringList(v, "credentials.paths"),
		HistoryEnabled:   v.GetBool("history.enabled"),
		HistoryPath:      ExpandPath(v.GetString("history.path")),
		ExportXLSX:       ExpandPath(v.GetString("export.xlsx")),
		StatusListen:     v.GetString("status.listen"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration before any network call.
func (c *SyncConfig) Validate() error {
	if c.PropertyID == "" {
		return fmt.Errorf("%w: analytics property ID (GA4_PROPERTY_ID)", common.ErrMissingConfig)
	}
	if c.SpreadsheetID == "" {
		return fmt.Errorf("%w: spreadsheet ID (GOOGLE_SHEET_ID)", common.ErrMissingConfig)
	}
	if c.RowLimit < 0 {
		return fmt.Errorf("%w: row limit cannot be negative", common.ErrInvalidConfig)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("%w: sync interval must be positive", common.ErrInvalidConfig)
	}
	if c.HistoryEnabled && c.HistoryPath == "" {
		return fmt.Errorf("%w: history path is required when history is enabled", common.ErrInvalidConfig)
	}
	if err := c.Query().Validate(); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	return nil
}

// Query returns the report query described by the configuration.
func (c *SyncConfig) Query() model.Query {
	return model.Query{
		DateRange:    model.DateRange{Start: c.StartDate, End: c.EndDate},
		Dimensions:   c.Dimensions,
		Metrics:      c.Metrics,
		RatioMetrics: c.RatioMetrics,
	}
}

// stringList reads a list that may be configured as a YAML sequence or as a
// comma-separated string from the environment.
func stringList(v *viper.Viper, key string) []string {
	var raw []string
	switch val := v.Get(key).(type) {
	case nil:
		return nil
	case string:
		raw = strings.Split(val, ",")
	default:
		raw = v.GetStringSlice(key)
	}

	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
