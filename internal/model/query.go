package model

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Query validation errors.
var (
	ErrInvalidDateRange = errors.New("invalid date range")
	ErrNoDimensions     = errors.New("at least one dimension is required")
	ErrNoMetrics        = errors.New("at least one metric is required")
)

var daysAgoPattern = regexp.MustCompile(`^[0-9]+daysAgo$`)

// DateRange is an inclusive report range. Each endpoint is "today", "yesterday",
// "NdaysAgo" or an explicit YYYY-MM-DD date.
type DateRange struct {
	Start string
	End   string
}

// Validate checks that both endpoints are in a form the reporting API accepts.
func (d DateRange) Validate() error {
	if err := validateEndpoint(d.Start); err != nil {
		return fmt.Errorf("%w: start %q: %v", ErrInvalidDateRange, d.Start, err)
	}
	if err := validateEndpoint(d.End); err != nil {
		return fmt.Errorf("%w: end %q: %v", ErrInvalidDateRange, d.End, err)
	}

	// Explicit dates can be ordered without asking the API.
	start, startErr := time.Parse(DateLayout, d.Start)
	end, endErr := time.Parse(DateLayout, d.End)
	if startErr == nil && endErr == nil && end.Before(start) {
		return fmt.Errorf("%w: end %s is before start %s", ErrInvalidDateRange, d.End, d.Start)
	}

	return nil
}

// String renders the range for logs.
func (d DateRange) String() string {
	return d.Start + " to " + d.End
}

func validateEndpoint(v string) error {
	switch {
	case v == "":
		return errors.New("empty")
	case v == "today", v == "yesterday":
		return nil
	case daysAgoPattern.MatchString(v):
		return nil
	}

	if _, err := time.Parse(DateLayout, v); err != nil {
		return errors.New("expected today, yesterday, NdaysAgo or YYYY-MM-DD")
	}
	return nil
}

// Query describes one report request.
type Query struct {
	DateRange    DateRange
	Dimensions   []string
	Metrics      []string
	RatioMetrics []string
}

// Validate checks the query before any network call.
func (q Query) Validate() error {
	if len(nonEmpty(q.Dimensions)) == 0 {
		return ErrNoDimensions
	}
	if len(nonEmpty(q.Metrics)) == 0 {
		return ErrNoMetrics
	}
	return q.DateRange.Validate()
}

// Schema returns the record set layout the query produces.
func (q Query) Schema() Schema {
	return NewSchema(q.Dimensions, q.Metrics, q.RatioMetrics)
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
