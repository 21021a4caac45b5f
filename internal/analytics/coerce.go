package analytics

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/ga4sync/internal/model"
)

const (
	ratioPlaces   = 4
	compactLayout = "20060102"
)

// CoerceValue converts a raw report string into the typed value for the column kind.
func CoerceValue(kind model.ColumnKind, raw string) any {
	switch kind {
	case model.KindCount:
		return ParseCount(raw)
	case model.KindRatio:
		return ParseRatio(raw)
	default:
		return raw
	}
}

// ParseCount parses an integer metric. Fractional values are rounded to the
// nearest integer; missing, unparseable, non-finite and negative values become 0.
func ParseCount(raw string) int64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0
		}
		return n
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f >= math.MaxInt64 {
		return 0
	}
	return int64(math.Round(f))
}

// ParseRatio parses a ratio or duration metric rounded to four decimal places.
// Unparseable values become 0.
func ParseRatio(raw string) float64 {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}

	f, _ := d.Round(ratioPlaces).Float64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// NormalizeDate converts a compact YYYYMMDD report date into YYYY-MM-DD.
// Unparseable dates return nil.
func NormalizeDate(raw string) any {
	t, err := time.Parse(compactLayout, strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	return t.Format(model.DateLayout)
}
