package database

import (
	"fmt"
	"time"
)

// TimeLayout is the fixed-width UTC layout used for every timestamp column.
// Fixed width keeps lexical ORDER BY equal to chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// FormatTime renders t in TimeLayout (converted to UTC).
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a timestamp column. Plain RFC3339 values written by
// hand or by older rows are accepted too.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(TimeLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// NullableString maps "" to SQL NULL for optional TEXT columns.
func NullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
