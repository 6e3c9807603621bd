package time_parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// ParseTimestamp reads a user supplied instant and returns it in UTC.
// Accepts RFC3339, zone-less ISO forms (read as UTC), plain dates and unix
// seconds or milliseconds.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("timestamp is empty")
	}

	if unix, err := strconv.ParseInt(value, 10, 64); err == nil {
		// anything past 1e12 cannot be seconds in this century
		if unix > 1e12 {
			return time.UnixMilli(unix).UTC(), nil
		}

		return time.Unix(unix, 0).UTC(), nil
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unsupported timestamp %q", value)
}

// ParseOptionalTimestamp is ParseTimestamp for optional flags: empty input
// yields nil.
func ParseOptionalTimestamp(value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	t, err := ParseTimestamp(value)
	if err != nil {
		return nil, err
	}

	return &t, nil
}
