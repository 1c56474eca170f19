package utils

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-day format accepted by query parameters
const DateLayout = "2006-01-02"

// ParseDate reads a calendar day (YYYY-MM-DD) or an RFC 3339 timestamp and
// returns local midnight of that day
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.ParseInLocation(DateLayout, value, time.Local); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		local := t.In(time.Local)
		y, m, d := local.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.Local), nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
}

// ParseOptionalDate is ParseDate that returns nil for an empty value
func ParseOptionalDate(value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	t, err := ParseDate(value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
