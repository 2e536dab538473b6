package tracker

import (
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

var dueDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	DateLayout,
}

// ParseDueDate accepts RFC 3339 timestamps, local date-times from a datetime-local
// input, and bare dates. Values without an offset are read in loc.
func ParseDueDate(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, &ValidationError{Field: "due_date", Message: "due date is required"}
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &ValidationError{Field: "due_date", Message: "due date must be an ISO-8601 date or timestamp"}
}
