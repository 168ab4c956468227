package shared

import "time"

// ParseDate reads a date query value. Plain YYYY-MM-DD is the common
// case; a full RFC3339 timestamp is also accepted. Empty input yields
// the zero time with no error so optional filters stay optional.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse("2006-01-02", value); err == nil {
		return parsed, nil
	}
	return time.Parse(time.RFC3339, value)
}
