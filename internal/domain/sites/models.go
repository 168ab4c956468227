package sites

import (
	"fmt"
	"time"
)

type Site struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"orgId"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Lat       *float64  `json:"lat,omitempty"`
	Lng       *float64  `json:"lng,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Shift is a named HH:MM window attached to a site. An end time-of-day
// earlier than the start means the shift crosses midnight. DaysOfWeek
// lists the applicable weekdays, 0 for Sunday through 6 for Saturday;
// an empty list means the window applies every day.
type Shift struct {
	ID         string    `json:"id"`
	SiteID     string    `json:"siteId"`
	Name       string    `json:"name"`
	StartTime  string    `json:"startTime"`
	EndTime    string    `json:"endTime"`
	DaysOfWeek []int     `json:"daysOfWeek"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ValidateClock rejects anything that is not a 24h HH:MM value.
func ValidateClock(value string) error {
	if _, err := time.Parse("15:04", value); err != nil {
		return fmt.Errorf("invalid HH:MM value %q", value)
	}
	return nil
}

// ValidateDays rejects weekday numbers outside 0 (Sunday) through
// 6 (Saturday) and duplicates.
func ValidateDays(days []int) error {
	var seen [7]bool
	for _, d := range days {
		if d < 0 || d > 6 {
			return fmt.Errorf("invalid weekday %d", d)
		}
		if seen[d] {
			return fmt.Errorf("duplicate weekday %d", d)
		}
		seen[d] = true
	}
	return nil
}
