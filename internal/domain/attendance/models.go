package attendance

import "time"

// Record is one clock-in/clock-out pair. HoursWorked is filled when
// the record closes.
type Record struct {
	ID          string     `json:"id"`
	GuardID     string     `json:"guardId"`
	GuardName   string     `json:"guardName,omitempty"`
	ClockIn     time.Time  `json:"clockIn"`
	ClockOut    *time.Time `json:"clockOut,omitempty"`
	HoursWorked *float64   `json:"hoursWorked,omitempty"`
	Date        time.Time  `json:"date"`
}
