package payroll

import (
	"errors"
	"time"
)

const (
	StatusDraft    = "draft"
	StatusApproved = "approved"
	StatusPaid     = "paid"
)

var (
	ErrEntryNotFound = errors.New("payroll entry not found")
	ErrBadTransition = errors.New("invalid payroll status transition")
	ErrBadPeriod     = errors.New("invalid payroll period")
)

// Entry is one guard's pay for one calendar month: distinct days with
// a completed shift times the guard's daily rate.
type Entry struct {
	ID          string    `json:"id"`
	GuardID     string    `json:"guardId"`
	GuardName   string    `json:"guardName,omitempty"`
	Month       int       `json:"month"`
	Year        int       `json:"year"`
	DaysWorked  int       `json:"daysWorked"`
	DailyRate   float64   `json:"dailyRate"`
	Total       float64   `json:"total"`
	Status      string    `json:"status"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// CanTransition permits only the forward path draft, approved, paid.
func CanTransition(from, to string) bool {
	switch from {
	case StatusDraft:
		return to == StatusApproved
	case StatusApproved:
		return to == StatusPaid
	default:
		return false
	}
}
