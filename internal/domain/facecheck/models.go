package facecheck

import "time"

// Status is the lifecycle state of a face check. Checks start pending
// and move to exactly one terminal state.
type Status string

const (
	StatusPending Status = "pending"
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusExpired Status = "expired"
)

// Terminal reports whether a status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusPassed || s == StatusFailed || s == StatusExpired
}

// CanTransition reports whether from→to is a legal lifecycle move.
// The only legal moves are pending→passed, pending→failed and
// pending→expired.
func CanTransition(from, to Status) bool {
	return from == StatusPending && to.Terminal()
}

// Check is one scheduled liveness verification a guard must complete
// while on duty.
type Check struct {
	ID           string     `json:"id"`
	GuardID      string     `json:"guardId"`
	ScheduledFor time.Time  `json:"scheduledFor"`
	RequestedAt  time.Time  `json:"requestedAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	Status       Status     `json:"status"`
	Passed       *bool      `json:"passed,omitempty"`
}

// Summary is the per-day aggregate exposed to admin dashboards.
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Pending int `json:"pending"`
	Expired int `json:"expired"`
}

// Actor identifies the caller submitting a check result. Guards may
// only resolve their own checks; staff and admin may resolve any.
type Actor struct {
	ID   string
	Role string
}
