package guards

import "time"

const (
	ApprovalPending  = "pending"
	ApprovalActive   = "active"
	ApprovalRejected = "rejected"
	ApprovalInactive = "inactive"
)

type Guard struct {
	ID             string     `json:"id"`
	OrgID          string     `json:"orgId"`
	SiteID         *string    `json:"siteId,omitempty"`
	ShiftID        *string    `json:"shiftId,omitempty"`
	Name           string     `json:"name"`
	Phone          string     `json:"phone"`
	Email          *string    `json:"email,omitempty"`
	PasswordHash   string     `json:"-"`
	ApprovalStatus string     `json:"approvalStatus"`
	ClockedIn      bool       `json:"clockedIn"`
	ClockInTime    *time.Time `json:"clockInTime,omitempty"`
	DailyRate      float64    `json:"dailyRate"`
	FaceEnrolledAt *time.Time `json:"faceEnrolledAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// Assignment is the posting a guard receives at approval: where they
// work, which window, and what they earn per day.
type Assignment struct {
	SiteID    string  `json:"siteId"`
	ShiftID   string  `json:"shiftId"`
	DailyRate float64 `json:"dailyRate"`
}

// Patch carries the fields staff may change on a guard; nil means
// leave unchanged.
type Patch struct {
	Name      *string  `json:"name"`
	SiteID    *string  `json:"siteId"`
	ShiftID   *string  `json:"shiftId"`
	DailyRate *float64 `json:"dailyRate"`
}
