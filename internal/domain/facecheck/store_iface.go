package facecheck

import (
	"context"
	"time"

	"guardsync/internal/domain/sysconfig"
)

// StoreAPI is the persistence contract for face checks.
type StoreAPI interface {
	// CreateBatch inserts one pending check per due time.
	CreateBatch(ctx context.Context, guardID string, due []time.Time) error
	// CreatePendingIfNone inserts a pending check only when the guard
	// has no other pending check, atomically, and reports whether a
	// row was created.
	CreatePendingIfNone(ctx context.Context, guardID string, due time.Time) (bool, error)
	GetByID(ctx context.Context, checkID string) (*Check, error)
	// PendingDue lists the guard's pending checks with scheduledFor <=
	// now, earliest first. This is the guard app's polling contract.
	PendingDue(ctx context.Context, guardID string, now time.Time) ([]Check, error)
	// ForGuardOnDate lists all of a guard's checks scheduled on a
	// calendar date (YYYY-MM-DD).
	ForGuardOnDate(ctx context.Context, guardID, date string) ([]Check, error)
	// Complete moves a pending check to a terminal status and reports
	// whether the row was still pending. A false return means another
	// submission or the sweep won the race.
	Complete(ctx context.Context, checkID string, to Status, passed bool, completedAt time.Time) (bool, error)
	// ExpireOverdue expires every pending check scheduled before the
	// cutoff and returns how many rows transitioned.
	ExpireOverdue(ctx context.Context, cutoff time.Time) (int64, error)
	// ExpireForGuard expires all of one guard's pending checks.
	ExpireForGuard(ctx context.Context, guardID string) (int64, error)
	Summary(ctx context.Context, orgID, date string) (Summary, error)
	DeleteTerminalBefore(ctx context.Context, orgID string, cutoff time.Time) (int64, error)
}

// GuardRecord is the slice of a guard the face-check subsystem needs.
type GuardRecord struct {
	ID             string
	OrgID          string
	ApprovalStatus string
	ClockedIn      bool
	ShiftID        *string
	FaceTemplate   []float64
}

// GuardSource resolves guard records for scheduling and verification.
type GuardSource interface {
	FaceCheckProfile(ctx context.Context, guardID string) (GuardRecord, error)
	// ClockedInActive lists every clocked-in guard in active approval
	// state, across all organizations; the sweep samples from it.
	ClockedInActive(ctx context.Context) ([]GuardRecord, error)
}

// ShiftSource resolves a shift's HH:MM start and end times.
type ShiftSource interface {
	Window(ctx context.Context, shiftID string) (start, end string, err error)
}

// SettingsSource resolves per-organization tuning.
type SettingsSource interface {
	Get(ctx context.Context, orgID string) (sysconfig.Settings, error)
}
