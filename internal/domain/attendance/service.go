// Package attendance tracks guard clock-in and clock-out. Clocking in
// triggers the shift's face-check schedule; clocking out expires
// whatever checks remain pending.
package attendance

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"guardsync/internal/domain/guards"
)

var (
	ErrAlreadyClockedIn = errors.New("guard is already clocked in")
	ErrNotClockedIn     = errors.New("guard is not clocked in")
	ErrGuardNotActive   = errors.New("guard is not active")
)

// StoreAPI is the persistence subset the service drives.
type StoreAPI interface {
	Open(ctx context.Context, guardID string, now time.Time) (Record, error)
	CloseOpen(ctx context.Context, guardID string, now time.Time) (Record, bool, error)
	ForGuard(ctx context.Context, guardID string, from, to string) ([]Record, error)
	ForOrg(ctx context.Context, orgID string, from, to string) ([]Record, error)
}

// GuardState reads and flips a guard's on-duty flag.
type GuardState interface {
	GetByID(ctx context.Context, guardID string) (guards.Guard, error)
	SetClockedIn(ctx context.Context, guardID string, clockedIn bool) error
}

// CheckScheduler hooks the face-check lifecycle into shift boundaries.
type CheckScheduler interface {
	ScheduleForShift(ctx context.Context, guardID string) error
	ExpireForGuard(ctx context.Context, guardID string) (int64, error)
}

type Service struct {
	store  StoreAPI
	guards GuardState
	checks CheckScheduler
	now    func() time.Time
}

func NewService(store StoreAPI, guardState GuardState, checks CheckScheduler) *Service {
	return &Service{store: store, guards: guardState, checks: checks, now: time.Now}
}

// ClockIn opens an attendance record and schedules the shift's face
// checks. Scheduling failures are logged, not returned: a guard must
// never be unable to start a shift because check planning failed.
func (s *Service) ClockIn(ctx context.Context, guardID string) (Record, error) {
	g, err := s.guards.GetByID(ctx, guardID)
	if err != nil {
		return Record{}, err
	}
	if g.ApprovalStatus != guards.ApprovalActive {
		return Record{}, ErrGuardNotActive
	}
	if g.ClockedIn {
		return Record{}, ErrAlreadyClockedIn
	}

	rec, err := s.store.Open(ctx, guardID, s.now())
	if err != nil {
		return Record{}, err
	}
	if err := s.guards.SetClockedIn(ctx, guardID, true); err != nil {
		return Record{}, err
	}

	if err := s.checks.ScheduleForShift(ctx, guardID); err != nil {
		slog.Warn("face check scheduling failed at clock-in", "guardId", guardID, "err", err)
	}
	slog.Info("guard clocked in", "guardId", guardID, "recordId", rec.ID)
	return rec, nil
}

// ClockOut closes the guard's open record and expires their pending
// face checks immediately.
func (s *Service) ClockOut(ctx context.Context, guardID string) (Record, error) {
	g, err := s.guards.GetByID(ctx, guardID)
	if err != nil {
		return Record{}, err
	}
	if !g.ClockedIn {
		return Record{}, ErrNotClockedIn
	}

	rec, closed, err := s.store.CloseOpen(ctx, guardID, s.now())
	if err != nil {
		return Record{}, err
	}
	if !closed {
		// Flag said on duty but no open record exists; heal the flag.
		if err := s.guards.SetClockedIn(ctx, guardID, false); err != nil {
			return Record{}, err
		}
		return Record{}, ErrNotClockedIn
	}
	if err := s.guards.SetClockedIn(ctx, guardID, false); err != nil {
		return Record{}, err
	}

	if _, err := s.checks.ExpireForGuard(ctx, guardID); err != nil {
		slog.Warn("face check expiry failed at clock-out", "guardId", guardID, "err", err)
	}
	slog.Info("guard clocked out", "guardId", guardID, "recordId", rec.ID)
	return rec, nil
}

func (s *Service) ForGuard(ctx context.Context, guardID, from, to string) ([]Record, error) {
	return s.store.ForGuard(ctx, guardID, from, to)
}

func (s *Service) ForOrg(ctx context.Context, orgID, from, to string) ([]Record, error) {
	return s.store.ForOrg(ctx, orgID, from, to)
}

// WriteCSV streams an organization's attendance in CSV form.
func (s *Service) WriteCSV(ctx context.Context, w io.Writer, orgID, from, to string) error {
	records, err := s.store.ForOrg(ctx, orgID, from, to)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "guard", "clockIn", "clockOut", "hoursWorked"}); err != nil {
		return err
	}
	for _, rec := range records {
		clockOut := ""
		if rec.ClockOut != nil {
			clockOut = rec.ClockOut.UTC().Format(time.RFC3339)
		}
		hours := ""
		if rec.HoursWorked != nil {
			hours = strconv.FormatFloat(*rec.HoursWorked, 'f', 2, 64)
		}
		row := []string{
			rec.Date.Format("2006-01-02"),
			rec.GuardName,
			rec.ClockIn.UTC().Format(time.RFC3339),
			clockOut,
			hours,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
