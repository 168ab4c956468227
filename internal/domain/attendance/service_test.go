package attendance

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"guardsync/internal/domain/guards"
)

type fakeStore struct {
	open    map[string]*Record
	closed  []Record
	seq     int
	forOrg  []Record
	failing bool
}

func (f *fakeStore) Open(_ context.Context, guardID string, now time.Time) (Record, error) {
	if f.failing {
		return Record{}, errors.New("insert failed")
	}
	f.seq++
	rec := Record{ID: "att-" + guardID, GuardID: guardID, ClockIn: now, Date: now.Truncate(24 * time.Hour)}
	if f.open == nil {
		f.open = map[string]*Record{}
	}
	f.open[guardID] = &rec
	return rec, nil
}

func (f *fakeStore) CloseOpen(_ context.Context, guardID string, now time.Time) (Record, bool, error) {
	rec, ok := f.open[guardID]
	if !ok {
		return Record{}, false, nil
	}
	delete(f.open, guardID)
	hours := now.Sub(rec.ClockIn).Hours()
	rec.ClockOut = &now
	rec.HoursWorked = &hours
	f.closed = append(f.closed, *rec)
	return *rec, true, nil
}

func (f *fakeStore) ForGuard(context.Context, string, string, string) ([]Record, error) {
	return f.closed, nil
}

func (f *fakeStore) ForOrg(context.Context, string, string, string) ([]Record, error) {
	return f.forOrg, nil
}

type fakeGuardState struct {
	guards map[string]*guards.Guard
}

func (f *fakeGuardState) GetByID(_ context.Context, id string) (guards.Guard, error) {
	g, ok := f.guards[id]
	if !ok {
		return guards.Guard{}, guards.ErrGuardNotFound
	}
	return *g, nil
}

func (f *fakeGuardState) SetClockedIn(_ context.Context, id string, clockedIn bool) error {
	g, ok := f.guards[id]
	if !ok {
		return guards.ErrGuardNotFound
	}
	g.ClockedIn = clockedIn
	return nil
}

type fakeChecks struct {
	scheduled   []string
	expired     []string
	scheduleErr error
}

func (f *fakeChecks) ScheduleForShift(_ context.Context, guardID string) error {
	if f.scheduleErr != nil {
		return f.scheduleErr
	}
	f.scheduled = append(f.scheduled, guardID)
	return nil
}

func (f *fakeChecks) ExpireForGuard(_ context.Context, guardID string) (int64, error) {
	f.expired = append(f.expired, guardID)
	return 1, nil
}

func activeGuard(id string) *guards.Guard {
	return &guards.Guard{ID: id, OrgID: "o1", ApprovalStatus: guards.ApprovalActive}
}

func TestClockInSchedulesChecks(t *testing.T) {
	store := &fakeStore{}
	state := &fakeGuardState{guards: map[string]*guards.Guard{"g1": activeGuard("g1")}}
	checks := &fakeChecks{}
	svc := NewService(store, state, checks)

	rec, err := svc.ClockIn(context.Background(), "g1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.GuardID != "g1" {
		t.Fatalf("wrong record: %+v", rec)
	}
	if !state.guards["g1"].ClockedIn {
		t.Fatal("clocked_in flag not set")
	}
	if len(checks.scheduled) != 1 {
		t.Fatalf("expected one schedule call, got %d", len(checks.scheduled))
	}
}

func TestClockInRejectsDoubleAndInactive(t *testing.T) {
	store := &fakeStore{}
	g := activeGuard("g1")
	g.ClockedIn = true
	state := &fakeGuardState{guards: map[string]*guards.Guard{
		"g1": g,
		"g2": {ID: "g2", OrgID: "o1", ApprovalStatus: guards.ApprovalPending},
	}}
	svc := NewService(store, state, &fakeChecks{})

	if _, err := svc.ClockIn(context.Background(), "g1"); !errors.Is(err, ErrAlreadyClockedIn) {
		t.Fatalf("expected ErrAlreadyClockedIn, got %v", err)
	}
	if _, err := svc.ClockIn(context.Background(), "g2"); !errors.Is(err, ErrGuardNotActive) {
		t.Fatalf("expected ErrGuardNotActive, got %v", err)
	}
}

func TestClockInSurvivesSchedulerFailure(t *testing.T) {
	store := &fakeStore{}
	state := &fakeGuardState{guards: map[string]*guards.Guard{"g1": activeGuard("g1")}}
	checks := &fakeChecks{scheduleErr: errors.New("db down")}
	svc := NewService(store, state, checks)

	if _, err := svc.ClockIn(context.Background(), "g1"); err != nil {
		t.Fatalf("clock-in must not fail on scheduler error, got %v", err)
	}
	if !state.guards["g1"].ClockedIn {
		t.Fatal("clocked_in flag not set")
	}
}

func TestClockOutClosesRecordAndExpiresChecks(t *testing.T) {
	store := &fakeStore{}
	state := &fakeGuardState{guards: map[string]*guards.Guard{"g1": activeGuard("g1")}}
	checks := &fakeChecks{}
	svc := NewService(store, state, checks)

	if _, err := svc.ClockIn(context.Background(), "g1"); err != nil {
		t.Fatalf("clock-in failed: %v", err)
	}
	rec, err := svc.ClockOut(context.Background(), "g1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ClockOut == nil || rec.HoursWorked == nil {
		t.Fatalf("record not closed: %+v", rec)
	}
	if state.guards["g1"].ClockedIn {
		t.Fatal("clocked_in flag still set")
	}
	if len(checks.expired) != 1 {
		t.Fatalf("expected one expiry call, got %d", len(checks.expired))
	}
}

func TestClockOutWithoutClockIn(t *testing.T) {
	store := &fakeStore{}
	state := &fakeGuardState{guards: map[string]*guards.Guard{"g1": activeGuard("g1")}}
	svc := NewService(store, state, &fakeChecks{})

	if _, err := svc.ClockOut(context.Background(), "g1"); !errors.Is(err, ErrNotClockedIn) {
		t.Fatalf("expected ErrNotClockedIn, got %v", err)
	}
}

func TestClockOutHealsStaleFlag(t *testing.T) {
	// clocked_in true but no open record; clock-out should clear the
	// flag and still report not clocked in.
	store := &fakeStore{}
	g := activeGuard("g1")
	g.ClockedIn = true
	state := &fakeGuardState{guards: map[string]*guards.Guard{"g1": g}}
	svc := NewService(store, state, &fakeChecks{})

	if _, err := svc.ClockOut(context.Background(), "g1"); !errors.Is(err, ErrNotClockedIn) {
		t.Fatalf("expected ErrNotClockedIn, got %v", err)
	}
	if state.guards["g1"].ClockedIn {
		t.Fatal("stale flag not cleared")
	}
}

func TestWriteCSV(t *testing.T) {
	out := time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC)
	hours := 8.0
	store := &fakeStore{forOrg: []Record{{
		ID:          "a1",
		GuardID:     "g1",
		GuardName:   "Dana",
		ClockIn:     time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		ClockOut:    &out,
		HoursWorked: &hours,
		Date:        time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	}}}
	svc := NewService(store, &fakeGuardState{}, &fakeChecks{})

	var buf bytes.Buffer
	if err := svc.WriteCSV(context.Background(), &buf, "o1", "", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	if lines[0] != "date,guard,clockIn,clockOut,hoursWorked" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if !strings.Contains(lines[1], "Dana") || !strings.Contains(lines[1], "8.00") {
		t.Fatalf("unexpected row %q", lines[1])
	}
}
