package facecheck

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"testing"
	"time"

	"guardsync/internal/domain/sysconfig"
)

type fakeStore struct {
	mu     sync.Mutex
	seq    int
	checks map[string]*Check
}

func newFakeStore() *fakeStore {
	return &fakeStore{checks: map[string]*Check{}}
}

func (f *fakeStore) add(guardID string, due time.Time, status Status) *Check {
	f.seq++
	id := "chk-" + strconv.Itoa(f.seq)
	c := &Check{ID: id, GuardID: guardID, ScheduledFor: due, RequestedAt: time.Now(), Status: status}
	f.checks[id] = c
	return c
}

func (f *fakeStore) CreateBatch(_ context.Context, guardID string, due []time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range due {
		f.add(guardID, d, StatusPending)
	}
	return nil
}

func (f *fakeStore) CreatePendingIfNone(_ context.Context, guardID string, due time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.checks {
		if c.GuardID == guardID && c.Status == StatusPending {
			return false, nil
		}
	}
	f.add(guardID, due, StatusPending)
	return true, nil
}

func (f *fakeStore) GetByID(_ context.Context, checkID string) (*Check, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.checks[checkID]
	if !ok {
		return nil, ErrCheckNotFound
	}
	copied := *c
	return &copied, nil
}

func (f *fakeStore) PendingDue(_ context.Context, guardID string, now time.Time) ([]Check, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Check
	for _, c := range f.checks {
		if c.GuardID == guardID && c.Status == StatusPending && !c.ScheduledFor.After(now) {
			out = append(out, *c)
		}
	}
	for i := range out {
		for j := i + 1; j < len(out); j++ {
			if out[j].ScheduledFor.Before(out[i].ScheduledFor) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (f *fakeStore) ForGuardOnDate(_ context.Context, guardID, date string) ([]Check, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Check
	for _, c := range f.checks {
		if c.GuardID == guardID && c.ScheduledFor.Format("2006-01-02") == date {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeStore) Complete(_ context.Context, checkID string, to Status, passed bool, completedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.checks[checkID]
	if !ok || c.Status != StatusPending {
		return false, nil
	}
	c.Status = to
	c.Passed = &passed
	c.CompletedAt = &completedAt
	return true, nil
}

func (f *fakeStore) ExpireOverdue(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, c := range f.checks {
		if c.Status == StatusPending && c.ScheduledFor.Before(cutoff) {
			c.Status = StatusExpired
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) ExpireForGuard(_ context.Context, guardID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, c := range f.checks {
		if c.GuardID == guardID && c.Status == StatusPending {
			c.Status = StatusExpired
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) Summary(context.Context, string, string) (Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum Summary
	for _, c := range f.checks {
		sum.Total++
		switch c.Status {
		case StatusPassed:
			sum.Passed++
		case StatusFailed:
			sum.Failed++
		case StatusPending:
			sum.Pending++
		case StatusExpired:
			sum.Expired++
		}
	}
	return sum, nil
}

func (f *fakeStore) DeleteTerminalBefore(context.Context, string, time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeStore) pendingFor(guardID string) []Check {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Check
	for _, c := range f.checks {
		if c.GuardID == guardID && c.Status == StatusPending {
			out = append(out, *c)
		}
	}
	return out
}

type fakeGuards struct {
	mu      sync.Mutex
	records map[string]GuardRecord
}

func (f *fakeGuards) FaceCheckProfile(_ context.Context, guardID string) (GuardRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.records[guardID]
	if !ok {
		return GuardRecord{}, ErrGuardNotFound
	}
	return g, nil
}

func (f *fakeGuards) ClockedInActive(context.Context) ([]GuardRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []GuardRecord
	for _, g := range f.records {
		if g.ClockedIn && g.ApprovalStatus == "active" {
			out = append(out, g)
		}
	}
	return out, nil
}

type fakeShifts struct {
	start, end string
	err        error
}

func (f *fakeShifts) Window(context.Context, string) (string, string, error) {
	return f.start, f.end, f.err
}

type fakeSettings struct{ cfg sysconfig.Settings }

func (f *fakeSettings) Get(context.Context, string) (sysconfig.Settings, error) {
	return f.cfg, nil
}

// alwaysLow makes rng.Float64 return 0, so every opportunistic roll
// lands under the probability threshold.
type alwaysLow struct{}

func (alwaysLow) Int63() int64 { return 0 }
func (alwaysLow) Seed(int64)   {}

func strPtr(s string) *string { return &s }

func template() []float64 {
	v := make([]float64, 128)
	for i := range v {
		v[i] = float64(i) / 128
	}
	return v
}

func newTestService(store *fakeStore, guards *fakeGuards, shifts *fakeShifts, cfg sysconfig.Settings, now func() time.Time) *Service {
	return NewService(store, guards, shifts, &fakeSettings{cfg: cfg},
		WithRand(rand.New(rand.NewSource(7))),
		WithClock(now),
	)
}

func TestScheduleForShiftSplitsWindow(t *testing.T) {
	clockIn := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	store := newFakeStore()
	guards := &fakeGuards{records: map[string]GuardRecord{
		"g1": {ID: "g1", OrgID: "o1", ApprovalStatus: "active", ClockedIn: true, ShiftID: strPtr("sh1"), FaceTemplate: template()},
	}}
	cfg := sysconfig.Settings{FaceChecksPerDayMin: 2, FaceChecksPerDayMax: 2}
	svc := newTestService(store, guards, &fakeShifts{start: "09:00", end: "17:00"}, cfg, func() time.Time { return clockIn })

	if err := svc.ScheduleForShift(context.Background(), "g1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pending := store.pendingFor("g1")
	if len(pending) != 2 {
		t.Fatalf("expected exactly 2 checks, got %d", len(pending))
	}
	if pending[0].ScheduledFor.After(pending[1].ScheduledFor) {
		pending[0], pending[1] = pending[1], pending[0]
	}

	midday := clockIn.Add(4 * time.Hour)
	shiftEnd := clockIn.Add(8 * time.Hour)
	if pending[0].ScheduledFor.Before(clockIn) || !pending[0].ScheduledFor.Before(midday) {
		t.Fatalf("first check %v outside [09:00, 13:00)", pending[0].ScheduledFor)
	}
	if pending[1].ScheduledFor.Before(midday) || !pending[1].ScheduledFor.Before(shiftEnd) {
		t.Fatalf("second check %v outside [13:00, 17:00)", pending[1].ScheduledFor)
	}
	// Edge buffers: min(15m, 20% of 4h) = 15m.
	if pending[0].ScheduledFor.Before(clockIn.Add(15 * time.Minute)) {
		t.Fatalf("first check %v violates leading buffer", pending[0].ScheduledFor)
	}
	if !pending[1].ScheduledFor.Before(shiftEnd.Add(-15 * time.Minute)) {
		t.Fatalf("second check %v violates trailing buffer", pending[1].ScheduledFor)
	}
}

func TestScheduleForShiftDefaultWindowWithoutShift(t *testing.T) {
	clockIn := time.Date(2026, 3, 2, 21, 0, 0, 0, time.UTC)
	store := newFakeStore()
	guards := &fakeGuards{records: map[string]GuardRecord{
		"g1": {ID: "g1", OrgID: "o1", ApprovalStatus: "active", ClockedIn: true},
	}}
	cfg := sysconfig.Settings{FaceChecksPerDayMin: 3, FaceChecksPerDayMax: 3}
	svc := newTestService(store, guards, &fakeShifts{err: errors.New("no shift")}, cfg, func() time.Time { return clockIn })

	if err := svc.ScheduleForShift(context.Background(), "g1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pending := store.pendingFor("g1")
	if len(pending) != 3 {
		t.Fatalf("expected 3 checks, got %d", len(pending))
	}
	windowEnd := clockIn.Add(DefaultShiftDuration)
	for _, c := range pending {
		if c.ScheduledFor.Before(clockIn) || !c.ScheduledFor.Before(windowEnd) {
			t.Fatalf("check %v outside default 8h window", c.ScheduledFor)
		}
	}
}

func TestScheduleForShiftZeroChecksIsNotAnError(t *testing.T) {
	store := newFakeStore()
	guards := &fakeGuards{records: map[string]GuardRecord{
		"g1": {ID: "g1", OrgID: "o1", ApprovalStatus: "active", ClockedIn: true},
	}}
	cfg := sysconfig.Settings{FaceChecksPerDayMin: 0, FaceChecksPerDayMax: 4}
	svc := NewService(store, guards, &fakeShifts{}, &fakeSettings{cfg: cfg},
		WithRand(rand.New(alwaysLow{})), // draws the minimum count, 0
		WithClock(time.Now),
	)

	if err := svc.ScheduleForShift(context.Background(), "g1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(store.pendingFor("g1")); n != 0 {
		t.Fatalf("expected no checks, got %d", n)
	}
}

func TestSubmitResultMatch(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	store := newFakeStore()
	tpl := template()
	guards := &fakeGuards{records: map[string]GuardRecord{
		"g1": {ID: "g1", OrgID: "o1", ApprovalStatus: "active", ClockedIn: true, FaceTemplate: tpl},
	}}
	svc := newTestService(store, guards, &fakeShifts{}, sysconfig.Settings{}, func() time.Time { return now })
	check := store.add("g1", now.Add(-5*time.Minute), StatusPending)

	passed, err := svc.SubmitResult(context.Background(), check.ID, tpl, Actor{ID: "g1", Role: "guard"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !passed {
		t.Fatal("identical sample must pass")
	}
	stored, _ := store.GetByID(context.Background(), check.ID)
	if stored.Status != StatusPassed {
		t.Fatalf("expected passed, got %s", stored.Status)
	}
	if stored.CompletedAt == nil || !stored.CompletedAt.Equal(now) {
		t.Fatalf("expected completedAt %v, got %v", now, stored.CompletedAt)
	}
}

func TestSubmitResultMismatchFails(t *testing.T) {
	store := newFakeStore()
	tpl := template()
	far := make([]float64, len(tpl))
	for i := range far {
		far[i] = tpl[i] + 1
	}
	guards := &fakeGuards{records: map[string]GuardRecord{
		"g1": {ID: "g1", OrgID: "o1", ApprovalStatus: "active", FaceTemplate: tpl},
	}}
	svc := newTestService(store, guards, &fakeShifts{}, sysconfig.Settings{}, time.Now)
	check := store.add("g1", time.Now(), StatusPending)

	passed, err := svc.SubmitResult(context.Background(), check.ID, far, Actor{ID: "g1", Role: "guard"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if passed {
		t.Fatal("distant sample must not pass")
	}
	stored, _ := store.GetByID(context.Background(), check.ID)
	if stored.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", stored.Status)
	}
}

func TestSubmitResultMissingTemplateAlwaysFails(t *testing.T) {
	store := newFakeStore()
	guards := &fakeGuards{records: map[string]GuardRecord{
		"g1": {ID: "g1", OrgID: "o1", ApprovalStatus: "active"},
	}}
	svc := newTestService(store, guards, &fakeShifts{}, sysconfig.Settings{}, time.Now)

	samples := [][]float64{template(), nil}
	for _, sample := range samples {
		check := store.add("g1", time.Now(), StatusPending)
		passed, err := svc.SubmitResult(context.Background(), check.ID, sample, Actor{ID: "g1", Role: "guard"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if passed {
			t.Fatal("unenrolled guard must never pass")
		}
		stored, _ := store.GetByID(context.Background(), check.ID)
		if stored.Status != StatusFailed {
			t.Fatalf("expected failed, got %s", stored.Status)
		}
	}
}

func TestSubmitResultMissingSampleIsRequestError(t *testing.T) {
	store := newFakeStore()
	guards := &fakeGuards{records: map[string]GuardRecord{
		"g1": {ID: "g1", OrgID: "o1", ApprovalStatus: "active", FaceTemplate: template()},
	}}
	svc := newTestService(store, guards, &fakeShifts{}, sysconfig.Settings{}, time.Now)
	check := store.add("g1", time.Now(), StatusPending)

	if _, err := svc.SubmitResult(context.Background(), check.ID, nil, Actor{ID: "g1", Role: "guard"}); !errors.Is(err, ErrNoSample) {
		t.Fatalf("expected ErrNoSample, got %v", err)
	}
	stored, _ := store.GetByID(context.Background(), check.ID)
	if stored.Status != StatusPending {
		t.Fatalf("request error must not touch the check, got %s", stored.Status)
	}
}

func TestSubmitResultErrors(t *testing.T) {
	store := newFakeStore()
	guards := &fakeGuards{records: map[string]GuardRecord{
		"g1": {ID: "g1", OrgID: "o1", ApprovalStatus: "active", FaceTemplate: template()},
	}}
	svc := newTestService(store, guards, &fakeShifts{}, sysconfig.Settings{}, time.Now)

	if _, err := svc.SubmitResult(context.Background(), "missing", template(), Actor{ID: "g1", Role: "guard"}); !errors.Is(err, ErrCheckNotFound) {
		t.Fatalf("expected ErrCheckNotFound, got %v", err)
	}

	other := store.add("g2", time.Now(), StatusPending)
	if _, err := svc.SubmitResult(context.Background(), other.ID, template(), Actor{ID: "g1", Role: "guard"}); !errors.Is(err, ErrNotYourCheck) {
		t.Fatalf("expected ErrNotYourCheck, got %v", err)
	}

	done := store.add("g1", time.Now(), StatusPassed)
	if _, err := svc.SubmitResult(context.Background(), done.ID, template(), Actor{ID: "g1", Role: "guard"}); !errors.Is(err, ErrCheckCompleted) {
		t.Fatalf("expected ErrCheckCompleted on resubmission, got %v", err)
	}
}

func TestSubmitResultStaffMayResolveAnyCheck(t *testing.T) {
	store := newFakeStore()
	tpl := template()
	guards := &fakeGuards{records: map[string]GuardRecord{
		"g1": {ID: "g1", OrgID: "o1", ApprovalStatus: "active", FaceTemplate: tpl},
	}}
	svc := newTestService(store, guards, &fakeShifts{}, sysconfig.Settings{}, time.Now)
	check := store.add("g1", time.Now(), StatusPending)

	if _, err := svc.SubmitResult(context.Background(), check.ID, tpl, Actor{ID: "staff-1", Role: "admin"}); err != nil {
		t.Fatalf("admin submission should succeed, got %v", err)
	}
}

func TestSweepExpiryIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	guards := &fakeGuards{records: map[string]GuardRecord{}}
	svc := newTestService(store, guards, &fakeShifts{}, sysconfig.Settings{}, func() time.Time { return now })

	store.add("g1", now.Add(-20*time.Minute), StatusPending) // overdue
	store.add("g1", now.Add(-10*time.Minute), StatusPending) // inside grace

	first, err := svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Expired != 1 {
		t.Fatalf("expected 1 expiry, got %d", first.Expired)
	}

	second, err := svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Expired != 0 {
		t.Fatalf("second sweep must find nothing, got %d", second.Expired)
	}
}

func TestSweepOpportunisticSkipsGuardsWithPending(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	guards := &fakeGuards{records: map[string]GuardRecord{
		"g1": {ID: "g1", OrgID: "o1", ApprovalStatus: "active", ClockedIn: true, FaceTemplate: template()},
	}}
	svc := NewService(store, guards, &fakeShifts{}, &fakeSettings{},
		WithRand(rand.New(alwaysLow{})),
		WithClock(func() time.Time { return now }),
	)

	store.add("g1", now.Add(-5*time.Minute), StatusPending)

	result, err := svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Scheduled != 0 {
		t.Fatalf("guard with pending check must be skipped, scheduled %d", result.Scheduled)
	}
	if n := len(store.pendingFor("g1")); n != 1 {
		t.Fatalf("expected single pending check, got %d", n)
	}
}

func TestSweepOpportunisticSchedulesImmediateCheck(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	guards := &fakeGuards{records: map[string]GuardRecord{
		"g1": {ID: "g1", OrgID: "o1", ApprovalStatus: "active", ClockedIn: true},
		"g2": {ID: "g2", OrgID: "o1", ApprovalStatus: "pending", ClockedIn: true},
		"g3": {ID: "g3", OrgID: "o1", ApprovalStatus: "active", ClockedIn: false},
	}}
	svc := NewService(store, guards, &fakeShifts{}, &fakeSettings{},
		WithRand(rand.New(alwaysLow{})),
		WithClock(func() time.Time { return now }),
	)

	result, err := svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Scheduled != 1 {
		t.Fatalf("only the clocked-in active guard qualifies, scheduled %d", result.Scheduled)
	}
	pending := store.pendingFor("g1")
	if len(pending) != 1 || !pending[0].ScheduledFor.Equal(now) {
		t.Fatalf("expected one immediate check for g1, got %+v", pending)
	}
}

func TestConcurrentSweepsNeverDuplicatePending(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	guards := &fakeGuards{records: map[string]GuardRecord{
		"g1": {ID: "g1", OrgID: "o1", ApprovalStatus: "active", ClockedIn: true},
	}}
	svc := NewService(store, guards, &fakeShifts{}, &fakeSettings{},
		WithRand(rand.New(alwaysLow{})),
		WithClock(func() time.Time { return now }),
	)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Sweep(context.Background()); err != nil {
				t.Errorf("sweep failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := len(store.pendingFor("g1")); n != 1 {
		t.Fatalf("expected exactly one pending check after concurrent sweeps, got %d", n)
	}
}

func TestPendingOnlyReturnsDueChecks(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	guards := &fakeGuards{records: map[string]GuardRecord{}}
	svc := newTestService(store, guards, &fakeShifts{}, sysconfig.Settings{}, func() time.Time { return now })

	late := store.add("g1", now.Add(-30*time.Minute), StatusPending)
	early := store.add("g1", now.Add(-5*time.Minute), StatusPending)
	store.add("g1", now.Add(2*time.Hour), StatusPending) // not yet due
	store.add("g1", now.Add(-time.Hour), StatusPassed)   // terminal

	due, err := svc.Pending(context.Background(), "g1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("expected 2 due checks, got %d", len(due))
	}
	if due[0].ID != late.ID || due[1].ID != early.ID {
		t.Fatalf("expected earliest-first ordering, got %s then %s", due[0].ID, due[1].ID)
	}
}

func TestClockOutJourneyExpiresSecondCheck(t *testing.T) {
	clockIn := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	current := clockIn
	store := newFakeStore()
	tpl := template()
	guards := &fakeGuards{records: map[string]GuardRecord{
		"g1": {ID: "g1", OrgID: "o1", ApprovalStatus: "active", ClockedIn: true, ShiftID: strPtr("sh1"), FaceTemplate: tpl},
	}}
	cfg := sysconfig.Settings{FaceChecksPerDayMin: 2, FaceChecksPerDayMax: 2}
	svc := newTestService(store, guards, &fakeShifts{start: "09:00", end: "17:00"}, cfg, func() time.Time { return current })

	if err := svc.ScheduleForShift(context.Background(), "g1"); err != nil {
		t.Fatalf("schedule failed: %v", err)
	}
	pending := store.pendingFor("g1")
	if len(pending) != 2 {
		t.Fatalf("expected 2 checks, got %d", len(pending))
	}
	first := pending[0]
	if pending[1].ScheduledFor.Before(first.ScheduledFor) {
		first = pending[1]
	}

	current = clockIn.Add(time.Hour) // 10:00
	passed, err := svc.SubmitResult(context.Background(), first.ID, tpl, Actor{ID: "g1", Role: "guard"})
	if err != nil || !passed {
		t.Fatalf("expected pass, got passed=%v err=%v", passed, err)
	}
	if n := len(store.pendingFor("g1")); n != 1 {
		t.Fatalf("expected 1 remaining pending check, got %d", n)
	}

	current = clockIn.Add(2 * time.Hour) // 11:00 clock-out
	expired, err := svc.ExpireForGuard(context.Background(), "g1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expected 1 expiry at clock-out, got %d", expired)
	}
	if n := len(store.pendingFor("g1")); n != 0 {
		t.Fatalf("expected no pending checks after clock-out, got %d", n)
	}
}
