package facecheck

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"guardsync/internal/face"
	"guardsync/internal/platform/metrics"
)

// Service owns the face-check lifecycle: shift scheduling at clock-in,
// result verification, expiry, and opportunistic spot checks.
type Service struct {
	store    StoreAPI
	guards   GuardSource
	shifts   ShiftSource
	settings SettingsSource

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

type Option func(*Service)

// WithRand injects a deterministic random source for tests.
func WithRand(rng *rand.Rand) Option {
	return func(s *Service) { s.rng = rng }
}

// WithClock injects a fixed clock for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store StoreAPI, guards GuardSource, shifts ShiftSource, settings SettingsSource, opts ...Option) *Service {
	s := &Service{
		store:    store,
		guards:   guards,
		shifts:   shifts,
		settings: settings,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScheduleForShift plans and inserts this shift's checks for a guard.
// It runs once, as a side effect of clock-in; callers treat failure as
// best-effort and must not fail the clock-in.
func (s *Service) ScheduleForShift(ctx context.Context, guardID string) error {
	guard, err := s.guards.FaceCheckProfile(ctx, guardID)
	if err != nil {
		return fmt.Errorf("load guard: %w", err)
	}
	cfg, err := s.settings.Get(ctx, guard.OrgID)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	now := s.now()
	shiftEnd := now.Add(DefaultShiftDuration)
	if guard.ShiftID != nil {
		start, end, err := s.shifts.Window(ctx, *guard.ShiftID)
		if err != nil {
			slog.Warn("shift lookup failed, using default window", "guardId", guardID, "shiftId", *guard.ShiftID, "err", err)
		} else if resolved, err := ShiftEndAfter(now, start, end); err != nil {
			slog.Warn("shift window unparsable, using default window", "guardId", guardID, "shiftId", *guard.ShiftID, "err", err)
		} else {
			shiftEnd = resolved
		}
	}

	s.mu.Lock()
	count := PickCount(cfg, s.rng)
	due := PlanChecks(now, shiftEnd, count, s.rng)
	s.mu.Unlock()

	if len(due) == 0 {
		return nil
	}
	if err := s.store.CreateBatch(ctx, guardID, due); err != nil {
		return fmt.Errorf("insert checks: %w", err)
	}

	metrics.FaceChecksScheduled.Add(float64(len(due)))
	slog.Info("face checks scheduled", "guardId", guardID, "count", len(due), "shiftEnd", shiftEnd)
	return nil
}

// Pending returns the guard's due, still-pending checks, earliest
// first.
func (s *Service) Pending(ctx context.Context, guardID string) ([]Check, error) {
	return s.store.PendingDue(ctx, guardID, s.now())
}

// ForGuardOnDate returns every check scheduled for the guard on a
// calendar date.
func (s *Service) ForGuardOnDate(ctx context.Context, guardID, date string) ([]Check, error) {
	return s.store.ForGuardOnDate(ctx, guardID, date)
}

// SubmitResult verifies a submitted sample against the guard's
// enrolled template and resolves the check.
//
// A guard with no enrolled template fails unconditionally: enrollment
// is mandatory, and that outcome is logged and counted apart from a
// genuine mismatch. A missing sample when a template exists is a
// request error, not a failed verification, and leaves the check
// untouched.
func (s *Service) SubmitResult(ctx context.Context, checkID string, sample []float64, actor Actor) (bool, error) {
	check, err := s.store.GetByID(ctx, checkID)
	if err != nil {
		return false, err
	}
	if check.Status != StatusPending {
		return false, ErrCheckCompleted
	}
	if actor.Role == "guard" && actor.ID != check.GuardID {
		return false, ErrNotYourCheck
	}

	guard, err := s.guards.FaceCheckProfile(ctx, check.GuardID)
	if err != nil {
		return false, fmt.Errorf("load guard: %w", err)
	}

	var passed bool
	switch {
	case len(guard.FaceTemplate) == 0:
		passed = false
		metrics.FaceChecksMissingEnrollment.Inc()
		slog.Warn("face check auto-failed, no enrolled template", "guardId", check.GuardID, "checkId", checkID)
	case len(sample) == 0:
		return false, ErrNoSample
	default:
		distance := face.Distance(guard.FaceTemplate, sample)
		passed = face.Match(distance)
		slog.Info("face check compared", "guardId", check.GuardID, "checkId", checkID, "distance", distance, "passed", passed)
	}

	to := StatusFailed
	if passed {
		to = StatusPassed
	}
	if !CanTransition(check.Status, to) {
		return false, ErrCheckCompleted
	}
	updated, err := s.store.Complete(ctx, checkID, to, passed, s.now())
	if err != nil {
		return false, err
	}
	if !updated {
		// Lost the race against the sweep or a concurrent submission.
		return false, ErrCheckCompleted
	}

	metrics.FaceCheckResults.WithLabelValues(string(to)).Inc()
	return passed, nil
}

// ExpireForGuard expires all of a guard's pending checks. Clock-out
// calls this immediately rather than waiting for the sweep, because a
// check for a shift that has ended is meaningless.
func (s *Service) ExpireForGuard(ctx context.Context, guardID string) (int64, error) {
	expired, err := s.store.ExpireForGuard(ctx, guardID)
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		metrics.FaceCheckResults.WithLabelValues(string(StatusExpired)).Add(float64(expired))
		slog.Info("pending face checks expired on clock-out", "guardId", guardID, "count", expired)
	}
	return expired, nil
}

// SweepResult reports one sweep tick's work.
type SweepResult struct {
	Expired   int64 `json:"expired"`
	Scheduled int   `json:"scheduled"`
}

// Sweep expires overdue pending checks and then rolls the
// opportunistic dice for every clocked-in active guard. Each tick
// re-evaluates current state, so a failed tick is simply retried whole
// on the next one.
func (s *Service) Sweep(ctx context.Context) (SweepResult, error) {
	now := s.now()
	var result SweepResult

	expired, err := s.store.ExpireOverdue(ctx, now.Add(-ExpiryGrace))
	if err != nil {
		return result, fmt.Errorf("expire overdue: %w", err)
	}
	result.Expired = expired
	if expired > 0 {
		metrics.FaceCheckResults.WithLabelValues(string(StatusExpired)).Add(float64(expired))
	}

	onDuty, err := s.guards.ClockedInActive(ctx)
	if err != nil {
		return result, fmt.Errorf("list clocked-in guards: %w", err)
	}
	for _, guard := range onDuty {
		s.mu.Lock()
		roll := s.rng.Float64()
		s.mu.Unlock()
		if roll >= OpportunisticProbability {
			continue
		}
		created, err := s.store.CreatePendingIfNone(ctx, guard.ID, now)
		if err != nil {
			slog.Warn("opportunistic check insert failed", "guardId", guard.ID, "err", err)
			continue
		}
		if created {
			result.Scheduled++
			metrics.FaceChecksScheduled.Inc()
			slog.Info("opportunistic face check scheduled", "guardId", guard.ID)
		}
	}
	return result, nil
}

// Summary aggregates an organization's checks for one date.
func (s *Service) Summary(ctx context.Context, orgID, date string) (Summary, error) {
	return s.store.Summary(ctx, orgID, date)
}
