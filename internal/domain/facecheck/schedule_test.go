package facecheck

import (
	"math/rand"
	"testing"
	"time"

	"guardsync/internal/domain/sysconfig"
)

func fixedRand() *rand.Rand {
	return rand.New(rand.NewSource(42))
}

func TestPlanChecksCoverage(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	shiftEnd := now.Add(3 * time.Hour)
	count := 3
	segment := time.Hour
	// 20% of a 1h segment is 12 minutes, below the 15 minute cap.
	buffer := 12 * time.Minute

	for seed := int64(0); seed < 50; seed++ {
		rng := rand.New(rand.NewSource(seed))
		due := PlanChecks(now, shiftEnd, count, rng)
		if len(due) != count {
			t.Fatalf("seed %d: expected %d checks, got %d", seed, count, len(due))
		}
		for i, d := range due {
			if i > 0 && !d.After(due[i-1]) {
				t.Fatalf("seed %d: due times not strictly increasing: %v", seed, due)
			}
			segStart := now.Add(time.Duration(i) * segment)
			lo := segStart.Add(buffer)
			hi := segStart.Add(segment).Add(-buffer)
			if d.Before(lo) || !d.Before(hi) {
				t.Fatalf("seed %d: check %d at %v outside buffered segment [%v, %v)", seed, i, d, lo, hi)
			}
		}
	}
}

func TestPlanChecksZeroCount(t *testing.T) {
	now := time.Now()
	if due := PlanChecks(now, now.Add(8*time.Hour), 0, fixedRand()); due != nil {
		t.Fatalf("expected no checks for count 0, got %v", due)
	}
}

func TestPlanChecksClosedWindowClampsToImmediate(t *testing.T) {
	now := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		shiftEnd time.Time
	}{
		{name: "already ended", shiftEnd: now.Add(-time.Hour)},
		{name: "ends exactly now", shiftEnd: now},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			due := PlanChecks(now, tc.shiftEnd, 4, fixedRand())
			if len(due) != 1 {
				t.Fatalf("expected one immediate check, got %d", len(due))
			}
			if !due[0].Equal(now) {
				t.Fatalf("expected check due now, got %v", due[0])
			}
		})
	}
}

func TestPlanChecksBufferCapsAt15Minutes(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	// One 10 hour segment: 20% would be 2h, so the 15 minute cap applies.
	shiftEnd := now.Add(10 * time.Hour)
	for seed := int64(0); seed < 50; seed++ {
		rng := rand.New(rand.NewSource(seed))
		due := PlanChecks(now, shiftEnd, 1, rng)
		if len(due) != 1 {
			t.Fatalf("expected 1 check, got %d", len(due))
		}
		if due[0].Before(now.Add(15 * time.Minute)) {
			t.Fatalf("check at %v inside leading 15 minute buffer", due[0])
		}
		if !due[0].Before(shiftEnd.Add(-15 * time.Minute)) {
			t.Fatalf("check at %v inside trailing 15 minute buffer", due[0])
		}
	}
}

func TestShiftEndAfterSameDay(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	end, err := ShiftEndAfter(now, "08:00", "17:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC)
	if !end.Equal(want) {
		t.Fatalf("expected %v, got %v", want, end)
	}
}

func TestShiftEndAfterNightShiftWrapsToNextDay(t *testing.T) {
	now := time.Date(2026, 3, 2, 22, 30, 0, 0, time.UTC)
	end, err := ShiftEndAfter(now, "22:00", "06:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 3, 3, 6, 0, 0, 0, time.UTC)
	if !end.Equal(want) {
		t.Fatalf("expected next-day %v, got %v", want, end)
	}
}

func TestShiftEndAfterMalformed(t *testing.T) {
	now := time.Now()
	if _, err := ShiftEndAfter(now, "22:00", "late"); err == nil {
		t.Fatal("expected error for malformed end time")
	}
	if _, err := ShiftEndAfter(now, "ten", "06:00"); err == nil {
		t.Fatal("expected error for malformed start time")
	}
}

func TestPickCountWithinRange(t *testing.T) {
	cfg := sysconfig.Settings{FaceChecksPerDayMin: 2, FaceChecksPerDayMax: 4}
	rng := fixedRand()
	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		n := PickCount(cfg, rng)
		if n < 2 || n > 4 {
			t.Fatalf("count %d outside [2,4]", n)
		}
		seen[n] = true
	}
	for want := 2; want <= 4; want++ {
		if !seen[want] {
			t.Fatalf("count %d never drawn in 200 samples", want)
		}
	}
}

func TestPickCountDegenerateRange(t *testing.T) {
	cfg := sysconfig.Settings{FaceChecksPerDayMin: 3, FaceChecksPerDayMax: 3}
	if n := PickCount(cfg, fixedRand()); n != 3 {
		t.Fatalf("expected fixed count 3, got %d", n)
	}
}

func TestCanTransition(t *testing.T) {
	legal := []struct{ from, to Status }{
		{StatusPending, StatusPassed},
		{StatusPending, StatusFailed},
		{StatusPending, StatusExpired},
	}
	for _, tc := range legal {
		if !CanTransition(tc.from, tc.to) {
			t.Fatalf("expected %s→%s legal", tc.from, tc.to)
		}
	}

	illegal := []struct{ from, to Status }{
		{StatusPassed, StatusFailed},
		{StatusFailed, StatusPassed},
		{StatusExpired, StatusPending},
		{StatusPassed, StatusExpired},
		{StatusPending, StatusPending},
	}
	for _, tc := range illegal {
		if CanTransition(tc.from, tc.to) {
			t.Fatalf("expected %s→%s illegal", tc.from, tc.to)
		}
	}
}
