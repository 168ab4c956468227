package facecheck

import (
	"fmt"
	"math/rand"
	"time"

	"guardsync/internal/domain/sysconfig"
)

const (
	// ExpiryGrace is how long after its due time a pending check may
	// still be answered before the sweep expires it.
	ExpiryGrace = 15 * time.Minute

	// OpportunisticProbability is the per-guard chance, per sweep tick,
	// of injecting an extra spot check.
	OpportunisticProbability = 0.4

	// DefaultShiftDuration bounds the schedule when a guard has no
	// assigned shift.
	DefaultShiftDuration = 8 * time.Hour

	maxEdgeBuffer = 15 * time.Minute
)

// PickCount draws a uniform check count from the configured
// [min, max] range, inclusive.
func PickCount(cfg sysconfig.Settings, rng *rand.Rand) int {
	cfg = cfg.Normalize()
	span := cfg.FaceChecksPerDayMax - cfg.FaceChecksPerDayMin + 1
	if span <= 1 {
		return cfg.FaceChecksPerDayMin
	}
	return cfg.FaceChecksPerDayMin + rng.Intn(span)
}

// PlanChecks distributes count due-times across [now, shiftEnd).
//
// The window splits into count equal segments and each segment gets
// one uniformly random due-time, excluding a buffer at both segment
// edges of min(15 minutes, 20% of segment length). The buffer keeps
// adjacent checks from landing back-to-back and keeps the last check
// clear of shift end. A window that has already closed clamps to a
// single check due immediately.
func PlanChecks(now, shiftEnd time.Time, count int, rng *rand.Rand) []time.Time {
	if count <= 0 {
		return nil
	}
	if !shiftEnd.After(now) {
		return []time.Time{now}
	}

	segment := shiftEnd.Sub(now) / time.Duration(count)
	buffer := segment / 5
	if buffer > maxEdgeBuffer {
		buffer = maxEdgeBuffer
	}

	due := make([]time.Time, 0, count)
	for i := 0; i < count; i++ {
		segStart := now.Add(time.Duration(i) * segment)
		usable := segment - 2*buffer
		if usable <= 0 {
			// Degenerate segment, fall back to its midpoint.
			due = append(due, segStart.Add(segment/2))
			continue
		}
		jitter := time.Duration(rng.Float64() * float64(usable))
		due = append(due, segStart.Add(buffer).Add(jitter))
	}
	return due
}

// ShiftEndAfter resolves a shift's HH:MM end time against now's date.
// An end time-of-day numerically earlier than the start time-of-day
// means the shift crosses midnight and ends tomorrow.
func ShiftEndAfter(now time.Time, startTime, endTime string) (time.Time, error) {
	start, err := parseClock(startTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("shift start time: %w", err)
	}
	end, err := parseClock(endTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("shift end time: %w", err)
	}

	shiftEnd := time.Date(now.Year(), now.Month(), now.Day(), end.Hour(), end.Minute(), 0, 0, now.Location())
	if end.Hour() < start.Hour() {
		shiftEnd = shiftEnd.Add(24 * time.Hour)
	}
	return shiftEnd, nil
}

func parseClock(value string) (time.Time, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid HH:MM value %q", value)
	}
	return t, nil
}
