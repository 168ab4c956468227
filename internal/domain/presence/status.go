package presence

import (
	"time"

	"guardsync/internal/domain/sysconfig"
	"guardsync/internal/geo"
)

// ComputeStatus derives a guard's live status from clock state and the
// two most recent pings, newest first.
//
// A guard who is not clocked in is offline, full stop. A clocked-in
// guard with no pings yet is online: there is a grace window between
// clock-in and the first scheduled ping. A stale newest ping means the
// device stopped reporting, which reads as idle rather than offline
// because clock-out is an explicit action. Two fresh pings closer
// together than the idle distance also read as idle: the guard has not
// moved enough to rule out an unattended device.
func ComputeStatus(clockedIn bool, pings []Ping, cfg sysconfig.Settings, now time.Time) Status {
	if !clockedIn {
		return StatusOffline
	}
	if len(pings) == 0 {
		return StatusOnline
	}

	cfg = cfg.Normalize()

	minsSince := now.Sub(pings[0].Timestamp).Minutes()
	if minsSince > float64(cfg.IdleThresholdMins) {
		return StatusIdle
	}

	if len(pings) >= 2 {
		moved := geo.Distance(pings[0].Lat, pings[0].Lng, pings[1].Lat, pings[1].Lng)
		if moved < float64(cfg.IdleDistanceMeters) {
			return StatusIdle
		}
	}

	return StatusOnline
}
