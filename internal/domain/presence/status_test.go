package presence

import (
	"testing"
	"time"

	"guardsync/internal/domain/sysconfig"
)

var testCfg = sysconfig.Settings{
	IdleThresholdMins:  35,
	IdleDistanceMeters: 50,
}.Normalize()

func pingAt(ts time.Time, lat, lng float64) Ping {
	return Ping{GuardID: "g1", Lat: lat, Lng: lng, Timestamp: ts}
}

func TestNotClockedInIsAlwaysOffline(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name  string
		pings []Ping
	}{
		{name: "no pings", pings: nil},
		{name: "fresh ping", pings: []Ping{pingAt(now, 12.97, 77.59)}},
		{name: "two moving pings", pings: []Ping{
			pingAt(now, 12.97, 77.59),
			pingAt(now.Add(-30*time.Minute), 13.00, 77.70),
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ComputeStatus(false, tc.pings, testCfg, now); got != StatusOffline {
				t.Fatalf("expected offline, got %s", got)
			}
		})
	}
}

func TestClockedInNoPingsIsOnline(t *testing.T) {
	if got := ComputeStatus(true, nil, testCfg, time.Now()); got != StatusOnline {
		t.Fatalf("expected online grace period, got %s", got)
	}
}

func TestIdleByStaleness(t *testing.T) {
	now := time.Now()
	pings := []Ping{pingAt(now.Add(-36*time.Minute), 12.97, 77.59)}
	if got := ComputeStatus(true, pings, testCfg, now); got != StatusIdle {
		t.Fatalf("expected idle after 36 minutes of silence, got %s", got)
	}
}

func TestOnlineWhenFreshAndMoving(t *testing.T) {
	now := time.Now()
	// Second ping ~100m north of the first.
	pings := []Ping{
		pingAt(now.Add(-34*time.Minute), 12.9725, 77.5946),
		pingAt(now.Add(-60*time.Minute), 12.9716, 77.5946),
	}
	if got := ComputeStatus(true, pings, testCfg, now); got != StatusOnline {
		t.Fatalf("expected online, got %s", got)
	}
}

func TestIdleByStillness(t *testing.T) {
	now := time.Now()
	// Two pings ~10m apart, both inside the staleness window.
	pings := []Ping{
		pingAt(now.Add(-5*time.Minute), 12.97169, 77.5946),
		pingAt(now.Add(-30*time.Minute), 12.9716, 77.5946),
	}
	if got := ComputeStatus(true, pings, testCfg, now); got != StatusIdle {
		t.Fatalf("expected idle for a stationary guard, got %s", got)
	}
}

func TestSinglePingFreshIsOnline(t *testing.T) {
	now := time.Now()
	pings := []Ping{pingAt(now.Add(-10*time.Minute), 12.97, 77.59)}
	if got := ComputeStatus(true, pings, testCfg, now); got != StatusOnline {
		t.Fatalf("expected online with one fresh ping, got %s", got)
	}
}

func TestZeroConfigFallsBackToDefaults(t *testing.T) {
	now := time.Now()
	pings := []Ping{pingAt(now.Add(-36*time.Minute), 12.97, 77.59)}
	if got := ComputeStatus(true, pings, sysconfig.Settings{}, now); got != StatusIdle {
		t.Fatalf("expected idle with default 35 minute threshold, got %s", got)
	}
}
