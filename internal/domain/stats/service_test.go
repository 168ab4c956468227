package stats

import (
	"context"
	"testing"
	"time"

	"guardsync/internal/domain/facecheck"
	"guardsync/internal/domain/guards"
	"guardsync/internal/domain/presence"
	"guardsync/internal/domain/sysconfig"
)

type fakeGuards struct{ list []guards.Guard }

func (f *fakeGuards) List(context.Context, string, string, string) ([]guards.Guard, error) {
	return f.list, nil
}

type fakePings struct{ byGuard map[string][]presence.Ping }

func (f *fakePings) RecentPingsBatch(_ context.Context, ids []string) (map[string][]presence.Ping, error) {
	out := map[string][]presence.Ping{}
	for _, id := range ids {
		if pings, ok := f.byGuard[id]; ok {
			out[id] = pings
		}
	}
	return out, nil
}

type fakeSettings struct{}

func (fakeSettings) Get(context.Context, string) (sysconfig.Settings, error) {
	return sysconfig.Defaults(), nil
}

type fakeChecks struct{ summary facecheck.Summary }

func (f *fakeChecks) Summary(context.Context, string, string) (facecheck.Summary, error) {
	return f.summary, nil
}

func TestDashboardCountsAndStatuses(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	fresh := presence.Ping{GuardID: "g1", Lat: 6.5244, Lng: 3.3792, Timestamp: now.Add(-5 * time.Minute)}
	moved := presence.Ping{GuardID: "g1", Lat: 6.5254, Lng: 3.3792, Timestamp: now.Add(-20 * time.Minute)}

	svc := NewService(
		&fakeGuards{list: []guards.Guard{
			{ID: "g1", Name: "Dana", ApprovalStatus: guards.ApprovalActive, ClockedIn: true},
			{ID: "g2", Name: "Lee", ApprovalStatus: guards.ApprovalActive, ClockedIn: false},
			{ID: "g3", Name: "Sam", ApprovalStatus: guards.ApprovalPending},
		}},
		&fakePings{byGuard: map[string][]presence.Ping{"g1": {fresh, moved}}},
		fakeSettings{},
		&fakeChecks{summary: facecheck.Summary{Total: 4, Passed: 3, Expired: 1}},
	)
	svc.now = func() time.Time { return now }

	dash, err := svc.Dashboard(context.Background(), "o1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dash.TotalGuards != 3 || dash.ActiveGuards != 2 || dash.PendingGuards != 1 || dash.ClockedIn != 1 {
		t.Fatalf("wrong counts: %+v", dash)
	}
	if len(dash.Guards) != 2 {
		t.Fatalf("pending guards must not appear in status list, got %d", len(dash.Guards))
	}

	statuses := map[string]presence.Status{}
	for _, g := range dash.Guards {
		statuses[g.GuardID] = g.Status
	}
	if statuses["g1"] != presence.StatusOnline {
		t.Fatalf("moving clocked-in guard should be online, got %s", statuses["g1"])
	}
	if statuses["g2"] != presence.StatusOffline {
		t.Fatalf("not clocked-in guard must be offline, got %s", statuses["g2"])
	}
	if dash.FaceChecks.Total != 4 {
		t.Fatalf("summary not carried: %+v", dash.FaceChecks)
	}
}
