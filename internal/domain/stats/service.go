// Package stats assembles the staff dashboard: guard counts, live
// presence status per guard, and today's face-check tally.
package stats

import (
	"context"
	"fmt"
	"time"

	"guardsync/internal/domain/facecheck"
	"guardsync/internal/domain/guards"
	"guardsync/internal/domain/presence"
	"guardsync/internal/domain/sysconfig"
)

type GuardSource interface {
	List(ctx context.Context, orgID string, siteID, status string) ([]guards.Guard, error)
}

type PingSource interface {
	RecentPingsBatch(ctx context.Context, guardIDs []string) (map[string][]presence.Ping, error)
}

type SettingsSource interface {
	Get(ctx context.Context, orgID string) (sysconfig.Settings, error)
}

type CheckSummarizer interface {
	Summary(ctx context.Context, orgID, date string) (facecheck.Summary, error)
}

type GuardStatus struct {
	GuardID string          `json:"guardId"`
	Name    string          `json:"name"`
	SiteID  *string         `json:"siteId,omitempty"`
	Status  presence.Status `json:"status"`
}

type Dashboard struct {
	TotalGuards   int               `json:"totalGuards"`
	ActiveGuards  int               `json:"activeGuards"`
	PendingGuards int               `json:"pendingGuards"`
	ClockedIn     int               `json:"clockedIn"`
	Guards        []GuardStatus     `json:"guards"`
	FaceChecks    facecheck.Summary `json:"faceChecks"`
}

type Service struct {
	guards   GuardSource
	pings    PingSource
	settings SettingsSource
	checks   CheckSummarizer
	now      func() time.Time
}

func NewService(guardSource GuardSource, pings PingSource, settings SettingsSource, checks CheckSummarizer) *Service {
	return &Service{guards: guardSource, pings: pings, settings: settings, checks: checks, now: time.Now}
}

// Dashboard resolves every guard's live status in two queries: one for
// the guard list, one batched for the newest pings.
func (s *Service) Dashboard(ctx context.Context, orgID, siteID string) (Dashboard, error) {
	all, err := s.guards.List(ctx, orgID, siteID, "")
	if err != nil {
		return Dashboard{}, fmt.Errorf("list guards: %w", err)
	}
	cfg, err := s.settings.Get(ctx, orgID)
	if err != nil {
		return Dashboard{}, fmt.Errorf("load settings: %w", err)
	}

	now := s.now()
	var dash Dashboard
	dash.TotalGuards = len(all)

	var clockedInIDs []string
	for _, g := range all {
		switch g.ApprovalStatus {
		case guards.ApprovalActive:
			dash.ActiveGuards++
		case guards.ApprovalPending:
			dash.PendingGuards++
		}
		if g.ClockedIn {
			dash.ClockedIn++
			clockedInIDs = append(clockedInIDs, g.ID)
		}
	}

	pingsByGuard, err := s.pings.RecentPingsBatch(ctx, clockedInIDs)
	if err != nil {
		return Dashboard{}, fmt.Errorf("load pings: %w", err)
	}

	dash.Guards = make([]GuardStatus, 0, len(all))
	for _, g := range all {
		if g.ApprovalStatus != guards.ApprovalActive {
			continue
		}
		dash.Guards = append(dash.Guards, GuardStatus{
			GuardID: g.ID,
			Name:    g.Name,
			SiteID:  g.SiteID,
			Status:  presence.ComputeStatus(g.ClockedIn, pingsByGuard[g.ID], cfg, now),
		})
	}

	summary, err := s.checks.Summary(ctx, orgID, now.Format("2006-01-02"))
	if err != nil {
		return Dashboard{}, fmt.Errorf("face check summary: %w", err)
	}
	dash.FaceChecks = summary
	return dash, nil
}
