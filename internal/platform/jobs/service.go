// Package jobs runs the background loops: the face-check sweep and
// the per-organization data retention pass.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"guardsync/internal/domain/facecheck"
	"guardsync/internal/domain/sysconfig"
	"guardsync/internal/platform/config"
	"guardsync/internal/platform/metrics"
)

// Sweeper expires overdue checks and rolls opportunistic ones.
type Sweeper interface {
	Sweep(ctx context.Context) (facecheck.SweepResult, error)
}

type OrgLister interface {
	ListIDs(ctx context.Context) ([]string, error)
}

type SettingsSource interface {
	Get(ctx context.Context, orgID string) (sysconfig.Settings, error)
}

// PingRetention deletes location pings older than the cutoff.
type PingRetention interface {
	DeleteOlderThan(ctx context.Context, orgID string, cutoff string) (int64, error)
}

// CheckRetention deletes terminal face checks older than the cutoff.
type CheckRetention interface {
	DeleteTerminalBefore(ctx context.Context, orgID string, cutoff time.Time) (int64, error)
}

type Service struct {
	Cfg      config.Config
	Sweeper  Sweeper
	Orgs     OrgLister
	Settings SettingsSource
	Pings    PingRetention
	Checks   CheckRetention
}

func New(cfg config.Config, sweeper Sweeper, orgs OrgLister, settings SettingsSource, pings PingRetention, checks CheckRetention) *Service {
	return &Service{Cfg: cfg, Sweeper: sweeper, Orgs: orgs, Settings: settings, Pings: pings, Checks: checks}
}

// Start launches the loops; they stop when ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	if s.Cfg.SweepInterval > 0 {
		go s.sweepLoop(ctx)
	}
	if s.Cfg.RetentionInterval > 0 {
		go s.retentionLoop(ctx)
	}
}

// sweepLoop waits out a short warmup so the first tick does not race
// startup migrations, then sweeps on a fixed interval.
func (s *Service) sweepLoop(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(s.Cfg.SweepWarmup):
	}

	s.runSweep(ctx)
	ticker := time.NewTicker(s.Cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runSweep(ctx)
		}
	}
}

func (s *Service) runSweep(ctx context.Context) {
	result, err := s.Sweeper.Sweep(ctx)
	if err != nil {
		metrics.SweepRuns.WithLabelValues("error").Inc()
		slog.Warn("face check sweep failed", "err", err)
		return
	}
	metrics.SweepRuns.WithLabelValues("ok").Inc()
	if result.Expired > 0 || result.Scheduled > 0 {
		slog.Info("face check sweep completed", "expired", result.Expired, "scheduled", result.Scheduled)
	}
}

func (s *Service) retentionLoop(ctx context.Context) {
	ticker := time.NewTicker(s.Cfg.RetentionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runRetention(ctx)
		}
	}
}

// runRetention applies each organization's retention window to pings
// and terminal face checks. Per-org failures are logged and skipped.
func (s *Service) runRetention(ctx context.Context) {
	orgIDs, err := s.Orgs.ListIDs(ctx)
	if err != nil {
		slog.Warn("retention org lookup failed", "err", err)
		return
	}
	for _, orgID := range orgIDs {
		cfg, err := s.Settings.Get(ctx, orgID)
		if err != nil {
			slog.Warn("retention settings lookup failed", "orgId", orgID, "err", err)
			continue
		}
		cutoff := time.Now().AddDate(0, 0, -cfg.Normalize().DataRetentionDays)

		pings, err := s.Pings.DeleteOlderThan(ctx, orgID, cutoff.UTC().Format(time.RFC3339))
		if err != nil {
			slog.Warn("ping retention failed", "orgId", orgID, "err", err)
			continue
		}
		checks, err := s.Checks.DeleteTerminalBefore(ctx, orgID, cutoff)
		if err != nil {
			slog.Warn("face check retention failed", "orgId", orgID, "err", err)
			continue
		}
		if pings > 0 || checks > 0 {
			slog.Info("retention applied", "orgId", orgID, "pingsDeleted", pings, "checksDeleted", checks)
		}
	}
}
