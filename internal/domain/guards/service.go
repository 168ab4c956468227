// Package guards covers the guard lifecycle: self-enrollment with an
// organization invite code, staff approval, assignment, and face
// template enrollment.
package guards

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"guardsync/internal/domain/org"
)

// StoreAPI is the persistence subset the service drives.
type StoreAPI interface {
	Create(ctx context.Context, orgID, name, phone string, email *string, passwordHash string) (Guard, error)
	GetByID(ctx context.Context, guardID string) (Guard, error)
	SetApproval(ctx context.Context, guardID, status string) error
	Activate(ctx context.Context, guardID string, a Assignment) error
	Update(ctx context.Context, g Guard) error
	SaveFaceTemplate(ctx context.Context, guardID string, template []float64, enrolledAt time.Time) error
}

// OrgResolver turns an invite code into an organization.
type OrgResolver interface {
	GetByInviteCode(ctx context.Context, code string) (org.Organization, error)
}

// Mailer delivers enrollment decision notices; sends are best-effort.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Service struct {
	store  StoreAPI
	orgs   OrgResolver
	mailer Mailer
	now    func() time.Time
}

func NewService(store StoreAPI, orgs OrgResolver, mailer Mailer) *Service {
	return &Service{store: store, orgs: orgs, mailer: mailer, now: time.Now}
}

// Enroll registers a guard against an organization's invite code. The
// guard lands in pending state and cannot log in until approved.
func (s *Service) Enroll(ctx context.Context, inviteCode, name, phone string, email *string, passwordHash string) (Guard, error) {
	o, err := s.orgs.GetByInviteCode(ctx, inviteCode)
	if err != nil {
		if errors.Is(err, org.ErrOrgNotFound) {
			return Guard{}, ErrBadInviteCode
		}
		return Guard{}, err
	}

	g, err := s.store.Create(ctx, o.ID, name, phone, email, passwordHash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if strings.Contains(pgErr.ConstraintName, "email") {
				return Guard{}, ErrEmailTaken
			}
			return Guard{}, ErrPhoneTaken
		}
		return Guard{}, err
	}
	slog.Info("guard enrolled", "guardId", g.ID, "orgId", o.ID)
	return g, nil
}

// Authorize moves a pending guard to active and notifies them. The
// posting is mandatory: activation and the site, shift, and rate land
// in one update, so a guard is never active without an assignment.
func (s *Service) Authorize(ctx context.Context, orgID, guardID string, a Assignment) (Guard, error) {
	if a.SiteID == "" || a.ShiftID == "" || a.DailyRate <= 0 {
		return Guard{}, ErrMissingAssignment
	}
	g, err := s.store.GetByID(ctx, guardID)
	if err != nil {
		return Guard{}, err
	}
	if g.OrgID != orgID {
		return Guard{}, ErrGuardNotFound
	}
	if g.ApprovalStatus != ApprovalPending {
		return Guard{}, ErrNotPending
	}
	if err := s.store.Activate(ctx, guardID, a); err != nil {
		return Guard{}, err
	}
	g.ApprovalStatus = ApprovalActive
	g.SiteID = &a.SiteID
	g.ShiftID = &a.ShiftID
	g.DailyRate = a.DailyRate

	if g.Email != nil {
		notice := "Your enrollment was approved. You can now log in and clock in for shifts."
		if err := s.mailer.Send(ctx, *g.Email, "Enrollment decision", notice); err != nil {
			slog.Warn("enrollment notice failed", "guardId", guardID, "err", err)
		}
	}
	slog.Info("guard authorized", "guardId", guardID, "siteId", a.SiteID, "shiftId", a.ShiftID)
	return g, nil
}

// Reject declines a pending guard's enrollment.
func (s *Service) Reject(ctx context.Context, orgID, guardID string) (Guard, error) {
	return s.decide(ctx, orgID, guardID, ApprovalRejected, "Your enrollment was declined. Contact your site supervisor for details.")
}

func (s *Service) decide(ctx context.Context, orgID, guardID, status, notice string) (Guard, error) {
	g, err := s.store.GetByID(ctx, guardID)
	if err != nil {
		return Guard{}, err
	}
	if g.OrgID != orgID {
		return Guard{}, ErrGuardNotFound
	}
	if g.ApprovalStatus != ApprovalPending {
		return Guard{}, ErrNotPending
	}
	if err := s.store.SetApproval(ctx, guardID, status); err != nil {
		return Guard{}, err
	}
	g.ApprovalStatus = status

	if g.Email != nil {
		if err := s.mailer.Send(ctx, *g.Email, "Enrollment decision", notice); err != nil {
			slog.Warn("enrollment notice failed", "guardId", guardID, "err", err)
		}
	}
	slog.Info("guard enrollment decided", "guardId", guardID, "status", status)
	return g, nil
}

// Deactivate takes an active guard off the roster. The guard keeps
// their history but can no longer log in or clock in.
func (s *Service) Deactivate(ctx context.Context, orgID, guardID string) (Guard, error) {
	g, err := s.store.GetByID(ctx, guardID)
	if err != nil {
		return Guard{}, err
	}
	if g.OrgID != orgID {
		return Guard{}, ErrGuardNotFound
	}
	if g.ApprovalStatus != ApprovalActive {
		return Guard{}, ErrNotActive
	}
	if err := s.store.SetApproval(ctx, guardID, ApprovalInactive); err != nil {
		return Guard{}, err
	}
	g.ApprovalStatus = ApprovalInactive
	slog.Info("guard deactivated", "guardId", guardID)
	return g, nil
}

// Apply patches a guard's assignment fields.
func (s *Service) Apply(ctx context.Context, orgID, guardID string, patch Patch) (Guard, error) {
	g, err := s.store.GetByID(ctx, guardID)
	if err != nil {
		return Guard{}, err
	}
	if g.OrgID != orgID {
		return Guard{}, ErrGuardNotFound
	}
	if patch.Name != nil {
		g.Name = *patch.Name
	}
	if patch.SiteID != nil {
		g.SiteID = patch.SiteID
	}
	if patch.ShiftID != nil {
		g.ShiftID = patch.ShiftID
	}
	if patch.DailyRate != nil {
		g.DailyRate = *patch.DailyRate
	}
	if err := s.store.Update(ctx, g); err != nil {
		return Guard{}, err
	}
	return g, nil
}

// EnrollFace stores the guard's reference vector. Re-enrollment
// overwrites the previous template.
func (s *Service) EnrollFace(ctx context.Context, guardID string, template []float64) error {
	if len(template) == 0 {
		return ErrEmptyTemplate
	}
	g, err := s.store.GetByID(ctx, guardID)
	if err != nil {
		return err
	}
	if g.ApprovalStatus != ApprovalActive {
		return ErrNotActive
	}
	if err := s.store.SaveFaceTemplate(ctx, guardID, template, s.now()); err != nil {
		return err
	}
	slog.Info("face template enrolled", "guardId", guardID, "dims", len(template))
	return nil
}
