package guards

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"guardsync/internal/domain/facecheck"
	"guardsync/internal/platform/crypto"
)

const guardColumns = `
    id, org_id, site_id, shift_id, name, phone, email, password_hash,
    approval_status, clocked_in, clock_in_time, daily_rate, face_enrolled_at, created_at`

// Store persists guards. Face templates live in a separate column as
// encrypted JSON and never travel with the Guard model.
type Store struct {
	DB     *pgxpool.Pool
	Crypto *crypto.Service
}

func NewStore(db *pgxpool.Pool, enc *crypto.Service) *Store {
	return &Store{DB: db, Crypto: enc}
}

func (s *Store) Create(ctx context.Context, orgID, name, phone string, email *string, passwordHash string) (Guard, error) {
	var g Guard
	err := s.DB.QueryRow(ctx, `
    INSERT INTO guards (org_id, name, phone, email, password_hash, approval_status)
    VALUES ($1, $2, $3, $4, $5, 'pending')
    RETURNING`+guardColumns+`
    `, orgID, name, phone, email, passwordHash).Scan(guardDest(&g)...)
	if err != nil {
		return Guard{}, err
	}
	return g, nil
}

func (s *Store) GetByID(ctx context.Context, guardID string) (Guard, error) {
	var g Guard
	err := s.DB.QueryRow(ctx, `
    SELECT`+guardColumns+`
    FROM guards
    WHERE id = $1
  `, guardID).Scan(guardDest(&g)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Guard{}, ErrGuardNotFound
	}
	if err != nil {
		return Guard{}, err
	}
	return g, nil
}

func (s *Store) GetByPhone(ctx context.Context, phone string) (Guard, error) {
	var g Guard
	err := s.DB.QueryRow(ctx, `
    SELECT`+guardColumns+`
    FROM guards
    WHERE phone = $1
  `, phone).Scan(guardDest(&g)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Guard{}, ErrGuardNotFound
	}
	if err != nil {
		return Guard{}, err
	}
	return g, nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (Guard, error) {
	var g Guard
	err := s.DB.QueryRow(ctx, `
    SELECT`+guardColumns+`
    FROM guards
    WHERE lower(email) = lower($1)
  `, email).Scan(guardDest(&g)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Guard{}, ErrGuardNotFound
	}
	if err != nil {
		return Guard{}, err
	}
	return g, nil
}

// List returns the organization's guards, optionally filtered by site
// and approval status.
func (s *Store) List(ctx context.Context, orgID string, siteID, status string) ([]Guard, error) {
	sql := `
    SELECT` + guardColumns + `
    FROM guards
    WHERE org_id = $1`
	args := []any{orgID}
	if siteID != "" {
		args = append(args, siteID)
		sql += fmt.Sprintf(` AND site_id = $%d`, len(args))
	}
	if status != "" {
		args = append(args, status)
		sql += fmt.Sprintf(` AND approval_status = $%d`, len(args))
	}
	sql += ` ORDER BY created_at ASC`

	rows, err := s.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGuards(rows)
}

func (s *Store) SetApproval(ctx context.Context, guardID, status string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE guards SET approval_status = $1 WHERE id = $2
  `, status, guardID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrGuardNotFound
	}
	return nil
}

// Activate flips a guard to active and records their posting in the
// same statement, so an approved guard never exists without a site,
// shift, and rate.
func (s *Store) Activate(ctx context.Context, guardID string, a Assignment) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE guards
    SET approval_status = 'active', site_id = $1, shift_id = $2, daily_rate = $3
    WHERE id = $4
  `, a.SiteID, a.ShiftID, a.DailyRate, guardID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrGuardNotFound
	}
	return nil
}

func (s *Store) Update(ctx context.Context, g Guard) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE guards
    SET name = $1, site_id = $2, shift_id = $3, daily_rate = $4
    WHERE id = $5
  `, g.Name, g.SiteID, g.ShiftID, g.DailyRate, g.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrGuardNotFound
	}
	return nil
}

// SetClockedIn flips the duty flag. clock_in_time mirrors the open
// attendance row so guard reads stay a single query.
func (s *Store) SetClockedIn(ctx context.Context, guardID string, clockedIn bool) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE guards
    SET clocked_in = $1,
        clock_in_time = CASE WHEN $1 THEN now() ELSE NULL END
    WHERE id = $2
  `, clockedIn, guardID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrGuardNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, orgID, guardID string) error {
	tag, err := s.DB.Exec(ctx, `
    DELETE FROM guards WHERE id = $1 AND org_id = $2
  `, guardID, orgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrGuardNotFound
	}
	return nil
}

// SaveFaceTemplate encrypts and stores the guard's enrollment vector.
func (s *Store) SaveFaceTemplate(ctx context.Context, guardID string, template []float64, enrolledAt time.Time) error {
	raw, err := json.Marshal(template)
	if err != nil {
		return err
	}
	enc, err := s.Crypto.Encrypt(raw)
	if err != nil {
		return err
	}
	tag, err := s.DB.Exec(ctx, `
    UPDATE guards
    SET face_template = $1, face_enrolled_at = $2
    WHERE id = $3
  `, enc, enrolledAt, guardID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrGuardNotFound
	}
	return nil
}

// FaceCheckProfile loads the slice of a guard the face-check subsystem
// verifies against, template decrypted.
func (s *Store) FaceCheckProfile(ctx context.Context, guardID string) (facecheck.GuardRecord, error) {
	var rec facecheck.GuardRecord
	var enc []byte
	err := s.DB.QueryRow(ctx, `
    SELECT id, org_id, approval_status, clocked_in, shift_id, face_template
    FROM guards
    WHERE id = $1
  `, guardID).Scan(&rec.ID, &rec.OrgID, &rec.ApprovalStatus, &rec.ClockedIn, &rec.ShiftID, &enc)
	if errors.Is(err, pgx.ErrNoRows) {
		return facecheck.GuardRecord{}, facecheck.ErrGuardNotFound
	}
	if err != nil {
		return facecheck.GuardRecord{}, err
	}
	rec.FaceTemplate, err = s.decodeTemplate(enc)
	if err != nil {
		return facecheck.GuardRecord{}, err
	}
	return rec, nil
}

// ClockedInActive lists every on-duty guard in active approval state,
// across organizations, for the opportunistic sweep.
func (s *Store) ClockedInActive(ctx context.Context) ([]facecheck.GuardRecord, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, org_id, approval_status, clocked_in, shift_id
    FROM guards
    WHERE clocked_in AND approval_status = 'active'
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []facecheck.GuardRecord
	for rows.Next() {
		var rec facecheck.GuardRecord
		if err := rows.Scan(&rec.ID, &rec.OrgID, &rec.ApprovalStatus, &rec.ClockedIn, &rec.ShiftID); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) decodeTemplate(enc []byte) ([]float64, error) {
	if len(enc) == 0 {
		return nil, nil
	}
	raw, err := s.Crypto.Decrypt(enc)
	if err != nil {
		return nil, err
	}
	var template []float64
	if err := json.Unmarshal(raw, &template); err != nil {
		return nil, err
	}
	return template, nil
}

func guardDest(g *Guard) []any {
	return []any{
		&g.ID, &g.OrgID, &g.SiteID, &g.ShiftID, &g.Name, &g.Phone, &g.Email,
		&g.PasswordHash, &g.ApprovalStatus, &g.ClockedIn, &g.ClockInTime,
		&g.DailyRate, &g.FaceEnrolledAt, &g.CreatedAt,
	}
}

func scanGuards(rows pgx.Rows) ([]Guard, error) {
	var out []Guard
	for rows.Next() {
		var g Guard
		if err := rows.Scan(guardDest(&g)...); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
