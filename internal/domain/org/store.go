package org

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrOrgNotFound   = errors.New("organization not found")
	ErrStaffNotFound = errors.New("staff not found")
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

// CreateWithAdmin inserts the organization and its first admin account
// in one transaction so a failed admin insert never leaves an orphaned
// organization.
func (s *Store) CreateWithAdmin(ctx context.Context, name, slug, inviteCode, adminName, adminEmail, adminPasswordHash string) (Organization, Staff, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Organization{}, Staff{}, err
	}
	defer tx.Rollback(ctx)

	var o Organization
	err = tx.QueryRow(ctx, `
    INSERT INTO organizations (name, slug, invite_code)
    VALUES ($1, $2, $3)
    RETURNING id, name, slug, invite_code, created_at
  `, name, slug, inviteCode).Scan(&o.ID, &o.Name, &o.Slug, &o.InviteCode, &o.CreatedAt)
	if err != nil {
		return Organization{}, Staff{}, err
	}

	var st Staff
	err = tx.QueryRow(ctx, `
    INSERT INTO staff (org_id, name, email, password_hash, role)
    VALUES ($1, $2, $3, $4, 'admin')
    RETURNING id, org_id, site_id, name, email, password_hash, role, created_at
  `, o.ID, adminName, adminEmail, adminPasswordHash).Scan(
		&st.ID, &st.OrgID, &st.SiteID, &st.Name, &st.Email, &st.PasswordHash, &st.Role, &st.CreatedAt,
	)
	if err != nil {
		return Organization{}, Staff{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Organization{}, Staff{}, err
	}
	return o, st, nil
}

func (s *Store) GetByID(ctx context.Context, orgID string) (Organization, error) {
	var o Organization
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, slug, invite_code, created_at
    FROM organizations
    WHERE id = $1
  `, orgID).Scan(&o.ID, &o.Name, &o.Slug, &o.InviteCode, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Organization{}, ErrOrgNotFound
	}
	if err != nil {
		return Organization{}, err
	}
	return o, nil
}

// GetByInviteCode resolves an enrollment code case-insensitively.
func (s *Store) GetByInviteCode(ctx context.Context, code string) (Organization, error) {
	var o Organization
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, slug, invite_code, created_at
    FROM organizations
    WHERE upper(invite_code) = upper($1)
  `, code).Scan(&o.ID, &o.Name, &o.Slug, &o.InviteCode, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Organization{}, ErrOrgNotFound
	}
	if err != nil {
		return Organization{}, err
	}
	return o, nil
}

func (s *Store) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := s.DB.Query(ctx, `SELECT id FROM organizations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) GetStaffByEmail(ctx context.Context, email string) (Staff, error) {
	var st Staff
	err := s.DB.QueryRow(ctx, `
    SELECT id, org_id, site_id, name, email, password_hash, role, created_at
    FROM staff
    WHERE lower(email) = lower($1)
  `, email).Scan(&st.ID, &st.OrgID, &st.SiteID, &st.Name, &st.Email, &st.PasswordHash, &st.Role, &st.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Staff{}, ErrStaffNotFound
	}
	if err != nil {
		return Staff{}, err
	}
	return st, nil
}

func (s *Store) GetStaffByID(ctx context.Context, staffID string) (Staff, error) {
	var st Staff
	err := s.DB.QueryRow(ctx, `
    SELECT id, org_id, site_id, name, email, password_hash, role, created_at
    FROM staff
    WHERE id = $1
  `, staffID).Scan(&st.ID, &st.OrgID, &st.SiteID, &st.Name, &st.Email, &st.PasswordHash, &st.Role, &st.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Staff{}, ErrStaffNotFound
	}
	if err != nil {
		return Staff{}, err
	}
	return st, nil
}

// CreateStaff adds a staff account, optionally scoped to one site.
func (s *Store) CreateStaff(ctx context.Context, orgID string, siteID *string, name, email, passwordHash, role string) (Staff, error) {
	var st Staff
	err := s.DB.QueryRow(ctx, `
    INSERT INTO staff (org_id, site_id, name, email, password_hash, role)
    VALUES ($1, $2, $3, $4, $5, $6)
    RETURNING id, org_id, site_id, name, email, password_hash, role, created_at
  `, orgID, siteID, name, email, passwordHash, role).Scan(
		&st.ID, &st.OrgID, &st.SiteID, &st.Name, &st.Email, &st.PasswordHash, &st.Role, &st.CreatedAt,
	)
	if err != nil {
		return Staff{}, err
	}
	return st, nil
}

func (s *Store) ListStaff(ctx context.Context, orgID string) ([]Staff, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, org_id, site_id, name, email, password_hash, role, created_at
    FROM staff
    WHERE org_id = $1
    ORDER BY created_at ASC
  `, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Staff
	for rows.Next() {
		var st Staff
		if err := rows.Scan(&st.ID, &st.OrgID, &st.SiteID, &st.Name, &st.Email, &st.PasswordHash, &st.Role, &st.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
