package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"guardsync/internal/auth"
	"guardsync/internal/domain/org"
	"guardsync/internal/platform/config"
)

// Seed ensures a first organization and its admin account exist so a
// fresh deployment is immediately usable. It is idempotent.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	orgID, err := ensureOrganization(ctx, pool, cfg.SeedOrgName)
	if err != nil {
		return err
	}
	return ensureAdmin(ctx, pool, orgID, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
}

func ensureOrganization(ctx context.Context, pool *pgxpool.Pool, name string) (string, error) {
	slug := org.Slugify(name)

	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM organizations WHERE slug = $1", slug).Scan(&id)
	if err == nil {
		return id, nil
	}

	code, err := org.NewInviteCode(slug)
	if err != nil {
		return "", err
	}
	err = pool.QueryRow(ctx, `
    INSERT INTO organizations (name, slug, invite_code)
    VALUES ($1, $2, $3)
    RETURNING id
  `, name, slug, code).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func ensureAdmin(ctx context.Context, pool *pgxpool.Pool, orgID, email, password string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return nil
	}

	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM staff WHERE org_id = $1 AND lower(email) = lower($2)", orgID, email).Scan(&id)
	if err == nil {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = pool.Exec(ctx, `
    INSERT INTO staff (org_id, name, email, password_hash, role)
    VALUES ($1, 'Administrator', $2, $3, 'admin')
  `, orgID, email, hash)
	return err
}
