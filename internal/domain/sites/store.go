// Package sites manages the physical posts guards are assigned to and
// the shift windows defined per site.
package sites

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrSiteNotFound  = errors.New("site not found")
	ErrShiftNotFound = errors.New("shift not found")
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) CreateSite(ctx context.Context, orgID, name, address string, lat, lng *float64) (Site, error) {
	var site Site
	err := s.DB.QueryRow(ctx, `
    INSERT INTO sites (org_id, name, address, lat, lng)
    VALUES ($1, $2, $3, $4, $5)
    RETURNING id, org_id, name, address, lat, lng, created_at
  `, orgID, name, address, lat, lng).Scan(&site.ID, &site.OrgID, &site.Name, &site.Address, &site.Lat, &site.Lng, &site.CreatedAt)
	if err != nil {
		return Site{}, err
	}
	return site, nil
}

func (s *Store) GetSite(ctx context.Context, orgID, siteID string) (Site, error) {
	var site Site
	err := s.DB.QueryRow(ctx, `
    SELECT id, org_id, name, address, lat, lng, created_at
    FROM sites
    WHERE id = $1 AND org_id = $2
  `, siteID, orgID).Scan(&site.ID, &site.OrgID, &site.Name, &site.Address, &site.Lat, &site.Lng, &site.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Site{}, ErrSiteNotFound
	}
	if err != nil {
		return Site{}, err
	}
	return site, nil
}

func (s *Store) ListSites(ctx context.Context, orgID string) ([]Site, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, org_id, name, address, lat, lng, created_at
    FROM sites
    WHERE org_id = $1
    ORDER BY created_at ASC
  `, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Site
	for rows.Next() {
		var site Site
		if err := rows.Scan(&site.ID, &site.OrgID, &site.Name, &site.Address, &site.Lat, &site.Lng, &site.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, site)
	}
	return out, rows.Err()
}

func (s *Store) UpdateSite(ctx context.Context, site Site) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE sites
    SET name = $1, address = $2, lat = $3, lng = $4
    WHERE id = $5 AND org_id = $6
  `, site.Name, site.Address, site.Lat, site.Lng, site.ID, site.OrgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSiteNotFound
	}
	return nil
}

func (s *Store) DeleteSite(ctx context.Context, orgID, siteID string) error {
	tag, err := s.DB.Exec(ctx, `
    DELETE FROM sites WHERE id = $1 AND org_id = $2
  `, siteID, orgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSiteNotFound
	}
	return nil
}

// CreateShift attaches a shift window to a site the organization owns.
func (s *Store) CreateShift(ctx context.Context, orgID, siteID, name, startTime, endTime string, daysOfWeek []int) (Shift, error) {
	if daysOfWeek == nil {
		daysOfWeek = []int{}
	}
	var sh Shift
	err := s.DB.QueryRow(ctx, `
    INSERT INTO site_shifts (site_id, name, start_time, end_time, days_of_week)
    SELECT id, $3, $4, $5, $6
    FROM sites
    WHERE id = $1 AND org_id = $2
    RETURNING id, site_id, name, start_time, end_time, days_of_week, created_at
  `, siteID, orgID, name, startTime, endTime, daysOfWeek).Scan(&sh.ID, &sh.SiteID, &sh.Name, &sh.StartTime, &sh.EndTime, &sh.DaysOfWeek, &sh.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Shift{}, ErrSiteNotFound
	}
	if err != nil {
		return Shift{}, err
	}
	return sh, nil
}

func (s *Store) ListShifts(ctx context.Context, orgID, siteID string) ([]Shift, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT sh.id, sh.site_id, sh.name, sh.start_time, sh.end_time, sh.days_of_week, sh.created_at
    FROM site_shifts sh
    JOIN sites st ON st.id = sh.site_id
    WHERE sh.site_id = $1 AND st.org_id = $2
    ORDER BY sh.start_time ASC
  `, siteID, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Shift
	for rows.Next() {
		var sh Shift
		if err := rows.Scan(&sh.ID, &sh.SiteID, &sh.Name, &sh.StartTime, &sh.EndTime, &sh.DaysOfWeek, &sh.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

func (s *Store) DeleteShift(ctx context.Context, orgID, shiftID string) error {
	tag, err := s.DB.Exec(ctx, `
    DELETE FROM site_shifts sh
    USING sites st
    WHERE sh.id = $1 AND st.id = sh.site_id AND st.org_id = $2
  `, shiftID, orgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrShiftNotFound
	}
	return nil
}

// Window resolves a shift's HH:MM start and end for the face-check
// scheduler.
func (s *Store) Window(ctx context.Context, shiftID string) (string, string, error) {
	var start, end string
	err := s.DB.QueryRow(ctx, `
    SELECT start_time, end_time FROM site_shifts WHERE id = $1
  `, shiftID).Scan(&start, &end)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", ErrShiftNotFound
	}
	if err != nil {
		return "", "", err
	}
	return start, end, nil
}
