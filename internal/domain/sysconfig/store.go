package sysconfig

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

// Get returns the organization's settings, falling back to defaults
// when the row has not been created yet.
func (s *Store) Get(ctx context.Context, orgID string) (Settings, error) {
	var cfg Settings
	err := s.DB.QueryRow(ctx, `
    SELECT location_update_interval_mins,
           face_checks_per_day_min,
           face_checks_per_day_max,
           idle_threshold_mins,
           idle_distance_meters,
           data_retention_days
    FROM system_config
    WHERE org_id = $1
  `, orgID).Scan(
		&cfg.LocationUpdateIntervalMins,
		&cfg.FaceChecksPerDayMin,
		&cfg.FaceChecksPerDayMax,
		&cfg.IdleThresholdMins,
		&cfg.IdleDistanceMeters,
		&cfg.DataRetentionDays,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Defaults(), nil
	}
	if err != nil {
		return Settings{}, err
	}
	return cfg.Normalize(), nil
}

// Update upserts the organization's settings row.
func (s *Store) Update(ctx context.Context, orgID string, cfg Settings) error {
	cfg = cfg.Normalize()
	_, err := s.DB.Exec(ctx, `
    INSERT INTO system_config (
      org_id, location_update_interval_mins, face_checks_per_day_min,
      face_checks_per_day_max, idle_threshold_mins, idle_distance_meters,
      data_retention_days
    ) VALUES ($1, $2, $3, $4, $5, $6, $7)
    ON CONFLICT (org_id) DO UPDATE SET
      location_update_interval_mins = excluded.location_update_interval_mins,
      face_checks_per_day_min = excluded.face_checks_per_day_min,
      face_checks_per_day_max = excluded.face_checks_per_day_max,
      idle_threshold_mins = excluded.idle_threshold_mins,
      idle_distance_meters = excluded.idle_distance_meters,
      data_retention_days = excluded.data_retention_days
  `, orgID,
		cfg.LocationUpdateIntervalMins,
		cfg.FaceChecksPerDayMin,
		cfg.FaceChecksPerDayMax,
		cfg.IdleThresholdMins,
		cfg.IdleDistanceMeters,
		cfg.DataRetentionDays,
	)
	return err
}
