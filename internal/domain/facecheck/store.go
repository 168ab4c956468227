package facecheck

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) CreateBatch(ctx context.Context, guardID string, due []time.Time) error {
	if len(due) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, d := range due {
		batch.Queue(`
      INSERT INTO face_checks (guard_id, scheduled_for, status)
      VALUES ($1, $2, 'pending')
    `, guardID, d)
	}
	results := s.DB.SendBatch(ctx, batch)
	defer results.Close()
	for range due {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) CreatePendingIfNone(ctx context.Context, guardID string, due time.Time) (bool, error) {
	// Single-statement check-then-insert keeps the one-pending-check
	// invariant even when two sweep instances race.
	tag, err := s.DB.Exec(ctx, `
    INSERT INTO face_checks (guard_id, scheduled_for, status)
    SELECT $1, $2, 'pending'
    WHERE NOT EXISTS (
      SELECT 1 FROM face_checks WHERE guard_id = $1 AND status = 'pending'
    )
  `, guardID, due)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) GetByID(ctx context.Context, checkID string) (*Check, error) {
	var c Check
	err := s.DB.QueryRow(ctx, `
    SELECT id, guard_id, scheduled_for, requested_at, completed_at, status, passed
    FROM face_checks
    WHERE id = $1
  `, checkID).Scan(&c.ID, &c.GuardID, &c.ScheduledFor, &c.RequestedAt, &c.CompletedAt, &c.Status, &c.Passed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCheckNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) PendingDue(ctx context.Context, guardID string, now time.Time) ([]Check, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, guard_id, scheduled_for, requested_at, completed_at, status, passed
    FROM face_checks
    WHERE guard_id = $1 AND status = 'pending' AND scheduled_for <= $2
    ORDER BY scheduled_for ASC
  `, guardID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChecks(rows)
}

func (s *Store) ForGuardOnDate(ctx context.Context, guardID, date string) ([]Check, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, guard_id, scheduled_for, requested_at, completed_at, status, passed
    FROM face_checks
    WHERE guard_id = $1 AND scheduled_for::date = $2::date
    ORDER BY scheduled_for ASC
  `, guardID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChecks(rows)
}

func (s *Store) Complete(ctx context.Context, checkID string, to Status, passed bool, completedAt time.Time) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE face_checks
    SET status = $1, passed = $2, completed_at = $3
    WHERE id = $4 AND status = 'pending'
  `, to, passed, completedAt, checkID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) ExpireOverdue(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE face_checks
    SET status = 'expired'
    WHERE status = 'pending' AND scheduled_for < $1
  `, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) ExpireForGuard(ctx context.Context, guardID string) (int64, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE face_checks
    SET status = 'expired'
    WHERE guard_id = $1 AND status = 'pending'
  `, guardID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) Summary(ctx context.Context, orgID, date string) (Summary, error) {
	var sum Summary
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(*),
           COUNT(*) FILTER (WHERE fc.status = 'passed'),
           COUNT(*) FILTER (WHERE fc.status = 'failed'),
           COUNT(*) FILTER (WHERE fc.status = 'pending'),
           COUNT(*) FILTER (WHERE fc.status = 'expired')
    FROM face_checks fc
    JOIN guards g ON g.id = fc.guard_id
    WHERE g.org_id = $1 AND fc.scheduled_for::date = $2::date
  `, orgID, date).Scan(&sum.Total, &sum.Passed, &sum.Failed, &sum.Pending, &sum.Expired)
	if err != nil {
		return Summary{}, err
	}
	return sum, nil
}

func (s *Store) DeleteTerminalBefore(ctx context.Context, orgID string, cutoff time.Time) (int64, error) {
	tag, err := s.DB.Exec(ctx, `
    DELETE FROM face_checks fc
    USING guards g
    WHERE g.id = fc.guard_id
      AND g.org_id = $1
      AND fc.status IN ('passed', 'failed', 'expired')
      AND fc.requested_at < $2
  `, orgID, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanChecks(rows pgx.Rows) ([]Check, error) {
	var out []Check
	for rows.Next() {
		var c Check
		if err := rows.Scan(&c.ID, &c.GuardID, &c.ScheduledFor, &c.RequestedAt, &c.CompletedAt, &c.Status, &c.Passed); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
