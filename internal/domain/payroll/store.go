package payroll

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

// Upsert writes a guard's entry for the period. Regeneration only
// touches drafts; approved and paid entries are immutable.
func (s *Store) Upsert(ctx context.Context, guardID string, year, month, daysWorked int, dailyRate, total float64) (Entry, error) {
	var e Entry
	err := s.DB.QueryRow(ctx, `
    INSERT INTO payroll_records (guard_id, month, year, days_worked, daily_rate, total, status)
    VALUES ($1, $2, $3, $4, $5, $6, 'draft')
    ON CONFLICT (guard_id, month, year) DO UPDATE SET
      days_worked = excluded.days_worked,
      daily_rate = excluded.daily_rate,
      total = excluded.total,
      generated_at = now()
    WHERE payroll_records.status = 'draft'
    RETURNING id, guard_id, month, year, days_worked, daily_rate, total, status, generated_at
  `, guardID, month, year, daysWorked, dailyRate, total).Scan(
		&e.ID, &e.GuardID, &e.Month, &e.Year, &e.DaysWorked, &e.DailyRate, &e.Total, &e.Status, &e.GeneratedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		// Conflict on a non-draft entry; return the existing row.
		return s.getByPeriod(ctx, guardID, year, month)
	}
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (s *Store) getByPeriod(ctx context.Context, guardID string, year, month int) (Entry, error) {
	var e Entry
	err := s.DB.QueryRow(ctx, `
    SELECT id, guard_id, month, year, days_worked, daily_rate, total, status, generated_at
    FROM payroll_records
    WHERE guard_id = $1 AND year = $2 AND month = $3
  `, guardID, year, month).Scan(
		&e.ID, &e.GuardID, &e.Month, &e.Year, &e.DaysWorked, &e.DailyRate, &e.Total, &e.Status, &e.GeneratedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrEntryNotFound
	}
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (s *Store) GetByID(ctx context.Context, orgID, entryID string) (Entry, error) {
	var e Entry
	err := s.DB.QueryRow(ctx, `
    SELECT p.id, p.guard_id, g.name, p.month, p.year, p.days_worked, p.daily_rate, p.total, p.status, p.generated_at
    FROM payroll_records p
    JOIN guards g ON g.id = p.guard_id
    WHERE p.id = $1 AND g.org_id = $2
  `, entryID, orgID).Scan(
		&e.ID, &e.GuardID, &e.GuardName, &e.Month, &e.Year, &e.DaysWorked, &e.DailyRate, &e.Total, &e.Status, &e.GeneratedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrEntryNotFound
	}
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (s *Store) List(ctx context.Context, orgID string, year, month int) ([]Entry, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT p.id, p.guard_id, g.name, p.month, p.year, p.days_worked, p.daily_rate, p.total, p.status, p.generated_at
    FROM payroll_records p
    JOIN guards g ON g.id = p.guard_id
    WHERE g.org_id = $1 AND p.year = $2 AND p.month = $3
    ORDER BY g.name ASC
  `, orgID, year, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.GuardID, &e.GuardName, &e.Month, &e.Year, &e.DaysWorked, &e.DailyRate, &e.Total, &e.Status, &e.GeneratedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) SetStatus(ctx context.Context, entryID, status string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE payroll_records SET status = $1 WHERE id = $2
  `, status, entryID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}
