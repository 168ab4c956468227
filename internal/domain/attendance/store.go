package attendance

import (
	"context"
	"errors"
	"strconv"
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

// Open inserts a new attendance record starting now.
func (s *Store) Open(ctx context.Context, guardID string, now time.Time) (Record, error) {
	var rec Record
	err := s.DB.QueryRow(ctx, `
    INSERT INTO guard_attendance (guard_id, clock_in, date)
    VALUES ($1, $2, $2::date)
    RETURNING id, guard_id, clock_in, clock_out, hours_worked, date
  `, guardID, now).Scan(&rec.ID, &rec.GuardID, &rec.ClockIn, &rec.ClockOut, &rec.HoursWorked, &rec.Date)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// CloseOpen closes the guard's newest open record, computing hours
// worked, and reports whether one existed.
func (s *Store) CloseOpen(ctx context.Context, guardID string, now time.Time) (Record, bool, error) {
	var rec Record
	err := s.DB.QueryRow(ctx, `
    UPDATE guard_attendance
    SET clock_out = $2,
        hours_worked = EXTRACT(EPOCH FROM ($2 - clock_in)) / 3600.0
    WHERE id = (
      SELECT id FROM guard_attendance
      WHERE guard_id = $1 AND clock_out IS NULL
      ORDER BY clock_in DESC
      LIMIT 1
    )
    RETURNING id, guard_id, clock_in, clock_out, hours_worked, date
  `, guardID, now).Scan(&rec.ID, &rec.GuardID, &rec.ClockIn, &rec.ClockOut, &rec.HoursWorked, &rec.Date)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

// ForGuard lists a guard's records within an optional date range,
// newest first.
func (s *Store) ForGuard(ctx context.Context, guardID string, from, to string) ([]Record, error) {
	sql := `
    SELECT id, guard_id, clock_in, clock_out, hours_worked, date
    FROM guard_attendance
    WHERE guard_id = $1`
	args := []any{guardID}
	sql, args = appendRange(sql, args, from, to)
	sql += ` ORDER BY clock_in DESC`

	rows, err := s.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows, false)
}

// ForOrg lists an organization's records with guard names, newest
// first, for the staff dashboard and CSV export.
func (s *Store) ForOrg(ctx context.Context, orgID string, from, to string) ([]Record, error) {
	sql := `
    SELECT a.id, a.guard_id, g.name, a.clock_in, a.clock_out, a.hours_worked, a.date
    FROM guard_attendance a
    JOIN guards g ON g.id = a.guard_id
    WHERE g.org_id = $1`
	args := []any{orgID}
	sql, args = appendRange(sql, args, from, to)
	sql += ` ORDER BY a.clock_in DESC`

	rows, err := s.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows, true)
}

// DaysWorked counts the distinct calendar days a guard completed at
// least one closed record in the given month.
func (s *Store) DaysWorked(ctx context.Context, guardID string, year, month int) (int, error) {
	var days int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(DISTINCT date)
    FROM guard_attendance
    WHERE guard_id = $1
      AND clock_out IS NOT NULL
      AND EXTRACT(YEAR FROM date) = $2
      AND EXTRACT(MONTH FROM date) = $3
  `, guardID, year, month).Scan(&days)
	if err != nil {
		return 0, err
	}
	return days, nil
}

func appendRange(sql string, args []any, from, to string) (string, []any) {
	if from != "" {
		args = append(args, from)
		sql += ` AND date >= $` + strconv.Itoa(len(args))
	}
	if to != "" {
		args = append(args, to)
		sql += ` AND date <= $` + strconv.Itoa(len(args))
	}
	return sql, args
}

func scanRecords(rows pgx.Rows, withName bool) ([]Record, error) {
	var out []Record
	for rows.Next() {
		var rec Record
		var err error
		if withName {
			err = rows.Scan(&rec.ID, &rec.GuardID, &rec.GuardName, &rec.ClockIn, &rec.ClockOut, &rec.HoursWorked, &rec.Date)
		} else {
			err = rows.Scan(&rec.ID, &rec.GuardID, &rec.ClockIn, &rec.ClockOut, &rec.HoursWorked, &rec.Date)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
