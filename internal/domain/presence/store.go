package presence

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) InsertPing(ctx context.Context, guardID string, lat, lng float64, accuracy *float64) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO guard_locations (guard_id, lat, lng, accuracy)
    VALUES ($1, $2, $3, $4)
  `, guardID, lat, lng, accuracy)
	return err
}

// RecentPings returns up to limit pings for a guard, newest first.
// The status resolver only ever needs the two newest.
func (s *Store) RecentPings(ctx context.Context, guardID string, limit int) ([]Ping, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, guard_id, lat, lng, accuracy, timestamp
    FROM guard_locations
    WHERE guard_id = $1
    ORDER BY timestamp DESC
    LIMIT $2
  `, guardID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPings(rows)
}

// RecentPingsBatch returns the two newest pings per guard in one query,
// newest first, so list endpoints can compute status without an N+1
// query per guard.
func (s *Store) RecentPingsBatch(ctx context.Context, guardIDs []string) (map[string][]Ping, error) {
	out := make(map[string][]Ping, len(guardIDs))
	if len(guardIDs) == 0 {
		return out, nil
	}
	rows, err := s.DB.Query(ctx, `
    SELECT id, guard_id, lat, lng, accuracy, timestamp
    FROM (
      SELECT id, guard_id, lat, lng, accuracy, timestamp,
             ROW_NUMBER() OVER (PARTITION BY guard_id ORDER BY timestamp DESC) AS rn
      FROM guard_locations
      WHERE guard_id = ANY($1)
    ) ranked
    WHERE rn <= 2
    ORDER BY guard_id, timestamp DESC
  `, guardIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	pings, err := scanPings(rows)
	if err != nil {
		return nil, err
	}
	for _, p := range pings {
		out[p.GuardID] = append(out[p.GuardID], p)
	}
	return out, nil
}

// LatestForClockedIn returns the newest ping per clocked-in guard in
// the organization, for the live map view.
func (s *Store) LatestForClockedIn(ctx context.Context, orgID string) ([]Ping, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT DISTINCT ON (gl.guard_id)
           gl.id, gl.guard_id, gl.lat, gl.lng, gl.accuracy, gl.timestamp
    FROM guard_locations gl
    JOIN guards g ON g.id = gl.guard_id
    WHERE g.org_id = $1 AND g.clocked_in
    ORDER BY gl.guard_id, gl.timestamp DESC
  `, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPings(rows)
}

// History returns pings for a guard within an optional time range,
// newest first.
func (s *Store) History(ctx context.Context, guardID string, from, to string, limit int) ([]Ping, error) {
	sql := `
    SELECT id, guard_id, lat, lng, accuracy, timestamp
    FROM guard_locations
    WHERE guard_id = $1`
	args := []any{guardID}
	if from != "" {
		args = append(args, from)
		sql += ` AND timestamp >= $2`
	}
	if to != "" {
		args = append(args, to)
		if from != "" {
			sql += ` AND timestamp <= $3`
		} else {
			sql += ` AND timestamp <= $2`
		}
	}
	args = append(args, limit)
	sql += ` ORDER BY timestamp DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := s.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPings(rows)
}

// DeleteOlderThan removes pings past the retention cutoff and returns
// the number deleted.
func (s *Store) DeleteOlderThan(ctx context.Context, orgID string, cutoff string) (int64, error) {
	tag, err := s.DB.Exec(ctx, `
    DELETE FROM guard_locations gl
    USING guards g
    WHERE g.id = gl.guard_id AND g.org_id = $1 AND gl.timestamp < $2
  `, orgID, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanPings(rows pgx.Rows) ([]Ping, error) {
	var out []Ping
	for rows.Next() {
		var p Ping
		if err := rows.Scan(&p.ID, &p.GuardID, &p.Lat, &p.Lng, &p.Accuracy, &p.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
