package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/espacoca/agenda/services/agenda-service/internal/model"
)

// UpsertOverride sets the open/closed override for a civil date, replacing
// any previous one.
func (s *Store) UpsertOverride(ctx context.Context, ov model.ScheduleOverride) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO schedule_overrides (date, is_open, reason)
		VALUES ($1, $2, $3)
		ON CONFLICT (date) DO UPDATE SET is_open = EXCLUDED.is_open, reason = EXCLUDED.reason
	`, ov.Date, ov.IsOpen, ov.Reason)
	return err
}

func (s *Store) DeleteOverride(ctx context.Context, date string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM schedule_overrides WHERE date = $1`, date)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *Store) ListOverrides(ctx context.Context) ([]model.ScheduleOverride, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT date::text, is_open, COALESCE(reason, '')
		FROM schedule_overrides
		ORDER BY date ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ScheduleOverride
	for rows.Next() {
		var ov model.ScheduleOverride
		if err := rows.Scan(&ov.Date, &ov.IsOpen, &ov.Reason); err != nil {
			return nil, err
		}
		out = append(out, ov)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// OverridesBetween keys overrides by civil date for the availability finder.
// The window is widened a day each side because the session timezone may not
// match business-local time; callers look up exact dates in the map anyway.
func (s *Store) OverridesBetween(ctx context.Context, from, to time.Time) (map[string]model.ScheduleOverride, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT date::text, is_open, COALESCE(reason, '')
		FROM schedule_overrides
		WHERE date >= $1::date - 1 AND date < $2::date + 1
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]model.ScheduleOverride)
	for rows.Next() {
		var ov model.ScheduleOverride
		if err := rows.Scan(&ov.Date, &ov.IsOpen, &ov.Reason); err != nil {
			return nil, err
		}
		out[ov.Date] = ov
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// OverrideFor returns the override for one civil date, or (nil, nil).
func (s *Store) OverrideFor(ctx context.Context, date string) (*model.ScheduleOverride, error) {
	var ov model.ScheduleOverride
	err := s.pool.QueryRow(ctx, `
		SELECT date::text, is_open, COALESCE(reason, '')
		FROM schedule_overrides
		WHERE date = $1
	`, date).Scan(&ov.Date, &ov.IsOpen, &ov.Reason)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ov, nil
}
