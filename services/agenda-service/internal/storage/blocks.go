package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/espacoca/agenda/services/agenda-service/internal/availability"
	"github.com/espacoca/agenda/services/agenda-service/internal/model"
)

func (s *Store) CreateBlock(ctx context.Context, blk *model.Block) error {
	return s.pool.QueryRow(ctx, `
		INSERT INTO blocks (title, starts_at, ends_at)
		VALUES ($1, $2, $3)
		RETURNING id::text, created_at
	`, blk.Title, blk.StartsAt, blk.EndsAt).Scan(&blk.ID, &blk.CreatedAt)
}

func (s *Store) DeleteBlock(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM blocks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *Store) ListBlocksBetween(ctx context.Context, from, to time.Time) ([]model.Block, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, title, starts_at, ends_at, created_at
		FROM blocks
		WHERE starts_at < $2 AND ends_at > $1
		ORDER BY starts_at ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocks []model.Block
	for rows.Next() {
		var blk model.Block
		if err := rows.Scan(&blk.ID, &blk.Title, &blk.StartsAt, &blk.EndsAt, &blk.CreatedAt); err != nil {
			return nil, err
		}
		blocks = append(blocks, blk)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return blocks, nil
}

// FindBlockOverlapping returns the first block intersecting the half-open
// window, or pgx.ErrNoRows.
func (s *Store) FindBlockOverlapping(ctx context.Context, start, end time.Time) (model.Block, error) {
	var blk model.Block
	err := s.pool.QueryRow(ctx, `
		SELECT id::text, title, starts_at, ends_at, created_at
		FROM blocks
		WHERE starts_at < $2 AND ends_at > $1
		ORDER BY starts_at ASC
		LIMIT 1
	`, start, end).Scan(&blk.ID, &blk.Title, &blk.StartsAt, &blk.EndsAt, &blk.CreatedAt)
	return blk, err
}

// BlockIntervals feeds the availability finder.
func (s *Store) BlockIntervals(ctx context.Context, from, to time.Time) ([]availability.Interval, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT starts_at, ends_at
		FROM blocks
		WHERE starts_at < $2 AND ends_at > $1
		ORDER BY starts_at ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intervals []availability.Interval
	for rows.Next() {
		var iv availability.Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, err
		}
		intervals = append(intervals, iv)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return intervals, nil
}
