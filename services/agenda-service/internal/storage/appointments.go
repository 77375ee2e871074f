package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/espacoca/agenda/services/agenda-service/internal/availability"
	"github.com/espacoca/agenda/services/agenda-service/internal/model"
	"github.com/espacoca/agenda/services/agenda-service/internal/outbox"
)

const appointmentColumns = `
	id::text, customer_phone, customer_name, service_ids, starts_at, ends_at,
	status, COALESCE(notes, ''), cancelled_at, created_at`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var appt model.Appointment
	err := row.Scan(
		&appt.ID,
		&appt.CustomerPhone,
		&appt.CustomerName,
		&appt.ServiceIDs,
		&appt.StartsAt,
		&appt.EndsAt,
		&appt.Status,
		&appt.Notes,
		&appt.CancelledAt,
		&appt.CreatedAt,
	)
	return appt, err
}

// CreateConfirmed inserts a confirmed appointment, upserting the customer by
// phone in the same transaction. The exclusion constraint on confirmed rows
// is the authoritative overlap guard; a violation surfaces via IsConflict.
func (s *Store) CreateConfirmed(ctx context.Context, appt *model.Appointment) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.upsertCustomerTx(ctx, tx, appt.CustomerPhone, appt.CustomerName); err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO appointments (customer_phone, customer_name, service_ids, starts_at, ends_at, status, notes)
		VALUES ($1, $2, $3, $4, $5, 'CONFIRMED', $6)
		RETURNING id::text, created_at
	`, appt.CustomerPhone, appt.CustomerName, appt.ServiceIDs, appt.StartsAt, appt.EndsAt, appt.Notes).
		Scan(&appt.ID, &appt.CreatedAt)
	if err != nil {
		return err
	}
	appt.Status = model.StatusConfirmed

	if err := s.outbox.Insert(ctx, tx, outbox.AppointmentBooked(*appt)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// CancelEarliestConfirmed cancels the customer's earliest confirmed
// appointment with starts_at at or after `from` and, when `until` is
// non-nil, before it. pgx.ErrNoRows when nothing matches.
func (s *Store) CancelEarliestConfirmed(ctx context.Context, phone string, from time.Time, until *time.Time) (model.Appointment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := scanAppointment(tx.QueryRow(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE customer_phone = $1 AND status = 'CONFIRMED' AND starts_at >= $2
			AND ($3::timestamptz IS NULL OR starts_at < $3)
		ORDER BY starts_at ASC
		LIMIT 1
		FOR UPDATE
	`, phone, from, until))
	if err != nil {
		return model.Appointment{}, err
	}

	appt, err = s.cancelTx(ctx, tx, appt.ID)
	if err != nil {
		return model.Appointment{}, err
	}
	return appt, tx.Commit(ctx)
}

// CancelByID cancels a confirmed appointment regardless of owner (admin
// surface). pgx.ErrNoRows when absent or not confirmed.
func (s *Store) CancelByID(ctx context.Context, id string) (model.Appointment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := s.cancelTx(ctx, tx, id)
	if err != nil {
		return model.Appointment{}, err
	}
	return appt, tx.Commit(ctx)
}

func (s *Store) cancelTx(ctx context.Context, tx pgx.Tx, id string) (model.Appointment, error) {
	appt, err := scanAppointment(tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'CANCELLED', cancelled_at = now()
		WHERE id = $1 AND status = 'CONFIRMED'
		RETURNING`+appointmentColumns+`
	`, id))
	if err != nil {
		return model.Appointment{}, err
	}
	if err := s.outbox.Insert(ctx, tx, outbox.AppointmentCancelled(appt)); err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

// RescheduleEarliestConfirmed moves the customer's next upcoming confirmed
// appointment to the new window in place, in a single transaction. The
// exclusion constraint re-validates the new window; the old slot is only
// released if the move commits.
func (s *Store) RescheduleEarliestConfirmed(ctx context.Context, phone string, now, newStart, newEnd time.Time) (model.Appointment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := scanAppointment(tx.QueryRow(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE customer_phone = $1 AND status = 'CONFIRMED' AND starts_at >= $2
		ORDER BY starts_at ASC
		LIMIT 1
		FOR UPDATE
	`, phone, now))
	if err != nil {
		return model.Appointment{}, err
	}

	appt, err = s.rescheduleTx(ctx, tx, appt.ID, newStart, newEnd)
	if err != nil {
		return model.Appointment{}, err
	}
	return appt, tx.Commit(ctx)
}

// RescheduleByID moves any confirmed appointment (admin surface).
func (s *Store) RescheduleByID(ctx context.Context, id string, newStart, newEnd time.Time) (model.Appointment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := s.rescheduleTx(ctx, tx, id, newStart, newEnd)
	if err != nil {
		return model.Appointment{}, err
	}
	return appt, tx.Commit(ctx)
}

func (s *Store) rescheduleTx(ctx context.Context, tx pgx.Tx, id string, newStart, newEnd time.Time) (model.Appointment, error) {
	appt, err := scanAppointment(tx.QueryRow(ctx, `
		UPDATE appointments
		SET starts_at = $2, ends_at = $3
		WHERE id = $1 AND status = 'CONFIRMED'
		RETURNING`+appointmentColumns+`
	`, id, newStart, newEnd))
	if err != nil {
		return model.Appointment{}, err
	}
	if err := s.outbox.Insert(ctx, tx, outbox.AppointmentRescheduled(appt)); err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

func (s *Store) UpdateNotesByID(ctx context.Context, id, notes string) (model.Appointment, error) {
	return scanAppointment(s.pool.QueryRow(ctx, `
		UPDATE appointments
		SET notes = $2
		WHERE id = $1
		RETURNING`+appointmentColumns+`
	`, id, notes))
}

func (s *Store) GetByID(ctx context.Context, id string) (model.Appointment, error) {
	return scanAppointment(s.pool.QueryRow(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id))
}

// FindEarliestConfirmed returns the customer's next upcoming confirmed
// appointment without locking it.
func (s *Store) FindEarliestConfirmed(ctx context.Context, phone string, now time.Time) (model.Appointment, error) {
	return scanAppointment(s.pool.QueryRow(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE customer_phone = $1 AND status = 'CONFIRMED' AND starts_at >= $2
		ORDER BY starts_at ASC
		LIMIT 1
	`, phone, now))
}

// ListUpcomingByPhone returns the customer's confirmed appointments starting
// at or after now, oldest first.
func (s *Store) ListUpcomingByPhone(ctx context.Context, phone string, now time.Time) ([]model.Appointment, error) {
	return s.queryAppointments(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE customer_phone = $1 AND status = 'CONFIRMED' AND starts_at >= $2
		ORDER BY starts_at ASC
	`, phone, now)
}

// ListBetween returns all appointments, any status, intersecting the
// half-open window (admin surface).
func (s *Store) ListBetween(ctx context.Context, from, to time.Time) ([]model.Appointment, error) {
	return s.queryAppointments(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE starts_at < $2 AND ends_at > $1
		ORDER BY starts_at ASC
	`, from, to)
}

// ListConfirmedBetween returns confirmed appointments intersecting the
// half-open window, oldest first.
func (s *Store) ListConfirmedBetween(ctx context.Context, from, to time.Time) ([]model.Appointment, error) {
	return s.queryAppointments(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE status = 'CONFIRMED' AND starts_at < $2 AND ends_at > $1
		ORDER BY starts_at ASC
	`, from, to)
}

// ConfirmedIntervals feeds the availability finder.
func (s *Store) ConfirmedIntervals(ctx context.Context, from, to time.Time) ([]availability.Interval, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT starts_at, ends_at
		FROM appointments
		WHERE status = 'CONFIRMED' AND starts_at < $2 AND ends_at > $1
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

func (s *Store) queryAppointments(ctx context.Context, sql string, args ...any) ([]model.Appointment, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]model.Appointment, error) {
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}
