package storage

import (
	"context"
	"time"

	"github.com/espacoca/agenda/services/agenda-service/internal/outbox"
)

// SweepDueReminders finds confirmed appointments starting inside the half-open
// window that have not been reminded yet, marks them and emits one reminder
// event each, all in one transaction. SKIP LOCKED keeps concurrent sweepers
// from double-sending. Returns how many reminders were queued.
func (s *Store) SweepDueReminders(ctx context.Context, from, to time.Time) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE status = 'CONFIRMED'
			AND starts_at >= $1 AND starts_at < $2
			AND NOT EXISTS (
				SELECT 1 FROM appointment_reminders r WHERE r.appointment_id = appointments.id
			)
		ORDER BY starts_at ASC
		FOR UPDATE SKIP LOCKED
	`, from, to)
	if err != nil {
		return 0, err
	}

	appts, err := collectAppointments(rows)
	if err != nil {
		return 0, err
	}
	if len(appts) == 0 {
		return 0, tx.Commit(ctx)
	}

	queued := 0
	for _, appt := range appts {
		tag, err := tx.Exec(ctx, `
			INSERT INTO appointment_reminders (appointment_id)
			VALUES ($1)
			ON CONFLICT (appointment_id) DO NOTHING
		`, appt.ID)
		if err != nil {
			return 0, err
		}
		if tag.RowsAffected() == 0 {
			continue
		}
		if err := s.outbox.Insert(ctx, tx, outbox.ReminderDue(appt)); err != nil {
			return 0, err
		}
		queued++
	}
	return queued, tx.Commit(ctx)
}
