package storage

import (
	"context"

	"github.com/espacoca/agenda/libs/db"
)

// Notification is one delivery attempt, the audit trail of everything the
// service tried to send.
type Notification struct {
	AppointmentID string
	Recipient     string
	Message       string
	Status        string
	Error         string
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, n Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (appointment_id, recipient, message, status, error)
		VALUES ($1, $2, $3, $4, $5)
	`, n.AppointmentID, n.Recipient, n.Message, n.Status, n.Error)
	return err
}
