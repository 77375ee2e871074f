package storage

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/espacoca/agenda/libs/db"
	"github.com/espacoca/agenda/services/agenda-service/internal/outbox"
)

// Store owns the Postgres access of agenda-service. Methods that mutate state
// run their own transaction and append outbox events inside it, so events
// commit atomically with the rows they describe.
type Store struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func New(pool *db.Pool, ob *outbox.Repository) *Store {
	return &Store{pool: pool, outbox: ob}
}

// IsConflict reports whether err is the exclusion-constraint violation raised
// when two confirmed appointments would occupy overlapping time.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
