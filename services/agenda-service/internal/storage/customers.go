package storage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/espacoca/agenda/services/agenda-service/internal/model"
)

// upsertCustomerTx keeps one customer row per phone. A non-empty name
// refreshes the stored one; an empty name never clobbers it.
func (s *Store) upsertCustomerTx(ctx context.Context, tx pgx.Tx, phone, name string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO customers (phone, name)
		VALUES ($1, $2)
		ON CONFLICT (phone) DO UPDATE
		SET name = CASE WHEN EXCLUDED.name <> '' THEN EXCLUDED.name ELSE customers.name END
	`, phone, name)
	return err
}

func (s *Store) GetCustomer(ctx context.Context, phone string) (model.Customer, error) {
	var c model.Customer
	err := s.pool.QueryRow(ctx, `
		SELECT phone, name, created_at
		FROM customers
		WHERE phone = $1
	`, phone).Scan(&c.Phone, &c.Name, &c.CreatedAt)
	return c, err
}

func (s *Store) ListCustomers(ctx context.Context, limit int) ([]model.Customer, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT phone, name, created_at
		FROM customers
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []model.Customer
	for rows.Next() {
		var c model.Customer
		if err := rows.Scan(&c.Phone, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return customers, nil
}
