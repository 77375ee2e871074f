package storage

import (
	"context"

	"github.com/espacoca/agenda/services/agenda-service/internal/model"
)

func (s *Store) ListServices(ctx context.Context) ([]model.Service, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, duration_mins, price
		FROM services
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []model.Service
	for rows.Next() {
		var svc model.Service
		if err := rows.Scan(&svc.ID, &svc.Name, &svc.DurationMins, &svc.Price); err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return services, nil
}

// ServicesByIDs resolves the given service ids, preserving no particular
// order. Unknown ids are simply absent from the result.
func (s *Store) ServicesByIDs(ctx context.Context, ids []string) ([]model.Service, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, duration_mins, price
		FROM services
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []model.Service
	for rows.Next() {
		var svc model.Service
		if err := rows.Scan(&svc.ID, &svc.Name, &svc.DurationMins, &svc.Price); err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return services, nil
}
