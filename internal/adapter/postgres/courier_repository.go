package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/YelzhanWeb/fulfillment/internal/domain"
	"github.com/YelzhanWeb/fulfillment/internal/interfaces"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type courierRepository struct {
	db DB
}

func NewCourierRepository(db DB) interfaces.CourierRepository {
	return &courierRepository{db: db}
}

func (r *courierRepository) Create(ctx context.Context, courier *domain.Courier) error {
	query := `
		INSERT INTO couriers (id, name, phone, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Exec(ctx, query, courier.ID, courier.Name, courier.Phone, courier.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("courier %s: %w", courier.ID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create courier: %w", err)
	}
	return nil
}

func (r *courierRepository) FindByID(ctx context.Context, id string) (*domain.Courier, error) {
	query := `
		SELECT id, name, phone, created_at
		FROM couriers
		WHERE id = $1
	`

	var courier domain.Courier
	err := r.db.QueryRow(ctx, query, id).Scan(&courier.ID, &courier.Name, &courier.Phone, &courier.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.CourierNotFound(id)
		}
		return nil, fmt.Errorf("failed to load courier: %w", err)
	}

	return &courier, nil
}

func (r *courierRepository) ListAll(ctx context.Context) ([]*domain.Courier, error) {
	query := `SELECT id, name, phone, created_at FROM couriers ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list couriers: %w", err)
	}
	defer rows.Close()

	var couriers []*domain.Courier
	for rows.Next() {
		var c domain.Courier
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan courier: %w", err)
		}
		couriers = append(couriers, &c)
	}

	return couriers, rows.Err()
}
