package domain

import (
	"errors"
	"strings"
	"time"
)

// Courier is an entry of the courier directory.
type Courier struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// NewCourier creates a directory entry
func NewCourier(id, name, phone string) (*Courier, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("courier id is required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("courier name is required")
	}

	return &Courier{
		ID:        strings.TrimSpace(id),
		Name:      strings.TrimSpace(name),
		Phone:     strings.TrimSpace(phone),
		CreatedAt: time.Now(),
	}, nil
}

// CountsTowardLoad reports whether an order occupies its courier.
func CountsTowardLoad(o *Order) bool {
	return o.CourierID != "" && (o.Status == StatusReadyToShip || o.Status == StatusShipped)
}
