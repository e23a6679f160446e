package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrValidation        = errors.New("validation failed")
	ErrAlreadySettled    = errors.New("order already settled")
	ErrStaleDraft        = errors.New("order changed since the draft was opened")
	ErrAlreadyExists     = errors.New("already exists")

	// ErrUnchanged is returned by a mutation that found nothing to do.
	// Repositories treat it as a successful no-op and skip the write.
	ErrUnchanged = errors.New("order unchanged")
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

func OrderNotFound(id string) error {
	return fmt.Errorf("order %s: %w", id, ErrNotFound)
}

func CourierNotFound(id string) error {
	return fmt.Errorf("courier %s: %w", id, ErrNotFound)
}
