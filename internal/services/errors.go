// internal/services/errors.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/javajoker/medconnect-backend/internal/repository"
)

// Error kinds surfaced to callers. Match them with errors.Is.
var (
	ErrNotFound          = repository.ErrNotFound
	ErrConflict          = repository.ErrConflict
	ErrInsufficientStock = repository.ErrInsufficientStock
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrValidation        = errors.New("validation failed")
	ErrUnauthorized      = errors.New("invalid credentials")
)

// LineItemError reports which line item stopped an order from being placed.
type LineItemError struct {
	Index      int
	MedicineID uuid.UUID
	Err        error
}

func (e *LineItemError) Error() string {
	return fmt.Sprintf("item %d (medicine %s): %v", e.Index, e.MedicineID, e.Err)
}

func (e *LineItemError) Unwrap() error {
	return e.Err
}

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
