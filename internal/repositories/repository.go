package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repository aggregates the per-aggregate repositories behind one handle
// so services depend on a single interface.
type Repository interface {
	Test() TestRepository
	Attempt() AttemptRepository

	// WithTransaction runs fn against a Repository bound to one
	// transaction, committing on nil and rolling back on error.
	WithTransaction(ctx context.Context, fn func(Repository) error) error
}

// IsNotFoundError checks if the error represents a missing record.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
