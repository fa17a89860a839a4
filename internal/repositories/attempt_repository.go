package repositories

import (
	"context"

	"github.com/ieltsprep/practice-service/internal/models"
)

// AttemptRepository interface for test attempt operations
type AttemptRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, attempt *models.Attempt) error
	GetByID(ctx context.Context, id uint) (*models.Attempt, error)
	GetByIDWithDetails(ctx context.Context, id uint) (*models.Attempt, error) // Include test and result
	Update(ctx context.Context, attempt *models.Attempt) error

	// Query operations
	List(ctx context.Context, filters AttemptFilters) ([]*models.Attempt, int64, error)
	GetByStudent(ctx context.Context, studentID uint, filters AttemptFilters) ([]*models.Attempt, int64, error)

	// Active attempt management
	GetActiveAttempt(ctx context.Context, studentID uint, testID uint) (*models.Attempt, error)

	// Results
	SaveResult(ctx context.Context, result *models.AttemptResult) error
	GetResult(ctx context.Context, attemptID uint) (*models.AttemptResult, error)
}
