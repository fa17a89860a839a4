package repositories

import (
	"context"

	"github.com/ieltsprep/practice-service/internal/models"
)

// TestRepository interface for test content operations
type TestRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, test *models.Test) error
	GetByID(ctx context.Context, id uint) (*models.Test, error)
	GetByIDWithDetails(ctx context.Context, id uint) (*models.Test, error) // Include sections and questions
	Update(ctx context.Context, test *models.Test) error
	Delete(ctx context.Context, id uint) error // Soft delete

	// Query operations
	List(ctx context.Context, filters TestFilters) ([]*models.Test, int64, error)
	Search(ctx context.Context, query string, filters TestFilters) ([]*models.Test, int64, error)

	// Status management
	UpdateStatus(ctx context.Context, id uint, status models.TestStatus) error

	// Validation helpers
	IsOwner(ctx context.Context, testID uint, userID uint) (bool, error)
	HasAttempts(ctx context.Context, id uint) (bool, error)

	// Section and question management
	ReplaceSections(ctx context.Context, testID uint, sections []models.Section) error
	AddQuestions(ctx context.Context, sectionID uint, questions []models.Question) error

	// Statistics
	GetStats(ctx context.Context, id uint) (*TestStats, error)
}
