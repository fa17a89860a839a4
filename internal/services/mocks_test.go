package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ieltsprep/practice-service/internal/cache"
	"github.com/ieltsprep/practice-service/internal/models"
	"github.com/ieltsprep/practice-service/internal/repositories"
)

// MockTestRepository is a mock implementation of TestRepository
type MockTestRepository struct {
	mock.Mock
}

func (m *MockTestRepository) Create(ctx context.Context, test *models.Test) error {
	args := m.Called(ctx, test)
	return args.Error(0)
}

func (m *MockTestRepository) GetByID(ctx context.Context, id uint) (*models.Test, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Test), args.Error(1)
}

func (m *MockTestRepository) GetByIDWithDetails(ctx context.Context, id uint) (*models.Test, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Test), args.Error(1)
}

func (m *MockTestRepository) Update(ctx context.Context, test *models.Test) error {
	args := m.Called(ctx, test)
	return args.Error(0)
}

func (m *MockTestRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTestRepository) List(ctx context.Context, filters repositories.TestFilters) ([]*models.Test, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*models.Test), args.Get(1).(int64), args.Error(2)
}

func (m *MockTestRepository) Search(ctx context.Context, query string, filters repositories.TestFilters) ([]*models.Test, int64, error) {
	args := m.Called(ctx, query, filters)
	return args.Get(0).([]*models.Test), args.Get(1).(int64), args.Error(2)
}

func (m *MockTestRepository) UpdateStatus(ctx context.Context, id uint, status models.TestStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockTestRepository) IsOwner(ctx context.Context, testID, userID uint) (bool, error) {
	args := m.Called(ctx, testID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTestRepository) HasAttempts(ctx context.Context, testID uint) (bool, error) {
	args := m.Called(ctx, testID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTestRepository) ReplaceSections(ctx context.Context, testID uint, sections []models.Section) error {
	args := m.Called(ctx, testID, sections)
	return args.Error(0)
}

func (m *MockTestRepository) AddQuestions(ctx context.Context, sectionID uint, questions []models.Question) error {
	args := m.Called(ctx, sectionID, questions)
	return args.Error(0)
}

func (m *MockTestRepository) GetStats(ctx context.Context, testID uint) (*repositories.TestStats, error) {
	args := m.Called(ctx, testID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.TestStats), args.Error(1)
}

// MockAttemptRepository is a mock implementation of AttemptRepository
type MockAttemptRepository struct {
	mock.Mock
}

func (m *MockAttemptRepository) Create(ctx context.Context, attempt *models.Attempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *MockAttemptRepository) GetByID(ctx context.Context, id uint) (*models.Attempt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Attempt), args.Error(1)
}

func (m *MockAttemptRepository) GetByIDWithDetails(ctx context.Context, id uint) (*models.Attempt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Attempt), args.Error(1)
}

func (m *MockAttemptRepository) Update(ctx context.Context, attempt *models.Attempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *MockAttemptRepository) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*models.Attempt), args.Get(1).(int64), args.Error(2)
}

func (m *MockAttemptRepository) GetByStudent(ctx context.Context, studentID uint, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	args := m.Called(ctx, studentID, filters)
	return args.Get(0).([]*models.Attempt), args.Get(1).(int64), args.Error(2)
}

func (m *MockAttemptRepository) GetActiveAttempt(ctx context.Context, studentID uint, testID uint) (*models.Attempt, error) {
	args := m.Called(ctx, studentID, testID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Attempt), args.Error(1)
}

func (m *MockAttemptRepository) SaveResult(ctx context.Context, result *models.AttemptResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockAttemptRepository) GetResult(ctx context.Context, attemptID uint) (*models.AttemptResult, error) {
	args := m.Called(ctx, attemptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AttemptResult), args.Error(1)
}

// MockRepository aggregates the repository mocks behind the Repository
// interface. WithTransaction just runs the callback against itself.
type MockRepository struct {
	testRepo    *MockTestRepository
	attemptRepo *MockAttemptRepository
}

func newMockRepository() *MockRepository {
	return &MockRepository{
		testRepo:    &MockTestRepository{},
		attemptRepo: &MockAttemptRepository{},
	}
}

func (m *MockRepository) Test() repositories.TestRepository       { return m.testRepo }
func (m *MockRepository) Attempt() repositories.AttemptRepository { return m.attemptRepo }
func (m *MockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}

// noopCache always misses, so service tests exercise the repository path.
type noopCache struct{}

func (noopCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}
func (noopCache) Get(ctx context.Context, key string, dest interface{}) error {
	return cache.ErrCacheMiss
}
func (noopCache) Delete(ctx context.Context, key string) error         { return nil }
func (noopCache) DeletePattern(ctx context.Context, pattern string) error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func stringPtr(s string) *string { return &s }
