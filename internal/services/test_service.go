package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ieltsprep/practice-service/internal/cache"
	"github.com/ieltsprep/practice-service/internal/models"
	"github.com/ieltsprep/practice-service/internal/repositories"
	"github.com/ieltsprep/practice-service/internal/utils"
)

// TestService manages the admin-facing content lifecycle of tests. The
// test-taking side only ever reads through GetByIDWithDetails.
type TestService interface {
	Create(ctx context.Context, req *CreateTestRequest, creatorID uint) (*models.Test, error)
	Update(ctx context.Context, id uint, req *UpdateTestRequest, userID uint) (*models.Test, error)
	Delete(ctx context.Context, id uint, userID uint) error
	GetByID(ctx context.Context, id uint) (*models.Test, error)
	GetByIDWithDetails(ctx context.Context, id uint) (*models.Test, error)
	List(ctx context.Context, filters repositories.TestFilters) ([]*models.Test, int64, error)
	Search(ctx context.Context, query string, filters repositories.TestFilters) ([]*models.Test, int64, error)
	Publish(ctx context.Context, id uint, userID uint) error
	Archive(ctx context.Context, id uint, userID uint) error
	GetStats(ctx context.Context, id uint) (*repositories.TestStats, error)
}

// ===== REQUEST STRUCTURES =====

type QuestionInput struct {
	QuestionNumber int                 `json:"question_number" validate:"required,min=1"`
	QuestionType   models.QuestionType `json:"question_type" validate:"required,question_type"`
	Question       string              `json:"question" validate:"required"`
	Options        []string            `json:"options,omitempty"`
	// CorrectAnswer lists the canonical answer first, optionally followed
	// by acceptable alternatives.
	CorrectAnswer []string `json:"correct_answer" validate:"required,min=1,dive,required"`
	ContextText   *string  `json:"context_text,omitempty"`
	ImageURL      *string  `json:"image_url,omitempty"`
}

type SectionInput struct {
	Title      *string         `json:"title,omitempty" validate:"omitempty,max=200"`
	Content    *string         `json:"content,omitempty"`
	AudioURL   *string         `json:"audio_url,omitempty" validate:"omitempty,max=500"`
	Transcript *string         `json:"transcript,omitempty"`
	Questions  []QuestionInput `json:"questions" validate:"required,min=1,dive"`
}

type CreateTestRequest struct {
	Title      string                 `json:"title" validate:"required,min=1,max=200"`
	TestType   models.TestType        `json:"test_type" validate:"required,test_type"`
	Difficulty models.DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty_level"`
	TimeLimit  int                    `json:"time_limit" validate:"required,min=5,max=300"`
	Sections   []SectionInput         `json:"sections" validate:"required,min=1,dive"`
}

type UpdateTestRequest struct {
	Title      *string                 `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Difficulty *models.DifficultyLevel `json:"difficulty,omitempty" validate:"omitempty,difficulty_level"`
	TimeLimit  *int                    `json:"time_limit,omitempty" validate:"omitempty,min=5,max=300"`
	Sections   []SectionInput          `json:"sections,omitempty" validate:"omitempty,min=1,dive"`
}

type testService struct {
	repo      repositories.Repository
	cache     cache.CacheService
	cacheTTL  time.Duration
	logger    *slog.Logger
	validator *utils.Validator
}

func NewTestService(repo repositories.Repository, cacheService cache.CacheService, cacheTTL time.Duration, logger *slog.Logger, validator *utils.Validator) TestService {
	return &testService{
		repo:      repo,
		cache:     cacheService,
		cacheTTL:  cacheTTL,
		logger:    logger,
		validator: validator,
	}
}

// ===== CONTENT OPERATIONS =====

func (s *testService) Create(ctx context.Context, req *CreateTestRequest, creatorID uint) (*models.Test, error) {
	s.logger.Info("Creating test", "title", req.Title, "test_type", req.TestType, "creator_id", creatorID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	sections, totalQuestions, err := s.buildSections(req.TestType, req.Sections)
	if err != nil {
		return nil, err
	}

	test := &models.Test{
		Title:          req.Title,
		TestType:       req.TestType,
		Difficulty:     req.Difficulty,
		TimeLimit:      req.TimeLimit,
		Status:         models.StatusDraft,
		TotalQuestions: totalQuestions,
		CreatedBy:      creatorID,
		Sections:       sections,
	}
	if test.Difficulty == "" {
		test.Difficulty = models.DifficultyMedium
	}

	if err := s.repo.Test().Create(ctx, test); err != nil {
		return nil, fmt.Errorf("failed to create test: %w", err)
	}

	s.logger.Info("Test created", "test_id", test.ID, "questions", totalQuestions)
	return test, nil
}

func (s *testService) Update(ctx context.Context, id uint, req *UpdateTestRequest, userID uint) (*models.Test, error) {
	s.logger.Info("Updating test", "test_id", id, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	test, err := s.getOwned(ctx, id, userID, "update")
	if err != nil {
		return nil, err
	}

	if test.Status != models.StatusDraft {
		return nil, ErrTestNotEditable
	}

	if req.Title != nil {
		test.Title = *req.Title
	}
	if req.Difficulty != nil {
		test.Difficulty = *req.Difficulty
	}
	if req.TimeLimit != nil {
		test.TimeLimit = *req.TimeLimit
	}

	if req.Sections != nil {
		sections, totalQuestions, err := s.buildSections(test.TestType, req.Sections)
		if err != nil {
			return nil, err
		}
		if err := s.repo.Test().ReplaceSections(ctx, test.ID, sections); err != nil {
			return nil, fmt.Errorf("failed to replace sections: %w", err)
		}
		test.TotalQuestions = totalQuestions
	}

	test.Version++
	test.Sections = nil // relations were replaced above, do not resave stale ones
	if err := s.repo.Test().Update(ctx, test); err != nil {
		return nil, fmt.Errorf("failed to update test: %w", err)
	}

	s.invalidate(ctx, id)
	return s.repo.Test().GetByIDWithDetails(ctx, id)
}

func (s *testService) Delete(ctx context.Context, id uint, userID uint) error {
	s.logger.Info("Deleting test", "test_id", id, "user_id", userID)

	if _, err := s.getOwned(ctx, id, userID, "delete"); err != nil {
		return err
	}

	hasAttempts, err := s.repo.Test().HasAttempts(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check attempts: %w", err)
	}
	if hasAttempts {
		return ErrTestNotDeletable
	}

	if err := s.repo.Test().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete test: %w", err)
	}

	s.invalidate(ctx, id)
	return nil
}

func (s *testService) GetByID(ctx context.Context, id uint) (*models.Test, error) {
	test, err := s.repo.Test().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	return test, nil
}

func (s *testService) GetByIDWithDetails(ctx context.Context, id uint) (*models.Test, error) {
	key := testCacheKey(id)

	var cached models.Test
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Test cache read failed", "test_id", id, "error", err)
	}

	test, err := s.repo.Test().GetByIDWithDetails(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test with details: %w", err)
	}

	if err := s.cache.Set(ctx, key, test, s.cacheTTL); err != nil {
		s.logger.Warn("Test cache write failed", "test_id", id, "error", err)
	}
	return test, nil
}

func (s *testService) List(ctx context.Context, filters repositories.TestFilters) ([]*models.Test, int64, error) {
	tests, total, err := s.repo.Test().List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tests: %w", err)
	}
	return tests, total, nil
}

func (s *testService) Search(ctx context.Context, query string, filters repositories.TestFilters) ([]*models.Test, int64, error) {
	tests, total, err := s.repo.Test().Search(ctx, query, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search tests: %w", err)
	}
	return tests, total, nil
}

// ===== STATUS OPERATIONS =====

func (s *testService) Publish(ctx context.Context, id uint, userID uint) error {
	s.logger.Info("Publishing test", "test_id", id, "user_id", userID)

	test, err := s.getOwned(ctx, id, userID, "publish")
	if err != nil {
		return err
	}
	if test.Status != models.StatusDraft {
		return ErrTestInvalidStatus
	}
	if test.TotalQuestions == 0 {
		return ErrTestNoQuestions
	}

	if err := s.repo.Test().UpdateStatus(ctx, id, models.StatusActive); err != nil {
		return fmt.Errorf("failed to publish test: %w", err)
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *testService) Archive(ctx context.Context, id uint, userID uint) error {
	s.logger.Info("Archiving test", "test_id", id, "user_id", userID)

	test, err := s.getOwned(ctx, id, userID, "archive")
	if err != nil {
		return err
	}
	if test.Status == models.StatusArchived {
		return ErrTestInvalidStatus
	}

	if err := s.repo.Test().UpdateStatus(ctx, id, models.StatusArchived); err != nil {
		return fmt.Errorf("failed to archive test: %w", err)
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *testService) GetStats(ctx context.Context, id uint) (*repositories.TestStats, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.Test().GetStats(ctx, id)
}

// ===== HELPERS =====

func (s *testService) getOwned(ctx context.Context, id uint, userID uint, action string) (*models.Test, error) {
	test, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	isOwner, err := s.repo.Test().IsOwner(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check ownership: %w", err)
	}
	if !isOwner {
		return nil, NewPermissionError(userID, id, "test", action, "not the test creator")
	}
	return test, nil
}

// buildSections converts section inputs into models, enforcing the
// type-specific content rules and the global question numbering invariant.
func (s *testService) buildSections(testType models.TestType, inputs []SectionInput) ([]models.Section, int, error) {
	sections := make([]models.Section, 0, len(inputs))
	totalQuestions := 0

	for i, input := range inputs {
		switch testType {
		case models.TestTypeReading:
			if input.Content == nil || *input.Content == "" {
				return nil, 0, NewValidationError("sections", fmt.Sprintf("reading passage %d requires content", i+1), nil)
			}
		case models.TestTypeListening:
			if input.AudioURL == nil || *input.AudioURL == "" {
				return nil, 0, NewValidationError("sections", fmt.Sprintf("listening section %d requires an audio URL", i+1), nil)
			}
		}

		section := models.Section{
			Position:   i,
			Title:      input.Title,
			Content:    input.Content,
			AudioURL:   input.AudioURL,
			Transcript: input.Transcript,
		}

		for _, qInput := range input.Questions {
			question := models.Question{
				QuestionNumber: qInput.QuestionNumber,
				QuestionType:   qInput.QuestionType,
				Question:       qInput.Question,
				Options:        models.OptionsJSON(qInput.Options),
				CorrectAnswer:  models.AnswerJSON(qInput.CorrectAnswer...),
				ContextText:    qInput.ContextText,
				ImageURL:       qInput.ImageURL,
			}
			if err := s.validator.Question().ValidateQuestion(&question); err != nil {
				return nil, 0, NewValidationError("questions", err.Error(), qInput.QuestionNumber)
			}
			section.Questions = append(section.Questions, question)
			totalQuestions++
		}

		sections = append(sections, section)
	}

	if err := s.validator.Question().ValidateNumbering(sections); err != nil {
		return nil, 0, NewValidationError("questions", err.Error(), nil)
	}

	return sections, totalQuestions, nil
}

func (s *testService) invalidate(ctx context.Context, id uint) {
	if err := s.cache.Delete(ctx, testCacheKey(id)); err != nil {
		s.logger.Warn("Test cache invalidation failed", "test_id", id, "error", err)
	}
}

func testCacheKey(id uint) string {
	return fmt.Sprintf("test:%d:details", id)
}
