package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"github.com/ieltsprep/practice-service/internal/models"
	"github.com/ieltsprep/practice-service/internal/repositories"
	"github.com/ieltsprep/practice-service/internal/utils"
)

func newTestServiceForTest(repo *MockRepository) TestService {
	return NewTestService(repo, noopCache{}, time.Minute, testLogger(), utils.NewValidator())
}

func validCreateRequest() *CreateTestRequest {
	return &CreateTestRequest{
		Title:     "Academic Reading Practice 1",
		TestType:  models.TestTypeReading,
		TimeLimit: 60,
		Sections: []SectionInput{
			{
				Title:   stringPtr("Passage 1"),
				Content: stringPtr("The history of tea stretches back millennia."),
				Questions: []QuestionInput{
					{
						QuestionNumber: 1,
						QuestionType:   models.TrueFalseNotGiven,
						Question:       "Tea was first cultivated in Europe.",
						CorrectAnswer:  []string{"false"},
					},
					{
						QuestionNumber: 2,
						QuestionType:   models.ShortAnswer,
						Question:       "In which country did tea cultivation begin?",
						CorrectAnswer:  []string{"China", "ancient China"},
					},
				},
			},
		},
	}
}

func TestTestService_Create(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*CreateTestRequest)
		setupMocks  func(*MockTestRepository)
		expectError bool
	}{
		{
			name: "successful creation",
			setupMocks: func(testRepo *MockTestRepository) {
				testRepo.On("Create", mock.Anything, mock.MatchedBy(func(test *models.Test) bool {
					return test.Title == "Academic Reading Practice 1" &&
						test.Status == models.StatusDraft &&
						test.TotalQuestions == 2 &&
						test.CreatedBy == uint(1)
				})).Return(nil)
			},
		},
		{
			name: "missing title fails validation",
			mutate: func(req *CreateTestRequest) {
				req.Title = ""
			},
			expectError: true,
		},
		{
			name: "reading section without content",
			mutate: func(req *CreateTestRequest) {
				req.Sections[0].Content = nil
			},
			expectError: true,
		},
		{
			name: "question numbers must increase",
			mutate: func(req *CreateTestRequest) {
				req.Sections[0].Questions[1].QuestionNumber = 1
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := newMockRepository()
			if tt.setupMocks != nil {
				tt.setupMocks(mockRepo.testRepo)
			}
			service := newTestServiceForTest(mockRepo)

			req := validCreateRequest()
			if tt.mutate != nil {
				tt.mutate(req)
			}

			test, err := service.Create(context.Background(), req, 1)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, test)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, test)
				assert.Equal(t, models.DifficultyMedium, test.Difficulty)
			}
			mockRepo.testRepo.AssertExpectations(t)
		})
	}
}

func TestTestService_Delete(t *testing.T) {
	tests := []struct {
		name        string
		setupMocks  func(*MockTestRepository)
		expectedErr error
	}{
		{
			name: "successful delete",
			setupMocks: func(testRepo *MockTestRepository) {
				testRepo.On("GetByID", mock.Anything, uint(1)).Return(&models.Test{ID: 1, CreatedBy: 1}, nil)
				testRepo.On("IsOwner", mock.Anything, uint(1), uint(1)).Return(true, nil)
				testRepo.On("HasAttempts", mock.Anything, uint(1)).Return(false, nil)
				testRepo.On("Delete", mock.Anything, uint(1)).Return(nil)
			},
		},
		{
			name: "not found",
			setupMocks: func(testRepo *MockTestRepository) {
				testRepo.On("GetByID", mock.Anything, uint(1)).Return(nil, gorm.ErrRecordNotFound)
			},
			expectedErr: ErrTestNotFound,
		},
		{
			name: "attempts block deletion",
			setupMocks: func(testRepo *MockTestRepository) {
				testRepo.On("GetByID", mock.Anything, uint(1)).Return(&models.Test{ID: 1, CreatedBy: 1}, nil)
				testRepo.On("IsOwner", mock.Anything, uint(1), uint(1)).Return(true, nil)
				testRepo.On("HasAttempts", mock.Anything, uint(1)).Return(true, nil)
			},
			expectedErr: ErrTestNotDeletable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := newMockRepository()
			tt.setupMocks(mockRepo.testRepo)
			service := newTestServiceForTest(mockRepo)

			err := service.Delete(context.Background(), 1, 1)

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
			}
			mockRepo.testRepo.AssertExpectations(t)
		})
	}
}

func TestTestService_Delete_NotOwner(t *testing.T) {
	mockRepo := newMockRepository()
	mockRepo.testRepo.On("GetByID", mock.Anything, uint(1)).Return(&models.Test{ID: 1, CreatedBy: 1}, nil)
	mockRepo.testRepo.On("IsOwner", mock.Anything, uint(1), uint(2)).Return(false, nil)
	service := newTestServiceForTest(mockRepo)

	err := service.Delete(context.Background(), 1, 2)

	assert.True(t, IsForbidden(err))
	mockRepo.testRepo.AssertExpectations(t)
}

func TestTestService_Publish(t *testing.T) {
	tests := []struct {
		name        string
		test        *models.Test
		expectedErr error
	}{
		{
			name: "draft with questions publishes",
			test: &models.Test{ID: 1, CreatedBy: 1, Status: models.StatusDraft, TotalQuestions: 40},
		},
		{
			name:        "already active",
			test:        &models.Test{ID: 1, CreatedBy: 1, Status: models.StatusActive, TotalQuestions: 40},
			expectedErr: ErrTestInvalidStatus,
		},
		{
			name:        "no questions",
			test:        &models.Test{ID: 1, CreatedBy: 1, Status: models.StatusDraft, TotalQuestions: 0},
			expectedErr: ErrTestNoQuestions,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := newMockRepository()
			mockRepo.testRepo.On("GetByID", mock.Anything, uint(1)).Return(tt.test, nil)
			mockRepo.testRepo.On("IsOwner", mock.Anything, uint(1), uint(1)).Return(true, nil)
			if tt.expectedErr == nil {
				mockRepo.testRepo.On("UpdateStatus", mock.Anything, uint(1), models.StatusActive).Return(nil)
			}
			service := newTestServiceForTest(mockRepo)

			err := service.Publish(context.Background(), 1, 1)

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
			}
			mockRepo.testRepo.AssertExpectations(t)
		})
	}
}

func TestTestService_List(t *testing.T) {
	mockRepo := newMockRepository()
	reading := models.TestTypeReading
	filters := repositories.TestFilters{TestType: &reading, Limit: 10}
	mockRepo.testRepo.On("List", mock.Anything, filters).
		Return([]*models.Test{{ID: 1}, {ID: 2}}, int64(2), nil)
	service := newTestServiceForTest(mockRepo)

	tests, total, err := service.List(context.Background(), filters)

	assert.NoError(t, err)
	assert.Len(t, tests, 2)
	assert.Equal(t, int64(2), total)
	mockRepo.testRepo.AssertExpectations(t)
}
