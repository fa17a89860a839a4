package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ieltsprep/practice-service/internal/events"
	"github.com/ieltsprep/practice-service/internal/highlight"
	"github.com/ieltsprep/practice-service/internal/models"
	"github.com/ieltsprep/practice-service/internal/session"
)

const passageText = "The quick brown fox jumps over the lazy dog near the riverbank."

func activeReadingTest() *models.Test {
	content := passageText
	return &models.Test{
		ID:             10,
		Title:          "Reading Practice",
		TestType:       models.TestTypeReading,
		Status:         models.StatusActive,
		TimeLimit:      60,
		TotalQuestions: 3,
		Sections: []models.Section{
			{
				ID:       1,
				TestID:   10,
				Position: 0,
				Content:  &content,
				Questions: []models.Question{
					{ID: 1, QuestionNumber: 1, QuestionType: models.ShortAnswer, Question: "Q1", CorrectAnswer: models.AnswerJSON("fox")},
					{ID: 2, QuestionNumber: 2, QuestionType: models.ShortAnswer, Question: "Q2", CorrectAnswer: models.AnswerJSON("dog")},
					{ID: 3, QuestionNumber: 3, QuestionType: models.ShortAnswer, Question: "Q3", CorrectAnswer: models.AnswerJSON("riverbank")},
				},
			},
		},
	}
}

type attemptFixture struct {
	repo      *MockRepository
	sessions  *session.Manager
	publisher *events.MockEventPublisher
	service   AttemptService
}

func newAttemptFixture(t *testing.T) *attemptFixture {
	t.Helper()
	repo := newMockRepository()
	sessions := session.NewManager()
	t.Cleanup(sessions.Shutdown)
	publisher := events.NewMockEventPublisher(testLogger())
	tests := NewTestService(repo, noopCache{}, time.Minute, testLogger(), nil)
	service := NewAttemptService(repo, tests, sessions, publisher, nil, testLogger())
	return &attemptFixture{repo: repo, sessions: sessions, publisher: publisher, service: service}
}

func TestAttemptService_Start(t *testing.T) {
	t.Run("new attempt", func(t *testing.T) {
		f := newAttemptFixture(t)
		f.repo.testRepo.On("GetByIDWithDetails", mock.Anything, uint(10)).Return(activeReadingTest(), nil)
		f.repo.attemptRepo.On("GetActiveAttempt", mock.Anything, uint(5), uint(10)).Return(nil, gorm.ErrRecordNotFound)
		f.repo.attemptRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Attempt")).
			Run(func(args mock.Arguments) {
				args.Get(1).(*models.Attempt).ID = 7
			}).Return(nil)

		resp, err := f.service.Start(context.Background(), 10, 5)

		require.NoError(t, err)
		assert.Equal(t, uint(7), resp.AttemptID)
		assert.False(t, resp.Resumed)
		assert.Equal(t, 1, resp.PartCount)
		assert.Greater(t, resp.RemainingSeconds, 0)

		_, ok := f.sessions.Get(7)
		assert.True(t, ok)
		f.repo.attemptRepo.AssertExpectations(t)
	})

	t.Run("resumes active attempt", func(t *testing.T) {
		f := newAttemptFixture(t)
		endsAt := time.Now().Add(30 * time.Minute)
		existing := &models.Attempt{ID: 7, TestID: 10, StudentID: 5, Status: models.AttemptInProgress, StartedAt: time.Now().Add(-30 * time.Minute), EndsAt: &endsAt}
		f.repo.testRepo.On("GetByIDWithDetails", mock.Anything, uint(10)).Return(activeReadingTest(), nil)
		f.repo.attemptRepo.On("GetActiveAttempt", mock.Anything, uint(5), uint(10)).Return(existing, nil)

		resp, err := f.service.Start(context.Background(), 10, 5)

		require.NoError(t, err)
		assert.True(t, resp.Resumed)
		assert.Equal(t, uint(7), resp.AttemptID)
	})

	t.Run("unpublished test", func(t *testing.T) {
		f := newAttemptFixture(t)
		draft := activeReadingTest()
		draft.Status = models.StatusDraft
		f.repo.testRepo.On("GetByIDWithDetails", mock.Anything, uint(10)).Return(draft, nil)

		_, err := f.service.Start(context.Background(), 10, 5)

		assert.ErrorIs(t, err, ErrTestNotPublished)
	})
}

// startedFixture starts an attempt and returns the fixture with a live
// session for attempt 7 owned by student 5.
func startedFixture(t *testing.T) *attemptFixture {
	t.Helper()
	f := newAttemptFixture(t)
	f.repo.testRepo.On("GetByIDWithDetails", mock.Anything, uint(10)).Return(activeReadingTest(), nil)
	f.repo.attemptRepo.On("GetActiveAttempt", mock.Anything, uint(5), uint(10)).Return(nil, gorm.ErrRecordNotFound)
	attempt := &models.Attempt{TestID: 10, StudentID: 5, Status: models.AttemptInProgress, StartedAt: time.Now()}
	f.repo.attemptRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Attempt")).
		Run(func(args mock.Arguments) {
			created := args.Get(1).(*models.Attempt)
			created.ID = 7
			*attempt = *created
		}).Return(nil)
	f.repo.attemptRepo.On("GetByID", mock.Anything, uint(7)).Return(attempt, nil)

	_, err := f.service.Start(context.Background(), 10, 5)
	require.NoError(t, err)
	return f
}

func TestAttemptService_SessionState(t *testing.T) {
	f := startedFixture(t)
	ctx := context.Background()

	require.NoError(t, f.service.SaveAnswer(ctx, 7, 5, 1, "fox"))
	require.NoError(t, f.service.SaveAnswer(ctx, 7, 5, 2, "cat"))

	flagged, err := f.service.ToggleFlag(ctx, 7, 5, 2)
	require.NoError(t, err)
	assert.True(t, flagged)

	require.NoError(t, f.service.SetQuestionNote(ctx, 7, 5, 1, "check paragraph B"))
	require.NoError(t, f.service.Navigate(ctx, 7, 5, 0))
	assert.Error(t, f.service.Navigate(ctx, 7, 5, 3))

	progress, err := f.service.GetProgress(ctx, 7, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, progress.AnsweredCount)
	assert.Equal(t, []int{2}, progress.Flagged)
	assert.Equal(t, "check paragraph B", progress.Notes[1])
}

func TestAttemptService_SessionState_WrongStudent(t *testing.T) {
	f := startedFixture(t)

	err := f.service.SaveAnswer(context.Background(), 7, 99, 1, "fox")

	assert.True(t, IsForbidden(err))
}

func TestAttemptService_Highlights(t *testing.T) {
	f := startedFixture(t)
	ctx := context.Background()

	// "quick brown" starts at offset 4 in the passage
	hl, err := f.service.AddHighlight(ctx, 7, 5, &AddHighlightRequest{
		SectionIndex: 0,
		PrefixLength: 4,
		SelectedText: "quick brown",
		Color:        highlight.ColorYellow,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, hl.Start)
	assert.Equal(t, 15, hl.End)

	segments, err := f.service.RenderSection(ctx, 7, 5, 0)
	require.NoError(t, err)
	require.Len(t, segments, 3)
	assert.Equal(t, "The ", segments[0].Text)
	assert.Equal(t, "quick brown", segments[1].Text)
	assert.True(t, segments[1].Highlighted)

	require.NoError(t, f.service.SetHighlightNote(ctx, 7, 5, 0, hl.ID, "key phrase"))
	require.NoError(t, f.service.ActivateHighlight(ctx, 7, 5, 0, hl.ID))
	require.NoError(t, f.service.ClearActiveHighlights(ctx, 7, 5))
	require.NoError(t, f.service.DeleteHighlight(ctx, 7, 5, 0, hl.ID))

	segments, err = f.service.RenderSection(ctx, 7, 5, 0)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.False(t, segments[0].Highlighted)
}

func TestAttemptService_AddHighlight_BadSelection(t *testing.T) {
	f := startedFixture(t)

	_, err := f.service.AddHighlight(context.Background(), 7, 5, &AddHighlightRequest{
		SectionIndex: 0,
		PrefixLength: 4,
		SelectedText: "not in the passage",
		Color:        highlight.ColorYellow,
	})

	assert.ErrorIs(t, err, ErrInvalidSelection)
}

func TestAttemptService_Submit(t *testing.T) {
	f := startedFixture(t)
	ctx := context.Background()

	require.NoError(t, f.service.SaveAnswer(ctx, 7, 5, 1, " FOX "))
	require.NoError(t, f.service.SaveAnswer(ctx, 7, 5, 2, "cat"))
	// question 3 left unanswered

	var saved *models.AttemptResult
	f.repo.attemptRepo.On("Update", mock.Anything, mock.AnythingOfType("*models.Attempt")).Return(nil)
	f.repo.attemptRepo.On("SaveResult", mock.Anything, mock.AnythingOfType("*models.AttemptResult")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(*models.AttemptResult)
		}).Return(nil)

	result, err := f.service.Submit(ctx, 7, 5)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Correct)
	assert.Equal(t, 1, result.Incorrect)
	assert.Equal(t, 1, result.Unanswered)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 3.0, result.Band)
	assert.Same(t, result, saved)

	// session is gone and the submission event went out
	_, ok := f.sessions.Get(7)
	assert.False(t, ok)
	require.Len(t, f.publisher.Events, 1)
	event := f.publisher.Events[0]
	assert.Equal(t, uint(7), event.AttemptID)
	assert.Equal(t, models.AttemptEndReasonCompleted, event.EndReason)
	assert.Equal(t, 3.0, event.Band)

	// a second submit sees the attempt already finished
	_, err = f.service.Submit(ctx, 7, 5)
	assert.ErrorIs(t, err, ErrAttemptAlreadySubmitted)

	f.repo.attemptRepo.AssertExpectations(t)
}

func TestAttemptService_Submit_NoSession(t *testing.T) {
	f := newAttemptFixture(t)
	attempt := &models.Attempt{ID: 7, TestID: 10, StudentID: 5, Status: models.AttemptInProgress}
	f.repo.attemptRepo.On("GetByID", mock.Anything, uint(7)).Return(attempt, nil)

	_, err := f.service.Submit(context.Background(), 7, 5)

	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestAttemptService_Abandon(t *testing.T) {
	f := startedFixture(t)
	f.repo.attemptRepo.On("Update", mock.Anything, mock.MatchedBy(func(a *models.Attempt) bool {
		return a.Status == models.AttemptAbandoned
	})).Return(nil)

	err := f.service.Abandon(context.Background(), 7, 5)

	require.NoError(t, err)
	_, ok := f.sessions.Get(7)
	assert.False(t, ok)
	assert.Empty(t, f.publisher.Events)
}

func TestAttemptService_GetResult(t *testing.T) {
	f := newAttemptFixture(t)
	attempt := &models.Attempt{ID: 7, TestID: 10, StudentID: 5, Status: models.AttemptSubmitted}
	f.repo.attemptRepo.On("GetByID", mock.Anything, uint(7)).Return(attempt, nil)
	f.repo.attemptRepo.On("GetResult", mock.Anything, uint(7)).Return(nil, gorm.ErrRecordNotFound)

	_, err := f.service.GetResult(context.Background(), 7, 5)

	assert.ErrorIs(t, err, ErrResultNotFound)
}
