package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ieltsprep/practice-service/internal/events"
	"github.com/ieltsprep/practice-service/internal/highlight"
	"github.com/ieltsprep/practice-service/internal/models"
	"github.com/ieltsprep/practice-service/internal/repositories"
	"github.com/ieltsprep/practice-service/internal/scoring"
	"github.com/ieltsprep/practice-service/internal/session"
)

// AttemptService drives the test-taking flow: starting a sitting, the live
// in-session operations (answers, flags, notes, highlights, navigation), and
// the single guarded submit path shared by manual submission and timer expiry.
type AttemptService interface {
	Start(ctx context.Context, testID uint, studentID uint) (*StartAttemptResponse, error)
	GetProgress(ctx context.Context, attemptID uint, studentID uint) (*AttemptProgress, error)

	SaveAnswer(ctx context.Context, attemptID uint, studentID uint, questionNumber int, value string) error
	ToggleFlag(ctx context.Context, attemptID uint, studentID uint, questionNumber int) (bool, error)
	SetQuestionNote(ctx context.Context, attemptID uint, studentID uint, questionNumber int, text string) error
	Navigate(ctx context.Context, attemptID uint, studentID uint, partIndex int) error

	AddHighlight(ctx context.Context, attemptID uint, studentID uint, req *AddHighlightRequest) (*highlight.Highlight, error)
	DeleteHighlight(ctx context.Context, attemptID uint, studentID uint, sectionIndex int, highlightID string) error
	SetHighlightNote(ctx context.Context, attemptID uint, studentID uint, sectionIndex int, highlightID string, note string) error
	ActivateHighlight(ctx context.Context, attemptID uint, studentID uint, sectionIndex int, highlightID string) error
	ClearActiveHighlights(ctx context.Context, attemptID uint, studentID uint) error
	RenderSection(ctx context.Context, attemptID uint, studentID uint, sectionIndex int) ([]highlight.Segment, error)

	Submit(ctx context.Context, attemptID uint, studentID uint) (*models.AttemptResult, error)
	Abandon(ctx context.Context, attemptID uint, studentID uint) error
	GetResult(ctx context.Context, attemptID uint, studentID uint) (*models.AttemptResult, error)
	ListByStudent(ctx context.Context, studentID uint, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error)
}

// ===== REQUEST/RESPONSE STRUCTURES =====

type StartAttemptResponse struct {
	AttemptID        uint            `json:"attempt_id"`
	TestID           uint            `json:"test_id"`
	TestType         models.TestType `json:"test_type"`
	Resumed          bool            `json:"resumed"`
	RemainingSeconds int             `json:"remaining_seconds"`
	PartCount        int             `json:"part_count"`
}

// AttemptProgress is the live snapshot a reconnecting client needs to redraw
// the sitting: what is answered, flagged, noted, and how much time is left.
type AttemptProgress struct {
	AttemptID        uint               `json:"attempt_id"`
	RemainingSeconds int                `json:"remaining_seconds"`
	PartIndex        int                `json:"part_index"`
	AnsweredCount    int                `json:"answered_count"`
	Answers          map[int]string     `json:"answers"`
	Flagged          []int              `json:"flagged"`
	Notes            map[int]string     `json:"notes"`
	Highlights       map[string][]highlight.Highlight `json:"highlights"`
}

// AddHighlightRequest carries a selection the way a client reports it: the
// section it happened in, how far into the section text the selection starts,
// and the selected text itself. Offsets are recomputed server-side against
// the stored section text.
type AddHighlightRequest struct {
	SectionIndex int             `json:"section_index" validate:"min=0"`
	PrefixLength int             `json:"prefix_length" validate:"min=0"`
	SelectedText string          `json:"selected_text" validate:"required"`
	Color        highlight.Color `json:"color" validate:"required,highlight_color"`
}

type attemptService struct {
	repo        repositories.Repository
	tests       TestService
	sessions    *session.Manager
	publisher   events.EventPublisher
	leaderboard LeaderboardService
	logger      *slog.Logger
}

func NewAttemptService(repo repositories.Repository, tests TestService, sessions *session.Manager, publisher events.EventPublisher, leaderboard LeaderboardService, logger *slog.Logger) AttemptService {
	return &attemptService{
		repo:        repo,
		tests:       tests,
		sessions:    sessions,
		publisher:   publisher,
		leaderboard: leaderboard,
		logger:      logger,
	}
}

// ===== LIFECYCLE =====

func (s *attemptService) Start(ctx context.Context, testID uint, studentID uint) (*StartAttemptResponse, error) {
	s.logger.Info("Starting attempt", "test_id", testID, "student_id", studentID)

	test, err := s.tests.GetByIDWithDetails(ctx, testID)
	if err != nil {
		return nil, err
	}
	if test.Status != models.StatusActive {
		return nil, ErrTestNotPublished
	}

	limit := time.Duration(test.TimeLimit) * time.Minute

	// An in-progress attempt on the same test is resumed, not duplicated.
	attempt, err := s.repo.Attempt().GetActiveAttempt(ctx, studentID, testID)
	resumed := err == nil
	if err != nil {
		if !repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("failed to check active attempt: %w", err)
		}
		now := time.Now()
		endsAt := now.Add(limit)
		attempt = &models.Attempt{
			TestID:    testID,
			StudentID: studentID,
			Status:    models.AttemptInProgress,
			StartedAt: now,
			EndsAt:    &endsAt,
		}
		if err := s.repo.Attempt().Create(ctx, attempt); err != nil {
			return nil, fmt.Errorf("failed to create attempt: %w", err)
		}
	}

	if resumed && attempt.EndsAt != nil {
		limit = time.Until(*attempt.EndsAt)
		if limit <= 0 {
			limit = time.Second
		}
	}

	attemptID := attempt.ID
	sess := s.sessions.Open(attemptID, len(test.Sections), limit, func() {
		s.handleExpiry(attemptID)
	})

	return &StartAttemptResponse{
		AttemptID:        attempt.ID,
		TestID:           test.ID,
		TestType:         test.TestType,
		Resumed:          resumed,
		RemainingSeconds: sess.Remaining(),
		PartCount:        len(test.Sections),
	}, nil
}

func (s *attemptService) GetProgress(ctx context.Context, attemptID uint, studentID uint) (*AttemptProgress, error) {
	sess, err := s.liveSession(ctx, attemptID, studentID)
	if err != nil {
		return nil, err
	}
	return &AttemptProgress{
		AttemptID:        attemptID,
		RemainingSeconds: sess.Remaining(),
		PartIndex:        sess.State.PartIndex(),
		AnsweredCount:    sess.State.AnsweredCount(),
		Answers:          sess.State.Answers(),
		Flagged:          sess.State.Flagged(),
		Notes:            sess.State.Notes(),
		Highlights:       sess.Highlights.All(),
	}, nil
}

// ===== IN-SESSION STATE =====

func (s *attemptService) SaveAnswer(ctx context.Context, attemptID uint, studentID uint, questionNumber int, value string) error {
	sess, err := s.liveSession(ctx, attemptID, studentID)
	if err != nil {
		return err
	}
	sess.State.SetAnswer(questionNumber, value)
	return nil
}

func (s *attemptService) ToggleFlag(ctx context.Context, attemptID uint, studentID uint, questionNumber int) (bool, error) {
	sess, err := s.liveSession(ctx, attemptID, studentID)
	if err != nil {
		return false, err
	}
	return sess.State.ToggleFlag(questionNumber), nil
}

func (s *attemptService) SetQuestionNote(ctx context.Context, attemptID uint, studentID uint, questionNumber int, text string) error {
	sess, err := s.liveSession(ctx, attemptID, studentID)
	if err != nil {
		return err
	}
	sess.State.SetNote(questionNumber, text)
	return nil
}

func (s *attemptService) Navigate(ctx context.Context, attemptID uint, studentID uint, partIndex int) error {
	sess, err := s.liveSession(ctx, attemptID, studentID)
	if err != nil {
		return err
	}
	if err := sess.State.Navigate(partIndex); err != nil {
		return NewValidationError("part_index", err.Error(), partIndex)
	}
	return nil
}

// ===== HIGHLIGHTS =====

func (s *attemptService) AddHighlight(ctx context.Context, attemptID uint, studentID uint, req *AddHighlightRequest) (*highlight.Highlight, error) {
	sess, err := s.liveSession(ctx, attemptID, studentID)
	if err != nil {
		return nil, err
	}
	text, err := s.sectionText(ctx, attemptID, req.SectionIndex)
	if err != nil {
		return nil, err
	}

	sel, err := highlight.ComputeSelectionOffsets(text, req.PrefixLength, req.SelectedText)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSelection, err)
	}

	hl, err := sess.Highlights.Add(sectionContentID(req.SectionIndex), sel.Start, sel.End, sel.Text, req.Color)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSelection, err)
	}
	return &hl, nil
}

func (s *attemptService) DeleteHighlight(ctx context.Context, attemptID uint, studentID uint, sectionIndex int, highlightID string) error {
	sess, err := s.liveSession(ctx, attemptID, studentID)
	if err != nil {
		return err
	}
	if err := sess.Highlights.Delete(sectionContentID(sectionIndex), highlightID); err != nil {
		return ErrHighlightNotFound
	}
	return nil
}

func (s *attemptService) SetHighlightNote(ctx context.Context, attemptID uint, studentID uint, sectionIndex int, highlightID string, note string) error {
	sess, err := s.liveSession(ctx, attemptID, studentID)
	if err != nil {
		return err
	}
	if err := sess.Highlights.SetNote(sectionContentID(sectionIndex), highlightID, note); err != nil {
		return ErrHighlightNotFound
	}
	return nil
}

func (s *attemptService) ActivateHighlight(ctx context.Context, attemptID uint, studentID uint, sectionIndex int, highlightID string) error {
	sess, err := s.liveSession(ctx, attemptID, studentID)
	if err != nil {
		return err
	}
	if err := sess.Highlights.SetActive(sectionContentID(sectionIndex), highlightID); err != nil {
		return ErrHighlightNotFound
	}
	return nil
}

func (s *attemptService) ClearActiveHighlights(ctx context.Context, attemptID uint, studentID uint) error {
	sess, err := s.liveSession(ctx, attemptID, studentID)
	if err != nil {
		return err
	}
	sess.Highlights.ClearActive()
	return nil
}

func (s *attemptService) RenderSection(ctx context.Context, attemptID uint, studentID uint, sectionIndex int) ([]highlight.Segment, error) {
	sess, err := s.liveSession(ctx, attemptID, studentID)
	if err != nil {
		return nil, err
	}
	text, err := s.sectionText(ctx, attemptID, sectionIndex)
	if err != nil {
		return nil, err
	}
	return sess.Highlights.Render(sectionContentID(sectionIndex), text), nil
}

// ===== SUBMISSION =====

func (s *attemptService) Submit(ctx context.Context, attemptID uint, studentID uint) (*models.AttemptResult, error) {
	attempt, err := s.getOwnedAttempt(ctx, attemptID, studentID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != models.AttemptInProgress {
		return nil, ErrAttemptAlreadySubmitted
	}

	sess, ok := s.sessions.Get(attemptID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !sess.BeginSubmit() {
		return nil, ErrAttemptSubmitInFlight
	}

	return s.finish(ctx, attempt, sess, models.AttemptEndReasonCompleted)
}

// handleExpiry runs on the timer goroutine when a sitting's countdown hits
// zero. It funnels into the same finish path as a manual submit; BeginSubmit
// arbitrates if both fire at once.
func (s *attemptService) handleExpiry(attemptID uint) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sess, ok := s.sessions.Get(attemptID)
	if !ok {
		return
	}
	if !sess.BeginSubmit() {
		return
	}

	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		s.logger.Error("Expiry: failed to load attempt", "attempt_id", attemptID, "error", err)
		s.sessions.Close(attemptID)
		return
	}
	if attempt.Status != models.AttemptInProgress {
		s.sessions.Close(attemptID)
		return
	}

	if _, err := s.finish(ctx, attempt, sess, models.AttemptEndReasonTimeout); err != nil {
		s.logger.Error("Expiry: auto-submit failed", "attempt_id", attemptID, "error", err)
	}
}

// finish grades the sitting, persists the result, and emits the submission
// event. Event publishing is best-effort: a broker outage must never lose a
// student's graded result.
func (s *attemptService) finish(ctx context.Context, attempt *models.Attempt, sess *session.Session, endReason string) (*models.AttemptResult, error) {
	test, err := s.tests.GetByIDWithDetails(ctx, attempt.TestID)
	if err != nil {
		return nil, err
	}

	graded, err := scoring.Grade(test, sess.State.Answers())
	if err != nil {
		return nil, fmt.Errorf("grading failed: %w", err)
	}

	now := time.Now()
	attempt.Status = models.AttemptSubmitted
	attempt.SubmittedAt = &now
	attempt.TimeSpent = sess.TimeSpent()
	attempt.EndReason = &endReason

	details, err := json.Marshal(graded.Details)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result details: %w", err)
	}
	result := &models.AttemptResult{
		AttemptID:  attempt.ID,
		Correct:    graded.Correct,
		Incorrect:  graded.Incorrect,
		Unanswered: graded.Unanswered,
		Total:      graded.Total,
		Band:       graded.Band,
		Details:    details,
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Attempt().Update(ctx, attempt); err != nil {
			return fmt.Errorf("failed to update attempt: %w", err)
		}
		if err := txRepo.Attempt().SaveResult(ctx, result); err != nil {
			return fmt.Errorf("failed to save result: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.sessions.Close(attempt.ID)

	if s.leaderboard != nil {
		if err := s.leaderboard.Record(ctx, attempt.TestID, attempt.StudentID, graded.Band, attempt.TimeSpent, now); err != nil {
			s.logger.Warn("Leaderboard update failed", "attempt_id", attempt.ID, "error", err)
		}
	}

	event := events.NewSubmissionEvent(uuid.New().String(), attempt, test.TestType, graded.Correct, graded.Total, graded.Band, endReason)
	if err := s.publisher.PublishSubmission(ctx, event); err != nil {
		s.logger.Warn("Submission event publish failed", "attempt_id", attempt.ID, "error", err)
	}

	s.logger.Info("Attempt submitted",
		"attempt_id", attempt.ID,
		"end_reason", endReason,
		"correct", graded.Correct,
		"total", graded.Total,
		"band", graded.Band)
	return result, nil
}

func (s *attemptService) Abandon(ctx context.Context, attemptID uint, studentID uint) error {
	attempt, err := s.getOwnedAttempt(ctx, attemptID, studentID)
	if err != nil {
		return err
	}
	if attempt.Status != models.AttemptInProgress {
		return ErrAttemptNotActive
	}

	reason := models.AttemptEndReasonAbandoned
	attempt.Status = models.AttemptAbandoned
	attempt.EndReason = &reason
	if sess, ok := s.sessions.Get(attemptID); ok {
		attempt.TimeSpent = sess.TimeSpent()
	}
	if err := s.repo.Attempt().Update(ctx, attempt); err != nil {
		return fmt.Errorf("failed to abandon attempt: %w", err)
	}

	s.sessions.Close(attemptID)
	return nil
}

func (s *attemptService) GetResult(ctx context.Context, attemptID uint, studentID uint) (*models.AttemptResult, error) {
	if _, err := s.getOwnedAttempt(ctx, attemptID, studentID); err != nil {
		return nil, err
	}
	result, err := s.repo.Attempt().GetResult(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return result, nil
}

func (s *attemptService) ListByStudent(ctx context.Context, studentID uint, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	attempts, total, err := s.repo.Attempt().GetByStudent(ctx, studentID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, total, nil
}

// ===== HELPERS =====

func (s *attemptService) getOwnedAttempt(ctx context.Context, attemptID uint, studentID uint) (*models.Attempt, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt.StudentID != studentID {
		return nil, NewPermissionError(studentID, attemptID, "attempt", "access", "not the attempt owner")
	}
	return attempt, nil
}

// liveSession resolves the in-memory session for an attempt after verifying
// ownership and that the attempt is still in progress.
func (s *attemptService) liveSession(ctx context.Context, attemptID uint, studentID uint) (*session.Session, error) {
	attempt, err := s.getOwnedAttempt(ctx, attemptID, studentID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != models.AttemptInProgress {
		return nil, ErrAttemptNotActive
	}
	sess, ok := s.sessions.Get(attemptID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// sectionText returns the annotatable text of one section: the passage for
// reading tests, the transcript for listening tests.
func (s *attemptService) sectionText(ctx context.Context, attemptID uint, sectionIndex int) (string, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		return "", fmt.Errorf("failed to get attempt: %w", err)
	}
	test, err := s.tests.GetByIDWithDetails(ctx, attempt.TestID)
	if err != nil {
		return "", err
	}
	if sectionIndex < 0 || sectionIndex >= len(test.Sections) {
		return "", NewValidationError("section_index", "section index out of range", sectionIndex)
	}
	section := test.Sections[sectionIndex]
	switch test.TestType {
	case models.TestTypeListening:
		if section.Transcript != nil {
			return *section.Transcript, nil
		}
	default:
		if section.Content != nil {
			return *section.Content, nil
		}
	}
	return "", nil
}

func sectionContentID(sectionIndex int) string {
	return fmt.Sprintf("section-%d", sectionIndex)
}
