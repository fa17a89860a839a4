package events

import (
	"time"

	"github.com/ieltsprep/practice-service/internal/models"
)

type EventType string

const (
	EventAttemptSubmitted EventType = "attempt.submitted"
	EventTestPublished    EventType = "test.published"
)

const eventSource = "practice-service"

// SubmissionEvent is published when an attempt is graded, so downstream
// consumers (progress tracking, notifications) see the outcome without
// querying the service.
type SubmissionEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`

	AttemptID uint            `json:"attempt_id"`
	TestID    uint            `json:"test_id"`
	TestType  models.TestType `json:"test_type"`
	StudentID uint            `json:"student_id"`
	Correct   int             `json:"correct"`
	Total     int             `json:"total"`
	Band      float64         `json:"band"`
	TimeSpent int             `json:"time_spent"`
	EndReason string          `json:"end_reason"`
}

// NewSubmissionEvent builds the event envelope for one graded attempt.
func NewSubmissionEvent(eventID string, attempt *models.Attempt, testType models.TestType, correct, total int, band float64, endReason string) *SubmissionEvent {
	return &SubmissionEvent{
		ID:        eventID,
		Type:      EventAttemptSubmitted,
		Source:    eventSource,
		Version:   "1.0",
		Timestamp: time.Now(),
		AttemptID: attempt.ID,
		TestID:    attempt.TestID,
		TestType:  testType,
		StudentID: attempt.StudentID,
		Correct:   correct,
		Total:     total,
		Band:      band,
		TimeSpent: attempt.TimeSpent,
		EndReason: endReason,
	}
}
