package models

import (
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
	AttemptAbandoned  AttemptStatus = "abandoned"
)

const (
	AttemptEndReasonCompleted = "completed"
	AttemptEndReasonTimeout   = "time_out"
	AttemptEndReasonAbandoned = "abandoned"
)

// Attempt is one student sitting of a test.
type Attempt struct {
	ID        uint          `json:"id" gorm:"primaryKey"`
	TestID    uint          `json:"test_id" gorm:"not null;index"`
	StudentID uint          `json:"student_id" gorm:"not null;index"`
	Status    AttemptStatus `json:"status" gorm:"default:in_progress;index"`

	// Timing
	StartedAt   time.Time  `json:"started_at"`
	EndsAt      *time.Time `json:"ends_at"`
	SubmittedAt *time.Time `json:"submitted_at"`
	TimeSpent   int        `json:"time_spent"` // seconds
	EndReason   *string    `json:"end_reason" gorm:"size:50"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Test   Test           `json:"test" gorm:"foreignKey:TestID"`
	Result *AttemptResult `json:"result,omitempty" gorm:"foreignKey:AttemptID"`
}

// AttemptResult is the persisted outcome of grading one attempt. The grading
// engine itself only produces the in-memory scoring.Result; the attempt
// service writes it here after submit.
type AttemptResult struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	AttemptID uint `json:"attempt_id" gorm:"not null;uniqueIndex"`

	Correct    int     `json:"correct"`
	Incorrect  int     `json:"incorrect"`
	Unanswered int     `json:"unanswered"`
	Total      int     `json:"total"`
	Band       float64 `json:"band"`

	// Per-question breakdown, []scoring.QuestionDetail as JSON.
	Details datatypes.JSON `json:"details" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
}

func (Attempt) TableName() string {
	return "attempts"
}

func (AttemptResult) TableName() string {
	return "attempt_results"
}
