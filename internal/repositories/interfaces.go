package repositories

import (
	"time"

	"github.com/ieltsprep/practice-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type TestFilters struct {
	TestType   *models.TestType        `json:"test_type"`
	Status     *models.TestStatus      `json:"status"`
	Difficulty *models.DifficultyLevel `json:"difficulty"`
	CreatedBy  *uint                   `json:"created_by"`
	Limit      int                     `json:"limit"`
	Offset     int                     `json:"offset"`
	SortBy     string                  `json:"sort_by"`    // "created_at", "title", "difficulty"
	SortOrder  string                  `json:"sort_order"` // "asc", "desc"
}

type AttemptFilters struct {
	Status    models.AttemptStatus `json:"status"`
	TestID    *uint                `json:"test_id"`
	StudentID *uint                `json:"student_id"`
	DateFrom  *time.Time           `json:"date_from"`
	DateTo    *time.Time           `json:"date_to"`
	Limit     int                  `json:"limit"`
	Offset    int                  `json:"offset"`
	SortBy    string               `json:"sort_by"`
	SortOrder string               `json:"sort_order"`
}

// ===== SHARED STATISTICS STRUCTS =====

type TestStats struct {
	TotalAttempts     int     `json:"total_attempts"`
	SubmittedAttempts int     `json:"submitted_attempts"`
	AverageBand       float64 `json:"average_band"`
	AverageTimeSpent  int     `json:"average_time_spent"`
	QuestionCount     int     `json:"question_count"`
}
