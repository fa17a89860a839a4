package models

import (
	"time"

	"gorm.io/gorm"
)

type TestType string

const (
	TestTypeReading   TestType = "reading"
	TestTypeListening TestType = "listening"
)

type TestStatus string

const (
	StatusDraft    TestStatus = "Draft"
	StatusActive   TestStatus = "Active"
	StatusArchived TestStatus = "Archived"
)

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

// Test is one Reading or Listening mock test. TestType is the discriminant:
// reading tests carry passages (title + content), listening tests carry
// sections (audio + transcript). Both are stored as ordered Sections.
type Test struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	Title          string          `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	TestType       TestType        `json:"test_type" gorm:"not null;index" validate:"required,test_type"`
	Difficulty     DifficultyLevel `json:"difficulty" gorm:"default:medium" validate:"omitempty,difficulty_level"`
	TimeLimit      int             `json:"time_limit" gorm:"not null" validate:"required,min=5,max=300"` // minutes
	Status         TestStatus      `json:"status" gorm:"default:Draft;index" validate:"omitempty,oneof=Draft Active Archived"`
	TotalQuestions int             `json:"total_questions" gorm:"not null"`

	// Metadata
	CreatedBy uint           `json:"created_by" gorm:"not null;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Version control
	Version int `json:"version" gorm:"default:1"`

	// Relations
	Sections []Section `json:"sections" gorm:"foreignKey:TestID"`
}

// Section groups questions under one audio clip (Listening) or one
// passage (Reading). Question numbers are globally unique and strictly
// increasing across the ordered section sequence of a well-formed test.
type Section struct {
	ID       uint `json:"id" gorm:"primaryKey"`
	TestID   uint `json:"test_id" gorm:"not null;index"`
	Position int  `json:"position" gorm:"not null"`

	// Reading passage fields
	Title   *string `json:"title,omitempty" gorm:"size:200"`
	Content *string `json:"content,omitempty" gorm:"type:text"`

	// Listening section fields
	AudioURL   *string `json:"audio_url,omitempty" gorm:"size:500"`
	Transcript *string `json:"transcript,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Questions []Question `json:"questions" gorm:"foreignKey:SectionID"`
}

func (Test) TableName() string {
	return "tests"
}

func (Section) TableName() string {
	return "test_sections"
}
