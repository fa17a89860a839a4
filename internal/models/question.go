package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	MultipleChoice     QuestionType = "multiple-choice"
	TrueFalseNotGiven  QuestionType = "true-false-not-given"
	Matching           QuestionType = "matching"
	SentenceCompletion QuestionType = "sentence-completion"
	ShortAnswer        QuestionType = "short-answer"
	FormCompletion     QuestionType = "form-completion"
	NoteCompletion     QuestionType = "note-completion"
	TableCompletion    QuestionType = "table-completion"
	FlowChart          QuestionType = "flow-chart"
	SummaryCompletion  QuestionType = "summary-completion"
	PlanMapDiagram     QuestionType = "plan-map-diagram"
)

// Question is one gradable item. QuestionNumber is unique within a test and
// defines canonical ordering; it is not necessarily contiguous with any
// array index, so lookups always key on the number, never on position.
type Question struct {
	ID             uint         `json:"id" gorm:"primaryKey"`
	SectionID      uint         `json:"section_id" gorm:"not null;index"`
	QuestionNumber int          `json:"question_number" gorm:"not null;index" validate:"required,min=1"`
	QuestionType   QuestionType `json:"question_type" gorm:"not null" validate:"required,question_type"`

	// Prompt text; runs of two or more underscores mark inline blanks.
	Question string `json:"question" gorm:"type:text;not null" validate:"required"`

	// Options are present only for choice/matching types. Stored as a JSON
	// array of strings.
	Options datatypes.JSON `json:"options,omitempty" gorm:"type:jsonb"`

	// CorrectAnswer is either a JSON string (single canonical answer) or a
	// JSON array of acceptable alternatives. Grading checks only the first
	// alternative of an array.
	CorrectAnswer datatypes.JSON `json:"correct_answer" gorm:"type:jsonb;not null"`

	ContextText *string `json:"context_text,omitempty" gorm:"type:text"`

	// Consecutive questions sharing the same ImageURL form one
	// diagram-labelling group in the UI.
	ImageURL *string `json:"image_url,omitempty" gorm:"size:500"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Question) TableName() string {
	return "test_questions"
}

// OptionList decodes the Options JSON into a string slice. Returns nil for
// question types that carry no options.
func (q *Question) OptionList() ([]string, error) {
	if len(q.Options) == 0 {
		return nil, nil
	}
	var opts []string
	if err := json.Unmarshal(q.Options, &opts); err != nil {
		return nil, fmt.Errorf("question %d: invalid options payload: %w", q.QuestionNumber, err)
	}
	return opts, nil
}

// CanonicalAnswer resolves the single answer grading compares against:
// the stored string, or the first element when alternatives are listed.
func (q *Question) CanonicalAnswer() (string, error) {
	if len(q.CorrectAnswer) == 0 {
		return "", fmt.Errorf("question %d: missing correct answer", q.QuestionNumber)
	}

	var single string
	if err := json.Unmarshal(q.CorrectAnswer, &single); err == nil {
		return single, nil
	}

	var alternatives []string
	if err := json.Unmarshal(q.CorrectAnswer, &alternatives); err != nil {
		return "", fmt.Errorf("question %d: invalid correct answer payload: %w", q.QuestionNumber, err)
	}
	if len(alternatives) == 0 {
		return "", fmt.Errorf("question %d: empty correct answer list", q.QuestionNumber)
	}
	return alternatives[0], nil
}

// AnswerJSON encodes a canonical answer (or alternatives) for storage.
func AnswerJSON(answers ...string) datatypes.JSON {
	var raw []byte
	if len(answers) == 1 {
		raw, _ = json.Marshal(answers[0])
	} else {
		raw, _ = json.Marshal(answers)
	}
	return datatypes.JSON(raw)
}

// OptionsJSON encodes an option list for storage.
func OptionsJSON(options []string) datatypes.JSON {
	if len(options) == 0 {
		return nil
	}
	raw, _ := json.Marshal(options)
	return datatypes.JSON(raw)
}
