package utils

import (
	"fmt"
	"strings"

	"github.com/ieltsprep/practice-service/internal/models"
)

// QuestionValidator handles content rules that depend on the question type.
type QuestionValidator struct{}

// NewQuestionValidator creates a new question validator
func NewQuestionValidator() *QuestionValidator {
	return &QuestionValidator{}
}

// optionTypes are the question types that must carry an options list.
var optionTypes = map[models.QuestionType]bool{
	models.MultipleChoice:    true,
	models.TrueFalseNotGiven: true,
	models.Matching:          true,
}

// completionTypes are the question types whose prompt embeds blank markers
// (runs of two or more underscores) for inline inputs.
var completionTypes = map[models.QuestionType]bool{
	models.SentenceCompletion: true,
	models.FormCompletion:     true,
	models.NoteCompletion:     true,
	models.TableCompletion:    true,
	models.FlowChart:          true,
	models.SummaryCompletion:  true,
}

// ValidateQuestion validates a complete question object.
func (v *QuestionValidator) ValidateQuestion(question *models.Question) error {
	if question.QuestionNumber < 1 {
		return fmt.Errorf("question number must be positive, got %d", question.QuestionNumber)
	}
	if strings.TrimSpace(question.Question) == "" {
		return fmt.Errorf("question %d: prompt is required", question.QuestionNumber)
	}

	canonical, err := question.CanonicalAnswer()
	if err != nil {
		return err
	}
	if strings.TrimSpace(canonical) == "" {
		return fmt.Errorf("question %d: correct answer cannot be blank", question.QuestionNumber)
	}

	options, err := question.OptionList()
	if err != nil {
		return err
	}

	if optionTypes[question.QuestionType] {
		if len(options) < 2 {
			return fmt.Errorf("question %d: %s requires at least 2 options", question.QuestionNumber, question.QuestionType)
		}
		if !containsFold(options, canonical) {
			return fmt.Errorf("question %d: correct answer %q is not among the options", question.QuestionNumber, canonical)
		}
	} else if len(options) > 0 {
		return fmt.Errorf("question %d: %s does not take options", question.QuestionNumber, question.QuestionType)
	}

	if question.QuestionType == models.TrueFalseNotGiven {
		if !containsFold([]string{"true", "false", "not given"}, canonical) {
			return fmt.Errorf("question %d: true-false-not-given answer must be TRUE, FALSE or NOT GIVEN", question.QuestionNumber)
		}
	}

	if completionTypes[question.QuestionType] && !hasBlankMarker(question.Question) {
		return fmt.Errorf("question %d: %s prompt must contain a blank marker (two or more underscores)", question.QuestionNumber, question.QuestionType)
	}

	if question.QuestionType == models.PlanMapDiagram {
		if question.ImageURL == nil || strings.TrimSpace(*question.ImageURL) == "" {
			return fmt.Errorf("question %d: plan-map-diagram requires an image URL", question.QuestionNumber)
		}
	}

	return nil
}

// ValidateNumbering checks that question numbers are globally unique and
// strictly increasing across the ordered section sequence.
func (v *QuestionValidator) ValidateNumbering(sections []models.Section) error {
	last := 0
	for si, section := range sections {
		for _, q := range section.Questions {
			if q.QuestionNumber <= last {
				return fmt.Errorf("section %d: question number %d does not increase (previous %d)", si+1, q.QuestionNumber, last)
			}
			last = q.QuestionNumber
		}
	}
	return nil
}

func hasBlankMarker(prompt string) bool {
	return strings.Contains(prompt, "__")
}

func containsFold(list []string, target string) bool {
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), strings.TrimSpace(target)) {
			return true
		}
	}
	return false
}
