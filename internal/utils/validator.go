package utils

import (
	"reflect"
	"strings"

	apperrors "github.com/ieltsprep/practice-service/internal/errors"
	"github.com/ieltsprep/practice-service/internal/highlight"
	"github.com/ieltsprep/practice-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground struct validation plus the question-content
// rules that cannot be expressed as struct tags.
type Validator struct {
	structValidator   *validator.Validate
	questionValidator *QuestionValidator
}

// NewValidator creates the centralized validator instance.
func NewValidator() *Validator {
	structValidator := validator.New()
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator:   structValidator,
		questionValidator: NewQuestionValidator(),
	}
}

// Validate performs struct-tag validation, converting failures into the
// shared ValidationErrors type.
func (v *Validator) Validate(s interface{}) error {
	if err := v.structValidator.Struct(s); err != nil {
		if converted := apperrors.ToValidationErrors(err); len(converted) > 0 {
			return converted
		}
		return err
	}
	return nil
}

// Question returns the question content validator.
func (v *Validator) Question() *QuestionValidator {
	return v.questionValidator
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("question_type", validateQuestionType)
	validate.RegisterValidation("test_type", validateTestType)
	validate.RegisterValidation("difficulty_level", validateDifficultyLevel)
	validate.RegisterValidation("test_status", validateTestStatus)
	validate.RegisterValidation("highlight_color", validateHighlightColor)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateQuestionType(fl validator.FieldLevel) bool {
	validTypes := []models.QuestionType{
		models.MultipleChoice,
		models.TrueFalseNotGiven,
		models.Matching,
		models.SentenceCompletion,
		models.ShortAnswer,
		models.FormCompletion,
		models.NoteCompletion,
		models.TableCompletion,
		models.FlowChart,
		models.SummaryCompletion,
		models.PlanMapDiagram,
	}

	value := fl.Field().String()
	for _, validType := range validTypes {
		if string(validType) == value {
			return true
		}
	}
	return false
}

func validateTestType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == string(models.TestTypeReading) || value == string(models.TestTypeListening)
}

func validateDifficultyLevel(fl validator.FieldLevel) bool {
	validLevels := []models.DifficultyLevel{
		models.DifficultyEasy,
		models.DifficultyMedium,
		models.DifficultyHard,
	}

	value := fl.Field().String()
	for _, validLevel := range validLevels {
		if string(validLevel) == value {
			return true
		}
	}
	return false
}

func validateTestStatus(fl validator.FieldLevel) bool {
	validStatuses := []models.TestStatus{
		models.StatusDraft,
		models.StatusActive,
		models.StatusArchived,
	}

	value := fl.Field().String()
	for _, validStatus := range validStatuses {
		if string(validStatus) == value {
			return true
		}
	}
	return false
}

func validateHighlightColor(fl validator.FieldLevel) bool {
	return highlight.ValidColor(highlight.Color(fl.Field().String()))
}
