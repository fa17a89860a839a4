// Package scoring grades a finished test attempt. It is pure: it consumes a
// test document and the student's answer map and produces a Result, with no
// I/O and no dependency on how either side is stored or transported.
package scoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ieltsprep/practice-service/internal/models"
)

// AnswerMap maps a global question number to the student's free-text answer.
// Keys are sparse: an absent key means the question was never answered.
type AnswerMap map[int]string

// QuestionDetail is the per-question breakdown included in a Result.
type QuestionDetail struct {
	QuestionNumber int    `json:"question_number"`
	Question       string `json:"question"`
	UserAnswer     string `json:"user_answer"`
	CorrectAnswer  string `json:"correct_answer"`
	IsCorrect      bool   `json:"is_correct"`
}

// Result is the outcome of grading one attempt.
type Result struct {
	Correct    int              `json:"correct"`
	Incorrect  int              `json:"incorrect"`
	Unanswered int              `json:"unanswered"`
	Total      int              `json:"total"`
	Band       float64          `json:"band"`
	Details    []QuestionDetail `json:"details"`
}

// Flatten merges all questions across a test's sections into one sequence
// ordered by question number. Grading works on this flattened list and keys
// answers by number, never by position.
func Flatten(test *models.Test) []models.Question {
	var questions []models.Question
	for _, section := range test.Sections {
		questions = append(questions, section.Questions...)
	}
	sort.Slice(questions, func(i, j int) bool {
		return questions[i].QuestionNumber < questions[j].QuestionNumber
	})
	return questions
}

// Grade computes per-question correctness and aggregate counts for answers
// against test, then derives the band score with the strategy for the test's
// type. A test with no questions is an error, not a 0/0 result: a silent
// wrong score is worse than a visible failure.
func Grade(test *models.Test, answers AnswerMap) (*Result, error) {
	if test == nil {
		return nil, fmt.Errorf("scoring: nil test")
	}

	questions := Flatten(test)
	if len(questions) == 0 {
		return nil, fmt.Errorf("scoring: test %d has no questions", test.ID)
	}

	result := &Result{
		Details: make([]QuestionDetail, 0, len(questions)),
	}

	for i := range questions {
		q := &questions[i]

		canonical, err := q.CanonicalAnswer()
		if err != nil {
			return nil, fmt.Errorf("scoring: %w", err)
		}

		userAnswer, present := answers[q.QuestionNumber]
		detail := QuestionDetail{
			QuestionNumber: q.QuestionNumber,
			Question:       q.Question,
			UserAnswer:     userAnswer,
			CorrectAnswer:  canonical,
		}

		switch {
		case !present || strings.TrimSpace(userAnswer) == "":
			result.Unanswered++
		case answersMatch(userAnswer, canonical):
			detail.IsCorrect = true
			result.Correct++
		default:
			result.Incorrect++
		}

		result.Details = append(result.Details, detail)
	}

	result.Total = result.Correct + result.Incorrect + result.Unanswered
	result.Band = BandFor(test.TestType, result.Correct, result.Total)

	return result, nil
}

// answersMatch is the whole comparison policy: trimmed, case-insensitive,
// exact string equality. No fuzzy matching, no numeric normalization.
func answersMatch(user, canonical string) bool {
	return strings.EqualFold(strings.TrimSpace(user), strings.TrimSpace(canonical))
}
