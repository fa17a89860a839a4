package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ieltsprep/practice-service/internal/models"
)

func testWith(testType models.TestType, questions ...models.Question) *models.Test {
	return &models.Test{
		ID:       1,
		TestType: testType,
		Sections: []models.Section{
			{ID: 1, Position: 0, Questions: questions},
		},
	}
}

func question(number int, answers ...string) models.Question {
	return models.Question{
		QuestionNumber: number,
		QuestionType:   models.ShortAnswer,
		Question:       "question",
		CorrectAnswer:  models.AnswerJSON(answers...),
	}
}

func TestGrade_CountsAndDetails(t *testing.T) {
	test := testWith(models.TestTypeReading,
		question(1, "a"),
		question(2, "b"),
		question(3, "c"),
	)
	answers := AnswerMap{1: "a", 2: "X"}

	result, err := Grade(test, answers)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Correct)
	assert.Equal(t, 1, result.Incorrect)
	assert.Equal(t, 1, result.Unanswered)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, result.Total, result.Correct+result.Incorrect+result.Unanswered)

	require.Len(t, result.Details, 3)
	assert.True(t, result.Details[0].IsCorrect)
	assert.False(t, result.Details[1].IsCorrect)
	assert.Equal(t, "X", result.Details[1].UserAnswer)
	assert.Equal(t, "c", result.Details[2].CorrectAnswer)
	assert.Empty(t, result.Details[2].UserAnswer)
}

func TestGrade_AnswerMatching(t *testing.T) {
	tests := []struct {
		name    string
		stored  []string
		given   string
		correct bool
	}{
		{"exact match", []string{"gravity"}, "gravity", true},
		{"case insensitive", []string{"Gravity"}, "gRAVITY", true},
		{"surrounding whitespace", []string{"gravity"}, "  gravity  ", true},
		{"different word", []string{"gravity"}, "magnetism", false},
		{"substring is not a match", []string{"the gravity"}, "gravity", false},
		{"no numeric normalization", []string{"7"}, "seven", false},
		{"alternatives grade against the first only", []string{"color", "colour"}, "colour", false},
		{"first alternative matches", []string{"color", "colour"}, "color", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			test := testWith(models.TestTypeListening, question(1, tt.stored...))

			result, err := Grade(test, AnswerMap{1: tt.given})

			require.NoError(t, err)
			assert.Equal(t, tt.correct, result.Correct == 1)
		})
	}
}

func TestGrade_WhitespaceOnlyAnswerIsUnanswered(t *testing.T) {
	test := testWith(models.TestTypeReading, question(1, "a"))

	result, err := Grade(test, AnswerMap{1: "   "})

	require.NoError(t, err)
	assert.Equal(t, 0, result.Correct)
	assert.Equal(t, 0, result.Incorrect)
	assert.Equal(t, 1, result.Unanswered)
}

func TestGrade_EmptyTest(t *testing.T) {
	_, err := Grade(testWith(models.TestTypeReading), AnswerMap{})
	assert.Error(t, err)

	_, err = Grade(nil, AnswerMap{})
	assert.Error(t, err)
}

func TestGrade_OrdersByQuestionNumberAcrossSections(t *testing.T) {
	test := &models.Test{
		ID:       1,
		TestType: models.TestTypeReading,
		Sections: []models.Section{
			{Position: 1, Questions: []models.Question{question(3, "c"), question(4, "d")}},
			{Position: 0, Questions: []models.Question{question(1, "a"), question(2, "b")}},
		},
	}

	result, err := Grade(test, AnswerMap{})

	require.NoError(t, err)
	require.Len(t, result.Details, 4)
	for i, detail := range result.Details {
		assert.Equal(t, i+1, detail.QuestionNumber)
	}
}

func TestGrade_ReadingBandIsLinear(t *testing.T) {
	test := testWith(models.TestTypeReading,
		question(1, "a"), question(2, "b"), question(3, "c"),
	)

	result, err := Grade(test, AnswerMap{1: "a"})

	require.NoError(t, err)
	assert.Equal(t, 3.0, result.Band)
}

func TestGrade_ListeningBandUsesTable(t *testing.T) {
	questions := make([]models.Question, 40)
	answers := AnswerMap{}
	for i := range questions {
		questions[i] = question(i+1, "a")
		if i < 30 {
			answers[i+1] = "a"
		}
	}
	test := testWith(models.TestTypeListening, questions...)

	result, err := Grade(test, answers)

	require.NoError(t, err)
	assert.Equal(t, 30, result.Correct)
	assert.Equal(t, 7.0, result.Band)
}
