package scoring

import (
	"math"

	"github.com/ieltsprep/practice-service/internal/models"
)

// bandStep is one row of the 40-question IELTS conversion grid.
type bandStep struct {
	MinCorrect int
	Band       float64
}

// bandTable converts a raw correct count on a 40-question Listening test to
// a band score. The grid is specific to this question count; it is not a
// linear rescale and must not be treated as one.
var bandTable = []bandStep{
	{39, 9.0},
	{37, 8.5},
	{35, 8.0},
	{32, 7.5},
	{30, 7.0},
	{26, 6.5},
	{23, 6.0},
	{18, 5.5},
	{16, 5.0},
	{13, 4.5},
	{10, 4.0},
	{7, 3.5},
	{5, 3.0},
	{3, 2.5},
	{1, 2.0},
}

// BandFromTable maps a correct count to a band via the fixed step table.
// Zero correct answers score band 1.0.
func BandFromTable(correct int) float64 {
	for _, step := range bandTable {
		if correct >= step.MinCorrect {
			return step.Band
		}
	}
	return 1.0
}

// BandLinear scores proportionally: (correct/total)*9, rounded to one
// decimal place.
func BandLinear(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	band := float64(correct) / float64(total) * 9
	return math.Round(band*10) / 10
}

// BandFor picks the band strategy by test type. Listening uses the step
// table and Reading the linear formula; the two deliberately disagree, and
// callers must not unify them without a product decision.
func BandFor(testType models.TestType, correct, total int) float64 {
	if testType == models.TestTypeReading {
		return BandLinear(correct, total)
	}
	return BandFromTable(correct)
}
