package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ieltsprep/practice-service/internal/models"
)

func TestBandFromTable_Boundaries(t *testing.T) {
	tests := []struct {
		correct int
		band    float64
	}{
		{40, 9.0},
		{39, 9.0},
		{38, 8.5},
		{37, 8.5},
		{35, 8.0},
		{32, 7.5},
		{30, 7.0},
		{29, 6.5},
		{26, 6.5},
		{23, 6.0},
		{18, 5.5},
		{16, 5.0},
		{13, 4.5},
		{10, 4.0},
		{7, 3.5},
		{5, 3.0},
		{3, 2.5},
		{2, 2.0},
		{1, 2.0},
		{0, 1.0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.band, BandFromTable(tt.correct), "correct=%d", tt.correct)
	}
}

func TestBandFromTable_Monotonic(t *testing.T) {
	prev := BandFromTable(0)
	for correct := 1; correct <= 40; correct++ {
		band := BandFromTable(correct)
		assert.GreaterOrEqual(t, band, prev, "band dropped at correct=%d", correct)
		prev = band
	}
}

func TestBandLinear(t *testing.T) {
	tests := []struct {
		name    string
		correct int
		total   int
		band    float64
	}{
		{"full marks", 40, 40, 9.0},
		{"zero", 0, 40, 0.0},
		{"one third of three", 1, 3, 3.0},
		{"rounds to one decimal", 13, 40, 2.9},
		{"half", 20, 40, 4.5},
		{"zero total", 5, 0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.band, BandLinear(tt.correct, tt.total))
		})
	}
}

func TestBandFor_PicksStrategyByTestType(t *testing.T) {
	// 30/40: the table says 7.0, the linear formula says 6.8
	assert.Equal(t, 7.0, BandFor(models.TestTypeListening, 30, 40))
	assert.Equal(t, 6.8, BandFor(models.TestTypeReading, 30, 40))
}
