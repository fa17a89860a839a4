package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError("time_limit", "must be between 5 and 300 minutes", 400)

	assert.Equal(t, "time_limit", err.Field)
	assert.Equal(t, "must be between 5 and 300 minutes", err.Message)
	assert.Equal(t, 400, err.Value)
	assert.Equal(t, "validation error on field 'time_limit': must be between 5 and 300 minutes", err.Error())
}

func TestValidationErrors(t *testing.T) {
	var errs ValidationErrors
	assert.Equal(t, "validation failed", errs.Error())

	errs = append(errs, *NewValidationError("title", "is required", nil))
	assert.Equal(t, "validation failed: title is required", errs.Error())

	errs = append(errs, *NewValidationError("test_type", "must be reading or listening", nil))
	assert.Equal(t, "validation failed: 2 field errors", errs.Error())
}

func TestNewValidationErrorWithRule(t *testing.T) {
	err := NewValidationErrorWithRule("color", "must be yellow, cyan, or fuchsia", "highlight_color", "green")

	assert.Equal(t, "highlight_color", err.Rule)
	assert.Equal(t, "color", err.Field)
}
