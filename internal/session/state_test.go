package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_Answers(t *testing.T) {
	s := NewState(3)

	s.SetAnswer(1, "gravity")
	s.SetAnswer(2, "  ")
	s.SetAnswer(5, "orbit")
	s.SetAnswer(5, "moon") // overwrite

	answers := s.Answers()
	assert.Equal(t, "gravity", answers[1])
	assert.Equal(t, "moon", answers[5])

	// cleared answers keep their key but don't count as answered
	_, present := answers[2]
	assert.True(t, present)
	assert.Equal(t, 2, s.AnsweredCount())

	// the returned map is a copy
	answers[1] = "tampered"
	assert.Equal(t, "gravity", s.Answers()[1])
}

func TestState_ToggleFlag(t *testing.T) {
	s := NewState(1)

	assert.True(t, s.ToggleFlag(3))
	assert.True(t, s.IsFlagged(3))
	assert.False(t, s.ToggleFlag(3))
	assert.False(t, s.IsFlagged(3))

	// flagging works regardless of answer state
	s.ToggleFlag(7)
	assert.Empty(t, s.Answers())
	assert.Equal(t, []int{7}, s.Flagged())
}

func TestState_Notes(t *testing.T) {
	s := NewState(1)

	s.SetNote(2, "re-read paragraph C")
	note, ok := s.Note(2)
	require.True(t, ok)
	assert.Equal(t, "re-read paragraph C", note)

	// whitespace-only text removes the note entirely
	s.SetNote(2, "   ")
	_, ok = s.Note(2)
	assert.False(t, ok)
	assert.Empty(t, s.Notes())
}

func TestState_Navigate(t *testing.T) {
	s := NewState(3)
	s.SetAnswer(1, "a")
	s.ToggleFlag(2)
	s.SetNote(3, "check")

	require.NoError(t, s.Navigate(2))
	assert.Equal(t, 2, s.PartIndex())

	assert.Error(t, s.Navigate(-1))
	assert.Error(t, s.Navigate(3))
	assert.Equal(t, 2, s.PartIndex())

	// navigation never resets accumulated state
	assert.Equal(t, "a", s.Answers()[1])
	assert.True(t, s.IsFlagged(2))
	_, ok := s.Note(3)
	assert.True(t, ok)
}

func TestNewState_MinimumOnePart(t *testing.T) {
	s := NewState(0)
	assert.NoError(t, s.Navigate(0))
	assert.Error(t, s.Navigate(1))
}
