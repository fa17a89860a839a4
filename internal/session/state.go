// Package session holds the live, in-memory state of one test sitting:
// the student's answers, flagged questions, notes and highlights, the part
// the student is currently viewing, and the countdown timer. All of it is
// keyed by global question number and owned by a single sitting; nothing
// here touches storage.
package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ieltsprep/practice-service/internal/scoring"
)

// State is the answer and navigation state of one sitting.
type State struct {
	mu        sync.RWMutex
	answers   map[int]string
	flags     map[int]struct{}
	notes     map[int]string
	partIndex int
	partCount int
}

func NewState(partCount int) *State {
	if partCount < 1 {
		partCount = 1
	}
	return &State{
		answers:   make(map[int]string),
		flags:     make(map[int]struct{}),
		notes:     make(map[int]string),
		partCount: partCount,
	}
}

// SetAnswer upserts the answer for a question. An empty string counts as
// unanswered in aggregates but the key stays present, matching how the
// answer sheet distinguishes "cleared" from "never touched".
func (s *State) SetAnswer(questionNumber int, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers[questionNumber] = value
}

// Answers returns a copy of the answer map for grading or persistence.
func (s *State) Answers() scoring.AnswerMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(scoring.AnswerMap, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

// AnsweredCount counts answers whose trimmed value is non-empty.
func (s *State) AnsweredCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, v := range s.answers {
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	return n
}

// ToggleFlag adds or removes the review flag on a question. Flags are
// advisory UI state only and are never consulted by grading.
func (s *State) ToggleFlag(questionNumber int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.flags[questionNumber]; ok {
		delete(s.flags, questionNumber)
		return false
	}
	s.flags[questionNumber] = struct{}{}
	return true
}

// Flagged returns the flagged question numbers.
func (s *State) Flagged() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int, 0, len(s.flags))
	for q := range s.flags {
		out = append(out, q)
	}
	return out
}

// IsFlagged reports whether a question carries the review flag.
func (s *State) IsFlagged(questionNumber int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.flags[questionNumber]
	return ok
}

// SetNote upserts the free-text note on a question. A note whose trimmed
// text is empty deletes the key: notes are never stored as empty strings,
// so "no note" and "empty note" stay distinguishable for persistence.
func (s *State) SetNote(questionNumber int, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(text) == "" {
		delete(s.notes, questionNumber)
		return
	}
	s.notes[questionNumber] = text
}

// Note returns the note for a question, if any.
func (s *State) Note(questionNumber int) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.notes[questionNumber]
	return text, ok
}

// Notes returns a copy of all notes.
func (s *State) Notes() map[int]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]string, len(s.notes))
	for k, v := range s.notes {
		out[k] = v
	}
	return out
}

// Navigate switches the displayed part. Switching never resets answers,
// flags or notes: all of them are keyed by global question number and are
// independent of which part is on screen.
func (s *State) Navigate(partIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if partIndex < 0 || partIndex >= s.partCount {
		return fmt.Errorf("session: part index %d out of range [0,%d)", partIndex, s.partCount)
	}
	s.partIndex = partIndex
	return nil
}

// PartIndex returns the currently displayed part.
func (s *State) PartIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.partIndex
}
