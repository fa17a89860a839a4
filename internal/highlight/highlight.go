// Package highlight turns raw text selections into colorable, optionally
// annotated ranges and re-renders text blocks with those ranges spliced in
// as styled segments. Offsets are plain character indices into the current
// text of one logical content block, identified by an opaque contentID.
package highlight

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

type Color string

const (
	ColorYellow  Color = "yellow"
	ColorCyan    Color = "cyan"
	ColorFuchsia Color = "fuchsia"
)

// ValidColor reports whether c is one of the supported highlight colors.
func ValidColor(c Color) bool {
	switch c {
	case ColorYellow, ColorCyan, ColorFuchsia:
		return true
	}
	return false
}

// Highlight is one persisted range within a content block.
type Highlight struct {
	ID     string  `json:"id"`
	Start  int     `json:"start"`
	End    int     `json:"end"`
	Text   string  `json:"text"`
	Color  Color   `json:"color"`
	Note   *string `json:"note,omitempty"`
	Active bool    `json:"active"`
}

// Selection is a resolved text selection within a content block.
type Selection struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// ComputeSelectionOffsets resolves a user selection into character offsets
// relative to the full text of a content block. prefixLen is the length of
// the text preceding the selection start within that block; the page layer
// measures it against the currently rendered text, so existing highlight
// decoration must never inject extra characters.
//
// Empty or whitespace-only selections and selections that fall outside the
// block are errors; callers log and ignore them, and no highlight is made.
func ComputeSelectionOffsets(fullText string, prefixLen int, selected string) (Selection, error) {
	if strings.TrimSpace(selected) == "" {
		return Selection{}, fmt.Errorf("highlight: empty selection")
	}
	start := prefixLen
	end := prefixLen + len(selected)
	if start < 0 || end > len(fullText) {
		return Selection{}, fmt.Errorf("highlight: selection [%d,%d) outside content of length %d", start, end, len(fullText))
	}
	if fullText[start:end] != selected {
		return Selection{}, fmt.Errorf("highlight: selection does not match content at [%d,%d)", start, end)
	}
	return Selection{Text: selected, Start: start, End: end}, nil
}

// Store holds the highlights of one attempt session, keyed by contentID.
// It lives only as long as the session; nothing is persisted.
type Store struct {
	mu     sync.RWMutex
	nextID int
	blocks map[string][]Highlight
}

func NewStore() *Store {
	return &Store{blocks: make(map[string][]Highlight)}
}

// Add appends a new highlight for contentID. Overlapping or duplicate
// ranges may coexist; ordering is resolved at render time, not here.
func (s *Store) Add(contentID string, start, end int, text string, color Color) (Highlight, error) {
	if start < 0 || start >= end {
		return Highlight{}, fmt.Errorf("highlight: invalid range [%d,%d)", start, end)
	}
	if !ValidColor(color) {
		return Highlight{}, fmt.Errorf("highlight: unknown color %q", color)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	h := Highlight{
		ID:    "hl-" + strconv.Itoa(s.nextID),
		Start: start,
		End:   end,
		Text:  text,
		Color: color,
	}
	s.blocks[contentID] = append(s.blocks[contentID], h)
	return h, nil
}

// Delete removes a highlight by id. Removing an unknown id is an error so
// callers can distinguish a stale UI from a no-op.
func (s *Store) Delete(contentID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.blocks[contentID]
	for i := range list {
		if list[i].ID == id {
			s.blocks[contentID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("highlight: %s not found in %s", id, contentID)
}

// SetNote attaches or edits the note on a highlight. An empty trimmed note
// clears it.
func (s *Store) SetNote(contentID, id, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.blocks[contentID]
	for i := range list {
		if list[i].ID == id {
			trimmed := strings.TrimSpace(note)
			if trimmed == "" {
				list[i].Note = nil
			} else {
				list[i].Note = &trimmed
			}
			return nil
		}
	}
	return fmt.Errorf("highlight: %s not found in %s", id, contentID)
}

// SetActive marks one highlight active and clears every other active flag
// across all blocks: clicking a highlight reveals its delete affordance and
// collapses any previously open one.
func (s *Store) SetActive(contentID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for blockID, list := range s.blocks {
		for i := range list {
			active := blockID == contentID && list[i].ID == id
			list[i].Active = active
			if active {
				found = true
			}
		}
	}
	if !found {
		return fmt.Errorf("highlight: %s not found in %s", id, contentID)
	}
	return nil
}

// ClearActive clears all active flags (a click anywhere outside a
// highlight).
func (s *Store) ClearActive() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, list := range s.blocks {
		for i := range list {
			list[i].Active = false
		}
	}
}

// List returns a copy of the highlights for contentID.
func (s *Store) List(contentID string) []Highlight {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.blocks[contentID]
	out := make([]Highlight, len(list))
	copy(out, list)
	return out
}

// All returns every highlight keyed by contentID.
func (s *Store) All() map[string][]Highlight {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]Highlight, len(s.blocks))
	for id, list := range s.blocks {
		cp := make([]Highlight, len(list))
		copy(cp, list)
		out[id] = cp
	}
	return out
}
