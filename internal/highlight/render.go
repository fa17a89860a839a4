package highlight

import "sort"

// Segment is one run of rendered text. A plain segment has no highlight
// metadata; a styled segment carries the id, color and note of the
// highlight that produced it.
type Segment struct {
	Text        string  `json:"text"`
	Highlighted bool    `json:"highlighted"`
	HighlightID string  `json:"highlight_id,omitempty"`
	Color       Color   `json:"color,omitempty"`
	Note        *string `json:"note,omitempty"`
	Active      bool    `json:"active,omitempty"`
}

// Render splices the block's highlights into rawText as styled segments.
// Highlights are sorted by start ascending and emitted left to right with
// plain segments filling the gaps. End offsets are clamped to the text
// length. A highlight whose start precedes the render cursor overlaps one
// already emitted and is skipped entirely: offsets are computed against a
// single flat text, so nested or overlapping decoration is unsupported and
// the first highlight wins.
func (s *Store) Render(contentID, rawText string) []Segment {
	highlights := s.List(contentID)
	if len(highlights) == 0 {
		if rawText == "" {
			return nil
		}
		return []Segment{{Text: rawText}}
	}

	sort.SliceStable(highlights, func(i, j int) bool {
		return highlights[i].Start < highlights[j].Start
	})

	var segments []Segment
	cursor := 0
	for _, h := range highlights {
		if h.Start < cursor {
			continue
		}
		end := h.End
		if end > len(rawText) {
			end = len(rawText)
		}
		if h.Start >= end {
			continue
		}
		if h.Start > cursor {
			segments = append(segments, Segment{Text: rawText[cursor:h.Start]})
		}
		segments = append(segments, Segment{
			Text:        rawText[h.Start:end],
			Highlighted: true,
			HighlightID: h.ID,
			Color:       h.Color,
			Note:        h.Note,
			Active:      h.Active,
		})
		cursor = end
	}
	if cursor < len(rawText) {
		segments = append(segments, Segment{Text: rawText[cursor:]})
	}
	return segments
}
