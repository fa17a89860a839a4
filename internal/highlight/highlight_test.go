package highlight

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "The mitochondria is the powerhouse of the cell."

func TestComputeSelectionOffsets(t *testing.T) {
	tests := []struct {
		name      string
		prefixLen int
		selected  string
		start     int
		end       int
		wantErr   bool
	}{
		{"start of text", 0, "The", 0, 3, false},
		{"mid text", 4, "mitochondria", 4, 16, false},
		{"empty selection", 0, "", 0, 0, true},
		{"whitespace only", 0, "   ", 0, 0, true},
		{"negative prefix", -1, "The", 0, 0, true},
		{"runs past end", 40, "of the cell.", 0, 0, true},
		{"content mismatch", 0, "mitochondria", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := ComputeSelectionOffsets(sample, tt.prefixLen, tt.selected)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.start, sel.Start)
			assert.Equal(t, tt.end, sel.End)
			assert.Equal(t, tt.selected, sel.Text)
			assert.Equal(t, tt.selected, sample[sel.Start:sel.End])
		})
	}
}

func TestStore_Add(t *testing.T) {
	store := NewStore()

	first, err := store.Add("block", 4, 16, "mitochondria", ColorYellow)
	require.NoError(t, err)
	second, err := store.Add("block", 24, 34, "powerhouse", ColorCyan)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, store.List("block"), 2)

	_, err = store.Add("block", 10, 10, "", ColorYellow)
	assert.Error(t, err)
	_, err = store.Add("block", 5, 3, "x", ColorYellow)
	assert.Error(t, err)
	_, err = store.Add("block", 0, 3, "The", Color("green"))
	assert.Error(t, err)
}

func TestStore_Delete(t *testing.T) {
	store := NewStore()
	h, err := store.Add("block", 0, 3, "The", ColorYellow)
	require.NoError(t, err)

	assert.Error(t, store.Delete("block", "hl-999"))
	assert.Error(t, store.Delete("other", h.ID))
	assert.NoError(t, store.Delete("block", h.ID))
	assert.Empty(t, store.List("block"))
}

func TestStore_SetNote(t *testing.T) {
	store := NewStore()
	h, _ := store.Add("block", 0, 3, "The", ColorYellow)

	require.NoError(t, store.SetNote("block", h.ID, "definite article"))
	require.NotNil(t, store.List("block")[0].Note)
	assert.Equal(t, "definite article", *store.List("block")[0].Note)

	// whitespace-only clears the note
	require.NoError(t, store.SetNote("block", h.ID, "  "))
	assert.Nil(t, store.List("block")[0].Note)

	assert.Error(t, store.SetNote("block", "hl-999", "x"))
}

func TestStore_ActiveIsExclusiveAcrossBlocks(t *testing.T) {
	store := NewStore()
	a, _ := store.Add("passage-1", 0, 3, "The", ColorYellow)
	b, _ := store.Add("passage-2", 4, 16, "mitochondria", ColorCyan)

	require.NoError(t, store.SetActive("passage-1", a.ID))
	assert.True(t, store.List("passage-1")[0].Active)

	require.NoError(t, store.SetActive("passage-2", b.ID))
	assert.False(t, store.List("passage-1")[0].Active)
	assert.True(t, store.List("passage-2")[0].Active)

	store.ClearActive()
	assert.False(t, store.List("passage-2")[0].Active)

	assert.Error(t, store.SetActive("passage-1", "hl-999"))
}

func TestRender_RoundTrip(t *testing.T) {
	store := NewStore()
	sel, err := ComputeSelectionOffsets(sample, 5, sample[5:12])
	require.NoError(t, err)
	_, err = store.Add("block", sel.Start, sel.End, sel.Text, ColorYellow)
	require.NoError(t, err)

	segments := store.Render("block", sample)

	require.Len(t, segments, 3)
	assert.Equal(t, sample[:5], segments[0].Text)
	assert.False(t, segments[0].Highlighted)
	assert.Equal(t, sample[5:12], segments[1].Text)
	assert.True(t, segments[1].Highlighted)
	assert.Equal(t, ColorYellow, segments[1].Color)
	assert.Equal(t, sample[12:], segments[2].Text)

	var rebuilt string
	for _, seg := range segments {
		rebuilt += seg.Text
	}
	assert.Equal(t, sample, rebuilt)
}

func TestRender_OverlapFirstWins(t *testing.T) {
	store := NewStore()
	_, err := store.Add("block", 0, 10, sample[0:10], ColorYellow)
	require.NoError(t, err)
	_, err = store.Add("block", 5, 15, sample[5:15], ColorCyan)
	require.NoError(t, err)

	segments := store.Render("block", sample)

	require.Len(t, segments, 2)
	assert.Equal(t, sample[0:10], segments[0].Text)
	assert.True(t, segments[0].Highlighted)
	assert.Equal(t, sample[10:], segments[1].Text)
	assert.False(t, segments[1].Highlighted)
}

func TestRender_ClampsEndToText(t *testing.T) {
	store := NewStore()
	_, err := store.Add("block", 43, 100, "cell.", ColorFuchsia)
	require.NoError(t, err)

	segments := store.Render("block", sample)

	require.Len(t, segments, 2)
	last := segments[1]
	assert.True(t, last.Highlighted)
	assert.Equal(t, sample[43:], last.Text)
}

func TestRender_EmptyCases(t *testing.T) {
	store := NewStore()

	assert.Nil(t, store.Render("block", ""))
	assert.Equal(t, []Segment{{Text: sample}}, store.Render("block", sample))

	// highlight entirely beyond the text renders nothing extra
	_, err := store.Add("short", 100, 110, "gone", ColorYellow)
	require.NoError(t, err)
	segments := store.Render("short", "tiny")
	require.Len(t, segments, 1)
	assert.Equal(t, "tiny", segments[0].Text)
	assert.False(t, segments[0].Highlighted)
}
