package panel

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sbenjam1n/statstage/internal/stats"
	"github.com/stretchr/testify/assert"
)

func TestToggleIsIndependent(t *testing.T) {
	p := New(stats.Default())

	assert.True(t, p.Toggle("body"))
	assert.True(t, p.Toggle("face"))
	assert.True(t, p.IsOpen("body"), "opening face must not close body")

	assert.False(t, p.Toggle("body"))
	assert.False(t, p.IsOpen("body"))
	assert.True(t, p.IsOpen("face"))

	assert.False(t, p.Toggle("unknown"))
	assert.False(t, p.IsOpen("unknown"))
}

func TestOpenCloseAll(t *testing.T) {
	c := stats.Default()
	p := New(c)

	p.OpenAll()
	for _, id := range c.IDs() {
		assert.True(t, p.IsOpen(id), id)
	}
	p.Close("misc")
	assert.False(t, p.IsOpen("misc"))
	p.Open("misc")
	assert.True(t, p.IsOpen("misc"))
}

func TestLinesCollapsed(t *testing.T) {
	c := stats.Default()
	p := New(c)

	lines := p.Lines(map[string]any{"height": 170})
	assert.Len(t, lines, len(c.Categories))
	assert.Equal(t, "▸ Body Details", lines[0])
	for _, l := range lines {
		assert.False(t, strings.HasPrefix(l, "*"), "collapsed panel shows no fields: %q", l)
	}
}

func TestLinesOpenCategory(t *testing.T) {
	p := New(stats.Default())
	p.Open("misc")

	lines := p.Lines(map[string]any{
		"mood":     "cheerful",
		"energy":   72.5,
		"location": []any{"kitchen", "house"},
	})

	assert.Contains(t, lines, "▾ Misc")
	assert.Contains(t, lines, "*Mood: cheerful")
	assert.Contains(t, lines, "*Energy: 72.5")
	assert.Contains(t, lines, "*Location: kitchen,house")
	assert.Contains(t, lines, "*Hunger: undefined")
	assert.NotContains(t, lines, "*Height: undefined")
}

func TestLinesDoNotMutateState(t *testing.T) {
	p := New(stats.Default())
	p.OpenAll()
	state := map[string]any{"mood": "calm"}

	p.Lines(state)
	p.Render(state, 80)

	assert.Equal(t, map[string]any{"mood": "calm"}, state)
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "undefined"},
		{"text", "text"},
		{3, "3"},
		{1.5, "1.5"},
		{true, "true"},
		{[]string{"a", "b"}, "a,b"},
		{[]any{"a", 2}, "a,2"},
	}

	for _, tt := range tests {
		if got := FormatValue(tt.in); got != tt.want {
			t.Errorf("FormatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderContainsFields(t *testing.T) {
	p := New(stats.Default())
	p.Open("clothing")

	out := p.Render(map[string]any{"top": "sweater"}, 80)
	assert.Contains(t, out, "Clothing Details")
	assert.Contains(t, out, "*Top: sweater")
	assert.NotContains(t, out, "*Height")
}

func TestViewKeyToggles(t *testing.T) {
	p := New(stats.Default())
	v := NewView(p, map[string]any{}, "stats")

	v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("2")})
	assert.True(t, p.IsOpen("face"))

	v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	assert.True(t, p.IsOpen("clothing"))

	v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	assert.False(t, p.IsOpen("face"))

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.NotNil(t, cmd)
}
