package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	assert.Equal(t, []string{"body", "face", "makeup", "hygiene", "misc", "fluids", "clothing"}, c.IDs())

	fluids, ok := c.Category("fluids")
	require.True(t, ok)
	assert.Equal(t, "Cum/Milk/Squirt Production", fluids.Title)

	_, ok = c.Category("nope")
	assert.False(t, ok)

	seen := make(map[string]bool)
	for _, k := range c.Keys() {
		assert.False(t, seen[k], "duplicate key %s", k)
		seen[k] = true
	}
}

func TestParseRejectsDuplicateKeys(t *testing.T) {
	doc := []byte(`
categories:
  - id: a
    title: A
    fields:
      - {key: x, label: X}
  - id: b
    title: B
    fields:
      - {key: x, label: Other X}
`)
	_, err := Parse(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate key")
}

func TestParseRejectsMissingID(t *testing.T) {
	_, err := Parse([]byte("categories:\n  - title: Untitled\n"))
	require.Error(t, err)
}

func TestFieldByLabel(t *testing.T) {
	c := Default()

	tests := []struct {
		label   string
		wantKey string
		wantOk  bool
	}{
		{"Height", "height", true},
		{"hair  color", "hairColor", true},
		{"NAIL POLISH", "nailPolish", true},
		{"Favourite Colour", "", false},
	}

	for _, tt := range tests {
		f, ok := c.FieldByLabel(tt.label)
		if ok != tt.wantOk || f.Key != tt.wantKey {
			t.Errorf("FieldByLabel(%q) = (%q, %v), want (%q, %v)", tt.label, f.Key, ok, tt.wantKey, tt.wantOk)
		}
	}
}
