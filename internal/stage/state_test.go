package stage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name string
		dst  State
		src  State
		want State
	}{
		{"nil src", State{"a": 1}, nil, State{"a": 1}},
		{"disjoint", State{"a": 1}, State{"b": 2}, State{"a": 1, "b": 2}},
		{"right wins", State{"a": 1, "b": 1}, State{"b": 2}, State{"a": 1, "b": 2}},
		{"nil value overrides", State{"a": 1}, State{"a": nil}, State{"a": nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.dst.Merge(tt.src)
			assert.Equal(t, tt.want, tt.dst)
		})
	}
}

func TestMergeIsAssociative(t *testing.T) {
	a := State{"k": 1, "x": "a"}
	b := State{"k": 2, "y": "b"}
	c := State{"k": 3, "x": "c"}

	left := Merged(Merged(a, b), c)
	right := Merged(a, Merged(b, c))
	assert.Equal(t, left, right)
	assert.Equal(t, State{"k": 1, "x": "a"}, a, "Merged must not touch its base")
}

func TestCloneAndPick(t *testing.T) {
	var nilState State
	assert.Nil(t, nilState.Clone())

	s := State{"a": 1, "b": 2}
	c := s.Clone()
	c["a"] = 9
	assert.Equal(t, 1, s["a"])

	assert.Equal(t, State{"b": 2}, s.Pick("b", "missing"))
	assert.Equal(t, State{}, s.Pick())
}

func TestParseOptions(t *testing.T) {
	tests := []struct {
		name string
		cfg  map[string]any
		want Options
	}{
		{"nil", nil, Options{}},
		{"wrong types", map[string]any{"parse_stats": "true", "persist_keys": "a"}, Options{}},
		{"string slice", map[string]any{"persist_keys": []string{"a", "b"}}, Options{PersistKeys: []string{"a", "b"}}},
		{"any slice", map[string]any{"parse_stats": true, "persist_keys": []any{"a", 1, ""}}, Options{ParseStats: true, PersistKeys: []string{"a"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseOptions(tt.cfg))
		})
	}
}
