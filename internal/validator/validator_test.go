package validator

import (
	"strings"
	"testing"

	"github.com/sbenjam1n/statstage/internal/metadata"
	"github.com/sbenjam1n/statstage/internal/stage"
)

func validDoc() *metadata.Document {
	return &metadata.Document{
		ProjectName: "Stat Tracker",
		Visibility:  metadata.VisibilityPublic,
		Position:    metadata.PositionAdjacent,
		ExtensionID: "stat-tracker",
		StateSchema: map[string]*metadata.Schema{
			metadata.ScopeMessage: {
				Type: "object",
				Properties: map[string]*metadata.Schema{
					"someKey": {Type: "string"},
					"height":  {Type: "number"},
					"count":   {Type: "integer"},
				},
				Required: []string{"someKey"},
			},
		},
	}
}

func TestMetadataPasses(t *testing.T) {
	r := New(validDoc()).Metadata()
	if !r.Passed {
		t.Fatalf("expected pass, got %+v", r.Failures())
	}
	if r.Tier != 0 {
		t.Errorf("tier: want 0, got %d", r.Tier)
	}
}

func TestMetadataFailures(t *testing.T) {
	doc := validDoc()
	doc.ExtensionID = ""
	doc.Visibility = "SECRET"
	doc.Position = "SIDEWAYS"
	doc.StateSchema["branch"] = &metadata.Schema{Type: "thing"}

	r := New(doc).Metadata()
	if r.Passed {
		t.Fatal("expected failure")
	}
	if r.Code != 1 {
		t.Errorf("code: want 1 (first failure), got %d", r.Code)
	}

	checks := map[string]bool{}
	for _, d := range r.Failures() {
		checks[d.Check] = true
		if d.Fix == "" {
			t.Errorf("check %s has no fix", d.Check)
		}
	}
	for _, want := range []string{"extension_id", "visibility", "position", "state_schema_scope", "schema_type"} {
		if !checks[want] {
			t.Errorf("missing failing check %s, got %v", want, checks)
		}
	}
}

func TestMetadataNilDocument(t *testing.T) {
	r := New(nil).Metadata()
	if r.Passed {
		t.Fatal("expected failure for nil document")
	}
}

func TestState(t *testing.T) {
	v := New(validDoc())

	tests := []struct {
		name      string
		state     map[string]any
		wantPass  bool
		wantCheck string
	}{
		{"matching", map[string]any{"someKey": "x", "height": 170, "count": float64(3), "extra": true}, true, ""},
		{"wrong type", map[string]any{"someKey": 5}, false, "state_type"},
		{"fractional integer", map[string]any{"someKey": "x", "count": 2.5}, false, "state_type"},
		{"missing required", map[string]any{"height": 1.5}, false, "state_required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := v.State(metadata.ScopeMessage, tt.state)
			if r.Passed != tt.wantPass {
				t.Fatalf("Passed = %v, want %v (%+v)", r.Passed, tt.wantPass, r.Failures())
			}
			if tt.wantCheck != "" && r.Failures()[0].Check != tt.wantCheck {
				t.Errorf("first failing check = %s, want %s", r.Failures()[0].Check, tt.wantCheck)
			}
		})
	}
}

func TestStateWithoutSchema(t *testing.T) {
	if r := New(validDoc()).State(metadata.ScopeChat, map[string]any{"a": 1}); !r.Passed {
		t.Errorf("chat scope has no schema, want pass")
	}
	if r := New(nil).State(metadata.ScopeMessage, map[string]any{"a": 1}); !r.Passed {
		t.Errorf("nil document, want pass")
	}
}

func TestCheckMessageState(t *testing.T) {
	v := New(validDoc())
	if got := v.CheckMessageState(map[string]any{"someKey": "x"}); len(got) != 0 {
		t.Errorf("matching state produced findings: %v", got)
	}
	got := v.CheckMessageState(map[string]any{"someKey": 5})
	if len(got) != 1 || !strings.HasPrefix(got[0], "state_type:") {
		t.Errorf("findings = %v, want one state_type line", got)
	}
}

func TestJSONType(t *testing.T) {
	tests := []struct {
		val  any
		want string
	}{
		{nil, "null"},
		{true, "boolean"},
		{"x", "string"},
		{3, "integer"},
		{2.5, "number"},
		{[]any{1}, "array"},
		{map[string]any{"a": 1}, "object"},
		{stage.State{"a": 1}, "object"},
		{[]int{1, 2}, "array"},
	}

	for _, tt := range tests {
		if got := jsonType(tt.val); got != tt.want {
			t.Errorf("jsonType(%#v) = %s, want %s", tt.val, got, tt.want)
		}
	}
}
