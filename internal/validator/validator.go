package validator

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/sbenjam1n/statstage/internal/metadata"
)

// Result is the outcome of a validation pass. Results are advisory: nothing
// in the stage refuses to run because of them.
type Result struct {
	Tier    int      `json:"tier"`
	Passed  bool     `json:"passed"`
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []Detail `json:"details,omitempty"`
}

// Detail describes a single check.
type Detail struct {
	Check    string `json:"check"`
	Passed   bool   `json:"passed"`
	Expected string `json:"expected,omitempty"`
	Got      string `json:"got,omitempty"`
	Fix      string `json:"fix,omitempty"` // set for every failing check
}

// Failures returns only the failing details.
func (r *Result) Failures() []Detail {
	var out []Detail
	for _, d := range r.Details {
		if !d.Passed {
			out = append(out, d)
		}
	}
	return out
}

func (r *Result) fail(code int, d Detail) {
	d.Passed = false
	r.Details = append(r.Details, d)
	if r.Passed {
		r.Passed = false
		r.Code = code
	}
}

// Validator lints the metadata document (tier 0) and state against the
// advertised state_schema (tier 1).
type Validator struct {
	doc *metadata.Document
}

// New creates a Validator for a metadata document. A nil document makes
// every state check pass.
func New(doc *metadata.Document) *Validator {
	return &Validator{doc: doc}
}

var (
	visibilities = []string{metadata.VisibilityPublic, metadata.VisibilityPrivate, metadata.VisibilityUnlisted}
	positions    = []string{metadata.PositionAdjacent, metadata.PositionNone, metadata.PositionCover, metadata.PositionFullscreen}
	scopes       = []string{metadata.ScopeInit, metadata.ScopeMessage, metadata.ScopeChat}
	schemaTypes  = []string{"object", "array", "string", "number", "integer", "boolean", "null"}
)

// Metadata performs structural checks on the document.
func (v *Validator) Metadata() *Result {
	result := &Result{Tier: 0, Passed: true}
	doc := v.doc
	if doc == nil {
		result.fail(1, Detail{
			Check:    "document_present",
			Expected: "a metadata document",
			Got:      "none",
			Fix:      "Create stage.yaml or set STAGE_METADATA_PATH.",
		})
		result.Message = "No metadata document"
		return result
	}

	if strings.TrimSpace(doc.ProjectName) == "" {
		result.fail(1, Detail{
			Check:    "project_name",
			Expected: "non-empty project_name",
			Got:      "empty",
			Fix:      "Add a project_name: the display name shown in the stage listing.",
		})
	}
	if strings.TrimSpace(doc.ExtensionID) == "" {
		result.fail(1, Detail{
			Check:    "extension_id",
			Expected: "non-empty extension_id",
			Got:      "empty",
			Fix:      "Add a stable extension_id; changing it later creates a new listing.",
		})
	}
	if !contains(visibilities, doc.Visibility) {
		result.fail(2, Detail{
			Check:    "visibility",
			Expected: strings.Join(visibilities, "|"),
			Got:      fmt.Sprintf("%q", doc.Visibility),
			Fix:      fmt.Sprintf("Set visibility to one of %s.", strings.Join(visibilities, ", ")),
		})
	}
	if !contains(positions, doc.Position) {
		result.fail(2, Detail{
			Check:    "position",
			Expected: strings.Join(positions, "|"),
			Got:      fmt.Sprintf("%q", doc.Position),
			Fix:      fmt.Sprintf("Set position to one of %s.", strings.Join(positions, ", ")),
		})
	}

	for _, scope := range sortedKeys(doc.StateSchema) {
		if !contains(scopes, scope) {
			result.fail(3, Detail{
				Check:    "state_schema_scope",
				Expected: strings.Join(scopes, "|"),
				Got:      scope,
				Fix:      fmt.Sprintf("Rename state_schema.%s to init, message or chat.", scope),
			})
		}
		checkSchema(result, "state_schema."+scope, doc.StateSchema[scope])
	}
	if doc.ConfigSchema != nil {
		checkSchema(result, "config_schema", doc.ConfigSchema)
	}

	if result.Passed {
		result.Message = "Metadata passed"
	} else {
		result.Message = fmt.Sprintf("%d metadata check(s) failed", len(result.Failures()))
	}
	return result
}

func checkSchema(result *Result, path string, s *metadata.Schema) {
	if s == nil {
		return
	}
	if s.Type != "" && !contains(schemaTypes, s.Type) {
		result.fail(4, Detail{
			Check:    "schema_type",
			Expected: strings.Join(schemaTypes, "|"),
			Got:      fmt.Sprintf("%s.type = %q", path, s.Type),
			Fix:      fmt.Sprintf("Use a JSON Schema type at %s.", path),
		})
	}
	for _, name := range sortedKeys(s.Properties) {
		checkSchema(result, path+".properties."+name, s.Properties[name])
	}
	if s.Items != nil {
		checkSchema(result, path+".items", s.Items)
	}
}

// State compares a scope's values against the types advertised in
// state_schema. Keys without an advertised type are accepted.
func (v *Validator) State(scope string, state map[string]any) *Result {
	result := &Result{Tier: 1, Passed: true}
	schema := v.doc.Scope(scope)
	if schema == nil {
		result.Message = fmt.Sprintf("No %s schema advertised", scope)
		return result
	}

	for _, key := range sortedKeys(schema.Properties) {
		prop := schema.Properties[key]
		val, ok := state[key]
		if !ok || prop == nil || prop.Type == "" {
			continue
		}
		if got := jsonType(val); !typeMatches(prop.Type, got, val) {
			result.fail(-1, Detail{
				Check:    "state_type",
				Expected: fmt.Sprintf("%s.%s is %s", scope, key, prop.Type),
				Got:      got,
				Fix:      fmt.Sprintf("Store %s as %s, or update state_schema.%s.", key, prop.Type, scope),
			})
		}
	}
	for _, key := range schema.Required {
		if _, ok := state[key]; !ok {
			result.fail(-2, Detail{
				Check:    "state_required",
				Expected: fmt.Sprintf("%s.%s present", scope, key),
				Got:      "missing",
				Fix:      fmt.Sprintf("Include %s in every %s state the stage returns.", key, scope),
			})
		}
	}

	if result.Passed {
		result.Message = fmt.Sprintf("%s state matches schema", scope)
	} else {
		result.Message = fmt.Sprintf("%s state disagrees with schema in %d place(s)", scope, len(result.Failures()))
	}
	return result
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "integer"
	case float32, float64:
		return "number"
	case []any, []string:
		return "array"
	case map[string]any:
		return "object"
	}
	// Named map and slice types such as stage.State.
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map:
		return "object"
	case reflect.Slice, reflect.Array:
		return "array"
	}
	return fmt.Sprintf("%T", v)
}

// typeMatches accepts integers as numbers, and whole floats as integers since
// JSON round trips turn every number into float64.
func typeMatches(want, got string, val any) bool {
	switch {
	case want == got:
		return true
	case want == "number" && got == "integer":
		return true
	case want == "integer" && got == "number":
		f, ok := val.(float64)
		return ok && f == math.Trunc(f)
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CheckMessageState reports where a message state disagrees with the
// advertised message schema, one line per failing check.
func (v *Validator) CheckMessageState(state map[string]any) []string {
	var out []string
	for _, d := range v.State(metadata.ScopeMessage, state).Failures() {
		out = append(out, fmt.Sprintf("%s: want %s, got %s", d.Check, d.Expected, d.Got))
	}
	return out
}
