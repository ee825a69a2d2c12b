// Package metadata reads the stage's declarative YAML document. Nothing in it
// changes how the controller behaves; the hosting platform consumes it.
package metadata

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Visibility values accepted by the hosting platform.
const (
	VisibilityPublic   = "PUBLIC"
	VisibilityPrivate  = "PRIVATE"
	VisibilityUnlisted = "UNLISTED"
)

// Position values for the stage's UI placement.
const (
	PositionAdjacent   = "ADJACENT"
	PositionNone       = "NONE"
	PositionCover      = "COVER"
	PositionFullscreen = "FULLSCREEN"
)

// Scope names used by state_schema.
const (
	ScopeInit    = "init"
	ScopeMessage = "message"
	ScopeChat    = "chat"
)

// DefaultYAML is the metadata shipped with the stage.
//
//go:embed default.yaml
var DefaultYAML []byte

// Document is the stage metadata file.
type Document struct {
	ProjectName     string             `yaml:"project_name"`
	Tagline         string             `yaml:"tagline"`
	Visibility      string             `yaml:"visibility"`
	Position        string             `yaml:"position"`
	Tags            []string           `yaml:"tags"`
	ConfigSchema    *Schema            `yaml:"config_schema,omitempty"`
	StateSchema     map[string]*Schema `yaml:"state_schema,omitempty"`
	IsAnonymous     bool               `yaml:"is_anonymous"`
	RatingsDisabled bool               `yaml:"ratings_disabled"`
	ExtensionID     string             `yaml:"extension_id"`
}

// Schema is the subset of JSON Schema the metadata advertises.
type Schema struct {
	Type        string             `yaml:"type,omitempty"`
	Title       string             `yaml:"title,omitempty"`
	Description string             `yaml:"description,omitempty"`
	Default     any                `yaml:"default,omitempty"`
	Enum        []any              `yaml:"enum,omitempty"`
	Properties  map[string]*Schema `yaml:"properties,omitempty"`
	Items       *Schema            `yaml:"items,omitempty"`
	Required    []string           `yaml:"required,omitempty"`
}

// Parse decodes a metadata document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &doc, nil
}

// Load reads and decodes a metadata file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata %s: %w", path, err)
	}
	return Parse(data)
}

// Scope returns the advertised schema for a state scope, or nil.
func (d *Document) Scope(scope string) *Schema {
	if d == nil || d.StateSchema == nil {
		return nil
	}
	return d.StateSchema[scope]
}

// ConfigDefaults collects the default value of every top-level config_schema
// property.
func (d *Document) ConfigDefaults() map[string]any {
	out := make(map[string]any)
	if d == nil || d.ConfigSchema == nil {
		return out
	}
	for name, prop := range d.ConfigSchema.Properties {
		if prop != nil && prop.Default != nil {
			out[name] = prop.Default
		}
	}
	return out
}
