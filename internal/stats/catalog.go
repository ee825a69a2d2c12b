// Package stats holds the catalog of displayable stat fields and the parser
// that lifts "*Label: value" lines out of chat messages.
package stats

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Field is a single stat shown in the panel.
type Field struct {
	Key   string `yaml:"key"`
	Label string `yaml:"label"`
}

// Category groups fields under a collapsible heading.
type Category struct {
	ID     string  `yaml:"id"`
	Title  string  `yaml:"title"`
	Fields []Field `yaml:"fields"`
}

// Catalog is the ordered list of categories.
type Catalog struct {
	Categories []Category `yaml:"categories"`

	byLabel map[string]Field
}

// Parse decodes a catalog document and checks that every key is unique.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c.byLabel = make(map[string]Field)
	seen := make(map[string]string)
	for _, cat := range c.Categories {
		if cat.ID == "" {
			return nil, fmt.Errorf("category %q has no id", cat.Title)
		}
		for _, f := range cat.Fields {
			if f.Key == "" || f.Label == "" {
				return nil, fmt.Errorf("category %s: field needs key and label", cat.ID)
			}
			if prev, ok := seen[f.Key]; ok {
				return nil, fmt.Errorf("duplicate key %q in %s and %s", f.Key, prev, cat.ID)
			}
			seen[f.Key] = cat.ID
			c.byLabel[normalizeLabel(f.Label)] = f
		}
	}
	return &c, nil
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded stats catalog: %v", err))
	}
	return c
}

// Category returns the category with the given id.
func (c *Catalog) Category(id string) (Category, bool) {
	for _, cat := range c.Categories {
		if cat.ID == id {
			return cat, true
		}
	}
	return Category{}, false
}

// IDs returns category ids in display order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.Categories))
	for _, cat := range c.Categories {
		ids = append(ids, cat.ID)
	}
	return ids
}

// Keys returns every field key in display order.
func (c *Catalog) Keys() []string {
	var keys []string
	for _, cat := range c.Categories {
		for _, f := range cat.Fields {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// FieldByLabel looks a field up by its label, ignoring case and spacing.
func (c *Catalog) FieldByLabel(label string) (Field, bool) {
	f, ok := c.byLabel[normalizeLabel(label)]
	return f, ok
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
