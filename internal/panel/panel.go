// Package panel renders the read-only stats view: one collapsible section per
// catalog category, each listing "*Label: value" lines.
package panel

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sbenjam1n/statstage/internal/stats"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	fieldStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(0, 1)
)

// Panel tracks which categories are expanded. Toggles are independent: any
// number of categories may be open at once.
type Panel struct {
	catalog *stats.Catalog
	open    map[string]bool
}

// New returns a panel with every category collapsed.
func New(c *stats.Catalog) *Panel {
	return &Panel{catalog: c, open: make(map[string]bool)}
}

// Toggle flips a category and returns its new visibility. Unknown ids are
// ignored and report false.
func (p *Panel) Toggle(id string) bool {
	if _, ok := p.catalog.Category(id); !ok {
		return false
	}
	p.open[id] = !p.open[id]
	return p.open[id]
}

// Open expands a category.
func (p *Panel) Open(id string) {
	if _, ok := p.catalog.Category(id); ok {
		p.open[id] = true
	}
}

// Close collapses a category.
func (p *Panel) Close(id string) {
	delete(p.open, id)
}

// OpenAll expands every category.
func (p *Panel) OpenAll() {
	for _, id := range p.catalog.IDs() {
		p.open[id] = true
	}
}

// IsOpen reports whether a category is expanded.
func (p *Panel) IsOpen(id string) bool {
	return p.open[id]
}

// Lines returns the plain lines of the view without styling. Collapsed
// categories contribute only their heading.
func (p *Panel) Lines(state map[string]any) []string {
	var lines []string
	for _, cat := range p.catalog.Categories {
		lines = append(lines, heading(cat, p.open[cat.ID]))
		if !p.open[cat.ID] {
			continue
		}
		for _, f := range cat.Fields {
			lines = append(lines, stats.FormatLine(f, FormatValue(state[f.Key])))
		}
	}
	return lines
}

// Render draws the styled panel at the given width. The state is only read.
func (p *Panel) Render(state map[string]any, width int) string {
	var sections []string
	for _, cat := range p.catalog.Categories {
		section := headerStyle.Render(heading(cat, p.open[cat.ID]))
		if p.open[cat.ID] {
			var fields []string
			for _, f := range cat.Fields {
				fields = append(fields, fieldStyle.Render(stats.FormatLine(f, FormatValue(state[f.Key]))))
			}
			section = lipgloss.JoinVertical(lipgloss.Left, section, strings.Join(fields, "\n"))
		}
		sections = append(sections, section)
	}

	box := boxStyle
	if width > 4 {
		box = box.Width(width - 4)
	}
	return box.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// FormatValue renders a value the way the view shows it. Missing values print
// as "undefined" and arrays are comma-joined.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "undefined"
	case string:
		return val
	case []any:
		parts := make([]string, len(val))
		for i, e := range val {
			parts[i] = FormatValue(e)
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(val, ",")
	default:
		return fmt.Sprint(val)
	}
}

func heading(cat stats.Category, open bool) string {
	marker := "▸"
	if open {
		marker = "▾"
	}
	return marker + " " + cat.Title
}
