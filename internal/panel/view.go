package panel

import (
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var helpStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#999999"))

// View is an interactive bubbletea model over a Panel. Number keys toggle the
// matching category.
type View struct {
	panel *Panel
	state map[string]any
	title string
	width int
}

// NewView wraps a panel and a state snapshot for interactive display.
func NewView(p *Panel, state map[string]any, title string) *View {
	return &View{panel: p, state: state, title: title}
}

func (v *View) Init() tea.Cmd {
	return nil
}

func (v *View) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			return v, tea.Quit
		case "a":
			v.panel.OpenAll()
		case "c":
			for _, id := range v.panel.catalog.IDs() {
				v.panel.Close(id)
			}
		default:
			if n, err := strconv.Atoi(msg.String()); err == nil {
				ids := v.panel.catalog.IDs()
				if n >= 1 && n <= len(ids) {
					v.panel.Toggle(ids[n-1])
				}
			}
		}
	case tea.WindowSizeMsg:
		v.width = msg.Width
	}
	return v, nil
}

func (v *View) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render(v.title),
		v.panel.Render(v.state, v.width),
		helpStyle.Render("(1-7 toggle, a open all, c collapse, q quit)"),
	)
}

// Run starts the interactive view on the terminal.
func Run(v *View) error {
	_, err := tea.NewProgram(v, tea.WithAltScreen()).Run()
	return err
}
