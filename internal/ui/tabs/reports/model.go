// Package reports provides the analytics tab: scores, alerts, projections
// and usage patterns.
package reports

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/usage-ledger-tui/internal/app"
	"github.com/j-veylop/usage-ledger-tui/internal/ui/components"
	"github.com/j-veylop/usage-ledger-tui/internal/ui/styles"
)

// keyMap defines the key bindings specific to the reports tab.
type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	PageUp    key.Binding
	PageDown  key.Binding
	Top       key.Binding
	AllAlerts key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j", "scroll down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "b"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", " "),
			key.WithHelp("pgdn", "page down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "top"),
		),
		AllAlerts: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "all alerts"),
		),
	}
}

// Model represents the reports tab state.
type Model struct {
	state     *app.State
	table     table.Model
	viewport  viewport.Model
	spinner   components.LoadingSpinner
	keys      keyMap
	width     int
	height    int
	allAlerts bool
}

// New creates a new reports model.
func New(state *app.State) *Model {
	t := table.New(
		table.WithColumns(projectionColumns()),
		table.WithFocused(false),
		table.WithHeight(4),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Subtle).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.Primary)
	s.Selected = s.Cell
	t.SetStyles(s)

	return &Model{
		state:    state,
		table:    t,
		viewport: viewport.New(0, 0),
		spinner:  components.NewSpinner("Building report..."),
		keys:     defaultKeyMap(),
	}
}

func projectionColumns() []table.Column {
	return []table.Column{
		{Title: "Account", Width: 14},
		{Title: "Usage", Width: 8},
		{Title: "Rate/day", Width: 9},
		{Title: "Days left", Width: 10},
		{Title: "Depletes", Width: 13},
		{Title: "Resets", Width: 13},
		{Title: "Balance", Width: 8},
		{Title: "Band", Width: 9},
	}
}

// Init initializes the reports tab.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Init()
}

// Update handles messages for the reports tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Up):
			m.viewport.ScrollUp(1)
		case key.Matches(msg, m.keys.Down):
			m.viewport.ScrollDown(1)
		case key.Matches(msg, m.keys.PageUp):
			m.viewport.PageUp()
		case key.Matches(msg, m.keys.PageDown):
			m.viewport.PageDown()
		case key.Matches(msg, m.keys.Top):
			m.viewport.GotoTop()
		case key.Matches(msg, m.keys.AllAlerts):
			m.allAlerts = !m.allAlerts
		}

	case app.StateUpdatedMsg:
		m.updateTableData()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// SetSize sets the available size for the tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
}

// ShortHelp returns key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Down, m.keys.Up, m.keys.AllAlerts}
}

// FullHelp returns key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.Down, m.keys.Up, m.keys.PageDown, m.keys.PageUp},
		{m.keys.Top, m.keys.AllAlerts},
	}
}
