// Package history provides the history tab for browsing recorded samples.
package history

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/usage-ledger-tui/internal/app"
	"github.com/j-veylop/usage-ledger-tui/internal/engine"
	"github.com/j-veylop/usage-ledger-tui/internal/models"
)

// keyMap defines the key bindings specific to the history tab.
type keyMap struct {
	ToggleRange key.Binding
	Focus       key.Binding
	Clear       key.Binding
	Confirm     key.Binding
	Cancel      key.Binding
	Up          key.Binding
	Down        key.Binding
}

// defaultKeyMap returns the default key bindings for the history tab.
func defaultKeyMap() keyMap {
	return keyMap{
		ToggleRange: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "toggle time range"),
		),
		Focus: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "selected account only"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear history"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("n", "esc", "q"),
			key.WithHelp("n", "cancel"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
	}
}

// view holds the samples of the current range and what is derived from them.
type view struct {
	samples []models.Sample
	trend   []models.DailyPoint
	summary models.HistorySummary
	ids     []int
}

// Model represents the history tab state.
type Model struct {
	state        *app.State
	commands     *app.Commands
	now          func() time.Time
	keys         keyMap
	viewport     viewport.Model
	timeRange    models.TimeRange
	data         view
	width        int
	height       int
	focused      bool
	confirmClear bool
}

// New creates a new history model.
func New(state *app.State, commands *app.Commands) *Model {
	m := &Model{
		state:     state,
		commands:  commands,
		now:       time.Now,
		keys:      defaultKeyMap(),
		viewport:  viewport.New(0, 0),
		timeRange: models.TimeRange30Days,
	}
	m.refresh()
	return m
}

// Init initializes the history tab.
func (m *Model) Init() tea.Cmd {
	return nil
}

// CapturesInput reports whether the clear confirmation is open.
func (m *Model) CapturesInput() bool {
	return m.confirmClear
}

// Update handles messages for the history tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg := msg.(type) {
	case app.StateUpdatedMsg:
		m.refresh()

	case app.TabSwitchMsg:
		if msg.Tab == app.TabHistory {
			m.refresh()
		}

	case tea.KeyMsg:
		return m, m.handleKeyMsg(msg)
	}

	return m, nil
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	if m.confirmClear {
		switch {
		case key.Matches(msg, m.keys.Confirm):
			m.confirmClear = false
			return m.commands.ClearHistory()
		case key.Matches(msg, m.keys.Cancel):
			m.confirmClear = false
		}
		return nil
	}

	switch {
	case key.Matches(msg, m.keys.ToggleRange):
		m.timeRange = m.timeRange.Next()
		m.refresh()
	case key.Matches(msg, m.keys.Focus):
		m.focused = !m.focused
		m.refresh()
	case key.Matches(msg, m.keys.Clear):
		if len(m.state.History()) == 0 {
			return m.commands.NotifyInfo("History is already empty")
		}
		m.confirmClear = true
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}
	return nil
}

// refresh recomputes the samples of the current range from the shared state.
func (m *Model) refresh() {
	now := m.now()
	history := m.state.History()

	ids := make([]int, 0, 3)
	if acc := m.state.SelectedAccount(); m.focused && acc != nil {
		ids = append(ids, acc.ID)
	} else {
		for _, a := range m.state.Accounts() {
			ids = append(ids, a.ID)
		}
	}

	days := m.timeRange.Days()
	samples := engine.FilterRange(history, now, days)

	trendDays := days
	if trendDays == 0 && len(samples) > 0 {
		trendDays = int(now.Sub(samples[0].Timestamp).Hours()/24) + 1
	}

	m.data = view{
		samples: samples,
		trend:   engine.DailyTrend(samples, ids, now, trendDays),
		summary: engine.SummarizeHistory(samples, ids),
		ids:     ids,
	}
}

// SetSize sets the available size for the history tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	if m.confirmClear {
		return []key.Binding{m.keys.Confirm, m.keys.Cancel}
	}
	return []key.Binding{
		m.keys.ToggleRange,
		m.keys.Focus,
		m.keys.Clear,
	}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.ToggleRange, m.keys.Focus, m.keys.Clear},
		{m.keys.Up, m.keys.Down},
	}
}
