// Package dashboard provides the account overview and editing tab.
package dashboard

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/usage-ledger-tui/internal/app"
	"github.com/j-veylop/usage-ledger-tui/internal/engine"
	"github.com/j-veylop/usage-ledger-tui/internal/ui/components"
)

// ResetLayout is the format reset dates are typed in, in local time.
const ResetLayout = "2006-01-02 15:04"

const dateOnlyLayout = "2006-01-02"

// editMode names the field currently being edited.
type editMode int

const (
	editNone editMode = iota
	editUsage
	editResetDate
	editName
)

func (e editMode) prompt() string {
	switch e {
	case editUsage:
		return "Usage %"
	case editResetDate:
		return "Next reset (" + ResetLayout + ")"
	case editName:
		return "Account name"
	default:
		return ""
	}
}

var (
	errEmptyUsage = errors.New("enter a usage value")
	errEmptyDate  = errors.New("enter a reset date")
)

// keyMap defines the key bindings specific to the dashboard tab.
type keyMap struct {
	NextAccount    key.Binding
	PrevAccount    key.Binding
	FirstAccount   key.Binding
	LastAccount    key.Binding
	EditUsage      key.Binding
	EditReset      key.Binding
	Rename         key.Binding
	ToggleCapacity key.Binding
	Save           key.Binding
	CheckResets    key.Binding
	Submit         key.Binding
	Cancel         key.Binding
}

// defaultKeyMap returns the default key bindings for the dashboard tab.
func defaultKeyMap() keyMap {
	return keyMap{
		NextAccount: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j", "next account"),
		),
		PrevAccount: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k", "prev account"),
		),
		FirstAccount: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "first account"),
		),
		LastAccount: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "last account"),
		),
		EditUsage: key.NewBinding(
			key.WithKeys("e", "enter"),
			key.WithHelp("e", "edit usage"),
		),
		EditReset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "set reset date"),
		),
		Rename: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "rename"),
		),
		ToggleCapacity: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "toggle x2"),
		),
		Save: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "save"),
		),
		CheckResets: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "check resets"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "apply"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

// Model represents the dashboard tab state.
type Model struct {
	state    *app.State
	commands *app.Commands
	keys     keyMap
	spinner  components.LoadingSpinner
	viewport viewport.Model
	usageBar components.UsageBar
	input    textinput.Model
	editing  editMode
	editID   int
	width    int
	height   int
}

// New creates a new dashboard model.
func New(state *app.State, commands *app.Commands) *Model {
	ti := textinput.New()
	ti.CharLimit = 32
	ti.Width = 30

	return &Model{
		state:    state,
		commands: commands,
		keys:     defaultKeyMap(),
		spinner:  components.NewSpinner("Loading ledger..."),
		viewport: viewport.New(0, 0),
		usageBar: components.NewUsageBar(40),
		input:    ti,
	}
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Init()
}

// CapturesInput reports whether a field is being edited.
func (m *Model) CapturesInput() bool {
	return m.editing != editNone
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.editing != editNone {
			return m, m.handleEditKey(msg)
		}
		return m, m.handleKeyMsg(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	n := len(m.state.Accounts())
	sel := m.state.Selected()

	switch {
	case key.Matches(msg, m.keys.NextAccount):
		m.state.SetSelected(sel + 1)
	case key.Matches(msg, m.keys.PrevAccount):
		m.state.SetSelected(sel - 1)
	case key.Matches(msg, m.keys.FirstAccount):
		m.state.SetSelected(0)
	case key.Matches(msg, m.keys.LastAccount):
		m.state.SetSelected(n - 1)
	case key.Matches(msg, m.keys.EditUsage):
		return m.startEdit(editUsage)
	case key.Matches(msg, m.keys.EditReset):
		return m.startEdit(editResetDate)
	case key.Matches(msg, m.keys.Rename):
		return m.startEdit(editName)
	case key.Matches(msg, m.keys.ToggleCapacity):
		return m.commands.ToggleCapacity()
	case key.Matches(msg, m.keys.Save):
		m.state.SetSaving(true)
		return m.commands.SaveNow()
	case key.Matches(msg, m.keys.CheckResets):
		return m.commands.CheckResets()
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}
	return nil
}

// startEdit opens the input for the selected account, prefilled with the
// current value.
func (m *Model) startEdit(mode editMode) tea.Cmd {
	acc := m.state.SelectedAccount()
	if acc == nil {
		return nil
	}

	m.editing = mode
	m.editID = acc.ID
	m.input.Prompt = mode.prompt() + ": "

	switch mode {
	case editUsage:
		m.input.Placeholder = fmt.Sprintf("0-%.0f", m.state.Capacity())
		m.input.SetValue(strconv.FormatFloat(acc.Usage, 'f', -1, 64))
	case editResetDate:
		now := time.Now()
		m.input.Placeholder = now.Add(7 * 24 * time.Hour).Format(ResetLayout)
		switch {
		case !acc.HasResetDate():
			m.input.SetValue("")
		case acc.ResetDate.After(now):
			m.input.SetValue(acc.ResetDate.In(time.Local).Format(ResetLayout))
		default:
			// A passed reset date suggests the same slot in the next cycle.
			m.input.SetValue(engine.NextResetDate(*acc.ResetDate, now).In(time.Local).Format(ResetLayout))
		}
	case editName:
		m.input.Placeholder = "empty restores the default"
		m.input.SetValue(acc.Name)
	}

	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) stopEdit() {
	m.editing = editNone
	m.editID = 0
	m.input.Blur()
	m.input.SetValue("")
}

func (m *Model) handleEditKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.stopEdit()
		return nil
	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

// submit parses the input and dispatches the matching ledger action. Parse
// errors keep the input open.
func (m *Model) submit() tea.Cmd {
	value := strings.TrimSpace(m.input.Value())
	id := m.editID

	switch m.editing {
	case editUsage:
		usage, err := ParseUsage(value)
		if err != nil {
			return m.commands.NotifyError(fmt.Sprintf("Invalid usage: %v", err))
		}
		m.stopEdit()
		return m.commands.SetUsage(id, usage)

	case editResetDate:
		date, err := ParseResetDate(value, time.Local)
		if err != nil {
			return m.commands.NotifyError(fmt.Sprintf("Invalid date: %v", err))
		}
		m.stopEdit()
		return m.commands.SetResetDate(id, date)

	case editName:
		m.stopEdit()
		return m.commands.SetName(id, value)
	}

	m.stopEdit()
	return nil
}

// ParseUsage reads a usage percentage. A trailing % is accepted. The range
// is checked by the ledger against the current capacity.
func ParseUsage(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" {
		return 0, errEmptyUsage
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return v, nil
}

// ParseResetDate reads a reset date in ResetLayout or as a bare date
// (midnight) in loc.
func ParseResetDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errEmptyDate
	}
	if t, err := time.ParseInLocation(ResetLayout, s, loc); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(dateOnlyLayout, s, loc); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%q does not match %s", s, ResetLayout)
}

// SetSize sets the available size for the dashboard.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = max(height-m.footerHeight(), 1)
}

func (m *Model) footerHeight() int {
	if m.editing == editNone {
		return 0
	}
	return 3
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	if m.editing != editNone {
		return []key.Binding{m.keys.Submit, m.keys.Cancel}
	}
	return []key.Binding{
		m.keys.NextAccount,
		m.keys.PrevAccount,
		m.keys.EditUsage,
		m.keys.EditReset,
		m.keys.Rename,
		m.keys.ToggleCapacity,
		m.keys.Save,
	}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.NextAccount, m.keys.PrevAccount},
		{m.keys.FirstAccount, m.keys.LastAccount},
		{m.keys.EditUsage, m.keys.EditReset, m.keys.Rename},
		{m.keys.ToggleCapacity, m.keys.Save, m.keys.CheckResets},
	}
}
