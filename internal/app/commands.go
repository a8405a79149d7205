package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/usage-ledger-tui/internal/models"
	"github.com/j-veylop/usage-ledger-tui/internal/services"
)

const (
	// DefaultTickInterval is the default interval between ticks.
	DefaultTickInterval = 2 * time.Second

	// DefaultNotificationDuration is the default duration for notifications.
	DefaultNotificationDuration = 5 * time.Second

	// QuickNotificationDuration is for brief notifications.
	QuickNotificationDuration = 3 * time.Second

	// LongNotificationDuration is for important notifications.
	LongNotificationDuration = 10 * time.Second

	actionTimeout = 10 * time.Second
)

// ErrNoBackend is returned by actions when the UI runs without services.
var ErrNoBackend = errors.New("no ledger backend")

// Actions is the ledger surface the UI mutates through. *services.Manager
// implements it.
type Actions interface {
	SetUsage(id int, usage float64) error
	SetResetDate(id int, date time.Time) error
	SetName(id int, name string) error
	ToggleCapacity(ctx context.Context) (models.CapacityMode, error)
	SaveNow(ctx context.Context) (bool, error)
	ClearHistory(ctx context.Context) (bool, error)
	CheckResets(ctx context.Context) ([]int, error)
}

var _ Actions = (*services.Manager)(nil)

// tickCmd returns a command that sends a TickMsg after the specified interval.
func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// defaultTickCmd returns a command that sends a TickMsg after the default interval.
func defaultTickCmd() tea.Cmd {
	return tickCmd(DefaultTickInterval)
}

// loadInitialStateCmd delivers the manager's current snapshot.
func loadInitialStateCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		ev := mgr.InitialState()
		return StateUpdatedMsg{State: ev.State, Report: ev.Report}
	}
}

// subscribeToServicesCmd returns a command that subscribes to service events.
func subscribeToServicesCmd(mgr *services.Manager) tea.Cmd {
	ch, _ := mgr.Subscribe()
	return func() tea.Msg {
		return SubscriptionEventMsg{Channel: ch}
	}
}

// waitForServiceEventCmd returns a command that waits for the next service event.
func waitForServiceEventCmd(ch <-chan services.ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return ServiceEventMsg{Event: event}
	}
}

// clearNotificationCmd returns a command that removes a notification after a delay.
func clearNotificationCmd(id string, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(_ time.Time) tea.Msg {
		return RemoveNotificationMsg{ID: id}
	})
}

func actionCmd(action Action, fn func(ctx context.Context) (string, error)) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()

		message, err := fn(ctx)
		return ActionResultMsg{Action: action, Message: message, Err: err}
	}
}

// notifySuccessCmd returns a command that adds a success notification.
func notifySuccessCmd(message string) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{
			Type:     NotificationSuccess,
			Message:  message,
			Duration: DefaultNotificationDuration,
		}
	}
}

// notifyErrorCmd returns a command that adds an error notification.
func notifyErrorCmd(message string) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{
			Type:     NotificationError,
			Message:  message,
			Duration: LongNotificationDuration,
		}
	}
}

// notifyWarningCmd returns a command that adds a warning notification.
func notifyWarningCmd(message string) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{
			Type:     NotificationWarning,
			Message:  message,
			Duration: DefaultNotificationDuration,
		}
	}
}

// notifyInfoCmd returns a command that adds an info notification.
func notifyInfoCmd(message string) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{
			Type:     NotificationInfo,
			Message:  message,
			Duration: QuickNotificationDuration,
		}
	}
}

// Commands provides the tabs with commands bound to the ledger.
type Commands struct {
	actions Actions
}

// NewCommands creates a new Commands instance. A nil Actions yields
// commands that fail with ErrNoBackend.
func NewCommands(actions Actions) *Commands {
	return &Commands{actions: actions}
}

func (c *Commands) run(action Action, fn func(ctx context.Context, a Actions) (string, error)) tea.Cmd {
	return actionCmd(action, func(ctx context.Context) (string, error) {
		if c.actions == nil {
			return "", ErrNoBackend
		}
		return fn(ctx, c.actions)
	})
}

// SetUsage records a usage value for an account.
func (c *Commands) SetUsage(id int, usage float64) tea.Cmd {
	return c.run(ActionSetUsage, func(_ context.Context, a Actions) (string, error) {
		if err := a.SetUsage(id, usage); err != nil {
			return "", err
		}
		return fmt.Sprintf("Account %d usage set to %.1f%%", id, usage), nil
	})
}

// SetResetDate records the next reset of an account.
func (c *Commands) SetResetDate(id int, date time.Time) tea.Cmd {
	return c.run(ActionSetResetDate, func(_ context.Context, a Actions) (string, error) {
		if err := a.SetResetDate(id, date); err != nil {
			return "", err
		}
		return fmt.Sprintf("Account %d resets %s", id, date.Format("Jan 2 15:04")), nil
	})
}

// SetName renames an account. An empty name restores the default.
func (c *Commands) SetName(id int, name string) tea.Cmd {
	return c.run(ActionSetName, func(_ context.Context, a Actions) (string, error) {
		if err := a.SetName(id, name); err != nil {
			return "", err
		}
		if name == "" {
			return fmt.Sprintf("Account %d name reset", id), nil
		}
		return fmt.Sprintf("Account %d renamed to %s", id, name), nil
	})
}

// ToggleCapacity switches between the normal and doubled ceiling.
func (c *Commands) ToggleCapacity() tea.Cmd {
	return c.run(ActionToggleCapacity, func(ctx context.Context, a Actions) (string, error) {
		mode, err := a.ToggleCapacity(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Capacity %s (%.0f%%)", mode.Label(), mode.Cap()), nil
	})
}

// SaveNow flushes pending edits.
func (c *Commands) SaveNow() tea.Cmd {
	return c.run(ActionSave, func(ctx context.Context, a Actions) (string, error) {
		appended, err := a.SaveNow(ctx)
		if err != nil {
			return "", err
		}
		if appended {
			return "Saved, history sample recorded", nil
		}
		return "Saved", nil
	})
}

// ClearHistory deletes every stored sample.
func (c *Commands) ClearHistory() tea.Cmd {
	return c.run(ActionClearHistory, func(ctx context.Context, a Actions) (string, error) {
		cleared, err := a.ClearHistory(ctx)
		if err != nil {
			return "", err
		}
		if !cleared {
			return "History already empty", nil
		}
		return "History cleared", nil
	})
}

// CheckResets applies automatic resets that are due.
func (c *Commands) CheckResets() tea.Cmd {
	return c.run(ActionCheckResets, func(ctx context.Context, a Actions) (string, error) {
		ids, err := a.CheckResets(ctx)
		if err != nil {
			return "", err
		}
		if len(ids) == 0 {
			return "No resets due", nil
		}
		return fmt.Sprintf("Reset %d account(s)", len(ids)), nil
	})
}

// NotifySuccess returns a command that adds a success notification.
func (c *Commands) NotifySuccess(message string) tea.Cmd {
	return notifySuccessCmd(message)
}

// NotifyError returns a command that adds an error notification.
func (c *Commands) NotifyError(message string) tea.Cmd {
	return notifyErrorCmd(message)
}

// NotifyWarning returns a command that adds a warning notification.
func (c *Commands) NotifyWarning(message string) tea.Cmd {
	return notifyWarningCmd(message)
}

// NotifyInfo returns a command that adds an info notification.
func (c *Commands) NotifyInfo(message string) tea.Cmd {
	return notifyInfoCmd(message)
}
