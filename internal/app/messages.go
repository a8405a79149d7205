package app

import (
	"time"

	"github.com/j-veylop/usage-ledger-tui/internal/models"
	"github.com/j-veylop/usage-ledger-tui/internal/services"
)

// TickMsg is sent periodically to expire notifications.
type TickMsg struct {
	Time time.Time
}

// StateUpdatedMsg carries a new ledger snapshot. It is delivered to every
// tab, not only the active one.
type StateUpdatedMsg struct {
	State  *models.State
	Report models.Report
}

// ServiceEventMsg wraps a service event from the service manager.
type ServiceEventMsg struct {
	Event services.ServiceEvent
}

// SubscriptionEventMsg is the callback wrapper for service subscription.
type SubscriptionEventMsg struct {
	Channel chan services.ServiceEvent
}

// Action names a user-triggered ledger mutation.
type Action string

const (
	ActionSetUsage       Action = "set usage"
	ActionSetResetDate   Action = "set reset date"
	ActionSetName        Action = "rename"
	ActionToggleCapacity Action = "toggle capacity"
	ActionSave           Action = "save"
	ActionClearHistory   Action = "clear history"
	ActionCheckResets    Action = "check resets"
)

// ActionResultMsg reports the outcome of an Action.
type ActionResultMsg struct {
	Err     error
	Action  Action
	Message string
}

// AddNotificationMsg requests adding a new notification.
type AddNotificationMsg struct {
	Message  string
	Type     NotificationType
	Duration time.Duration
}

// RemoveNotificationMsg requests removal of a notification.
type RemoveNotificationMsg struct {
	ID string
}

// ClearExpiredNotificationsMsg triggers clearing of expired notifications.
type ClearExpiredNotificationsMsg struct{}

// ErrorMsg represents a general error.
type ErrorMsg struct {
	Error   error
	Context string
}

// TabSwitchMsg requests switching to a specific tab.
type TabSwitchMsg struct {
	Tab TabID
}

// ToggleHelpMsg toggles the help display.
type ToggleHelpMsg struct{}

// SelectedAccountChangedMsg signals that the selected account in the UI has changed.
type SelectedAccountChangedMsg struct {
	Index     int
	AccountID int
}
