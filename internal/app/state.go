// Package app provides the main Bubble Tea application model and state management.
package app

import (
	"sync"
	"time"

	"github.com/j-veylop/usage-ledger-tui/internal/models"
)

// NotificationType defines the type of notification.
type NotificationType int

const (
	// NotificationSuccess represents a success notification.
	NotificationSuccess NotificationType = iota
	// NotificationError represents an error notification.
	NotificationError
	// NotificationWarning represents a warning notification.
	NotificationWarning
	// NotificationInfo represents an informational notification.
	NotificationInfo
	// NotificationLoading represents a loading notification with spinner.
	NotificationLoading
)

const (
	// LoadingNotificationID is the fixed ID for loading notifications.
	LoadingNotificationID = "__loading__"

	maxNotifications = 10
)

// String returns the string representation of a NotificationType.
func (n NotificationType) String() string {
	switch n {
	case NotificationSuccess:
		return "success"
	case NotificationError:
		return "error"
	case NotificationWarning:
		return "warning"
	case NotificationInfo:
		return "info"
	case NotificationLoading:
		return "loading"
	default:
		return "unknown"
	}
}

// Notification represents a user-facing notification message.
type Notification struct {
	CreatedAt time.Time
	ID        string
	Message   string
	Type      NotificationType
	Duration  time.Duration
}

// IsExpired returns true if the notification has expired.
func (n *Notification) IsExpired() bool {
	if n.Duration <= 0 {
		return false
	}
	return time.Since(n.CreatedAt) > n.Duration
}

// State is the shared view state read by every tab. The ledger snapshot and
// its report are replaced wholesale on each update from the services.
type State struct {
	mu sync.RWMutex

	ledger      *models.State
	report      models.Report
	lastUpdated time.Time

	selected      int
	initial       bool
	saving        bool
	notifications []Notification
	seq           int
}

// NewState returns an empty state that is still waiting for its first
// snapshot.
func NewState() *State {
	return &State{
		initial:       true,
		notifications: make([]Notification, 0),
	}
}

// SetLedger replaces the snapshot and report.
func (s *State) SetLedger(st *models.State, report models.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ledger = st
	s.report = report
	s.initial = false
	s.lastUpdated = time.Now()
	if st != nil && s.selected >= len(st.Accounts) {
		s.selected = max(len(st.Accounts)-1, 0)
	}
}

// Ledger returns the current snapshot, or nil before the first update.
// Callers must not modify it.
func (s *State) Ledger() *models.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger
}

// Report returns the report computed with the current snapshot.
func (s *State) Report() models.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report
}

// Accounts returns a copy of the accounts of the current snapshot.
func (s *State) Accounts() []models.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ledger == nil {
		return nil
	}
	return models.CloneAccounts(s.ledger.Accounts)
}

// History returns the samples of the current snapshot.
func (s *State) History() []models.Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ledger == nil {
		return nil
	}
	return s.ledger.History
}

// Capacity returns the usage ceiling, 100 before the first snapshot.
func (s *State) Capacity() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ledger == nil {
		return models.CapacityNormal.Cap()
	}
	return s.ledger.Capacity()
}

// SyncStatus returns the persistence status of the current snapshot.
func (s *State) SyncStatus() (models.SyncStatus, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ledger == nil {
		return models.SyncSynced, ""
	}
	return s.ledger.SyncStatus, s.ledger.LastError
}

// IsInitialLoading returns true until the first snapshot arrives.
func (s *State) IsInitialLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initial
}

// SetSaving marks a user-triggered save as in flight.
func (s *State) SetSaving(saving bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = saving
}

// IsSaving reports whether a save is in flight.
func (s *State) IsSaving() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saving
}

// LastUpdated returns the time of the last snapshot.
func (s *State) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdated
}

// Selected returns the index of the selected account.
func (s *State) Selected() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// SelectedAccount returns the selected account, or nil before the first
// snapshot.
func (s *State) SelectedAccount() *models.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ledger == nil || s.selected >= len(s.ledger.Accounts) {
		return nil
	}
	acc := s.ledger.Accounts[s.selected].Clone()
	return &acc
}

// SetSelected moves the selection, wrapping around the account list.
func (s *State) SetSelected(idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	if s.ledger != nil {
		n = len(s.ledger.Accounts)
	}
	if n == 0 {
		s.selected = 0
		return
	}
	s.selected = ((idx % n) + n) % n
}

// AddNotification adds a new notification and returns its ID.
func (s *State) AddNotification(notifType NotificationType, message string, duration time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	id := time.Now().Format("20060102150405") + "-" + string(rune('A'+s.seq%26))

	s.notifications = append(s.notifications, Notification{
		ID:        id,
		Type:      notifType,
		Message:   message,
		CreatedAt: time.Now(),
		Duration:  duration,
	})

	if len(s.notifications) > maxNotifications {
		s.notifications = s.notifications[len(s.notifications)-maxNotifications:]
	}

	return id
}

// RemoveNotification removes a notification by ID.
func (s *State) RemoveNotification(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == id {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			return
		}
	}
}

// ClearExpiredNotifications removes all expired notifications.
func (s *State) ClearExpiredNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := make([]Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if !n.IsExpired() {
			active = append(active, n)
		}
	}
	s.notifications = active
}

// GetNotifications returns a copy of all active notifications.
func (s *State) GetNotifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if !n.IsExpired() {
			active = append(active, n)
		}
	}
	return active
}

// SetLoadingNotification sets a loading notification message.
func (s *State) SetLoadingNotification(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == LoadingNotificationID {
			s.notifications[i].Message = message
			return
		}
	}

	s.notifications = append(s.notifications, Notification{
		ID:        LoadingNotificationID,
		Type:      NotificationLoading,
		Message:   message,
		CreatedAt: time.Now(),
	})
}

// ClearLoadingNotification removes the loading notification.
func (s *State) ClearLoadingNotification() {
	s.RemoveNotification(LoadingNotificationID)
}
