package models

import "time"

// LocalUserID is used when no session is present.
const LocalUserID = "local"

// SyncStatus mirrors the persistence indicator shown to the user.
type SyncStatus string

const (
	SyncSynced  SyncStatus = "synced"
	SyncSyncing SyncStatus = "syncing"
	SyncError   SyncStatus = "error"
)

// User is the signed-in user.
type User struct {
	SignedInAt  time.Time `json:"signed_in_at"`
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
}

// Name returns the best label for the user.
func (u *User) Name() string {
	if u == nil {
		return "local"
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.Email != "" {
		return u.Email
	}
	return u.ID
}

// State is the complete application state the engine computes against.
type State struct {
	LastSync   time.Time
	User       *User
	Settings   Settings
	SyncStatus SyncStatus
	LastError  string
	Accounts   []Account
	History    []Sample
}

// NewState returns a state with n default accounts and default settings.
func NewState(n int) *State {
	return &State{
		Accounts:   DefaultAccounts(n),
		Settings:   DefaultSettings(),
		SyncStatus: SyncSynced,
	}
}

// UserID returns the id of the signed-in user or LocalUserID.
func (s *State) UserID() string {
	if s.User == nil || s.User.ID == "" {
		return LocalUserID
	}
	return s.User.ID
}

// Capacity returns the usage ceiling for the current settings.
func (s *State) Capacity() float64 {
	return s.Settings.Capacity()
}

// Account returns the account with the given id, or nil.
func (s *State) Account(id int) *Account {
	for i := range s.Accounts {
		if s.Accounts[i].ID == id {
			return &s.Accounts[i]
		}
	}
	return nil
}

// AccountIDs returns the ids of all accounts in order.
func (s *State) AccountIDs() []int {
	ids := make([]int, len(s.Accounts))
	for i, a := range s.Accounts {
		ids[i] = a.ID
	}
	return ids
}

// ApplyNames copies display names from settings onto the accounts.
func (s *State) ApplyNames() {
	for i := range s.Accounts {
		s.Accounts[i].Name = s.Settings.NameFor(s.Accounts[i].ID)
	}
}

// LastSample returns the most recent stored sample.
func (s *State) LastSample() (Sample, bool) {
	if len(s.History) == 0 {
		return Sample{}, false
	}
	return s.History[len(s.History)-1], true
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	clone := *s
	if s.User != nil {
		u := *s.User
		clone.User = &u
	}
	clone.Settings = s.Settings.Clone()
	clone.Accounts = CloneAccounts(s.Accounts)
	clone.History = CloneSamples(s.History)
	return &clone
}
