// Package models defines data structures and domain types.
package models

import (
	"fmt"
	"time"
)

// DefaultAccountCount is the number of tracked accounts.
const DefaultAccountCount = 3

// ResetState is the automatic reset state of an account.
type ResetState int

const (
	// ResetNormal means the account has a usable reset date.
	ResetNormal ResetState = iota
	// ResetAwaitingDate means an automatic reset fired and a new reset date
	// has not been accepted yet.
	ResetAwaitingDate
)

// String returns the display name for a reset state.
func (s ResetState) String() string {
	switch s {
	case ResetNormal:
		return "normal"
	case ResetAwaitingDate:
		return "awaiting reset date"
	default:
		return "unknown"
	}
}

// Account is the live state of one tracked account.
type Account struct {
	ResetDate      *time.Time `json:"reset_date,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
	Name           string     `json:"-"`
	ID             int        `json:"account_number"`
	Usage          float64    `json:"usage_percent"`
	NeedsAttention bool       `json:"needs_update"`
}

// DefaultAccountName returns the label used when no name has been set.
func DefaultAccountName(id int) string {
	return fmt.Sprintf("Account %d", id)
}

// NewAccount returns an account with default values.
func NewAccount(id int) Account {
	return Account{ID: id, Name: DefaultAccountName(id)}
}

// DefaultAccounts returns accounts 1..n with default values.
func DefaultAccounts(n int) []Account {
	accounts := make([]Account, 0, n)
	for id := 1; id <= n; id++ {
		accounts = append(accounts, NewAccount(id))
	}
	return accounts
}

// DisplayName returns the account name, falling back to the default label.
func (a *Account) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return DefaultAccountName(a.ID)
}

// HasResetDate reports whether a reset date is set.
func (a *Account) HasResetDate() bool {
	return a.ResetDate != nil && !a.ResetDate.IsZero()
}

// ResetState derives the automatic reset state from the attention flag.
func (a *Account) ResetState() ResetState {
	if a.NeedsAttention {
		return ResetAwaitingDate
	}
	return ResetNormal
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() Account {
	clone := *a
	if a.ResetDate != nil {
		t := *a.ResetDate
		clone.ResetDate = &t
	}
	return clone
}

// CloneAccounts deep copies a slice of accounts.
func CloneAccounts(accounts []Account) []Account {
	if accounts == nil {
		return nil
	}
	out := make([]Account, len(accounts))
	for i := range accounts {
		out[i] = accounts[i].Clone()
	}
	return out
}

// AccountPatch is a partial update applied by SaveAccount.
// Nil fields are left untouched.
type AccountPatch struct {
	Usage          *float64
	ResetDate      *time.Time
	NeedsAttention *bool
	ClearResetDate bool
}

// IsEmpty reports whether the patch changes nothing.
func (p AccountPatch) IsEmpty() bool {
	return p.Usage == nil && p.ResetDate == nil && p.NeedsAttention == nil && !p.ClearResetDate
}

// Apply writes the patch onto an account.
func (p AccountPatch) Apply(a *Account) {
	if p.Usage != nil {
		a.Usage = *p.Usage
	}
	if p.ClearResetDate {
		a.ResetDate = nil
	}
	if p.ResetDate != nil {
		t := *p.ResetDate
		a.ResetDate = &t
	}
	if p.NeedsAttention != nil {
		a.NeedsAttention = *p.NeedsAttention
	}
}

// PatchFrom builds a patch that overwrites every persisted field of a.
func PatchFrom(a Account) AccountPatch {
	usage := a.Usage
	attention := a.NeedsAttention
	p := AccountPatch{Usage: &usage, NeedsAttention: &attention}
	if a.HasResetDate() {
		t := *a.ResetDate
		p.ResetDate = &t
	} else {
		p.ClearResetDate = true
	}
	return p
}
