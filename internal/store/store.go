// Package store declares the collaborators the ledger depends on: a
// persistence backend with a change feed and an auth/session provider.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/j-veylop/usage-ledger-tui/internal/models"
)

// ErrNotFound is returned by backends when a record is missing. Store
// methods that return a pointer map it to (nil, nil).
var ErrNotFound = errors.New("store: record not found")

// HistoryQuery filters GetHistory.
type HistoryQuery struct {
	// Since drops samples strictly before it. Zero means no bound.
	Since time.Time
	// Limit caps the number of samples. With Descending the newest are
	// kept, otherwise the oldest.
	Limit int
	// Descending returns the newest sample first.
	Descending bool
}

// Apply filters samples, which must be in ascending order, and returns
// them in the requested order.
func (q HistoryQuery) Apply(samples []models.Sample) []models.Sample {
	out := make([]models.Sample, 0, len(samples))
	for _, s := range samples {
		if !q.Since.IsZero() && s.Timestamp.Before(q.Since) {
			continue
		}
		out = append(out, s)
	}
	if q.Descending {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// Store persists account records, settings and the append-only usage
// history of a user, and announces every write on a change feed.
type Store interface {
	GetAccounts(ctx context.Context, userID string) ([]models.Account, error)
	// GetAccount returns nil, nil when the account has no record.
	GetAccount(ctx context.Context, userID string, id int) (*models.Account, error)
	// SaveAccount upserts the fields set in patch.
	SaveAccount(ctx context.Context, userID string, id int, patch models.AccountPatch) error
	SaveAllAccounts(ctx context.Context, userID string, accounts []models.Account) error

	// GetSettings returns nil, nil when the user has no settings yet.
	GetSettings(ctx context.Context, userID string) (*models.Settings, error)
	SaveSettings(ctx context.Context, userID string, settings models.Settings) error

	GetHistory(ctx context.Context, userID string, q HistoryQuery) ([]models.Sample, error)
	// SaveHistoryPoint appends a sample and sets its ID.
	SaveHistoryPoint(ctx context.Context, userID string, sample *models.Sample) error
	// ClearHistory deletes every sample of the user and reports whether
	// anything was removed.
	ClearHistory(ctx context.Context, userID string) (bool, error)
	CountHistory(ctx context.Context, userID string) (int, error)

	// InitializeUserData creates default accounts and settings for a user
	// that has none. Existing records are left alone.
	InitializeUserData(ctx context.Context, userID string, accounts int) error

	Feed
	Close() error
}

// Feed delivers change notifications for a table. The returned function
// cancels the subscription and closes the channel.
type Feed interface {
	Subscribe(table models.Table) (<-chan models.ChangeEvent, func())
}

// AuthProvider resolves the signed-in user. No session is reported as
// nil, nil.
type AuthProvider interface {
	CurrentUser(ctx context.Context) (*models.User, error)
}

// UserID returns the id of u, or the local user id when u is nil.
func UserID(u *models.User) string {
	if u == nil || u.ID == "" {
		return models.LocalUserID
	}
	return u.ID
}
