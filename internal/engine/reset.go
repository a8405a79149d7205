package engine

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/j-veylop/usage-ledger-tui/internal/models"
)

// Validation errors returned at the input boundary.
var (
	ErrUsageOutOfRange    = errors.New("usage out of range")
	ErrResetDateNotFuture = errors.New("reset date must be in the future")
	ErrUnknownAccount     = errors.New("unknown account")
)

// ValidateUsage checks that usage lies in [0, capacity].
func ValidateUsage(usage, capacity float64) error {
	if math.IsNaN(usage) || usage < 0 || usage > capacity {
		return fmt.Errorf("%w: %v is outside [0, %v]", ErrUsageOutOfRange, usage, capacity)
	}
	return nil
}

// ApplyAutoReset fires the automatic reset for every account whose reset
// date has been reached. The usage drops to zero and the account is flagged
// until a new reset date is accepted; the stale reset date is kept.
// Accounts that are already flagged are skipped, so repeated checks are
// no-ops. It returns the ids of the accounts that changed.
func ApplyAutoReset(accounts []models.Account, now time.Time) []int {
	var changed []int
	for i := range accounts {
		a := &accounts[i]
		if !a.HasResetDate() || a.NeedsAttention {
			continue
		}
		if now.Before(*a.ResetDate) {
			continue
		}
		a.Usage = 0
		a.NeedsAttention = true
		a.UpdatedAt = now
		changed = append(changed, a.ID)
	}
	return changed
}

// SetResetDate accepts a new reset date for an account. Dates that are not
// strictly after now are rejected without touching the account. The
// attention flag is only cleared when the account usage is zero; with usage
// left over the flag stays set.
func SetResetDate(acc *models.Account, date, now time.Time) error {
	if !date.After(now) {
		return fmt.Errorf("%w: %s", ErrResetDateNotFuture, date.Format(time.RFC3339))
	}
	d := date
	acc.ResetDate = &d
	if acc.NeedsAttention && acc.Usage == 0 {
		acc.NeedsAttention = false
	}
	acc.UpdatedAt = now
	return nil
}

// SetUsage validates and stores a new usage value.
func SetUsage(acc *models.Account, usage, capacity float64, now time.Time) error {
	if err := ValidateUsage(usage, capacity); err != nil {
		return err
	}
	acc.Usage = usage
	acc.UpdatedAt = now
	return nil
}

// NextResetDate returns the first reset date after now that lies a whole
// number of cycles after last.
func NextResetDate(last, now time.Time) time.Time {
	next := last
	for !next.After(now) {
		next = next.Add(PeriodDays * day)
	}
	return next
}
