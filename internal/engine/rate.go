package engine

import (
	"time"

	"github.com/j-veylop/usage-ledger-tui/internal/models"
)

const (
	// PeriodDays is the length of a reset cycle.
	PeriodDays = 7

	// DefaultRateWindowDays is the trailing window used for rate estimates.
	DefaultRateWindowDays = 7

	day = 24 * time.Hour
)

// Days converts a duration to fractional days.
func Days(d time.Duration) float64 {
	return d.Hours() / 24
}

// DaysDuration converts fractional days to a duration.
func DaysDuration(days float64) time.Duration {
	return time.Duration(days * float64(day))
}

// EstimateDailyRate returns the consumption rate of an account in
// percentage points per day.
//
// Only samples inside [now-(window+offset), now-offset] are considered; the
// rate is taken between the first and last of them using their actual
// timestamps. Fewer than two samples, or no elapsed time between them,
// yields 0. Drops such as resets never produce a negative rate.
func EstimateDailyRate(history []models.Sample, accountID int, windowDays, offsetDays float64, now time.Time) float64 {
	if len(history) < 2 {
		return 0
	}

	start := now.Add(-DaysDuration(windowDays + offsetDays))
	end := now.Add(-DaysDuration(offsetDays))

	var first, last *models.Sample
	count := 0
	for i := range history {
		ts := history[i].Timestamp
		if ts.Before(start) || ts.After(end) {
			continue
		}
		if first == nil {
			first = &history[i]
		}
		last = &history[i]
		count++
	}

	if count < 2 {
		return 0
	}

	elapsed := Days(last.Timestamp.Sub(first.Timestamp))
	if elapsed <= 0 {
		return 0
	}

	rate := (last.Value(accountID) - first.Value(accountID)) / elapsed
	if rate < 0 {
		return 0
	}
	return rate
}

// FilterRange returns the samples from the last days days. Zero or negative
// days returns the history unchanged.
func FilterRange(history []models.Sample, now time.Time, days int) []models.Sample {
	if days <= 0 {
		return history
	}
	cutoff := now.Add(-time.Duration(days) * day)
	out := make([]models.Sample, 0, len(history))
	for _, s := range history {
		if !s.Timestamp.Before(cutoff) {
			out = append(out, s)
		}
	}
	return out
}

// ShouldAppend reports whether candidate must be written to a history whose
// most recent entry is last. Samples that change nothing are suppressed.
func ShouldAppend(last *models.Sample, candidate models.Sample) bool {
	if last == nil {
		return true
	}
	return !last.SameUsage(candidate)
}
