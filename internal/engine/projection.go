package engine

import (
	"math"
	"time"

	"github.com/j-veylop/usage-ledger-tui/internal/models"
)

// Balance band thresholds, in percentage points.
const (
	nominalBalance = 10
	cautionBalance = 20
)

// Normalize expresses a usage value as a percentage of capacity, so that
// doubled-capacity accounts are compared on the same 0-100 scale.
func Normalize(usage, capacity float64) float64 {
	if capacity <= 0 {
		return usage
	}
	return usage * 100 / capacity
}

// DaysRemaining returns the days until usage reaches capacity at rate.
// It is +Inf when the rate is zero and 0 when capacity is already reached.
func DaysRemaining(usage, rate, capacity float64) float64 {
	if usage >= capacity {
		return 0
	}
	if rate <= 0 {
		return math.Inf(1)
	}
	return (capacity - usage) / rate
}

// DepletionDate returns when usage reaches capacity at rate, or nil when it
// never does at the current pace. An account already at capacity is
// depleted now.
func DepletionDate(usage, rate, capacity float64, now time.Time) *time.Time {
	days := DaysRemaining(usage, rate, capacity)
	if math.IsInf(days, 1) {
		return nil
	}
	t := now.Add(DaysDuration(days))
	return &t
}

// DaysToReset returns the fractional days until resetDate. It is negative
// once the date has passed.
func DaysToReset(resetDate, now time.Time) float64 {
	return Days(resetDate.Sub(now))
}

// CycleStart returns the start of the cycle ending at resetDate.
func CycleStart(resetDate time.Time) time.Time {
	return resetDate.Add(-PeriodDays * day)
}

// TimeBalance compares usage (on a 0-100 scale) with the share of the
// current cycle that has elapsed. A positive balance means usage is ahead
// of time.
func TimeBalance(usage float64, resetDate, now time.Time) (balance, elapsedPercent float64) {
	start := CycleStart(resetDate)
	total := resetDate.Sub(start)
	elapsedPercent = float64(now.Sub(start)) / float64(total) * 100
	elapsedPercent = clamp(elapsedPercent, 0, 100)
	return usage - elapsedPercent, elapsedPercent
}

// BandFor classifies a time balance.
func BandFor(balance float64) models.Band {
	switch abs := math.Abs(balance); {
	case abs <= nominalBalance:
		return models.BandNominal
	case abs <= cautionBalance:
		return models.BandCaution
	default:
		return models.BandCritical
	}
}

// WillDepleteBeforeReset reports 0 < daysToDeplete < daysToReset.
func WillDepleteBeforeReset(daysToDeplete, daysToReset float64) bool {
	return daysToDeplete > 0 && !math.IsInf(daysToDeplete, 1) && daysToDeplete < daysToReset
}

// Project builds the forecast for an account at the given rate.
func Project(acc models.Account, rate, capacity float64, now time.Time) models.Projection {
	p := models.Projection{
		AccountID:     acc.ID,
		Usage:         acc.Usage,
		Capacity:      capacity,
		Rate:          rate,
		DaysRemaining: DaysRemaining(acc.Usage, rate, capacity),
		DepletionDate: DepletionDate(acc.Usage, rate, capacity, now),
		Depleted:      acc.Usage >= capacity,
	}

	if !acc.HasResetDate() {
		return p
	}

	reset := *acc.ResetDate
	p.ResetDate = &reset
	p.DaysToReset = DaysToReset(reset, now)
	p.TimeBalance, p.ElapsedPercent = TimeBalance(Normalize(acc.Usage, capacity), reset, now)
	p.Band = BandFor(p.TimeBalance)
	p.WillDepleteBeforeReset = WillDepleteBeforeReset(p.DaysRemaining, p.DaysToReset)
	return p
}

// ProjectAll projects every account of the state using the rate over
// windowDays.
func ProjectAll(st *models.State, windowDays float64, now time.Time) []models.Projection {
	capacity := st.Capacity()
	out := make([]models.Projection, 0, len(st.Accounts))
	for _, acc := range st.Accounts {
		rate := EstimateDailyRate(st.History, acc.ID, windowDays, 0, now)
		out = append(out, Project(acc, rate, capacity, now))
	}
	return out
}

// DepletionStatus grades the days left before depletion.
func DepletionStatus(days float64) models.Severity {
	switch {
	case days < 2:
		return models.SeverityDanger
	case days < 4:
		return models.SeverityWarning
	default:
		return models.SeverityOK
	}
}

// RateStatus grades a daily consumption rate.
func RateStatus(rate float64) models.Severity {
	switch {
	case rate > 15:
		return models.SeverityDanger
	case rate > 10:
		return models.SeverityWarning
	default:
		return models.SeverityOK
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
