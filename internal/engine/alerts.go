package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/j-veylop/usage-ledger-tui/internal/models"
)

// Alert thresholds on the 0-100 scale.
const (
	nearlyDepletedAt = 90
	criticalZoneAt   = 75
	allHighAt        = 70
	resetSoonHours   = 24
)

// BuildAlerts evaluates the alert rules for every account. projections must
// hold one entry per account, as returned by ProjectAll. When nothing is
// wrong a single all-clear alert is returned.
func BuildAlerts(accounts []models.Account, projections []models.Projection, capacity float64, now time.Time) []models.Alert {
	byID := make(map[int]models.Projection, len(projections))
	for _, p := range projections {
		byID[p.AccountID] = p
	}

	var alerts []models.Alert
	allHigh := len(accounts) > 0

	for _, a := range accounts {
		name := a.DisplayName()
		u := Normalize(a.Usage, capacity)
		if u < allHighAt {
			allHigh = false
		}

		switch {
		case u >= nearlyDepletedAt:
			alerts = append(alerts, models.Alert{
				Kind:        models.AlertNearlyDepleted,
				Level:       models.SeverityDanger,
				AccountID:   a.ID,
				Title:       name + " is nearly depleted",
				Description: fmt.Sprintf("Current usage: %.0f%%. Consider switching to another account.", u),
			})
		case u >= criticalZoneAt:
			alerts = append(alerts, models.Alert{
				Kind:        models.AlertCriticalZone,
				Level:       models.SeverityWarning,
				AccountID:   a.ID,
				Title:       name + " is in the critical zone",
				Description: fmt.Sprintf("Current usage: %.0f%%. %.0f%% of capacity left.", u, 100-u),
			})
		}

		if a.NeedsAttention {
			alerts = append(alerts, models.Alert{
				Kind:        models.AlertNeedsResetDate,
				Level:       models.SeverityWarning,
				AccountID:   a.ID,
				Title:       name + " needs a new reset date",
				Description: "The automatic reset fired. Enter the next reset date.",
			})
		}

		if !a.HasResetDate() {
			continue
		}

		if p, ok := byID[a.ID]; ok && p.WillDepleteBeforeReset {
			alerts = append(alerts, models.Alert{
				Kind:      models.AlertDepleteEarly,
				Level:     models.SeverityWarning,
				AccountID: a.ID,
				Title:     name + " will run out before the reset",
				Description: fmt.Sprintf("At the current pace it runs out in %d days. Reset in %d days.",
					int(math.Ceil(p.DaysRemaining)), int(math.Ceil(p.DaysToReset))),
			})
		}

		hours := a.ResetDate.Sub(now).Hours()
		if hours > 0 && hours < resetSoonHours {
			alerts = append(alerts, models.Alert{
				Kind:        models.AlertResetSoon,
				Level:       models.SeverityInfo,
				AccountID:   a.ID,
				Title:       name + " resets soon",
				Description: fmt.Sprintf("Reset in %d hours. Current usage: %.0f%%", int(math.Ceil(hours)), u),
			})
		}
	}

	if allHigh {
		alerts = append(alerts, models.Alert{
			Kind:        models.AlertAllHigh,
			Level:       models.SeverityDanger,
			Title:       "Every account is heavily used",
			Description: "Consider slowing down or waiting for the resets.",
		})
	}

	if len(alerts) == 0 {
		alerts = append(alerts, models.Alert{
			Kind:        models.AlertAllClear,
			Level:       models.SeverityOK,
			Title:       "All good",
			Description: "No pending alerts. Usage is balanced.",
		})
	}
	return alerts
}
