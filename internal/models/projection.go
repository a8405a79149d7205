package models

import (
	"math"
	"time"
)

// Band classifies the usage-vs-time balance.
type Band string

const (
	BandNone     Band = ""
	BandNominal  Band = "nominal"
	BandCaution  Band = "caution"
	BandCritical Band = "critical"
)

// Severity is the level attached to alerts and statuses.
type Severity string

const (
	SeverityOK      Severity = "ok"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

// Projection is the forecast for one account.
type Projection struct {
	DepletionDate          *time.Time // nil when the rate is zero
	ResetDate              *time.Time
	Band                   Band // BandNone without a reset date
	AccountID              int
	Usage                  float64
	Capacity               float64
	Rate                   float64 // %/day
	DaysRemaining          float64 // +Inf when it never depletes at the current pace
	DaysToReset            float64
	ElapsedPercent         float64
	TimeBalance            float64 // positive means ahead of the elapsed time
	Depleted               bool
	WillDepleteBeforeReset bool
}

// Unbounded reports whether the account never depletes at the current rate.
func (p Projection) Unbounded() bool {
	return math.IsInf(p.DaysRemaining, 1)
}

// HasReset reports whether the projection includes reset-cycle values.
func (p Projection) HasReset() bool {
	return p.ResetDate != nil
}

// EfficiencyLabel names a composite efficiency band.
type EfficiencyLabel string

const (
	EfficiencyExcellent EfficiencyLabel = "Excellent"
	EfficiencyGood      EfficiencyLabel = "Good"
	EfficiencyAverage   EfficiencyLabel = "Average"
	EfficiencyLow       EfficiencyLabel = "Low"
)

// Scores are the 0-100 efficiency scores.
type Scores struct {
	Label       EfficiencyLabel
	Utilization int
	Balance     int
	Timing      int
	Efficiency  int
}

// Recommendation is the account suggested for the next piece of work.
type Recommendation struct {
	Name      string
	Reasons   []string
	AccountID int
	Score     float64
	Available float64
}

// AlertKind identifies the rule that raised an alert.
type AlertKind string

const (
	AlertNearlyDepleted AlertKind = "nearly_depleted"
	AlertCriticalZone   AlertKind = "critical_zone"
	AlertDepleteEarly   AlertKind = "deplete_before_reset"
	AlertResetSoon      AlertKind = "reset_soon"
	AlertAllHigh        AlertKind = "all_high"
	AlertAllClear       AlertKind = "all_clear"
	AlertNeedsResetDate AlertKind = "needs_reset_date"
)

// Alert is one entry of the alert list.
type Alert struct {
	Kind        AlertKind
	Level       Severity
	Title       string
	Description string
	AccountID   int // 0 for alerts that concern every account
}

// Trend describes whether consumption is speeding up.
type Trend string

const (
	TrendStable       Trend = "stable"
	TrendAccelerating Trend = "accelerating"
	TrendSlowing      Trend = "slowing"
)

// SpeedTrend compares the recent rate with the preceding days.
type SpeedTrend struct {
	Trend         Trend
	AccountID     int
	Recent        float64
	Older         float64
	ChangePercent float64
}

// WasteLevel buckets the waste estimate.
type WasteLevel string

const (
	WasteLow    WasteLevel = "low"
	WasteMedium WasteLevel = "medium"
	WasteHigh   WasteLevel = "high"
)

// Waste is the capacity expected to go unused before the next reset.
type Waste struct {
	Level     WasteLevel
	AccountID int
	Percent   float64
}

// BalanceTarget is the suggested share of usage for an account.
type BalanceTarget struct {
	AccountID        int
	Usage            float64
	DaysToReset      float64
	SuggestedPercent int
}

// Report bundles every read-side computation for presentation.
type Report struct {
	GeneratedAt    time.Time
	Recommendation Recommendation
	Summary        HistorySummary
	Week           PeriodComparison
	Month          PeriodComparison
	Cycles         CycleStats
	Projections    []Projection
	Alerts         []Alert
	Speed          []SpeedTrend
	Rotation       []RotationCount
	Streaks        []Streak
	Waste          []Waste
	Balance        []BalanceTarget
	Trend          []DailyPoint
	WeekAverages   []AccountWeekAverage
	Scores         Scores
	Capacity       float64
	AverageDaily   float64
	Hourly         [24]float64
	Weekday        [7]float64
}

// Projection returns the projection for an account, or nil.
func (r *Report) Projection(id int) *Projection {
	for i := range r.Projections {
		if r.Projections[i].AccountID == id {
			return &r.Projections[i]
		}
	}
	return nil
}

// PeakHour returns the hour with highest average consumption.
func (r *Report) PeakHour() (peakHour int, peakVal float64) {
	for h, v := range r.Hourly {
		if v > peakVal {
			peakVal = v
			peakHour = h
		}
	}
	return peakHour, peakVal
}

// PeakWeekday returns the weekday with highest average consumption.
func (r *Report) PeakWeekday() (peakDay time.Weekday, peakVal float64) {
	for d, v := range r.Weekday {
		if v > peakVal {
			peakVal = v
			peakDay = time.Weekday(d)
		}
	}
	return peakDay, peakVal
}

// AlertCount returns the number of alerts at or above the given level.
func (r *Report) AlertCount(floor Severity) int {
	rank := map[Severity]int{SeverityOK: 0, SeverityInfo: 1, SeverityWarning: 2, SeverityDanger: 3}
	n := 0
	for _, a := range r.Alerts {
		if rank[a.Level] >= rank[floor] {
			n++
		}
	}
	return n
}
