package models

import "time"

// TimeRange represents the selected history time range.
type TimeRange int

const (
	// TimeRange7Days shows data from the last 7 days.
	TimeRange7Days TimeRange = iota
	// TimeRange14Days shows data from the last 14 days.
	TimeRange14Days
	// TimeRange30Days shows data from the last 30 days.
	TimeRange30Days
	// TimeRangeAllTime shows all available historical data.
	TimeRangeAllTime
)

// String returns the display name for a time range.
func (t TimeRange) String() string {
	switch t {
	case TimeRange7Days:
		return "7 Days"
	case TimeRange14Days:
		return "14 Days"
	case TimeRange30Days:
		return "30 Days"
	case TimeRangeAllTime:
		return "All Time"
	default:
		return "Unknown"
	}
}

// Days returns the number of days for the time range (0 = unlimited).
func (t TimeRange) Days() int {
	switch t {
	case TimeRange7Days:
		return 7
	case TimeRange14Days:
		return 14
	case TimeRange30Days:
		return 30
	case TimeRangeAllTime:
		return 0
	default:
		return 30
	}
}

// Next cycles to the next time range.
func (t TimeRange) Next() TimeRange {
	return (t + 1) % 4
}

// HistorySummary describes a slice of history.
type HistorySummary struct {
	First       time.Time
	Last        time.Time
	Count       int
	MostUsedID  int
	MostUsedAvg float64
}

// HasData returns true if the summary covers at least one sample.
func (h HistorySummary) HasData() bool {
	return h.Count > 0
}

// DailyPoint holds the highest usage seen per account on one day.
type DailyPoint struct {
	Day time.Time
	Max map[int]float64
}

// Streak is one intensive-use event between two consecutive samples.
type Streak struct {
	At     time.Time
	Deltas map[int]float64
	Total  float64
}

// RotationCount counts switches of the most-used account.
type RotationCount struct {
	From  int
	To    int
	Count int
}

// CycleStats summarizes usage per 7-day cycle.
type CycleStats struct {
	Average float64
	Max     float64
	Min     float64
	Count   int
}

// PeriodComparison compares total usage change of two adjacent periods.
type PeriodComparison struct {
	Current    float64
	Previous   float64
	Diff       float64
	PeriodDays int
}

// Direction returns "up", "down" or "same".
func (p PeriodComparison) Direction() string {
	switch {
	case p.Diff > 0:
		return "up"
	case p.Diff < 0:
		return "down"
	default:
		return "same"
	}
}

// AccountWeekAverage compares an account's average usage this week and last.
type AccountWeekAverage struct {
	AccountID   int
	Current     float64
	Previous    float64
	Diff        float64
	DiffPercent float64
	HasCurrent  bool
	HasPrevious bool
}

// Comparable reports whether both weeks have data.
func (a AccountWeekAverage) Comparable() bool {
	return a.HasCurrent && a.HasPrevious
}
