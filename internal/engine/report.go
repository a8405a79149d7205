package engine

import (
	"time"

	"github.com/j-veylop/usage-ledger-tui/internal/models"
)

// ReportOptions tunes BuildReport.
type ReportOptions struct {
	// WindowDays is the trailing window for rate estimates.
	WindowDays float64
	// TrendDays is the span of the daily trend.
	TrendDays int
}

// DefaultReportOptions returns the standard windows.
func DefaultReportOptions() ReportOptions {
	return ReportOptions{WindowDays: DefaultRateWindowDays, TrendDays: defaultTrendDays}
}

// BuildReport computes every projection, score and aggregate for the state.
// The state is only read.
func BuildReport(st *models.State, opts ReportOptions, now time.Time) models.Report {
	if opts.WindowDays <= 0 {
		opts.WindowDays = DefaultRateWindowDays
	}
	if opts.TrendDays <= 0 {
		opts.TrendDays = defaultTrendDays
	}

	capacity := st.Capacity()
	ids := st.AccountIDs()
	loc := now.Location()

	r := models.Report{
		GeneratedAt: now,
		Capacity:    capacity,
		Projections: ProjectAll(st, opts.WindowDays, now),
	}

	r.Scores = ComputeScores(st.Accounts, capacity, now)
	r.Recommendation = Recommend(st.Accounts, capacity, now)
	r.Alerts = BuildAlerts(st.Accounts, r.Projections, capacity, now)

	r.AverageDaily = AverageDailyConsumption(st.History, ids)
	for _, a := range st.Accounts {
		r.Speed = append(r.Speed, ConsumptionTrend(st.History, a.ID, now))
		var rate float64
		if p := r.Projection(a.ID); p != nil {
			rate = p.Rate
		}
		r.Waste = append(r.Waste, WasteEstimate(a, rate, capacity, now))
	}

	r.Week = ComparePeriods(st.History, ids, now, weekDays)
	r.Month = ComparePeriods(st.History, ids, now, monthDays)
	r.WeekAverages = WeekAverages(st.History, ids, capacity, now)

	r.Hourly = HourlyPattern(st.History, ids, loc)
	r.Weekday = WeekdayPattern(st.History, ids, loc)
	r.Rotation = DetectRotation(st.History, ids)
	r.Streaks = DetectStreaks(st.History, ids)

	r.Cycles = ComputeCycleStats(st.History, ids)
	r.Balance = BalanceSuggestion(st.Accounts, now)
	r.Trend = DailyTrend(st.History, ids, now, opts.TrendDays)
	r.Summary = SummarizeHistory(st.History, ids)
	return r
}
