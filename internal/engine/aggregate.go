package engine

import (
	"math"
	"sort"
	"time"

	"github.com/j-veylop/usage-ledger-tui/internal/models"
)

// Aggregation constants.
const (
	streakThreshold  = 10
	topRanked        = 5
	speedChangeBand  = 20
	recentSpeedDays  = 3
	olderSpeedOffset = 3
	speedWindowDays  = 7
	defaultTrendDays = 30
	unsetDaysToReset = 7
	fallbackShare    = 33
	wasteHighAbove   = 30
	wasteMediumAbove = 15
	weekDays         = 7
	monthDays        = 30
)

// pairDelta returns the per-account and total signed change between two
// consecutive samples.
func pairDelta(prev, curr models.Sample, ids []int) (deltas map[int]float64, total float64) {
	deltas = make(map[int]float64, len(ids))
	for _, id := range ids {
		d := curr.Value(id) - prev.Value(id)
		deltas[id] = d
		total += d
	}
	return deltas, total
}

// TotalUsageChange sums, over accounts, the positive change between the
// first and last sample.
func TotalUsageChange(samples []models.Sample, ids []int) float64 {
	if len(samples) < 2 {
		return 0
	}
	first, last := samples[0], samples[len(samples)-1]
	var total float64
	for _, id := range ids {
		total += math.Max(0, last.Value(id)-first.Value(id))
	}
	return total
}

// ComparePeriods compares the usage change of the last periodDays with the
// periodDays before that.
func ComparePeriods(history []models.Sample, ids []int, now time.Time, periodDays int) models.PeriodComparison {
	period := time.Duration(periodDays) * day
	currentStart := now.Add(-period)
	previousStart := now.Add(-2 * period)

	var current, previous []models.Sample
	for _, s := range history {
		switch {
		case !s.Timestamp.Before(currentStart):
			current = append(current, s)
		case !s.Timestamp.Before(previousStart):
			previous = append(previous, s)
		}
	}

	c := models.PeriodComparison{
		PeriodDays: periodDays,
		Current:    TotalUsageChange(current, ids),
		Previous:   TotalUsageChange(previous, ids),
	}
	c.Diff = c.Current - c.Previous
	return c
}

// HourlyPattern averages the total increase between consecutive samples by
// hour of day of the later sample. Decreases are not counted.
func HourlyPattern(history []models.Sample, ids []int, loc *time.Location) [24]float64 {
	var sums [24]float64
	var counts [24]int
	for i := 1; i < len(history); i++ {
		_, total := pairDelta(history[i-1], history[i], ids)
		if total <= 0 {
			continue
		}
		h := history[i].Timestamp.In(loc).Hour()
		sums[h] += total
		counts[h]++
	}
	var out [24]float64
	for h := range out {
		if counts[h] > 0 {
			out[h] = sums[h] / float64(counts[h])
		}
	}
	return out
}

// WeekdayPattern averages the total increase between consecutive samples by
// weekday of the later sample, Sunday first.
func WeekdayPattern(history []models.Sample, ids []int, loc *time.Location) [7]float64 {
	var sums [7]float64
	var counts [7]int
	for i := 1; i < len(history); i++ {
		_, total := pairDelta(history[i-1], history[i], ids)
		if total <= 0 {
			continue
		}
		d := history[i].Timestamp.In(loc).Weekday()
		sums[d] += total
		counts[d]++
	}
	var out [7]float64
	for d := range out {
		if counts[d] > 0 {
			out[d] = sums[d] / float64(counts[d])
		}
	}
	return out
}

// DetectRotation attributes every consecutive pair of samples to the account
// with the largest increase and counts the switches between attributed
// accounts. The five most frequent switches are returned.
func DetectRotation(history []models.Sample, ids []int) []models.RotationCount {
	var attributed []int
	for i := 1; i < len(history); i++ {
		deltas, _ := pairDelta(history[i-1], history[i], ids)
		top, topDelta := 0, 0.0
		for _, id := range ids {
			if d := deltas[id]; d > 0 && d >= topDelta {
				top, topDelta = id, d
			}
		}
		if top != 0 {
			attributed = append(attributed, top)
		}
	}

	type key struct{ from, to int }
	counts := map[key]int{}
	var order []key
	for i := 1; i < len(attributed); i++ {
		if attributed[i] == attributed[i-1] {
			continue
		}
		k := key{attributed[i-1], attributed[i]}
		if _, seen := counts[k]; !seen {
			order = append(order, k)
		}
		counts[k]++
	}

	out := make([]models.RotationCount, 0, len(order))
	for _, k := range order {
		out = append(out, models.RotationCount{From: k.from, To: k.to, Count: counts[k]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > topRanked {
		out = out[:topRanked]
	}
	return out
}

// DetectStreaks returns the five largest intensive-use events: consecutive
// samples whose total change is at least 10 points.
func DetectStreaks(history []models.Sample, ids []int) []models.Streak {
	var streaks []models.Streak
	for i := 1; i < len(history); i++ {
		deltas, total := pairDelta(history[i-1], history[i], ids)
		if total >= streakThreshold {
			streaks = append(streaks, models.Streak{At: history[i].Timestamp, Deltas: deltas, Total: total})
		}
	}
	sort.SliceStable(streaks, func(i, j int) bool { return streaks[i].Total > streaks[j].Total })
	if len(streaks) > topRanked {
		streaks = streaks[:topRanked]
	}
	return streaks
}

// AverageDailyConsumption is the positive change over the whole history,
// per day (at least one) and per account.
func AverageDailyConsumption(history []models.Sample, ids []int) float64 {
	if len(history) < 2 || len(ids) == 0 {
		return 0
	}
	span := Days(history[len(history)-1].Timestamp.Sub(history[0].Timestamp))
	days := math.Max(1, span)
	return TotalUsageChange(history, ids) / days / float64(len(ids))
}

// ConsumptionTrend compares the rate of the last three days with the rate
// of the seven days before them.
func ConsumptionTrend(history []models.Sample, accountID int, now time.Time) models.SpeedTrend {
	t := models.SpeedTrend{
		AccountID: accountID,
		Recent:    EstimateDailyRate(history, accountID, recentSpeedDays, 0, now),
		Older:     EstimateDailyRate(history, accountID, speedWindowDays, olderSpeedOffset, now),
		Trend:     models.TrendStable,
	}
	if t.Older > 0 {
		t.ChangePercent = (t.Recent - t.Older) / t.Older * 100
		switch {
		case t.ChangePercent > speedChangeBand:
			t.Trend = models.TrendAccelerating
		case t.ChangePercent < -speedChangeBand:
			t.Trend = models.TrendSlowing
		}
	}
	return t
}

// ComputeCycleStats splits the history into consecutive cycles of at least
// seven days and measures the change of total usage across each.
func ComputeCycleStats(history []models.Sample, ids []int) models.CycleStats {
	if len(history) == 0 {
		return models.CycleStats{}
	}

	var cycles []float64
	start := history[0]
	for _, s := range history[1:] {
		if Days(s.Timestamp.Sub(start.Timestamp)) >= PeriodDays {
			cycles = append(cycles, s.Total(ids)-start.Total(ids))
			start = s
		}
	}

	if len(cycles) == 0 {
		return models.CycleStats{}
	}

	stats := models.CycleStats{Count: len(cycles), Max: math.Inf(-1), Min: math.Inf(1)}
	var sum float64
	for _, c := range cycles {
		sum += c
		stats.Max = math.Max(stats.Max, c)
		stats.Min = math.Min(stats.Min, c)
	}
	stats.Average = sum / float64(len(cycles))
	return stats
}

// WasteEstimate returns the share of capacity (0-100) expected to be left
// unused at the next reset. Without a reset date nothing is estimated.
func WasteEstimate(acc models.Account, rate, capacity float64, now time.Time) models.Waste {
	w := models.Waste{AccountID: acc.ID, Level: models.WasteLow}
	if !acc.HasResetDate() {
		return w
	}

	remaining := capacity - acc.Usage
	waste := remaining
	if rate > 0 {
		d := math.Max(0, DaysToReset(*acc.ResetDate, now))
		waste = math.Max(0, remaining-rate*d)
	}

	w.Percent = Normalize(waste, capacity)
	switch {
	case w.Percent > wasteHighAbove:
		w.Level = models.WasteHigh
	case w.Percent > wasteMediumAbove:
		w.Level = models.WasteMedium
	}
	return w
}

// BalanceSuggestion proposes a share of usage per account that favors the
// accounts resetting soonest. Accounts without a reset date count as a full
// cycle away.
func BalanceSuggestion(accounts []models.Account, now time.Time) []models.BalanceTarget {
	out := make([]models.BalanceTarget, len(accounts))
	var total float64
	for i, a := range accounts {
		d := float64(unsetDaysToReset)
		if a.HasResetDate() {
			d = math.Max(0, DaysToReset(*a.ResetDate, now))
		}
		out[i] = models.BalanceTarget{AccountID: a.ID, Usage: a.Usage, DaysToReset: d}
		total += d
	}
	for i := range out {
		if total > 0 {
			out[i].SuggestedPercent = int(math.Round((total - out[i].DaysToReset) / (total * 2) * 100))
		} else {
			out[i].SuggestedPercent = fallbackShare
		}
	}
	return out
}

// DailyTrend returns, per calendar day of the last days days, the highest
// usage recorded for each account.
func DailyTrend(history []models.Sample, ids []int, now time.Time, days int) []models.DailyPoint {
	if days <= 0 {
		days = defaultTrendDays
	}
	loc := now.Location()
	cutoff := now.Add(-time.Duration(days) * day)

	var out []models.DailyPoint
	index := map[time.Time]int{}
	for _, s := range history {
		if s.Timestamp.Before(cutoff) {
			continue
		}
		ts := s.Timestamp.In(loc)
		dayStart := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, loc)
		i, ok := index[dayStart]
		if !ok {
			i = len(out)
			index[dayStart] = i
			out = append(out, models.DailyPoint{Day: dayStart, Max: make(map[int]float64, len(ids))})
		}
		for _, id := range ids {
			out[i].Max[id] = math.Max(out[i].Max[id], s.Value(id))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out
}

// SummarizeHistory counts the samples, their time span and the account with
// the highest average usage.
func SummarizeHistory(samples []models.Sample, ids []int) models.HistorySummary {
	if len(samples) == 0 {
		return models.HistorySummary{}
	}
	sum := models.HistorySummary{
		Count: len(samples),
		First: samples[0].Timestamp,
		Last:  samples[len(samples)-1].Timestamp,
	}
	best := math.Inf(-1)
	for _, id := range ids {
		var total float64
		for _, s := range samples {
			total += s.Value(id)
		}
		if avg := total / float64(len(samples)); avg > best {
			best = avg
			sum.MostUsedID = id
			sum.MostUsedAvg = avg
		}
	}
	return sum
}

// WeekAverages compares each account's mean usage over the last seven days
// with the seven days before, on a 0-100 scale.
func WeekAverages(history []models.Sample, ids []int, capacity float64, now time.Time) []models.AccountWeekAverage {
	currentStart := now.Add(-weekDays * day)
	previousStart := now.Add(-2 * weekDays * day)

	var current, previous []models.Sample
	for _, s := range history {
		switch {
		case !s.Timestamp.Before(currentStart) && !s.Timestamp.After(now):
			current = append(current, s)
		case !s.Timestamp.Before(previousStart) && s.Timestamp.Before(currentStart):
			previous = append(previous, s)
		}
	}

	mean := func(samples []models.Sample, id int) float64 {
		var total float64
		for _, s := range samples {
			total += s.Value(id)
		}
		return Normalize(total/float64(len(samples)), capacity)
	}

	out := make([]models.AccountWeekAverage, 0, len(ids))
	for _, id := range ids {
		w := models.AccountWeekAverage{
			AccountID:   id,
			HasCurrent:  len(current) > 0,
			HasPrevious: len(previous) > 0,
		}
		if w.HasCurrent {
			w.Current = mean(current, id)
		}
		if w.HasPrevious {
			w.Previous = mean(previous, id)
		}
		w.Diff = w.Current - w.Previous
		if w.Previous > 0 {
			w.DiffPercent = w.Diff / w.Previous * 100
		}
		out = append(out, w)
	}
	return out
}
