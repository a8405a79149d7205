package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/j-veylop/usage-ledger-tui/internal/models"
)

// Scoring constants.
const (
	timingBase           = 50
	timingGoodBonus      = 15
	timingBadPenalty     = 15
	timingWastePenalty   = 10
	recommendResetBonus  = 50
	recommendFullPenalty = 100
	recommendFullAt      = 95
	maxReasons           = 4
)

// UtilizationScore is the mean usage of all accounts, capped at 100.
func UtilizationScore(accounts []models.Account, capacity float64) int {
	if len(accounts) == 0 {
		return 0
	}
	var sum float64
	for _, a := range accounts {
		sum += Normalize(a.Usage, capacity)
	}
	return int(math.Min(100, math.Round(sum/float64(len(accounts)))))
}

// BalanceScore is 100 minus the population standard deviation of usage,
// floored at 0.
func BalanceScore(accounts []models.Account, capacity float64) int {
	if len(accounts) == 0 {
		return 0
	}
	n := float64(len(accounts))
	var mean float64
	for _, a := range accounts {
		mean += Normalize(a.Usage, capacity)
	}
	mean /= n

	var variance float64
	for _, a := range accounts {
		d := Normalize(a.Usage, capacity) - mean
		variance += d * d
	}
	stdDev := math.Sqrt(variance / n)

	return int(math.Max(0, math.Round(100-stdDev)))
}

// TimingScore rewards heavy use right before a reset and penalizes heavy use
// early in a cycle or light use near its end. Accounts without a reset date
// do not contribute.
func TimingScore(accounts []models.Account, capacity float64, now time.Time) int {
	score := timingBase
	for _, a := range accounts {
		if !a.HasResetDate() {
			continue
		}
		d := DaysToReset(*a.ResetDate, now)
		u := Normalize(a.Usage, capacity)
		switch {
		case d < 2 && u > 80:
			score += timingGoodBonus
		case d > 5 && u > 80:
			score -= timingBadPenalty
		case d < 2 && u < 50:
			score -= timingWastePenalty
		}
	}
	return max(0, min(100, score))
}

// LabelFor bands a composite efficiency score.
func LabelFor(score int) models.EfficiencyLabel {
	switch {
	case score >= 80:
		return models.EfficiencyExcellent
	case score >= 60:
		return models.EfficiencyGood
	case score >= 40:
		return models.EfficiencyAverage
	default:
		return models.EfficiencyLow
	}
}

// ComputeScores returns the three component scores and their rounded mean.
func ComputeScores(accounts []models.Account, capacity float64, now time.Time) models.Scores {
	s := models.Scores{
		Utilization: UtilizationScore(accounts, capacity),
		Balance:     BalanceScore(accounts, capacity),
		Timing:      TimingScore(accounts, capacity, now),
	}
	s.Efficiency = int(math.Round(float64(s.Utilization+s.Balance+s.Timing) / 3))
	s.Label = LabelFor(s.Efficiency)
	return s
}

// RecommendationScore is (capacity - usage), plus a bonus when the account
// resets within three days, minus a penalty when it is nearly full.
// Thresholds here and in the scores above compare normalized usage, so
// 190 of a doubled 200 counts as 95%.
func RecommendationScore(acc models.Account, capacity float64, now time.Time) float64 {
	score := capacity - acc.Usage
	if acc.HasResetDate() {
		d := DaysToReset(*acc.ResetDate, now)
		if d > 0 && d < 3 {
			score += recommendResetBonus
		}
	}
	if Normalize(acc.Usage, capacity) >= recommendFullAt {
		score -= recommendFullPenalty
	}
	return score
}

// Recommend picks the account to use next. The first account with a strictly
// greater score wins, so ties go to the lowest id.
func Recommend(accounts []models.Account, capacity float64, now time.Time) models.Recommendation {
	if len(accounts) == 0 {
		return models.Recommendation{}
	}

	bestIdx := -1
	bestScore := math.Inf(-1)
	for i, a := range accounts {
		if score := RecommendationScore(a, capacity, now); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	best := accounts[bestIdx]
	return models.Recommendation{
		AccountID: best.ID,
		Name:      best.DisplayName(),
		Score:     bestScore,
		Available: capacity - best.Usage,
		Reasons:   recommendationReasons(best, accounts, capacity, now),
	}
}

func recommendationReasons(best models.Account, accounts []models.Account, capacity float64, now time.Time) []string {
	var reasons []string
	u := Normalize(best.Usage, capacity)

	if u < 50 {
		reasons = append(reasons, "More than half of its capacity is available")
	}
	if u < 30 {
		reasons = append(reasons, "Very low usage, ideal to make the most of it")
	}

	if best.HasResetDate() {
		d := DaysToReset(*best.ResetDate, now)
		if d < 3 {
			reasons = append(reasons, fmt.Sprintf("Resets in %d days", int(math.Ceil(d))))
		}
		if d > 5 {
			reasons = append(reasons, "Plenty of time left before the reset")
		}
	}

	for _, other := range accounts {
		if other.ID == best.ID {
			continue
		}
		if ou := Normalize(other.Usage, capacity); ou > u+20 {
			reasons = append(reasons, fmt.Sprintf("%s is at %.0f%%", other.DisplayName(), ou))
		}
	}

	if len(reasons) == 0 {
		reasons = append(reasons, "Best balance between usage and time left")
	}
	if len(reasons) > maxReasons {
		reasons = reasons[:maxReasons]
	}
	return reasons
}
