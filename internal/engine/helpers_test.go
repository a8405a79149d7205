package engine

import (
	"math"
	"time"

	"github.com/j-veylop/usage-ledger-tui/internal/models"
)

var (
	testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ids     = []int{1, 2, 3}
)

// ago returns testNow minus d.
func ago(d time.Duration) time.Time {
	return testNow.Add(-d)
}

func days(n float64) time.Duration {
	return DaysDuration(n)
}

// sample builds a sample with usage for accounts 1..len(usage).
func sample(ts time.Time, usage ...float64) models.Sample {
	m := make(map[int]float64, len(usage))
	for i, u := range usage {
		m[i+1] = u
	}
	return models.Sample{Timestamp: ts, Usage: m}
}

func account(id int, usage float64) models.Account {
	return models.Account{ID: id, Usage: usage, Name: models.DefaultAccountName(id)}
}

func withReset(a models.Account, reset time.Time) models.Account {
	a.ResetDate = &reset
	return a
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
