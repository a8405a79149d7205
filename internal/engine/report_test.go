package engine

import (
	"testing"
	"time"

	"github.com/j-veylop/usage-ledger-tui/internal/models"
)

func newTestState() *models.State {
	st := models.NewState(3)
	st.Accounts[0].Usage = 60
	st.Accounts[1].Usage = 20
	st.Accounts[2].Usage = 5
	reset := testNow.Add(days(4))
	st.Accounts[0].ResetDate = &reset

	st.History = []models.Sample{
		sample(ago(days(12)), 0, 0, 0),
		sample(ago(days(6)), 20, 10, 0),
		sample(ago(days(3)), 40, 15, 5),
		sample(ago(time.Hour), 60, 20, 5),
	}
	return st
}

func TestBuildReport(t *testing.T) {
	st := newTestState()
	r := BuildReport(st, DefaultReportOptions(), testNow)

	if len(r.Projections) != 3 || len(r.Speed) != 3 || len(r.Waste) != 3 || len(r.Balance) != 3 {
		t.Fatalf("per-account sections missing: %d %d %d %d",
			len(r.Projections), len(r.Speed), len(r.Waste), len(r.Balance))
	}
	if r.Capacity != 100 {
		t.Errorf("Capacity = %v", r.Capacity)
	}
	if r.Recommendation.AccountID != 3 {
		t.Errorf("recommended %d, want 3", r.Recommendation.AccountID)
	}
	if r.Week.PeriodDays != 7 || r.Month.PeriodDays != 30 {
		t.Errorf("periods = %d/%d", r.Week.PeriodDays, r.Month.PeriodDays)
	}
	if r.Summary.Count != 4 || r.Summary.MostUsedID != 1 {
		t.Errorf("summary = %+v", r.Summary)
	}
	if p := r.Projection(1); p == nil || !p.HasReset() || p.Rate <= 0 {
		t.Errorf("projection 1 = %+v", p)
	}
	if r.Projection(9) != nil {
		t.Error("unknown account has a projection")
	}
	if len(r.Alerts) == 0 {
		t.Error("no alerts")
	}
	if !r.GeneratedAt.Equal(testNow) {
		t.Errorf("GeneratedAt = %v", r.GeneratedAt)
	}
}

func TestBuildReportDoesNotMutateState(t *testing.T) {
	st := newTestState()
	before := st.Clone()
	BuildReport(st, ReportOptions{}, testNow)

	for i := range st.Accounts {
		if st.Accounts[i].Usage != before.Accounts[i].Usage {
			t.Errorf("account %d usage changed", i+1)
		}
	}
	if len(st.History) != len(before.History) {
		t.Error("history length changed")
	}
}

func TestBuildReportEmptyHistory(t *testing.T) {
	st := models.NewState(3)
	r := BuildReport(st, DefaultReportOptions(), testNow)

	if r.Summary.HasData() || len(r.Trend) != 0 || len(r.Streaks) != 0 || len(r.Rotation) != 0 {
		t.Errorf("empty history produced aggregates: %+v", r.Summary)
	}
	for _, p := range r.Projections {
		if !p.Unbounded() {
			t.Errorf("account %d should be unbounded", p.AccountID)
		}
	}
	if len(r.Alerts) != 1 || r.Alerts[0].Kind != models.AlertAllClear {
		t.Errorf("alerts = %+v", r.Alerts)
	}
	if h, v := r.PeakHour(); h != 0 || v != 0 {
		t.Errorf("PeakHour() = %d, %v", h, v)
	}
}
