package metrics

import (
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/j-veylop/usage-ledger-tui/internal/models"
)

func TestObserve(t *testing.T) {
	st := models.NewState(3)
	st.Accounts[0].Usage = 40
	st.Accounts[2].NeedsAttention = true
	st.History = make([]models.Sample, 5)

	r := &models.Report{
		Projections: []models.Projection{
			{AccountID: 1, Rate: 12.5, DaysRemaining: 4.8, TimeBalance: -3},
			{AccountID: 2, DaysRemaining: math.Inf(1)},
		},
		Scores:         models.Scores{Utilization: 13, Balance: 81, Timing: 50, Efficiency: 48},
		Recommendation: models.Recommendation{AccountID: 2},
		Alerts: []models.Alert{
			{Level: models.SeverityWarning},
			{Level: models.SeverityWarning},
			{Level: models.SeverityInfo},
		},
	}

	Observe(st, r)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"usage", testutil.ToFloat64(AccountUsage.WithLabelValues("1")), 40},
		{"attention", testutil.ToFloat64(AccountNeedsAttention.WithLabelValues("3")), 1},
		{"rate", testutil.ToFloat64(AccountRate.WithLabelValues("1")), 12.5},
		{"balance", testutil.ToFloat64(AccountTimeBalance.WithLabelValues("1")), -3},
		{"efficiency", testutil.ToFloat64(Scores.WithLabelValues("efficiency")), 48},
		{"recommended", testutil.ToFloat64(RecommendedAccount), 2},
		{"warnings", testutil.ToFloat64(Alerts.WithLabelValues("warning")), 2},
		{"danger", testutil.ToFloat64(Alerts.WithLabelValues("danger")), 0},
		{"samples", testutil.ToFloat64(HistorySamples), 5},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	if v := testutil.ToFloat64(AccountDaysRemaining.WithLabelValues("2")); !math.IsInf(v, 1) {
		t.Errorf("days remaining = %v, want +Inf", v)
	}
}

func TestRecordSave(t *testing.T) {
	okBefore := testutil.ToFloat64(SavesTotal.WithLabelValues("ok"))
	errBefore := testutil.ToFloat64(SavesTotal.WithLabelValues("error"))

	RecordSave(nil)
	RecordSave(errors.New("boom"))
	RecordSave(nil)

	if got := testutil.ToFloat64(SavesTotal.WithLabelValues("ok")) - okBefore; got != 2 {
		t.Errorf("ok saves = %v, want 2", got)
	}
	if got := testutil.ToFloat64(SavesTotal.WithLabelValues("error")) - errBefore; got != 1 {
		t.Errorf("error saves = %v, want 1", got)
	}
}

func TestHandler(t *testing.T) {
	HistorySamples.Set(7)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ult_history_samples 7") {
		t.Error("metrics output missing ult_history_samples")
	}

	rec = httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestServer(t *testing.T) {
	s := NewServer("127.0.0.1:0")
	if err := s.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer func() { _ = s.Stop() }()

	resp, err := http.Get("http://" + s.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "OK" {
		t.Errorf("health = %d %q", resp.StatusCode, body)
	}
}
