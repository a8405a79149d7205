package engine

import (
	"math"
	"testing"
	"time"

	"github.com/j-veylop/usage-ledger-tui/internal/models"
)

func TestDaysRemainingAndDepletion(t *testing.T) {
	tests := []struct {
		name      string
		usage     float64
		rate      float64
		capacity  float64
		wantDays  float64
		wantDate  *time.Time
		unbounded bool
	}{
		{name: "TenPerDay", usage: 80, rate: 10, capacity: 100, wantDays: 2, wantDate: ptr(testNow.Add(48 * time.Hour))},
		{name: "ZeroRate", usage: 50, rate: 0, capacity: 100, unbounded: true},
		{name: "AtCapacity", usage: 100, rate: 0, capacity: 100, wantDays: 0, wantDate: ptr(testNow)},
		{name: "OverCapacity", usage: 120, rate: 5, capacity: 100, wantDays: 0, wantDate: ptr(testNow)},
		{name: "Doubled", usage: 100, rate: 50, capacity: 200, wantDays: 2, wantDate: ptr(testNow.Add(48 * time.Hour))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DaysRemaining(tt.usage, tt.rate, tt.capacity)
			date := DepletionDate(tt.usage, tt.rate, tt.capacity, testNow)

			if tt.unbounded {
				if !math.IsInf(d, 1) {
					t.Errorf("DaysRemaining() = %v, want +Inf", d)
				}
				if date != nil {
					t.Errorf("DepletionDate() = %v, want nil", date)
				}
				return
			}
			if !approx(d, tt.wantDays) {
				t.Errorf("DaysRemaining() = %v, want %v", d, tt.wantDays)
			}
			if date == nil || !date.Equal(*tt.wantDate) {
				t.Errorf("DepletionDate() = %v, want %v", date, tt.wantDate)
			}
		})
	}
}

func TestTimeBalance(t *testing.T) {
	tests := []struct {
		name        string
		usage       float64
		reset       time.Time
		wantBalance float64
		wantElapsed float64
		wantBand    models.Band
	}{
		{"Midpoint", 50, testNow.Add(days(3.5)), 0, 50, models.BandNominal},
		{"BeforeCycle", 30, testNow.Add(days(10)), 30, 0, models.BandCritical},
		{"AfterReset", 85, ago(time.Hour), -15, 100, models.BandCaution},
		{"Underconsuming", 10, testNow.Add(days(3.5)), -40, 50, models.BandCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			balance, elapsed := TimeBalance(tt.usage, tt.reset, testNow)
			if math.Abs(balance-tt.wantBalance) > 1e-6 {
				t.Errorf("balance = %v, want %v", balance, tt.wantBalance)
			}
			if math.Abs(elapsed-tt.wantElapsed) > 1e-6 {
				t.Errorf("elapsed = %v, want %v", elapsed, tt.wantElapsed)
			}
			if got := BandFor(balance); got != tt.wantBand {
				t.Errorf("BandFor(%v) = %q, want %q", balance, got, tt.wantBand)
			}
		})
	}
}

func TestBandFor(t *testing.T) {
	tests := []struct {
		balance float64
		want    models.Band
	}{
		{0, models.BandNominal},
		{10, models.BandNominal},
		{-10, models.BandNominal},
		{10.5, models.BandCaution},
		{-20, models.BandCaution},
		{20.01, models.BandCritical},
		{-25, models.BandCritical},
	}
	for _, tt := range tests {
		if got := BandFor(tt.balance); got != tt.want {
			t.Errorf("BandFor(%v) = %q, want %q", tt.balance, got, tt.want)
		}
	}
}

func TestWillDepleteBeforeReset(t *testing.T) {
	tests := []struct {
		deplete, reset float64
		want           bool
	}{
		{2, 5, true},
		{5, 2, false},
		{0, 5, false},
		{math.Inf(1), 5, false},
		{3, 3, false},
	}
	for _, tt := range tests {
		if got := WillDepleteBeforeReset(tt.deplete, tt.reset); got != tt.want {
			t.Errorf("WillDepleteBeforeReset(%v, %v) = %v", tt.deplete, tt.reset, got)
		}
	}
}

func TestProject(t *testing.T) {
	t.Run("WithoutReset", func(t *testing.T) {
		p := Project(account(1, 40), 0, 100, testNow)
		if !p.Unbounded() || p.HasReset() || p.Band != models.BandNone {
			t.Errorf("projection = %+v", p)
		}
	})

	t.Run("DepletesBeforeReset", func(t *testing.T) {
		acc := withReset(account(1, 80), testNow.Add(days(5)))
		p := Project(acc, 10, 100, testNow)

		if !approx(p.DaysRemaining, 2) {
			t.Errorf("DaysRemaining = %v, want 2", p.DaysRemaining)
		}
		if !approx(p.DaysToReset, 5) {
			t.Errorf("DaysToReset = %v, want 5", p.DaysToReset)
		}
		if !p.WillDepleteBeforeReset {
			t.Error("expected depletion before reset")
		}
		wantElapsed := 2.0 / 7 * 100
		if math.Abs(p.ElapsedPercent-wantElapsed) > 1e-6 {
			t.Errorf("ElapsedPercent = %v, want %v", p.ElapsedPercent, wantElapsed)
		}
		if p.Band != models.BandCritical {
			t.Errorf("Band = %q, want critical", p.Band)
		}
	})

	t.Run("DoubledNormalizesBalance", func(t *testing.T) {
		acc := withReset(account(2, 100), testNow.Add(days(3.5)))
		p := Project(acc, 0, 200, testNow)
		if math.Abs(p.TimeBalance) > 1e-6 {
			t.Errorf("TimeBalance = %v, want 0", p.TimeBalance)
		}
		if p.Depleted {
			t.Error("100 of 200 is not depleted")
		}
	})

	t.Run("ResetDateIsCopied", func(t *testing.T) {
		acc := withReset(account(3, 10), testNow.Add(days(1)))
		p := Project(acc, 0, 100, testNow)
		*acc.ResetDate = acc.ResetDate.Add(time.Hour)
		if p.ResetDate.Equal(*acc.ResetDate) {
			t.Error("projection shares the reset date pointer")
		}
	})
}

func TestProjectAll(t *testing.T) {
	st := models.NewState(3)
	st.Accounts[0].Usage = 40
	st.History = []models.Sample{
		sample(ago(days(4)), 20, 0, 0),
		sample(testNow, 40, 0, 0),
	}

	ps := ProjectAll(st, 7, testNow)
	if len(ps) != 3 {
		t.Fatalf("len = %d, want 3", len(ps))
	}
	if !approx(ps[0].Rate, 5) || !approx(ps[0].DaysRemaining, 12) {
		t.Errorf("account 1 projection = %+v", ps[0])
	}
	if !ps[1].Unbounded() {
		t.Error("account 2 has no consumption and should be unbounded")
	}
}

func TestStatuses(t *testing.T) {
	depletion := []struct {
		days float64
		want models.Severity
	}{
		{0, models.SeverityDanger},
		{1.9, models.SeverityDanger},
		{2, models.SeverityWarning},
		{3.9, models.SeverityWarning},
		{4, models.SeverityOK},
		{math.Inf(1), models.SeverityOK},
	}
	for _, tt := range depletion {
		if got := DepletionStatus(tt.days); got != tt.want {
			t.Errorf("DepletionStatus(%v) = %q, want %q", tt.days, got, tt.want)
		}
	}

	rates := []struct {
		rate float64
		want models.Severity
	}{
		{5, models.SeverityOK},
		{10, models.SeverityOK},
		{10.1, models.SeverityWarning},
		{15, models.SeverityWarning},
		{15.1, models.SeverityDanger},
	}
	for _, tt := range rates {
		if got := RateStatus(tt.rate); got != tt.want {
			t.Errorf("RateStatus(%v) = %q, want %q", tt.rate, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	if Normalize(150, 200) != 75 || Normalize(40, 100) != 40 || Normalize(5, 0) != 5 {
		t.Error("Normalize() returned unexpected values")
	}
}

func ptr(t time.Time) *time.Time { return &t }
