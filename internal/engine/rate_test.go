package engine

import (
	"math/rand"
	"testing"
	"time"

	"github.com/j-veylop/usage-ledger-tui/internal/models"
)

func TestEstimateDailyRate(t *testing.T) {
	tests := []struct {
		name    string
		history []models.Sample
		window  float64
		offset  float64
		want    float64
	}{
		{
			name: "Empty",
			want: 0,
		},
		{
			name:    "SingleSample",
			history: []models.Sample{sample(ago(days(1)), 10)},
			window:  7,
			want:    0,
		},
		{
			name: "OnlyOneInWindow",
			history: []models.Sample{
				sample(ago(days(20)), 0),
				sample(ago(days(1)), 30),
			},
			window: 7,
			want:   0,
		},
		{
			name: "UsesEndpointTimestamps",
			history: []models.Sample{
				sample(ago(days(4)), 20),
				sample(ago(days(2)), 30),
				sample(testNow, 40),
			},
			window: 7,
			want:   5,
		},
		{
			name: "DropIsClampedToZero",
			history: []models.Sample{
				sample(ago(days(2)), 60),
				sample(testNow, 10),
			},
			window: 7,
			want:   0,
		},
		{
			name: "SameTimestamp",
			history: []models.Sample{
				sample(ago(time.Hour), 10),
				sample(ago(time.Hour), 20),
			},
			window: 7,
			want:   0,
		},
		{
			name: "OffsetWindowBoundsInclusive",
			history: []models.Sample{
				sample(ago(days(8)), 0),
				sample(ago(days(6)), 0),
				sample(ago(days(4)), 10),
				sample(ago(days(3)), 15),
				sample(testNow, 50),
			},
			window: 3,
			offset: 3,
			want:   5,
		},
		{
			name: "ResetInsideWindowUnderstates",
			history: []models.Sample{
				sample(ago(days(4)), 80),
				sample(ago(days(3)), 0),
				sample(testNow, 40),
			},
			window: 7,
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateDailyRate(tt.history, 1, tt.window, tt.offset, testNow)
			if !approx(got, tt.want) {
				t.Errorf("EstimateDailyRate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEstimateDailyRateNeverNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 200; run++ {
		n := rng.Intn(12)
		history := make([]models.Sample, 0, n)
		ts := ago(days(10))
		for i := 0; i < n; i++ {
			ts = ts.Add(time.Duration(rng.Intn(48)) * time.Hour)
			history = append(history, sample(ts, rng.Float64()*100))
		}
		if got := EstimateDailyRate(history, 1, 7, float64(rng.Intn(3)), testNow); got < 0 {
			t.Fatalf("run %d: negative rate %v", run, got)
		}
	}
}

func TestFilterRange(t *testing.T) {
	history := []models.Sample{
		sample(ago(days(10)), 1),
		sample(ago(days(7)), 2),
		sample(ago(days(1)), 3),
	}

	if got := FilterRange(history, testNow, 7); len(got) != 2 || got[0].Value(1) != 2 {
		t.Errorf("FilterRange(7) = %+v", got)
	}
	if got := FilterRange(history, testNow, 0); len(got) != 3 {
		t.Errorf("FilterRange(0) returned %d samples, want all", len(got))
	}
}

func TestShouldAppend(t *testing.T) {
	last := sample(ago(time.Hour), 10, 20, 30)

	if !ShouldAppend(nil, last) {
		t.Error("first sample must be appended")
	}
	if ShouldAppend(&last, sample(testNow, 10, 20, 30)) {
		t.Error("identical sample must be suppressed")
	}
	if !ShouldAppend(&last, sample(testNow, 10, 21, 30)) {
		t.Error("sample with a changed value must be appended")
	}
}

func TestAppendOnlyOnChange(t *testing.T) {
	var history []models.Sample
	appendSample := func(s models.Sample) {
		var last *models.Sample
		if len(history) > 0 {
			last = &history[len(history)-1]
		}
		if ShouldAppend(last, s) {
			history = append(history, s)
		}
	}

	appendSample(sample(ago(3*time.Hour), 10, 20, 30))
	appendSample(sample(ago(2*time.Hour), 10, 20, 30))
	if len(history) != 1 {
		t.Fatalf("identical sample created an entry: %d", len(history))
	}

	appendSample(sample(ago(time.Hour), 10, 20, 31))
	if len(history) != 2 {
		t.Fatalf("changed sample should create exactly one entry, have %d", len(history))
	}
}
