package engine

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/j-veylop/usage-ledger-tui/internal/models"
)

func TestApplyAutoReset(t *testing.T) {
	accounts := []models.Account{
		withReset(account(1, 70), ago(time.Minute)),
		withReset(account(2, 40), testNow.Add(time.Hour)),
		account(3, 90),
	}

	changed := ApplyAutoReset(accounts, testNow)
	if len(changed) != 1 || changed[0] != 1 {
		t.Fatalf("changed = %v, want [1]", changed)
	}

	a := accounts[0]
	if a.Usage != 0 || !a.NeedsAttention {
		t.Errorf("account 1 = %+v, want usage 0 and flagged", a)
	}
	if a.ResetDate == nil || !a.ResetDate.Equal(ago(time.Minute)) {
		t.Error("stale reset date must be kept")
	}
	if a.ResetState() != models.ResetAwaitingDate {
		t.Errorf("ResetState() = %v", a.ResetState())
	}
	if accounts[1].Usage != 40 || accounts[1].NeedsAttention {
		t.Error("account with a future reset must be untouched")
	}
	if accounts[2].Usage != 90 || accounts[2].NeedsAttention {
		t.Error("account without a reset date must be untouched")
	}
}

func TestApplyAutoResetIdempotent(t *testing.T) {
	accounts := []models.Account{withReset(account(1, 70), ago(time.Hour))}
	ApplyAutoReset(accounts, testNow)

	// Usage recorded after the reset must survive further checks.
	accounts[0].Usage = 12
	if changed := ApplyAutoReset(accounts, testNow.Add(5*time.Minute)); len(changed) != 0 {
		t.Fatalf("second check changed %v", changed)
	}
	if accounts[0].Usage != 12 {
		t.Errorf("usage = %v, want 12", accounts[0].Usage)
	}
}

func TestApplyAutoResetAtExactInstant(t *testing.T) {
	accounts := []models.Account{withReset(account(1, 50), testNow)}
	if changed := ApplyAutoReset(accounts, testNow); len(changed) != 1 {
		t.Errorf("reset at now should fire, changed = %v", changed)
	}
}

func TestSetResetDate(t *testing.T) {
	tests := []struct {
		name          string
		acc           models.Account
		date          time.Time
		wantErr       error
		wantFlag      bool
		wantReset     bool
		wantUnchanged bool
	}{
		{
			name:          "Past",
			acc:           account(1, 10),
			date:          ago(time.Hour),
			wantErr:       ErrResetDateNotFuture,
			wantUnchanged: true,
		},
		{
			name:          "Now",
			acc:           account(1, 10),
			date:          testNow,
			wantErr:       ErrResetDateNotFuture,
			wantUnchanged: true,
		},
		{
			name:      "ClearsFlagAtZeroUsage",
			acc:       models.Account{ID: 1, NeedsAttention: true},
			date:      testNow.Add(days(7)),
			wantFlag:  false,
			wantReset: true,
		},
		{
			name:      "KeepsFlagWithUsage",
			acc:       models.Account{ID: 1, Usage: 15, NeedsAttention: true},
			date:      testNow.Add(days(7)),
			wantFlag:  true,
			wantReset: true,
		},
		{
			name:      "PlainAccount",
			acc:       account(2, 30),
			date:      testNow.Add(days(3)),
			wantReset: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := tt.acc
			before := acc.Clone()
			err := SetResetDate(&acc, tt.date, testNow)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if tt.wantUnchanged {
				if acc.ResetDate != nil || acc.NeedsAttention != before.NeedsAttention || !acc.UpdatedAt.Equal(before.UpdatedAt) {
					t.Errorf("rejected date mutated the account: %+v", acc)
				}
				return
			}
			if acc.NeedsAttention != tt.wantFlag {
				t.Errorf("NeedsAttention = %v, want %v", acc.NeedsAttention, tt.wantFlag)
			}
			if tt.wantReset && (acc.ResetDate == nil || !acc.ResetDate.Equal(tt.date)) {
				t.Errorf("ResetDate = %v, want %v", acc.ResetDate, tt.date)
			}
		})
	}
}

func TestResetCycle(t *testing.T) {
	clock := NewFixedClock(testNow)
	accounts := []models.Account{withReset(account(1, 80), testNow.Add(days(1)))}

	clock.Advance(days(1) + time.Minute)
	ApplyAutoReset(accounts, clock.Now())
	if !accounts[0].NeedsAttention {
		t.Fatal("reset did not fire")
	}

	if err := SetResetDate(&accounts[0], clock.Now().Add(days(7)), clock.Now()); err != nil {
		t.Fatalf("SetResetDate: %v", err)
	}
	if accounts[0].ResetState() != models.ResetNormal {
		t.Errorf("ResetState() = %v, want normal", accounts[0].ResetState())
	}
}

func TestValidateUsage(t *testing.T) {
	tests := []struct {
		usage, capacity float64
		wantErr         bool
	}{
		{0, 100, false},
		{100, 100, false},
		{-1, 100, true},
		{101, 100, true},
		{150, 200, false},
		{201, 200, true},
		{math.NaN(), 100, true},
	}
	for _, tt := range tests {
		err := ValidateUsage(tt.usage, tt.capacity)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateUsage(%v, %v) err = %v", tt.usage, tt.capacity, err)
		}
		if err != nil && !errors.Is(err, ErrUsageOutOfRange) {
			t.Errorf("error does not wrap ErrUsageOutOfRange: %v", err)
		}
	}
}

func TestSetUsage(t *testing.T) {
	acc := account(1, 10)
	if err := SetUsage(&acc, 120, 100, testNow); err == nil {
		t.Fatal("expected error for usage above capacity")
	}
	if acc.Usage != 10 {
		t.Errorf("rejected usage was stored: %v", acc.Usage)
	}
	if err := SetUsage(&acc, 55, 100, testNow); err != nil {
		t.Fatalf("SetUsage: %v", err)
	}
	if acc.Usage != 55 || !acc.UpdatedAt.Equal(testNow) {
		t.Errorf("account = %+v", acc)
	}
}

func TestNextResetDate(t *testing.T) {
	tests := []struct {
		name string
		last time.Time
		want time.Time
	}{
		{"Future", testNow.Add(days(1)), testNow.Add(days(1))},
		{"OneCycleBack", ago(days(1)), testNow.Add(days(6))},
		{"TwoCyclesBack", ago(days(8)), testNow.Add(days(6))},
		{"Exactly", testNow, testNow.Add(days(7))},
	}
	for _, tt := range tests {
		if got := NextResetDate(tt.last, testNow); !got.Equal(tt.want) {
			t.Errorf("%s: NextResetDate() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFixedClock(t *testing.T) {
	c := NewFixedClock(testNow)
	c.Advance(time.Hour)
	if !c.Now().Equal(testNow.Add(time.Hour)) {
		t.Errorf("Advance: got %v", c.Now())
	}
	c.Set(testNow)
	if !c.Now().Equal(testNow) {
		t.Errorf("Set: got %v", c.Now())
	}

	var rc Clock = RealClock{}
	if time.Since(rc.Now()) > time.Minute {
		t.Error("RealClock is not the wall clock")
	}
}
