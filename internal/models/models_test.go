package models

import (
	"math"
	"testing"
	"time"
)

func TestDefaultAccounts(t *testing.T) {
	accounts := DefaultAccounts(3)
	if len(accounts) != 3 {
		t.Fatalf("len = %d, want 3", len(accounts))
	}
	for i, a := range accounts {
		if a.ID != i+1 {
			t.Errorf("accounts[%d].ID = %d", i, a.ID)
		}
		if a.DisplayName() != DefaultAccountName(i+1) {
			t.Errorf("accounts[%d] name = %q", i, a.DisplayName())
		}
		if a.HasResetDate() || a.NeedsAttention || a.Usage != 0 {
			t.Errorf("accounts[%d] not default: %+v", i, a)
		}
	}
	if DefaultAccountName(2) != "Account 2" {
		t.Errorf("DefaultAccountName(2) = %q", DefaultAccountName(2))
	}
}

func TestAccount_CloneIsDeep(t *testing.T) {
	reset := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	original := Account{ID: 1, Usage: 40, ResetDate: &reset}

	clone := original.Clone()
	*clone.ResetDate = clone.ResetDate.Add(time.Hour)

	if !original.ResetDate.Equal(reset) {
		t.Errorf("mutating clone changed original reset date to %v", original.ResetDate)
	}
}

func TestAccount_ResetState(t *testing.T) {
	a := Account{ID: 1}
	if a.ResetState() != ResetNormal {
		t.Errorf("ResetState() = %v, want normal", a.ResetState())
	}
	a.NeedsAttention = true
	if a.ResetState() != ResetAwaitingDate {
		t.Errorf("ResetState() = %v, want awaiting", a.ResetState())
	}
	if ResetAwaitingDate.String() != "awaiting reset date" {
		t.Errorf("String() = %q", ResetAwaitingDate.String())
	}
}

func TestAccountPatch(t *testing.T) {
	reset := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	usage := 55.0
	flag := true

	tests := []struct {
		name  string
		patch AccountPatch
		check func(t *testing.T, a Account)
	}{
		{
			name:  "Empty",
			patch: AccountPatch{},
			check: func(t *testing.T, a Account) {
				if a.Usage != 10 || !a.HasResetDate() {
					t.Errorf("empty patch changed account: %+v", a)
				}
			},
		},
		{
			name:  "Usage",
			patch: AccountPatch{Usage: &usage},
			check: func(t *testing.T, a Account) {
				if a.Usage != 55 {
					t.Errorf("Usage = %v, want 55", a.Usage)
				}
			},
		},
		{
			name:  "ClearReset",
			patch: AccountPatch{ClearResetDate: true},
			check: func(t *testing.T, a Account) {
				if a.HasResetDate() {
					t.Error("reset date should be cleared")
				}
			},
		},
		{
			name:  "ResetAndFlag",
			patch: AccountPatch{ResetDate: &reset, NeedsAttention: &flag},
			check: func(t *testing.T, a Account) {
				if !a.ResetDate.Equal(reset) || !a.NeedsAttention {
					t.Errorf("patch not applied: %+v", a)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			old := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
			a := Account{ID: 1, Usage: 10, ResetDate: &old}
			tt.patch.Apply(&a)
			tt.check(t, a)
		})
	}

	if !(AccountPatch{}).IsEmpty() {
		t.Error("zero patch should be empty")
	}
	if (AccountPatch{Usage: &usage}).IsEmpty() {
		t.Error("usage patch should not be empty")
	}
}

func TestPatchFrom(t *testing.T) {
	a := Account{ID: 2, Usage: 30, NeedsAttention: true}
	p := PatchFrom(a)
	if !p.ClearResetDate || p.ResetDate != nil {
		t.Error("account without reset date should clear it")
	}

	var target Account
	p.Apply(&target)
	if target.Usage != 30 || !target.NeedsAttention {
		t.Errorf("applied = %+v", target)
	}
}

func TestCapacityMode(t *testing.T) {
	if CapacityNormal.Cap() != 100 || CapacityDoubled.Cap() != 200 {
		t.Error("unexpected capacities")
	}
	if CapacityNormal.Toggle() != CapacityDoubled || CapacityDoubled.Toggle() != CapacityNormal {
		t.Error("Toggle() did not switch modes")
	}

	tests := []struct {
		in      string
		want    CapacityMode
		wantErr bool
	}{
		{"normal", CapacityNormal, false},
		{"", CapacityNormal, false},
		{"X2", CapacityDoubled, false},
		{"doubled", CapacityDoubled, false},
		{"triple", "", true},
	}
	for _, tt := range tests {
		got, err := ParseCapacityMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCapacityMode(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseCapacityMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSettings(t *testing.T) {
	s := DefaultSettings()
	if s.Doubled() || s.Capacity() != 100 {
		t.Errorf("default settings = %+v", s)
	}

	s.AccountNames[1] = "Work"
	s.AccountNames[2] = "   "
	if s.NameFor(1) != "Work" {
		t.Errorf("NameFor(1) = %q", s.NameFor(1))
	}
	if s.NameFor(2) != "Account 2" {
		t.Errorf("blank name should fall back, got %q", s.NameFor(2))
	}

	clone := s.Clone()
	clone.AccountNames[1] = "Home"
	if s.AccountNames[1] != "Work" {
		t.Error("Clone() shares the names map")
	}
}

func TestSample(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	accounts := []Account{{ID: 1, Usage: 10}, {ID: 2, Usage: 20}, {ID: 3, Usage: 30}}
	s := NewSample(ts, accounts)

	if s.Value(2) != 20 || s.Value(9) != 0 {
		t.Errorf("Value() wrong: %+v", s.Usage)
	}
	if s.Total([]int{1, 2, 3}) != 60 {
		t.Errorf("Total() = %v, want 60", s.Total([]int{1, 2, 3}))
	}

	same := s.Clone()
	if !s.SameUsage(same) {
		t.Error("clone should have the same usage")
	}
	same.Usage[3] = 31
	if s.SameUsage(same) || s.Value(3) != 30 {
		t.Error("changed clone should differ and leave original intact")
	}

	extra := s.Clone()
	extra.Usage[4] = 0
	if !s.SameUsage(extra) {
		t.Error("a missing account reads as zero")
	}
	extra.Usage[4] = 5
	if s.SameUsage(extra) {
		t.Error("extra nonzero account should differ")
	}
}

func TestState(t *testing.T) {
	st := NewState(3)
	if st.UserID() != LocalUserID {
		t.Errorf("UserID() = %q, want local", st.UserID())
	}
	st.User = &User{ID: "u1", Email: "me@example.com"}
	if st.UserID() != "u1" || st.User.Name() != "me@example.com" {
		t.Errorf("user = %+v", st.User)
	}

	st.Settings.AccountNames[3] = "Spare"
	st.ApplyNames()
	if st.Account(3).Name != "Spare" || st.Account(1).Name != "Account 1" {
		t.Errorf("names not applied: %+v", st.Accounts)
	}
	if st.Account(4) != nil {
		t.Error("Account(4) should be nil")
	}
	if ids := st.AccountIDs(); len(ids) != 3 || ids[2] != 3 {
		t.Errorf("AccountIDs() = %v", ids)
	}

	st.History = []Sample{{Timestamp: time.Unix(10, 0), Usage: map[int]float64{1: 5}}}
	clone := st.Clone()
	clone.Accounts[0].Usage = 99
	clone.History[0].Usage[1] = 99
	clone.User.ID = "other"
	if st.Accounts[0].Usage != 0 || st.History[0].Usage[1] != 5 || st.User.ID != "u1" {
		t.Error("Clone() is not deep")
	}

	last, ok := st.LastSample()
	if !ok || last.Value(1) != 5 {
		t.Errorf("LastSample() = %+v, %v", last, ok)
	}
	var nilUser *User
	if nilUser.Name() != "local" {
		t.Error("nil user should be local")
	}
}

func TestTimeRange(t *testing.T) {
	tests := []struct {
		r    TimeRange
		name string
		days int
	}{
		{TimeRange7Days, "7 Days", 7},
		{TimeRange14Days, "14 Days", 14},
		{TimeRange30Days, "30 Days", 30},
		{TimeRangeAllTime, "All Time", 0},
	}
	for _, tt := range tests {
		if tt.r.String() != tt.name || tt.r.Days() != tt.days {
			t.Errorf("%d: %q/%d", tt.r, tt.r.String(), tt.r.Days())
		}
	}
	if TimeRangeAllTime.Next() != TimeRange7Days {
		t.Error("Next() should wrap")
	}
}

func TestReportHelpers(t *testing.T) {
	r := &Report{
		Projections: []Projection{{AccountID: 1, DaysRemaining: math.Inf(1)}, {AccountID: 2, DaysRemaining: 3}},
		Alerts: []Alert{
			{Level: SeverityInfo}, {Level: SeverityWarning}, {Level: SeverityDanger},
		},
	}
	r.Hourly[14] = 6
	r.Hourly[9] = 3
	r.Weekday[int(time.Tuesday)] = 4

	if p := r.Projection(1); p == nil || !p.Unbounded() {
		t.Error("projection 1 should be unbounded")
	}
	if p := r.Projection(2); p == nil || p.Unbounded() {
		t.Error("projection 2 should be bounded")
	}
	if r.Projection(3) != nil {
		t.Error("projection 3 should be nil")
	}
	if h, v := r.PeakHour(); h != 14 || v != 6 {
		t.Errorf("PeakHour() = %d, %v", h, v)
	}
	if d, _ := r.PeakWeekday(); d != time.Tuesday {
		t.Errorf("PeakWeekday() = %v", d)
	}
	if n := r.AlertCount(SeverityWarning); n != 2 {
		t.Errorf("AlertCount(warning) = %d, want 2", n)
	}
	if (PeriodComparison{Diff: -1}).Direction() != "down" {
		t.Error("Direction() wrong")
	}
}
