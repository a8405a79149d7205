package db

import (
	"context"
	"testing"
	"time"

	"github.com/j-veylop/usage-ledger-tui/internal/models"
	"github.com/j-veylop/usage-ledger-tui/internal/store"
)

var historyAll = store.HistoryQuery{}

func float(v float64) *float64 { return &v }
func boolean(v bool) *bool     { return &v }

func waitEvent(t *testing.T, ch <-chan models.ChangeEvent) models.ChangeEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change event")
	}
	return models.ChangeEvent{}
}

func TestInitializeUserData(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.InitializeUserData(ctx, "u1", 3); err != nil {
		t.Fatalf("InitializeUserData() failed: %v", err)
	}

	accounts, err := db.GetAccounts(ctx, "u1")
	if err != nil {
		t.Fatalf("GetAccounts() failed: %v", err)
	}
	if len(accounts) != 3 {
		t.Fatalf("got %d accounts, want 3", len(accounts))
	}
	for i, acc := range accounts {
		if acc.ID != i+1 || acc.Usage != 0 || acc.ResetDate != nil || acc.NeedsAttention {
			t.Errorf("account %d = %+v", i+1, acc)
		}
	}

	settings, err := db.GetSettings(ctx, "u1")
	if err != nil || settings == nil {
		t.Fatalf("GetSettings() = %v, %v", settings, err)
	}
	if settings.CapacityMode != models.CapacityNormal {
		t.Errorf("CapacityMode = %q", settings.CapacityMode)
	}

	// Second run keeps existing data.
	if err := db.SaveAccount(ctx, "u1", 2, models.AccountPatch{Usage: float(40)}); err != nil {
		t.Fatalf("SaveAccount() failed: %v", err)
	}
	if err := db.InitializeUserData(ctx, "u1", 3); err != nil {
		t.Fatalf("second InitializeUserData() failed: %v", err)
	}
	acc, _ := db.GetAccount(ctx, "u1", 2)
	if acc == nil || acc.Usage != 40 {
		t.Errorf("account 2 after re-init = %+v", acc)
	}
}

func TestInitializeUserData_InvalidCount(t *testing.T) {
	db := newTestDB(t)
	if err := db.InitializeUserData(context.Background(), "u1", 4); err == nil {
		t.Error("expected error for 4 accounts")
	}
}

func TestGetAccount_NotFound(t *testing.T) {
	db := newTestDB(t)

	acc, err := db.GetAccount(context.Background(), "nobody", 1)
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	if acc != nil {
		t.Errorf("expected nil account, got %+v", acc)
	}
}

func TestSaveAccount_Patch(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	reset := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)

	if err := db.SaveAccount(ctx, "u1", 1, models.AccountPatch{Usage: float(55), ResetDate: &reset}); err != nil {
		t.Fatalf("SaveAccount() failed: %v", err)
	}
	if err := db.SaveAccount(ctx, "u1", 1, models.AccountPatch{NeedsAttention: boolean(true)}); err != nil {
		t.Fatalf("SaveAccount() failed: %v", err)
	}

	acc, err := db.GetAccount(ctx, "u1", 1)
	if err != nil || acc == nil {
		t.Fatalf("GetAccount() = %v, %v", acc, err)
	}
	if acc.Usage != 55 || !acc.NeedsAttention {
		t.Errorf("account = %+v", acc)
	}
	if acc.ResetDate == nil || !acc.ResetDate.Equal(reset) {
		t.Errorf("ResetDate = %v, want %v", acc.ResetDate, reset)
	}
	if acc.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}

	if err := db.SaveAccount(ctx, "u1", 1, models.AccountPatch{ClearResetDate: true}); err != nil {
		t.Fatalf("SaveAccount() failed: %v", err)
	}
	acc, _ = db.GetAccount(ctx, "u1", 1)
	if acc.ResetDate != nil {
		t.Errorf("ResetDate = %v, want nil", acc.ResetDate)
	}
}

func TestSaveAccount_InvalidNumber(t *testing.T) {
	db := newTestDB(t)
	if err := db.SaveAccount(context.Background(), "u1", 0, models.AccountPatch{}); err == nil {
		t.Error("expected error for account 0")
	}
}

func TestSaveAccount_IsolatedByUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_ = db.SaveAccount(ctx, "u1", 1, models.AccountPatch{Usage: float(10)})
	_ = db.SaveAccount(ctx, "u2", 1, models.AccountPatch{Usage: float(90)})

	acc, _ := db.GetAccount(ctx, "u1", 1)
	if acc == nil || acc.Usage != 10 {
		t.Errorf("u1 account = %+v", acc)
	}
}

func TestSaveAllAccounts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	reset := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	accounts := models.DefaultAccounts(3)
	accounts[0].Usage = 12.5
	accounts[2].ResetDate = &reset
	accounts[2].NeedsAttention = true

	if err := db.SaveAllAccounts(ctx, "u1", accounts); err != nil {
		t.Fatalf("SaveAllAccounts() failed: %v", err)
	}

	got, err := db.GetAccounts(ctx, "u1")
	if err != nil {
		t.Fatalf("GetAccounts() failed: %v", err)
	}
	if len(got) != 3 || got[0].Usage != 12.5 || !got[2].NeedsAttention || got[2].ResetDate == nil {
		t.Errorf("accounts = %+v", got)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	settings, err := db.GetSettings(ctx, "u1")
	if err != nil || settings != nil {
		t.Fatalf("GetSettings() on empty = %v, %v", settings, err)
	}

	in := models.Settings{
		CapacityMode: models.CapacityDoubled,
		AccountNames: map[int]string{1: "Work", 3: "Personal"},
	}
	if err := db.SaveSettings(ctx, "u1", in); err != nil {
		t.Fatalf("SaveSettings() failed: %v", err)
	}

	out, err := db.GetSettings(ctx, "u1")
	if err != nil || out == nil {
		t.Fatalf("GetSettings() = %v, %v", out, err)
	}
	if !out.Doubled() || out.NameFor(1) != "Work" || out.NameFor(3) != "Personal" || out.NameFor(2) != "Account 2" {
		t.Errorf("settings = %+v", out)
	}
}

func TestHistory(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	for i, u := range []float64{10, 20, 30} {
		s := &models.Sample{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Usage:     map[int]float64{1: u, 2: u / 2, 3: 0},
		}
		if err := db.SaveHistoryPoint(ctx, "u1", s); err != nil {
			t.Fatalf("SaveHistoryPoint() failed: %v", err)
		}
		if s.ID == 0 {
			t.Error("SaveHistoryPoint() should set ID")
		}
	}

	all, err := db.GetHistory(ctx, "u1", historyAll)
	if err != nil {
		t.Fatalf("GetHistory() failed: %v", err)
	}
	if len(all) != 3 || all[0].Value(1) != 10 || all[2].Value(2) != 15 {
		t.Errorf("history = %+v", all)
	}
	if !all[1].Timestamp.Equal(base.Add(time.Hour)) {
		t.Errorf("timestamp = %v", all[1].Timestamp)
	}

	latest, err := db.GetHistory(ctx, "u1", store.HistoryQuery{Descending: true, Limit: 1})
	if err != nil || len(latest) != 1 || latest[0].Value(1) != 30 {
		t.Errorf("latest = %+v, %v", latest, err)
	}

	since, err := db.GetHistory(ctx, "u1", store.HistoryQuery{Since: base.Add(90 * time.Minute)})
	if err != nil || len(since) != 1 {
		t.Errorf("since = %+v, %v", since, err)
	}

	other, _ := db.GetHistory(ctx, "u2", historyAll)
	if len(other) != 0 {
		t.Errorf("u2 history = %+v", other)
	}
}

func TestHistory_SameTimestampKeepsInsertOrder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	for _, u := range []float64{1, 2, 3} {
		_ = db.SaveHistoryPoint(ctx, "u1", &models.Sample{Timestamp: ts, Usage: map[int]float64{1: u}})
	}

	got, _ := db.GetHistory(ctx, "u1", historyAll)
	for i, want := range []float64{1, 2, 3} {
		if got[i].Value(1) != want {
			t.Errorf("sample %d = %v, want %v", i, got[i].Value(1), want)
		}
	}
}

func TestClearHistory(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	cleared, err := db.ClearHistory(ctx, "u1")
	if err != nil || cleared {
		t.Errorf("ClearHistory() on empty = %v, %v", cleared, err)
	}

	_ = db.SaveHistoryPoint(ctx, "u1", &models.Sample{Usage: map[int]float64{1: 1}})
	_ = db.SaveHistoryPoint(ctx, "u2", &models.Sample{Usage: map[int]float64{1: 1}})

	cleared, err = db.ClearHistory(ctx, "u1")
	if err != nil || !cleared {
		t.Errorf("ClearHistory() = %v, %v", cleared, err)
	}
	if n, _ := db.CountHistory(ctx, "u1"); n != 0 {
		t.Errorf("u1 count = %d", n)
	}
	if n, _ := db.CountHistory(ctx, "u2"); n != 1 {
		t.Errorf("u2 count = %d, other users must be untouched", n)
	}
}

func TestChangeEvents(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	accounts, cancelAccounts := db.Subscribe(models.TableAccounts)
	defer cancelAccounts()
	history, cancelHistory := db.Subscribe(models.TableHistory)
	defer cancelHistory()
	settings, cancelSettings := db.Subscribe(models.TableSettings)
	defer cancelSettings()

	_ = db.SaveAccount(ctx, "u1", 2, models.AccountPatch{Usage: float(5)})
	ev := waitEvent(t, accounts)
	if ev.Op != models.OpInsert || ev.UserID != "u1" || ev.AccountID != 2 || ev.Table != models.TableAccounts {
		t.Errorf("account event = %+v", ev)
	}

	_ = db.SaveAccount(ctx, "u1", 2, models.AccountPatch{Usage: float(6)})
	if ev := waitEvent(t, accounts); ev.Op != models.OpUpdate {
		t.Errorf("second account event = %+v", ev)
	}

	_ = db.SaveHistoryPoint(ctx, "u1", &models.Sample{Usage: map[int]float64{1: 1}})
	if ev := waitEvent(t, history); ev.Op != models.OpInsert {
		t.Errorf("history event = %+v", ev)
	}

	_, _ = db.ClearHistory(ctx, "u1")
	if ev := waitEvent(t, history); ev.Op != models.OpDelete {
		t.Errorf("clear event = %+v", ev)
	}

	_ = db.SaveSettings(ctx, "u1", models.DefaultSettings())
	if ev := waitEvent(t, settings); ev.Table != models.TableSettings {
		t.Errorf("settings event = %+v", ev)
	}
}
