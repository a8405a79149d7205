package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/j-veylop/usage-ledger-tui/internal/models"
	"github.com/j-veylop/usage-ledger-tui/internal/store"
)

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	s, err := Open(Options{Addr: mr.Addr(), Source: "test"})
	if err != nil {
		t.Fatalf("Failed to open Redis store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	return s, mr
}

func float(v float64) *float64 { return &v }
func boolean(v bool) *bool     { return &v }

func waitEvent(t *testing.T, ch <-chan models.ChangeEvent) models.ChangeEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
	return models.ChangeEvent{}
}

func TestOpen_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if _, err := Open(Options{Addr: addr}); err == nil {
		t.Error("expected error connecting to a stopped server")
	}
}

func TestInitializeUserData(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	if err := s.InitializeUserData(ctx, "u1", 3); err != nil {
		t.Fatalf("InitializeUserData failed: %v", err)
	}

	accounts, err := s.GetAccounts(ctx, "u1")
	if err != nil {
		t.Fatalf("GetAccounts failed: %v", err)
	}
	if len(accounts) != 3 {
		t.Fatalf("got %d accounts, want 3", len(accounts))
	}
	for i, acc := range accounts {
		if acc.ID != i+1 || acc.Usage != 0 || acc.NeedsAttention || acc.ResetDate != nil {
			t.Errorf("account %d = %+v", i+1, acc)
		}
	}

	settings, err := s.GetSettings(ctx, "u1")
	if err != nil || settings == nil || settings.Doubled() {
		t.Errorf("settings = %+v, %v", settings, err)
	}

	if err := s.SaveAccount(ctx, "u1", 1, models.AccountPatch{Usage: float(33)}); err != nil {
		t.Fatalf("SaveAccount failed: %v", err)
	}
	if err := s.InitializeUserData(ctx, "u1", 3); err != nil {
		t.Fatalf("second InitializeUserData failed: %v", err)
	}
	acc, _ := s.GetAccount(ctx, "u1", 1)
	if acc == nil || acc.Usage != 33 {
		t.Errorf("account 1 after re-init = %+v", acc)
	}
}

func TestGetAccount_NotFound(t *testing.T) {
	s, _ := setupTestStore(t)

	acc, err := s.GetAccount(context.Background(), "u1", 2)
	if err != nil || acc != nil {
		t.Errorf("GetAccount = %+v, %v; want nil, nil", acc, err)
	}
}

func TestSaveAccount_Patch(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()
	reset := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)

	if err := s.SaveAccount(ctx, "u1", 2, models.AccountPatch{Usage: float(72.5), ResetDate: &reset}); err != nil {
		t.Fatalf("SaveAccount failed: %v", err)
	}
	if err := s.SaveAccount(ctx, "u1", 2, models.AccountPatch{NeedsAttention: boolean(true)}); err != nil {
		t.Fatalf("SaveAccount failed: %v", err)
	}

	acc, err := s.GetAccount(ctx, "u1", 2)
	if err != nil || acc == nil {
		t.Fatalf("GetAccount = %v, %v", acc, err)
	}
	if acc.Usage != 72.5 || !acc.NeedsAttention || acc.ResetDate == nil || !acc.ResetDate.Equal(reset) {
		t.Errorf("account = %+v", acc)
	}

	if err := s.SaveAccount(ctx, "u1", 2, models.AccountPatch{ClearResetDate: true}); err != nil {
		t.Fatalf("SaveAccount failed: %v", err)
	}
	acc, _ = s.GetAccount(ctx, "u1", 2)
	if acc.ResetDate != nil {
		t.Errorf("ResetDate = %v, want nil", acc.ResetDate)
	}

	if err := s.SaveAccount(ctx, "u1", 4, models.AccountPatch{}); err == nil {
		t.Error("expected error for account 4")
	}
}

func TestSaveAllAccounts(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()
	reset := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	accounts := models.DefaultAccounts(3)
	accounts[0].ResetDate = &reset
	accounts[1].Usage = 64
	if err := s.SaveAllAccounts(ctx, "u1", accounts); err != nil {
		t.Fatalf("SaveAllAccounts failed: %v", err)
	}

	accounts[0].ResetDate = nil
	if err := s.SaveAllAccounts(ctx, "u1", accounts); err != nil {
		t.Fatalf("SaveAllAccounts failed: %v", err)
	}

	got, err := s.GetAccounts(ctx, "u1")
	if err != nil || len(got) != 3 {
		t.Fatalf("GetAccounts = %+v, %v", got, err)
	}
	if got[0].ResetDate != nil || got[1].Usage != 64 {
		t.Errorf("accounts = %+v", got)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	if got, err := s.GetSettings(ctx, "u1"); err != nil || got != nil {
		t.Fatalf("GetSettings on empty = %v, %v", got, err)
	}

	in := models.Settings{CapacityMode: models.CapacityDoubled, AccountNames: map[int]string{2: "Team"}}
	if err := s.SaveSettings(ctx, "u1", in); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}

	out, err := s.GetSettings(ctx, "u1")
	if err != nil || out == nil {
		t.Fatalf("GetSettings = %v, %v", out, err)
	}
	if !out.Doubled() || out.NameFor(2) != "Team" || out.NameFor(1) != "Account 1" {
		t.Errorf("settings = %+v", out)
	}
}

func TestHistory(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	points := []struct {
		offset time.Duration
		usage  float64
	}{
		{0, 10},
		{time.Hour, 20},
		{time.Hour, 25},
		{2 * time.Hour, 30},
	}
	for _, p := range points {
		sample := &models.Sample{Timestamp: base.Add(p.offset), Usage: map[int]float64{1: p.usage, 2: 1}}
		if err := s.SaveHistoryPoint(ctx, "u1", sample); err != nil {
			t.Fatalf("SaveHistoryPoint failed: %v", err)
		}
		if sample.ID == 0 {
			t.Error("SaveHistoryPoint should set ID")
		}
	}

	all, err := s.GetHistory(ctx, "u1", store.HistoryQuery{})
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	want := []float64{10, 20, 25, 30}
	if len(all) != len(want) {
		t.Fatalf("got %d samples, want %d", len(all), len(want))
	}
	for i, w := range want {
		if all[i].Value(1) != w {
			t.Errorf("sample %d = %v, want %v", i, all[i].Value(1), w)
		}
	}
	if !all[0].Timestamp.Equal(base) {
		t.Errorf("timestamp = %v, want %v", all[0].Timestamp, base)
	}

	latest, _ := s.GetHistory(ctx, "u1", store.HistoryQuery{Descending: true, Limit: 1})
	if len(latest) != 1 || latest[0].Value(1) != 30 {
		t.Errorf("latest = %+v", latest)
	}

	since, _ := s.GetHistory(ctx, "u1", store.HistoryQuery{Since: base.Add(time.Hour)})
	if len(since) != 3 {
		t.Errorf("since = %d samples, want 3", len(since))
	}

	if n, err := s.CountHistory(ctx, "u1"); err != nil || n != 4 {
		t.Errorf("CountHistory = %d, %v", n, err)
	}
}

func TestClearHistory(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	if cleared, err := s.ClearHistory(ctx, "u1"); err != nil || cleared {
		t.Errorf("ClearHistory on empty = %v, %v", cleared, err)
	}

	first := &models.Sample{Usage: map[int]float64{1: 5}}
	_ = s.SaveHistoryPoint(ctx, "u1", first)

	if cleared, err := s.ClearHistory(ctx, "u1"); err != nil || !cleared {
		t.Errorf("ClearHistory = %v, %v", cleared, err)
	}

	second := &models.Sample{Usage: map[int]float64{1: 6}}
	_ = s.SaveHistoryPoint(ctx, "u1", second)
	if second.ID <= first.ID {
		t.Errorf("sample ids reused: %d after %d", second.ID, first.ID)
	}
}

func TestChangeEventsAcrossClients(t *testing.T) {
	s, mr := setupTestStore(t)
	ctx := context.Background()

	other, err := Open(Options{Addr: mr.Addr(), Source: "other"})
	if err != nil {
		t.Fatalf("Failed to open second client: %v", err)
	}
	defer func() { _ = other.Close() }()

	ch, cancel := s.Subscribe(models.TableHistory)
	defer cancel()

	if err := other.SaveHistoryPoint(ctx, "u1", &models.Sample{Usage: map[int]float64{1: 1}}); err != nil {
		t.Fatalf("SaveHistoryPoint failed: %v", err)
	}

	ev := waitEvent(t, ch)
	if ev.Table != models.TableHistory || ev.Op != models.OpInsert || ev.UserID != "u1" || ev.Source != "other" {
		t.Errorf("event = %+v", ev)
	}
}

func TestChangeEventsFilteredByTable(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	accounts, cancelAccounts := s.Subscribe(models.TableAccounts)
	defer cancelAccounts()
	settings, cancelSettings := s.Subscribe(models.TableSettings)
	defer cancelSettings()

	_ = s.SaveAccount(ctx, "u1", 3, models.AccountPatch{Usage: float(1)})
	ev := waitEvent(t, accounts)
	if ev.AccountID != 3 || ev.Op != models.OpInsert {
		t.Errorf("account event = %+v", ev)
	}

	_ = s.SaveSettings(ctx, "u1", models.DefaultSettings())
	if ev := waitEvent(t, settings); ev.Op != models.OpUpdate {
		t.Errorf("settings event = %+v", ev)
	}

	select {
	case ev := <-accounts:
		t.Errorf("accounts subscriber received %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	s, _ := setupTestStore(t)
	ch, _ := s.Subscribe(models.TableAccounts)

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if _, ok := <-ch; ok {
		t.Error("subscription still open after Close")
	}
}

func TestDecodeSample(t *testing.T) {
	if _, err := decodeSample("no-separator"); err == nil {
		t.Error("expected error for malformed member")
	}

	in := &models.Sample{ID: 7, Timestamp: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Usage: map[int]float64{1: 3}}
	member, err := encodeSample(in)
	if err != nil {
		t.Fatalf("encodeSample failed: %v", err)
	}
	out, err := decodeSample(member)
	if err != nil || out.ID != 7 || out.Value(1) != 3 || !out.Timestamp.Equal(in.Timestamp) {
		t.Errorf("decodeSample = %+v, %v", out, err)
	}
}
