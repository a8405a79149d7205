// Package ledger owns the application state: it loads a user's accounts,
// settings and history from a store, applies edits through the engine
// rules and writes them back.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/j-veylop/usage-ledger-tui/internal/engine"
	"github.com/j-veylop/usage-ledger-tui/internal/logger"
	"github.com/j-veylop/usage-ledger-tui/internal/models"
	"github.com/j-veylop/usage-ledger-tui/internal/store"
)

const (
	defaultSaveDebounce = 3 * time.Second
	saveTimeout         = 10 * time.Second
	maxNameLength       = 40
)

// ErrNotLoaded is returned by operations that need a loaded state.
var ErrNotLoaded = errors.New("ledger not loaded")

// Config tunes the service.
type Config struct {
	Clock           engine.Clock
	DefaultCapacity models.CapacityMode
	AccountCount    int
	WindowDays      float64
	SaveDebounce    time.Duration
}

// SaveResult describes a completed save.
type SaveResult struct {
	Err      error
	Appended bool
}

// Service guards the application state.
type Service struct {
	mu    sync.RWMutex
	store store.Store
	cfg   Config
	state *models.State

	loaded        bool
	dirtyAccounts bool
	dirtySettings bool
	// Bumped on every local change; a reload whose read overlapped one
	// drops its result.
	accountsRev uint64
	settingsRev uint64
	saveTimer     *time.Timer
	onSave        func(SaveResult)
}

// New creates a ledger service on top of a store.
func New(st store.Store, cfg Config) *Service {
	if cfg.Clock == nil {
		cfg.Clock = engine.RealClock{}
	}
	if cfg.AccountCount <= 0 {
		cfg.AccountCount = models.DefaultAccountCount
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = engine.DefaultRateWindowDays
	}
	if cfg.SaveDebounce <= 0 {
		cfg.SaveDebounce = defaultSaveDebounce
	}
	if cfg.DefaultCapacity == "" {
		cfg.DefaultCapacity = models.CapacityNormal
	}

	return &Service{
		store: st,
		cfg:   cfg,
		state: models.NewState(cfg.AccountCount),
	}
}

// OnSave registers a callback run after every debounced save.
func (s *Service) OnSave(fn func(SaveResult)) {
	s.mu.Lock()
	s.onSave = fn
	s.mu.Unlock()
}

// Now returns the current time of the service clock.
func (s *Service) Now() time.Time {
	return s.cfg.Clock.Now()
}

// Load reads everything stored for user, creating defaults on first use.
// A nil user loads the local user.
func (s *Service) Load(ctx context.Context, user *models.User) error {
	userID := store.UserID(user)

	existing, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if err := s.store.InitializeUserData(ctx, userID, s.cfg.AccountCount); err != nil {
		return fmt.Errorf("failed to initialize user data: %w", err)
	}

	// First use starts in the configured capacity mode.
	if existing == nil && s.cfg.DefaultCapacity != models.CapacityNormal {
		def := models.DefaultSettings()
		def.CapacityMode = s.cfg.DefaultCapacity
		if err := s.store.SaveSettings(ctx, userID, def); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
	}

	accounts, err := s.loadAccounts(ctx, userID)
	if err != nil {
		return err
	}
	settings, err := s.loadSettings(ctx, userID)
	if err != nil {
		return err
	}
	history, err := s.store.GetHistory(ctx, userID, store.HistoryQuery{})
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimerLocked()
	s.state = &models.State{
		User:       user,
		Accounts:   accounts,
		Settings:   settings,
		History:    history,
		SyncStatus: models.SyncSynced,
		LastSync:   s.cfg.Clock.Now(),
	}
	s.state.ApplyNames()
	s.loaded = true
	s.dirtyAccounts = false
	s.dirtySettings = false

	logger.Info("ledger loaded", "user", userID, "samples", len(history))
	return nil
}

// Reload re-reads one aggregate from the store after a change
// notification. Accounts and settings with unsaved local edits are kept;
// the pending save overwrites the remote change.
func (s *Service) Reload(ctx context.Context, table models.Table) error {
	s.mu.RLock()
	loaded := s.loaded
	userID := s.state.UserID()
	dirtyAccounts := s.dirtyAccounts
	dirtySettings := s.dirtySettings
	accountsRev := s.accountsRev
	settingsRev := s.settingsRev
	s.mu.RUnlock()

	if !loaded {
		return ErrNotLoaded
	}

	switch table {
	case models.TableAccounts:
		if dirtyAccounts {
			logger.Debug("skipping accounts reload with pending edits")
			return nil
		}
		accounts, err := s.loadAccounts(ctx, userID)
		if err != nil {
			return err
		}
		s.mu.Lock()
		if s.dirtyAccounts || s.accountsRev != accountsRev {
			s.mu.Unlock()
			logger.Debug("dropping accounts reload that raced a local edit")
			return nil
		}
		s.state.Accounts = accounts
		s.state.ApplyNames()
		s.mu.Unlock()

	case models.TableSettings:
		if dirtySettings {
			logger.Debug("skipping settings reload with pending edits")
			return nil
		}
		settings, err := s.loadSettings(ctx, userID)
		if err != nil {
			return err
		}
		s.mu.Lock()
		if s.dirtySettings || s.settingsRev != settingsRev {
			s.mu.Unlock()
			logger.Debug("dropping settings reload that raced a local edit")
			return nil
		}
		s.state.Settings = settings
		s.state.ApplyNames()
		s.mu.Unlock()

	case models.TableHistory:
		history, err := s.store.GetHistory(ctx, userID, store.HistoryQuery{})
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}
		s.mu.Lock()
		s.state.History = history
		s.mu.Unlock()

	default:
		return fmt.Errorf("unknown table %q", table)
	}

	s.mu.Lock()
	s.state.LastSync = s.cfg.Clock.Now()
	s.mu.Unlock()
	return nil
}

func (s *Service) loadAccounts(ctx context.Context, userID string) ([]models.Account, error) {
	stored, err := s.store.GetAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}

	accounts := models.DefaultAccounts(s.cfg.AccountCount)
	for _, acc := range stored {
		if acc.ID >= 1 && acc.ID <= len(accounts) {
			accounts[acc.ID-1] = acc
		}
	}
	return accounts, nil
}

func (s *Service) loadSettings(ctx context.Context, userID string) (models.Settings, error) {
	settings, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		return models.Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	if settings == nil {
		def := models.DefaultSettings()
		def.CapacityMode = s.cfg.DefaultCapacity
		return def, nil
	}
	if settings.AccountNames == nil {
		settings.AccountNames = map[int]string{}
	}
	return *settings, nil
}

// Snapshot returns a deep copy of the current state.
func (s *Service) Snapshot() *models.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// View returns a snapshot of the state and the report computed from it.
func (s *Service) View() (*models.State, models.Report) {
	st := s.Snapshot()
	opts := engine.DefaultReportOptions()
	opts.WindowDays = s.cfg.WindowDays
	return st, engine.BuildReport(st, opts, s.cfg.Clock.Now())
}

// Report builds the full report for the current state.
func (s *Service) Report() models.Report {
	_, r := s.View()
	return r
}

// User returns the user the state was loaded for, nil for the local user.
func (s *Service) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.User == nil {
		return nil
	}
	u := *s.state.User
	return &u
}

// Pending reports whether edits are waiting to be saved.
func (s *Service) Pending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirtyAccounts || s.dirtySettings
}

// SetUsage validates and applies a new usage value, then schedules a save.
func (s *Service) SetUsage(id int, usage float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.state.Account(id)
	if acc == nil {
		return fmt.Errorf("%w: %d", engine.ErrUnknownAccount, id)
	}
	if err := engine.SetUsage(acc, usage, s.state.Capacity(), s.cfg.Clock.Now()); err != nil {
		return err
	}

	s.dirtyAccounts = true
	s.accountsRev++
	s.scheduleSaveLocked()
	return nil
}

// SetResetDate validates and applies a reset date, then schedules a save.
func (s *Service) SetResetDate(id int, date time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.state.Account(id)
	if acc == nil {
		return fmt.Errorf("%w: %d", engine.ErrUnknownAccount, id)
	}
	if err := engine.SetResetDate(acc, date, s.cfg.Clock.Now()); err != nil {
		return err
	}

	s.dirtyAccounts = true
	s.accountsRev++
	s.scheduleSaveLocked()
	return nil
}

// SetName renames an account. An empty name restores the default label.
func (s *Service) SetName(id int, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.state.Account(id)
	if acc == nil {
		return fmt.Errorf("%w: %d", engine.ErrUnknownAccount, id)
	}

	name = strings.TrimSpace(name)
	if len([]rune(name)) > maxNameLength {
		name = string([]rune(name)[:maxNameLength])
	}
	if name == "" {
		delete(s.state.Settings.AccountNames, id)
	} else {
		s.state.Settings.AccountNames[id] = name
	}
	s.state.ApplyNames()

	s.dirtySettings = true
	s.settingsRev++
	s.scheduleSaveLocked()
	return nil
}

// ToggleCapacity switches between normal and doubled capacity and saves
// the settings right away. Stored usage values are not rescaled, so going
// back to normal is refused while an account is above the normal ceiling.
func (s *Service) ToggleCapacity(ctx context.Context) (models.CapacityMode, error) {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return "", ErrNotLoaded
	}
	current := s.state.Settings.CapacityMode
	next := current.Toggle()
	for _, acc := range s.state.Accounts {
		if err := engine.ValidateUsage(acc.Usage, next.Cap()); err != nil {
			s.mu.Unlock()
			return current, fmt.Errorf("%s is at %.1f%%, lower it before switching to %s: %w",
				acc.DisplayName(), acc.Usage, next.Label(), err)
		}
	}
	s.state.Settings.CapacityMode = next
	s.settingsRev++
	mode := s.state.Settings.CapacityMode
	settings := s.state.Settings.Clone()
	userID := s.state.UserID()
	s.mu.Unlock()

	if err := s.store.SaveSettings(ctx, userID, settings); err != nil {
		s.setSyncError(err)
		return mode, fmt.Errorf("failed to save settings: %w", err)
	}
	return mode, nil
}

// scheduleSaveLocked restarts the debounce timer. Must hold lock.
func (s *Service) scheduleSaveLocked() {
	if s.saveTimer != nil {
		s.saveTimer.Stop()
	}
	s.saveTimer = time.AfterFunc(s.cfg.SaveDebounce, s.debouncedSave)
}

func (s *Service) stopTimerLocked() {
	if s.saveTimer != nil {
		s.saveTimer.Stop()
		s.saveTimer = nil
	}
}

func (s *Service) debouncedSave() {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	appended, err := s.Save(ctx)
	if err != nil {
		logger.Error("debounced save failed", "error", err)
	}

	s.mu.RLock()
	onSave := s.onSave
	s.mu.RUnlock()
	if onSave != nil {
		onSave(SaveResult{Appended: appended, Err: err})
	}
}

// Save writes the accounts and settings and appends a history sample when
// usage differs from the last stored sample. It reports whether a sample
// was appended. Concurrent saves are last-write-wins.
func (s *Service) Save(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return false, ErrNotLoaded
	}
	s.stopTimerLocked()

	userID := s.state.UserID()
	now := s.cfg.Clock.Now()
	accounts := models.CloneAccounts(s.state.Accounts)
	settings := s.state.Settings.Clone()
	saveSettings := s.dirtySettings
	candidate := models.NewSample(now, accounts)
	var last *models.Sample
	if l, ok := s.state.LastSample(); ok {
		last = &l
	}

	s.dirtyAccounts = false
	s.dirtySettings = false
	s.accountsRev++
	if saveSettings {
		s.settingsRev++
	}
	s.state.SyncStatus = models.SyncSyncing
	s.mu.Unlock()

	if err := s.store.SaveAllAccounts(ctx, userID, accounts); err != nil {
		s.markDirty(true, saveSettings)
		s.setSyncError(err)
		return false, fmt.Errorf("failed to save accounts: %w", err)
	}

	if saveSettings {
		if err := s.store.SaveSettings(ctx, userID, settings); err != nil {
			s.markDirty(false, true)
			s.setSyncError(err)
			return false, fmt.Errorf("failed to save settings: %w", err)
		}
	}

	appended, err := s.appendSample(ctx, userID, last, candidate)
	if err != nil {
		s.setSyncError(err)
		return false, err
	}

	s.mu.Lock()
	s.state.SyncStatus = models.SyncSynced
	s.state.LastError = ""
	s.state.LastSync = now
	s.mu.Unlock()

	return appended, nil
}

// appendSample stores candidate when it differs from last and adds it to
// the in-memory history.
func (s *Service) appendSample(ctx context.Context, userID string, last *models.Sample, candidate models.Sample) (bool, error) {
	if !engine.ShouldAppend(last, candidate) {
		return false, nil
	}

	if err := s.store.SaveHistoryPoint(ctx, userID, &candidate); err != nil {
		return false, fmt.Errorf("failed to save history point: %w", err)
	}

	s.mu.Lock()
	// The store's change event may already have reloaded the sample.
	if !hasSample(s.state.History, candidate.ID) {
		s.state.History = append(s.state.History, candidate)
	}
	s.mu.Unlock()
	return true, nil
}

// hasSample reports whether history, in ascending id order, holds id.
func hasSample(history []models.Sample, id int64) bool {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].ID == id {
			return true
		}
		if history[i].ID < id {
			return false
		}
	}
	return false
}

// CheckResets applies automatic resets whose date has passed. When any
// account changed, a sample is appended and the accounts are persisted.
// It returns the ids of the accounts that were reset.
func (s *Service) CheckResets(ctx context.Context) ([]int, error) {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return nil, ErrNotLoaded
	}

	now := s.cfg.Clock.Now()
	changed := engine.ApplyAutoReset(s.state.Accounts, now)
	if len(changed) == 0 {
		s.mu.Unlock()
		return nil, nil
	}
	s.accountsRev++

	userID := s.state.UserID()
	accounts := models.CloneAccounts(s.state.Accounts)
	candidate := models.NewSample(now, accounts)
	var last *models.Sample
	if l, ok := s.state.LastSample(); ok {
		last = &l
	}
	s.mu.Unlock()

	logger.Info("automatic reset applied", "accounts", changed)

	if _, err := s.appendSample(ctx, userID, last, candidate); err != nil {
		s.setSyncError(err)
		return changed, err
	}

	for _, id := range changed {
		acc := accounts[id-1]
		if err := s.store.SaveAccount(ctx, userID, id, models.PatchFrom(acc)); err != nil {
			s.markDirty(true, false)
			s.setSyncError(err)
			return changed, fmt.Errorf("failed to save account %d: %w", id, err)
		}
	}
	return changed, nil
}

// ClearHistory deletes the stored history of the current user.
func (s *Service) ClearHistory(ctx context.Context) (bool, error) {
	s.mu.RLock()
	loaded := s.loaded
	userID := s.state.UserID()
	s.mu.RUnlock()

	if !loaded {
		return false, ErrNotLoaded
	}

	cleared, err := s.store.ClearHistory(ctx, userID)
	if err != nil {
		s.setSyncError(err)
		return false, fmt.Errorf("failed to clear history: %w", err)
	}

	s.mu.Lock()
	s.state.History = nil
	s.mu.Unlock()
	return cleared, nil
}

// SetSyncStatus records the persistence indicator.
func (s *Service) SetSyncStatus(status models.SyncStatus, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SyncStatus = status
	if err != nil {
		s.state.LastError = err.Error()
	} else {
		s.state.LastError = ""
	}
}

func (s *Service) setSyncError(err error) {
	s.SetSyncStatus(models.SyncError, err)
}

func (s *Service) markDirty(accounts, settings bool) {
	s.mu.Lock()
	if accounts {
		s.dirtyAccounts = true
		s.accountsRev++
	}
	if settings {
		s.dirtySettings = true
		s.settingsRev++
	}
	s.mu.Unlock()
}

// Flush saves pending edits immediately.
func (s *Service) Flush(ctx context.Context) error {
	if !s.Pending() {
		return nil
	}
	_, err := s.Save(ctx)
	return err
}

// Close cancels the debounce timer and writes pending edits.
func (s *Service) Close() error {
	s.mu.Lock()
	s.stopTimerLocked()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	return s.Flush(ctx)
}
