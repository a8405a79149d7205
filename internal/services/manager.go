// Package services provides service orchestration for the TUI.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gen2brain/beeep"

	"github.com/j-veylop/usage-ledger-tui/internal/config"
	"github.com/j-veylop/usage-ledger-tui/internal/db"
	"github.com/j-veylop/usage-ledger-tui/internal/engine"
	"github.com/j-veylop/usage-ledger-tui/internal/logger"
	"github.com/j-veylop/usage-ledger-tui/internal/metrics"
	"github.com/j-veylop/usage-ledger-tui/internal/models"
	"github.com/j-veylop/usage-ledger-tui/internal/services/auth"
	"github.com/j-veylop/usage-ledger-tui/internal/services/ledger"
	"github.com/j-veylop/usage-ledger-tui/internal/storage/redis"
	"github.com/j-veylop/usage-ledger-tui/internal/store"
)

const operationTimeout = 10 * time.Second

type (
	// StateUpdatedEvent is emitted whenever the state or the time-based
	// values derived from it change.
	StateUpdatedEvent struct {
		State  *models.State
		Report models.Report
	}

	// ResetAppliedEvent is emitted when automatic resets fired.
	ResetAppliedEvent struct {
		AccountIDs []int
	}

	// SavedEvent is emitted after a debounced save succeeded.
	SavedEvent struct {
		Appended bool
	}

	// SessionChangedEvent is emitted when another process signs in or out.
	SessionChangedEvent struct {
		User *models.User
	}

	// ErrorEvent is emitted when an error occurs in any service.
	ErrorEvent struct {
		Service string
		Error   error
	}
)

// ServiceEvent is the interface implemented by all service events.
type ServiceEvent interface {
	isServiceEvent()
}

func (StateUpdatedEvent) isServiceEvent()   {}
func (ResetAppliedEvent) isServiceEvent()   {}
func (SavedEvent) isServiceEvent()          {}
func (SessionChangedEvent) isServiceEvent() {}
func (ErrorEvent) isServiceEvent()          {}

// Notifier shows a desktop notification.
type Notifier func(title, message string) error

// DesktopNotifier sends notifications through beeep.
func DesktopNotifier(title, message string) error {
	return beeep.Notify(title, message, "")
}

// Options wires a Manager to its collaborators.
type Options struct {
	Store   store.Store
	Session *auth.SessionProvider // optional; nil runs as the local user
	Clock   engine.Clock
	Notify  Notifier // optional; nil disables notifications
	Backend string

	AccountCount       int
	CapacityMode       models.CapacityMode
	WindowDays         float64
	SaveDebounce       time.Duration
	ResetCheckInterval time.Duration
	RefreshInterval    time.Duration
	MetricsAddr        string
}

// Manager orchestrates services and event routing.
type Manager struct {
	mu          sync.RWMutex
	opts        Options
	store       store.Store
	session     *auth.SessionProvider
	ledger      *ledger.Service
	metrics     *metrics.Server
	stopChan    chan struct{}
	doneChan    chan struct{}
	saveResults chan ledger.SaveResult
	subscribers []chan ServiceEvent
	cancelFeeds []func()

	alertMu    sync.Mutex
	seenAlerts map[string]bool

	closeOnce sync.Once
}

// OpenStore opens the backend selected by the configuration.
func OpenStore(cfg *config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		s, err := redis.Open(redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open redis store: %w", err)
		}
		return s, nil
	default:
		database, err := db.New(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return database, nil
	}
}

// NewManager creates a service manager from the configuration.
func NewManager(cfg *config.Config) (*Manager, error) {
	st, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}

	session, err := auth.New(cfg.SessionPath)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	capacity, err := models.ParseCapacityMode(cfg.CapacityMode)
	if err != nil {
		_ = session.Close()
		_ = st.Close()
		return nil, err
	}

	opts := Options{
		Store:              st,
		Session:            session,
		Backend:            cfg.StoreBackend,
		AccountCount:       cfg.AccountCount,
		CapacityMode:       capacity,
		WindowDays:         cfg.RateWindowDays,
		SaveDebounce:       cfg.SaveDebounce,
		ResetCheckInterval: cfg.ResetCheckInterval,
		RefreshInterval:    cfg.RefreshInterval,
		MetricsAddr:        cfg.MetricsAddr,
	}
	if cfg.NotificationsEnabled {
		opts.Notify = DesktopNotifier
	}

	m, err := New(opts)
	if err != nil {
		_ = session.Close()
		_ = st.Close()
		return nil, err
	}
	return m, nil
}

// New creates a manager from explicit collaborators, loads the state of the
// current user and starts event routing.
func New(opts Options) (*Manager, error) {
	if opts.Store == nil {
		return nil, errors.New("store is required")
	}
	if opts.Clock == nil {
		opts.Clock = engine.RealClock{}
	}
	if opts.ResetCheckInterval <= 0 {
		opts.ResetCheckInterval = 5 * time.Minute
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = time.Minute
	}
	if opts.Backend == "" {
		opts.Backend = config.BackendSQLite
	}

	m := &Manager{
		opts:        opts,
		store:       opts.Store,
		session:     opts.Session,
		stopChan:    make(chan struct{}),
		doneChan:    make(chan struct{}),
		saveResults: make(chan ledger.SaveResult, 8),
		seenAlerts:  make(map[string]bool),
	}

	m.ledger = ledger.New(opts.Store, ledger.Config{
		Clock:           opts.Clock,
		DefaultCapacity: opts.CapacityMode,
		AccountCount:    opts.AccountCount,
		WindowDays:      opts.WindowDays,
		SaveDebounce:    opts.SaveDebounce,
	})
	m.ledger.OnSave(func(r ledger.SaveResult) {
		select {
		case m.saveResults <- r:
		default:
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	user, err := m.currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := m.ledger.Load(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	if _, err := m.checkResets(ctx); err != nil {
		logger.Warn("initial reset check failed", "error", err)
	}

	if opts.MetricsAddr != "" {
		m.metrics = metrics.NewServer(opts.MetricsAddr)
		if err := m.metrics.Start(); err != nil {
			logger.Warn("metrics server disabled", "addr", opts.MetricsAddr, "error", err)
			m.metrics = nil
		}
	}

	accountsCh, cancelAccounts := m.store.Subscribe(models.TableAccounts)
	settingsCh, cancelSettings := m.store.Subscribe(models.TableSettings)
	historyCh, cancelHistory := m.store.Subscribe(models.TableHistory)
	m.cancelFeeds = []func(){cancelAccounts, cancelSettings, cancelHistory}

	m.observe()

	go m.routeEvents(accountsCh, settingsCh, historyCh)

	return m, nil
}

func (m *Manager) currentUser(ctx context.Context) (*models.User, error) {
	if m.session == nil {
		return nil, nil
	}
	user, err := m.session.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return user, nil
}

// routeEvents turns change notifications, session changes and timer ticks
// into state updates for subscribers.
func (m *Manager) routeEvents(accountsCh, settingsCh, historyCh <-chan models.ChangeEvent) {
	defer close(m.doneChan)

	resetTicker := time.NewTicker(m.opts.ResetCheckInterval)
	defer resetTicker.Stop()
	refreshTicker := time.NewTicker(m.opts.RefreshInterval)
	defer refreshTicker.Stop()

	var sessionCh <-chan auth.Event
	if m.session != nil {
		sessionCh = m.session.Events()
	}

	for {
		select {
		case ev, ok := <-accountsCh:
			if !ok {
				accountsCh = nil
				continue
			}
			m.handleChange(ev)

		case ev, ok := <-settingsCh:
			if !ok {
				settingsCh = nil
				continue
			}
			m.handleChange(ev)

		case ev, ok := <-historyCh:
			if !ok {
				historyCh = nil
				continue
			}
			m.handleChange(ev)

		case ev := <-sessionCh:
			m.handleSessionEvent(ev)

		case r := <-m.saveResults:
			m.handleSaveResult(r)

		case <-resetTicker.C:
			ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
			if _, err := m.checkResets(ctx); err != nil {
				m.broadcast(ErrorEvent{Service: "ledger", Error: err})
			}
			cancel()
			m.publishState()

		case <-refreshTicker.C:
			m.publishState()

		case <-m.stopChan:
			return
		}
	}
}

// handleChange reloads the aggregate named by a change notification and
// then recomputes, so nothing is derived from partially stale state.
func (m *Manager) handleChange(ev models.ChangeEvent) {
	if ev.UserID != store.UserID(m.ledger.User()) {
		return
	}
	metrics.ChangeEventsTotal.WithLabelValues(string(ev.Table)).Inc()

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	if err := m.ledger.Reload(ctx, ev.Table); err != nil {
		logger.Error("failed to reload after change", "table", ev.Table, "error", err)
		m.ledger.SetSyncStatus(models.SyncError, err)
		m.broadcast(ErrorEvent{Service: "sync", Error: err})
	}
	m.publishState()
}

func (m *Manager) handleSessionEvent(ev auth.Event) {
	switch ev.Type {
	case auth.EventSessionChanged:
		if err := m.switchUser(ev.User); err != nil {
			m.broadcast(ErrorEvent{Service: "auth", Error: err})
			return
		}
		m.broadcast(SessionChangedEvent{User: ev.User})
		m.publishState()

	case auth.EventError:
		m.broadcast(ErrorEvent{Service: "auth", Error: ev.Error})
	}
}

// switchUser saves pending edits of the current user and loads user.
func (m *Manager) switchUser(user *models.User) error {
	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	if err := m.ledger.Flush(ctx); err != nil {
		logger.Warn("failed to save before switching user", "error", err)
	}
	if err := m.ledger.Load(ctx, user); err != nil {
		return fmt.Errorf("failed to load ledger: %w", err)
	}

	m.alertMu.Lock()
	m.seenAlerts = make(map[string]bool)
	m.alertMu.Unlock()

	logger.Info("switched user", "user", store.UserID(user))
	return nil
}

func (m *Manager) handleSaveResult(r ledger.SaveResult) {
	metrics.RecordSave(r.Err)
	if r.Err != nil {
		m.broadcast(ErrorEvent{Service: "ledger", Error: r.Err})
	} else {
		m.broadcast(SavedEvent{Appended: r.Appended})
	}
	m.publishState()
}

func (m *Manager) checkResets(ctx context.Context) ([]int, error) {
	changed, err := m.ledger.CheckResets(ctx)
	if len(changed) == 0 {
		return nil, err
	}

	metrics.ResetsTotal.Add(float64(len(changed)))
	m.broadcast(ResetAppliedEvent{AccountIDs: changed})

	st := m.ledger.Snapshot()
	for _, id := range changed {
		if acc := st.Account(id); acc != nil {
			m.notify("Usage reset: "+acc.DisplayName(), "Usage was reset to 0%. Set the next reset date.")
		}
	}
	return changed, err
}

// observe recomputes the report, updates metrics and notifications, and
// returns the update for subscribers.
func (m *Manager) observe() StateUpdatedEvent {
	st, report := m.ledger.View()
	metrics.Observe(st, &report)
	m.checkNotifications(report.Alerts)
	return StateUpdatedEvent{State: st, Report: report}
}

func (m *Manager) publishState() {
	m.broadcast(m.observe())
}

// checkNotifications notifies once per alert while it stays active.
func (m *Manager) checkNotifications(alerts []models.Alert) {
	m.alertMu.Lock()
	active := make(map[string]bool, len(alerts))
	var fresh []models.Alert
	for _, a := range alerts {
		if a.Level != models.SeverityDanger && a.Level != models.SeverityWarning {
			continue
		}
		key := fmt.Sprintf("%s/%d", a.Kind, a.AccountID)
		active[key] = true
		if !m.seenAlerts[key] {
			fresh = append(fresh, a)
		}
	}
	m.seenAlerts = active
	m.alertMu.Unlock()

	for _, a := range fresh {
		m.notify(a.Title, a.Description)
	}
}

func (m *Manager) notify(title, message string) {
	if m.opts.Notify == nil {
		return
	}
	if err := m.opts.Notify(title, message); err != nil {
		logger.Debug("notification failed", "error", err)
	}
}

// broadcast sends an event to all subscribers.
func (m *Manager) broadcast(event ServiceEvent) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber channel full, skip
		}
	}
}

// Subscribe creates a channel for receiving service events.
// Returns a tea.Cmd that can be used in Bubble Tea's Init or Update.
func (m *Manager) Subscribe() (chan ServiceEvent, tea.Cmd) {
	ch := make(chan ServiceEvent, 50)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	return ch, waitForEvent(ch)
}

// waitForEvent returns a tea.Cmd that waits for the next event.
func waitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return ev
	}
}

// WaitForEvent returns a tea.Cmd for the next event on a channel.
func WaitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return waitForEvent(ch)
}

// Unsubscribe removes a subscriber channel.
func (m *Manager) Unsubscribe(ch chan ServiceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// InitialState returns the current state and report for TUI initialization.
func (m *Manager) InitialState() StateUpdatedEvent {
	return m.observe()
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() *models.State {
	return m.ledger.Snapshot()
}

// Report returns the report for the current state.
func (m *Manager) Report() models.Report {
	return m.ledger.Report()
}

// SetUsage applies a usage edit. The save is debounced.
func (m *Manager) SetUsage(id int, usage float64) error {
	if err := m.ledger.SetUsage(id, usage); err != nil {
		return err
	}
	m.publishState()
	return nil
}

// SetResetDate applies a reset date edit. The save is debounced.
func (m *Manager) SetResetDate(id int, date time.Time) error {
	if err := m.ledger.SetResetDate(id, date); err != nil {
		return err
	}
	m.publishState()
	return nil
}

// SetName renames an account. The save is debounced.
func (m *Manager) SetName(id int, name string) error {
	if err := m.ledger.SetName(id, name); err != nil {
		return err
	}
	m.publishState()
	return nil
}

// ToggleCapacity switches between normal and doubled capacity.
func (m *Manager) ToggleCapacity(ctx context.Context) (models.CapacityMode, error) {
	mode, err := m.ledger.ToggleCapacity(ctx)
	m.publishState()
	return mode, err
}

// SaveNow writes pending edits immediately.
func (m *Manager) SaveNow(ctx context.Context) (bool, error) {
	appended, err := m.ledger.Save(ctx)
	metrics.RecordSave(err)
	m.publishState()
	return appended, err
}

// ClearHistory deletes the stored history of the current user.
func (m *Manager) ClearHistory(ctx context.Context) (bool, error) {
	cleared, err := m.ledger.ClearHistory(ctx)
	m.publishState()
	return cleared, err
}

// CheckResets runs the automatic reset check now.
func (m *Manager) CheckResets(ctx context.Context) ([]int, error) {
	changed, err := m.checkResets(ctx)
	m.publishState()
	return changed, err
}

// Ledger returns the ledger service.
func (m *Manager) Ledger() *ledger.Service {
	return m.ledger
}

// Session returns the session provider, nil without one.
func (m *Manager) Session() *auth.SessionProvider {
	return m.session
}

// Backend returns the name of the store backend.
func (m *Manager) Backend() string {
	return m.opts.Backend
}

// MetricsAddr returns the address the metrics server listens on, if any.
func (m *Manager) MetricsAddr() string {
	if m.metrics == nil {
		return ""
	}
	return m.metrics.Addr()
}

// Close closes the manager and all its services.
func (m *Manager) Close() error {
	var errs []error

	m.closeOnce.Do(func() {
		close(m.stopChan)
		<-m.doneChan

		for _, cancel := range m.cancelFeeds {
			cancel()
		}

		m.mu.Lock()
		for _, sub := range m.subscribers {
			close(sub)
		}
		m.subscribers = nil
		m.mu.Unlock()

		if err := m.ledger.Close(); err != nil {
			errs = append(errs, err)
		}

		if m.session != nil {
			if err := m.session.Close(); err != nil {
				errs = append(errs, err)
			}
		}

		if m.metrics != nil {
			if err := m.metrics.Stop(); err != nil {
				errs = append(errs, err)
			}
		}

		if err := m.store.Close(); err != nil {
			errs = append(errs, err)
		}
	})

	return errors.Join(errs...)
}
