package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/j-veylop/usage-ledger-tui/internal/config"
	"github.com/j-veylop/usage-ledger-tui/internal/logger"
	"github.com/j-veylop/usage-ledger-tui/internal/models"
	"github.com/j-veylop/usage-ledger-tui/internal/services"
	"github.com/j-veylop/usage-ledger-tui/internal/services/auth"
	"github.com/j-veylop/usage-ledger-tui/internal/services/ledger"
	"github.com/j-veylop/usage-ledger-tui/internal/store"
)

const commandTimeout = 30 * time.Second

// ledgerSession is a loaded ledger for one-shot commands. Unlike the
// dashboard it does not watch the session file or subscribe to changes.
type ledgerSession struct {
	store   store.Store
	session *auth.SessionProvider
	ledger  *ledger.Service
}

// openLedger opens the configured store and loads the current user's ledger.
func openLedger(ctx context.Context, cfg *config.Config) (*ledgerSession, error) {
	st, err := services.OpenStore(cfg)
	if err != nil {
		return nil, err
	}

	session, err := auth.Load(cfg.SessionPath)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	return loadLedger(ctx, cfg, st, session)
}

func loadLedger(ctx context.Context, cfg *config.Config, st store.Store, session *auth.SessionProvider) (*ledgerSession, error) {
	capacity, err := models.ParseCapacityMode(cfg.CapacityMode)
	if err != nil {
		_ = session.Close()
		_ = st.Close()
		return nil, err
	}

	svc := ledger.New(st, ledger.Config{
		DefaultCapacity: capacity,
		AccountCount:    cfg.AccountCount,
		WindowDays:      cfg.RateWindowDays,
		SaveDebounce:    cfg.SaveDebounce,
	})

	user, err := session.CurrentUser(ctx)
	if err != nil {
		_ = session.Close()
		_ = st.Close()
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	if err := svc.Load(ctx, user); err != nil {
		_ = session.Close()
		_ = st.Close()
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	logger.Debug("ledger loaded", "user", user.Name(), "backend", cfg.StoreBackend)
	return &ledgerSession{store: st, session: session, ledger: svc}, nil
}

// Close writes pending edits and releases the store.
func (s *ledgerSession) Close() error {
	return errors.Join(s.ledger.Close(), s.session.Close(), s.store.Close())
}

// withLedger runs fn against a freshly loaded ledger and closes it afterwards.
func withLedger(fn func(ctx context.Context, s *ledgerSession) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.LogLevel, ""); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	s, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}

	runErr := fn(ctx, s)
	if closeErr := s.Close(); closeErr != nil {
		return errors.Join(runErr, fmt.Errorf("failed to close ledger: %w", closeErr))
	}
	return runErr
}
