package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/j-veylop/usage-ledger-tui/internal/app"
	"github.com/j-veylop/usage-ledger-tui/internal/config"
	"github.com/j-veylop/usage-ledger-tui/internal/logger"
	"github.com/j-veylop/usage-ledger-tui/internal/services"
	"github.com/j-veylop/usage-ledger-tui/internal/ui/tabs/dashboard"
	"github.com/j-veylop/usage-ledger-tui/internal/ui/tabs/history"
	"github.com/j-veylop/usage-ledger-tui/internal/ui/tabs/info"
	"github.com/j-veylop/usage-ledger-tui/internal/ui/tabs/reports"
	"github.com/j-veylop/usage-ledger-tui/internal/version"
)

var (
	flagBackend   string
	flagDatabase  string
	flagRedisAddr string
	flagLogLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "ult",
	Short: "Usage ledger for a rotation of quota-limited accounts",
	Long: `ult tracks the usage percentage of a small set of accounts, projects when
each one runs out, and recommends which account to use next.

Run without arguments to open the dashboard.`,
	Version:       version.GetVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "Storage backend: sqlite or redis (overrides STORE_BACKEND)")
	rootCmd.PersistentFlags().StringVar(&flagDatabase, "db", "", "SQLite database path (overrides DATABASE_PATH)")
	rootCmd.PersistentFlags().StringVar(&flagRedisAddr, "redis-addr", "", "Redis address (overrides REDIS_ADDR)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	applyOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyOverrides(cfg *config.Config) {
	if flagBackend != "" {
		cfg.StoreBackend = flagBackend
	}
	if flagDatabase != "" {
		cfg.DatabasePath = flagDatabase
	}
	if flagRedisAddr != "" {
		cfg.RedisAddr = flagRedisAddr
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
}

func runTUI(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The dashboard owns the terminal, so logs only go to the file.
	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logger.Close()

	mgr, err := services.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() {
		if closeErr := mgr.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: error closing services: %v\n", closeErr)
		}
	}()

	model := app.NewModel(mgr)
	state := model.GetState()
	commands := model.GetCommands()
	model.SetTabs([]app.Tab{
		dashboard.New(state, commands),
		reports.New(state),
		history.New(state, commands),
		info.New(state, cfg, info.Runtime{
			Backend:     mgr.Backend(),
			MetricsAddr: mgr.MetricsAddr(),
		}),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())

	go func() {
		<-sigChan
		p.Send(tea.Quit())
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
