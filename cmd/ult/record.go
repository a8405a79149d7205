package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/j-veylop/usage-ledger-tui/internal/engine"
	"github.com/j-veylop/usage-ledger-tui/internal/logger"
	"github.com/j-veylop/usage-ledger-tui/internal/services/ledger"
	"github.com/j-veylop/usage-ledger-tui/internal/ui/tabs/dashboard"
)

// recordInput holds the edits requested on the record command line. Empty
// strings leave the field unchanged.
type recordInput struct {
	Usage   string
	Reset   string
	Name    string
	Account int
}

var (
	record       recordInput
	flagConfirm  bool
	errNoChanges = errors.New("nothing to record: pass --usage, --reset or --name")
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record usage, reset date or name for an account",
	Example: `  ult record --account 1 --usage 42.5
  ult record -A 2 --reset "2026-11-01 09:00"`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return withLedger(func(ctx context.Context, s *ledgerSession) error {
			return applyRecord(ctx, os.Stdout, s.ledger, record, time.Local)
		})
	},
}

var resetCheckCmd = &cobra.Command{
	Use:   "reset-check",
	Short: "Apply automatic resets whose date has passed",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return withLedger(func(ctx context.Context, s *ledgerSession) error {
			return runResetCheck(ctx, os.Stdout, s.ledger)
		})
	},
}

var clearHistoryCmd = &cobra.Command{
	Use:   "clear-history",
	Short: "Delete all usage history of the current user",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		if !flagConfirm {
			return errors.New("refusing to clear history without --yes")
		}
		return withLedger(func(ctx context.Context, s *ledgerSession) error {
			cleared, err := s.ledger.ClearHistory(ctx)
			if err != nil {
				return err
			}
			if cleared {
				// The sqlite backend can hand the freed pages back to the filesystem.
				if v, ok := s.store.(interface{ Vacuum() error }); ok {
					if err := v.Vacuum(); err != nil {
						logger.Warn("vacuum after clearing history failed", "error", err)
					}
				}
				fmt.Println("History cleared.")
			} else {
				fmt.Println("History was already empty.")
			}
			return nil
		})
	},
}

func init() {
	recordCmd.Flags().IntVarP(&record.Account, "account", "A", 0, "Account number")
	recordCmd.Flags().StringVarP(&record.Usage, "usage", "u", "", "Usage percentage, e.g. 42.5 or 42,5%")
	recordCmd.Flags().StringVarP(&record.Reset, "reset", "r", "", `Next reset, "YYYY-MM-DD HH:MM" or "YYYY-MM-DD" in local time`)
	recordCmd.Flags().StringVar(&record.Name, "name", "", "Display name for the account")
	_ = recordCmd.MarkFlagRequired("account")

	clearHistoryCmd.Flags().BoolVarP(&flagConfirm, "yes", "y", false, "Confirm deletion")

	rootCmd.AddCommand(recordCmd, resetCheckCmd, clearHistoryCmd)
}

// applyRecord validates every requested edit before applying any, then
// saves immediately.
func applyRecord(ctx context.Context, w io.Writer, svc *ledger.Service, in recordInput, loc *time.Location) error {
	if in.Usage == "" && in.Reset == "" && in.Name == "" {
		return errNoChanges
	}

	var (
		usage float64
		reset time.Time
		err   error
	)
	st := svc.Snapshot()
	if st.Account(in.Account) == nil {
		return fmt.Errorf("%w: %d", engine.ErrUnknownAccount, in.Account)
	}
	if in.Usage != "" {
		if usage, err = dashboard.ParseUsage(in.Usage); err != nil {
			return fmt.Errorf("invalid usage: %w", err)
		}
		if err := engine.ValidateUsage(usage, st.Capacity()); err != nil {
			return err
		}
	}
	if in.Reset != "" {
		if reset, err = dashboard.ParseResetDate(in.Reset, loc); err != nil {
			return fmt.Errorf("invalid reset date: %w", err)
		}
		if !reset.After(svc.Now()) {
			return fmt.Errorf("%w: %s", engine.ErrResetDateNotFuture, reset.Format("2006-01-02 15:04"))
		}
	}

	if in.Usage != "" {
		if err := svc.SetUsage(in.Account, usage); err != nil {
			return err
		}
	}
	if in.Reset != "" {
		if err := svc.SetResetDate(in.Account, reset); err != nil {
			return err
		}
	}
	if in.Name != "" {
		if err := svc.SetName(in.Account, in.Name); err != nil {
			return err
		}
	}

	appended, err := svc.Save(ctx)
	if err != nil {
		return err
	}

	acc := svc.Snapshot().Account(in.Account)
	fmt.Fprintf(w, "Saved %s: %.1f%%", acc.DisplayName(), acc.Usage)
	if acc.ResetDate != nil {
		fmt.Fprintf(w, ", resets %s", cliDate(acc.ResetDate))
	}
	if appended {
		fmt.Fprint(w, " (history sample recorded)")
	}
	fmt.Fprintln(w)
	return nil
}

func runResetCheck(ctx context.Context, w io.Writer, svc *ledger.Service) error {
	reset, err := svc.CheckResets(ctx)
	if err != nil {
		return err
	}
	if len(reset) == 0 {
		fmt.Fprintln(w, "No resets due.")
		return nil
	}

	st := svc.Snapshot()
	for _, id := range reset {
		acc := st.Account(id)
		fmt.Fprintf(w, "Reset %s to 0%%, set its next reset date with: ult record -A %d --reset ...\n",
			acc.DisplayName(), id)
	}
	return nil
}
