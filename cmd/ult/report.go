package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/j-veylop/usage-ledger-tui/internal/models"
)

var (
	flagReportJSON bool
	flagAllAlerts  bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print projections, alerts and the recommended account",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return withLedger(func(_ context.Context, s *ledgerSession) error {
			st, report := s.ledger.View()
			if flagReportJSON {
				return writeReportJSON(os.Stdout, st, report)
			}
			return writeReport(os.Stdout, st, report, flagAllAlerts)
		})
	},
}

func init() {
	reportCmd.Flags().BoolVar(&flagReportJSON, "json", false, "Output as JSON")
	reportCmd.Flags().BoolVarP(&flagAllAlerts, "all", "a", false, "Include informational alerts")
	rootCmd.AddCommand(reportCmd)
}

var reportTitleStyle = lipgloss.NewStyle().Bold(true)

// writeReport prints a plain-text report.
func writeReport(w io.Writer, st *models.State, report models.Report, allAlerts bool) error {
	fmt.Fprintln(w, reportTitleStyle.Render(fmt.Sprintf("Usage ledger · %s · capacity %s (%.0f%%)",
		st.User.Name(), st.Settings.CapacityMode.Label(), report.Capacity)))
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ACCOUNT\tUSAGE\tRATE/DAY\tDAYS LEFT\tDEPLETES\tRESETS\tBAND")
	for _, acc := range st.Accounts {
		p := report.Projection(acc.ID)
		if p == nil {
			continue
		}
		fmt.Fprintf(tw, "%s\t%.1f%%\t%.2f%%\t%s\t%s\t%s\t%s\n",
			acc.DisplayName(),
			p.Usage,
			p.Rate,
			cliDaysLeft(*p),
			cliDate(p.DepletionDate),
			cliDate(p.ResetDate),
			cliBand(*p),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	rec := report.Recommendation
	fmt.Fprintln(w)
	if rec.AccountID > 0 {
		fmt.Fprintf(w, "Recommended: %s (%.0f%% available)\n", rec.Name, rec.Available)
		for _, reason := range rec.Reasons {
			fmt.Fprintf(w, "  - %s\n", reason)
		}
	}
	fmt.Fprintf(w, "Efficiency: %d (%s)\n", report.Scores.Efficiency, report.Scores.Label)

	fmt.Fprintln(w)
	shown := 0
	for _, a := range report.Alerts {
		if !allAlerts && a.Level != models.SeverityWarning && a.Level != models.SeverityDanger {
			continue
		}
		if shown == 0 {
			fmt.Fprintln(w, "Alerts:")
		}
		fmt.Fprintf(w, "  [%s] %s: %s\n", a.Level, a.Title, a.Description)
		shown++
	}
	if shown == 0 {
		fmt.Fprintln(w, "No alerts.")
	}
	return nil
}

func cliDaysLeft(p models.Projection) string {
	switch {
	case p.Depleted:
		return "depleted"
	case p.Unbounded():
		return "-"
	default:
		return fmt.Sprintf("%.1f", p.DaysRemaining)
	}
}

func cliDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.In(time.Local).Format("2006-01-02 15:04")
}

func cliBand(p models.Projection) string {
	if p.Band == models.BandNone {
		return "no reset date"
	}
	return string(p.Band)
}

type projectionJSON struct {
	DepletionDate *time.Time  `json:"depletion_date,omitempty"`
	ResetDate     *time.Time  `json:"reset_date,omitempty"`
	DaysRemaining *float64    `json:"days_remaining,omitempty"`
	Name          string      `json:"name"`
	Band          models.Band `json:"band,omitempty"`
	AccountID     int         `json:"account"`
	Usage         float64     `json:"usage"`
	Rate          float64     `json:"rate_per_day"`
	TimeBalance   float64     `json:"time_balance"`
	Depleted      bool        `json:"depleted"`
}

type alertJSON struct {
	Kind        models.AlertKind `json:"kind"`
	Level       models.Severity  `json:"level"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	AccountID   int              `json:"account,omitempty"`
}

type reportJSON struct {
	GeneratedAt    time.Time             `json:"generated_at"`
	User           string                `json:"user"`
	Recommendation models.Recommendation `json:"recommendation"`
	Projections    []projectionJSON      `json:"projections"`
	Alerts         []alertJSON           `json:"alerts"`
	Scores         models.Scores         `json:"scores"`
	Capacity       float64               `json:"capacity"`
}

// writeReportJSON prints the report as indented JSON. Unbounded day counts
// are omitted since JSON has no infinity.
func writeReportJSON(w io.Writer, st *models.State, report models.Report) error {
	out := reportJSON{
		GeneratedAt:    report.GeneratedAt,
		User:           st.User.Name(),
		Recommendation: report.Recommendation,
		Projections:    make([]projectionJSON, 0, len(report.Projections)),
		Alerts:         make([]alertJSON, 0, len(report.Alerts)),
		Scores:         report.Scores,
		Capacity:       report.Capacity,
	}

	for _, p := range report.Projections {
		pj := projectionJSON{
			DepletionDate: p.DepletionDate,
			ResetDate:     p.ResetDate,
			Band:          p.Band,
			AccountID:     p.AccountID,
			Usage:         p.Usage,
			Rate:          p.Rate,
			TimeBalance:   p.TimeBalance,
			Depleted:      p.Depleted,
		}
		if acc := st.Account(p.AccountID); acc != nil {
			pj.Name = acc.DisplayName()
		}
		if !math.IsInf(p.DaysRemaining, 0) && !math.IsNaN(p.DaysRemaining) {
			days := p.DaysRemaining
			pj.DaysRemaining = &days
		}
		out.Projections = append(out.Projections, pj)
	}

	for _, a := range report.Alerts {
		out.Alerts = append(out.Alerts, alertJSON{
			Kind:        a.Kind,
			Level:       a.Level,
			Title:       a.Title,
			Description: a.Description,
			AccountID:   a.AccountID,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
