package reports

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/usage-ledger-tui/internal/models"
	"github.com/j-veylop/usage-ledger-tui/internal/ui/components"
	"github.com/j-veylop/usage-ledger-tui/internal/ui/styles"
)

const maxStreaks = 5

// View renders the reports tab.
func (m *Model) View() string {
	if m.state.IsInitialLoading() {
		return components.RenderSpinnerCentered(m.spinner, m.width, m.height)
	}

	report := m.state.Report()
	cardWidth := max(m.width-6, 60)

	sections := []string{
		m.renderTitle(&report),
		m.card("Efficiency", m.renderScores(&report), cardWidth),
		m.card("Alerts", m.renderAlerts(&report), cardWidth),
		m.card("Projections", m.renderTable(), cardWidth),
		m.card("Consumption", m.renderConsumption(&report), cardWidth),
		m.card("Patterns", m.renderPatterns(&report), cardWidth),
		m.card("Cycles & Balance", m.renderCycles(&report), cardWidth),
	}

	m.viewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, sections...))
	return m.viewport.View()
}

func (m *Model) card(title, body string, width int) string {
	return styles.CardStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, styles.CardTitleStyle.Render(title), body),
	)
}

func (m *Model) renderTitle(report *models.Report) string {
	title := styles.TitleStyle.Render("Reports")
	generated := "no report yet"
	if !report.GeneratedAt.IsZero() {
		generated = "generated " + report.GeneratedAt.In(time.Local).Format("Jan 2 15:04:05")
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, styles.HelpStyle.Render(generated), "")
}

// nameFor returns the display name of an account in the current ledger.
func (m *Model) nameFor(id int) string {
	if st := m.state.Ledger(); st != nil {
		if acc := st.Account(id); acc != nil {
			return acc.DisplayName()
		}
		return st.Settings.NameFor(id)
	}
	return models.DefaultAccountName(id)
}

func (m *Model) renderScores(report *models.Report) string {
	sc := report.Scores
	label := styles.GetEfficiencyStyle(sc.Label).Render(fmt.Sprintf("%d/100 %s", sc.Efficiency, sc.Label))

	lines := []string{
		fmt.Sprintf("%s %s", styles.LabelStyle.Render("Efficiency:"), label),
		fmt.Sprintf("%s %s  %s %s  %s %s",
			styles.LabelStyle.Render("Utilization"), scoreValue(sc.Utilization),
			styles.LabelStyle.Render("Balance"), scoreValue(sc.Balance),
			styles.LabelStyle.Render("Timing"), scoreValue(sc.Timing)),
	}

	rec := report.Recommendation
	if rec.AccountID != 0 {
		dot := lipgloss.NewStyle().Foreground(styles.AccountColor(rec.AccountID)).Render("▶")
		lines = append(lines, "", fmt.Sprintf("%s Recommended: %s %s",
			dot,
			styles.ValueStyle.Render(rec.Name),
			styles.HelpStyle.Render(fmt.Sprintf("(score %.0f, %.0f%% available)", rec.Score, rec.Available))))
		for _, reason := range rec.Reasons {
			lines = append(lines, styles.HelpStyle.Render("  · "+reason))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func scoreValue(v int) string {
	return styles.GetUsageStyle(float64(100 - v)).Render(fmt.Sprintf("%3d", v))
}

func (m *Model) renderAlerts(report *models.Report) string {
	floor := models.SeverityWarning
	if m.allAlerts {
		floor = models.SeverityOK
	}

	var lines []string
	for _, a := range report.Alerts {
		if !m.allAlerts && a.Level != models.SeverityWarning && a.Level != models.SeverityDanger {
			continue
		}
		style := styles.GetSeverityStyle(a.Level)
		lines = append(lines, fmt.Sprintf("%s %s", style.Render(styles.SeverityIcon(a.Level)), style.Render(a.Title)))
		if a.Description != "" {
			lines = append(lines, styles.HelpStyle.Render("   "+a.Description))
		}
	}

	if len(lines) == 0 {
		hidden := len(report.Alerts) - report.AlertCount(floor)
		msg := "No alerts"
		if hidden > 0 {
			msg = fmt.Sprintf("No warnings (%d informational, press a)", hidden)
		}
		return styles.SuccessTextStyle.Render("✓ " + msg)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// updateTableData refreshes the projection rows from the current report.
func (m *Model) updateTableData() {
	report := m.state.Report()

	rows := make([]table.Row, 0, len(report.Projections))
	for _, p := range report.Projections {
		rows = append(rows, table.Row{
			truncate(m.nameFor(p.AccountID), 14),
			fmt.Sprintf("%.1f%%", p.Usage),
			fmt.Sprintf("%.2f", p.Rate),
			daysLeft(p),
			formatDate(p.DepletionDate, p.Unbounded()),
			formatDate(p.ResetDate, false),
			balance(p),
			bandLabel(p.Band),
		})
	}

	m.table.SetRows(rows)
	m.table.SetHeight(len(rows) + 2)
}

func (m *Model) renderTable() string {
	if len(m.table.Rows()) == 0 {
		m.updateTableData()
	}
	if len(m.table.Rows()) == 0 {
		return styles.HelpStyle.Render("No projections")
	}
	return m.table.View()
}

func daysLeft(p models.Projection) string {
	switch {
	case p.Depleted:
		return "depleted"
	case p.Unbounded():
		return "∞"
	default:
		return fmt.Sprintf("%.1f", p.DaysRemaining)
	}
}

func formatDate(t *time.Time, never bool) string {
	if never {
		return "never"
	}
	if t == nil {
		return "-"
	}
	return t.In(time.Local).Format("Jan 2 15:04")
}

func balance(p models.Projection) string {
	if !p.HasReset() {
		return "-"
	}
	return fmt.Sprintf("%+.0f", p.TimeBalance)
}

func bandLabel(b models.Band) string {
	if b == models.BandNone {
		return "-"
	}
	return string(b)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func (m *Model) renderConsumption(report *models.Report) string {
	lines := []string{
		fmt.Sprintf("%s %s",
			styles.LabelStyle.Render("Average daily consumption:"),
			styles.ValueStyle.Render(fmt.Sprintf("%.1f%%/day", report.AverageDaily))),
		comparisonLine("This week", report.Week),
		comparisonLine("This month", report.Month),
	}

	if len(report.Speed) > 0 {
		lines = append(lines, "", styles.SubTitleStyle.Render("Speed"))
		for _, s := range report.Speed {
			lines = append(lines, fmt.Sprintf("  %-14s %s %s",
				truncate(m.nameFor(s.AccountID), 14),
				trendArrow(s.Trend),
				styles.HelpStyle.Render(fmt.Sprintf("%.1f → %.1f %%/day (%+.0f%%)", s.Older, s.Recent, s.ChangePercent))))
		}
	}

	var weekly []string
	for _, w := range report.WeekAverages {
		if !w.Comparable() {
			continue
		}
		weekly = append(weekly, fmt.Sprintf("  %-14s %.1f%% vs %.1f%% %s",
			truncate(m.nameFor(w.AccountID), 14), w.Current, w.Previous,
			diffStyle(w.Diff).Render(fmt.Sprintf("(%+.1f%%)", w.DiffPercent))))
	}
	if len(weekly) > 0 {
		lines = append(lines, "", styles.SubTitleStyle.Render("Weekly averages"))
		lines = append(lines, weekly...)
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func comparisonLine(label string, p models.PeriodComparison) string {
	arrow := map[string]string{"up": "↑", "down": "↓", "same": "→"}[p.Direction()]
	return fmt.Sprintf("%s %s %s",
		styles.LabelStyle.Render(label+":"),
		styles.ValueStyle.Render(fmt.Sprintf("%.1f%%", p.Current)),
		diffStyle(p.Diff).Render(fmt.Sprintf("%s %+.1f vs previous %d days", arrow, p.Diff, p.PeriodDays)))
}

func diffStyle(diff float64) lipgloss.Style {
	if diff > 0 {
		return styles.WarningTextStyle
	}
	return styles.HelpStyle
}

func trendArrow(t models.Trend) string {
	switch t {
	case models.TrendAccelerating:
		return styles.ErrorTextStyle.Render("▲ accelerating")
	case models.TrendSlowing:
		return styles.SuccessTextStyle.Render("▼ slowing")
	default:
		return styles.HelpStyle.Render("● stable")
	}
}

func (m *Model) renderPatterns(report *models.Report) string {
	hour, hourVal := report.PeakHour()
	day, dayVal := report.PeakWeekday()

	lines := []string{
		styles.LabelStyle.Render("By hour"),
		components.RenderHourlyHeatmap(report.Hourly[:]),
		"",
		styles.LabelStyle.Render("By weekday"),
		components.RenderWeeklyPattern(report.Weekday[:], nil),
	}

	if hourVal > 0 || dayVal > 0 {
		lines = append(lines, "", styles.HelpStyle.Render(fmt.Sprintf(
			"Peak hour %02d:00 (%.1f%%) · peak day %s (%.1f%%)", hour, hourVal, day, dayVal)))
	}

	if len(report.Rotation) > 0 {
		lines = append(lines, "", styles.SubTitleStyle.Render("Rotation"))
		for _, r := range report.Rotation {
			lines = append(lines, fmt.Sprintf("  %s → %s  %s",
				m.nameFor(r.From), m.nameFor(r.To), styles.HelpStyle.Render(fmt.Sprintf("×%d", r.Count))))
		}
	}

	if len(report.Streaks) > 0 {
		lines = append(lines, "", styles.SubTitleStyle.Render("Largest jumps"))
		for _, s := range topStreaks(report.Streaks, maxStreaks) {
			lines = append(lines, fmt.Sprintf("  %s  %s",
				styles.HelpStyle.Render(s.At.In(time.Local).Format("Jan 2 15:04")),
				styles.ValueStyle.Render(fmt.Sprintf("%+.1f%%", s.Total))))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// topStreaks returns the n streaks with the largest absolute change.
func topStreaks(streaks []models.Streak, n int) []models.Streak {
	sorted := make([]models.Streak, len(streaks))
	copy(sorted, streaks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return math.Abs(sorted[i].Total) > math.Abs(sorted[j].Total)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func (m *Model) renderCycles(report *models.Report) string {
	var lines []string

	c := report.Cycles
	if c.Count > 0 {
		lines = append(lines, fmt.Sprintf("%s %d cycles, avg %.1f%%, max %.1f%%, min %.1f%%",
			styles.LabelStyle.Render("Completed:"), c.Count, c.Average, c.Max, c.Min))
	} else {
		lines = append(lines, styles.HelpStyle.Render("No completed cycles yet"))
	}

	if len(report.Waste) > 0 {
		lines = append(lines, "", styles.SubTitleStyle.Render("Unused at reset"))
		for _, w := range report.Waste {
			lines = append(lines, fmt.Sprintf("  %-14s %s",
				truncate(m.nameFor(w.AccountID), 14),
				wasteStyle(w.Level).Render(fmt.Sprintf("%.0f%% (%s)", w.Percent, w.Level))))
		}
	}

	if len(report.Balance) > 0 {
		lines = append(lines, "", styles.SubTitleStyle.Render("Suggested split"))
		for _, b := range report.Balance {
			lines = append(lines, fmt.Sprintf("  %-14s %3d%%  %s",
				truncate(m.nameFor(b.AccountID), 14), b.SuggestedPercent,
				styles.HelpStyle.Render(fmt.Sprintf("%.0f%% used, resets in %.1fd", b.Usage, b.DaysToReset))))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func wasteStyle(level models.WasteLevel) lipgloss.Style {
	switch level {
	case models.WasteHigh:
		return styles.ErrorTextStyle
	case models.WasteMedium:
		return styles.WarningTextStyle
	default:
		return styles.SuccessTextStyle
	}
}
