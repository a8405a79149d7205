package history

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/usage-ledger-tui/internal/models"
	"github.com/j-veylop/usage-ledger-tui/internal/ui/components"
	"github.com/j-veylop/usage-ledger-tui/internal/ui/styles"
)

const recentSamples = 10

var allRanges = []models.TimeRange{
	models.TimeRange7Days,
	models.TimeRange14Days,
	models.TimeRange30Days,
	models.TimeRangeAllTime,
}

// View renders the history tab.
func (m *Model) View() string {
	m.refresh()

	sections := []string{m.renderHeader()}
	if m.confirmClear {
		sections = append(sections, m.renderConfirm())
	}

	if !m.data.summary.HasData() {
		sections = append(sections, m.renderEmpty())
	} else {
		sections = append(sections,
			m.renderChart(),
			m.renderDailyTrend(),
			m.renderRecent(),
		)
	}

	m.viewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, sections...))
	return m.viewport.View()
}

func (m *Model) nameFor(id int) string {
	if st := m.state.Ledger(); st != nil {
		if acc := st.Account(id); acc != nil {
			return acc.DisplayName()
		}
	}
	return models.DefaultAccountName(id)
}

func (m *Model) renderHeader() string {
	scope := "all accounts"
	if m.focused && len(m.data.ids) == 1 {
		scope = m.nameFor(m.data.ids[0])
	}
	title := styles.TitleStyle.Render("History: " + scope)

	rangeStyle := lipgloss.NewStyle().
		Foreground(styles.Primary).
		Bold(true).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Primary)

	var ranges []string
	for _, r := range allRanges {
		if r == m.timeRange {
			ranges = append(ranges, rangeStyle.Render(r.String()))
		} else {
			ranges = append(ranges, styles.HelpStyle.Padding(0, 1).Render(r.String()))
		}
	}
	selector := lipgloss.JoinHorizontal(lipgloss.Center, ranges...)

	header := lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", selector)

	sum := m.data.summary
	var subtitle string
	if sum.HasData() {
		subtitle = styles.HelpStyle.Render(fmt.Sprintf("%d samples · %s → %s · most used %s (avg %.1f%%)",
			sum.Count,
			sum.First.In(time.Local).Format("Jan 2, 2006"),
			sum.Last.In(time.Local).Format("Jan 2, 2006"),
			m.nameFor(sum.MostUsedID),
			sum.MostUsedAvg,
		))
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, subtitle, "")
}

func (m *Model) renderConfirm() string {
	n := len(m.state.History())
	prompt := styles.WarningTextStyle.Bold(true).Render(
		fmt.Sprintf("Delete all %d history samples? This cannot be undone.", n))
	hint := styles.HelpStyle.Render("y to confirm · n to cancel")
	return styles.FocusedBorderStyle.Render(lipgloss.JoinVertical(lipgloss.Left, prompt, hint))
}

func (m *Model) renderEmpty() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		styles.HelpStyle.Render("No history in this range."),
		styles.HelpStyle.Render("A sample is recorded whenever saved usage changes."),
	)
}

func (m *Model) renderChart() string {
	cardWidth := max(m.width-6, 40)

	series := make([]components.Series, 0, len(m.data.ids))
	for _, id := range m.data.ids {
		values := make([]float64, len(m.data.samples))
		for i, s := range m.data.samples {
			values[i] = s.Value(id)
		}
		series = append(series, components.Series{AccountID: id, Label: m.nameFor(id), Values: values})
	}

	chart := components.RenderUsageChart(series, max(cardWidth-12, 30), 8, m.state.Capacity(),
		fmt.Sprintf("Usage over %s", strings.ToLower(m.timeRange.String())))

	rows := []string{styles.CardTitleStyle.Render("Usage"), ""}
	for line := range strings.SplitSeq(chart, "\n") {
		rows = append(rows, "  "+line)
	}

	return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderDailyTrend() string {
	cardWidth := max(m.width-6, 40)
	rows := []string{styles.CardTitleStyle.Render("Daily Peak"), ""}

	if len(m.data.trend) == 0 {
		rows = append(rows, styles.HelpStyle.Render("  No daily data available"))
	}

	capacity := m.state.Capacity()
	for _, id := range m.data.ids {
		values := make([]float64, len(m.data.trend))
		for i, p := range m.data.trend {
			values[i] = p.Max[id]
		}
		if len(values) == 0 {
			continue
		}
		dot := lipgloss.NewStyle().Foreground(styles.AccountColor(id)).Render("●")
		spark := lipgloss.NewStyle().Foreground(styles.AccountColor(id)).
			Render(components.RenderSparkline(values, max(cardWidth-40, 10), capacity))
		rows = append(rows, fmt.Sprintf("  %s %-14s %s %s",
			dot, m.nameFor(id), spark,
			styles.HelpStyle.Render(fmt.Sprintf("%.0f%%", values[len(values)-1]))))
	}

	return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderRecent() string {
	cardWidth := max(m.width-6, 40)
	rows := []string{styles.CardTitleStyle.Render("Recent Samples"), ""}

	header := fmt.Sprintf("  %-16s", "Time")
	for _, id := range m.data.ids {
		header += fmt.Sprintf(" %10s", truncate(m.nameFor(id), 10))
	}
	rows = append(rows, styles.TableHeaderStyle.Render(header))

	samples := m.data.samples
	start := max(len(samples)-recentSamples, 0)
	for i := len(samples) - 1; i >= start; i-- {
		s := samples[i]
		line := fmt.Sprintf("  %-16s", s.Timestamp.In(time.Local).Format("Jan 2 15:04"))
		for _, id := range m.data.ids {
			line += fmt.Sprintf(" %9.1f%%", s.Value(id))
		}
		rows = append(rows, line)
	}

	return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
