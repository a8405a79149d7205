package dashboard

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/usage-ledger-tui/internal/engine"
	"github.com/j-veylop/usage-ledger-tui/internal/models"
	"github.com/j-veylop/usage-ledger-tui/internal/ui/components"
	"github.com/j-veylop/usage-ledger-tui/internal/ui/styles"
)

const indentSpace = "    "

// View renders the dashboard component.
func (m *Model) View() string {
	if m.state.IsInitialLoading() {
		return components.RenderSpinnerCentered(m.spinner, m.width, m.height)
	}

	sections := []string{
		m.renderTitle(),
		m.renderRecommendation(),
		m.renderAccountList(),
	}

	m.viewport.Height = max(m.height-m.footerHeight(), 1)
	m.viewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, sections...))
	body := m.viewport.View()

	if m.editing != editNone {
		body = lipgloss.JoinVertical(lipgloss.Left, body, m.renderEditor())
	}
	return body
}

func (m *Model) renderTitle() string {
	capacity := m.state.Capacity()
	mode := models.CapacityNormal
	if capacity > 100 {
		mode = models.CapacityDoubled
	}

	title := styles.TitleStyle.Render("Usage Ledger")
	subtitle := styles.HelpStyle.Render(fmt.Sprintf(
		"%d accounts · capacity %s (%.0f%%)", len(m.state.Accounts()), mode.Label(), capacity))

	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) renderRecommendation() string {
	report := m.state.Report()
	rec := report.Recommendation
	if rec.AccountID == 0 {
		return ""
	}

	icon := lipgloss.NewStyle().Foreground(styles.AccountColor(rec.AccountID)).Render("▶")
	line := fmt.Sprintf("%s Use %s next  %s",
		icon,
		styles.ValueStyle.Render(rec.Name),
		styles.HelpStyle.Render(fmt.Sprintf("%.0f%% available", rec.Available)))

	lines := []string{line}
	if len(rec.Reasons) > 0 {
		lines = append(lines, styles.HelpStyle.Render("  "+strings.Join(rec.Reasons, " · ")))
	}

	if n := report.AlertCount(models.SeverityWarning); n > 0 {
		lines = append(lines, styles.WarningTextStyle.Render(
			fmt.Sprintf("  ! %d alert(s), see Reports", n)))
	}

	lines = append(lines, "")
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) renderAccountList() string {
	accounts := m.state.Accounts()
	cardWidth := max(m.width-6, 40)

	if len(accounts) == 0 {
		empty := fmt.Sprintf("  %s %s",
			lipgloss.NewStyle().Foreground(styles.Subtle).Render("○"),
			styles.HelpStyle.Render("No accounts"))
		return styles.CardStyle.Width(cardWidth).Render(empty)
	}

	report := m.state.Report()
	capacity := m.state.Capacity()
	selected := m.state.Selected()

	cards := make([]string, 0, len(accounts))
	for i := range accounts {
		acc := &accounts[i]
		card := m.renderAccountCard(acc, report.Projection(acc.ID), capacity, cardWidth-4)
		style := styles.CardStyle
		if i == selected {
			style = styles.SelectedCardStyle
		}
		cards = append(cards, style.Width(cardWidth).Render(card))
	}

	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

func (m *Model) renderAccountCard(acc *models.Account, proj *models.Projection, capacity float64, width int) string {
	lines := []string{m.renderAccountHeader(acc, proj)}

	lines = append(lines, m.usageBar.View(acc.Usage, capacity, "Usage", width))

	if proj != nil && proj.HasReset() {
		norm := components.Normalized(acc.Usage, capacity)
		barWidth := max(width-lipgloss.Width(indentSpace)-26, 10)
		cycle := components.RenderCycleBar(proj.ElapsedPercent, norm, barWidth)
		label := styles.HelpStyle.Render(fmt.Sprintf("cycle %3.0f%% elapsed", proj.ElapsedPercent))
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Left, indentSpace, cycle, "  ", label))
	}

	lines = append(lines, m.renderProjectionLine(acc, proj))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) renderAccountHeader(acc *models.Account, proj *models.Projection) string {
	dot := lipgloss.NewStyle().Foreground(styles.AccountColor(acc.ID)).Render("●")
	name := styles.CardTitleStyle.Render(acc.DisplayName())

	header := fmt.Sprintf("%s %s", dot, name)
	if proj != nil {
		header += "  " + renderBandBadge(proj)
	}
	if acc.NeedsAttention {
		header += "  " + styles.WarningTextStyle.Render("⚠ set the next reset date")
	}
	if !acc.UpdatedAt.IsZero() {
		header += "  " + styles.HelpStyle.Render("updated "+formatAgo(time.Since(acc.UpdatedAt)))
	}
	return header
}

func renderBandBadge(proj *models.Projection) string {
	style := styles.GetBandStyle(proj.Band)
	switch proj.Band {
	case models.BandNominal:
		return style.Render(fmt.Sprintf("● ON PACE %+.0f", proj.TimeBalance))
	case models.BandCaution:
		return style.Render(fmt.Sprintf("▲ CAUTION %+.0f", proj.TimeBalance))
	case models.BandCritical:
		return style.Render(fmt.Sprintf("▲ CRITICAL %+.0f", proj.TimeBalance))
	default:
		return style.Render("◇ NO RESET DATE")
	}
}

func (m *Model) renderProjectionLine(acc *models.Account, proj *models.Projection) string {
	if proj == nil {
		return indentSpace + styles.HelpStyle.Render("No projection yet")
	}

	var parts []string

	rateStyle := styles.HelpStyle
	if proj.Rate > 0 {
		rateStyle = styles.GetSeverityStyle(engine.RateStatus(proj.Rate))
	}
	parts = append(parts, rateStyle.Render(fmt.Sprintf("%.1f%%/day", proj.Rate)))

	switch {
	case proj.Depleted:
		parts = append(parts, styles.ErrorTextStyle.Render("depleted"))
	case proj.Unbounded():
		parts = append(parts, styles.HelpStyle.Render("no depletion at this pace"))
	default:
		depletion := "depletes in " + formatDays(proj.DaysRemaining)
		if proj.DepletionDate != nil {
			depletion += " (" + proj.DepletionDate.In(time.Local).Format("Jan 2 15:04") + ")"
		}
		style := styles.GetSeverityStyle(engine.DepletionStatus(proj.DaysRemaining))
		if proj.WillDepleteBeforeReset {
			style = styles.ErrorTextStyle
		}
		parts = append(parts, style.Render(depletion))
	}

	if acc.HasResetDate() {
		reset := fmt.Sprintf("resets %s (in %s)",
			acc.ResetDate.In(time.Local).Format("Jan 2 15:04"), formatDays(proj.DaysToReset))
		parts = append(parts, styles.LabelStyle.Render(reset))
	}

	return indentSpace + strings.Join(parts, styles.HelpStyle.Render(" · "))
}

func (m *Model) renderEditor() string {
	acc := m.state.Ledger()
	name := fmt.Sprintf("Account %d", m.editID)
	if acc != nil {
		if a := acc.Account(m.editID); a != nil {
			name = a.DisplayName()
		}
	}

	header := styles.SubTitleStyle.Render("Editing " + name)
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		styles.InputStyle.Render(m.input.View()),
	)
}

// formatDays renders a day count as "3d 04h" or "5h 30m".
func formatDays(days float64) string {
	if days <= 0 || math.IsInf(days, 0) || math.IsNaN(days) {
		return "---"
	}

	hours := days * 24
	h := int(hours)
	mins := int((hours - float64(h)) * 60)

	if h >= 24 {
		return fmt.Sprintf("%dd %02dh", h/24, h%24)
	}
	return fmt.Sprintf("%dh %02dm", h, mins)
}

func formatAgo(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
