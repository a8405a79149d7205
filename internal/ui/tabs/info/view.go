package info

import (
	"fmt"
	"runtime"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/usage-ledger-tui/internal/models"
	"github.com/j-veylop/usage-ledger-tui/internal/ui/styles"
	"github.com/j-veylop/usage-ledger-tui/internal/version"
)

// View renders the info tab.
func (m *Model) View() string {
	sections := []string{
		m.renderTitle(),
		m.renderSessionCard(),
		m.renderConfigCard(),
		m.renderAboutCard(),
	}

	m.viewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, sections...))
	return m.viewport.View()
}

func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Info")
	subtitle := styles.HelpStyle.Render("Session, storage and application information")

	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) cardWidth() int {
	return min(max(m.width-6, 50), 90)
}

func (m *Model) renderSessionCard() string {
	rows := []string{styles.CardTitleStyle.Render("Session"), ""}

	st := m.state.Ledger()
	if st == nil {
		rows = append(rows, styles.HelpStyle.Render("Ledger not loaded yet"))
		return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	rows = append(rows,
		m.renderRow("User", st.User.Name()),
		m.renderRow("Ledger ID", st.UserID()),
		m.renderRow("Sync", syncLabel(st.SyncStatus, st.LastError)),
	)
	if !st.LastSync.IsZero() {
		rows = append(rows, m.renderRow("Last Sync", st.LastSync.In(time.Local).Format("Jan 2 15:04:05")))
	}

	rows = append(rows,
		m.renderRow("Accounts", fmt.Sprintf("%d", len(st.Accounts))),
		m.renderRow("Capacity", fmt.Sprintf("%s (%.0f%%)", st.Settings.CapacityMode.Label(), st.Capacity())),
		m.renderRow("History", fmt.Sprintf("%d samples", len(st.History))),
	)

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func syncLabel(status models.SyncStatus, lastErr string) string {
	switch status {
	case models.SyncError:
		if lastErr != "" {
			return styles.ErrorTextStyle.Render("error: " + lastErr)
		}
		return styles.ErrorTextStyle.Render("error")
	case models.SyncSyncing:
		return styles.WarningTextStyle.Render("syncing")
	default:
		return styles.SuccessTextStyle.Render("synced")
	}
}

func (m *Model) renderConfigCard() string {
	rows := []string{styles.CardTitleStyle.Render("Configuration"), ""}

	backend := m.runtime.Backend
	if backend == "" {
		backend = "none"
	}
	rows = append(rows, m.renderRow("Backend", backend))

	if cfg := m.config; cfg != nil {
		if backend == "redis" {
			rows = append(rows, m.renderRow("Redis", fmt.Sprintf("%s db %d", cfg.RedisAddr, cfg.RedisDB)))
		} else {
			rows = append(rows, m.renderRow("Database", cfg.DatabasePath))
		}
		rows = append(rows,
			m.renderRow("Session File", cfg.SessionPath),
			m.renderRow("Reset Check", cfg.ResetCheckInterval.String()),
			m.renderRow("Refresh", cfg.RefreshInterval.String()),
			m.renderRow("Save Debounce", cfg.SaveDebounce.String()),
			m.renderRow("Rate Window", fmt.Sprintf("%.0f days", cfg.RateWindowDays)),
			m.renderRow("Notifications", onOff(cfg.NotificationsEnabled)),
		)
		if cfg.LogFile != "" {
			rows = append(rows, m.renderRow("Log File", cfg.LogFile))
		}
		if cfg.EnvFile != "" {
			rows = append(rows, m.renderRow("Env File", cfg.EnvFile))
		}
	} else {
		rows = append(rows, styles.HelpStyle.Render("Configuration not loaded"))
	}

	metrics := m.runtime.MetricsAddr
	if metrics == "" {
		metrics = "disabled"
	}
	rows = append(rows, m.renderRow("Metrics", metrics))

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// renderRow renders a key-value row.
func (m *Model) renderRow(label, value string) string {
	labelStyle := lipgloss.NewStyle().
		Width(16).
		Foreground(styles.TextMuted)

	valueStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimary)

	return labelStyle.Render(label+":") + " " + valueStyle.Render(value)
}

func (m *Model) renderAboutCard() string {
	rows := []string{
		styles.CardTitleStyle.Render("About " + version.Name),
		"",
		m.renderRow("Version", version.GetVersion()),
		m.renderRow("Commit", version.GetCommit()),
		m.renderRow("Build Date", version.GetDate()),
		m.renderRow("Go Version", runtime.Version()),
		m.renderRow("Platform", fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)),
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
