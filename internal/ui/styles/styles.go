// Package styles defines the visual styling for the application.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/usage-ledger-tui/internal/models"
)

// Color definitions for the ledger theme.
var (
	// Primary colors
	Primary   = lipgloss.Color("205") // Pink
	Secondary = lipgloss.Color("63")  // Purple
	Subtle    = lipgloss.Color("240") // Gray

	// Status colors
	Success = lipgloss.Color("42")  // Green
	Error   = lipgloss.Color("196") // Red
	Warning = lipgloss.Color("220") // Yellow
	Info    = lipgloss.Color("39")  // Blue

	// Background colors
	BgDark   = lipgloss.Color("235")
	BgLight  = lipgloss.Color("237")
	BgAccent = lipgloss.Color("236")

	// Text colors
	TextPrimary   = lipgloss.Color("252")
	TextSecondary = lipgloss.Color("245")
	TextMuted     = lipgloss.Color("240")

	// AccountColors are the series colors of accounts 1..n, cycled.
	AccountColors = []lipgloss.Color{
		lipgloss.Color("208"), // Orange
		lipgloss.Color("39"),  // Blue
		lipgloss.Color("170"), // Magenta
	}

	// ToastStyle for floating notifications.
	ToastStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(0, 1).
			MarginBottom(1)
)

// TitleStyle is used for main headings.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary).
	MarginBottom(1)

// SubTitleStyle is used for section headings.
var SubTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Secondary)

// CardStyle creates a bordered card container.
var CardStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Subtle).
	Padding(0, 1)

// SelectedCardStyle highlights the selected card.
var SelectedCardStyle = CardStyle.
	BorderForeground(Primary)

// CardTitleStyle styles card headers.
var CardTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary)

// FocusedBorderStyle creates a focused border.
var FocusedBorderStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Primary).
	Padding(0, 1)

// ProgressLabelStyle styles progress bar labels.
var ProgressLabelStyle = lipgloss.NewStyle().
	Foreground(TextSecondary).
	Width(20)

// HelpStyle is the base style for help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(TextMuted)

// HelpKeyStyle styles keyboard shortcut keys.
var HelpKeyStyle = lipgloss.NewStyle().
	Foreground(Primary).
	Bold(true)

// HelpDescStyle styles help descriptions.
var HelpDescStyle = lipgloss.NewStyle().
	Foreground(TextSecondary)

// HelpPanelStyle creates the help overlay panel.
var HelpPanelStyle = lipgloss.NewStyle().
	Border(lipgloss.DoubleBorder()).
	BorderForeground(Primary).
	Padding(1, 3).
	Background(BgDark)

// LabelStyle styles field labels inside cards.
var LabelStyle = lipgloss.NewStyle().
	Foreground(TextSecondary)

// ValueStyle styles field values inside cards.
var ValueStyle = lipgloss.NewStyle().
	Foreground(TextPrimary).
	Bold(true)

// TableHeaderStyle styles table headers.
var TableHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary).
	BorderStyle(lipgloss.NormalBorder()).
	BorderBottom(true).
	BorderForeground(Subtle)

// TableCellStyle styles table cells.
var TableCellStyle = lipgloss.NewStyle().
	Padding(0, 1)

// UsageLowStyle for usage below half of the capacity.
var UsageLowStyle = lipgloss.NewStyle().
	Foreground(Success)

// UsageMediumStyle for usage between half and 80% of the capacity.
var UsageMediumStyle = lipgloss.NewStyle().
	Foreground(Warning)

// UsageHighStyle for usage at or above 80% of the capacity.
var UsageHighStyle = lipgloss.NewStyle().
	Foreground(Error).
	Bold(true)

// ErrorTextStyle for error messages.
var ErrorTextStyle = lipgloss.NewStyle().
	Foreground(Error)

// SuccessTextStyle for success messages.
var SuccessTextStyle = lipgloss.NewStyle().
	Foreground(Success)

// WarningTextStyle for warning messages.
var WarningTextStyle = lipgloss.NewStyle().
	Foreground(Warning)

// InfoTextStyle for info messages.
var InfoTextStyle = lipgloss.NewStyle().
	Foreground(Info)

// MutedTextStyle for placeholders.
var MutedTextStyle = lipgloss.NewStyle().
	Foreground(TextMuted).
	Italic(true)

// InputStyle frames text inputs.
var InputStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Primary).
	Padding(0, 1)

var ProjectionSafeStyle = lipgloss.NewStyle().
	Foreground(Success)

var ProjectionWarningStyle = lipgloss.NewStyle().
	Foreground(Warning).
	Bold(true)

var ProjectionCriticalStyle = lipgloss.NewStyle().
	Foreground(Error).
	Bold(true)

var ProjectionUnknownStyle = lipgloss.NewStyle().
	Foreground(Subtle)

// AccountColor returns the series color of an account.
func AccountColor(id int) lipgloss.Color {
	if id < 1 {
		return Subtle
	}
	return AccountColors[(id-1)%len(AccountColors)]
}

// GetUsageStyle returns the style for a usage expressed in 0-100% of the
// capacity.
func GetUsageStyle(normalized float64) lipgloss.Style {
	switch {
	case normalized >= 80:
		return UsageHighStyle
	case normalized >= 50:
		return UsageMediumStyle
	default:
		return UsageLowStyle
	}
}

// GetBandStyle returns the style of a time-balance band.
func GetBandStyle(band models.Band) lipgloss.Style {
	switch band {
	case models.BandNominal:
		return ProjectionSafeStyle
	case models.BandCaution:
		return ProjectionWarningStyle
	case models.BandCritical:
		return ProjectionCriticalStyle
	default:
		return ProjectionUnknownStyle
	}
}

// GetSeverityStyle returns the style of an alert level.
func GetSeverityStyle(level models.Severity) lipgloss.Style {
	switch level {
	case models.SeverityDanger:
		return ProjectionCriticalStyle
	case models.SeverityWarning:
		return ProjectionWarningStyle
	case models.SeverityInfo:
		return InfoTextStyle
	default:
		return ProjectionSafeStyle
	}
}

// SeverityIcon returns the marker shown in front of an alert.
func SeverityIcon(level models.Severity) string {
	switch level {
	case models.SeverityDanger:
		return "✗"
	case models.SeverityWarning:
		return "!"
	case models.SeverityInfo:
		return "i"
	default:
		return "✓"
	}
}

// GetEfficiencyStyle returns the style of an efficiency label.
func GetEfficiencyStyle(label models.EfficiencyLabel) lipgloss.Style {
	switch label {
	case models.EfficiencyExcellent:
		return SuccessTextStyle.Bold(true)
	case models.EfficiencyGood:
		return SuccessTextStyle
	case models.EfficiencyAverage:
		return WarningTextStyle
	default:
		return ErrorTextStyle
	}
}

// CenterHorizontal centers content horizontally within a given width.
func CenterHorizontal(content string, width int) string {
	return lipgloss.NewStyle().Width(width).Align(lipgloss.Center).Render(content)
}

// CenterBoth centers content both horizontally and vertically.
func CenterBoth(content string, width, height int) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center).
		AlignVertical(lipgloss.Center).
		Render(content)
}
