package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/usage-ledger-tui/internal/logger"
	"github.com/j-veylop/usage-ledger-tui/internal/ui/styles"
)

const (
	usageFrom = "#51cf66"
	usageTo   = "#ff6b6b"
	timeFrom  = "#ffd93d"
	timeTo    = "#6c5ce7"
)

// UsageBar renders consumption against the capacity. The gradient runs from
// green (fresh) to red (nearly depleted).
type UsageBar struct {
	progress progress.Model
}

// NewUsageBar creates a usage bar of the given width.
func NewUsageBar(width int) UsageBar {
	p := progress.New(
		progress.WithScaledGradient(usageFrom, usageTo),
		progress.WithWidth(max(width, 5)),
		progress.WithoutPercentage(),
	)
	return UsageBar{progress: p}
}

// Normalized returns usage as a 0-100 share of capacity.
func Normalized(usage, capacity float64) float64 {
	if capacity <= 0 {
		return 0
	}
	return min(max(usage/capacity*100, 0), 100)
}

// View renders "label [bar] usage%". The percentage is the raw usage; the
// fill is relative to capacity.
func (u UsageBar) View(usage, capacity float64, label string, width int) string {
	labelStr := styles.ProgressLabelStyle.Width(12).Render(label)
	norm := Normalized(usage, capacity)

	percentStr := styles.GetUsageStyle(norm).
		Width(12).
		Align(lipgloss.Right).
		Render(fmt.Sprintf("%.1f/%.0f%%", usage, capacity))

	u.progress.Width = max(width-lipgloss.Width(labelStr)-lipgloss.Width(percentStr)-1, 5)
	bar := u.progress.ViewAs(norm / 100)

	return lipgloss.JoinHorizontal(lipgloss.Center, labelStr, bar, " ", percentStr)
}

// ViewCompact renders the bar and the normalized percentage only.
func (u UsageBar) ViewCompact(usage, capacity float64, width int) string {
	norm := Normalized(usage, capacity)
	u.progress.Width = max(width-6, 5)

	bar := u.progress.ViewAs(norm / 100)
	percentStr := styles.GetUsageStyle(norm).Render(fmt.Sprintf("%3.0f%%", norm))

	return lipgloss.JoinHorizontal(lipgloss.Center, bar, " ", percentStr)
}

// RenderCycleBar draws the share of the reset cycle already elapsed with a
// marker at the current usage. A marker left of the fill edge means usage is
// behind the clock.
func RenderCycleBar(elapsedPercent, usagePercent float64, width int) string {
	if width < 1 {
		return ""
	}

	filled := min(max(int(float64(width)*elapsedPercent/100), 0), width)
	marker := min(max(int(float64(width)*usagePercent/100), 0), width-1)

	var b strings.Builder
	for i := range width {
		if i == marker {
			b.WriteString(lipgloss.NewStyle().Foreground(styles.TextPrimary).Bold(true).Render("│"))
			continue
		}
		if i < filled {
			t := float64(i) / float64(max(1, width-1))
			color := interpolateColor(timeFrom, timeTo, t)
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("█"))
		} else {
			b.WriteString(lipgloss.NewStyle().Foreground(styles.Subtle).Render("░"))
		}
	}

	return b.String()
}

// RenderGradientBar renders just the bar part with gradient colors.
func RenderGradientBar(percent float64, width int) string {
	if width < 1 {
		return ""
	}

	filled := min(max(int(float64(width)*percent/100), 0), width)

	var b strings.Builder
	for i := range width {
		if i < filled {
			t := float64(i) / float64(max(1, width-1))
			color := interpolateColor(usageFrom, usageTo, t)
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("█"))
		} else {
			b.WriteString(lipgloss.NewStyle().Foreground(styles.Subtle).Render("░"))
		}
	}

	return b.String()
}

func interpolateColor(fromHex, toHex string, t float64) string {
	from := hexToRGB(fromHex)
	to := hexToRGB(toHex)

	r := int(float64(from[0]) + t*(float64(to[0])-float64(from[0])))
	g := int(float64(from[1]) + t*(float64(to[1])-float64(from[1])))
	b := int(float64(from[2]) + t*(float64(to[2])-float64(from[2])))

	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func hexToRGB(hex string) [3]int {
	hex = strings.TrimPrefix(hex, "#")
	var r, g, b int
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		logger.Error("failed to parse hex color", "hex", hex, "error", err)
		return [3]int{0, 0, 0}
	}
	return [3]int{r, g, b}
}
