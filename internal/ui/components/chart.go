// Package components provides reusable UI components for the TUI.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/j-veylop/usage-ledger-tui/internal/ui/styles"
)

// seriesColors mirror styles.AccountColors for asciigraph.
var seriesColors = []asciigraph.AnsiColor{
	asciigraph.DarkOrange,
	asciigraph.DeepSkyBlue,
	asciigraph.Orchid,
}

// Series is one line of a usage chart.
type Series struct {
	Label     string
	Values    []float64
	AccountID int
}

// RenderUsageChart plots one line per account between 0 and ceiling.
func RenderUsageChart(series []Series, width, height int, ceiling float64, caption string) string {
	maxLen := 0
	for _, s := range series {
		maxLen = max(maxLen, len(s.Values))
	}
	if maxLen < 2 {
		return styles.HelpStyle.Render("Not enough data to plot")
	}

	width = max(width, 20)
	height = max(height, 3)

	data := make([][]float64, len(series))
	colors := make([]asciigraph.AnsiColor, len(series))
	legends := make([]string, len(series))
	for i, s := range series {
		values := make([]float64, maxLen)
		copy(values, s.Values)
		// Shorter series hold their last value instead of dropping to zero.
		for j := len(s.Values); j < maxLen && len(s.Values) > 0; j++ {
			values[j] = s.Values[len(s.Values)-1]
		}
		data[i] = values
		colors[i] = seriesColor(s.AccountID)
		legends[i] = s.Label
	}

	opts := []asciigraph.Option{
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.LowerBound(0),
		asciigraph.SeriesColors(colors...),
		asciigraph.SeriesLegends(legends...),
		asciigraph.Precision(0),
	}
	if ceiling > 0 {
		opts = append(opts, asciigraph.UpperBound(ceiling))
	}
	if caption != "" {
		opts = append(opts, asciigraph.Caption(caption))
	}

	return asciigraph.PlotMany(data, opts...)
}

func seriesColor(id int) asciigraph.AnsiColor {
	if id < 1 {
		return asciigraph.Default
	}
	return seriesColors[(id-1)%len(seriesColors)]
}

// RenderBarChart creates a simple horizontal bar chart.
func RenderBarChart(values []float64, labels []string, width int) string {
	if len(values) == 0 {
		return ""
	}

	maxVal := 0.0
	for _, v := range values {
		maxVal = max(maxVal, v)
	}
	if maxVal == 0 {
		maxVal = 1
	}

	maxLabelLen := 0
	for _, l := range labels {
		maxLabelLen = max(maxLabelLen, lipgloss.Width(l))
	}

	barWidth := max(width-maxLabelLen-10, 10)

	var lines []string
	for i, v := range values {
		label := ""
		if i < len(labels) {
			label = labels[i]
		}

		barLen := max(int((v/maxVal)*float64(barWidth)), 0)
		bar := strings.Repeat("█", barLen)
		lines = append(lines, fmt.Sprintf("%*s │%s %.1f", maxLabelLen, label, bar, v))
	}

	return strings.Join(lines, "\n")
}

// HeatmapBlocks are Unicode block characters for heatmaps (low to high intensity).
var HeatmapBlocks = []rune{'░', '▒', '▓', '█'}

// RenderHourlyHeatmap creates a 24-hour usage heatmap.
func RenderHourlyHeatmap(patterns []float64) string {
	if len(patterns) != 24 {
		padded := make([]float64, 24)
		copy(padded, patterns)
		patterns = padded
	}

	maxVal := 0.0
	for _, v := range patterns {
		maxVal = max(maxVal, v)
	}
	if maxVal == 0 {
		maxVal = 1
	}

	var result strings.Builder
	result.WriteString("00 ")

	for i, v := range patterns {
		intensity := clampIndex(int((v/maxVal)*float64(len(HeatmapBlocks)-1)), len(HeatmapBlocks))

		var style lipgloss.Style
		switch intensity {
		case 0:
			style = lipgloss.NewStyle().Foreground(styles.Subtle)
		case 1:
			style = lipgloss.NewStyle().Foreground(styles.Success)
		case 2:
			style = lipgloss.NewStyle().Foreground(styles.Warning)
		default:
			style = lipgloss.NewStyle().Foreground(styles.Error)
		}

		result.WriteString(style.Render(string(HeatmapBlocks[intensity])))

		if i == 11 {
			result.WriteString(" ")
		}
	}

	result.WriteString(" 23")
	return result.String()
}

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// RenderWeeklyPattern creates a weekly usage visualization, Sunday first.
func RenderWeeklyPattern(patterns []float64, dayNames []string) string {
	if len(patterns) != 7 {
		padded := make([]float64, 7)
		copy(padded, patterns)
		patterns = padded
	}
	if len(dayNames) != 7 {
		dayNames = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	}

	maxVal := 0.0
	for _, v := range patterns {
		maxVal = max(maxVal, v)
	}
	if maxVal == 0 {
		maxVal = 1
	}

	parts := make([]string, 0, 7)
	for i, v := range patterns {
		intensity := clampIndex(int((v/maxVal)*float64(len(sparkChars)-1)), len(sparkChars))
		parts = append(parts, fmt.Sprintf("%s %s", dayNames[i], string(sparkChars[intensity])))
	}

	return strings.Join(parts, " ")
}

// RenderSparkline creates a compact inline sparkline scaled to ceiling. A
// ceiling of zero scales to the largest value.
func RenderSparkline(values []float64, width int, ceiling float64) string {
	if len(values) == 0 || width < 1 {
		return ""
	}

	if ceiling <= 0 {
		for _, v := range values {
			ceiling = max(ceiling, v)
		}
		if ceiling == 0 {
			ceiling = 1
		}
	}

	step := max(float64(len(values))/float64(width), 1)

	var result strings.Builder
	for i := 0; i < width && int(float64(i)*step) < len(values); i++ {
		val := values[int(float64(i)*step)]
		result.WriteRune(sparkChars[clampIndex(int((val/ceiling)*float64(len(sparkChars)-1)), len(sparkChars))])
	}

	return result.String()
}

// RenderLegend creates a chart legend.
func RenderLegend(items []LegendItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		colorBox := lipgloss.NewStyle().Foreground(item.Color).Render("■")
		parts = append(parts, fmt.Sprintf("%s %s", colorBox, item.Label))
	}
	return strings.Join(parts, "  ")
}

// LegendItem represents a single legend entry.
type LegendItem struct {
	Label string
	Color lipgloss.Color
}

func clampIndex(i, n int) int {
	return min(max(i, 0), n-1)
}
