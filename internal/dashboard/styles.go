package dashboard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Dashboard palette. Adaptive pairs pick the variant matching the
// terminal background, which termenv detects at startup.
var (
	ColorAccent = lipgloss.AdaptiveColor{Light: "#8839EF", Dark: "#B4A7FF"}
	ColorBorder = lipgloss.AdaptiveColor{Light: "#9CA0B0", Dark: "#45475A"}

	ColorHealthy  = lipgloss.AdaptiveColor{Light: "#40A02B", Dark: "#A6E3A1"}
	ColorWarning  = lipgloss.AdaptiveColor{Light: "#DF8E1D", Dark: "#F9E2AF"}
	ColorCritical = lipgloss.AdaptiveColor{Light: "#D20F39", Dark: "#F38BA8"}

	ColorTextPrimary   = lipgloss.AdaptiveColor{Light: "#4C4F69", Dark: "#CDD6F4"}
	ColorTextSecondary = lipgloss.AdaptiveColor{Light: "#6C6F85", Dark: "#A6ADC8"}
	ColorTextMuted     = lipgloss.AdaptiveColor{Light: "#8C8FA1", Dark: "#6C7086"}

	ColorGraph = lipgloss.AdaptiveColor{Light: "#179299", Dark: "#94E2D5"}
)

// Thresholds for metric severity levels.
const (
	WarningThreshold  = 70.0
	CriticalThreshold = 90.0
)

// Base styles for the dashboard.
var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Bold(true).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Padding(0, 1)

	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1).
			MarginRight(1)

	CardTitleStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary)

	// UnavailableStyle dims metrics that produced no data this cycle.
	UnavailableStyle = lipgloss.NewStyle().
				Foreground(ColorTextMuted).
				Italic(true)

	SelectedRowStyle = lipgloss.NewStyle().
				Foreground(ColorTextPrimary).
				Background(lipgloss.AdaptiveColor{Light: "#CCD0DA", Dark: "#313244"}).
				Bold(true)

	NoticeStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)
)

// Status indicator characters.
const (
	StatusConnected    = "◉"
	StatusReconnecting = "◐"
	StatusLost         = "◌"
)

// MetricColor returns the severity color for a percentage value:
// healthy below 70, warning from 70, critical from 90.
func MetricColor(percent float64) lipgloss.AdaptiveColor {
	switch {
	case percent >= CriticalThreshold:
		return ColorCritical
	case percent >= WarningThreshold:
		return ColorWarning
	default:
		return ColorHealthy
	}
}

// MetricStyle returns a style with the severity color for the value.
func MetricStyle(percent float64) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(MetricColor(percent))
}

// ProgressBar renders a percentage as a filled bar colored by severity.
func ProgressBar(width int, percent float64) string {
	if width < 1 {
		width = 1
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := int(percent / 100.0 * float64(width))
	if filled > width {
		filled = width
	}

	bar := strings.Repeat("▰", filled) + strings.Repeat("▱", width-filled)
	return MetricStyle(percent).Render(bar)
}
