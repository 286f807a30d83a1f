// Package theme provides the Lip Gloss color palette and reusable styles
// for the lanify TUI. It is a leaf package with no internal imports
// to avoid import cycles.
package theme

import "github.com/charmbracelet/lipgloss"

// Severity colors.
var (
	ColorLow      = lipgloss.Color("#22c55e")
	ColorMedium   = lipgloss.Color("#d97706")
	ColorHigh     = lipgloss.Color("#f97316")
	ColorCritical = lipgloss.Color("#dc2626")
	ColorDefault  = lipgloss.Color("#9ca3af")
)

// Road colors.
var (
	ColorAsphalt  = lipgloss.Color("#1f2937")
	ColorLaneLine = lipgloss.Color("#facc15")
	ColorShoulder = lipgloss.Color("#f9fafb")
	ColorCar      = lipgloss.Color("#3b82f6")
	ColorCarAlert = lipgloss.Color("#dc2626")
)

// Connection state colors.
var (
	ColorConnecting = lipgloss.Color("#7c3aed")
	ColorConnected  = lipgloss.Color("#16a34a")
	ColorDormant    = lipgloss.Color("#374151")
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorBg      = lipgloss.Color("#111827")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
	ColorAccent  = lipgloss.Color("#06b6d4")
)

// SeverityColor returns the Lip Gloss color for a severity name.
func SeverityColor(severity string) lipgloss.Color {
	switch severity {
	case "low":
		return ColorLow
	case "medium":
		return ColorMedium
	case "high":
		return ColorHigh
	case "critical":
		return ColorCritical
	default:
		return ColorWarning
	}
}

// StateColor returns the color for a channel state name.
func StateColor(state string) lipgloss.Color {
	switch state {
	case "connected":
		return ColorConnected
	case "connecting", "idle":
		return ColorConnecting
	case "dormant", "closed":
		return ColorDormant
	default:
		return ColorDefault
	}
}

// StateGlyph returns a glyph for a channel state name.
func StateGlyph(state string) string {
	switch state {
	case "connected":
		return "●"
	case "connecting":
		return "◌"
	case "dormant":
		return "✗"
	default:
		return "○"
	}
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
			Foreground(ColorDimmed)

	StyleSelected = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)
)
