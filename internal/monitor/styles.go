package monitor

import "github.com/charmbracelet/lipgloss"

// Palette
var (
	ColorAccent  = lipgloss.Color("#00D7FF")
	ColorText    = lipgloss.Color("#D0D0D0")
	ColorDim     = lipgloss.Color("#6C6C6C")
	ColorOK      = lipgloss.Color("#5FD75F")
	ColorWarning = lipgloss.Color("#FFAF00")
	ColorError   = lipgloss.Color("#FF5F5F")
	ColorBar     = lipgloss.Color("#003344")
)

// Pre-built styles
var (
	StyleHeader     = lipgloss.NewStyle().Background(ColorBar).Foreground(ColorAccent).Bold(true).Padding(0, 1)
	StylePanel      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(ColorDim).Padding(0, 1)
	StylePanelTitle = lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
	StyleLabel      = lipgloss.NewStyle().Foreground(ColorDim)
	StyleValue      = lipgloss.NewStyle().Foreground(ColorText)
	StyleOK         = lipgloss.NewStyle().Foreground(ColorOK).Bold(true)
	StyleWarn       = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	StyleError      = lipgloss.NewStyle().Foreground(ColorError)
	StyleBarFill    = lipgloss.NewStyle().Foreground(ColorAccent)
	StyleBarEmpty   = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFooter     = lipgloss.NewStyle().Foreground(ColorDim).Padding(0, 1)
)
