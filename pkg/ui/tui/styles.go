package tui

import "github.com/charmbracelet/lipgloss"

// Palette
var (
	colorAccent = lipgloss.Color("#FF3D3D")
	colorInfo   = lipgloss.Color("#5FD7FF")
	colorHit    = lipgloss.Color("#87FF5F")
	colorWarn   = lipgloss.Color("#FFAF00")
	colorError  = lipgloss.Color("#FF0000")
	colorValue  = lipgloss.Color("#FFFFFF")
	colorMuted  = lipgloss.Color("#8A8A8A")
	colorFaint  = lipgloss.Color("#5F5F5F")
	colorPanel  = lipgloss.Color("#1C1C1C")
	colorScreen = lipgloss.Color("#121212")
)

var (
	screenStyle = lipgloss.NewStyle().
			Background(colorScreen).
			Foreground(colorMuted)

	bannerStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true).
			Padding(1, 0).
			Align(lipgloss.Center)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Background(colorPanel).
			Padding(1, 2)

	panelTitleStyle = lipgloss.NewStyle().
			Background(colorAccent).
			Foreground(colorValue).
			Bold(true).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().Foreground(colorInfo).Bold(true)
	valueStyle = lipgloss.NewStyle().Foreground(colorValue)
	rateStyle  = lipgloss.NewStyle().Foreground(colorInfo)
	hitStyle   = lipgloss.NewStyle().Foreground(colorHit).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(colorWarn).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)
	faintStyle = lipgloss.NewStyle().Foreground(colorFaint)

	hitRowStyle = lipgloss.NewStyle().PaddingLeft(2)
	footerStyle = faintStyle.Padding(1, 0, 0, 2)
)
