package tui

import "github.com/charmbracelet/lipgloss"

// Color palette (Tokyonight theme)
var (
	colorBorder = lipgloss.Color("#414868")
	colorMuted  = lipgloss.Color("#565f89")
	colorText   = lipgloss.Color("#a9b1d6")

	colorPrimary   = lipgloss.Color("#7aa2f7")
	colorSuccess   = lipgloss.Color("#9ece6a")
	colorWarning   = lipgloss.Color("#e0af68")
	colorSecondary = lipgloss.Color("#bb9af7")
	colorAccent    = lipgloss.Color("#7dcfff")
	colorRose      = lipgloss.Color("#f7768e")
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	tabStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true).
			Padding(0, 1)

	listStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	normalStyle = lipgloss.NewStyle().
			Foreground(colorText)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	selectedStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true)

	unplayableStyle = lipgloss.NewStyle().
			Foreground(colorRose).
			Strikethrough(true)

	nowPlayingStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	progressFillStyle  = lipgloss.NewStyle().Foreground(colorPrimary)
	progressTrackStyle = lipgloss.NewStyle().Foreground(colorBorder)

	waveStyle = lipgloss.NewStyle().Foreground(colorSecondary)

	statusPlayingStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	statusPausedStyle  = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)

	popupStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(colorSecondary).
			Padding(1, 2)

	helpKeyStyle  = lipgloss.NewStyle().Foreground(colorAccent)
	helpDescStyle = lipgloss.NewStyle().Foreground(colorMuted)
)
