package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorPass = lipgloss.AdaptiveColor{Light: "#86b300", Dark: "#c2d94c"}
	colorWarn = lipgloss.AdaptiveColor{Light: "#f2ae49", Dark: "#ffb454"}
	colorFail = lipgloss.AdaptiveColor{Light: "#f07171", Dark: "#f07178"}
	colorDim  = lipgloss.AdaptiveColor{Light: "#828c99", Dark: "#6c7680"}
	colorText = lipgloss.AdaptiveColor{Light: "#5c6166", Dark: "#bfbdb6"}
	colorSel  = lipgloss.AdaptiveColor{Light: "#e8e8e8", Dark: "#1a1f29"}
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true)
	styleLabel   = lipgloss.NewStyle().Foreground(colorDim)
	styleValue   = lipgloss.NewStyle().Foreground(colorText).Bold(true)
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
	styleSuccess = lipgloss.NewStyle().Foreground(colorPass)
	styleWarn    = lipgloss.NewStyle().Foreground(colorWarn)
	styleError   = lipgloss.NewStyle().Foreground(colorFail).Bold(true)

	styleTranscript = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)

	styleBar = lipgloss.NewStyle().
			Background(colorSel).
			Foreground(colorDim).
			Padding(0, 1)
)
