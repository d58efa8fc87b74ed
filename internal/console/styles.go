package console

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	Violet   = lipgloss.Color("#7c5cbf")
	OffWhite = lipgloss.Color("#f8f7f4")

	// Styles
	StatusBarStyle = lipgloss.NewStyle().
			Background(Violet).
			Foreground(OffWhite).
			Bold(true).
			Padding(0, 1)

	TranscriptStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Violet).
			Padding(1)

	InputBarStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Violet).
			Padding(0, 1)

	UserLineStyle = lipgloss.NewStyle().
			Foreground(OffWhite).
			Bold(true)

	GatewayLineStyle = lipgloss.NewStyle().
				Foreground(Violet)
)
