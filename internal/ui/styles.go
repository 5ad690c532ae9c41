package ui

import "github.com/charmbracelet/lipgloss"

var (
	// Status colors
	GreenStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	RedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	YellowStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	CyanStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	MagentaStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	BoldStyle    = lipgloss.NewStyle().Bold(true)

	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	PendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	URLStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))

	SpinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	WarningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	TitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true)

	// Step log panel
	LogPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)

	// Duration label next to a step name
	DurationStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("246"))

	HelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			Padding(0, 1)
)
