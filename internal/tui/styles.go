package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Status bar
	StatusConnectedStyle    = lipgloss.NewStyle().Background(lipgloss.Color("28")).Foreground(lipgloss.Color("255")).Padding(0, 1)
	StatusReconnectingStyle = lipgloss.NewStyle().Background(lipgloss.Color("166")).Foreground(lipgloss.Color("255")).Padding(0, 1)
	StatusNormalStyle       = lipgloss.NewStyle().Background(lipgloss.Color("235")).Foreground(lipgloss.Color("250")).Padding(0, 1)
	StatusErrorStyle        = lipgloss.NewStyle().Background(lipgloss.Color("196")).Foreground(lipgloss.Color("255")).Padding(0, 1)

	// Panes
	PaneStyle      = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), true).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	PaneTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))

	// Email list
	NormalRowStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "0", Dark: "15"})
	SelectedRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("63")).Bold(true)
	SecondaryStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "240", Dark: "244"})

	HighStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	MediumStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	LowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	// Preview
	HeaderKeyStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	BodyStyle      = lipgloss.NewStyle().MarginTop(1)

	HelpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)
