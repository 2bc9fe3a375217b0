package render

import "github.com/charmbracelet/lipgloss"

var (
	accentColor = lipgloss.Color("#ff9f1c")

	titleStyle      = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	countStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	inputBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#56526e")).Padding(0, 1)
	cursorStyle     = lipgloss.NewStyle().Reverse(true)
	helperStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ade80"))
	selectedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6"))
	checkStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ade80")).Bold(true)
	eprintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
	warningBox      = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("9")).Padding(1, 2)
	confirmBox      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accentColor).Padding(1, 2)
	helpBox         = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#7f5af0"))
	modalTitleStyle = lipgloss.NewStyle().Bold(true)
)
