package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Faint(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	helpStyle   = lipgloss.NewStyle().Faint(true)
)

type cellStyle int

const (
	styleNone cellStyle = iota
	styleSlot
	styleGridTitle
	styleItem
	styleContainer
	styleHeld
	styleTelegraph
)

var cellStyles = map[cellStyle]lipgloss.Style{
	styleNone:      lipgloss.NewStyle(),
	styleSlot:      lipgloss.NewStyle().Faint(true),
	styleGridTitle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
	styleItem:      lipgloss.NewStyle().Background(lipgloss.Color("24")).Foreground(lipgloss.Color("231")),
	styleContainer: lipgloss.NewStyle().Background(lipgloss.Color("94")).Foreground(lipgloss.Color("231")),
	styleHeld:      lipgloss.NewStyle().Background(lipgloss.Color("61")).Foreground(lipgloss.Color("231")).Bold(true),
	styleTelegraph: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
}
