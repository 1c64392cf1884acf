package tui

import "github.com/charmbracelet/lipgloss"

// Styles contains all lipgloss styles for the TUI
type Styles struct {
	// Header styling
	Title   lipgloss.Style
	Timer   lipgloss.Style
	Cluster lipgloss.Style

	// Phase styling
	PhaseActive   lipgloss.Style
	PhaseComplete lipgloss.Style
	PhaseFailed   lipgloss.Style
	PhaseWaiting  lipgloss.Style
	Native        lipgloss.Style

	// Endpoint lines
	Label lipgloss.Style
	Value lipgloss.Style
	URL   lipgloss.Style
	Error lipgloss.Style

	// Footer styling
	Footer    lipgloss.Style
	FooterKey lipgloss.Style

	// Log area styling
	LogTitle lipgloss.Style
	LogLine  lipgloss.Style
}

// DefaultStyles returns the default TUI styles
func DefaultStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Timer:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Cluster: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),

		PhaseActive:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		PhaseComplete: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		PhaseFailed:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		PhaseWaiting:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Native:        lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Italic(true),

		Label: lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(10),
		Value: lipgloss.NewStyle().Bold(true),
		URL:   lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Underline(true),
		Error: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),

		Footer:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")).MarginTop(1),
		FooterKey: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),

		LogTitle: lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Bold(true),
		LogLine:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

// Icons used in the TUI
const (
	IconActive    = "●"
	IconComplete  = "✓"
	IconFailed    = "✗"
	IconWaiting   = "⏳"
	IconTunnel    = "⇄"
	IconAbandoned = "↩"
)
