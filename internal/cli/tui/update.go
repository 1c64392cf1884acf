package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.Quitting = true
			return m, tea.Quit
		case "l":
			m.ShowLogs = !m.ShowLogs
		case "o":
			if m.LocalURL != "" && m.OpenURL != nil {
				return m, openCmd(m.OpenURL, m.LocalURL)
			}
		}

	case OpenResultMsg:
		if msg.Error != "" {
			m.Error = msg.Error
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case TickMsg:
		// Continue ticking for timer updates
		m.Now = time.Time(msg)
		return m, tickCmd()

	case DoneMsg:
		m.Done = true
		return m, tea.Quit

	case PhaseMsg:
		m.Phase = msg.Phase
		m.PhaseIcon = phaseIcon(msg.Phase)
		if msg.Native != "" {
			m.Native = msg.Native
		}
		if msg.Error != "" {
			m.Error = msg.Error
		}

	case StateMsg:
		if msg.Native != "" {
			m.Native = msg.Native
		}

	case ResolvingMsg:
		m.Resolving = true

	case EndpointMsg:
		m.Resolving = false
		m.Node = msg.Node
		m.URL = msg.URL
		m.LocalURL = msg.LocalURL

	case ServiceFailedMsg:
		m.Resolving = false
		m.Error = msg.Error

	case TunnelMsg:
		t, ok := m.Tunnels[msg.LocalPort]
		if !ok {
			t = &TunnelState{LocalPort: msg.LocalPort}
			m.Tunnels[msg.LocalPort] = t
		}
		if msg.RemoteHost != "" {
			t.RemoteHost = msg.RemoteHost
			t.RemotePort = msg.RemotePort
		}
		t.Open = msg.Open
		t.Error = msg.Error

	case LogMsg:
		m.LogLines = append(m.LogLines, msg.Line)
		if m.LogLimit > 0 && len(m.LogLines) > m.LogLimit {
			m.LogLines = m.LogLines[len(m.LogLines)-m.LogLimit:]
		}
	}

	return m, nil
}

// phaseIcon returns the icon for a lifecycle phase name
func phaseIcon(phase string) string {
	switch phase {
	case "running":
		return IconActive
	case "ended":
		return IconComplete
	case "failed", "cancelled", "timed_out":
		return IconFailed
	case "abandoned":
		return IconAbandoned
	default:
		return IconWaiting
	}
}
