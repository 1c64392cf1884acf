package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View implements tea.Model
func (m *Model) View() string {
	if m.Done || m.Quitting {
		return ""
	}

	var b strings.Builder

	// Header
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	// Phase and endpoint
	b.WriteString(m.renderPhase())
	b.WriteString(m.renderEndpoint())

	// Log tail
	if m.ShowLogs {
		b.WriteString(m.renderLogs())
	}

	// Footer
	b.WriteString(m.renderFooter())

	return b.String()
}

// renderHeader renders the title line with cluster, job and timer
func (m *Model) renderHeader() string {
	elapsed := m.Now.Sub(m.StartTime).Round(time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	timer := fmt.Sprintf("[%s]", formatDuration(elapsed))

	return fmt.Sprintf("%s  %s  %s",
		m.Styles.Title.Render(fmt.Sprintf("hpctui · job %s", m.JobID)),
		m.Styles.Cluster.Render(m.Cluster),
		m.Styles.Timer.Render(timer),
	)
}

// renderPhase renders the phase line: ● running (RUNNING)
func (m *Model) renderPhase() string {
	style := m.phaseStyle()
	line := fmt.Sprintf("  %s %s", style.Render(m.PhaseIcon), style.Render(m.Phase))
	if m.Native != "" {
		line += " " + m.Styles.Native.Render("("+m.Native+")")
	}
	if m.Resolving {
		line += " " + m.Styles.Native.Render("waiting for the service...")
	}
	return line + "\n"
}

func (m *Model) phaseStyle() lipgloss.Style {
	switch m.PhaseIcon {
	case IconActive:
		return m.Styles.PhaseActive
	case IconComplete:
		return m.Styles.PhaseComplete
	case IconFailed:
		return m.Styles.PhaseFailed
	default:
		return m.Styles.PhaseWaiting
	}
}

// renderEndpoint renders node, URLs, tunnels and the last error
func (m *Model) renderEndpoint() string {
	var b strings.Builder
	row := func(label, value string) {
		fmt.Fprintf(&b, "  %s %s\n", m.Styles.Label.Render(label), value)
	}

	if m.Node != "" {
		row("node", m.Styles.Value.Render(m.Node))
		if m.ShellHint != nil {
			row("shell", m.ShellHint(m.Node))
		}
	}
	if m.URL != "" {
		row("service", m.URL)
	}
	if m.LocalURL != "" {
		row("open", m.Styles.URL.Render(m.LocalURL))
	}

	ports := make([]int, 0, len(m.Tunnels))
	for port := range m.Tunnels {
		ports = append(ports, port)
	}
	sort.Ints(ports)
	for _, port := range ports {
		t := m.Tunnels[port]
		state := "open"
		switch {
		case t.Error != "":
			state = m.Styles.Error.Render("failed: " + t.Error)
		case !t.Open:
			state = "closed"
		}
		row("tunnel", fmt.Sprintf("%s localhost:%d → %s:%d %s", IconTunnel, t.LocalPort, t.RemoteHost, t.RemotePort, state))
	}

	if m.Error != "" {
		row("error", m.Styles.Error.Render(m.Error))
	}
	return b.String()
}

// renderLogs renders the most recent log lines that fit the window
func (m *Model) renderLogs() string {
	if len(m.LogLines) == 0 {
		return ""
	}
	limit := 10
	if m.Height > 0 {
		limit = max(3, m.Height-14)
	}
	lines := m.LogLines
	if len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(m.Styles.LogTitle.Render("  log"))
	b.WriteString("\n")
	for _, line := range lines {
		if m.Width > 4 && len(line) > m.Width-4 {
			line = line[:m.Width-4]
		}
		b.WriteString("  ")
		b.WriteString(m.Styles.LogLine.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

// renderFooter renders the help text
func (m *Model) renderFooter() string {
	key := m.Styles.FooterKey.Render("q")
	logs := m.Styles.FooterKey.Render("l")
	help := fmt.Sprintf("  Press %s to stop tracking (the job keeps running), %s to toggle logs", key, logs)
	if m.LocalURL != "" && m.OpenURL != nil {
		help += fmt.Sprintf(", %s to open in a browser", m.Styles.FooterKey.Render("o"))
	}
	return m.Styles.Footer.Render(help)
}

// formatDuration formats a duration as HH:MM:SS
func formatDuration(d time.Duration) string {
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
