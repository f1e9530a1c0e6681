package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View renders the entire TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var sections []string

	sections = append(sections, bannerStyle.Width(m.width).Render(logo))

	// Main content area with two columns
	width := (m.width - 4) / 2
	leftColumn := lipgloss.JoinVertical(lipgloss.Left,
		m.renderStatsPanel(width),
		m.renderHitsPanel(width),
	)
	rightColumn := m.renderLogsPanel(width)

	sections = append(sections, lipgloss.JoinHorizontal(
		lipgloss.Top,
		leftColumn,
		"  ", // spacing
		rightColumn,
	))

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, footerStyle.Render("Press ? for help, q to stop"))
	}

	return screenStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

const logo = `
 █ █ ▀█▀ █▀ █▀▀ ▄▀█ █▄ █
  █   █  ▄█ █▄▄ █▀█ █ ▀█`

// renderStatsPanel renders the statistics panel
func (m *Model) renderStatsPanel(width int) string {
	probed, found, perMinute := m.Stats()

	m.mu.RLock()
	defer m.mu.RUnlock()

	title := panelTitleStyle.Render(" SCAN ")

	status := m.spinner.View() + " " + hitStyle.Render("RUNNING")
	if m.finished != nil {
		status = warnStyle.Render(strings.ToUpper(m.finished.State.String()))
	}

	stats := []string{
		status,
		row("Session", valueStyle.Render(formatDuration(time.Since(m.startTime)))),
		row("Started at", valueStyle.Render(m.startID)+" "+faintStyle.Render(m.startVector)),
		row("Current", valueStyle.Render(m.currentID)),
		row("Probed", valueStyle.Render(fmt.Sprint(probed))),
		row("Found", hitStyle.Render(fmt.Sprint(found))),
		row("Rate", rateStyle.Render(FormatRate(perMinute))),
		row("Concurrency", valueStyle.Render(fmt.Sprint(m.concurrency))),
		row("Remaining", valueStyle.Render(FormatCount(m.remaining))),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, stats...)

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

// renderHitsPanel renders the most recent hits
func (m *Model) renderHitsPanel(width int) string {
	title := panelTitleStyle.Render(" FOUND ")

	hits := m.Hits()
	if len(hits) == 0 {
		content := mutedStyle.Render("Nothing found yet")
		return panelStyle.Width(width).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, content),
		)
	}

	var items []string
	for i := len(hits) - 1; i >= 0; i-- {
		h := hits[i]
		name := truncate(h.Title, width-8-len(h.ID))
		items = append(items, hitRowStyle.Render(hitStyle.Render(h.ID)+" "+name))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, items...)),
	)
}

// renderLogsPanel renders the logs panel
func (m *Model) renderLogsPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := panelTitleStyle.Render(" LOG ")

	// Get recent logs
	start := len(m.logMessages) - 10
	if start < 0 {
		start = 0
	}

	var logs []string
	for i := start; i < len(m.logMessages); i++ {
		log := m.logMessages[i]
		timestamp := faintStyle.Render(log.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level))
		message := mutedStyle.Render(truncate(log.Message, width-25))

		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, message))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = mutedStyle.Render("No logs yet...")
	}

	logsHeight := m.height - 12
	if logsHeight < 5 {
		logsHeight = 5
	}

	return panelStyle.Width(width).Height(logsHeight).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

// renderHelp renders the help panel
func (m *Model) renderHelp() string {
	help := `
  Keys:
    q/Q      - Stop the scan (in-flight probes finish and are checkpointed)
    ctrl+l   - Clear the log panel
    ?        - Toggle this help
`

	return panelStyle.Width(m.width).Render(help)
}

// row renders one label/value line of the stats panel
func row(label, value string) string {
	return labelStyle.Render(label+":") + " " + value
}

func truncate(s string, max int) string {
	if max < 4 {
		max = 4
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
