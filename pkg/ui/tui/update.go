package tui

import (
	"fmt"
	"math/big"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"ytscan/pkg/keyspace"
	"ytscan/pkg/scanner"
)

// Message types for the TUI

// ScanStartMsg is sent when the scanner starts
type ScanStartMsg struct {
	ID        string
	Start     keyspace.Vector
	Remaining *big.Int
}

// ResultMsg is sent for every classified identifier
type ResultMsg struct {
	Result scanner.Result
}

// ScanFinishMsg is sent when the scanner returns
type ScanFinishMsg struct {
	Report scanner.Report
}

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// TickMsg is sent periodically to update the UI
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		// Regular UI update tick
		return m, tea.Batch(
			tickCmd(),
			m.spinner.Tick,
		)

	case ScanStartMsg:
		m.Start(msg.ID, msg.Start, msg.Remaining)
		m.AddLogMessage("INFO", fmt.Sprintf("Scanning from %s (%s)", msg.ID, keyspace.FormatVector(msg.Start)))
		return m, nil

	case ResultMsg:
		r := msg.Result
		m.RecordResult(r.ID, r.Outcome.Found(), r.Outcome.Title)
		if r.Outcome.Found() {
			m.AddLogMessage("SUCCESS", fmt.Sprintf("%s → %s", r.ID, r.Outcome.Title))
		}
		return m, nil

	case ScanFinishMsg:
		m.Finish(msg.Report)
		level := "SUCCESS"
		if msg.Report.State != scanner.StateCompleted {
			level = "WARN"
		}
		m.AddLogMessage(level, fmt.Sprintf("Scan %s after %d probes, %d found", msg.Report.State, msg.Report.Probed, msg.Report.Found))
		return m, nil

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		if m.onQuit != nil {
			m.onQuit()
		}
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		// Clear logs
		m.mu.Lock()
		m.logMessages = []LogMessage{}
		m.mu.Unlock()
		return m, nil
	}

	return m, nil
}

// Commands

// tickCmd returns a command that sends a tick message
func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
