package tui

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ytscan/pkg/keyspace"
	"ytscan/pkg/scanner"
)

// Hit is a resolved identifier shown in the hits panel
type Hit struct {
	ID    string
	Title string
	Time  time.Time
}

// Model represents the TUI model
type Model struct {
	// UI components
	spinner spinner.Model

	// Scan state
	startID     string
	startVector string
	currentID   string
	remaining   *big.Int
	probed      int64
	found       int64
	concurrency int
	finished    *scanner.Report
	startTime   time.Time

	hits    []Hit
	maxHits int

	// UI state
	width          int
	height         int
	showHelp       bool
	logMessages    []LogMessage
	maxLogMessages int

	// Called when the user asks to quit while scanning
	onQuit func()

	// Mutex for thread safety
	mu sync.RWMutex
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// NewModel creates a new TUI model
func NewModel(concurrency int, onQuit func()) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorInfo)

	return Model{
		spinner:        s,
		remaining:      new(big.Int),
		concurrency:    concurrency,
		startTime:      time.Now(),
		maxHits:        10,
		logMessages:    []LogMessage{},
		maxLogMessages: 50,
		onQuit:         onQuit,
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Start records where the scan begins
func (m *Model) Start(id string, start keyspace.Vector, remaining *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.startID = id
	m.startVector = keyspace.FormatVector(start)
	m.currentID = id
	m.remaining = new(big.Int).Set(remaining)
	m.startTime = time.Now()
}

// RecordResult counts one classified identifier
func (m *Model) RecordResult(id string, found bool, title string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.currentID = id
	m.probed++
	if !found {
		return
	}
	m.found++
	m.hits = append(m.hits, Hit{ID: id, Title: title, Time: time.Now()})
	if len(m.hits) > m.maxHits {
		m.hits = m.hits[len(m.hits)-m.maxHits:]
	}
}

// Finish stores the final report
func (m *Model) Finish(r scanner.Report) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = &r
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	color := colorMuted
	switch level {
	case "ERROR":
		color = colorError
	case "WARN":
		color = colorWarn
	case "SUCCESS":
		color = colorHit
	case "INFO":
		color = colorInfo
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   color,
	})

	// Keep only the last N messages
	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// Stats returns the counters shown in the stats panel. They freeze at
// the final report once the scan has finished.
func (m *Model) Stats() (probed, found int64, perMinute float64) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.finished != nil {
		return m.finished.Probed, m.finished.Found, m.finished.PerMinute()
	}
	probed, found = m.probed, m.found
	if elapsed := time.Since(m.startTime).Minutes(); elapsed > 0 {
		perMinute = float64(probed) / elapsed
	}
	return
}

// Hits returns the most recent hits, oldest first
func (m *Model) Hits() []Hit {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Hit, len(m.hits))
	copy(out, m.hits)
	return out
}

// FormatCount renders large counts with thousands separators
func FormatCount(n *big.Int) string {
	s := n.String()
	if len(s) <= 3 {
		return s
	}
	var out []byte
	lead := len(s) % 3
	if lead > 0 {
		out = append(out, s[:lead]...)
	}
	for i := lead; i < len(s); i += 3 {
		if len(out) > 0 {
			out = append(out, ',')
		}
		out = append(out, s[i:i+3]...)
	}
	return string(out)
}

// FormatRate formats probes per minute
func FormatRate(perMinute float64) string {
	return fmt.Sprintf("%.1f/min", perMinute)
}
