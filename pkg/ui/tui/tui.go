package tui

import (
	"fmt"
	"math/big"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"ytscan/pkg/keyspace"
	"ytscan/pkg/scanner"
)

// TUI is a full-screen live view of a scan. It implements scanner.Observer.
type TUI struct {
	program *tea.Program
	model   *Model
	space   *keyspace.Space
}

// NewTUI creates a new TUI instance. onQuit is called when the user
// presses q, and should cancel the scan.
func NewTUI(space *keyspace.Space, concurrency int, onQuit func(), opts ...tea.ProgramOption) *TUI {
	model := NewModel(concurrency, onQuit)
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	program := tea.NewProgram(&model, opts...)

	return &TUI{
		program: program,
		model:   &model,
		space:   space,
	}
}

// Start runs the TUI until it is stopped
func (t *TUI) Start() error {
	go func() {
		// Send initial tick to start the spinner
		time.Sleep(100 * time.Millisecond)
		t.program.Send(TickMsg(time.Now()))
	}()

	_, err := t.program.Run()
	return err
}

// Stop stops the TUI gracefully
func (t *TUI) Stop() {
	t.program.Quit()
}

// Send sends a message to the TUI
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

// OnStart forwards the scan start to the view
func (t *TUI) OnStart(start keyspace.Vector, remaining *big.Int) {
	t.Send(ScanStartMsg{ID: t.space.Encode(start), Start: start, Remaining: remaining})
}

// OnResult forwards one classified identifier to the view
func (t *TUI) OnResult(r scanner.Result) {
	t.Send(ResultMsg{Result: r})
}

// OnFinish forwards the final report to the view
func (t *TUI) OnFinish(r scanner.Report) {
	t.Send(ScanFinishMsg{Report: r})
}

// Log sends a log message to the TUI
func (t *TUI) Log(level, format string, args ...interface{}) {
	t.Send(LogMsg{Level: level, Message: fmt.Sprintf(format, args...)})
}
