package tui

import (
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"ytscan/pkg/keyspace"
	"ytscan/pkg/scanner"
)

func TestTUIForwardsToModel(t *testing.T) {
	term := NewTUI(keyspace.Default(), 2, nil,
		tea.WithInput(nil), tea.WithOutput(io.Discard), tea.WithoutRenderer())

	done := make(chan error, 1)
	go func() { done <- term.Start() }()

	term.Log("INFO", "Checkpoint %s", "lastyt")
	term.OnFinish(scanner.Report{State: scanner.StateCompleted, Probed: 3})
	term.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("TUI did not stop")
	}

	term.model.mu.RLock()
	defer term.model.mu.RUnlock()

	var found bool
	for _, msg := range term.model.logMessages {
		if strings.Contains(msg.Message, "Checkpoint lastyt") {
			found = true
		}
	}
	if !found {
		t.Errorf("log message not recorded: %+v", term.model.logMessages)
	}
	if term.model.finished == nil || term.model.finished.Probed != 3 {
		t.Error("finish report not recorded")
	}
}
