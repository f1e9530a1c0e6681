package ui

import (
	"fmt"
	"io"
	"math/big"

	"ytscan/pkg/keyspace"
	"ytscan/pkg/scanner"
)

const summaryBarWidth = 30

// Console prints scan events line by line. It implements scanner.Observer.
type Console struct {
	out     io.Writer
	space   *keyspace.Space
	tracker *StatusTracker
}

// NewConsole creates a console observer writing to out, or to the
// package output when out is nil
func NewConsole(out io.Writer, space *keyspace.Space) *Console {
	if out == nil {
		out = Output()
	}
	return &Console{
		out:     out,
		space:   space,
		tracker: NewStatusTracker(),
	}
}

// OnStart prints where the scan resumes
func (c *Console) OnStart(start keyspace.Vector, remaining *big.Int) {
	c.tracker.Begin(remaining)
	if IsQuietMode() {
		return
	}
	fmt.Fprintf(c.out, "%s %s %s\n", Magenta("[SCANNING]"), Yellow(c.space.Encode(start)), Dim("("+keyspace.FormatVector(start)+")"))
	fmt.Fprintf(c.out, "%s: %s\n", Cyan("Remaining"), Yellow(remaining.String()))
}

// OnResult prints one classified identifier. Misses are hidden in quiet mode.
func (c *Console) OnResult(r scanner.Result) {
	c.tracker.Record(r.Outcome.Found())
	if r.Outcome.Found() {
		fmt.Fprintf(c.out, "🎥  %s → %s\n", Green(r.ID), r.Outcome.Title)
		return
	}
	if !IsQuietMode() {
		fmt.Fprintf(c.out, "❌  %s → %s\n", Dim(r.ID), Dim("not found"))
	}
}

// OnFinish prints the summary
func (c *Console) OnFinish(r scanner.Report) {
	switch r.State {
	case scanner.StateCancelled:
		fmt.Fprintln(c.out, Yellow("\n🛑 Scan cancelled by user."))
	case scanner.StateFailed:
		fmt.Fprintln(c.out, Red("\nScan aborted."))
	default:
		fmt.Fprintln(c.out, Green("\nScan complete."))
	}

	fmt.Fprintf(c.out, "%s: %s %s\n", Cyan("Checkpoint"), Yellow(c.space.Encode(r.Last)), Dim("("+keyspace.FormatVector(r.Last)+")"))
	c.tracker.Finish(r.Probed, r.Found, r.Elapsed)
	fmt.Fprintln(c.out, Dim(c.tracker.GetProgressBar(summaryBarWidth)))
	fmt.Fprintf(c.out, "%s | Written: %d\n", c.tracker.Summary(), r.Written)
}
