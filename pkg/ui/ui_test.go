package ui

import (
	"bytes"
	"math/big"
	"strings"
	"testing"
	"time"

	"ytscan/pkg/keyspace"
	"ytscan/pkg/prober"
	"ytscan/pkg/scanner"
)

func testSpace(t *testing.T) *keyspace.Space {
	t.Helper()
	a, err := keyspace.NewAlphabet("abc")
	if err != nil {
		t.Fatal(err)
	}
	s, err := keyspace.NewSpace(a, 2)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestColorize(t *testing.T) {
	SetColorEnabled(true)
	if got := Green("ok"); got != "\033[32mok\033[0m" {
		t.Errorf("Green() = %q", got)
	}
	SetColorEnabled(false)
	if got := Green("ok"); got != "ok" {
		t.Errorf("Green() without colour = %q", got)
	}
}

func TestConsoleObserver(t *testing.T) {
	SetColorEnabled(false)
	var buf bytes.Buffer
	space := testSpace(t)
	c := NewConsole(&buf, space)

	c.OnStart(keyspace.Vector{0, 1}, big.NewInt(6))
	c.OnResult(scanner.Result{ID: "ab", Outcome: prober.Outcome{Status: prober.NotFound}})
	c.OnResult(scanner.Result{ID: "ac", Outcome: prober.Outcome{Status: prober.Found, Title: "My Clip"}})
	c.OnFinish(scanner.Report{State: scanner.StateCancelled, Last: keyspace.Vector{0, 2}, Probed: 2, Found: 1, Written: 1, Elapsed: time.Minute})

	out := buf.String()
	for _, want := range []string{
		"[SCANNING] ab (0:1)",
		"Remaining: 6",
		"❌  ab → not found",
		"🎥  ac → My Clip",
		"Scan cancelled by user.",
		"Checkpoint: ac (0:2)",
		"Probed: 2 | Found: 1 | Elapsed: 1m0s | 2.0/min | Written: 1",
		"] 2/6",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("console output missing %q:\n%s", want, out)
		}
	}

	if c.tracker.Probed != 2 || c.tracker.Found != 1 {
		t.Errorf("tracker = %+v", c.tracker)
	}
}

func TestConsoleQuietHidesMisses(t *testing.T) {
	SetColorEnabled(false)
	SetQuietMode(true)
	defer SetQuietMode(false)

	var buf bytes.Buffer
	c := NewConsole(&buf, testSpace(t))
	c.OnStart(keyspace.Vector{0, 0}, big.NewInt(9))
	c.OnResult(scanner.Result{ID: "aa", Outcome: prober.Outcome{Status: prober.NotFound}})
	c.OnResult(scanner.Result{ID: "ab", Outcome: prober.Outcome{Status: prober.Found, Title: "Hit"}})

	out := buf.String()
	if strings.Contains(out, "aa") || strings.Contains(out, "SCANNING") {
		t.Errorf("quiet mode should hide misses and the header:\n%s", out)
	}
	if !strings.Contains(out, "ab → Hit") {
		t.Errorf("quiet mode should still show hits:\n%s", out)
	}
}

func TestStatusTracker(t *testing.T) {
	st := NewStatusTracker()
	st.Begin(big.NewInt(4))
	st.Record(true)
	st.Record(false)

	if st.Fraction() != 0.5 {
		t.Errorf("Fraction() = %f, want 0.5", st.Fraction())
	}
	if got := st.GetProgressBar(10); got != "[█████░░░░░] 2/4" {
		t.Errorf("GetProgressBar() = %q", got)
	}
	if !strings.Contains(st.Summary(), "Probed: 2 | Found: 1") {
		t.Errorf("Summary() = %q", st.Summary())
	}

	st.Finish(3, 1, 90*time.Second)
	if got := st.Summary(); got != "Probed: 3 | Found: 1 | Elapsed: 1m30s | 2.0/min" {
		t.Errorf("Summary() after Finish = %q", got)
	}

	huge := new(big.Int).Exp(big.NewInt(63), big.NewInt(11), nil)
	st.Begin(huge)
	st.Record(false)
	if st.Fraction() <= 0 || st.Fraction() > 1e-15 {
		t.Errorf("Fraction() over a huge space = %g", st.Fraction())
	}
}
