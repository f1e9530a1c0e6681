package ui

import (
	"fmt"
	"math/big"
	"strings"
	"time"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
)

// StatusTracker keeps track of scan progress
type StatusTracker struct {
	Probed    int64
	Found     int64
	Remaining *big.Int
	StartTime time.Time
	StopTime  time.Time
}

// NewStatusTracker creates a new status tracker
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{
		Remaining: new(big.Int),
		StartTime: time.Now(),
	}
}

// Begin resets the tracker for a scan over remaining identifiers
func (st *StatusTracker) Begin(remaining *big.Int) {
	st.Probed = 0
	st.Found = 0
	st.Remaining = new(big.Int).Set(remaining)
	st.StartTime = time.Now()
	st.StopTime = time.Time{}
}

// Finish settles the counters on a scan's final figures and stops the clock
func (st *StatusTracker) Finish(probed, found int64, elapsed time.Duration) {
	st.Probed = probed
	st.Found = found
	st.StopTime = st.StartTime.Add(elapsed)
}

// Record counts one classified identifier
func (st *StatusTracker) Record(found bool) {
	st.Probed++
	if found {
		st.Found++
	}
}

// GetElapsedTime returns the time since tracking started, or the scan
// duration once Finish has been called
func (st *StatusTracker) GetElapsedTime() time.Duration {
	if !st.StopTime.IsZero() {
		return st.StopTime.Sub(st.StartTime)
	}
	return time.Since(st.StartTime)
}

// GetProbeRate returns the average rate (identifiers per minute)
func (st *StatusTracker) GetProbeRate() float64 {
	elapsed := st.GetElapsedTime().Minutes()
	if elapsed == 0 {
		return 0
	}
	return float64(st.Probed) / elapsed
}

// Fraction returns the share of the remaining space classified so far.
// For realistic spaces this stays indistinguishable from zero.
func (st *StatusTracker) Fraction() float64 {
	if st.Remaining == nil || st.Remaining.Sign() == 0 {
		return 0
	}
	f, _ := new(big.Rat).SetFrac(big.NewInt(st.Probed), st.Remaining).Float64()
	if f > 1 {
		return 1
	}
	return f
}

// GetProgressBar returns a formatted progress bar of the given width
func (st *StatusTracker) GetProgressBar(width int) string {
	filled := int(st.Fraction() * float64(width))
	bar := strings.Repeat(ProgressBar, filled) +
		strings.Repeat(ProgressEmpty, width-filled)
	return fmt.Sprintf("[%s] %d/%s", bar, st.Probed, st.Remaining.String())
}

// Summary renders the end-of-scan statistics
func (st *StatusTracker) Summary() string {
	return fmt.Sprintf("Probed: %d | Found: %d | Elapsed: %s | %.1f/min",
		st.Probed, st.Found, st.GetElapsedTime().Round(time.Second), st.GetProbeRate())
}
