package logger

import (
	"fmt"
	"time"
)

// LogProbe logs a single probe outcome
func LogProbe(l Logger, id string, found bool, title string, duration time.Duration) {
	fields := map[string]interface{}{
		"id":       id,
		"found":    found,
		"duration": duration,
	}
	if found {
		fields["title"] = title
		l.InfoWithFields("Identifier resolved", fields)
		return
	}
	l.DebugWithFields("Identifier not found", fields)
}

// LogScanProgress logs periodic scan progress
func LogScanProgress(l Logger, position string, probed, found int64, elapsed time.Duration) {
	rate := 0.0
	if minutes := elapsed.Minutes(); minutes > 0 {
		rate = float64(probed) / minutes
	}

	l.InfoWithFields("Scan progress", map[string]interface{}{
		"position":   position,
		"probed":     probed,
		"found":      found,
		"per_minute": fmt.Sprintf("%.1f", rate),
	})
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, config map[string]interface{}) {
	log := l.WithField("component", component)
	if len(config) > 0 {
		log = log.WithFields(config)
	}
	log.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(l Logger, component string, reason string) {
	l.WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
