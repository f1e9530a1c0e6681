// Package logger provides the structured logging interface used across ytscan.
//
// It wraps zerolog and offers levelled logging with fields, coloured console
// output, optional file output and a process-wide logger.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	logger.WithField("id", "dQw4w9WgXcQ").Info("Probe started")
//
//	log := logger.GetLogger().WithField("component", "scanner")
//	log.InfoWithFields("Scan finished", map[string]interface{}{
//	    "probed": 1200,
//	    "found":  3,
//	})
//
// Tests use NewNopLogger to discard output or NewTestLogger to capture and
// assert on messages.
package logger
