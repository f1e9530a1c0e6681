// Package checkpoint persists scan progress so an interrupted scan resumes
// where it stopped instead of starting over.
//
// The record is a single line of colon-separated symbol indices, one per
// identifier position, naming the last identifier whose probe outcome was
// fully handled:
//
//	0:0:0:0:0:0:0:0:0:0:0
//
// A missing file means the scan has not started and loads as the all-zero
// vector. Saves go through a synced temporary file and a rename, so a crash
// between two saves leaves the previous record intact.
//
// Checkpoints are stored in the data directory unless configured otherwise:
//   - Linux: ~/.local/share/ytscan/
//   - macOS: ~/Library/Application Support/ytscan/
//   - Windows: %APPDATA%/ytscan/
package checkpoint
