package results

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"ytscan/internal/fsutil"
	errs "ytscan/pkg/errors"
	"ytscan/pkg/logger"
)

// Format selects the on-disk layout of the found-output artifact
type Format string

const (
	FormatCSV  Format = "csv"
	FormatText Format = "text"
)

// ParseFormat maps a configuration value to a Format
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV, "":
		return FormatCSV, nil
	case FormatText, "txt":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown found format %q", s)
	}
}

// textSeparator ends each block of the text format
const textSeparator = "_____________________________________"

// FoundRecord is one identifier that resolved to an existing item
type FoundRecord struct {
	ID    string
	Title string
	URL   string
}

// Sink accumulates hits during a scan and persists them at the end.
// It is not safe for concurrent use; the scanner's coordinating
// goroutine is its only caller.
type Sink struct {
	path    string
	format  Format
	records []FoundRecord
	logger  logger.Logger
}

// NewSink creates a sink writing to path in the given format
func NewSink(path string, format Format, log logger.Logger) (*Sink, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errs.Storage("results", fmt.Errorf("failed to create output directory: %w", err))
	}

	return &Sink{
		path:   path,
		format: format,
		logger: log.WithField("component", "results"),
	}, nil
}

// Path returns the artifact location
func (s *Sink) Path() string {
	return s.path
}

// Record appends a hit
func (s *Sink) Record(r FoundRecord) {
	s.records = append(s.records, r)
}

// Records returns a copy of the collected hits in recording order
func (s *Sink) Records() []FoundRecord {
	out := make([]FoundRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Finalize persists the collected hits, replacing any previous artifact.
// With nothing collected, a previous artifact is removed instead. It
// returns the number of records written.
func (s *Sink) Finalize() (int, error) {
	records := s.Records()

	if len(records) == 0 {
		err := os.Remove(s.path)
		switch {
		case err == nil:
			s.logger.InfoWithFields("Removed stale found file", map[string]interface{}{
				"path": s.path,
			})
		case os.IsNotExist(err):
		default:
			return 0, errs.Storage("finalize", fmt.Errorf("failed to remove stale found file: %w", err))
		}
		return 0, nil
	}

	var buf bytes.Buffer
	var err error
	switch s.format {
	case FormatText:
		err = WriteText(&buf, records)
	default:
		err = WriteCSV(&buf, records)
	}
	if err != nil {
		return 0, errs.Storage("finalize", err)
	}

	if err := fsutil.WriteFileAtomic(s.path, buf.Bytes()); err != nil {
		return 0, errs.Storage("finalize", err)
	}

	s.logger.InfoWithFields("Found file written", map[string]interface{}{
		"path":    s.path,
		"records": len(records),
		"format":  string(s.format),
	})
	return len(records), nil
}

// WriteCSV writes records as identifier,title,url rows with a header
func WriteCSV(w io.Writer, records []FoundRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"identifier", "title", "url"}); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write([]string{r.ID, r.Title, r.URL}); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteText writes records as URL/Title blocks separated by a rule line
func WriteText(w io.Writer, records []FoundRecord) error {
	for _, r := range records {
		if _, err := fmt.Fprintf(w, "URL: %s\nTitle: %s\n%s\n", r.URL, r.Title, textSeparator); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	return nil
}
