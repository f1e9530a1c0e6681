package checkpoint

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"ytscan/internal/fsutil"
	errs "ytscan/pkg/errors"
	"ytscan/pkg/keyspace"
	"ytscan/pkg/logger"
)

// Store persists the last fully classified index vector as a single
// colon-separated text record.
type Store struct {
	path   string
	space  *keyspace.Space
	logger logger.Logger
}

// NewStore creates a checkpoint store for the given space
func NewStore(path string, space *keyspace.Space, log logger.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errs.New(errs.ErrorTypeConfig, "checkpoint", "checkpoint path is required")
	}
	if log == nil {
		log = logger.GetLogger()
	}

	// Create the parent directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errs.Storage("create checkpoint directory", err)
	}

	return &Store{
		path:   path,
		space:  space,
		logger: log,
	}, nil
}

// Path returns the checkpoint file location
func (s *Store) Path() string {
	return s.path
}

// Load returns the persisted vector, or the origin when no checkpoint exists
func (s *Store) Load() (keyspace.Vector, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.DebugWithFields("No checkpoint found, starting at origin", map[string]interface{}{
				"path": s.path,
			})
			return s.space.Origin(), nil
		}
		return nil, errs.Storage("read checkpoint", err)
	}

	v, err := keyspace.ParseVector(string(data), s.space.Width(), s.space.Alphabet().Len())
	if err != nil {
		return nil, errs.Storage("parse checkpoint", fmt.Errorf("%s: %w", s.path, err))
	}

	s.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"path":     s.path,
		"position": v.String(),
		"id":       s.space.Encode(v),
	})

	return v, nil
}

// Save replaces the persisted record. The write goes to a temporary file in
// the same directory which is synced and renamed over the old record, so a
// crash leaves either the old or the new record, never a torn one.
func (s *Store) Save(v keyspace.Vector) error {
	if !s.space.Valid(v) {
		return errs.New(errs.ErrorTypeStorage, "save checkpoint", fmt.Sprintf("invalid vector %v", []int(v)))
	}

	if err := fsutil.WriteFileAtomic(s.path, []byte(keyspace.FormatVector(v))); err != nil {
		return errs.Storage("save checkpoint", err)
	}

	s.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"position": v.String(),
	})

	return nil
}

// Reset sets the persisted record to the origin
func (s *Store) Reset() error {
	if err := s.Save(s.space.Origin()); err != nil {
		return err
	}
	s.logger.Info("Checkpoint reset to origin")
	return nil
}

// Exists checks if a checkpoint file exists
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// BackupPath returns where Backup copies the current record
func (s *Store) BackupPath() string {
	return s.path + ".backup"
}

// Backup copies the current record next to it. A missing record is not an error.
func (s *Store) Backup() error {
	if !s.Exists() {
		return nil
	}

	src, err := os.Open(s.path)
	if err != nil {
		return errs.Storage("open checkpoint for backup", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return errs.Storage("read checkpoint for backup", err)
	}

	if err := fsutil.WriteFileAtomic(s.BackupPath(), data); err != nil {
		return errs.Storage("write checkpoint backup", err)
	}

	s.logger.DebugWithFields("Checkpoint backed up", map[string]interface{}{
		"backup": s.BackupPath(),
	})
	return nil
}
