package errtrack

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/forgelabs/forgemon/pkg/models"
)

// snapshot is the persisted file format.
type snapshot struct {
	Timestamp time.Time             `json:"timestamp"`
	Errors    []models.TrackedError `json:"errors"`
}

// Store persists the tracked error set as a single JSON document so that
// recurring failures survive host-tool restarts.
type Store struct {
	path string
}

// NewStore returns a store writing to path. Parent directories are created
// lazily on first save.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

// Save writes the given errors atomically (write-then-rename).
func (s *Store) Save(errs []models.TrackedError) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating error store directory: %w", err)
	}

	data, err := json.MarshalIndent(snapshot{Timestamp: time.Now(), Errors: errs}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling error snapshot: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing error snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing error snapshot: %w", err)
	}
	return nil
}

// Load reads the persisted error set. A missing file is not an error and
// yields an empty set; a corrupt file is reported so the caller can log it
// and start fresh.
func (s *Store) Load() ([]models.TrackedError, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading error snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing error snapshot: %w", err)
	}
	return snap.Errors, nil
}
