// Package storage persists per-document reading state: where the reader
// left off and the annotations they added.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/marginalia/internal/validate"
)

// DefaultPath is where the reader keeps bookmarks unless told otherwise.
const DefaultPath = "~/.marginalia/bookmarks.json"

// Annotation is a reader-added marker at the end of a block.
type Annotation struct {
	ID    string `json:"id" yaml:"id" validate:"required"`
	Block int    `json:"block" yaml:"block" validate:"gte=0"`
}

// Bookmark is the saved state of one document.
type Bookmark struct {
	// Fraction is the scroll position as a share of the scroll range.
	Fraction    float64      `json:"fraction" yaml:"fraction" validate:"gte=0,lte=1"`
	MarkerID    string       `json:"marker_id,omitempty" yaml:"marker_id"`
	Annotations []Annotation `json:"annotations,omitempty" yaml:"annotations" validate:"dive"`
	UpdatedAt   time.Time    `json:"updated_at" yaml:"updated_at"`
}

// Data represents the structure of the storage file. Documents are keyed by
// absolute path.
type Data struct {
	Documents map[string]Bookmark `json:"documents" yaml:"documents" validate:"dive"`
}

// Storage handles the loading and saving of the storage file.
type Storage struct {
	Path string `validate:"required,filepath"`
	Data Data
}

// NewStorage creates a new Storage instance, loading path when it exists.
func NewStorage(path string) (*Storage, error) {
	expandedPath, err := expandTilde(path)
	if err != nil {
		return nil, err
	}

	s := &Storage{
		Path: expandedPath,
		Data: Data{Documents: make(map[string]Bookmark)},
	}

	if err := s.Load(); err != nil {
		// If the file doesn't exist, we can ignore the error.
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	return s, nil
}

// NewOrExistingStorage returns existing storage if the file exists, or creates a new one otherwise.
// When creating a new storage, it writes the initial structure to disk immediately.
func NewOrExistingStorage(path string) (*Storage, error) {
	expandedPath, err := expandTilde(path)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(expandedPath); err == nil {
		return NewStorage(path)
	} else if os.IsNotExist(err) {
		s, err := NewStorage(path)
		if err != nil {
			return nil, err
		}
		if err := s.Save(); err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, err
}

func (s *Storage) Load() error {
	logrus.Debug("Loading storage file from: ", s.Path)
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, &s.Data); err != nil {
		return err
	}
	if s.Data.Documents == nil {
		s.Data.Documents = make(map[string]Bookmark)
	}

	// Validate loaded data and self-heal when possible.
	if err := validate.Struct(s.Data); err != nil {
		if s.heal() {
			if err := s.Save(); err != nil {
				return err
			}
		}
	}
	return nil
}

// heal repairs bookmarks that fail validation: annotations without an id
// get a fresh one, and bookmarks that are still invalid are dropped.
func (s *Storage) heal() bool {
	changed := false
	for doc, b := range s.Data.Documents {
		for i := range b.Annotations {
			if b.Annotations[i].ID == "" {
				b.Annotations[i].ID = uuid.NewString()
				changed = true
			}
		}
		if err := validate.Struct(b); err != nil {
			logrus.Warnf("Invalid bookmark for %s in storage; dropping. (%s)", doc, validate.Describe(err))
			delete(s.Data.Documents, doc)
			changed = true
			continue
		}
		s.Data.Documents[doc] = b
	}
	return changed
}

// Save writes the storage data to the file.
func (s *Storage) Save() error {
	logrus.Debug("Saving storage file to: ", s.Path)
	// Ensure parent directory exists.
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.Data, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.Path, data, 0o600)
}

// Bookmark returns the saved state for the document at path.
func (s *Storage) Bookmark(path string) (Bookmark, bool) {
	b, ok := s.Data.Documents[key(path)]
	return b, ok
}

// Remember records b for the document at path and saves.
func (s *Storage) Remember(path string, b Bookmark) error {
	if err := validate.Struct(b); err != nil {
		return err
	}
	b.UpdatedAt = time.Now().UTC()
	s.Data.Documents[key(path)] = b
	return s.Save()
}

func key(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// expandTilde expands the tilde in a path to the user's home directory.
func expandTilde(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, path[1:]), nil
}
