package fallback

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// fileVersion is the current version of the state file format.
const fileVersion = 1

// fileState is the on-disk layout of a FileStore.
type fileState struct {
	// Version is the state file format version.
	Version int `json:"version"`

	// SavedAt is when the state was last saved.
	SavedAt time.Time `json:"saved_at"`

	// Entries holds the stored key/value pairs.
	Entries map[string]string `json:"entries,omitempty"`
}

// FileStore persists key/value state to a single JSON file. Every
// write rewrites the file; the data set here is a handful of small
// widget keys, not a database.
type FileStore struct {
	mu     sync.Mutex
	path   string
	data   map[string]string
	loaded bool
}

// NewFileStore creates a file-backed store at path. The file is read
// lazily on first access; a missing file is an empty store.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Get returns the stored value and whether the key exists.
func (s *FileStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return "", false, err
	}
	v, ok := s.data[key]
	return v, ok, nil
}

// Set stores value under key and flushes to disk.
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return err
	}
	s.data[key] = value
	return s.saveLocked()
}

// Remove deletes key and flushes to disk.
func (s *FileStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return err
	}
	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.saveLocked()
}

// Clear removes the state file entirely.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string]string)
	s.loaded = true
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *FileStore) loadLocked() error {
	if s.loaded {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.data = make(map[string]string)
		s.loaded = true
		return nil
	}
	if err != nil {
		return err
	}

	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}
	s.data = state.Entries
	if s.data == nil {
		s.data = make(map[string]string)
	}
	s.loaded = true
	return nil
}

func (s *FileStore) saveLocked() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	state := fileState{
		Version: fileVersion,
		SavedAt: time.Now(),
		Entries: s.data,
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}

// Compile-time interface satisfaction check.
var _ Store = (*FileStore)(nil)
