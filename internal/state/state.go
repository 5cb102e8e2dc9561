// Package state persists bookmarks and voice preferences between runs.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const stateFileName = "state.json"

// Bookmark is the saved chunk position for a single document.
type Bookmark struct {
	Chunk   int       `json:"chunk"`
	Total   int       `json:"total"`
	Source  string    `json:"source,omitempty"`
	Updated time.Time `json:"updated"`
}

// Preferences are the voice settings restored on startup. A zero Rate
// means nothing has been saved.
type Preferences struct {
	Voice string  `json:"voice,omitempty"`
	Rate  float64 `json:"rate"`
	Pitch float64 `json:"pitch"`
}

// Saved reports whether p holds saved settings.
func (p Preferences) Saved() bool {
	return p.Rate > 0
}

type fileData struct {
	Bookmarks   map[string]Bookmark `json:"bookmarks"`
	Preferences Preferences         `json:"preferences"`
}

// Store manages persistent reading state
type Store struct {
	path string
	data fileData
	mu   sync.RWMutex
}

// NewStore creates or loads state from XDG_STATE_HOME/purr/
func NewStore() (*Store, error) {
	return Open(stateDir())
}

// Open creates or loads state from dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	store := &Store{path: filepath.Join(dir, stateFileName)}
	if err := store.load(); err != nil {
		// Non-fatal - start with empty state
		store.data = fileData{}
	}
	if store.data.Bookmarks == nil {
		store.data.Bookmarks = make(map[string]Bookmark)
	}
	return store, nil
}

// stateDir returns XDG_STATE_HOME/purr or ~/.local/state/purr
func stateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "purr")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "purr")
}

// Path returns the state file location.
func (s *Store) Path() string {
	return s.path
}

// Bookmark returns the saved bookmark for a document hash.
func (s *Store) Bookmark(hash string) (Bookmark, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.data.Bookmarks[hash]
	return b, ok
}

// SetBookmark saves the position for a document hash.
func (s *Store) SetBookmark(hash string, b Bookmark) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.Updated.IsZero() {
		b.Updated = time.Now()
	}
	s.data.Bookmarks[hash] = b
	return s.save()
}

// ClearBookmark removes the saved position for a document hash.
func (s *Store) ClearBookmark(hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data.Bookmarks, hash)
	return s.save()
}

func (s *Store) Preferences() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Preferences
}

func (s *Store) SetPreferences(p Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Preferences = p
	return s.save()
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &s.data)
}

func (s *Store) save() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}
