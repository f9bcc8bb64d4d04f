package recording

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Store maps recording ids to recordings. HTTP handlers and WebSocket
// connections hit the same store concurrently, so every operation is atomic
// from an external observer's viewpoint.
type Store struct {
	dir        string
	mu         sync.RWMutex
	recordings map[string]*Recording
}

// NewStore creates a store that places backing files under dir, creating
// the directory if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ".capturd", "recordings")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create recordings directory: %w", err)
	}

	log.Info().Str("dir", dir).Msg("Recording store initialized")

	return &Store{
		dir:        dir,
		recordings: make(map[string]*Recording),
	}, nil
}

// Dir returns the directory backing files are written to.
func (s *Store) Dir() string {
	return s.dir
}

// Create allocates a new id, opens its backing file and registers the
// recording as active with zeroed counters.
func (s *Store) Create() (*Recording, error) {
	id := uuid.NewString()
	filename := fmt.Sprintf("recording-%s.webm", id)
	path := filepath.Join(s.dir, filename)

	writer, err := OpenWriter(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording %s: %w", id, err)
	}

	rec := &Recording{
		ID:        id,
		Filename:  filename,
		Path:      path,
		StartTime: time.Now(),
		Writer:    writer,
		state:     StateActive,
		gate:      make(chan struct{}, 1),
	}

	s.mu.Lock()
	s.recordings[id] = rec
	s.mu.Unlock()

	return rec, nil
}

// Get retrieves a recording by id.
func (s *Store) Get(id string) (*Recording, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.recordings[id]
	return rec, exists
}

// Remove drops a recording from the store. The caller is responsible for
// closing its writer and removing its backing file.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.recordings, id)
}

// List returns summaries of every recording, active and completed.
func (s *Store) List() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]Summary, 0, len(s.recordings))
	for _, rec := range s.recordings {
		summaries = append(summaries, rec.Snapshot())
	}
	return summaries
}

// Count returns the number of tracked recordings.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.recordings)
}
