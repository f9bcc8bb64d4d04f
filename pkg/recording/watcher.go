package recording

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/capturd/capturd/internal/observability"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DirWatcher monitors the recordings directory for backing files removed
// behind the store's back. A missing file only surfaces at download time
// otherwise; the watcher makes the gap visible in the logs and metrics as
// soon as it happens.
type DirWatcher struct {
	watcher  *fsnotify.Watcher
	store    *Store
	logger   zerolog.Logger
	done     chan struct{}
	stopOnce sync.Once
}

// NewDirWatcher creates a watcher over the store's recordings directory.
func NewDirWatcher(store *Store, logger zerolog.Logger) (*DirWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &DirWatcher{
		watcher: watcher,
		store:   store,
		logger:  logger,
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching the recordings directory.
func (w *DirWatcher) Start() error {
	if err := w.watcher.Add(w.store.Dir()); err != nil {
		return fmt.Errorf("failed to watch recordings directory: %w", err)
	}

	go w.eventLoop()

	w.logger.Info().
		Str("dir", w.store.Dir()).
		Msg("Recordings directory watcher started")

	return nil
}

// Stop stops the watcher. Safe to call more than once.
func (w *DirWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()
	})
}

func (w *DirWatcher) eventLoop() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				w.handleRemoved(event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("Recordings watcher error")
		}
	}
}

// handleRemoved reports the disappearance of a tracked recording's backing
// file. Deletions through the controller have already dropped the recording
// from the store and are ignored here.
func (w *DirWatcher) handleRemoved(path string) {
	name := filepath.Base(path)
	if !strings.HasPrefix(name, "recording-") {
		return
	}

	id := strings.TrimSuffix(strings.TrimPrefix(name, "recording-"), filepath.Ext(name))
	rec, exists := w.store.Get(id)
	if !exists {
		return
	}

	observability.RecordFileMissing()
	w.logger.Warn().
		Str("recordingId", rec.ID).
		Str("filename", rec.Filename).
		Msg("Backing file removed externally, downloads will fail")
}
