package recording

import (
	"fmt"
	"os"
	"sync"
)

// ChunkWriter is a sequential append-only sink bound to one recording's
// backing file. It is exclusively owned by that recording: chunks land on
// disk in the exact order Append is invoked, and Close is idempotent so
// every teardown path can call it without bookkeeping. Forced closes (delete
// of an active recording, abnormal disconnect) may race an in-flight append,
// so both paths serialize on the writer's own mutex.
type ChunkWriter struct {
	path   string
	mu     sync.Mutex
	file   *os.File
	closed bool
}

// OpenWriter creates (or truncates) the backing file at path for exclusive
// sequential append.
func OpenWriter(path string) (*ChunkWriter, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording file: %w", err)
	}

	return &ChunkWriter{
		path: path,
		file: file,
	}, nil
}

// Append writes one chunk to the backing file. It returns only after the
// bytes have been handed to and acknowledged by the OS; callers must not
// issue the next chunk for the same recording until Append returns.
func (w *ChunkWriter) Append(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("writer for %s is closed", w.path)
	}
	if len(data) == 0 {
		return nil
	}

	if _, err := w.file.Write(data); err != nil {
		return fmt.Errorf("failed to write chunk: %w", err)
	}

	return nil
}

// Close flushes buffered bytes to disk and releases the file handle. A
// second Close is a no-op.
func (w *ChunkWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to sync recording file: %w", err)
	}

	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close recording file: %w", err)
	}

	return nil
}

// Path returns the backing file path.
func (w *ChunkWriter) Path() string {
	return w.path
}
