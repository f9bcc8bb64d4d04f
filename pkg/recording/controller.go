package recording

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/capturd/capturd/internal/observability"
	"github.com/rs/zerolog"
)

// DefaultStopTimeout bounds how long a stop waits for the final in-flight
// chunk to flush before force-closing the writer.
const DefaultStopTimeout = 30 * time.Second

// Controller drives recordings through create -> active -> completed/deleted
// and keeps the accounting honest: within one recording, chunk arrival order
// equals disk write order equals counter increment order.
type Controller struct {
	store       *Store
	stopTimeout time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// ControllerConfig holds controller dependencies.
type ControllerConfig struct {
	Store       *Store
	StopTimeout time.Duration
	Logger      zerolog.Logger
}

// NewController creates a controller over an injected store.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}

	observability.EnsureRegistered()

	return &Controller{
		store:       cfg.Store,
		stopTimeout: cfg.StopTimeout,
		logger:      cfg.Logger,
		now:         time.Now,
	}, nil
}

// StartInfo identifies a freshly created recording.
type StartInfo struct {
	RecordingID string `json:"recordingId"`
	Filename    string `json:"filename"`
}

// Start creates a new active recording and opens its backing file.
func (c *Controller) Start() (StartInfo, error) {
	rec, err := c.store.Create()
	if err != nil {
		return StartInfo{}, err
	}

	observability.RecordRecordingStarted()
	observability.SetActiveRecordings(c.store.Count())

	c.logger.Info().
		Str("recordingId", rec.ID).
		Str("filename", rec.Filename).
		Msg("Recording started")

	return StartInfo{RecordingID: rec.ID, Filename: rec.Filename}, nil
}

// Append writes one chunk to the recording's backing file and, once the
// write is acknowledged, bumps the counters. A zero-length chunk still
// counts as a chunk but adds nothing to the total size.
func (c *Controller) Append(ctx context.Context, id string, data []byte) (AppendResult, error) {
	rec, exists := c.store.Get(id)
	if !exists {
		return AppendResult{}, ErrNotFound
	}

	if !rec.acquire(ctx.Done()) {
		return AppendResult{}, ctx.Err()
	}
	defer rec.release()

	if rec.CurrentState() != StateActive {
		return AppendResult{}, ErrInvalidState
	}

	start := c.now()
	if err := rec.Writer.Append(data); err != nil {
		c.logger.Error().Err(err).Str("recordingId", id).Msg("Failed to write chunk")
		return AppendResult{}, err
	}
	observability.RecordChunkWrite(c.now().Sub(start))

	rec.mu.Lock()
	rec.chunkCount++
	rec.totalSize += int64(len(data))
	result := AppendResult{
		ChunkNumber: rec.chunkCount,
		ChunkSize:   int64(len(data)),
		TotalSize:   rec.totalSize,
	}
	rec.mu.Unlock()

	return result, nil
}

// Stop closes the recording's writer, waiting (bounded) for any in-flight
// chunk to flush, freezes the stats and transitions to completed. Stopping
// an already-completed recording fails with ErrInvalidState. After Stop
// returns, no further writes will occur for this recording.
func (c *Controller) Stop(ctx context.Context, id string) (Stats, error) {
	rec, exists := c.store.Get(id)
	if !exists {
		return Stats{}, ErrNotFound
	}
	if rec.CurrentState() != StateActive {
		return Stats{}, ErrInvalidState
	}

	if c.acquireBounded(ctx, rec) {
		defer rec.release()

		// Re-check under the gate: a concurrent stop may have won.
		if rec.CurrentState() != StateActive {
			return Stats{}, ErrInvalidState
		}

		if err := rec.Writer.Close(); err != nil {
			c.finalize(rec)
			return Stats{}, fmt.Errorf("failed to flush recording %s: %w", id, err)
		}
	} else {
		// Flush wait exhausted. The caller-facing contract still holds:
		// close the writer now so nothing can be written afterwards.
		c.logger.Warn().
			Str("recordingId", id).
			Dur("timeout", c.stopTimeout).
			Msg("Timed out waiting for final chunk flush, force-closing writer")
		if err := rec.Writer.Close(); err != nil {
			c.logger.Error().Err(err).Str("recordingId", id).Msg("Force-close failed")
		}
	}

	stats := c.finalize(rec)
	observability.RecordRecordingStopped(time.Duration(stats.Duration * float64(time.Second)))

	c.logger.Info().
		Str("recordingId", rec.ID).
		Str("filename", rec.Filename).
		Float64("duration", stats.Duration).
		Int64("chunks", stats.ChunkCount).
		Int64("size", stats.TotalSize).
		Msg("Recording stopped")

	return stats, nil
}

// acquireBounded takes the recording's I/O gate, giving up when ctx is
// cancelled or the configured stop timeout elapses, whichever comes first.
func (c *Controller) acquireBounded(ctx context.Context, rec *Recording) bool {
	timer := time.NewTimer(c.stopTimeout)
	defer timer.Stop()

	done := make(chan struct{})
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-timer.C:
		case <-ctx.Done():
		case <-stop:
		}
		close(done)
	}()

	return rec.acquire(done)
}

// finalize freezes the stats and marks the recording completed. The writer
// must already be closed.
func (c *Controller) finalize(rec *Recording) Stats {
	rec.mu.Lock()
	if rec.state == StateActive {
		rec.state = StateCompleted
		rec.duration = c.now().Sub(rec.StartTime)
	}
	stats := Stats{
		RecordingID: rec.ID,
		Filename:    rec.Filename,
		Duration:    math.Round(rec.duration.Seconds()*100) / 100,
		TotalSize:   rec.totalSize,
		ChunkCount:  rec.chunkCount,
		DownloadURL: fmt.Sprintf("/api/recording/%s/download", rec.ID),
	}
	rec.mu.Unlock()

	observability.SetActiveRecordings(c.store.Count())
	return stats
}

// Download is an open handle onto a completed recording's backing file.
// The caller owns File and must close it.
type Download struct {
	File     *os.File
	Filename string
	Size     int64
}

// Open returns a readable stream of the exact bytes written for a completed
// recording.
func (c *Controller) Open(id string) (*Download, error) {
	rec, exists := c.store.Get(id)
	if !exists {
		return nil, ErrNotFound
	}
	if rec.CurrentState() != StateCompleted {
		return nil, ErrNotReady
	}

	file, err := os.Open(rec.Path)
	if err != nil {
		if os.IsNotExist(err) {
			observability.RecordFileMissing()
			return nil, ErrFileMissing
		}
		return nil, fmt.Errorf("failed to open recording file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat recording file: %w", err)
	}

	observability.RecordDownload()

	return &Download{
		File:     file,
		Filename: rec.Filename,
		Size:     info.Size(),
	}, nil
}

// Delete removes a recording and its backing file. An active recording's
// writer is force-closed first; close and unlink failures are logged but do
// not stop the deletion.
func (c *Controller) Delete(ctx context.Context, id string) error {
	rec, exists := c.store.Get(id)
	if !exists {
		return ErrNotFound
	}

	// Wait briefly for an in-flight append, but deletion proceeds either way.
	acquired := c.acquireBounded(ctx, rec)

	if err := rec.Writer.Close(); err != nil {
		c.logger.Warn().Err(err).Str("recordingId", id).Msg("Close during delete failed")
	}

	// Drop the recording from the store before unlinking so the directory
	// watcher sees the file of an untracked recording disappear, not a
	// tracked one.
	c.store.Remove(id)

	if err := os.Remove(rec.Path); err != nil && !os.IsNotExist(err) {
		c.logger.Warn().Err(err).Str("recordingId", id).Msg("Failed to remove recording file")
	}

	if acquired {
		rec.release()
	}

	observability.SetActiveRecordings(c.store.Count())

	c.logger.Info().
		Str("recordingId", id).
		Str("filename", rec.Filename).
		Msg("Recording deleted")

	return nil
}

// Abort finalizes a recording whose owning connection terminated abnormally:
// best-effort flush and close, stats frozen, state completed so the bytes
// already on disk stay downloadable. Close failures are logged, never
// propagated; the disconnect has already happened.
func (c *Controller) Abort(id string) {
	rec, exists := c.store.Get(id)
	if !exists {
		return
	}
	if rec.CurrentState() != StateActive {
		return
	}

	acquired := c.acquireBounded(context.Background(), rec)

	if err := rec.Writer.Close(); err != nil {
		c.logger.Warn().Err(err).Str("recordingId", id).Msg("Close on abnormal disconnect failed")
	}

	c.finalize(rec)
	if acquired {
		rec.release()
	}

	c.logger.Warn().
		Str("recordingId", id).
		Msg("Recording force-completed after abnormal disconnect")
}

// List returns summaries of every tracked recording.
func (c *Controller) List() []Summary {
	return c.store.List()
}

// Count returns the number of tracked recordings.
func (c *Controller) Count() int {
	return c.store.Count()
}

// CloseAll force-closes every active recording's writer. Called on daemon
// shutdown so no file handle leaks past process exit.
func (c *Controller) CloseAll() {
	for _, summary := range c.store.List() {
		if summary.Completed {
			continue
		}
		c.Abort(summary.RecordingID)
	}
}
