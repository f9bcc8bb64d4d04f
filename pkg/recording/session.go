package recording

import (
	"sync"
	"time"
)

// State is the lifecycle state of a recording. Deletion removes the
// recording from the store entirely rather than being a stored state.
type State int

const (
	// StateActive accepts chunk appends.
	StateActive State = iota
	// StateCompleted is terminal: the writer is closed and stats are frozen.
	StateCompleted
)

// String returns the wire representation of the state.
func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Recording is one capture attempt: an opaque id bound to exactly one
// backing file and one writer for its entire lifetime.
type Recording struct {
	ID        string
	Filename  string
	Path      string
	StartTime time.Time
	Writer    *ChunkWriter

	// mu guards the mutable fields below so no caller ever observes a
	// half-updated recording.
	mu         sync.Mutex
	state      State
	duration   time.Duration
	chunkCount int64
	totalSize  int64

	// gate serializes all file I/O for this recording. Capacity one:
	// acquire by sending, release by receiving. Chunk N+1's write never
	// starts before chunk N's write has been acknowledged.
	gate chan struct{}
}

// Snapshot returns a consistent read-only view of the recording.
func (r *Recording) Snapshot() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Summary{
		RecordingID: r.ID,
		Filename:    r.Filename,
		StartTime:   r.StartTime.UnixMilli(),
		ChunkCount:  r.chunkCount,
		TotalSize:   r.totalSize,
		Completed:   r.state == StateCompleted,
	}
}

// CurrentState returns the recording's lifecycle state.
func (r *Recording) CurrentState() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state
}

// acquire takes the recording's I/O gate, giving up when done is closed or
// fires. It reports whether the gate was taken.
func (r *Recording) acquire(done <-chan struct{}) bool {
	select {
	case r.gate <- struct{}{}:
		return true
	case <-done:
		return false
	}
}

// release frees the I/O gate. Must only be called after a successful acquire.
func (r *Recording) release() {
	<-r.gate
}

// Summary is the read-only view of a recording returned by list operations.
type Summary struct {
	RecordingID string `json:"recordingId"`
	Filename    string `json:"filename"`
	StartTime   int64  `json:"startTime"`
	ChunkCount  int64  `json:"chunkCount"`
	TotalSize   int64  `json:"totalSize"`
	Completed   bool   `json:"completed"`
}

// Stats is the frozen snapshot returned when a recording stops.
type Stats struct {
	RecordingID string  `json:"recordingId"`
	Filename    string  `json:"filename"`
	Duration    float64 `json:"duration"`
	TotalSize   int64   `json:"totalSize"`
	ChunkCount  int64   `json:"chunkCount"`
	DownloadURL string  `json:"downloadUrl"`
}

// AppendResult carries the post-append counters back to the ingesting
// transport.
type AppendResult struct {
	ChunkNumber int64 `json:"chunkNumber"`
	ChunkSize   int64 `json:"chunkSize"`
	TotalSize   int64 `json:"totalSize"`
}
