package recording

import "errors"

// Errors returned by the store and controller. Adapters map these onto
// transport-specific codes; anything else is an I/O failure wrapped with %w.
var (
	// ErrNotFound means no recording exists for the given id.
	ErrNotFound = errors.New("recording not found")

	// ErrInvalidState means the operation is illegal for the recording's
	// current state, e.g. appending to or stopping a completed recording.
	ErrInvalidState = errors.New("recording already completed")

	// ErrNotReady means the recording has not been stopped yet and its
	// backing file cannot be read.
	ErrNotReady = errors.New("recording not yet completed")

	// ErrFileMissing means the backing file of a completed recording was
	// removed out from under us.
	ErrFileMissing = errors.New("recording file not found")
)
