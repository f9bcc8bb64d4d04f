package recording

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenWriterCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recording-test.webm")

	w, err := OpenWriter(path)
	require.NoError(t, err)
	defer w.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
	assert.Equal(t, path, w.Path())
}

func TestOpenWriterBadPath(t *testing.T) {
	_, err := OpenWriter(filepath.Join(t.TempDir(), "missing", "recording.webm"))
	assert.Error(t, err)
}

func TestAppendPreservesOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recording-order.webm")

	w, err := OpenWriter(path)
	require.NoError(t, err)

	chunks := [][]byte{
		[]byte("first-"),
		[]byte("second-"),
		[]byte("third"),
	}
	for _, chunk := range chunks {
		require.NoError(t, w.Append(chunk))
	}
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first-second-third", string(data))
}

func TestAppendZeroLength(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recording-empty.webm")

	w, err := OpenWriter(path)
	require.NoError(t, err)

	require.NoError(t, w.Append(nil))
	require.NoError(t, w.Append([]byte{}))
	require.NoError(t, w.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Size())
}

func TestCloseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recording-close.webm")

	w, err := OpenWriter(path)
	require.NoError(t, err)

	require.NoError(t, w.Append([]byte("data")))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
}

func TestAppendAfterCloseFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recording-late.webm")

	w, err := OpenWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	err = w.Append([]byte("too late"))
	assert.Error(t, err)
}

func TestOpenWriterTruncatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recording-trunc.webm")
	require.NoError(t, os.WriteFile(path, []byte("stale bytes"), 0644))

	w, err := OpenWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Append([]byte("new")))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}
