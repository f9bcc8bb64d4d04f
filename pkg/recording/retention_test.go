package recording

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRetention(t *testing.T, maxAge time.Duration) (*Retention, *Controller) {
	t.Helper()

	c := newTestController(t)
	r, err := NewRetention(RetentionConfig{
		Controller: c,
		MaxAge:     maxAge,
		Logger:     zerolog.New(os.Stdout).Level(zerolog.Disabled),
	})
	require.NoError(t, err)

	return r, c
}

func TestNewRetentionRequiresController(t *testing.T) {
	_, err := NewRetention(RetentionConfig{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "controller is required")
}

func TestNewRetentionRejectsBadSchedule(t *testing.T) {
	c := newTestController(t)

	_, err := NewRetention(RetentionConfig{
		Controller: c,
		Schedule:   "not a cron expr",
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid retention schedule")
}

func TestNewRetentionDefaults(t *testing.T) {
	r, _ := newTestRetention(t, 0)

	assert.Equal(t, DefaultRetentionAge, r.maxAge)
	assert.Equal(t, DefaultRetentionSchedule, r.schedule)
}

func TestSweepDeletesExpiredCompleted(t *testing.T) {
	r, c := newTestRetention(t, time.Hour)
	ctx := context.Background()

	expired, err := c.Start()
	require.NoError(t, err)
	_, err = c.Stop(ctx, expired.RecordingID)
	require.NoError(t, err)

	fresh, err := c.Start()
	require.NoError(t, err)
	_, err = c.Stop(ctx, fresh.RecordingID)
	require.NoError(t, err)

	// Age the first one past the cutoff.
	rec, exists := c.store.Get(expired.RecordingID)
	require.True(t, exists)
	rec.StartTime = time.Now().Add(-2 * time.Hour)

	assert.Equal(t, 1, r.Sweep())
	assert.Equal(t, 1, c.Count())

	_, err = c.Open(expired.RecordingID)
	assert.ErrorIs(t, err, ErrNotFound)

	dl, err := c.Open(fresh.RecordingID)
	require.NoError(t, err)
	dl.File.Close()
}

func TestSweepSkipsActiveRecordings(t *testing.T) {
	r, c := newTestRetention(t, time.Hour)

	active, err := c.Start()
	require.NoError(t, err)

	rec, exists := c.store.Get(active.RecordingID)
	require.True(t, exists)
	rec.StartTime = time.Now().Add(-48 * time.Hour)

	assert.Equal(t, 0, r.Sweep())
	assert.Equal(t, 1, c.Count())
}

func TestSweepEmptyStore(t *testing.T) {
	r, _ := newTestRetention(t, time.Hour)
	assert.Equal(t, 0, r.Sweep())
}

func TestRetentionStartStop(t *testing.T) {
	r, _ := newTestRetention(t, time.Hour)

	require.NoError(t, r.Start())
	r.Stop()
}
