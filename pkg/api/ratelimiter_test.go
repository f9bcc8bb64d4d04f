package api

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllowsUnderLimit(t *testing.T) {
	rl := NewRateLimiter(5)
	defer rl.Stop()

	for i := 0; i < 5; i++ {
		assert.True(t, rl.CheckLimit("1.2.3.4"))
	}
}

func TestRateLimiterBlocksOverLimit(t *testing.T) {
	rl := NewRateLimiter(3)
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		assert.True(t, rl.CheckLimit("1.2.3.4"))
	}
	assert.False(t, rl.CheckLimit("1.2.3.4"))
	assert.False(t, rl.CheckLimit("1.2.3.4"))
}

func TestRateLimiterIsolatesIPs(t *testing.T) {
	rl := NewRateLimiter(1)
	defer rl.Stop()

	assert.True(t, rl.CheckLimit("1.1.1.1"))
	assert.False(t, rl.CheckLimit("1.1.1.1"))
	assert.True(t, rl.CheckLimit("2.2.2.2"))
}

func TestRateLimiterWindowSlides(t *testing.T) {
	rl := NewRateLimiter(1)
	defer rl.Stop()

	assert.True(t, rl.CheckLimit("1.2.3.4"))

	// Age the recorded request past the window.
	rl.mu.Lock()
	rl.limits["1.2.3.4"].requests[0] = time.Now().UnixMilli() - 61000
	rl.mu.Unlock()

	assert.True(t, rl.CheckLimit("1.2.3.4"))
}

func TestRetryAfter(t *testing.T) {
	rl := NewRateLimiter(1)
	defer rl.Stop()

	assert.Equal(t, 0, rl.RetryAfter("unknown"))

	assert.True(t, rl.CheckLimit("1.2.3.4"))
	retry := rl.RetryAfter("1.2.3.4")
	assert.Greater(t, retry, 0)
	assert.LessOrEqual(t, retry, 60)
}

func TestRateLimiterCleanupDropsIdleIPs(t *testing.T) {
	rl := NewRateLimiter(10)
	defer rl.Stop()

	rl.CheckLimit("1.2.3.4")

	rl.mu.Lock()
	rl.limits["1.2.3.4"].requests[0] = time.Now().UnixMilli() - 120000
	rl.mu.Unlock()

	rl.cleanup()

	rl.mu.Lock()
	_, exists := rl.limits["1.2.3.4"]
	rl.mu.Unlock()
	assert.False(t, exists)
}

func TestRateLimiterConcurrentAccess(t *testing.T) {
	rl := NewRateLimiter(1000)
	defer rl.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				rl.CheckLimit("1.2.3.4")
			}
		}()
	}
	wg.Wait()

	assert.False(t, rl.CheckLimit("1.2.3.4"))
}

func TestRateLimiterStopIdempotent(t *testing.T) {
	rl := NewRateLimiter(1)
	rl.Stop()
	rl.Stop()
}
