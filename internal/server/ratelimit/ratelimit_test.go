package ratelimit

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(clock *fakeClock) *Limiter {
	return NewLimiter(&Config{
		Enabled: true,
		Actions: DefaultActionConfigs(),
	}, WithClock(clock.Now))
}

func TestLimiter_Check_EleventhCallFails(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestLimiter(clock)
	defer limiter.Stop()

	for i := 0; i < 10; i++ {
		require.NoError(t, limiter.Check(ActionCreateJob, "10.0.0.1", 10, time.Hour), "request %d", i+1)
	}

	err := limiter.Check(ActionCreateJob, "10.0.0.1", 10, time.Hour)
	require.Error(t, err)

	var rlErr *ErrRateLimitExceeded
	require.True(t, errors.As(err, &rlErr))
	assert.Equal(t, ActionCreateJob, rlErr.Action)
	assert.Equal(t, 10, rlErr.Limit)
	assert.Equal(t, time.Hour, rlErr.RetryAfter)
}

func TestLimiter_Check_WindowRolloverResets(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestLimiter(clock)
	defer limiter.Stop()

	for i := 0; i < 10; i++ {
		require.NoError(t, limiter.Check(ActionCreateJob, "10.0.0.1", 10, time.Hour))
	}
	require.Error(t, limiter.Check(ActionCreateJob, "10.0.0.1", 10, time.Hour))

	clock.Advance(time.Hour)

	require.NoError(t, limiter.Check(ActionCreateJob, "10.0.0.1", 10, time.Hour))

	// Counter restarted at 1, so nine more fit in the new window.
	for i := 0; i < 9; i++ {
		require.NoError(t, limiter.Check(ActionCreateJob, "10.0.0.1", 10, time.Hour), "request %d", i+2)
	}
	assert.Error(t, limiter.Check(ActionCreateJob, "10.0.0.1", 10, time.Hour))
}

func TestLimiter_Check_RetryAfterShrinks(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestLimiter(clock)
	defer limiter.Stop()

	require.NoError(t, limiter.Check(ActionSourceMore, "caller", 1, time.Hour))
	clock.Advance(20 * time.Minute)

	err := limiter.Check(ActionSourceMore, "caller", 1, time.Hour)
	var rlErr *ErrRateLimitExceeded
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, 40*time.Minute, rlErr.RetryAfter)
}

func TestLimiter_Check_KeysAreIndependent(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestLimiter(clock)
	defer limiter.Stop()

	require.NoError(t, limiter.Check(ActionCreateJob, "a", 1, time.Hour))
	assert.Error(t, limiter.Check(ActionCreateJob, "a", 1, time.Hour))

	assert.NoError(t, limiter.Check(ActionCreateJob, "b", 1, time.Hour), "different caller")
	assert.NoError(t, limiter.Check(ActionSourceMore, "a", 1, time.Hour), "different action")
}

func TestLimiter_Allow_UsesActionConfig(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestLimiter(clock)
	defer limiter.Stop()

	for i := 0; i < 5; i++ {
		allowed, info := limiter.Allow(ActionSourceMore, "127.0.0.1")
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 5, info.Limit)
		assert.Equal(t, 4-i, info.Remaining)
	}

	allowed, info := limiter.Allow(ActionSourceMore, "127.0.0.1")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Equal(t, time.Hour, info.RetryAfter)
	assert.Equal(t, clock.Now().Add(time.Hour), info.ResetTime)
}

func TestLimiter_Allow_UnknownActionUnlimited(t *testing.T) {
	limiter := newTestLimiter(newFakeClock())
	defer limiter.Stop()

	for i := 0; i < 100; i++ {
		allowed, info := limiter.Allow("read_stats", "127.0.0.1")
		require.True(t, allowed)
		assert.Equal(t, 0, info.Limit)
	}
}

func TestLimiter_Whitelist(t *testing.T) {
	limiter := NewLimiter(&Config{
		Enabled:   true,
		Whitelist: map[string]bool{"127.0.0.1": true},
		Actions:   []ActionConfig{{Action: ActionCreateJob, Limit: 1, Window: time.Minute}},
	})
	defer limiter.Stop()

	for i := 0; i < 50; i++ {
		allowed, _ := limiter.Allow(ActionCreateJob, "127.0.0.1")
		require.True(t, allowed, "whitelisted request %d", i+1)
	}
}

func TestLimiter_Disabled(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: false})
	defer limiter.Stop()

	for i := 0; i < 50; i++ {
		allowed, _ := limiter.Allow(ActionCreateJob, "127.0.0.1")
		require.True(t, allowed)
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true})
	defer limiter.Stop()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowedCount := 0

	// 200 racing callers against a limit of 100 must admit exactly 100.
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Check(ActionCreateJob, "127.0.0.1", 100, time.Minute) == nil {
				mu.Lock()
				allowedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, allowedCount)
}

func TestLimiter_CleanupBuckets(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestLimiter(clock)
	defer limiter.Stop()

	require.NoError(t, limiter.Check(ActionCreateJob, "a", 10, time.Hour))
	require.NoError(t, limiter.Check(ActionSourceMore, "a", 5, 10*time.Minute))
	require.Equal(t, 2, limiter.bucketCount())

	clock.Advance(15 * time.Minute)
	limiter.cleanupBuckets()
	assert.Equal(t, 1, limiter.bucketCount(), "only the expired source_more bucket is dropped")

	clock.Advance(time.Hour)
	limiter.cleanupBuckets()
	assert.Equal(t, 0, limiter.bucketCount())
}

func TestNewLimiter_NilConfig(t *testing.T) {
	limiter := NewLimiter(nil)
	defer limiter.Stop()
	defer limiter.Stop() // Stop is idempotent

	allowed, info := limiter.Allow(ActionCreateJob, "127.0.0.1")
	assert.True(t, allowed)
	assert.Equal(t, 10, info.Limit)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_CREATE_JOB_LIMIT", "3")
	t.Setenv("RATE_LIMIT_SOURCE_MORE_WINDOW", "30m")
	t.Setenv("RATE_LIMIT_WHITELIST", "10.0.0.1, 10.0.0.2")

	cfg := LoadConfig()
	require.True(t, cfg.Enabled)
	assert.True(t, cfg.Whitelist["10.0.0.1"])
	assert.True(t, cfg.Whitelist["10.0.0.2"])

	createJob := MatchAction(ActionCreateJob, cfg.Actions)
	require.NotNil(t, createJob)
	assert.Equal(t, 3, createJob.Limit)
	assert.Equal(t, time.Hour, createJob.Window)

	sourceMore := MatchAction(ActionSourceMore, cfg.Actions)
	require.NotNil(t, sourceMore)
	assert.Equal(t, 5, sourceMore.Limit)
	assert.Equal(t, 30*time.Minute, sourceMore.Window)
}

func TestLoadConfig_Disabled(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	cfg := LoadConfig()
	assert.False(t, cfg.Enabled)
	assert.Nil(t, MatchAction(ActionCreateJob, cfg.Actions))
}
