// Package ratelimit provides per-action, per-caller fixed-window rate limiting.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// ErrRateLimitExceeded is returned when a caller has used up its window for an action.
type ErrRateLimitExceeded struct {
	Action     string
	Caller     string
	Limit      int
	Window     time.Duration
	RetryAfter time.Duration
}

func (e *ErrRateLimitExceeded) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s: %d requests per %s", e.Action, e.Limit, e.Window)
}

// bucket counts requests for one (action, caller) pair within the current window.
type bucket struct {
	count       int
	windowStart time.Time
	window      time.Duration
}

// Info contains information about rate limit status.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Limiter manages fixed-window counters keyed by action and caller.
type Limiter struct {
	buckets       map[string]*bucket
	mu            sync.Mutex
	config        *Config
	now           func() time.Time
	cleanupTicker *time.Ticker
	cleanupStop   chan struct{}
	stopOnce      sync.Once
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	CleanupInterval time.Duration
	Whitelist       map[string]bool
	Actions         []ActionConfig
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock replaces the limiter's time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// NewLimiter creates a new rate limiter with the given configuration.
func NewLimiter(config *Config, opts ...Option) *Limiter {
	if config == nil {
		config = &Config{
			Enabled:         true,
			CleanupInterval: 5 * time.Minute,
			Whitelist:       make(map[string]bool),
			Actions:         DefaultActionConfigs(),
		}
	}

	limiter := &Limiter{
		buckets: make(map[string]*bucket),
		config:  config,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(limiter)
	}

	if config.Enabled && config.CleanupInterval > 0 {
		limiter.cleanupTicker = time.NewTicker(config.CleanupInterval)
		limiter.cleanupStop = make(chan struct{})
		go limiter.cleanup()
	}

	return limiter
}

// Check counts one request for action by caller against limit per window.
// It returns *ErrRateLimitExceeded when the caller's window is already full.
func (l *Limiter) Check(action, caller string, limit int, window time.Duration) error {
	info := l.take(action, caller, limit, window)
	if info.Allowed {
		return nil
	}
	return &ErrRateLimitExceeded{
		Action:     action,
		Caller:     caller,
		Limit:      limit,
		Window:     window,
		RetryAfter: info.RetryAfter,
	}
}

// Allow checks a request against the configured limit for action.
// Actions without configuration, whitelisted callers and a disabled limiter are always allowed.
func (l *Limiter) Allow(action, caller string) (bool, Info) {
	if !l.config.Enabled || l.config.Whitelist[caller] {
		return true, Info{Allowed: true}
	}

	actionConfig := MatchAction(action, l.config.Actions)
	if actionConfig == nil || actionConfig.Limit <= 0 {
		return true, Info{Allowed: true}
	}

	info := l.take(action, caller, actionConfig.Limit, actionConfig.Window)
	return info.Allowed, info
}

// take performs the read, maybe-reset and increment of one bucket as a single step.
func (l *Limiter) take(action, caller string, limit int, window time.Duration) Info {
	key := action + ":" + caller
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, exists := l.buckets[key]
	if !exists || now.Sub(b.windowStart) >= window {
		b = &bucket{count: 1, windowStart: now, window: window}
		l.buckets[key] = b
		return Info{
			Allowed:   true,
			Limit:     limit,
			Remaining: max(limit-1, 0),
			ResetTime: now.Add(window),
		}
	}

	resetTime := b.windowStart.Add(window)
	if b.count < limit {
		b.count++
		return Info{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit - b.count,
			ResetTime: resetTime,
		}
	}

	return Info{
		Allowed:    false,
		Limit:      limit,
		Remaining:  0,
		ResetTime:  resetTime,
		RetryAfter: max(resetTime.Sub(now), 0),
	}
}

// cleanup removes expired buckets until Stop is called.
func (l *Limiter) cleanup() {
	for {
		select {
		case <-l.cleanupTicker.C:
			l.cleanupBuckets()
		case <-l.cleanupStop:
			return
		}
	}
}

// cleanupBuckets drops buckets whose window has elapsed; the next request would reset them anyway.
func (l *Limiter) cleanupBuckets() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, b := range l.buckets {
		if now.Sub(b.windowStart) >= b.window {
			delete(l.buckets, key)
		}
	}
}

// bucketCount returns the number of live buckets.
func (l *Limiter) bucketCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Stop stops the cleanup goroutine.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		if l.cleanupTicker != nil {
			l.cleanupTicker.Stop()
		}
		if l.cleanupStop != nil {
			close(l.cleanupStop)
		}
	})
}
