// Package ratelimit provides per-key token bucket admission control.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

const (
	DefaultCapacity        = 100
	DefaultWindow          = time.Minute
	DefaultMaxKeys         = 10000
	DefaultKeyTTL          = 15 * time.Minute
	DefaultCleanupInterval = 5 * time.Minute
)

// Config describes the bucket shape and the bounds of the key store.
type Config struct {
	// Capacity is the bucket size; a full bucket admits a burst of Capacity.
	Capacity int
	// Window is the time to refill an empty bucket.
	Window time.Duration
	// MaxKeys bounds the number of live buckets (LRU eviction).
	MaxKeys int
	// KeyTTL removes buckets idle for longer than this.
	KeyTTL          time.Duration
	CleanupInterval time.Duration
}

// DefaultConfig returns 100 requests per minute per key.
func DefaultConfig() Config {
	return Config{
		Capacity:        DefaultCapacity,
		Window:          DefaultWindow,
		MaxKeys:         DefaultMaxKeys,
		KeyTTL:          DefaultKeyTTL,
		CleanupInterval: DefaultCleanupInterval,
	}
}

func (c Config) validate() error {
	if c.Capacity <= 0 {
		return errors.New("rate limit capacity must be positive")
	}
	if c.Window <= 0 {
		return errors.New("rate limit window must be positive")
	}
	if c.MaxKeys <= 0 {
		return errors.New("rate limit max keys must be positive")
	}
	// An idle bucket is full again after one window, so dropping it after
	// KeyTTL >= Window is indistinguishable from keeping it.
	if c.KeyTTL < c.Window {
		return fmt.Errorf("rate limit key ttl (%s) must not be shorter than the window (%s)", c.KeyTTL, c.Window)
	}
	if c.CleanupInterval <= 0 {
		return errors.New("rate limit cleanup interval must be positive")
	}
	return nil
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// RetryAfter is set on denial.
	RetryAfter time.Duration
	// ResetAt is when the bucket will be full again.
	ResetAt time.Time
}

type bucket struct {
	limiter    *rate.Limiter
	lastAccess atomic.Int64
}

func (b *bucket) touch(now time.Time) {
	b.lastAccess.Store(now.UnixNano())
}

// Limiter holds one token bucket per key. Lookups go through a bounded LRU;
// the check-and-decrement itself is serialized only per bucket.
type Limiter struct {
	cfg      Config
	refill   rate.Limit
	buckets  *lru.Cache[string, *bucket]
	now      func() time.Time
	onEvict  func()
	onSize   func(int)
	stopCh   chan struct{}
	stopOnce sync.Once
}

// Option configures a Limiter
type Option func(*Limiter)

// WithClock overrides the time source used for refill arithmetic.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// WithEvictionHook is called each time a bucket leaves the key store.
func WithEvictionHook(fn func()) Option {
	return func(l *Limiter) {
		l.onEvict = fn
	}
}

// WithSizeHook is called with the number of live buckets whenever a bucket
// is created or the idle sweep runs.
func WithSizeHook(fn func(n int)) Option {
	return func(l *Limiter) {
		l.onSize = fn
	}
}

// New creates a limiter and starts its idle-bucket sweep, which stops when
// ctx is cancelled or Stop is called.
func New(ctx context.Context, cfg Config, opts ...Option) (*Limiter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	l := &Limiter{
		cfg:    cfg,
		refill: rate.Limit(float64(cfg.Capacity) / cfg.Window.Seconds()),
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}

	cache, err := lru.NewWithEvict[string, *bucket](cfg.MaxKeys, func(string, *bucket) {
		if l.onEvict != nil {
			l.onEvict()
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bucket store: %w", err)
	}
	l.buckets = cache

	go l.cleanupLoop(ctx)

	return l, nil
}

// Admit consumes one token from key's bucket if available. A consumed token
// is never refunded, even if the request later fails.
func (l *Limiter) Admit(key string) Decision {
	now := l.now()
	b := l.bucket(key, now)

	allowed := b.limiter.AllowN(now, 1)
	tokens := b.limiter.TokensAt(now)
	if tokens < 0 {
		tokens = 0
	}

	d := Decision{
		Allowed:   allowed,
		Limit:     l.cfg.Capacity,
		Remaining: int(math.Floor(tokens)),
		ResetAt:   now.Add(l.timeToFull(tokens)),
	}
	if !allowed {
		d.Remaining = 0
		d.RetryAfter = l.cfg.Window
	}
	return d
}

// Len returns the number of live buckets
func (l *Limiter) Len() int {
	return l.buckets.Len()
}

// Config returns the limiter configuration
func (l *Limiter) Config() Config {
	return l.cfg
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

func (l *Limiter) bucket(key string, now time.Time) *bucket {
	if b, ok := l.buckets.Get(key); ok {
		b.touch(now)
		return b
	}

	nb := &bucket{limiter: rate.NewLimiter(l.refill, l.cfg.Capacity)}
	nb.touch(now)
	// Two requests may race to create the same bucket; PeekOrAdd keeps the
	// first one so both draw from it.
	if prev, found, _ := l.buckets.PeekOrAdd(key, nb); found {
		prev.touch(now)
		return prev
	}
	l.reportSize()
	return nb
}

func (l *Limiter) reportSize() {
	if l.onSize != nil {
		l.onSize(l.buckets.Len())
	}
}

func (l *Limiter) timeToFull(tokens float64) time.Duration {
	missing := float64(l.cfg.Capacity) - tokens
	if missing <= 0 {
		return 0
	}
	return time.Duration(missing / float64(l.refill) * float64(time.Second))
}

// cleanupLoop periodically removes idle buckets
func (l *Limiter) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

// cleanup removes buckets that haven't been used for KeyTTL
func (l *Limiter) cleanup() int {
	cutoff := l.now().Add(-l.cfg.KeyTTL).UnixNano()
	removed := 0
	for _, key := range l.buckets.Keys() {
		b, ok := l.buckets.Peek(key)
		if !ok || b.lastAccess.Load() >= cutoff {
			continue
		}
		if l.removeIdle(key, b, cutoff) {
			removed++
		}
	}
	l.reportSize()
	return removed
}

// removeIdle drops b, which was idle at cutoff. A request may touch b after
// the idle check; b is then put back unless that key already has a newer
// bucket, so the tokens it spent are not handed out again.
func (l *Limiter) removeIdle(key string, b *bucket, cutoff int64) bool {
	if cur, ok := l.buckets.Peek(key); !ok || cur != b {
		return false
	}
	if !l.buckets.Remove(key) {
		return false
	}
	if b.lastAccess.Load() < cutoff {
		return true
	}
	l.buckets.PeekOrAdd(key, b)
	return false
}
