package limiter

import (
	"sync"
	"time"
)

// Limiter decides whether a client may make another request
type Limiter interface {
	// Allow reports whether a request from key (the client IP) is within its quota
	Allow(key string) bool

	// Close releases connections held by the limiter
	Close() error
}

// idleBucketTTL is how long a bucket may go unused before it is evicted
const idleBucketTTL = 5 * time.Minute

// tokenBucket holds the quota of a single client.
// Tokens refill continuously at refillRate per second up to capacity.
type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	refillRate float64
	lastSeen   time.Time
}

func newTokenBucket(capacity, refillRate float64, now time.Time) *tokenBucket {
	return &tokenBucket{
		tokens:     capacity,
		capacity:   capacity,
		refillRate: refillRate,
		lastSeen:   now,
	}
}

// take refills the bucket up to now and consumes one token if available
func (b *tokenBucket) take(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if elapsed := now.Sub(b.lastSeen).Seconds(); elapsed > 0 {
		b.tokens = min(b.capacity, b.tokens+elapsed*b.refillRate)
	}
	b.lastSeen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (b *tokenBucket) idleSince(now time.Time) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return now.Sub(b.lastSeen)
}

// MemoryLimiter is a per-client token bucket limiter for a single instance.
// A client may burst up to limit requests, then gets limit per window.
type MemoryLimiter struct {
	buckets    sync.Map // client key -> *tokenBucket
	capacity   float64
	refillRate float64
	now        func() time.Time

	sweepMu   sync.Mutex
	lastSweep time.Time
}

// NewMemoryLimiter allows limit requests per window for each client
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return newMemoryLimiter(limit, window, time.Now)
}

func newMemoryLimiter(limit int, window time.Duration, now func() time.Time) *MemoryLimiter {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Second
	}

	return &MemoryLimiter{
		capacity:   float64(limit),
		refillRate: float64(limit) / window.Seconds(),
		now:        now,
		lastSweep:  now(),
	}
}

// Allow implements Limiter
func (l *MemoryLimiter) Allow(key string) bool {
	now := l.now()

	value, ok := l.buckets.Load(key)
	if !ok {
		value, _ = l.buckets.LoadOrStore(key, newTokenBucket(l.capacity, l.refillRate, now))
	}
	allowed := value.(*tokenBucket).take(now)

	l.sweep(now)
	return allowed
}

// sweep drops idle buckets, at most once per idleBucketTTL
func (l *MemoryLimiter) sweep(now time.Time) {
	if !l.sweepMu.TryLock() {
		return
	}
	defer l.sweepMu.Unlock()

	if now.Sub(l.lastSweep) < idleBucketTTL {
		return
	}
	l.lastSweep = now

	l.buckets.Range(func(key, value any) bool {
		if value.(*tokenBucket).idleSince(now) >= idleBucketTTL {
			l.buckets.Delete(key)
		}
		return true
	})
}

// size counts live buckets
func (l *MemoryLimiter) size() int {
	n := 0
	l.buckets.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Close implements Limiter. The in-memory limiter holds no resources.
func (l *MemoryLimiter) Close() error {
	return nil
}
