package limiter

import (
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// fakeClock is a manually advanced time source
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// TestMemoryLimiter_BasicRateLimit tests burst then refill
func TestMemoryLimiter_BasicRateLimit(t *testing.T) {
	clock := newFakeClock()
	limiter := newMemoryLimiter(5, time.Second, clock.Now)
	defer limiter.Close()

	ip := "192.168.1.1"

	for i := 0; i < 5; i++ {
		if !limiter.Allow(ip) {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	if limiter.Allow(ip) {
		t.Error("Request 6 should be rate limited")
	}

	clock.Advance(time.Second)

	if !limiter.Allow(ip) {
		t.Error("Request should be allowed after refill")
	}
}

// TestMemoryLimiter_PerIPIsolation tests that different IPs have separate limits
func TestMemoryLimiter_PerIPIsolation(t *testing.T) {
	limiter := newMemoryLimiter(3, time.Second, newFakeClock().Now)

	for i := 0; i < 3; i++ {
		if !limiter.Allow("192.168.1.1") {
			t.Errorf("Request %d for IP1 should be allowed", i+1)
		}
	}
	if limiter.Allow("192.168.1.1") {
		t.Error("IP1 should be rate limited")
	}

	for i := 0; i < 3; i++ {
		if !limiter.Allow("192.168.1.2") {
			t.Errorf("Request %d for IP2 should be allowed", i+1)
		}
	}
	if limiter.Allow("192.168.1.2") {
		t.Error("IP2 should be rate limited")
	}
}

// TestMemoryLimiter_PartialRefill tests that tokens refill proportionally
func TestMemoryLimiter_PartialRefill(t *testing.T) {
	clock := newFakeClock()
	limiter := newMemoryLimiter(10, time.Second, clock.Now)
	ip := "192.168.1.1"

	for i := 0; i < 10; i++ {
		limiter.Allow(ip)
	}
	if limiter.Allow(ip) {
		t.Error("Should be rate limited after using all tokens")
	}

	clock.Advance(500 * time.Millisecond)

	allowed := 0
	for i := 0; i < 10; i++ {
		if limiter.Allow(ip) {
			allowed++
		}
	}
	if allowed != 5 {
		t.Errorf("Expected 5 allowed requests after half a window, got %d", allowed)
	}
}

// TestMemoryLimiter_LongWindow tests limits spread over several seconds
func TestMemoryLimiter_LongWindow(t *testing.T) {
	clock := newFakeClock()
	limiter := newMemoryLimiter(1, 5*time.Second, clock.Now)
	ip := "10.0.0.1"

	if !limiter.Allow(ip) {
		t.Fatal("first request should be allowed")
	}

	clock.Advance(4 * time.Second)
	if limiter.Allow(ip) {
		t.Error("request within the window should be limited")
	}

	clock.Advance(1100 * time.Millisecond)
	if !limiter.Allow(ip) {
		t.Error("request after the window should be allowed")
	}
}

// TestMemoryLimiter_Concurrency tests thread safety
func TestMemoryLimiter_Concurrency(t *testing.T) {
	limiter := newMemoryLimiter(100, time.Second, newFakeClock().Now)

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		allowed int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Allow("192.168.1.1") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 100 {
		t.Errorf("Expected exactly 100 allowed requests with a frozen clock, got %d", allowed)
	}
}

// TestMemoryLimiter_EvictsIdleBuckets tests cleanup of inactive clients
func TestMemoryLimiter_EvictsIdleBuckets(t *testing.T) {
	clock := newFakeClock()
	limiter := newMemoryLimiter(10, time.Second, clock.Now)

	limiter.Allow("10.0.0.1")
	limiter.Allow("10.0.0.2")
	if limiter.size() != 2 {
		t.Fatalf("expected 2 buckets, got %d", limiter.size())
	}

	clock.Advance(idleBucketTTL + time.Second)
	limiter.Allow("10.0.0.3")

	if limiter.size() != 1 {
		t.Errorf("expected idle buckets to be evicted, %d left", limiter.size())
	}
}

// TestMemoryLimiter_Defaults tests that nonsensical sizes are clamped
func TestMemoryLimiter_Defaults(t *testing.T) {
	limiter := newMemoryLimiter(0, 0, newFakeClock().Now)

	if !limiter.Allow("10.0.0.1") {
		t.Error("first request should be allowed")
	}
	if limiter.Allow("10.0.0.1") {
		t.Error("second request should be limited with limit clamped to 1")
	}
}

// TestMemoryLimiter_Close tests that Close doesn't error
func TestMemoryLimiter_Close(t *testing.T) {
	if err := NewMemoryLimiter(10, time.Second).Close(); err != nil {
		t.Errorf("Close should not return error, got: %v", err)
	}
}

func newTestRedisLimiter(t *testing.T, limit int, window time.Duration) (*RedisLimiter, *miniredis.Miniredis, *fakeClock) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	clock := newFakeClock()
	l := NewRedisLimiterWithClient(client, limit, window, nil)
	l.now = clock.Now
	t.Cleanup(func() { l.Close() })

	return l, mr, clock
}

// TestRedisLimiter_FixedWindow tests counting within and across windows
func TestRedisLimiter_FixedWindow(t *testing.T) {
	l, _, clock := newTestRedisLimiter(t, 3, time.Second)
	ip := "192.168.1.1"

	for i := 0; i < 3; i++ {
		if !l.Allow(ip) {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}
	if l.Allow(ip) {
		t.Error("Request 4 should be rate limited")
	}

	clock.Advance(time.Second)
	if !l.Allow(ip) {
		t.Error("Request in the next window should be allowed")
	}
}

// TestRedisLimiter_PerIPIsolation tests separate counters per client
func TestRedisLimiter_PerIPIsolation(t *testing.T) {
	l, _, _ := newTestRedisLimiter(t, 1, time.Second)

	if !l.Allow("10.0.0.1") || !l.Allow("10.0.0.2") {
		t.Error("first request of each client should be allowed")
	}
	if l.Allow("10.0.0.1") {
		t.Error("second request of 10.0.0.1 should be limited")
	}
}

// TestRedisLimiter_KeyExpires tests that window keys carry a TTL
func TestRedisLimiter_KeyExpires(t *testing.T) {
	l, mr, _ := newTestRedisLimiter(t, 5, 2*time.Second)

	l.Allow("10.0.0.1")

	keys := mr.Keys()
	if len(keys) != 1 {
		t.Fatalf("expected 1 key, got %v", keys)
	}
	if ttl := mr.TTL(keys[0]); ttl <= 0 || ttl > 2*time.Second {
		t.Errorf("expected TTL within the window, got %v", ttl)
	}

	mr.FastForward(3 * time.Second)
	if mr.Exists(keys[0]) {
		t.Error("expected window key to expire")
	}
}

// TestRedisLimiter_FailOpen tests that a Redis outage does not block traffic
func TestRedisLimiter_FailOpen(t *testing.T) {
	l, mr, _ := newTestRedisLimiter(t, 1, time.Second)

	l.Allow("10.0.0.1")
	mr.Close()

	if !l.Allow("10.0.0.1") {
		t.Error("expected request to be allowed when Redis is unavailable")
	}
}

// TestLimiterInterface tests that the implementations satisfy Limiter
func TestLimiterInterface(t *testing.T) {
	var _ Limiter = (*MemoryLimiter)(nil)
	var _ Limiter = (*RedisLimiter)(nil)
	var _ Limiter = (*MockLimiter)(nil)
}

// TestNew_Memory tests factory function for memory limiter
func TestNew_Memory(t *testing.T) {
	tests := []struct {
		name string
		typ  string
	}{
		{"explicit memory type", "memory"},
		{"uppercase memory type", "MEMORY"},
		{"empty type defaults to memory", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(Config{Type: tt.typ, Limit: 10, Window: time.Second})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			defer l.Close()

			if _, ok := l.(*MemoryLimiter); !ok {
				t.Errorf("expected *MemoryLimiter, got %T", l)
			}
			if !l.Allow("192.168.1.1") {
				t.Error("First request should be allowed")
			}
		})
	}
}

// TestNew_Redis tests factory function for Redis limiter
func TestNew_Redis(t *testing.T) {
	mr := miniredis.RunT(t)

	l, err := New(Config{Type: "redis", Limit: 2, Window: time.Second, RedisAddr: mr.Addr()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer l.Close()

	if _, ok := l.(*RedisLimiter); !ok {
		t.Errorf("expected *RedisLimiter, got %T", l)
	}
}

// TestNew_RedisUnavailable tests that a dead Redis is reported
func TestNew_RedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if _, err := New(Config{Type: "redis", Limit: 1, Window: time.Second, RedisAddr: addr}); err == nil {
		t.Error("expected error when Redis is unreachable")
	}
}

// TestNew_InvalidType tests factory function with invalid type
func TestNew_InvalidType(t *testing.T) {
	if _, err := New(Config{Type: "invalid", Limit: 10}); err == nil {
		t.Error("Expected error for invalid limiter type")
	}
}

// BenchmarkMemoryLimiter_Allow benchmarks the Allow method
func BenchmarkMemoryLimiter_Allow(b *testing.B) {
	limiter := NewMemoryLimiter(1000000, time.Second)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		limiter.Allow("192.168.1.1")
	}
}

// BenchmarkMemoryLimiter_AllowParallel benchmarks parallel access
func BenchmarkMemoryLimiter_AllowParallel(b *testing.B) {
	limiter := NewMemoryLimiter(1000000, time.Second)

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			limiter.Allow("192.168.1.1")
		}
	})
}
