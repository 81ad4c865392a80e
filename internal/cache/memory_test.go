package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewSimpleMemoryCache(time.Minute)
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	if _, err := c.Get(ctx, "missing"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get(missing) = %v, want ErrCacheMiss", err)
	}

	if err := c.Set(ctx, "key", []byte("value"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "value" {
		t.Errorf("Get = %q, want value", got)
	}

	// Mutating the returned slice must not corrupt the cached value.
	got[0] = 'X'
	again, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get after mutation: %v", err)
	}
	if string(again) != "value" {
		t.Errorf("cached value mutated: %q", again)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Minute})
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	if err := c.Set(ctx, "key", []byte("value"), time.Nanosecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, err := c.Get(ctx, "key"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get after expiry = %v, want ErrCacheMiss", err)
	}
	has, err := c.Has(ctx, "key")
	if err != nil {
		t.Fatalf("Has: %v", err)
	}
	if has {
		t.Error("Has after expiry = true, want false")
	}
}

func TestMemoryCacheDeleteAndClear(t *testing.T) {
	c := NewSimpleMemoryCache(time.Minute)
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	_ = c.Set(ctx, "a", []byte("1"), 0)
	_ = c.Set(ctx, "b", []byte("2"), 0)

	if err := c.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := c.Get(ctx, "a"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get after delete = %v, want ErrCacheMiss", err)
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := c.Get(ctx, "b"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get after clear = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryCacheClosed(t *testing.T) {
	c := NewSimpleMemoryCache(time.Minute)
	_ = c.Close()

	if err := c.Set(context.Background(), "key", []byte("v"), 0); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Set after close = %v, want ErrCacheClosed", err)
	}
	// Close is idempotent.
	if err := c.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func TestMemoryCacheStats(t *testing.T) {
	c := NewSimpleMemoryCache(time.Minute)
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	_ = c.Set(ctx, "key", []byte("v"), 0)
	_, _ = c.Get(ctx, "key")
	_, _ = c.Get(ctx, "missing")

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Sets != 1 {
		t.Errorf("stats = %+v, want 1 hit, 1 miss, 1 set", stats)
	}
	if stats.HitRate != 50 {
		t.Errorf("hit rate = %v, want 50", stats.HitRate)
	}

	c.ResetStats()
	if stats := c.Stats(); stats.Hits != 0 || stats.Misses != 0 {
		t.Errorf("stats after reset = %+v", stats)
	}
}
