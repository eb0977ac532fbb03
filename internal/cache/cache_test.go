package cache

import (
	"sync"
	"testing"
	"time"
)

func TestMemorySetGetInvalidate(t *testing.T) {
	m := NewMemory()

	if _, ok := m.Get("missing"); ok {
		t.Fatalf("unexpected hit for missing key")
	}

	m.Set("k", "v", 0)
	if got, ok := m.Get("k"); !ok || got != "v" {
		t.Fatalf("Get = %q %v", got, ok)
	}

	m.Invalidate("k")
	if _, ok := m.Get("k"); ok {
		t.Fatalf("key survived invalidation")
	}
}

func TestMemoryTTLExpiry(t *testing.T) {
	now := time.Unix(0, 0)
	m := NewMemoryWithClock(func() time.Time { return now })

	m.Set("token", "abc", 60*time.Second)
	if _, ok := m.Get("token"); !ok {
		t.Fatalf("fresh entry missing")
	}

	now = now.Add(59 * time.Second)
	if _, ok := m.Get("token"); !ok {
		t.Fatalf("entry expired before TTL")
	}

	now = now.Add(2 * time.Second)
	if _, ok := m.Get("token"); ok {
		t.Fatalf("entry survived past TTL")
	}
}

func TestMemoryNoTTLNeverExpires(t *testing.T) {
	now := time.Unix(0, 0)
	m := NewMemoryWithClock(func() time.Time { return now })

	m.Set("prompt_id", "p1", 0)
	now = now.Add(24 * time.Hour)
	if got, ok := m.Get("prompt_id"); !ok || got != "p1" {
		t.Fatalf("unexpired entry lost: %q %v", got, ok)
	}
}

func TestMemoryConcurrentAccess(t *testing.T) {
	m := NewMemory()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Set("shared", "v", time.Minute)
				m.Get("shared")
				m.Invalidate("shared")
			}
		}()
	}
	wg.Wait()
}
