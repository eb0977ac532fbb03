package cache

import (
	"sync"
	"time"
)

// SharedCache is the site-wide shared state used for the gateway
// access token and the lazily created prompt ids.
//
// Consistency contract: deliberately relaxed. Concurrent requests may
// race on Get/Set of the same key; the worst outcomes are a redundant
// provider round-trip (two token fetches) or the use of an
// about-to-be-invalidated prompt id, which self-heals via the callers'
// retry-on-not-found discipline. Implementations must be safe for
// concurrent use but are not expected to provide any cross-request
// ordering guarantees.
type SharedCache interface {
	Get(key string) (string, bool)
	// Set stores value under key. ttl <= 0 means no expiry.
	Set(key, value string, ttl time.Duration)
	Invalidate(key string)
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// Memory is the in-process SharedCache used when no Redis address is
// configured.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: map[string]memoryEntry{}, now: time.Now}
}

// NewMemoryWithClock is used by tests to control expiry.
func NewMemoryWithClock(now func() time.Time) *Memory {
	return &Memory{entries: map[string]memoryEntry{}, now: now}
}

func (m *Memory) Get(key string) (string, bool) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return "", false
	}
	if !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt) {
		m.Invalidate(key)
		return "", false
	}
	return entry.value, true
}

func (m *Memory) Set(key, value string, ttl time.Duration) {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
}

func (m *Memory) Invalidate(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}
