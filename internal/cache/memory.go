package cache

import (
	"sync"
	"time"
)

// Memory is an in-process TTL cache with a periodic sweep. The sweep interval
// is independent of the TTL: reads already treat expired entries as absent,
// the sweep only bounds memory.
type Memory struct {
	ttl time.Duration
	now clock

	mu      sync.RWMutex
	entries map[string]memoryEntry

	stop chan struct{}
	once sync.Once
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryOptions configures a Memory cache.
type MemoryOptions struct {
	TTL           time.Duration
	SweepInterval time.Duration // 0 disables the background sweep
	Now           func() time.Time
}

// NewMemory creates an in-memory response cache.
func NewMemory(opts MemoryOptions) *Memory {
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	m := &Memory{
		ttl:     opts.TTL,
		now:     now,
		entries: make(map[string]memoryEntry),
		stop:    make(chan struct{}),
	}
	if opts.SweepInterval > 0 {
		go m.sweepLoop(opts.SweepInterval)
	}
	return m
}

// Get implements ResponseCache.
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || m.now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

// Set implements ResponseCache.
func (m *Memory) Set(key string, value []byte) {
	m.mu.Lock()
	m.entries[key] = memoryEntry{value: value, expiresAt: m.now().Add(m.ttl)}
	m.mu.Unlock()
}

// Bypassed implements ResponseCache.
func (m *Memory) Bypassed() bool { return false }

// Close stops the sweep goroutine.
func (m *Memory) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Memory) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.Sweep()
		case <-m.stop:
			return
		}
	}
}

// Sweep drops all expired entries.
func (m *Memory) Sweep() {
	now := m.now()
	m.mu.Lock()
	for k, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, k)
		}
	}
	m.mu.Unlock()
}
