package recapi

import (
	"strings"
	"sync"
	"time"
)

// Cache stores validated results under a key. Entries expire after their
// TTL; an expired entry is never returned.
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, payload interface{}, ttl time.Duration, tags ...string)
	Delete(key string)
	// Clear drops entries whose key starts with prefix and returns how many
	// were dropped. An empty prefix clears everything.
	Clear(prefix string) int
	// InvalidateTags drops entries carrying any of tags.
	InvalidateTags(tags ...string) int
	// Sweep drops expired entries.
	Sweep() int
	Len() int
	Close() error
}

// CacheEntry represents a cached result.
type CacheEntry struct {
	Key       string
	Payload   interface{}
	Tags      []string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Valid reports whether the entry is still fresh at now.
func (e *CacheEntry) Valid(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// MemoryCache is an in-process Cache with a tag index and an optional
// background sweeper. When full, the entry closest to expiry is evicted.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*CacheEntry
	tags    map[string]map[string]struct{}
	maxSize int
	now     func() time.Time

	sweepOnce sync.Once
	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewMemoryCache creates a memory cache holding at most maxSize entries.
// A non-positive maxSize means unbounded.
func NewMemoryCache(maxSize int) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]*CacheEntry),
		tags:    make(map[string]map[string]struct{}),
		maxSize: maxSize,
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// SetClock replaces the time source. It is meant for tests.
func (c *MemoryCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = now
}

// Get returns the payload stored under key if it has not expired. An
// expired entry is removed on the way out.
func (c *MemoryCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	if !entry.Valid(c.now()) {
		c.removeLocked(key)

		return nil, false
	}

	return entry.Payload, true
}

// Set stores payload under key for ttl. A non-positive ttl stores nothing.
func (c *MemoryCache) Set(key string, payload interface{}, ttl time.Duration, tags ...string) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	if _, exists := c.entries[key]; exists {
		c.removeLocked(key)
	} else if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.sweepLocked(now)

		if len(c.entries) >= c.maxSize {
			c.evictLocked()
		}
	}

	entry := &CacheEntry{
		Key:       key,
		Payload:   payload,
		Tags:      append([]string(nil), tags...),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	c.entries[key] = entry

	for _, tag := range entry.Tags {
		keys, ok := c.tags[tag]
		if !ok {
			keys = make(map[string]struct{})
			c.tags[tag] = keys
		}

		keys[key] = struct{}{}
	}
}

// Delete removes key.
func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeLocked(key)
}

// Clear removes every entry whose key starts with prefix.
func (c *MemoryCache) Clear(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prefix == "" {
		n := len(c.entries)
		c.entries = make(map[string]*CacheEntry)
		c.tags = make(map[string]map[string]struct{})

		return n
	}

	removed := 0

	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			c.removeLocked(key)
			removed++
		}
	}

	return removed
}

// InvalidateTags removes every entry tagged with any of tags.
func (c *MemoryCache) InvalidateTags(tags ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0

	for _, tag := range tags {
		for key := range c.tags[tag] {
			if _, ok := c.entries[key]; ok {
				c.removeLocked(key)
				removed++
			}
		}

		delete(c.tags, tag)
	}

	return removed
}

// Sweep removes expired entries.
func (c *MemoryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sweepLocked(c.now())
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// StartSweeper runs Sweep every interval until Close. Only the first call
// has an effect.
func (c *MemoryCache) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		return
	}

	c.sweepOnce.Do(func() {
		go c.sweepLoop(interval)
	})
}

func (c *MemoryCache) sweepLoop(interval time.Duration) {
	defer close(c.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Close stops the sweeper and waits for it to exit.
func (c *MemoryCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stop)

		started := true
		c.sweepOnce.Do(func() { started = false })

		if started {
			<-c.done
		}
	})

	return nil
}

func (c *MemoryCache) sweepLocked(now time.Time) int {
	removed := 0

	for key, entry := range c.entries {
		if !entry.Valid(now) {
			c.removeLocked(key)
			removed++
		}
	}

	return removed
}

func (c *MemoryCache) evictLocked() {
	var (
		victim   string
		earliest time.Time
	)

	for key, entry := range c.entries {
		if victim == "" || entry.ExpiresAt.Before(earliest) {
			victim, earliest = key, entry.ExpiresAt
		}
	}

	if victim != "" {
		c.removeLocked(victim)
	}
}

func (c *MemoryCache) removeLocked(key string) {
	entry, ok := c.entries[key]
	if !ok {
		return
	}

	delete(c.entries, key)

	for _, tag := range entry.Tags {
		keys := c.tags[tag]
		delete(keys, key)

		if len(keys) == 0 {
			delete(c.tags, tag)
		}
	}
}
