// Package cache provides a size-bounded LRU cache for resolved image bytes,
// so external references shared across pages or books are fetched once.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Stats contains cache statistics.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int   // entries
	Bytes     int64 // total value bytes
	MaxSize   int
	MaxBytes  int64
}

// Config contains cache configuration options.
type Config struct {
	// MaxSize is the maximum number of entries (0 = unlimited).
	MaxSize int

	// MaxBytes bounds the total size of cached values (0 = unlimited).
	// Values larger than MaxBytes are never cached.
	MaxBytes int64

	// TTL is the time-to-live for entries (0 = no expiration).
	TTL time.Duration

	// OnEvict is called when an entry leaves the cache.
	OnEvict func(key string, size int64)
}

// DefaultConfig returns the configuration used by NewDefault.
func DefaultConfig() Config {
	return Config{
		MaxSize:  256,
		MaxBytes: 64 << 20,
	}
}

type entry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// ImageCache is a thread-safe LRU cache of byte slices keyed by a
// reference string. Callers must not modify cached slices.
type ImageCache struct {
	mu        sync.Mutex
	config    Config
	entries   map[string]*list.Element
	evictList *list.List
	bytes     int64
	stats     Stats
	now       func() time.Time
}

// New creates a cache with the given configuration.
func New(config Config) *ImageCache {
	if config.MaxSize < 0 {
		config.MaxSize = 0
	}
	if config.MaxBytes < 0 {
		config.MaxBytes = 0
	}
	return &ImageCache{
		config:    config,
		entries:   make(map[string]*list.Element),
		evictList: list.New(),
		now:       time.Now,
	}
}

// NewDefault creates a cache with DefaultConfig.
func NewDefault() *ImageCache {
	return New(DefaultConfig())
}

// Get retrieves the bytes stored under key.
func (c *ImageCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	e := ent.Value.(*entry)
	if c.config.TTL > 0 && c.now().After(e.expiresAt) {
		c.removeElement(ent)
		c.stats.Misses++
		return nil, false
	}
	c.evictList.MoveToFront(ent)
	c.stats.Hits++
	return e.value, true
}

// Put stores value under key, evicting least recently used entries until
// both limits hold. It reports whether the value was cached.
func (c *ImageCache) Put(key string, value []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := int64(len(value))
	if c.config.MaxBytes > 0 && size > c.config.MaxBytes {
		return false
	}
	if ent, ok := c.entries[key]; ok {
		c.removeElement(ent)
	}

	e := &entry{key: key, value: value}
	if c.config.TTL > 0 {
		e.expiresAt = c.now().Add(c.config.TTL)
	}
	c.entries[key] = c.evictList.PushFront(e)
	c.bytes += size

	for c.overLimit() {
		c.removeElement(c.evictList.Back())
		c.stats.Evictions++
	}
	return true
}

func (c *ImageCache) overLimit() bool {
	if c.config.MaxSize > 0 && c.evictList.Len() > c.config.MaxSize {
		return true
	}
	return c.config.MaxBytes > 0 && c.bytes > c.config.MaxBytes
}

// Remove drops key from the cache.
func (c *ImageCache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.entries[key]; ok {
		c.removeElement(ent)
	}
}

// Clear removes all entries from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.evictList.Len() > 0 {
		c.removeElement(c.evictList.Back())
	}
}

// Len returns the number of entries in the cache.
func (c *ImageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Stats returns cache statistics.
func (c *ImageCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Size = c.evictList.Len()
	s.Bytes = c.bytes
	s.MaxSize = c.config.MaxSize
	s.MaxBytes = c.config.MaxBytes
	return s
}

func (c *ImageCache) removeElement(ent *list.Element) {
	c.evictList.Remove(ent)
	e := ent.Value.(*entry)
	delete(c.entries, e.key)
	c.bytes -= int64(len(e.value))

	if c.config.OnEvict != nil {
		c.config.OnEvict(e.key, int64(len(e.value)))
	}
}
