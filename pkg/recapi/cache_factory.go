package recapi

import (
	"fmt"
	"time"

	"github.com/fivetwenty-io/recapi/internal/constants"
)

// CacheType represents the type of cache backend.
type CacheType string

const (
	// CacheTypeMemory represents in-memory cache.
	CacheTypeMemory CacheType = "memory"

	// CacheTypeNone represents no caching.
	CacheTypeNone CacheType = "none"
)

// CacheConfig configures the cache backend.
type CacheConfig struct {
	// Type is the cache backend type
	Type CacheType

	// MaxSize is the maximum number of entries in a memory cache
	MaxSize int

	// SweepInterval is the interval of the background expiry sweep; zero
	// leaves expiry to lazy eviction on Get.
	SweepInterval time.Duration
}

// DefaultCacheConfig returns default cache configuration.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Type:          CacheTypeMemory,
		MaxSize:       constants.DefaultCacheSize,
		SweepInterval: constants.DefaultCacheSweepInterval,
	}
}

// NewCacheFromConfig creates a cache backend from configuration.
func NewCacheFromConfig(config *CacheConfig) (Cache, error) {
	if config == nil {
		config = DefaultCacheConfig()
	}

	switch config.Type {
	case CacheTypeMemory:
		cache := NewMemoryCache(config.MaxSize)
		cache.StartSweeper(config.SweepInterval)

		return cache, nil

	case CacheTypeNone:
		return NewNoOpCache(), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCacheType, config.Type)
	}
}

// NoOpCache is a cache that does nothing (no caching).
type NoOpCache struct{}

// NewNoOpCache creates a new no-op cache.
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// Get always misses.
func (c *NoOpCache) Get(string) (interface{}, bool) { return nil, false }

// Set does nothing.
func (c *NoOpCache) Set(string, interface{}, time.Duration, ...string) {}

// Delete does nothing.
func (c *NoOpCache) Delete(string) {}

// Clear does nothing.
func (c *NoOpCache) Clear(string) int { return 0 }

// InvalidateTags does nothing.
func (c *NoOpCache) InvalidateTags(...string) int { return 0 }

// Sweep does nothing.
func (c *NoOpCache) Sweep() int { return 0 }

// Len is always zero.
func (c *NoOpCache) Len() int { return 0 }

// Close does nothing.
func (c *NoOpCache) Close() error { return nil }

// CacheBuilder helps build cache configurations.
type CacheBuilder struct {
	config *CacheConfig
}

// NewCacheBuilder creates a new cache builder.
func NewCacheBuilder() *CacheBuilder {
	return &CacheBuilder{config: DefaultCacheConfig()}
}

// WithType sets the cache type.
func (b *CacheBuilder) WithType(cacheType CacheType) *CacheBuilder {
	b.config.Type = cacheType

	return b
}

// WithMaxSize sets the memory cache capacity.
func (b *CacheBuilder) WithMaxSize(maxSize int) *CacheBuilder {
	b.config.MaxSize = maxSize

	return b
}

// WithSweepInterval sets the background sweep interval.
func (b *CacheBuilder) WithSweepInterval(interval time.Duration) *CacheBuilder {
	b.config.SweepInterval = interval

	return b
}

// Build creates the cache from the configuration.
func (b *CacheBuilder) Build() (Cache, error) {
	return NewCacheFromConfig(b.config)
}
