// Package cache provides the size-bounded secondary payload tier.
package cache

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/alexisbeaulieu97/portgraph/internal/ports"
)

// DefaultCapacity is used when no capacity is configured.
const DefaultCapacity = 512

// Option configures a PayloadCache.
type Option func(*PayloadCache)

// WithMetrics reports evictions and occupancy.
func WithMetrics(m ports.MetricsCollector) Option {
	return func(c *PayloadCache) { c.metrics = m }
}

// WithLogger reports evictions at debug level.
func WithLogger(l ports.Logger) Option {
	return func(c *PayloadCache) { c.logger = l }
}

// PayloadCache implements ports.PayloadCache on a least-recently-used cache:
// once capacity is reached, adding an entry reclaims the stalest one.
type PayloadCache struct {
	lru *lru.Cache[uint64, any]

	// mu serializes access so the reclaimed key and size stay consistent.
	mu      sync.Mutex
	size    int
	metrics ports.MetricsCollector
	logger  ports.Logger
}

// New creates a cache holding at most capacity payloads.
func New(capacity int, opts ...Option) (*PayloadCache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &PayloadCache{size: capacity}
	for _, opt := range opts {
		opt(c)
	}
	inner, err := lru.New[uint64, any](capacity)
	if err != nil {
		return nil, fmt.Errorf("create payload cache: %w", err)
	}
	c.lru = inner
	return c, nil
}

// Put stores value under key, possibly reclaiming the least recently used
// entry.
func (c *PayloadCache) Put(key uint64, value any) {
	c.mu.Lock()
	var (
		oldest uint64
		hasOld bool
	)
	if !c.lru.Contains(key) && c.lru.Len() >= c.size {
		oldest, _, hasOld = c.lru.GetOldest()
	}
	evicted := c.lru.Add(key, value)
	c.mu.Unlock()

	if evicted {
		ctx := context.Background()
		if c.metrics != nil {
			c.metrics.IncCounter(ctx, ports.MetricCacheEvictions, nil)
		}
		if c.logger != nil && hasOld {
			c.logger.Debug(ctx, "payload reclaimed", "component", "cache", "port_id", oldest)
		}
	}
	c.report()
}

// Get returns the payload stored under key and marks it recently used.
func (c *PayloadCache) Get(key uint64) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Get(key)
}

// Remove drops key, if present.
func (c *PayloadCache) Remove(key uint64) {
	c.mu.Lock()
	removed := c.lru.Remove(key)
	c.mu.Unlock()
	if removed {
		c.report()
	}
}

// Len returns the number of cached payloads.
func (c *PayloadCache) Len() int { return c.lru.Len() }

// Resize changes the capacity, reclaiming the stalest entries if it shrinks.
// It returns the number of reclaimed entries.
func (c *PayloadCache) Resize(capacity int) int {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c.mu.Lock()
	evicted := c.lru.Resize(capacity)
	c.size = capacity
	c.mu.Unlock()
	for i := 0; c.metrics != nil && i < evicted; i++ {
		c.metrics.IncCounter(context.Background(), ports.MetricCacheEvictions, nil)
	}
	c.report()
	return evicted
}

// Purge drops every entry.
func (c *PayloadCache) Purge() {
	c.mu.Lock()
	c.lru.Purge()
	c.mu.Unlock()
	c.report()
}

func (c *PayloadCache) report() {
	if c.metrics != nil {
		c.metrics.SetGauge(context.Background(), ports.MetricCacheEntries, float64(c.lru.Len()), nil)
	}
}

var _ ports.PayloadCache = (*PayloadCache)(nil)
