package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/webtools-service/internal/domain"
	"github.com/couchcryptid/webtools-service/internal/observability"
	"github.com/couchcryptid/webtools-service/internal/store"
)

// CacheStorageKey is the store key holding the serialized cache.
const CacheStorageKey = "vin_decoder_v2_cache"

// sweepEvery is how many successful reads trigger a full expiry sweep.
const sweepEvery = 100

// CacheConfig bounds the cache.
type CacheConfig struct {
	TTL      time.Duration
	MaxItems int
}

// DefaultCacheConfig matches the browser tool: 24 hours, 50 VINs.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{TTL: 24 * time.Hour, MaxItems: 50}
}

// CacheEntry is one cached decode.
type CacheEntry struct {
	Vehicle   domain.Vehicle `json:"vehicle"`
	Timestamp int64          `json:"timestamp"` // epoch milliseconds
	Hits      int            `json:"hits"`
}

// CacheStats reports cache contents and counters since process start.
type CacheStats struct {
	Entries   int   `json:"entries" yaml:"entries"`
	Hits      int64 `json:"hits" yaml:"hits"`
	Misses    int64 `json:"misses" yaml:"misses"`
	Evictions int64 `json:"evictions" yaml:"evictions"`
}

// Cache is a bounded VIN → Vehicle cache with TTL expiry and LRU eviction,
// persisted to a store.Store after every mutation. Storage failures are
// logged and never returned; the in-memory state stays authoritative.
type Cache struct {
	mu      sync.Mutex
	lru     *simplelru.LRU[string, CacheEntry]
	store   store.Store
	cfg     CacheConfig
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	reads     int
	hits      int64
	misses    int64
	evictions int64
}

// NewCache creates a cache and hydrates it from st. A nil store keeps the
// cache purely in memory.
func NewCache(ctx context.Context, st store.Store, cfg CacheConfig, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Cache {
	def := DefaultCacheConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = def.MaxItems
	}

	lru, err := simplelru.NewLRU[string, CacheEntry](cfg.MaxItems, nil)
	if err != nil {
		// Only reachable with a non-positive size, which is defaulted above.
		panic(fmt.Sprintf("lookup: create lru: %v", err))
	}

	c := &Cache{
		lru:     lru,
		store:   st,
		cfg:     cfg,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
	c.load(ctx)
	c.metrics.CacheEntries.Set(float64(c.lru.Len()))
	return c
}

// Get returns the cached vehicle for vin, promoting it to most recently used.
// Expired entries are removed and reported as a miss.
func (c *Cache) Get(ctx context.Context, vin string) (domain.Vehicle, bool) {
	key := domain.NormalizeVIN(vin)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Peek(key)
	if !ok {
		c.misses++
		c.metrics.CacheLookups.WithLabelValues("miss").Inc()
		return domain.Vehicle{}, false
	}

	now := c.clock.Now()
	if c.expired(e, now) {
		c.lru.Remove(key)
		c.misses++
		c.metrics.CacheLookups.WithLabelValues("expired").Inc()
		c.persist(ctx)
		return domain.Vehicle{}, false
	}

	e.Hits++
	c.lru.Add(key, e) // existing key: moves to the MRU end, no eviction
	c.hits++
	c.metrics.CacheLookups.WithLabelValues("hit").Inc()

	c.reads++
	if c.reads >= sweepEvery {
		c.reads = 0
		c.sweep(now)
	}
	c.persist(ctx)
	return e.Vehicle, true
}

// Set stores v under vin, evicting the least recently used entry when a new
// key arrives at capacity.
func (c *Cache) Set(ctx context.Context, vin string, v domain.Vehicle) {
	key := domain.NormalizeVIN(vin)
	if key == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e := CacheEntry{Vehicle: v, Timestamp: c.clock.Now().UnixMilli(), Hits: 1}
	if c.lru.Add(key, e) {
		c.evictions++
		c.metrics.CacheEvictions.Inc()
	}
	c.persist(ctx)
}

// Clear drops every entry.
func (c *Cache) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Purge()
	c.reads = 0
	c.persist(ctx)
}

// Len returns the number of entries, expired ones included until they are touched or swept.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Keys returns the cached VINs from least to most recently used.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Keys()
}

// Stats returns a snapshot of cache counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Entries:   c.lru.Len(),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

func (c *Cache) expired(e CacheEntry, now time.Time) bool {
	return now.Sub(time.UnixMilli(e.Timestamp)) > c.cfg.TTL
}

// sweep removes every expired entry. Caller holds mu and persists afterwards.
func (c *Cache) sweep(now time.Time) {
	removed := 0
	for _, key := range c.lru.Keys() {
		if e, ok := c.lru.Peek(key); ok && c.expired(e, now) {
			c.lru.Remove(key)
			removed++
		}
	}
	c.metrics.CacheSweeps.Inc()
	if removed > 0 {
		c.logger.Debug("vin cache sweep", "removed", removed, "remaining", c.lru.Len())
	}
}

// load hydrates from the store, silently dropping malformed or expired entries.
func (c *Cache) load(ctx context.Context) {
	if c.store == nil {
		return
	}
	raw, ok, err := c.store.Get(ctx, CacheStorageKey)
	if err != nil {
		c.logger.Warn("vin cache load failed, starting empty", "error", err)
		return
	}
	if !ok {
		return
	}

	var pairs []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &pairs); err != nil {
		c.logger.Warn("vin cache data corrupt, starting empty", "error", err)
		return
	}

	now := c.clock.Now()
	dropped := 0
	for _, p := range pairs {
		key, e, ok := decodePair(p)
		if !ok || c.expired(e, now) {
			dropped++
			continue
		}
		if c.lru.Add(key, e) {
			dropped++
		}
	}
	c.logger.Debug("vin cache loaded", "entries", c.lru.Len(), "dropped", dropped)
}

func decodePair(raw json.RawMessage) (string, CacheEntry, bool) {
	var pair []json.RawMessage
	if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 2 {
		return "", CacheEntry{}, false
	}
	var key string
	var e CacheEntry
	if err := json.Unmarshal(pair[0], &key); err != nil {
		return "", CacheEntry{}, false
	}
	if err := json.Unmarshal(pair[1], &e); err != nil {
		return "", CacheEntry{}, false
	}
	key = domain.NormalizeVIN(key)
	if key == "" || e.Timestamp <= 0 || e.Vehicle.VIN == "" {
		return "", CacheEntry{}, false
	}
	return key, e, true
}

func (c *Cache) encode() (string, error) {
	keys := c.lru.Keys()
	pairs := make([][2]any, 0, len(keys))
	for _, k := range keys {
		e, _ := c.lru.Peek(k)
		pairs = append(pairs, [2]any{k, e})
	}
	data, err := json.Marshal(pairs)
	if err != nil {
		return "", fmt.Errorf("encode vin cache: %w", err)
	}
	return string(data), nil
}

// persist writes the whole cache. Caller holds mu. Cache writes are not
// cancellable, so the caller's cancellation is detached.
func (c *Cache) persist(ctx context.Context) {
	c.metrics.CacheEntries.Set(float64(c.lru.Len()))
	if c.store == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	data, err := c.encode()
	if err != nil {
		c.logger.Error("vin cache encode failed", "error", err)
		return
	}

	err = c.store.Set(ctx, CacheStorageKey, data)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrQuotaExceeded):
		c.metrics.StorageErrors.WithLabelValues("cache", "quota").Inc()
		c.logger.Warn("vin cache exceeds storage quota, clearing", "entries", c.lru.Len(), "error", err)
		c.lru.Purge()
		c.metrics.CacheEntries.Set(0)
		if err := c.store.Set(ctx, CacheStorageKey, "[]"); err != nil {
			c.logger.Error("vin cache write failed after clearing", "error", err)
		}
	case errors.Is(err, store.ErrUnavailable):
		c.metrics.StorageErrors.WithLabelValues("cache", "unavailable").Inc()
		c.logger.Debug("vin cache not persisted, storage unavailable")
	default:
		c.metrics.StorageErrors.WithLabelValues("cache", "other").Inc()
		c.logger.Warn("vin cache write failed", "error", err)
	}
}
