package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/tradegate/internal/contracts"
	"github.com/wonny/tradegate/pkg/logger"
	"github.com/wonny/tradegate/pkg/metrics"
	"github.com/wonny/tradegate/pkg/redis"
)

// Clock abstracts time for cache expiry
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Store is a keyed JSON store with per-entry TTL
type Store interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// MemoryStore is a process-local Store. Expiry follows the injected clock.
type MemoryStore struct {
	mu      sync.RWMutex
	clock   Clock
	entries map[string]memoryEntry
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// NewMemoryStore creates an empty store. A nil clock uses SystemClock.
func NewMemoryStore(clock Clock) *MemoryStore {
	if clock == nil {
		clock = SystemClock{}
	}
	return &MemoryStore{
		clock:   clock,
		entries: make(map[string]memoryEntry),
	}
}

func (m *MemoryStore) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if !m.clock.Now().Before(entry.expires) {
		m.mu.Lock()
		if cur, ok := m.entries[key]; ok && cur.expires.Equal(entry.expires) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return false, nil
	}

	if err := json.Unmarshal(entry.data, dest); err != nil {
		return false, fmt.Errorf("memory store unmarshal failed: %w", err)
	}
	return true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("memory store marshal failed: %w", err)
	}

	m.mu.Lock()
	m.entries[key] = memoryEntry{data: data, expires: m.clock.Now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Sweep drops expired entries and returns how many were removed
func (m *MemoryStore) Sweep() int {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, entry := range m.entries {
		if !now.Before(entry.expires) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// RedisStore shares cached readings across processes. Redis owns expiry.
type RedisStore struct {
	cache *redis.Cache
}

// NewRedisStore wraps a redis cache helper
func NewRedisStore(cache *redis.Cache) *RedisStore {
	return &RedisStore{cache: cache}
}

func (r *RedisStore) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	return r.cache.Get(ctx, key, dest)
}

func (r *RedisStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return r.cache.Set(ctx, key, value, ttl)
}

// Cache is a read-through cache keyed by (source, symbol) with a fixed TTL.
// ⭐ Store failures never fail a fetch; only the wrapped provider's error does.
type Cache struct {
	store  Store
	ttl    time.Duration
	logger *logger.Logger
}

// NewCache creates a read-through cache over store
func NewCache(store Store, ttl time.Duration, log *logger.Logger) *Cache {
	if log == nil {
		log = logger.Nop()
	}
	return &Cache{store: store, ttl: ttl, logger: log.WithComponent("collaborator-cache")}
}

// lookup returns true when dest was filled from the store
func (c *Cache) lookup(ctx context.Context, source, symbol string, dest interface{}) bool {
	found, err := c.store.Get(ctx, redis.CollaboratorKey(source, symbol), dest)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues(source, "error").Inc()
		c.logger.WithError(err).WithField("source", source).Warn("Cache read failed")
		return false
	case found:
		metrics.CacheLookups.WithLabelValues(source, "hit").Inc()
		return true
	default:
		metrics.CacheLookups.WithLabelValues(source, "miss").Inc()
		return false
	}
}

func (c *Cache) save(ctx context.Context, source, symbol string, value interface{}) {
	if err := c.store.Set(ctx, redis.CollaboratorKey(source, symbol), value, c.ttl); err != nil {
		c.logger.WithError(err).WithField("source", source).Warn("Cache write failed")
	}
}

// CachedSentiment wraps a SentimentProvider with a read-through cache
type CachedSentiment struct {
	inner SentimentProvider
	cache *Cache
}

// NewCachedSentiment wraps inner
func NewCachedSentiment(inner SentimentProvider, cache *Cache) *CachedSentiment {
	return &CachedSentiment{inner: inner, cache: cache}
}

func (c *CachedSentiment) Name() string { return c.inner.Name() }

func (c *CachedSentiment) Sentiment(ctx context.Context, symbol string) (contracts.SentimentReading, error) {
	var cached contracts.SentimentReading
	if c.cache.lookup(ctx, string(contracts.SourceSentiment), symbol, &cached) {
		return cached, nil
	}

	reading, err := c.inner.Sentiment(ctx, symbol)
	if err != nil {
		return contracts.SentimentReading{}, err
	}
	c.cache.save(ctx, string(contracts.SourceSentiment), symbol, reading)
	return reading, nil
}

// CachedPrediction wraps a PredictionProvider with a read-through cache.
// Within the TTL the cached prediction is reused regardless of features.
type CachedPrediction struct {
	inner PredictionProvider
	cache *Cache
}

// NewCachedPrediction wraps inner
func NewCachedPrediction(inner PredictionProvider, cache *Cache) *CachedPrediction {
	return &CachedPrediction{inner: inner, cache: cache}
}

func (c *CachedPrediction) Name() string { return c.inner.Name() }

func (c *CachedPrediction) Predict(ctx context.Context, features contracts.Features, symbol string) (contracts.Prediction, error) {
	var cached contracts.Prediction
	if c.cache.lookup(ctx, string(contracts.SourcePrediction), symbol, &cached) {
		return cached, nil
	}

	p, err := c.inner.Predict(ctx, features, symbol)
	if err != nil {
		return contracts.Prediction{}, err
	}
	c.cache.save(ctx, string(contracts.SourcePrediction), symbol, p)
	return p, nil
}
