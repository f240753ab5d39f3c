package service

import (
	"hash/fnv"
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL bounds how long a descriptor stays cached.
const DefaultTTL = time.Hour

const cacheShards = 16

type cacheEntry struct {
	typ     reflect.Type
	desc    *ServiceDescriptor
	err     error
	expires time.Time
}

type cacheShard struct {
	mu      sync.RWMutex
	entries map[reflect.Type]cacheEntry
}

// Cache memoizes descriptors by the dynamic type of the target. It is safe
// for concurrent use; entries expire independently after the TTL and are
// rebuilt on the next lookup.
type Cache struct {
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
	group  singleflight.Group
	shards [cacheShards]cacheShard
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithTTL sets the entry lifetime. Non-positive values keep the default.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLogger sets the logger used for build warnings.
func WithLogger(logger *zap.Logger) CacheOption {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCache creates an empty descriptor cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		ttl:    DefaultTTL,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	for i := range c.shards {
		c.shards[i].entries = make(map[reflect.Type]cacheEntry)
	}
	return c
}

// Describe returns the descriptor for target's type, building it at most once
// per expiry period. Build failures are cached like successes.
func (c *Cache) Describe(target any) (*ServiceDescriptor, error) {
	if target == nil {
		return nil, &ConfigurationError{Err: ErrNotProvider}
	}
	typ := reflect.TypeOf(target)
	key := typeKey(typ)
	shard := c.shard(key)

	if e, ok := c.load(shard, typ); ok {
		return e.desc, e.err
	}

	v, _, _ := c.group.Do(key, func() (any, error) {
		if e, ok := c.load(shard, typ); ok {
			return e, nil
		}
		desc, err := build(target, c.logger)
		e := cacheEntry{typ: typ, desc: desc, err: err, expires: c.now().Add(c.ttl)}
		shard.mu.Lock()
		shard.entries[typ] = e
		shard.mu.Unlock()
		if err != nil {
			c.logger.Warn("service descriptor build failed", zap.String("type", typ.String()), zap.Error(err))
		} else {
			c.logger.Debug("service descriptor built", zap.String("type", typ.String()), zap.Strings("methods", desc.order))
		}
		return e, nil
	})
	e := v.(cacheEntry)
	if e.typ != typ {
		// Distinct types with the same printed name shared a flight.
		return build(target, c.logger)
	}
	return e.desc, e.err
}

// Invalidate drops the entry for target's type.
func (c *Cache) Invalidate(target any) {
	if target == nil {
		return
	}
	typ := reflect.TypeOf(target)
	shard := c.shard(typeKey(typ))
	shard.mu.Lock()
	delete(shard.entries, typ)
	shard.mu.Unlock()
}

// Sweep removes expired entries and returns how many were dropped. Each shard
// is locked on its own.
func (c *Cache) Sweep() int {
	now := c.now()
	n := 0
	for i := range c.shards {
		shard := &c.shards[i]
		shard.mu.Lock()
		for typ, e := range shard.entries {
			if !now.Before(e.expires) {
				delete(shard.entries, typ)
				n++
			}
		}
		shard.mu.Unlock()
	}
	return n
}

// Len returns the number of cached entries, expired ones included.
func (c *Cache) Len() int {
	n := 0
	for i := range c.shards {
		c.shards[i].mu.RLock()
		n += len(c.shards[i].entries)
		c.shards[i].mu.RUnlock()
	}
	return n
}

func (c *Cache) load(shard *cacheShard, typ reflect.Type) (cacheEntry, bool) {
	shard.mu.RLock()
	e, ok := shard.entries[typ]
	shard.mu.RUnlock()
	if !ok || !c.now().Before(e.expires) {
		return cacheEntry{}, false
	}
	return e, true
}

func (c *Cache) shard(key string) *cacheShard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &c.shards[h.Sum32()%cacheShards]
}

func build(target any, logger *zap.Logger) (*ServiceDescriptor, error) {
	p, ok := target.(Provider)
	if !ok {
		return nil, &ConfigurationError{Service: reflect.TypeOf(target).String(), Err: ErrNotProvider}
	}
	def := p.RPCService()
	if def == nil {
		return nil, &ConfigurationError{Service: reflect.TypeOf(target).String(), Err: ErrNotProvider}
	}
	return def.Describe(logger)
}

func typeKey(typ reflect.Type) string {
	base := typ
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	return base.PkgPath() + "|" + typ.String()
}

// Describe builds the descriptor for target without caching.
func Describe(target any, logger *zap.Logger) (*ServiceDescriptor, error) {
	if target == nil {
		return nil, &ConfigurationError{Err: ErrNotProvider}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return build(target, logger)
}
