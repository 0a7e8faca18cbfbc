package tenant

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"
)

// State classifies a cache lookup.
type State uint8

const (
	// Miss means the cache holds nothing for the id.
	Miss State = iota
	// Hit means a live context was found.
	Hit
	// NegativeHit means the id is cached as known-absent.
	NegativeHit
	// Stale means a live context was found but its remaining lifetime
	// crossed the refresh threshold; callers should use it and refresh in
	// the background.
	Stale
)

// String returns the lookup state name.
func (s State) String() string {
	switch s {
	case Miss:
		return "miss"
	case Hit:
		return "hit"
	case NegativeHit:
		return "negative"
	case Stale:
		return "stale"
	default:
		return "unknown"
	}
}

// Result is the outcome of a cache lookup. Context is set for Hit and
// Stale.
type Result struct {
	State   State
	Context Context
}

// Cache defaults, matching the configuration defaults.
const (
	DefaultTTL              = 5 * time.Minute
	DefaultNegativeTTL      = 30 * time.Second
	DefaultMaxEntries       = 1024
	DefaultRefreshThreshold = 0.8
	DefaultShards           = 8
)

type entry struct {
	ctx       Context
	negative  bool
	createdAt time.Time
	expiresAt time.Time

	accesses   atomic.Int64
	refreshing atomic.Bool
}

// Cache holds resolved tenant contexts with a TTL, a shorter negative TTL
// for known-absent ids, and bounded size. When full, expired entries are
// dropped first, then the entry with the fewest accesses. Safe for
// concurrent use; counters are read without locking.
type Cache struct {
	ttl         time.Duration
	negativeTTL time.Duration
	max         int
	threshold   float64
	clock       func() time.Time

	mu      sync.RWMutex
	entries map[ID]*entry

	hits         atomic.Int64
	misses       atomic.Int64
	negativeHits atomic.Int64
	evictions    atomic.Int64
	expirations  atomic.Int64
	refreshes    atomic.Int64
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithTTL sets the lifetime of positive entries.
func WithTTL(d time.Duration) CacheOption {
	return func(c *Cache) { c.ttl = d }
}

// WithNegativeTTL sets the lifetime of known-absent entries.
func WithNegativeTTL(d time.Duration) CacheOption {
	return func(c *Cache) { c.negativeTTL = d }
}

// WithMaxEntries bounds the cache size.
func WithMaxEntries(n int) CacheOption {
	return func(c *Cache) { c.max = n }
}

// WithRefreshThreshold sets the fraction of an entry's TTL after which
// lookups report Stale instead of Hit. Values outside (0, 1) disable the
// stale state and with it background refresh.
func WithRefreshThreshold(f float64) CacheOption {
	return func(c *Cache) { c.threshold = f }
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) CacheOption {
	return func(c *Cache) { c.clock = clock }
}

// NewCache returns an empty cache with the configured bounds.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		ttl:         DefaultTTL,
		negativeTTL: DefaultNegativeTTL,
		max:         DefaultMaxEntries,
		threshold:   DefaultRefreshThreshold,
		clock:       time.Now,
		entries:     make(map[ID]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}
	if c.negativeTTL <= 0 {
		c.negativeTTL = DefaultNegativeTTL
	}
	if c.max <= 0 {
		c.max = DefaultMaxEntries
	}
	return c
}

// Lookup reports what the cache knows about the id. An expired entry is
// removed and reported as a Miss. Exactly one of the hit, miss and
// negative-hit counters advances per call; Stale counts as a hit.
func (c *Cache) Lookup(id ID) Result {
	now := c.clock()
	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()
	if !ok {
		c.misses.Add(1)
		return Result{State: Miss}
	}
	if !now.Before(e.expiresAt) {
		c.mu.Lock()
		if cur, ok := c.entries[id]; ok && cur == e {
			delete(c.entries, id)
			c.expirations.Add(1)
		}
		c.mu.Unlock()
		c.misses.Add(1)
		return Result{State: Miss}
	}
	e.accesses.Add(1)
	if e.negative {
		c.negativeHits.Add(1)
		return Result{State: NegativeHit}
	}
	c.hits.Add(1)
	if c.threshold > 0 && c.threshold < 1 {
		ttl := e.expiresAt.Sub(e.createdAt)
		if elapsed := now.Sub(e.createdAt); float64(elapsed) >= c.threshold*float64(ttl) {
			return Result{State: Stale, Context: e.ctx}
		}
	}
	return Result{State: Hit, Context: e.ctx}
}

// Insert stores a resolved context under its tenant id, replacing any
// previous entry.
func (c *Cache) Insert(tc Context) {
	c.insert(tc.ID, &entry{ctx: tc}, c.ttl)
}

// InsertNegative records the id as known-absent with the negative TTL.
func (c *Cache) InsertNegative(id ID) {
	c.insert(id, &entry{negative: true}, c.negativeTTL)
}

func (c *Cache) insert(id ID, e *entry, ttl time.Duration) {
	now := c.clock()
	e.createdAt = now
	e.expiresAt = now.Add(ttl)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[id]; !ok && len(c.entries) >= c.max {
		c.evictLocked(now)
	}
	c.entries[id] = e
}

// evictLocked makes room: expired entries go first, then the live entry
// with the fewest accesses (oldest on a tie). Callers hold c.mu.
func (c *Cache) evictLocked(now time.Time) {
	dropped := false
	for id, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, id)
			c.expirations.Add(1)
			dropped = true
		}
	}
	if dropped {
		return
	}
	var victim ID
	var victimEntry *entry
	for id, e := range c.entries {
		if victimEntry == nil {
			victim, victimEntry = id, e
			continue
		}
		n, vn := e.accesses.Load(), victimEntry.accesses.Load()
		if n < vn || (n == vn && e.createdAt.Before(victimEntry.createdAt)) {
			victim, victimEntry = id, e
		}
	}
	if victimEntry != nil {
		delete(c.entries, victim)
		c.evictions.Add(1)
	}
}

// Remove drops the entry for the id, if any.
func (c *Cache) Remove(id ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// Len returns the number of cached entries, including negative ones.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// BeginRefresh claims the entry's refresh slot. It returns true for exactly
// one caller per staleness window so only a single background refresh runs;
// the claim is released by Insert, InsertNegative or AbortRefresh.
func (c *Cache) BeginRefresh(id ID) bool {
	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()
	if !ok || e.negative {
		return false
	}
	if !e.refreshing.CompareAndSwap(false, true) {
		return false
	}
	c.refreshes.Add(1)
	return true
}

// AbortRefresh releases a refresh claim after a failed refresh, so a later
// lookup can try again.
func (c *Cache) AbortRefresh(id ID) {
	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()
	if ok {
		e.refreshing.Store(false)
	}
}

// CacheStats is a point-in-time snapshot of the cache counters.
type CacheStats struct {
	Hits         int64
	Misses       int64
	NegativeHits int64
	Evictions    int64
	Expirations  int64
	Refreshes    int64
	Len          int
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
		NegativeHits: c.negativeHits.Load(),
		Evictions:    c.evictions.Load(),
		Expirations:  c.expirations.Load(),
		Refreshes:    c.refreshes.Load(),
		Len:          c.Len(),
	}
}

// Sharded splits a cache into independent shards picked by a hash of the
// tenant id, so concurrent lookups for different tenants rarely contend on
// one lock. Every operation touches exactly one shard.
type Sharded struct {
	shards []*Cache
}

// NewSharded returns a sharded cache of n shards, each configured with the
// given options. Non-positive n falls back to DefaultShards.
func NewSharded(n int, opts ...CacheOption) *Sharded {
	if n <= 0 {
		n = DefaultShards
	}
	s := &Sharded{shards: make([]*Cache, n)}
	for i := range s.shards {
		s.shards[i] = NewCache(opts...)
	}
	return s
}

func (s *Sharded) shard(id ID) *Cache {
	h := fnv.New32a()
	h.Write([]byte(id))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// Lookup reports what the id's shard knows about it.
func (s *Sharded) Lookup(id ID) Result { return s.shard(id).Lookup(id) }

// Insert stores a resolved context in its shard.
func (s *Sharded) Insert(tc Context) { s.shard(tc.ID).Insert(tc) }

// InsertNegative records the id as known-absent in its shard.
func (s *Sharded) InsertNegative(id ID) { s.shard(id).InsertNegative(id) }

// Remove drops the id from its shard.
func (s *Sharded) Remove(id ID) { s.shard(id).Remove(id) }

// BeginRefresh claims the refresh slot on the id's shard.
func (s *Sharded) BeginRefresh(id ID) bool { return s.shard(id).BeginRefresh(id) }

// AbortRefresh releases the refresh claim on the id's shard.
func (s *Sharded) AbortRefresh(id ID) { s.shard(id).AbortRefresh(id) }

// Len returns the total number of entries across shards.
func (s *Sharded) Len() int {
	n := 0
	for _, c := range s.shards {
		n += c.Len()
	}
	return n
}

// Stats returns the counters summed across shards.
func (s *Sharded) Stats() CacheStats {
	var total CacheStats
	for _, c := range s.shards {
		st := c.Stats()
		total.Hits += st.Hits
		total.Misses += st.Misses
		total.NegativeHits += st.NegativeHits
		total.Evictions += st.Evictions
		total.Expirations += st.Expirations
		total.Refreshes += st.Refreshes
		total.Len += st.Len
	}
	return total
}
