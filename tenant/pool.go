package tenant

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/syssam/prax/dialect"
)

// Pool manager defaults.
const (
	DefaultPoolSize       = 10
	DefaultMaxPools       = 64
	DefaultIdleTimeout    = 10 * time.Minute
	DefaultAcquireTimeout = 5 * time.Second

	defaultSweepInterval = time.Minute
)

// StrategyKind selects how tenants map to connection pools.
type StrategyKind uint8

const (
	// StrategyShared routes every tenant through one pool. Isolation
	// comes from row-level security and session variables.
	StrategyShared StrategyKind = iota
	// StrategyPerTenant opens a pool per tenant id, for schema
	// isolation.
	StrategyPerTenant
	// StrategyPerDatabase opens a pool per target database, for
	// complete isolation.
	StrategyPerDatabase
)

func (k StrategyKind) String() string {
	switch k {
	case StrategyShared:
		return "shared"
	case StrategyPerTenant:
		return "per_tenant"
	case StrategyPerDatabase:
		return "per_database"
	default:
		return "unknown"
	}
}

// Strategy describes the pool topology: how contexts key into pools, how
// many pools may be open at once, and how many connections each holds.
type Strategy struct {
	Kind     StrategyKind
	MaxPools int
	PoolSize int
}

// Shared returns a single-pool strategy with size connection slots.
func Shared(size int) Strategy {
	return Strategy{Kind: StrategyShared, MaxPools: 1, PoolSize: size}
}

// PerTenant returns a pool-per-tenant strategy capped at maxPools open
// pools of size connections each.
func PerTenant(maxPools, size int) Strategy {
	return Strategy{Kind: StrategyPerTenant, MaxPools: maxPools, PoolSize: size}
}

// PerDatabase returns a pool-per-database strategy capped at maxDBs open
// pools of size connections each.
func PerDatabase(maxDBs, size int) Strategy {
	return Strategy{Kind: StrategyPerDatabase, MaxPools: maxDBs, PoolSize: size}
}

func (s Strategy) key(tc Context) string {
	switch s.Kind {
	case StrategyPerTenant:
		return string(tc.ID)
	case StrategyPerDatabase:
		if tc.Database != "" {
			return tc.Database
		}
		return string(tc.ID)
	default:
		return ""
	}
}

func (s Strategy) size() int {
	if s.PoolSize > 0 {
		return s.PoolSize
	}
	return DefaultPoolSize
}

func (s Strategy) maxPools() int {
	if s.Kind == StrategyShared {
		return 1
	}
	if s.MaxPools > 0 {
		return s.MaxPools
	}
	return DefaultMaxPools
}

// OpenFunc opens the driver backing a pool entry. The manager calls it
// once per entry, outside its locks.
type OpenFunc func(ctx context.Context, tc Context) (dialect.Driver, error)

type poolState uint32

const (
	poolInitializing poolState = iota
	poolReady
	poolDraining
	poolClosed
)

type poolEntry struct {
	key     string
	size    int64
	sem     *semaphore.Weighted
	state   atomic.Uint32
	ready   chan struct{}
	driver  dialect.Driver
	openErr error
	elem    *list.Element

	lastUsed       atomic.Int64
	acquisitions   atomic.Int64
	releases       atomic.Int64
	active         atomic.Int64
	timeouts       atomic.Int64
	waitNanos      atomic.Int64
	maxWaitNanos   atomic.Int64
	healthFailures atomic.Int64
}

func (e *poolEntry) recordWait(wait time.Duration) {
	e.waitNanos.Add(int64(wait))
	for {
		cur := e.maxWaitNanos.Load()
		if int64(wait) <= cur || e.maxWaitNanos.CompareAndSwap(cur, int64(wait)) {
			return
		}
	}
}

// PoolStats is a point-in-time snapshot of one pool's counters.
type PoolStats struct {
	State          string
	Acquisitions   int64
	Releases       int64
	Active         int64
	Idle           int64
	Timeouts       int64
	WaitTime       time.Duration
	MaxWait        time.Duration
	HealthFailures int64
}

func (e *poolEntry) stats() PoolStats {
	active := e.active.Load()
	idle := e.size - active
	if idle < 0 {
		idle = 0
	}
	return PoolStats{
		State:          poolState(e.state.Load()).String(),
		Acquisitions:   e.acquisitions.Load(),
		Releases:       e.releases.Load(),
		Active:         active,
		Idle:           idle,
		Timeouts:       e.timeouts.Load(),
		WaitTime:       time.Duration(e.waitNanos.Load()),
		MaxWait:        time.Duration(e.maxWaitNanos.Load()),
		HealthFailures: e.healthFailures.Load(),
	}
}

func (s poolState) String() string {
	switch s {
	case poolInitializing:
		return "initializing"
	case poolReady:
		return "ready"
	case poolDraining:
		return "draining"
	case poolClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// PoolManager routes tenant contexts to connection pools according to a
// Strategy. Pools are opened lazily, bounded by an LRU over the strategy's
// MaxPools, and swept when idle past the idle timeout.
type PoolManager struct {
	strategy Strategy
	open     OpenFunc
	log      *slog.Logger
	clock    func() time.Time

	idleTimeout    time.Duration
	acquireTimeout time.Duration
	sweepEvery     time.Duration

	mu      sync.RWMutex
	entries map[string]*poolEntry
	lru     *list.List
	closed  bool

	done chan struct{}
	wg   sync.WaitGroup
}

// PoolOption configures a PoolManager.
type PoolOption func(*PoolManager)

// WithIdleTimeout sets how long a pool may sit unused before the sweeper
// drains it.
func WithIdleTimeout(d time.Duration) PoolOption {
	return func(m *PoolManager) { m.idleTimeout = d }
}

// WithAcquireTimeout bounds how long Acquire waits for a free slot.
func WithAcquireTimeout(d time.Duration) PoolOption {
	return func(m *PoolManager) { m.acquireTimeout = d }
}

// WithSweepInterval sets how often the idle sweeper runs. Zero disables
// it.
func WithSweepInterval(d time.Duration) PoolOption {
	return func(m *PoolManager) { m.sweepEvery = d }
}

// WithPoolLogger sets the manager's logger.
func WithPoolLogger(l *slog.Logger) PoolOption {
	return func(m *PoolManager) { m.log = l }
}

// WithPoolClock overrides the time source.
func WithPoolClock(clock func() time.Time) PoolOption {
	return func(m *PoolManager) { m.clock = clock }
}

// NewPoolManager returns a manager that opens pools through open and
// routes to them per strategy.
func NewPoolManager(strategy Strategy, open OpenFunc, opts ...PoolOption) *PoolManager {
	m := &PoolManager{
		strategy:       strategy,
		open:           open,
		log:            slog.Default(),
		clock:          time.Now,
		idleTimeout:    DefaultIdleTimeout,
		acquireTimeout: DefaultAcquireTimeout,
		sweepEvery:     defaultSweepInterval,
		entries:        make(map[string]*poolEntry),
		lru:            list.New(),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.sweepEvery > 0 {
		m.wg.Add(1)
		go m.sweep()
	}
	return m
}

// Conn is a checked-out slot on a tenant pool. It proxies the pool's
// driver and must be released exactly once.
type Conn struct {
	dialect.Driver
	entry    *poolEntry
	clock    func() time.Time
	released atomic.Bool
}

// Release returns the slot to its pool. Further calls are no-ops.
func (c *Conn) Release() {
	if !c.released.CompareAndSwap(false, true) {
		return
	}
	c.entry.lastUsed.Store(c.clock().UnixNano())
	c.entry.active.Add(-1)
	c.entry.releases.Add(1)
	c.entry.sem.Release(1)
}

// Acquire resolves the pool for tc, opening it on first use, and checks
// out one connection slot. It fails with an AcquireTimeoutError when the
// pool stays saturated past the acquire timeout.
func (m *PoolManager) Acquire(ctx context.Context, tc Context) (*Conn, error) {
	e, err := m.entry(ctx, tc)
	if err != nil {
		return nil, err
	}
	start := m.clock()
	actx := ctx
	if m.acquireTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, m.acquireTimeout)
		defer cancel()
	}
	if err := e.sem.Acquire(actx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.timeouts.Add(1)
		return nil, &AcquireTimeoutError{Tenant: tc.ID, Wait: m.clock().Sub(start)}
	}
	if poolState(e.state.Load()) != poolReady {
		e.sem.Release(1)
		return nil, ErrPoolClosed
	}
	e.recordWait(m.clock().Sub(start))
	e.lastUsed.Store(m.clock().UnixNano())
	e.acquisitions.Add(1)
	e.active.Add(1)
	return &Conn{Driver: e.driver, entry: e, clock: m.clock}, nil
}

// entry returns the pool entry for tc, creating and opening it when
// absent. Opening happens outside the manager lock; concurrent callers
// for the same key wait on the entry's ready channel.
func (m *PoolManager) entry(ctx context.Context, tc Context) (*poolEntry, error) {
	key := m.strategy.key(tc)
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return nil, ErrPoolClosed
	}
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return nil, ErrPoolClosed
		}
		if e, ok = m.entries[key]; !ok {
			e = &poolEntry{
				key:   key,
				size:  int64(m.strategy.size()),
				sem:   semaphore.NewWeighted(int64(m.strategy.size())),
				ready: make(chan struct{}),
			}
			e.lastUsed.Store(m.clock().UnixNano())
			e.elem = m.lru.PushFront(e)
			m.entries[key] = e
			for m.lru.Len() > m.strategy.maxPools() {
				m.evictLocked()
			}
			m.mu.Unlock()
			m.openEntry(ctx, tc, e)
		} else {
			m.mu.Unlock()
		}
	}
	select {
	case <-e.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if e.openErr != nil {
		return nil, e.openErr
	}
	switch poolState(e.state.Load()) {
	case poolReady:
	default:
		return nil, ErrPoolClosed
	}
	m.mu.Lock()
	if e.elem != nil {
		m.lru.MoveToFront(e.elem)
	}
	m.mu.Unlock()
	return e, nil
}

func (m *PoolManager) openEntry(ctx context.Context, tc Context, e *poolEntry) {
	defer close(e.ready)
	drv, err := m.open(ctx, tc)
	if err != nil {
		e.openErr = err
		e.state.Store(uint32(poolClosed))
		m.mu.Lock()
		m.removeLocked(e)
		m.mu.Unlock()
		return
	}
	e.driver = drv
	if !e.state.CompareAndSwap(uint32(poolInitializing), uint32(poolReady)) {
		// Drained while opening. The drain goroutine closes the driver
		// once ready unblocks it.
		return
	}
	m.log.Debug("tenant pool opened", "strategy", m.strategy.Kind.String(), "pool", e.key)
}

func (m *PoolManager) removeLocked(e *poolEntry) {
	if e.elem != nil {
		m.lru.Remove(e.elem)
		e.elem = nil
	}
	if cur, ok := m.entries[e.key]; ok && cur == e {
		delete(m.entries, e.key)
	}
}

// evictLocked drains the least recently used pool. Caller holds the write
// lock.
func (m *PoolManager) evictLocked() {
	back := m.lru.Back()
	if back == nil {
		return
	}
	e := back.Value.(*poolEntry)
	m.removeLocked(e)
	m.drain(e)
}

// drain transitions the entry out of service and closes its driver once
// every checked-out slot has been released.
func (m *PoolManager) drain(e *poolEntry) {
	if !e.state.CompareAndSwap(uint32(poolReady), uint32(poolDraining)) &&
		!e.state.CompareAndSwap(uint32(poolInitializing), uint32(poolDraining)) {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		<-e.ready
		if e.driver == nil {
			e.state.Store(uint32(poolClosed))
			return
		}
		if err := e.sem.Acquire(context.Background(), e.size); err != nil {
			return
		}
		e.state.Store(uint32(poolClosed))
		if err := e.driver.Close(); err != nil {
			m.log.Warn("tenant pool close", "pool", e.key, "error", err)
		}
	}()
}

// sweep drains pools that sat idle past the idle timeout.
func (m *PoolManager) sweep() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.sweepIdle()
		}
	}
}

func (m *PoolManager) sweepIdle() {
	cutoff := m.clock().Add(-m.idleTimeout).UnixNano()
	m.mu.Lock()
	defer m.mu.Unlock()
	var idle []*poolEntry
	for _, e := range m.entries {
		if poolState(e.state.Load()) == poolReady && e.active.Load() == 0 && e.lastUsed.Load() < cutoff {
			idle = append(idle, e)
		}
	}
	for _, e := range idle {
		m.removeLocked(e)
		m.drain(e)
	}
}

// HealthCheck pings every ready pool and returns the failures keyed by
// pool. A healthy manager returns an empty map.
func (m *PoolManager) HealthCheck(ctx context.Context) map[string]error {
	m.mu.RLock()
	entries := make([]*poolEntry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e)
	}
	m.mu.RUnlock()
	failures := make(map[string]error)
	for _, e := range entries {
		if poolState(e.state.Load()) != poolReady {
			continue
		}
		if err := e.driver.Exec(ctx, "SELECT 1", []any{}, nil); err != nil {
			e.healthFailures.Add(1)
			failures[e.key] = err
			m.log.Warn("tenant pool health check failed", "pool", e.key, "error", err)
		}
	}
	return failures
}

// Stats snapshots every open pool's counters keyed by pool.
func (m *PoolManager) Stats() map[string]PoolStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := make(map[string]PoolStats, len(m.entries))
	for key, e := range m.entries {
		stats[key] = e.stats()
	}
	return stats
}

// Len reports the number of open pools.
func (m *PoolManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close drains every pool and waits for checked-out connections to be
// released. Subsequent Acquire calls fail with ErrPoolClosed.
func (m *PoolManager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	var all []*poolEntry
	for _, e := range m.entries {
		all = append(all, e)
	}
	for _, e := range all {
		m.removeLocked(e)
		m.drain(e)
	}
	m.mu.Unlock()
	close(m.done)
	m.wg.Wait()
	return nil
}
