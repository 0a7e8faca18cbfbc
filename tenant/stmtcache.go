package tenant

import (
	"container/list"
	"io"
	"sync"
	"sync/atomic"
)

// Statement cache defaults.
const (
	DefaultStmtEntries = 256
	DefaultStmtTenants = 64
)

// StmtMode selects how prepared statements are shared across tenants.
type StmtMode uint8

const (
	// StmtGlobal shares one statement table across all tenants. Valid
	// under row-level security because the SQL text is identical for
	// every tenant.
	StmtGlobal StmtMode = iota
	// StmtPerTenant keeps an independent statement table per tenant.
	StmtPerTenant
	// StmtDisabled caches nothing.
	StmtDisabled
)

func (m StmtMode) String() string {
	switch m {
	case StmtGlobal:
		return "global"
	case StmtPerTenant:
		return "per_tenant"
	case StmtDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// StmtConfig sizes the statement cache.
type StmtConfig struct {
	Mode       StmtMode
	Max        int
	MaxTenants int
}

// GlobalStmts returns a config sharing up to max statements across all
// tenants.
func GlobalStmts(max int) StmtConfig {
	return StmtConfig{Mode: StmtGlobal, Max: max}
}

// PerTenantStmts returns a config keeping perTenantMax statements for each
// of up to maxTenants tenants.
func PerTenantStmts(maxTenants, perTenantMax int) StmtConfig {
	return StmtConfig{Mode: StmtPerTenant, Max: perTenantMax, MaxTenants: maxTenants}
}

// DisabledStmts returns a config that caches nothing.
func DisabledStmts() StmtConfig {
	return StmtConfig{Mode: StmtDisabled}
}

func (c StmtConfig) max() int {
	if c.Max > 0 {
		return c.Max
	}
	return DefaultStmtEntries
}

func (c StmtConfig) maxTenants() int {
	if c.Mode != StmtPerTenant {
		return 1
	}
	if c.MaxTenants > 0 {
		return c.MaxTenants
	}
	return DefaultStmtTenants
}

// StmtKey identifies a cached statement. Statements prepared under the
// same name but different SQL are distinct entries.
type StmtKey struct {
	Name string
	SQL  string
}

type stmtEntry struct {
	key  StmtKey
	stmt any
}

type stmtTable struct {
	tenant  ID
	elem    *list.Element
	entries map[StmtKey]*list.Element
	lru     *list.List
}

// StmtCache holds driver-prepared statements under least-recently-used
// eviction. Handles are opaque to the cache; evicted or replaced handles
// implementing io.Closer are closed. Safe for concurrent use.
type StmtCache struct {
	cfg    StmtConfig
	mu     sync.RWMutex
	tables map[ID]*stmtTable
	order  *list.List

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewStmtCache returns a statement cache configured by cfg.
func NewStmtCache(cfg StmtConfig) *StmtCache {
	return &StmtCache{
		cfg:    cfg,
		tables: make(map[ID]*stmtTable),
		order:  list.New(),
	}
}

func (c *StmtCache) tenantKey(tc Context) ID {
	if c.cfg.Mode == StmtPerTenant {
		return tc.ID
	}
	return ""
}

// Get returns the statement cached under key for the tenant, marking it
// recently used.
func (c *StmtCache) Get(tc Context, key StmtKey) (any, bool) {
	if c.cfg.Mode == StmtDisabled {
		return nil, false
	}
	id := c.tenantKey(tc)
	c.mu.RLock()
	var (
		stmt any
		ok   bool
	)
	if tbl, found := c.tables[id]; found {
		if el, found := tbl.entries[key]; found {
			stmt, ok = el.Value.(*stmtEntry).stmt, true
		}
	}
	c.mu.RUnlock()
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.mu.Lock()
	if tbl, found := c.tables[id]; found {
		if el, found := tbl.entries[key]; found {
			tbl.lru.MoveToFront(el)
			c.order.MoveToFront(tbl.elem)
		}
	}
	c.mu.Unlock()
	return stmt, true
}

// Put stores stmt under key for the tenant and reports whether the cache
// kept it. In disabled mode the handle is closed and dropped.
func (c *StmtCache) Put(tc Context, key StmtKey, stmt any) bool {
	if c.cfg.Mode == StmtDisabled {
		closeStmt(stmt)
		return false
	}
	id := c.tenantKey(tc)
	c.mu.Lock()
	defer c.mu.Unlock()
	tbl, ok := c.tables[id]
	if !ok {
		tbl = &stmtTable{
			tenant:  id,
			entries: make(map[StmtKey]*list.Element),
			lru:     list.New(),
		}
		tbl.elem = c.order.PushFront(tbl)
		c.tables[id] = tbl
		for len(c.tables) > c.cfg.maxTenants() {
			c.evictTableLocked()
		}
	} else {
		c.order.MoveToFront(tbl.elem)
	}
	if el, ok := tbl.entries[key]; ok {
		entry := el.Value.(*stmtEntry)
		if entry.stmt != stmt {
			closeStmt(entry.stmt)
			entry.stmt = stmt
		}
		tbl.lru.MoveToFront(el)
		return true
	}
	for tbl.lru.Len() >= c.cfg.max() {
		c.evictEntryLocked(tbl)
	}
	tbl.entries[key] = tbl.lru.PushFront(&stmtEntry{key: key, stmt: stmt})
	return true
}

// evictEntryLocked drops the table's least recently used statement.
// Callers hold c.mu.
func (c *StmtCache) evictEntryLocked(tbl *stmtTable) {
	el := tbl.lru.Back()
	if el == nil {
		return
	}
	entry := el.Value.(*stmtEntry)
	tbl.lru.Remove(el)
	delete(tbl.entries, entry.key)
	closeStmt(entry.stmt)
	c.evictions.Add(1)
}

// evictTableLocked drops the least recently used tenant table and all of
// its statements. Callers hold c.mu.
func (c *StmtCache) evictTableLocked() {
	back := c.order.Back()
	if back == nil {
		return
	}
	tbl := back.Value.(*stmtTable)
	c.order.Remove(back)
	delete(c.tables, tbl.tenant)
	for _, el := range tbl.entries {
		closeStmt(el.Value.(*stmtEntry).stmt)
	}
	c.evictions.Add(int64(len(tbl.entries)))
}

// Remove drops the statement cached under key for the tenant, closing its
// handle, and reports whether one was present.
func (c *StmtCache) Remove(tc Context, key StmtKey) bool {
	if c.cfg.Mode == StmtDisabled {
		return false
	}
	id := c.tenantKey(tc)
	c.mu.Lock()
	defer c.mu.Unlock()
	tbl, ok := c.tables[id]
	if !ok {
		return false
	}
	el, ok := tbl.entries[key]
	if !ok {
		return false
	}
	entry := el.Value.(*stmtEntry)
	tbl.lru.Remove(el)
	delete(tbl.entries, key)
	closeStmt(entry.stmt)
	return true
}

// RemoveTenant drops a tenant's whole statement table and returns how many
// statements were closed.
func (c *StmtCache) RemoveTenant(id ID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	tbl, ok := c.tables[id]
	if !ok {
		return 0
	}
	c.order.Remove(tbl.elem)
	delete(c.tables, id)
	for _, el := range tbl.entries {
		closeStmt(el.Value.(*stmtEntry).stmt)
	}
	return len(tbl.entries)
}

// Clear closes every cached statement and resets the cache.
func (c *StmtCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tbl := range c.tables {
		for _, el := range tbl.entries {
			closeStmt(el.Value.(*stmtEntry).stmt)
		}
	}
	c.tables = make(map[ID]*stmtTable)
	c.order.Init()
}

// Len returns the number of cached statements across all tenants.
func (c *StmtCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, tbl := range c.tables {
		n += tbl.lru.Len()
	}
	return n
}

// StmtStats is a point-in-time snapshot of the cache counters.
type StmtStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Len       int
	Tenants   int
}

// Stats returns a snapshot of the cache counters.
func (c *StmtCache) Stats() StmtStats {
	c.mu.RLock()
	tenants := len(c.tables)
	n := 0
	for _, tbl := range c.tables {
		n += tbl.lru.Len()
	}
	c.mu.RUnlock()
	return StmtStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Len:       n,
		Tenants:   tenants,
	}
}

func closeStmt(stmt any) {
	if closer, ok := stmt.(io.Closer); ok {
		closer.Close()
	}
}
