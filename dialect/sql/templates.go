package sql

import (
	"container/list"
	"hash/fnv"
	"sync"
	"sync/atomic"
)

// Template is a precomputed statement registered by generated code: the SQL
// text, the number of parameters it expects and the FNV-64a hash of the
// text. Lookups resolve by name or by hash.
type Template struct {
	Name  string
	SQL   string
	Arity int
	Hash  uint64
}

// HashSQL returns the FNV-64a hash of the SQL text.
func HashSQL(sql string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(sql))
	return h.Sum64()
}

// Templates is a fixed-capacity template cache with least-recently-used
// eviction. Safe for concurrent use.
type Templates struct {
	mu     sync.Mutex
	cap    int
	ll     *list.List
	byName map[string]*list.Element
	byHash map[uint64]*list.Element

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// DefaultTemplateCapacity bounds a Templates cache constructed with a
// non-positive capacity.
const DefaultTemplateCapacity = 256

// NewTemplates returns a template cache holding at most capacity entries.
func NewTemplates(capacity int) *Templates {
	if capacity <= 0 {
		capacity = DefaultTemplateCapacity
	}
	return &Templates{
		cap:    capacity,
		ll:     list.New(),
		byName: make(map[string]*list.Element, capacity),
		byHash: make(map[uint64]*list.Element, capacity),
	}
}

// Register stores a template under the given name, computing its content
// hash, and returns it. Registering an existing name replaces its entry.
// When the cache is full the least-recently-used entry is evicted.
func (t *Templates) Register(name, sql string, arity int) Template {
	tpl := Template{Name: name, SQL: sql, Arity: arity, Hash: HashSQL(sql)}
	t.mu.Lock()
	defer t.mu.Unlock()
	if el, ok := t.byName[name]; ok {
		old := el.Value.(Template)
		if t.byHash[old.Hash] == el {
			delete(t.byHash, old.Hash)
		}
		el.Value = tpl
		t.byHash[tpl.Hash] = el
		t.ll.MoveToFront(el)
		return tpl
	}
	if t.ll.Len() >= t.cap {
		t.evict()
	}
	el := t.ll.PushFront(tpl)
	t.byName[name] = el
	t.byHash[tpl.Hash] = el
	return tpl
}

// evict removes the least-recently-used entry. Callers hold t.mu.
func (t *Templates) evict() {
	el := t.ll.Back()
	if el == nil {
		return
	}
	tpl := el.Value.(Template)
	t.ll.Remove(el)
	delete(t.byName, tpl.Name)
	if t.byHash[tpl.Hash] == el {
		delete(t.byHash, tpl.Hash)
	}
	t.evictions.Add(1)
}

// Lookup returns the template registered under name, marking it recently
// used.
func (t *Templates) Lookup(name string) (Template, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	el, ok := t.byName[name]
	if !ok {
		t.misses.Add(1)
		return Template{}, false
	}
	t.ll.MoveToFront(el)
	t.hits.Add(1)
	return el.Value.(Template), true
}

// LookupHash returns the template whose SQL text has the given hash. When
// two registered templates share a hash, the most recently registered wins.
func (t *Templates) LookupHash(h uint64) (Template, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	el, ok := t.byHash[h]
	if !ok {
		t.misses.Add(1)
		return Template{}, false
	}
	t.ll.MoveToFront(el)
	t.hits.Add(1)
	return el.Value.(Template), true
}

// Len returns the number of cached templates.
func (t *Templates) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ll.Len()
}

// TemplateStats is a point-in-time snapshot of cache effectiveness.
type TemplateStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Len       int
	Capacity  int
}

// Stats returns a snapshot of the cache counters.
func (t *Templates) Stats() TemplateStats {
	return TemplateStats{
		Hits:      t.hits.Load(),
		Misses:    t.misses.Load(),
		Evictions: t.evictions.Load(),
		Len:       t.Len(),
		Capacity:  t.cap,
	}
}
