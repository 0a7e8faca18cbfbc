package tenant

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/syssam/prax"
)

// DefaultRefreshTimeout bounds a background refresh of one tenant.
const DefaultRefreshTimeout = 10 * time.Second

// ContextCache is the lookup surface Runtime resolves through. Both
// *Cache and *Sharded satisfy it.
type ContextCache interface {
	Lookup(id ID) Result
	Insert(tc Context)
	InsertNegative(id ID)
	Remove(id ID)
	BeginRefresh(id ID) bool
	AbortRefresh(id ID)
}

// Loader fetches a tenant's context from the source of truth. A missing
// tenant is reported with a NotFoundError so the runtime can record a
// negative entry.
type Loader func(ctx context.Context, id ID) (Context, error)

// Runtime resolves tenant ids to contexts through a local cache, an
// optional shared snapshot tier, and a loader, refreshing stale entries in
// the background.
type Runtime struct {
	cache          ContextCache
	loader         Loader
	shared         prax.Cache
	sharedTTL      time.Duration
	log            *slog.Logger
	refreshTimeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithSharedTier adds a cross-process snapshot tier consulted on local
// misses. Snapshots are stored with the given TTL.
func WithSharedTier(c prax.Cache, ttl time.Duration) RuntimeOption {
	return func(r *Runtime) {
		r.shared = c
		r.sharedTTL = ttl
	}
}

// WithLogger sets the runtime's logger.
func WithLogger(l *slog.Logger) RuntimeOption {
	return func(r *Runtime) { r.log = l }
}

// WithRefreshTimeout bounds each background refresh.
func WithRefreshTimeout(d time.Duration) RuntimeOption {
	return func(r *Runtime) { r.refreshTimeout = d }
}

// NewRuntime returns a runtime resolving through cache and loader.
func NewRuntime(cache ContextCache, loader Loader, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		cache:          cache,
		loader:         loader,
		log:            slog.Default(),
		refreshTimeout: DefaultRefreshTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the context for a tenant id. Hits and stale entries are
// served from the cache; a stale entry additionally triggers one
// background refresh. Known-absent tenants fail fast with a NotFoundError.
// Misses fall through to the shared tier and then the loader.
func (r *Runtime) Resolve(ctx context.Context, id ID) (Context, error) {
	res := r.cache.Lookup(id)
	switch res.State {
	case Hit:
		return res.Context, nil
	case NegativeHit:
		return Context{}, NewNotFoundError(id)
	case Stale:
		if r.cache.BeginRefresh(id) {
			r.refresh(id)
		}
		return res.Context, nil
	}
	if tc, ok := r.sharedLookup(ctx, id); ok {
		r.cache.Insert(tc)
		return tc, nil
	}
	return r.load(ctx, id)
}

// Scope resolves the tenant and returns a context carrying it.
func (r *Runtime) Scope(ctx context.Context, id ID) (context.Context, error) {
	tc, err := r.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewContext(ctx, tc), nil
}

// Invalidate drops the tenant from the local cache and the shared tier.
// The next Resolve reloads it.
func (r *Runtime) Invalidate(ctx context.Context, id ID) error {
	r.cache.Remove(id)
	if r.shared == nil {
		return nil
	}
	return r.shared.Delete(ctx, prax.TenantKey(string(id)).String())
}

func (r *Runtime) load(ctx context.Context, id ID) (Context, error) {
	tc, err := r.loader(ctx, id)
	if err != nil {
		if IsNotFound(err) || IsExpired(err) {
			r.cache.InsertNegative(id)
		}
		return Context{}, err
	}
	r.cache.Insert(tc)
	r.sharedStore(ctx, tc)
	return tc, nil
}

// refresh reloads one tenant off the request path. The caller has already
// won the entry's refresh flag via BeginRefresh.
func (r *Runtime) refresh(id ID) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.cache.AbortRefresh(id)
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.refreshTimeout)
		defer cancel()
		tc, err := r.loader(ctx, id)
		if err != nil {
			r.cache.AbortRefresh(id)
			if IsNotFound(err) || IsExpired(err) {
				r.cache.InsertNegative(id)
			}
			r.log.Warn("tenant refresh failed", "tenant", string(id), "error", err)
			return
		}
		r.cache.Insert(tc)
		r.sharedStore(ctx, tc)
	}()
}

func (r *Runtime) sharedLookup(ctx context.Context, id ID) (Context, bool) {
	if r.shared == nil {
		return Context{}, false
	}
	raw, err := r.shared.Get(ctx, prax.TenantKey(string(id)).String())
	if err != nil {
		r.log.Warn("tenant shared tier get", "tenant", string(id), "error", err)
		return Context{}, false
	}
	if raw == nil {
		return Context{}, false
	}
	tc, err := UnmarshalContext(raw)
	if err != nil {
		r.log.Warn("tenant snapshot decode", "tenant", string(id), "error", err)
		return Context{}, false
	}
	return tc, true
}

func (r *Runtime) sharedStore(ctx context.Context, tc Context) {
	if r.shared == nil {
		return
	}
	raw, err := MarshalContext(tc)
	if err != nil {
		r.log.Warn("tenant snapshot encode", "tenant", string(tc.ID), "error", err)
		return
	}
	key := prax.TenantKey(string(tc.ID)).String()
	if err := r.shared.Set(ctx, key, raw, r.sharedTTL); err != nil {
		r.log.Warn("tenant shared tier set", "tenant", string(tc.ID), "error", err)
	}
}

// Close waits for in-flight background refreshes to finish. Resolve
// continues to serve from the cache but stops spawning refreshes.
func (r *Runtime) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.wg.Wait()
	return nil
}
