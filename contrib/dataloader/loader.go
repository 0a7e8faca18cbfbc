package dataloader

import (
	"context"
	"sync"
	"time"
)

const (
	defaultMaxBatch = 100
	defaultWindow   = 2 * time.Millisecond
)

type loaderConfig struct {
	maxBatch int
	window   time.Duration
	noCache  bool
}

// Option configures a Loader.
type Option func(*loaderConfig)

// WithMaxBatch caps the number of distinct keys per batch call. A full
// batch flushes without waiting for the window.
func WithMaxBatch(n int) Option {
	return func(c *loaderConfig) {
		if n > 0 {
			c.maxBatch = n
		}
	}
}

// WithWindow sets how long the loader collects keys before calling the
// batch function.
func WithWindow(d time.Duration) Option {
	return func(c *loaderConfig) {
		if d > 0 {
			c.window = d
		}
	}
}

// WithoutCache disables result caching. In-flight deduplication still
// applies: concurrent loads of one key share a single batch seat.
func WithoutCache() Option {
	return func(c *loaderConfig) {
		c.noCache = true
	}
}

// Loader coalesces individual key loads into batch calls. Keys arriving
// within the collection window, up to the batch cap, are served by one
// call to the batch function. Results settle into a cache, so a loader is
// meant to live for one request; see WithLoaders.
type Loader[K comparable, V any] struct {
	batchFn BatchFunc[K, V]
	cfg     loaderConfig

	mu      sync.Mutex
	cache   map[K]settled[V]
	current *batch[K, V]
}

type settled[V any] struct {
	value V
	err   error
}

// batch accumulates the keys of one flush. done closes after values and
// errs are populated.
type batch[K comparable, V any] struct {
	ctx     context.Context
	keys    []K
	seats   map[K]int
	timer   *time.Timer
	started bool

	done   chan struct{}
	values []V
	errs   []error
}

// New returns a loader over the batch function. The zero options collect
// for 2ms and cap batches at 100 keys.
func New[K comparable, V any](batchFn BatchFunc[K, V], opts ...Option) *Loader[K, V] {
	cfg := loaderConfig{maxBatch: defaultMaxBatch, window: defaultWindow}
	for _, opt := range opts {
		opt(&cfg)
	}
	l := &Loader[K, V]{batchFn: batchFn, cfg: cfg}
	if !cfg.noCache {
		l.cache = make(map[K]settled[V])
	}
	return l
}

// Load fetches the value for one key, joining the current batch. It blocks
// until the batch flushes or ctx is done. A key whose batch already failed
// returns the settled error until Clear removes it.
func (l *Loader[K, V]) Load(ctx context.Context, key K) (V, error) {
	return l.loadThunk(ctx, key)()
}

// LoadMany fetches every key, seating them all before waiting so they
// share batches. Results and errors are positional, like BatchFunc.
func (l *Loader[K, V]) LoadMany(ctx context.Context, keys []K) ([]V, []error) {
	thunks := make([]func() (V, error), len(keys))
	for i, k := range keys {
		thunks[i] = l.loadThunk(ctx, k)
	}
	values := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, thunk := range thunks {
		values[i], errs[i] = thunk()
	}
	return values, errs
}

// Prime settles a value for the key without loading it, replacing any
// previous result. Useful after writes, so follow-up loads in the same
// request see the written row.
func (l *Loader[K, V]) Prime(key K, value V) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cache != nil {
		l.cache[key] = settled[V]{value: value}
	}
}

// Clear drops the key's settled result. The next load fetches it again.
func (l *Loader[K, V]) Clear(key K) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cache != nil {
		delete(l.cache, key)
	}
}

// loadThunk seats the key and returns a function that waits for its
// result. Seating and waiting are split so LoadMany can enlist every key
// in the batch before blocking on the first.
func (l *Loader[K, V]) loadThunk(ctx context.Context, key K) func() (V, error) {
	l.mu.Lock()
	if l.cache != nil {
		if s, ok := l.cache[key]; ok {
			l.mu.Unlock()
			return func() (V, error) { return s.value, s.err }
		}
	}
	b := l.current
	if b == nil {
		// The batch context descends from the first caller so request
		// values (the tenant among them) reach the batch function, but a
		// canceled waiter must not fail the other seats.
		b = &batch[K, V]{
			ctx:   context.WithoutCancel(ctx),
			seats: make(map[K]int),
			done:  make(chan struct{}),
		}
		b.timer = time.AfterFunc(l.cfg.window, func() { l.flush(b) })
		l.current = b
	}
	idx, ok := b.seats[key]
	if !ok {
		idx = len(b.keys)
		b.keys = append(b.keys, key)
		b.seats[key] = idx
	}
	full := len(b.keys) >= l.cfg.maxBatch
	l.mu.Unlock()

	if full {
		l.flush(b)
	}
	return func() (V, error) {
		select {
		case <-b.done:
			return b.values[idx], b.errs[idx]
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		}
	}
}

// flush runs the batch function once for the batch and settles every seat.
// The timer and a full batch can both arrive here; the first wins.
func (l *Loader[K, V]) flush(b *batch[K, V]) {
	l.mu.Lock()
	if b.started {
		l.mu.Unlock()
		return
	}
	b.started = true
	b.timer.Stop()
	if l.current == b {
		l.current = nil
	}
	keys := b.keys
	l.mu.Unlock()

	values, errs := l.batchFn(b.ctx, keys)
	b.values = make([]V, len(keys))
	b.errs = make([]error, len(keys))
	for i := range keys {
		if i < len(values) {
			b.values[i] = values[i]
		}
		if i < len(errs) {
			b.errs[i] = errs[i]
		}
	}

	l.mu.Lock()
	if l.cache != nil {
		for i, k := range keys {
			l.cache[k] = settled[V]{value: b.values[i], err: b.errs[i]}
		}
	}
	l.mu.Unlock()
	close(b.done)
}

var (
	_ CachePrimer[string, int] = (*Loader[string, int])(nil)
	_ CacheClearer[string]     = (*Loader[string, int])(nil)
)
