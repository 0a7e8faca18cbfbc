package dataloader

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type account struct {
	ID   int64
	Name string
}

func accountID(a account) int64 { return a.ID }

func TestOrderByKeys(t *testing.T) {
	t.Run("AllFound", func(t *testing.T) {
		accounts := []account{{2, "b"}, {1, "a"}, {3, "c"}}
		ordered, errs := OrderByKeys([]int64{1, 2, 3}, accounts, accountID)
		require.Len(t, ordered, 3)
		assert.Equal(t, []account{{1, "a"}, {2, "b"}, {3, "c"}}, ordered)
		for _, err := range errs {
			assert.NoError(t, err)
		}
	})
	t.Run("Missing", func(t *testing.T) {
		ordered, errs := OrderByKeys([]int64{1, 9, 2}, []account{{1, "a"}, {2, "b"}}, accountID)
		assert.Equal(t, []account{{1, "a"}, {}, {2, "b"}}, ordered)
		assert.NoError(t, errs[0])
		assert.ErrorIs(t, errs[1], ErrNotFound)
		assert.NoError(t, errs[2])
	})
	t.Run("DuplicateKeys", func(t *testing.T) {
		ordered, errs := OrderByKeys([]int64{1, 1}, []account{{1, "a"}}, accountID)
		assert.Equal(t, []account{{1, "a"}, {1, "a"}}, ordered)
		assert.NoError(t, errs[0])
		assert.NoError(t, errs[1])
	})
	t.Run("Empty", func(t *testing.T) {
		ordered, errs := OrderByKeys(nil, []account{{1, "a"}}, accountID)
		assert.Empty(t, ordered)
		assert.Empty(t, errs)
	})
}

func TestOrderByKeysNoError(t *testing.T) {
	ordered := OrderByKeysNoError([]int64{9, 1}, []account{{1, "a"}}, accountID)
	assert.Equal(t, []account{{}, {1, "a"}}, ordered)
}

func TestGroupByKey(t *testing.T) {
	type post struct {
		ID       int64
		AuthorID int64
	}
	posts := []post{{1, 10}, {2, 20}, {3, 10}}
	grouped := GroupByKey(posts, func(p post) int64 { return p.AuthorID })
	require.Len(t, grouped, 2)
	require.Len(t, grouped[10], 2)
	assert.Equal(t, int64(1), grouped[10][0].ID, "buckets keep input order")
	assert.Equal(t, int64(3), grouped[10][1].ID)
	assert.Equal(t, []post{{2, 20}}, grouped[20])
}

func TestOrderGroupsByKeys(t *testing.T) {
	groups := map[int64][]string{10: {"x", "y"}, 20: {"z"}}
	ordered := OrderGroupsByKeys([]int64{20, 30, 10}, groups)
	require.Len(t, ordered, 3)
	assert.Equal(t, []string{"z"}, ordered[0])
	assert.Nil(t, ordered[1], "missing key is an empty relation, not an error")
	assert.Equal(t, []string{"x", "y"}, ordered[2])
}

type captureCache struct {
	primed  map[int64]account
	cleared []int64
}

func (c *captureCache) Prime(key int64, value account) { c.primed[key] = value }
func (c *captureCache) Clear(key int64)                { c.cleared = append(c.cleared, key) }

func TestPrimeMany(t *testing.T) {
	cache := &captureCache{primed: make(map[int64]account)}
	PrimeMany(cache, []account{{1, "a"}, {2, "b"}}, accountID)
	require.Len(t, cache.primed, 2)
	assert.Equal(t, "b", cache.primed[2].Name)
}

func TestClearMany(t *testing.T) {
	cache := &captureCache{}
	ClearMany(cache, []int64{3, 1})
	assert.Equal(t, []int64{3, 1}, cache.cleared)
}

func TestWithLoaders(t *testing.T) {
	type bundle struct {
		Accounts *Loader[int64, account]
	}
	t.Run("RoundTrip", func(t *testing.T) {
		in := &bundle{Accounts: New[int64, account](nil)}
		ctx := WithLoaders(context.Background(), in)
		assert.Same(t, in, For[*bundle](ctx))
	})
	t.Run("Absent", func(t *testing.T) {
		assert.Nil(t, For[*bundle](context.Background()))
	})
}

// recorder is a BatchFunc that records every call and serves keys from a
// fixed table, failing absent ones with ErrNotFound.
type recorder struct {
	mu    sync.Mutex
	table map[string]int
	calls [][]string
}

func (r *recorder) batch(_ context.Context, keys []string) ([]int, []error) {
	r.mu.Lock()
	r.calls = append(r.calls, append([]string(nil), keys...))
	r.mu.Unlock()
	values := make([]int, len(keys))
	errs := make([]error, len(keys))
	for i, k := range keys {
		v, ok := r.table[k]
		if !ok {
			errs[i] = ErrNotFound
			continue
		}
		values[i] = v
	}
	return values, errs
}

func (r *recorder) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestLoaderWindowFlush(t *testing.T) {
	rec := &recorder{table: map[string]int{"a": 1}}
	l := New(rec.batch, WithWindow(time.Millisecond))
	v, err := l.Load(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, rec.callCount())
}

func TestLoaderFullBatchFlushesEarly(t *testing.T) {
	rec := &recorder{table: map[string]int{"a": 1, "b": 2}}
	l := New(rec.batch, WithMaxBatch(2), WithWindow(time.Hour))
	values, errs := l.LoadMany(context.Background(), []string{"a", "b"})
	assert.Equal(t, []int{1, 2}, values)
	for _, err := range errs {
		assert.NoError(t, err)
	}
	require.Equal(t, 1, rec.callCount())
	assert.Equal(t, []string{"a", "b"}, rec.calls[0])
}

func TestLoaderDeduplicates(t *testing.T) {
	rec := &recorder{table: map[string]int{"a": 1, "b": 2}}
	l := New(rec.batch, WithMaxBatch(2), WithWindow(time.Hour))
	values, errs := l.LoadMany(context.Background(), []string{"a", "a", "b"})
	assert.Equal(t, []int{1, 1, 2}, values)
	for _, err := range errs {
		assert.NoError(t, err)
	}
	require.Equal(t, 1, rec.callCount())
	assert.Equal(t, []string{"a", "b"}, rec.calls[0], "duplicates share one seat")
}

func TestLoaderCache(t *testing.T) {
	rec := &recorder{table: map[string]int{"a": 1, "b": 2}}
	l := New(rec.batch, WithMaxBatch(1), WithWindow(time.Hour))
	ctx := context.Background()

	v, err := l.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	v, err = l.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, rec.callCount(), "second load served from the cache")

	l.Clear("a")
	_, err = l.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.callCount(), "cleared key loads again")

	l.Prime("b", 99)
	v, err = l.Load(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 99, v, "primed value wins without a batch call")
	assert.Equal(t, 2, rec.callCount())
}

func TestLoaderWithoutCache(t *testing.T) {
	rec := &recorder{table: map[string]int{"a": 1}}
	l := New(rec.batch, WithMaxBatch(1), WithWindow(time.Hour), WithoutCache())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		v, err := l.Load(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, 1, v)
	}
	assert.Equal(t, 2, rec.callCount())

	// Prime has nowhere to settle, so the next load still hits the table.
	l.Prime("a", 7)
	v, err := l.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, 3, rec.callCount())
}

func TestLoaderErrorSettles(t *testing.T) {
	rec := &recorder{table: map[string]int{}}
	l := New(rec.batch, WithMaxBatch(1), WithWindow(time.Hour))
	ctx := context.Background()

	_, err := l.Load(ctx, "ghost")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = l.Load(ctx, "ghost")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, rec.callCount(), "the failure settles like a value")

	l.Clear("ghost")
	_, err = l.Load(ctx, "ghost")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 2, rec.callCount())
}

func TestLoaderBatchError(t *testing.T) {
	boom := errors.New("connection reset")
	l := New(func(_ context.Context, keys []string) ([]int, []error) {
		return nil, errorsFor(len(keys), boom)
	}, WithMaxBatch(2), WithWindow(time.Hour))

	values, errs := l.LoadMany(context.Background(), []string{"a", "b"})
	assert.Equal(t, []int{0, 0}, values)
	for _, err := range errs {
		assert.ErrorIs(t, err, boom)
	}
}

func TestLoaderContextCanceled(t *testing.T) {
	rec := &recorder{table: map[string]int{"a": 1}}
	l := New(rec.batch, WithMaxBatch(2), WithWindow(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The batch never fills and the window never elapses, so the waiter
	// can only leave through its own context.
	_, err := l.Load(ctx, "a")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, rec.callCount())
}

func TestLoaderCoalescesConcurrentLoads(t *testing.T) {
	table := make(map[string]int, 8)
	for i := 0; i < 8; i++ {
		table[strconv.Itoa(i)] = i
	}
	rec := &recorder{table: table}
	l := New(rec.batch, WithWindow(250*time.Millisecond))

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			<-start
			v, err := l.Load(context.Background(), strconv.Itoa(n))
			assert.NoError(t, err)
			assert.Equal(t, n, v)
		}(i)
	}
	close(start)
	wg.Wait()
	assert.Equal(t, 1, rec.callCount(), "loads inside one window share a batch")
	assert.Len(t, rec.calls[0], 8)
}

func BenchmarkOrderByKeys(b *testing.B) {
	keys := make([]int64, 100)
	accounts := make([]account, 100)
	for i := range accounts {
		keys[i] = int64(i)
		accounts[i] = account{ID: int64(99 - i), Name: fmt.Sprintf("u%d", i)}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		OrderByKeys(keys, accounts, accountID)
	}
}

func BenchmarkGroupByKey(b *testing.B) {
	accounts := make([]account, 1000)
	for i := range accounts {
		accounts[i] = account{ID: int64(i % 10)}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		GroupByKey(accounts, accountID)
	}
}

func BenchmarkLoaderCacheHit(b *testing.B) {
	l := New(func(_ context.Context, keys []string) ([]int, []error) {
		return make([]int, len(keys)), make([]error, len(keys))
	}, WithMaxBatch(1))
	ctx := context.Background()
	if _, err := l.Load(ctx, "a"); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := l.Load(ctx, "a"); err != nil {
			b.Fatal(err)
		}
	}
}
