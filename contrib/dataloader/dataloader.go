// Package dataloader batches the follow-up queries of relation loading.
//
// Loading a relation for a page of parents issues one query per parent
// unless something coalesces them. A Loader does: keys requested within
// its collection window are fetched by a single batch call, and results
// settle into a per-request cache.
//
//	byID := dataloader.New(dataloader.RowBatch(users, "id", userID))
//	row, err := byID.Load(ctx, 42)
//
// RowBatch and GroupBatch build the batch function from a query model:
// RowBatch for one row per key (a post's author), GroupBatch for the
// one-to-many direction (an author's posts).
//
// The batch functions also fit external loader packages such as
// github.com/graph-gophers/dataloader/v7 and
// github.com/vikstrous/dataloadgen, which share the keys-in,
// positional-results-out contract. The ordering helpers below are what
// such implementations need from a database-backed source: the result
// slice must be key-aligned, and rows come back in table order.
//
// Loaders hold request state, so construct them per request and carry
// them with WithLoaders/For.
package dataloader

import (
	"context"
	"errors"

	"github.com/syssam/prax/filter"
	"github.com/syssam/prax/query"
)

// ErrNotFound settles a key whose batch returned no row for it.
var ErrNotFound = errors.New("dataloader: entity not found")

// KeyFunc maps a loaded value back to its key. Database integers scan as
// int64, so key functions over rows extract that type.
type KeyFunc[K comparable, V any] func(V) K

// BatchFunc loads every key of one batch. Results are positional: value i
// and error i belong to key i.
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) ([]V, []error)

// RowBatch returns a BatchFunc loading one row per key from the model,
// matching rows on the given column. keyFn maps a loaded row back to its
// key; keys with no matching row settle as ErrNotFound.
func RowBatch[K comparable](m *query.Model, column string, keyFn KeyFunc[K, query.Row]) BatchFunc[K, query.Row] {
	return func(ctx context.Context, keys []K) ([]query.Row, []error) {
		rows, err := m.FindMany().Where(filter.In(column, keyValues(keys)...)).Exec(ctx)
		if err != nil {
			return nil, errorsFor(len(keys), err)
		}
		return OrderByKeys(keys, rows, keyFn)
	}
}

// GroupBatch returns a BatchFunc for one-to-many loads: each key settles as
// the slice of rows whose column holds it, empty when none matched.
func GroupBatch[K comparable](m *query.Model, column string, keyFn KeyFunc[K, query.Row]) BatchFunc[K, []query.Row] {
	return func(ctx context.Context, keys []K) ([][]query.Row, []error) {
		rows, err := m.FindMany().Where(filter.In(column, keyValues(keys)...)).Exec(ctx)
		if err != nil {
			return nil, errorsFor(len(keys), err)
		}
		return OrderGroupsByKeys(keys, GroupByKey(rows, keyFn)), make([]error, len(keys))
	}
}

func keyValues[K comparable](keys []K) []filter.Value {
	vs := make([]filter.Value, len(keys))
	for i, k := range keys {
		vs[i] = filter.ValueOf(k)
	}
	return vs
}

func errorsFor(n int, err error) []error {
	errs := make([]error, n)
	for i := range errs {
		errs[i] = err
	}
	return errs
}

// OrderByKeys aligns values to the requested key order. A key with no
// value keeps the zero value and gets ErrNotFound at its position. When a
// key appears more than once, every occurrence receives the value.
func OrderByKeys[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) ([]V, []error) {
	lookup := make(map[K]V, len(values))
	for _, v := range values {
		lookup[keyFn(v)] = v
	}
	result := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, key := range keys {
		if v, ok := lookup[key]; ok {
			result[i] = v
		} else {
			errs[i] = ErrNotFound
		}
	}
	return result, errs
}

// OrderByKeysNoError is OrderByKeys for optional lookups: missing keys
// keep the zero value and report nothing.
func OrderByKeysNoError[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) []V {
	result, _ := OrderByKeys(keys, values, keyFn)
	return result
}

// GroupByKey buckets values by their key, preserving value order inside
// each bucket.
func GroupByKey[K comparable, V any](values []V, keyFn KeyFunc[K, V]) map[K][]V {
	result := make(map[K][]V)
	for _, v := range values {
		key := keyFn(v)
		result[key] = append(result[key], v)
	}
	return result
}

// OrderGroupsByKeys aligns buckets to the requested key order. A key with
// no bucket yields a nil slice, which a one-to-many load treats as an
// empty relation rather than an error.
func OrderGroupsByKeys[K comparable, V any](keys []K, groups map[K][]V) [][]V {
	result := make([][]V, len(keys))
	for i, key := range keys {
		result[i] = groups[key]
	}
	return result
}

// CachePrimer seeds a loader cache. *Loader implements it, as do the
// external loader packages.
type CachePrimer[K comparable, V any] interface {
	Prime(key K, value V)
}

// PrimeMany primes a value per element, keyed through keyFn. Called after
// a bulk write so loads in the same request see the written rows.
func PrimeMany[K comparable, V any](cache CachePrimer[K, V], values []V, keyFn KeyFunc[K, V]) {
	for _, v := range values {
		cache.Prime(keyFn(v), v)
	}
}

// CacheClearer invalidates loader cache entries.
type CacheClearer[K comparable] interface {
	Clear(key K)
}

// ClearMany clears every given key.
func ClearMany[K comparable](cache CacheClearer[K], keys []K) {
	for _, key := range keys {
		cache.Clear(key)
	}
}

// ctxKey carries a request's loader bundle.
type ctxKey struct{}

// WithLoaders attaches a request's loaders to its context. T is the
// caller's own bundle type, typically a struct with one loader per
// relation.
func WithLoaders[T any](ctx context.Context, loaders T) context.Context {
	return context.WithValue(ctx, ctxKey{}, loaders)
}

// For returns the loaders attached by WithLoaders, or the zero T when the
// context carries none.
func For[T any](ctx context.Context) T {
	v, _ := ctx.Value(ctxKey{}).(T)
	return v
}
