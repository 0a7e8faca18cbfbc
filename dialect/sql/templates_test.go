package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplatesRegisterLookup(t *testing.T) {
	cache := NewTemplates(8)
	tpl := cache.Register("user.find_by_id", `SELECT * FROM "users" WHERE "id" = $1`, 1)
	assert.Equal(t, "user.find_by_id", tpl.Name)
	assert.Equal(t, 1, tpl.Arity)
	assert.Equal(t, HashSQL(tpl.SQL), tpl.Hash)

	got, ok := cache.Lookup("user.find_by_id")
	require.True(t, ok)
	assert.Equal(t, tpl, got)

	got, ok = cache.LookupHash(tpl.Hash)
	require.True(t, ok)
	assert.Equal(t, tpl, got)

	_, ok = cache.Lookup("user.missing")
	assert.False(t, ok)

	stats := cache.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Len)
	assert.Equal(t, 8, stats.Capacity)
}

func TestTemplatesEvictsLRU(t *testing.T) {
	cache := NewTemplates(2)
	cache.Register("a", "SELECT a", 0)
	cache.Register("b", "SELECT b", 0)

	// Touch a so b becomes the least recently used.
	_, ok := cache.Lookup("a")
	require.True(t, ok)

	cache.Register("c", "SELECT c", 0)
	assert.Equal(t, 2, cache.Len())

	_, ok = cache.Lookup("b")
	assert.False(t, ok)
	_, ok = cache.Lookup("a")
	assert.True(t, ok)
	_, ok = cache.Lookup("c")
	assert.True(t, ok)
	assert.Equal(t, int64(1), cache.Stats().Evictions)

	// The evicted template's hash mapping is gone too.
	_, ok = cache.LookupHash(HashSQL("SELECT b"))
	assert.False(t, ok)
}

func TestTemplatesReplaceUpdatesHash(t *testing.T) {
	cache := NewTemplates(4)
	old := cache.Register("q", "SELECT 1", 0)
	fresh := cache.Register("q", "SELECT 2", 0)
	assert.NotEqual(t, old.Hash, fresh.Hash)
	assert.Equal(t, 1, cache.Len())

	_, ok := cache.LookupHash(old.Hash)
	assert.False(t, ok)
	got, ok := cache.LookupHash(fresh.Hash)
	require.True(t, ok)
	assert.Equal(t, "SELECT 2", got.SQL)
}

func TestTemplatesDefaultCapacity(t *testing.T) {
	cache := NewTemplates(0)
	assert.Equal(t, DefaultTemplateCapacity, cache.Stats().Capacity)
}

func TestHashSQLStable(t *testing.T) {
	assert.Equal(t, HashSQL("SELECT 1"), HashSQL("SELECT 1"))
	assert.NotEqual(t, HashSQL("SELECT 1"), HashSQL("SELECT 2"))
}
