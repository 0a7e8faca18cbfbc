package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// call is one recorded engine invocation.
type call struct {
	method string
	query  string
	args   []any
}

// fakeEngine records every statement and replays scripted results.
type fakeEngine struct {
	calls []call

	rows     []Row
	one      Row
	found    bool
	inserted Row
	updated  []Row
	deleted  int64
	affected int64
	count    int64
	err      error
}

func (f *fakeEngine) record(method, query string, args []any) {
	f.calls = append(f.calls, call{method: method, query: query, args: args})
}

func (f *fakeEngine) QueryMany(_ context.Context, query string, args []any) ([]Row, error) {
	f.record("QueryMany", query, args)
	return f.rows, f.err
}

func (f *fakeEngine) QueryOne(_ context.Context, query string, args []any) (Row, error) {
	f.record("QueryOne", query, args)
	return f.one, f.err
}

func (f *fakeEngine) QueryOptional(_ context.Context, query string, args []any) (Row, bool, error) {
	f.record("QueryOptional", query, args)
	return f.one, f.found, f.err
}

func (f *fakeEngine) ExecInsert(_ context.Context, query string, args []any) (Row, error) {
	f.record("ExecInsert", query, args)
	return f.inserted, f.err
}

func (f *fakeEngine) ExecUpdate(_ context.Context, query string, args []any) ([]Row, error) {
	f.record("ExecUpdate", query, args)
	return f.updated, f.err
}

func (f *fakeEngine) ExecDelete(_ context.Context, query string, args []any) (int64, error) {
	f.record("ExecDelete", query, args)
	return f.deleted, f.err
}

func (f *fakeEngine) ExecRaw(_ context.Context, query string, args []any) (int64, error) {
	f.record("ExecRaw", query, args)
	return f.affected, f.err
}

func (f *fakeEngine) Count(_ context.Context, query string, args []any) (int64, error) {
	f.record("Count", query, args)
	return f.count, f.err
}

func (f *fakeEngine) RefreshMaterializedView(_ context.Context, name string, _ bool) error {
	f.record("RefreshMaterializedView", name, nil)
	return f.err
}

func (f *fakeEngine) lastCall(t *testing.T) call {
	t.Helper()
	require.NotEmpty(t, f.calls)
	return f.calls[len(f.calls)-1]
}

// txEngine is a fakeEngine with transaction bookkeeping.
type txEngine struct {
	fakeEngine
	committed  bool
	rolledBack bool
}

func (f *txEngine) Commit() error {
	f.committed = true
	return nil
}

func (f *txEngine) Rollback() error {
	f.rolledBack = true
	return nil
}

// beginEngine hands multi-statement writes a scripted transaction.
type beginEngine struct {
	fakeEngine
	tx    *txEngine
	began bool
}

func (f *beginEngine) BeginTx(context.Context) (TxEngine, error) {
	f.began = true
	if f.tx == nil {
		f.tx = &txEngine{}
	}
	return f.tx, nil
}

func TestRow(t *testing.T) {
	row := NewRow([]string{"id", "email"}, []any{int64(7), "ada@example.com"})

	t.Run("Get", func(t *testing.T) {
		v, ok := row.Get("email")
		require.True(t, ok)
		assert.Equal(t, "ada@example.com", v)

		_, ok = row.Get("missing")
		assert.False(t, ok)
	})

	t.Run("Map", func(t *testing.T) {
		assert.Equal(t, map[string]any{"id": int64(7), "email": "ada@example.com"}, row.Map())
	})

	t.Run("Columns", func(t *testing.T) {
		assert.Equal(t, []string{"id", "email"}, row.Columns())
		assert.Equal(t, 2, row.Len())
	})

	t.Run("ZeroRow", func(t *testing.T) {
		var zero Row
		assert.Zero(t, zero.Len())
		_, ok := zero.Get("id")
		assert.False(t, ok)
	})
}
