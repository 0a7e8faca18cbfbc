package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/prax"
)

func TestNormalizeDSN(t *testing.T) {
	assert.Equal(t,
		"file:app.db?_pragma=busy_timeout(10000)&_pragma=foreign_keys(1)",
		normalizeDSN("file:app.db"))
	assert.Equal(t,
		"file:app.db?cache=shared&_pragma=busy_timeout(10000)&_pragma=foreign_keys(1)",
		normalizeDSN("file:app.db?cache=shared"))
	assert.Equal(t,
		"file:app.db?_pragma=busy_timeout(50)&_pragma=foreign_keys(1)",
		normalizeDSN("file:app.db?_pragma=busy_timeout(50)"))
	assert.Equal(t, ":memory:", normalizeDSN(":memory:"))
}

func TestEngine(t *testing.T) {
	e, err := Open("file:" + filepath.ToSlash(filepath.Join(t.TempDir(), "e2e.db")))
	require.NoError(t, err)
	defer e.Close()
	ctx := context.Background()

	_, err = e.ExecRaw(ctx, `CREATE TABLE users (id INTEGER PRIMARY KEY AUTOINCREMENT, email TEXT NOT NULL UNIQUE, name TEXT)`, nil)
	require.NoError(t, err)
	_, err = e.ExecRaw(ctx, `CREATE TABLE pets (id INTEGER PRIMARY KEY AUTOINCREMENT, owner_id INTEGER NOT NULL REFERENCES users (id))`, nil)
	require.NoError(t, err)

	t.Run("InsertReturning", func(t *testing.T) {
		row, err := e.ExecInsert(ctx, `INSERT INTO users (email, name) VALUES (?, ?) RETURNING *`, []any{"a8m@prax.dev", "a8m"})
		require.NoError(t, err)
		id, ok := row.Get("id")
		require.True(t, ok)
		assert.EqualValues(t, 1, id)
		email, _ := row.Get("email")
		assert.Equal(t, "a8m@prax.dev", email)
	})
	t.Run("UniqueViolation", func(t *testing.T) {
		_, err := e.ExecInsert(ctx, `INSERT INTO users (email, name) VALUES (?, ?) RETURNING *`, []any{"a8m@prax.dev", "dup"})
		require.Error(t, err)
		assert.True(t, prax.IsConstraintError(err))
		assert.Contains(t, err.Error(), "UNIQUE constraint failed")
	})
	t.Run("ForeignKeyEnforced", func(t *testing.T) {
		_, err := e.ExecInsert(ctx, `INSERT INTO pets (owner_id) VALUES (?) RETURNING *`, []any{int64(42)})
		require.Error(t, err)
		assert.True(t, prax.IsConstraintError(err))
	})
	t.Run("QueryOne", func(t *testing.T) {
		row, err := e.QueryOne(ctx, `SELECT name FROM users WHERE email = ?`, []any{"a8m@prax.dev"})
		require.NoError(t, err)
		name, _ := row.Get("name")
		assert.Equal(t, "a8m", name)

		_, err = e.QueryOne(ctx, `SELECT name FROM users WHERE id = ?`, []any{int64(999)})
		assert.True(t, prax.IsNotFound(err))
	})
	t.Run("UpdateReturning", func(t *testing.T) {
		rows, err := e.ExecUpdate(ctx, `UPDATE users SET name = ? WHERE email = ? RETURNING *`, []any{"ariel", "a8m@prax.dev"})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		name, _ := rows[0].Get("name")
		assert.Equal(t, "ariel", name)
	})
	t.Run("Count", func(t *testing.T) {
		n, err := e.Count(ctx, `SELECT COUNT(*) FROM users`, nil)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	})
	t.Run("TxRollback", func(t *testing.T) {
		tx, err := e.BeginTx(ctx)
		require.NoError(t, err)
		_, err = tx.ExecInsert(ctx, `INSERT INTO users (email) VALUES (?) RETURNING *`, []any{"tmp@prax.dev"})
		require.NoError(t, err)
		require.NoError(t, tx.Rollback())
		n, err := e.Count(ctx, `SELECT COUNT(*) FROM users`, nil)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	})
	t.Run("TxCommit", func(t *testing.T) {
		tx, err := e.BeginTx(ctx)
		require.NoError(t, err)
		_, err = tx.ExecInsert(ctx, `INSERT INTO users (email) VALUES (?) RETURNING *`, []any{"nati@prax.dev"})
		require.NoError(t, err)
		require.NoError(t, tx.Commit())
		n, err := e.Count(ctx, `SELECT COUNT(*) FROM users`, nil)
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)
	})
	t.Run("Delete", func(t *testing.T) {
		n, err := e.ExecDelete(ctx, `DELETE FROM users WHERE email = ?`, []any{"nati@prax.dev"})
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	})
	t.Run("Unsupported", func(t *testing.T) {
		err := e.RefreshMaterializedView(ctx, "order_totals", false)
		assert.True(t, prax.IsUnsupported(err))
	})
}

func TestMapError(t *testing.T) {
	assert.Nil(t, mapError(errors.New("plain")))
}
