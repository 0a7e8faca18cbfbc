package sql

import (
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/prax/dialect"
)

func TestWithVar(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		ctx := WithVar(context.Background(), "app.tenant_id", "acme")
		v, ok := VarFromContext(ctx, "app.tenant_id")
		require.True(t, ok)
		assert.Equal(t, "acme", v)
	})
	t.Run("Missing", func(t *testing.T) {
		_, ok := VarFromContext(context.Background(), "app.tenant_id")
		assert.False(t, ok)
	})
	t.Run("LastWriteWins", func(t *testing.T) {
		ctx := WithVar(context.Background(), "foo", "bar")
		ctx = WithVar(ctx, "foo", "baz")
		v, _ := VarFromContext(ctx, "foo")
		assert.Equal(t, "baz", v)
	})
	t.Run("SiblingContexts", func(t *testing.T) {
		parent := WithVar(context.Background(), "a", "1")
		left := WithVar(parent, "b", "left")
		right := WithVar(parent, "b", "right")
		v, _ := VarFromContext(left, "b")
		assert.Equal(t, "left", v, "siblings must not share variables")
		v, _ = VarFromContext(right, "b")
		assert.Equal(t, "right", v)
		_, ok := VarFromContext(parent, "b")
		assert.False(t, ok)
	})
}

func TestWithIntVar(t *testing.T) {
	ctx := WithIntVar(context.Background(), "app.shard", 42)
	v, ok := VarFromContext(ctx, "app.shard")
	require.True(t, ok)
	assert.Equal(t, "42", v)
}

func TestValidVarName(t *testing.T) {
	for _, name := range []string{"foo", "foo_bar", "_private", "f123", "app.tenant_id", "a.b.c"} {
		assert.True(t, validVarName(name), "name %q", name)
	}
	for _, name := range []string{
		"", "9foo", "foo-bar", "foo bar", "foo'bar", "foo;DROP TABLE users",
		"app.", ".tenant", "a..b", strings.Repeat("x", 129),
	} {
		assert.False(t, validVarName(name), "name %q", name)
	}
}

func TestVarStatements(t *testing.T) {
	acme := []sessionVar{{name: "app.tenant_id", value: "acme"}}

	t.Run("Postgres", func(t *testing.T) {
		set, reset, err := varStatements(dialect.Postgres, acme, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"SET app.tenant_id = 'acme'"}, set)
		assert.Equal(t, []string{"RESET app.tenant_id"}, reset)
	})
	t.Run("PostgresInTx", func(t *testing.T) {
		set, reset, err := varStatements(dialect.Postgres, acme, true)
		require.NoError(t, err)
		assert.Equal(t, []string{"SET LOCAL app.tenant_id = 'acme'"}, set)
		assert.Empty(t, reset, "SET LOCAL dies with the transaction")
	})
	t.Run("QuotedValue", func(t *testing.T) {
		set, _, err := varStatements(dialect.Postgres, []sessionVar{{name: "v", value: "o'brien"}}, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"SET v = 'o''brien'"}, set)
	})
	t.Run("MySQL", func(t *testing.T) {
		set, reset, err := varStatements(dialect.MySQL, acme, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"SET @app_tenant_id = 'acme'"}, set, "dots map to underscores")
		assert.Equal(t, []string{"SET @app_tenant_id = NULL"}, reset)
	})
	t.Run("MySQLBackslash", func(t *testing.T) {
		set, _, err := varStatements(dialect.MySQL, []sessionVar{{name: "v", value: `a\b`}}, false)
		require.NoError(t, err)
		assert.Equal(t, []string{`SET @v = 'a\\b'`}, set)
	})
	t.Run("MSSQL", func(t *testing.T) {
		set, reset, err := varStatements(dialect.MSSQL, acme, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"EXEC sp_set_session_context @key = N'app.tenant_id', @value = N'acme'"}, set)
		assert.Equal(t, []string{"EXEC sp_set_session_context @key = N'app.tenant_id', @value = NULL"}, reset)
	})
	t.Run("DuplicateResetsOnce", func(t *testing.T) {
		vars := []sessionVar{{name: "foo", value: "bar"}, {name: "foo", value: "baz"}}
		set, reset, err := varStatements(dialect.Postgres, vars, false)
		require.NoError(t, err)
		assert.Len(t, set, 2, "both writes execute, last wins on the session")
		assert.Equal(t, []string{"RESET foo"}, reset)
	})
	t.Run("Unsupported", func(t *testing.T) {
		for _, d := range []string{dialect.SQLite, dialect.DuckDB} {
			_, _, err := varStatements(d, acme, false)
			require.Error(t, err, "dialect %s", d)
			assert.Contains(t, err.Error(), "does not support session variables")
		}
	})
	t.Run("InvalidName", func(t *testing.T) {
		vars := []sessionVar{{name: "v", value: "ok"}, {name: "foo; DROP TABLE users", value: "x"}}
		set, reset, err := varStatements(dialect.Postgres, vars, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid session variable name")
		assert.Empty(t, set, "nothing renders when any name is invalid")
		assert.Empty(t, reset)
	})
}

func TestQueryBindsAndResets(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)
	drv := OpenDB(dialect.Postgres, db)

	mock.ExpectExec("SET app.tenant_id = 'acme'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("RESET app.tenant_id").WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := WithVar(context.Background(), "app.tenant_id", "acme")
	rows := &Rows{}
	require.NoError(t, drv.Query(ctx, "SELECT 1", []any{}, rows))
	// The reset runs when the rows release their pinned connection.
	require.NoError(t, rows.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecBindsAndResets(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)
	drv := OpenDB(dialect.Postgres, db)

	mock.ExpectExec("SET app.tenant_id = 'acme'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM sessions").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("RESET app.tenant_id").WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := WithVar(context.Background(), "app.tenant_id", "acme")
	require.NoError(t, drv.Exec(ctx, "DELETE FROM sessions", []any{}, nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTxBindsWithSetLocal(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.Postgres, db)

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL app.tenant_id = 'acme'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectCommit()

	tx, err := drv.Tx(context.Background())
	require.NoError(t, err)
	ctx := WithVar(context.Background(), "app.tenant_id", "acme")
	rows := &Rows{}
	require.NoError(t, tx.Query(ctx, "SELECT 1", []any{}, rows))
	require.NoError(t, rows.Close())
	// No reset statement: the binding is transaction local.
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVarsOnMySQL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)
	drv := OpenDB(dialect.MySQL, db)

	mock.ExpectExec("SET @app_tenant_id = 'acme'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("SET @app_tenant_id = NULL").WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := WithVar(context.Background(), "app.tenant_id", "acme")
	rows := &Rows{}
	require.NoError(t, drv.Query(ctx, "SELECT 1", []any{}, rows))
	require.NoError(t, rows.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVarsOnMSSQL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)
	drv := OpenDB(dialect.MSSQL, db)

	mock.ExpectExec("EXEC sp_set_session_context @key = N'app.tenant_id', @value = N'acme'").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("EXEC sp_set_session_context @key = N'app.tenant_id', @value = NULL").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := WithVar(context.Background(), "app.tenant_id", "acme")
	rows := &Rows{}
	require.NoError(t, drv.Query(ctx, "SELECT 1", []any{}, rows))
	require.NoError(t, rows.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVarsUnsupportedDialect(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.SQLite, db)

	ctx := WithVar(context.Background(), "app.tenant_id", "acme")
	err = drv.Query(ctx, "SELECT 1", []any{}, &Rows{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not support session variables")
}

func TestVarsInvalidName(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)
	drv := OpenDB(dialect.Postgres, db)

	ctx := WithVar(context.Background(), "foo; DROP TABLE users; --", "bar")
	err = drv.Query(ctx, "SELECT 1", []any{}, &Rows{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid session variable name")
}
