package migrate

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/syssam/prax/dialect"
	"github.com/syssam/prax/dialect/sql"
)

func escape(query string) string {
	rows := strings.Split(query, "\n")
	for i := range rows {
		rows[i] = strings.TrimPrefix(rows[i], " ")
	}
	query = strings.Join(rows, " ")
	return strings.TrimSpace(regexp.QuoteMeta(query)) + "$"
}

func TestSQLHistoryInitialize(t *testing.T) {
	t.Run("Postgres", func(t *testing.T) {
		db, mk, err := sqlmock.New()
		require.NoError(t, err)
		mk.ExpectExec(escape(`CREATE TABLE IF NOT EXISTS "_prax_migrations" ("id" VARCHAR(255) PRIMARY KEY, "checksum" VARCHAR(64) NOT NULL, "applied_at" BIGINT NOT NULL, "duration_ms" BIGINT NOT NULL DEFAULT 0)`)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		h := NewSQLHistory(sql.OpenDB(dialect.Postgres, db))
		require.NoError(t, h.Initialize(context.Background()))
		require.NoError(t, mk.ExpectationsWereMet())
	})
	t.Run("SQLite", func(t *testing.T) {
		db, mk, err := sqlmock.New()
		require.NoError(t, err)
		mk.ExpectExec(escape(`CREATE TABLE IF NOT EXISTS "_prax_migrations" ("id" TEXT PRIMARY KEY, "checksum" VARCHAR(64) NOT NULL, "applied_at" BIGINT NOT NULL, "duration_ms" BIGINT NOT NULL DEFAULT 0)`)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		h := NewSQLHistory(sql.OpenDB(dialect.SQLite, db))
		require.NoError(t, h.Initialize(context.Background()))
		require.NoError(t, mk.ExpectationsWereMet())
	})
	t.Run("MSSQL", func(t *testing.T) {
		db, mk, err := sqlmock.New()
		require.NoError(t, err)
		mk.ExpectExec(escape(`IF OBJECT_ID(N'_prax_migrations', N'U') IS NULL CREATE TABLE [_prax_migrations] ([id] NVARCHAR(255) PRIMARY KEY, [checksum] VARCHAR(64) NOT NULL, [applied_at] BIGINT NOT NULL, [duration_ms] BIGINT NOT NULL DEFAULT 0)`)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		h := NewSQLHistory(sql.OpenDB(dialect.MSSQL, db))
		require.NoError(t, h.Initialize(context.Background()))
		require.NoError(t, mk.ExpectationsWereMet())
	})
	t.Run("CustomTable", func(t *testing.T) {
		db, mk, err := sqlmock.New()
		require.NoError(t, err)
		mk.ExpectExec(escape(`CREATE TABLE IF NOT EXISTS "schema_history" ("id" VARCHAR(255) PRIMARY KEY, "checksum" VARCHAR(64) NOT NULL, "applied_at" BIGINT NOT NULL, "duration_ms" BIGINT NOT NULL DEFAULT 0)`)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		h := NewSQLHistory(sql.OpenDB(dialect.Postgres, db), WithTable("schema_history"))
		require.NoError(t, h.Initialize(context.Background()))
		require.NoError(t, mk.ExpectationsWereMet())
	})
}

func TestSQLHistoryApplied(t *testing.T) {
	db, mk, err := sqlmock.New()
	require.NoError(t, err)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	mk.ExpectQuery(escape(`SELECT "id", "checksum", "applied_at", "duration_ms" FROM "_prax_migrations" ORDER BY "id"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "checksum", "applied_at", "duration_ms"}).
			AddRow("1714000000000_init", "aaaa", at.UnixMilli(), 12).
			AddRow("1714000100000_add_users", "bbbb", at.Add(time.Minute).UnixMilli(), 3))
	h := NewSQLHistory(sql.OpenDB(dialect.Postgres, db))
	applied, err := h.Applied(context.Background())
	require.NoError(t, err)
	require.Len(t, applied, 2)
	require.Equal(t, "1714000000000_init", applied[0].ID)
	require.Equal(t, "aaaa", applied[0].Checksum)
	require.True(t, applied[0].AppliedAt.Equal(at))
	require.Equal(t, int64(12), applied[0].DurationMs)
	require.Equal(t, "1714000100000_add_users", applied[1].ID)
	require.NoError(t, mk.ExpectationsWereMet())
}

func TestSQLHistoryLastApplied(t *testing.T) {
	db, mk, err := sqlmock.New()
	require.NoError(t, err)
	mk.ExpectQuery(escape(`SELECT "id", "checksum", "applied_at", "duration_ms" FROM "_prax_migrations" ORDER BY "id"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "checksum", "applied_at", "duration_ms"}))
	h := NewSQLHistory(sql.OpenDB(dialect.Postgres, db))
	last, err := h.LastApplied(context.Background())
	require.NoError(t, err)
	require.Nil(t, last)

	mk.ExpectQuery(escape(`SELECT "id", "checksum", "applied_at", "duration_ms" FROM "_prax_migrations" ORDER BY "id"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "checksum", "applied_at", "duration_ms"}).
			AddRow("1714000000000_init", "aaaa", time.Now().UnixMilli(), 12).
			AddRow("1714000100000_add_users", "bbbb", time.Now().UnixMilli(), 3))
	last, err = h.LastApplied(context.Background())
	require.NoError(t, err)
	require.NotNil(t, last)
	require.Equal(t, "1714000100000_add_users", last.ID)
	require.NoError(t, mk.ExpectationsWereMet())
}

func TestSQLHistoryRecord(t *testing.T) {
	db, mk, err := sqlmock.New()
	require.NoError(t, err)
	mk.ExpectExec(escape(`INSERT INTO "_prax_migrations" ("id", "checksum", "applied_at", "duration_ms") VALUES ($1, $2, $3, $4)`)).
		WithArgs("1714000000000_init", "aaaa", sqlmock.AnyArg(), int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mk.ExpectExec(escape(`DELETE FROM "_prax_migrations" WHERE "id" = $1`)).
		WithArgs("1714000000000_init").
		WillReturnResult(sqlmock.NewResult(0, 1))
	h := NewSQLHistory(sql.OpenDB(dialect.Postgres, db))
	require.NoError(t, h.RecordApplied(context.Background(), "1714000000000_init", "aaaa", 42))
	require.NoError(t, h.RecordRollback(context.Background(), "1714000000000_init"))
	require.NoError(t, mk.ExpectationsWereMet())
}

func TestSQLHistoryLockPostgres(t *testing.T) {
	db, mk, err := sqlmock.New()
	require.NoError(t, err)
	mk.ExpectExec(escape("SELECT pg_advisory_lock($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mk.ExpectExec(escape("SELECT pg_advisory_unlock($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	h := NewSQLHistory(sql.OpenDB(dialect.Postgres, db))
	unlock, err := h.Lock(context.Background())
	require.NoError(t, err)
	require.NoError(t, unlock())
	require.NoError(t, mk.ExpectationsWereMet())
}

func TestSQLHistoryLockMySQL(t *testing.T) {
	t.Run("Granted", func(t *testing.T) {
		db, mk, err := sqlmock.New()
		require.NoError(t, err)
		mk.ExpectQuery(escape("SELECT GET_LOCK(?, -1)")).
			WithArgs("prax:_prax_migrations").
			WillReturnRows(sqlmock.NewRows([]string{"GET_LOCK"}).AddRow(1))
		mk.ExpectExec(escape("SELECT RELEASE_LOCK(?)")).
			WithArgs("prax:_prax_migrations").
			WillReturnResult(sqlmock.NewResult(0, 0))
		h := NewSQLHistory(sql.OpenDB(dialect.MySQL, db))
		unlock, err := h.Lock(context.Background())
		require.NoError(t, err)
		require.NoError(t, unlock())
		require.NoError(t, mk.ExpectationsWereMet())
	})
	t.Run("Held", func(t *testing.T) {
		db, mk, err := sqlmock.New()
		require.NoError(t, err)
		mk.ExpectQuery(escape("SELECT GET_LOCK(?, -1)")).
			WithArgs("prax:_prax_migrations").
			WillReturnRows(sqlmock.NewRows([]string{"GET_LOCK"}).AddRow(0))
		h := NewSQLHistory(sql.OpenDB(dialect.MySQL, db))
		_, err = h.Lock(context.Background())
		require.ErrorIs(t, err, ErrLocked)
		require.NoError(t, mk.ExpectationsWereMet())
	})
}

func TestSQLHistoryLockMSSQL(t *testing.T) {
	t.Run("Granted", func(t *testing.T) {
		db, mk, err := sqlmock.New()
		require.NoError(t, err)
		mk.ExpectQuery("DECLARE @r INT; EXEC @r = sp_getapplock .+").
			WithArgs("prax:_prax_migrations").
			WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow(0))
		mk.ExpectExec(escape("EXEC sp_releaseapplock @Resource = ?, @LockOwner = 'Session'")).
			WithArgs("prax:_prax_migrations").
			WillReturnResult(sqlmock.NewResult(0, 0))
		h := NewSQLHistory(sql.OpenDB(dialect.MSSQL, db))
		unlock, err := h.Lock(context.Background())
		require.NoError(t, err)
		require.NoError(t, unlock())
		require.NoError(t, mk.ExpectationsWereMet())
	})
	t.Run("Held", func(t *testing.T) {
		db, mk, err := sqlmock.New()
		require.NoError(t, err)
		mk.ExpectQuery("DECLARE @r INT; EXEC @r = sp_getapplock .+").
			WithArgs("prax:_prax_migrations").
			WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow(-1))
		h := NewSQLHistory(sql.OpenDB(dialect.MSSQL, db))
		_, err = h.Lock(context.Background())
		require.ErrorIs(t, err, ErrLocked)
		require.NoError(t, mk.ExpectationsWereMet())
	})
}

func TestSQLHistoryLockSQLite(t *testing.T) {
	db, mk, err := sqlmock.New()
	require.NoError(t, err)
	mk.ExpectExec(escape(`CREATE TABLE IF NOT EXISTS "_prax_migrations_lock" ("id" INTEGER PRIMARY KEY CHECK ("id" = 1), "locked_at" BIGINT)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mk.ExpectExec(escape(`INSERT OR IGNORE INTO "_prax_migrations_lock" ("id", "locked_at") VALUES (1, 0)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mk.ExpectBegin()
	mk.ExpectExec(escape(`UPDATE "_prax_migrations_lock" SET "locked_at" = ? WHERE "id" = 1`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mk.ExpectCommit()
	h := NewSQLHistory(sql.OpenDB(dialect.SQLite, db))
	unlock, err := h.Lock(context.Background())
	require.NoError(t, err)
	require.NoError(t, unlock())
	require.NoError(t, mk.ExpectationsWereMet())
}
