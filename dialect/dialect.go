package dialect

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strconv"
)

// Dialect names. DuckDB shares the Postgres wire conventions; Mongo is a
// document store served by its own adapter and has no SQL surface.
const (
	Postgres = "postgres"
	MySQL    = "mysql"
	SQLite   = "sqlite"
	DuckDB   = "duckdb"
	MSSQL    = "mssql"
	Mongo    = "mongo"
)

// ExecQuerier wraps the two basic Exec and Query methods.
type ExecQuerier interface {
	// Exec executes a query that does not return records. For example, in SQL, INSERT or UPDATE.
	// It scans the result into the pointer v. For SQL drivers, it is dialect/sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows, typically a SELECT in SQL.
	// It scans the result into the pointer v. For SQL drivers, it is *dialect/sql.Rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all database operations.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	// The provided context is used until the transaction is committed or rolled back.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps transactional operations.
type Tx interface {
	ExecQuerier
	driver.Tx
}

type nopTx struct {
	Driver
}

func (nopTx) Commit() error   { return nil }
func (nopTx) Rollback() error { return nil }

// NopTx returns a Tx with a no-op Commit / Rollback.
func NopTx(d Driver) Tx {
	return nopTx{d}
}

// Placeholder returns the parameter placeholder for position i (1-based) in
// the given dialect. Postgres and DuckDB use numbered placeholders; MySQL,
// SQLite and MSSQL use positional question marks.
func Placeholder(dialect string, i int) string {
	switch dialect {
	case Postgres, DuckDB:
		return "$" + strconv.Itoa(i)
	default:
		return "?"
	}
}

// Quote quotes an identifier for the given dialect. This is the single entry
// point for identifier quoting across the builder, the migration engine and
// the policy generators.
func Quote(dialect, ident string) string {
	switch dialect {
	case MySQL:
		return "`" + ident + "`"
	case MSSQL:
		return "[" + ident + "]"
	default:
		return `"` + ident + `"`
	}
}

// SupportsReturning reports whether the dialect implements INSERT/UPDATE/
// DELETE ... RETURNING.
func SupportsReturning(dialect string) bool {
	switch dialect {
	case Postgres, DuckDB, SQLite:
		return true
	default:
		return false
	}
}

// SupportsArrays reports whether the dialect has a native array column type.
// Where unsupported, list fields are stored as JSON.
func SupportsArrays(dialect string) bool {
	switch dialect {
	case Postgres, DuckDB:
		return true
	default:
		return false
	}
}

// SupportsTransactionalDDL reports whether DDL statements participate in
// transactions and roll back cleanly. Migration apply wraps files in a
// transaction only when this holds.
func SupportsTransactionalDDL(dialect string) bool {
	switch dialect {
	case Postgres, SQLite:
		return true
	default:
		return false
	}
}

// SupportsAdvisoryLocks reports whether the dialect exposes server-side
// advisory locking used by the migration history.
func SupportsAdvisoryLocks(dialect string) bool {
	switch dialect {
	case Postgres, MySQL, MSSQL:
		return true
	default:
		return false
	}
}

// Validate reports an error for unknown dialect names.
func Validate(dialect string) error {
	switch dialect {
	case Postgres, MySQL, SQLite, DuckDB, MSSQL, Mongo:
		return nil
	default:
		return fmt.Errorf("prax: unsupported dialect %q", dialect)
	}
}
