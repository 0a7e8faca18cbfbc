// Package dialect provides database dialect abstraction for Prax.
//
// This package defines the interfaces and types used for database-specific
// operations, allowing Prax to target multiple backends from one schema and
// one query layer.
//
// # Supported Dialects
//
// The following dialects are supported:
//
//   - Postgres: PostgreSQL database
//   - MySQL: MySQL/MariaDB database
//   - SQLite: SQLite database
//   - DuckDB: DuckDB database
//   - MSSQL: Microsoft SQL Server
//   - Mongo: MongoDB (document backend, SQL emitted as aggregation pipelines)
//
// Each dialect is identified by a constant string:
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//	dialect.DuckDB   = "duckdb"
//	dialect.MSSQL    = "mssql"
//	dialect.Mongo    = "mongo"
//
// # Driver Interface
//
// The package defines the Driver interface for database operations:
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// The Tx interface extends ExecQuerier with Commit and Rollback, and the
// ExecQuerier interface is the subset implemented by both Driver and Tx.
//
// # Placeholders and Quoting
//
// SQL text differs across backends in two mechanical ways that every layer
// above needs: parameter placeholders and identifier quoting. Both have a
// single entry point here:
//
//	dialect.Placeholder(dialect.Postgres, 1) // "$1"
//	dialect.Placeholder(dialect.MySQL, 1)    // "?"
//	dialect.Quote(dialect.MySQL, "group")    // "`group`"
//	dialect.Quote(dialect.MSSQL, "group")    // "[group]"
//
// # Column Types
//
// ColumnType maps a schema field type to the column type of a dialect,
// including array and JSON fallbacks for list fields:
//
//	dialect.ColumnType(dialect.Postgres, t, m) // "TEXT[]", "JSONB", ...
//
// # Sub-packages
//
//   - dialect/sql: SQL fragment builders, template cache and database/sql
//     driver implementation
package dialect
