// Package duckdb provides the DuckDB query engine. DuckDB speaks the
// Postgres placeholder style but runs in process, which makes it a
// fast target for analytical models and migration shadow databases.
package duckdb

import (
	"net/url"
	"strconv"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/syssam/prax"
	"github.com/syssam/prax/dialect"
	praxsql "github.com/syssam/prax/dialect/sql"
	"github.com/syssam/prax/driver/sqlengine"
)

// Option sets a DuckDB config parameter on the connection string.
type Option func(url.Values)

// WithReadOnly opens the database in read-only mode.
func WithReadOnly() Option {
	return func(v url.Values) { v.Set("access_mode", "read_only") }
}

// WithThreads caps the number of threads DuckDB uses per query.
func WithThreads(n int) Option {
	return func(v url.Values) { v.Set("threads", strconv.Itoa(n)) }
}

// WithMemoryLimit caps memory usage, e.g. "2GB".
func WithMemoryLimit(limit string) Option {
	return func(v url.Values) { v.Set("memory_limit", limit) }
}

// Open opens an engine for the given database path. An empty path
// opens an in-memory database. DuckDB has no structured error codes,
// so failures surface as DatabaseError.
func Open(path string, opts ...Option) (*sqlengine.Engine, error) {
	drv, err := praxsql.Open(dialect.DuckDB, dsn(path, opts...))
	if err != nil {
		return nil, prax.NewDatabaseError(dialect.DuckDB, err)
	}
	return sqlengine.New(drv), nil
}

func dsn(path string, opts ...Option) string {
	v := url.Values{}
	for _, opt := range opts {
		opt(v)
	}
	if len(v) == 0 {
		return path
	}
	return path + "?" + v.Encode()
}
