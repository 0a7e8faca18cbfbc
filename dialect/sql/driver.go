package sql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/prax/dialect"
)

// Driver adapts a database/sql connection to the dialect.Driver interface
// the engines build on.
type Driver struct {
	Conn
	dialect string
}

// NewDriver wraps the connection under the dialect name.
func NewDriver(name string, c Conn) *Driver {
	return &Driver{dialect: name, Conn: c}
}

// Open opens a database/sql handle for the registered driver name and
// wraps it in a Driver.
func Open(name, source string) (*Driver, error) {
	db, err := sql.Open(name, source)
	if err != nil {
		return nil, err
	}
	return NewDriver(name, Conn{db, name}), nil
}

// OpenDB wraps an existing database/sql handle in a Driver.
func OpenDB(name string, db *sql.DB) *Driver {
	return NewDriver(name, Conn{db, name})
}

// DB returns the underlying *sql.DB.
func (d Driver) DB() *sql.DB {
	return d.ExecQuerier.(*sql.DB)
}

// Dialect returns the dialect name. Instrumented drivers register under
// suffixed names ("postgres+otel"), so the match is by prefix.
func (d Driver) Dialect() string {
	for _, name := range []string{dialect.Postgres, dialect.MySQL, dialect.SQLite, dialect.DuckDB, dialect.MSSQL} {
		if strings.HasPrefix(d.dialect, name) {
			return name
		}
	}
	return d.dialect
}

// Tx starts a transaction with default options.
func (d *Driver) Tx(ctx context.Context) (dialect.Tx, error) {
	return d.BeginTx(ctx, nil)
}

// BeginTx starts a transaction. Statements executed on the returned
// dialect.Tx run on the transaction's connection.
func (d *Driver) BeginTx(ctx context.Context, opts *TxOptions) (dialect.Tx, error) {
	tx, err := d.DB().BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{
		Conn: Conn{tx, d.dialect},
		Tx:   tx,
	}, nil
}

// Close closes the underlying database/sql handle.
func (d *Driver) Close() error { return d.DB().Close() }

// Tx implements dialect.Tx.
type Tx struct {
	Conn
	driver.Tx
}

// ExecQuerier is the part of database/sql shared by *sql.DB, *sql.Conn
// and *sql.Tx that the driver executes through.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Conn implements dialect.ExecQuerier over any ExecQuerier.
type Conn struct {
	ExecQuerier
	dialect string
}

// Exec executes a statement. v receives the result and must be nil or a
// *sql.Result. Session variables attached to ctx are bound first; see
// WithVar.
func (c Conn) Exec(ctx context.Context, query string, args, v any) (rerr error) {
	argv, ok := args.([]any)
	if !ok {
		return fmt.Errorf("dialect/sql: unexpected args type %T, want []any", args)
	}
	ex, release, err := c.applyVars(ctx)
	if err != nil {
		return fmt.Errorf("dialect/sql: exec: bind session vars: %w", err)
	}
	if release != nil {
		defer func() { rerr = errors.Join(rerr, release()) }()
	}
	switch v := v.(type) {
	case nil:
		if _, err := ex.ExecContext(ctx, query, argv...); err != nil {
			return fmt.Errorf("dialect/sql: exec: %w", err)
		}
	case *sql.Result:
		res, err := ex.ExecContext(ctx, query, argv...)
		if err != nil {
			return fmt.Errorf("dialect/sql: exec: %w", err)
		}
		*v = res
	default:
		return fmt.Errorf("dialect/sql: unexpected dest type %T, want *sql.Result", v)
	}
	return nil
}

// Query runs a query. v must be a *Rows; when session variables pinned a
// connection, closing the rows releases it.
func (c Conn) Query(ctx context.Context, query string, args, v any) error {
	vr, ok := v.(*Rows)
	if !ok {
		return fmt.Errorf("dialect/sql: unexpected dest type %T, want *sql.Rows", v)
	}
	argv, ok := args.([]any)
	if !ok {
		return fmt.Errorf("dialect/sql: unexpected args type %T, want []any", args)
	}
	ex, release, err := c.applyVars(ctx)
	if err != nil {
		return fmt.Errorf("dialect/sql: query: bind session vars: %w", err)
	}
	rows, err := ex.QueryContext(ctx, query, argv...)
	if err != nil {
		if release != nil {
			err = errors.Join(err, release())
		}
		return fmt.Errorf("dialect/sql: query: %w", err)
	}
	if release != nil {
		*vr = Rows{closerRows{rows, release}}
	} else {
		*vr = Rows{rows}
	}
	return nil
}

var _ dialect.Driver = (*Driver)(nil)

type (
	// Rows wraps sql.Rows so results can carry extra close behavior.
	Rows struct{ ColumnScanner }
	// Result is an alias to sql.Result.
	Result = sql.Result
	// NullBool is an alias to sql.NullBool.
	NullBool = sql.NullBool
	// NullInt64 is an alias to sql.NullInt64.
	NullInt64 = sql.NullInt64
	// NullString is an alias to sql.NullString.
	NullString = sql.NullString
	// NullFloat64 is an alias to sql.NullFloat64.
	NullFloat64 = sql.NullFloat64
	// NullTime is an alias to sql.NullTime.
	NullTime = sql.NullTime
	// TxOptions holds the options for DB.BeginTx.
	TxOptions = sql.TxOptions
)

// NullScanner wraps a sql.Scanner and records whether the scanned value
// was NULL, in which case the inner scanner is not called.
type NullScanner struct {
	S     sql.Scanner
	Valid bool // false when the scanned value was NULL
}

// Scan implements sql.Scanner.
func (n *NullScanner) Scan(value any) error {
	n.Valid = value != nil
	if n.Valid {
		return n.S.Scan(value)
	}
	return nil
}

// ColumnScanner is the subset of sql.Rows used to read query results.
type ColumnScanner interface {
	Close() error
	ColumnTypes() ([]*sql.ColumnType, error)
	Columns() ([]string, error)
	Err() error
	Next() bool
	NextResultSet() bool
	Scan(dest ...any) error
}
