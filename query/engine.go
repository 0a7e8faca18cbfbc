package query

import (
	"context"
	"slices"
)

// Row is one result record with its columns in selection order. Rows are
// two slice headers and copy cheaply.
type Row struct {
	columns []string
	values  []any
}

// NewRow pairs column names with their values. Both slices are retained,
// callers must not mutate them afterwards.
func NewRow(columns []string, values []any) Row {
	return Row{columns: columns, values: values}
}

// Columns returns the column names in selection order.
func (r Row) Columns() []string { return r.columns }

// Values returns the values in selection order.
func (r Row) Values() []any { return r.values }

// Len returns the number of columns.
func (r Row) Len() int { return len(r.columns) }

// Get returns the value of a column by name.
func (r Row) Get(column string) (any, bool) {
	i := slices.Index(r.columns, column)
	if i < 0 || i >= len(r.values) {
		return nil, false
	}
	return r.values[i], true
}

// Map returns the row as a column-to-value map.
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r.columns))
	for i, c := range r.columns {
		if i < len(r.values) {
			m[c] = r.values[i]
		}
	}
	return m
}

// LastInsertColumn names the single column engines return from ExecInsert
// when the backend has no way to return the written row. Its value is the
// backend-assigned id of the inserted row.
const LastInsertColumn = "last_insert_id"

// QueryEngine executes compiled SQL against one backend. Implementations
// live in driver subpackages; they are cheap to copy and safe for
// concurrent use, typically a thin wrapper around a connection pool.
type QueryEngine interface {
	// QueryMany runs a SELECT and returns every row.
	QueryMany(ctx context.Context, query string, args []any) ([]Row, error)

	// QueryOne runs a SELECT expected to match exactly one row and errors
	// when none does.
	QueryOne(ctx context.Context, query string, args []any) (Row, error)

	// QueryOptional runs a SELECT that may match no row. The second result
	// reports whether a row was found.
	QueryOptional(ctx context.Context, query string, args []any) (Row, bool, error)

	// ExecInsert runs an INSERT and returns the written row, using the
	// backend's returning mechanism or a follow-up read.
	ExecInsert(ctx context.Context, query string, args []any) (Row, error)

	// ExecUpdate runs an UPDATE and returns the touched rows when the
	// backend can report them.
	ExecUpdate(ctx context.Context, query string, args []any) ([]Row, error)

	// ExecDelete runs a DELETE and returns the number of rows removed.
	ExecDelete(ctx context.Context, query string, args []any) (int64, error)

	// ExecRaw runs any statement and returns the affected row count.
	ExecRaw(ctx context.Context, query string, args []any) (int64, error)

	// Count runs a SELECT COUNT query and returns the count.
	Count(ctx context.Context, query string, args []any) (int64, error)

	// RefreshMaterializedView re-materializes a view by name.
	RefreshMaterializedView(ctx context.Context, name string, concurrent bool) error
}

// TxEngine is a QueryEngine scoped to one open transaction.
type TxEngine interface {
	QueryEngine

	// Commit commits the transaction.
	Commit() error

	// Rollback aborts the transaction.
	Rollback() error
}

// TxBeginner is implemented by engines whose backend can scope work to a
// transaction. Multi-statement operations probe for it and fall back to
// autocommit execution when the engine does not provide one.
type TxBeginner interface {
	BeginTx(ctx context.Context) (TxEngine, error)
}
