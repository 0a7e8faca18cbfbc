// Package sqlengine implements the query engine contract over any
// dialect.Driver backed by database/sql. The dialect driver packages
// open the connection and hand it here, contributing only their error
// translation and dialect wiring.
package sqlengine

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/prax"
	"github.com/syssam/prax/dialect"
	"github.com/syssam/prax/dialect/sql"
	"github.com/syssam/prax/query"
)

// ErrorMapper translates a backend error into a prax error kind. A
// mapper returns nil for errors it does not recognize; those fall back
// to a generic DatabaseError wrap.
type ErrorMapper func(error) error

// Engine runs compiled SQL through a dialect.Driver and adapts the
// results to the query engine contract.
type Engine struct {
	drv    dialect.Driver
	ex     dialect.ExecQuerier
	d      string
	mapErr ErrorMapper
}

var (
	_ query.QueryEngine = (*Engine)(nil)
	_ query.TxBeginner  = (*Engine)(nil)
	_ query.TxEngine    = (*Tx)(nil)
)

// Option configures an Engine.
type Option func(*Engine)

// WithErrorMapper installs the driver's error translation.
func WithErrorMapper(f ErrorMapper) Option {
	return func(e *Engine) { e.mapErr = f }
}

// New wraps a driver. The engine is cheap to share and safe for
// concurrent use, matching the driver underneath it.
func New(drv dialect.Driver, opts ...Option) *Engine {
	e := &Engine{drv: drv, ex: drv, d: drv.Dialect()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Driver returns the wrapped driver, for wiring into the migration
// engine and the tenant pool manager.
func (e *Engine) Driver() dialect.Driver { return e.drv }

// Dialect returns the engine's dialect name.
func (e *Engine) Dialect() string { return e.d }

// Close closes the underlying driver.
func (e *Engine) Close() error { return e.drv.Close() }

func (e *Engine) wrap(err error) error {
	if err == nil {
		return nil
	}
	if e.mapErr != nil {
		if mapped := e.mapErr(err); mapped != nil {
			return mapped
		}
	}
	return prax.NewDatabaseError(e.d, err)
}

func (e *Engine) queryRows(ctx context.Context, q string, args []any) ([]query.Row, error) {
	var rows sql.Rows
	if err := e.ex.Query(ctx, q, args, &rows); err != nil {
		return nil, e.wrap(err)
	}
	defer rows.Close()
	out, err := scanRows(&rows)
	if err != nil {
		return nil, e.wrap(err)
	}
	return out, nil
}

func scanRows(rows *sql.Rows) ([]query.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []query.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		out = append(out, query.NewRow(cols, values))
	}
	return out, rows.Err()
}

// QueryMany implements query.QueryEngine.
func (e *Engine) QueryMany(ctx context.Context, q string, args []any) ([]query.Row, error) {
	return e.queryRows(ctx, q, args)
}

// QueryOne implements query.QueryEngine.
func (e *Engine) QueryOne(ctx context.Context, q string, args []any) (query.Row, error) {
	rows, err := e.queryRows(ctx, q, args)
	if err != nil {
		return query.Row{}, err
	}
	switch len(rows) {
	case 0:
		return query.Row{}, prax.NewNotFoundError("row")
	case 1:
		return rows[0], nil
	default:
		return query.Row{}, prax.NewNotSingularErrorWithCount("row", len(rows))
	}
}

// QueryOptional implements query.QueryEngine.
func (e *Engine) QueryOptional(ctx context.Context, q string, args []any) (query.Row, bool, error) {
	rows, err := e.queryRows(ctx, q, args)
	if err != nil {
		return query.Row{}, false, err
	}
	if len(rows) == 0 {
		return query.Row{}, false, nil
	}
	return rows[0], true, nil
}

// ExecInsert implements query.QueryEngine. On backends with a returning
// form the statement itself yields the written row; elsewhere the
// result's generated key comes back under query.LastInsertColumn.
func (e *Engine) ExecInsert(ctx context.Context, q string, args []any) (query.Row, error) {
	if returnsRows(e.d) {
		rows, err := e.queryRows(ctx, q, args)
		if err != nil {
			return query.Row{}, err
		}
		if len(rows) == 0 {
			return query.Row{}, nil
		}
		return rows[0], nil
	}
	var res stdsql.Result
	if err := e.ex.Exec(ctx, q, args, &res); err != nil {
		return query.Row{}, e.wrap(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return query.Row{}, nil
	}
	return query.NewRow([]string{query.LastInsertColumn}, []any{id}), nil
}

// ExecUpdate implements query.QueryEngine. Backends without an update
// returning form report no rows; callers read the row back themselves.
func (e *Engine) ExecUpdate(ctx context.Context, q string, args []any) ([]query.Row, error) {
	if returnsRows(e.d) {
		return e.queryRows(ctx, q, args)
	}
	if err := e.ex.Exec(ctx, q, args, nil); err != nil {
		return nil, e.wrap(err)
	}
	return nil, nil
}

// ExecDelete implements query.QueryEngine.
func (e *Engine) ExecDelete(ctx context.Context, q string, args []any) (int64, error) {
	return e.execAffected(ctx, q, args)
}

// ExecRaw implements query.QueryEngine.
func (e *Engine) ExecRaw(ctx context.Context, q string, args []any) (int64, error) {
	return e.execAffected(ctx, q, args)
}

func (e *Engine) execAffected(ctx context.Context, q string, args []any) (int64, error) {
	var res stdsql.Result
	if err := e.ex.Exec(ctx, q, args, &res); err != nil {
		return 0, e.wrap(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// Count implements query.QueryEngine.
func (e *Engine) Count(ctx context.Context, q string, args []any) (int64, error) {
	row, err := e.QueryOne(ctx, q, args)
	if err != nil {
		return 0, err
	}
	values := row.Values()
	if len(values) == 0 {
		return 0, fmt.Errorf("prax: count query returned no columns")
	}
	return toInt64(values[0])
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case []byte:
		return strconv.ParseInt(string(n), 10, 64)
	case string:
		return strconv.ParseInt(n, 10, 64)
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("prax: count value %T is not numeric", v)
	}
}

// RefreshMaterializedView implements query.QueryEngine. Only Postgres
// has a native refresh statement on this engine family.
func (e *Engine) RefreshMaterializedView(ctx context.Context, name string, concurrent bool) error {
	if e.d != dialect.Postgres {
		return prax.NewUnsupportedError(e.d, "materialized view refresh")
	}
	var sb strings.Builder
	sb.WriteString("REFRESH MATERIALIZED VIEW ")
	if concurrent {
		sb.WriteString("CONCURRENTLY ")
	}
	sb.WriteString(quoteQualified(e.d, name))
	if err := e.ex.Exec(ctx, sb.String(), []any{}, nil); err != nil {
		return e.wrap(err)
	}
	return nil
}

// BeginTx implements query.TxBeginner.
func (e *Engine) BeginTx(ctx context.Context) (query.TxEngine, error) {
	tx, err := e.drv.Tx(ctx)
	if err != nil {
		return nil, e.wrap(err)
	}
	return &Tx{Engine: Engine{drv: e.drv, ex: tx, d: e.d, mapErr: e.mapErr}, tx: tx}, nil
}

// Tx is an Engine scoped to one open transaction.
type Tx struct {
	Engine
	tx dialect.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit() error { return t.Engine.wrap(t.tx.Commit()) }

// Rollback aborts the transaction.
func (t *Tx) Rollback() error { return t.Engine.wrap(t.tx.Rollback()) }

// BeginTx on an open transaction fails; these backends do not nest.
func (t *Tx) BeginTx(context.Context) (query.TxEngine, error) {
	return nil, errors.New("prax: nested transactions are not supported")
}

// returnsRows reports whether inserts and updates on the dialect yield
// a result set (RETURNING, or OUTPUT on MSSQL).
func returnsRows(d string) bool {
	return dialect.SupportsReturning(d) || d == dialect.MSSQL
}

func quoteQualified(d, name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = dialect.Quote(d, p)
	}
	return strings.Join(parts, ".")
}
