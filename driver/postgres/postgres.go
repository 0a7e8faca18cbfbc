// Package postgres provides the Postgres query engine. The primary
// engine runs on a pgx connection pool; OpenPQ offers a database/sql
// path through lib/pq for callers that need the standard pool.
package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"github.com/syssam/prax"
	"github.com/syssam/prax/dialect"
	praxsql "github.com/syssam/prax/dialect/sql"
	"github.com/syssam/prax/driver/sqlengine"
	"github.com/syssam/prax/query"
)

// querier is the query surface shared by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Engine runs compiled SQL on a pgx connection pool.
type Engine struct {
	session
	pool *pgxpool.Pool
}

// Open connects a pool for the given connection string.
func Open(ctx context.Context, dsn string) (*Engine, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, prax.NewDatabaseError(dialect.Postgres, err)
	}
	return NewEngine(pool), nil
}

// NewEngine wraps an existing pool. The pool remains owned by the
// caller until Close.
func NewEngine(pool *pgxpool.Pool) *Engine {
	return &Engine{session: session{q: pool}, pool: pool}
}

// Pool returns the underlying pgx pool.
func (e *Engine) Pool() *pgxpool.Pool { return e.pool }

// Dialect implements part of dialect.Driver.
func (e *Engine) Dialect() string { return dialect.Postgres }

// Close releases the pool.
func (e *Engine) Close() error {
	e.pool.Close()
	return nil
}

// BeginTx implements query.TxBeginner.
func (e *Engine) BeginTx(ctx context.Context) (query.TxEngine, error) {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return &Tx{session: session{q: tx}, tx: tx}, nil
}

// Tx is a session scoped to one open transaction.
type Tx struct {
	session
	tx pgx.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(context.Background()); err != nil {
		return mapError(err)
	}
	return nil
}

// Rollback aborts the transaction.
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(context.Background()); err != nil {
		return mapError(err)
	}
	return nil
}

// BeginTx opens a nested transaction backed by a savepoint.
func (t *Tx) BeginTx(ctx context.Context) (query.TxEngine, error) {
	nested, err := t.tx.Begin(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return &Tx{session: session{q: nested}, tx: nested}, nil
}

// session implements the query engine operations over a querier.
type session struct {
	q querier
}

var _ query.QueryEngine = session{}

func (s session) queryRows(ctx context.Context, q string, args []any) ([]query.Row, error) {
	rows, err := s.q.Query(ctx, q, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	fds := rows.FieldDescriptions()
	cols := make([]string, len(fds))
	for i, fd := range fds {
		cols[i] = fd.Name
	}
	var out []query.Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, mapError(err)
		}
		out = append(out, query.NewRow(cols, values))
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

// QueryMany implements query.QueryEngine.
func (s session) QueryMany(ctx context.Context, q string, args []any) ([]query.Row, error) {
	return s.queryRows(ctx, q, args)
}

// QueryOne implements query.QueryEngine.
func (s session) QueryOne(ctx context.Context, q string, args []any) (query.Row, error) {
	rows, err := s.queryRows(ctx, q, args)
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
func (s session) QueryOptional(ctx context.Context, q string, args []any) (query.Row, bool, error) {
	rows, err := s.queryRows(ctx, q, args)
	if err != nil {
		return query.Row{}, false, err
	}
	if len(rows) == 0 {
		return query.Row{}, false, nil
	}
	return rows[0], true, nil
}

// ExecInsert implements query.QueryEngine. Inserts carry RETURNING on
// this dialect, so the written row comes back from the statement; an
// insert suppressed by ON CONFLICT DO NOTHING yields the zero row.
func (s session) ExecInsert(ctx context.Context, q string, args []any) (query.Row, error) {
	rows, err := s.queryRows(ctx, q, args)
	if err != nil {
		return query.Row{}, err
	}
	if len(rows) == 0 {
		return query.Row{}, nil
	}
	return rows[0], nil
}

// ExecUpdate implements query.QueryEngine.
func (s session) ExecUpdate(ctx context.Context, q string, args []any) ([]query.Row, error) {
	return s.queryRows(ctx, q, args)
}

// ExecDelete implements query.QueryEngine.
func (s session) ExecDelete(ctx context.Context, q string, args []any) (int64, error) {
	return s.exec(ctx, q, args)
}

// ExecRaw implements query.QueryEngine.
func (s session) ExecRaw(ctx context.Context, q string, args []any) (int64, error) {
	return s.exec(ctx, q, args)
}

func (s session) exec(ctx context.Context, q string, args []any) (int64, error) {
	tag, err := s.q.Exec(ctx, q, args...)
	if err != nil {
		return 0, mapError(err)
	}
	return tag.RowsAffected(), nil
}

// Count implements query.QueryEngine.
func (s session) Count(ctx context.Context, q string, args []any) (int64, error) {
	row, err := s.QueryOne(ctx, q, args)
	if err != nil {
		return 0, err
	}
	values := row.Values()
	if len(values) == 0 {
		return 0, errors.New("prax: count query returned no columns")
	}
	n, ok := values[0].(int64)
	if !ok {
		return 0, errors.New("prax: count value is not an integer")
	}
	return n, nil
}

// RefreshMaterializedView implements query.QueryEngine.
func (s session) RefreshMaterializedView(ctx context.Context, name string, concurrent bool) error {
	if _, err := s.q.Exec(ctx, refreshSQL(name, concurrent)); err != nil {
		return mapError(err)
	}
	return nil
}

func refreshSQL(name string, concurrent bool) string {
	var sb strings.Builder
	sb.WriteString("REFRESH MATERIALIZED VIEW ")
	if concurrent {
		sb.WriteString("CONCURRENTLY ")
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if i > 0 {
			sb.WriteString(".")
		}
		sb.WriteString(dialect.Quote(dialect.Postgres, p))
	}
	return sb.String()
}

// Constraint-class SQLSTATE codes. Everything else surfaces as a
// DatabaseError carrying the pgconn error.
const (
	codeNotNull    = "23502"
	codeForeignKey = "23503"
	codeUnique     = "23505"
	codeCheck      = "23514"
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeNotNull, codeForeignKey, codeUnique, codeCheck:
			return prax.NewConstraintError(constraintName(pgErr.ConstraintName, pgErr.ColumnName), err)
		}
	}
	return prax.NewDatabaseError(dialect.Postgres, err)
}

func constraintName(constraint, column string) string {
	if constraint != "" {
		return constraint
	}
	if column != "" {
		return column
	}
	return "constraint"
}

// OpenPQ opens a database/sql engine through lib/pq for callers that
// need the standard library pool, with the same error translation as
// the pgx engine.
func OpenPQ(dsn string) (*sqlengine.Engine, error) {
	drv, err := praxsql.Open(dialect.Postgres, dsn)
	if err != nil {
		return nil, prax.NewDatabaseError(dialect.Postgres, err)
	}
	return sqlengine.New(drv, sqlengine.WithErrorMapper(mapPQError)), nil
}

func mapPQError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}
	switch string(pqErr.Code) {
	case codeNotNull, codeForeignKey, codeUnique, codeCheck:
		return prax.NewConstraintError(constraintName(pqErr.Constraint, pqErr.Column), err)
	}
	return nil
}
