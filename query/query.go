package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/syssam/prax"
	"github.com/syssam/prax/dialect"
	"github.com/syssam/prax/dialect/sql"
	"github.com/syssam/prax/filter"
)

// Model binds one model's builders to an engine and a dialect. Handles are
// cheap values; generated clients hold one per model and dynamic callers
// construct them from FromSchema descriptors.
type Model struct {
	info    *ModelInfo
	engine  QueryEngine
	dialect string
	related map[string]*ModelInfo
}

// NewModel returns a handle for info executing on engine in the given
// dialect.
func NewModel(info *ModelInfo, engine QueryEngine, d string) *Model {
	return &Model{info: info, engine: engine, dialect: d}
}

// Info returns the model descriptor.
func (m *Model) Info() *ModelInfo { return m.info }

// Dialect returns the SQL dialect the handle compiles for.
func (m *Model) Dialect() string { return m.dialect }

// FindMany starts a listing query.
func (m *Model) FindMany() *FindManyQuery {
	return &FindManyQuery{read: read{model: m, op: "find_many"}}
}

// FindFirst starts a query returning the first match, if any.
func (m *Model) FindFirst() *FindFirstQuery {
	return &FindFirstQuery{read: read{model: m, op: "find_first"}}
}

// FindUnique starts a query addressing exactly one row through a unique
// column set.
func (m *Model) FindUnique() *FindUniqueQuery {
	return &FindUniqueQuery{read: read{model: m, op: "find_unique"}}
}

// Count starts a counting query.
func (m *Model) Count() *CountQuery {
	return &CountQuery{read: read{model: m, op: "count"}}
}

// Aggregate starts an aggregation query.
func (m *Model) Aggregate() *AggregateQuery {
	return &AggregateQuery{read: read{model: m, op: "aggregate"}}
}

// read is the accumulation shared by every read-side builder.
type read struct {
	model    *Model
	op       string
	where    *filter.Filter
	orders   []Order
	skip     *int
	take     *int
	cursor   *Cursor
	columns  []string
	distinct bool
	errs     []error
}

func (r *read) addWhere(f *filter.Filter) {
	r.where = filter.And(r.where, f)
}

func (r *read) addOrder(field string, dir Direction, nulls []NullsOrder) {
	o := Order{Field: field, Direction: dir}
	if len(nulls) > 0 {
		o.Nulls = nulls[0]
	}
	r.orders = append(r.orders, o)
}

func (r *read) addErr(err error) {
	r.errs = append(r.errs, err)
}

// checkFields walks the filter and flags columns the model does not have.
// Qualified references pass through, they address joined or aliased tables
// the descriptor cannot see.
func (r *read) checkFields(f *filter.Filter) {
	if f.IsNone() {
		return
	}
	if f.Field != "" && !strings.ContainsRune(f.Field, '.') && !r.model.info.Column(f.Field) {
		r.addErr(fmt.Errorf("unknown column %q on model %s", f.Field, r.model.info.Name))
	}
	for _, c := range f.Children {
		r.checkFields(c)
	}
}

// selector compiles the accumulated state into a SELECT. The filter renders
// first so its placeholders start at one; order, limit and offset carry no
// arguments.
func (r *read) selector(columns []string) (*sql.Selector, error) {
	if len(r.errs) > 0 {
		return nil, prax.NewAggregateError(r.errs...)
	}
	where := r.where
	orders := r.orders
	if r.cursor != nil {
		where = filter.And(where, r.cursor.clause())
		orders = append(r.cursor.orders(r.model.info.PrimaryKey), orders...)
	}
	r.checkFields(where)
	if len(r.errs) > 0 {
		return nil, prax.NewAggregateError(r.errs...)
	}

	sel := sql.Dialect(r.model.dialect).
		Select(columns...).
		From(sql.Table(r.model.info.Table))
	if r.distinct {
		sel.Distinct()
	}
	if !where.IsNone() {
		cond, vals, _ := where.ToSQL(r.model.dialect, 1)
		sel.Where(sql.ExprP(cond, filter.Args(vals)...))
	}
	for _, o := range orders {
		sel.OrderBy(o.terms(r.model.dialect)...)
	}
	if r.take != nil {
		sel.Limit(*r.take)
	}
	if r.skip != nil {
		sel.Offset(*r.skip)
	}
	return sel, nil
}

func (r *read) compile(columns []string) (string, []any, error) {
	sel, err := r.selector(columns)
	if err != nil {
		return "", nil, err
	}
	q, args := sel.Query()
	if err := sel.Err(); err != nil {
		return "", nil, err
	}
	return q, args, nil
}

func (r *read) queryErr(err error) error {
	return prax.NewQueryError(r.model.info.Name, r.op, err)
}

// FindManyQuery lists every row matching the accumulated filter.
type FindManyQuery struct {
	read read
}

// Where narrows the result. Repeated calls combine with AND.
func (q *FindManyQuery) Where(f *filter.Filter) *FindManyQuery {
	q.read.addWhere(f)
	return q
}

// OrderBy appends a sort key.
func (q *FindManyQuery) OrderBy(field string, dir Direction, nulls ...NullsOrder) *FindManyQuery {
	q.read.addOrder(field, dir, nulls)
	return q
}

// Skip drops the first n matches.
func (q *FindManyQuery) Skip(n int) *FindManyQuery {
	q.read.skip = &n
	return q
}

// Take caps the result at n rows.
func (q *FindManyQuery) Take(n int) *FindManyQuery {
	q.read.take = &n
	return q
}

// Cursor resumes the listing relative to c. The cursor's sort keys take
// precedence over OrderBy keys.
func (q *FindManyQuery) Cursor(c Cursor) *FindManyQuery {
	q.read.cursor = &c
	return q
}

// Select narrows the projection to the given columns. Without it the query
// selects every column as *.
func (q *FindManyQuery) Select(columns ...string) *FindManyQuery {
	q.read.columns = append(q.read.columns, columns...)
	return q
}

// Distinct drops duplicate result rows.
func (q *FindManyQuery) Distinct() *FindManyQuery {
	q.read.distinct = true
	return q
}

// Exec compiles and runs the query.
func (q *FindManyQuery) Exec(ctx context.Context) ([]Row, error) {
	stmt, args, err := q.read.compile(q.read.columns)
	if err != nil {
		return nil, q.read.queryErr(err)
	}
	rows, err := q.read.model.engine.QueryMany(ctx, stmt, args)
	if err != nil {
		return nil, q.read.queryErr(err)
	}
	return rows, nil
}

// FindFirstQuery returns the first row matching the filter, or reports
// absence without error.
type FindFirstQuery struct {
	read read
}

// Where narrows the result. Repeated calls combine with AND.
func (q *FindFirstQuery) Where(f *filter.Filter) *FindFirstQuery {
	q.read.addWhere(f)
	return q
}

// OrderBy appends a sort key deciding which match is first.
func (q *FindFirstQuery) OrderBy(field string, dir Direction, nulls ...NullsOrder) *FindFirstQuery {
	q.read.addOrder(field, dir, nulls)
	return q
}

// Skip drops the first n matches before picking.
func (q *FindFirstQuery) Skip(n int) *FindFirstQuery {
	q.read.skip = &n
	return q
}

// Select narrows the projection to the given columns.
func (q *FindFirstQuery) Select(columns ...string) *FindFirstQuery {
	q.read.columns = append(q.read.columns, columns...)
	return q
}

// One runs the query. The bool result reports whether a row matched.
func (q *FindFirstQuery) One(ctx context.Context) (Row, bool, error) {
	one := 1
	q.read.take = &one
	stmt, args, err := q.read.compile(q.read.columns)
	if err != nil {
		return Row{}, false, q.read.queryErr(err)
	}
	row, ok, err := q.read.model.engine.QueryOptional(ctx, stmt, args)
	if err != nil {
		return Row{}, false, q.read.queryErr(err)
	}
	return row, ok, nil
}

// FindUniqueQuery addresses exactly one row through a unique column set.
// Compilation fails unless the filter is a conjunction of equalities
// covering the primary key or a unique set, and execution reports a
// not-found error when the row does not exist.
type FindUniqueQuery struct {
	read read
}

// Where sets the unique filter. Repeated calls combine with AND.
func (q *FindUniqueQuery) Where(f *filter.Filter) *FindUniqueQuery {
	q.read.addWhere(f)
	return q
}

// Select narrows the projection to the given columns.
func (q *FindUniqueQuery) Select(columns ...string) *FindUniqueQuery {
	q.read.columns = append(q.read.columns, columns...)
	return q
}

// One runs the query and returns the row.
func (q *FindUniqueQuery) One(ctx context.Context) (Row, error) {
	if err := uniqueFilter(q.read.model.info, q.read.where); err != nil {
		return Row{}, q.read.queryErr(err)
	}
	stmt, args, err := q.read.compile(q.read.columns)
	if err != nil {
		return Row{}, q.read.queryErr(err)
	}
	row, ok, err := q.read.model.engine.QueryOptional(ctx, stmt, args)
	if err != nil {
		return Row{}, q.read.queryErr(err)
	}
	if !ok {
		return Row{}, prax.NewNotFoundError(q.read.model.info.Name)
	}
	return row, nil
}

// uniqueFilter verifies that f is a conjunction of equality leaves whose
// columns cover the primary key or one unique set exactly.
func uniqueFilter(info *ModelInfo, f *filter.Filter) error {
	cols, ok := equalityColumns(f)
	if !ok || !info.MatchesUniqueSet(cols) {
		return fmt.Errorf("filter does not address a unique column set of %s", info.Name)
	}
	return nil
}

// equalityColumns collects the columns of an equality conjunction. Any
// other operator disqualifies the tree.
func equalityColumns(f *filter.Filter) ([]string, bool) {
	if f.IsNone() {
		return nil, false
	}
	switch f.Op {
	case filter.OpEquals:
		return []string{f.Field}, true
	case filter.OpAnd:
		var cols []string
		for _, c := range f.Children {
			sub, ok := equalityColumns(c)
			if !ok {
				return nil, false
			}
			cols = append(cols, sub...)
		}
		return cols, len(cols) > 0
	default:
		return nil, false
	}
}

// CountQuery counts matching rows.
type CountQuery struct {
	read read
}

// Where narrows the count. Repeated calls combine with AND.
func (q *CountQuery) Where(f *filter.Filter) *CountQuery {
	q.read.addWhere(f)
	return q
}

// Exec compiles and runs the count.
func (q *CountQuery) Exec(ctx context.Context) (int64, error) {
	stmt, args, err := q.read.compile([]string{"COUNT(*)"})
	if err != nil {
		return 0, q.read.queryErr(err)
	}
	n, err := q.read.model.engine.Count(ctx, stmt, args)
	if err != nil {
		return 0, q.read.queryErr(err)
	}
	return n, nil
}

// Aggregation functions.
const (
	aggCount = "COUNT"
	aggSum   = "SUM"
	aggAvg   = "AVG"
	aggMin   = "MIN"
	aggMax   = "MAX"
)

type aggTerm struct {
	fn     string
	column string
}

// AggregateQuery computes aggregate functions over the matching rows,
// optionally grouped.
type AggregateQuery struct {
	read    read
	terms   []aggTerm
	groupBy []string
}

// Where narrows the aggregation. Repeated calls combine with AND.
func (q *AggregateQuery) Where(f *filter.Filter) *AggregateQuery {
	q.read.addWhere(f)
	return q
}

// CountAll adds COUNT(*) under the alias _count.
func (q *AggregateQuery) CountAll() *AggregateQuery {
	q.terms = append(q.terms, aggTerm{fn: aggCount, column: "*"})
	return q
}

// Sum adds SUM(column) under the alias _sum_<column>.
func (q *AggregateQuery) Sum(column string) *AggregateQuery {
	q.terms = append(q.terms, aggTerm{fn: aggSum, column: column})
	return q
}

// Avg adds AVG(column) under the alias _avg_<column>.
func (q *AggregateQuery) Avg(column string) *AggregateQuery {
	q.terms = append(q.terms, aggTerm{fn: aggAvg, column: column})
	return q
}

// Min adds MIN(column) under the alias _min_<column>.
func (q *AggregateQuery) Min(column string) *AggregateQuery {
	q.terms = append(q.terms, aggTerm{fn: aggMin, column: column})
	return q
}

// Max adds MAX(column) under the alias _max_<column>.
func (q *AggregateQuery) Max(column string) *AggregateQuery {
	q.terms = append(q.terms, aggTerm{fn: aggMax, column: column})
	return q
}

// GroupBy groups the aggregation by the given columns. The columns join
// the projection ahead of the aggregate terms.
func (q *AggregateQuery) GroupBy(columns ...string) *AggregateQuery {
	q.groupBy = append(q.groupBy, columns...)
	return q
}

// Exec compiles and runs the aggregation. Ungrouped aggregations return a
// single row.
func (q *AggregateQuery) Exec(ctx context.Context) ([]Row, error) {
	if len(q.terms) == 0 {
		return nil, q.read.queryErr(fmt.Errorf("aggregate without aggregate functions"))
	}
	d := q.read.model.dialect
	columns := make([]string, 0, len(q.groupBy)+len(q.terms))
	for _, g := range q.groupBy {
		columns = append(columns, quoteQualified(d, g))
	}
	for _, t := range q.terms {
		columns = append(columns, t.render(d))
	}
	sel, err := q.read.selector(columns)
	if err != nil {
		return nil, q.read.queryErr(err)
	}
	if len(q.groupBy) > 0 {
		sel.GroupBy(q.groupBy...)
	}
	stmt, args := sel.Query()
	if err := sel.Err(); err != nil {
		return nil, q.read.queryErr(err)
	}
	rows, err := q.read.model.engine.QueryMany(ctx, stmt, args)
	if err != nil {
		return nil, q.read.queryErr(err)
	}
	return rows, nil
}

// render writes the aggregate term with its stable alias, quoting
// identifiers for the dialect by hand since the whole expression passes
// through the builder verbatim.
func (t aggTerm) render(d string) string {
	if t.column == "*" {
		return "COUNT(*) AS " + dialect.Quote(d, "_count")
	}
	alias := "_" + strings.ToLower(t.fn) + "_" + t.column
	return t.fn + "(" + quoteQualified(d, t.column) + ") AS " + dialect.Quote(d, alias)
}
