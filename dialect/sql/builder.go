package sql

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/syssam/prax/dialect"
)

// Querier wraps the Query method: rendering a statement and its arguments.
type Querier interface {
	Query() (string, []any)
}

// state is shared by all builders so that nested queriers inherit the
// dialect and continue the parent's placeholder numbering.
type state interface {
	SetDialect(string)
	SetTotal(int)
}

// raw marks an argument to be written verbatim instead of bound.
type raw struct{ s string }

// Raw returns a value that is written to the query as-is, without a
// placeholder. Use it for SQL expressions like CURRENT_TIMESTAMP.
func Raw(s string) any { return raw{s} }

// Builder is the base query builder: a string buffer, the target dialect,
// the bound arguments and a running placeholder counter. The counter can be
// seeded with SetTotal so fragments rendered elsewhere keep their numbering.
type Builder struct {
	sb      strings.Builder
	dialect string
	args    []any
	total   int
	base    int
	errs    []error
}

// SetDialect sets the dialect of the builder.
func (b *Builder) SetDialect(d string) { b.dialect = d }

// Dialect returns the dialect of the builder.
func (b *Builder) Dialect() string { return b.dialect }

// SetTotal seeds the placeholder counter. The next bound argument renders as
// position total+1. Used to continue numbering started by another fragment.
func (b *Builder) SetTotal(total int) {
	b.total = total
	b.base = total
}

// Total returns the current placeholder count.
func (b *Builder) Total() int { return b.total }

// reset clears the rendered text and arguments, keeping the seeded counter
// base so a builder can render more than once.
func (b *Builder) reset() {
	b.sb.Reset()
	b.args = nil
	b.total = b.base
}

// WriteString appends s to the query buffer.
func (b *Builder) WriteString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// WriteByte appends c to the query buffer.
func (b *Builder) WriteByte(c byte) *Builder {
	b.sb.WriteByte(c)
	return b
}

// Quote quotes an identifier for the builder's dialect.
func (b *Builder) Quote(ident string) string {
	return dialect.Quote(b.dialect, ident)
}

// isQuoted reports whether s already carries dialect quoting.
func isQuoted(s string) bool {
	return strings.ContainsAny(s, "`\"[")
}

// Ident writes a quoted identifier. Qualified names are quoted part by part
// ("u.id" -> "u"."id"); "*", function calls and pre-quoted text pass through.
func (b *Builder) Ident(s string) *Builder {
	switch {
	case s == "":
	case s == "*" || isQuoted(s) || strings.ContainsAny(s, "( "):
		b.WriteString(s)
	case strings.ContainsRune(s, '.'):
		parts := strings.Split(s, ".")
		for i, p := range parts {
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(b.Quote(p))
		}
	default:
		b.WriteString(b.Quote(s))
	}
	return b
}

// IdentComma writes the identifiers separated by commas.
func (b *Builder) IdentComma(ss ...string) *Builder {
	for i, s := range ss {
		if i > 0 {
			b.Comma()
		}
		b.Ident(s)
	}
	return b
}

// Comma writes ", ".
func (b *Builder) Comma() *Builder { return b.WriteString(", ") }

// Pad writes a single space.
func (b *Builder) Pad() *Builder { return b.WriteByte(' ') }

/// Arg binds a value: it writes the dialect placeholder and appends the value
// to the argument list. Raw values are written verbatim.
func (b *Builder) Arg(v any) *Builder {
	if r, ok := v.(raw); ok {
		return b.WriteString(r.s)
	}
	b.total++
	b.args = append(b.args, v)
	return b.WriteString(dialect.Placeholder(b.dialect, b.total))
}

// Args binds the values separated by commas.
func (b *Builder) Args(vs ...any) *Builder {
	for i, v := range vs {
		if i > 0 {
			b.Comma()
		}
		b.Arg(v)
	}
	return b
}

// Nested runs f between parentheses.
func (b *Builder) Nested(f func(*Builder)) *Builder {
	b.WriteByte('(')
	f(b)
	return b.WriteByte(')')
}

// Join renders the queriers into the buffer, propagating dialect and
// placeholder numbering and merging their arguments.
func (b *Builder) Join(qs ...Querier) *Builder {
	return b.join(qs, "")
}

// JoinComma renders the queriers separated by commas.
func (b *Builder) JoinComma(qs ...Querier) *Builder {
	return b.join(qs, ", ")
}

func (b *Builder) join(qs []Querier, sep string) *Builder {
	for i, q := range qs {
		if i > 0 {
			b.WriteString(sep)
		}
		if st, ok := q.(state); ok {
			st.SetDialect(b.dialect)
			st.SetTotal(b.total)
		}
		query, args := q.Query()
		b.WriteString(query)
		b.args = append(b.args, args...)
		b.total += len(args)
		if er, ok := q.(interface{ Err() error }); ok {
			if err := er.Err(); err != nil {
				b.AddError(err)
			}
		}
	}
	return b
}

// AddError records an error that surfaces from Err after rendering.
func (b *Builder) AddError(err error) *Builder {
	if err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

// Err returns the errors recorded while building, joined.
func (b *Builder) Err() error {
	if len(b.errs) == 0 {
		return nil
	}
	return errors.Join(b.errs...)
}

// String returns the rendered text.
func (b *Builder) String() string { return b.sb.String() }

// Query returns the rendered text and arguments.
func (b *Builder) Query() (string, []any) {
	return b.sb.String(), b.args
}

// postgres reports whether the builder targets a Postgres-family dialect.
func (b *Builder) postgres() bool {
	return b.dialect == dialect.Postgres || b.dialect == dialect.DuckDB
}

func (b *Builder) mssql() bool { return b.dialect == dialect.MSSQL }

func (b *Builder) mysql() bool { return b.dialect == dialect.MySQL }

// falseExpr and trueExpr are the constant predicates. MSSQL has no boolean
// literals in search conditions.
func (b *Builder) falseExpr() string {
	if b.mssql() {
		return "1 = 0"
	}
	return "FALSE"
}

func (b *Builder) trueExpr() string {
	if b.mssql() {
		return "1 = 1"
	}
	return "TRUE"
}

// DialectBuilder prefixes all root builders with the dialect.
type DialectBuilder struct {
	dialect string
}

// Dialect creates a new DialectBuilder for the given dialect name.
func Dialect(name string) *DialectBuilder {
	return &DialectBuilder{name}
}

// Select creates a Selector for the given columns.
func (d *DialectBuilder) Select(columns ...string) *Selector {
	s := Select(columns...)
	s.SetDialect(d.dialect)
	return s
}

// Table creates a SelectTable for the given table name.
func (d *DialectBuilder) Table(name string) *SelectTable {
	t := Table(name)
	t.SetDialect(d.dialect)
	return t
}

// Insert creates an InsertBuilder for the given table.
func (d *DialectBuilder) Insert(table string) *InsertBuilder {
	i := Insert(table)
	i.SetDialect(d.dialect)
	return i
}

// Update creates an UpdateBuilder for the given table.
func (d *DialectBuilder) Update(table string) *UpdateBuilder {
	u := Update(table)
	u.SetDialect(d.dialect)
	return u
}

// Delete creates a DeleteBuilder for the given table.
func (d *DialectBuilder) Delete(table string) *DeleteBuilder {
	dl := Delete(table)
	dl.SetDialect(d.dialect)
	return dl
}

// Predicate is a where-clause fragment. Predicates record render functions
// and replay them on Query, so one predicate can serve several dialects and
// placeholder offsets.
type Predicate struct {
	Builder
	fns []func(*Builder)
}

// P creates a new predicate.
func P(fns ...func(*Builder)) *Predicate {
	return &Predicate{fns: fns}
}

// Append appends a render function to the predicate.
func (p *Predicate) Append(f func(*Builder)) *Predicate {
	p.fns = append(p.fns, f)
	return p
}

// Query renders the predicate.
func (p *Predicate) Query() (string, []any) {
	p.reset()
	for _, f := range p.fns {
		f(&p.Builder)
	}
	return p.Builder.Query()
}

// mayWrap writes the child predicates joined by op, wrapping children in
// parentheses when there is more than one.
func mayWrap(b *Builder, preds []*Predicate, op string) {
	switch len(preds) {
	case 0:
		b.WriteString(b.trueExpr())
	case 1:
		b.Join(preds[0])
	default:
		for i, p := range preds {
			if i > 0 {
				b.Pad().WriteString(op).Pad()
			}
			b.Nested(func(nb *Builder) {
				nb.Join(p)
			})
		}
	}
}

// And returns the conjunction of the predicates.
func And(preds ...*Predicate) *Predicate {
	return P(func(b *Builder) {
		mayWrap(b, preds, "AND")
	})
}

// Or returns the disjunction of the predicates.
func Or(preds ...*Predicate) *Predicate {
	return P(func(b *Builder) {
		mayWrap(b, preds, "OR")
	})
}

// Not negates the predicate.
func Not(p *Predicate) *Predicate {
	return P(func(b *Builder) {
		b.WriteString("NOT ")
		b.Nested(func(nb *Builder) {
			nb.Join(p)
		})
	})
}

func compare(col, op string, arg any) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col).WriteString(" " + op + " ").Arg(arg)
	})
}

// EQ returns a column = value predicate.
func EQ(col string, arg any) *Predicate { return compare(col, "=", arg) }

// NEQ returns a column <> value predicate.
func NEQ(col string, arg any) *Predicate { return compare(col, "<>", arg) }

// GT returns a column > value predicate.
func GT(col string, arg any) *Predicate { return compare(col, ">", arg) }

// GTE returns a column >= value predicate.
func GTE(col string, arg any) *Predicate { return compare(col, ">=", arg) }

// LT returns a column < value predicate.
func LT(col string, arg any) *Predicate { return compare(col, "<", arg) }

// LTE returns a column <= value predicate.
func LTE(col string, arg any) *Predicate { return compare(col, "<=", arg) }

// ColumnsEQ returns a column = column predicate (join conditions).
func ColumnsEQ(col1, col2 string) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col1).WriteString(" = ").Ident(col2)
	})
}

// In returns a column IN (values...) predicate. An empty list renders the
// constant false predicate.
func In(col string, args ...any) *Predicate {
	return P(func(b *Builder) {
		if len(args) == 0 {
			b.WriteString(b.falseExpr())
			return
		}
		b.Ident(col).WriteString(" IN ")
		b.Nested(func(nb *Builder) {
			nb.Args(args...)
		})
	})
}

// NotIn returns a column NOT IN (values...) predicate. An empty list renders
// the constant true predicate.
func NotIn(col string, args ...any) *Predicate {
	return P(func(b *Builder) {
		if len(args) == 0 {
			b.WriteString(b.trueExpr())
			return
		}
		b.Ident(col).WriteString(" NOT IN ")
		b.Nested(func(nb *Builder) {
			nb.Args(args...)
		})
	})
}

// IsNull returns a column IS NULL predicate.
func IsNull(col string) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col).WriteString(" IS NULL")
	})
}

// NotNull returns a column IS NOT NULL predicate.
func NotNull(col string) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col).WriteString(" IS NOT NULL")
	})
}

// Like returns a column LIKE pattern predicate.
func Like(col, pattern string) *Predicate {
	return compare(col, "LIKE", pattern)
}

// Contains returns a substring-match predicate.
func Contains(col, sub string) *Predicate {
	return Like(col, "%"+sub+"%")
}

// HasPrefix returns a prefix-match predicate.
func HasPrefix(col, prefix string) *Predicate {
	return Like(col, prefix+"%")
}

// HasSuffix returns a suffix-match predicate.
func HasSuffix(col, suffix string) *Predicate {
	return Like(col, "%"+suffix)
}

// EqualFold returns a case-insensitive equality predicate.
func EqualFold(col, v string) *Predicate {
	return P(func(b *Builder) {
		b.WriteString("LOWER(").Ident(col).WriteString(") = ").Arg(strings.ToLower(v))
	})
}

// ContainsFold returns a case-insensitive substring-match predicate.
func ContainsFold(col, sub string) *Predicate {
	return P(func(b *Builder) {
		b.WriteString("LOWER(").Ident(col).WriteString(") LIKE ").Arg("%" + strings.ToLower(sub) + "%")
	})
}

// ExprP returns a predicate carrying a pre-rendered fragment and its
// arguments. The fragment is written verbatim; its placeholders must have
// been numbered with the start index handed to the renderer.
func ExprP(fragment string, args ...any) *Predicate {
	return P(func(b *Builder) {
		b.WriteString(fragment)
		b.args = append(b.args, args...)
		b.total += len(args)
	})
}

// SelectTable is a table reference in a FROM or JOIN clause.
type SelectTable struct {
	Builder
	name string
	as   string
}

// Table returns a new table reference.
func Table(name string) *SelectTable {
	return &SelectTable{name: name}
}

// As sets the table alias.
func (t *SelectTable) As(alias string) *SelectTable {
	t.as = alias
	return t
}

// Name returns the table name.
func (t *SelectTable) Name() string { return t.name }

// C returns the qualified, quoted column name.
func (t *SelectTable) C(column string) string {
	name := t.name
	if t.as != "" {
		name = t.as
	}
	b := &Builder{dialect: t.dialect}
	b.Ident(name).WriteByte('.').Ident(column)
	return b.String()
}

// ref renders the table reference for FROM/JOIN clauses.
func (t *SelectTable) ref(b *Builder) {
	b.Ident(t.name)
	if t.as != "" {
		b.WriteString(" AS ").Ident(t.as)
	}
}

type join struct {
	kind  string
	table *SelectTable
	on    *Predicate
}

// Row locking modes.
type LockMode string

const (
	LockNone   LockMode = ""
	LockUpdate LockMode = "FOR UPDATE"
	LockShare  LockMode = "FOR SHARE"
)

// Selector builds a SELECT statement.
type Selector struct {
	Builder
	as       string
	columns  []string
	from     *SelectTable
	joins    []join
	where    *Predicate
	groupBy  []string
	having   *Predicate
	order    []string
	limit    *int
	offset   *int
	distinct bool
	lock     LockMode
}

// Select returns a Selector for the given columns.
func Select(columns ...string) *Selector {
	return &Selector{columns: columns}
}

// Select replaces the selected columns.
func (s *Selector) Select(columns ...string) *Selector {
	s.columns = columns
	return s
}

// AppendSelect appends columns to the selection.
func (s *Selector) AppendSelect(columns ...string) *Selector {
	s.columns = append(s.columns, columns...)
	return s
}

// From sets the source table.
func (s *Selector) From(t *SelectTable) *Selector {
	t.SetDialect(s.dialect)
	s.from = t
	return s
}

// As sets a selector alias, used to qualify columns via C.
func (s *Selector) As(alias string) *Selector {
	s.as = alias
	return s
}

// Distinct marks the selection DISTINCT.
func (s *Selector) Distinct() *Selector {
	s.distinct = true
	return s
}

// C returns the qualified, quoted column name for the selector's table.
func (s *Selector) C(column string) string {
	if strings.ContainsAny(column, ".(") || isQuoted(column) {
		return column
	}
	qualifier := s.as
	if qualifier == "" && s.from != nil {
		if s.from.as != "" {
			qualifier = s.from.as
		} else {
			qualifier = s.from.name
		}
	}
	b := &Builder{dialect: s.dialect}
	if qualifier != "" {
		b.Ident(qualifier).WriteByte('.')
	}
	b.Ident(column)
	return b.String()
}

// Join adds an INNER JOIN.
func (s *Selector) Join(t *SelectTable) *Selector { return s.join("JOIN", t) }

// LeftJoin adds a LEFT JOIN.
func (s *Selector) LeftJoin(t *SelectTable) *Selector { return s.join("LEFT JOIN", t) }

// RightJoin adds a RIGHT JOIN.
func (s *Selector) RightJoin(t *SelectTable) *Selector { return s.join("RIGHT JOIN", t) }

func (s *Selector) join(kind string, t *SelectTable) *Selector {
	t.SetDialect(s.dialect)
	s.joins = append(s.joins, join{kind: kind, table: t})
	return s
}

// On completes the last join with a column equality condition.
func (s *Selector) On(col1, col2 string) *Selector {
	if len(s.joins) == 0 {
		s.AddError(errors.New("dialect/sql: On without a Join"))
		return s
	}
	j := &s.joins[len(s.joins)-1]
	cond := ColumnsEQ(col1, col2)
	if j.on != nil {
		cond = And(j.on, cond)
	}
	j.on = cond
	return s
}

// OnP completes the last join with an arbitrary predicate.
func (s *Selector) OnP(p *Predicate) *Selector {
	if len(s.joins) == 0 {
		s.AddError(errors.New("dialect/sql: OnP without a Join"))
		return s
	}
	j := &s.joins[len(s.joins)-1]
	if j.on != nil {
		p = And(j.on, p)
	}
	j.on = p
	return s
}

// Where adds a predicate, conjoined with any prior predicate.
func (s *Selector) Where(p *Predicate) *Selector {
	if p == nil {
		return s
	}
	if s.where != nil {
		p = And(s.where, p)
	}
	s.where = p
	return s
}

// P returns the accumulated predicate.
func (s *Selector) P() *Predicate { return s.where }

// GroupBy adds grouping columns.
func (s *Selector) GroupBy(columns ...string) *Selector {
	s.groupBy = append(s.groupBy, columns...)
	return s
}

// Having sets the HAVING predicate.
func (s *Selector) Having(p *Predicate) *Selector {
	s.having = p
	return s
}

// OrderBy adds order terms. A term is a column name optionally followed by
// direction and nulls ordering ("created_at DESC NULLS LAST").
func (s *Selector) OrderBy(terms ...string) *Selector {
	s.order = append(s.order, terms...)
	return s
}

// ClearOrder drops the accumulated order terms.
func (s *Selector) ClearOrder() *Selector {
	s.order = nil
	return s
}

// Limit caps the number of returned rows.
func (s *Selector) Limit(n int) *Selector {
	s.limit = &n
	return s
}

// Offset skips the first n rows.
func (s *Selector) Offset(n int) *Selector {
	s.offset = &n
	return s
}

// ForUpdate requests exclusive row locks. A no-op on dialects without
// SELECT ... FOR UPDATE.
func (s *Selector) ForUpdate() *Selector {
	s.lock = LockUpdate
	return s
}

// ForShare requests shared row locks.
func (s *Selector) ForShare() *Selector {
	s.lock = LockShare
	return s
}

// writeOrder renders one order term: the column identifier plus any
// direction modifier the caller composed.
func (s *Selector) writeOrder(term string) {
	if i := strings.IndexByte(term, ' '); i > 0 && !strings.ContainsAny(term[:i], "(") {
		s.Ident(term[:i]).WriteString(term[i:])
		return
	}
	s.Ident(term)
}

// Query renders the SELECT statement.
func (s *Selector) Query() (string, []any) {
	s.reset()
	s.WriteString("SELECT ")
	if s.distinct {
		s.WriteString("DISTINCT ")
	}
	if len(s.columns) == 0 {
		s.WriteByte('*')
	} else {
		s.IdentComma(s.columns...)
	}
	if s.from != nil {
		s.WriteString(" FROM ")
		s.from.ref(&s.Builder)
	}
	for _, j := range s.joins {
		s.Pad().WriteString(j.kind).Pad()
		j.table.ref(&s.Builder)
		if j.on != nil {
			s.WriteString(" ON ")
			s.Builder.Join(j.on)
		}
	}
	if s.where != nil {
		s.WriteString(" WHERE ")
		s.Builder.Join(s.where)
	}
	if len(s.groupBy) > 0 {
		s.WriteString(" GROUP BY ")
		s.IdentComma(s.groupBy...)
	}
	if s.having != nil {
		s.WriteString(" HAVING ")
		s.Builder.Join(s.having)
	}
	if len(s.order) > 0 {
		s.WriteString(" ORDER BY ")
		for i, term := range s.order {
			if i > 0 {
				s.Comma()
			}
			s.writeOrder(term)
		}
	}
	s.writeLimits()
	if s.lock != LockNone && (s.postgres() || s.mysql()) {
		s.Pad().WriteString(string(s.lock))
	}
	return s.Builder.Query()
}

// writeLimits renders LIMIT/OFFSET, using OFFSET..FETCH on MSSQL, which
// also requires an ORDER BY clause.
func (s *Selector) writeLimits() {
	if s.limit == nil && s.offset == nil {
		return
	}
	if s.mssql() {
		if len(s.order) == 0 {
			s.WriteString(" ORDER BY (SELECT NULL)")
		}
		offset := 0
		if s.offset != nil {
			offset = *s.offset
		}
		s.WriteString(" OFFSET " + strconv.Itoa(offset) + " ROWS")
		if s.limit != nil {
			s.WriteString(" FETCH NEXT " + strconv.Itoa(*s.limit) + " ROWS ONLY")
		}
		return
	}
	if s.limit != nil {
		s.WriteString(" LIMIT " + strconv.Itoa(*s.limit))
	}
	if s.offset != nil {
		s.WriteString(" OFFSET " + strconv.Itoa(*s.offset))
	}
}

// InsertBuilder builds an INSERT statement.
type InsertBuilder struct {
	Builder
	table     string
	columns   []string
	values    [][]any
	defaults  bool
	returning []string
	conflict  *conflict
}

type conflict struct {
	targets    []string
	doNothing  bool
	updateCols []string
	assigns    []conflictAssign
}

type conflictAssign struct {
	column string
	value  any
}

// Insert returns an InsertBuilder for the given table.
func Insert(table string) *InsertBuilder {
	return &InsertBuilder{table: table}
}

// Columns sets the insert columns.
func (i *InsertBuilder) Columns(columns ...string) *InsertBuilder {
	i.columns = columns
	return i
}

// Values appends one row of values.
func (i *InsertBuilder) Values(values ...any) *InsertBuilder {
	i.values = append(i.values, values)
	return i
}

// Default inserts a row of column defaults.
func (i *InsertBuilder) Default() *InsertBuilder {
	i.defaults = true
	return i
}

// Returning adds a RETURNING clause (OUTPUT on MSSQL; ignored on MySQL,
// where generated keys come from the driver's result).
func (i *InsertBuilder) Returning(columns ...string) *InsertBuilder {
	i.returning = columns
	return i
}

// OnConflictDoNothing skips rows that violate a unique constraint on the
// target columns. MySQL renders INSERT IGNORE.
func (i *InsertBuilder) OnConflictDoNothing(targets ...string) *InsertBuilder {
	i.conflict = &conflict{targets: targets, doNothing: true}
	return i
}

// OnConflictUpdate turns the insert into an upsert: rows conflicting on the
// target columns update the given columns from the incoming values.
func (i *InsertBuilder) OnConflictUpdate(targets []string, updateColumns ...string) *InsertBuilder {
	i.conflict = &conflict{targets: targets, updateCols: updateColumns}
	return i
}

// OnConflictSet turns the insert into an upsert whose conflict action
// assigns an explicit value, placed after the row values in placeholder
// order. Repeated calls accumulate assignments on the same targets.
func (i *InsertBuilder) OnConflictSet(targets []string, column string, v any) *InsertBuilder {
	if i.conflict == nil || !slices.Equal(i.conflict.targets, targets) {
		i.conflict = &conflict{targets: targets}
	}
	i.conflict.assigns = append(i.conflict.assigns, conflictAssign{column: column, value: v})
	return i
}

// Query renders the INSERT statement.
func (i *InsertBuilder) Query() (string, []any) {
	i.reset()
	i.WriteString("INSERT ")
	if i.conflict != nil && i.conflict.doNothing && i.mysql() {
		i.WriteString("IGNORE ")
	}
	i.WriteString("INTO ").Ident(i.table)
	switch {
	case i.defaults && i.mysql():
		i.WriteString(" () VALUES ()")
	case i.defaults:
		i.writeOutput()
		i.WriteString(" DEFAULT VALUES")
	default:
		i.WriteByte(' ').Nested(func(b *Builder) {
			b.IdentComma(i.columns...)
		})
		i.writeOutput()
		i.WriteString(" VALUES ")
		for r, row := range i.values {
			if r > 0 {
				i.Comma()
			}
			if len(row) != len(i.columns) {
				i.AddError(fmt.Errorf("dialect/sql: insert row has %d values for %d columns", len(row), len(i.columns)))
			}
			i.Nested(func(b *Builder) {
				b.Args(row...)
			})
		}
	}
	i.writeConflict()
	if len(i.returning) > 0 && (i.postgres() || i.dialect == dialect.SQLite) {
		i.WriteString(" RETURNING ")
		i.IdentComma(i.returning...)
	}
	return i.Builder.Query()
}

// writeOutput renders the MSSQL OUTPUT clause, its stand-in for RETURNING.
func (i *InsertBuilder) writeOutput() {
	if len(i.returning) == 0 || !i.mssql() {
		return
	}
	i.WriteString(" OUTPUT ")
	for n, col := range i.returning {
		if n > 0 {
			i.Comma()
		}
		i.WriteString("INSERTED.").Ident(col)
	}
}

func (i *InsertBuilder) writeConflict() {
	c := i.conflict
	if c == nil {
		return
	}
	switch {
	case i.mysql():
		if c.doNothing {
			return // rendered as INSERT IGNORE
		}
		i.WriteString(" ON DUPLICATE KEY UPDATE ")
		for n, col := range c.updateCols {
			if n > 0 {
				i.Comma()
			}
			i.Ident(col).WriteString(" = VALUES(").Ident(col).WriteByte(')')
		}
		i.writeAssigns(len(c.updateCols) > 0)
	case i.postgres() || i.dialect == dialect.SQLite:
		i.WriteString(" ON CONFLICT ")
		if len(c.targets) > 0 {
			i.Nested(func(b *Builder) {
				b.IdentComma(c.targets...)
			})
			i.Pad()
		}
		if c.doNothing {
			i.WriteString("DO NOTHING")
			return
		}
		i.WriteString("DO UPDATE SET ")
		for n, col := range c.updateCols {
			if n > 0 {
				i.Comma()
			}
			i.Ident(col).WriteString(" = EXCLUDED.").Ident(col)
		}
		i.writeAssigns(len(c.updateCols) > 0)
	default:
		i.AddError(fmt.Errorf("dialect/sql: conflict clauses are not supported on %q", i.dialect))
	}
}

// writeAssigns renders the explicit conflict assignments, binding their
// values after everything already written.
func (i *InsertBuilder) writeAssigns(lead bool) {
	for n, a := range i.conflict.assigns {
		if lead || n > 0 {
			i.Comma()
		}
		i.Ident(a.column).WriteString(" = ").Arg(a.value)
	}
}

// UpdateBuilder builds an UPDATE statement.
type UpdateBuilder struct {
	Builder
	table     string
	columns   []string
	values    []any
	where     *Predicate
	returning []string
}

// Update returns an UpdateBuilder for the given table.
func Update(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table}
}

// Set assigns a value to a column.
func (u *UpdateBuilder) Set(column string, v any) *UpdateBuilder {
	u.columns = append(u.columns, column)
	u.values = append(u.values, v)
	return u
}

// SetNull assigns NULL to a column.
func (u *UpdateBuilder) SetNull(column string) *UpdateBuilder {
	return u.Set(column, Raw("NULL"))
}

// Where adds a predicate, conjoined with any prior predicate.
func (u *UpdateBuilder) Where(p *Predicate) *UpdateBuilder {
	if p == nil {
		return u
	}
	if u.where != nil {
		p = And(u.where, p)
	}
	u.where = p
	return u
}

// Returning adds a RETURNING clause on dialects that support it.
func (u *UpdateBuilder) Returning(columns ...string) *UpdateBuilder {
	u.returning = columns
	return u
}

// Empty reports whether the builder carries no assignments.
func (u *UpdateBuilder) Empty() bool { return len(u.columns) == 0 }

// Query renders the UPDATE statement.
func (u *UpdateBuilder) Query() (string, []any) {
	u.reset()
	if len(u.columns) == 0 {
		u.AddError(errors.New("dialect/sql: update with no assignments"))
	}
	u.WriteString("UPDATE ").Ident(u.table).WriteString(" SET ")
	for n, col := range u.columns {
		if n > 0 {
			u.Comma()
		}
		u.Ident(col).WriteString(" = ").Arg(u.values[n])
	}
	if u.where != nil {
		u.WriteString(" WHERE ")
		u.Join(u.where)
	}
	if len(u.returning) > 0 && (u.postgres() || u.dialect == dialect.SQLite) {
		u.WriteString(" RETURNING ")
		u.IdentComma(u.returning...)
	}
	return u.Builder.Query()
}

// DeleteBuilder builds a DELETE statement.
type DeleteBuilder struct {
	Builder
	table string
	where *Predicate
}

// Delete returns a DeleteBuilder for the given table.
func Delete(table string) *DeleteBuilder {
	return &DeleteBuilder{table: table}
}

// Where adds a predicate, conjoined with any prior predicate.
func (d *DeleteBuilder) Where(p *Predicate) *DeleteBuilder {
	if p == nil {
		return d
	}
	if d.where != nil {
		p = And(d.where, p)
	}
	d.where = p
	return d
}

// Query renders the DELETE statement.
func (d *DeleteBuilder) Query() (string, []any) {
	d.reset()
	d.WriteString("DELETE FROM ").Ident(d.table)
	if d.where != nil {
		d.WriteString(" WHERE ")
		d.Join(d.where)
	}
	return d.Builder.Query()
}
