package filter

import (
	"strings"

	"github.com/syssam/prax/dialect"
)

// ToSQL renders the tree as a WHERE-clause fragment for the given dialect.
// The placeholder counter starts at start; the returned next index is
// start plus the number of bound parameters, so callers can thread the
// counter through surrounding statement text. None emits no SQL.
//
//	f := filter.Equals("age", filter.Int(30))
//	sql, params, next := f.ToSQL(dialect.Postgres, 1)
//	// sql = `"age" = $1`, params = [Int(30)], next = 2
func (f *Filter) ToSQL(d string, start int) (string, []Value, int) {
	if f.IsNone() {
		return "", nil, start
	}
	var b strings.Builder
	params := make([]Value, 0, f.Arity())
	next := f.emit(&b, d, start, &params)
	return b.String(), params, next
}

// emit writes the node and returns the next free placeholder index.
func (f *Filter) emit(b *strings.Builder, d string, idx int, params *[]Value) int {
	switch f.Op {
	case OpNone:
		return idx
	case OpAnd, OpOr:
		return f.emitCompound(b, d, idx, params)
	case OpNot:
		child := (*Filter)(nil)
		if len(f.Children) > 0 {
			child = f.Children[0]
		}
		if child.IsNone() {
			return idx
		}
		b.WriteString("NOT (")
		idx = child.emit(b, d, idx, params)
		b.WriteByte(')')
		return idx
	case OpIsNull:
		quoteField(b, d, f.Field)
		b.WriteString(" IS NULL")
		return idx
	case OpIsNotNull:
		quoteField(b, d, f.Field)
		b.WriteString(" IS NOT NULL")
		return idx
	case OpIn, OpNotIn:
		return f.emitIn(b, d, idx, params)
	default:
		return f.emitComparison(b, d, idx, params)
	}
}

func (f *Filter) emitCompound(b *strings.Builder, d string, idx int, params *[]Value) int {
	live := f.Children
	for _, c := range live {
		if c.IsNone() {
			live = compact(f.Children)
			break
		}
	}
	switch len(live) {
	case 0:
		return idx
	case 1:
		return live[0].emit(b, d, idx, params)
	}
	sep := " AND "
	if f.Op == OpOr {
		sep = " OR "
	}
	b.WriteByte('(')
	for i, c := range live {
		if i > 0 {
			b.WriteString(sep)
		}
		idx = c.emit(b, d, idx, params)
	}
	b.WriteByte(')')
	return idx
}

func (f *Filter) emitIn(b *strings.Builder, d string, idx int, params *[]Value) int {
	if len(f.Values) == 0 {
		// IN over nothing matches no row; NOT IN over nothing matches all.
		if f.Op == OpIn {
			b.WriteString(falseLiteral(d))
		} else {
			b.WriteString(trueLiteral(d))
		}
		return idx
	}
	quoteField(b, d, f.Field)
	if f.Op == OpNotIn {
		b.WriteString(" NOT IN (")
	} else {
		b.WriteString(" IN (")
	}
	for i, v := range f.Values {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(dialect.Placeholder(d, idx))
		*params = append(*params, v)
		idx++
	}
	b.WriteByte(')')
	return idx
}

var comparisonOps = map[Op]string{
	OpEquals:     " = ",
	OpNotEquals:  " <> ",
	OpLt:         " < ",
	OpLte:        " <= ",
	OpGt:         " > ",
	OpGte:        " >= ",
	OpContains:   " LIKE ",
	OpStartsWith: " LIKE ",
	OpEndsWith:   " LIKE ",
}

func (f *Filter) emitComparison(b *strings.Builder, d string, idx int, params *[]Value) int {
	quoteField(b, d, f.Field)
	b.WriteString(comparisonOps[f.Op])
	v := f.Value
	switch f.Op {
	case OpContains:
		v = String("%" + v.text() + "%")
	case OpStartsWith:
		v = String(v.text() + "%")
	case OpEndsWith:
		v = String("%" + v.text())
	}
	b.WriteString(dialect.Placeholder(d, idx))
	*params = append(*params, v)
	return idx + 1
}

// quoteField writes the quoted field name, quoting each part of a
// qualified name separately.
func quoteField(b *strings.Builder, d, field string) {
	if i := strings.IndexByte(field, '.'); i >= 0 {
		b.WriteString(dialect.Quote(d, field[:i]))
		b.WriteByte('.')
		b.WriteString(dialect.Quote(d, field[i+1:]))
		return
	}
	b.WriteString(dialect.Quote(d, field))
}

// MSSQL search conditions have no boolean literals.
func falseLiteral(d string) string {
	if d == dialect.MSSQL {
		return "1 = 0"
	}
	return "FALSE"
}

func trueLiteral(d string) string {
	if d == dialect.MSSQL {
		return "1 = 1"
	}
	return "TRUE"
}

// Args converts emitted parameters into driver-ready arguments.
func Args(params []Value) []any {
	if len(params) == 0 {
		return nil
	}
	args := make([]any, len(params))
	for i, p := range params {
		args[i] = p.Arg()
	}
	return args
}
