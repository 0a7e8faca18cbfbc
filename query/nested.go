package query

import (
	"fmt"
	"strings"

	"github.com/syssam/prax/dialect"
	"github.com/syssam/prax/dialect/sql"
	"github.com/syssam/prax/filter"
)

// NestedOp is the operation a nested write applies to a relation field.
type NestedOp uint8

const (
	NestedCreate NestedOp = iota
	NestedCreateOrConnect
	NestedConnect
	NestedDisconnect
	NestedSet
	NestedDelete
	NestedDeleteMany
	NestedUpdate
	NestedUpsert
	NestedUpdateMany
)

var nestedOpNames = [...]string{
	NestedCreate:          "create",
	NestedCreateOrConnect: "create_or_connect",
	NestedConnect:         "connect",
	NestedDisconnect:      "disconnect",
	NestedSet:             "set",
	NestedDelete:          "delete",
	NestedDeleteMany:      "delete_many",
	NestedUpdate:          "update",
	NestedUpsert:          "upsert",
	NestedUpdateMany:      "update_many",
}

// String returns the operation name.
func (op NestedOp) String() string {
	if int(op) < len(nestedOpNames) {
		return nestedOpNames[op]
	}
	return fmt.Sprintf("NestedOp(%d)", uint8(op))
}

// NestedRow pairs a row filter with its write data, for nested update
// lists. Create rows leave Where nil.
type NestedRow struct {
	Where *filter.Filter
	Data  []SetColumn
}

// NestedUpsert carries the two payloads of a nested upsert row.
type NestedUpsertRow struct {
	Where  *filter.Filter
	Create []SetColumn
	Update []SetColumn
}

// NestedWrite is one operation on a relation field inside a create or
// update. Which payload field applies depends on Op: Filters addresses
// existing rows (connect, disconnect, set, delete), Rows carries creates
// and updates, Upserts carries upsert pairs, and Where/Data drive the
// many-row forms.
type NestedWrite struct {
	Field   string
	Op      NestedOp
	Filters []*filter.Filter
	Rows    []NestedRow
	Upserts []NestedUpsertRow
	Where   *filter.Filter
	Data    []SetColumn
}

// Relation scopes nested operations to one relation field of the parent
// builder and hands the parent back after each operation.
type Relation[Q any] struct {
	q      Q
	field  string
	writes *[]NestedWrite
}

func (r Relation[Q]) add(w NestedWrite) Q {
	w.Field = r.field
	*r.writes = append(*r.writes, w)
	return r.q
}

// Create inserts new related rows bound to the parent.
func (r Relation[Q]) Create(rows ...[]SetColumn) Q {
	w := NestedWrite{Op: NestedCreate}
	for _, data := range rows {
		w.Rows = append(w.Rows, NestedRow{Data: data})
	}
	return r.add(w)
}

// CreateOrConnect connects the row matching the filter, creating it from
// data first when it does not exist.
func (r Relation[Q]) CreateOrConnect(match *filter.Filter, data ...SetColumn) Q {
	return r.add(NestedWrite{Op: NestedCreateOrConnect, Where: match, Data: data})
}

// Connect links existing rows selected by the filters to the parent.
func (r Relation[Q]) Connect(filters ...*filter.Filter) Q {
	return r.add(NestedWrite{Op: NestedConnect, Filters: filters})
}

// Disconnect unlinks rows selected by the filters; with no filters it
// unlinks everything attached to the parent.
func (r Relation[Q]) Disconnect(filters ...*filter.Filter) Q {
	return r.add(NestedWrite{Op: NestedDisconnect, Filters: filters})
}

// Set replaces the parent's links with exactly the rows selected by the
// filters.
func (r Relation[Q]) Set(filters ...*filter.Filter) Q {
	return r.add(NestedWrite{Op: NestedSet, Filters: filters})
}

// Delete removes related rows selected by the filters.
func (r Relation[Q]) Delete(filters ...*filter.Filter) Q {
	return r.add(NestedWrite{Op: NestedDelete, Filters: filters})
}

// DeleteMany removes every related row matching the filter.
func (r Relation[Q]) DeleteMany(f *filter.Filter) Q {
	return r.add(NestedWrite{Op: NestedDeleteMany, Where: f})
}

// Update applies each row's data to the related rows matching its filter.
func (r Relation[Q]) Update(rows ...NestedRow) Q {
	return r.add(NestedWrite{Op: NestedUpdate, Rows: rows})
}

// Upsert updates each matching related row or creates it from the create
// payload.
func (r Relation[Q]) Upsert(rows ...NestedUpsertRow) Q {
	return r.add(NestedWrite{Op: NestedUpsert, Upserts: rows})
}

// UpdateMany applies data to every related row matching the filter.
func (r Relation[Q]) UpdateMany(f *filter.Filter, data ...SetColumn) Q {
	return r.add(NestedWrite{Op: NestedUpdateMany, Where: f, Data: data})
}

// parentRef marks an argument bound to a column of the parent row once the
// parent statement has produced it.
type parentRef struct {
	column string
}

// ParentRef returns a placeholder argument resolved to the named column of
// the parent row when a post-parent statement runs.
func ParentRef(column string) any {
	return parentRef{column: column}
}

type stmtKind uint8

const (
	stmtExec stmtKind = iota
	stmtInsert
	stmtQuery
)

// Stmt is one compiled auxiliary statement of a nested write.
type Stmt struct {
	SQL  string
	Args []any
	kind stmtKind
}

// FeedStmt is a pre-parent statement. When Column is set, the value of
// From in the statement's result row becomes a parent column assignment.
type FeedStmt struct {
	Stmt
	Column string
	From   string
}

// Expansion is the compiled form of a write's nested operations: Pre runs
// before the parent statement and may feed parent columns, Post runs after
// it with ParentRef arguments bound, ParentSets are static assignments
// merged into the parent's data.
type Expansion struct {
	Pre        []FeedStmt
	Post       []Stmt
	ParentSets []SetColumn
}

// Empty reports whether the expansion carries no work.
func (e *Expansion) Empty() bool {
	return len(e.Pre) == 0 && len(e.Post) == 0 && len(e.ParentSets) == 0
}

// Expand compiles nested writes against the parent model. The lookup
// resolves related models' descriptors; it may be nil, disabling child
// default injection.
func Expand(info *ModelInfo, lookup func(string) (*ModelInfo, bool), d string, writes []NestedWrite) (*Expansion, error) {
	x := &expander{info: info, lookup: lookup, dialect: d}
	for _, w := range writes {
		if err := x.write(w); err != nil {
			return nil, err
		}
	}
	return &x.out, nil
}

type expander struct {
	info    *ModelInfo
	lookup  func(string) (*ModelInfo, bool)
	dialect string
	out     Expansion
}

func (x *expander) write(w NestedWrite) error {
	rel, ok := x.info.Relation(w.Field)
	if !ok {
		return fmt.Errorf("model %s has no relation field %q", x.info.Name, w.Field)
	}
	switch {
	case rel.JoinTable != "":
		return x.join(rel, w)
	case rel.OwnsKey:
		return x.owning(rel, w)
	default:
		return x.list(rel, w)
	}
}

func (x *expander) unsupported(rel RelationInfo, w NestedWrite) error {
	return fmt.Errorf("nested %s is not supported on relation %s.%s", w.Op, x.info.Name, rel.Field)
}

// childData runs client-side default injection for a related model when
// its descriptor is known.
func (x *expander) childData(rel RelationInfo, data []SetColumn) ([]SetColumn, error) {
	if x.lookup == nil {
		return data, nil
	}
	child, ok := x.lookup(rel.Model)
	if !ok {
		return data, nil
	}
	return injectDefaults(child, data)
}

// owning handles relations whose foreign key sits on the parent row. The
// related row must exist before the parent writes, so creates and connects
// run pre-parent and feed the key column.
func (x *expander) owning(rel RelationInfo, w NestedWrite) error {
	switch w.Op {
	case NestedCreate:
		if len(w.Rows) != 1 {
			return fmt.Errorf("nested create on %s.%s takes exactly one row", x.info.Name, rel.Field)
		}
		data, err := x.childData(rel, w.Rows[0].Data)
		if err != nil {
			return err
		}
		x.out.Pre = append(x.out.Pre, FeedStmt{
			Stmt:   x.insertReturning(rel.Table, data, rel.References),
			Column: rel.ForeignKey,
			From:   rel.References,
		})
	case NestedConnect, NestedSet:
		if len(w.Filters) == 0 && w.Op == NestedSet {
			x.out.ParentSets = append(x.out.ParentSets, SetColumn{Column: rel.ForeignKey, Value: filter.Null()})
			return nil
		}
		if len(w.Filters) != 1 {
			return fmt.Errorf("nested %s on %s.%s takes exactly one filter", w.Op, x.info.Name, rel.Field)
		}
		x.out.Pre = append(x.out.Pre, FeedStmt{
			Stmt:   x.selectColumn(rel.Table, rel.References, w.Filters[0]),
			Column: rel.ForeignKey,
			From:   rel.References,
		})
	case NestedCreateOrConnect:
		data, err := x.childData(rel, w.Data)
		if err != nil {
			return err
		}
		x.out.Pre = append(x.out.Pre,
			FeedStmt{Stmt: x.insertIfAbsent(rel.Table, data, w.Where)},
			FeedStmt{
				Stmt:   x.selectColumn(rel.Table, rel.References, w.Where),
				Column: rel.ForeignKey,
				From:   rel.References,
			},
		)
	case NestedDisconnect:
		x.out.ParentSets = append(x.out.ParentSets, SetColumn{Column: rel.ForeignKey, Value: filter.Null()})
	case NestedUpdate:
		for _, row := range w.Rows {
			x.out.Post = append(x.out.Post, x.updateThroughParent(rel, row.Data, row.Where))
		}
	default:
		return x.unsupported(rel, w)
	}
	return nil
}

// list handles one-to-many relations: the foreign key sits on the related
// table and every statement runs after the parent row exists.
func (x *expander) list(rel RelationInfo, w NestedWrite) error {
	switch w.Op {
	case NestedCreate:
		for _, row := range w.Rows {
			data, err := x.childData(rel, row.Data)
			if err != nil {
				return err
			}
			x.out.Post = append(x.out.Post, x.insertChild(rel, data))
		}
	case NestedCreateOrConnect:
		data, err := x.childData(rel, w.Data)
		if err != nil {
			return err
		}
		x.out.Post = append(x.out.Post,
			x.insertIfAbsentWithLink(rel, data, w.Where),
			x.connectChildren(rel, w.Where),
		)
	case NestedConnect:
		for _, f := range w.Filters {
			x.out.Post = append(x.out.Post, x.connectChildren(rel, f))
		}
	case NestedDisconnect:
		if len(w.Filters) == 0 {
			x.out.Post = append(x.out.Post, x.disconnectChildren(rel, nil))
			return nil
		}
		for _, f := range w.Filters {
			x.out.Post = append(x.out.Post, x.disconnectChildren(rel, f))
		}
	case NestedSet:
		x.out.Post = append(x.out.Post, x.disconnectChildren(rel, nil))
		for _, f := range w.Filters {
			x.out.Post = append(x.out.Post, x.connectChildren(rel, f))
		}
	case NestedDelete:
		for _, f := range w.Filters {
			x.out.Post = append(x.out.Post, x.deleteChildren(rel, f))
		}
	case NestedDeleteMany:
		x.out.Post = append(x.out.Post, x.deleteChildren(rel, w.Where))
	case NestedUpdate:
		for _, row := range w.Rows {
			x.out.Post = append(x.out.Post, x.updateChildren(rel, row.Data, row.Where))
		}
	case NestedUpsert:
		for _, row := range w.Upserts {
			x.out.Post = append(x.out.Post, x.updateChildren(rel, row.Update, row.Where))
			create, err := x.childData(rel, row.Create)
			if err != nil {
				return err
			}
			x.out.Post = append(x.out.Post, x.insertIfAbsentLinked(rel, create, row.Where))
		}
	case NestedUpdateMany:
		x.out.Post = append(x.out.Post, x.updateChildren(rel, w.Data, w.Where))
	default:
		return x.unsupported(rel, w)
	}
	return nil
}

// join handles many-to-many relations through their join table. Membership
// is a pair row (JoinFrom, JoinTo); the child table is touched only by
// create, delete and update forms.
func (x *expander) join(rel RelationInfo, w NestedWrite) error {
	switch w.Op {
	case NestedCreate:
		for _, row := range w.Rows {
			data, err := x.childData(rel, row.Data)
			if err != nil {
				return err
			}
			id, ok := columnValue(data, rel.References)
			if !ok {
				return fmt.Errorf("nested create on %s.%s requires %q in the data; generated ids satisfy this",
					x.info.Name, rel.Field, rel.References)
			}
			x.out.Post = append(x.out.Post,
				x.insertReturning(rel.Table, data, "*"),
				x.linkValue(rel, id),
			)
		}
	case NestedCreateOrConnect:
		data, err := x.childData(rel, w.Data)
		if err != nil {
			return err
		}
		x.out.Post = append(x.out.Post,
			x.insertIfAbsent(rel.Table, data, w.Where),
			x.linkMatching(rel, w.Where),
		)
	case NestedConnect:
		for _, f := range w.Filters {
			x.out.Post = append(x.out.Post, x.linkMatching(rel, f))
		}
	case NestedDisconnect:
		if len(w.Filters) == 0 {
			x.out.Post = append(x.out.Post, x.unlinkAll(rel))
			return nil
		}
		for _, f := range w.Filters {
			x.out.Post = append(x.out.Post, x.unlinkMatching(rel, f))
		}
	case NestedSet:
		x.out.Post = append(x.out.Post, x.unlinkAll(rel))
		for _, f := range w.Filters {
			x.out.Post = append(x.out.Post, x.linkMatching(rel, f))
		}
	case NestedDelete:
		for _, f := range w.Filters {
			x.out.Post = append(x.out.Post, x.deleteMembers(rel, f))
		}
	case NestedDeleteMany:
		x.out.Post = append(x.out.Post, x.deleteMembers(rel, w.Where))
	case NestedUpdate:
		for _, row := range w.Rows {
			x.out.Post = append(x.out.Post, x.updateMembers(rel, row.Data, row.Where))
		}
	case NestedUpsert:
		for _, row := range w.Upserts {
			x.out.Post = append(x.out.Post, x.updateMembers(rel, row.Update, row.Where))
			create, err := x.childData(rel, row.Create)
			if err != nil {
				return err
			}
			id, ok := columnValue(create, rel.References)
			if !ok {
				return fmt.Errorf("nested upsert on %s.%s requires %q in the create data; generated ids satisfy this",
					x.info.Name, rel.Field, rel.References)
			}
			x.out.Post = append(x.out.Post,
				x.insertIfAbsent(rel.Table, create, row.Where),
				x.linkValue(rel, id),
			)
		}
	case NestedUpdateMany:
		x.out.Post = append(x.out.Post, x.updateMembers(rel, w.Data, w.Where))
	default:
		return x.unsupported(rel, w)
	}
	return nil
}

func columnValue(data []SetColumn, column string) (filter.Value, bool) {
	for _, c := range data {
		if c.Column == column {
			return c.Value, true
		}
	}
	return filter.Value{}, false
}

// stmtBuf assembles one statement with sequential dialect placeholders.
type stmtBuf struct {
	d    string
	sb   strings.Builder
	args []any
	n    int
}

func newStmt(d string) *stmtBuf { return &stmtBuf{d: d} }

func (b *stmtBuf) raw(s string) *stmtBuf {
	b.sb.WriteString(s)
	return b
}

func (b *stmtBuf) ident(name string) *stmtBuf {
	b.sb.WriteString(quoteQualified(b.d, name))
	return b
}

func (b *stmtBuf) arg(v any) *stmtBuf {
	b.n++
	b.sb.WriteString(dialect.Placeholder(b.d, b.n))
	b.args = append(b.args, v)
	return b
}

// cond renders a filter with the buffer's placeholder numbering.
func (b *stmtBuf) cond(f *filter.Filter) *stmtBuf {
	s, vals, next := f.ToSQL(b.d, b.n+1)
	b.sb.WriteString(s)
	b.args = append(b.args, filter.Args(vals)...)
	b.n = next - 1
	return b
}

// guarded renders "AND (<f>)" when the filter is live.
func (b *stmtBuf) guarded(f *filter.Filter) *stmtBuf {
	if f.IsNone() {
		return b
	}
	b.raw(" AND (")
	b.cond(f)
	return b.raw(")")
}

func (b *stmtBuf) stmt(kind stmtKind) Stmt {
	return Stmt{SQL: b.sb.String(), Args: b.args, kind: kind}
}

// insertReturning compiles INSERT INTO table (...) VALUES (...) with a
// returning clause, through the statement builder so each dialect gets its
// own returning form.
func (x *expander) insertReturning(table string, data []SetColumn, returning string) Stmt {
	cols := make([]string, len(data))
	vals := make([]any, len(data))
	for i, c := range data {
		cols[i] = c.Column
		vals[i] = c.Value.Arg()
	}
	ib := sql.Dialect(x.dialect).
		Insert(table).
		Columns(cols...).
		Values(vals...).
		Returning(returning)
	q, args := ib.Query()
	return Stmt{SQL: q, Args: args, kind: stmtInsert}
}

// insertChild compiles the nested-create insert of a list relation: the
// child row plus its key column bound to the parent.
func (x *expander) insertChild(rel RelationInfo, data []SetColumn) Stmt {
	cols := make([]string, 0, len(data)+1)
	vals := make([]any, 0, len(data)+1)
	for _, c := range data {
		cols = append(cols, c.Column)
		vals = append(vals, c.Value.Arg())
	}
	cols = append(cols, rel.ForeignKey)
	vals = append(vals, ParentRef(rel.References))
	ib := sql.Dialect(x.dialect).
		Insert(rel.Table).
		Columns(cols...).
		Values(vals...).
		Returning("*")
	q, args := ib.Query()
	return Stmt{SQL: q, Args: args, kind: stmtInsert}
}

// selectColumn compiles SELECT column FROM table WHERE f.
func (x *expander) selectColumn(table, column string, f *filter.Filter) Stmt {
	b := newStmt(x.dialect)
	b.raw("SELECT ").ident(column).raw(" FROM ").ident(table)
	if !f.IsNone() {
		b.raw(" WHERE ").cond(f)
	}
	return b.stmt(stmtQuery)
}

// insertIfAbsent compiles the conditional create of create-or-connect:
// INSERT ... SELECT values WHERE NOT EXISTS (match).
func (x *expander) insertIfAbsent(table string, data []SetColumn, match *filter.Filter) Stmt {
	b := newStmt(x.dialect)
	b.raw("INSERT INTO ").ident(table).raw(" (")
	for i, c := range data {
		if i > 0 {
			b.raw(", ")
		}
		b.ident(c.Column)
	}
	b.raw(") SELECT ")
	for i, c := range data {
		if i > 0 {
			b.raw(", ")
		}
		b.arg(c.Value.Arg())
	}
	if b.d == dialect.MySQL {
		b.raw(" FROM DUAL")
	}
	b.raw(" WHERE NOT EXISTS (SELECT 1 FROM ").ident(table)
	if !match.IsNone() {
		b.raw(" WHERE ").cond(match)
	}
	b.raw(")")
	return b.stmt(stmtExec)
}

// insertIfAbsentWithLink is insertIfAbsent for list relations: the child
// row carries its key column bound to the parent.
func (x *expander) insertIfAbsentWithLink(rel RelationInfo, data []SetColumn, match *filter.Filter) Stmt {
	b := newStmt(x.dialect)
	b.raw("INSERT INTO ").ident(rel.Table).raw(" (")
	for _, c := range data {
		b.ident(c.Column).raw(", ")
	}
	b.ident(rel.ForeignKey)
	b.raw(") SELECT ")
	for _, c := range data {
		b.arg(c.Value.Arg()).raw(", ")
	}
	b.arg(ParentRef(rel.References))
	if b.d == dialect.MySQL {
		b.raw(" FROM DUAL")
	}
	b.raw(" WHERE NOT EXISTS (SELECT 1 FROM ").ident(rel.Table)
	if !match.IsNone() {
		b.raw(" WHERE ").cond(match)
	}
	b.raw(")")
	return b.stmt(stmtExec)
}

// insertIfAbsentLinked is insertIfAbsent for list upserts: the absence
// check is scoped to rows already linked to the parent.
func (x *expander) insertIfAbsentLinked(rel RelationInfo, data []SetColumn, match *filter.Filter) Stmt {
	b := newStmt(x.dialect)
	b.raw("INSERT INTO ").ident(rel.Table).raw(" (")
	for _, c := range data {
		b.ident(c.Column).raw(", ")
	}
	b.ident(rel.ForeignKey)
	b.raw(") SELECT ")
	for _, c := range data {
		b.arg(c.Value.Arg()).raw(", ")
	}
	b.arg(ParentRef(rel.References))
	if b.d == dialect.MySQL {
		b.raw(" FROM DUAL")
	}
	b.raw(" WHERE NOT EXISTS (SELECT 1 FROM ").ident(rel.Table)
	b.raw(" WHERE ").ident(rel.ForeignKey).raw(" = ").arg(ParentRef(rel.References))
	b.guarded(match)
	b.raw(")")
	return b.stmt(stmtExec)
}

// connectChildren compiles UPDATE child SET fk = parent WHERE f.
func (x *expander) connectChildren(rel RelationInfo, f *filter.Filter) Stmt {
	b := newStmt(x.dialect)
	b.raw("UPDATE ").ident(rel.Table).raw(" SET ").ident(rel.ForeignKey).raw(" = ").arg(ParentRef(rel.References))
	if !f.IsNone() {
		b.raw(" WHERE ").cond(f)
	}
	return b.stmt(stmtExec)
}

// disconnectChildren compiles UPDATE child SET fk = NULL scoped to the
// parent's rows, optionally narrowed by a filter.
func (x *expander) disconnectChildren(rel RelationInfo, f *filter.Filter) Stmt {
	b := newStmt(x.dialect)
	b.raw("UPDATE ").ident(rel.Table).raw(" SET ").ident(rel.ForeignKey).raw(" = NULL")
	b.raw(" WHERE ").ident(rel.ForeignKey).raw(" = ").arg(ParentRef(rel.References))
	b.guarded(f)
	return b.stmt(stmtExec)
}

// deleteChildren compiles DELETE FROM child scoped to the parent's rows.
func (x *expander) deleteChildren(rel RelationInfo, f *filter.Filter) Stmt {
	b := newStmt(x.dialect)
	b.raw("DELETE FROM ").ident(rel.Table)
	b.raw(" WHERE ").ident(rel.ForeignKey).raw(" = ").arg(ParentRef(rel.References))
	b.guarded(f)
	return b.stmt(stmtExec)
}

// updateChildren compiles UPDATE child SET data scoped to the parent's
// rows.
func (x *expander) updateChildren(rel RelationInfo, data []SetColumn, f *filter.Filter) Stmt {
	b := newStmt(x.dialect)
	b.raw("UPDATE ").ident(rel.Table).raw(" SET ")
	for i, c := range data {
		if i > 0 {
			b.raw(", ")
		}
		b.ident(c.Column).raw(" = ")
		if c.Value.IsNull() {
			b.raw("NULL")
		} else {
			b.arg(c.Value.Arg())
		}
	}
	b.raw(" WHERE ").ident(rel.ForeignKey).raw(" = ").arg(ParentRef(rel.References))
	b.guarded(f)
	return b.stmt(stmtExec)
}

// updateThroughParent compiles the owning-side nested update: the related
// row is addressed through the parent's key column.
func (x *expander) updateThroughParent(rel RelationInfo, data []SetColumn, f *filter.Filter) Stmt {
	pk := "id"
	if len(x.info.PrimaryKey) > 0 {
		pk = x.info.PrimaryKey[0]
	}
	b := newStmt(x.dialect)
	b.raw("UPDATE ").ident(rel.Table).raw(" SET ")
	for i, c := range data {
		if i > 0 {
			b.raw(", ")
		}
		b.ident(c.Column).raw(" = ")
		if c.Value.IsNull() {
			b.raw("NULL")
		} else {
			b.arg(c.Value.Arg())
		}
	}
	b.raw(" WHERE ").ident(rel.References).raw(" = (SELECT ").ident(rel.ForeignKey)
	b.raw(" FROM ").ident(x.info.Table)
	b.raw(" WHERE ").ident(pk).raw(" = ").arg(ParentRef(pk))
	b.raw(")")
	b.guarded(f)
	return b.stmt(stmtExec)
}

// linkValue compiles the join-table insert of one known member id.
func (x *expander) linkValue(rel RelationInfo, id filter.Value) Stmt {
	b := newStmt(x.dialect)
	b.raw("INSERT ")
	if b.d == dialect.MySQL {
		b.raw("IGNORE ")
	}
	b.raw("INTO ").ident(rel.JoinTable)
	b.raw(" (").ident(rel.JoinFrom).raw(", ").ident(rel.JoinTo).raw(")")
	if b.d == dialect.MSSQL {
		b.raw(" SELECT ").arg(ParentRef(rel.ForeignKey)).raw(", ").arg(id.Arg())
		b.raw(" WHERE NOT EXISTS (SELECT 1 FROM ").ident(rel.JoinTable)
		b.raw(" WHERE ").ident(rel.JoinFrom).raw(" = ").arg(ParentRef(rel.ForeignKey))
		b.raw(" AND ").ident(rel.JoinTo).raw(" = ").arg(id.Arg())
		b.raw(")")
		return b.stmt(stmtExec)
	}
	b.raw(" VALUES (").arg(ParentRef(rel.ForeignKey)).raw(", ").arg(id.Arg()).raw(")")
	if b.d != dialect.MySQL {
		b.raw(" ON CONFLICT DO NOTHING")
	}
	return b.stmt(stmtExec)
}

// linkMatching compiles the join-table insert of every member matching the
// filter: INSERT INTO join SELECT parent, id FROM child WHERE f.
func (x *expander) linkMatching(rel RelationInfo, f *filter.Filter) Stmt {
	b := newStmt(x.dialect)
	b.raw("INSERT ")
	if b.d == dialect.MySQL {
		b.raw("IGNORE ")
	}
	b.raw("INTO ").ident(rel.JoinTable)
	b.raw(" (").ident(rel.JoinFrom).raw(", ").ident(rel.JoinTo).raw(")")
	b.raw(" SELECT ").arg(ParentRef(rel.ForeignKey)).raw(", ").ident(rel.References)
	b.raw(" FROM ").ident(rel.Table)
	b.raw(" WHERE ")
	if f.IsNone() {
		b.raw("1 = 1")
	} else {
		b.cond(f)
	}
	if b.d == dialect.MSSQL {
		b.raw(" AND NOT EXISTS (SELECT 1 FROM ").ident(rel.JoinTable)
		b.raw(" WHERE ").ident(rel.JoinFrom).raw(" = ").arg(ParentRef(rel.ForeignKey))
		b.raw(" AND ").ident(rel.JoinTo).raw(" = ").ident(rel.Table + "." + rel.References)
		b.raw(")")
	} else if b.d != dialect.MySQL {
		b.raw(" ON CONFLICT DO NOTHING")
	}
	return b.stmt(stmtExec)
}

// unlinkAll compiles DELETE FROM join for every member of the parent.
func (x *expander) unlinkAll(rel RelationInfo) Stmt {
	b := newStmt(x.dialect)
	b.raw("DELETE FROM ").ident(rel.JoinTable)
	b.raw(" WHERE ").ident(rel.JoinFrom).raw(" = ").arg(ParentRef(rel.ForeignKey))
	return b.stmt(stmtExec)
}

// unlinkMatching compiles DELETE FROM join for members matching the
// filter.
func (x *expander) unlinkMatching(rel RelationInfo, f *filter.Filter) Stmt {
	b := newStmt(x.dialect)
	b.raw("DELETE FROM ").ident(rel.JoinTable)
	b.raw(" WHERE ").ident(rel.JoinFrom).raw(" = ").arg(ParentRef(rel.ForeignKey))
	b.raw(" AND ").ident(rel.JoinTo).raw(" IN (SELECT ").ident(rel.References)
	b.raw(" FROM ").ident(rel.Table)
	if !f.IsNone() {
		b.raw(" WHERE ").cond(f)
	}
	b.raw(")")
	return b.stmt(stmtExec)
}

// deleteMembers compiles DELETE FROM child for members matching the
// filter. The join rows cascade with the child rows; the generated join
// tables carry ON DELETE CASCADE on both key columns.
func (x *expander) deleteMembers(rel RelationInfo, f *filter.Filter) Stmt {
	b := newStmt(x.dialect)
	b.raw("DELETE FROM ").ident(rel.Table)
	b.raw(" WHERE ").ident(rel.References).raw(" IN (SELECT ").ident(rel.JoinTo)
	b.raw(" FROM ").ident(rel.JoinTable)
	b.raw(" WHERE ").ident(rel.JoinFrom).raw(" = ").arg(ParentRef(rel.ForeignKey))
	b.raw(")")
	b.guarded(f)
	return b.stmt(stmtExec)
}

// updateMembers compiles UPDATE child for members matching the filter.
func (x *expander) updateMembers(rel RelationInfo, data []SetColumn, f *filter.Filter) Stmt {
	b := newStmt(x.dialect)
	b.raw("UPDATE ").ident(rel.Table).raw(" SET ")
	for i, c := range data {
		if i > 0 {
			b.raw(", ")
		}
		b.ident(c.Column).raw(" = ")
		if c.Value.IsNull() {
			b.raw("NULL")
		} else {
			b.arg(c.Value.Arg())
		}
	}
	b.raw(" WHERE ").ident(rel.References).raw(" IN (SELECT ").ident(rel.JoinTo)
	b.raw(" FROM ").ident(rel.JoinTable)
	b.raw(" WHERE ").ident(rel.JoinFrom).raw(" = ").arg(ParentRef(rel.ForeignKey))
	b.raw(")")
	b.guarded(f)
	return b.stmt(stmtExec)
}
