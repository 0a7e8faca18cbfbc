package query

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/syssam/prax"
	"github.com/syssam/prax/dialect"
	"github.com/syssam/prax/dialect/sql"
	"github.com/syssam/prax/filter"
	"github.com/syssam/prax/schema"
)

// SetColumn is one column assignment of a write.
type SetColumn struct {
	Column string
	Value  filter.Value
}

// Set builds a column assignment, coercing v with filter.ValueOf. Set with
// a nil value assigns NULL.
func Set(column string, v any) SetColumn {
	return SetColumn{Column: column, Value: filter.ValueOf(v)}
}

// Data collects assignments into one payload, for nested writes and the
// Data methods of the builders.
func Data(cols ...SetColumn) []SetColumn {
	return cols
}

// setColumn assigns a column, replacing a prior assignment of the same
// column.
func setColumn(data []SetColumn, c SetColumn) []SetColumn {
	for i, e := range data {
		if e.Column == c.Column {
			data[i] = c
			return data
		}
	}
	return append(data, c)
}

// injectDefaults fills the client-generated defaults the data does not set.
// Database-evaluated defaults stay with the database.
func injectDefaults(info *ModelInfo, data []SetColumn) ([]SetColumn, error) {
	for _, d := range info.Defaults {
		if _, ok := columnValue(data, d.Column); ok {
			continue
		}
		gen, ok := schema.GeneratorFor(d.Func)
		if !ok {
			continue
		}
		id, err := gen()
		if err != nil {
			return nil, err
		}
		data = append(data, SetColumn{Column: d.Column, Value: filter.String(id)})
	}
	return data, nil
}

// WithRelated registers related models' descriptors so nested writes can
// inject their client-generated defaults. Generated clients register every
// relation target; without a descriptor the related data passes through
// untouched.
func (m *Model) WithRelated(infos ...*ModelInfo) *Model {
	if m.related == nil {
		m.related = make(map[string]*ModelInfo, len(infos))
	}
	for _, info := range infos {
		m.related[info.Name] = info
	}
	return m
}

func (m *Model) lookup(name string) (*ModelInfo, bool) {
	info, ok := m.related[name]
	return info, ok
}

// Create starts an insert.
func (m *Model) Create() *CreateQuery {
	return &CreateQuery{write: write{model: m, op: "create"}}
}

// Update starts a single-row update addressed by a unique filter.
func (m *Model) Update() *UpdateQuery {
	return &UpdateQuery{write: write{model: m, op: "update"}}
}

// UpdateMany starts a filtered bulk update.
func (m *Model) UpdateMany() *UpdateManyQuery {
	return &UpdateManyQuery{write: write{model: m, op: "update_many"}}
}

// Upsert starts an update-or-create addressed by a unique filter.
func (m *Model) Upsert() *UpsertQuery {
	return &UpsertQuery{write: write{model: m, op: "upsert"}}
}

// Delete starts a single-row delete addressed by a unique filter.
func (m *Model) Delete() *DeleteQuery {
	return &DeleteQuery{write: write{model: m, op: "delete"}}
}

// DeleteMany starts a filtered bulk delete.
func (m *Model) DeleteMany() *DeleteManyQuery {
	return &DeleteManyQuery{write: write{model: m, op: "delete_many"}}
}

// write is the accumulation shared by every write-side builder.
type write struct {
	model  *Model
	op     string
	where  *filter.Filter
	data   []SetColumn
	nested []NestedWrite
	errs   []error
}

func (w *write) addWhere(f *filter.Filter) {
	w.where = filter.And(w.where, f)
}

func (w *write) addSet(c SetColumn) {
	if !w.model.info.Column(c.Column) {
		w.errs = append(w.errs, fmt.Errorf("unknown column %q on model %s", c.Column, w.model.info.Name))
		return
	}
	w.data = append(w.data, c)
}

// checkFields walks the filter and flags columns the model does not have,
// mirroring the read-side check.
func (w *write) checkFields(f *filter.Filter) {
	if f.IsNone() {
		return
	}
	if f.Field != "" && !strings.ContainsRune(f.Field, '.') && !w.model.info.Column(f.Field) {
		w.errs = append(w.errs, fmt.Errorf("unknown column %q on model %s", f.Field, w.model.info.Name))
	}
	for _, c := range f.Children {
		w.checkFields(c)
	}
}

func (w *write) check() error {
	if len(w.errs) > 0 {
		return prax.NewAggregateError(w.errs...)
	}
	return nil
}

// wrapErr wraps failures in a mutation error. Not-found and not-singular
// results pass through untouched so callers can match them directly.
func (w *write) wrapErr(err error) error {
	if err == nil || prax.IsNotFound(err) || prax.IsNotSingular(err) {
		return err
	}
	return prax.NewMutationError(w.model.info.Name, w.op, err)
}

// expand compiles the accumulated nested writes.
func (w *write) expand() (*Expansion, error) {
	return Expand(w.model.info, w.model.lookup, w.model.dialect, w.nested)
}

// CreateQuery inserts one row, with its nested relation writes scoped to a
// transaction when the engine can open one.
type CreateQuery struct {
	write write
}

// Set assigns a column. A nil value assigns NULL.
func (q *CreateQuery) Set(column string, v any) *CreateQuery {
	q.write.addSet(Set(column, v))
	return q
}

// SetNull assigns NULL to a column.
func (q *CreateQuery) SetNull(column string) *CreateQuery {
	q.write.addSet(SetColumn{Column: column})
	return q
}

// Data appends a payload of assignments.
func (q *CreateQuery) Data(cols ...SetColumn) *CreateQuery {
	for _, c := range cols {
		q.write.addSet(c)
	}
	return q
}

// Relation scopes nested writes to a relation field.
func (q *CreateQuery) Relation(field string) Relation[*CreateQuery] {
	return Relation[*CreateQuery]{q: q, field: field, writes: &q.write.nested}
}

// Exec runs the insert and returns the written row.
func (q *CreateQuery) Exec(ctx context.Context) (Row, error) {
	w := &q.write
	if err := w.check(); err != nil {
		return Row{}, w.wrapErr(err)
	}
	data, err := injectDefaults(w.model.info, w.data)
	if err != nil {
		return Row{}, w.wrapErr(err)
	}
	exp, err := w.expand()
	if err != nil {
		return Row{}, w.wrapErr(err)
	}
	for _, s := range exp.ParentSets {
		data = setColumn(data, s)
	}

	r, err := newRunner(ctx, w.model.engine, !exp.Empty())
	if err != nil {
		return Row{}, w.wrapErr(err)
	}
	row, err := q.run(ctx, r, data, exp)
	if err = r.finish(err); err != nil {
		return Row{}, w.wrapErr(err)
	}
	return row, nil
}

func (q *CreateQuery) run(ctx context.Context, r *runner, data []SetColumn, exp *Expansion) (Row, error) {
	m := q.write.model
	data, err := r.runPre(ctx, exp.Pre, data)
	if err != nil {
		return Row{}, err
	}
	if len(data) == 0 {
		return Row{}, errors.New("create with no column data")
	}
	stmt, args, err := insertStmt(m.dialect, m.info.Table, data)
	if err != nil {
		return Row{}, err
	}
	row, err := r.eng.ExecInsert(ctx, stmt, args)
	if err != nil {
		return Row{}, err
	}
	if !dialect.SupportsReturning(m.dialect) && m.dialect != dialect.MSSQL {
		if row, err = q.readBack(ctx, r, data, row); err != nil {
			return Row{}, err
		}
	}
	if err := r.runPost(ctx, exp.Post, parentResolver(row, data, nil)); err != nil {
		return Row{}, err
	}
	return row, nil
}

// readBack reads the created row on backends whose INSERT cannot return
// it. The key is the primary key from the input data when the client
// generated it, or the backend-assigned id the engine reported.
func (q *CreateQuery) readBack(ctx context.Context, r *runner, data []SetColumn, inserted Row) (Row, error) {
	m := q.write.model
	if len(m.info.PrimaryKey) == 0 {
		return inserted, nil
	}
	b := newStmt(m.dialect)
	b.raw("SELECT * FROM ").ident(m.info.Table).raw(" WHERE ")
	for i, col := range m.info.PrimaryKey {
		if i > 0 {
			b.raw(" AND ")
		}
		if v, ok := columnValue(data, col); ok {
			b.ident(col).raw(" = ").arg(v.Arg())
			continue
		}
		id, ok := inserted.Get(LastInsertColumn)
		if !ok {
			return inserted, nil
		}
		b.ident(col).raw(" = ").arg(id)
	}
	st := b.stmt(stmtQuery)
	row, ok, err := r.eng.QueryOptional(ctx, st.SQL, st.Args)
	if err != nil {
		return Row{}, err
	}
	if !ok {
		return Row{}, prax.NewNotFoundError(m.info.Name)
	}
	return row, nil
}

// UpdateQuery updates the single row addressed by a unique filter and
// returns it. Execution reports a not-found error when the row does not
// exist.
type UpdateQuery struct {
	write write
}

// Where sets the unique filter. Repeated calls combine with AND.
func (q *UpdateQuery) Where(f *filter.Filter) *UpdateQuery {
	q.write.addWhere(f)
	return q
}

// Set assigns a column. A nil value assigns NULL.
func (q *UpdateQuery) Set(column string, v any) *UpdateQuery {
	q.write.addSet(Set(column, v))
	return q
}

// SetNull assigns NULL to a column.
func (q *UpdateQuery) SetNull(column string) *UpdateQuery {
	q.write.addSet(SetColumn{Column: column})
	return q
}

// Data appends a payload of assignments.
func (q *UpdateQuery) Data(cols ...SetColumn) *UpdateQuery {
	for _, c := range cols {
		q.write.addSet(c)
	}
	return q
}

// Relation scopes nested writes to a relation field.
func (q *UpdateQuery) Relation(field string) Relation[*UpdateQuery] {
	return Relation[*UpdateQuery]{q: q, field: field, writes: &q.write.nested}
}

// Exec runs the update and returns the stored row.
func (q *UpdateQuery) Exec(ctx context.Context) (Row, error) {
	w := &q.write
	if err := w.check(); err != nil {
		return Row{}, w.wrapErr(err)
	}
	if err := uniqueFilter(w.model.info, w.where); err != nil {
		return Row{}, w.wrapErr(err)
	}
	exp, err := w.expand()
	if err != nil {
		return Row{}, w.wrapErr(err)
	}
	data := w.data
	for _, s := range exp.ParentSets {
		data = setColumn(data, s)
	}
	if len(data) == 0 && exp.Empty() {
		return Row{}, w.wrapErr(errors.New("update with no assignments"))
	}

	r, err := newRunner(ctx, w.model.engine, !exp.Empty())
	if err != nil {
		return Row{}, w.wrapErr(err)
	}
	row, err := q.run(ctx, r, data, exp)
	if err = r.finish(err); err != nil {
		return Row{}, w.wrapErr(err)
	}
	return row, nil
}

func (q *UpdateQuery) run(ctx context.Context, r *runner, data []SetColumn, exp *Expansion) (Row, error) {
	data, err := r.runPre(ctx, exp.Pre, data)
	if err != nil {
		return Row{}, err
	}
	var row Row
	if len(data) == 0 {
		// Nested operations only, the parent row itself is untouched.
		row, err = q.fetchParent(ctx, r)
	} else {
		row, err = q.updateParent(ctx, r, data)
	}
	if err != nil {
		return Row{}, err
	}
	if err := r.runPost(ctx, exp.Post, parentResolver(row, data, q.write.where)); err != nil {
		return Row{}, err
	}
	return row, nil
}

// updateParent compiles and runs the parent UPDATE. On backends with a
// returning mechanism the stored row comes straight back; elsewhere a
// follow-up read fetches it through the unique columns, taking rewritten
// values from the data.
func (q *UpdateQuery) updateParent(ctx context.Context, r *runner, data []SetColumn) (Row, error) {
	m := q.write.model
	ub := sql.Dialect(m.dialect).Update(m.info.Table)
	for _, c := range data {
		ub.Set(c.Column, c.Value.Arg())
	}
	cond, vals, _ := q.write.where.ToSQL(m.dialect, len(data)+1)
	ub.Where(sql.ExprP(cond, filter.Args(vals)...))
	ub.Returning("*")
	stmt, args := ub.Query()
	if err := ub.Err(); err != nil {
		return Row{}, err
	}
	rows, err := r.eng.ExecUpdate(ctx, stmt, args)
	if err != nil {
		return Row{}, err
	}
	if len(rows) > 0 {
		return rows[0], nil
	}
	if dialect.SupportsReturning(m.dialect) {
		return Row{}, prax.NewNotFoundError(m.info.Name)
	}
	return q.readBack(ctx, r, data)
}

func (q *UpdateQuery) readBack(ctx context.Context, r *runner, data []SetColumn) (Row, error) {
	m := q.write.model
	cols, _ := equalityColumns(q.write.where)
	b := newStmt(m.dialect)
	b.raw("SELECT * FROM ").ident(m.info.Table).raw(" WHERE ")
	for i, col := range cols {
		if i > 0 {
			b.raw(" AND ")
		}
		v, ok := columnValue(data, col)
		if !ok {
			v, _ = equalityValue(q.write.where, col)
		}
		b.ident(col).raw(" = ").arg(v.Arg())
	}
	st := b.stmt(stmtQuery)
	row, ok, err := r.eng.QueryOptional(ctx, st.SQL, st.Args)
	if err != nil {
		return Row{}, err
	}
	if !ok {
		return Row{}, prax.NewNotFoundError(m.info.Name)
	}
	return row, nil
}

// fetchParent reads the parent row when the update carries nested
// operations but no column data.
func (q *UpdateQuery) fetchParent(ctx context.Context, r *runner) (Row, error) {
	m := q.write.model
	sel := sql.Dialect(m.dialect).Select().From(sql.Table(m.info.Table))
	cond, vals, _ := q.write.where.ToSQL(m.dialect, 1)
	sel.Where(sql.ExprP(cond, filter.Args(vals)...))
	stmt, args := sel.Query()
	if err := sel.Err(); err != nil {
		return Row{}, err
	}
	row, ok, err := r.eng.QueryOptional(ctx, stmt, args)
	if err != nil {
		return Row{}, err
	}
	if !ok {
		return Row{}, prax.NewNotFoundError(m.info.Name)
	}
	return row, nil
}

// UpdateManyQuery updates every row matching the filter and reports the
// count. It takes no nested writes.
type UpdateManyQuery struct {
	write write
}

// Where narrows the update. Repeated calls combine with AND.
func (q *UpdateManyQuery) Where(f *filter.Filter) *UpdateManyQuery {
	q.write.addWhere(f)
	return q
}

// Set assigns a column. A nil value assigns NULL.
func (q *UpdateManyQuery) Set(column string, v any) *UpdateManyQuery {
	q.write.addSet(Set(column, v))
	return q
}

// SetNull assigns NULL to a column.
func (q *UpdateManyQuery) SetNull(column string) *UpdateManyQuery {
	q.write.addSet(SetColumn{Column: column})
	return q
}

// Data appends a payload of assignments.
func (q *UpdateManyQuery) Data(cols ...SetColumn) *UpdateManyQuery {
	for _, c := range cols {
		q.write.addSet(c)
	}
	return q
}

// Exec runs the update and returns the number of rows written.
func (q *UpdateManyQuery) Exec(ctx context.Context) (int64, error) {
	w := &q.write
	w.checkFields(w.where)
	if err := w.check(); err != nil {
		return 0, w.wrapErr(err)
	}
	if len(w.data) == 0 {
		return 0, w.wrapErr(errors.New("update with no assignments"))
	}
	m := w.model
	ub := sql.Dialect(m.dialect).Update(m.info.Table)
	for _, c := range w.data {
		ub.Set(c.Column, c.Value.Arg())
	}
	if !w.where.IsNone() {
		cond, vals, _ := w.where.ToSQL(m.dialect, len(w.data)+1)
		ub.Where(sql.ExprP(cond, filter.Args(vals)...))
	}
	stmt, args := ub.Query()
	if err := ub.Err(); err != nil {
		return 0, w.wrapErr(err)
	}
	n, err := m.engine.ExecRaw(ctx, stmt, args)
	if err != nil {
		return 0, w.wrapErr(err)
	}
	return n, nil
}

// UpsertQuery inserts a row or updates the existing one conflicting with it
// on a unique column set, as a single statement. It takes no nested writes;
// the single-statement form is what keeps it atomic without a transaction.
type UpsertQuery struct {
	write   write
	create  []SetColumn
	update  []SetColumn
	targets []string
}

// Where sets the unique filter addressing the row. Its equality pairs seed
// the create payload and, unless Conflict overrides them, the conflict
// target columns.
func (q *UpsertQuery) Where(f *filter.Filter) *UpsertQuery {
	q.write.addWhere(f)
	return q
}

// Create appends assignments applied when the row does not exist.
func (q *UpsertQuery) Create(cols ...SetColumn) *UpsertQuery {
	q.create = append(q.create, cols...)
	return q
}

// Update appends assignments applied when the row exists. Without any the
// conflict action rewrites the target columns with their incoming values,
// so the statement still reports the stored row.
func (q *UpsertQuery) Update(cols ...SetColumn) *UpsertQuery {
	q.update = append(q.update, cols...)
	return q
}

// Conflict overrides the conflict target columns derived from the filter.
func (q *UpsertQuery) Conflict(columns ...string) *UpsertQuery {
	q.targets = append(q.targets, columns...)
	return q
}

// Exec runs the upsert and returns the stored row.
func (q *UpsertQuery) Exec(ctx context.Context) (Row, error) {
	w := &q.write
	if err := w.check(); err != nil {
		return Row{}, w.wrapErr(err)
	}
	m := w.model
	cols, _ := equalityColumns(w.where)
	targets := q.targets
	if len(targets) == 0 {
		if err := uniqueFilter(m.info, w.where); err != nil {
			return Row{}, w.wrapErr(err)
		}
		targets = cols
	}

	create := slices.Clone(q.create)
	for _, col := range cols {
		if _, ok := columnValue(create, col); !ok {
			v, _ := equalityValue(w.where, col)
			create = append(create, SetColumn{Column: col, Value: v})
		}
	}
	create, err := injectDefaults(m.info, create)
	if err != nil {
		return Row{}, w.wrapErr(err)
	}

	columns := make([]string, len(create))
	values := make([]any, len(create))
	for i, c := range create {
		columns[i] = c.Column
		values[i] = c.Value.Arg()
	}
	ib := sql.Dialect(m.dialect).
		Insert(m.info.Table).
		Columns(columns...).
		Values(values...)
	if len(q.update) == 0 {
		ib.OnConflictUpdate(targets, targets...)
	} else {
		for _, c := range q.update {
			ib.OnConflictSet(targets, c.Column, c.Value.Arg())
		}
	}
	ib.Returning("*")
	stmt, args := ib.Query()
	if err := ib.Err(); err != nil {
		return Row{}, w.wrapErr(err)
	}
	row, err := m.engine.ExecInsert(ctx, stmt, args)
	if err != nil {
		return Row{}, w.wrapErr(err)
	}
	return row, nil
}

// DeleteQuery deletes the single row addressed by a unique filter.
// Execution reports a not-found error when the row does not exist and a
// not-singular error when more than one row matched.
type DeleteQuery struct {
	write write
}

// Where sets the unique filter. Repeated calls combine with AND.
func (q *DeleteQuery) Where(f *filter.Filter) *DeleteQuery {
	q.write.addWhere(f)
	return q
}

// Exec runs the delete.
func (q *DeleteQuery) Exec(ctx context.Context) error {
	w := &q.write
	if err := w.check(); err != nil {
		return w.wrapErr(err)
	}
	m := w.model
	if err := uniqueFilter(m.info, w.where); err != nil {
		return w.wrapErr(err)
	}
	cond, vals, _ := w.where.ToSQL(m.dialect, 1)
	db := sql.Dialect(m.dialect).
		Delete(m.info.Table).
		Where(sql.ExprP(cond, filter.Args(vals)...))
	stmt, args := db.Query()
	if err := db.Err(); err != nil {
		return w.wrapErr(err)
	}
	n, err := m.engine.ExecDelete(ctx, stmt, args)
	if err != nil {
		return w.wrapErr(err)
	}
	switch {
	case n == 0:
		return prax.NewNotFoundError(m.info.Name)
	case n > 1:
		return prax.NewNotSingularErrorWithCount(m.info.Name, int(n))
	}
	return nil
}

// DeleteManyQuery deletes every row matching the filter and reports the
// count.
type DeleteManyQuery struct {
	write write
}

// Where narrows the delete. Repeated calls combine with AND.
func (q *DeleteManyQuery) Where(f *filter.Filter) *DeleteManyQuery {
	q.write.addWhere(f)
	return q
}

// Exec runs the delete and returns the number of rows removed.
func (q *DeleteManyQuery) Exec(ctx context.Context) (int64, error) {
	w := &q.write
	w.checkFields(w.where)
	if err := w.check(); err != nil {
		return 0, w.wrapErr(err)
	}
	m := w.model
	db := sql.Dialect(m.dialect).Delete(m.info.Table)
	if !w.where.IsNone() {
		cond, vals, _ := w.where.ToSQL(m.dialect, 1)
		db.Where(sql.ExprP(cond, filter.Args(vals)...))
	}
	stmt, args := db.Query()
	if err := db.Err(); err != nil {
		return 0, w.wrapErr(err)
	}
	n, err := m.engine.ExecDelete(ctx, stmt, args)
	if err != nil {
		return 0, w.wrapErr(err)
	}
	return n, nil
}

// insertStmt compiles the parent INSERT with every column returned.
func insertStmt(d, table string, data []SetColumn) (string, []any, error) {
	columns := make([]string, len(data))
	values := make([]any, len(data))
	for i, c := range data {
		columns[i] = c.Column
		values[i] = c.Value.Arg()
	}
	ib := sql.Dialect(d).
		Insert(table).
		Columns(columns...).
		Values(values...).
		Returning("*")
	stmt, args := ib.Query()
	return stmt, args, ib.Err()
}

// equalityValue finds the value an equality conjunction binds to a column.
func equalityValue(f *filter.Filter, column string) (filter.Value, bool) {
	if f.IsNone() {
		return filter.Value{}, false
	}
	switch f.Op {
	case filter.OpEquals:
		if f.Field == column {
			return f.Value, true
		}
	case filter.OpAnd:
		for _, c := range f.Children {
			if v, ok := equalityValue(c, column); ok {
				return v, true
			}
		}
	}
	return filter.Value{}, false
}

// runner executes the phases of a write, inside one transaction when the
// engine can open one and the write needs more than the parent statement.
type runner struct {
	eng QueryEngine
	tx  TxEngine
}

func newRunner(ctx context.Context, eng QueryEngine, needTx bool) (*runner, error) {
	r := &runner{eng: eng}
	if !needTx {
		return r, nil
	}
	if tb, ok := eng.(TxBeginner); ok {
		tx, err := tb.BeginTx(ctx)
		if err != nil {
			return nil, err
		}
		r.eng, r.tx = tx, tx
	}
	return r, nil
}

// finish settles the transaction: commit on success, rollback on failure.
func (r *runner) finish(err error) error {
	if r.tx == nil {
		return err
	}
	if err != nil {
		if rerr := r.tx.Rollback(); rerr != nil {
			return errors.Join(err, &prax.RollbackError{Err: rerr})
		}
		return err
	}
	return r.tx.Commit()
}

// runPre executes the pre-parent statements, appending fed columns to the
// parent data.
func (r *runner) runPre(ctx context.Context, pre []FeedStmt, data []SetColumn) ([]SetColumn, error) {
	for _, fs := range pre {
		var (
			row Row
			err error
		)
		switch fs.kind {
		case stmtInsert:
			row, err = r.eng.ExecInsert(ctx, fs.SQL, fs.Args)
		case stmtQuery:
			row, err = r.eng.QueryOne(ctx, fs.SQL, fs.Args)
		default:
			_, err = r.eng.ExecRaw(ctx, fs.SQL, fs.Args)
		}
		if err != nil {
			return nil, err
		}
		if fs.Column == "" {
			continue
		}
		v, ok := row.Get(fs.From)
		if !ok {
			return nil, fmt.Errorf("related write did not return column %q", fs.From)
		}
		data = setColumn(data, SetColumn{Column: fs.Column, Value: filter.ValueOf(v)})
	}
	return data, nil
}

// runPost executes the post-parent statements with parent references bound.
func (r *runner) runPost(ctx context.Context, post []Stmt, parent func(string) (any, bool)) error {
	for _, st := range post {
		args, err := bindParent(st.Args, parent)
		if err != nil {
			return err
		}
		if st.kind == stmtInsert {
			if _, err := r.eng.ExecInsert(ctx, st.SQL, args); err != nil {
				return err
			}
			continue
		}
		if _, err := r.eng.ExecRaw(ctx, st.SQL, args); err != nil {
			return err
		}
	}
	return nil
}

// bindParent substitutes parent reference arguments with resolved values.
func bindParent(args []any, parent func(string) (any, bool)) ([]any, error) {
	out := slices.Clone(args)
	for i, a := range out {
		ref, ok := a.(parentRef)
		if !ok {
			continue
		}
		v, ok := parent(ref.column)
		if !ok {
			return nil, fmt.Errorf("parent row has no column %q for a nested write", ref.column)
		}
		out[i] = v
	}
	return out, nil
}

// parentResolver resolves parent columns from the stored row first, then
// from the written data, then from the unique filter's equality pairs.
func parentResolver(row Row, data []SetColumn, where *filter.Filter) func(string) (any, bool) {
	return func(column string) (any, bool) {
		if v, ok := row.Get(column); ok {
			return v, true
		}
		if v, ok := columnValue(data, column); ok {
			return v.Arg(), true
		}
		if v, ok := equalityValue(where, column); ok {
			return v.Arg(), true
		}
		return nil, false
	}
}
