package query

import (
	"context"
	"errors"

	"github.com/syssam/prax"
	"github.com/syssam/prax/dialect"
	"github.com/syssam/prax/schema"
)

// ViewInfo is the runtime description of one view's projection. Views carry
// no keys, relations or defaults; their handles expose the read builders
// only.
type ViewInfo struct {
	Name         string
	Table        string
	Columns      []string
	Materialized bool
}

// ViewFromSchema derives the ViewInfo of one view from a validated schema.
func ViewFromSchema(s *schema.Schema, view string) (*ViewInfo, bool) {
	v, ok := s.View(view)
	if !ok {
		return nil, false
	}
	info := &ViewInfo{
		Name:         v.Name,
		Table:        schema.ViewName(v),
		Materialized: v.Materialized(),
	}
	for _, f := range v.Fields {
		if !f.IsRelation() {
			info.Columns = append(info.Columns, schema.ColumnName(f))
		}
	}
	return info, true
}

// View binds one view's read builders to an engine and a dialect. There are
// no write builders; the type system is what keeps views read-only.
type View struct {
	info  *ViewInfo
	model *Model
}

// NewView returns a handle for info executing on engine in the given
// dialect.
func NewView(info *ViewInfo, engine QueryEngine, d string) *View {
	m := NewModel(&ModelInfo{Name: info.Name, Table: info.Table, Columns: info.Columns}, engine, d)
	return &View{info: info, model: m}
}

// Info returns the view descriptor.
func (v *View) Info() *ViewInfo { return v.info }

// FindMany starts a listing query over the view.
func (v *View) FindMany() *FindManyQuery { return v.model.FindMany() }

// FindFirst starts a query returning the first match, if any.
func (v *View) FindFirst() *FindFirstQuery { return v.model.FindFirst() }

// Count starts a counting query over the view.
func (v *View) Count() *CountQuery { return v.model.Count() }

// Aggregate starts an aggregation query over the view.
func (v *View) Aggregate() *AggregateQuery { return v.model.Aggregate() }

// Refresh re-materializes the view. On backends with a native REFRESH
// MATERIALIZED VIEW statement it runs directly; elsewhere the engine's
// refresh hook takes over. A concurrent refresh keeps the view readable
// while it rebuilds, where the backend supports that.
func (v *View) Refresh(ctx context.Context, concurrent bool) error {
	if !v.info.Materialized {
		return prax.NewQueryError(v.info.Name, "refresh", errors.New("view is not materialized"))
	}
	d := v.model.dialect
	switch d {
	case dialect.Postgres, dialect.DuckDB:
		b := newStmt(d)
		b.raw("REFRESH MATERIALIZED VIEW ")
		if concurrent && d == dialect.Postgres {
			b.raw("CONCURRENTLY ")
		}
		b.ident(v.info.Table)
		st := b.stmt(stmtExec)
		if _, err := v.model.engine.ExecRaw(ctx, st.SQL, st.Args); err != nil {
			return prax.NewQueryError(v.info.Name, "refresh", err)
		}
		return nil
	}
	if err := v.model.engine.RefreshMaterializedView(ctx, v.info.Table, concurrent); err != nil {
		return prax.NewQueryError(v.info.Name, "refresh", err)
	}
	return nil
}
