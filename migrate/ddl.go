package migrate

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/syssam/prax/dialect"
	"github.com/syssam/prax/graph"
	"github.com/syssam/prax/schema"
)

// DDL renders a diff into up and down SQL scripts for the given dialect.
// Tables are created in dependency order and dropped in reverse; views drop
// before and recreate after the table changes they may select from;
// self-referential foreign keys are added after their table exists on
// dialects that cannot inline them. The down script is the exact reverse of
// the up script.
//
// Changes a dialect cannot express (altering columns on SQLite, removing
// Postgres enum values, rewriting inline enum checks) fail with an error
// instead of producing a lossy script.
func DDL(d string, diff *SchemaDiff) (up, down string, err error) {
	if err := dialect.Validate(d); err != nil {
		return "", "", err
	}
	source, target := diff.Source, diff.Target
	if source == nil {
		source = &schema.Schema{}
	}
	if target == nil {
		target = &schema.Schema{}
	}
	w := &ddlWriter{dialect: d, diff: diff, source: source, target: target}
	if err := w.run(); err != nil {
		return "", "", err
	}
	return strings.Join(w.up, "\n"), strings.Join(w.down, "\n"), nil
}

type ddlWriter struct {
	dialect string
	diff    *SchemaDiff
	source  *schema.Schema
	target  *schema.Schema

	up   []string
	down []string
}

// step records one action: its up statements appended in order, its down
// statements prepended so the down script reverses the up script.
func (w *ddlWriter) step(up, down []string) {
	w.up = append(w.up, up...)
	w.down = append(append([]string{}, down...), w.down...)
}

func (w *ddlWriter) run() error {
	created := make(map[string]bool, len(w.diff.CreatedModels))
	for _, m := range w.diff.CreatedModels {
		created[m.Name] = true
	}
	dropped := make(map[string]bool, len(w.diff.DroppedModels))
	for _, m := range w.diff.DroppedModels {
		dropped[m.Name] = true
	}
	targetGraph := graph.New(w.target)
	sourceGraph := graph.New(w.source)

	// Views selecting from changed tables go first and come back last.
	for _, v := range w.diff.DroppedViews {
		w.step([]string{w.dropView(v)}, w.createView(v))
	}
	for _, vd := range w.diff.AlteredViews {
		w.step([]string{w.dropView(vd.From)}, w.createView(vd.From))
	}

	for _, idx := range w.diff.DroppedIndexes {
		w.step([]string{w.dropIndex(idx)}, []string{w.createIndex(idx)})
	}

	targetJoins := w.joinTables(w.target)
	sourceJoins := w.joinTables(w.source)
	for _, j := range sourceJoins {
		if !containsJoin(targetJoins, j.Name) {
			w.step([]string{w.dropTableStmt(j.Name)}, w.createJoin(j))
		}
	}

	dropOrder, err := sourceGraph.ReverseOrder()
	if err != nil {
		return err
	}
	for _, name := range dropOrder {
		if !dropped[name] {
			continue
		}
		m, _ := w.source.Model(name)
		w.step([]string{w.dropTableStmt(schema.TableName(m))}, w.createTable(w.source, sourceGraph, m))
	}

	for _, e := range w.diff.CreatedEnums {
		w.step(w.createEnum(e), w.dropEnum(e))
	}
	for _, ed := range w.diff.AlteredEnums {
		if err := w.alterEnum(ed, created, dropped); err != nil {
			return err
		}
	}

	createOrder, err := targetGraph.DependencyOrder()
	if err != nil {
		return err
	}
	for _, name := range createOrder {
		if !created[name] {
			continue
		}
		m, _ := w.target.Model(name)
		w.step(w.createTable(w.target, targetGraph, m), []string{w.dropTableStmt(schema.TableName(m))})
	}
	if !w.inlineSelfRefs() {
		for _, r := range targetGraph.DeferredRelations() {
			if !created[r.From] {
				continue
			}
			m, _ := w.target.Model(r.From)
			clause, ok := w.fkClause(w.target, m, r)
			if !ok {
				continue
			}
			table := schema.TableName(m)
			w.step(
				[]string{"ALTER TABLE " + w.quote(table) + " ADD " + clause + ";"},
				[]string{w.dropConstraint(table, schema.ForeignKeyName(table, w.columnsOf(m, r.FromFields)))},
			)
		}
	}

	for _, md := range w.diff.AlteredModels {
		if err := w.alterModel(md); err != nil {
			return err
		}
	}

	for _, idx := range w.diff.CreatedIndexes {
		w.step([]string{w.createIndex(idx)}, []string{w.dropIndex(idx)})
	}

	for _, j := range targetJoins {
		if !containsJoin(sourceJoins, j.Name) {
			w.step(w.createJoin(j), []string{w.dropTableStmt(j.Name)})
		}
	}

	for _, v := range w.diff.CreatedViews {
		w.step(w.createView(v), []string{w.dropView(v)})
	}
	for _, vd := range w.diff.AlteredViews {
		w.step(w.createView(vd.To), []string{w.dropView(vd.To)})
	}
	return nil
}

func (w *ddlWriter) quote(ident string) string {
	return dialect.Quote(w.dialect, ident)
}

func (w *ddlWriter) quoteAll(idents []string) string {
	quoted := make([]string, len(idents))
	for i, s := range idents {
		quoted[i] = w.quote(s)
	}
	return strings.Join(quoted, ", ")
}

// columnsOf maps field names to their column names on m.
func (w *ddlWriter) columnsOf(m *schema.Model, fields []string) []string {
	columns := make([]string, len(fields))
	for i, name := range fields {
		if f, ok := m.Field(name); ok {
			columns[i] = schema.ColumnName(f)
		} else {
			columns[i] = name
		}
	}
	return columns
}

// inlineSelfRefs reports whether self-referential foreign keys go inside
// CREATE TABLE. SQLite and DuckDB cannot add constraints afterwards.
func (w *ddlWriter) inlineSelfRefs() bool {
	return w.dialect == dialect.SQLite || w.dialect == dialect.DuckDB
}

func (w *ddlWriter) dropTableStmt(table string) string {
	return "DROP TABLE " + w.quote(table) + ";"
}

func (w *ddlWriter) dropConstraint(table, name string) string {
	if w.dialect == dialect.MySQL {
		return "ALTER TABLE " + w.quote(table) + " DROP FOREIGN KEY " + w.quote(name) + ";"
	}
	return "ALTER TABLE " + w.quote(table) + " DROP CONSTRAINT " + w.quote(name) + ";"
}

// createTable renders the CREATE TABLE statement of a model plus its
// secondary indexes.
func (w *ddlWriter) createTable(s *schema.Schema, g *graph.Graph, m *schema.Model) []string {
	table := schema.TableName(m)
	var defs []string
	inlinedPK := false
	for _, f := range m.ScalarFields() {
		def, inline := w.columnDef(s, m, f)
		inlinedPK = inlinedPK || inline
		defs = append(defs, def)
	}
	if pk := m.PrimaryKey(); len(pk) > 0 && !inlinedPK {
		defs = append(defs, "PRIMARY KEY ("+w.quoteAll(w.columnsOf(m, pk))+")")
	}
	for _, r := range g.ForeignKeys(m.Name) {
		if r.From == r.To && !w.inlineSelfRefs() {
			continue
		}
		if clause, ok := w.fkClause(s, m, r); ok {
			defs = append(defs, clause)
		}
	}
	stmts := []string{"CREATE TABLE " + w.quote(table) + " (\n    " + strings.Join(defs, ",\n    ") + "\n);"}
	for _, idx := range ModelIndexes(m) {
		stmts = append(stmts, w.createIndex(idx))
	}
	return stmts
}

// columnDef renders one column definition. On SQLite a single-column
// auto-increment id inlines the primary key; the caller then omits the
// table-level constraint.
func (w *ddlWriter) columnDef(s *schema.Schema, m *schema.Model, f *schema.Field) (def string, inlinePK bool) {
	table := schema.TableName(m)
	col := schema.ColumnName(f)
	auto := f.HasAttr(schema.AttrAuto)
	var sb strings.Builder
	sb.WriteString(w.quote(col))
	sb.WriteByte(' ')
	switch {
	case auto && w.dialect == dialect.SQLite && isSinglePK(m, f):
		sb.WriteString("INTEGER PRIMARY KEY AUTOINCREMENT")
		inlinePK = true
	case auto && w.dialect == dialect.Postgres:
		sb.WriteString(w.columnType(s, f) + " GENERATED BY DEFAULT AS IDENTITY")
	case auto && w.dialect == dialect.MySQL:
		sb.WriteString(w.columnType(s, f) + " AUTO_INCREMENT")
	case auto && w.dialect == dialect.MSSQL:
		sb.WriteString(w.columnType(s, f) + " IDENTITY(1,1)")
	default:
		sb.WriteString(w.columnType(s, f))
	}
	if !f.Modifier.Nullable() && !inlinePK {
		sb.WriteString(" NOT NULL")
	}
	if dv, ok := w.sqlDefault(s, f); ok && !auto {
		if w.dialect == dialect.MSSQL {
			sb.WriteString(" CONSTRAINT " + w.quote(defaultConstraintName(table, col)) + " DEFAULT " + dv)
		} else {
			sb.WriteString(" DEFAULT " + dv)
		}
	}
	if f.Type.Kind == schema.KindEnum && w.enumAsCheck() {
		if e := w.lookupEnum(s, f.Type.Ref); e != nil {
			sb.WriteString(" CHECK (" + w.quote(col) + " IN (" + enumLiterals(e) + "))")
		}
	}
	return sb.String(), inlinePK
}

// columnType resolves the column type, inlining MySQL enums where the
// dialect mapping alone falls back to text.
func (w *ddlWriter) columnType(s *schema.Schema, f *schema.Field) string {
	if f.Type.Kind == schema.KindEnum && w.dialect == dialect.MySQL && !f.Modifier.IsList() {
		if e := w.lookupEnum(s, f.Type.Ref); e != nil {
			return "ENUM(" + enumLiterals(e) + ")"
		}
	}
	return dialect.ColumnType(w.dialect, f.Type, f.Modifier)
}

// enumAsCheck reports whether enum columns carry an inline check constraint.
// Postgres has native enum types, MySQL has inline ENUM columns; the rest
// store text guarded by a check.
func (w *ddlWriter) enumAsCheck() bool {
	switch w.dialect {
	case dialect.Postgres, dialect.MySQL:
		return false
	default:
		return true
	}
}

// lookupEnum resolves an enum by name against the given side first, then the
// other side, so down-scripts can rebuild dropped columns.
func (w *ddlWriter) lookupEnum(s *schema.Schema, name string) *schema.Enum {
	if e, ok := s.Enum(name); ok {
		return e
	}
	for _, other := range []*schema.Schema{w.target, w.source} {
		if other == s || other == nil {
			continue
		}
		if e, ok := other.Enum(name); ok {
			return e
		}
	}
	return nil
}

func enumLiterals(e *schema.Enum) string {
	values := storedValues(e)
	literals := make([]string, len(values))
	for i, v := range values {
		literals[i] = quoteLiteral(v)
	}
	return strings.Join(literals, ", ")
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func isSinglePK(m *schema.Model, f *schema.Field) bool {
	pk := m.PrimaryKey()
	return len(pk) == 1 && pk[0] == f.Name
}

func defaultConstraintName(table, column string) string {
	return "DF_" + table + "_" + column
}

// sqlDefault renders the @default attribute as a SQL default expression.
// Client-generated ids (uuid on SQLite, cuid, nanoid, ulid) have no server
// default and report ok == false.
func (w *ddlWriter) sqlDefault(s *schema.Schema, f *schema.Field) (string, bool) {
	v, ok := f.Default()
	if !ok {
		return "", false
	}
	switch v.Kind {
	case schema.ValueString:
		return quoteLiteral(v.String), true
	case schema.ValueInt:
		return strconv.FormatInt(v.Int, 10), true
	case schema.ValueFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64), true
	case schema.ValueBool:
		return w.boolLiteral(v.Bool), true
	case schema.ValueIdent:
		if e := w.lookupEnum(s, f.Type.Ref); e != nil {
			return quoteLiteral(e.StoredValue(v.String)), true
		}
		return quoteLiteral(v.String), true
	case schema.ValueFunc:
		return w.funcDefault(v)
	default:
		return "", false
	}
}

func (w *ddlWriter) boolLiteral(b bool) string {
	if w.dialect == dialect.MSSQL {
		if b {
			return "1"
		}
		return "0"
	}
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func (w *ddlWriter) funcDefault(v schema.Value) (string, bool) {
	switch v.String {
	case "now":
		return "CURRENT_TIMESTAMP", true
	case "uuid":
		switch w.dialect {
		case dialect.Postgres:
			return "gen_random_uuid()", true
		case dialect.MySQL:
			return "(UUID())", true
		case dialect.MSSQL:
			return "NEWID()", true
		case dialect.DuckDB:
			return "uuid()", true
		}
		return "", false
	case "dbgenerated":
		if len(v.List) > 0 && v.List[0].Kind == schema.ValueString {
			return v.List[0].String, true
		}
		return "", false
	default:
		// autoincrement is handled by the column renderer; cuid, cuid2,
		// nanoid and ulid are generated client-side.
		return "", false
	}
}

// fkClause renders an inline foreign-key constraint. Relations without
// explicit fields have no scalar columns to constrain and are skipped.
func (w *ddlWriter) fkClause(s *schema.Schema, m *schema.Model, r *schema.Relation) (string, bool) {
	if len(r.FromFields) == 0 {
		return "", false
	}
	to, ok := s.Model(r.To)
	if !ok {
		return "", false
	}
	table := schema.TableName(m)
	columns := w.columnsOf(m, r.FromFields)
	refFields := r.ToFields
	if len(refFields) == 0 {
		refFields = to.PrimaryKey()
	}
	var sb strings.Builder
	sb.WriteString("CONSTRAINT " + w.quote(schema.ForeignKeyName(table, columns)))
	sb.WriteString(" FOREIGN KEY (" + w.quoteAll(columns) + ")")
	sb.WriteString(" REFERENCES " + w.quote(schema.TableName(to)) + " (" + w.quoteAll(w.columnsOf(to, refFields)) + ")")
	if r.OnDelete != "" {
		sb.WriteString(" ON DELETE " + string(r.OnDelete))
	}
	if r.OnUpdate != "" {
		sb.WriteString(" ON UPDATE " + string(r.OnUpdate))
	}
	return sb.String(), true
}

func (w *ddlWriter) createIndex(idx *Index) string {
	kw := "INDEX"
	if idx.Unique {
		kw = "UNIQUE INDEX"
	}
	return "CREATE " + kw + " " + w.quote(idx.Name) + " ON " + w.quote(idx.Table) + " (" + w.quoteAll(idx.Columns) + ");"
}

func (w *ddlWriter) dropIndex(idx *Index) string {
	switch w.dialect {
	case dialect.MySQL, dialect.MSSQL:
		return "DROP INDEX " + w.quote(idx.Name) + " ON " + w.quote(idx.Table) + ";"
	default:
		return "DROP INDEX " + w.quote(idx.Name) + ";"
	}
}

func (w *ddlWriter) createEnum(e *schema.Enum) []string {
	if w.dialect != dialect.Postgres {
		return nil
	}
	return []string{"CREATE TYPE " + w.quote(schema.EnumTypeName(e)) + " AS ENUM (" + enumLiterals(e) + ");"}
}

func (w *ddlWriter) dropEnum(e *schema.Enum) []string {
	if w.dialect != dialect.Postgres {
		return nil
	}
	return []string{"DROP TYPE " + w.quote(schema.EnumTypeName(e)) + ";"}
}

// alterEnum handles enum variant changes. Postgres appends values in place
// but cannot remove them; MySQL rewrites every column using the enum; the
// check-constraint dialects cannot patch their unnamed inline checks.
func (w *ddlWriter) alterEnum(ed *EnumDiff, created, dropped map[string]bool) error {
	switch w.dialect {
	case dialect.Postgres:
		if len(ed.DroppedValues) > 0 {
			return fmt.Errorf("prax: postgres cannot drop values %v from enum %q; recreate the type manually", ed.DroppedValues, ed.Name)
		}
		typeName := w.quote(schema.EnumTypeName(ed.To))
		for _, v := range ed.AddedValues {
			w.step(
				[]string{"ALTER TYPE " + typeName + " ADD VALUE IF NOT EXISTS " + quoteLiteral(v) + ";"},
				[]string{"-- cannot remove value " + quoteLiteral(v) + " from enum " + typeName},
			)
		}
		return nil
	case dialect.MySQL:
		for _, m := range sortedModels(w.target.Models) {
			if created[m.Name] || dropped[m.Name] {
				continue
			}
			table := schema.TableName(m)
			for _, f := range m.ScalarFields() {
				if f.Type.Kind != schema.KindEnum || f.Type.Ref != ed.Name {
					continue
				}
				newDef, _ := w.columnDef(w.target, m, f)
				downDef := newDef
				if fromModel, ok := w.source.Model(m.Name); ok {
					if fromField, ok := fromModel.Field(f.Name); ok {
						downDef, _ = w.columnDef(w.source, fromModel, fromField)
					}
				}
				w.step(
					[]string{"ALTER TABLE " + w.quote(table) + " MODIFY COLUMN " + newDef + ";"},
					[]string{"ALTER TABLE " + w.quote(table) + " MODIFY COLUMN " + downDef + ";"},
				)
			}
		}
		return nil
	default:
		return fmt.Errorf("prax: altering enum %q requires recreating its check constraints on %s; write the migration manually", ed.Name, w.dialect)
	}
}

func (w *ddlWriter) alterModel(md *ModelDiff) error {
	table := schema.TableName(md.To)
	for _, f := range md.AddedFields {
		def, _ := w.columnDef(w.target, md.To, f)
		w.step(
			[]string{"ALTER TABLE " + w.quote(table) + " " + w.addColumnKeyword() + " " + def + ";"},
			[]string{"ALTER TABLE " + w.quote(table) + " DROP COLUMN " + w.quote(schema.ColumnName(f)) + ";"},
		)
	}
	for _, fd := range md.AlteredFields {
		if err := w.alterColumn(md, fd); err != nil {
			return err
		}
	}
	for _, f := range md.DroppedFields {
		def, _ := w.columnDef(w.source, md.From, f)
		w.step(
			[]string{"ALTER TABLE " + w.quote(table) + " DROP COLUMN " + w.quote(schema.ColumnName(f)) + ";"},
			[]string{"ALTER TABLE " + w.quote(table) + " " + w.addColumnKeyword() + " " + def + ";"},
		)
	}
	return nil
}

// addColumnKeyword: MSSQL spells ALTER TABLE ... ADD without COLUMN.
func (w *ddlWriter) addColumnKeyword() string {
	if w.dialect == dialect.MSSQL {
		return "ADD"
	}
	return "ADD COLUMN"
}

func (w *ddlWriter) alterColumn(md *ModelDiff, fd *FieldDiff) error {
	table := schema.TableName(md.To)
	col := schema.ColumnName(fd.To)
	qt, qc := w.quote(table), w.quote(col)
	switch w.dialect {
	case dialect.SQLite:
		return fmt.Errorf("prax: sqlite cannot alter column %q on table %q; rewrite the table manually", col, table)
	case dialect.MySQL:
		newDef, _ := w.columnDef(w.target, md.To, fd.To)
		oldDef, _ := w.columnDef(w.source, md.From, fd.From)
		w.step(
			[]string{"ALTER TABLE " + qt + " MODIFY COLUMN " + newDef + ";"},
			[]string{"ALTER TABLE " + qt + " MODIFY COLUMN " + oldDef + ";"},
		)
		return nil
	case dialect.MSSQL:
		if fd.Changes.Is(ChangeType) || fd.Changes.Is(ChangeNull) {
			w.step(
				[]string{"ALTER TABLE " + qt + " ALTER COLUMN " + qc + " " + w.columnType(w.target, fd.To) + w.nullSuffix(fd.To) + ";"},
				[]string{"ALTER TABLE " + qt + " ALTER COLUMN " + qc + " " + w.columnType(w.source, fd.From) + w.nullSuffix(fd.From) + ";"},
			)
		}
		if fd.Changes.Is(ChangeDefault) {
			w.alterDefaultMSSQL(table, col, fd)
		}
		return nil
	default: // Postgres, DuckDB
		if fd.Changes.Is(ChangeType) {
			w.step(
				[]string{"ALTER TABLE " + qt + " ALTER COLUMN " + qc + " TYPE " + w.columnType(w.target, fd.To) + ";"},
				[]string{"ALTER TABLE " + qt + " ALTER COLUMN " + qc + " TYPE " + w.columnType(w.source, fd.From) + ";"},
			)
		}
		if fd.Changes.Is(ChangeNull) {
			set, unset := "SET NOT NULL", "DROP NOT NULL"
			if fd.To.Modifier.Nullable() {
				set, unset = unset, set
			}
			w.step(
				[]string{"ALTER TABLE " + qt + " ALTER COLUMN " + qc + " " + set + ";"},
				[]string{"ALTER TABLE " + qt + " ALTER COLUMN " + qc + " " + unset + ";"},
			)
		}
		if fd.Changes.Is(ChangeDefault) {
			w.step(
				[]string{"ALTER TABLE " + qt + " ALTER COLUMN " + qc + " " + w.defaultClause(w.target, fd.To) + ";"},
				[]string{"ALTER TABLE " + qt + " ALTER COLUMN " + qc + " " + w.defaultClause(w.source, fd.From) + ";"},
			)
		}
		return nil
	}
}

func (w *ddlWriter) nullSuffix(f *schema.Field) string {
	if f.Modifier.Nullable() {
		return " NULL"
	}
	return " NOT NULL"
}

func (w *ddlWriter) defaultClause(s *schema.Schema, f *schema.Field) string {
	if dv, ok := w.sqlDefault(s, f); ok {
		return "SET DEFAULT " + dv
	}
	return "DROP DEFAULT"
}

// alterDefaultMSSQL swaps the named default constraint this generator
// attaches at create time.
func (w *ddlWriter) alterDefaultMSSQL(table, col string, fd *FieldDiff) {
	qt := w.quote(table)
	name := w.quote(defaultConstraintName(table, col))
	var up, down []string
	if _, ok := fd.From.Default(); ok {
		up = append(up, "ALTER TABLE "+qt+" DROP CONSTRAINT "+name+";")
	}
	if dv, ok := w.sqlDefault(w.target, fd.To); ok {
		up = append(up, "ALTER TABLE "+qt+" ADD CONSTRAINT "+name+" DEFAULT "+dv+" FOR "+w.quote(col)+";")
		down = append(down, "ALTER TABLE "+qt+" DROP CONSTRAINT "+name+";")
	}
	if dv, ok := w.sqlDefault(w.source, fd.From); ok {
		down = append(down, "ALTER TABLE "+qt+" ADD CONSTRAINT "+name+" DEFAULT "+dv+" FOR "+w.quote(col)+";")
	}
	w.step(up, down)
}

func (w *ddlWriter) createView(v *schema.View) []string {
	name := schema.ViewName(v)
	if v.Definition == "" {
		return []string{"-- skipped view " + strconv.Quote(name) + ": no definition"}
	}
	kw := "VIEW"
	if v.Materialized() && w.materializedViews() {
		kw = "MATERIALIZED VIEW"
	}
	return []string{"CREATE " + kw + " " + w.quote(name) + " AS\n" + strings.TrimRight(v.Definition, "; \n") + ";"}
}

func (w *ddlWriter) dropView(v *schema.View) string {
	kw := "VIEW"
	if v.Materialized() && w.materializedViews() {
		kw = "MATERIALIZED VIEW"
	}
	return "DROP " + kw + " " + w.quote(schema.ViewName(v)) + ";"
}

func (w *ddlWriter) materializedViews() bool {
	return w.dialect == dialect.Postgres || w.dialect == dialect.DuckDB
}

// joinTable is the physical shape of an implicit many-to-many join table:
// column A references the lexicographically first model's id, column B the
// second's. Both foreign keys cascade so unlinking follows row deletion.
type joinTable struct {
	Name   string
	ATable string
	ARef   string
	AType  string
	BTable string
	BRef   string
	BType  string
}

// joinTables derives the join tables of a schema from its many-to-many
// relations, one per join-table name, sorted by name.
func (w *ddlWriter) joinTables(s *schema.Schema) []*joinTable {
	seen := make(map[string]bool)
	var out []*joinTable
	for _, r := range s.Relations {
		if r.Kind != schema.ManyToMany {
			continue
		}
		name := schema.JoinTableName(r)
		if seen[name] {
			continue
		}
		seen[name] = true
		pair := []string{r.From, r.To}
		slices.Sort(pair)
		am, aok := s.Model(pair[0])
		bm, bok := s.Model(pair[1])
		if !aok || !bok {
			continue
		}
		apk, bpk := singlePKField(am), singlePKField(bm)
		if apk == nil || bpk == nil {
			continue
		}
		out = append(out, &joinTable{
			Name:   name,
			ATable: schema.TableName(am),
			ARef:   schema.ColumnName(apk),
			AType:  dialect.ColumnType(w.dialect, apk.Type, schema.Required),
			BTable: schema.TableName(bm),
			BRef:   schema.ColumnName(bpk),
			BType:  dialect.ColumnType(w.dialect, bpk.Type, schema.Required),
		})
	}
	slices.SortFunc(out, func(a, b *joinTable) int { return strings.Compare(a.Name, b.Name) })
	return out
}

func singlePKField(m *schema.Model) *schema.Field {
	pk := m.PrimaryKey()
	if len(pk) != 1 {
		return nil
	}
	f, ok := m.Field(pk[0])
	if !ok {
		return nil
	}
	return f
}

func containsJoin(joins []*joinTable, name string) bool {
	return slices.ContainsFunc(joins, func(j *joinTable) bool { return j.Name == name })
}

func (w *ddlWriter) createJoin(j *joinTable) []string {
	defs := []string{
		w.quote("A") + " " + j.AType + " NOT NULL",
		w.quote("B") + " " + j.BType + " NOT NULL",
		"PRIMARY KEY (" + w.quote("A") + ", " + w.quote("B") + ")",
		"FOREIGN KEY (" + w.quote("A") + ") REFERENCES " + w.quote(j.ATable) + " (" + w.quote(j.ARef) + ") ON DELETE CASCADE",
		"FOREIGN KEY (" + w.quote("B") + ") REFERENCES " + w.quote(j.BTable) + " (" + w.quote(j.BRef) + ") ON DELETE CASCADE",
	}
	return []string{"CREATE TABLE " + w.quote(j.Name) + " (\n    " + strings.Join(defs, ",\n    ") + "\n);"}
}
