package migrate

import (
	"slices"
	"strings"

	"github.com/syssam/prax/dialect"
	"github.com/syssam/prax/schema"
)

// SchemaDiff is the structural difference between two schemas, grouped by
// entity kind. Created and dropped entities carry the full definition;
// altered entities carry both snapshots plus the field-level changes. The
// source may be nil, in which case everything in the target is created.
//
// Output order is deterministic: entity lists are sorted by name, field
// lists keep the declaration order of the schema they come from.
type SchemaDiff struct {
	Source *schema.Schema // nil when diffing from scratch
	Target *schema.Schema

	// Dialect is the dialect the diff was computed under. Canonical column
	// types depend on it, so the same schema pair may diff differently
	// across dialects.
	Dialect string

	CreatedModels []*schema.Model
	DroppedModels []*schema.Model
	AlteredModels []*ModelDiff

	CreatedEnums []*schema.Enum
	DroppedEnums []*schema.Enum
	AlteredEnums []*EnumDiff

	CreatedViews []*schema.View
	DroppedViews []*schema.View
	AlteredViews []*ViewDiff

	// Index changes on models present in both schemas. Indexes of created
	// and dropped models travel with their tables and are not listed here.
	CreatedIndexes []*Index
	DroppedIndexes []*Index
}

// ModelDiff describes the column changes of a model present in both schemas.
type ModelDiff struct {
	Name string
	From *schema.Model
	To   *schema.Model

	AddedFields   []*schema.Field
	DroppedFields []*schema.Field
	AlteredFields []*FieldDiff
}

// FieldDiff is a field whose two snapshots map to different columns.
type FieldDiff struct {
	Name string
	From *schema.Field
	To   *schema.Field

	Changes FieldChange
}

// FieldChange is a bit set of the ways two field snapshots differ. Only the
// three column-visible aspects participate: the canonical SQL type, the
// nullability, and the default. Renames are never inferred; a renamed field
// diffs as a drop plus an add.
type FieldChange uint8

const (
	// ChangeType marks a canonical SQL type difference.
	ChangeType FieldChange = 1 << iota
	// ChangeNull marks a nullability difference.
	ChangeNull
	// ChangeDefault marks a default-value difference.
	ChangeDefault
)

// NoChange is the empty change set.
const NoChange FieldChange = 0

// Is reports whether c contains the given change.
func (c FieldChange) Is(o FieldChange) bool {
	return c == o || c&o != 0
}

// String renders the change set for diagnostics.
func (c FieldChange) String() string {
	if c == NoChange {
		return "none"
	}
	var parts []string
	if c.Is(ChangeType) {
		parts = append(parts, "type")
	}
	if c.Is(ChangeNull) {
		parts = append(parts, "nullability")
	}
	if c.Is(ChangeDefault) {
		parts = append(parts, "default")
	}
	return strings.Join(parts, ",")
}

// EnumDiff describes the variant changes of an enum present in both schemas.
// Values compare by their stored form, so renaming a variant while keeping
// its @map value is not a change.
type EnumDiff struct {
	Name string
	From *schema.Enum
	To   *schema.Enum

	AddedValues   []string
	DroppedValues []string
}

// ViewDiff marks a view whose projection, definition or materialization
// changed. Views are replaced wholesale, so no field-level detail is kept.
type ViewDiff struct {
	Name string
	From *schema.View
	To   *schema.View
}

// Index is a concrete secondary index derived from @unique fields and
// @@index/@@unique model attributes.
type Index struct {
	Model   string
	Table   string
	Name    string
	Columns []string
	Unique  bool
}

// Diff compares two schemas under the Postgres type mapping. Use DiffDialect
// when the engine targets another dialect; canonical types, and with them
// the alter set, differ between dialects.
func Diff(source, target *schema.Schema) *SchemaDiff {
	return DiffDialect(source, target, dialect.Postgres)
}

// DiffDialect compares two schemas with canonical column types derived for
// the given dialect. A nil source diffs from the empty schema. Diffing a
// schema against itself yields an empty diff.
func DiffDialect(source, target *schema.Schema, d string) *SchemaDiff {
	if source == nil {
		source = &schema.Schema{}
	}
	if target == nil {
		target = &schema.Schema{}
	}
	diff := &SchemaDiff{Source: source, Target: target, Dialect: d}
	diff.diffModels()
	diff.diffEnums()
	diff.diffViews()
	diff.diffIndexes()
	return diff
}

// Empty reports whether the two schemas are structurally identical.
func (d *SchemaDiff) Empty() bool {
	return len(d.CreatedModels) == 0 && len(d.DroppedModels) == 0 && len(d.AlteredModels) == 0 &&
		len(d.CreatedEnums) == 0 && len(d.DroppedEnums) == 0 && len(d.AlteredEnums) == 0 &&
		len(d.CreatedViews) == 0 && len(d.DroppedViews) == 0 && len(d.AlteredViews) == 0 &&
		len(d.CreatedIndexes) == 0 && len(d.DroppedIndexes) == 0
}

// HasDrops reports whether applying the diff destroys data: a dropped table
// or a dropped column. Dropped views and enums carry no rows and do not
// count.
func (d *SchemaDiff) HasDrops() bool {
	if len(d.DroppedModels) > 0 {
		return true
	}
	for _, m := range d.AlteredModels {
		if len(m.DroppedFields) > 0 {
			return true
		}
	}
	return false
}

// Drops names what HasDrops found, for the data-loss error message.
func (d *SchemaDiff) Drops() []string {
	var drops []string
	for _, m := range d.DroppedModels {
		drops = append(drops, "table "+schema.TableName(m))
	}
	for _, md := range d.AlteredModels {
		table := schema.TableName(md.To)
		for _, f := range md.DroppedFields {
			drops = append(drops, "column "+table+"."+schema.ColumnName(f))
		}
	}
	return drops
}

func (d *SchemaDiff) diffModels() {
	for _, m := range sortedModels(d.Target.Models) {
		from, ok := d.Source.Model(m.Name)
		if !ok {
			d.CreatedModels = append(d.CreatedModels, m)
			continue
		}
		if md := d.diffModel(from, m); md != nil {
			d.AlteredModels = append(d.AlteredModels, md)
		}
	}
	for _, m := range sortedModels(d.Source.Models) {
		if _, ok := d.Target.Model(m.Name); !ok {
			d.DroppedModels = append(d.DroppedModels, m)
		}
	}
}

func (d *SchemaDiff) diffModel(from, to *schema.Model) *ModelDiff {
	md := &ModelDiff{Name: to.Name, From: from, To: to}
	for _, f := range to.ScalarFields() {
		prev, ok := from.Field(f.Name)
		if !ok || prev.IsRelation() {
			md.AddedFields = append(md.AddedFields, f)
			continue
		}
		if c := d.compareField(prev, f); c != NoChange {
			md.AlteredFields = append(md.AlteredFields, &FieldDiff{
				Name:    f.Name,
				From:    prev,
				To:      f,
				Changes: c,
			})
		}
	}
	for _, f := range from.ScalarFields() {
		if cur, ok := to.Field(f.Name); !ok || cur.IsRelation() {
			md.DroppedFields = append(md.DroppedFields, f)
		}
	}
	if len(md.AddedFields) == 0 && len(md.DroppedFields) == 0 && len(md.AlteredFields) == 0 {
		return nil
	}
	return md
}

// compareField detects the column-visible changes between two snapshots of
// the same field.
func (d *SchemaDiff) compareField(from, to *schema.Field) FieldChange {
	var c FieldChange
	if dialect.ColumnType(d.Dialect, from.Type, from.Modifier) != dialect.ColumnType(d.Dialect, to.Type, to.Modifier) {
		c |= ChangeType
	}
	if from.Modifier.Nullable() != to.Modifier.Nullable() {
		c |= ChangeNull
	}
	if renderDefault(from) != renderDefault(to) {
		c |= ChangeDefault
	}
	return c
}

// renderDefault canonicalizes a field default for comparison. Absent
// defaults render empty; present ones render in source form, so literals,
// identifiers and function calls all compare textually.
func renderDefault(f *schema.Field) string {
	v, ok := f.Default()
	if !ok {
		return ""
	}
	return v.Render()
}

func (d *SchemaDiff) diffEnums() {
	for _, e := range sortedEnums(d.Target.Enums) {
		from, ok := d.Source.Enum(e.Name)
		if !ok {
			d.CreatedEnums = append(d.CreatedEnums, e)
			continue
		}
		if ed := diffEnum(from, e); ed != nil {
			d.AlteredEnums = append(d.AlteredEnums, ed)
		}
	}
	for _, e := range sortedEnums(d.Source.Enums) {
		if _, ok := d.Target.Enum(e.Name); !ok {
			d.DroppedEnums = append(d.DroppedEnums, e)
		}
	}
}

func diffEnum(from, to *schema.Enum) *EnumDiff {
	ed := &EnumDiff{Name: to.Name, From: from, To: to}
	fromStored := storedValues(from)
	toStored := storedValues(to)
	for _, v := range toStored {
		if !slices.Contains(fromStored, v) {
			ed.AddedValues = append(ed.AddedValues, v)
		}
	}
	for _, v := range fromStored {
		if !slices.Contains(toStored, v) {
			ed.DroppedValues = append(ed.DroppedValues, v)
		}
	}
	if len(ed.AddedValues) == 0 && len(ed.DroppedValues) == 0 {
		return nil
	}
	return ed
}

func storedValues(e *schema.Enum) []string {
	values := make([]string, len(e.Values))
	for i, v := range e.Values {
		values[i] = e.StoredValue(v.Name)
	}
	return values
}

func (d *SchemaDiff) diffViews() {
	for _, v := range sortedViews(d.Target.Views) {
		from, ok := d.Source.View(v.Name)
		if !ok {
			d.CreatedViews = append(d.CreatedViews, v)
			continue
		}
		if d.viewChanged(from, v) {
			d.AlteredViews = append(d.AlteredViews, &ViewDiff{Name: v.Name, From: from, To: v})
		}
	}
	for _, v := range sortedViews(d.Source.Views) {
		if _, ok := d.Target.View(v.Name); !ok {
			d.DroppedViews = append(d.DroppedViews, v)
		}
	}
}

func (d *SchemaDiff) viewChanged(from, to *schema.View) bool {
	if from.Materialized() != to.Materialized() || from.Definition != to.Definition {
		return true
	}
	if len(from.Fields) != len(to.Fields) {
		return true
	}
	for i, f := range to.Fields {
		prev := from.Fields[i]
		if prev.Name != f.Name {
			return true
		}
		if d.compareField(prev, f) != NoChange {
			return true
		}
	}
	return false
}

func (d *SchemaDiff) diffIndexes() {
	for _, m := range sortedModels(d.Target.Models) {
		from, ok := d.Source.Model(m.Name)
		if !ok {
			continue
		}
		fromIdx := ModelIndexes(from)
		toIdx := ModelIndexes(m)
		for _, idx := range toIdx {
			if prev := findIndex(fromIdx, idx.Name); prev == nil {
				d.CreatedIndexes = append(d.CreatedIndexes, idx)
			} else if !sameIndex(prev, idx) {
				// A changed definition recreates the index under its name.
				d.DroppedIndexes = append(d.DroppedIndexes, prev)
				d.CreatedIndexes = append(d.CreatedIndexes, idx)
			}
		}
		for _, idx := range fromIdx {
			if findIndex(toIdx, idx.Name) == nil {
				d.DroppedIndexes = append(d.DroppedIndexes, idx)
			}
		}
	}
}

// ModelIndexes derives the secondary indexes of a model: one per @unique
// scalar field, one per @@index/@@unique attribute. Index names follow the
// deterministic table_columns_suffix convention unless the attribute names
// one explicitly.
func ModelIndexes(m *schema.Model) []*Index {
	table := schema.TableName(m)
	var out []*Index
	for _, f := range m.ScalarFields() {
		if !f.IsUnique() || f.IsID() {
			continue
		}
		col := schema.ColumnName(f)
		out = append(out, &Index{
			Model:   m.Name,
			Table:   table,
			Name:    schema.IndexName(table, []string{col}, true),
			Columns: []string{col},
			Unique:  true,
		})
	}
	for _, a := range m.Indexes() {
		fields := a.Idents("")
		if named := a.Idents("fields"); len(named) > 0 {
			fields = named
		}
		if len(fields) == 0 {
			continue
		}
		columns := make([]string, len(fields))
		for i, name := range fields {
			if f, ok := m.Field(name); ok {
				columns[i] = schema.ColumnName(f)
			} else {
				columns[i] = name
			}
		}
		unique := a.Name == schema.AttrUnique
		name := schema.IndexName(table, columns, unique)
		if v, ok := a.Arg("name"); ok && v.Kind == schema.ValueString {
			name = v.String
		}
		out = append(out, &Index{
			Model:   m.Name,
			Table:   table,
			Name:    name,
			Columns: columns,
			Unique:  unique,
		})
	}
	return out
}

func findIndex(indexes []*Index, name string) *Index {
	for _, idx := range indexes {
		if idx.Name == name {
			return idx
		}
	}
	return nil
}

func sameIndex(a, b *Index) bool {
	return a.Unique == b.Unique && slices.Equal(a.Columns, b.Columns)
}

func sortedModels(models []*schema.Model) []*schema.Model {
	out := slices.Clone(models)
	slices.SortFunc(out, func(a, b *schema.Model) int { return strings.Compare(a.Name, b.Name) })
	return out
}

func sortedEnums(enums []*schema.Enum) []*schema.Enum {
	out := slices.Clone(enums)
	slices.SortFunc(out, func(a, b *schema.Enum) int { return strings.Compare(a.Name, b.Name) })
	return out
}

func sortedViews(views []*schema.View) []*schema.View {
	out := slices.Clone(views)
	slices.SortFunc(out, func(a, b *schema.View) int { return strings.Compare(a.Name, b.Name) })
	return out
}
