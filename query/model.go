package query

import (
	"slices"
	"sort"

	"github.com/syssam/prax/schema"
)

// ModelInfo is the runtime description of one model's storage: the table,
// its columns in declaration order, key and uniqueness structure, relation
// wiring and client-generated defaults. It is dialect independent; the code
// generator bakes one literal per model and FromSchema derives the same
// shape at runtime.
type ModelInfo struct {
	Name       string
	Table      string
	Columns    []string
	PrimaryKey []string
	UniqueSets [][]string
	Relations  []RelationInfo
	Defaults   []ColumnDefault
}

// RelationInfo describes one relation field as seen from its declaring
// model, with names already mapped to database identifiers.
type RelationInfo struct {
	// Field is the relation field name on the declaring model.
	Field string

	// Model and Table identify the target side.
	Model string
	Table string

	Kind schema.RelationKind

	// ForeignKey and References name the key column pair. For an owning
	// relation the foreign key lives on the declaring model's table; for a
	// list relation it lives on the target's. A many-to-many relation has
	// no foreign key of its own, the pair degenerates to the two primary
	// keys feeding the join table.
	ForeignKey string
	References string

	// OwnsKey reports that the foreign key column is on the declaring
	// model's own table.
	OwnsKey bool

	// JoinTable, JoinFrom and JoinTo describe the implicit join table of a
	// many-to-many relation: JoinFrom holds the declaring side's id,
	// JoinTo the target's.
	JoinTable string
	JoinFrom  string
	JoinTo    string
}

// ColumnDefault is a column whose value the client generates when a write
// omits it. Func names the registered generator ("uuid", "cuid", "cuid2",
// "nanoid", "ulid").
type ColumnDefault struct {
	Column string
	Func   string
}

// Column reports whether the model has the given column.
func (m *ModelInfo) Column(name string) bool {
	return slices.Contains(m.Columns, name)
}

// Relation returns the descriptor of a relation field.
func (m *ModelInfo) Relation(field string) (RelationInfo, bool) {
	for _, r := range m.Relations {
		if r.Field == field {
			return r, true
		}
	}
	return RelationInfo{}, false
}

// MatchesUniqueSet reports whether the given columns cover the primary key
// or one of the unique sets exactly. Order does not matter.
func (m *ModelInfo) MatchesUniqueSet(columns []string) bool {
	if sameSet(columns, m.PrimaryKey) {
		return true
	}
	for _, set := range m.UniqueSets {
		if sameSet(columns, set) {
			return true
		}
	}
	return false
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) || len(a) == 0 {
		return false
	}
	as, bs := slices.Clone(a), slices.Clone(b)
	sort.Strings(as)
	sort.Strings(bs)
	return slices.Equal(as, bs)
}

// FromSchema derives the ModelInfo of one model from a validated schema.
// The code generator emits the same descriptor as a literal; this path
// serves dynamic clients and tests.
func FromSchema(s *schema.Schema, model string) (*ModelInfo, bool) {
	m, ok := s.Model(model)
	if !ok {
		return nil, false
	}
	info := &ModelInfo{
		Name:  m.Name,
		Table: schema.TableName(m),
	}

	for _, f := range m.ScalarFields() {
		col := schema.ColumnName(f)
		info.Columns = append(info.Columns, col)
		if f.IsUnique() {
			info.UniqueSets = append(info.UniqueSets, []string{col})
		}
		if fn, ok := generatedDefault(f); ok {
			info.Defaults = append(info.Defaults, ColumnDefault{Column: col, Func: fn})
		}
	}

	for _, name := range m.PrimaryKey() {
		if f, ok := m.Field(name); ok {
			info.PrimaryKey = append(info.PrimaryKey, schema.ColumnName(f))
		}
	}

	for _, a := range m.Indexes() {
		if a.Name != schema.AttrUnique {
			continue
		}
		var set []string
		for _, name := range a.Idents("") {
			if f, ok := m.Field(name); ok {
				set = append(set, schema.ColumnName(f))
			}
		}
		if len(set) > 0 {
			info.UniqueSets = append(info.UniqueSets, set)
		}
	}

	for _, rel := range s.RelationsFrom(m.Name) {
		if ri, ok := relationInfo(s, m, rel); ok {
			info.Relations = append(info.Relations, ri)
		}
	}
	return info, true
}

// generatedDefault returns the client-side generator function of a field,
// either from an explicit @default(uuid()) style attribute or implied by a
// generated-id scalar type.
func generatedDefault(f *schema.Field) (string, bool) {
	if fn, ok := f.DefaultFunc(); ok {
		if _, client := schema.GeneratorFor(fn); client {
			return fn, true
		}
		return "", false
	}
	switch f.Type.Scalar {
	case schema.ScalarUUID:
		return "uuid", f.IsID()
	case schema.ScalarCUID:
		return "cuid", f.IsID()
	case schema.ScalarCUID2:
		return "cuid2", f.IsID()
	case schema.ScalarNanoID:
		return "nanoid", f.IsID()
	case schema.ScalarULID:
		return "ulid", f.IsID()
	}
	return "", false
}

func relationInfo(s *schema.Schema, m *schema.Model, rel *schema.Relation) (RelationInfo, bool) {
	target, ok := s.Model(rel.To)
	if !ok {
		return RelationInfo{}, false
	}
	ri := RelationInfo{
		Field: rel.FromField,
		Model: target.Name,
		Table: schema.TableName(target),
		Kind:  rel.Kind,
	}
	inv, hasInv := rel.Inverse(s)

	switch {
	case rel.Kind == schema.ManyToMany:
		// Both sides are lists: implicit join table, Prisma layout with the
		// lexicographically first model in column A.
		ri.JoinTable = schema.JoinTableName(rel)
		if m.Name < target.Name {
			ri.JoinFrom, ri.JoinTo = "A", "B"
		} else {
			ri.JoinFrom, ri.JoinTo = "B", "A"
		}
		ri.ForeignKey = firstPK(m)
		ri.References = firstPK(target)
	case len(rel.FromFields) > 0:
		ri.OwnsKey = true
		ri.ForeignKey = mappedColumn(m, rel.FromFields[0])
		if len(rel.ToFields) > 0 {
			ri.References = mappedColumn(target, rel.ToFields[0])
		} else {
			ri.References = firstPK(target)
		}
	case hasInv && len(inv.FromFields) > 0:
		ri.ForeignKey = mappedColumn(target, inv.FromFields[0])
		if len(inv.ToFields) > 0 {
			ri.References = mappedColumn(m, inv.ToFields[0])
		} else {
			ri.References = firstPK(m)
		}
	default:
		// Implicit key pair: the singular side holds <field>_id against the
		// other side's primary key.
		if rel.Kind == schema.ManyToOne {
			ri.OwnsKey = true
			ri.ForeignKey = schema.ColumnName(&schema.Field{Name: rel.FromField + "_id"})
			ri.References = firstPK(target)
		} else if hasInv {
			ri.ForeignKey = schema.ColumnName(&schema.Field{Name: inv.FromField + "_id"})
			ri.References = firstPK(m)
		}
	}
	return ri, true
}

func mappedColumn(m *schema.Model, field string) string {
	if f, ok := m.Field(field); ok {
		return schema.ColumnName(f)
	}
	return field
}

func firstPK(m *schema.Model) string {
	pk := m.PrimaryKey()
	if len(pk) == 0 {
		return "id"
	}
	if f, ok := m.Field(pk[0]); ok {
		return schema.ColumnName(f)
	}
	return pk[0]
}
