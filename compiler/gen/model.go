package gen

import (
	"go/token"
	"sort"
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/syssam/prax/dialect"
	"github.com/syssam/prax/query"
	"github.com/syssam/prax/schema"
)

// predicateKind selects the typed filter column a stored field maps to.
type predicateKind int

const (
	kindNone predicateKind = iota
	kindString
	kindInt
	kindFloat
	kindBool
	kindTime
	kindEnum
)

// typeDesc is the generator's per-model view of a schema model. It carries
// the resolved runtime info next to the naming decisions every emitter
// agrees on.
type typeDesc struct {
	model  *schema.Model
	info   *query.ModelInfo
	fields []*fieldDesc

	// pkg is the subpackage directory and package name, the lowercase
	// model name.
	pkg string

	// label is the snake form of the model name, used for statement
	// template names.
	label string
}

// fieldDesc pairs a stored field with its generated identifiers.
type fieldDesc struct {
	field *schema.Field

	name     string // exported Go name, e.g. CreatedAt
	constant string // column constant, e.g. FieldCreatedAt
	column   string // stored column name
	kind     predicateKind
	enumRef  string // Go name of the enum type for kindEnum fields
}

// nullable reports whether the field column may hold NULL.
func (f *fieldDesc) nullable() bool {
	return f.field.Modifier.Nullable()
}

// enumDesc is a schema enum with its generated identifiers resolved.
type enumDesc struct {
	name   string // Go type name
	doc    string // schema enum name, for the type comment
	values []enumValue
}

type enumValue struct {
	name   string // Go constant name, e.g. RoleAdmin
	stored string // stored database value
}

// generatedNames are identifiers the per-model package declares itself.
// Field names mapping onto one of them cannot be generated.
var generatedNames = map[string]bool{
	"Label":       true,
	"Table":       true,
	"Columns":     true,
	"ValidColumn": true,
	"Predicate":   true,
	"And":         true,
	"Or":          true,
	"Not":         true,
}

// describe resolves every model of the schema into a descriptor, sorted by
// model name. The schema must already be validated.
func describe(s *schema.Schema) ([]*typeDesc, error) {
	models := make([]*schema.Model, len(s.Models))
	copy(models, s.Models)
	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })

	types := make([]*typeDesc, 0, len(models))
	pkgs := make(map[string]string, len(models))
	for _, m := range models {
		t, err := describeModel(s, m)
		if err != nil {
			return nil, err
		}
		if prev, ok := pkgs[t.pkg]; ok {
			return nil, NewSchemaError(m.Name, "", "package name "+t.pkg+" collides with model "+prev)
		}
		pkgs[t.pkg] = m.Name
		types = append(types, t)
	}
	return types, nil
}

func describeModel(s *schema.Schema, m *schema.Model) (*typeDesc, error) {
	pkg := strings.ToLower(m.Name)
	if token.IsKeyword(pkg) {
		return nil, NewSchemaError(m.Name, "", "model name maps to the reserved package name "+pkg)
	}
	info, ok := query.FromSchema(s, m.Name)
	if !ok {
		return nil, NewSchemaError(m.Name, "", "model is not part of the schema")
	}
	t := &typeDesc{
		model: m,
		info:  info,
		pkg:   pkg,
		label: inflect.Underscore(m.Name),
	}
	seen := make(map[string]string, len(m.Fields))
	for _, f := range m.ScalarFields() {
		fd := &fieldDesc{
			field:  f,
			name:   schema.GoName(f.Name),
			column: schema.ColumnName(f),
			kind:   fieldKind(f),
		}
		fd.constant = "Field" + fd.name
		if generatedNames[fd.name] {
			return nil, NewSchemaError(m.Name, f.Name, "field name maps to the generated identifier "+fd.name)
		}
		if prev, ok := seen[fd.name]; ok {
			return nil, NewSchemaError(m.Name, f.Name, "field name maps to the same identifier as field "+prev)
		}
		seen[fd.name] = f.Name
		if fd.kind == kindEnum {
			fd.enumRef = schema.GoName(f.Type.Ref)
		}
		t.fields = append(t.fields, fd)
	}
	return t, nil
}

// fieldKind maps a stored field onto its typed filter column. List columns
// and kinds without a comparable Go form get no typed helpers.
func fieldKind(f *schema.Field) predicateKind {
	if f.Modifier.IsList() {
		return kindNone
	}
	switch f.Type.Kind {
	case schema.KindEnum:
		return kindEnum
	case schema.KindScalar:
	default:
		return kindNone
	}
	switch f.Type.Scalar {
	case schema.ScalarInt, schema.ScalarBigInt:
		return kindInt
	case schema.ScalarFloat, schema.ScalarDecimal:
		return kindFloat
	case schema.ScalarBoolean:
		return kindBool
	case schema.ScalarDateTime, schema.ScalarDate, schema.ScalarTime:
		return kindTime
	case schema.ScalarJSON, schema.ScalarBytes:
		return kindNone
	default:
		return kindString
	}
}

// pkField returns the descriptor of the single primary key field, when the
// model has exactly one.
func (t *typeDesc) pkField() (*fieldDesc, bool) {
	pk := t.model.PrimaryKey()
	if len(pk) != 1 {
		return nil, false
	}
	for _, f := range t.fields {
		if f.field.Name == pk[0] {
			return f, true
		}
	}
	return nil, false
}

// statementName is the name the find-by-key template is registered under.
func (t *typeDesc) statementName() string {
	return t.label + ".by_pk"
}

// findByKeySQL renders the prepared find-by-primary-key statement for the
// dialect, or false when the model has no primary key.
func (t *typeDesc) findByKeySQL(d string) (string, int, bool) {
	pk := t.info.PrimaryKey
	if len(pk) == 0 {
		return "", 0, false
	}
	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	b.WriteString(dialect.Quote(d, t.info.Table))
	b.WriteString(" WHERE ")
	for i, col := range pk {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString(dialect.Quote(d, col))
		b.WriteString(" = ")
		b.WriteString(dialect.Placeholder(d, i+1))
	}
	return b.String(), len(pk), true
}

// describeEnums resolves the schema enums into descriptors, sorted by name.
func describeEnums(s *schema.Schema) []*enumDesc {
	enums := make([]*enumDesc, 0, len(s.Enums))
	for _, e := range s.Enums {
		d := &enumDesc{
			name: schema.GoName(e.Name),
			doc:  e.Name,
		}
		for _, v := range e.Values {
			d.values = append(d.values, enumValue{
				name:   d.name + schema.GoName(v.Name),
				stored: enumStored(v),
			})
		}
		enums = append(enums, d)
	}
	sort.Slice(enums, func(i, j int) bool { return enums[i].name < enums[j].name })
	return enums
}

// enumStored returns the database form of an enum value, the @map override
// or the declared name.
func enumStored(v schema.EnumValue) string {
	for _, a := range v.Attrs {
		if a.Name != schema.AttrMap {
			continue
		}
		if arg, ok := a.First(); ok && arg.Kind == schema.ValueString {
			return arg.String
		}
	}
	return v.Name
}
