package schema

import (
	"sort"
	"strings"

	"github.com/go-openapi/inflect"
)

// TableName returns the database table for a model: the @@map override when
// present, otherwise the underscored plural of the model name
// ("UserProfile" -> "user_profiles").
func TableName(m *Model) string {
	if mapped := m.MappedName(); mapped != "" {
		return mapped
	}
	return inflect.Pluralize(inflect.Underscore(m.Name))
}

// ViewName returns the database name for a view: the @@map override when
// present, otherwise the underscored view name. Views are not pluralized;
// their names are taken as written.
func ViewName(v *View) string {
	if mapped := v.MappedName(); mapped != "" {
		return mapped
	}
	return inflect.Underscore(v.Name)
}

// ColumnName returns the database column for a field: the @map override
// when present, otherwise the underscored field name.
func ColumnName(f *Field) string {
	if mapped := f.MappedName(); mapped != "" {
		return mapped
	}
	return inflect.Underscore(f.Name)
}

// EnumTypeName returns the database type name for an enum ("OrderStatus"
// -> "order_status").
func EnumTypeName(e *Enum) string {
	return inflect.Underscore(e.Name)
}

// JoinTableName returns the implicit join-table name of a many-to-many
// relation between two models: an underscore prefix plus the two model
// names in lexicographic order joined by "To" ("_PostToTag"). An explicit
// relation name overrides the model pair ("_favorites").
func JoinTableName(rel *Relation) string {
	if rel.Name != "" {
		return "_" + rel.Name
	}
	pair := []string{rel.From, rel.To}
	sort.Strings(pair)
	return "_" + pair[0] + "To" + pair[1]
}

// ForeignKeyName returns a deterministic constraint name for a relation:
// table, column list and "fkey" joined by underscores, matching the
// Postgres convention.
func ForeignKeyName(table string, columns []string) string {
	return table + "_" + strings.Join(columns, "_") + "_fkey"
}

// IndexName returns a deterministic index name: table, column list and a
// "key"/"idx" suffix for unique and non-unique indexes respectively.
func IndexName(table string, columns []string, unique bool) string {
	suffix := "_idx"
	if unique {
		suffix = "_key"
	}
	return table + "_" + strings.Join(columns, "_") + suffix
}

// GoName converts a schema name to an exported Go identifier
// ("author_id" -> "AuthorID"). Used by the code generator.
func GoName(name string) string {
	n := inflect.Camelize(name)
	// Camelize produces "AuthorId"; normalize trailing initialisms the way
	// Go code expects.
	for _, suffix := range []string{"Id", "Url", "Uuid", "Json", "Sql", "Api"} {
		if strings.HasSuffix(n, suffix) {
			n = n[:len(n)-len(suffix)] + strings.ToUpper(suffix)
		}
	}
	return n
}
