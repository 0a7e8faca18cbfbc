package field

import (
	"github.com/syssam/prax/schema"
)

// Builder accumulates a field definition. All builders share one type; the
// validator rejects attribute/type combinations that make no sense (e.g.
// @auto on a string field).
type Builder struct {
	f *schema.Field
}

func newBuilder(name string, t schema.FieldType) *Builder {
	return &Builder{f: schema.NewField(name, t)}
}

// Int returns an Int field builder.
func Int(name string) *Builder { return newBuilder(name, schema.ScalarType(schema.ScalarInt)) }

// BigInt returns a BigInt field builder.
func BigInt(name string) *Builder { return newBuilder(name, schema.ScalarType(schema.ScalarBigInt)) }

// Float returns a Float field builder.
func Float(name string) *Builder { return newBuilder(name, schema.ScalarType(schema.ScalarFloat)) }

// Decimal returns a Decimal field builder.
func Decimal(name string) *Builder { return newBuilder(name, schema.ScalarType(schema.ScalarDecimal)) }

// String returns a String field builder.
func String(name string) *Builder { return newBuilder(name, schema.ScalarType(schema.ScalarString)) }

// Bool returns a Boolean field builder.
func Bool(name string) *Builder { return newBuilder(name, schema.ScalarType(schema.ScalarBoolean)) }

// DateTime returns a DateTime field builder.
func DateTime(name string) *Builder {
	return newBuilder(name, schema.ScalarType(schema.ScalarDateTime))
}

// Date returns a Date field builder.
func Date(name string) *Builder { return newBuilder(name, schema.ScalarType(schema.ScalarDate)) }

// Time returns a Time field builder.
func Time(name string) *Builder { return newBuilder(name, schema.ScalarType(schema.ScalarTime)) }

// JSON returns a Json field builder.
func JSON(name string) *Builder { return newBuilder(name, schema.ScalarType(schema.ScalarJSON)) }

// Bytes returns a Bytes field builder.
func Bytes(name string) *Builder { return newBuilder(name, schema.ScalarType(schema.ScalarBytes)) }

// UUID returns a Uuid field builder.
func UUID(name string) *Builder { return newBuilder(name, schema.ScalarType(schema.ScalarUUID)) }

// CUID returns a Cuid field builder.
func CUID(name string) *Builder { return newBuilder(name, schema.ScalarType(schema.ScalarCUID)) }

// CUID2 returns a Cuid2 field builder.
func CUID2(name string) *Builder { return newBuilder(name, schema.ScalarType(schema.ScalarCUID2)) }

// NanoID returns a NanoId field builder.
func NanoID(name string) *Builder { return newBuilder(name, schema.ScalarType(schema.ScalarNanoID)) }

// ULID returns a Ulid field builder.
func ULID(name string) *Builder { return newBuilder(name, schema.ScalarType(schema.ScalarULID)) }

// Enum returns a field builder referencing the named enum.
func Enum(name, enum string) *Builder { return newBuilder(name, schema.EnumType(enum)) }

// Model returns a relation field builder referencing the named model.
func Model(name, model string) *Builder { return newBuilder(name, schema.ModelType(model)) }

// Composite returns a field builder referencing the named composite type.
func Composite(name, composite string) *Builder {
	return newBuilder(name, schema.CompositeType(composite))
}

// Unsupported returns a field builder carrying an unmapped database type.
func Unsupported(name, raw string) *Builder {
	return newBuilder(name, schema.UnsupportedType(raw))
}

// Optional marks the field nullable (trailing ? in source).
func (b *Builder) Optional() *Builder {
	if b.f.Modifier == schema.List {
		b.f.Modifier = schema.OptionalList
	} else {
		b.f.Modifier = schema.Optional
	}
	return b
}

// List marks the field as holding multiple values (trailing [] in source).
func (b *Builder) List() *Builder {
	if b.f.Modifier == schema.Optional {
		b.f.Modifier = schema.OptionalList
	} else {
		b.f.Modifier = schema.List
	}
	return b
}

// ID attaches @id.
func (b *Builder) ID() *Builder {
	return b.attr(schema.NewAttribute(schema.AttrID))
}

// Unique attaches @unique.
func (b *Builder) Unique() *Builder {
	return b.attr(schema.NewAttribute(schema.AttrUnique))
}

// Auto attaches @auto (auto-incrementing Int/BigInt).
func (b *Builder) Auto() *Builder {
	return b.attr(schema.NewAttribute(schema.AttrAuto))
}

// UpdatedAt attaches @updated_at.
func (b *Builder) UpdatedAt() *Builder {
	return b.attr(schema.NewAttribute(schema.AttrUpdatedAt))
}

// Map attaches @map("name"), overriding the column name.
func (b *Builder) Map(name string) *Builder {
	return b.attr(schema.NewAttribute(schema.AttrMap, schema.StringValue(name)))
}

// Default attaches a literal @default. Supported literal types: string,
// bool, int, int64, float64. Other values are ignored; use DefaultFunc for
// function defaults.
func (b *Builder) Default(v any) *Builder {
	var value schema.Value
	switch v := v.(type) {
	case string:
		value = schema.StringValue(v)
	case bool:
		value = schema.BoolValue(v)
	case int:
		value = schema.IntValue(int64(v))
	case int64:
		value = schema.IntValue(v)
	case float64:
		value = schema.FloatValue(v)
	default:
		return b
	}
	return b.attr(schema.NewAttribute(schema.AttrDefault, value))
}

// DefaultIdent attaches @default(Variant) for enum fields.
func (b *Builder) DefaultIdent(variant string) *Builder {
	return b.attr(schema.NewAttribute(schema.AttrDefault, schema.IdentValue(variant)))
}

// DefaultFunc attaches @default(fn()), e.g. DefaultFunc("uuid") or
// DefaultFunc("now").
func (b *Builder) DefaultFunc(fn string, args ...schema.Value) *Builder {
	return b.attr(schema.NewAttribute(schema.AttrDefault, schema.FuncValue(fn, args...)))
}

// Fields sets the @relation fields argument: the scalar foreign-key columns
// on the declaring model.
func (b *Builder) Fields(names ...string) *Builder {
	b.relation().WithArg("fields", identList(names))
	return b
}

// References sets the @relation references argument: the referenced columns
// on the target model.
func (b *Builder) References(names ...string) *Builder {
	b.relation().WithArg("references", identList(names))
	return b
}

// RelationName names the relation, disambiguating multiple relations
// between the same pair of models.
func (b *Builder) RelationName(name string) *Builder {
	rel := b.relation()
	rel.Args = append([]schema.Arg{{Value: schema.StringValue(name)}}, rel.Args...)
	return b
}

// OnDelete sets the @relation onDelete action.
func (b *Builder) OnDelete(action schema.ReferenceOption) *Builder {
	b.relation().WithArg("onDelete", schema.IdentValue(action.ConstName()))
	return b
}

// OnUpdate sets the @relation onUpdate action.
func (b *Builder) OnUpdate(action schema.ReferenceOption) *Builder {
	b.relation().WithArg("onUpdate", schema.IdentValue(action.ConstName()))
	return b
}

// Doc sets the field documentation; @validate: and @tag: directives are
// parsed out of it.
func (b *Builder) Doc(text string) *Builder {
	b.f.SetDoc(text)
	return b
}

// Span records the source byte range of the field.
func (b *Builder) Span(start, end int) *Builder {
	b.f.Span = schema.Span{Start: start, End: end}
	return b
}

// Attr attaches an arbitrary attribute.
func (b *Builder) Attr(a *schema.Attribute) *Builder {
	return b.attr(a)
}

// FieldDef returns the built field, satisfying schema.FieldDefiner.
func (b *Builder) FieldDef() *schema.Field {
	return b.f
}

// Def is an alias for FieldDef for call sites that read better with a
// terminal verb.
func (b *Builder) Def() *schema.Field {
	return b.f
}

func (b *Builder) attr(a *schema.Attribute) *Builder {
	b.f.Attrs = append(b.f.Attrs, a)
	return b
}

// relation returns the field's @relation attribute, creating it on first
// use so Fields/References/OnDelete compose in any order.
func (b *Builder) relation() *schema.Attribute {
	if a := b.f.Attr(schema.AttrRelation); a != nil {
		return a
	}
	a := schema.NewAttribute(schema.AttrRelation)
	b.f.Attrs = append(b.f.Attrs, a)
	return a
}

func identList(names []string) schema.Value {
	elems := make([]schema.Value, len(names))
	for i, n := range names {
		elems[i] = schema.IdentValue(n)
	}
	return schema.ListValue(elems...)
}
