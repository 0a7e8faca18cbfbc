package schema

import "fmt"

// ScalarKind enumerates the built-in scalar field types.
type ScalarKind uint8

const (
	ScalarInvalid ScalarKind = iota
	ScalarInt
	ScalarBigInt
	ScalarFloat
	ScalarDecimal
	ScalarString
	ScalarBoolean
	ScalarDateTime
	ScalarDate
	ScalarTime
	ScalarJSON
	ScalarBytes
	ScalarUUID
	ScalarCUID
	ScalarCUID2
	ScalarNanoID
	ScalarULID

	endScalars
)

var scalarNames = [...]string{
	ScalarInvalid:  "Invalid",
	ScalarInt:      "Int",
	ScalarBigInt:   "BigInt",
	ScalarFloat:    "Float",
	ScalarDecimal:  "Decimal",
	ScalarString:   "String",
	ScalarBoolean:  "Boolean",
	ScalarDateTime: "DateTime",
	ScalarDate:     "Date",
	ScalarTime:     "Time",
	ScalarJSON:     "Json",
	ScalarBytes:    "Bytes",
	ScalarUUID:     "Uuid",
	ScalarCUID:     "Cuid",
	ScalarCUID2:    "Cuid2",
	ScalarNanoID:   "NanoId",
	ScalarULID:     "Ulid",
}

// String returns the source-level name of the scalar kind.
func (k ScalarKind) String() string {
	if k < endScalars {
		return scalarNames[k]
	}
	return fmt.Sprintf("ScalarKind(%d)", uint8(k))
}

// Valid reports whether k is one of the defined scalar kinds.
func (k ScalarKind) Valid() bool {
	return k > ScalarInvalid && k < endScalars
}

// Numeric reports whether the scalar holds a numeric value.
func (k ScalarKind) Numeric() bool {
	switch k {
	case ScalarInt, ScalarBigInt, ScalarFloat, ScalarDecimal:
		return true
	}
	return false
}

// Textual reports whether the scalar is stored as text. Generated-id kinds
// (Uuid, Cuid, Cuid2, NanoId, Ulid) are textual.
func (k ScalarKind) Textual() bool {
	switch k {
	case ScalarString, ScalarUUID, ScalarCUID, ScalarCUID2, ScalarNanoID, ScalarULID:
		return true
	}
	return false
}

// GeneratedID reports whether the scalar is a client-generatable identifier.
func (k ScalarKind) GeneratedID() bool {
	switch k {
	case ScalarUUID, ScalarCUID, ScalarCUID2, ScalarNanoID, ScalarULID:
		return true
	}
	return false
}

// ScalarKindOf resolves a source-level type name ("Int", "DateTime", ...)
// to its ScalarKind. The second return value reports whether the name names
// a scalar at all.
func ScalarKindOf(name string) (ScalarKind, bool) {
	for k := ScalarInt; k < endScalars; k++ {
		if scalarNames[k] == name {
			return k, true
		}
	}
	return ScalarInvalid, false
}

// TypeModifier describes the cardinality and nullability of a field.
type TypeModifier uint8

const (
	Required TypeModifier = iota
	Optional
	List
	OptionalList
)

// String returns the modifier suffix as written in source ("", "?", "[]", "[]?").
func (m TypeModifier) String() string {
	switch m {
	case Optional:
		return "?"
	case List:
		return "[]"
	case OptionalList:
		return "[]?"
	default:
		return ""
	}
}

// Nullable reports whether the column may hold NULL.
func (m TypeModifier) Nullable() bool {
	return m == Optional || m == OptionalList
}

// IsList reports whether the field holds multiple values.
func (m TypeModifier) IsList() bool {
	return m == List || m == OptionalList
}

// TypeKind tags the FieldType sum.
type TypeKind uint8

const (
	KindScalar TypeKind = iota
	KindModel
	KindEnum
	KindComposite
	KindUnsupported
)

// String returns the kind name.
func (k TypeKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindModel:
		return "model"
	case KindEnum:
		return "enum"
	case KindComposite:
		return "composite"
	case KindUnsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("TypeKind(%d)", uint8(k))
	}
}

// FieldType is the type of a field: a scalar, a reference to a named model,
// enum or composite, or an opaque unsupported type carried through verbatim.
// Parsers cannot always tell a model reference from an enum reference; the
// validator re-types KindModel references that resolve to enums or
// composites before checking existence.
type FieldType struct {
	Kind   TypeKind
	Scalar ScalarKind // set when Kind == KindScalar
	Ref    string     // referenced entity name for model/enum/composite kinds
	Raw    string     // original type text for KindUnsupported
}

// ScalarType returns a FieldType for the given scalar kind.
func ScalarType(k ScalarKind) FieldType {
	return FieldType{Kind: KindScalar, Scalar: k}
}

// ModelType returns a FieldType referencing the named model.
func ModelType(name string) FieldType {
	return FieldType{Kind: KindModel, Ref: name}
}

// EnumType returns a FieldType referencing the named enum.
func EnumType(name string) FieldType {
	return FieldType{Kind: KindEnum, Ref: name}
}

// CompositeType returns a FieldType referencing the named composite type.
func CompositeType(name string) FieldType {
	return FieldType{Kind: KindComposite, Ref: name}
}

// UnsupportedType returns a FieldType carrying an unmapped database type.
func UnsupportedType(raw string) FieldType {
	return FieldType{Kind: KindUnsupported, Raw: raw}
}

// TypeOf resolves a source-level type name: scalar names map to their kinds,
// anything else is treated as a (possibly enum or composite) model reference.
func TypeOf(name string) FieldType {
	if k, ok := ScalarKindOf(name); ok {
		return ScalarType(k)
	}
	return ModelType(name)
}

// String returns the source-level type name.
func (t FieldType) String() string {
	switch t.Kind {
	case KindScalar:
		return t.Scalar.String()
	case KindUnsupported:
		return fmt.Sprintf("Unsupported(%q)", t.Raw)
	default:
		return t.Ref
	}
}

// IsScalar reports whether the type is a scalar of the given kind.
func (t FieldType) IsScalar(k ScalarKind) bool {
	return t.Kind == KindScalar && t.Scalar == k
}
