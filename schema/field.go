package schema

// FieldDefiner is anything that can produce a field definition. *Field
// implements it directly; the fluent builders in schema/field implement it
// so models can be assembled without terminal calls.
type FieldDefiner interface {
	FieldDef() *Field
}

// Field is a single named member of a model, view or composite type.
type Field struct {
	Name     string
	Type     FieldType
	Modifier TypeModifier
	Attrs    []*Attribute

	// Doc is the plain documentation text with directives stripped.
	// Validation and Tags carry the parsed @validate: and @tag: directives;
	// see ParseDoc. The core never evaluates validation rules, it only
	// exposes them to code generators.
	Doc        string
	Validation *FieldValidation
	Tags       map[string]string

	Span Span
}

// NewField returns a field with the given name and type.
func NewField(name string, t FieldType) *Field {
	return &Field{Name: name, Type: t}
}

// FieldDef returns the field itself, satisfying FieldDefiner.
func (f *Field) FieldDef() *Field { return f }

// Attr returns the first attribute with the given name, or nil.
func (f *Field) Attr(name string) *Attribute {
	for _, a := range f.Attrs {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// HasAttr reports whether the field carries the named attribute.
func (f *Field) HasAttr(name string) bool {
	return f.Attr(name) != nil
}

// IsID reports whether the field is the model's @id field.
func (f *Field) IsID() bool {
	return f.HasAttr(AttrID)
}

// IsUnique reports whether the field carries @unique.
func (f *Field) IsUnique() bool {
	return f.HasAttr(AttrUnique)
}

// IsUpdatedAt reports whether the field carries @updated_at.
func (f *Field) IsUpdatedAt() bool {
	return f.HasAttr(AttrUpdatedAt)
}

// IsRelation reports whether the field's type references a model.
func (f *Field) IsRelation() bool {
	return f.Type.Kind == KindModel
}

// Default returns the @default attribute value.
func (f *Field) Default() (Value, bool) {
	a := f.Attr(AttrDefault)
	if a == nil {
		return Value{}, false
	}
	return a.First()
}

// DefaultFunc returns the name of the @default function when the default is
// a function call ("uuid", "now", "autoincrement", ...).
func (f *Field) DefaultFunc() (string, bool) {
	v, ok := f.Default()
	if !ok || v.Kind != ValueFunc {
		return "", false
	}
	return v.String, true
}

// MappedName returns the @map override, or the empty string.
func (f *Field) MappedName() string {
	a := f.Attr(AttrMap)
	if a == nil {
		return ""
	}
	v, ok := a.First()
	if !ok || v.Kind != ValueString {
		return ""
	}
	return v.String
}

// Relation returns the @relation attribute, or nil.
func (f *Field) Relation() *Attribute {
	return f.Attr(AttrRelation)
}

// SetDoc parses the documentation text, splits off @validate: and @tag:
// directives, and stores the remainder as the field's plain documentation.
func (f *Field) SetDoc(doc string) *Field {
	f.Doc, f.Validation, f.Tags = ParseDoc(doc)
	return f
}

// clone returns a deep copy of the field. Attribute values are immutable
// once built, so attribute pointers are copied shallowly.
func (f *Field) clone() *Field {
	c := *f
	c.Attrs = append([]*Attribute(nil), f.Attrs...)
	if f.Tags != nil {
		c.Tags = make(map[string]string, len(f.Tags))
		for k, v := range f.Tags {
			c.Tags[k] = v
		}
	}
	return &c
}
