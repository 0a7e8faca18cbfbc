package schema

// Model is a named, ordered collection of fields plus model-level
// attributes (@@id, @@index, @@unique, @@search, @@map, ...).
type Model struct {
	Name   string
	Fields []*Field
	Attrs  []*Attribute
	Doc    string
	Span   Span

	index map[string]int // field name -> position in Fields
}

// NewModel returns a model with the given fields, preserving their order.
func NewModel(name string, fields ...FieldDefiner) *Model {
	m := &Model{Name: name}
	for _, f := range fields {
		m.AddField(f.FieldDef())
	}
	return m
}

// AddField appends a field, keeping the name index current. Adding a field
// whose name already exists replaces the previous definition in place.
func (m *Model) AddField(f *Field) *Model {
	if m.index == nil {
		m.index = make(map[string]int)
	}
	if i, ok := m.index[f.Name]; ok {
		m.Fields[i] = f
		return m
	}
	m.index[f.Name] = len(m.Fields)
	m.Fields = append(m.Fields, f)
	return m
}

// Field returns the named field.
func (m *Model) Field(name string) (*Field, bool) {
	i, ok := m.index[name]
	if !ok {
		return nil, false
	}
	return m.Fields[i], true
}

// Attr returns the first model attribute with the given name, or nil.
func (m *Model) Attr(name string) *Attribute {
	for _, a := range m.Attrs {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// WithAttr appends a model-level attribute and returns the model.
func (m *Model) WithAttr(a *Attribute) *Model {
	m.Attrs = append(m.Attrs, a)
	return m
}

// IDField returns the single field carrying @id, if any.
func (m *Model) IDField() (*Field, bool) {
	for _, f := range m.Fields {
		if f.IsID() {
			return f, true
		}
	}
	return nil, false
}

// CompositeID returns the field names of the @@id attribute, or nil when the
// model has no composite id.
func (m *Model) CompositeID() []string {
	a := m.Attr(AttrID)
	if a == nil {
		return nil
	}
	return a.Idents("")
}

// PrimaryKey returns the ordered primary-key field names: the single @id
// field or the @@id composite list.
func (m *Model) PrimaryKey() []string {
	if f, ok := m.IDField(); ok {
		return []string{f.Name}
	}
	return m.CompositeID()
}

// Indexes returns all @@index and @@unique attributes in declaration order.
func (m *Model) Indexes() []*Attribute {
	var attrs []*Attribute
	for _, a := range m.Attrs {
		if a.Name == AttrIndex || a.Name == AttrUnique {
			attrs = append(attrs, a)
		}
	}
	return attrs
}

// MappedName returns the @@map override, or the empty string.
func (m *Model) MappedName() string {
	a := m.Attr(AttrMap)
	if a == nil {
		return ""
	}
	v, ok := a.First()
	if !ok || v.Kind != ValueString {
		return ""
	}
	return v.String
}

// SetDoc stores the model documentation.
func (m *Model) SetDoc(doc string) *Model {
	m.Doc = doc
	return m
}

// ScalarFields returns the fields whose type is not a model reference, in
// declaration order. These are the fields that become table columns.
func (m *Model) ScalarFields() []*Field {
	fields := make([]*Field, 0, len(m.Fields))
	for _, f := range m.Fields {
		if !f.IsRelation() {
			fields = append(fields, f)
		}
	}
	return fields
}

// RelationFields returns the fields whose type references another model.
func (m *Model) RelationFields() []*Field {
	var fields []*Field
	for _, f := range m.Fields {
		if f.IsRelation() {
			fields = append(fields, f)
		}
	}
	return fields
}
