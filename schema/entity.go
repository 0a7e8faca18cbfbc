package schema

// Enum is a named set of variants.
type Enum struct {
	Name   string
	Values []EnumValue
	Attrs  []*Attribute
	Doc    string
	Span   Span
}

// EnumValue is a single enum variant. @map renames the stored value.
type EnumValue struct {
	Name  string
	Attrs []*Attribute
	Span  Span
}

// NewEnum returns an enum with the given variants.
func NewEnum(name string, values ...string) *Enum {
	e := &Enum{Name: name}
	for _, v := range values {
		e.Values = append(e.Values, EnumValue{Name: v})
	}
	return e
}

// Has reports whether the enum declares the named variant.
func (e *Enum) Has(value string) bool {
	for _, v := range e.Values {
		if v.Name == value {
			return true
		}
	}
	return false
}

// Names returns the variant names in declaration order.
func (e *Enum) Names() []string {
	names := make([]string, len(e.Values))
	for i, v := range e.Values {
		names[i] = v.Name
	}
	return names
}

// StoredValue returns the database representation of a variant, honoring a
// @map attribute on the variant.
func (e *Enum) StoredValue(name string) string {
	for _, v := range e.Values {
		if v.Name != name {
			continue
		}
		for _, a := range v.Attrs {
			if a.Name == AttrMap {
				if mv, ok := a.First(); ok && mv.Kind == ValueString {
					return mv.String
				}
			}
		}
		return v.Name
	}
	return name
}

// View is a read-only named entity backed by a database view. Fields mirror
// the view's projection. A view carrying @@materialized supports refresh.
type View struct {
	Name       string
	Fields     []*Field
	Attrs      []*Attribute
	Doc        string
	Definition string // optional SQL body, informational
	Span       Span

	index map[string]int
}

// NewView returns a view with the given fields.
func NewView(name string, fields ...FieldDefiner) *View {
	v := &View{Name: name}
	for _, f := range fields {
		v.AddField(f.FieldDef())
	}
	return v
}

// AddField appends a field to the view's projection.
func (v *View) AddField(f *Field) *View {
	if v.index == nil {
		v.index = make(map[string]int)
	}
	if i, ok := v.index[f.Name]; ok {
		v.Fields[i] = f
		return v
	}
	v.index[f.Name] = len(v.Fields)
	v.Fields = append(v.Fields, f)
	return v
}

// Field returns the named field.
func (v *View) Field(name string) (*Field, bool) {
	i, ok := v.index[name]
	if !ok {
		return nil, false
	}
	return v.Fields[i], true
}

// Attr returns the first view attribute with the given name, or nil.
func (v *View) Attr(name string) *Attribute {
	for _, a := range v.Attrs {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// WithAttr appends a view-level attribute and returns the view.
func (v *View) WithAttr(a *Attribute) *View {
	v.Attrs = append(v.Attrs, a)
	return v
}

// Materialized reports whether the view carries @@materialized.
func (v *View) Materialized() bool {
	return v.Attr(AttrMaterialized) != nil
}

// MappedName returns the @@map override, or the empty string.
func (v *View) MappedName() string {
	a := v.Attr(AttrMap)
	if a == nil {
		return ""
	}
	mv, ok := a.First()
	if !ok || mv.Kind != ValueString {
		return ""
	}
	return mv.String
}

// Composite is a named value type embedded in models (document stores map it
// to nested documents; relational stores to JSON columns). Composites carry
// no relations.
type Composite struct {
	Name   string
	Fields []*Field
	Doc    string
	Span   Span

	index map[string]int
}

// NewComposite returns a composite type with the given fields.
func NewComposite(name string, fields ...FieldDefiner) *Composite {
	c := &Composite{Name: name}
	for _, f := range fields {
		c.AddField(f.FieldDef())
	}
	return c
}

// AddField appends a field to the composite.
func (c *Composite) AddField(f *Field) *Composite {
	if c.index == nil {
		c.index = make(map[string]int)
	}
	if i, ok := c.index[f.Name]; ok {
		c.Fields[i] = f
		return c
	}
	c.index[f.Name] = len(c.Fields)
	c.Fields = append(c.Fields, f)
	return c
}

// Field returns the named field.
func (c *Composite) Field(name string) (*Field, bool) {
	i, ok := c.index[name]
	if !ok {
		return nil, false
	}
	return c.Fields[i], true
}
