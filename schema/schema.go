package schema

// EntityKind tags the four top-level entity kinds of a schema.
type EntityKind uint8

const (
	EntityModel EntityKind = iota
	EntityEnum
	EntityView
	EntityComposite
)

// String returns the kind name.
func (k EntityKind) String() string {
	switch k {
	case EntityModel:
		return "model"
	case EntityEnum:
		return "enum"
	case EntityView:
		return "view"
	case EntityComposite:
		return "composite"
	default:
		return "unknown"
	}
}

// Schema is the root of a parsed data model: one insertion-ordered
// collection per entity kind, and the relation list derived by Validate.
type Schema struct {
	Models     []*Model
	Enums      []*Enum
	Views      []*View
	Composites []*Composite

	// Relations is materialized by Validate. It belongs to the schema, not
	// to individual models (see the relation-graph notes on Relation).
	Relations []*Relation

	models     map[string]int
	enums      map[string]int
	views      map[string]int
	composites map[string]int
}

// New returns a schema containing the given entities. Entities are added in
// argument order; pass *Model, *Enum, *View or *Composite values.
func New(entities ...any) *Schema {
	s := &Schema{}
	for _, e := range entities {
		switch e := e.(type) {
		case *Model:
			s.AddModel(e)
		case *Enum:
			s.AddEnum(e)
		case *View:
			s.AddView(e)
		case *Composite:
			s.AddComposite(e)
		}
	}
	return s
}

// AddModel appends a model, replacing a previous model of the same name.
func (s *Schema) AddModel(m *Model) *Schema {
	if s.models == nil {
		s.models = make(map[string]int)
	}
	if i, ok := s.models[m.Name]; ok {
		s.Models[i] = m
		return s
	}
	s.models[m.Name] = len(s.Models)
	s.Models = append(s.Models, m)
	return s
}

// AddEnum appends an enum, replacing a previous enum of the same name.
func (s *Schema) AddEnum(e *Enum) *Schema {
	if s.enums == nil {
		s.enums = make(map[string]int)
	}
	if i, ok := s.enums[e.Name]; ok {
		s.Enums[i] = e
		return s
	}
	s.enums[e.Name] = len(s.Enums)
	s.Enums = append(s.Enums, e)
	return s
}

// AddView appends a view, replacing a previous view of the same name.
func (s *Schema) AddView(v *View) *Schema {
	if s.views == nil {
		s.views = make(map[string]int)
	}
	if i, ok := s.views[v.Name]; ok {
		s.Views[i] = v
		return s
	}
	s.views[v.Name] = len(s.Views)
	s.Views = append(s.Views, v)
	return s
}

// AddComposite appends a composite type, replacing a previous one of the
// same name.
func (s *Schema) AddComposite(c *Composite) *Schema {
	if s.composites == nil {
		s.composites = make(map[string]int)
	}
	if i, ok := s.composites[c.Name]; ok {
		s.Composites[i] = c
		return s
	}
	s.composites[c.Name] = len(s.Composites)
	s.Composites = append(s.Composites, c)
	return s
}

// Model returns the named model.
func (s *Schema) Model(name string) (*Model, bool) {
	i, ok := s.models[name]
	if !ok {
		return nil, false
	}
	return s.Models[i], true
}

// Enum returns the named enum.
func (s *Schema) Enum(name string) (*Enum, bool) {
	i, ok := s.enums[name]
	if !ok {
		return nil, false
	}
	return s.Enums[i], true
}

// View returns the named view.
func (s *Schema) View(name string) (*View, bool) {
	i, ok := s.views[name]
	if !ok {
		return nil, false
	}
	return s.Views[i], true
}

// Composite returns the named composite type.
func (s *Schema) Composite(name string) (*Composite, bool) {
	i, ok := s.composites[name]
	if !ok {
		return nil, false
	}
	return s.Composites[i], true
}

// Lookup resolves a name against all entity kinds. The boolean reports
// whether the name exists anywhere in the schema.
func (s *Schema) Lookup(name string) (EntityKind, bool) {
	if _, ok := s.models[name]; ok {
		return EntityModel, true
	}
	if _, ok := s.enums[name]; ok {
		return EntityEnum, true
	}
	if _, ok := s.views[name]; ok {
		return EntityView, true
	}
	if _, ok := s.composites[name]; ok {
		return EntityComposite, true
	}
	return 0, false
}

// ModelNames returns the model names in source order.
func (s *Schema) ModelNames() []string {
	names := make([]string, len(s.Models))
	for i, m := range s.Models {
		names[i] = m.Name
	}
	return names
}
