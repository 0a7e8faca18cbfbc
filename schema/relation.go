package schema

// RelationKind is the cardinality of a relation as seen from its declaring
// side.
type RelationKind uint8

const (
	OneToOne RelationKind = iota
	OneToMany
	ManyToOne
	ManyToMany
)

// String returns the kind name.
func (k RelationKind) String() string {
	switch k {
	case OneToOne:
		return "OneToOne"
	case OneToMany:
		return "OneToMany"
	case ManyToOne:
		return "ManyToOne"
	case ManyToMany:
		return "ManyToMany"
	default:
		return "Unknown"
	}
}

// ReferenceOption for constraint actions.
type ReferenceOption string

// Reference options (actions) specified by ON UPDATE and ON DELETE
// subclauses of the FOREIGN KEY clause.
const (
	NoAction   ReferenceOption = "NO ACTION"
	Restrict   ReferenceOption = "RESTRICT"
	Cascade    ReferenceOption = "CASCADE"
	SetNull    ReferenceOption = "SET NULL"
	SetDefault ReferenceOption = "SET DEFAULT"
)

// ConstName returns the constant name of a reference option, as written in
// schema source ("Cascade", "SetNull", ...).
func (r ReferenceOption) ConstName() string {
	switch r {
	case NoAction:
		return "NoAction"
	case Restrict:
		return "Restrict"
	case Cascade:
		return "Cascade"
	case SetNull:
		return "SetNull"
	case SetDefault:
		return "SetDefault"
	default:
		return string(r)
	}
}

// ReferenceOptionOf parses a schema-source action identifier ("Cascade",
// "SetNull", ...) into its ReferenceOption. Unknown identifiers report
// ok == false.
func ReferenceOptionOf(ident string) (ReferenceOption, bool) {
	switch ident {
	case "NoAction":
		return NoAction, true
	case "Restrict":
		return Restrict, true
	case "Cascade":
		return Cascade, true
	case "SetNull":
		return SetNull, true
	case "SetDefault":
		return SetDefault, true
	default:
		return "", false
	}
}

// Relation is one directed edge of the relation multigraph: the declaring
// model, the declaring field, the referenced model, and the ordered
// foreign-key column pairing. Relations live on the schema, never on the
// models themselves, so cyclic graphs (self-references, mutual foreign
// keys) carry no ownership cycles. Lookups go through (model, field) keys.
type Relation struct {
	Name       string // optional relation name from @relation("name")
	From       string // declaring model
	FromField  string // declaring field
	To         string // referenced model
	Kind       RelationKind
	FromFields []string // scalar columns on the declaring model ("fields:")
	ToFields   []string // referenced columns ("references:")
	OnDelete   ReferenceOption
	OnUpdate   ReferenceOption
}

// Inverse returns the relation declared by the opposite side, if present in
// the schema's relation list.
func (r *Relation) Inverse(s *Schema) (*Relation, bool) {
	for _, other := range s.Relations {
		if other == r {
			continue
		}
		if other.From == r.To && other.To == r.From && other.Name == r.Name {
			return other, true
		}
	}
	return nil, false
}

// RelationOf returns the relation declared by the given (model, field) pair.
func (s *Schema) RelationOf(model, field string) (*Relation, bool) {
	for _, r := range s.Relations {
		if r.From == model && r.FromField == field {
			return r, true
		}
	}
	return nil, false
}

// RelationsFrom returns every relation declared by the given model.
func (s *Schema) RelationsFrom(model string) []*Relation {
	var out []*Relation
	for _, r := range s.Relations {
		if r.From == model {
			out = append(out, r)
		}
	}
	return out
}
