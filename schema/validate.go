package schema

import (
	"fmt"
	"strings"
)

// IssueCode classifies a validation finding.
type IssueCode string

const (
	CodeDuplicateName    IssueCode = "duplicate_name"
	CodeUnknownType      IssueCode = "unknown_type"
	CodeMissingID        IssueCode = "missing_id"
	CodeInvalidAttribute IssueCode = "invalid_attribute"
	CodeInvalidRelation  IssueCode = "invalid_relation"
	CodeInvalidDefault   IssueCode = "invalid_default"
)

// Issue is a single validation finding. Model and Field locate the finding;
// either may be empty for schema-level findings.
type Issue struct {
	Code    IssueCode
	Model   string
	Field   string
	Message string
	Span    Span
}

// Error returns the finding as "Model.field: message".
func (i *Issue) Error() string {
	switch {
	case i.Model != "" && i.Field != "":
		return fmt.Sprintf("%s.%s: %s", i.Model, i.Field, i.Message)
	case i.Model != "":
		return fmt.Sprintf("%s: %s", i.Model, i.Message)
	default:
		return i.Message
	}
}

// ValidationError aggregates every finding of a single Validate call.
type ValidationError struct {
	Issues []*Issue
}

// Error returns a multi-line report of all findings.
func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return "prax: schema validation failed: " + e.Issues[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "prax: schema validation failed with %d issues:", len(e.Issues))
	for _, i := range e.Issues {
		sb.WriteString("\n  - ")
		sb.WriteString(i.Error())
	}
	return sb.String()
}

// Unwrap exposes the findings to errors.Is/As traversal.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, len(e.Issues))
	for i, issue := range e.Issues {
		errs[i] = issue
	}
	return errs
}

// ByCode returns the findings carrying the given code.
func (e *ValidationError) ByCode(code IssueCode) []*Issue {
	var out []*Issue
	for _, i := range e.Issues {
		if i.Code == code {
			out = append(out, i)
		}
	}
	return out
}

type validator struct {
	schema *Schema
	issues []*Issue
}

func (v *validator) errorf(code IssueCode, model, field string, span Span, format string, args ...any) {
	v.issues = append(v.issues, &Issue{
		Code:    code,
		Model:   model,
		Field:   field,
		Span:    span,
		Message: fmt.Sprintf(format, args...),
	})
}

// Validate checks the schema invariants and attaches the derived relation
// list. It is a single pass over the schema with no I/O and no side effects
// besides Relations. All findings are accumulated; the error is nil iff
// none were found, and is a *ValidationError otherwise. Validate never
// panics.
func Validate(s *Schema) error {
	v := &validator{schema: s}
	v.checkNames()
	v.resolveTypes()
	for _, m := range s.Models {
		v.checkModel(m)
	}
	for _, view := range s.Views {
		v.checkViewAttrs(view)
	}
	s.Relations = v.materializeRelations()
	if len(v.issues) > 0 {
		return &ValidationError{Issues: v.issues}
	}
	return nil
}

// checkNames enforces global name uniqueness across all entity kinds.
func (v *validator) checkNames() {
	seen := make(map[string]EntityKind)
	record := func(name string, kind EntityKind, span Span) {
		if prev, ok := seen[name]; ok {
			v.errorf(CodeDuplicateName, name, "", span,
				"name already used by a %s in this schema", prev)
			return
		}
		seen[name] = kind
	}
	for _, m := range v.schema.Models {
		record(m.Name, EntityModel, m.Span)
	}
	for _, e := range v.schema.Enums {
		record(e.Name, EntityEnum, e.Span)
	}
	for _, view := range v.schema.Views {
		record(view.Name, EntityView, view.Span)
	}
	for _, c := range v.schema.Composites {
		record(c.Name, EntityComposite, c.Span)
	}
}

// resolveTypes re-types model references that actually name enums or
// composite types (the parser cannot distinguish bare names), then checks
// that every reference resolves to an entity of the matching kind.
func (v *validator) resolveTypes() {
	check := func(owner string, fields []*Field) {
		for _, f := range fields {
			switch f.Type.Kind {
			case KindModel:
				if _, ok := v.schema.Enum(f.Type.Ref); ok {
					f.Type.Kind = KindEnum
					continue
				}
				if _, ok := v.schema.Composite(f.Type.Ref); ok {
					f.Type.Kind = KindComposite
					continue
				}
				if _, ok := v.schema.Model(f.Type.Ref); !ok {
					v.errorf(CodeUnknownType, owner, f.Name, f.Span,
						"unknown type %q", f.Type.Ref)
				}
			case KindEnum:
				if _, ok := v.schema.Enum(f.Type.Ref); !ok {
					v.errorf(CodeUnknownType, owner, f.Name, f.Span,
						"unknown enum %q", f.Type.Ref)
				}
			case KindComposite:
				if _, ok := v.schema.Composite(f.Type.Ref); !ok {
					v.errorf(CodeUnknownType, owner, f.Name, f.Span,
						"unknown composite type %q", f.Type.Ref)
				}
			}
		}
	}
	for _, m := range v.schema.Models {
		check(m.Name, m.Fields)
	}
	for _, view := range v.schema.Views {
		check(view.Name, view.Fields)
	}
	for _, c := range v.schema.Composites {
		check(c.Name, c.Fields)
	}
}

// checkModel enforces the model-level and field-level attribute invariants.
func (v *validator) checkModel(m *Model) {
	// Exactly one id source: a single @id field or a single @@id attribute.
	var idFields []*Field
	for _, f := range m.Fields {
		if f.IsID() {
			idFields = append(idFields, f)
		}
	}
	var compositeIDs []*Attribute
	for _, a := range m.Attrs {
		if a.Name == AttrID {
			compositeIDs = append(compositeIDs, a)
		}
	}
	switch {
	case len(idFields) == 0 && len(compositeIDs) == 0:
		v.errorf(CodeMissingID, m.Name, "", m.Span,
			"model has no @id field and no @@id attribute")
	case len(idFields) > 1:
		v.errorf(CodeInvalidAttribute, m.Name, idFields[1].Name, idFields[1].Span,
			"multiple @id fields; a model has at most one")
	case len(compositeIDs) > 1:
		v.errorf(CodeInvalidAttribute, m.Name, "", compositeIDs[1].Span,
			"multiple @@id attributes; a model has at most one")
	case len(idFields) == 1 && len(compositeIDs) == 1:
		v.errorf(CodeInvalidAttribute, m.Name, idFields[0].Name, idFields[0].Span,
			"@id field and @@id attribute are mutually exclusive")
	}

	for _, a := range m.Attrs {
		v.checkModelAttr(m, a)
	}
	for _, f := range m.Fields {
		v.checkField(m, f)
	}
}

// checkModelAttr enforces that @@index/@@unique/@@search/@@id reference
// existing fields, and that @@search fields are strings.
func (v *validator) checkModelAttr(m *Model, a *Attribute) {
	switch a.Name {
	case AttrIndex, AttrUnique, AttrSearch, AttrID:
	default:
		return
	}
	fields := a.Idents("")
	if named := a.Idents("fields"); len(named) > 0 {
		fields = named
	}
	for _, name := range fields {
		f, ok := m.Field(name)
		if !ok {
			v.errorf(CodeInvalidAttribute, m.Name, "", a.Span,
				"@@%s references unknown field %q", a.Name, name)
			continue
		}
		if a.Name == AttrSearch && !f.Type.IsScalar(ScalarString) {
			v.errorf(CodeInvalidAttribute, m.Name, name, a.Span,
				"@@search requires string fields, %s is %s", name, f.Type)
		}
	}
}

// checkField enforces the field-level invariants on attributes.
func (v *validator) checkField(m *Model, f *Field) {
	if f.IsID() && f.IsRelation() {
		v.errorf(CodeInvalidAttribute, m.Name, f.Name, f.Span,
			"@id cannot be placed on a relation field")
	}
	if f.HasAttr(AttrAuto) {
		if !(f.Type.IsScalar(ScalarInt) || f.Type.IsScalar(ScalarBigInt)) {
			v.errorf(CodeInvalidAttribute, m.Name, f.Name, f.Span,
				"@auto requires Int or BigInt, field is %s", f.Type)
		}
	}
	if f.IsUpdatedAt() && !f.Type.IsScalar(ScalarDateTime) {
		v.errorf(CodeInvalidAttribute, m.Name, f.Name, f.Span,
			"@updated_at requires DateTime, field is %s", f.Type)
	}
	if d, ok := f.Default(); ok {
		v.checkDefault(m, f, d)
	}
	if rel := f.Relation(); rel != nil {
		for _, name := range rel.Idents("fields") {
			if _, ok := m.Field(name); !ok {
				v.errorf(CodeInvalidRelation, m.Name, f.Name, rel.Span,
					"@relation fields references unknown field %q", name)
			}
		}
	}
}

// checkDefault enforces that a @default value conforms to the field type.
// Function defaults are admitted universally; enum defaults must name an
// existing variant of the field's enum.
func (v *validator) checkDefault(m *Model, f *Field, d Value) {
	if d.Kind == ValueFunc {
		return
	}
	switch f.Type.Kind {
	case KindEnum:
		e, ok := v.schema.Enum(f.Type.Ref)
		if !ok {
			return // unresolved enum already reported by resolveTypes
		}
		variant := d.String
		if d.Kind != ValueIdent && d.Kind != ValueString {
			v.errorf(CodeInvalidDefault, m.Name, f.Name, f.Span,
				"enum default must name a variant of %s", e.Name)
			return
		}
		if !e.Has(variant) {
			v.errorf(CodeInvalidDefault, m.Name, f.Name, f.Span,
				"enum %s has no variant %q", e.Name, variant)
		}
	case KindScalar:
		if !defaultConforms(f.Type.Scalar, d) {
			v.errorf(CodeInvalidDefault, m.Name, f.Name, f.Span,
				"default %s does not conform to %s", d.Render(), f.Type.Scalar)
		}
	}
}

func defaultConforms(k ScalarKind, d Value) bool {
	switch k {
	case ScalarInt, ScalarBigInt:
		return d.Kind == ValueInt
	case ScalarFloat, ScalarDecimal:
		return d.Kind == ValueFloat || d.Kind == ValueInt
	case ScalarBoolean:
		return d.Kind == ValueBool
	case ScalarString, ScalarUUID, ScalarCUID, ScalarCUID2, ScalarNanoID, ScalarULID:
		return d.Kind == ValueString
	case ScalarDateTime, ScalarDate, ScalarTime:
		return d.Kind == ValueString
	case ScalarJSON:
		return d.Kind == ValueString || d.Kind == ValueList
	case ScalarBytes:
		return d.Kind == ValueString
	default:
		return true
	}
}

// checkViewAttrs applies the model-attribute checks that make sense for
// views (@@index-style attributes are not allowed on views).
func (v *validator) checkViewAttrs(view *View) {
	for _, a := range view.Attrs {
		if a.Name == AttrIndex || a.Name == AttrUnique || a.Name == AttrID {
			v.errorf(CodeInvalidAttribute, view.Name, "", a.Span,
				"@@%s is not allowed on a view", a.Name)
		}
	}
}

// materializeRelations derives the relation list: one record per
// model-typed field, OneToMany when the field is a list, ManyToOne
// otherwise. When both directions of a pair are lists, the two records are
// upgraded to ManyToMany; such relations carry no foreign key of their own
// and resolve through an implicit join table. Fields whose target did not
// resolve are skipped; they were reported by resolveTypes.
func (v *validator) materializeRelations() []*Relation {
	var relations []*Relation
	for _, m := range v.schema.Models {
		for _, f := range m.Fields {
			if f.Type.Kind != KindModel {
				continue
			}
			if _, ok := v.schema.Model(f.Type.Ref); !ok {
				continue
			}
			kind := ManyToOne
			if f.Modifier.IsList() {
				kind = OneToMany
			}
			rel := &Relation{
				From:      m.Name,
				FromField: f.Name,
				To:        f.Type.Ref,
				Kind:      kind,
				OnDelete:  NoAction,
				OnUpdate:  NoAction,
			}
			if a := f.Relation(); a != nil {
				if name, ok := a.First(); ok && name.Kind == ValueString {
					rel.Name = name.String
				}
				rel.FromFields = a.Idents("fields")
				rel.ToFields = a.Idents("references")
				if action, ok := a.Arg("onDelete"); ok && action.Kind == ValueIdent {
					if opt, ok := ReferenceOptionOf(action.String); ok {
						rel.OnDelete = opt
					} else {
						v.errorf(CodeInvalidRelation, m.Name, f.Name, a.Span,
							"unknown onDelete action %q", action.String)
					}
				}
				if action, ok := a.Arg("onUpdate"); ok && action.Kind == ValueIdent {
					if opt, ok := ReferenceOptionOf(action.String); ok {
						rel.OnUpdate = opt
					} else {
						v.errorf(CodeInvalidRelation, m.Name, f.Name, a.Span,
							"unknown onUpdate action %q", action.String)
					}
				}
			}
			relations = append(relations, rel)
		}
	}
	for i, r := range relations {
		if r.Kind != OneToMany {
			continue
		}
		for _, other := range relations[i+1:] {
			if other.Kind == OneToMany && other.From == r.To && other.To == r.From && other.Name == r.Name {
				r.Kind = ManyToMany
				other.Kind = ManyToMany
			}
		}
	}
	return relations
}
