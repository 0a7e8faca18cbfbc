package filter

import "strconv"

// Op identifies a filter node.
type Op uint8

const (
	OpNone Op = iota
	OpEquals
	OpNotEquals
	OpLt
	OpLte
	OpGt
	OpGte
	OpContains
	OpStartsWith
	OpEndsWith
	OpIn
	OpNotIn
	OpIsNull
	OpIsNotNull
	OpAnd
	OpOr
	OpNot
)

var opNames = [...]string{
	OpNone:       "None",
	OpEquals:     "Equals",
	OpNotEquals:  "NotEquals",
	OpLt:         "Lt",
	OpLte:        "Lte",
	OpGt:         "Gt",
	OpGte:        "Gte",
	OpContains:   "Contains",
	OpStartsWith: "StartsWith",
	OpEndsWith:   "EndsWith",
	OpIn:         "In",
	OpNotIn:      "NotIn",
	OpIsNull:     "IsNull",
	OpIsNotNull:  "IsNotNull",
	OpAnd:        "And",
	OpOr:         "Or",
	OpNot:        "Not",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "Op(" + strconv.Itoa(int(o)) + ")"
}

// Filter is one node of a boolean filter tree: a leaf comparison, a
// compound, or None (matches every row). Trees built through the package
// constructors are already simplified: And and Or collapse empty and
// single-child forms, and a nil *Filter reads as None everywhere.
//
// Field names are plain Go strings. Generated code passes interned column
// name constants; a string header copy is all a leaf ever borrows, and an
// allocation happens only when a caller computes a name at runtime.
type Filter struct {
	Op       Op
	Field    string
	Value    Value
	Values   []Value
	Children []*Filter
}

// noneFilter is the shared matches-all node.
var noneFilter = &Filter{Op: OpNone}

// None returns the filter that matches every row. It is the neutral element
// of And and the absorbing element of Or.
func None() *Filter { return noneFilter }

// IsNone reports whether the filter matches every row. A nil filter is None.
func (f *Filter) IsNone() bool { return f == nil || f.Op == OpNone }

func leaf(op Op, field string, v Value) *Filter {
	return &Filter{Op: op, Field: field, Value: v}
}

// Equals matches rows whose field equals v.
func Equals(field string, v Value) *Filter { return leaf(OpEquals, field, v) }

// NotEquals matches rows whose field differs from v.
func NotEquals(field string, v Value) *Filter { return leaf(OpNotEquals, field, v) }

// Lt matches rows whose field is less than v.
func Lt(field string, v Value) *Filter { return leaf(OpLt, field, v) }

// Lte matches rows whose field is at most v.
func Lte(field string, v Value) *Filter { return leaf(OpLte, field, v) }

// Gt matches rows whose field is greater than v.
func Gt(field string, v Value) *Filter { return leaf(OpGt, field, v) }

// Gte matches rows whose field is at least v.
func Gte(field string, v Value) *Filter { return leaf(OpGte, field, v) }

// Contains matches rows whose field contains v as a substring.
func Contains(field string, v Value) *Filter { return leaf(OpContains, field, v) }

// StartsWith matches rows whose field starts with v.
func StartsWith(field string, v Value) *Filter { return leaf(OpStartsWith, field, v) }

// EndsWith matches rows whose field ends with v.
func EndsWith(field string, v Value) *Filter { return leaf(OpEndsWith, field, v) }

// In matches rows whose field equals one of vs. An empty list matches no
// rows.
func In(field string, vs ...Value) *Filter {
	return &Filter{Op: OpIn, Field: field, Values: vs}
}

// NotIn matches rows whose field equals none of vs. An empty list matches
// every row that In would reject, i.e. all of them.
func NotIn(field string, vs ...Value) *Filter {
	return &Filter{Op: OpNotIn, Field: field, Values: vs}
}

// IsNull matches rows whose field is NULL.
func IsNull(field string) *Filter { return &Filter{Op: OpIsNull, Field: field} }

// IsNotNull matches rows whose field is not NULL.
func IsNotNull(field string) *Filter { return &Filter{Op: OpIsNotNull, Field: field} }

// And returns the conjunction of the children. None children drop out;
// And() is None and And(x) is x.
func And(children ...*Filter) *Filter {
	live := children
	for _, c := range children {
		if c.IsNone() {
			live = compact(children)
			break
		}
	}
	switch len(live) {
	case 0:
		return None()
	case 1:
		return live[0]
	}
	return &Filter{Op: OpAnd, Children: live}
}

// Or returns the disjunction of the children. A None child matches every
// row and absorbs the whole disjunction; Or() is None and Or(x) is x.
func Or(children ...*Filter) *Filter {
	for _, c := range children {
		if c.IsNone() {
			return None()
		}
	}
	switch len(children) {
	case 0:
		return None()
	case 1:
		return children[0]
	}
	return &Filter{Op: OpOr, Children: children}
}

// Not negates the child. Not(None) is None.
func Not(child *Filter) *Filter {
	if child.IsNone() {
		return None()
	}
	return &Filter{Op: OpNot, Children: []*Filter{child}}
}

// compact returns the non-None children.
func compact(children []*Filter) []*Filter {
	live := make([]*Filter, 0, len(children))
	for _, c := range children {
		if !c.IsNone() {
			live = append(live, c)
		}
	}
	return live
}

// Clone returns a deep copy of the tree. Values are immutable and shared.
func (f *Filter) Clone() *Filter {
	if f.IsNone() {
		return None()
	}
	c := &Filter{Op: f.Op, Field: f.Field, Value: f.Value}
	if f.Values != nil {
		c.Values = make([]Value, len(f.Values))
		copy(c.Values, f.Values)
	}
	if f.Children != nil {
		c.Children = make([]*Filter, len(f.Children))
		for i, ch := range f.Children {
			c.Children[i] = ch.Clone()
		}
	}
	return c
}

// Arity returns the number of parameters the tree binds on emission.
func (f *Filter) Arity() int {
	if f.IsNone() {
		return 0
	}
	switch f.Op {
	case OpIsNull, OpIsNotNull:
		return 0
	case OpIn, OpNotIn:
		return len(f.Values)
	case OpAnd, OpOr, OpNot:
		n := 0
		for _, c := range f.Children {
			n += c.Arity()
		}
		return n
	default:
		return 1
	}
}
