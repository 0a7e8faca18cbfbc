package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// Span is a byte range in the schema source, inclusive start and exclusive
// end. Spans are opaque to correctness and used only for diagnostics.
type Span struct {
	Start int
	End   int
}

// String renders the span as "start..end".
func (s Span) String() string {
	return strconv.Itoa(s.Start) + ".." + strconv.Itoa(s.End)
}

// IsZero reports whether the span carries no position information.
func (s Span) IsZero() bool {
	return s.Start == 0 && s.End == 0
}

// ValueKind tags attribute argument values.
type ValueKind uint8

const (
	ValueString ValueKind = iota
	ValueInt
	ValueFloat
	ValueBool
	ValueIdent // bare identifier, e.g. a field reference or enum variant
	ValueFunc  // function call, e.g. now() or uuid()
	ValueList
)

// Value is an attribute argument value: a literal, a bare identifier, a
// function call, or a list of values.
type Value struct {
	Kind   ValueKind
	String string  // string literal, identifier, or function name
	Int    int64   // set for ValueInt
	Float  float64 // set for ValueFloat
	Bool   bool    // set for ValueBool
	List   []Value // list elements, or function arguments for ValueFunc
}

// StringValue returns a string literal value.
func StringValue(s string) Value { return Value{Kind: ValueString, String: s} }

// IntValue returns an integer literal value.
func IntValue(i int64) Value { return Value{Kind: ValueInt, Int: i} }

// FloatValue returns a float literal value.
func FloatValue(f float64) Value { return Value{Kind: ValueFloat, Float: f} }

// BoolValue returns a boolean literal value.
func BoolValue(b bool) Value { return Value{Kind: ValueBool, Bool: b} }

// IdentValue returns a bare-identifier value.
func IdentValue(name string) Value { return Value{Kind: ValueIdent, String: name} }

// FuncValue returns a function-call value.
func FuncValue(name string, args ...Value) Value {
	return Value{Kind: ValueFunc, String: name, List: args}
}

// ListValue returns a list value.
func ListValue(elems ...Value) Value { return Value{Kind: ValueList, List: elems} }

// Render writes the value back in source form.
func (v Value) Render() string {
	switch v.Kind {
	case ValueString:
		return strconv.Quote(v.String)
	case ValueInt:
		return strconv.FormatInt(v.Int, 10)
	case ValueFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case ValueBool:
		return strconv.FormatBool(v.Bool)
	case ValueIdent:
		return v.String
	case ValueFunc:
		args := make([]string, len(v.List))
		for i, a := range v.List {
			args[i] = a.Render()
		}
		return v.String + "(" + strings.Join(args, ", ") + ")"
	case ValueList:
		elems := make([]string, len(v.List))
		for i, e := range v.List {
			elems[i] = e.Render()
		}
		return "[" + strings.Join(elems, ", ") + "]"
	default:
		return fmt.Sprintf("Value(%d)", uint8(v.Kind))
	}
}

// Idents returns the identifier names of a list value, ignoring non-ident
// elements. A bare ident yields a single-element slice.
func (v Value) Idents() []string {
	switch v.Kind {
	case ValueIdent:
		return []string{v.String}
	case ValueList:
		names := make([]string, 0, len(v.List))
		for _, e := range v.List {
			if e.Kind == ValueIdent {
				names = append(names, e.String)
			}
		}
		return names
	default:
		return nil
	}
}

// Arg is a named or positional attribute argument.
type Arg struct {
	Name  string // empty for positional arguments
	Value Value
}

// Attribute is a parsed schema attribute. Field attributes are written with
// a single @ and model attributes with @@; the Name never carries the
// prefix.
type Attribute struct {
	Name string
	Args []Arg
	Span Span
}

// NewAttribute returns an attribute with positional arguments.
func NewAttribute(name string, args ...Value) *Attribute {
	a := &Attribute{Name: name}
	for _, v := range args {
		a.Args = append(a.Args, Arg{Value: v})
	}
	return a
}

// WithArg appends a named argument and returns the attribute.
func (a *Attribute) WithArg(name string, v Value) *Attribute {
	a.Args = append(a.Args, Arg{Name: name, Value: v})
	return a
}

// First returns the first positional argument.
func (a *Attribute) First() (Value, bool) {
	for _, arg := range a.Args {
		if arg.Name == "" {
			return arg.Value, true
		}
	}
	return Value{}, false
}

// Arg returns the argument with the given name.
func (a *Attribute) Arg(name string) (Value, bool) {
	for _, arg := range a.Args {
		if arg.Name == name {
			return arg.Value, true
		}
	}
	return Value{}, false
}

// Idents returns the identifiers of the named list argument, falling back
// to the first positional argument when name is empty.
func (a *Attribute) Idents(name string) []string {
	var v Value
	var ok bool
	if name == "" {
		v, ok = a.First()
	} else {
		v, ok = a.Arg(name)
	}
	if !ok {
		return nil
	}
	return v.Idents()
}

// Render writes the attribute in source form, with the given prefix
// ("@" for field attributes, "@@" for model attributes).
func (a *Attribute) Render(prefix string) string {
	if len(a.Args) == 0 {
		return prefix + a.Name
	}
	parts := make([]string, len(a.Args))
	for i, arg := range a.Args {
		if arg.Name != "" {
			parts[i] = arg.Name + ": " + arg.Value.Render()
		} else {
			parts[i] = arg.Value.Render()
		}
	}
	return prefix + a.Name + "(" + strings.Join(parts, ", ") + ")"
}

// Well-known attribute names.
const (
	AttrID           = "id"           // @id, @@id
	AttrDefault      = "default"      // @default
	AttrUnique       = "unique"       // @unique, @@unique
	AttrIndex        = "index"        // @@index
	AttrSearch       = "search"       // @@search
	AttrMap          = "map"          // @map, @@map
	AttrRelation     = "relation"     // @relation
	AttrUpdatedAt    = "updated_at"   // @updated_at
	AttrAuto         = "auto"         // @auto
	AttrIgnore       = "ignore"       // @ignore, @@ignore
	AttrMaterialized = "materialized" // @@materialized (views)
)
