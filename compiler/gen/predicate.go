package gen

import (
	"github.com/dave/jennifer/jen"
)

// helper describes one generated predicate function: the suffix appended to
// the field name, the typed column method it delegates to, and the comment
// verb phrase.
type helper struct {
	suffix   string
	method   string
	doc      string
	variadic bool
}

var (
	comparableHelpers = []helper{
		{suffix: "EQ", method: "Equals", doc: "equals v"},
		{suffix: "NEQ", method: "NotEquals", doc: "differs from v"},
	}
	orderedHelpers = []helper{
		{suffix: "GT", method: "Gt", doc: "is greater than v"},
		{suffix: "GTE", method: "Gte", doc: "is at least v"},
		{suffix: "LT", method: "Lt", doc: "is less than v"},
		{suffix: "LTE", method: "Lte", doc: "is at most v"},
	}
	stringHelpers = []helper{
		{suffix: "Contains", method: "Contains", doc: "contains v"},
		{suffix: "HasPrefix", method: "StartsWith", doc: "starts with v"},
		{suffix: "HasSuffix", method: "EndsWith", doc: "ends with v"},
	}
	setHelpers = []helper{
		{suffix: "In", method: "In", doc: "equals one of vs", variadic: true},
		{suffix: "NotIn", method: "NotIn", doc: "equals none of vs", variadic: true},
	}
	timeHelpers = []helper{
		{suffix: "Before", method: "Before", doc: "is earlier than v"},
		{suffix: "After", method: "After", doc: "is later than v"},
	}
)

// helpersFor returns the predicate functions generated for a field kind.
func helpersFor(kind predicateKind) []helper {
	var hs []helper
	switch kind {
	case kindString:
		hs = append(hs, comparableHelpers...)
		hs = append(hs, orderedHelpers...)
		hs = append(hs, stringHelpers...)
		hs = append(hs, setHelpers...)
	case kindInt:
		hs = append(hs, comparableHelpers...)
		hs = append(hs, orderedHelpers...)
		hs = append(hs, setHelpers...)
	case kindFloat:
		hs = append(hs, comparableHelpers...)
		hs = append(hs, orderedHelpers...)
	case kindBool:
		hs = append(hs, comparableHelpers...)
	case kindTime:
		hs = append(hs, comparableHelpers...)
		hs = append(hs, timeHelpers...)
	case kindEnum:
		hs = append(hs, comparableHelpers...)
		hs = append(hs, setHelpers...)
	}
	return hs
}

// genPredicates renders the typed predicate file of a model.
func (g *Generator) genPredicates(t *typeDesc) *jen.File {
	f := g.newFile(t.pkg)
	f.Comment("Predicate narrows *filter.Filter to predicates of this model.")
	f.Type().Id("Predicate").Op("*").Qual(filterPkg, "Filter")
	g.genFieldVars(f, t)
	g.genCombinators(f)
	for _, fd := range t.fields {
		g.genFieldHelpers(f, fd)
	}
	return f
}

// genFieldVars declares one typed column value per predicate-capable field.
func (g *Generator) genFieldVars(f *jen.File, t *typeDesc) {
	var fields []*fieldDesc
	for _, fd := range t.fields {
		if fd.kind != kindNone {
			fields = append(fields, fd)
		}
	}
	if len(fields) == 0 {
		return
	}
	f.Comment("Typed columns for building predicates.")
	f.Var().DefsFunc(func(defs *jen.Group) {
		for _, fd := range fields {
			defs.Id(fd.name).Op("=").Add(g.fieldColumn(fd)).Call(jen.Id(fd.constant))
		}
	})
}

// fieldColumn renders the filter column type a field maps to, including its
// Predicate instantiation.
func (g *Generator) fieldColumn(fd *fieldDesc) *jen.Statement {
	switch fd.kind {
	case kindInt:
		return jen.Qual(filterPkg, "IntField").Index(jen.Id("Predicate"))
	case kindFloat:
		return jen.Qual(filterPkg, "FloatField").Index(jen.Id("Predicate"))
	case kindBool:
		return jen.Qual(filterPkg, "BoolField").Index(jen.Id("Predicate"))
	case kindTime:
		return jen.Qual(filterPkg, "TimeField").Index(jen.Id("Predicate"))
	case kindEnum:
		return jen.Qual(filterPkg, "EnumField").Types(jen.Id("Predicate"), jen.Qual(g.cfg.Package, fd.enumRef))
	default:
		return jen.Qual(filterPkg, "StringField").Index(jen.Id("Predicate"))
	}
}

// argType renders the Go argument type of a field's predicate functions.
func (g *Generator) argType(fd *fieldDesc) *jen.Statement {
	switch fd.kind {
	case kindInt:
		return jen.Int64()
	case kindFloat:
		return jen.Float64()
	case kindBool:
		return jen.Bool()
	case kindTime:
		return jen.Qual("time", "Time")
	case kindEnum:
		return jen.Qual(g.cfg.Package, fd.enumRef)
	default:
		return jen.String()
	}
}

// genCombinators declares the And, Or and Not functions plus the group
// helper they share.
func (g *Generator) genCombinators(f *jen.File) {
	filterType := func() *jen.Statement { return jen.Op("*").Qual(filterPkg, "Filter") }
	f.Comment("And groups predicates with AND.")
	f.Func().Id("And").Params(jen.Id("predicates").Op("...").Id("Predicate")).Id("Predicate").Block(
		jen.Return(jen.Id("group").Call(jen.Qual(filterPkg, "And"), jen.Id("predicates"))),
	)
	f.Comment("Or groups predicates with OR.")
	f.Func().Id("Or").Params(jen.Id("predicates").Op("...").Id("Predicate")).Id("Predicate").Block(
		jen.Return(jen.Id("group").Call(jen.Qual(filterPkg, "Or"), jen.Id("predicates"))),
	)
	f.Comment("Not negates a predicate.")
	f.Func().Id("Not").Params(jen.Id("p").Id("Predicate")).Id("Predicate").Block(
		jen.Return(jen.Id("Predicate").Call(jen.Qual(filterPkg, "Not").Call(jen.Id("p")))),
	)
	f.Func().Id("group").Params(
		jen.Id("combine").Func().Params(jen.Op("...").Add(filterType())).Add(filterType()),
		jen.Id("predicates").Index().Id("Predicate"),
	).Id("Predicate").Block(
		jen.Id("children").Op(":=").Make(jen.Index().Add(filterType()), jen.Len(jen.Id("predicates"))),
		jen.For(jen.List(jen.Id("i"), jen.Id("p")).Op(":=").Range().Id("predicates")).Block(
			jen.Id("children").Index(jen.Id("i")).Op("=").Id("p"),
		),
		jen.Return(jen.Id("Predicate").Call(jen.Id("combine").Call(jen.Id("children").Op("...")))),
	)
}

// genFieldHelpers declares the verbose predicate functions of one field.
func (g *Generator) genFieldHelpers(f *jen.File, fd *fieldDesc) {
	for _, h := range helpersFor(fd.kind) {
		name := fd.name + h.suffix
		f.Commentf("%s matches rows whose %s %s.", name, fd.column, h.doc)
		if h.variadic {
			f.Func().Id(name).Params(jen.Id("vs").Op("...").Add(g.argType(fd))).Id("Predicate").Block(
				jen.Return(jen.Id(fd.name).Dot(h.method).Call(jen.Id("vs").Op("..."))),
			)
			continue
		}
		f.Func().Id(name).Params(jen.Id("v").Add(g.argType(fd))).Id("Predicate").Block(
			jen.Return(jen.Id(fd.name).Dot(h.method).Call(jen.Id("v"))),
		)
	}
	if fd.kind != kindNone && fd.nullable() {
		f.Commentf("%sIsNil matches rows whose %s is NULL.", fd.name, fd.column)
		f.Func().Id(fd.name+"IsNil").Params().Id("Predicate").Block(
			jen.Return(jen.Id(fd.name).Dot("IsNull").Call()),
		)
		f.Commentf("%sNotNil matches rows whose %s is not NULL.", fd.name, fd.column)
		f.Func().Id(fd.name+"NotNil").Params().Id("Predicate").Block(
			jen.Return(jen.Id(fd.name).Dot("IsNotNull").Call()),
		)
	}
}
