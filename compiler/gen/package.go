package gen

import (
	"github.com/dave/jennifer/jen"
)

// genPackage renders the per-model constants file. It carries the label and
// table names plus one constant per stored column, so handwritten code never
// spells a column twice.
func (g *Generator) genPackage(t *typeDesc) *jen.File {
	f := g.newFile(t.pkg)
	f.Const().DefsFunc(func(defs *jen.Group) {
		defs.Comment("Label is the snake form of the model name.")
		defs.Id("Label").Op("=").Lit(t.label)
		defs.Comment("Table is the table the model is stored in.")
		defs.Id("Table").Op("=").Lit(t.info.Table)
		for _, fd := range t.fields {
			defs.Commentf("%s holds the column of the %q field.", fd.constant, fd.field.Name)
			defs.Id(fd.constant).Op("=").Lit(fd.column)
		}
	})
	f.Comment("Columns lists every stored column of the model in schema order.")
	f.Var().Id("Columns").Op("=").Index().String().ValuesFunc(func(vals *jen.Group) {
		for _, fd := range t.fields {
			vals.Id(fd.constant)
		}
	})
	f.Comment("ValidColumn reports whether column belongs to the model.")
	f.Func().Id("ValidColumn").Params(jen.Id("column").String()).Bool().Block(
		jen.For(jen.List(jen.Id("_"), jen.Id("c")).Op(":=").Range().Id("Columns")).Block(
			jen.If(jen.Id("c").Op("==").Id("column")).Block(
				jen.Return(jen.True()),
			),
		),
		jen.Return(jen.False()),
	)
	return f
}
