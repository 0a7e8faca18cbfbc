package gen

import (
	"github.com/dave/jennifer/jen"

	"github.com/syssam/prax/query"
)

// genRuntime renders the runtime file: the dialect constant, the statement
// template registry and one info function per model.
func (g *Generator) genRuntime(types []*typeDesc) *jen.File {
	f := g.newFile(g.cfg.pkgName())
	f.Comment("Dialect is the dialect the tree was generated for.")
	f.Const().Id("Dialect").Op("=").Lit(g.cfg.Dialect)

	type registration struct {
		name  string
		stmt  string
		arity int
	}
	var regs []registration
	for _, t := range types {
		if stmt, arity, ok := t.findByKeySQL(g.cfg.Dialect); ok {
			regs = append(regs, registration{name: t.statementName(), stmt: stmt, arity: arity})
		}
	}
	f.Comment("Templates caches the prepared statements registered by generated code.")
	f.Var().Id("Templates").Op("=").Qual(sqlPkg, "NewTemplates").Call(jen.Lit(len(types)))
	if len(regs) > 0 {
		f.Func().Id("init").Params().BlockFunc(func(body *jen.Group) {
			for _, r := range regs {
				body.Id("Templates").Dot("Register").Call(jen.Lit(r.name), jen.Lit(r.stmt), jen.Lit(r.arity))
			}
		})
	}

	f.Comment("Infos returns a fresh runtime info for every model.")
	f.Func().Id("Infos").Params().Index().Op("*").Qual(queryPkg, "ModelInfo").Block(
		jen.Return(jen.Index().Op("*").Qual(queryPkg, "ModelInfo").ValuesFunc(func(vals *jen.Group) {
			for _, t := range types {
				vals.Id(t.model.Name + "Info").Call()
			}
		})),
	)
	for _, t := range types {
		g.genInfo(f, t)
	}
	return f
}

// genInfo renders the info function of one model. The literal is built from
// the resolved schema, so the runtime never re-derives naming.
func (g *Generator) genInfo(f *jen.File, t *typeDesc) {
	info := t.info
	f.Commentf("%sInfo returns the runtime description of the %s model.", t.model.Name, t.model.Name)
	f.Func().Id(t.model.Name+"Info").Params().Op("*").Qual(queryPkg, "ModelInfo").Block(
		jen.Return(jen.Op("&").Qual(queryPkg, "ModelInfo").Values(jen.DictFunc(func(d jen.Dict) {
			d[jen.Id("Name")] = jen.Lit(info.Name)
			d[jen.Id("Table")] = jen.Lit(info.Table)
			d[jen.Id("Columns")] = stringSlice(info.Columns)
			if len(info.PrimaryKey) > 0 {
				d[jen.Id("PrimaryKey")] = stringSlice(info.PrimaryKey)
			}
			if len(info.UniqueSets) > 0 {
				d[jen.Id("UniqueSets")] = stringSliceSlice(info.UniqueSets)
			}
			if len(info.Defaults) > 0 {
				d[jen.Id("Defaults")] = jen.Index().Qual(queryPkg, "ColumnDefault").ValuesFunc(func(vals *jen.Group) {
					for _, def := range info.Defaults {
						vals.Values(jen.Dict{
							jen.Id("Column"): jen.Lit(def.Column),
							jen.Id("Func"):   jen.Lit(def.Func),
						})
					}
				})
			}
			if len(info.Relations) > 0 {
				d[jen.Id("Relations")] = jen.Index().Qual(queryPkg, "RelationInfo").ValuesFunc(func(vals *jen.Group) {
					for _, rel := range info.Relations {
						vals.Add(relationLiteral(rel))
					}
				})
			}
		}))),
	)
}

// relationLiteral renders one RelationInfo literal with its zero fields
// omitted.
func relationLiteral(rel query.RelationInfo) *jen.Statement {
	return jen.Values(jen.DictFunc(func(d jen.Dict) {
		d[jen.Id("Field")] = jen.Lit(rel.Field)
		d[jen.Id("Model")] = jen.Lit(rel.Model)
		d[jen.Id("Table")] = jen.Lit(rel.Table)
		d[jen.Id("Kind")] = jen.Qual(schemaPkg, rel.Kind.String())
		if rel.ForeignKey != "" {
			d[jen.Id("ForeignKey")] = jen.Lit(rel.ForeignKey)
		}
		if rel.References != "" {
			d[jen.Id("References")] = jen.Lit(rel.References)
		}
		if rel.OwnsKey {
			d[jen.Id("OwnsKey")] = jen.True()
		}
		if rel.JoinTable != "" {
			d[jen.Id("JoinTable")] = jen.Lit(rel.JoinTable)
		}
		if rel.JoinFrom != "" {
			d[jen.Id("JoinFrom")] = jen.Lit(rel.JoinFrom)
		}
		if rel.JoinTo != "" {
			d[jen.Id("JoinTo")] = jen.Lit(rel.JoinTo)
		}
	}))
}

// genEnums renders the Go form of the schema enums.
func (g *Generator) genEnums(enums []*enumDesc) *jen.File {
	f := g.newFile(g.cfg.pkgName())
	for _, e := range enums {
		f.Commentf("%s is the Go form of the %q enum.", e.name, e.doc)
		f.Type().Id(e.name).String()
		f.Commentf("%s values.", e.name)
		f.Const().DefsFunc(func(defs *jen.Group) {
			for _, v := range e.values {
				defs.Id(v.name).Id(e.name).Op("=").Lit(v.stored)
			}
		})
		f.Commentf("Values lists the stored form of every %s value.", e.name)
		f.Func().Params(jen.Id(e.name)).Id("Values").Params().Index().String().Block(
			jen.Return(jen.Index().String().ValuesFunc(func(vals *jen.Group) {
				for _, v := range e.values {
					vals.Lit(v.stored)
				}
			})),
		)
	}
	return f
}

func stringSlice(ss []string) *jen.Statement {
	return jen.Index().String().ValuesFunc(func(vals *jen.Group) {
		for _, s := range ss {
			vals.Lit(s)
		}
	})
}

func stringSliceSlice(groups [][]string) *jen.Statement {
	return jen.Index().Index().String().ValuesFunc(func(vals *jen.Group) {
		for _, group := range groups {
			vals.ValuesFunc(func(inner *jen.Group) {
				for _, s := range group {
					inner.Lit(s)
				}
			})
		}
	})
}
