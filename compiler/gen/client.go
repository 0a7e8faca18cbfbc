package gen

import (
	"github.com/dave/jennifer/jen"
)

// builders lists the query surface every model client exposes, in the order
// the methods are emitted.
var builders = []struct {
	name string
	typ  string
	doc  string
}{
	{"FindMany", "FindManyQuery", "starts a query for a list of rows"},
	{"FindFirst", "FindFirstQuery", "starts a query for the first matching row"},
	{"FindUnique", "FindUniqueQuery", "starts a query for one row by a unique column set"},
	{"Count", "CountQuery", "starts a row count query"},
	{"Aggregate", "AggregateQuery", "starts an aggregation query"},
	{"Create", "CreateQuery", "starts an insert of one row"},
	{"Update", "UpdateQuery", "starts an update of one row"},
	{"UpdateMany", "UpdateManyQuery", "starts an update of every matching row"},
	{"Upsert", "UpsertQuery", "starts an insert that updates on conflict"},
	{"Delete", "DeleteQuery", "starts a delete of one row"},
	{"DeleteMany", "DeleteManyQuery", "starts a delete of every matching row"},
}

// genClient renders the shared client file binding every model to a single
// query engine.
func (g *Generator) genClient(types []*typeDesc) *jen.File {
	f := g.newFile(g.cfg.pkgName())
	f.Comment("Client bundles one typed client per model, all bound to the same engine.")
	f.Type().Id("Client").StructFunc(func(fields *jen.Group) {
		for _, t := range types {
			fields.Id(t.model.Name).Op("*").Id(t.model.Name + "Client")
		}
	})
	f.Comment("NewClient binds every model client to engine.")
	f.Func().Id("NewClient").Params(jen.Id("engine").Qual(queryPkg, "QueryEngine")).Op("*").Id("Client").Block(
		jen.Return(jen.Op("&").Id("Client").Values(jen.DictFunc(func(d jen.Dict) {
			for _, t := range types {
				d[jen.Id(t.model.Name)] = jen.Id("New" + t.model.Name + "Client").Call(jen.Id("engine"))
			}
		}))),
	)
	for _, t := range types {
		g.genModelClient(f, t)
	}
	return f
}

// genModelClient renders one typed client with the model builders bound.
func (g *Generator) genModelClient(f *jen.File, t *typeDesc) {
	client := t.model.Name + "Client"
	f.Commentf("%s queries and mutates %s rows.", client, t.info.Table)
	f.Type().Id(client).Struct(
		jen.Id("model").Op("*").Qual(queryPkg, "Model"),
	)
	f.Commentf("New%s binds a %s client to engine.", client, t.info.Table)
	f.Func().Id("New"+client).Params(jen.Id("engine").Qual(queryPkg, "QueryEngine")).Op("*").Id(client).Block(
		jen.Return(jen.Op("&").Id(client).Values(jen.Dict{
			jen.Id("model"): jen.Qual(queryPkg, "NewModel").
				Call(jen.Id(t.model.Name+"Info").Call(), jen.Id("engine"), jen.Id("Dialect")).
				Dot("WithRelated").Call(jen.Id("Infos").Call().Op("...")),
		})),
	)
	f.Comment("Model exposes the underlying model runtime.")
	f.Func().Params(jen.Id("c").Op("*").Id(client)).Id("Model").Params().Op("*").Qual(queryPkg, "Model").Block(
		jen.Return(jen.Id("c").Dot("model")),
	)
	for _, b := range builders {
		f.Commentf("%s %s.", b.name, b.doc)
		f.Func().Params(jen.Id("c").Op("*").Id(client)).Id(b.name).Params().Op("*").Qual(queryPkg, b.typ).Block(
			jen.Return(jen.Id("c").Dot("model").Dot(b.name).Call()),
		)
	}
}

// genLoaders renders the batch load functions of the dataloader feature.
// Only models with a single integer or textual primary key get a loader.
func (g *Generator) genLoaders(types []*typeDesc) *jen.File {
	f := g.newFile(g.cfg.pkgName())
	for _, t := range types {
		pk, ok := t.pkField()
		if !ok {
			continue
		}
		var key func() *jen.Statement
		switch pk.kind {
		case kindInt:
			key = jen.Int64
		case kindString:
			key = jen.String
		default:
			continue
		}
		name := t.model.Name + "By" + pk.name
		f.Commentf("%s returns a batch function that loads %s rows by %s.", name, t.info.Table, pk.column)
		f.Func().Id(name).Params(jen.Id("c").Op("*").Id("Client")).
			Qual(loaderPkg, "BatchFunc").Types(key(), jen.Qual(queryPkg, "Row")).Block(
			jen.Return(jen.Qual(loaderPkg, "RowBatch").Call(
				jen.Id("c").Dot(t.model.Name).Dot("Model").Call(),
				jen.Lit(pk.column),
				jen.Func().Params(jen.Id("r").Qual(queryPkg, "Row")).Add(key()).Block(
					jen.List(jen.Id("v"), jen.Id("_")).Op(":=").Id("r").Dot("Get").Call(jen.Lit(pk.column)),
					jen.List(jen.Id("key"), jen.Id("_")).Op(":=").Id("v").Assert(key()),
					jen.Return(jen.Id("key")),
				),
			)),
		)
	}
	return f
}
