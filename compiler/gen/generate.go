package gen

import (
	"context"
	"path/filepath"
	"runtime"

	"github.com/dave/jennifer/jen"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/prax/schema"
)

// Import paths of the runtime packages the generated code builds on.
const (
	filterPkg = "github.com/syssam/prax/filter"
	queryPkg  = "github.com/syssam/prax/query"
	schemaPkg = "github.com/syssam/prax/schema"
	sqlPkg    = "github.com/syssam/prax/dialect/sql"
	loaderPkg = "github.com/syssam/prax/contrib/dataloader"
)

// Generator renders the generated tree for one schema.
type Generator struct {
	cfg    *Config
	schema *schema.Schema
	writer *Writer
}

// New validates the configuration and the schema and returns a generator.
func New(s *schema.Schema, cfg Config) (*Generator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := schema.Validate(s); err != nil {
		return nil, &SchemaError{Message: "schema validation failed", Cause: err}
	}
	return &Generator{
		cfg:    &cfg,
		schema: s,
		writer: NewWriter(cfg.Target),
	}, nil
}

// Generate validates its inputs and writes the generated tree for the
// schema under cfg.Target.
func Generate(ctx context.Context, s *schema.Schema, cfg Config) error {
	g, err := New(s, cfg)
	if err != nil {
		return err
	}
	return g.Generate(ctx)
}

// Generate renders and writes the full tree. Files are rendered and written
// in parallel; the first failure cancels the run.
func (g *Generator) Generate(ctx context.Context) error {
	types, err := describe(g.schema)
	if err != nil {
		return err
	}
	workers := g.cfg.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	errg, ctx := errgroup.WithContext(ctx)
	errg.SetLimit(workers)
	emit := func(rel string, f *jen.File) {
		errg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			return g.writer.Write(rel, f)
		})
	}
	for _, t := range types {
		emit(filepath.Join(t.pkg, t.pkg+".go"), g.genPackage(t))
		emit(filepath.Join(t.pkg, "where.go"), g.genPredicates(t))
	}
	emit("client.go", g.genClient(types))
	emit("runtime.go", g.genRuntime(types))
	if enums := describeEnums(g.schema); len(enums) > 0 {
		emit("enums.go", g.genEnums(enums))
	}
	if g.cfg.FeatureEnabled(FeatureDataloader.Name) {
		emit("loaders.go", g.genLoaders(types))
	}
	if err := errg.Wait(); err != nil {
		return err
	}
	return g.cfg.cleanup()
}

// Metrics reports what the last run wrote.
func (g *Generator) Metrics() WriterMetrics {
	return g.writer.Metrics()
}

// newFile starts a generated file in the named package.
func (g *Generator) newFile(pkg string) *jen.File {
	f := jen.NewFile(pkg)
	f.HeaderComment("Code generated by prax. DO NOT EDIT.")
	f.ImportName(filterPkg, "filter")
	f.ImportName(queryPkg, "query")
	f.ImportName(schemaPkg, "schema")
	f.ImportName(sqlPkg, "sql")
	f.ImportName(loaderPkg, "dataloader")
	f.ImportName(g.cfg.Package, g.cfg.pkgName())
	return f
}
