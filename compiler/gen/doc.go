// Package gen generates typed Go access code from a validated schema.
//
// The generator consumes a *schema.Schema together with a Config naming the
// output package, target directory and dialect. For every model it emits a
// small package with the column constants and typed predicate helpers, plus
// a shared client file binding each model to the query runtime and a runtime
// file holding the model infos and prepared statement templates.
//
// # Pipeline
//
//	*schema.Schema + Config
//	        ↓
//	   describe (per-model descriptors, sorted)
//	        ↓
//	   jennifer emitters (one file per concern)
//	        ↓
//	   Writer (goimports, stable layout under Target)
//
// Emission is parallel per file and fully deterministic: models are handled
// in name order and every literal is rendered in a stable order, so two runs
// over the same schema produce byte-identical trees.
//
// # Generated layout
//
//	<target>/client.go        one typed client per model
//	<target>/runtime.go       model infos, dialect, statement templates
//	<target>/enums.go         Go enum types, when the schema declares enums
//	<target>/loaders.go       batch loaders, with the dataloader feature
//	<target>/<model>/...      constants and predicate helpers per model
//
// Optional surfaces are controlled through Feature values on the Config;
// disabled features have their stale output removed on the next run.
package gen
