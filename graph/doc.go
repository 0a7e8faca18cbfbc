// Package graph derives the foreign-key dependency graph of a validated
// schema and orders models by it.
//
// Nodes are models, edges are owning relations: Post referencing User via
// author_id puts an edge from Post to User. The graph is a multigraph, two
// models connected by several relations keep one edge per relation.
//
// # Ordering
//
//	s := schema.New(user, post)
//	if err := schema.Validate(s); err != nil {
//	    return err
//	}
//	g := graph.New(s)
//	order, err := g.DependencyOrder() // ["User", "Post"]
//
// DependencyOrder emits referenced models before referencing ones, which is
// the order CREATE TABLE statements and nested inserts must run in.
// ReverseOrder is the same walk backwards for drops and deletes. Ties break
// by model name, so equal schemas always order equally.
//
// # Self-references and cycles
//
// A model referencing itself (an employee's manager, a category's parent)
// is legal and never counts as a cycle. Its constraint cannot be created
// with the table, so such relations are excluded from ordering and listed
// by DeferredRelations for a later ALTER TABLE.
//
// A loop across two or more models cannot be ordered at all and surfaces as
// a *CycleError naming the models on the loop:
//
//	order, err := g.DependencyOrder()
//	if graph.IsCycle(err) {
//	    ...
//	}
package graph
