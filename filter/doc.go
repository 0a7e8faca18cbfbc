// Package filter provides boolean filter trees and their SQL emission.
//
// A filter is a tree of leaf comparisons (Equals, Lt, Contains, In, IsNull,
// ...) combined with And, Or and Not. None matches every row and is the
// identity for construction: And and Or collapse empty and single-child
// forms, so trees are simplified as they are built.
//
//	f := filter.And(
//	    filter.Equals("status", filter.String("active")),
//	    filter.Or(
//	        filter.Gt("age", filter.Int(18)),
//	        filter.IsNull("deleted_at"),
//	    ),
//	)
//	sql, params, next := f.ToSQL(dialect.Postgres, 1)
//	// sql    = ("status" = $1 AND ("age" > $2 OR "deleted_at" IS NULL))
//	// params = [String("active"), Int(18)]
//	// next   = 3
//
// ToSQL threads the placeholder counter through the walk and returns the
// next free index, so a filter fragment can be spliced into a larger
// statement that already bound parameters.
//
// Values are tagged scalars (Null, Bool, Int, Float, String, JSON, Time,
// Bytes, List); Arg converts them to driver-ready arguments.
//
// For hot paths that assemble deep trees, Build runs a closure against a
// pooled bump-allocator arena and returns an owned tree:
//
//	f := filter.Build(func(b *filter.B) *filter.Filter {
//	    return b.And(
//	        b.Equals("tenant_id", filter.String(id)),
//	        b.In("state", states...),
//	    )
//	})
//
// Typed field helpers (StringField, IntField, ...) back the generated
// per-model predicate APIs.
package filter
