// Package query compiles model operations into dialect SQL and runs them
// on a backend engine.
//
// A Model handle binds a ModelInfo descriptor to a QueryEngine and a
// dialect. Descriptors come from FromSchema at runtime or as literals baked
// by the code generator; engines live in the driver subpackages. The handle
// exposes one builder per operation:
//
//	users := query.NewModel(info, eng, dialect.Postgres)
//	rows, err := users.FindMany().
//	    Where(filter.Equals("status", filter.String("active"))).
//	    OrderBy("created_at", query.Desc).
//	    Take(20).
//	    Exec(ctx)
//
// Reads are FindMany, FindFirst, FindUnique, Count and Aggregate. FindUnique
// demands a conjunction of equalities covering the primary key or a unique
// set and reports a not-found error for a missing row. Cursor resumes a
// listing relative to a row; its sort keys precede the caller's so paging
// stays stable. Ordering supports explicit NULLS FIRST and NULLS LAST on
// every backend, emulated with a CASE guard key where the dialect has no
// native form.
//
// Writes are Create, Update, UpdateMany, Upsert, Delete and DeleteMany.
//
//	row, err := users.Create().
//	    Set("email", "ada@example.com").
//	    Relation("posts").Create(query.Data(query.Set("title", "Hello"))).
//	    Exec(ctx)
//
// Relation scopes nested operations (create, connect, disconnect, set,
// delete, update, upsert and their many-row forms) to one relation field.
// The expansion orders the statements around the parent write from the
// location of the foreign key: rows the parent's key column points at run
// first and feed the parent data, rows holding the parent's key and join
// table members run after it with parent references bound from the stored
// row. When the engine can open a transaction the whole write runs inside
// one.
//
// Client-generated id defaults (uuid, cuid, nanoid, ulid) are injected into
// create data before compilation, for the parent row and, when the related
// descriptors are registered with WithRelated, for nested creates too.
//
// View handles expose the read builders over database views and Refresh
// over materialized ones.
package query
