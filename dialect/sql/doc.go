// Package sql provides SQL statement building primitives and the
// database/sql driver adapter.
//
// This package is the foundation for generating and executing statements
// across the supported engines (PostgreSQL, MySQL, SQLite, DuckDB, MSSQL).
// It provides a fluent API for constructing statements with dialect-aware
// placeholders and identifier quoting.
//
// # Builder Types
//
// The package provides specialized builders for different SQL operations:
//
//   - Builder: Low-level SQL string builder with identifier quoting
//   - Selector: SELECT query builder with joins, predicates, and pagination
//   - InsertBuilder: INSERT statement builder with RETURNING and upsert support
//   - UpdateBuilder: UPDATE statement builder with SET and WHERE clauses
//   - DeleteBuilder: DELETE statement builder with WHERE predicates
//
// # Dialect Support
//
// SQL generation adapts to the target dialect:
//
//	import "github.com/syssam/prax/dialect"
//
//	// PostgreSQL: placeholders render as $1, $2, ...
//	sql.Dialect(dialect.Postgres).
//	    Select("id", "name").
//	    From(sql.Table("users")).
//	    Where(sql.EQ("status", "active")).
//	    Query()
//
//	// MySQL: placeholders render as ?
//	sql.Dialect(dialect.MySQL).Select("id").From(sql.Table("users")).Query()
//
// # Predicates
//
// Predicates compose into a WHERE tree and replay per dialect:
//
//	// Equality
//	sql.EQ("name", "john")           // "name" = $1
//	sql.NEQ("status", "deleted")     // "status" <> $1
//
//	// Comparison
//	sql.GT("age", 18)                // "age" > $1
//	sql.LTE("price", 100.0)          // "price" <= $1
//
//	// String matching
//	sql.Contains("name", "john")     // "name" LIKE '%john%'
//	sql.HasPrefix("email", "admin")  // "email" LIKE 'admin%'
//
//	// NULL checks
//	sql.IsNull("deleted_at")         // "deleted_at" IS NULL
//	sql.NotNull("email")             // "email" IS NOT NULL
//
//	// IN clauses
//	sql.In("status", "active", "pending")  // "status" IN ($1, $2)
//
// # Joins
//
// Join operations go through the selector:
//
//	users := sql.Table("users").As("u")
//	posts := sql.Table("posts").As("p")
//	sql.Dialect(dialect.Postgres).
//	    Select("u.id", "u.name", "p.title").
//	    From(users).
//	    Join(posts).On(users.C("id"), posts.C("user_id")).
//	    Where(sql.EQ("u.active", true))
//
// # Placeholder Threading
//
// Builders keep a running placeholder counter that can be seeded with
// SetTotal, so fragments rendered elsewhere keep their numbering. An UPDATE
// binds its SET values first, so a filter fragment for its WHERE clause is
// rendered with the start index right after them:
//
//	upd := sql.Dialect(dialect.Postgres).Update("users").
//	    Set("active", false)                         // $1 at render time
//	frag, args, _ := f.ToSQL(dialect.Postgres, 2)    // $2..$n
//	upd.Where(sql.ExprP(frag, args...))
//
// The Fragment type builds dialect-neutral (text, params) pairs whose '?'
// positions are tracked at write time, and Templates caches generated
// statements keyed by name with an FNV-64a content hash.
//
// # Row-Level Locking
//
// Pessimistic locking for transactions:
//
//	sql.Dialect(dialect.Postgres).
//	    Select("*").
//	    From(sql.Table("users")).
//	    Where(sql.EQ("id", 1)).
//	    ForUpdate()  // SELECT ... FOR UPDATE
//
// # Driver
//
// Open and OpenDB adapt database/sql connections to the dialect.Driver
// interface, with session-variable support used by the tenant runtime and
// the StatsDriver and DebugDriver decorators for observability.
package sql
