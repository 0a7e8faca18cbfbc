// Package schema holds the canonical in-memory representation of a prax data
// model: models, enums, views and composite types, their fields and
// attributes, and the relation graph derived from them.
//
// A Schema is an ordered collection. Entities iterate in source order and
// resolve by name in constant time. Schemas are built either by an external
// parser or programmatically with the builders in this package and the
// fluent constructors in [github.com/syssam/prax/schema/field]:
//
//	s := schema.New(
//	    schema.NewModel("User",
//	        field.String("id").ID().DefaultFunc("uuid"),
//	        field.String("email").Unique(),
//	        field.Model("posts", "Post").List(),
//	    ),
//	    schema.NewModel("Post",
//	        field.String("id").ID().DefaultFunc("uuid"),
//	        field.String("author_id"),
//	        field.Model("author", "User").Fields("author_id").References("id"),
//	    ),
//	)
//	if err := schema.Validate(s); err != nil {
//	    // err aggregates every violation found
//	}
//
// Validation is a single pass with no side effects besides attaching the
// resolved relation list to the schema. See Validate for the enforced
// invariants.
package schema
