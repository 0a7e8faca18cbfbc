// Package field provides fluent builders for prax schema fields.
//
// Builders construct [schema.Field] values and satisfy
// [schema.FieldDefiner], so they compose directly into models:
//
//	schema.NewModel("User",
//	    field.String("id").ID().DefaultFunc("uuid"),
//	    field.String("email").Unique(),
//	    field.String("name").Optional(),
//	    field.DateTime("created_at").DefaultFunc("now"),
//	    field.DateTime("updated_at").UpdatedAt(),
//	    field.Model("posts", "Post").List(),
//	)
//
// # Field Types
//
// One constructor per scalar kind:
//
//	field.Int("count")
//	field.BigInt("total")
//	field.Float("score")
//	field.Decimal("price")
//	field.String("name")
//	field.Bool("active")
//	field.DateTime("created_at")
//	field.Date("born_on")
//	field.Time("opens_at")
//	field.JSON("metadata")
//	field.Bytes("payload")
//	field.UUID("id")
//	field.ULID("id")
//
// plus references:
//
//	field.Enum("status", "OrderStatus")
//	field.Model("author", "User")
//	field.Composite("address", "Address")
//	field.Unsupported("geo", "geography(Point,4326)")
//
// # Modifiers and Attributes
//
// Fluent options mirror the schema attributes:
//
//	field.String("email").
//	    Unique().                  // @unique
//	    Optional().                // trailing ?
//	    Map("email_addr").         // @map("email_addr")
//	    Doc("The login address.\n@validate: email")
//
// Relation fields take their wiring through Fields / References / OnDelete:
//
//	field.Model("author", "User").
//	    Fields("author_id").
//	    References("id").
//	    OnDelete(schema.Cascade)
package field
