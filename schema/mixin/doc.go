// Package mixin provides reusable field groups for prax schemas.
//
// A mixin is a slice of field definitions shared across models. Groups
// splice into a model through [Apply]:
//
//	user := mixin.Apply(
//	    schema.NewModel("User",
//	        field.String("email").Unique(),
//	        field.String("name").Optional(),
//	    ),
//	    mixin.UUIDKey(),
//	    mixin.Timestamps(),
//	)
//
// or compose inline, since every group element satisfies
// [schema.FieldDefiner]:
//
//	fields := append(mixin.UUIDKey(), field.String("email").Unique())
//	user := schema.NewModel("User", fields...)
//
// # Built-in groups
//
//	mixin.UUIDKey()    // id UUID @id @default(uuid())
//	mixin.CreateTime() // created_at DateTime @default(now())
//	mixin.UpdateTime() // updated_at DateTime @default(now()) @updated_at
//	mixin.Timestamps() // CreateTime + UpdateTime
//	mixin.SoftDelete() // deleted_at DateTime?
//	mixin.TenantID()   // tenant_id String
//
// Custom groups are plain functions:
//
//	func Audit() []schema.FieldDefiner {
//	    return append(mixin.Timestamps(),
//	        field.String("created_by").Optional(),
//	        field.String("updated_by").Optional(),
//	    )
//	}
package mixin
