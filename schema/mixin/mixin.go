package mixin

import (
	"github.com/syssam/prax/schema"
	"github.com/syssam/prax/schema/field"
)

// Apply appends the given field groups to a model and returns it. Groups
// land after the model's own fields, in the order given.
func Apply(m *schema.Model, groups ...[]schema.FieldDefiner) *schema.Model {
	for _, g := range groups {
		for _, f := range g {
			m.AddField(f.FieldDef())
		}
	}
	return m
}

// UUIDKey returns an id primary key generated client side.
func UUIDKey() []schema.FieldDefiner {
	return []schema.FieldDefiner{
		field.UUID("id").ID().DefaultFunc("uuid"),
	}
}

// CreateTime returns a created_at stamp filled on insert.
func CreateTime() []schema.FieldDefiner {
	return []schema.FieldDefiner{
		field.DateTime("created_at").DefaultFunc("now"),
	}
}

// UpdateTime returns an updated_at stamp refreshed on every update.
func UpdateTime() []schema.FieldDefiner {
	return []schema.FieldDefiner{
		field.DateTime("updated_at").DefaultFunc("now").UpdatedAt(),
	}
}

// Timestamps combines CreateTime and UpdateTime. This is the common pair
// for tracking row lifecycles.
func Timestamps() []schema.FieldDefiner {
	return append(CreateTime(), UpdateTime()...)
}

// SoftDelete returns a nullable deleted_at marker. Rows are never removed;
// callers filter on DeletedAtIsNil and set the stamp instead of deleting.
func SoftDelete() []schema.FieldDefiner {
	return []schema.FieldDefiner{
		field.DateTime("deleted_at").Optional(),
	}
}

// TenantID returns the tenant discriminator column. The tenant runtime's
// row-level security policies key on this column when models opt in to
// shared-schema isolation.
func TenantID() []schema.FieldDefiner {
	return []schema.FieldDefiner{
		field.String("tenant_id"),
	}
}
