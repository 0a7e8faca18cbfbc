package mixin_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/prax/schema"
	"github.com/syssam/prax/schema/field"
	"github.com/syssam/prax/schema/mixin"
)

func TestApply(t *testing.T) {
	m := mixin.Apply(
		schema.NewModel("Document",
			field.String("title"),
		),
		mixin.UUIDKey(),
		mixin.Timestamps(),
		mixin.SoftDelete(),
	)

	names := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"title", "id", "created_at", "updated_at", "deleted_at"}, names)

	require.NoError(t, schema.Validate(schema.New(m)))
}

func TestUUIDKey(t *testing.T) {
	f := mixin.UUIDKey()[0].FieldDef()
	assert.Equal(t, "id", f.Name)
	assert.True(t, f.Type.IsScalar(schema.ScalarUUID))
	assert.True(t, f.IsID())

	fn, ok := f.DefaultFunc()
	require.True(t, ok)
	assert.Equal(t, "uuid", fn)
}

func TestTimestamps(t *testing.T) {
	fields := mixin.Timestamps()
	require.Len(t, fields, 2)

	created := fields[0].FieldDef()
	assert.Equal(t, "created_at", created.Name)
	assert.True(t, created.Type.IsScalar(schema.ScalarDateTime))
	assert.False(t, created.IsUpdatedAt())
	fn, ok := created.DefaultFunc()
	require.True(t, ok)
	assert.Equal(t, "now", fn)

	updated := fields[1].FieldDef()
	assert.Equal(t, "updated_at", updated.Name)
	assert.True(t, updated.IsUpdatedAt())
}

func TestSoftDelete(t *testing.T) {
	f := mixin.SoftDelete()[0].FieldDef()
	assert.Equal(t, "deleted_at", f.Name)
	assert.Equal(t, schema.Optional, f.Modifier)
	_, ok := f.DefaultFunc()
	assert.False(t, ok)
}

func TestTenantID(t *testing.T) {
	f := mixin.TenantID()[0].FieldDef()
	assert.Equal(t, "tenant_id", f.Name)
	assert.True(t, f.Type.IsScalar(schema.ScalarString))
	assert.Equal(t, schema.Required, f.Modifier)
}

// Mixed-in fields behave like hand-written ones under validation and the
// model accessors.
func TestApplyValidatesInSchema(t *testing.T) {
	account := mixin.Apply(
		schema.NewModel("Account",
			field.String("email").Unique(),
		),
		mixin.UUIDKey(),
		mixin.TenantID(),
		mixin.Timestamps(),
	)

	s := schema.New(account)
	require.NoError(t, schema.Validate(s))

	m, ok := s.Model("Account")
	require.True(t, ok)

	id, ok := m.IDField()
	require.True(t, ok)
	assert.Equal(t, "id", id.Name)

	tenant, ok := m.Field("tenant_id")
	require.True(t, ok)
	assert.Equal(t, "tenant_id", tenant.MappedName())
}
