package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalarKindOf(t *testing.T) {
	for k := ScalarInt; k < endScalars; k++ {
		got, ok := ScalarKindOf(k.String())
		require.True(t, ok, k.String())
		assert.Equal(t, k, got)
	}
	_, ok := ScalarKindOf("User")
	assert.False(t, ok)
	_, ok = ScalarKindOf("int")
	assert.False(t, ok, "scalar names are case sensitive")
}

func TestScalarKindClasses(t *testing.T) {
	assert.True(t, ScalarInt.Numeric())
	assert.True(t, ScalarDecimal.Numeric())
	assert.False(t, ScalarString.Numeric())

	assert.True(t, ScalarString.Textual())
	assert.True(t, ScalarULID.Textual())
	assert.False(t, ScalarBytes.Textual())

	assert.True(t, ScalarUUID.GeneratedID())
	assert.True(t, ScalarNanoID.GeneratedID())
	assert.False(t, ScalarString.GeneratedID())

	assert.False(t, ScalarInvalid.Valid())
	assert.True(t, ScalarJSON.Valid())
}

func TestTypeModifier(t *testing.T) {
	assert.Equal(t, "", Required.String())
	assert.Equal(t, "?", Optional.String())
	assert.Equal(t, "[]", List.String())
	assert.Equal(t, "[]?", OptionalList.String())

	assert.False(t, Required.Nullable())
	assert.True(t, Optional.Nullable())
	assert.True(t, OptionalList.Nullable())
	assert.False(t, List.Nullable())

	assert.True(t, List.IsList())
	assert.True(t, OptionalList.IsList())
	assert.False(t, Optional.IsList())
}

func TestTypeOf(t *testing.T) {
	ft := TypeOf("DateTime")
	assert.Equal(t, KindScalar, ft.Kind)
	assert.Equal(t, ScalarDateTime, ft.Scalar)

	ft = TypeOf("User")
	assert.Equal(t, KindModel, ft.Kind)
	assert.Equal(t, "User", ft.Ref)
	assert.Equal(t, "User", ft.String())

	assert.Equal(t, "Uuid", ScalarType(ScalarUUID).String())
	assert.Equal(t, `Unsupported("tsvector")`, UnsupportedType("tsvector").String())
	assert.True(t, ScalarType(ScalarJSON).IsScalar(ScalarJSON))
	assert.False(t, ModelType("Json").IsScalar(ScalarJSON))
}
