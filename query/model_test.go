package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/prax/schema"
)

func idField(name string) *schema.Field {
	f := schema.NewField(name, schema.ScalarType(schema.ScalarInt))
	f.Attrs = append(f.Attrs, schema.NewAttribute(schema.AttrID), schema.NewAttribute(schema.AttrAuto))
	return f
}

func uuidField(name string) *schema.Field {
	f := schema.NewField(name, schema.ScalarType(schema.ScalarString))
	f.Attrs = append(f.Attrs,
		schema.NewAttribute(schema.AttrID),
		schema.NewAttribute(schema.AttrDefault, schema.FuncValue("uuid")),
	)
	return f
}

func stringField(name string) *schema.Field {
	return schema.NewField(name, schema.ScalarType(schema.ScalarString))
}

func intField(name string) *schema.Field {
	return schema.NewField(name, schema.ScalarType(schema.ScalarInt))
}

func uniqueField(name string) *schema.Field {
	f := stringField(name)
	f.Attrs = append(f.Attrs, schema.NewAttribute(schema.AttrUnique))
	return f
}

func refField(name, model string, fields ...string) *schema.Field {
	f := schema.NewField(name, schema.ModelType(model))
	rel := schema.NewAttribute(schema.AttrRelation)
	if len(fields) > 0 {
		rel = rel.
			WithArg("fields", schema.ListValue(schema.IdentValue(fields[0]))).
			WithArg("references", schema.ListValue(schema.IdentValue("id")))
	}
	f.Attrs = append(f.Attrs, rel)
	return f
}

func listField(name, model string) *schema.Field {
	f := schema.NewField(name, schema.ModelType(model))
	f.Modifier = schema.List
	return f
}

// blogSchema wires User -> Post -> Tag: an owning author relation on Post,
// its list inverse on User, and an implicit join table between Post and
// Tag.
func blogSchema(t *testing.T) *schema.Schema {
	t.Helper()
	user := schema.NewModel("User",
		uuidField("id"),
		uniqueField("email"),
		stringField("name"),
		intField("age"),
		listField("posts", "Post"),
	)
	post := schema.NewModel("Post",
		idField("id"),
		stringField("title"),
		stringField("author_id"),
		refField("author", "User", "author_id"),
		listField("tags", "Tag"),
	).WithAttr(schema.NewAttribute(schema.AttrUnique,
		schema.ListValue(schema.IdentValue("title"), schema.IdentValue("author_id"))))
	tag := schema.NewModel("Tag",
		idField("id"),
		stringField("name"),
		listField("posts", "Post"),
	)
	s := schema.New(user, post, tag)
	require.NoError(t, schema.Validate(s))
	return s
}

func modelInfo(t *testing.T, name string) *ModelInfo {
	t.Helper()
	info, ok := FromSchema(blogSchema(t), name)
	require.True(t, ok)
	return info
}

func TestFromSchema(t *testing.T) {
	t.Run("Columns", func(t *testing.T) {
		info := modelInfo(t, "User")
		assert.Equal(t, "User", info.Name)
		assert.Equal(t, "users", info.Table)
		assert.Equal(t, []string{"id", "email", "name", "age"}, info.Columns)
		assert.True(t, info.Column("email"))
		assert.False(t, info.Column("posts"))
	})

	t.Run("PrimaryKey", func(t *testing.T) {
		assert.Equal(t, []string{"id"}, modelInfo(t, "User").PrimaryKey)
		assert.Equal(t, []string{"id"}, modelInfo(t, "Post").PrimaryKey)
	})

	t.Run("UniqueSets", func(t *testing.T) {
		assert.Equal(t, [][]string{{"email"}}, modelInfo(t, "User").UniqueSets)
		assert.Equal(t, [][]string{{"title", "author_id"}}, modelInfo(t, "Post").UniqueSets)
	})

	t.Run("GeneratedDefaults", func(t *testing.T) {
		assert.Equal(t, []ColumnDefault{{Column: "id", Func: "uuid"}}, modelInfo(t, "User").Defaults)
		// The integer id is database generated and injects nothing.
		assert.Empty(t, modelInfo(t, "Post").Defaults)
	})

	t.Run("UnknownModel", func(t *testing.T) {
		_, ok := FromSchema(blogSchema(t), "Order")
		assert.False(t, ok)
	})
}

func TestRelationInfo(t *testing.T) {
	t.Run("Owning", func(t *testing.T) {
		rel, ok := modelInfo(t, "Post").Relation("author")
		require.True(t, ok)
		assert.Equal(t, "User", rel.Model)
		assert.Equal(t, "users", rel.Table)
		assert.True(t, rel.OwnsKey)
		assert.Equal(t, "author_id", rel.ForeignKey)
		assert.Equal(t, "id", rel.References)
		assert.Empty(t, rel.JoinTable)
	})

	t.Run("List", func(t *testing.T) {
		rel, ok := modelInfo(t, "User").Relation("posts")
		require.True(t, ok)
		assert.Equal(t, "Post", rel.Model)
		assert.Equal(t, "posts", rel.Table)
		assert.False(t, rel.OwnsKey)
		assert.Equal(t, "author_id", rel.ForeignKey)
		assert.Equal(t, "id", rel.References)
		assert.Empty(t, rel.JoinTable)
	})

	t.Run("ManyToMany", func(t *testing.T) {
		rel, ok := modelInfo(t, "Post").Relation("tags")
		require.True(t, ok)
		assert.Equal(t, schema.ManyToMany, rel.Kind)
		assert.Equal(t, "_PostToTag", rel.JoinTable)
		assert.Equal(t, "A", rel.JoinFrom)
		assert.Equal(t, "B", rel.JoinTo)
		assert.Equal(t, "id", rel.ForeignKey)
		assert.Equal(t, "id", rel.References)
	})

	t.Run("ManyToManyInverseFlipsColumns", func(t *testing.T) {
		rel, ok := modelInfo(t, "Tag").Relation("posts")
		require.True(t, ok)
		assert.Equal(t, "_PostToTag", rel.JoinTable)
		assert.Equal(t, "B", rel.JoinFrom)
		assert.Equal(t, "A", rel.JoinTo)
	})

	t.Run("UnknownField", func(t *testing.T) {
		_, ok := modelInfo(t, "Post").Relation("reviews")
		assert.False(t, ok)
	})
}

func TestMatchesUniqueSet(t *testing.T) {
	post := modelInfo(t, "Post")

	t.Run("PrimaryKey", func(t *testing.T) {
		assert.True(t, post.MatchesUniqueSet([]string{"id"}))
	})

	t.Run("CompositeAnyOrder", func(t *testing.T) {
		assert.True(t, post.MatchesUniqueSet([]string{"title", "author_id"}))
		assert.True(t, post.MatchesUniqueSet([]string{"author_id", "title"}))
	})

	t.Run("PartialSet", func(t *testing.T) {
		assert.False(t, post.MatchesUniqueSet([]string{"title"}))
		assert.False(t, post.MatchesUniqueSet([]string{"id", "title"}))
	})

	t.Run("Empty", func(t *testing.T) {
		assert.False(t, post.MatchesUniqueSet(nil))
	})
}
