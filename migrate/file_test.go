package migrate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksum(t *testing.T) {
	t.Run("StableAcrossTrailingNewlines", func(t *testing.T) {
		base := Checksum("CREATE TABLE a (id int);")
		assert.Equal(t, base, Checksum("CREATE TABLE a (id int);\n"))
		assert.Equal(t, base, Checksum("CREATE TABLE a (id int);\r\n"))
		assert.Equal(t, base, Checksum("CREATE TABLE a (id int);\n\n\n"))
	})
	t.Run("SensitiveToBody", func(t *testing.T) {
		assert.NotEqual(t, Checksum("CREATE TABLE a (id int);"), Checksum("CREATE TABLE b (id int);"))
	})
	t.Run("IgnoresDownSection", func(t *testing.T) {
		a := NewFile("001", "a", "CREATE TABLE a (id int);", "DROP TABLE a;")
		b := NewFile("001", "a", "CREATE TABLE a (id int);", "-- nothing to undo")
		assert.Equal(t, a.Checksum, b.Checksum)
	})
}

func TestFileRenderParse(t *testing.T) {
	f := NewFile("001", "init", "CREATE TABLE a (id int);", "DROP TABLE a;")
	up, down := ParseSQL(f.Render())
	assert.Equal(t, f.UpSQL, up)
	assert.Equal(t, f.DownSQL, down)
	assert.Equal(t, f.Checksum, Checksum(up))
}

func TestParseSQL(t *testing.T) {
	t.Run("NoMarker", func(t *testing.T) {
		up, down := ParseSQL("CREATE TABLE a (id int);")
		assert.Equal(t, "CREATE TABLE a (id int);\n", up)
		assert.Empty(t, down)
	})
	t.Run("MarkerCaseInsensitive", func(t *testing.T) {
		up, down := ParseSQL("CREATE TABLE a (id int);\n-- down\nDROP TABLE a;")
		assert.Equal(t, "CREATE TABLE a (id int);\n", up)
		assert.Equal(t, "DROP TABLE a;\n", down)
	})
	t.Run("MarkerPadded", func(t *testing.T) {
		up, down := ParseSQL("CREATE TABLE a (id int);\n  -- DOWN  \nDROP TABLE a;")
		assert.Equal(t, "CREATE TABLE a (id int);\n", up)
		assert.Equal(t, "DROP TABLE a;\n", down)
	})
	t.Run("FirstMarkerWins", func(t *testing.T) {
		_, down := ParseSQL("SELECT 1;\n-- DOWN\nSELECT 2;\n-- DOWN\nSELECT 3;")
		assert.Equal(t, "SELECT 2;\n-- DOWN\nSELECT 3;\n", down)
	})
	t.Run("EmptyDown", func(t *testing.T) {
		up, down := ParseSQL("SELECT 1;\n-- DOWN\n")
		assert.Equal(t, "SELECT 1;\n", up)
		assert.Empty(t, down)
	})
}

func TestNewID(t *testing.T) {
	now := time.UnixMilli(1714000000000)
	assert.Equal(t, "1714000000000_add_users", NewID("Add Users", now))
	assert.Equal(t, "1714000000000", NewID("", now))
	assert.Equal(t, "1714000000000", NewID("!!!", now))
}

func TestSplitID(t *testing.T) {
	stamp, slug := SplitID("1714000000000_add_users")
	assert.Equal(t, "1714000000000", stamp)
	assert.Equal(t, "add_users", slug)

	stamp, slug = SplitID("1714000000000")
	assert.Equal(t, "1714000000000", stamp)
	assert.Empty(t, slug)
}

func TestSlugify(t *testing.T) {
	for _, tt := range []struct {
		name, want string
	}{
		{"Add Users", "add_users"},
		{"add-users table", "add_users_table"},
		{"Crème Brûlée", "creme_brulee"},
		{"--init--", "init"},
		{"v2 / cleanup", "v2_cleanup"},
		{"", ""},
		{"???", ""},
	} {
		assert.Equal(t, tt.want, Slugify(tt.name), "slug of %q", tt.name)
	}
}

func TestStatements(t *testing.T) {
	t.Run("Simple", func(t *testing.T) {
		stmts := Statements("CREATE TABLE a (id int);\nCREATE INDEX a_idx ON a (id);")
		require.Len(t, stmts, 2)
		assert.Equal(t, "CREATE TABLE a (id int);", stmts[0])
		assert.Equal(t, "CREATE INDEX a_idx ON a (id);", stmts[1])
	})
	t.Run("MultiLine", func(t *testing.T) {
		stmts := Statements("CREATE TABLE a (\n  id int,\n  name text\n);")
		require.Len(t, stmts, 1)
		assert.Equal(t, "CREATE TABLE a (\n  id int,\n  name text\n);", stmts[0])
	})
	t.Run("CommentsAndBlanks", func(t *testing.T) {
		stmts := Statements("-- users table\n\nCREATE TABLE a (id int);\n\n-- its index\nCREATE INDEX a_idx ON a (id);\n")
		require.Len(t, stmts, 2)
		assert.Equal(t, "CREATE TABLE a (id int);", stmts[0])
	})
	t.Run("MissingFinalSemicolon", func(t *testing.T) {
		stmts := Statements("SELECT 1;\nSELECT 2")
		require.Len(t, stmts, 2)
		assert.Equal(t, "SELECT 2", stmts[1])
	})
	t.Run("CommentOnly", func(t *testing.T) {
		assert.Empty(t, Statements("-- nothing here\n"))
		assert.Empty(t, Statements(""))
	})
}
