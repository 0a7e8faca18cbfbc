package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	atlas "ariga.io/atlas/sql/migrate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exportDir(t *testing.T) *Dir {
	t.Helper()
	return testDir(t,
		NewFile("1714000000000_init", "init",
			"CREATE TABLE \"users\" (\"id\" bigint NOT NULL);\nCREATE INDEX \"users_idx\" ON \"users\" (\"id\");\n",
			"DROP INDEX \"users_idx\";\nDROP TABLE \"users\";\n",
		),
		NewFile("1714000100000_add_posts", "add posts",
			"CREATE TABLE \"posts\" (\"id\" bigint NOT NULL);\n",
			"DROP TABLE \"posts\";\n",
		),
	)
}

func TestExportAtlas(t *testing.T) {
	out := t.TempDir()
	require.NoError(t, Export(exportDir(t), out, FormatAtlas))

	require.FileExists(t, filepath.Join(out, "1714000000000_init.sql"))
	require.FileExists(t, filepath.Join(out, "1714000100000_add_posts.sql"))
	require.FileExists(t, filepath.Join(out, atlas.HashFileName))

	content, err := os.ReadFile(filepath.Join(out, "1714000000000_init.sql"))
	require.NoError(t, err)
	assert.Contains(t, string(content), `CREATE TABLE "users" ("id" bigint NOT NULL);`)
	assert.Contains(t, string(content), `CREATE INDEX "users_idx" ON "users" ("id");`)
}

func TestExportGolangMigrate(t *testing.T) {
	out := t.TempDir()
	require.NoError(t, Export(exportDir(t), out, FormatGolangMigrate))

	up, err := os.ReadFile(filepath.Join(out, "1714000000000_init.up.sql"))
	require.NoError(t, err)
	assert.Contains(t, string(up), `CREATE TABLE "users"`)

	down, err := os.ReadFile(filepath.Join(out, "1714000000000_init.down.sql"))
	require.NoError(t, err)
	text := string(down)
	assert.Contains(t, text, `DROP TABLE "users";`)
	// The down file keeps the original down-script order.
	assert.Less(t, strings.Index(text, "DROP INDEX"), strings.Index(text, `DROP TABLE "users"`))

	// Tool formats carry their own integrity story.
	assert.NoFileExists(t, filepath.Join(out, atlas.HashFileName))
}

func TestExportUnknownFormat(t *testing.T) {
	err := Export(exportDir(t), t.TempDir(), ExportFormat("liquidbase"))
	require.ErrorContains(t, err, "unknown export format")
}

func TestImportAtlas(t *testing.T) {
	out := t.TempDir()
	require.NoError(t, Export(exportDir(t), out, FormatAtlas))

	files, err := ImportAtlas(out)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "1714000000000_init", files[0].ID)
	assert.Equal(t, "1714000100000_add_posts", files[1].ID)
	assert.Contains(t, files[0].UpSQL, `CREATE TABLE "users"`)
	assert.Empty(t, files[0].DownSQL)
	assert.Equal(t, Checksum(files[0].UpSQL), files[0].Checksum)

	// Editing a migration behind the sum file fails validation.
	require.NoError(t, os.WriteFile(filepath.Join(out, "1714000000000_init.sql"), []byte("ALTER TABLE x;"), 0o644))
	_, err = ImportAtlas(out)
	require.ErrorIs(t, err, atlas.ErrChecksumMismatch)
}
