package gen

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/prax/dialect"
	"github.com/syssam/prax/schema"
)

var update = flag.Bool("update", false, "rewrite golden files")

// goldenSchema is a single small model, kept stable so the golden files
// stay readable.
func goldenSchema(t *testing.T) *schema.Schema {
	t.Helper()
	account := schema.NewModel("Account",
		idField("id"),
		uniqueField("email"),
		boolField("active"),
	)
	s := schema.New(account)
	require.NoError(t, schema.Validate(s))
	return s
}

// normalize strips blank lines so the comparison is insensitive to vertical
// spacing while keeping indentation and token layout exact.
func normalize(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, strings.TrimRight(line, " \t"))
	}
	return strings.Join(out, "\n")
}

func TestGolden(t *testing.T) {
	target := t.TempDir()
	generate(t, goldenSchema(t), Config{
		Package: "example.com/app/praxdb",
		Target:  target,
		Dialect: dialect.Postgres,
	})

	cases := []struct {
		name   string
		rel    string
		golden string
	}{
		{"Constants", "account/account.go", "account_pkg.golden"},
		{"Predicates", "account/where.go", "account_where.golden"},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			got := read(t, target, tt.rel)
			goldenPath := filepath.Join("testdata", tt.golden)
			if *update {
				require.NoError(t, os.WriteFile(goldenPath, []byte(got), 0o644))
			}
			want, err := os.ReadFile(goldenPath)
			require.NoError(t, err)
			assert.Equal(t, normalize(string(want)), normalize(got))
		})
	}
}
