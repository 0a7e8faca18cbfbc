package migrate

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DownMarker separates the up and down sections in the single-file form.
// It must start a line by itself; matching is case-insensitive.
const DownMarker = "-- DOWN"

// File is one migration: an id ordering it, a human name, the up and down
// SQL sections, and the checksum of the up section. The checksum covers the
// canonical up bytes only, so editing the down section never invalidates an
// applied migration.
type File struct {
	ID       string
	Name     string
	UpSQL    string
	DownSQL  string
	Checksum string
}

// NewFile returns a file with canonicalized sections and a computed
// checksum.
func NewFile(id, name, up, down string) *File {
	up = canonical(up)
	return &File{
		ID:       id,
		Name:     name,
		UpSQL:    up,
		DownSQL:  canonical(down),
		Checksum: Checksum(up),
	}
}

// Checksum returns the hex sha256 of the canonical up-SQL bytes.
func Checksum(upSQL string) string {
	sum := sha256.Sum256([]byte(canonical(upSQL)))
	return hex.EncodeToString(sum[:])
}

// Render writes the file in its single-file on-disk form: the up section,
// the down marker, the down section.
func (f *File) Render() string {
	var sb strings.Builder
	sb.WriteString(f.UpSQL)
	sb.WriteString(DownMarker)
	sb.WriteString("\n")
	sb.WriteString(f.DownSQL)
	return sb.String()
}

// ParseSQL splits single-file content at the first down marker line. Content
// without a marker is all up-SQL.
func ParseSQL(content string) (up, down string) {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if strings.EqualFold(strings.TrimSpace(line), DownMarker) {
			return canonical(strings.Join(lines[:i], "\n")), canonical(strings.Join(lines[i+1:], "\n"))
		}
	}
	return canonical(content), ""
}

// canonical collapses trailing line endings to exactly one newline, so the
// checksum of an up section is stable across editors and across the two
// on-disk forms.
func canonical(s string) string {
	s = strings.TrimRight(s, "\r\n")
	if s == "" {
		return ""
	}
	return s + "\n"
}

// NewID builds a migration id from the current time and the migration name:
// a millisecond timestamp, an underscore, and the slug of the name.
func NewID(name string, now time.Time) string {
	stamp := strconv.FormatInt(now.UnixMilli(), 10)
	slug := Slugify(name)
	if slug == "" {
		return stamp
	}
	return stamp + "_" + slug
}

// SplitID splits an id into its timestamp prefix and slug. Ids without an
// underscore have an empty slug.
func SplitID(id string) (stamp, slug string) {
	if i := strings.IndexByte(id, '_'); i >= 0 {
		return id[:i], id[i+1:]
	}
	return id, ""
}

var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify lowercases a migration name into the id alphabet: accents are
// stripped through NFD decomposition, every run outside [a-z0-9] becomes a
// single underscore, and leading/trailing underscores are trimmed.
func Slugify(name string) string {
	if folded, _, err := transform.String(deaccent, name); err == nil {
		name = folded
	}
	name = strings.ToLower(name)
	var sb strings.Builder
	sb.Grow(len(name))
	pending := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pending && sb.Len() > 0 {
				sb.WriteByte('_')
			}
			pending = false
			sb.WriteRune(r)
		default:
			pending = true
		}
	}
	return sb.String()
}

// Statements splits a SQL script into executable statements: semicolons at
// end of line terminate a statement, full-line comments and blank lines
// between statements are dropped. Semicolons inside string literals survive
// because generated DDL never breaks a literal across lines.
func Statements(script string) []string {
	var stmts []string
	var current []string
	flush := func() {
		stmt := strings.TrimSpace(strings.Join(current, "\n"))
		current = current[:0]
		if stmt != "" && !isCommentOnly(stmt) {
			stmts = append(stmts, stmt)
		}
	}
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if len(current) == 0 && (trimmed == "" || strings.HasPrefix(trimmed, "--")) {
			continue
		}
		current = append(current, line)
		if strings.HasSuffix(trimmed, ";") {
			flush()
		}
	}
	flush()
	return stmts
}

func isCommentOnly(stmt string) bool {
	for _, line := range strings.Split(stmt, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "--") {
			return false
		}
	}
	return true
}
