package sql

import (
	"strings"

	"github.com/syssam/prax/dialect"
)

// Fragment is an incrementally built (text, parameters) pair. The text stays
// dialect-neutral: every bound parameter is written as '?' and its byte
// offset recorded, so BuildFor can renumber for positional dialects without
// ever scanning caller-supplied SQL for placeholder-looking characters.
//
// A Fragment never touches I/O and never commits to a dialect until
// BuildFor is called.
type Fragment struct {
	text   strings.Builder
	marks  []int
	params []any
}

// NewFragment returns a fragment seeded with the given literal.
func NewFragment(literal string) *Fragment {
	f := &Fragment{}
	f.text.WriteString(literal)
	return f
}

// Push appends a literal chunk.
func (f *Fragment) Push(literal string) *Fragment {
	f.text.WriteString(literal)
	return f
}

// Bind appends a parameter: a neutral '?' in the text and the value in the
// parameter list.
func (f *Fragment) Bind(v any) *Fragment {
	f.marks = append(f.marks, f.text.Len())
	f.text.WriteByte('?')
	f.params = append(f.params, v)
	return f
}

// Arity returns the number of bound parameters.
func (f *Fragment) Arity() int { return len(f.params) }

// Build returns the dialect-neutral text and parameters. Renumbering for a
// positional dialect is left to the caller.
func (f *Fragment) Build() (string, []any) {
	return f.text.String(), f.params
}

// BuildFor returns the text with placeholders rendered for the given
// dialect, numbering from 1. Only the offsets this fragment wrote are
// rewritten; '?' bytes inside pushed literals are left alone.
func (f *Fragment) BuildFor(d string) (string, []any) {
	s := f.text.String()
	if len(f.marks) == 0 || dialect.Placeholder(d, 1) == "?" {
		return s, f.params
	}
	var b strings.Builder
	b.Grow(len(s) + 3*len(f.marks))
	prev := 0
	for i, pos := range f.marks {
		b.WriteString(s[prev:pos])
		b.WriteString(dialect.Placeholder(d, i+1))
		prev = pos + 1
	}
	b.WriteString(s[prev:])
	return b.String(), f.params
}
