package filter

import (
	"strconv"
	"testing"

	"github.com/syssam/prax/dialect"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMatchesDirectConstruction(t *testing.T) {
	direct := And(
		Equals("a", Int(1)),
		Or(Equals("b", Int(2)), IsNull("c")),
	)
	built := Build(func(b *B) *Filter {
		return b.And(
			b.Equals("a", Int(1)),
			b.Or(b.Equals("b", Int(2)), b.IsNull("c")),
		)
	})
	assert.Equal(t, direct, built)

	sql, params, next := built.ToSQL(dialect.Postgres, 1)
	assert.Equal(t, `("a" = $1 AND ("b" = $2 OR "c" IS NULL))`, sql)
	assert.Equal(t, []Value{Int(1), Int(2)}, params)
	assert.Equal(t, 3, next)
}

func TestBuildReturnsOwnedTree(t *testing.T) {
	built := Build(func(b *B) *Filter {
		return b.And(
			b.Equals("tenant_id", String("t1")),
			b.In("state", String("a"), String("b")),
		)
	})
	wantSQL, wantParams, _ := built.ToSQL(dialect.Postgres, 1)

	// Recycle the pooled arena many times; the published tree must not
	// observe any of it.
	for i := 0; i < 100; i++ {
		Build(func(b *B) *Filter {
			kids := make([]*Filter, 0, 8)
			for j := 0; j < 8; j++ {
				kids = append(kids, b.Equals("f"+strconv.Itoa(j), Int(int64(i*j))))
			}
			return b.And(kids...)
		})
	}

	sql, params, _ := built.ToSQL(dialect.Postgres, 1)
	assert.Equal(t, wantSQL, sql)
	assert.Equal(t, wantParams, params)
}

func TestBuilderSimplifies(t *testing.T) {
	a := NewArena()
	b := NewB(a)

	assert.Same(t, None(), b.And())
	assert.Same(t, None(), b.Or())
	assert.Same(t, None(), b.Not(b.None()))

	x := b.Equals("a", Int(1))
	assert.Same(t, x, b.And(x))
	assert.Same(t, x, b.Or(x))
	assert.Same(t, x, b.And(b.None(), x))
	assert.Same(t, None(), b.Or(x, b.None()))
}

func TestBuildNoneResult(t *testing.T) {
	built := Build(func(b *B) *Filter {
		return b.And(b.None(), b.None())
	})
	assert.Same(t, None(), built)

	built = Build(func(b *B) *Filter { return nil })
	assert.Same(t, None(), built)
}

func TestArenaGrowsPastSlab(t *testing.T) {
	a := NewArena()
	b := NewB(a)

	// Three slabs' worth of leaves plus a wide compound.
	kids := make([]*Filter, 0, 3*slabSize)
	for i := 0; i < 3*slabSize; i++ {
		kids = append(kids, b.Equals("f"+strconv.Itoa(i), Int(int64(i))))
	}
	f := b.And(kids...)
	require.Equal(t, 3*slabSize, len(f.Children))
	assert.Equal(t, 3*slabSize, f.Arity())

	// Reset recycles in place; the arena serves a fresh tree afterwards.
	a.Reset()
	g := b.Or(b.Equals("x", Int(1)), b.IsNull("y"))
	owned := materialize(g)
	sql, _, _ := owned.ToSQL(dialect.Postgres, 1)
	assert.Equal(t, `("x" = $1 OR "y" IS NULL)`, sql)
}

func TestArenaChildSlicesAreCapped(t *testing.T) {
	a := NewArena()
	b := NewB(a)
	f := b.And(b.Equals("a", Int(1)), b.Equals("b", Int(2)))
	require.Len(t, f.Children, 2)
	assert.Equal(t, 2, cap(f.Children))
}

func buildWideTree(b *B) *Filter {
	return b.And(
		b.Equals("status", String("active")),
		b.Or(
			b.Gt("age", Int(18)),
			b.Equals("role", String("admin")),
			b.IsNotNull("verified_at"),
		),
		b.In("department", String("eng"), String("product"), String("design")),
		b.Not(b.Equals("deleted", Bool(true))),
		b.Or(
			b.Contains("email", String("@example.com")),
			b.And(b.IsNull("email"), b.Equals("invited", Bool(true))),
		),
	)
}

func BenchmarkDirectConstruction(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		f := And(
			Equals("status", String("active")),
			Or(
				Gt("age", Int(18)),
				Equals("role", String("admin")),
				IsNotNull("verified_at"),
			),
			In("department", String("eng"), String("product"), String("design")),
			Not(Equals("deleted", Bool(true))),
			Or(
				Contains("email", String("@example.com")),
				And(IsNull("email"), Equals("invited", Bool(true))),
			),
		)
		if f.IsNone() {
			b.Fatal("unexpected none")
		}
	}
}

func BenchmarkArenaBuild(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		f := Build(func(bb *B) *Filter { return buildWideTree(bb) })
		if f.IsNone() {
			b.Fatal("unexpected none")
		}
	}
}

func BenchmarkArenaScratchOnly(b *testing.B) {
	// Construction cost alone, without materialization: the arena path for
	// trees that are emitted and dropped before publication.
	a := NewArena()
	bb := NewB(a)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f := buildWideTree(bb)
		if f.IsNone() {
			b.Fatal("unexpected none")
		}
		a.Reset()
	}
}

func BenchmarkToSQL(b *testing.B) {
	f := Build(func(bb *B) *Filter { return buildWideTree(bb) })
	for _, d := range []string{dialect.Postgres, dialect.MySQL} {
		b.Run(d, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				sql, params, _ := f.ToSQL(d, 1)
				if sql == "" || len(params) == 0 {
					b.Fatal("empty emission")
				}
			}
		})
	}
}
