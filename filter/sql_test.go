package filter

import (
	"regexp"
	"strconv"
	"testing"

	"github.com/syssam/prax/dialect"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToSQLSimpleEquality(t *testing.T) {
	f := Equals("age", Int(30))
	sql, params, next := f.ToSQL(dialect.Postgres, 1)
	assert.Equal(t, `"age" = $1`, sql)
	assert.Equal(t, []Value{Int(30)}, params)
	assert.Equal(t, 2, next)
}

func TestToSQLNestedAndOr(t *testing.T) {
	f := And(
		Equals("a", Int(1)),
		Or(
			Equals("b", Int(2)),
			IsNull("c"),
		),
	)
	sql, params, next := f.ToSQL(dialect.Postgres, 1)
	assert.Equal(t, `("a" = $1 AND ("b" = $2 OR "c" IS NULL))`, sql)
	assert.Equal(t, []Value{Int(1), Int(2)}, params)
	assert.Equal(t, 3, next)
}

func TestToSQLDialects(t *testing.T) {
	f := Equals("age", Int(30))
	for _, tt := range []struct {
		dialect string
		want    string
	}{
		{dialect.Postgres, `"age" = $1`},
		{dialect.DuckDB, `"age" = $1`},
		{dialect.MySQL, "`age` = ?"},
		{dialect.SQLite, `"age" = ?`},
		{dialect.MSSQL, "[age] = ?"},
	} {
		t.Run(tt.dialect, func(t *testing.T) {
			sql, params, next := f.ToSQL(tt.dialect, 1)
			assert.Equal(t, tt.want, sql)
			assert.Equal(t, []Value{Int(30)}, params)
			assert.Equal(t, 2, next)
		})
	}
}

func TestToSQLStartIndex(t *testing.T) {
	f := And(Equals("a", Int(1)), Equals("b", Int(2)))
	sql, params, next := f.ToSQL(dialect.Postgres, 5)
	assert.Equal(t, `("a" = $5 AND "b" = $6)`, sql)
	assert.Len(t, params, 2)
	assert.Equal(t, 7, next)
}

func TestToSQLComparisons(t *testing.T) {
	for _, tt := range []struct {
		f    *Filter
		want string
	}{
		{NotEquals("a", Int(1)), `"a" <> $1`},
		{Lt("a", Int(1)), `"a" < $1`},
		{Lte("a", Int(1)), `"a" <= $1`},
		{Gt("a", Int(1)), `"a" > $1`},
		{Gte("a", Int(1)), `"a" >= $1`},
	} {
		sql, _, _ := tt.f.ToSQL(dialect.Postgres, 1)
		assert.Equal(t, tt.want, sql)
	}
}

func TestToSQLStringMatching(t *testing.T) {
	t.Run("Contains", func(t *testing.T) {
		sql, params, _ := Contains("name", String("jo")).ToSQL(dialect.Postgres, 1)
		assert.Equal(t, `"name" LIKE $1`, sql)
		assert.Equal(t, []Value{String("%jo%")}, params)
	})
	t.Run("StartsWith", func(t *testing.T) {
		sql, params, _ := StartsWith("name", String("jo")).ToSQL(dialect.Postgres, 1)
		assert.Equal(t, `"name" LIKE $1`, sql)
		assert.Equal(t, []Value{String("jo%")}, params)
	})
	t.Run("EndsWith", func(t *testing.T) {
		sql, params, _ := EndsWith("name", String("son")).ToSQL(dialect.Postgres, 1)
		assert.Equal(t, `"name" LIKE $1`, sql)
		assert.Equal(t, []Value{String("%son")}, params)
	})
}

func TestToSQLIn(t *testing.T) {
	t.Run("Values", func(t *testing.T) {
		f := In("status", String("active"), String("pending"))
		sql, params, next := f.ToSQL(dialect.Postgres, 1)
		assert.Equal(t, `"status" IN ($1, $2)`, sql)
		assert.Equal(t, []Value{String("active"), String("pending")}, params)
		assert.Equal(t, 3, next)
	})
	t.Run("NotIn", func(t *testing.T) {
		sql, _, _ := NotIn("status", String("deleted")).ToSQL(dialect.Postgres, 1)
		assert.Equal(t, `"status" NOT IN ($1)`, sql)
	})
	t.Run("EmptyInMatchesNothing", func(t *testing.T) {
		sql, params, next := In("status").ToSQL(dialect.Postgres, 1)
		assert.Equal(t, "FALSE", sql)
		assert.Empty(t, params)
		assert.Equal(t, 1, next)
	})
	t.Run("EmptyNotInMatchesAll", func(t *testing.T) {
		sql, _, _ := NotIn("status").ToSQL(dialect.Postgres, 1)
		assert.Equal(t, "TRUE", sql)
	})
	t.Run("EmptyInMSSQL", func(t *testing.T) {
		sql, _, _ := In("status").ToSQL(dialect.MSSQL, 1)
		assert.Equal(t, "1 = 0", sql)
		sql, _, _ = NotIn("status").ToSQL(dialect.MSSQL, 1)
		assert.Equal(t, "1 = 1", sql)
	})
}

func TestToSQLNot(t *testing.T) {
	f := Not(Equals("deleted", Bool(true)))
	sql, params, next := f.ToSQL(dialect.Postgres, 1)
	assert.Equal(t, `NOT ("deleted" = $1)`, sql)
	assert.Equal(t, []Value{Bool(true)}, params)
	assert.Equal(t, 2, next)
}

func TestToSQLNone(t *testing.T) {
	sql, params, next := None().ToSQL(dialect.Postgres, 7)
	assert.Empty(t, sql)
	assert.Nil(t, params)
	assert.Equal(t, 7, next)

	var f *Filter
	sql, _, next = f.ToSQL(dialect.Postgres, 3)
	assert.Empty(t, sql)
	assert.Equal(t, 3, next)
}

func TestToSQLQualifiedField(t *testing.T) {
	sql, _, _ := Equals("u.age", Int(1)).ToSQL(dialect.Postgres, 1)
	assert.Equal(t, `"u"."age" = $1`, sql)
	sql, _, _ = Equals("u.age", Int(1)).ToSQL(dialect.MSSQL, 1)
	assert.Equal(t, "[u].[age] = ?", sql)
}

func TestToSQLCollapsesNoneChildrenAtEmission(t *testing.T) {
	// Hand-built nodes bypass the constructors; emission still collapses.
	f := &Filter{Op: OpAnd, Children: []*Filter{None(), Equals("a", Int(1))}}
	sql, params, next := f.ToSQL(dialect.Postgres, 1)
	assert.Equal(t, `"a" = $1`, sql)
	assert.Len(t, params, 1)
	assert.Equal(t, 2, next)

	f = &Filter{Op: OpAnd, Children: []*Filter{None(), None()}}
	sql, _, next = f.ToSQL(dialect.Postgres, 1)
	assert.Empty(t, sql)
	assert.Equal(t, 1, next)
}

var placeholderRE = regexp.MustCompile(`\$(\d+)`)

func TestPlaceholderMonotonicity(t *testing.T) {
	trees := []*Filter{
		Equals("a", Int(1)),
		And(Equals("a", Int(1)), Equals("b", Int(2)), In("c", Int(3), Int(4))),
		Or(
			Not(Equals("a", Int(1))),
			And(IsNull("b"), Lte("c", Float(2.5)), In("d", String("x"), String("y"), String("z"))),
		),
		And(Contains("a", String("s")), Or(Gt("b", Int(9)), IsNotNull("c"))),
	}
	for _, start := range []int{1, 4, 10} {
		for _, f := range trees {
			sql, params, next := f.ToSQL(dialect.Postgres, start)
			require.Equal(t, start+len(params), next)
			matches := placeholderRE.FindAllStringSubmatch(sql, -1)
			require.Len(t, matches, len(params))
			for i, m := range matches {
				idx, err := strconv.Atoi(m[1])
				require.NoError(t, err)
				assert.Equal(t, start+i, idx)
			}
		}
	}
}

func TestArgs(t *testing.T) {
	args := Args([]Value{Int(1), String("x"), Null()})
	assert.Equal(t, []any{int64(1), "x", nil}, args)
	assert.Nil(t, Args(nil))
}
