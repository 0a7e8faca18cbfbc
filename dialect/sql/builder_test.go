package sql

import (
	"testing"

	"github.com/syssam/prax/dialect"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectorBasic(t *testing.T) {
	t.Run("Postgres", func(t *testing.T) {
		query, args := Dialect(dialect.Postgres).
			Select("id", "name").
			From(Table("users")).
			Where(EQ("status", "active")).
			Query()
		assert.Equal(t, `SELECT "id", "name" FROM "users" WHERE "status" = $1`, query)
		assert.Equal(t, []any{"active"}, args)
	})
	t.Run("MySQL", func(t *testing.T) {
		query, args := Dialect(dialect.MySQL).
			Select("id", "name").
			From(Table("users")).
			Where(EQ("status", "active")).
			Query()
		assert.Equal(t, "SELECT `id`, `name` FROM `users` WHERE `status` = ?", query)
		assert.Equal(t, []any{"active"}, args)
	})
	t.Run("MSSQL", func(t *testing.T) {
		query, args := Dialect(dialect.MSSQL).
			Select("id", "name").
			From(Table("users")).
			Where(EQ("status", "active")).
			Query()
		assert.Equal(t, "SELECT [id], [name] FROM [users] WHERE [status] = ?", query)
		assert.Equal(t, []any{"active"}, args)
	})
	t.Run("SelectAll", func(t *testing.T) {
		query, args := Dialect(dialect.SQLite).Select().From(Table("users")).Query()
		assert.Equal(t, `SELECT * FROM "users"`, query)
		assert.Empty(t, args)
	})
}

func TestSelectorJoin(t *testing.T) {
	users := Table("users").As("u")
	posts := Table("posts").As("p")
	query, args := Dialect(dialect.Postgres).
		Select("u.id", "p.title").
		From(users).
		Join(posts).On(users.C("id"), posts.C("user_id")).
		Where(EQ("u.active", true)).
		OrderBy("u.created_at DESC").
		Limit(10).
		Query()
	assert.Equal(t,
		`SELECT "u"."id", "p"."title" FROM "users" AS "u" JOIN "posts" AS "p" `+
			`ON "u"."id" = "p"."user_id" WHERE "u"."active" = $1 `+
			`ORDER BY "u"."created_at" DESC LIMIT 10`,
		query,
	)
	assert.Equal(t, []any{true}, args)
}

func TestSelectorLeftJoin(t *testing.T) {
	orders := Table("orders").As("o")
	items := Table("items").As("i")
	query, _ := Dialect(dialect.MySQL).
		Select("o.id").
		From(orders).
		LeftJoin(items).On(orders.C("id"), items.C("order_id")).
		Query()
	assert.Equal(t, "SELECT `o`.`id` FROM `orders` AS `o` LEFT JOIN `items` AS `i` ON `o`.`id` = `i`.`order_id`", query)
}

func TestSelectorCompoundPredicate(t *testing.T) {
	query, args := Dialect(dialect.Postgres).
		Select("*").
		From(Table("users")).
		Where(
			And(
				EQ("status", "active"),
				Or(
					GT("age", 18),
					EQ("role", "admin"),
				),
				In("department", "eng", "product"),
				NotNull("email"),
			),
		).
		Query()
	assert.Equal(t,
		`SELECT * FROM "users" WHERE ("status" = $1) AND `+
			`(("age" > $2) OR ("role" = $3)) AND `+
			`("department" IN ($4, $5)) AND ("email" IS NOT NULL)`,
		query,
	)
	assert.Equal(t, []any{"active", 18, "admin", "eng", "product"}, args)
}

func TestSelectorWhereMerges(t *testing.T) {
	query, args := Dialect(dialect.Postgres).
		Select("id").
		From(Table("t")).
		Where(EQ("a", 1)).
		Where(EQ("b", 2)).
		Query()
	assert.Equal(t, `SELECT "id" FROM "t" WHERE ("a" = $1) AND ("b" = $2)`, query)
	assert.Equal(t, []any{1, 2}, args)
}

func TestSelectorGroupHaving(t *testing.T) {
	query, args := Dialect(dialect.Postgres).
		Select("role", "COUNT(*)").
		From(Table("users")).
		GroupBy("role").
		Having(GT("COUNT(*)", 5)).
		Query()
	assert.Equal(t, `SELECT "role", COUNT(*) FROM "users" GROUP BY "role" HAVING COUNT(*) > $1`, query)
	assert.Equal(t, []any{5}, args)
}

func TestSelectorDistinct(t *testing.T) {
	query, _ := Dialect(dialect.Postgres).
		Select("email").
		Distinct().
		From(Table("users")).
		Query()
	assert.Equal(t, `SELECT DISTINCT "email" FROM "users"`, query)
}

func TestSelectorPagination(t *testing.T) {
	t.Run("Postgres", func(t *testing.T) {
		query, _ := Dialect(dialect.Postgres).
			Select("id").
			From(Table("users")).
			OrderBy("id").
			Limit(10).
			Offset(20).
			Query()
		assert.Equal(t, `SELECT "id" FROM "users" ORDER BY "id" LIMIT 10 OFFSET 20`, query)
	})
	t.Run("MSSQL", func(t *testing.T) {
		query, _ := Dialect(dialect.MSSQL).
			Select("id").
			From(Table("users")).
			OrderBy("id").
			Limit(10).
			Offset(20).
			Query()
		assert.Equal(t, "SELECT [id] FROM [users] ORDER BY [id] OFFSET 20 ROWS FETCH NEXT 10 ROWS ONLY", query)
	})
	t.Run("MSSQLWithoutOrder", func(t *testing.T) {
		query, _ := Dialect(dialect.MSSQL).
			Select("id").
			From(Table("users")).
			Limit(5).
			Query()
		assert.Equal(t, "SELECT [id] FROM [users] ORDER BY (SELECT NULL) OFFSET 0 ROWS FETCH NEXT 5 ROWS ONLY", query)
	})
}

func TestSelectorLocking(t *testing.T) {
	query, _ := Dialect(dialect.Postgres).
		Select("id").
		From(Table("users")).
		Where(EQ("id", 1)).
		ForUpdate().
		Query()
	assert.Equal(t, `SELECT "id" FROM "users" WHERE "id" = $1 FOR UPDATE`, query)

	// SQLite locks the whole database; the clause is dropped.
	query, _ = Dialect(dialect.SQLite).
		Select("id").
		From(Table("users")).
		ForUpdate().
		Query()
	assert.Equal(t, `SELECT "id" FROM "users"`, query)
}

func TestSelectorC(t *testing.T) {
	s := Dialect(dialect.Postgres).Select().From(Table("users").As("u"))
	assert.Equal(t, `"u"."id"`, s.C("id"))

	s = Dialect(dialect.Postgres).Select().From(Table("users"))
	assert.Equal(t, `"users"."id"`, s.C("id"))

	// Qualified or quoted input passes through.
	assert.Equal(t, "p.title", s.C("p.title"))
	assert.Equal(t, `"users"."id"`, s.C(`"users"."id"`))
}

func TestPredicates(t *testing.T) {
	render := func(p *Predicate) (string, []any) {
		p.SetDialect(dialect.Postgres)
		p.SetTotal(0)
		return p.Query()
	}
	t.Run("Comparisons", func(t *testing.T) {
		for _, tt := range []struct {
			p    *Predicate
			want string
		}{
			{EQ("a", 1), `"a" = $1`},
			{NEQ("a", 1), `"a" <> $1`},
			{GT("a", 1), `"a" > $1`},
			{GTE("a", 1), `"a" >= $1`},
			{LT("a", 1), `"a" < $1`},
			{LTE("a", 1), `"a" <= $1`},
		} {
			query, args := render(tt.p)
			assert.Equal(t, tt.want, query)
			assert.Equal(t, []any{1}, args)
		}
	})
	t.Run("Null", func(t *testing.T) {
		query, args := render(IsNull("deleted_at"))
		assert.Equal(t, `"deleted_at" IS NULL`, query)
		assert.Empty(t, args)
		query, _ = render(NotNull("email"))
		assert.Equal(t, `"email" IS NOT NULL`, query)
	})
	t.Run("Strings", func(t *testing.T) {
		query, args := render(Contains("name", "jo"))
		assert.Equal(t, `"name" LIKE $1`, query)
		assert.Equal(t, []any{"%jo%"}, args)

		query, args = render(HasPrefix("name", "jo"))
		assert.Equal(t, `"name" LIKE $1`, query)
		assert.Equal(t, []any{"jo%"}, args)

		query, args = render(HasSuffix("name", "son"))
		assert.Equal(t, `"name" LIKE $1`, query)
		assert.Equal(t, []any{"%son"}, args)

		query, args = render(EqualFold("name", "John"))
		assert.Equal(t, `LOWER("name") = $1`, query)
		assert.Equal(t, []any{"john"}, args)

		query, args = render(ContainsFold("name", "Jo"))
		assert.Equal(t, `LOWER("name") LIKE $1`, query)
		assert.Equal(t, []any{"%jo%"}, args)
	})
	t.Run("Not", func(t *testing.T) {
		query, args := render(Not(EQ("deleted", true)))
		assert.Equal(t, `NOT ("deleted" = $1)`, query)
		assert.Equal(t, []any{true}, args)
	})
	t.Run("EmptyIn", func(t *testing.T) {
		query, args := render(In("tags"))
		assert.Equal(t, "FALSE", query)
		assert.Empty(t, args)
		query, _ = render(NotIn("tags"))
		assert.Equal(t, "TRUE", query)
	})
	t.Run("EmptyInMSSQL", func(t *testing.T) {
		p := In("tags")
		p.SetDialect(dialect.MSSQL)
		query, _ := p.Query()
		assert.Equal(t, "1 = 0", query)
	})
	t.Run("ColumnsEQ", func(t *testing.T) {
		query, args := render(ColumnsEQ("a.id", "b.a_id"))
		assert.Equal(t, `"a"."id" = "b"."a_id"`, query)
		assert.Empty(t, args)
	})
}

func TestPredicateReuse(t *testing.T) {
	// One predicate renders under several dialects with fresh numbering.
	p := And(EQ("name", "x"), GT("age", 30))

	p.SetDialect(dialect.Postgres)
	p.SetTotal(0)
	query, args := p.Query()
	assert.Equal(t, `("name" = $1) AND ("age" > $2)`, query)
	assert.Equal(t, []any{"x", 30}, args)

	p.SetDialect(dialect.MySQL)
	p.SetTotal(0)
	query, args = p.Query()
	assert.Equal(t, "(`name` = ?) AND (`age` > ?)", query)
	assert.Equal(t, []any{"x", 30}, args)

	// Seeded counters continue numbering.
	p.SetDialect(dialect.Postgres)
	p.SetTotal(3)
	query, _ = p.Query()
	assert.Equal(t, `("name" = $4) AND ("age" > $5)`, query)
}

func TestInsertBuilder(t *testing.T) {
	t.Run("Postgres", func(t *testing.T) {
		query, args := Dialect(dialect.Postgres).
			Insert("users").
			Columns("name", "email").
			Values("a", "a@x").
			Values("b", "b@x").
			Returning("id").
			Query()
		assert.Equal(t, `INSERT INTO "users" ("name", "email") VALUES ($1, $2), ($3, $4) RETURNING "id"`, query)
		assert.Equal(t, []any{"a", "a@x", "b", "b@x"}, args)
	})
	t.Run("MySQLIgnoresReturning", func(t *testing.T) {
		query, _ := Dialect(dialect.MySQL).
			Insert("users").
			Columns("name").
			Values("a").
			Returning("id").
			Query()
		assert.Equal(t, "INSERT INTO `users` (`name`) VALUES (?)", query)
	})
	t.Run("MSSQLOutput", func(t *testing.T) {
		query, _ := Dialect(dialect.MSSQL).
			Insert("users").
			Columns("name").
			Values("a").
			Returning("id").
			Query()
		assert.Equal(t, "INSERT INTO [users] ([name]) OUTPUT INSERTED.[id] VALUES (?)", query)
	})
	t.Run("Defaults", func(t *testing.T) {
		query, args := Dialect(dialect.Postgres).Insert("users").Default().Returning("id").Query()
		assert.Equal(t, `INSERT INTO "users" DEFAULT VALUES RETURNING "id"`, query)
		assert.Empty(t, args)

		query, _ = Dialect(dialect.MySQL).Insert("users").Default().Query()
		assert.Equal(t, "INSERT INTO `users` () VALUES ()", query)
	})
	t.Run("RowWidthMismatch", func(t *testing.T) {
		i := Dialect(dialect.Postgres).Insert("users").Columns("a", "b").Values(1)
		_, _ = i.Query()
		require.Error(t, i.Err())
	})
}

func TestInsertConflict(t *testing.T) {
	t.Run("DoNothingPostgres", func(t *testing.T) {
		query, _ := Dialect(dialect.Postgres).
			Insert("post_tags").
			Columns("post_id", "tag_id").
			Values(1, 2).
			OnConflictDoNothing("post_id", "tag_id").
			Query()
		assert.Equal(t, `INSERT INTO "post_tags" ("post_id", "tag_id") VALUES ($1, $2) ON CONFLICT ("post_id", "tag_id") DO NOTHING`, query)
	})
	t.Run("DoNothingNoTargets", func(t *testing.T) {
		query, _ := Dialect(dialect.SQLite).
			Insert("post_tags").
			Columns("post_id").
			Values(1).
			OnConflictDoNothing().
			Query()
		assert.Equal(t, `INSERT INTO "post_tags" ("post_id") VALUES (?) ON CONFLICT DO NOTHING`, query)
	})
	t.Run("DoNothingMySQL", func(t *testing.T) {
		query, _ := Dialect(dialect.MySQL).
			Insert("post_tags").
			Columns("post_id").
			Values(1).
			OnConflictDoNothing().
			Query()
		assert.Equal(t, "INSERT IGNORE INTO `post_tags` (`post_id`) VALUES (?)", query)
	})
	t.Run("UpsertPostgres", func(t *testing.T) {
		query, args := Dialect(dialect.Postgres).
			Insert("users").
			Columns("email", "name").
			Values("a@x", "A").
			OnConflictUpdate([]string{"email"}, "name").
			Query()
		assert.Equal(t, `INSERT INTO "users" ("email", "name") VALUES ($1, $2) ON CONFLICT ("email") DO UPDATE SET "name" = EXCLUDED."name"`, query)
		assert.Equal(t, []any{"a@x", "A"}, args)
	})
	t.Run("UpsertMySQL", func(t *testing.T) {
		query, _ := Dialect(dialect.MySQL).
			Insert("users").
			Columns("email", "name").
			Values("a@x", "A").
			OnConflictUpdate([]string{"email"}, "name").
			Query()
		assert.Equal(t, "INSERT INTO `users` (`email`, `name`) VALUES (?, ?) ON DUPLICATE KEY UPDATE `name` = VALUES(`name`)", query)
	})
	t.Run("SetPostgres", func(t *testing.T) {
		query, args := Dialect(dialect.Postgres).
			Insert("users").
			Columns("email", "name").
			Values("a@x", "A").
			OnConflictSet([]string{"email"}, "login_count", 7).
			Query()
		assert.Equal(t, `INSERT INTO "users" ("email", "name") VALUES ($1, $2) ON CONFLICT ("email") DO UPDATE SET "login_count" = $3`, query)
		assert.Equal(t, []any{"a@x", "A", 7}, args)
	})
	t.Run("SetMySQL", func(t *testing.T) {
		query, args := Dialect(dialect.MySQL).
			Insert("users").
			Columns("email").
			Values("a@x").
			OnConflictSet([]string{"email"}, "login_count", 7).
			OnConflictSet([]string{"email"}, "active", true).
			Query()
		assert.Equal(t, "INSERT INTO `users` (`email`) VALUES (?) ON DUPLICATE KEY UPDATE `login_count` = ?, `active` = ?", query)
		assert.Equal(t, []any{"a@x", 7, true}, args)
	})
	t.Run("UpdateThenSet", func(t *testing.T) {
		query, args := Dialect(dialect.SQLite).
			Insert("users").
			Columns("email", "name").
			Values("a@x", "A").
			OnConflictUpdate([]string{"email"}, "name").
			OnConflictSet([]string{"email"}, "login_count", 7).
			Query()
		assert.Equal(t, `INSERT INTO "users" ("email", "name") VALUES (?, ?) ON CONFLICT ("email") DO UPDATE SET "name" = EXCLUDED."name", "login_count" = ?`, query)
		assert.Equal(t, []any{"a@x", "A", 7}, args)
	})
	t.Run("SetNewTargetsResets", func(t *testing.T) {
		query, _ := Dialect(dialect.Postgres).
			Insert("users").
			Columns("email").
			Values("a@x").
			OnConflictSet([]string{"email"}, "login_count", 7).
			OnConflictSet([]string{"id"}, "active", true).
			Query()
		assert.Equal(t, `INSERT INTO "users" ("email") VALUES ($1) ON CONFLICT ("id") DO UPDATE SET "active" = $2`, query)
	})
	t.Run("UnsupportedMSSQL", func(t *testing.T) {
		i := Dialect(dialect.MSSQL).
			Insert("users").
			Columns("email").
			Values("a@x").
			OnConflictDoNothing("email")
		_, _ = i.Query()
		require.Error(t, i.Err())
	})
}

func TestUpdateBuilder(t *testing.T) {
	t.Run("Postgres", func(t *testing.T) {
		query, args := Dialect(dialect.Postgres).
			Update("users").
			Set("name", "X").
			Set("age", 30).
			Where(EQ("id", 1)).
			Query()
		assert.Equal(t, `UPDATE "users" SET "name" = $1, "age" = $2 WHERE "id" = $3`, query)
		assert.Equal(t, []any{"X", 30, 1}, args)
	})
	t.Run("SetNullAndRaw", func(t *testing.T) {
		query, args := Dialect(dialect.Postgres).
			Update("users").
			SetNull("deleted_at").
			Set("updated_at", Raw("CURRENT_TIMESTAMP")).
			Where(EQ("id", 7)).
			Query()
		assert.Equal(t, `UPDATE "users" SET "deleted_at" = NULL, "updated_at" = CURRENT_TIMESTAMP WHERE "id" = $1`, query)
		assert.Equal(t, []any{7}, args)
	})
	t.Run("Returning", func(t *testing.T) {
		query, _ := Dialect(dialect.Postgres).
			Update("users").
			Set("active", false).
			Where(EQ("id", 1)).
			Returning("id", "active").
			Query()
		assert.Equal(t, `UPDATE "users" SET "active" = $1 WHERE "id" = $2 RETURNING "id", "active"`, query)
	})
	t.Run("NoAssignments", func(t *testing.T) {
		u := Dialect(dialect.Postgres).Update("users").Where(EQ("id", 1))
		assert.True(t, u.Empty())
		_, _ = u.Query()
		require.Error(t, u.Err())
	})
}

func TestDeleteBuilder(t *testing.T) {
	query, args := Dialect(dialect.Postgres).
		Delete("users").
		Where(And(EQ("status", "deleted"), LT("deleted_at", "2023-01-01"))).
		Query()
	assert.Equal(t, `DELETE FROM "users" WHERE ("status" = $1) AND ("deleted_at" < $2)`, query)
	assert.Equal(t, []any{"deleted", "2023-01-01"}, args)
}

func TestExprPThreading(t *testing.T) {
	// A fragment rendered elsewhere keeps its numbering: the update binds
	// $1 for SET, so the fragment was rendered with start index 2.
	u := Dialect(dialect.Postgres).
		Update("users").
		Set("active", false).
		Where(ExprP(`"tenant_id" = $2 AND "age" > $3`, "t1", 21))
	query, args := u.Query()
	assert.Equal(t, `UPDATE "users" SET "active" = $1 WHERE "tenant_id" = $2 AND "age" > $3`, query)
	assert.Equal(t, []any{false, "t1", 21}, args)
	require.NoError(t, u.Err())
}

func TestSelectorRendersTwice(t *testing.T) {
	s := Dialect(dialect.Postgres).
		Select("id").
		From(Table("users")).
		Where(EQ("name", "x"))
	q1, a1 := s.Query()
	q2, a2 := s.Query()
	assert.Equal(t, q1, q2)
	assert.Equal(t, a1, a2)
}

func TestOnWithoutJoin(t *testing.T) {
	s := Dialect(dialect.Postgres).Select("id").From(Table("users")).On("a", "b")
	_, _ = s.Query()
	require.Error(t, s.Err())
}
