package sql

import (
	"fmt"
	"testing"

	"github.com/syssam/prax/dialect"
)

var benchDialects = []string{dialect.Postgres, dialect.MySQL, dialect.SQLite, dialect.DuckDB, dialect.MSSQL}

func BenchmarkSelectBuilder(b *testing.B) {
	b.Run("Simple", func(b *testing.B) {
		for _, d := range benchDialects {
			b.Run(d, func(b *testing.B) {
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					Dialect(d).Select("id", "email", "created_at").
						From(Table("users")).
						Where(EQ("tenant_id", "acme")).
						Query()
				}
			})
		}
	})

	b.Run("Joined", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			users := Table("users").As("u")
			posts := Table("posts").As("p")
			Dialect(dialect.Postgres).
				Select("u.id", "u.email", "p.title").
				From(users).
				Join(posts).On(users.C("id"), posts.C("author_id")).
				Where(And(EQ("u.tenant_id", "acme"), NotNull("p.published_at"))).
				OrderBy("p.published_at").
				Limit(20).
				Query()
		}
	})

	b.Run("NestedPredicates", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			Dialect(dialect.Postgres).Select("*").
				From(Table("events")).
				Where(And(
					EQ("tenant_id", "acme"),
					Or(
						And(EQ("kind", "deploy"), GTE("severity", 3)),
						In("kind", "alert", "incident", "rollback"),
					),
					Not(IsNull("actor")),
					HasPrefix("resource", "svc/"),
				)).
				OrderBy("occurred_at", "id").
				Limit(500).
				Offset(1000).
				Query()
		}
	})
}

func BenchmarkInsertBuilder(b *testing.B) {
	b.Run("Defaults", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			Dialect(dialect.Postgres).Insert("audit_log").Default().Returning("id").Query()
		}
	})

	b.Run("WideRow", func(b *testing.B) {
		for _, d := range benchDialects {
			b.Run(d, func(b *testing.B) {
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					Dialect(d).Insert("events").
						Columns("tenant_id", "kind", "actor", "resource", "severity", "payload", "occurred_at").
						Values("acme", "deploy", "ci", "svc/api", 2, `{"sha":"d34db33f"}`, "2026-08-23T10:00:00Z").
						Returning("id").
						Query()
				}
			})
		}
	})
}

func BenchmarkUpdateBuilder(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Dialect(dialect.Postgres).Update("projects").
			Set("name", "edge").
			Set("region", "eu-west").
			Set("updated_at", "2026-08-23T10:00:00Z").
			Where(And(EQ("tenant_id", "acme"), In("id", 1, 2, 3))).
			Query()
	}
}

func BenchmarkDeleteBuilder(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Dialect(dialect.Postgres).Delete("sessions").
			Where(And(
				EQ("tenant_id", "acme"),
				LT("expires_at", "2026-01-01T00:00:00Z"),
				NotIn("kind", "service", "system"),
			)).
			Query()
	}
}

func BenchmarkPredicateTree(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = And(
			EQ("tenant_id", "acme"),
			Or(GT("retries", 3), EQ("state", "dead")),
			In("queue", "default", "mail", "webhooks"),
			NotNull("locked_by"),
			ContainsFold("last_error", "timeout"),
		)
	}
}

func BenchmarkFragment(b *testing.B) {
	b.Run("Build", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			NewFragment("SELECT count(*) FROM events WHERE tenant_id = ").
				Bind("acme").
				Push(" AND severity >= ").
				Bind(3).
				BuildFor(dialect.Postgres)
		}
	})

	b.Run("Rebind", func(b *testing.B) {
		f := NewFragment("SELECT * FROM events WHERE tenant_id = ").
			Bind("acme").
			Push(" AND kind = ").
			Bind("deploy")
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			f.BuildFor(dialect.MySQL)
		}
	})
}

func BenchmarkTemplates(b *testing.B) {
	b.Run("Lookup", func(b *testing.B) {
		tpl := NewTemplates(64)
		tpl.Register("events.by_tenant", "SELECT * FROM events WHERE tenant_id = $1", 1)
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, ok := tpl.Lookup("events.by_tenant"); !ok {
				b.Fatal("template missing")
			}
		}
	})

	b.Run("RegisterEvicting", func(b *testing.B) {
		tpl := NewTemplates(16)
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			name := fmt.Sprintf("q%d", i%64)
			tpl.Register(name, "SELECT 1", 0)
		}
	})
}
