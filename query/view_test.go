package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/prax"
	"github.com/syssam/prax/dialect"
	"github.com/syssam/prax/filter"
	"github.com/syssam/prax/schema"
)

func statsView() *ViewInfo {
	return &ViewInfo{
		Name:         "ActiveUsers",
		Table:        "active_users",
		Columns:      []string{"id", "email"},
		Materialized: true,
	}
}

func TestViewFromSchema(t *testing.T) {
	v := schema.NewView("MonthlyStats", stringField("month"), intField("total")).
		WithAttr(schema.NewAttribute(schema.AttrMaterialized))
	s := schema.New(schema.NewModel("User", uuidField("id")), v)
	require.NoError(t, schema.Validate(s))

	info, ok := ViewFromSchema(s, "MonthlyStats")
	require.True(t, ok)
	assert.Equal(t, "MonthlyStats", info.Name)
	assert.Equal(t, "monthly_stats", info.Table)
	assert.Equal(t, []string{"month", "total"}, info.Columns)
	assert.True(t, info.Materialized)

	_, ok = ViewFromSchema(s, "Missing")
	assert.False(t, ok)
}

func TestViewRead(t *testing.T) {
	ctx := context.Background()

	t.Run("FindMany", func(t *testing.T) {
		eng := &fakeEngine{}
		v := NewView(statsView(), eng, dialect.Postgres)

		_, err := v.FindMany().
			Where(filter.Equals("email", filter.String("a@b"))).
			OrderBy("email", Asc).
			Exec(ctx)
		require.NoError(t, err)
		assert.Equal(t, `SELECT * FROM "active_users" WHERE "email" = $1 ORDER BY "email" ASC`, eng.lastCall(t).query)
	})

	t.Run("UnknownColumn", func(t *testing.T) {
		eng := &fakeEngine{}
		v := NewView(statsView(), eng, dialect.Postgres)

		_, err := v.FindMany().Where(filter.Equals("missing", filter.Int(1))).Exec(ctx)
		require.Error(t, err)
		assert.ErrorContains(t, err, `unknown column "missing" on model ActiveUsers`)
	})

	t.Run("Count", func(t *testing.T) {
		eng := &fakeEngine{count: 9}
		v := NewView(statsView(), eng, dialect.Postgres)

		n, err := v.Count().Exec(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(9), n)
		assert.Equal(t, `SELECT COUNT(*) FROM "active_users"`, eng.lastCall(t).query)
	})
}

func TestViewRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("PostgresNative", func(t *testing.T) {
		eng := &fakeEngine{}
		v := NewView(statsView(), eng, dialect.Postgres)

		require.NoError(t, v.Refresh(ctx, false))
		c := eng.lastCall(t)
		assert.Equal(t, "ExecRaw", c.method)
		assert.Equal(t, `REFRESH MATERIALIZED VIEW "active_users"`, c.query)
	})

	t.Run("PostgresConcurrently", func(t *testing.T) {
		eng := &fakeEngine{}
		v := NewView(statsView(), eng, dialect.Postgres)

		require.NoError(t, v.Refresh(ctx, true))
		assert.Equal(t, `REFRESH MATERIALIZED VIEW CONCURRENTLY "active_users"`, eng.lastCall(t).query)
	})

	t.Run("DuckDBIgnoresConcurrent", func(t *testing.T) {
		eng := &fakeEngine{}
		v := NewView(statsView(), eng, dialect.DuckDB)

		require.NoError(t, v.Refresh(ctx, true))
		assert.Equal(t, `REFRESH MATERIALIZED VIEW "active_users"`, eng.lastCall(t).query)
	})

	t.Run("EngineHook", func(t *testing.T) {
		eng := &fakeEngine{}
		v := NewView(statsView(), eng, dialect.MySQL)

		require.NoError(t, v.Refresh(ctx, true))
		c := eng.lastCall(t)
		assert.Equal(t, "RefreshMaterializedView", c.method)
		assert.Equal(t, "active_users", c.query)
	})

	t.Run("NotMaterialized", func(t *testing.T) {
		eng := &fakeEngine{}
		info := statsView()
		info.Materialized = false
		v := NewView(info, eng, dialect.Postgres)

		err := v.Refresh(ctx, false)
		require.Error(t, err)
		assert.True(t, prax.IsQueryError(err))
		assert.ErrorContains(t, err, "view is not materialized")
		assert.Empty(t, eng.calls)
	})

	t.Run("RefreshError", func(t *testing.T) {
		eng := &fakeEngine{err: assert.AnError}
		v := NewView(statsView(), eng, dialect.Postgres)

		err := v.Refresh(ctx, false)
		require.Error(t, err)
		assert.True(t, prax.IsQueryError(err))
	})
}
