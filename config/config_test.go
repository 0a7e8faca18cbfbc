package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/syssam/prax"
	"github.com/syssam/prax/dialect"
	"github.com/syssam/prax/tenant"
)

func TestReadDefaults(t *testing.T) {
	cfg, err := Read(strings.NewReader(""))
	require.NoError(t, err)

	assert.Empty(t, cfg.Database.URL)
	assert.Empty(t, cfg.Database.Dialect)

	assert.Equal(t, "migrations", cfg.Migrations.Directory)
	assert.Equal(t, "_prax_migrations", cfg.Migrations.Table)
	assert.Equal(t, "prax_shadow_", cfg.Migrations.ShadowPrefix)
	assert.False(t, cfg.Migrations.FailOnChecksumMismatch)
	assert.False(t, cfg.Migrations.AllowDataLoss)

	assert.Equal(t, "rls", cfg.Tenancy.Mode)
	assert.Equal(t, "tenant_id", cfg.Tenancy.TenantColumn)
	assert.Equal(t, "app.tenant_id", cfg.Tenancy.SessionVariable)

	assert.Equal(t, 5*time.Minute, cfg.Tenancy.Cache.TTL.Std())
	assert.Equal(t, 30*time.Second, cfg.Tenancy.Cache.NegativeTTL.Std())
	assert.Equal(t, 1024, cfg.Tenancy.Cache.MaxEntries)
	require.NotNil(t, cfg.Tenancy.Cache.RefreshThreshold)
	assert.Equal(t, 0.8, *cfg.Tenancy.Cache.RefreshThreshold)
	assert.Equal(t, 8, cfg.Tenancy.Cache.Shards)

	assert.Equal(t, "shared", cfg.Tenancy.Pools.Strategy)
	assert.Equal(t, 64, cfg.Tenancy.Pools.MaxPools)
	assert.Equal(t, 10, cfg.Tenancy.Pools.PoolSize)
	assert.Equal(t, 10*time.Minute, cfg.Tenancy.Pools.IdleTimeout.Std())
	assert.Equal(t, 5*time.Second, cfg.Tenancy.Pools.AcquireTimeout.Std())

	assert.Equal(t, "praxgen", cfg.Generator.Package)
	assert.Equal(t, "./praxgen", cfg.Generator.Output)
}

func TestReadFull(t *testing.T) {
	doc := `
database:
  url: postgres://app@db.internal/main
migrations:
  directory: db/migrations
  table: schema_history
  shadow_prefix: throwaway_
  fail_on_checksum_mismatch: true
  allow_data_loss: true
tenancy:
  mode: hybrid
  tenant_column: org_id
  session_variable: app.org_id
  cache: {ttl: 90s, max_entries: 256, negative_ttl: 10s, refresh_threshold: 0.5, shards: 4}
  pools: {strategy: per_tenant, max_pools: 16, pool_size: 4, idle_timeout: 2m, acquire_timeout: 750ms}
generator:
  package: appgen
  output: ./internal/appgen
`
	cfg, err := Read(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, dialect.Postgres, cfg.Database.Dialect, "the dialect is inferred from the url scheme")
	assert.Equal(t, "db/migrations", cfg.Migrations.Directory)
	assert.Equal(t, "schema_history", cfg.Migrations.Table)
	assert.Equal(t, "throwaway_", cfg.Migrations.ShadowPrefix)
	assert.True(t, cfg.Migrations.FailOnChecksumMismatch)
	assert.True(t, cfg.Migrations.AllowDataLoss)

	assert.Equal(t, "hybrid", cfg.Tenancy.Mode)
	mode, err := cfg.Tenancy.IsolationMode()
	require.NoError(t, err)
	assert.Equal(t, tenant.IsolationHybrid, mode)
	assert.Equal(t, "org_id", cfg.Tenancy.TenantColumn)

	assert.Equal(t, 90*time.Second, cfg.Tenancy.Cache.TTL.Std())
	assert.Equal(t, 256, cfg.Tenancy.Cache.MaxEntries)
	assert.Equal(t, 0.5, *cfg.Tenancy.Cache.RefreshThreshold)
	assert.Equal(t, 4, cfg.Tenancy.Cache.Shards)

	assert.Equal(t, "per_tenant", cfg.Tenancy.Pools.Strategy)
	assert.Equal(t, 750*time.Millisecond, cfg.Tenancy.Pools.AcquireTimeout.Std())

	assert.Equal(t, "appgen", cfg.Generator.Package)
}

func TestReadExplicitZeroThreshold(t *testing.T) {
	doc := `
tenancy:
  cache: {refresh_threshold: 0}
`
	cfg, err := Read(strings.NewReader(doc))
	require.NoError(t, err)
	require.NotNil(t, cfg.Tenancy.Cache.RefreshThreshold)
	assert.Zero(t, *cfg.Tenancy.Cache.RefreshThreshold, "an explicit zero disables refresh and is not replaced by the default")
}

func TestReadUnknownKey(t *testing.T) {
	doc := `
tenancy:
  shard_count: 4
`
	_, err := Read(strings.NewReader(doc))
	require.Error(t, err)
	assert.True(t, prax.IsConfigError(err))
	assert.Contains(t, err.Error(), "field shard_count not found")
}

func TestReadBadDuration(t *testing.T) {
	doc := `
tenancy:
  cache: {ttl: banana}
`
	_, err := Read(strings.NewReader(doc))
	require.Error(t, err)
	assert.True(t, prax.IsConfigError(err))
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestValidate(t *testing.T) {
	read := func(t *testing.T, doc string) error {
		t.Helper()
		_, err := Read(strings.NewReader(doc))
		return err
	}
	field := func(t *testing.T, err error) string {
		t.Helper()
		var ce *prax.ConfigError
		require.ErrorAs(t, err, &ce)
		return ce.Field
	}

	t.Run("UnsupportedDialect", func(t *testing.T) {
		err := read(t, "database: {url: 'x', dialect: oracle}\n")
		require.Error(t, err)
		assert.Equal(t, "database.dialect", field(t, err))
		assert.Contains(t, err.Error(), `unsupported dialect "oracle"`)
	})
	t.Run("UnknownMode", func(t *testing.T) {
		err := read(t, "tenancy: {mode: tables}\n")
		require.Error(t, err)
		assert.Equal(t, "tenancy.mode", field(t, err))
	})
	t.Run("UnknownStrategy", func(t *testing.T) {
		err := read(t, "tenancy: {pools: {strategy: sticky}}\n")
		require.Error(t, err)
		assert.Equal(t, "tenancy.pools.strategy", field(t, err))
		assert.Contains(t, err.Error(), `unknown strategy "sticky"`)
	})
	t.Run("ThresholdOutOfRange", func(t *testing.T) {
		err := read(t, "tenancy: {cache: {refresh_threshold: 1.5}}\n")
		require.Error(t, err)
		assert.Equal(t, "tenancy.cache.refresh_threshold", field(t, err))
		assert.Contains(t, err.Error(), "outside [0, 1)")
	})
	t.Run("NegativeDuration", func(t *testing.T) {
		err := read(t, "tenancy: {cache: {ttl: -5m}}\n")
		require.Error(t, err)
		assert.Equal(t, "tenancy.cache.ttl", field(t, err))
		assert.Contains(t, err.Error(), "must not be negative")
	})
	t.Run("NegativeCount", func(t *testing.T) {
		err := read(t, "tenancy: {pools: {pool_size: -1}}\n")
		require.Error(t, err)
		assert.Equal(t, "tenancy.pools.pool_size", field(t, err))
	})
}

func TestLoad(t *testing.T) {
	t.Run("File", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, DefaultFile)
		require.NoError(t, os.WriteFile(path, []byte("database: {url: mysql://root@db/app}\n"), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, dialect.MySQL, cfg.Database.Dialect)
	})
	t.Run("Missing", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.True(t, prax.IsConfigError(err))
	})
}

func TestInferDialect(t *testing.T) {
	for raw, want := range map[string]string{
		"postgres://app@db/main":        dialect.Postgres,
		"postgresql://app@db/main":      dialect.Postgres,
		"mysql://root@db/app":           dialect.MySQL,
		"sqlite://file.db":              dialect.SQLite,
		"file://data/app.db":            dialect.SQLite,
		"duckdb://analytics.db":         dialect.DuckDB,
		"sqlserver://sa@db":             dialect.MSSQL,
		"mssql://sa@db":                 dialect.MSSQL,
		"mongodb://db:27017":            dialect.Mongo,
		"mongodb+srv://cluster.example": dialect.Mongo,
		"bogus://x":                     "",
		"no-scheme-at-all":              "",
		"":                              "",
	} {
		assert.Equal(t, want, InferDialect(raw), "url %q", raw)
	}
}

func TestExplicitDialectWins(t *testing.T) {
	doc := "database: {url: postgres://app@db/main, dialect: mysql}\n"
	cfg, err := Read(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, dialect.MySQL, cfg.Database.Dialect)
}

func TestPoolStrategy(t *testing.T) {
	t.Run("Shared", func(t *testing.T) {
		p := PoolsConfig{Strategy: "shared", PoolSize: 7}
		s, err := p.PoolStrategy()
		require.NoError(t, err)
		assert.Equal(t, tenant.StrategyShared, s.Kind)
		assert.Equal(t, 7, s.PoolSize)
	})
	t.Run("PerTenant", func(t *testing.T) {
		p := PoolsConfig{Strategy: "per_tenant", MaxPools: 16, PoolSize: 4}
		s, err := p.PoolStrategy()
		require.NoError(t, err)
		assert.Equal(t, tenant.StrategyPerTenant, s.Kind)
		assert.Equal(t, 16, s.MaxPools)
		assert.Equal(t, 4, s.PoolSize)
	})
	t.Run("PerDatabase", func(t *testing.T) {
		p := PoolsConfig{Strategy: "per_database", MaxPools: 3, PoolSize: 2}
		s, err := p.PoolStrategy()
		require.NoError(t, err)
		assert.Equal(t, tenant.StrategyPerDatabase, s.Kind)
	})
}

func TestCacheOptions(t *testing.T) {
	cfg, err := Read(strings.NewReader(""))
	require.NoError(t, err)
	opts := cfg.Tenancy.Cache.CacheOptions()
	assert.Len(t, opts, 4)
}

func TestDurationMarshalYAML(t *testing.T) {
	out, err := yaml.Marshal(struct {
		TTL Duration `yaml:"ttl"`
	}{TTL: Duration(90 * time.Second)})
	require.NoError(t, err)
	assert.Equal(t, "ttl: 1m30s\n", string(out))
}
