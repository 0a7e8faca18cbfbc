// Package config loads and validates the prax.yaml project file.
// Decoding is strict: unknown keys fail instead of being dropped, and
// defaults are applied after decoding so an absent section behaves the
// same as an empty one.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/syssam/prax"
	"github.com/syssam/prax/dialect"
	"github.com/syssam/prax/migrate"
	"github.com/syssam/prax/tenant"
)

// DefaultFile is the file name Load conventionally reads.
const DefaultFile = "prax.yaml"

// Duration decodes "5m" style values through time.ParseDuration.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config is the root of a prax.yaml document.
type Config struct {
	Database   Database   `yaml:"database"`
	Migrations Migrations `yaml:"migrations"`
	Tenancy    Tenancy    `yaml:"tenancy"`
	Generator  Generator  `yaml:"generator"`
}

// Database names the target database.
type Database struct {
	URL string `yaml:"url"`
	// Dialect is optional; when empty it is inferred from the URL scheme.
	Dialect string `yaml:"dialect"`
}

// Migrations configures the migration engine.
type Migrations struct {
	Directory              string `yaml:"directory"`
	Table                  string `yaml:"table"`
	ShadowPrefix           string `yaml:"shadow_prefix"`
	FailOnChecksumMismatch bool   `yaml:"fail_on_checksum_mismatch"`
	AllowDataLoss          bool   `yaml:"allow_data_loss"`
}

// Tenancy configures the multi-tenant runtime.
type Tenancy struct {
	Mode            string      `yaml:"mode"`
	TenantColumn    string      `yaml:"tenant_column"`
	SessionVariable string      `yaml:"session_variable"`
	Cache           CacheConfig `yaml:"cache"`
	Pools           PoolsConfig `yaml:"pools"`
}

// CacheConfig configures the tenant context cache.
type CacheConfig struct {
	TTL         Duration `yaml:"ttl"`
	MaxEntries  int      `yaml:"max_entries"`
	NegativeTTL Duration `yaml:"negative_ttl"`
	// RefreshThreshold is a pointer so an explicit 0 (refresh disabled)
	// survives default application.
	RefreshThreshold *float64 `yaml:"refresh_threshold"`
	Shards           int      `yaml:"shards"`
}

// PoolsConfig configures the tenant pool manager.
type PoolsConfig struct {
	Strategy       string   `yaml:"strategy"`
	MaxPools       int      `yaml:"max_pools"`
	PoolSize       int      `yaml:"pool_size"`
	IdleTimeout    Duration `yaml:"idle_timeout"`
	AcquireTimeout Duration `yaml:"acquire_timeout"`
}

// Generator configures code generation output.
type Generator struct {
	Package string `yaml:"package"`
	Output  string `yaml:"output"`
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, prax.NewConfigError("", err)
	}
	defer f.Close()
	return Read(f)
}

// Read decodes and validates a configuration document. An empty
// document yields the defaults.
func Read(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var cfg Config
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, prax.NewConfigError("", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database.Dialect == "" {
		c.Database.Dialect = InferDialect(c.Database.URL)
	}
	if c.Migrations.Directory == "" {
		c.Migrations.Directory = "migrations"
	}
	if c.Migrations.Table == "" {
		c.Migrations.Table = migrate.DefaultHistoryTable
	}
	if c.Migrations.ShadowPrefix == "" {
		c.Migrations.ShadowPrefix = migrate.DefaultShadowPrefix
	}
	if c.Tenancy.Mode == "" {
		c.Tenancy.Mode = tenant.IsolationRLS.String()
	}
	if c.Tenancy.TenantColumn == "" {
		c.Tenancy.TenantColumn = "tenant_id"
	}
	if c.Tenancy.SessionVariable == "" {
		c.Tenancy.SessionVariable = "app.tenant_id"
	}
	cc := &c.Tenancy.Cache
	if cc.TTL == 0 {
		cc.TTL = Duration(tenant.DefaultTTL)
	}
	if cc.NegativeTTL == 0 {
		cc.NegativeTTL = Duration(tenant.DefaultNegativeTTL)
	}
	if cc.MaxEntries == 0 {
		cc.MaxEntries = tenant.DefaultMaxEntries
	}
	if cc.RefreshThreshold == nil {
		f := float64(tenant.DefaultRefreshThreshold)
		cc.RefreshThreshold = &f
	}
	if cc.Shards == 0 {
		cc.Shards = tenant.DefaultShards
	}
	pc := &c.Tenancy.Pools
	if pc.Strategy == "" {
		pc.Strategy = tenant.StrategyShared.String()
	}
	if pc.MaxPools == 0 {
		pc.MaxPools = tenant.DefaultMaxPools
	}
	if pc.PoolSize == 0 {
		pc.PoolSize = tenant.DefaultPoolSize
	}
	if pc.IdleTimeout == 0 {
		pc.IdleTimeout = Duration(tenant.DefaultIdleTimeout)
	}
	if pc.AcquireTimeout == 0 {
		pc.AcquireTimeout = Duration(tenant.DefaultAcquireTimeout)
	}
	if c.Generator.Package == "" {
		c.Generator.Package = "praxgen"
	}
	if c.Generator.Output == "" {
		c.Generator.Output = "./praxgen"
	}
}

// Validate checks enum fields and value ranges. It expects defaults to
// have been applied.
func (c *Config) Validate() error {
	if c.Database.Dialect != "" {
		if err := dialect.Validate(c.Database.Dialect); err != nil {
			return prax.NewConfigError("database.dialect", err)
		}
	}
	if _, err := tenant.ParseIsolationMode(c.Tenancy.Mode); err != nil {
		return prax.NewConfigError("tenancy.mode", err)
	}
	if _, err := c.Tenancy.Pools.PoolStrategy(); err != nil {
		return err
	}
	if t := c.Tenancy.Cache.RefreshThreshold; t != nil && (*t < 0 || *t >= 1) {
		return prax.NewConfigError("tenancy.cache.refresh_threshold", fmt.Errorf("%v is outside [0, 1)", *t))
	}
	for _, v := range []struct {
		field string
		d     Duration
	}{
		{"tenancy.cache.ttl", c.Tenancy.Cache.TTL},
		{"tenancy.cache.negative_ttl", c.Tenancy.Cache.NegativeTTL},
		{"tenancy.pools.idle_timeout", c.Tenancy.Pools.IdleTimeout},
		{"tenancy.pools.acquire_timeout", c.Tenancy.Pools.AcquireTimeout},
	} {
		if v.d < 0 {
			return prax.NewConfigError(v.field, errors.New("must not be negative"))
		}
	}
	for _, v := range []struct {
		field string
		n     int
	}{
		{"tenancy.cache.max_entries", c.Tenancy.Cache.MaxEntries},
		{"tenancy.cache.shards", c.Tenancy.Cache.Shards},
		{"tenancy.pools.max_pools", c.Tenancy.Pools.MaxPools},
		{"tenancy.pools.pool_size", c.Tenancy.Pools.PoolSize},
	} {
		if v.n < 0 {
			return prax.NewConfigError(v.field, errors.New("must not be negative"))
		}
	}
	return nil
}

// IsolationMode parses the tenancy mode field.
func (t Tenancy) IsolationMode() (tenant.IsolationMode, error) {
	return tenant.ParseIsolationMode(t.Mode)
}

// CacheOptions converts the cache section into tenant cache options.
func (c CacheConfig) CacheOptions() []tenant.CacheOption {
	opts := []tenant.CacheOption{
		tenant.WithTTL(c.TTL.Std()),
		tenant.WithNegativeTTL(c.NegativeTTL.Std()),
		tenant.WithMaxEntries(c.MaxEntries),
	}
	if c.RefreshThreshold != nil {
		opts = append(opts, tenant.WithRefreshThreshold(*c.RefreshThreshold))
	}
	return opts
}

// PoolStrategy converts the pools section into a tenant pool strategy.
func (p PoolsConfig) PoolStrategy() (tenant.Strategy, error) {
	switch p.Strategy {
	case "shared":
		return tenant.Shared(p.PoolSize), nil
	case "per_tenant":
		return tenant.PerTenant(p.MaxPools, p.PoolSize), nil
	case "per_database":
		return tenant.PerDatabase(p.MaxPools, p.PoolSize), nil
	default:
		return tenant.Strategy{}, prax.NewConfigError("tenancy.pools.strategy", fmt.Errorf("unknown strategy %q", p.Strategy))
	}
}

// PoolOptions converts the pools section into pool manager options.
func (p PoolsConfig) PoolOptions() []tenant.PoolOption {
	return []tenant.PoolOption{
		tenant.WithIdleTimeout(p.IdleTimeout.Std()),
		tenant.WithAcquireTimeout(p.AcquireTimeout.Std()),
	}
}

// InferDialect maps a connection URL scheme to a dialect name. It
// returns the empty string when the scheme is missing or unknown.
func InferDialect(rawURL string) string {
	scheme, _, ok := strings.Cut(rawURL, "://")
	if !ok {
		return ""
	}
	switch strings.ToLower(scheme) {
	case "postgres", "postgresql":
		return dialect.Postgres
	case "mysql":
		return dialect.MySQL
	case "sqlite", "sqlite3", "file":
		return dialect.SQLite
	case "duckdb":
		return dialect.DuckDB
	case "sqlserver", "mssql":
		return dialect.MSSQL
	case "mongodb", "mongodb+srv":
		return dialect.Mongo
	default:
		return ""
	}
}
