package migrate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	mysqldsn "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/syssam/prax/dialect"
	"github.com/syssam/prax/dialect/sql"
	"github.com/syssam/prax/schema"
)

// DefaultShadowPrefix prefixes generated shadow database names.
const DefaultShadowPrefix = "prax_shadow_"

// ShadowState tracks the shadow database lifecycle.
type ShadowState uint8

const (
	ShadowNotCreated ShadowState = iota
	ShadowReady
	ShadowDropped
	ShadowError
)

// String returns the state name.
func (s ShadowState) String() string {
	switch s {
	case ShadowNotCreated:
		return "not created"
	case ShadowReady:
		return "ready"
	case ShadowDropped:
		return "dropped"
	case ShadowError:
		return "error"
	default:
		return fmt.Sprintf("ShadowState(%d)", uint8(s))
	}
}

// OpenFunc opens a driver for a dialect and data source.
type OpenFunc func(dialectName, source string) (dialect.Driver, error)

// IntrospectFunc reads the live schema of a database. The introspection
// protocol itself belongs to the driver packages; the shadow only calls
// through this hook.
type IntrospectFunc func(ctx context.Context, drv dialect.Driver) (*schema.Schema, error)

// Shadow is a disposable database the engine replays migrations on to
// verify them against the declared schema. Server dialects get a CREATE
// DATABASE with a random suffixed name on the base connection; file
// dialects get a temp file.
type Shadow struct {
	dialect    string
	baseURL    string
	prefix     string
	open       OpenFunc
	introspect IntrospectFunc
	log        *slog.Logger

	mu    sync.Mutex
	state ShadowState
	name  string
	url   string
	file  string
	drv   dialect.Driver
}

// ShadowOption configures a Shadow.
type ShadowOption func(*Shadow)

// WithShadowPrefix overrides the generated name prefix.
func WithShadowPrefix(prefix string) ShadowOption {
	return func(s *Shadow) { s.prefix = prefix }
}

// WithShadowOpen overrides how shadow connections are opened.
func WithShadowOpen(open OpenFunc) ShadowOption {
	return func(s *Shadow) { s.open = open }
}

// WithIntrospector sets the hook that reads the shadow schema back.
func WithIntrospector(introspect IntrospectFunc) ShadowOption {
	return func(s *Shadow) { s.introspect = introspect }
}

// WithShadowLogger sets the shadow logger.
func WithShadowLogger(l *slog.Logger) ShadowOption {
	return func(s *Shadow) { s.log = l }
}

// NewShadow returns a shadow for the dialect and base connection URL.
func NewShadow(dialectName, baseURL string, opts ...ShadowOption) *Shadow {
	s := &Shadow{
		dialect: dialectName,
		baseURL: baseURL,
		prefix:  DefaultShadowPrefix,
		state:   ShadowNotCreated,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.open == nil {
		s.open = func(dialectName, source string) (dialect.Driver, error) {
			return sql.Open(dialectName, source)
		}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// State returns the current lifecycle state.
func (s *Shadow) State() ShadowState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Name returns the generated database name, once created.
func (s *Shadow) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// URL returns the shadow connection URL, once created.
func (s *Shadow) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

// Driver returns the open shadow connection, once created.
func (s *Shadow) Driver() dialect.Driver {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drv
}

func shadowName(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// Create provisions the shadow database and opens a connection to it. It
// fails unless the shadow is in its initial state.
func (s *Shadow) Create(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != ShadowNotCreated {
		return "", NewShadowError("create", fmt.Errorf("shadow is %s, not %s", s.state, ShadowNotCreated))
	}
	name := shadowName(s.prefix)
	dsn, file, err := s.provision(ctx, name)
	if err != nil {
		return "", NewShadowError("create", err)
	}
	drv, err := s.open(s.dialect, dsn)
	if err != nil {
		s.deprovision(ctx, name, file)
		return "", NewShadowError("create", err)
	}
	s.state, s.name, s.url, s.file, s.drv = ShadowReady, name, dsn, file, drv
	s.log.Debug("created shadow database", "dialect", s.dialect, "name", name)
	return dsn, nil
}

// provision creates the database (or temp file) and returns its URL.
func (s *Shadow) provision(ctx context.Context, name string) (shadowURL, file string, err error) {
	switch s.dialect {
	case dialect.SQLite, dialect.DuckDB:
		f, err := os.CreateTemp("", name+"-*.db")
		if err != nil {
			return "", "", err
		}
		path := f.Name()
		if err := f.Close(); err != nil {
			return "", "", err
		}
		if s.dialect == dialect.SQLite {
			return "file:" + filepath.ToSlash(path) + "?_pragma=foreign_keys(1)", path, nil
		}
		return path, path, nil
	case dialect.MySQL:
		cfg, err := mysqldsn.ParseDSN(s.baseURL)
		if err != nil {
			return "", "", err
		}
		if err := s.adminExec(ctx, "CREATE DATABASE "+dialect.Quote(s.dialect, name)); err != nil {
			return "", "", err
		}
		cfg.DBName = name
		return cfg.FormatDSN(), "", nil
	case dialect.Postgres:
		u, err := url.Parse(s.baseURL)
		if err != nil {
			return "", "", err
		}
		if err := s.adminExec(ctx, "CREATE DATABASE "+dialect.Quote(s.dialect, name)); err != nil {
			return "", "", err
		}
		u.Path = "/" + name
		return u.String(), "", nil
	case dialect.MSSQL:
		u, err := url.Parse(s.baseURL)
		if err != nil {
			return "", "", err
		}
		if err := s.adminExec(ctx, "CREATE DATABASE "+dialect.Quote(s.dialect, name)); err != nil {
			return "", "", err
		}
		q := u.Query()
		q.Set("database", name)
		u.RawQuery = q.Encode()
		return u.String(), "", nil
	default:
		return "", "", fmt.Errorf("dialect %q has no shadow support", s.dialect)
	}
}

// adminExec runs a statement on the base connection.
func (s *Shadow) adminExec(ctx context.Context, stmt string) error {
	admin, err := s.open(s.dialect, s.baseURL)
	if err != nil {
		return err
	}
	defer admin.Close()
	return admin.Exec(ctx, stmt, []any{}, nil)
}

// deprovision reverses a provision after a failed create.
func (s *Shadow) deprovision(ctx context.Context, name, file string) {
	if file != "" {
		if err := os.Remove(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("removing shadow file", "path", file, "error", err)
		}
		return
	}
	if err := s.adminExec(ctx, "DROP DATABASE "+dialect.Quote(s.dialect, name)); err != nil {
		s.log.Warn("dropping shadow database", "name", name, "error", err)
	}
}

// ApplyMigrations replays the up scripts on the shadow in order. Any
// failure moves the shadow to its error state; Drop still cleans up.
func (s *Shadow) ApplyMigrations(ctx context.Context, files []*File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != ShadowReady {
		return NewShadowError("apply", fmt.Errorf("shadow is %s, not %s", s.state, ShadowReady))
	}
	for _, f := range files {
		for _, stmt := range Statements(f.UpSQL) {
			if err := s.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
				s.state = ShadowError
				return NewShadowError("apply", fmt.Errorf("migration %s: %w", f.ID, err))
			}
		}
	}
	return nil
}

// Introspect reads the schema of the shadow database through the
// configured hook.
func (s *Shadow) Introspect(ctx context.Context) (*schema.Schema, error) {
	s.mu.Lock()
	drv, state := s.drv, s.state
	introspect := s.introspect
	s.mu.Unlock()
	if state != ShadowReady && state != ShadowError {
		return nil, NewShadowError("introspect", fmt.Errorf("shadow is %s", state))
	}
	if introspect == nil {
		return nil, NewShadowError("introspect", errors.New("no introspector configured, see WithIntrospector"))
	}
	actual, err := introspect(ctx, drv)
	if err != nil {
		return nil, NewShadowError("introspect", err)
	}
	return actual, nil
}

// Drift replays nothing; it introspects the shadow as it stands and
// reports differences from the desired schema.
func (s *Shadow) Drift(ctx context.Context, desired *schema.Schema) (*DriftReport, error) {
	actual, err := s.Introspect(ctx)
	if err != nil {
		return nil, err
	}
	return DetectDrift(desired, actual), nil
}

// Drop removes the shadow database. Dropping twice, or before creating,
// is a no-op.
func (s *Shadow) Drop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == ShadowDropped || s.state == ShadowNotCreated {
		return nil
	}
	if s.drv != nil {
		if err := s.drv.Close(); err != nil {
			s.log.Warn("closing shadow connection", "name", s.name, "error", err)
		}
		s.drv = nil
	}
	if s.file != "" {
		if err := os.Remove(s.file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return NewShadowError("drop", err)
		}
	} else if err := s.adminExec(ctx, "DROP DATABASE "+dialect.Quote(s.dialect, s.name)); err != nil {
		return NewShadowError("drop", err)
	}
	s.state = ShadowDropped
	s.log.Debug("dropped shadow database", "name", s.name)
	return nil
}

// ModelDrift is a model present on one side only.
type ModelDrift struct {
	Model string
	Desc  string
}

// FieldDrift is a field missing or differently typed between the desired
// schema and the database.
type FieldDrift struct {
	Model string
	Field string
	Desc  string
}

// IndexDrift is an index present on one side only or differently defined.
type IndexDrift struct {
	Model string
	Index string
	Desc  string
}

// DriftReport lists every difference between a desired schema and an
// introspected one.
type DriftReport struct {
	Models  []ModelDrift
	Fields  []FieldDrift
	Indexes []IndexDrift
}

// Empty reports whether no drift was found.
func (r *DriftReport) Empty() bool {
	return r == nil || len(r.Models) == 0 && len(r.Fields) == 0 && len(r.Indexes) == 0
}

// String renders the report one finding per line.
func (r *DriftReport) String() string {
	if r.Empty() {
		return "no drift"
	}
	var b strings.Builder
	for _, d := range r.Models {
		fmt.Fprintf(&b, "model %s: %s\n", d.Model, d.Desc)
	}
	for _, d := range r.Fields {
		fmt.Fprintf(&b, "field %s.%s: %s\n", d.Model, d.Field, d.Desc)
	}
	for _, d := range r.Indexes {
		fmt.Fprintf(&b, "index %s.%s: %s\n", d.Model, d.Index, d.Desc)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderFieldType(f *schema.Field) string {
	return f.Type.String() + f.Modifier.String()
}

// DetectDrift compares a desired schema against an introspected one:
// symmetric difference of models, of fields on common models, and of
// indexes, with type and modifier comparison on common fields.
func DetectDrift(desired, actual *schema.Schema) *DriftReport {
	if desired == nil {
		desired = &schema.Schema{}
	}
	if actual == nil {
		actual = &schema.Schema{}
	}
	report := &DriftReport{}
	for _, m := range sortedModels(desired.Models) {
		am, ok := actual.Model(m.Name)
		if !ok {
			report.Models = append(report.Models, ModelDrift{Model: m.Name, Desc: "missing from the database"})
			continue
		}
		driftFields(report, m, am)
		driftIndexes(report, m, am)
	}
	for _, m := range sortedModels(actual.Models) {
		if _, ok := desired.Model(m.Name); !ok {
			report.Models = append(report.Models, ModelDrift{Model: m.Name, Desc: "not in the declared schema"})
		}
	}
	return report
}

func driftFields(report *DriftReport, desired, actual *schema.Model) {
	for _, f := range desired.ScalarFields() {
		af, ok := actual.Field(f.Name)
		if !ok || af.IsRelation() {
			report.Fields = append(report.Fields, FieldDrift{Model: desired.Name, Field: f.Name, Desc: "missing from the database"})
			continue
		}
		switch {
		case f.Type != af.Type:
			report.Fields = append(report.Fields, FieldDrift{
				Model: desired.Name,
				Field: f.Name,
				Desc:  fmt.Sprintf("Type mismatch: %s vs %s", renderFieldType(f), renderFieldType(af)),
			})
		case f.Modifier != af.Modifier:
			report.Fields = append(report.Fields, FieldDrift{
				Model: desired.Name,
				Field: f.Name,
				Desc:  fmt.Sprintf("Modifier mismatch: %s vs %s", renderFieldType(f), renderFieldType(af)),
			})
		}
	}
	for _, f := range actual.ScalarFields() {
		if _, ok := desired.Field(f.Name); !ok {
			report.Fields = append(report.Fields, FieldDrift{Model: desired.Name, Field: f.Name, Desc: "not in the declared schema"})
		}
	}
}

func driftIndexes(report *DriftReport, desired, actual *schema.Model) {
	want := ModelIndexes(desired)
	have := ModelIndexes(actual)
	for _, idx := range want {
		other := findIndex(have, idx.Name)
		switch {
		case other == nil:
			report.Indexes = append(report.Indexes, IndexDrift{Model: desired.Name, Index: idx.Name, Desc: "missing from the database"})
		case !sameIndex(idx, other):
			report.Indexes = append(report.Indexes, IndexDrift{Model: desired.Name, Index: idx.Name, Desc: "definition differs"})
		}
	}
	for _, idx := range have {
		if findIndex(want, idx.Name) == nil {
			report.Indexes = append(report.Indexes, IndexDrift{Model: desired.Name, Index: idx.Name, Desc: "not in the declared schema"})
		}
	}
}
