package tenant

import (
	"context"
	"fmt"
)

// ID identifies a tenant. The value is opaque to prax; it flows into
// session variables, pool keys and cache keys unmodified.
type ID string

// IsolationMode selects how a tenant's data is separated from the rest.
type IsolationMode uint8

const (
	// IsolationRLS shares tables and enforces row visibility with
	// database policies keyed on a session variable.
	IsolationRLS IsolationMode = iota
	// IsolationSchema gives every tenant its own schema in a shared
	// database.
	IsolationSchema
	// IsolationDatabase gives every tenant its own database.
	IsolationDatabase
	// IsolationHybrid mixes modes per tenant; the Context's Database and
	// Schema overrides decide the effective placement.
	IsolationHybrid
)

// String returns the configuration spelling of the mode.
func (m IsolationMode) String() string {
	switch m {
	case IsolationRLS:
		return "rls"
	case IsolationSchema:
		return "schema"
	case IsolationDatabase:
		return "database"
	case IsolationHybrid:
		return "hybrid"
	default:
		return fmt.Sprintf("IsolationMode(%d)", uint8(m))
	}
}

// ParseIsolationMode parses the configuration spelling of a mode.
func ParseIsolationMode(s string) (IsolationMode, error) {
	switch s {
	case "rls":
		return IsolationRLS, nil
	case "schema":
		return IsolationSchema, nil
	case "database":
		return IsolationDatabase, nil
	case "hybrid":
		return IsolationHybrid, nil
	default:
		return 0, fmt.Errorf("prax: unknown isolation mode %q", s)
	}
}

// Context is the tenant identity carried through a request: who the tenant
// is, where its data lives and how it is isolated. Values are immutable
// once attached to a context.Context; derive changed copies instead of
// mutating shared state.
type Context struct {
	// ID is the tenant identifier. Required.
	ID ID
	// ShardKey optionally routes the tenant to a shard.
	ShardKey string
	// Database overrides the target database (IsolationDatabase/Hybrid).
	Database string
	// Schema overrides the target schema (IsolationSchema/Hybrid).
	Schema string
	// Mode is the tenant's isolation mode.
	Mode IsolationMode
	// Attributes carries open-world metadata (plan, region, flags).
	Attributes map[string]string
}

// Valid reports whether the context names a tenant.
func (tc Context) Valid() bool { return tc.ID != "" }

// Attribute returns the named attribute.
func (tc Context) Attribute(name string) (string, bool) {
	v, ok := tc.Attributes[name]
	return v, ok
}

// WithAttribute returns a copy of the context with the attribute set. The
// receiver is not modified.
func (tc Context) WithAttribute(name, value string) Context {
	attrs := make(map[string]string, len(tc.Attributes)+1)
	for k, v := range tc.Attributes {
		attrs[k] = v
	}
	attrs[name] = value
	tc.Attributes = attrs
	return tc
}

type ctxKey struct{}

// NewContext returns a context carrying the tenant. Every operation the
// runtime performs on behalf of the request reads it back with FromContext,
// including work handed to other goroutines that inherit the context.
func NewContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// FromContext returns the tenant carried by ctx, if any.
func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(ctxKey{}).(Context)
	return tc, ok
}

// Require returns the tenant carried by ctx or a NotFoundError when the
// context carries none.
func Require(ctx context.Context) (Context, error) {
	tc, ok := FromContext(ctx)
	if !ok || !tc.Valid() {
		return Context{}, &NotFoundError{}
	}
	return tc, nil
}
