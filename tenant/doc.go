// Package tenant carries tenant identity through a process and scopes
// database access to it.
//
// A Context describes one tenant: its id, the IsolationMode separating its
// rows from everyone else's, and where those rows live (shard, database,
// schema). Contexts travel on the request's context.Context:
//
//	ctx = tenant.NewContext(ctx, tc)
//	tc, err := tenant.Require(ctx)
//
// # Resolution
//
// Runtime resolves ids to Contexts through a Loader fronted by a Cache. A
// lookup inside the TTL is a Hit. Past the refresh threshold it is Stale,
// served immediately while a single background refresh per entry reloads
// it. Past the TTL it is a Miss and loads synchronously. A load that
// reports an unknown tenant is held as a negative entry under a shorter
// TTL, so a misbehaving caller cannot hammer the loader with the same bad
// id.
//
//	rt := tenant.NewRuntime(tenant.NewCache(tenant.WithTTL(5*time.Minute)), loadTenant)
//	defer rt.Close()
//	ctx, err := rt.Scope(ctx, "acme")
//
// An optional prax.Cache adds a process-shared tier: resolved contexts are
// stored as msgpack snapshots and picked up by sibling processes before
// their loader runs.
//
// # Row-level security
//
// PolicyConfig renders the statements pinning every read and write to the
// session's tenant:
//
//	stmts, err := tenant.PolicyConfig{
//	    TenantColumn:    "tenant_id",
//	    SessionVariable: "app.tenant_id",
//	}.Generate(s)
//
// On Postgres each protected table gets ENABLE and FORCE ROW LEVEL
// SECURITY plus one policy comparing the tenant column against
// current_setting of the session variable, in USING and in WITH CHECK. SQL
// Server gets the equivalent security policy with filter and block
// predicates over SESSION_CONTEXT. SessionStatements renders the
// per-transaction SET that establishes the variable, with the id escaped
// as a literal.
//
// # Pools and statements
//
// PoolManager keeps one pool per Strategy key: shared, per tenant or per
// database. Entries open lazily, idle ones close after a sweep interval,
// and the least recently used entry is evicted once the pool limit is
// reached. StmtCache holds prepared statements globally, per tenant, or
// not at all, closing evicted handles that implement io.Closer.
package tenant
