package tenant

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/syssam/prax/dialect"
	"github.com/syssam/prax/schema"
)

// Commands is a bitmask of write commands the MSSQL block predicates
// cover.
type Commands uint8

const (
	CommandInsert Commands = 1 << iota
	CommandUpdate
	CommandDelete
)

// CommandAll covers every write command.
const CommandAll = CommandInsert | CommandUpdate | CommandDelete

// blockOps maps commands to block-predicate timings. Updates need both
// sides: BEFORE checks the row leaving the tenant, AFTER the row entering
// it.
func (c Commands) blockOps() []string {
	if c == 0 {
		c = CommandAll
	}
	var ops []string
	if c&CommandInsert != 0 {
		ops = append(ops, "AFTER INSERT")
	}
	if c&CommandUpdate != 0 {
		ops = append(ops, "BEFORE UPDATE", "AFTER UPDATE")
	}
	if c&CommandDelete != 0 {
		ops = append(ops, "BEFORE DELETE")
	}
	return ops
}

var (
	currentSettingPattern = regexp.MustCompile(`current_setting\('([^']*)'\)(::[A-Za-z_][A-Za-z0-9_]*)?`)
	currentUserPattern    = regexp.MustCompile(`current_user_id\(\)`)
)

// RewriteSessionCalls translates Postgres-flavored session reads in an
// expression to their MSSQL form: current_setting('k') becomes
// SESSION_CONTEXT(N'k') with any ::cast dropped, and current_user_id()
// becomes SESSION_CONTEXT(N'user_id').
func RewriteSessionCalls(expr string) string {
	expr = currentSettingPattern.ReplaceAllString(expr, "SESSION_CONTEXT(N'$1')")
	return currentUserPattern.ReplaceAllString(expr, "SESSION_CONTEXT(N'user_id')")
}

// mssqlSessionType narrows the column type for SESSION_CONTEXT casts.
// Session values are sql_variant, which cannot convert to MAX-sized types.
func mssqlSessionType(f *schema.Field) string {
	t := dialect.ColumnType(dialect.MSSQL, f.Type, f.Modifier)
	return strings.Replace(t, "(MAX)", "(128)", 1)
}

func (p PolicyConfig) securitySchema() string {
	if p.SecuritySchema != "" {
		return p.SecuritySchema
	}
	return "rls"
}

func (p PolicyConfig) tableSchema() string {
	if p.TableSchema != "" {
		return p.TableSchema
	}
	return "dbo"
}

// GenerateMSSQL emits the MSSQL statements enforcing tenant isolation: a
// security schema guard, one schema-bound inline table-valued predicate
// function comparing its argument to the session context, and one security
// policy binding the function as the filter predicate plus block
// predicates for the configured commands on every included table.
func (p PolicyConfig) GenerateMSSQL(s *schema.Schema) ([]string, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	tables, models, err := p.include(s)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, nil
	}
	paramType := mssqlSessionType(mustTenantField(p, models[0]))
	for i := 1; i < len(models); i++ {
		if t := mssqlSessionType(mustTenantField(p, models[i])); t != paramType {
			return nil, fmt.Errorf("prax: rls tables disagree on the type of %q: %s on %q, %s on %q",
				p.TenantColumn, paramType, tables[0], t, tables[i])
		}
	}
	quote := func(ident string) string { return dialect.Quote(dialect.MSSQL, ident) }
	qschema := quote(p.securitySchema())
	qfn := qschema + "." + quote("fn_tenant_predicate")
	qpolicy := qschema + "." + quote("tenant_policy")

	where := "@tenant_id = CAST(SESSION_CONTEXT(N'" + doubleQuotes(p.SessionVariable) + "') AS " + paramType + ")"
	if p.ExtraPredicate != "" {
		where += " AND (" + RewriteSessionCalls(p.ExtraPredicate) + ")"
	}
	fn := "CREATE FUNCTION " + qfn + "(@tenant_id " + paramType + ")\n" +
		"RETURNS TABLE\n" +
		"WITH SCHEMABINDING\n" +
		"AS\n" +
		"RETURN SELECT 1 AS is_visible WHERE " + where + ";"

	predicate := qfn + "(" + quote(p.TenantColumn) + ")"
	var clauses []string
	for _, t := range tables {
		on := quote(p.tableSchema()) + "." + quote(t)
		clauses = append(clauses, "ADD FILTER PREDICATE "+predicate+" ON "+on)
		for _, op := range p.Commands.blockOps() {
			clauses = append(clauses, "ADD BLOCK PREDICATE "+predicate+" ON "+on+" "+op)
		}
	}
	policy := "CREATE SECURITY POLICY " + qpolicy + "\n    " +
		strings.Join(clauses, ",\n    ") + "\n" +
		"WITH (STATE = ON, SCHEMABINDING = ON);"

	return []string{
		"IF SCHEMA_ID(N'" + doubleQuotes(p.securitySchema()) + "') IS NULL EXEC(N'CREATE SCHEMA " + quote(p.securitySchema()) + "');",
		fn,
		policy,
	}, nil
}

// DownMSSQL emits the statements reverting GenerateMSSQL. The security
// schema stays in place.
func (p PolicyConfig) DownMSSQL() []string {
	quote := func(ident string) string { return dialect.Quote(dialect.MSSQL, ident) }
	qschema := quote(p.securitySchema())
	return []string{
		"DROP SECURITY POLICY " + qschema + "." + quote("tenant_policy") + ";",
		"DROP FUNCTION " + qschema + "." + quote("fn_tenant_predicate") + ";",
	}
}

// mustTenantField returns the tenant field of a model already vetted by
// include.
func mustTenantField(p PolicyConfig, m *schema.Model) *schema.Field {
	f, _ := p.tenantField(m)
	return f
}
