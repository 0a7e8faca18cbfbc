package tenant

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/syssam/prax/dialect"
	"github.com/syssam/prax/schema"
)

// PolicyConfig drives row-level security generation. The generator emits
// one ENABLE/FORCE pair and one policy per included table, comparing the
// tenant column against the session variable.
type PolicyConfig struct {
	// TenantColumn is the column holding the owning tenant id.
	TenantColumn string
	// SessionVariable is the session setting carrying the current tenant
	// ("app.tenant_id"). Postgres custom settings need a dotted name.
	SessionVariable string
	// ApplicationRole optionally restricts the policy to one role.
	ApplicationRole string
	// Tables names the tables to protect. Empty means every table whose
	// model carries the tenant column.
	Tables []string
	// ExcludedTables are left unprotected even when discovered.
	ExcludedTables []string
	// ExtraPredicate is an optional boolean expression ANDed into every
	// policy, written in Postgres form; the MSSQL generator rewrites its
	// session calls.
	ExtraPredicate string
	// Commands limits which write commands the MSSQL block predicates
	// cover. Zero means all of them.
	Commands Commands
	// SecuritySchema is the schema holding the MSSQL predicate function
	// and policy ("rls" when empty).
	SecuritySchema string
	// TableSchema qualifies protected tables on MSSQL ("dbo" when empty).
	TableSchema string
}

// Validate checks the config before generation.
func (p PolicyConfig) Validate() error {
	if p.TenantColumn == "" {
		return fmt.Errorf("prax: rls policy needs a tenant column")
	}
	if !validSessionVar(p.SessionVariable) {
		return fmt.Errorf("prax: invalid session variable name %q", p.SessionVariable)
	}
	if !strings.Contains(p.SessionVariable, ".") {
		return fmt.Errorf("prax: session variable %q needs a dotted name; postgres rejects one-part custom settings", p.SessionVariable)
	}
	return nil
}

// policyName returns the per-table policy name.
func policyName(table string) string {
	return table + "_tenant_isolation"
}

// tenantField returns the model's field stored under the tenant column.
func (p PolicyConfig) tenantField(m *schema.Model) (*schema.Field, bool) {
	for _, f := range m.ScalarFields() {
		if schema.ColumnName(f) == p.TenantColumn {
			return f, true
		}
	}
	return nil, false
}

// include resolves the protected tables to (table, model) pairs. Explicit
// tables must exist and carry the column; discovery skips models without
// it.
func (p PolicyConfig) include(s *schema.Schema) (tables []string, models []*schema.Model, err error) {
	excluded := make(map[string]bool, len(p.ExcludedTables))
	for _, t := range p.ExcludedTables {
		excluded[t] = true
	}
	if len(p.Tables) > 0 {
		byTable := make(map[string]*schema.Model, len(s.Models))
		for _, m := range s.Models {
			byTable[schema.TableName(m)] = m
		}
		seen := make(map[string]bool, len(p.Tables))
		for _, t := range p.Tables {
			if excluded[t] || seen[t] {
				continue
			}
			seen[t] = true
			m, ok := byTable[t]
			if !ok {
				return nil, nil, fmt.Errorf("prax: rls policy covers unknown table %q", t)
			}
			if _, ok := p.tenantField(m); !ok {
				return nil, nil, fmt.Errorf("prax: table %q has no column %q", t, p.TenantColumn)
			}
			tables = append(tables, t)
			models = append(models, m)
		}
		return tables, models, nil
	}
	for _, m := range s.Models {
		t := schema.TableName(m)
		if excluded[t] {
			continue
		}
		if _, ok := p.tenantField(m); !ok {
			continue
		}
		tables = append(tables, t)
		models = append(models, m)
	}
	return tables, models, nil
}

// settingExpr renders the session-variable read cast to the tenant
// column's type.
func (p PolicyConfig) settingExpr(f *schema.Field) string {
	cast := strings.ToLower(dialect.ColumnType(dialect.Postgres, f.Type, f.Modifier))
	return "current_setting(" + pq.QuoteLiteral(p.SessionVariable) + ")::" + cast
}

// Generate emits the Postgres statements enforcing tenant isolation: per
// table an ENABLE ROW LEVEL SECURITY, a FORCE ROW LEVEL SECURITY (so table
// owners are not exempt) and a policy whose USING and WITH CHECK clauses
// both compare the tenant column to the session variable.
func (p PolicyConfig) Generate(s *schema.Schema) ([]string, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	tables, models, err := p.include(s)
	if err != nil {
		return nil, err
	}
	var stmts []string
	for i, t := range tables {
		f, _ := p.tenantField(models[i])
		qt := pq.QuoteIdentifier(t)
		expr := pq.QuoteIdentifier(p.TenantColumn) + " = " + p.settingExpr(f)
		if p.ExtraPredicate != "" {
			expr += " AND (" + p.ExtraPredicate + ")"
		}
		policy := "CREATE POLICY " + pq.QuoteIdentifier(policyName(t)) + " ON " + qt
		if p.ApplicationRole != "" {
			policy += " TO " + pq.QuoteIdentifier(p.ApplicationRole)
		}
		policy += " USING (" + expr + ") WITH CHECK (" + expr + ");"
		stmts = append(stmts,
			"ALTER TABLE "+qt+" ENABLE ROW LEVEL SECURITY;",
			"ALTER TABLE "+qt+" FORCE ROW LEVEL SECURITY;",
			policy,
		)
	}
	return stmts, nil
}

// Down emits the statements reverting Generate, in reverse order per
// table.
func (p PolicyConfig) Down(s *schema.Schema) ([]string, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	tables, _, err := p.include(s)
	if err != nil {
		return nil, err
	}
	var stmts []string
	for _, t := range tables {
		qt := pq.QuoteIdentifier(t)
		stmts = append(stmts,
			"DROP POLICY IF EXISTS "+pq.QuoteIdentifier(policyName(t))+" ON "+qt+";",
			"ALTER TABLE "+qt+" NO FORCE ROW LEVEL SECURITY;",
			"ALTER TABLE "+qt+" DISABLE ROW LEVEL SECURITY;",
		)
	}
	return stmts, nil
}

// SessionSet returns the statement binding the session variable to the
// tenant id for the current transaction.
func (p PolicyConfig) SessionSet(id ID) (string, error) {
	stmts, err := SessionStatements(dialect.Postgres, p.SessionVariable, Context{ID: id})
	if err != nil {
		return "", err
	}
	return stmts[0], nil
}
